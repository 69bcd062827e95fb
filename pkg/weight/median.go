package weight

import "fmt"

// Median is a sliding-window median filter over raw counts. The window size
// must be odd so the median is always an element of the window. Storage is
// allocated once at construction; Push never allocates.
type Median struct {
	window  []int32
	scratch []int32
	next    int
	filled  int
}

// NewMedian creates a filter with the given odd window size.
func NewMedian(size int) (*Median, error) {
	if size < 1 || size%2 == 0 {
		return nil, fmt.Errorf("median window size must be odd and positive, got %d", size)
	}
	return &Median{
		window:  make([]int32, size),
		scratch: make([]int32, size),
	}, nil
}

// Push inserts a raw count, evicting the oldest once the window is full.
// It returns the median of the current window, or ok=false during cold
// start while the window has not yet filled.
func (m *Median) Push(v int32) (median int32, ok bool) {
	m.window[m.next] = v
	m.next = (m.next + 1) % len(m.window)
	if m.filled < len(m.window) {
		m.filled++
		if m.filled < len(m.window) {
			return 0, false
		}
	}

	copy(m.scratch, m.window)
	insertionSort(m.scratch)
	return m.scratch[len(m.scratch)/2], true
}

// insertionSort is fine here: windows are tiny (3-9 elements).
func insertionSort(s []int32) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}
