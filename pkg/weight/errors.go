package weight

import "errors"

var (
	// ErrNoSample means the filter has not produced any output yet; the
	// caller may retry once sampling has warmed up.
	ErrNoSample = errors.New("no filtered sample available yet")

	// ErrInsufficientPoints means fewer than two calibration points have
	// been captured.
	ErrInsufficientPoints = errors.New("calibration needs two points")

	// ErrDegenerateCalibration means both calibration points captured the
	// same raw count, so no line can be derived.
	ErrDegenerateCalibration = errors.New("calibration points have equal raw counts")

	// ErrSaveBusy means a calibration save is already in flight.
	ErrSaveBusy = errors.New("calibration save in progress")

	// ErrUncalibrated means no calibration mapping has been established.
	ErrUncalibrated = errors.New("device is uncalibrated")
)
