// Package nvm persists the calibration mapping across power cycles on
// block-erase storage.
//
// The store keeps two generation-tagged slots (one record per block) and
// alternates between them on commit: the stale slot is erased and rewritten
// while the current record stays untouched, so an interruption at any point
// leaves either the prior valid record or the fully written new one. Load
// picks whichever valid slot carries the higher generation.
package nvm

import (
	"bytes"
	"errors"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	// ErrStorageFault reports an unrecoverable media error during commit.
	ErrStorageFault = errors.New("storage fault")

	// ErrCommitInFlight reports a commit arriving while another is still
	// running. Commits must not interleave; the caller may retry.
	ErrCommitInFlight = errors.New("commit already in flight")
)

// Store is the persistent calibration store. It is the only writer of its
// storage region.
type Store struct {
	dev BlockDevice
	mu  sync.Mutex
	log *logrus.Entry
}

// NewStore wraps a BlockDevice with at least two blocks large enough to
// hold one record each.
func NewStore(dev BlockDevice) (*Store, error) {
	if dev.Blocks() < 2 {
		return nil, pkgerrors.Errorf("store needs 2 blocks, device has %d", dev.Blocks())
	}
	if dev.BlockSize() < recordSize {
		return nil, pkgerrors.Errorf("block size %d smaller than record size %d", dev.BlockSize(), recordSize)
	}
	return &Store{
		dev: dev,
		log: logrus.WithField("component", "nvm"),
	}, nil
}

// Load reads both slots and returns the valid record with the highest
// generation. A blank or corrupt store returns (nil, nil): absence of
// calibration is an expected state, never a fault.
func (s *Store) Load() (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, _, ok := s.scan()
	if !ok {
		s.log.Debug("no valid calibration record found")
		return nil, nil
	}
	s.log.WithFields(logrus.Fields{
		"generation": rec.Generation,
		"zeroRaw":    rec.ZeroRaw,
	}).Debug("loaded calibration record")
	out := rec
	return &out, nil
}

// Commit durably writes zeroRaw and gradient as a new record. The write
// sequence is erase stale slot, write record, read back and verify. Only
// after Commit returns nil may the caller treat the mapping as durable.
func (s *Store) Commit(zeroRaw int32, gradient float64) error {
	if !s.mu.TryLock() {
		return ErrCommitInFlight
	}
	defer s.mu.Unlock()

	current, slot, ok := s.scan()
	target := 0
	gen := uint32(1)
	if ok {
		target = 1 - slot
		gen = current.Generation + 1
	}

	rec := Record{Generation: gen, ZeroRaw: zeroRaw, Gradient: gradient}
	payload := encodeRecord(rec)

	if err := s.dev.EraseBlock(target); err != nil {
		return pkgerrors.Wrapf(ErrStorageFault, "erase slot %d: %v", target, err)
	}
	if err := s.dev.WriteBlock(target, payload); err != nil {
		return pkgerrors.Wrapf(ErrStorageFault, "write slot %d: %v", target, err)
	}

	verify := make([]byte, recordSize)
	if err := s.dev.ReadBlock(target, verify); err != nil {
		return pkgerrors.Wrapf(ErrStorageFault, "read back slot %d: %v", target, err)
	}
	if !bytes.Equal(verify, payload) {
		return pkgerrors.Wrapf(ErrStorageFault, "read-back mismatch in slot %d", target)
	}

	s.log.WithFields(logrus.Fields{
		"slot":       target,
		"generation": gen,
	}).Info("calibration record committed")
	return nil
}

// scan returns the newest valid record and its slot index. Callers hold mu.
func (s *Store) scan() (Record, int, bool) {
	var (
		best     Record
		bestSlot int
		found    bool
	)
	buf := make([]byte, recordSize)
	for slot := 0; slot < 2; slot++ {
		if err := s.dev.ReadBlock(slot, buf); err != nil {
			s.log.WithError(err).Warnf("slot %d unreadable", slot)
			continue
		}
		rec, ok := decodeRecord(buf)
		if !ok {
			continue
		}
		if !found || rec.Generation > best.Generation {
			best, bestSlot, found = rec, slot, true
		}
	}
	return best, bestSlot, found
}
