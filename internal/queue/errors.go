package queue

import "errors"

var (
	// ErrEmpty is returned by a non-blocking PopLeft when no entry is pending.
	ErrEmpty = errors.New("queue is empty")
	// ErrCorruptRecord is returned when the head entry cannot be decoded. The
	// entry has already been moved to the poison table.
	ErrCorruptRecord = errors.New("corrupt queue record")
)
