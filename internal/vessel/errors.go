package vessel

import "errors"

var (
	// ErrInvalidBoundingBox is returned for inverted or out-of-range boxes.
	// It is always raised before any I/O takes place.
	ErrInvalidBoundingBox = errors.New("invalid bounding box")

	// ErrCoordinateOutOfRange marks external data that failed the sanity
	// check. The record is dropped and nothing is written back.
	ErrCoordinateOutOfRange = errors.New("coordinate out of range")

	// ErrFeedUnavailable covers network failures, timeouts and malformed
	// payloads from the AIS feed.
	ErrFeedUnavailable = errors.New("ais feed unavailable")

	// ErrUnavailable is returned by a Store whose backend cannot be reached.
	ErrUnavailable = errors.New("store unavailable")

	// ErrNotFound is returned by a Store for an unknown vessel id.
	ErrNotFound = errors.New("vessel not found")

	// ErrUnknownConnection refers to a connection id missing from the
	// subscription registry. Registry operations treat it as a no-op.
	ErrUnknownConnection = errors.New("unknown connection")
)
