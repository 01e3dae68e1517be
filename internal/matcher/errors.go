package matcher

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownRoomType: no slot plan exists for the room type. Fatal for the room.
	ErrUnknownRoomType = errors.New("unknown room type")
	// ErrCatalogUnavailable: the catalog query transport failed. Retryable by the caller.
	ErrCatalogUnavailable = errors.New("catalog unavailable")
)

// UnknownRoomTypeError carries the offending room type
type UnknownRoomTypeError struct {
	RoomType string
}

func (e *UnknownRoomTypeError) Error() string {
	return fmt.Sprintf("unknown room type %q", e.RoomType)
}

func (e *UnknownRoomTypeError) Is(target error) bool {
	return target == ErrUnknownRoomType
}

// CatalogError wraps a catalog transport failure for one slot
type CatalogError struct {
	Slot string
	Err  error
}

func (e *CatalogError) Error() string {
	return fmt.Sprintf("catalog query for slot %s: %v", e.Slot, e.Err)
}

func (e *CatalogError) Unwrap() error {
	return e.Err
}

func (e *CatalogError) Is(target error) bool {
	return target == ErrCatalogUnavailable
}

// IsRetryable reports whether a failed match may succeed when retried unchanged
func IsRetryable(err error) bool {
	return errors.Is(err, ErrCatalogUnavailable)
}
