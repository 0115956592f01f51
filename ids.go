package noetic

import "github.com/google/uuid"

// NewID returns a time-ordered 128-bit identifier (UUIDv7), used for
// Note and its descendants throughout the System. UUIDv7 embeds a
// millisecond timestamp in its
// high bits, so IDs generated later sort after IDs generated earlier
// without a separate created_at index lookup.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// uuid.NewV7 only fails if the system entropy source is broken;
		// fall back to a random (non-ordered) UUID rather than panic.
		return uuid.New().String()
	}
	return id.String()
}
