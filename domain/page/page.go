// Package page normalizes offset/limit pagination parameters.
package page

const (
	// DefaultLimit is used when the caller does not ask for a page size.
	DefaultLimit = 10
	// MaxLimit caps the page size.
	MaxLimit = 100
)

// Normalize clamps offset to ≥ 0 and limit to 1..MaxLimit, defaulting to DefaultLimit.
func Normalize(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return offset, limit
}
