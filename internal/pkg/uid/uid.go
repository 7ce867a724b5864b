// Package uid generates identifiers: numeric snowflakes for rows and string ids
// for correlation, token ids and opaque secrets.
package uid

// NumberID generates sortable 64-bit identifiers.
type NumberID interface {
	Generate() int64
}

// StringID generates string identifiers.
type StringID interface {
	Generate() string
}
