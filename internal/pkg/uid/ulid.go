package uid

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// ULID generates lexicographically sortable ids with 80 bits of crypto
// entropy. Used for refresh tokens and export object keys.
type ULID struct {
	now func() time.Time
}

func NewULID() *ULID {
	return &ULID{now: time.Now}
}

// Generate returns a lowercase 26 character ULID.
func (u *ULID) Generate() string {
	return strings.ToLower(ulid.MustNew(ulid.Timestamp(u.now()), rand.Reader).String())
}
