package uid

import (
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestULID(t *testing.T) {
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	g := &ULID{now: func() time.Time { return at }}

	a, b := g.Generate(), g.Generate()
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-hjkmnp-tv-z]{26}$`), a)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a[:10], b[:10])

	g.now = func() time.Time { return at.Add(time.Millisecond) }
	assert.Greater(t, g.Generate(), a)
}

func TestUUID(t *testing.T) {
	id, err := uuid.Parse(NewUUID().Generate())
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
}

func TestSnowflake(t *testing.T) {
	t.Setenv("SNOWFLAKE_NODE", "7")
	assert.Equal(t, int64(7), nodeNumber())

	s, err := NewSnowflake()
	require.NoError(t, err)
	a, b := s.Generate(), s.Generate()
	assert.Greater(t, b, a)
}
