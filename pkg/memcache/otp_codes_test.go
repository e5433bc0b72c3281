package mem

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOTPCodesExpire(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewOTPCodes()
	s.now = func() time.Time { return now }

	s.Set(" Marie@Example.fr ", "hash", 10*time.Minute)

	got, ok := s.Peek("marie@example.fr")
	assert.True(t, ok)
	assert.Equal(t, "hash", got)

	now = now.Add(11 * time.Minute)
	_, ok = s.Peek("marie@example.fr")
	assert.False(t, ok)
}

func TestOTPCodesDeleteAndSweep(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewOTPCodes()
	s.now = func() time.Time { return now }

	s.Set("a@x.fr", "h1", time.Minute)
	s.Set("b@x.fr", "h2", time.Hour)
	s.Delete("a@x.fr")
	_, ok := s.Peek("a@x.fr")
	assert.False(t, ok)

	s.Set("c@x.fr", "h3", time.Minute)
	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, s.Sweep())

	_, ok = s.Peek("b@x.fr")
	assert.True(t, ok)
}
