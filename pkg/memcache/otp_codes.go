package mem

import (
	"strings"
	"sync"
	"time"
)

// CodeStore keeps hashed one-time codes keyed by e-mail.
type CodeStore interface {
	Set(email string, codeHash string, ttl time.Duration)

	// Peek returns the hash for email if present and not expired.
	Peek(email string) (string, bool)

	// Delete drops the entry. Called once a code has been used.
	Delete(email string)
}

type entry struct {
	hash      string
	expiresAt time.Time
}

type OTPCodes struct {
	mu   sync.RWMutex
	data map[string]entry
	now  func() time.Time
}

func NewOTPCodes() *OTPCodes {
	return &OTPCodes{
		data: make(map[string]entry),
		now:  time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Set replaces any pending code for the address.
func (s *OTPCodes) Set(email string, codeHash string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[normalizeEmail(email)] = entry{
		hash:      codeHash,
		expiresAt: s.now().Add(ttl),
	}
}

func (s *OTPCodes) Peek(email string) (string, bool) {
	key := normalizeEmail(email)

	s.mu.RLock()
	e, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}
	if s.now().After(e.expiresAt) {
		s.Delete(key)
		return "", false
	}
	return e.hash, true
}

func (s *OTPCodes) Delete(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, normalizeEmail(email))
}

// Sweep removes expired entries and reports how many were dropped.
func (s *OTPCodes) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	dropped := 0
	for k, e := range s.data {
		if now.After(e.expiresAt) {
			delete(s.data, k)
			dropped++
		}
	}
	return dropped
}
