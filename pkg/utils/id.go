package utils

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// clientIDSpace namespaces remote row ids derived from client ids.
var clientIDSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:inos:client-id"))

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewID returns prefix-<ULID>. ULIDs sort by creation time.
func NewID(prefix string) string {
	entropyMu.Lock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	entropyMu.Unlock()

	if prefix == "" {
		return id.String()
	}
	return prefix + "-" + id.String()
}

// RemoteID maps a client id to the uuid its backend row is stored under. The
// mapping is stable, so a restored row can be matched to the local entry that
// produced it. An id that already is a uuid maps to itself.
func RemoteID(id string) uuid.UUID {
	if u, err := uuid.Parse(id); err == nil {
		return u
	}
	return uuid.NewSHA1(clientIDSpace, []byte(id))
}
