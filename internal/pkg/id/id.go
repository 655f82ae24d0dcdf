package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New returns a fresh ULID. Every entity id in this codebase (accounts,
// sessions, files) comes from here, so ids sort by creation time.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
