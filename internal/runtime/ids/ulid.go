package ids

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Source hands out time-sortable ULIDs that stay monotonic within the same
// millisecond. Safe for concurrent use.
type Source struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// NewSource builds a Source reading entropy from r.
func NewSource(r io.Reader) *Source {
	return &Source{
		entropy: ulid.Monotonic(r, 0),
		now:     time.Now,
	}
}

// Next returns a new ULID encoded as a 26-character string.
func (s *Source) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return ulid.MustNew(ulid.Timestamp(s.now()), s.entropy).String()
}

var defaultSource = NewSource(rand.Reader)

// CreateULID returns a ULID from the process-wide source.
func CreateULID() string {
	return defaultSource.Next()
}
