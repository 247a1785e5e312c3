// Package id generates ULID based identifiers.
//
// ULIDs are lexicographically sortable by creation time, which keeps
// database indexes append-friendly and makes IDs usable as a coarse
// ordering key in logs and traces.
package id

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator produces prefixed ULIDs with monotonic entropy, so IDs minted
// within the same millisecond still sort in mint order.
type Generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	prefix  string
}

// NewGenerator creates a Generator. prefix may be empty; a non-empty
// prefix is joined with "-", e.g. "ses-01J...".
func NewGenerator(prefix string) *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
		prefix:  prefix,
	}
}

// New returns the next identifier.
func (g *Generator) New() string {
	g.mu.Lock()
	v := ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
	g.mu.Unlock()

	if g.prefix == "" {
		return v.String()
	}
	return g.prefix + "-" + v.String()
}

var defaultGen = NewGenerator("")

// New returns an unprefixed ULID from the package-level generator.
func New() string {
	return defaultGen.New()
}

// Timestamp extracts the embedded creation time from an identifier,
// ignoring any prefix. It returns the zero time for malformed input.
func Timestamp(id string) time.Time {
	if i := strings.LastIndexByte(id, '-'); i >= 0 {
		id = id[i+1:]
	}
	v, err := ulid.ParseStrict(id)
	if err != nil {
		return time.Time{}
	}
	return ulid.Time(v.Time())
}
