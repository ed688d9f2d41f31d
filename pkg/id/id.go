// Package id generates request and run identifiers.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Type names an identifier scheme.
type Type string

const (
	// TypeULID produces 26-character, time-sortable identifiers.
	TypeULID Type = "ulid"
	// TypeUUID produces random (version 4) UUIDs.
	TypeUUID Type = "uuid"
)

// Generator produces identifiers.
type Generator interface {
	Generate() string
}

// ULIDGenerator generates monotonic ULIDs. It is safe for concurrent use.
type ULIDGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// ULIDOption is a functional option for ULIDGenerator.
type ULIDOption func(*ULIDGenerator)

// WithULIDReader sets the random source.
func WithULIDReader(r io.Reader) ULIDOption {
	return func(g *ULIDGenerator) {
		g.entropy = ulid.Monotonic(r, 0)
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) ULIDOption {
	return func(g *ULIDGenerator) {
		g.now = now
	}
}

// NewULIDGenerator creates a new ULID generator.
func NewULIDGenerator(opts ...ULIDOption) *ULIDGenerator {
	g := &ULIDGenerator{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate creates a new ULID string. ULIDs generated within the same
// millisecond are strictly increasing.
func (g *ULIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(g.now()), g.entropy).String()
}

// UUIDGenerator generates version 4 UUIDs.
type UUIDGenerator struct{}

// NewUUIDGenerator creates a new UUID v4 generator.
func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

// Generate creates a new UUID v4 string.
func (g *UUIDGenerator) Generate() string {
	return uuid.NewString()
}

var defaultULID = NewULIDGenerator()

// NewGenerator returns a generator for the given scheme.
func NewGenerator(t Type) (Generator, error) {
	switch t {
	case TypeULID, "":
		return NewULIDGenerator(), nil
	case TypeUUID:
		return NewUUIDGenerator(), nil
	default:
		return nil, fmt.Errorf("unknown id type %q", t)
	}
}

// New returns a new identifier of the given type. Unknown types fall back to ULID.
func New(t Type) string {
	if t == TypeUUID {
		return uuid.NewString()
	}
	return defaultULID.Generate()
}

// NewULID returns a new ULID string.
func NewULID() string {
	return defaultULID.Generate()
}

// IsValidULID reports whether s is a well-formed ULID.
func IsValidULID(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}

// IsValidUUID reports whether s is a well-formed UUID.
func IsValidUUID(s string) bool {
	return uuid.Validate(s) == nil
}
