package id

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestULIDGenerator(t *testing.T) {
	g := NewULIDGenerator()
	a := g.Generate()
	b := g.Generate()

	assert.Len(t, a, 26)
	assert.True(t, IsValidULID(a))
	assert.NotEqual(t, a, b)
}

func TestULIDGeneratorMonotonic(t *testing.T) {
	fixed := time.UnixMilli(1_700_000_000_000)
	g := NewULIDGenerator(WithClock(func() time.Time { return fixed }))

	ids := make([]string, 100)
	for i := range ids {
		ids[i] = g.Generate()
	}
	assert.True(t, sort.StringsAreSorted(ids))
}

func TestULIDGeneratorConcurrent(t *testing.T) {
	g := NewULIDGenerator()
	var mu sync.Mutex
	seen := make(map[string]struct{})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				id := g.Generate()
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 800)
}

func TestUUIDGenerator(t *testing.T) {
	u := NewUUIDGenerator().Generate()
	assert.True(t, IsValidUUID(u))
	assert.False(t, IsValidULID(u))
}

func TestNewGenerator(t *testing.T) {
	tests := []struct {
		name    string
		typ     Type
		valid   func(string) bool
		wantErr bool
	}{
		{name: "默认", typ: "", valid: IsValidULID},
		{name: "ulid", typ: TypeULID, valid: IsValidULID},
		{name: "uuid", typ: TypeUUID, valid: IsValidUUID},
		{name: "未知类型", typ: "snowflake", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGenerator(tt.typ)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.valid(g.Generate()))
		})
	}
}

func TestNew(t *testing.T) {
	assert.True(t, IsValidULID(New(TypeULID)))
	assert.True(t, IsValidUUID(New(TypeUUID)))
	assert.True(t, IsValidULID(NewULID()))
}
