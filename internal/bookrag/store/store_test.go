package store

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointID(t *testing.T) {
	id := PointID("intro.md", 0)

	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(5), parsed.Version())

	assert.Equal(t, id, PointID("intro.md", 0))
	assert.NotEqual(t, id, PointID("intro.md", 1))
	assert.NotEqual(t, id, PointID("intro.mdx", 0))
	// "a#1" + "1" 与 "a" + "11" 不会冲突
	assert.NotEqual(t, PointID("a#1", 1), PointID("a", 11))
}
