package cliflag

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNamedFlagSetsOrder(t *testing.T) {
	var fss NamedFlagSets
	fss.FlagSet("http").String("http.addr", ":8000", "listen address")
	fss.FlagSet("qdrant").String("qdrant.url", "", "qdrant url")
	fss.FlagSet("http").Duration("http.read-timeout", 0, "read timeout")

	assert.Equal(t, []string{"http", "qdrant"}, fss.Order)
	assert.NotNil(t, fss.FlagSets["http"].Lookup("http.read-timeout"))
}

func TestPrintSections(t *testing.T) {
	var fss NamedFlagSets
	fss.FlagSet("rag").Int("rag.top-k", 3, "number of hits to retrieve")
	fss.FlagSet("empty")

	var buf bytes.Buffer
	PrintSections(&buf, fss, 0)

	out := buf.String()
	assert.True(t, strings.Contains(out, "Rag flags:"))
	assert.True(t, strings.Contains(out, "--rag.top-k"))
	assert.False(t, strings.Contains(out, "Empty flags:"))
}
