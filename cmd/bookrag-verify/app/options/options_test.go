package options

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyOptions(t *testing.T) {
	o := NewVerifyOptions()
	fss := o.Flags()
	require.NoError(t, fss.FlagSet("misc").Parse([]string{"--timeout=5s"}))
	require.NoError(t, fss.FlagSet("chat").Parse([]string{"--chat.provider=ollama", "--chat.model=llama3.1"}))

	require.NoError(t, o.Complete())
	require.NoError(t, o.Validate())

	cfg, err := o.Config()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, "ollama", cfg.ChatOptions.Provider)
	assert.Equal(t, "http://localhost:11434", cfg.ChatOptions.BaseURL)
}

func TestVerifyOptionsInvalidTimeout(t *testing.T) {
	o := NewVerifyOptions()
	o.Timeout = 0
	require.NoError(t, o.Complete())
	assert.ErrorContains(t, o.Validate(), "timeout must be positive")
}
