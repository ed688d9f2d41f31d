package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockProvider struct {
	name string
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	for i := range texts {
		result[i] = []float32{0.1, 0.2, 0.3}
	}
	return result, nil
}

func (m *mockProvider) EmbedSingle(_ context.Context, _ string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

func (m *mockProvider) Chat(_ context.Context, _ []Message) (string, error) {
	return "mock response", nil
}

func (m *mockProvider) Generate(_ context.Context, _ string, _ string) (string, error) {
	return "mock generated text", nil
}

var _ Provider = (*mockProvider)(nil)

func TestRegisterAndNewProvider(t *testing.T) {
	RegisterProvider("test-provider", func(config map[string]any) (Provider, error) {
		name := "test-provider"
		if n, ok := config["name"].(string); ok {
			name = n
		}
		return &mockProvider{name: name}, nil
	})

	provider, err := NewProvider("test-provider", map[string]any{"name": "custom-name"})
	require.NoError(t, err)
	assert.Equal(t, "custom-name", provider.Name())

	embedder, err := NewEmbeddingProvider("test-provider", nil)
	require.NoError(t, err)
	assert.Equal(t, "test-provider", embedder.Name())

	chat, err := NewChatProvider("test-provider", nil)
	require.NoError(t, err)
	assert.Equal(t, "test-provider", chat.Name())

	assert.Contains(t, ListProviders(), "test-provider")
}

func TestNewProviderUnknown(t *testing.T) {
	_, err := NewProvider("unknown-provider", nil)
	assert.Error(t, err)

	_, err = NewChatProvider("unknown-provider", nil)
	assert.Error(t, err)
}

func TestSplitMessages(t *testing.T) {
	system, rest := SplitMessages([]Message{
		{Role: RoleSystem, Content: "a"},
		{Role: RoleUser, Content: "q1"},
		{Role: RoleSystem, Content: "b"},
		{Role: RoleAssistant, Content: "r1"},
	})
	assert.Equal(t, "a\n\nb", system)
	assert.Equal(t, []Message{{Role: RoleUser, Content: "q1"}, {Role: RoleAssistant, Content: "r1"}}, rest)
}

func TestGenerateMessages(t *testing.T) {
	assert.Equal(t, []Message{{Role: RoleUser, Content: "p"}}, GenerateMessages("p", ""))
	assert.Equal(t, []Message{
		{Role: RoleSystem, Content: "s"},
		{Role: RoleUser, Content: "p"},
	}, GenerateMessages("p", "s"))
}
