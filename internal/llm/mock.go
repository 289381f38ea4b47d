package llm

import "context"

// MockClient permite tests sin llamar a un LLM real.
type MockClient struct {
	Response   string
	Err        error
	Embedding  []float32
	EmbedErr   error
	LastPrompt string
	LastOpts   GenerateOptions
}

func (m *MockClient) Generate(_ context.Context, prompt string, opts GenerateOptions) (string, error) {
	m.LastPrompt = prompt
	m.LastOpts = opts
	return m.Response, m.Err
}

func (m *MockClient) Embed(_ context.Context, _ string) ([]float32, error) {
	return m.Embedding, m.EmbedErr
}
