package config

// defaultModels maps each provider to its recommended diagnosis model.
var defaultModels = map[ProviderType]string{
	ProviderAnthropic: "claude-sonnet-4-5-20250929",
	ProviderOpenAI:    "gpt-4o",
	ProviderGoogle:    "gemini-3-pro-preview",
	ProviderOllama:    "llama3",
}

// defaultEmbeddingModels maps each provider to its embedding model, used
// for semantic search over the rule base.
var defaultEmbeddingModels = map[ProviderType]string{
	ProviderOpenAI: "text-embedding-3-small",
	ProviderGoogle: "text-embedding-004",
	ProviderOllama: "nomic-embed-text",
}

// DefaultModel returns the recommended model for the given provider.
func DefaultModel(provider ProviderType) string {
	if m, ok := defaultModels[provider]; ok {
		return m
	}
	return defaultModels[ProviderGoogle]
}

// DefaultEmbeddingModel returns the embedding model for the given provider,
// or "" if the provider has no embedding endpoint.
func DefaultEmbeddingModel(provider ProviderType) string {
	return defaultEmbeddingModels[provider]
}

// DefaultConfig returns a Config with sensible defaults. The embedding
// provider is left empty: semantic rule search stays disabled until it is
// configured explicitly.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderGoogle,
		Model:    DefaultModel(ProviderGoogle),
		Server: ServerConfig{
			Port: 8787,
		},
		SessionTTLMinutes: 120,
		RequestsPerMinute: 30,
		LogLevel:          "info",
	}
}
