package config

import (
	"fmt"
	"strconv"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to .compliagent.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to compliagent! Let's configure the service.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Provider selection.
	providerPrompt := promptui.Select{
		Label: "Select LLM provider",
		Items: []string{"google", "openai", "anthropic", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Provider = ProviderType(providerStr)

	// 2. Model, defaulting per provider.
	modelPrompt := promptui.Prompt{
		Label:   "Model",
		Default: DefaultModel(cfg.Provider),
	}
	model, err := modelPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("model selection: %w", err)
	}
	cfg.Model = model

	// 3. Optional semantic rule search.
	semanticPrompt := promptui.Select{
		Label: "Enable semantic rule search (requires an embedding endpoint)",
		Items: []string{"no", "yes"},
	}
	_, semantic, err := semanticPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("semantic search selection: %w", err)
	}
	if semantic == "yes" {
		cfg.EmbeddingProvider = cfg.Provider
		cfg.EmbeddingModel = DefaultEmbeddingModel(cfg.Provider)
		if cfg.EmbeddingModel == "" {
			// Anthropic has no embedding endpoint; fall back to OpenAI.
			cfg.EmbeddingProvider = ProviderOpenAI
			cfg.EmbeddingModel = DefaultEmbeddingModel(ProviderOpenAI)
		}
	}

	// 4. HTTP port.
	portPrompt := promptui.Prompt{
		Label:   "HTTP port",
		Default: strconv.Itoa(cfg.Server.Port),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 || n > 65535 {
				return fmt.Errorf("invalid port")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port selection: %w", err)
	}
	cfg.Server.Port, _ = strconv.Atoi(portStr)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := cfg.Save(".compliagent.yml"); err != nil {
		return nil, err
	}

	fmt.Println()
	fmt.Println("Configuration written to .compliagent.yml")
	if envVar := APIKeyEnvVar(cfg.Provider); envVar != "" {
		fmt.Printf("Remember to set %s before starting the server.\n", envVar)
	}

	return cfg, nil
}
