package config

import "time"

const (
	DefaultPort    = 8080
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultTimeout = 60 * time.Second

	DefaultProduct  = "iPhone 15 Pro"
	DefaultStyle    = "You are a creative marketing expert specializing in writing compelling product descriptions. Create engaging, informative, and persuasive descriptions that highlight key features and benefits."
	DefaultTemplate = "Write a compelling product description for: {product}"
	DefaultModel    = "gpt-3.5-turbo"
)

// Default returns the built-in configuration. It has no API key and so does
// not validate until one is supplied.
func Default() Config {
	return Config{
		Server: ServerConfig{Port: DefaultPort},
		Provider: ProviderConfig{
			BaseURL: DefaultBaseURL,
			Timeout: DefaultTimeout,
			Models: []ModelConfig{
				{ID: "gpt-3.5-turbo", Label: "GPT-3.5 Turbo"},
				{ID: "gpt-4", Label: "GPT-4"},
			},
		},
		Form: FormConfig{
			Product:          DefaultProduct,
			Style:            DefaultStyle,
			Template:         DefaultTemplate,
			Model:            DefaultModel,
			Temperature:      0.7,
			MaxTokens:        150,
			PresencePenalty:  0,
			FrequencyPenalty: 0,
		},
	}
}
