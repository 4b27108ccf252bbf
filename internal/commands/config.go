package commands

// CategorizerConfig contains common flag definitions for the baseline
// categorization provider
type CategorizerConfig struct {
	// OpenAIKey enables baseline categorization when set
	OpenAIKey string `help:"OpenAI-compatible API key for baseline categorization (optional)" env:"OPENAI_API_KEY"`
	// OpenAIBaseURL points at any OpenAI-compatible endpoint
	OpenAIBaseURL string `help:"Base URL for an OpenAI-compatible API" env:"OPENAI_BASE_URL"`
	// OpenAIModel is the model used for categorization
	OpenAIModel string `help:"Model to use for baseline categorization" default:"gpt-4o-mini" env:"OPENAI_MODEL"`
}

// CommonConfig contains configuration common to all commands
type CommonConfig struct {
	// DataDir is the path to the data directory
	DataDir string `help:"Path to data directory" default:"./data"`
	// LogLevel is the logging level to use
	LogLevel string `help:"Log level (debug, info, warn, error)" default:"warn" enum:"debug,info,warn,error"`
}
