package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/repoassist/internal/assistant"
	"github.com/repoassist/internal/config"
	"github.com/repoassist/internal/logging"
)

// loadConfig sets up logging and loads the validated configuration using the
// app-level --config and --verbose flags.
func loadConfig(c *cli.Context) (*config.Config, error) {
	logging.Setup(c.Bool("verbose"))

	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildAssistant wires a fully connected assistant for one command run.
func buildAssistant(c *cli.Context) (*assistant.Assistant, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	return assistant.New(c.Context, cfg)
}

// buildAssistantWith wires an assistant from an already loaded configuration.
func buildAssistantWith(c *cli.Context, cfg *config.Config) (*assistant.Assistant, error) {
	return assistant.New(c.Context, cfg)
}
