package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/repoassist/internal/config"
)

// ConfigCommand returns the CLI command for configuration management
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage repoassist configuration",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write a sample configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Path for the generated file",
						Value:   "./repoassist.toml",
					},
				},
				Action: func(c *cli.Context) error {
					path := c.String("output")
					if err := config.InitConfig(path); err != nil {
						return err
					}
					fmt.Printf("Wrote sample configuration to %s\n", path)
					return nil
				},
			},
		},
	}
}
