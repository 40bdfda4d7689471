package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/repoassist/internal/api"
)

// ServeCommand returns the CLI command for starting the API server
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the QnA and review API server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to bind the API server to",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port for the API server",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if c.IsSet("host") {
				cfg.Server.Host = c.String("host")
			}
			if c.IsSet("port") {
				cfg.Server.Port = c.Int("port")
			}

			assist, err := buildAssistantWith(c, cfg)
			if err != nil {
				return err
			}
			defer assist.Close()

			fmt.Printf("Starting repoassist API server on %s:%d...\n", cfg.Server.Host, cfg.Server.Port)

			server := api.NewServer(cfg.Server.Host, cfg.Server.Port, assist)
			return server.Start()
		},
	}
}
