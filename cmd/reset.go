package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// ResetCommand returns the CLI command for dropping stored collections
func ResetCommand() *cli.Command {
	return &cli.Command{
		Name:      "reset",
		Usage:     "Drop a repository's indexed documentation",
		ArgsUsage: "[REPO_URL]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Drop every stored collection",
			},
		},
		Action: func(c *cli.Context) error {
			if !c.Bool("all") && c.NArg() < 1 {
				return fmt.Errorf("usage: repoassist reset REPO_URL (or --all)")
			}

			assist, err := buildAssistant(c)
			if err != nil {
				return err
			}
			defer assist.Close()

			if c.Bool("all") {
				collections, err := assist.ResetAll(c.Context)
				if err != nil {
					return err
				}
				if len(collections) == 0 {
					fmt.Println("No collections to reset.")
					return nil
				}
				for _, name := range collections {
					fmt.Printf("reset collection '%s' done\n", name)
				}
				return nil
			}

			collection, err := assist.Reset(c.Context, c.Args().Get(0))
			if err != nil {
				return err
			}
			fmt.Printf("reset collection '%s' done\n", collection)
			return nil
		},
	}
}
