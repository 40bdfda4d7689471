package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// ReviewCommand returns the CLI command for a one-shot code review
func ReviewCommand() *cli.Command {
	return &cli.Command{
		Name:      "review",
		Usage:     "Review a repository's pending changes",
		ArgsUsage: "REPO_URL",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "staged",
				Usage: "Review only staged changes",
			},
			&cli.BoolFlag{
				Name:  "auto-fix",
				Usage: "Apply autopep8 fixes and re-check",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("usage: repoassist review REPO_URL")
			}
			repoURL := c.Args().Get(0)

			assist, err := buildAssistant(c)
			if err != nil {
				return err
			}
			defer assist.Close()

			result, err := assist.ReviewRepo(c.Context, repoURL, c.Bool("staged"), c.Bool("auto-fix"))
			if err != nil {
				return err
			}

			fmt.Println(result.Formatted)
			return nil
		},
	}
}
