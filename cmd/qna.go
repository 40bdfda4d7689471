package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// QnACommand returns the CLI command for one-shot documentation questions
func QnACommand() *cli.Command {
	return &cli.Command{
		Name:      "qna",
		Usage:     "Ask a question about a repository's documentation",
		ArgsUsage: "REPO_URL QUESTION",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "top-k",
				Aliases: []string{"k"},
				Usage:   "Number of context chunks to retrieve",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return fmt.Errorf("usage: repoassist qna REPO_URL QUESTION")
			}
			repoURL := c.Args().Get(0)
			question := c.Args().Get(1)

			assist, err := buildAssistant(c)
			if err != nil {
				return err
			}
			defer assist.Close()

			topK := assist.TopK()
			if c.IsSet("top-k") {
				topK = c.Int("top-k")
			}

			answer, err := assist.AskQuestion(c.Context, repoURL, question, topK)
			if err != nil {
				return err
			}

			fmt.Println(answer.Text)
			return nil
		},
	}
}
