package main

import (
	"fmt"

	"github.com/spf13/cobra"

	cfg "github.com/maastricht-university/interview-coach/config"
)

func newQuestionsCommand(root *rootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "questions",
		Short: "List the question bank",
		RunE: func(cmd *cobra.Command, args []string) error {
			var qs []string
			if file != "" {
				var err error
				if qs, err = cfg.LoadQuestions(file); err != nil {
					return err
				}
			} else {
				c, _, err := root.load()
				if err != nil {
					return err
				}
				qs = c.Session.Questions
			}
			out := cmd.OutOrStdout()
			for i, q := range qs {
				fmt.Fprintf(out, "%2d. %s\n", i+1, q)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML question bank to list instead of the configured one")
	return cmd
}
