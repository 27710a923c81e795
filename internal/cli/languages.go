package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLanguagesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List languages with a structural parser in this build",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.newChunker()
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, lang := range c.Registry().Languages() {
				fmt.Fprintln(w, lang)
			}
			fmt.Fprintln(cmd.ErrOrStderr(), boldText("other languages use the markdown, json or generic fallback"))
			return nil
		},
	}
}
