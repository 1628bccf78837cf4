package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/invoice-flow/internal/cli"
	"github.com/Veraticus/invoice-flow/internal/document"
)

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [files...]",
		Short: "Check that documents are readable without calling the language model",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}

			paths := args
			if len(paths) == 0 {
				paths, err = document.List(settings.InputDir)
				if err != nil {
					return err
				}
			}

			reader := newReader(settings)
			out := cmd.OutOrStdout()

			invalid := 0
			for _, path := range paths {
				check := reader.Check(path)
				if !check.Valid {
					invalid++
				}
				fmt.Fprintln(out, cli.RenderCheck(path, check))
			}

			if invalid > 0 {
				return fmt.Errorf("%d of %d document(s) are not usable", invalid, len(paths))
			}
			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("%d document(s) ready", len(paths))))
			return nil
		},
	}
}
