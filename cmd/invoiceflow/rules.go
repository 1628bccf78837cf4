package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/invoice-flow/internal/cli"
	"github.com/Veraticus/invoice-flow/internal/model"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage provider identification rules",
	}

	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesAddCmd())
	cmd.AddCommand(rulesRemoveCmd())
	cmd.AddCommand(rulesRestoreCmd())
	cmd.AddCommand(rulesIdentifyCmd())

	return cmd
}

func rulesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List provider rules in match order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			reg := openRegistry(settings)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.RenderRules(reg.Rules()))
			fmt.Fprintln(out, cli.RenderRegistryStats(reg.Stats()))
			return nil
		},
	}
}

func rulesAddCmd() *cobra.Command {
	var (
		confidence float64
		source     string
	)

	cmd := &cobra.Command{
		Use:   "add <pattern> <provider>",
		Short: "Add a case-insensitive pattern that identifies a provider",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			reg := openRegistry(settings)

			added, err := reg.AddRule(args[0], args[1], confidence, model.RuleSource(source))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !added {
				fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("Rule %q -> %q already exists", args[0], args[1])))
				return nil
			}
			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Added rule %q -> %q", args[0], args[1])))
			return nil
		},
	}

	cmd.Flags().Float64Var(&confidence, "confidence", 1.0, "rule confidence between 0 and 1")
	cmd.Flags().StringVar(&source, "source", string(model.SourceManual), "rule source (manual, learned, learned_partial)")

	return cmd
}

func rulesRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <pattern>",
		Short: "Remove every rule with exactly this pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			reg := openRegistry(settings)

			removed, err := reg.RemoveRule(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !removed {
				fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("No rule with pattern %q", args[0])))
				return nil
			}
			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Removed rule %q", args[0])))
			return nil
		},
	}
}

func rulesRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore",
		Short: "Restore the rules file from its backup copy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			reg := openRegistry(settings)

			if err := reg.RestoreFromBackup(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Restored %d rule(s) from %s", len(reg.Rules()), reg.BackupPath())))
			return nil
		},
	}
}

func rulesIdentifyCmd() *cobra.Command {
	var text string

	cmd := &cobra.Command{
		Use:   "identify [file]",
		Short: "Show which provider the rules assign to a document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}

			switch {
			case len(args) == 1:
				text, err = newReader(settings).Text(cmd.Context(), args[0])
				if err != nil {
					return err
				}
			case strings.TrimSpace(text) == "":
				return errors.New("give a file or --text")
			}

			reg := openRegistry(settings)
			out := cmd.OutOrStdout()

			rule, ok := reg.Lookup(text)
			if !ok {
				fmt.Fprintln(out, cli.FormatInfo("No rule matches; the provider would be asked from the language model"))
				return nil
			}
			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("%s (pattern %q, confidence %.2f)", rule.Provider, rule.Pattern, rule.Confidence)))
			return nil
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "identify this text instead of a file")

	return cmd
}
