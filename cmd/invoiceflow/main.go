package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/invoice-flow/internal/cli"
	"github.com/Veraticus/invoice-flow/internal/common"
	"github.com/Veraticus/invoice-flow/internal/config"
)

var (
	cfgFile string
	version = "dev"
	rootCmd = &cobra.Command{
		Use:   "invoiceflow",
		Short: cli.InvoiceIcon + "  Invoice field extraction and renaming",
		Long: `invoiceflow reads invoice documents, identifies the service provider from
learned rules, asks a language model for the billing date and amount, converts
the amount and files each document under a consistent name.`,
		PersistentPreRunE: initConfig,
		SilenceUsage:      true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/invoiceflow/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")
	rootCmd.PersistentFlags().String("registry", "", "provider rules file (default: provider_mappings.json)")

	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("registry.path", rootCmd.PersistentFlags().Lookup("registry"))

	config.SetDefaults(viper.GetViper())

	rootCmd.AddCommand(processCmd())
	rootCmd.AddCommand(rulesCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	interrupts := cli.NewInterruptHandler(os.Stderr)
	ctx, cancel := interrupts.HandleInterrupts(context.Background(), true)

	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		if !errors.Is(err, context.Canceled) || !interrupts.WasInterrupted() {
			fmt.Fprintln(os.Stderr, cli.FormatError(err.Error()))
		}
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	if cfgFile != "" {
		viper.SetConfigFile(config.ExpandPath(cfgFile))
	} else {
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	config.BindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := common.SetupLogger(viper.GetString("logging.level"), viper.GetString("logging.format")); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}

	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "invoiceflow %s\n", version)
		},
	}
}
