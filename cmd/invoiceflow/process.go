package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/invoice-flow/internal/cli"
	"github.com/Veraticus/invoice-flow/internal/document"
	"github.com/Veraticus/invoice-flow/internal/engine"
	"github.com/Veraticus/invoice-flow/internal/export"
	"github.com/Veraticus/invoice-flow/internal/model"
	"github.com/Veraticus/invoice-flow/internal/registry"
)

type processFlags struct {
	mode          string
	exportCSV     string
	exportJSON    string
	exportXLSX    string
	showStats     bool
	skipProcessed bool
	noHistory     bool
	noProgress    bool
}

func processCmd() *cobra.Command {
	var flags processFlags

	cmd := &cobra.Command{
		Use:   "process [files...]",
		Short: "Extract invoice fields and file documents under their new names",
		Long: `Process every supported document (.pdf, .txt) in the input folder, or the
files given as arguments. Each document is identified against the provider
rules, its fields are extracted, and in process mode it is copied into the
output folder as "{provider} - {date} - USD {amount} - {TARGET} {converted}.pdf".

Modes:
  process   extract and copy documents (default)
  dry-run   extract and report the new names without copying
  validate  only check that documents are readable`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd, args, flags)
		},
	}

	cmd.Flags().String("input", "", "folder with documents to process")
	cmd.Flags().String("output", "", "folder receiving renamed documents")
	cmd.Flags().Int("workers", 1, "documents processed concurrently")
	cmd.Flags().StringVar(&flags.mode, "mode", string(engine.BatchProcess), "process, dry-run or validate")
	cmd.Flags().StringVar(&flags.exportCSV, "export-csv", "", "write results to a CSV file")
	cmd.Flags().StringVar(&flags.exportJSON, "export-json", "", "write results to a JSON file")
	cmd.Flags().StringVar(&flags.exportXLSX, "export-xlsx", "", "write results to an Excel workbook")
	cmd.Flags().BoolVar(&flags.showStats, "stats", false, "print batch statistics")
	cmd.Flags().BoolVar(&flags.skipProcessed, "skip-processed", false, "skip documents already processed successfully")
	cmd.Flags().BoolVar(&flags.noHistory, "no-history", false, "do not record results in the history database")
	cmd.Flags().BoolVar(&flags.noProgress, "no-progress", false, "disable the progress bar")

	_ = viper.BindPFlag("process.input", cmd.Flags().Lookup("input"))
	_ = viper.BindPFlag("process.output", cmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("process.workers", cmd.Flags().Lookup("workers"))

	return cmd
}

func runProcess(cmd *cobra.Command, args []string, flags processFlags) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	mode, err := engine.ParseBatchMode(flags.mode)
	if err != nil {
		return err
	}

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
	if len(paths) == 0 {
		fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("No documents found in %s", settings.InputDir)))
		return nil
	}

	reader := newReader(settings)
	deps := engine.BatchDeps{
		Reader:  reader,
		Checker: reader,
		Logger:  slog.Default(),
	}

	var reg *registry.Registry
	if mode != engine.BatchValidate {
		reg = openRegistry(settings)
		deps.Pipeline, err = newPipeline(reg)
		if err != nil {
			return err
		}
		deps.Output, err = export.NewWriter(settings.OutputDir, slog.Default())
		if err != nil {
			return err
		}
	}

	if mode == engine.BatchProcess && !flags.noHistory {
		store, err := openStorage(ctx, settings)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := store.Close(); cerr != nil {
				slog.Warn("Failed to close history database", "error", cerr)
			}
		}()
		deps.Storage = store
	} else if flags.skipProcessed {
		slog.Warn("--skip-processed has no effect without the history database", "mode", mode)
	}

	fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("Processing %d document(s) [%s]", len(paths), mode)))

	bar := newProgressBar(cmd.ErrOrStderr(), len(paths), flags.noProgress)
	opts := engine.BatchOptions{
		Mode:          mode,
		Workers:       settings.Workers,
		SkipProcessed: flags.skipProcessed,
		OnResult: func(model.DocumentResult) {
			if bar != nil {
				_ = bar.Add(1)
			}
		},
	}

	results, summary, runErr := engine.NewBatch(deps).Run(ctx, paths, opts)
	if bar != nil {
		_ = bar.Finish()
	}

	fmt.Fprintln(out, cli.RenderResults(results))
	fmt.Fprintln(out, cli.RenderSummary(summary))

	if flags.showStats {
		target := viper.GetString("currency.target")
		fmt.Fprintln(out, cli.RenderStats(export.ComputeStats(results), target))
	}
	if reg != nil {
		fmt.Fprintln(out, cli.RenderRegistryStats(reg.Stats()))
	}

	if err := writeExports(out, results, flags); err != nil {
		return errors.Join(runErr, err)
	}
	if runErr != nil {
		return runErr
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d document(s) failed", summary.Failed, summary.Total)
	}
	return nil
}

func newProgressBar(w io.Writer, total int, disabled bool) *progressbar.ProgressBar {
	if disabled {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Processing invoices...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprintln(w)
		}),
	)
}

func writeExports(out io.Writer, results []model.DocumentResult, flags processFlags) error {
	var errs []error

	if flags.exportCSV != "" {
		if err := export.SaveCSV(flags.exportCSV, results); err != nil {
			errs = append(errs, fmt.Errorf("CSV export: %w", err))
		} else {
			fmt.Fprintln(out, cli.FormatSuccess("Results exported to "+flags.exportCSV))
		}
	}
	if flags.exportJSON != "" {
		if err := export.SaveJSON(flags.exportJSON, results, time.Now()); err != nil {
			errs = append(errs, fmt.Errorf("JSON export: %w", err))
		} else {
			fmt.Fprintln(out, cli.FormatSuccess("Results exported to "+flags.exportJSON))
		}
	}
	if flags.exportXLSX != "" {
		if err := export.SaveXLSX(flags.exportXLSX, results); err != nil {
			errs = append(errs, fmt.Errorf("XLSX export: %w", err))
		} else {
			fmt.Fprintln(out, cli.FormatSuccess("Results exported to "+flags.exportXLSX))
		}
	}

	return errors.Join(errs...)
}
