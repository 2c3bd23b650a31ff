package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"goab/adapters/excel"
	"goab/domain/metric"
	"goab/internal/config"
	"goab/internal/container"
	"goab/internal/logging"
	"goab/internal/report"
	"goab/internal/testkit"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "goab",
		Short:         "Evaluate A/B experiment metrics",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newValidateCmd(),
		newGenerateCmd(),
		newServeCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadContainer() (*container.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return container.New(cfg, logging.NewLogger(logging.ParseLevel(cfg.LogLevel)))
}

func newRunCmd() *cobra.Command {
	var dataFile, presetName, outFile, format string
	var persist bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate a metric preset against experiment data",
		Long: `Load raw experiment data, evaluate every metric of a preset and write a report.

Defaults come from the environment (DATA_FILE, METRIC_PRESET, REPORT_FILE).
The report format follows --format or the output file extension.

Example: goab run --data data/csv/df_sample.csv --preset default --out report.html`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadContainer()
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			if dataFile == "" {
				dataFile = c.Config.Data.File
			}
			if presetName == "" {
				presetName = c.Config.Metrics.Preset
			}
			if outFile == "" {
				outFile = c.Config.Data.ReportFile
			}
			return runEvaluation(cmd.Context(), c, dataFile, presetName, outFile, format, persist)
		},
	}

	cmd.Flags().StringVar(&dataFile, "data", "", "Raw data file (.csv or .xlsx)")
	cmd.Flags().StringVar(&presetName, "preset", "", "Metric preset name under PATH_METRIC_CONFIGS")
	cmd.Flags().StringVar(&outFile, "out", "", "Report output file, - for stdout")
	cmd.Flags().StringVar(&format, "format", "", "Report format: csv|xlsx|md|html")
	cmd.Flags().BoolVar(&persist, "persist", false, "Store the run in DATABASE_URL")
	return cmd
}

func runEvaluation(ctx context.Context, c *container.Container, dataFile, presetName, outFile, format string, persist bool) error {
	defs, err := c.Presets.Load(presetName)
	if err != nil {
		return fmt.Errorf("load preset %s: %w", presetName, err)
	}

	table, err := excel.NewDataReader(dataFile).WithLogger(c.Logger).ReadTable()
	if err != nil {
		return err
	}

	rep, err := c.Evaluator.Run(ctx, table, defs, presetName, dataFile)
	if err != nil {
		return err
	}

	if persist {
		if err := c.InitDatabase(ctx); err != nil {
			return err
		}
		if c.ResultRepo == nil {
			return fmt.Errorf("--persist requires DATABASE_URL")
		}
		if err := c.ResultRepo.SaveReport(ctx, rep); err != nil {
			return err
		}
		c.Logger.Info("run %s stored", rep.RunID)
	}

	f, err := outputFormat(format, outFile)
	if err != nil {
		return err
	}
	if outFile == "-" {
		return report.Write(os.Stdout, rep, f)
	}

	out, err := os.Create(outFile)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	if err := report.Write(out, rep, f); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	fmt.Printf("Evaluated %d results (%d without verdict), report written to %s\n",
		len(rep.Results), rep.Failed(), outFile)
	return nil
}

func outputFormat(flag, outFile string) (report.Format, error) {
	if flag != "" {
		return report.ParseFormat(flag)
	}
	if ext := filepath.Ext(outFile); ext != "" {
		return report.ParseFormat(ext)
	}
	return report.FormatCSV, nil
}

func newValidateCmd() *cobra.Command {
	var presetName string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Parse a metric preset and list its metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadContainer()
			if err != nil {
				return err
			}
			if presetName == "" {
				presetName = c.Config.Metrics.Preset
			}

			defs, err := c.Presets.Load(presetName)
			if err != nil {
				return err
			}

			fmt.Printf("Preset %s: %d metrics\n", presetName, len(defs))
			for _, def := range defs {
				fmt.Printf("  %-28s %-13s %s\n", def.Name, def.Estimator, describe(def))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&presetName, "preset", "", "Metric preset name")
	return cmd
}

func describe(def *metric.Definition) string {
	return fmt.Sprintf("%s(%s) / %s(%s) per %s",
		def.Numerator.Function, def.Numerator.Field,
		def.Denominator.Function, def.Denominator.Field,
		def.Level)
}

func newGenerateCmd() *cobra.Command {
	genConfig := testkit.DefaultExperimentConfig()
	var outFile, experiments string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic experiment dataset as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if experiments != "" {
				genConfig.Experiments = strings.Split(experiments, ",")
			}

			if dir := filepath.Dir(outFile); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return err
				}
			}
			out, err := os.Create(outFile)
			if err != nil {
				return err
			}
			defer out.Close()

			n, err := testkit.NewExperimentDataGenerator(genConfig).WriteCSV(out)
			if err != nil {
				return err
			}
			fmt.Printf("Wrote %d sessions to %s\n", n, outFile)
			return nil
		},
	}

	cmd.Flags().StringVar(&outFile, "out", "data/csv/df_sample.csv", "Output CSV file")
	cmd.Flags().StringVar(&experiments, "experiments", "", "Comma separated experiment names")
	cmd.Flags().IntVar(&genConfig.ClientCount, "clients", genConfig.ClientCount, "Clients per experiment")
	cmd.Flags().Float64Var(&genConfig.TreatmentLift, "lift", genConfig.TreatmentLift, "Relative lift of the treatment variant")
	cmd.Flags().Int64Var(&genConfig.Seed, "seed", genConfig.Seed, "Random seed for deterministic output")
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP evaluation API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadContainer()
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			if err := c.InitDatabase(cmd.Context()); err != nil {
				return err
			}
			return c.APIServer().Start(":" + c.Config.Server.Port)
		},
	}
}
