package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"visionbench/internal/config"
	"visionbench/internal/domain"
	"visionbench/internal/results"
	"visionbench/internal/service"
	"visionbench/internal/tui"
)

var (
	cfgPath string
	verbose bool
	force   bool
	dryRun  bool
	csvPath string
	useTUI  bool

	logger *zap.Logger
	cfg    *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "visionbench",
	Short: "Benchmark hosted image-classification APIs on class-balanced ablations",
	Long: `visionbench indexes labelled image folders, writes nested class-balanced
training subsets in each vendor's manifest format, uploads them, and runs
resumable per-image classification passes against deployed endpoints.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zc := zap.NewProductionConfig()
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		_ = godotenv.Load()

		if cfgPath == "" {
			var path string
			cfg, path, err = config.LoadDefault()
			logger.Debug("loaded config", zap.String("path", path))
		} else {
			cfg, err = config.Load(cfgPath)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var buildCmd = &cobra.Command{
	Use:   "build <dataset>...",
	Short: "Index datasets and write every ablation and test manifest",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := newService()
		for _, name := range args {
			rep, err := svc.Build(cmd.Context(), name)
			if err != nil {
				return fmt.Errorf("build %s: %w", name, err)
			}
			fmt.Printf("%s: %d classes, levels %v, %d train / %d test images, staged %d (%s), skipped %d\n",
				rep.Dataset, len(rep.Classes), rep.Levels, rep.Train, rep.Test,
				rep.Staged.Copied, humanize.Bytes(uint64(rep.Staged.Bytes)), rep.Staged.Skipped)
		}
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify <dataset>",
	Short: "Check that every vendor manifest matches the plain manifests",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		levels, err := newService().Verify(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s: levels %v verified\n", args[0], levels)
		return nil
	},
}

var uploadCmd = &cobra.Command{
	Use:   "upload <vendor> <dataset> <level> [function-id]",
	Short: "Upload one level's training data to a vendor",
	Args:  cobra.RangeArgs(3, 4),
	RunE: func(cmd *cobra.Command, args []string) error {
		vendor, name := args[0], args[1]
		level, err := parseLevel(args[2])
		if err != nil {
			return err
		}
		var fnID string
		if len(args) == 4 {
			fnID = args[3]
		}
		u, err := newUploader(cmd.Context(), vendor, name, fnID)
		if err != nil {
			return err
		}
		if err := newService().Upload(cmd.Context(), u, name, level); err != nil {
			return err
		}
		fmt.Printf("uploaded %s level %d to %s\n", name, level, vendor)
		return nil
	},
}

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a nyckel image classification function",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newNyckel(cmd.Context())
		if err != nil {
			return err
		}
		fn, err := client.CreateFunction(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("created function %s (%s)\n", fn.Name, fn.ID)
		return nil
	},
}

var invokeCmd = &cobra.Command{
	Use:   "invoke <vendor> <dataset> <level> <endpoint>",
	Short: "Classify every test image once, resuming from the results file",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := parseLevel(args[2])
		if err != nil {
			return err
		}
		c, err := newClassifier(cmd.Context(), args[0], args[3])
		if err != nil {
			return err
		}
		sum, err := newService().Invoke(cmd.Context(), c, args[1], level)
		if err != nil {
			return err
		}
		fmt.Printf("%s %s level %d: %d/%d correct (%.3f), %d skipped, results in %s\n",
			args[0], args[1], level, sum.Correct, sum.Total, sum.Accuracy, sum.Skipped, sum.Path)
		return nil
	},
}

var parallelCmd = &cobra.Command{
	Use:   "parallel <vendor> <dataset> <level> <endpoint>",
	Short: "Measure endpoint throughput with concurrent requests",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := parseLevel(args[2])
		if err != nil {
			return err
		}
		c, err := newClassifier(cmd.Context(), args[0], args[3])
		if err != nil {
			return err
		}
		logger.Info("throughput benchmark", zap.String("vendor", args[0]), zap.String("dataset", args[1]), zap.Int("level", level))
		rep, err := newService().Throughput(cmd.Context(), c, args[1])
		if err != nil {
			return err
		}
		fmt.Println(rep)
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report [dataset...]",
	Short: "Summarize accuracy and latency of every results file",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := newService()
		if useTUI {
			_, err := tea.NewProgram(tui.New(svc, args), tea.WithAltScreen()).Run()
			return err
		}
		sums, combined, err := svc.Report(args)
		if err != nil {
			return err
		}
		if csvPath != "" {
			data, err := results.Export(sums)
			if err != nil {
				return err
			}
			if err := os.WriteFile(csvPath, data, 0o644); err != nil {
				return err
			}
			logger.Info("exported report", zap.String("path", csvPath), zap.Int("rows", len(sums)))
		}
		printReport(sums, combined)
		return nil
	},
}

func printReport(sums []results.Summary, combined []results.Combined) {
	if len(sums) == 0 {
		fmt.Println("no results")
		return
	}
	fmt.Printf("%-12s %-8s %6s %7s %8s %9s %9s %9s\n", "dataset", "vendor", "level", "samples", "accuracy", "mean(s)", "median(s)", "p95(s)")
	for _, s := range sums {
		fmt.Printf("%-12s %-8s %6d %7d %8.3f %9.3f %9.3f %9.3f\n",
			s.Dataset, s.Vendor, s.Level, s.Samples, s.Accuracy, s.LatencyMean, s.LatencyMedian, s.LatencyP95)
	}
	fmt.Println()
	fmt.Printf("%-8s %6s %8s %7s %8s %9s %9s\n", "vendor", "level", "datasets", "samples", "accuracy", "mean(s)", "median(s)")
	for _, c := range combined {
		fmt.Printf("%-8s %6d %8d %7d %8.3f %9.3f %9.3f\n",
			c.Vendor, c.Level, c.Datasets, c.Samples, c.Accuracy, c.LatencyMean, c.LatencyMedian)
	}
}

func newService() *service.BenchService {
	return service.NewBenchService(afero.NewOsFs(), cfg, force, logger)
}

func parseLevel(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, domain.Configf("level %q is not a positive integer", s)
	}
	return n, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to YAML config file (default ./config.yaml or ~/.config/visionbench/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	buildCmd.Flags().BoolVar(&force, "force", false, "Re-copy staged images that already exist")
	uploadCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Upload to an in-memory bucket instead of the vendor")
	reportCmd.Flags().StringVar(&csvPath, "csv", "", "Also export the per-file summaries to this CSV path")
	reportCmd.Flags().BoolVar(&useTUI, "tui", false, "Browse results interactively")

	rootCmd.AddCommand(buildCmd, verifyCmd, uploadCmd, createCmd, invokeCmd, parallelCmd, reportCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if logger != nil {
			logger.Error("command failed", zap.Error(err))
			_ = logger.Sync()
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		stop()
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrConfiguration):
		return 2
	case errors.Is(err, domain.ErrDataIntegrity):
		return 3
	default:
		return 1
	}
}
