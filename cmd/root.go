// Package cmd defines the markercheck command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/markercheck/internal/app"
	"github.com/JakeFAU/markercheck/internal/config"
	"github.com/JakeFAU/markercheck/internal/logging"
)

// errUsage marks failures whose message and usage were already printed.
var errUsage = errors.New("usage error")

// newRootCmd creates the root command. Running it without a subcommand is the
// same as "markercheck run".
func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "markercheck",
		Short: "Check a list of ids against a page marker",
		Long: `markercheck reads ids from a spreadsheet or text file, fetches
<base>=<id> for each one with bounded concurrency and rate limiting, and
appends one CSV row per id recording whether the page shows the marker.`,
		Example: `  markercheck --file=numeros.xlsx --col=A --base=https://app.example.com/login?id \
    --text="Bienvenido a Udeki" --concurrency=2 --rps=0.5 --outfile=resultados.csv`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd, cfgFile)
		},
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	addRunFlags(cmd)
	cmd.AddCommand(newRunCmd(&cfgFile))
	return cmd
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	return execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintln(stderr, "error:", err)
		}
		return 1
	}
	return 0
}

func runCheck(cmd *cobra.Command, cfgFile string) error {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		var cfgErr *config.Error
		if errors.As(err, &cfgErr) {
			cmd.PrintErrln("error:", err)
			cmd.PrintErrln(cmd.UsageString())
			return errUsage
		}
		return err //nolint:wrapcheck // already prefixed by config
	}

	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("logger init failed: %w", err)
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := app.Run(ctx, cfg, logger)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("interrupted; completed rows are saved", zap.String("output", res.OutputPath))
		}
		return err //nolint:wrapcheck // app errors are descriptive
	}
	logger.Info("finished; results saved", zap.String("output", res.OutputPath))
	return nil
}
