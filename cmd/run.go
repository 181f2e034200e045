package cmd

import (
	"github.com/spf13/cobra"

	"github.com/JakeFAU/markercheck/internal/config"
)

func newRunCmd(cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a check (default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd, *cfgFile)
		},
	}
	addRunFlags(cmd)
	return cmd
}

// addRunFlags declares one flag per key in config.FlagKeys. Defaults mirror
// the config defaults so --help shows the effective values.
func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("file", "", "input file: .xlsx or one id per line (required)")
	f.String("col", "A", "spreadsheet column holding the ids")
	f.String("sheet", "", "spreadsheet sheet (default first sheet)")
	f.String("base", "", "base URL; the id is appended after --join (required)")
	f.String("join", "=", "separator between base URL and id")
	f.String("text", "", "marker text expected in the fragment (required)")
	f.String("label", "SI", "label written for a match")
	f.String("user-agent", config.DefaultUserAgent, "User-Agent header")
	f.Int("concurrency", 2, "maximum concurrent ids")
	f.Float64("rps", 0.5, "requests per second per worker")
	f.Int("mindelay", 1000, "upper bound of the random jitter in ms")
	f.String("rate-mode", "per_worker", "per_worker or global")
	f.Int("retries", 2, "retries after the first failed attempt")
	f.Int("backoff", 400, "base backoff in ms, doubled per failure")
	f.Int("timeout", 15000, "per-request timeout in ms")
	f.Int("progress-every", 100, "log progress every N finished ids")
	f.String("outfile", "resultados.csv", "output CSV path")
	f.String("extract-mode", "pattern", "pattern or selector")
	f.String("selector", "", "CSS selector for --extract-mode=selector")
	f.String("pg-dsn", "", "mirror results into Postgres")
	f.String("pg-table", "marker_results", "Postgres results table")
	f.String("gcs-bucket", "", "upload the finished CSV to this bucket")
	f.String("gcs-object", "", "object name for the upload (default file name)")
	f.String("server-addr", "", "serve /healthz, /metrics and /progress on this address")
	f.Bool("dev", true, "development logging")
	f.String("log-level", "info", "log level")
}
