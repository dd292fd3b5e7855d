package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/datablase/internal/probe"
	"github.com/okian/datablase/pkg/logger"
)

var errChecksFailed = errors.New("probe checks failed")

func main() {
	if err := logger.Init(logger.WithOutput(os.Stderr)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "probe",
		Short:        "Check a running datablase API",
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var (
		baseURL string
		season  string
		timeout time.Duration
		repeat  int
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch the read endpoints and verify response properties",
		Long: "Fetches a fixed set of endpoints repeatedly and checks that every response is JSON, " +
			"that repeated calls return identical bytes, that season bounds are ordered and that " +
			"career splits reject a season.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if verbose {
				_ = logger.SetLevelString("debug")
			}
			p, err := probe.New(baseURL,
				probe.WithSeason(season),
				probe.WithTimeout(timeout),
				probe.WithRepeat(repeat),
				probe.WithLogger(logger.Named("probe")),
			)
			if err != nil {
				return err
			}

			report, err := p.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("probe interrupted: %w", err)
			}

			out := cmd.OutOrStdout()
			for _, c := range report.Checks {
				status := "ok"
				if !c.OK() {
					status = "FAIL"
				}
				_, _ = fmt.Fprintf(out, "%-4s %-22s %-55s %s\n", status, c.Name, c.Path, c.Duration.Round(time.Millisecond))
				if !c.OK() {
					_, _ = fmt.Fprintf(out, "     %v\n", c.Err)
				}
			}
			_, _ = fmt.Fprintf(out, "%d checks, %d failed\n", len(report.Checks), report.Failed())
			if !report.OK() {
				return errChecksFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "http://localhost:9080", "Base URL of the API")
	cmd.Flags().StringVar(&season, "season", "current", "Season to probe, a number or current")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Timeout per request")
	cmd.Flags().IntVar(&repeat, "repeat", 2, "Calls per endpoint, at least 2")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log every request")

	return cmd
}
