package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"

	logdex "github.com/kailas-cloud/logdex"
	"github.com/kailas-cloud/logdex/internal/version"
)

// env holds connection settings read from the environment.
type env struct {
	BaseURL    string        `envconfig:"LOGDEX_BASE_URL" required:"true"`
	Account    string        `envconfig:"LOGDEX_ACCOUNT" required:"true"`
	SecretKey  string        `envconfig:"LOGDEX_SECRET_KEY" required:"true"`
	TimeoutSec int           `envconfig:"LOGDEX_TIMEOUT_SEC" default:"100"`
	PollMS     int           `envconfig:"LOGDEX_POLL_INTERVAL_MS" default:"1000"`
	PollWait   time.Duration `envconfig:"LOGDEX_POLL_TIMEOUT" default:"5m"`
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "logdexctl",
		Short: "logdexctl - query log search services from the command line",
		Long: `logdexctl runs searches against a log search service, polls until the
result set is final, and prints the materialized records.

Connection settings come from the environment:
  LOGDEX_BASE_URL    service base URL
  LOGDEX_ACCOUNT     account username
  LOGDEX_SECRET_KEY  shared secret key`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().Bool("json", false, "output JSON instead of a table")

	rootCmd.AddCommand(
		searchCmd(),
		reposCmd(),
		pathsCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newClient() (*logdex.Client, error) {
	var e env
	if err := envconfig.Process("", &e); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	return logdex.New(
		logdex.WithService(e.BaseURL),
		logdex.WithCredentials(e.Account, logdex.StaticSecret(e.SecretKey)),
		logdex.WithHTTPClient(&http.Client{Timeout: time.Duration(e.TimeoutSec) * time.Second}),
		logdex.WithPolling(time.Duration(e.PollMS)*time.Millisecond, e.PollWait),
	)
}

func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a search and print the materialized records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			defer client.Close()

			timeRange, _ := cmd.Flags().GetString("time-range")
			limit, _ := cmd.Flags().GetInt("limit")
			repos, _ := cmd.Flags().GetStringSlice("repo")
			paths, _ := cmd.Flags().GetStringSlice("path")
			asJSON, _ := cmd.Flags().GetBool("json")

			res, err := client.Execute(cmd.Context(), logdex.Search{
				Query:     args[0],
				TimeRange: timeRange,
				Limit:     limit,
				Repos:     repos,
				Paths:     paths,
			})
			if err != nil {
				return err
			}

			if asJSON {
				return printJSON(res)
			}
			printRecords(res)
			return nil
		},
	}

	cmd.Flags().String("time-range", "", `time range, e.g. "Last 24 hours" (default: last hour)`)
	cmd.Flags().IntP("limit", "n", 100, "maximum number of rows")
	cmd.Flags().StringSlice("repo", nil, "restrict to a repository (repeatable)")
	cmd.Flags().StringSlice("path", nil, "field path to extract (repeatable; default: infer)")

	return cmd
}

func reposCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repos",
		Short: "List the repositories the credential may search",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			defer client.Close()

			repos, err := client.PreviewRepositories(cmd.Context())
			if err != nil {
				return err
			}

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return printJSON(repos)
			}
			for _, r := range repos {
				fmt.Println(r)
			}
			return nil
		},
	}
}

func pathsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "paths <query>",
		Short: "Preview the field paths a query produces",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			defer client.Close()

			timeRange, _ := cmd.Flags().GetString("time-range")
			repos, _ := cmd.Flags().GetStringSlice("repo")

			paths, err := client.PreviewPaths(cmd.Context(), args[0], timeRange, repos)
			if err != nil {
				return err
			}

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return printJSON(paths)
			}
			for _, p := range paths {
				fmt.Println(p)
			}
			return nil
		},
	}

	cmd.Flags().String("time-range", "", `time range, e.g. "Last 24 hours" (default: last hour)`)
	cmd.Flags().StringSlice("repo", nil, "restrict to a repository (repeatable)")

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(*cobra.Command, []string) {
			fmt.Printf("logdexctl %s\n", version.Version)
			fmt.Printf("  commit: %s\n", version.Commit)
			fmt.Printf("  built:  %s\n", version.Date)
		},
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printRecords(res *logdex.Result) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, f := range res.Fields {
		fmt.Fprintf(w, "%s\t", f)
	}
	fmt.Fprintln(w)
	for _, rec := range res.Records {
		for _, vals := range rec.Values {
			cell := ""
			if len(vals) > 0 {
				cell = vals[0]
			}
			fmt.Fprintf(w, "%s\t", cell)
		}
		fmt.Fprintln(w)
	}
	_ = w.Flush()
	if res.Warning {
		fmt.Fprintln(os.Stderr, "warning: some fields were missing; empty values substituted")
	}
}
