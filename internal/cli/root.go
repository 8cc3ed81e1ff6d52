// Package cli implements the star-sizes command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/star-sizes/internal/config"
	"github.com/Sternrassler/star-sizes/pkg/client"
	"github.com/Sternrassler/star-sizes/pkg/logging"
	"github.com/Sternrassler/star-sizes/pkg/metrics"
	"github.com/Sternrassler/star-sizes/pkg/pagination"
	"github.com/Sternrassler/star-sizes/pkg/report"
	"github.com/Sternrassler/star-sizes/pkg/stars"
)

// Exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
)

// rootFlags holds the values bound to the root command flags.
type rootFlags struct {
	user        string
	perPage     int
	apiVersion  string
	userAgent   string
	apiURL      string
	timeout     time.Duration
	logLevel    string
	logFormat   string
	debug       bool
	httpTrace   bool
	metricsFile string
	envFile     string
}

// NewRootCmd creates the root command reading the process environment.
func NewRootCmd(ver string) *cobra.Command {
	return NewRootCmdWithEnv(ver, os.LookupEnv)
}

// NewRootCmdWithEnv creates the root command with an explicit environment
// lookup for testability.
func NewRootCmdWithEnv(ver string, lookupEnv config.LookupEnvFunc) *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:   "star-sizes",
		Short: "List starred GitHub repositories by size",
		Long: "star-sizes fetches every repository starred by the authenticated user " +
			"(or by --user) and prints them largest first with a human-readable size.\n\n" +
			"The GitHub token is read from GITHUB_TOKEN (or GH_TOKEN), optionally via a .env file.",
		Version:       ver,
		Example:       rootCmdExample,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, ver, lookupEnv, &flags)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.user, "user", "u", "", "list the public stars of this user instead of the authenticated user ($GITHUB_USER)")
	f.IntVar(&flags.perPage, "per-page", pagination.MaxPerPage, "repositories per page, 1-100 ($PER_PAGE)")
	f.StringVar(&flags.apiVersion, "api-version", client.DefaultAPIVersion, "GitHub REST API version header ($GITHUB_API_VERSION)")
	f.StringVar(&flags.userAgent, "user-agent", "", "User-Agent header (default star-sizes/<version>, $USER_AGENT)")
	f.StringVar(&flags.apiURL, "api-url", client.DefaultBaseURL, "GitHub API base URL ($GITHUB_API_URL)")
	f.DurationVar(&flags.timeout, "timeout", client.DefaultTimeout, "per-request timeout ($HTTP_TIMEOUT)")
	f.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error ($LOG_LEVEL, default warn)")
	f.StringVar(&flags.logFormat, "log-format", "", "log format: console or json ($LOG_FORMAT, default console on a terminal)")
	f.BoolVar(&flags.debug, "debug", false, "enable debug logging")
	f.BoolVar(&flags.httpTrace, "http-trace", false, "dump HTTP requests and responses to stderr")
	f.StringVar(&flags.metricsFile, "metrics-file", "", "write Prometheus metrics to this file after the run")
	f.StringVar(&flags.envFile, "env-file", config.DefaultEnvFile, "load environment variables from this file if it exists")

	return cmd
}

const rootCmdExample = `  # Stars of the authenticated user
  GITHUB_TOKEN=ghp_... star-sizes

  # Public stars of another user
  star-sizes --user octocat

  # GitHub Enterprise Server
  star-sizes --api-url https://ghe.example.com/api/v3

  # Keep metrics for the node_exporter textfile collector
  star-sizes --metrics-file /var/lib/node_exporter/star_sizes.prom`

// Execute runs the command line with args and returns the process exit
// code. Failures are reported on stderr; stdout only ever receives the
// complete report.
func Execute(ctx context.Context, ver string, args []string, stdout, stderr io.Writer, lookupEnv config.LookupEnvFunc) int {
	cmd := NewRootCmdWithEnv(ver, lookupEnv)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		WriteDiagnostic(stderr, err)
		return ExitFailure
	}
	return ExitOK
}

func run(cmd *cobra.Command, ver string, lookupEnv config.LookupEnvFunc, flags *rootFlags) error {
	if err := config.LoadDotEnv(flags.envFile); err != nil {
		return err
	}

	cfg := config.FromEnv(lookupEnv, defaultUserAgent(ver))
	applyFlags(cmd, cfg, flags)

	if err := setupLogging(cmd.ErrOrStderr(), cfg, flags); err != nil {
		return err
	}

	defer writeMetrics(flags.metricsFile)

	if err := cfg.Validate(); err != nil {
		return err
	}

	clientCfg := cfg.ClientConfig()
	if flags.httpTrace {
		clientCfg.TraceOutput = cmd.ErrOrStderr()
	}

	c, err := client.New(clientCfg)
	if err != nil {
		return fmt.Errorf("create GitHub client: %w", err)
	}
	defer c.Close()

	records, err := stars.FetchAll(cmd.Context(), c, cfg.Endpoint(), cfg.PerPage)
	if err != nil {
		return err
	}

	if state, ok := c.RateLimit(); ok {
		log.Debug().
			Int("remaining", state.Remaining).
			Int("limit", state.Limit).
			Msg("Rate limit after run")
	}

	return report.Render(cmd.OutOrStdout(), records)
}

// applyFlags overrides cfg with every flag set on the command line.
func applyFlags(cmd *cobra.Command, cfg *config.Config, flags *rootFlags) {
	changed := cmd.Flags().Changed

	if changed("user") {
		cfg.User = flags.user
	}
	if changed("per-page") {
		cfg.SetPerPage(flags.perPage)
	}
	if changed("api-version") {
		cfg.APIVersion = flags.apiVersion
	}
	if changed("user-agent") {
		cfg.UserAgent = flags.userAgent
	}
	if changed("api-url") {
		cfg.BaseURL = flags.apiURL
	}
	if changed("timeout") {
		cfg.SetTimeout(flags.timeout)
	}
	if changed("log-level") {
		cfg.LogLevel = flags.logLevel
	}
	if changed("log-format") {
		cfg.LogFormat = flags.logFormat
	}
}

func setupLogging(out io.Writer, cfg *config.Config, flags *rootFlags) error {
	logCfg := logging.DefaultConfig()
	logCfg.Output = out

	if cfg.LogLevel != "" {
		if !logging.ValidLevel(cfg.LogLevel) {
			return &config.Error{Field: "log_level", Err: fmt.Errorf("unknown level %q", cfg.LogLevel)}
		}
		logCfg.Level = logging.LogLevel(cfg.LogLevel)
	}

	file, _ := out.(*os.File)
	logCfg.Pretty = logging.ParseFormat(cfg.LogFormat, file)

	if flags.debug {
		logCfg.Level = logging.LevelDebug
		logCfg.Pretty = true
	}

	logging.Setup(logCfg)
	return nil
}

func writeMetrics(path string) {
	if path == "" {
		return
	}
	if err := metrics.WriteTextfile(path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to write metrics file")
		return
	}
	log.Info().Str("path", path).Msg("Metrics file written")
}

func defaultUserAgent(ver string) string {
	if ver == "" {
		ver = "dev"
	}
	return "star-sizes/" + ver
}
