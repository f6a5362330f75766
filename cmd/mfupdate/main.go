package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/moldflow/mfupdate/internal/advisory"
	"github.com/moldflow/mfupdate/internal/config"
	"github.com/moldflow/mfupdate/internal/installed"
	"github.com/moldflow/mfupdate/internal/logging"
	"github.com/moldflow/mfupdate/internal/version"
	"github.com/moldflow/mfupdate/pkg/updatecheck"
)

var (
	configPath  string
	registryURL string
	timeout     time.Duration
	verbose     bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "mfupdate",
		Short:         "Check PyPI for newer moldflow releases",
		Long:          "mfupdate compares the installed moldflow version with the releases published on the package registry and suggests how to upgrade.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVarP(&registryURL, "registry", "r", "", "Package registry URL (default https://pypi.org)")
	rootCmd.PersistentFlags().DurationVarP(&timeout, "timeout", "t", 0, "Registry request timeout (default 2s)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "check",
			Short: "Check for updates and print an advisory",
			Args:  cobra.NoArgs,
			RunE:  runCheck,
		},
		&cobra.Command{
			Use:   "candidates",
			Short: "Print the minor and major upgrade candidates",
			Args:  cobra.NoArgs,
			RunE:  runCandidates,
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the installed version",
			Args:  cobra.NoArgs,
			RunE:  runVersion,
		},
		&cobra.Command{
			Use:   "parse VERSION...",
			Short: "Show how version strings are interpreted",
			Args:  cobra.MinimumNArgs(1),
			RunE:  runParse,
		},
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig applies the config file and then the command line flags.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if registryURL != "" {
		cfg.RegistryURL = registryURL
	}
	if timeout > 0 {
		cfg.Timeout = timeout
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newChecker(cmd *cobra.Command) (*updatecheck.Checker, *zap.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := logging.New(verbose)
	checker := updatecheck.New(cfg,
		updatecheck.WithLogger(logger),
		updatecheck.WithNotifier(advisory.NewWriterNotifier(cmd.ErrOrStderr())),
	)
	return checker, logger, nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	checker, logger, err := newChecker(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := checker.Check(context.Background()); err != nil {
		return fmt.Errorf("checking for updates: %w", err)
	}
	logger.Debug("update check finished", zap.Stringer("state", checker.LastState()))
	return nil
}

func runCandidates(cmd *cobra.Command, args []string) error {
	checker, logger, err := newChecker(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	cands, err := checker.Candidates(context.Background())
	if err != nil {
		return fmt.Errorf("checking for updates: %w", err)
	}
	if checker.LastState() == updatecheck.StateDisabled {
		fmt.Fprintln(cmd.ErrOrStderr(), "update check disabled by environment")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "minor: %s\n", orNone(cands.Minor))
	fmt.Fprintf(out, "major: %s\n", orNone(cands.Major))
	return nil
}

func runVersion(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	v, err := installed.NewResolver(cfg.ModulePath, cfg.DescriptorDir).Version()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), v)
	return nil
}

func runParse(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	for _, arg := range args {
		kind := "final"
		switch {
		case !version.HasNumericCore(arg):
			kind = "unparsable"
		case !version.IsFinal(arg):
			kind = "pre-release"
		}
		fmt.Fprintf(out, "%s\t%s\t%s\n", arg, version.Parse(arg), kind)
	}
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
