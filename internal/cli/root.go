// Package cli is the farmdash command line. Without a subcommand it opens the
// desktop dashboard; the subcommands drive the same core headless.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"runtime"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"smartfarm-dashboard-go/internal/config"
	"smartfarm-dashboard-go/internal/farmapi"
)

// BuildInfo is version information set by linker flags.
type BuildInfo struct {
	Version   string
	BuildTime string
	GoVersion string
}

// session is what every command shares once the persistent pre-run has
// loaded config and logging.
type session struct {
	info   BuildInfo
	cfg    *config.Config
	logger *log.Logger
	client *farmapi.Client

	closeOnce sync.Once
	cleanup   func()
}

func (s *session) close() {
	s.closeOnce.Do(func() {
		if s.cleanup != nil {
			s.cleanup()
		}
	})
}

// Execute runs the root command and releases logging on the way out.
func Execute(info BuildInfo) error {
	s := &session{info: info}
	defer s.close()
	return newRootCmd(s).Execute()
}

// RootCmd builds a fresh command tree.
func RootCmd(info BuildInfo) *cobra.Command {
	return newRootCmd(&session{info: info})
}

func newRootCmd(s *session) *cobra.Command {
	root := &cobra.Command{
		Use:          "farmdash",
		Short:        "Smart farm dashboard",
		Long:         "Plant disease checks, live sensor status and the farm camera. Runs the desktop dashboard when no subcommand is given.",
		Version:      s.info.Version,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return s.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGUI(cmd, s)
		},
	}
	root.SetVersionTemplate(fmt.Sprintf(
		"Smart Farm Dashboard %s\n  Build time: %s\n  Go version: %s\n  Platform:   %s/%s\n",
		s.info.Version, s.info.BuildTime, s.info.GoVersion, runtime.GOOS, runtime.GOARCH,
	))

	flags := root.PersistentFlags()
	flags.String("config", "", "Path to farm_dashboard.yaml (default: ./farm_dashboard.yaml or $FARM_DASHBOARD_CONFIG)")
	flags.String("env-file", ".env", "Env file loaded before the config; empty to skip")
	flags.String("base-url", "", "Override the server base URL")
	flags.Bool("verbose", false, "Log to stdout at debug level")

	root.AddCommand(
		newAnalyzeCmd(s),
		newSensorsCmd(s),
		newTriggerCmd(s),
		newGalleryCmd(s),
		newLatestImageCmd(s),
		newHealthCmd(s),
	)
	return root
}

// setup loads the env file, config and logging, then builds the API client.
// Headless commands only log to stdout with --verbose so their output stays
// readable.
func (s *session) setup(cmd *cobra.Command) error {
	flags := cmd.Flags()

	if envFile, _ := flags.GetString("env-file"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	configPath, _ := flags.GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Warn("config load error, using defaults", "err", err)
	}
	if baseURL, _ := flags.GetString("base-url"); baseURL != "" {
		cfg.BaseURL = baseURL
	}
	verbose, _ := flags.GetBool("verbose")
	if verbose {
		cfg.LogLevel = "debug"
	}
	if cmd.HasParent() {
		cfg.LogToStdout = verbose
	}

	logger, cleanup, err := config.ConfigureLogging(cfg)
	s.cleanup = cleanup
	if err != nil {
		logger.Warn("logging setup error", "err", err)
	}
	mainLog := logger.WithPrefix("Main")
	mainLog.Info("Smart Farm Dashboard starting", "version", s.info.Version, "command", cmd.Name())
	mainLog.Info("config", "base_url", cfg.BaseURL, "sensor_interval", cfg.SensorInterval(),
		"latest_image_interval", cfg.LatestImageInterval(), "timeout", cfg.RequestTimeout())

	ok, warnings := cfg.Validate()
	for _, w := range warnings {
		mainLog.Warn(w)
	}
	if !ok {
		return fmt.Errorf("invalid configuration: base URL %q", cfg.BaseURL)
	}

	client, err := farmapi.New(farmapi.Options{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.RequestTimeout(),
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	s.cfg = cfg
	s.logger = logger
	s.client = client
	return nil
}
