package main

import (
	"errors"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/divehq/hostdeps/internal/config"
	"github.com/divehq/hostdeps/internal/logging"
	"github.com/divehq/hostdeps/internal/platform"
)

// appOptions carries the build-time values and seams used by tests.
type appOptions struct {
	version  string
	digest   string
	detector platform.Detector
	getenv   func(string) string
}

// app is the state shared by every subcommand once PersistentPreRunE ran.
type app struct {
	opts appOptions

	rootDir    string
	configPath string
	logLevel   string
	debug      bool

	dirs   config.Dirs
	cfg    *config.Config
	info   *platform.Info
	logger *logging.Logger
}

func newRootCmd(opts appOptions) *cobra.Command {
	a := &app{opts: opts}

	cmd := &cobra.Command{
		Use:           "hostdeps",
		Short:         "Provision the runtime dependencies of the MCP host",
		Long:          "hostdeps installs uv, Python and the MCP host packages (plus Node.js on Windows)\ninto a private root directory and keeps them up to date.",
		Version:       opts.version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.logger != nil {
				return a.logger.Close()
			}
			return nil
		},
	}

	envDebug, _ := strconv.ParseBool(opts.getenv("HOSTDEPS_DEBUG"))
	flags := cmd.PersistentFlags()
	flags.StringVar(&a.rootDir, "root", "", "provisioning root (default $HOSTDEPS_ROOT or ~/.dive)")
	flags.StringVar(&a.configPath, "config", "", "Lua config file (default <root>/config/provision.lua)")
	flags.StringVar(&a.logLevel, "log-level", opts.getenv("HOSTDEPS_LOG_LEVEL"), "log level (trace, debug, info, warn, error)")
	flags.BoolVar(&a.debug, "debug", envDebug, "skip provisioning and report success")

	cmd.AddCommand(
		newProvisionCmd(a),
		newCheckCmd(a),
		newSignCmd(a),
		newVerifyCmd(a),
		newVersionCmd(a),
	)
	return cmd
}

// skipSetup replaces the root PersistentPreRunE for commands that need no
// root directory or logger.
func skipSetup(*cobra.Command, []string) error { return nil }

// setup resolves the root, parses the config file and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	ctx := cmd.Context()

	root := a.rootDir
	if root == "" {
		r, err := config.DefaultRoot()
		if err != nil {
			return err
		}
		root = r
	}
	a.dirs = config.NewDirs(root)

	info, err := a.opts.detector.Detect(ctx)
	if err != nil {
		return err
	}
	a.info = info

	cfgPath := a.configPath
	if cfgPath == "" {
		cfgPath = a.dirs.ConfigFile()
	}
	cfg, err := config.NewParser(a.opts.detector).ParseFile(ctx, cfgPath)
	if err != nil {
		return errors.New(config.FormatError(err, a.logLevel == "debug"))
	}
	if a.debug {
		cfg.Debug = true
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	a.cfg = cfg

	logOpts := logging.Options{Level: cfg.LogLevel, Console: cmd.ErrOrStderr()}
	if cfg.LogToFile {
		logOpts.File = cfg.LogFile
		if logOpts.File == "" {
			logOpts.File = a.dirs.LogFile()
		}
	}
	logger, err := logging.New(logOpts)
	if err != nil {
		return err
	}
	a.logger = logger

	cmd.SetContext(logging.WithContext(ctx, logger.Logger))
	return nil
}
