// Package main provides the relex binary: relation triple extraction from
// documents, plus inspection of rule tables and stored triples.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/japaniel/relex/pkg/config"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "relex"
	envPrefix = "RELEX"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app carries what every subcommand shares.
type app struct {
	v          *viper.Viper
	configPath string
	logLevel   string
	logFile    string
	logger     *slog.Logger
	logCloser  io.Closer
}

func rootCmd() *cobra.Command {
	a := &app{v: newViper()}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Typed relation triple extraction",
		Long: `relex extracts typed relation triples (hypernyms, attributes and
modifier relations) from natural-language text.

Two engines run on every sentence:
- Hearst patterns over a noun-phrase-marked sentence
- bounded walks over the sentence's dependency graph

Flags can also be given as RELEX_* environment variables
(for example RELEX_BATCH_SIZE=100).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setupLogging(cmd.ErrOrStderr())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.logCloser != nil {
				return a.logCloser.Close()
			}
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "Config file path (YAML)")
	pf.StringVar(&a.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.StringVar(&a.logFile, "log-file", "", "Write logs to a rotating file instead of stderr")

	cmd.AddCommand(
		a.extractCmd(),
		a.patternsCmd(),
		a.triplesCmd(),
		a.scoreCmd(),
		versionCmd(),
	)
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(config.EnvKeyReplacer)
	v.AutomaticEnv()
	return v
}

func (a *app) setupLogging(stderr io.Writer) error {
	level := slog.LevelInfo
	switch strings.ToLower(a.logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("unknown log level %q", a.logLevel)
	}

	out := stderr
	if a.logFile != "" {
		lj := &lumberjack.Logger{
			Filename:   a.logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
		out, a.logCloser = lj, lj
	}
	a.logger = slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.logger)
	return nil
}

// loadConfig layers defaults, the config file, RELEX_* variables and the
// flags of cmd, then validates the result.
func (a *app) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if a.configPath != "" {
		fileCfg, err := config.LoadFromFile(a.configPath)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
		a.logger.Debug("Loaded config", slog.String("path", a.configPath))
	}
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}
	cfg.Overlay(a.v)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
