package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dudu/frvtface/internal/config"
)

// Version is the application version.
const Version = "0.1.0"

var (
	// cfg is the configuration shared by subcommands, resolved before each run
	cfg config.Config
	// flagCfg receives the persistent flags; only flags set on the command
	// line override the loaded configuration
	flagCfg = config.Default()
)

var rootCmd = &cobra.Command{
	Use:           "frvtface",
	Short:         "Face landmarks, templates and verification benchmarks",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = applyFlags(cmd.Flags(), loaded)

		if err := setupLogging(cfg.LogLevel); err != nil {
			return err
		}
		if cfg.FlipThresholdIgnored() {
			log.Warn().
				Float64("flip_threshold", cfg.FlipThreshold).
				Msg("flip threshold has no effect while the flip check is skipped; pass --skip-flip-check=false")
		}
		return cfg.Validate()
	},
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func setupLogging(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().
		Timestamp().
		Logger()
	return nil
}

// applyFlags copies every explicitly set flag from flagCfg onto base
func applyFlags(flags *pflag.FlagSet, base config.Config) config.Config {
	overrides := map[string]func(){
		"config-dir":        func() { base.ConfigDir = flagCfg.ConfigDir },
		"ort-lib":           func() { base.OrtLibrary = flagCfg.OrtLibrary },
		"coreml":            func() { base.UseCoreML = flagCfg.UseCoreML },
		"flip-threshold":    func() { base.FlipThreshold = flagCfg.FlipThreshold },
		"skip-flip-check":   func() { base.SkipFlipCheck = flagCfg.SkipFlipCheck },
		"margin":            func() { base.MarginRatio = flagCfg.MarginRatio },
		"conf-threshold":    func() { base.ConfThreshold = flagCfg.ConfThreshold },
		"nms-threshold":     func() { base.NMSThreshold = flagCfg.NMSThreshold },
		"detection-size":    func() { base.DetectionSize = flagCfg.DetectionSize },
		"detector-model":    func() { base.DetectorModel = flagCfg.DetectorModel },
		"landmark-model":    func() { base.LandmarkModel = flagCfg.LandmarkModel },
		"recognition-model": func() { base.RecognitionModel = flagCfg.RecognitionModel },
		"log-level":         func() { base.LogLevel = flagCfg.LogLevel },
		"images":            func() { base.ImageRoot = flagCfg.ImageRoot },
		"workers":           func() { base.Workers = flagCfg.Workers },
		"fpr":               func() { base.FPRDividers = flagCfg.FPRDividers },
		"db":                func() { base.DatabaseURL = flagCfg.DatabaseURL },
	}
	for name, apply := range overrides {
		if f := flags.Lookup(name); f != nil && f.Changed {
			apply()
		}
	}
	return base
}

func init() {
	d := config.Default()
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagCfg.ConfigDir, "config-dir", d.ConfigDir, "Directory holding the model files")
	pf.StringVar(&flagCfg.OrtLibrary, "ort-lib", d.OrtLibrary, "Path to the ONNX Runtime shared library")
	pf.BoolVar(&flagCfg.UseCoreML, "coreml", d.UseCoreML, "Try the CoreML execution provider")
	pf.Float64Var(&flagCfg.FlipThreshold, "flip-threshold", d.FlipThreshold, "Maximum flip deviation of landmarks in pixels (needs --skip-flip-check=false)")
	pf.BoolVar(&flagCfg.SkipFlipCheck, "skip-flip-check", d.SkipFlipCheck, "Accept landmarks without the mirrored pass")
	pf.Float64Var(&flagCfg.MarginRatio, "margin", d.MarginRatio, "Landmark box expansion for recognition")
	pf.Float32Var(&flagCfg.ConfThreshold, "conf-threshold", d.ConfThreshold, "Minimum face detection score")
	pf.Float32Var(&flagCfg.NMSThreshold, "nms-threshold", d.NMSThreshold, "Detection IoU suppression threshold")
	pf.IntVar(&flagCfg.DetectionSize, "detection-size", d.DetectionSize, "Square face detector input size")
	pf.StringVar(&flagCfg.DetectorModel, "detector-model", d.DetectorModel, "Face detector model file")
	pf.StringVar(&flagCfg.LandmarkModel, "landmark-model", d.LandmarkModel, "Landmark model file")
	pf.StringVar(&flagCfg.RecognitionModel, "recognition-model", d.RecognitionModel, "Recognition model file")
	pf.StringVar(&flagCfg.LogLevel, "log-level", d.LogLevel, "Log level (debug, info, warn, error)")
}
