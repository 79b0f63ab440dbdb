package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"gazetrack/detect"
	"gazetrack/pipeline"
)

// Version is the application version.
const Version = "0.1.0"

// Options holds shared configuration for the process and record commands
type Options struct {
	WeightsPath    string
	ConfigPath     string
	OutputDir      string
	FPS            float64
	YawThreshold   float64
	PitchThreshold float64
	Verbose        bool
}

var opts Options

var log = logrus.New()

var rootCmd = &cobra.Command{
	Use:     "gazetrack",
	Short:   "Multi-camera attention tracking over video files and live streams",
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if opts.Verbose {
			log.SetLevel(logrus.DebugLevel)
		}
	},
}

// Execute runs the root command with signal aware context
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&opts.WeightsPath, "weights", "w",
		os.Getenv("GAZETRACK_WEIGHTS"), "Path to person detection model weights")
	rootCmd.PersistentFlags().StringVar(&opts.ConfigPath, "model-config",
		os.Getenv("GAZETRACK_MODEL_CONFIG"), "Path to model config file, if required")
	rootCmd.PersistentFlags().StringVarP(&opts.OutputDir, "output-dir", "o",
		envOr("GAZETRACK_OUTPUT_DIR", "./output"), "Directory for processed videos and reports")
	rootCmd.PersistentFlags().Float64Var(&opts.YawThreshold, "yaw-threshold",
		0, "Yaw angle in degrees still counted as looking (0 for default)")
	rootCmd.PersistentFlags().Float64Var(&opts.PitchThreshold, "pitch-threshold",
		0, "Pitch angle in degrees still counted as looking (0 for default)")
	rootCmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v",
		false, "Enable debug logging")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// buildProcessor assembles the per frame pipeline from the configured
// detector and head pose solver
func buildProcessor() (pipeline.Processor, error) {

	if opts.WeightsPath == "" {
		return nil, fmt.Errorf("no detection model: set --weights or GAZETRACK_WEIGHTS")
	}

	detector, err := detect.NewYOLO(detect.Config{
		WeightsPath: opts.WeightsPath,
		ConfigPath:  opts.ConfigPath,
	})
	if err != nil {
		return nil, err
	}

	return pipeline.New(detector, nil, detect.NewHeadPose(), pipeline.Config{
		YawThreshold:   opts.YawThreshold,
		PitchThreshold: opts.PitchThreshold,
		Log:            log,
	}), nil
}
