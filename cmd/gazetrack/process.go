package main

import (
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"gazetrack/job"
)

var cleanupAge time.Duration

var processCmd = &cobra.Command{
	Use:   "process <video-file>",
	Short: "Process a video file and write an annotated copy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(cmd, args[0])
	},
}

func init() {
	processCmd.Flags().DurationVar(&cleanupAge, "cleanup-age",
		job.DefaultRetention, "Remove finished job artifacts older than this before starting")
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, input string) error {

	if _, err := os.Stat(input); err != nil {
		return fmt.Errorf("input video: %w", err)
	}

	proc, err := buildProcessor()
	if err != nil {
		return err
	}

	jobs, err := job.NewManager(proc, opts.OutputDir, log)
	if err != nil {
		return err
	}

	jobs.Cleanup(cleanupAge)

	id, err := jobs.Create(input)
	if err != nil {
		return err
	}

	log.WithField("job", id).Info("processing started")

	bar := progressbar.NewOptions(100,
		progressbar.OptionSetDescription("processing"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		case <-ticker.C:
		}

		j, ok := jobs.Status(id)
		if !ok {
			return fmt.Errorf("job %s disappeared", id)
		}

		bar.Set(j.Progress)

		if !j.State.Terminal() {
			continue
		}

		bar.Finish()
		fmt.Fprintln(os.Stderr)

		if j.State == job.StateError {
			return fmt.Errorf("processing failed: %s", j.Err)
		}

		path, ok := jobs.ResultPath(id)
		if !ok {
			return fmt.Errorf("job %s finished but output is missing", id)
		}

		fmt.Println(path)
		return nil
	}
}
