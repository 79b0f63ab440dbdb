package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gocv.io/x/gocv"

	"gazetrack/camera"
	"gazetrack/pipeline"
	"gazetrack/record"
)

var (
	recordCameras []int
	recordFPS     float64
	recordName    string
	recordDir     string
	recordWidth   int
	recordHeight  int
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record annotated live camera streams to a video file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRecord(cmd)
	},
}

func init() {
	recordCmd.Flags().IntSliceVarP(&recordCameras, "cameras", "c",
		[]int{0}, "Camera device ids to record")
	recordCmd.Flags().Float64Var(&recordFPS, "fps", 20, "Recording frame rate")
	recordCmd.Flags().StringVarP(&recordName, "name", "n", "",
		"Recording name used in the output filename")
	recordCmd.Flags().StringVar(&recordDir, "record-dir",
		envOr("GAZETRACK_RECORD_DIR", "./recordings"), "Directory for recordings")
	recordCmd.Flags().IntVar(&recordWidth, "width", 640, "Per camera frame width")
	recordCmd.Flags().IntVar(&recordHeight, "height", 480, "Per camera frame height")
	rootCmd.AddCommand(recordCmd)
}

func runRecord(cmd *cobra.Command) error {

	if len(recordCameras) == 0 {
		return fmt.Errorf("no cameras given")
	}

	// one isolated pipeline per camera so identities never mix
	procs := make(map[int]pipeline.Processor, len(recordCameras))

	for _, id := range recordCameras {
		proc, err := buildProcessor()
		if err != nil {
			return err
		}
		procs[id] = proc
	}

	captures := make(map[int]*gocv.VideoCapture, len(recordCameras))

	defer func() {
		for _, cam := range captures {
			cam.Close()
		}
	}()

	for _, id := range recordCameras {
		cam, err := gocv.OpenVideoCapture(id)
		if err != nil {
			return fmt.Errorf("open camera %d: %w", id, err)
		}
		captures[id] = cam
	}

	cameras := camera.NewManager(func(cameraID int) pipeline.Processor {
		return procs[cameraID]
	}, 0, log)

	for _, id := range recordCameras {
		if _, err := cameras.Create(id); err != nil {
			return err
		}
		cameras.Start(id)
	}
	defer cameras.StopAll()

	recordingID := uuid.NewString()

	single, err := record.NewRecorder(recordDir, log)
	if err != nil {
		return err
	}

	multi, err := record.NewMultiRecorder(recordDir, log)
	if err != nil {
		return err
	}

	started := false

	if len(recordCameras) == 1 {
		started = single.Start(recordingID, recordWidth, recordHeight,
			recordFPS, nil, recordName)
	}

	log.WithFields(logrus.Fields{
		"recording": recordingID,
		"cameras":   recordCameras,
	}).Info("recording, interrupt to stop")

	interval := time.Duration(float64(time.Second) / recordFPS)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx := cmd.Context()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
		}

		// feed every camera its newest frame
		for id, cam := range captures {
			frame := gocv.NewMat()

			if !cam.Read(&frame) || frame.Empty() {
				frame.Close()
				continue
			}

			cameras.Submit(id, frame, recordWidth, recordHeight)
			frame.Close()
		}

		// collect annotated results
		results := make(map[int]gocv.Mat, len(recordCameras))
		var stats pipeline.Stats

		for _, id := range recordCameras {
			res, ok := cameras.Latest(id)
			if !ok {
				continue
			}
			results[id] = res.Frame
			stats = stats.Add(res.Stats)
		}

		if len(results) == 0 {
			continue
		}

		if len(recordCameras) == 1 {
			if started {
				single.Write(recordingID, results[recordCameras[0]], &stats)
			}
		} else {
			if !started {
				// layout geometry comes from the first full frame set
				started = multi.Start(recordingID, results, recordFPS, recordName)
			}
			if started {
				multi.Write(recordingID, results, &stats)
			}
		}

		for _, frame := range results {
			frame.Close()
		}
	}

	summaries := append(single.StopAll(), multi.StopAll()...)

	for _, s := range summaries {
		out, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			continue
		}
		fmt.Fprintln(os.Stdout, string(out))
	}

	if !started {
		return fmt.Errorf("recording never started, no frames captured")
	}

	return nil
}
