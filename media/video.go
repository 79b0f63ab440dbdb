package media

import (
	"fmt"

	"gocv.io/x/gocv"
)

// codec is the FourCC used for generated video files
const codec = "mp4v"

// videoSource wraps a gocv VideoCapture as a Source
type videoSource struct {
	capture *gocv.VideoCapture
}

// OpenVideo opens a video file as a frame Source
func OpenVideo(path string) (Source, error) {

	capture, err := gocv.VideoCaptureFile(path)

	if err != nil {
		return nil, fmt.Errorf("media: open %s: %w", path, err)
	}

	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("media: could not open video %s", path)
	}

	return &videoSource{capture: capture}, nil
}

func (v *videoSource) Read() (gocv.Mat, bool) {

	frame := gocv.NewMat()

	if ok := v.capture.Read(&frame); !ok || frame.Empty() {
		frame.Close()
		return gocv.Mat{}, false
	}

	return frame, true
}

func (v *videoSource) FPS() float64 {
	return v.capture.Get(gocv.VideoCaptureFPS)
}

func (v *videoSource) FrameSize() (int, int) {
	return int(v.capture.Get(gocv.VideoCaptureFrameWidth)),
		int(v.capture.Get(gocv.VideoCaptureFrameHeight))
}

func (v *videoSource) TotalFrames() int {
	return int(v.capture.Get(gocv.VideoCaptureFrameCount))
}

func (v *videoSource) Close() error {
	return v.capture.Close()
}

// videoSink wraps a gocv VideoWriter as a Sink
type videoSink struct {
	writer *gocv.VideoWriter
}

// NewVideoSink creates a video file sink at the given path
func NewVideoSink(path string, fps float64, width, height int) (Sink, error) {

	writer, err := gocv.VideoWriterFile(path, codec, fps, width, height, true)

	if err != nil {
		return nil, fmt.Errorf("media: create %s: %w", path, err)
	}

	if !writer.IsOpened() {
		writer.Close()
		return nil, fmt.Errorf("media: could not open video writer %s", path)
	}

	return &videoSink{writer: writer}, nil
}

func (v *videoSink) Write(frame gocv.Mat) error {
	return v.writer.Write(frame)
}

func (v *videoSink) Close() error {
	return v.writer.Close()
}
