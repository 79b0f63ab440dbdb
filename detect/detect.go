// Package detect provides a person detector built on the OpenCV DNN
// module. It runs a YOLO style network over each frame and returns
// person boxes in frame coordinates.
package detect

import (
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"gazetrack/tracker"
)

const (
	// DefaultInputSize is the square network input resolution
	DefaultInputSize = 640
	// DefaultConfThreshold filters low scoring candidate boxes
	DefaultConfThreshold = 0.5
	// DefaultNMSThreshold is the non maximum suppression IoU threshold
	DefaultNMSThreshold = 0.45

	// personClassID is the person class index in the COCO label set
	personClassID = 0
)

// Config sets up a YOLO person detector
type Config struct {
	// WeightsPath is the network weights file
	WeightsPath string
	// ConfigPath is the optional network config file, unused for ONNX
	ConfigPath string
	// InputSize is the square input resolution, zero for the default
	InputSize int
	// ConfThreshold rejects candidates below this score, zero for the
	// default
	ConfThreshold float32
	// NMSThreshold is the suppression IoU threshold, zero for the
	// default
	NMSThreshold float32
}

// YOLO detects people in frames with an OpenCV DNN network. Safe for
// use from multiple goroutines, inference is serialized
type YOLO struct {
	net           gocv.Net
	inputSize     int
	confThreshold float32
	nmsThreshold  float32
	mu            sync.Mutex
}

// NewYOLO loads the network described by cfg
func NewYOLO(cfg Config) (*YOLO, error) {

	net := gocv.ReadNet(cfg.WeightsPath, cfg.ConfigPath)

	if net.Empty() {
		return nil, fmt.Errorf("failed to load network from %s", cfg.WeightsPath)
	}

	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	y := &YOLO{
		net:           net,
		inputSize:     cfg.InputSize,
		confThreshold: cfg.ConfThreshold,
		nmsThreshold:  cfg.NMSThreshold,
	}

	if y.inputSize == 0 {
		y.inputSize = DefaultInputSize
	}

	if y.confThreshold == 0 {
		y.confThreshold = DefaultConfThreshold
	}

	if y.nmsThreshold == 0 {
		y.nmsThreshold = DefaultNMSThreshold
	}

	return y, nil
}

// Detect returns person detections for the frame, boxes in frame
// coordinates
func (y *YOLO) Detect(frame gocv.Mat) ([]tracker.Detection, error) {

	if frame.Empty() {
		return nil, nil
	}

	y.mu.Lock()
	defer y.mu.Unlock()

	size := image.Pt(y.inputSize, y.inputSize)

	blob := gocv.BlobFromImage(frame, 1.0/255.0, size,
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	y.net.SetInput(blob, "")

	output := y.net.Forward("")
	defer output.Close()

	rows := output.Rows()
	cols := output.Cols()

	scaleX := float32(frame.Cols()) / float32(y.inputSize)
	scaleY := float32(frame.Rows()) / float32(y.inputSize)

	var boxes []image.Rectangle
	var scores []float32

	for i := 0; i < rows; i++ {

		objectness := output.GetFloatAt(i, 4)
		if objectness < y.confThreshold {
			continue
		}

		// class scores follow the box fields, person only
		personScore := output.GetFloatAt(i, 5+personClassID)

		best := personScore

		for c := 5; c < cols; c++ {
			if s := output.GetFloatAt(i, c); s > best {
				best = s
			}
		}

		if best != personScore {
			continue
		}

		score := objectness * personScore
		if score < y.confThreshold {
			continue
		}

		cx := output.GetFloatAt(i, 0) * float32(y.inputSize)
		cy := output.GetFloatAt(i, 1) * float32(y.inputSize)
		w := output.GetFloatAt(i, 2) * float32(y.inputSize)
		h := output.GetFloatAt(i, 3) * float32(y.inputSize)

		left := int((cx - w/2) * scaleX)
		top := int((cy - h/2) * scaleY)
		width := int(w * scaleX)
		height := int(h * scaleY)

		boxes = append(boxes, image.Rect(left, top, left+width, top+height))
		scores = append(scores, score)
	}

	if len(boxes) == 0 {
		return nil, nil
	}

	keep := gocv.NMSBoxes(boxes, scores, y.confThreshold, y.nmsThreshold)

	detections := make([]tracker.Detection, 0, len(keep))

	for _, idx := range keep {
		detections = append(detections, tracker.Detection{
			Box:   boxes[idx].Intersect(frameBounds(frame)),
			Score: float64(scores[idx]),
		})
	}

	return detections, nil
}

func frameBounds(frame gocv.Mat) image.Rectangle {
	return image.Rect(0, 0, frame.Cols(), frame.Rows())
}

// Close releases the network
func (y *YOLO) Close() error {
	return y.net.Close()
}
