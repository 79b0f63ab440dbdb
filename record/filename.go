// Package record manages active capture to file sessions. A session owns
// a video sink and an attention data accumulator, composites multi camera
// frames into a grid layout, and yields an immutable summary on stop.
package record

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// defaultBaseName is used when no custom recording name is supplied
const defaultBaseName = "conference"

const timestampLayout = "20060102_150405"

// sanitizeName makes a user supplied recording name safe for use in a
// filename
func sanitizeName(name string) string {
	r := strings.NewReplacer(" ", "_", "/", "_", "\\", "_")
	return r.Replace(name)
}

func cameraSuffix(cameraIDs []int) string {

	parts := make([]string, len(cameraIDs))

	for i, id := range cameraIDs {
		parts[i] = strconv.Itoa(id)
	}

	return strings.Join(parts, "_")
}

// outputFilename builds a timestamped recording filename. A collision
// with an existing file in dir gets a random suffix appended
func outputFilename(dir, customName string, cameraIDs []int,
	now time.Time) string {

	base := defaultBaseName

	if customName != "" {
		base = sanitizeName(customName)
	}

	var name string

	if len(cameraIDs) > 0 {
		name = fmt.Sprintf("%s_multi_camera_%s_%s.mp4",
			base, cameraSuffix(cameraIDs), now.Format(timestampLayout))
	} else {
		name = fmt.Sprintf("%s_single_camera_%s.mp4",
			base, now.Format(timestampLayout))
	}

	path := filepath.Join(dir, name)

	if _, err := os.Stat(path); err == nil {
		suffix := uuid.NewString()[:8]
		name = strings.TrimSuffix(name, ".mp4") + "_" + suffix + ".mp4"
		path = filepath.Join(dir, name)
	}

	return path
}
