package capture

import (
	"errors"
	"fmt"
	"strconv"

	"gocv.io/x/gocv"
)

// ErrCaptureFailure is returned when the source cannot deliver a frame.
var ErrCaptureFailure = errors.New("capture failure")

// Camera reads frames from a local device or a video file/stream URL.
type Camera struct {
	source string
	vc     *gocv.VideoCapture
}

// Open opens source. A numeric source is a device index, anything else is
// passed to OpenCV as a file name or URL (rtsp, http, ...).
func Open(source string) (*Camera, error) {
	var (
		vc  *gocv.VideoCapture
		err error
	)
	if id, convErr := strconv.Atoi(source); convErr == nil {
		vc, err = gocv.OpenVideoCapture(id)
	} else {
		vc, err = gocv.OpenVideoCapture(source)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %v", source, ErrCaptureFailure, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("open %s: %w", source, ErrCaptureFailure)
	}

	return &Camera{source: source, vc: vc}, nil
}

// Read grabs the next frame into frame.
func (c *Camera) Read(frame *gocv.Mat) error {
	if ok := c.vc.Read(frame); !ok {
		return fmt.Errorf("read %s: %w", c.source, ErrCaptureFailure)
	}
	if frame.Empty() {
		return fmt.Errorf("read %s: empty frame: %w", c.source, ErrCaptureFailure)
	}
	return nil
}

// Source is the device index or URL the camera was opened with.
func (c *Camera) Source() string {
	return c.source
}

func (c *Camera) Close() error {
	return c.vc.Close()
}
