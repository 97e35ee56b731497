package source

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

type Mode string

const (
	ModeWebcam Mode = "Webcam"
	ModeFile   Mode = "Video File"
)

// Modes lists the selectable modes in display order.
var Modes = []string{string(ModeWebcam), string(ModeFile)}

// VideoExtensions are offered by the file picker. Other files are accepted if
// OpenCV can read them.
var VideoExtensions = []string{".mp4", ".avi", ".mov"}

var ErrNoFileSelected = errors.New("no file selected")

// Selection is the outcome of the source selection form.
type Selection struct {
	Mode        Mode
	Path        string
	CameraIndex int
}

func (s Selection) String() string {
	if s.Mode == ModeFile {
		return fmt.Sprintf("%v %q", s.Mode, s.Path)
	}
	return fmt.Sprintf("%v %d", s.Mode, s.CameraIndex)
}

// Open opens the selected source. A file selection without a path yields
// ErrNoFileSelected and never touches the opener.
func (s Selection) Open(o Opener) (Source, error) {
	switch s.Mode {
	case ModeWebcam:
		return o.OpenCamera(s.CameraIndex)
	case ModeFile:
		if s.Path == "" {
			return nil, ErrNoFileSelected
		}
		if !HasVideoExtension(s.Path) {
			log.Warnf("%v does not look like a video file, trying anyway", s.Path)
		}
		return o.OpenFile(s.Path)
	default:
		return nil, fmt.Errorf("unknown source mode %q", s.Mode)
	}
}

func HasVideoExtension(path string) bool {
	ext := extension(path)
	for _, e := range VideoExtensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

func extension(path string) string {
	return filepath.Ext(path)
}
