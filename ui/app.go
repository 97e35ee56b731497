package ui

import (
	"context"
	"errors"
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	log "github.com/sirupsen/logrus"

	"holecenter/ui/cwidget"
	"holecenter/video"
	"holecenter/video/sink"
	"holecenter/video/source"
)

const (
	fileErrorTitle   = "File Error"
	fileErrorMessage = "No file selected. Please select a video file or use the webcam."
)

// CenteringApp is the operator window: source selection on the left, the
// annotated feed on the right.
type CenteringApp struct {
	fyneApp fyne.App
	mainWin fyne.Window

	ctl     *video.Controller
	display *canvasDisplay
	ctx     context.Context

	cameraIndex int

	modeGroup   *widget.RadioGroup
	allFiles    *widget.Check
	cameraInput *cwidget.Input[int]
	startButton *widget.Button
	stopButton  *widget.Button
	statusLabel *widget.Label
	offsetLabel *widget.Label

	// pickFile asks the operator for a video file and calls back with the
	// chosen path, or "" if the dialog was cancelled.
	pickFile func(func(path string))
}

// Display returns the sink that renders into the app window. It must be set
// as the processor's Display before the app runs.
func (a *CenteringApp) Display() sink.Display {
	return a.display
}

// CreateApp builds the window around ctl. The controller's OnStateChange hook
// is taken over by the app.
func CreateApp(ctx context.Context, ctl *video.Controller, cameraIndex int) *CenteringApp {
	return newCenteringApp(ctx, app.New(), ctl, cameraIndex)
}

func newCenteringApp(ctx context.Context, fa fyne.App, ctl *video.Controller, cameraIndex int) *CenteringApp {
	a := &CenteringApp{
		fyneApp:     fa,
		mainWin:     fa.NewWindow(sink.WindowTitle),
		ctl:         ctl,
		display:     newCanvasDisplay(),
		ctx:         ctx,
		cameraIndex: cameraIndex,
	}
	a.pickFile = a.showFileDialog
	a.build()
	ctl.OnStateChange = func(s video.State) {
		if s == video.Running {
			a.display.drainKeys()
		}
		fyne.Do(func() { a.refreshControls(s) })
	}
	return a
}

func (a *CenteringApp) build() {
	a.modeGroup = widget.NewRadioGroup(source.Modes, func(string) {})
	a.modeGroup.Required = true
	a.modeGroup.SetSelected(string(source.ModeWebcam))

	a.allFiles = widget.NewCheck("All files", nil)

	a.cameraInput = cwidget.NewIntInput("Camera", a.cameraIndex, 0, func(i int) {
		a.cameraIndex = i
	})

	a.startButton = widget.NewButtonWithIcon("Start", theme.MediaPlayIcon(), a.start)
	a.stopButton = widget.NewButtonWithIcon("Stop", theme.MediaStopIcon(), a.stop)
	a.stopButton.Importance = widget.DangerImportance

	a.statusLabel = widget.NewLabel("")
	a.offsetLabel = widget.NewLabel("")

	sidebar := container.NewVBox(
		widget.NewLabelWithStyle("Video Source", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		a.modeGroup,
		a.allFiles,
		a.cameraInput,
		widget.NewSeparator(),
		a.startButton,
		a.stopButton,
		widget.NewSeparator(),
		a.statusLabel,
		a.offsetLabel,
	)

	split := container.NewHSplit(
		container.NewPadded(sidebar),
		container.NewPadded(a.display.image),
	)
	split.SetOffset(0.25)
	a.mainWin.SetContent(split)
	a.mainWin.Resize(fyne.NewSize(1100, 600))

	a.mainWin.Canvas().SetOnTypedRune(func(r rune) {
		if r == video.QuitKey && a.ctl.State() == video.Running {
			a.display.pressKey(video.QuitKey)
		}
	})
	a.mainWin.SetCloseIntercept(func() {
		a.ctl.Close()
		a.mainWin.Close()
	})

	a.refreshControls(a.ctl.State())
}

// Run shows the window and blocks until it is closed.
func (a *CenteringApp) Run() {
	a.mainWin.CenterOnScreen()
	a.mainWin.ShowAndRun()
}

func (a *CenteringApp) start() {
	switch source.Mode(a.modeGroup.Selected) {
	case source.ModeFile:
		a.pickFile(func(path string) {
			a.begin(source.Selection{Mode: source.ModeFile, Path: path})
		})
	default:
		a.begin(source.Selection{Mode: source.ModeWebcam, CameraIndex: a.cameraIndex})
	}
}

func (a *CenteringApp) begin(sel source.Selection) {
	if err := a.ctl.Choose(sel); err != nil {
		if errors.Is(err, source.ErrNoFileSelected) {
			dialog.NewCustom(fileErrorTitle, "OK", fileErrorContent(), a.mainWin).Show()
			return
		}
		log.Errorf("Failed to open %v: %v", sel, err)
		dialog.ShowError(err, a.mainWin)
		return
	}
	if err := a.ctl.Start(a.ctx); err != nil {
		dialog.ShowError(err, a.mainWin)
	}
}

func (a *CenteringApp) stop() {
	if err := a.ctl.Stop(); err != nil {
		log.Debugf("Stop ignored: %v", err)
	}
}

func (a *CenteringApp) showFileDialog(done func(string)) {
	d := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, a.mainWin)
			return
		}
		if reader == nil {
			done("")
			return
		}
		path := reader.URI().Path()
		reader.Close()
		done(path)
	}, a.mainWin)
	if f := a.fileFilter(); f != nil {
		d.SetFilter(f)
	}
	d.Show()
}

// fileFilter limits the picker to known video extensions unless "All files"
// is ticked.
func (a *CenteringApp) fileFilter() storage.FileFilter {
	if a.allFiles.Checked {
		return nil
	}
	return storage.NewExtensionFileFilter(source.VideoExtensions)
}

func fileErrorContent() fyne.CanvasObject {
	return container.NewHBox(
		widget.NewIcon(theme.ErrorIcon()),
		widget.NewLabel(fileErrorMessage),
	)
}

func (a *CenteringApp) refreshControls(s video.State) {
	if s == video.Running {
		a.startButton.Disable()
		a.stopButton.Enable()
		a.modeGroup.Disable()
		a.allFiles.Disable()
		a.cameraInput.Disable()
	} else {
		a.startButton.Enable()
		a.stopButton.Disable()
		a.modeGroup.Enable()
		a.allFiles.Enable()
		a.cameraInput.Enable()
	}
	status := fmt.Sprintf("Status: %v", s)
	if last := a.ctl.Last(); s == video.Stopped && last != nil {
		status = fmt.Sprintf("Status: %v (%v, %d frames)", s, last.Reason, last.Frames)
	}
	a.statusLabel.SetText(status)
}

// ReadingUpdated shows the latest offsets under the controls.
func (a *CenteringApp) ReadingUpdated(r *video.Reading) {
	text := "No hole detected"
	if len(r.Offsets) > 0 {
		text = r.Offsets[0].String()
		if len(r.Offsets) > 1 {
			text = fmt.Sprintf("%s (+%d more)", text, len(r.Offsets)-1)
		}
	}
	fyne.Do(func() {
		a.offsetLabel.SetText(text)
	})
}

// Quit closes the app from any goroutine.
func (a *CenteringApp) Quit() {
	fyne.Do(func() {
		a.ctl.Close()
		a.fyneApp.Quit()
	})
}
