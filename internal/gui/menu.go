// Menu handler for application actions
package gui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"edge-gradient-stream/internal/io"
)

// MenuHandler handles menu and file dialog actions
type MenuHandler struct {
	window fyne.Window
	viewer *Viewer
	loader *io.ImageLoader
	logger *logrus.Logger

	onImageSelected func(string)
	onImageSaved    func(string)
	onSwitchCamera  func()
}

func NewMenuHandler(window fyne.Window, viewer *Viewer, loader *io.ImageLoader, logger *logrus.Logger) *MenuHandler {
	return &MenuHandler{
		window: window,
		viewer: viewer,
		loader: loader,
		logger: logger,
	}
}

func (mh *MenuHandler) GetMainMenu(cameraMode bool) *fyne.MainMenu {
	fileItems := []*fyne.MenuItem{}
	if !cameraMode {
		fileItems = append(fileItems, fyne.NewMenuItem("Open Image...", mh.OpenImage))
	}
	fileItems = append(fileItems,
		fyne.NewMenuItem("Save Result...", mh.SaveImage),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Exit", func() {
			mh.window.Close()
		}),
	)
	menus := []*fyne.Menu{fyne.NewMenu("File", fileItems...)}

	if cameraMode {
		menus = append(menus, fyne.NewMenu("Camera",
			fyne.NewMenuItem("Switch Front/Back", func() {
				if mh.onSwitchCamera != nil {
					mh.onSwitchCamera()
				}
			}),
		))
	}

	menus = append(menus, fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mh.showAbout),
	))
	return fyne.NewMainMenu(menus...)
}

// OpenImage asks for a still image and hands its path to the selection callback.
func (mh *MenuHandler) OpenImage() {
	mh.logger.Info("GUI: Opening file dialog for image selection")

	fileDialog := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			mh.showError("File Dialog Error", err)
			return
		}
		if reader == nil {
			return
		}
		path := reader.URI().Path()
		reader.Close()

		if mh.onImageSelected != nil {
			mh.onImageSelected(path)
		}
	}, mh.window)

	fileDialog.SetFilter(storage.NewExtensionFileFilter([]string{".jpg", ".jpeg", ".png", ".tiff", ".tif", ".bmp", ".webp"}))
	fileDialog.Show()
}

// SaveImage writes the image currently on display.
func (mh *MenuHandler) SaveImage() {
	img, _ := mh.viewer.Latest()
	if img == nil {
		mh.showError("No Image", fmt.Errorf("nothing has been processed yet"))
		return
	}

	fileDialog := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			mh.showError("File Dialog Error", err)
			return
		}
		if writer == nil {
			return
		}
		path := writer.URI().Path()
		writer.Close()

		if err := mh.loader.SaveImage(img, path); err != nil {
			mh.showError("Failed to Save Image", err)
			return
		}
		if mh.onImageSaved != nil {
			mh.onImageSaved(path)
		}
	}, mh.window)

	fileDialog.SetFileName("sobel.png")
	fileDialog.SetFilter(storage.NewExtensionFileFilter([]string{".png", ".jpg", ".jpeg", ".tiff", ".tif", ".bmp"}))
	fileDialog.Show()
}

func (mh *MenuHandler) showAbout() {
	content := container.NewVBox(
		widget.NewLabel("Edge Gradient Stream"),
		widget.NewSeparator(),
		widget.NewLabel("Sobel gradient magnitude over live camera frames"),
		widget.NewLabel("and still images, split across worker goroutines."),
		widget.NewSeparator(),
		widget.NewLabel("Built with Go, Fyne v2.6 and OpenCV"),
	)

	aboutDialog := dialog.NewCustom("About", "Close", content, mh.window)
	aboutDialog.Resize(fyne.NewSize(400, 220))
	aboutDialog.Show()
}

func (mh *MenuHandler) showError(title string, err error) {
	mh.logger.WithError(err).Error("GUI: " + title)
	dialog.ShowError(err, mh.window)
}

func (mh *MenuHandler) SetCallbacks(onImageSelected, onImageSaved func(string), onSwitchCamera func()) {
	mh.onImageSelected = onImageSelected
	mh.onImageSaved = onImageSaved
	mh.onSwitchCamera = onSwitchCamera
}
