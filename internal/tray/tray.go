// Package tray shows the agent in the system tray
package tray

import (
	"sync"

	"github.com/getlantern/systray"
	"go.uber.org/zap"
)

const tooltip = "Pondok Tracker"

// Tray is the tray icon with "Open dashboard" and "Quit" items
type Tray struct {
	dashboardURL string
	openBrowser  func(url string) error
	onQuit       func()
	logger       *zap.Logger
	quitOnce     sync.Once
}

// New creates a tray. openBrowser opens the dashboard; onQuit is called
// once when the user picks "Quit".
func New(dashboardURL string, openBrowser func(url string) error, onQuit func(), logger *zap.Logger) *Tray {
	return &Tray{
		dashboardURL: dashboardURL,
		openBrowser:  openBrowser,
		onQuit:       onQuit,
		logger:       logger,
	}
}

// Run shows the tray and blocks until Quit. It must be called from the
// main goroutine.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {
		t.logger.Info("Tray closed")
	})
}

// Quit removes the tray icon and makes Run return
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle(tooltip)
	systray.SetTooltip(tooltip)

	openItem := systray.AddMenuItem("Open dashboard", "Open the Pondok Informatika dashboard")
	systray.AddSeparator()
	quitItem := systray.AddMenuItem("Quit", "Stop tracking and quit")

	go func() {
		for {
			select {
			case <-openItem.ClickedCh:
				t.openDashboard()
			case <-quitItem.ClickedCh:
				t.quit()
				return
			}
		}
	}()

	t.logger.Info("Tray ready")
}

func (t *Tray) openDashboard() {
	if err := t.openBrowser(t.dashboardURL); err != nil {
		t.logger.Warn("Failed to open dashboard",
			zap.String("url", t.dashboardURL),
			zap.Error(err),
		)
	}
}

func (t *Tray) quit() {
	t.quitOnce.Do(func() {
		t.logger.Info("Quit requested from tray")
		if t.onQuit != nil {
			t.onQuit()
		}
	})
}
