package main

import (
	"flag"
	"fmt"
	"log"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/linetracer/pkg/config"
	"github.com/itohio/linetracer/pkg/scope"
	"github.com/itohio/linetracer/pkg/telemetry"
)

func main() {
	var (
		portFlag   = flag.String("p", "", "Telemetry serial port override (e.g., COM3 or /dev/ttyACM0)")
		configFlag = flag.String("config", "config.yaml", "Configuration file path")
		mqttFlag   = flag.Bool("mqtt", false, "Read telemetry from the MQTT broker instead of a serial port")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *portFlag != "" {
		cfg.Telemetry.SerialPort = *portFlag
	}

	application := app.NewWithID("com.itohio.linetracer")

	window := application.NewWindow("Line Tracer Monitor")
	window.Resize(fyne.NewSize(1200, 800))
	window.CenterOnScreen()

	window.SetContent(newAppState(cfg, *configFlag, window, *mqttFlag).layout())
	window.ShowAndRun()
}

// appState holds the application state.
type appState struct {
	cfg        *config.Config
	configPath string
	window     fyne.Window
	useMQTT    bool

	history     *telemetry.History
	scopeWidget *scope.Widget
	connectBtn  *widget.Button
	status      *widget.Label

	src       *source
	processed chan struct{} // Closed when the history goroutine exits

	// Throttling for scope updates
	lastUpdateTime time.Time
	updateMu       sync.Mutex
}

func newAppState(cfg *config.Config, configPath string, window fyne.Window, useMQTT bool) *appState {
	state := &appState{
		cfg:         cfg,
		configPath:  configPath,
		window:      window,
		useMQTT:     useMQTT,
		history:     telemetry.NewHistory(windowDuration(cfg)),
		scopeWidget: scope.New(windowDuration(cfg)),
		status:      widget.NewLabel("disconnected"),
	}

	// Throttle to ~60 FPS so a fast robot does not flood the UI thread.
	const updateInterval = 16 * time.Millisecond
	state.history.OnUpdate(func(frames []telemetry.Frame) {
		state.updateMu.Lock()
		now := time.Now()
		if now.Sub(state.lastUpdateTime) < updateInterval {
			state.updateMu.Unlock()
			return
		}
		state.lastUpdateTime = now
		state.updateMu.Unlock()

		text := statusText(frames)
		fyne.Do(func() {
			state.scopeWidget.UpdateData(frames)
			state.status.SetText(text)
		})
	})

	return state
}

func windowDuration(cfg *config.Config) time.Duration {
	return time.Duration(cfg.Telemetry.WindowSeconds * float64(time.Second))
}

// statusText summarizes the newest frame.
func statusText(frames []telemetry.Frame) string {
	if len(frames) == 0 {
		return "waiting for telemetry"
	}
	f := frames[len(frames)-1]
	return fmt.Sprintf("tick %d  dt %dms  offset %d  correction %.1f  integral %.3g  left %d  right %d",
		f.Tick, f.Elapsed, f.Offset, f.Correction, f.Integral, f.Left, f.Right)
}

// layout builds the toolbar and scope.
func (state *appState) layout() fyne.CanvasObject {
	state.connectBtn = widget.NewButtonWithIcon("", theme.LoginIcon(), func() {
		state.handleConnect()
	})
	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		showSettingsDialog(state)
	})

	toolbar := container.NewBorder(
		nil,
		nil,
		container.NewHBox(state.connectBtn, settingsBtn),
		nil,
		state.status,
	)

	return container.NewBorder(toolbar, nil, nil, nil, state.scopeWidget)
}

// handleConnect toggles the telemetry source.
func (state *appState) handleConnect() {
	if state.src != nil {
		state.disconnect()
		state.status.SetText("disconnected")
		return
	}

	var (
		src *source
		err error
	)
	if state.useMQTT {
		src, err = openMQTT(&state.cfg.Telemetry)
	} else {
		src, err = openSerial(state.cfg.Telemetry.SerialPort)
	}
	if err != nil {
		dialog.ShowError(err, state.window)
		return
	}

	state.src = src
	state.history.ResetShutdown()
	state.processed = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		state.history.Process(src.frames)
	}(state.processed)

	state.status.SetText("connected to " + src.name)
	log.Printf("Connected to %s", src.name)
}

// disconnect closes the source and waits for the history goroutine to drain.
func (state *appState) disconnect() {
	if state.src == nil {
		return
	}
	state.src.Close()
	<-state.processed
	log.Printf("Disconnected from %s", state.src.name)
	state.src = nil
}
