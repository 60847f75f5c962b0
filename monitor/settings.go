package main

import (
	"fmt"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/linetracer/pkg/adcbridge"
)

// showSettingsDialog displays the telemetry and control settings.
// Control values are saved for the host runner and take effect on its next start.
func showSettingsDialog(state *appState) {
	tabs := container.NewAppTabs(
		createTelemetryTab(state),
		createControlTab(state),
	)

	content := container.NewBorder(nil, nil, nil, nil, tabs)
	content.Resize(fyne.NewSize(600, 500))

	d := dialog.NewCustom("Settings", "Close", content, state.window)
	d.Resize(fyne.NewSize(600, 500))
	d.Show()
}

func (state *appState) save() bool {
	if err := state.cfg.Validate(); err != nil {
		dialog.ShowError(err, state.window)
		return false
	}
	if err := state.cfg.Save(state.configPath); err != nil {
		dialog.ShowError(fmt.Errorf("failed to save config: %w", err), state.window)
		return false
	}
	return true
}

// portOptions lists the serial ports with the configured one always present.
func portOptions(current string) (options []string, names map[string]string, selected string) {
	names = make(map[string]string)
	if ports, err := adcbridge.Ports(); err == nil {
		for _, port := range ports {
			display := port.Name
			if port.Description != "" && port.Description != port.Name {
				display = fmt.Sprintf("%s (%s)", port.Name, port.Description)
			}
			options = append(options, display)
			names[display] = port.Name
			if port.Name == current {
				selected = display
			}
		}
	}
	if selected == "" && current != "" {
		options = append(options, current)
		names[current] = current
		selected = current
	}
	return options, names, selected
}

func createTelemetryTab(state *appState) *container.TabItem {
	options, names, selected := portOptions(state.cfg.Telemetry.SerialPort)
	portSelect := widget.NewSelect(options, nil)
	if selected != "" {
		portSelect.SetSelected(selected)
	}

	brokerEntry := widget.NewEntry()
	brokerEntry.SetText(state.cfg.Telemetry.MQTTBroker)
	brokerEntry.SetPlaceHolder("tcp://localhost:1883")

	topicEntry := widget.NewEntry()
	topicEntry.SetText(state.cfg.Telemetry.MQTTTopic)

	windowEntry := widget.NewEntry()
	windowEntry.SetText(strconv.FormatFloat(state.cfg.Telemetry.WindowSeconds, 'f', -1, 64))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Serial Port", Widget: portSelect},
			{Text: "MQTT Broker", Widget: brokerEntry},
			{Text: "MQTT Topic", Widget: topicEntry},
			{Text: "Window (s)", Widget: windowEntry},
		},
		OnSubmit: func() {
			window, err := strconv.ParseFloat(windowEntry.Text, 64)
			if err != nil || window <= 0 {
				dialog.ShowError(fmt.Errorf("invalid window: %q", windowEntry.Text), state.window)
				return
			}

			port := names[portSelect.Selected]
			if port == "" {
				port = portSelect.Selected
			}
			changed := port != state.cfg.Telemetry.SerialPort ||
				brokerEntry.Text != state.cfg.Telemetry.MQTTBroker ||
				topicEntry.Text != state.cfg.Telemetry.MQTTTopic
			wasConnected := state.src != nil

			state.cfg.Telemetry.SerialPort = port
			state.cfg.Telemetry.MQTTBroker = brokerEntry.Text
			state.cfg.Telemetry.MQTTTopic = topicEntry.Text
			state.cfg.Telemetry.WindowSeconds = window
			if !state.save() {
				return
			}

			if changed && wasConnected {
				state.disconnect()
				state.handleConnect()
			}
		},
	}

	return container.NewTabItem("Telemetry", form)
}

func createControlTab(state *appState) *container.TabItem {
	c := &state.cfg.Control

	kpEntry := floatEntry(c.Kp)
	kiEntry := floatEntry(c.Ki)
	kdEntry := floatEntry(c.Kd)
	neutralEntry := widget.NewEntry()
	neutralEntry.SetText(strconv.Itoa(int(c.NeutralSpeed)))
	maxEntry := widget.NewEntry()
	maxEntry.SetText(strconv.Itoa(int(c.DutyMax)))
	symmetric := widget.NewCheck("Floor the integral too", nil)
	symmetric.SetChecked(c.SymmetricClamp)

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Kp", Widget: kpEntry},
			{Text: "Ki", Widget: kiEntry},
			{Text: "Kd", Widget: kdEntry},
			{Text: "Neutral speed", Widget: neutralEntry},
			{Text: "Duty max", Widget: maxEntry},
			{Text: "Symmetric clamp", Widget: symmetric},
		},
		OnSubmit: func() {
			next := *c
			var err error
			if next.Kp, err = parseFloat32(kpEntry.Text); err != nil {
				dialog.ShowError(err, state.window)
				return
			}
			if next.Ki, err = parseFloat32(kiEntry.Text); err != nil {
				dialog.ShowError(err, state.window)
				return
			}
			if next.Kd, err = parseFloat32(kdEntry.Text); err != nil {
				dialog.ShowError(err, state.window)
				return
			}
			if next.NeutralSpeed, err = parseInt32(neutralEntry.Text); err != nil {
				dialog.ShowError(err, state.window)
				return
			}
			if next.DutyMax, err = parseInt32(maxEntry.Text); err != nil {
				dialog.ShowError(err, state.window)
				return
			}
			next.SymmetricClamp = symmetric.Checked

			prev := *c
			*c = next
			if !state.save() {
				*c = prev
			}
		},
	}

	return container.NewTabItem("Control", form)
}

func floatEntry(v float32) *widget.Entry {
	e := widget.NewEntry()
	e.SetText(strconv.FormatFloat(float64(v), 'g', -1, 32))
	return e
}

func parseFloat32(s string) (float32, error) {
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return float32(v), nil
}

func parseInt32(s string) (int32, error) {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", s)
	}
	return int32(v), nil
}
