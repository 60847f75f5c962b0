package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.bug.st/serial"

	"github.com/itohio/linetracer/pkg/adcbridge"
	"github.com/itohio/linetracer/pkg/button"
	"github.com/itohio/linetracer/pkg/calibration"
	"github.com/itohio/linetracer/pkg/config"
	"github.com/itohio/linetracer/pkg/hostio"
	"github.com/itohio/linetracer/pkg/motor"
	"github.com/itohio/linetracer/pkg/sensor"
	"github.com/itohio/linetracer/pkg/sim"
	"github.com/itohio/linetracer/pkg/telemetry"
	"github.com/itohio/linetracer/pkg/telemetry/mqttsink"
	"github.com/itohio/linetracer/pkg/telemetry/wshub"
	"github.com/itohio/linetracer/pkg/tick"
	"github.com/itohio/linetracer/pkg/tracer"
)

func main() {
	var (
		configFlag = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag   = flag.Bool("mock", false, "Simulate the sensor array, button and motors")
		portFlag   = flag.String("p", "", "ADC bridge serial port override")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}

	settings, err := settingsFrom(cfg)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, settings, *mockFlag); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Line tracer failed: %v", err)
	}
	log.Println("Line tracer stopped")
}

// rig is the hardware, or its simulation, the tracer runs against.
type rig struct {
	producer sensor.Producer
	button   button.Button
	output   motor.Output
	onPhase  func(calibration.Phase)
}

func run(ctx context.Context, cfg *config.Config, settings tracer.Settings, mock bool) error {
	clock := tick.NewSystem()

	var (
		r   *rig
		err error
	)
	if mock {
		r = mockRig(cfg, clock)
	} else {
		r, err = hardwareRig(cfg)
		if err != nil {
			return err
		}
	}

	if err := r.producer.Connect(); err != nil {
		return err
	}
	defer r.producer.Close()

	tr := tracer.New(r.producer.Buffer(), r.button, clock, r.output, settings)
	if r.onPhase != nil {
		tr.OnPhase(r.onPhase)
	}

	sinks, closeSinks, err := openSinks(ctx, &cfg.Telemetry)
	if err != nil {
		return err
	}
	defer closeSinks()

	if len(sinks) > 0 {
		publisher := telemetry.NewPublisher(64, sinks...)
		go publisher.Run(ctx)
		tr.OnUpdate(func(s tracer.Snapshot) {
			publisher.Offer(telemetry.FromSnapshot(s, time.Now()))
		})
	}

	log.Println("Waiting for calibration: press the button on the background")
	bounds, err := tr.Calibrate(ctx)
	if err != nil {
		return err
	}
	log.Printf("Calibrated: min %v max %v", bounds.Min, bounds.Max)

	return tr.Run(ctx)
}

// mockRig wires the simulated track to a scripted operator.
func mockRig(cfg *config.Config, clock tick.Clock) *rig {
	track := sim.NewTrack(&cfg.Mock)
	ms := func(d time.Duration) uint32 { return uint32(d / time.Millisecond) }

	return &rig{
		producer: track,
		button: button.OperatorScript(clock,
			ms(cfg.Calibration.Debounce),
			ms(cfg.Calibration.Settle),
			ms(cfg.Calibration.Window),
			ms(cfg.Mock.ButtonPress),
		),
		output: motor.NewRecorder(1000),
		onPhase: func(p calibration.Phase) {
			switch p {
			case calibration.PhaseArm, calibration.PhaseBackground:
				track.SetSurface(sim.SurfaceBackground)
			case calibration.PhaseRelease, calibration.PhaseMark:
				track.SetSurface(sim.SurfaceMark)
			case calibration.PhaseDone:
				track.SetSurface(sim.SurfaceTrack)
			}
		},
	}
}

// hardwareRig opens the ADC bridge and the periph GPIO lines.
func hardwareRig(cfg *config.Config) (*rig, error) {
	btn, err := hostio.OpenButton(cfg.HostIO.ButtonPin)
	if err != nil {
		return nil, err
	}
	drive, err := hostio.OpenDrive(cfg.HostIO, cfg.Control.DutyMax)
	if err != nil {
		return nil, err
	}
	log.Printf("Using ADC bridge on %s", cfg.Serial.Port)

	return &rig{
		producer: adcbridge.NewSerial(cfg.Serial.Port, cfg.Serial.BaudRate),
		button:   btn,
		output:   drive,
	}, nil
}

// openSinks opens every configured telemetry sink. The returned func closes them.
func openSinks(ctx context.Context, cfg *config.TelemetryConfig) ([]telemetry.Sink, func(), error) {
	var (
		sinks   []telemetry.Sink
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Every <= 0 {
		return nil, closeAll, nil
	}

	if cfg.SerialPort != "" {
		port, err := serial.Open(cfg.SerialPort, &serial.Mode{BaudRate: adcbridge.DefaultBaudRate})
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		sinks = append(sinks, telemetry.NewLineWriter(port))
		closers = append(closers, func() { port.Close() })
		log.Printf("Telemetry lines on %s", cfg.SerialPort)
	}

	if cfg.MQTTBroker != "" {
		s, err := mqttsink.Connect(cfg.MQTTBroker, cfg.MQTTClientID, cfg.MQTTTopic)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		sinks = append(sinks, s)
		closers = append(closers, s.Close)
	}

	if cfg.WebsocketAddr != "" {
		hub := wshub.NewHub()
		mux := http.NewServeMux()
		mux.Handle("/telemetry", hub)
		srv := &http.Server{Addr: cfg.WebsocketAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("Websocket server failed: %v", err)
			}
		}()
		sinks = append(sinks, hub)
		closers = append(closers, func() {
			hub.Close()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		})
		log.Printf("Telemetry websocket on ws://%s/telemetry", cfg.WebsocketAddr)
	}

	return sinks, closeAll, nil
}
