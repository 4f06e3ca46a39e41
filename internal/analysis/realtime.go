// Package analysis assembles the detection pipeline for each run mode.
package analysis

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/klauspost/cpuid/v2"
	"github.com/shirou/gopsutil/v3/host"

	"github.com/pulseline/pulseline-go/internal/audio"
	"github.com/pulseline/pulseline-go/internal/conf"
	"github.com/pulseline/pulseline-go/internal/detect"
	"github.com/pulseline/pulseline-go/internal/logging"
	"github.com/pulseline/pulseline-go/internal/mqtt"
	"github.com/pulseline/pulseline-go/internal/observability"
	"github.com/pulseline/pulseline-go/internal/pipeline"
)

// RealtimeAnalysis captures live audio and runs beat detection on it until
// a termination signal or a fatal backend error ends the stream.
func RealtimeAnalysis(settings *conf.Settings) error {
	log := logging.ForService("analysis")

	// Print platform details the way ops folks expect to see at startup.
	if info, err := host.Info(); err == nil {
		fmt.Printf("System details: %s %s %s\n", info.OS, info.Platform, info.PlatformVersion)
	}
	if cpuid.CPU.BrandName != "" {
		fmt.Printf("CPU: %s, %d logical cores\n", cpuid.CPU.BrandName, cpuid.CPU.LogicalCores)
	}

	backend := audio.NewMalgoBackend(settings.Audio.Source, settings.Debug)

	detector, err := detect.NewAnalyzer(detect.Config{
		SampleRate:  backend.SampleRate(),
		WindowSize:  settings.Audio.WindowSize,
		Sensitivity: settings.Detection.Sensitivity,
		MinBPM:      settings.Detection.MinBPM,
		MaxBPM:      settings.Detection.MaxBPM,
		Pitch:       settings.Detection.Pitch,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Starting beat detection in realtime mode. Window: %d, sample rate: %d Hz, sensitivity: %v, tempo band: %v-%v BPM, pitch: %v\n",
		settings.Audio.WindowSize,
		backend.SampleRate(),
		settings.Detection.Sensitivity,
		settings.Detection.MinBPM,
		settings.Detection.MaxBPM,
		settings.Detection.Pitch)

	p := pipeline.New(settings, backend, detector)

	if settings.Realtime.Telemetry.Enabled {
		metrics, err := observability.NewMetrics()
		if err != nil {
			return err
		}
		p.SetMetrics(metrics)

		endpoint := observability.NewEndpoint(settings.Realtime.Telemetry.Listen, metrics)
		endpoint.Start()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := endpoint.Shutdown(ctx); err != nil {
				log.Warn("metrics endpoint shutdown failed", "error", err)
			}
		}()
	}

	if settings.Realtime.MQTT.Enabled {
		client, err := mqtt.NewClient(settings)
		if err != nil {
			log.Warn("mqtt disabled", "error", err)
		} else {
			p.SetMQTTClient(client)
		}
	}

	if err := p.Initialize(context.Background()); err != nil {
		return err
	}

	pipeline.Register(p.Coordinator())
	defer pipeline.Unregister(p.Coordinator())

	stop := notifyOnSignals()
	defer stop()

	return p.Run(context.Background())
}

// notifyOnSignals installs the termination signal handler. The handler does
// nothing but flip the registered coordinator's quit flag; all real
// shutdown work happens on the consumer goroutine.
func notifyOnSignals() (stop func()) {
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	go func() {
		for range sigc {
			pipeline.RequestGlobalQuit()
		}
	}()
	return func() {
		signal.Stop(sigc)
		close(sigc)
	}
}
