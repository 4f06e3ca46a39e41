// Package pipeline wires audio capture, detection and event reporting into
// the realtime processing loop: the lock-free producer/consumer event
// queue, the BPM history, the stream lifecycle state machine, the
// signal-safe shutdown coordinator and the composition root binding them to
// an audio backend and a detection primitive.
//
// The package splits along the producer/consumer boundary: the backend's
// capture callback runs detection and pushes events into the queue, and a
// single consumer goroutine drains it to drive reporting, metrics,
// publishing and clip export. The two sides share nothing but the queue and
// a handful of atomics.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pulseline/pulseline-go/internal/audio"
	"github.com/pulseline/pulseline-go/internal/conf"
	"github.com/pulseline/pulseline-go/internal/detect"
	"github.com/pulseline/pulseline-go/internal/errors"
	"github.com/pulseline/pulseline-go/internal/logging"
	"github.com/pulseline/pulseline-go/internal/mqtt"
	"github.com/pulseline/pulseline-go/internal/observability"
)

const (
	// terminalWait bounds how long teardown waits for the backend's paused
	// notification before giving up and summarizing anyway.
	terminalWait = 2 * time.Second

	publishTimeout = 5 * time.Second
)

// Pipeline owns the full capture-to-report path for one run.
type Pipeline struct {
	settings *conf.Settings
	backend  audio.Backend
	detector detect.Detector
	adapter  *audio.WindowAdapter

	queue *EventQueue
	life  *Lifecycle
	coord *ShutdownCoordinator

	reporter *Reporter
	out      io.Writer
	log      *slog.Logger

	metrics    *observability.Metrics
	mqttClient mqtt.Client

	capture    *audio.CaptureBuffer
	lastExport time.Time

	// prodBPM is touched only by the capture callback, consBPM only by
	// the consumer loop. Events carry the producer's average across the
	// boundary so neither side ever reads the other's history.
	prodBPM *BPMHistory
	consBPM *BPMHistory

	stats       RunStats
	initialized bool
}

// New assembles a pipeline from the settings and its collaborators. Call
// Initialize before Run.
func New(settings *conf.Settings, backend audio.Backend, detector detect.Detector) *Pipeline {
	return &Pipeline{
		settings: settings,
		backend:  backend,
		detector: detector,
		queue:    NewEventQueue(DefaultQueueCapacity),
		life:     NewLifecycle(),
		coord:    NewShutdownCoordinator(DefaultPollInterval),
		out:      os.Stdout,
		log:      logging.ForService("pipeline"),
		prodBPM:  NewBPMHistory(DefaultBPMCapacity),
		consBPM:  NewBPMHistory(DefaultBPMCapacity),
	}
}

// SetOutput redirects console reporting, primarily for tests.
func (p *Pipeline) SetOutput(w io.Writer) { p.out = w }

// SetMetrics attaches Prometheus collectors to the run.
func (p *Pipeline) SetMetrics(m *observability.Metrics) { p.metrics = m }

// SetMQTTClient attaches an event publishing client.
func (p *Pipeline) SetMQTTClient(c mqtt.Client) { p.mqttClient = c }

// Lifecycle exposes the stream state machine for inspection.
func (p *Pipeline) Lifecycle() *Lifecycle { return p.life }

// Coordinator exposes the shutdown coordinator, e.g. for signal wiring.
func (p *Pipeline) Coordinator() *ShutdownCoordinator { return p.coord }

// Dropped reports how many events overflowed the queue so far.
func (p *Pipeline) Dropped() uint64 { return p.queue.Dropped() }

// Initialize opens the capture connection and prepares reporting. Failures
// here are fatal to the run; the backend is released before returning.
func (p *Pipeline) Initialize(ctx context.Context) error {
	adapter, err := audio.NewWindowAdapter(p.settings.Audio.WindowSize)
	if err != nil {
		return errors.New(err).
			Component("pipeline").
			Category(errors.CategoryValidation).
			Context("window_size", p.settings.Audio.WindowSize).
			Build()
	}
	p.adapter = adapter

	reporter, err := NewReporter(p.out,
		p.settings.Realtime.Visual,
		p.settings.Realtime.Log.Enabled,
		p.settings.Realtime.Log.Path)
	if err != nil {
		return err
	}
	p.reporter = reporter

	if p.settings.Realtime.Export.Enabled {
		buf, err := audio.NewCaptureBuffer(3)
		if err != nil {
			p.reporter.Close()
			return err
		}
		p.capture = buf
	}

	p.life.Transition(StateUnconnected, StateConnecting)

	if err := p.backend.Open(p.hooks()); err != nil {
		p.life.MarkErrored()
		p.reporter.Close()
		return errors.New(err).
			Component("pipeline").
			Category(errors.CategoryResource).
			Build()
	}

	if p.settings.Realtime.MQTT.Enabled && p.mqttClient != nil {
		cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := p.mqttClient.Connect(cctx); err != nil {
			// Publishing is best effort; the run proceeds without it.
			p.log.Warn("mqtt connect failed, continuing without publishing", "error", err)
		}
		cancel()
	}

	p.initialized = true
	return nil
}

// hooks builds the capture callback set. Ready and Process run on the
// backend's scheduler; the rest fire from backend lifecycle contexts.
func (p *Pipeline) hooks() audio.CaptureHooks {
	return audio.CaptureHooks{
		Ready: func() {
			if p.life.Transition(StateConnecting, StateStreaming) {
				p.log.Info("streaming", "sample_rate", p.backend.SampleRate())
			}
		},
		Process: p.processCapture,
		Error: func(err error) {
			p.log.Error("backend failed", "error", err)
			p.life.MarkErrored()
			p.coord.RequestQuit()
		},
		Paused: func() {
			p.life.ConfirmPaused()
		},
		Drained: func() {
			p.log.Info("input drained")
			p.coord.RequestQuit()
		},
		Destroyed: func() {
			p.life.MarkDestroyed()
		},
	}
}

// processCapture is the producer side: validate, window, detect, push.
// It never blocks and never propagates errors into the callback.
func (p *Pipeline) processCapture(rc *audio.RawCapture) {
	if p.life.Stopping() || p.coord.QuitRequested() {
		return
	}

	start := time.Now()

	samples, err := p.adapter.Convert(rc)
	if err != nil {
		// Malformed captures are counted and skipped; a bad buffer must
		// never take the stream down.
		if p.metrics != nil {
			p.metrics.Pipeline.IncValidationError(err.Error())
		}
		return
	}

	if p.capture != nil {
		p.capture.Write(rc.Data)
	}

	windows := 0
	for window := range p.adapter.Windows(samples) {
		res := p.detector.Detect(window)
		windows++
		if !res.Beat && !res.Onset {
			continue
		}
		if res.Beat {
			p.prodBPM.Record(res.BPM)
		}
		ev := Event{
			IsBeat:  res.Beat,
			IsOnset: res.Onset,
			BPM:     res.BPM,
			AvgBPM:  p.prodBPM.Average(),
			PitchHz: res.PitchHz,
		}
		if p.settings.Realtime.ProcessingTime {
			ev.ProcessMS = float64(time.Since(start).Microseconds()) / 1000.0
		}
		p.queue.TryPush(ev)
	}

	if p.metrics != nil && windows > 0 {
		p.metrics.Pipeline.AddWindowsProcessed(windows)
	}
}

// Run drives the consumer loop until a quit request, context cancellation,
// or backend failure ends the stream, then tears everything down.
func (p *Pipeline) Run(ctx context.Context) error {
	if !p.initialized {
		return errors.Newf("pipeline not initialized").
			Component("pipeline").
			Category(errors.CategoryState).
			Build()
	}

	p.coord.Watch()

	p.stats = RunStats{Start: time.Now()}

	if err := p.backend.Start(); err != nil {
		p.coord.StopWatcher()
		p.life.MarkErrored()
		p.backend.Close()
		p.reporter.Close()
		return errors.New(err).
			Component("pipeline").
			Category(errors.CategoryResource).
			Build()
	}

consume:
	for {
		select {
		case <-p.queue.Wake():
			p.drain()
		case <-p.coord.Done():
			p.Stop()
			break consume
		case <-ctx.Done():
			p.Stop()
			break consume
		}
	}

	if !p.life.AwaitTerminal(terminalWait) {
		p.log.Warn("stream did not reach a terminal state in time",
			"state", p.life.State().String())
	}
	// Final drain catches events published between the quit signal and
	// the backend going quiet.
	p.drain()

	p.coord.StopWatcher()

	if !p.life.Released() {
		p.backend.Close()
	}

	if p.mqttClient != nil && p.mqttClient.IsConnected() {
		p.mqttClient.Disconnect()
	}

	if p.settings.Realtime.Stats {
		p.reporter.Summary(&p.stats, p.consBPM.Average(), p.queue.Dropped())
	}
	if err := p.reporter.Close(); err != nil {
		p.log.Warn("closing beat log failed", "error", err)
	}

	if p.life.State() == StateErrored {
		return errors.Newf("stream ended with a backend error").
			Component("pipeline").
			Category(errors.CategoryAudio).
			Build()
	}
	return nil
}

// Stop requests an orderly shutdown. Safe to call repeatedly and from any
// goroutine; only the first call deactivates the backend.
func (p *Pipeline) Stop() {
	p.coord.RequestQuit()
	if p.life.BeginStop() {
		p.log.Info("stopping stream")
		p.backend.Deactivate()
	}
}

func (p *Pipeline) drain() {
	for _, ev := range p.queue.DrainAll() {
		p.handleEvent(ev)
	}
	if p.metrics != nil {
		p.metrics.Pipeline.SetDroppedEvents(p.queue.Dropped())
	}
}

func (p *Pipeline) handleEvent(ev Event) {
	p.stats.Observe(ev)
	if ev.IsBeat {
		p.consBPM.Record(ev.BPM)
	}

	p.reporter.Report(ev, ev.AvgBPM)

	if p.metrics != nil {
		if ev.IsBeat {
			p.metrics.Pipeline.IncEvent("beat")
			p.metrics.Pipeline.SetBPM(ev.BPM, ev.AvgBPM)
		}
		if ev.IsOnset {
			p.metrics.Pipeline.IncEvent("onset")
		}
		if p.settings.Realtime.ProcessingTime {
			p.metrics.Pipeline.ObserveProcessing(ev.ProcessMS)
		}
	}

	if ev.IsBeat {
		p.publishEvent(ev)
		p.maybeExportClip()
	}
}

// beatMessage is the JSON payload published per beat.
type beatMessage struct {
	Time    string  `json:"time"`
	BPM     float32 `json:"bpm"`
	AvgBPM  float32 `json:"avg_bpm"`
	Onset   bool    `json:"onset"`
	PitchHz float32 `json:"pitch_hz,omitempty"`
}

func (p *Pipeline) publishEvent(ev Event) {
	if p.mqttClient == nil || !p.mqttClient.IsConnected() {
		return
	}

	payload, err := json.Marshal(beatMessage{
		Time:    time.Now().Format(time.RFC3339Nano),
		BPM:     ev.BPM,
		AvgBPM:  ev.AvgBPM,
		Onset:   ev.IsOnset,
		PitchHz: ev.PitchHz,
	})
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := p.mqttClient.Publish(ctx, p.settings.Realtime.MQTT.Topic, string(payload)); err != nil {
		p.log.Warn("mqtt publish failed", "error", err)
		if p.metrics != nil {
			p.metrics.Pipeline.IncMQTTPublishError()
		}
	}
}

// maybeExportClip saves the recent capture audio as a WAV clip, rate
// limited by the configured minimum interval.
func (p *Pipeline) maybeExportClip() {
	if p.capture == nil {
		return
	}
	minInterval := time.Duration(p.settings.Realtime.Export.MinInterval) * time.Second
	if !p.lastExport.IsZero() && time.Since(p.lastExport) < minInterval {
		return
	}
	p.lastExport = time.Now()

	pcm := p.capture.Snapshot()
	if len(pcm) == 0 {
		return
	}

	name := fmt.Sprintf("beat_%s_%s.wav",
		time.Now().Format("20060102T150405"),
		strings.Split(uuid.New().String(), "-")[0])
	path := filepath.Join(p.settings.Realtime.Export.Path, name)

	go func() {
		if err := audio.SavePCMDataToWAV(path, pcm); err != nil {
			p.log.Warn("clip export failed", "path", path, "error", err)
			return
		}
		p.log.Info("clip exported", "path", path)
	}()
}
