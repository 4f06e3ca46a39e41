package analysis

import (
	"context"
	"fmt"

	"github.com/pulseline/pulseline-go/internal/audio"
	"github.com/pulseline/pulseline-go/internal/conf"
	"github.com/pulseline/pulseline-go/internal/detect"
	"github.com/pulseline/pulseline-go/internal/pipeline"
)

// FileAnalysis runs beat detection over a WAV or FLAC file and reports the
// results as if the file had been captured live.
func FileAnalysis(settings *conf.Settings) error {
	sampleRate, err := audio.ProbeSampleRate(settings.Input)
	if err != nil {
		return err
	}

	backend := audio.NewFileBackend(settings.Input)

	detector, err := detect.NewAnalyzer(detect.Config{
		SampleRate:  sampleRate,
		WindowSize:  settings.Audio.WindowSize,
		Sensitivity: settings.Detection.Sensitivity,
		MinBPM:      settings.Detection.MinBPM,
		MaxBPM:      settings.Detection.MaxBPM,
		Pitch:       settings.Detection.Pitch,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Analyzing %s (%d Hz, window %d)\n",
		settings.Input, sampleRate, settings.Audio.WindowSize)

	p := pipeline.New(settings, backend, detector)

	if err := p.Initialize(context.Background()); err != nil {
		return err
	}

	pipeline.Register(p.Coordinator())
	defer pipeline.Unregister(p.Coordinator())

	stop := notifyOnSignals()
	defer stop()

	return p.Run(context.Background())
}
