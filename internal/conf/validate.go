// validate.go: settings validation applied after unmarshaling
package conf

import (
	"github.com/pulseline/pulseline-go/internal/errors"
)

// ValidateSettings checks loaded settings for values the pipeline cannot run with.
func ValidateSettings(settings *Settings) error {
	if settings.Audio.WindowSize < MinWindowSize || settings.Audio.WindowSize > MaxWindowSize {
		return errors.Newf("window size %d out of range [%d, %d]",
			settings.Audio.WindowSize, MinWindowSize, MaxWindowSize).
			Component("conf").
			Category(errors.CategoryValidation).
			Context("window_size", settings.Audio.WindowSize).
			Build()
	}

	if settings.Detection.MinBPM <= 0 || settings.Detection.MaxBPM <= settings.Detection.MinBPM {
		return errors.Newf("invalid tempo band [%.1f, %.1f]",
			settings.Detection.MinBPM, settings.Detection.MaxBPM).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}

	if settings.Detection.Sensitivity <= 1.0 {
		return errors.Newf("detection sensitivity %.2f must be greater than 1.0",
			settings.Detection.Sensitivity).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}

	if settings.Realtime.Export.Enabled && settings.Realtime.Export.Path == "" {
		return errors.Newf("clip export enabled but no export path configured").
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}

	if settings.Realtime.MQTT.Enabled && settings.Realtime.MQTT.Broker == "" {
		return errors.Newf("MQTT publishing enabled but no broker configured").
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}

	return nil
}
