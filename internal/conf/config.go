// config.go: This file contains the configuration for the PulseLine application. It defines the settings struct and functions to load and save the settings.
package conf

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/pulseline/pulseline-go/internal/errors"
)

// Audio capture format, fixed for the analysis chain.
const (
	SampleRate  = 44100 // samples per second
	NumChannels = 1     // mono capture
	BitDepth    = 16    // bits per sample

	MinWindowSize     = 64
	MaxWindowSize     = 8192
	DefaultWindowSize = 512
)

// LogSettings contains settings for the beat event log file.
type LogSettings struct {
	Enabled bool   // true to write a timestamped CSV log of detections
	Path    string // directory to place beat log files in
}

// ExportSettings contains settings for audio clip export.
type ExportSettings struct {
	Enabled     bool   // export a WAV snapshot of audio around detected beats
	Path        string // path to clip export directory
	MinInterval int    // minimum seconds between exported clips
}

// MQTTSettings contains settings for detection event publishing.
type MQTTSettings struct {
	Enabled  bool   // true to enable MQTT publishing of beat events
	Broker   string // MQTT broker URL, e.g. tcp://localhost:1883
	Topic    string // topic to publish events to
	Username string // MQTT username
	Password string // MQTT password
	Retain   bool   // true to retain messages at the broker
}

// TelemetrySettings contains settings for the Prometheus endpoint.
type TelemetrySettings struct {
	Enabled bool   // true to expose Prometheus metrics
	Listen  string // listen address and port, e.g. 0.0.0.0:8090
}

// AudioSettings contains settings for the capture device and windowing.
type AudioSettings struct {
	Source     string // audio capture source to use ("sysdefault", device name fragment, or ID)
	WindowSize int    // analysis window length in samples
}

// DetectionSettings contains settings for the detection primitive.
type DetectionSettings struct {
	Pitch       bool    // true to enable pitch estimation
	Sensitivity float64 // onset threshold multiplier, higher is less sensitive
	MinBPM      float64 // lower bound of the plausible tempo band
	MaxBPM      float64 // upper bound of the plausible tempo band
}

// RealtimeSettings contains settings for the realtime run loop and reporting.
type RealtimeSettings struct {
	ProcessingTime bool              // report per-window processing time in events
	Visual         bool              // render the rolling BPM meter on stdout
	Stats          bool              // print final statistics on shutdown
	Log            LogSettings       // beat log settings
	Export         ExportSettings    // clip export settings
	MQTT           MQTTSettings      // MQTT publishing settings
	Telemetry      TelemetrySettings // Prometheus telemetry settings
}

// Settings is the top level configuration structure.
type Settings struct {
	Debug     bool              // true to enable debug output
	Audio     AudioSettings     // capture and windowing settings
	Detection DetectionSettings // detection primitive settings
	Realtime  RealtimeSettings  // run loop and reporting settings
	Input     string            // path to input audio file, runtime value for file mode
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into a Settings instance.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}

	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	// Set default values for each configuration parameter
	// function defined in defaults.go
	setDefaultConfig()

	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// Config file not found, create config with defaults
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig creates a default config file and writes it to the default config path.
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")

	defaults := &Settings{}
	if err := viper.Unmarshal(defaults); err != nil {
		return fmt.Errorf("error unmarshaling default config: %w", err)
	}

	if err := SaveYAMLConfig(configPath, defaults); err != nil {
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("config_path", configPath).
			Build()
	}

	log.Printf("Created default config file at %s", configPath)
	return viper.ReadInConfig()
}

// GetDefaultConfigPaths returns the paths to search for a config file, most specific first.
func GetDefaultConfigPaths() ([]string, error) {
	paths := []string{"."}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		// No home directory, current directory only
		return paths, nil
	}

	paths = append(paths, filepath.Join(homeDir, ".config", "pulseline"))
	return paths, nil
}

// Setting returns the current settings instance, initializing it if necessary.
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			_, err := Load()
			if err != nil {
				log.Fatalf("Error loading settings: %v", err)
			}
		}
	})
	return GetSettings()
}

// GetSettings returns the current settings instance.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SaveYAMLConfig updates the YAML configuration file with new settings.
// It overwrites the existing file, not preserving comments or structure.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Write to a temporary file first to make the update atomic
	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary config file: %w", err)
	}
	tempName := tempFile.Name()

	if _, err := tempFile.Write(yamlData); err != nil {
		tempFile.Close()
		os.Remove(tempName)
		return fmt.Errorf("error writing temporary config file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		os.Remove(tempName)
		return fmt.Errorf("error closing temporary config file: %w", err)
	}

	if err := os.Rename(tempName, configPath); err != nil {
		os.Remove(tempName)
		return fmt.Errorf("error replacing config file: %w", err)
	}

	return nil
}
