// Package realtime provides the live capture subcommand.
package realtime

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pulseline/pulseline-go/internal/analysis"
	"github.com/pulseline/pulseline-go/internal/conf"
)

// Command creates a new command for real-time beat detection.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "realtime",
		Short: "Detect beats in realtime mode",
		Long:  "Capture audio from a sound device and detect beats, onsets and pitch in real time.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return analysis.RealtimeAnalysis(settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

// setupFlags configures flags specific to the realtime command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVar(&settings.Audio.Source, "source", viper.GetString("audio.source"), "Audio capture source (\"sysdefault\", \"USB Audio\", \":0,0\", etc.)")
	cmd.Flags().BoolVar(&settings.Realtime.ProcessingTime, "processingtime", viper.GetBool("realtime.processingtime"), "Report processing time for each detection")
	cmd.Flags().BoolVar(&settings.Realtime.Visual, "visual", viper.GetBool("realtime.visual"), "Render the rolling BPM meter on stdout")
	cmd.Flags().BoolVar(&settings.Realtime.Stats, "stats", viper.GetBool("realtime.stats"), "Print final statistics on shutdown")
	cmd.Flags().BoolVar(&settings.Realtime.Log.Enabled, "beatlog", viper.GetBool("realtime.log.enabled"), "Write a timestamped CSV log of detections")
	cmd.Flags().StringVar(&settings.Realtime.Log.Path, "logpath", viper.GetString("realtime.log.path"), "Directory to save beat log files in")
	cmd.Flags().StringVar(&settings.Realtime.Export.Path, "clippath", viper.GetString("realtime.export.path"), "Path to save audio clips")
	cmd.Flags().BoolVar(&settings.Realtime.Telemetry.Enabled, "telemetry", viper.GetBool("realtime.telemetry.enabled"), "Enable Prometheus telemetry endpoint")
	cmd.Flags().StringVar(&settings.Realtime.Telemetry.Listen, "listen", viper.GetString("realtime.telemetry.listen"), "Listen address and port of telemetry endpoint")
	cmd.Flags().StringVar(&settings.Realtime.MQTT.Broker, "broker", viper.GetString("realtime.mqtt.broker"), "MQTT broker URL to publish beat events to")
	cmd.Flags().StringVar(&settings.Realtime.MQTT.Topic, "topic", viper.GetString("realtime.mqtt.topic"), "MQTT topic to publish beat events to")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
