// defaults.go: default configuration values applied before the config file is read
package conf

import (
	"github.com/spf13/viper"
)

// setDefaultConfig sets viper defaults for every configuration parameter.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("audio.source", "sysdefault")
	viper.SetDefault("audio.windowsize", DefaultWindowSize)

	viper.SetDefault("detection.pitch", false)
	viper.SetDefault("detection.sensitivity", 4.0)
	viper.SetDefault("detection.minbpm", 40.0)
	viper.SetDefault("detection.maxbpm", 240.0)

	viper.SetDefault("realtime.processingtime", false)
	viper.SetDefault("realtime.visual", true)
	viper.SetDefault("realtime.stats", true)

	viper.SetDefault("realtime.log.enabled", true)
	viper.SetDefault("realtime.log.path", ".")

	viper.SetDefault("realtime.export.enabled", false)
	viper.SetDefault("realtime.export.path", "clips/")
	viper.SetDefault("realtime.export.mininterval", 10)

	viper.SetDefault("realtime.mqtt.enabled", false)
	viper.SetDefault("realtime.mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("realtime.mqtt.topic", "pulseline/events")
	viper.SetDefault("realtime.mqtt.username", "")
	viper.SetDefault("realtime.mqtt.password", "")
	viper.SetDefault("realtime.mqtt.retain", false)

	viper.SetDefault("realtime.telemetry.enabled", false)
	viper.SetDefault("realtime.telemetry.listen", "0.0.0.0:8090")
}
