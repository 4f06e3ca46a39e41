// Package cmd assembles the command line interface.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pulseline/pulseline-go/cmd/devices"
	"github.com/pulseline/pulseline-go/cmd/file"
	"github.com/pulseline/pulseline-go/cmd/realtime"
	"github.com/pulseline/pulseline-go/internal/conf"
)

// RootCommand creates and returns the root command.
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pulseline",
		Short: "PulseLine realtime beat detection CLI",
	}

	if err := setupFlags(rootCmd, settings); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(
		realtime.Command(settings),
		file.Command(settings),
		devices.Command(),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// Device listing needs no validated detection settings.
		if cmd.Name() == "devices" {
			return nil
		}
		return conf.ValidateSettings(settings)
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().IntVarP(&settings.Audio.WindowSize, "windowsize", "w", viper.GetInt("audio.windowsize"), "Analysis window length in samples")
	rootCmd.PersistentFlags().Float64VarP(&settings.Detection.Sensitivity, "sensitivity", "s", viper.GetFloat64("detection.sensitivity"), "Onset threshold multiplier, higher is less sensitive")
	rootCmd.PersistentFlags().Float64Var(&settings.Detection.MinBPM, "minbpm", viper.GetFloat64("detection.minbpm"), "Lower bound of the plausible tempo band")
	rootCmd.PersistentFlags().Float64Var(&settings.Detection.MaxBPM, "maxbpm", viper.GetFloat64("detection.maxbpm"), "Upper bound of the plausible tempo band")
	rootCmd.PersistentFlags().BoolVar(&settings.Detection.Pitch, "pitch", viper.GetBool("detection.pitch"), "Enable pitch estimation")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
