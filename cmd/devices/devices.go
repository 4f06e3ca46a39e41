// Package devices provides the capture device listing subcommand.
package devices

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pulseline/pulseline-go/internal/audio"
)

// Command creates a command that lists available audio capture devices.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List available audio capture devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			infos, err := audio.ListAudioSources()
			if err != nil {
				return err
			}
			if len(infos) == 0 {
				fmt.Println("No audio capture devices found.")
				return nil
			}
			for _, info := range infos {
				fmt.Printf("%d: %s [%s]\n", info.Index, info.Name, info.ID)
			}
			return nil
		},
	}
}
