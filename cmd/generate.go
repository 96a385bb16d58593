package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var count int

// generateCmd runs generations without the TUI and saves the results.
var generateCmd = &cobra.Command{
	Use:     "generate",
	Aliases: []string{"gen"},
	Short:   "Generate images and save them without the TUI",
	Example: `  sceneforge generate -p "a futuristic samurai on a neon rooftop in the rain"
  sceneforge gen -p "the same character at the beach" -r hero.png -n 3 -o out/`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if count < 1 {
			return fmt.Errorf("--count must be at least 1")
		}
		conf := loadConfig()
		a, err := newApp(cmd.Context(), conf)
		if err != nil {
			return err
		}
		var genErr error
		for i := range count {
			logger.Info("Generating image", "n", i+1, "of", count, "reference", conf.ReferenceFile != "")
			if _, genErr = a.ctrl.Generate(cmd.Context()); genErr != nil {
				break
			}
		}

		// whatever succeeded before a failure is still saved
		paths, err := a.exporter.All(cmd.Context(), a.ctrl.State().History)
		for _, p := range paths {
			fmt.Fprintf(os.Stdout, "Image saved: %s\n", p)
		}
		if genErr != nil {
			return genErr
		}
		if err != nil {
			return fmt.Errorf("error saving images: %w", err)
		}
		return nil
	},
}

func init() {
	generateCmd.Flags().IntVarP(&count, "count", "n", 1, "Number of images to generate")
	rootCmd.AddCommand(generateCmd)
}
