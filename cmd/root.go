/*
Copyright © 2024-2025 blacktop

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	// flags
	logger        *log.Logger
	verbose       bool
	apiKey        string
	geminiModel   string
	outputFolder  string
	filePrefix    string
	prompt        string
	referenceFile string
	// choices
	validModels = []string{
		"gemini-2.5-flash-image",
		"gemini-2.5-flash-image-preview",
		"gemini-3-pro-image-preview",
	}
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sceneforge",
	Short: "Consistent-character scene generator TUI (Gemini)",
	Args:  cobra.NoArgs,
	// errors are reported through the logger in Execute
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			logger.SetLevel(log.DebugLevel)
		}
		if !slices.Contains(validModels, geminiModel) {
			return fmt.Errorf("invalid model %q (must be one of: %s)", geminiModel, strings.Join(validModels, ", "))
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		// the alt screen owns the terminal, so logs go to a file or nowhere
		if verbose {
			f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				logger.Error("Error opening log file", "err", err)
				os.Exit(1)
			}
			defer f.Close()
			logger.SetOutput(f)
		} else {
			logger.SetOutput(io.Discard)
		}

		conf := loadConfig()
		a, err := newApp(cmd.Context(), conf)
		if err != nil {
			logger.SetOutput(os.Stderr)
			logger.Error("Error initializing", "err", err)
			os.Exit(1)
		}

		p := tea.NewProgram(newModel(cmd.Context(), a, conf), tea.WithAltScreen())
		m, err := p.Run()
		logger.SetOutput(os.Stderr)
		if err != nil {
			logger.Error("Error running program", "err", err)
			os.Exit(1)
		}
		if m, ok := m.(model); ok {
			if n := len(m.app.ctrl.State().History); n > 0 {
				logger.Info("Session ended", "images", n, "saved", m.savedCount)
			}
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		logger.Error("Error", "err", err)
		os.Exit(1)
	}
}

func init() {
	// Override the default error level style.
	styles := log.DefaultStyles()
	styles.Levels[log.ErrorLevel] = lipgloss.NewStyle().
		SetString("ERROR!!").
		Padding(0, 1, 0, 1).
		Background(lipgloss.Color("204")).
		Foreground(lipgloss.Color("0"))
	// Add a custom style for key `err`
	styles.Keys["err"] = lipgloss.NewStyle().Foreground(lipgloss.Color("204"))
	styles.Values["err"] = lipgloss.NewStyle().Bold(true)
	logger = log.New(os.Stderr)
	logger.SetStyles(styles)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "V", false, "Verbose output")
	rootCmd.PersistentFlags().StringVarP(&apiKey, "api-key", "k", "", "Gemini API key (overrides API_KEY and GEMINI_API_KEY env vars)")
	rootCmd.PersistentFlags().StringVarP(&geminiModel, "model", "m", "gemini-2.5-flash-image", "Gemini image model")
	rootCmd.PersistentFlags().StringVarP(&outputFolder, "output", "o", "", "Output folder")
	rootCmd.PersistentFlags().StringVar(&filePrefix, "prefix", "sceneforge", "Saved file name prefix")
	rootCmd.PersistentFlags().StringVarP(&prompt, "prompt", "p", "", "Scene prompt")
	rootCmd.PersistentFlags().StringVarP(&referenceFile, "reference", "r", "", "Character reference image")
	rootCmd.MarkPersistentFlagDirname("output")
	rootCmd.MarkPersistentFlagFilename("reference", "png", "jpg", "jpeg", "webp", "gif")
}
