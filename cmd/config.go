package cmd

import (
	"context"
	"os"
	"strings"

	"github.com/blacktop/sceneforge/internal/export"
	"github.com/blacktop/sceneforge/internal/gemini"
	"github.com/blacktop/sceneforge/internal/session"
	"github.com/joho/godotenv"
)

const logFile = "sceneforge.log"

// credential env vars, in order of precedence
var apiKeyEnv = []string{"API_KEY", "GEMINI_API_KEY"}

type config struct {
	ApiKey        string
	Model         string
	OutputFolder  string
	Prefix        string
	Prompt        string
	ReferenceFile string
}

// loadConfig merges flags with the environment. A .env file in the working
// directory is loaded when present; it never overrides variables already set.
func loadConfig() *config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("Error loading .env file", "err", err)
	}
	return &config{
		ApiKey:        resolveAPIKey(apiKey),
		Model:         geminiModel,
		OutputFolder:  outputFolder,
		Prefix:        filePrefix,
		Prompt:        prompt,
		ReferenceFile: referenceFile,
	}
}

func resolveAPIKey(flag string) string {
	if k := strings.TrimSpace(flag); k != "" {
		return k
	}
	for _, env := range apiKeyEnv {
		if k := strings.TrimSpace(os.Getenv(env)); k != "" {
			return k
		}
	}
	return ""
}

// app wires the session to its collaborators.
type app struct {
	client   *gemini.Client
	ctrl     *session.Controller
	exporter *export.Exporter
}

func newApp(ctx context.Context, c *config) (*app, error) {
	if c.ApiKey == "" {
		// not fatal here: every generation reports it
		logger.Warn("No API key found", "env", strings.Join(apiKeyEnv, ", "))
	}
	client, err := gemini.NewClient(ctx, c.ApiKey,
		gemini.WithModel(c.Model),
		gemini.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	a := &app{
		client:   client,
		ctrl:     session.New(client, session.WithLogger(logger)),
		exporter: export.New(export.DirSink{Dir: c.OutputFolder}, export.WithPrefix(c.Prefix), export.WithLogger(logger)),
	}
	a.ctrl.SetPrompt(c.Prompt)
	if c.ReferenceFile != "" {
		if err := a.ctrl.AttachFile(c.ReferenceFile); err != nil {
			return nil, err
		}
	}
	return a, nil
}
