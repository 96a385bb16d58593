// Package gemini wraps the single image generation call made against the
// Gemini API.
package gemini

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/blacktop/sceneforge/internal/apperr"
	"github.com/blacktop/sceneforge/internal/encode"
	"github.com/charmbracelet/log"
	"google.golang.org/genai"
)

const (
	DefaultModel = "gemini-2.5-flash-image"
	AspectRatio  = "1:1"

	referenceMIMEType = "image/png"
	outputMIMEType    = "image/png"
)

// User-facing failure messages.
const (
	MsgMissingKey = "API Key is missing."
	MsgNoImage    = "No image data found in the response. Please try again."
	MsgFailed     = "Failed to generate image."
)

// ContentGenerator is the part of the genai models service the client uses.
// *genai.Models satisfies it.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client generates one image per Generate call. It never retries and never
// caches.
type Client struct {
	apiKey string
	model  string
	models ContentGenerator
	logger *log.Logger
}

type Option func(*Client)

// WithModel overrides DefaultModel.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithContentGenerator replaces the genai models service.
func WithContentGenerator(g ContentGenerator) Option {
	return func(c *Client) { c.models = g }
}

// NewClient creates a client for apiKey. An empty key is not an error here:
// every Generate call then fails with a configuration error before touching
// the network.
func NewClient(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	c := &Client{
		apiKey: apiKey,
		model:  DefaultModel,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.models == nil && apiKey != "" {
		gc, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("error creating genai client: %w", err)
		}
		c.models = gc.Models
	}
	return c, nil
}

// Model returns the model identifier requests are sent to.
func (c *Client) Model() string { return c.model }

// Generate sends prompt, and the reference image payload when non-empty, and
// returns the first image in the response as a PNG data URL.
// referencePayload is base64 without a data URL header.
func (c *Client) Generate(ctx context.Context, prompt, referencePayload string) (string, error) {
	if c.apiKey == "" || c.models == nil {
		return "", apperr.Configuration(MsgMissingKey)
	}

	var parts []*genai.Part
	if referencePayload != "" {
		ref, err := base64.StdEncoding.DecodeString(referencePayload)
		if err != nil {
			return "", &apperr.Error{Kind: apperr.KindValidation, Msg: "Reference image is not valid base64.", Err: err}
		}
		parts = append(parts, genai.NewPartFromBytes(ref, referenceMIMEType))
	}
	parts = append(parts, genai.NewPartFromText(buildPrompt(prompt, referencePayload != "")))

	c.logger.Debug("Generating image", "model", c.model, "aspect", AspectRatio, "reference", referencePayload != "")

	resp, err := c.models.GenerateContent(ctx, c.model,
		[]*genai.Content{{Parts: parts}},
		&genai.GenerateContentConfig{
			ImageConfig: &genai.ImageConfig{AspectRatio: AspectRatio},
		},
	)
	if err != nil {
		c.logger.Error("Gemini image generation failed", "err", err)
		return "", apperr.Upstream(err, MsgFailed)
	}

	data, ok := firstImage(resp)
	if !ok {
		return "", apperr.EmptyResponse(MsgNoImage)
	}
	c.logger.Debug("Image generated", "bytes", len(data))
	return encode.DataURL(outputMIMEType, data), nil
}

// firstImage scans the first candidate's parts in order.
func firstImage(resp *genai.GenerateContentResponse) ([]byte, bool) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, false
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil {
		return nil, false
	}
	for _, part := range cand.Content.Parts {
		if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData.Data, true
		}
	}
	return nil, false
}
