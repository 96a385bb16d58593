package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/blacktop/sceneforge/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeModels struct {
	calls    int
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
	resp     *genai.GenerateContentResponse
	err      error
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls++
	f.model = model
	f.contents = contents
	f.config = config
	return f.resp, f.err
}

func imageResponse(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: parts}}},
	}
}

func newTestClient(t *testing.T, key string, fake *fakeModels) *Client {
	t.Helper()
	c, err := NewClient(context.Background(), key, WithContentGenerator(fake))
	require.NoError(t, err)
	return c
}

func TestGenerateMissingKey(t *testing.T) {
	fake := &fakeModels{}
	c := newTestClient(t, "", fake)

	for range 3 {
		_, err := c.Generate(context.Background(), "a red fox in snow", "")
		require.Error(t, err)
		assert.ErrorIs(t, err, apperr.ErrConfiguration)
		assert.Equal(t, "API Key is missing.", err.Error())
	}
	assert.Zero(t, fake.calls, "no request may be sent without a key")
}

func TestGeneratePromptOnly(t *testing.T) {
	png := []byte("\x89PNG-bytes")
	fake := &fakeModels{resp: imageResponse(
		&genai.Part{Text: "here you go"},
		&genai.Part{InlineData: &genai.Blob{MIMEType: "image/png", Data: png}},
		&genai.Part{InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte("second")}},
	)}
	c := newTestClient(t, "key", fake)

	got, err := c.Generate(context.Background(), "a red fox in snow", "")
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,"+base64.StdEncoding.EncodeToString(png), got)

	assert.Equal(t, 1, fake.calls)
	assert.Equal(t, DefaultModel, fake.model)
	require.NotNil(t, fake.config.ImageConfig)
	assert.Equal(t, "1:1", fake.config.ImageConfig.AspectRatio)

	require.Len(t, fake.contents, 1)
	parts := fake.contents[0].Parts
	require.Len(t, parts, 1)
	assert.Contains(t, parts[0].Text, `"a red fox in snow"`)
	assert.Contains(t, parts[0].Text, "NO WATERMARKS")
	assert.Contains(t, parts[0].Text, "cinematic")
	assert.NotContains(t, parts[0].Text, "CHARACTER REFERENCE")
}

func TestGenerateWithReference(t *testing.T) {
	ref := []byte("reference-image")
	fake := &fakeModels{resp: imageResponse(&genai.Part{InlineData: &genai.Blob{Data: []byte("out")}})}
	c := newTestClient(t, "key", fake)

	_, err := c.Generate(context.Background(), "on a neon rooftop", base64.StdEncoding.EncodeToString(ref))
	require.NoError(t, err)

	parts := fake.contents[0].Parts
	require.Len(t, parts, 2)
	require.NotNil(t, parts[0].InlineData)
	assert.Equal(t, "image/png", parts[0].InlineData.MIMEType)
	assert.Equal(t, ref, parts[0].InlineData.Data)
	assert.Contains(t, parts[1].Text, "CHARACTER REFERENCE")
	assert.Contains(t, parts[1].Text, "hair color")
	assert.Equal(t, 2, strings.Count(parts[1].Text, `"on a neon rooftop"`))
}

func TestGenerateKeepsPromptVerbatim(t *testing.T) {
	scene := "a samurai\non a \"neon\" rooftop\tat night"
	for _, withRef := range []bool{false, true} {
		fake := &fakeModels{resp: imageResponse(&genai.Part{InlineData: &genai.Blob{Data: []byte("out")}})}
		c := newTestClient(t, "key", fake)

		ref := ""
		if withRef {
			ref = base64.StdEncoding.EncodeToString([]byte("reference-image"))
		}
		_, err := c.Generate(context.Background(), scene, ref)
		require.NoError(t, err)

		parts := fake.contents[0].Parts
		text := parts[len(parts)-1].Text
		assert.Contains(t, text, `"`+scene+`"`)
		assert.NotContains(t, text, `\n`)
		assert.NotContains(t, text, `\"`)
		assert.NotContains(t, text, `\t`)
	}
}

func TestGenerateInvalidReference(t *testing.T) {
	fake := &fakeModels{}
	c := newTestClient(t, "key", fake)

	_, err := c.Generate(context.Background(), "scene", "%%%not-base64")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Zero(t, fake.calls)
}

func TestGenerateFailures(t *testing.T) {
	tests := []struct {
		name string
		fake *fakeModels
		is   error
		msg  string
	}{
		{
			name: "upstream error passes message through",
			fake: &fakeModels{err: errors.New("RESOURCE_EXHAUSTED: quota exceeded")},
			is:   apperr.ErrUpstream,
			msg:  "RESOURCE_EXHAUSTED: quota exceeded",
		},
		{
			name: "nil response",
			fake: &fakeModels{},
			is:   apperr.ErrEmptyResponse,
			msg:  MsgNoImage,
		},
		{
			name: "no candidates",
			fake: &fakeModels{resp: &genai.GenerateContentResponse{}},
			is:   apperr.ErrEmptyResponse,
			msg:  MsgNoImage,
		},
		{
			name: "candidate without content",
			fake: &fakeModels{resp: &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}},
			}},
			is:  apperr.ErrEmptyResponse,
			msg: MsgNoImage,
		},
		{
			name: "text only",
			fake: &fakeModels{resp: imageResponse(&genai.Part{Text: "I cannot draw that"})},
			is:   apperr.ErrEmptyResponse,
			msg:  MsgNoImage,
		},
		{
			name: "empty inline data",
			fake: &fakeModels{resp: imageResponse(&genai.Part{InlineData: &genai.Blob{MIMEType: "image/png"}})},
			is:   apperr.ErrEmptyResponse,
			msg:  MsgNoImage,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, "key", tt.fake)
			_, err := c.Generate(context.Background(), "scene", "")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.is)
			assert.Equal(t, tt.msg, err.Error())
			assert.Equal(t, 1, tt.fake.calls, "exactly one request, no retries")
		})
	}
}

func TestWithModel(t *testing.T) {
	fake := &fakeModels{resp: imageResponse(&genai.Part{InlineData: &genai.Blob{Data: []byte("x")}})}
	c, err := NewClient(context.Background(), "key", WithContentGenerator(fake), WithModel("gemini-3-pro-image-preview"))
	require.NoError(t, err)
	assert.Equal(t, "gemini-3-pro-image-preview", c.Model())

	_, err = c.Generate(context.Background(), "scene", "")
	require.NoError(t, err)
	assert.Equal(t, "gemini-3-pro-image-preview", fake.model)
}
