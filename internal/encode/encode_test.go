package encode

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/blacktop/sceneforge/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// minimal PNG header, enough for content sniffing
var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00\x90w\x53\xde")

func TestFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("png by extension", func(t *testing.T) {
		path := filepath.Join(dir, "hero.png")
		require.NoError(t, os.WriteFile(path, pngBytes, 0644))

		got, err := File(path)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(got, "data:image/png;base64,"))

		data, mediaType, err := Decode(got)
		require.NoError(t, err)
		assert.Equal(t, "image/png", mediaType)
		assert.Equal(t, pngBytes, data)
	})

	t.Run("sniffed when extension unknown", func(t *testing.T) {
		path := filepath.Join(dir, "hero")
		require.NoError(t, os.WriteFile(path, pngBytes, 0644))

		got, err := File(path)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(got, "data:image/png;base64,"))
	})

	t.Run("rejects text file", func(t *testing.T) {
		path := filepath.Join(dir, "notes.txt")
		require.NoError(t, os.WriteFile(path, []byte("hello"), 0644))

		_, err := File(path)
		require.Error(t, err)
		assert.ErrorIs(t, err, apperr.ErrValidation)
		assert.Equal(t, ErrNotImage, err.Error())
	})

	t.Run("rejects sniffed non-image", func(t *testing.T) {
		path := filepath.Join(dir, "blob")
		require.NoError(t, os.WriteFile(path, []byte("just some text"), 0644))

		_, err := File(path)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := File(filepath.Join(dir, "nope.png"))
		require.Error(t, err)
		assert.NotErrorIs(t, err, apperr.ErrValidation)
	})
}

func TestReaderDeclaredType(t *testing.T) {
	_, err := Reader("photo.png", "application/pdf", strings.NewReader("x"))
	assert.ErrorIs(t, err, apperr.ErrValidation)

	got, err := Reader("upload", "image/jpeg", strings.NewReader("jpegdata"))
	require.NoError(t, err)
	assert.Equal(t, "data:image/jpeg;base64,anBlZ2RhdGE=", got)
}

func TestPayload(t *testing.T) {
	assert.Equal(t, "iVBORw0KG", Payload("data:image/png;base64,iVBORw0KG"))
	assert.Equal(t, "iVBORw0KG", Payload("iVBORw0KG"))
	assert.Equal(t, "", Payload("data:image/png;base64,"))
}

func TestDecodeInvalid(t *testing.T) {
	_, _, err := Decode("iVBORw0KG")
	assert.Error(t, err)
	_, _, err = Decode("data:image/png,plain")
	assert.Error(t, err)
	_, _, err = Decode("data:image/png;base64,!!!")
	assert.Error(t, err)
}
