// Package encode turns local image files into data URLs and back.
package encode

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/blacktop/sceneforge/internal/apperr"
)

// ErrNotImage is the message shown when a non-image file is selected.
const ErrNotImage = "Please upload a valid image file."

const sniffLen = 512

// File reads the image at path and returns it as a data URL.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("error opening reference image: %w", err)
	}
	defer f.Close()
	return Reader(filepath.Base(path), "", f)
}

// Reader encodes r as a data URL. contentType is the declared type; when
// empty it is taken from the name's extension, then from the content itself.
// Anything that is not image/* is rejected before the body is read in full.
func Reader(name, contentType string, r io.Reader) (string, error) {
	br := bufio.NewReaderSize(r, sniffLen)
	if contentType == "" {
		contentType = mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	}
	if contentType == "" {
		head, err := br.Peek(sniffLen)
		if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
			return "", fmt.Errorf("error reading reference image: %w", err)
		}
		contentType = http.DetectContentType(head)
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "image/") {
		return "", apperr.Validation(ErrNotImage)
	}

	data, err := io.ReadAll(br)
	if err != nil {
		return "", fmt.Errorf("error reading reference image: %w", err)
	}
	return DataURL(mediaType, data), nil
}

// DataURL builds a base64 data URL.
func DataURL(mediaType string, data []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Payload strips the data URL header, leaving only the encoded payload.
// Strings without a header are returned as is.
func Payload(dataURL string) string {
	if _, after, ok := strings.Cut(dataURL, ","); ok {
		return after
	}
	return dataURL
}

// Decode is the inverse of DataURL.
func Decode(dataURL string) ([]byte, string, error) {
	header, payload, ok := strings.Cut(dataURL, ",")
	if !ok || !strings.HasPrefix(header, "data:") || !strings.HasSuffix(header, ";base64") {
		return nil, "", fmt.Errorf("not a base64 data URL")
	}
	mediaType := strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("error decoding data URL: %w", err)
	}
	return data, mediaType, nil
}
