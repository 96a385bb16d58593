// Package export saves generated images to disk, one at a time.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/blacktop/sceneforge/internal/encode"
	"github.com/blacktop/sceneforge/internal/session"
	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

const (
	DefaultPrefix = "sceneforge"
	// Delay separates consecutive saves in All.
	Delay = 500 * time.Millisecond
)

// Sink receives one named file per save.
type Sink interface {
	Write(name string, data []byte) (string, error)
}

// Pacer blocks until the next save may start. *rate.Limiter satisfies it.
type Pacer interface {
	Wait(ctx context.Context) error
}

// DirSink writes files into a directory, creating it on first use.
type DirSink struct {
	Dir string
}

func (d DirSink) Write(name string, data []byte) (string, error) {
	path := name
	if d.Dir != "" {
		if err := os.MkdirAll(d.Dir, 0755); err != nil {
			return "", fmt.Errorf("error creating output folder: %w", err)
		}
		path = filepath.Join(d.Dir, name)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("error saving image: %w", err)
	}
	return path, nil
}

// Exporter saves session images through a Sink.
type Exporter struct {
	sink   Sink
	prefix string
	pacer  Pacer
	logger *log.Logger
}

type Option func(*Exporter)

func WithPrefix(prefix string) Option {
	return func(e *Exporter) {
		if prefix != "" {
			e.prefix = prefix
		}
	}
}

func WithPacer(p Pacer) Option {
	return func(e *Exporter) { e.pacer = p }
}

func WithLogger(l *log.Logger) Option {
	return func(e *Exporter) {
		if l != nil {
			e.logger = l
		}
	}
}

// New returns an Exporter that waits Delay between the saves of All.
func New(sink Sink, opts ...Option) *Exporter {
	e := &Exporter{
		sink:   sink,
		prefix: DefaultPrefix,
		pacer:  rate.NewLimiter(rate.Every(Delay), 1),
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// OneName is the file name used by One.
func (e *Exporter) OneName(img session.Image) string {
	return fmt.Sprintf("%s-ai-%s.png", e.prefix, img.ID)
}

// AllName is the file name used by All for the entry at index i.
func (e *Exporter) AllName(i int) string {
	return fmt.Sprintf("%s-gen-%d.png", e.prefix, i+1)
}

// One saves a single image and returns where it was written.
func (e *Exporter) One(img session.Image) (string, error) {
	return e.save(e.OneName(img), img)
}

// All saves every image in history order, strictly one after another, with
// the pacer between saves. It stops at the first failure and returns the
// paths written so far.
func (e *Exporter) All(ctx context.Context, history []session.Image) ([]string, error) {
	if len(history) == 0 {
		return nil, nil
	}
	saved := make([]string, 0, len(history))
	for i, img := range history {
		if err := e.pacer.Wait(ctx); err != nil {
			return saved, fmt.Errorf("export interrupted after %d of %d: %w", len(saved), len(history), err)
		}
		path, err := e.save(e.AllName(i), img)
		if err != nil {
			return saved, err
		}
		saved = append(saved, path)
	}
	e.logger.Info("Exported images", "count", len(saved))
	return saved, nil
}

func (e *Exporter) save(name string, img session.Image) (string, error) {
	data, _, err := encode.Decode(img.URL)
	if err != nil {
		return "", fmt.Errorf("error decoding image %s: %w", img.ID, err)
	}
	path, err := e.sink.Write(name, data)
	if err != nil {
		return "", err
	}
	e.logger.Debug("Image saved", "path", path)
	return path, nil
}
