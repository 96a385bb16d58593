package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/blacktop/sceneforge/internal/apperr"
	"github.com/blacktop/sceneforge/internal/encode"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// MsgEmptyPrompt is shown when generation is requested without a prompt.
const MsgEmptyPrompt = "Please enter a scene prompt."

// msgUnknown is shown when a failure carries no message of its own.
const msgUnknown = "Something went wrong. Please try again."

// ErrBusy is returned when a generation is requested while one is in flight.
var ErrBusy = errors.New("a generation is already in progress")

// ErrNotStarted is returned by Complete when no generation is in flight, for
// example when the same request is completed twice.
var ErrNotStarted = errors.New("no generation in progress")

// Generator produces an image data URL from a prompt and an optional
// reference payload (base64, no data URL header).
type Generator interface {
	Generate(ctx context.Context, prompt, referencePayload string) (string, error)
}

// Request is a validated generation request, captured when it started.
type Request struct {
	Prompt           string
	ReferencePayload string
	HasReference     bool
}

// Result is the outcome of running a Request.
type Result struct {
	URL string
	Err error
}

// Controller owns the session State. It is not safe for concurrent use:
// all calls except Run must come from the same goroutine.
type Controller struct {
	state  State
	gen    Generator
	now    func() time.Time
	newID  func() string
	logger *log.Logger
}

type Option func(*Controller)

// WithClock sets the time source for image timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithIDs sets the image ID source.
func WithIDs(newID func() string) Option {
	return func(c *Controller) { c.newID = newID }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// New returns a Controller in the Idle state with an empty history.
func New(gen Generator, opts ...Option) *Controller {
	c := &Controller{
		gen:    gen,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns a snapshot of the current state.
func (c *Controller) State() State { return c.state.clone() }

func (c *Controller) dispatch(a Action) {
	prev := c.state.Status
	c.state = Reduce(c.state, a)
	if prev != c.state.Status {
		c.logger.Debug("Status changed", "from", prev, "to", c.state.Status)
	}
}

func (c *Controller) SetPrompt(text string) { c.dispatch(SetPrompt{Text: text}) }

// SetReference attaches an already encoded reference image. An empty string
// clears it.
func (c *Controller) SetReference(dataURL string) { c.dispatch(SetReference{DataURL: dataURL}) }

func (c *Controller) ClearReference() { c.dispatch(ClearReference{}) }

// Dismiss clears an error left by a failed generation.
func (c *Controller) Dismiss() { c.dispatch(Dismiss{}) }

// AttachFile encodes the image at path and attaches it as the reference.
// A validation failure is recorded for display and the held reference is
// kept.
func (c *Controller) AttachFile(path string) error {
	dataURL, err := encode.File(path)
	if err != nil {
		c.dispatch(Rejected{Message: err.Error()})
		return err
	}
	c.SetReference(dataURL)
	return nil
}

// Prepare validates the current state and moves it to Loading. No request
// may be made when it returns an error.
func (c *Controller) Prepare() (Request, error) {
	if c.state.Status == Loading {
		return Request{}, ErrBusy
	}
	if strings.TrimSpace(c.state.Prompt) == "" {
		c.dispatch(Rejected{Message: MsgEmptyPrompt})
		return Request{}, apperr.Validation(MsgEmptyPrompt)
	}
	req := Request{
		Prompt:       c.state.Prompt,
		HasReference: c.state.Reference != "",
	}
	if req.HasReference {
		req.ReferencePayload = encode.Payload(c.state.Reference)
	}
	c.dispatch(Started{})
	return req, nil
}

// Run performs the generation call. It reads and writes no state, so it may
// run on another goroutine while the owner keeps handling input.
func (c *Controller) Run(ctx context.Context, req Request) Result {
	url, err := c.gen.Generate(ctx, req.Prompt, req.ReferencePayload)
	return Result{URL: url, Err: err}
}

// Complete records the outcome of req. Failed generations never add to the
// history. Outside Loading nothing is recorded and ErrNotStarted is returned.
func (c *Controller) Complete(req Request, res Result) (Image, error) {
	if c.state.Status != Loading {
		return Image{}, ErrNotStarted
	}
	if res.Err != nil {
		msg := res.Err.Error()
		if msg == "" {
			msg = msgUnknown
		}
		c.logger.Error("Generation failed", "err", res.Err)
		c.dispatch(Failed{Message: msg})
		return Image{}, res.Err
	}
	img := Image{
		ID:           c.newID(),
		URL:          res.URL,
		Prompt:       req.Prompt,
		Timestamp:    c.now(),
		HasReference: req.HasReference,
	}
	c.dispatch(Succeeded{Image: img})
	c.logger.Info("Image generated", "id", img.ID, "reference", img.HasReference)
	return img, nil
}

// Generate runs one full generation synchronously.
func (c *Controller) Generate(ctx context.Context) (Image, error) {
	req, err := c.Prepare()
	if err != nil {
		return Image{}, err
	}
	return c.Complete(req, c.Run(ctx, req))
}
