package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
	"github.com/slack-go/slack"

	"github.com/Ananth-NQI/woo-slack-tools/internal/services"
)

const defaultJobTimeout = 2 * time.Minute

// Upstream is the WooCommerce API as seen by the workflows.
type Upstream interface {
	Get(ctx context.Context, path string, params url.Values) (*services.Response, error)
	Put(ctx context.Context, path string, body interface{}) (*services.Response, error)
}

// Sessions is the per-user workflow state store.
type Sessions interface {
	Get(userID string) (services.SessionData, bool)
	Set(userID string, data services.SessionData) services.SessionData
	Update(userID string, patch services.SessionData) services.SessionData
	Delete(userID string)
}

// Notifier delivers messages and files to a Slack channel.
type Notifier interface {
	Notify(ctx context.Context, channelID, text string, blocks ...slack.Block) error
	Upload(ctx context.Context, channelID, filename string, content []byte) error
}

// Renderer turns HTML into a PDF document.
type Renderer interface {
	Render(ctx context.Context, html string) ([]byte, error)
}

// Deps are the collaborators of SlackHandler.
type Deps struct {
	Woo          Upstream
	Sessions     Sessions
	Notifier     Notifier
	Renderer     Renderer
	AdminEditURL string
}

// SlackHandler serves the slash-command and interactivity webhooks. Every
// request is acknowledged immediately; the actual work runs in a background
// job whose outcome is posted back to the channel.
type SlackHandler struct {
	woo          Upstream
	sessions     Sessions
	notifier     Notifier
	renderer     Renderer
	adminEditURL string

	actions    map[string]actionFunc
	spawn      func(func())
	jobTimeout time.Duration
}

// Option configures a SlackHandler.
type Option func(*SlackHandler)

// WithSpawn replaces the goroutine launcher, e.g. to run jobs inline in tests.
func WithSpawn(spawn func(func())) Option {
	return func(h *SlackHandler) { h.spawn = spawn }
}

// WithJobTimeout bounds each background job.
func WithJobTimeout(d time.Duration) Option {
	return func(h *SlackHandler) { h.jobTimeout = d }
}

// NewSlackHandler validates deps and builds the action table.
func NewSlackHandler(deps Deps, opts ...Option) (*SlackHandler, error) {
	switch {
	case deps.Woo == nil:
		return nil, errors.New("handlers: woo client must not be nil")
	case deps.Sessions == nil:
		return nil, errors.New("handlers: session store must not be nil")
	case deps.Notifier == nil:
		return nil, errors.New("handlers: notifier must not be nil")
	case deps.Renderer == nil:
		return nil, errors.New("handlers: renderer must not be nil")
	}

	h := &SlackHandler{
		woo:          deps.Woo,
		sessions:     deps.Sessions,
		notifier:     deps.Notifier,
		renderer:     deps.Renderer,
		adminEditURL: deps.AdminEditURL,
		spawn:        func(f func()) { go f() },
		jobTimeout:   defaultJobTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.actions = h.actionTable()
	return h, nil
}

// runJob starts job in the background with its own deadline. Callers send
// the HTTP reply themselves. Panics inside the job are logged and swallowed.
// job must not capture strings that still point into c's request buffer.
func (h *SlackHandler) runJob(c *fiber.Ctx, name string, job func(ctx context.Context)) {
	reqID := utils.CopyString(c.GetRespHeader(fiber.HeaderXRequestID))
	if reqID == "" {
		reqID = uuid.NewString()
	}

	h.spawn(func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("💥 [%s] %s panicked: %v\n%s", reqID, name, r, debug.Stack())
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), h.jobTimeout)
		defer cancel()

		started := time.Now()
		job(ctx)
		log.Printf("⏱️  [%s] %s finished in %v", reqID, name, time.Since(started).Round(time.Millisecond))
	})
}

// notify posts to Slack. Delivery failures are logged and dropped.
func (h *SlackHandler) notify(ctx context.Context, channelID, text string, blocks ...slack.Block) {
	if err := h.notifier.Notify(ctx, channelID, text, blocks...); err != nil {
		log.Printf("❌ Failed to notify %s: %v", channelID, err)
	}
}

func (h *SlackHandler) getJSON(ctx context.Context, path string, params url.Values, out interface{}) error {
	resp, err := h.woo.Get(ctx, path, params)
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

func productPath(productID int64) string {
	return fmt.Sprintf("/products/%d", productID)
}

func variationPath(productID, variationID int64) string {
	return fmt.Sprintf("/products/%d/variations/%d", productID, variationID)
}

func orderPath(orderID int64) string {
	return fmt.Sprintf("/orders/%d", orderID)
}

func customerPath(customerID int64) string {
	return fmt.Sprintf("/customers/%d", customerID)
}
