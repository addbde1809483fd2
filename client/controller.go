package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/KotFed0t/portfolio_dashboard/model"
)

// State is the controller's transport state. Transitions:
// Initial -> Streaming (stream opened), Initial -> Polling (stream refused),
// Streaming -> Polling (stream error), any -> Terminated (Stop / ctx cancel).
// There is no Polling -> Streaming re-upgrade.
type State int

const (
	StateInitial State = iota
	StateStreaming
	StatePolling
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateStreaming:
		return "streaming"
	case StatePolling:
		return "polling"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

const DefaultPollInterval = 5 * time.Second

// Controller keeps a live enriched-portfolio view. Exactly one transport
// goroutine runs at a time, so the stream and the polling ticker can never be
// active together, and responses are applied in the order they were issued.
type Controller struct {
	client       *Client
	pollInterval time.Duration
	onUpdate     func(model.EnrichedPortfolio)
	onError      func(error)

	// stream reads have no overall timeout, unlike the request client
	streamClient *http.Client

	mu      sync.Mutex
	state   State
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

type ControllerOption func(*Controller)

func WithPollInterval(interval time.Duration) ControllerOption {
	return func(c *Controller) { c.pollInterval = interval }
}

// WithErrorHandler installs a callback for recoverable failures (fetch errors,
// malformed stream messages, stream loss). The controller keeps running.
func WithErrorHandler(fn func(error)) ControllerOption {
	return func(c *Controller) { c.onError = fn }
}

func NewController(client *Client, onUpdate func(model.EnrichedPortfolio), opts ...ControllerOption) *Controller {
	c := &Controller{
		client:       client,
		pollInterval: DefaultPollInterval,
		onUpdate:     onUpdate,
		onError:      func(error) {},
		streamClient: &http.Client{},
		state:        StateInitial,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateTerminated {
		return
	}
	c.state = s
}

// Start launches the controller: one immediate fetch, then the stream, then
// polling if the stream can't be opened or fails. Start returns immediately.
// A started or terminated controller ignores further Start calls.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started || c.state == StateTerminated {
		c.mu.Unlock()
		return
	}
	c.started = true
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	c.mu.Unlock()

	go c.run(ctx)
}

// Stop tears the controller down: whichever transport is active is closed and
// no work continues afterwards. Safe to call more than once.
func (c *Controller) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	done := c.done
	c.mu.Unlock()

	if cancel == nil {
		c.setTerminated()
		return
	}

	cancel()
	<-done
}

func (c *Controller) setTerminated() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateTerminated
}

// run is the single transport goroutine. Fetches are issued and applied
// sequentially here, so a stale response can never overwrite a fresher one.
func (c *Controller) run(ctx context.Context) {
	defer func() {
		c.setTerminated()
		close(c.done)
	}()

	c.fetchOnce(ctx)

	if err := c.consumeStream(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		c.onError(fmt.Errorf("stream unavailable, falling back to polling: %w", err))
	} else if ctx.Err() != nil {
		return
	}

	c.poll(ctx)
}

func (c *Controller) fetchOnce(ctx context.Context) {
	enriched, err := c.client.EnrichedPortfolio(ctx)
	if err != nil {
		if ctx.Err() == nil {
			c.onError(err)
		}
		return
	}
	c.onUpdate(enriched)
}

// consumeStream opens the SSE channel and applies every document wholesale.
// A nil return with a live ctx means the server ended the stream; both that
// and an error land the controller in polling.
func (c *Controller) consumeStream(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.client.baseURL()+"/sse", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stream endpoint returned %d", resp.StatusCode)
	}

	c.setState(StateStreaming)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := scanner.Text()

		// comment lines are heartbeats, blank lines are event delimiters
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}

		payload, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}

		var enriched model.EnrichedPortfolio
		if err := json.Unmarshal([]byte(strings.TrimSpace(payload)), &enriched); err != nil {
			// malformed message: report and keep the stream alive
			c.onError(fmt.Errorf("can't parse stream message: %w", err))
			continue
		}

		c.onUpdate(enriched)
	}

	return scanner.Err()
}

func (c *Controller) poll(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	c.setState(StatePolling)

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.fetchOnce(ctx)
		}
	}
}
