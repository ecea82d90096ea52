package wsclient

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// DefaultPollInterval is how often the unread count is re-read over HTTP.
const DefaultPollInterval = 30 * time.Second

const unreadCountPath = "/api/v1/notifications/unread-count"

// UnreadPoller re-reads the unread notification count on a fixed interval,
// covering any push the socket missed.
type UnreadPoller struct {
	baseURL    string
	token      string
	interval   time.Duration
	httpClient *http.Client
	logger     *slog.Logger
	onCount    func(int64)
}

type PollerOption func(*UnreadPoller)

func NewUnreadPoller(baseURL, token string, onCount func(int64), opts ...PollerOption) *UnreadPoller {
	p := &UnreadPoller{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		interval:   DefaultPollInterval,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     slog.Default(),
		onCount:    onCount,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func WithPollInterval(d time.Duration) PollerOption {
	return func(p *UnreadPoller) {
		p.interval = d
	}
}

func WithPollerHTTPClient(hc *http.Client) PollerOption {
	return func(p *UnreadPoller) {
		p.httpClient = hc
	}
}

func WithPollerLogger(logger *slog.Logger) PollerOption {
	return func(p *UnreadPoller) {
		p.logger = logger
	}
}

// Run polls immediately and then once per interval until ctx is cancelled.
// Failed polls are logged and retried on the next tick.
func (p *UnreadPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.pollOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *UnreadPoller) pollOnce(ctx context.Context) {
	count, err := p.Fetch(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn("unread count poll failed", "error", err)
		}
		return
	}
	if p.onCount != nil {
		p.onCount(count)
	}
}

// Fetch performs a single unread-count request.
func (p *UnreadPoller) Fetch(ctx context.Context) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+unreadCountPath, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unread count: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		UnreadCount int64 `json:"unread_count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode unread count: %w", err)
	}
	return body.UnreadCount, nil
}
