package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"roastmarket_backend/pkg/wsclient"
	"roastmarket_backend/pkg/wsproto"
)

type watchEvent struct {
	Kind string `json:"kind"`
	Data any    `json:"data"`
}

// lineWriter serialises JSON lines from the manager and poller goroutines.
type lineWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func (w *lineWriter) emit(kind string, data any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.enc.Encode(watchEvent{Kind: kind, Data: data})
}

type watchConfig struct {
	wsURL          string
	orders         []string
	notifications  bool
	pollInterval   time.Duration
	reconnectDelay time.Duration
}

type subscriber interface {
	SubscribeToOrder(orderID string) error
	SubscribeToNotifications() error
}

// subscribeAll issues every requested subscription. It runs on each
// authenticated status so a drop between connect and subscribe is healed.
func (c watchConfig) subscribeAll(m subscriber, log *slog.Logger) {
	if c.notifications {
		if err := m.SubscribeToNotifications(); err != nil {
			log.Warn("subscribe notifications", "error", err)
		}
	}
	for _, orderID := range c.orders {
		if err := m.SubscribeToOrder(orderID); err != nil {
			log.Warn("subscribe order", "order_id", orderID, "error", err)
		}
	}
}

func newWatchCmd(opts *cliOptions) *cobra.Command {
	var cfg watchConfig

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow orders and notifications live, one JSON line per event",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.token == "" {
				return errors.New("--token is required")
			}
			wsURL, err := opts.wsURL()
			if err != nil {
				return err
			}
			cfg.wsURL = wsURL

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd.OutOrStdout(), opts, cfg)
		},
	}

	cmd.Flags().StringSliceVar(&cfg.orders, "order", nil, "order id to follow (repeatable)")
	cmd.Flags().BoolVar(&cfg.notifications, "notifications", true, "follow the notification feed")
	cmd.Flags().DurationVar(&cfg.pollInterval, "poll", wsclient.DefaultPollInterval, "unread count poll interval, 0 disables")
	return cmd
}

func runWatch(ctx context.Context, out io.Writer, opts *cliOptions, cfg watchConfig) error {
	w := &lineWriter{enc: json.NewEncoder(out)}

	var manager *wsclient.Manager
	manager = wsclient.New(cfg.wsURL, wsclient.GorillaDialer{}, wsclient.Options{
		ReconnectDelay: cfg.reconnectDelay,
		Logger:         opts.logger,
		OnOrderUpdate:  func(p wsproto.TrackingEventPayload) { w.emit(wsproto.TypeTrackingUpdate, p) },
		OnStatusChange: func(p wsproto.StatusChangePayload) { w.emit(wsproto.TypeStatusChange, p) },
		OnNotification: func(p wsproto.NotificationPayload) { w.emit(wsproto.TypeNotification, p) },
		OnConnectionStatus: func(status wsclient.Status, err error) {
			if err != nil {
				opts.logger.Warn("connection status", "status", status, "error", err)
			} else {
				opts.logger.Info("connection status", "status", status)
			}
			if status == wsclient.StatusAuthenticated {
				cfg.subscribeAll(manager, opts.logger)
			}
		},
	})

	go manager.Run(ctx)

	if cfg.pollInterval > 0 {
		poller := wsclient.NewUnreadPoller(opts.server, opts.token,
			func(n int64) { w.emit("unread_count", n) },
			wsclient.WithPollInterval(cfg.pollInterval),
			wsclient.WithPollerHTTPClient(&http.Client{Timeout: 10 * time.Second}),
			wsclient.WithPollerLogger(opts.logger),
		)
		go poller.Run(ctx)
	}

	manager.SetSession(wsclient.Session{Token: opts.token})

	<-ctx.Done()
	<-manager.Done()
	return nil
}
