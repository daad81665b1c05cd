// Package keepalive pings the service's own liveness endpoint so that
// hosting platforms which idle quiet instances keep it warm.
package keepalive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-co-op/gocron"
)

// Pinger issues GET requests against a fixed URL.
type Pinger struct {
	url     string
	client  *http.Client
	logger  *slog.Logger
	timeout time.Duration
}

// New creates a Pinger. A nil client uses http.DefaultClient.
func New(url string, client *http.Client, logger *slog.Logger) *Pinger {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pinger{url: url, client: client, logger: logger, timeout: 10 * time.Second}
}

// Ping performs one request and reports a non-2xx status as an error.
func (p *Pinger) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return fmt.Errorf("build keepalive request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("keepalive request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("keepalive: %s returned %d", p.url, resp.StatusCode)
	}
	return nil
}

// Register schedules Ping on s. The first ping waits one interval so the
// server has time to start listening.
func (p *Pinger) Register(s *gocron.Scheduler, every time.Duration) (*gocron.Job, error) {
	job, err := s.Every(every).WaitForSchedule().Tag("keepalive").Do(func() {
		if err := p.Ping(context.Background()); err != nil {
			p.logger.Warn("keepalive: ping failed", "url", p.url, "error", err)
			return
		}
		p.logger.Debug("keepalive: ok", "url", p.url)
	})
	if err != nil {
		return nil, fmt.Errorf("schedule keepalive: %w", err)
	}
	return job, nil
}
