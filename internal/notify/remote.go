package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrz1836/taskmcp/internal/constants"
	"github.com/mrz1836/taskmcp/internal/domain"
	"github.com/mrz1836/taskmcp/internal/logging"
)

// Remote nudges a running server so observers connected to another process
// see changes made here. Failures are logged and dropped; the mutation
// already committed.
type Remote struct {
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

// NewRemote creates a Remote posting to baseURL. A non-positive timeout uses
// constants.NotifyTimeout.
func NewRemote(baseURL string, timeout time.Duration, logger zerolog.Logger) *Remote {
	if timeout <= 0 {
		timeout = constants.NotifyTimeout
	}
	return &Remote{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "notify").Logger(),
	}
}

// Publish posts kind to <baseURL>/api/notify/<kind>.
func (r *Remote) Publish(ctx context.Context, kind domain.EventKind) {
	url := fmt.Sprintf("%s/api/notify/%s", r.baseURL, kind)
	safeURL := logging.FilterSensitiveValue(url)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		r.logger.Debug().Err(err).Str("url", safeURL).Msg("failed to build change nudge")
		return
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Debug().Err(err).Str("url", safeURL).Msg("no server to nudge")
		return
	}
	_ = resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		r.logger.Debug().Int("status", resp.StatusCode).Str("url", safeURL).Msg("change nudge rejected")
	}
}

// Nop discards every event.
type Nop struct{}

// Publish does nothing.
func (Nop) Publish(context.Context, domain.EventKind) {}

var (
	_ Notifier = (*Remote)(nil)
	_ Notifier = Nop{}
)
