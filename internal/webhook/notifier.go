// Package webhook notifies tenant endpoints about rejected moderation checks.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/creatorhub/creatorhub/internal/auditlog"
	"github.com/creatorhub/creatorhub/internal/blocklist"
	"github.com/creatorhub/creatorhub/internal/metrics"
	"github.com/creatorhub/creatorhub/internal/scope"
)

// IntegrationName identifies webhook calls in the integration log.
const IntegrationName = "moderation_webhook"

// EventHeader carries the event name on every delivery.
const EventHeader = "X-Creatorhub-Event"

// Scope identifies the checked scope in a payload.
type Scope struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Match is one blocklist hit in a payload.
type Match struct {
	EntryID  string `json:"entryId"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	Severity string `json:"severity"`
	Action   string `json:"action"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
}

// Payload is the JSON body POSTed to the endpoint.
type Payload struct {
	Event     string    `json:"event"`
	Tenant    string    `json:"tenant"`
	Scope     Scope     `json:"scope"`
	Action    string    `json:"action"`
	Severity  string    `json:"severity"`
	Matches   []Match   `json:"matches"`
	CheckedAt time.Time `json:"checkedAt"`
}

// EventRejected is sent when a moderation check blocks the text.
const EventRejected = "moderation.rejected"

// NewPayload describes a blocked check of ref in the tenant identified by tenantCode.
func NewPayload(tenantCode string, ref scope.Ref, res blocklist.Result, checkedAt time.Time) Payload {
	matches := make([]Match, len(res.Matches))
	for i, m := range res.Matches {
		matches[i] = Match{
			EntryID:  m.EntryID.String(),
			Name:     m.Name,
			Category: m.Category,
			Severity: string(m.Severity),
			Action:   string(m.Action),
			Start:    m.Start,
			End:      m.End,
		}
	}
	return Payload{
		Event:     EventRejected,
		Tenant:    tenantCode,
		Scope:     Scope{Type: string(ref.Type), ID: ref.ID.String()},
		Action:    string(res.Action),
		Severity:  string(res.Severity),
		Matches:   matches,
		CheckedAt: checkedAt.UTC(),
	}
}

// IntegrationRecorder receives one integration log record per delivery attempt.
type IntegrationRecorder interface {
	RecordIntegration(schema string, l auditlog.IntegrationLog)
}

// Notifier delivers payloads with retries.
type Notifier struct {
	client   *http.Client
	attempts uint
	delay    time.Duration
	recorder IntegrationRecorder
	metrics  *metrics.Metrics

	wg sync.WaitGroup
}

// NewNotifier creates a Notifier. attempts below 1 is treated as 1.
func NewNotifier(client *http.Client, attempts uint, delay time.Duration, recorder IntegrationRecorder, m *metrics.Metrics) *Notifier {
	if attempts == 0 {
		attempts = 1
	}
	return &Notifier{
		client:   client,
		attempts: attempts,
		delay:    delay,
		recorder: recorder,
		metrics:  m,
	}
}

// Notify delivers p in the background. The delivery outlives the request that triggered it.
func (n *Notifier) Notify(ctx context.Context, schema, url string, p Payload) {
	ctx = context.WithoutCancel(ctx)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if err := n.Deliver(ctx, schema, url, p); err != nil {
			slog.Warn("webhook delivery failed", "error", err, "schema", schema, "endpoint", url)
		}
	}()
}

// Wait blocks until background deliveries have finished or ctx is done.
func (n *Notifier) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Deliver POSTs p to url, retrying transport errors, 429 and 5xx responses.
func (n *Notifier) Deliver(ctx context.Context, schema, url string, p Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding webhook payload: %w", err)
	}

	err = retry.Do(func() error {
		return n.attempt(ctx, schema, url, p.Event, body)
	},
		retry.Context(ctx),
		retry.Attempts(n.attempts),
		retry.Delay(n.delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(attempt uint, err error) {
			slog.Debug("retrying webhook", "attempt", attempt+1, "endpoint", url, "error", err)
		}),
	)
	n.metrics.WebhookDelivery(err == nil)
	return err
}

func (n *Notifier) attempt(ctx context.Context, schema, url, event string, body []byte) error {
	start := time.Now()
	entry := auditlog.IntegrationLog{
		Integration: IntegrationName,
		Direction:   auditlog.DirectionOutbound,
		Method:      http.MethodPost,
		Endpoint:    url,
		RequestBody: auditlog.Truncate(string(body), auditlog.MaxBodySize),
	}
	defer func() {
		entry.DurationMS = time.Since(start).Milliseconds()
		n.recorder.RecordIntegration(schema, entry)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		entry.Error = err.Error()
		return retry.Unrecoverable(fmt.Errorf("building webhook request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "creatorhub-webhook/1")
	req.Header.Set(EventHeader, event)

	resp, err := n.client.Do(req)
	if err != nil {
		entry.Error = err.Error()
		return fmt.Errorf("posting webhook: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, auditlog.MaxBodySize))
	entry.StatusCode = resp.StatusCode
	entry.ResponseBody = auditlog.Truncate(string(respBody), auditlog.MaxBodySize)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	statusErr := &StatusError{Code: resp.StatusCode}
	entry.Error = statusErr.Error()
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return statusErr
	}
	return retry.Unrecoverable(statusErr)
}

// StatusError reports a non-2xx webhook response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook endpoint returned %d", e.Code)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
