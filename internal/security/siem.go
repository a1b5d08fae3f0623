package security

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hireloop/platform-core/internal/models"
	"github.com/hireloop/platform-core/pkg/logger"
)

const siemForwardTimeout = 5 * time.Second

// SIEMForwarder ships audit events to an external collector over HTTPS.
// Forwarding is best-effort: a down collector never fails or delays the
// operation that produced the event.
type SIEMForwarder struct {
	endpoint string
	token    string
	client   *http.Client
	logger   logger.Logger
}

func NewSIEMForwarder(endpoint, token string, log logger.Logger) *SIEMForwarder {
	return &SIEMForwarder{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: siemForwardTimeout},
		logger:   log,
	}
}

// Enabled reports whether a collector endpoint is configured.
func (f *SIEMForwarder) Enabled() bool {
	return f != nil && f.endpoint != ""
}

// Forward posts one event to the collector. Failures are logged and
// swallowed; the local audit log remains the source of truth.
func (f *SIEMForwarder) Forward(ctx context.Context, event *models.AuditEvent) {
	if !f.Enabled() {
		return
	}

	body, err := json.Marshal(event)
	if err != nil {
		f.logger.Error("siem: marshal event", "event_id", event.ID, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, siemForwardTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, bytes.NewReader(body))
	if err != nil {
		f.logger.Error("siem: build request", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Warn("siem: forward failed", "event_id", event.ID, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		f.logger.Warn("siem: collector rejected event",
			"event_id", event.ID, "status", fmt.Sprintf("%d", resp.StatusCode))
	}
}
