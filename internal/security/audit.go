package security

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hireloop/platform-core/internal/models"
	"github.com/hireloop/platform-core/internal/monitoring"
	"github.com/hireloop/platform-core/pkg/logger"
)

// highRiskThreshold is the risk score at and above which an event counts as
// high-risk in compliance reporting.
const highRiskThreshold = 70

// AuditLogger writes audit events as JSON lines to a local append-only file
// and optionally forwards each event to a SIEM collector. The local write is
// synchronous; forwarding happens in the background and never blocks the
// caller.
type AuditLogger struct {
	mu     sync.Mutex
	file   *os.File
	path   string
	siem   *SIEMForwarder
	logger logger.Logger
	now    func() time.Time
	wg     sync.WaitGroup
}

func NewAuditLogger(path string, siem *SIEMForwarder, log logger.Logger) (*AuditLogger, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open audit log %s: %w", path, err)
	}
	return &AuditLogger{
		file:   file,
		path:   path,
		siem:   siem,
		logger: log,
		now:    time.Now,
	}, nil
}

// LogEvent persists one audit event and returns its id. Events are immutable
// once written; the file is append-only and never rewritten.
func (a *AuditLogger) LogEvent(ctx context.Context, event *models.AuditEvent) (string, error) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = a.now().UTC()
	}

	line, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal audit event: %w", err)
	}

	a.mu.Lock()
	_, err = a.file.Write(append(line, '\n'))
	a.mu.Unlock()
	if err != nil {
		monitoring.RecordAuditEvent(string(event.EventType), false)
		return "", fmt.Errorf("write audit event: %w", err)
	}
	monitoring.RecordAuditEvent(string(event.EventType), event.Success)

	if a.siem.Enabled() {
		forwarded := *event
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			// Detached from the request context: the caller may return
			// before forwarding completes.
			a.siem.Forward(context.Background(), &forwarded)
		}()
	}
	return event.ID, nil
}

// TenantEvents returns the tenant's events within the trailing window,
// newest last. The window is inclusive of its start.
func (a *AuditLogger) TenantEvents(ctx context.Context, tenantID string, window time.Duration) ([]models.AuditEvent, error) {
	since := a.now().Add(-window)

	file, err := os.Open(a.path)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer file.Close()

	var events []models.AuditEvent
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var event models.AuditEvent
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			// A torn or corrupt line must not hide the rest of the log.
			a.logger.Warn("audit: skipping unreadable log line", "error", err)
			continue
		}
		if event.TenantID != tenantID || event.Timestamp.Before(since) {
			continue
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan audit log: %w", err)
	}
	return events, nil
}

// ComplianceReport aggregates the tenant's audit activity over the trailing
// window. Only a security violation in the window flags the report for
// review; high-risk events are counted but do not change the status alone.
func (a *AuditLogger) ComplianceReport(ctx context.Context, tenantID string, window time.Duration) (*models.ComplianceReport, error) {
	events, err := a.TenantEvents(ctx, tenantID, window)
	if err != nil {
		return nil, err
	}

	now := a.now().UTC()
	report := &models.ComplianceReport{
		TenantID:     tenantID,
		PeriodStart:  now.Add(-window),
		PeriodEnd:    now,
		TotalEvents:  len(events),
		EventsByType: make(map[models.AuditEventType]int),
		Status:       models.ComplianceStatusCompliant,
		GeneratedAt:  now,
	}

	for _, event := range events {
		report.EventsByType[event.EventType]++
		if !event.Success {
			report.FailureCount++
		}
		if event.RiskScore >= highRiskThreshold {
			report.HighRiskCount++
		}
		if event.EventType == models.AuditSecurityViolation {
			report.Status = models.ComplianceStatusNeedsReview
		}
	}
	return report, nil
}

// Close flushes pending SIEM forwards and releases the log file.
func (a *AuditLogger) Close() error {
	a.wg.Wait()
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file.Close()
}
