package reporter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/amosWeiskopf/seoautomation/internal/models"
	"github.com/amosWeiskopf/seoautomation/pkg/store"
)

func marshalAlert(alert models.Alert) ([]byte, error) {
	data, err := json.Marshal(alert)
	if err != nil {
		return nil, fmt.Errorf("failed to encode alert: %w", err)
	}
	return data, nil
}

// alertMessage formats the alert email
func (s *Service) alertMessage(alert models.Alert) Message {
	severity := alert.Severity
	if severity == "" {
		severity = models.SeverityMedium
	}

	var b strings.Builder
	b.WriteString("<h2>SEO Alert Notification</h2>\n")
	fmt.Fprintf(&b, "<p><strong>Type:</strong> %s</p>\n", html.EscapeString(alert.Type))
	fmt.Fprintf(&b, "<p><strong>Severity:</strong> %s</p>\n", html.EscapeString(string(severity)))
	fmt.Fprintf(&b, "<p><strong>Message:</strong> %s</p>\n", html.EscapeString(alert.Message))
	if alert.Keyword != "" {
		fmt.Fprintf(&b, "<p><strong>Keyword:</strong> %s</p>\n", html.EscapeString(alert.Keyword))
	}
	fmt.Fprintf(&b, "<p><strong>Website:</strong> %s</p>\n", html.EscapeString(alert.Website))
	fmt.Fprintf(&b, "<p><strong>Time:</strong> %s</p>\n", alert.Timestamp.Format(time.RFC1123))
	if len(alert.Details) > 0 {
		keys := make([]string, 0, len(alert.Details))
		for k := range alert.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("<ul>\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "<li><strong>%s:</strong> %s</li>\n", html.EscapeString(k), html.EscapeString(alert.Details[k]))
		}
		b.WriteString("</ul>\n")
	}
	b.WriteString("<hr>\n<p><small>This alert was generated automatically by the SEO Automation System.</small></p>\n")

	return Message{
		From:    s.sender(),
		To:      s.cfg.Recipients,
		Subject: fmt.Sprintf("SEO Alert: %s - %s", alert.Type, s.website.Domain),
		HTML:    b.String(),
	}
}

// SendAlert stamps the alert with an ID, time and website, then emails it,
// appends it to alerts.json, posts it to the webhook and publishes it on the
// stream. Each channel is tried even when an earlier one fails; the result
// lists every failure.
func (s *Service) SendAlert(ctx context.Context, alert models.Alert) (*models.AlertResult, error) {
	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}
	if alert.Timestamp.IsZero() {
		alert.Timestamp = s.now().UTC()
	}
	alert.Website = s.website.Domain
	s.log.Info("Sending alert notification", map[string]any{"type": alert.Type, "severity": alert.Severity})

	result := &models.AlertResult{Alert: alert, Errors: []models.StepError{}}
	var errs error
	record := func(step string, err error) {
		s.log.Error("Alert delivery failed", map[string]any{"step": step, "error": err.Error()})
		result.Errors = append(result.Errors, models.NewStepError(errorTypeDispatch, step, err, s.now().UTC()))
		errs = multierr.Append(errs, fmt.Errorf("%s: %w", step, err))
	}

	if s.mailer != nil && len(s.cfg.Recipients) > 0 {
		if err := s.mailer.Send(ctx, s.alertMessage(alert)); err != nil {
			record("email", err)
		} else {
			result.Emailed = true
		}
	}

	if _, err := store.AppendCapped(s.store, store.AlertsFile, alert, store.AlertsCap); err != nil {
		record("log_alert", err)
	}

	if s.cfg.Webhook != "" {
		if err := s.postWebhook(ctx, alert); err != nil {
			record("webhook", err)
		} else {
			result.Webhook = true
		}
	}

	if s.stream != nil {
		if err := s.stream.PublishAlert(alert); err != nil {
			record("stream", err)
		} else {
			result.Streamed = true
		}
	}

	result.Success = errs == nil
	if errs != nil {
		return result, fmt.Errorf("failed to send alert: %w", errs)
	}
	return result, nil
}

// SendAlerts sends each alert in turn
func (s *Service) SendAlerts(ctx context.Context, alerts []models.Alert) ([]*models.AlertResult, error) {
	results := make([]*models.AlertResult, 0, len(alerts))
	var errs error
	for _, a := range alerts {
		r, err := s.SendAlert(ctx, a)
		results = append(results, r)
		errs = multierr.Append(errs, err)
	}
	return results, errs
}

func (s *Service) postWebhook(ctx context.Context, alert models.Alert) error {
	body, err := marshalAlert(alert)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Webhook, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	s.log.APICall(http.MethodPost, s.cfg.Webhook, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
