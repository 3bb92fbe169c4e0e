package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/desa-connect/aspirasi-api/internal/models"
	"github.com/desa-connect/aspirasi-api/pkg/config"
)

// EmailJSClient posts resolved-report emails to a transactional-email HTTP
// API. One attempt per call; retry policy lives in the outbox workers.
type EmailJSClient struct {
	cfg     config.NotifierConfig
	baseURL string
	client  *http.Client
}

// NewEmailJSClient builds the client from config.
func NewEmailJSClient(cfg config.NotifierConfig, baseURL string) *EmailJSClient {
	return &EmailJSClient{
		cfg:     cfg,
		baseURL: baseURL,
		client:  &http.Client{Timeout: cfg.RequestTimeout},
	}
}

type sendRequest struct {
	ServiceID      string         `json:"service_id"`
	TemplateID     string         `json:"template_id"`
	UserID         string         `json:"user_id"`
	TemplateParams templateParams `json:"template_params"`
}

type templateParams struct {
	ToName      string `json:"to_name"`
	ToEmail     string `json:"to_email"`
	ReportTitle string `json:"report_title"`
	ReportID    string `json:"report_id"`
	ReportURL   string `json:"report_url"`
}

// SendResolved delivers one "report resolved" email.
func (c *EmailJSClient) SendResolved(ctx context.Context, n models.Notification) error {
	payload := sendRequest{
		ServiceID:  c.cfg.ServiceID,
		TemplateID: c.cfg.TemplateID,
		UserID:     c.cfg.PublicKey,
		TemplateParams: templateParams{
			ToName:      n.RecipientName,
			ToEmail:     n.RecipientEmail,
			ReportTitle: n.ReportTitle,
			ReportID:    n.ReportID,
			ReportURL:   fmt.Sprintf("%s/report/%s", c.baseURL, n.ReportID),
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.ServiceURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send email request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("email API returned %d: %s", resp.StatusCode, string(detail))
	}
	return nil
}
