// Package audit handles forwarding committed audit trail entries to external
// destinations. The database ledger written by the audit repository is the
// source of truth; shippers send best-effort copies to sinks with different
// consumers and retention requirements — a SIEM webhook or an append-only file
// picked up by a log forwarder. Shipping happens after the owning transaction
// commits, so a failed ship never rolls back a mutation and a rolled-back
// mutation is never shipped.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/contactvault/contactvault/internal/config"
	"github.com/contactvault/contactvault/internal/db/models"
)

// Shipper sends a copy of one committed audit entry to an external destination.
type Shipper interface {
	Ship(ctx context.Context, entry *models.AuditLog) error
	Close() error
}

// NewShippers builds the configured shippers. Disabled entries are skipped.
func NewShippers(cfgs []config.AuditShipperConfig) ([]Shipper, error) {
	shippers := make([]Shipper, 0, len(cfgs))
	for _, cfg := range cfgs {
		if !cfg.Enabled {
			continue
		}
		switch cfg.Type {
		case "file":
			s, err := NewFileShipper(cfg.File.Path)
			if err != nil {
				return nil, fmt.Errorf("file shipper: %w", err)
			}
			shippers = append(shippers, s)
		case "webhook":
			shippers = append(shippers, NewWebhookShipper(cfg.Webhook))
		default:
			return nil, fmt.Errorf("unknown shipper type: %s", cfg.Type)
		}
	}
	return shippers, nil
}

// FileShipper appends JSON lines to a local file.
type FileShipper struct {
	mu   sync.Mutex
	file *os.File
}

// NewFileShipper opens (or creates) the destination file in append mode.
func NewFileShipper(path string) (*FileShipper, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, err
	}
	return &FileShipper{file: f}, nil
}

// Ship writes the entry as one JSON line.
func (s *FileShipper) Ship(_ context.Context, entry *models.AuditLog) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.file.Write(append(data, '\n'))
	return err
}

// Close closes the underlying file.
func (s *FileShipper) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

// WebhookShipper POSTs entries as JSON to an HTTP endpoint.
type WebhookShipper struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// NewWebhookShipper creates a webhook shipper with the configured timeout.
func NewWebhookShipper(cfg *config.AuditWebhookConfig) *WebhookShipper {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &WebhookShipper{
		url:     cfg.URL,
		headers: cfg.Headers,
		client:  &http.Client{Timeout: timeout},
	}
}

// Ship POSTs the entry. Non-2xx responses are reported as errors so the caller
// can log them.
func (s *WebhookShipper) Ship(ctx context.Context, entry *models.AuditLog) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Close is a no-op for webhook shippers.
func (s *WebhookShipper) Close() error {
	return nil
}
