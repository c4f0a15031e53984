// Package notifier turns order events into kitchen notifications: every new
// order and status change is posted to a configured webhook so staff see it
// without polling the admin board.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/shawarma-timaro/storefront/internal/domain"
)

type Handler struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewHandler(webhookURL string, client *http.Client, logger *slog.Logger) *Handler {
	return &Handler{
		webhookURL: webhookURL,
		httpClient: client,
		logger:     logger,
	}
}

type notification struct {
	Kind          string               `json:"kind"`
	OrderID       string               `json:"order_id"`
	Status        domain.OrderStatus   `json:"status,omitempty"`
	Total         float64              `json:"total,omitempty"`
	Address       string               `json:"address,omitempty"`
	PaymentMethod domain.PaymentMethod `json:"payment_method,omitempty"`
	ItemCount     int                  `json:"item_count,omitempty"`
	Offline       bool                 `json:"offline,omitempty"`
	Timestamp     time.Time            `json:"timestamp"`
}

// HandleOrderCreated notifies the kitchen about a fresh order. Orders that
// were only captured in the device mirror are flagged offline so staff know
// the admin board may not show them yet.
func (h *Handler) HandleOrderCreated(ctx context.Context, payload []byte) error {
	var event domain.OrderCreatedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order created event: %w", err)
	}

	h.logger.Info("processing order created event", "order_id", event.OrderID, "source", event.Source)

	n := notification{
		Kind:          "order_created",
		OrderID:       event.OrderID,
		Total:         event.Total,
		Address:       event.Address,
		PaymentMethod: event.PaymentMethod,
		ItemCount:     len(event.Items),
		Offline:       event.Source == domain.SourceMirror,
		Timestamp:     event.Timestamp,
	}

	if err := h.post(ctx, n); err != nil {
		return fmt.Errorf("notify kitchen of order %s: %w", event.OrderID, err)
	}

	return nil
}

func (h *Handler) HandleStatusChanged(ctx context.Context, payload []byte) error {
	var event domain.OrderStatusChangedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal status changed event: %w", err)
	}

	h.logger.Info("processing status changed event", "order_id", event.OrderID, "status", event.Status)

	n := notification{
		Kind:      "order_status_changed",
		OrderID:   event.OrderID,
		Status:    event.Status,
		Timestamp: event.Timestamp,
	}

	if err := h.post(ctx, n); err != nil {
		return fmt.Errorf("notify kitchen of status change for order %s: %w", event.OrderID, err)
	}

	return nil
}

func (h *Handler) post(ctx context.Context, n notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.webhookURL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}
