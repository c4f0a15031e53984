package orders

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/shawarma-timaro/storefront/internal/auth"
	"github.com/shawarma-timaro/storefront/internal/domain"
)

// SourceHeader reports which store served the response body.
const SourceHeader = "X-Data-Source"

// Deleter is implemented by service variants that support order deletion.
// The remote-backed service deliberately does not.
type Deleter interface {
	Delete(ctx context.Context, id string) error
}

type Handler struct {
	svc     OrderService
	logger  *slog.Logger
	created metric.Int64Counter
}

func NewHandler(svc OrderService, logger *slog.Logger) (*Handler, error) {
	created, err := otel.Meter("orders").Int64Counter("orders_created_total",
		metric.WithDescription("Orders accepted at checkout, by serving store."))
	if err != nil {
		return nil, err
	}

	return &Handler{
		svc:     svc,
		logger:  logger,
		created: created,
	}, nil
}

type createOrderRequest struct {
	Items         []domain.OrderItem   `json:"items"`
	Total         float64              `json:"total"`
	Address       string               `json:"address"`
	PaymentMethod domain.PaymentMethod `json:"paymentMethod"`
	ChangeAmount  *float64             `json:"changeAmount"`
}

func (req *createOrderRequest) validate() map[string]string {
	problems := make(map[string]string)
	if len(req.Items) == 0 {
		problems["items"] = "order must contain at least one item"
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			problems["items"] = "item quantities must be positive"
			break
		}
	}
	if req.Address == "" {
		problems["address"] = "delivery address is required"
	}
	switch req.PaymentMethod {
	case domain.PaymentMethodCash, domain.PaymentMethodCard:
	default:
		problems["paymentMethod"] = "payment method must be cash or card"
	}
	if len(problems) == 0 {
		return nil
	}
	return problems
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if problems := req.validate(); problems != nil {
		h.writeValidationError(w, problems)
		return
	}

	// Total is the presentation layer's number; recompute only when absent.
	if req.Total == 0 {
		for _, item := range req.Items {
			req.Total += item.Price * float64(item.Quantity)
		}
	}

	input := CreateInput{
		Items:         req.Items,
		Total:         req.Total,
		Address:       req.Address,
		PaymentMethod: req.PaymentMethod,
		ChangeAmount:  req.ChangeAmount,
	}
	if id, ok := auth.IdentityFrom(r.Context()); ok {
		input.UserID = id.UID
	}

	order, source, err := h.svc.Create(r.Context(), input)
	if err != nil {
		h.logger.Error("failed to create order", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.created.Add(r.Context(), 1, metric.WithAttributes(attributeSource(source)))
	h.logger.Info("order created", "order_id", order.ID, "source", source, "total", order.Total)
	w.Header().Set(SourceHeader, string(source))
	h.writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	order, source, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get order", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if order == nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	if identity, ok := auth.IdentityFrom(r.Context()); ok && !identity.Admin && order.UserID != identity.UID {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	w.Header().Set(SourceHeader, string(source))
	h.writeJSON(w, http.StatusOK, order)
}

// HandleListMine serves the authenticated customer's order history.
func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	orders, source, err := h.svc.ListForUser(r.Context(), identity.UID)
	if err != nil {
		h.logger.Error("failed to list user orders", "error", err, "user_id", identity.UID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set(SourceHeader, string(source))
	h.writeJSON(w, http.StatusOK, orders)
}

// HandleListAll serves the admin back-office order board.
func (h *Handler) HandleListAll(w http.ResponseWriter, r *http.Request) {
	orders, source, err := h.svc.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list orders", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set(SourceHeader, string(source))
	h.writeJSON(w, http.StatusOK, orders)
}

type updateStatusRequest struct {
	Status domain.OrderStatus `json:"status"`
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch req.Status {
	case domain.OrderStatusAccepted, domain.OrderStatusPreparing, domain.OrderStatusDelivering,
		domain.OrderStatusCompleted, domain.OrderStatusCancelled:
	default:
		h.writeValidationError(w, map[string]string{"status": "unknown order status"})
		return
	}

	order, source, err := h.svc.SetStatus(r.Context(), id, req.Status)
	if err != nil {
		h.logger.Error("failed to update order status", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if order == nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	h.logger.Info("order status updated", "order_id", order.ID, "status", order.Status, "source", source)
	w.Header().Set(SourceHeader, string(source))
	h.writeJSON(w, http.StatusOK, order)
}

// HandleDelete removes an order. Only the local service variant supports
// this; against the remote-backed service it answers 405.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	deleter, ok := h.svc.(Deleter)
	if !ok {
		h.writeError(w, http.StatusMethodNotAllowed, "order deletion is not supported")
		return
	}

	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	if err := deleter.Delete(r.Context(), id); err != nil {
		h.logger.Error("failed to delete order", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func attributeSource(source domain.Source) attribute.KeyValue {
	return attribute.String("source", string(source))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) writeValidationError(w http.ResponseWriter, problems map[string]string) {
	h.writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": problems})
}
