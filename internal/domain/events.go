package domain

import "time"

type OrderCreatedEvent struct {
	OrderID       string        `json:"order_id"`
	UserID        string        `json:"user_id,omitempty"`
	Items         []OrderItem   `json:"items"`
	Total         float64       `json:"total"`
	Address       string        `json:"address"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Source        Source        `json:"source"`
	Timestamp     time.Time     `json:"timestamp"`
}

type OrderStatusChangedEvent struct {
	OrderID   string      `json:"order_id"`
	Status    OrderStatus `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
}
