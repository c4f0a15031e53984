package domain

import "time"

type OrderStatus string

const (
	OrderStatusAccepted   OrderStatus = "accepted"
	OrderStatusPreparing  OrderStatus = "preparing"
	OrderStatusDelivering OrderStatus = "delivering"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

type PaymentMethod string

const (
	PaymentMethodCash PaymentMethod = "cash"
	PaymentMethodCard PaymentMethod = "card"
)

// Source reports which store served a result: the remote database or the
// on-device mirror.
type Source string

const (
	SourceRemote Source = "remote"
	SourceMirror Source = "mirror"
)

type OrderItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

type Order struct {
	ID            string        `json:"id"`
	UserID        string        `json:"userId,omitempty"`
	Items         []OrderItem   `json:"items"`
	Total         float64       `json:"total"`
	Address       string        `json:"address"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	ChangeAmount  *float64      `json:"changeAmount"`
	Status        OrderStatus   `json:"status"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// NormalizeChange clears the change amount for anything but cash payments.
func (o *Order) NormalizeChange() {
	if o.PaymentMethod != PaymentMethodCash {
		o.ChangeAmount = nil
	}
}
