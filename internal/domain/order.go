package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus fulfillment stage of an order
type OrderStatus string

const (
	OrderStatusNew        OrderStatus = "NEW"
	OrderStatusAccepted   OrderStatus = "ACCEPTED"
	OrderStatusRejected   OrderStatus = "REJECTED"
	OrderStatusCollecting OrderStatus = "COLLECTING"
	OrderStatusOnWay      OrderStatus = "ON_WAY"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
)

// Terminal statuses accept no further transitions.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusRejected || s == OrderStatusDelivered
}

// OrderAction operator request to move an order forward
type OrderAction string

const (
	ActionAccept  OrderAction = "accept"
	ActionReject  OrderAction = "reject"
	ActionCollect OrderAction = "collect"
	ActionShip    OrderAction = "ship"
	ActionDeliver OrderAction = "deliver"
)

type transition struct {
	from   OrderStatus
	action OrderAction
}

var lifecycle = map[transition]OrderStatus{
	{OrderStatusNew, ActionAccept}:       OrderStatusAccepted,
	{OrderStatusNew, ActionReject}:       OrderStatusRejected,
	{OrderStatusAccepted, ActionCollect}: OrderStatusCollecting,
	{OrderStatusCollecting, ActionShip}:  OrderStatusOnWay,
	{OrderStatusOnWay, ActionDeliver}:    OrderStatusDelivered,
}

// actionOrder keeps NextActions deterministic.
var actionOrder = []OrderAction{ActionAccept, ActionReject, ActionCollect, ActionShip, ActionDeliver}

// Next returns the status reached by applying a to s.
func (s OrderStatus) Next(a OrderAction) (OrderStatus, bool) {
	to, ok := lifecycle[transition{s, a}]
	return to, ok
}

// NextActions lists the actions valid from s.
func (s OrderStatus) NextActions() []OrderAction {
	var out []OrderAction
	for _, a := range actionOrder {
		if _, ok := lifecycle[transition{s, a}]; ok {
			out = append(out, a)
		}
	}
	return out
}

func ParseOrderAction(s string) (OrderAction, bool) {
	for _, a := range actionOrder {
		if string(a) == s {
			return a, true
		}
	}
	return "", false
}

// OrderLine snapshot of a cart line at order creation time
type OrderLine struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Unit        Unit            `json:"unit"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    decimal.Decimal `json:"quantity"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// Order placed delivery order
type Order struct {
	ID          string          `json:"id"`
	BuyerID     int64           `json:"buyer_id"`
	Phone       string          `json:"phone"`
	Address     string          `json:"address"`
	Location    *GeoPoint       `json:"location,omitempty"`
	Note        string          `json:"note,omitempty"`
	Total       decimal.Decimal `json:"total"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	Status      OrderStatus     `json:"status"`
	Lines       []OrderLine     `json:"lines"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// GrandTotal is what the buyer pays on delivery.
func (o Order) GrandTotal() decimal.Decimal {
	return o.Total.Add(o.DeliveryFee)
}

// ShortID first eight characters of the identifier, used in chat messages.
func (o Order) ShortID() string {
	if len(o.ID) > 8 {
		return o.ID[:8]
	}
	return o.ID
}

// CheckoutDetails contact and delivery data collected during checkout
type CheckoutDetails struct {
	BuyerID  int64
	Phone    string
	Address  string
	Location *GeoPoint
	Note     string
}

// Stats shop totals shown in the admin panel
type Stats struct {
	Orders    int             `json:"orders"`
	Active    int             `json:"active"`
	Delivered int             `json:"delivered"`
	Revenue   decimal.Decimal `json:"revenue"`
}
