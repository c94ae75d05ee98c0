package models

import "time"

// OrderStatus represents the broker-reported state of an order.
type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "PENDING"
	OrderStatusOpen     OrderStatus = "OPEN"
	OrderStatusFilled   OrderStatus = "FILLED"
	OrderStatusCanceled OrderStatus = "CANCELED"
	OrderStatusRejected OrderStatus = "REJECTED"
)

// Order represents a limit order submitted to the gateway.
type Order struct {
	ID       string
	Contract OptionContract
	Side     OrderSide
	Quantity int
	Limit    float64
	Status   OrderStatus
	PlacedAt time.Time
}

// Fill is the result of a completed order execution.
type Fill struct {
	Contract OptionContract
	Side     OrderSide
	Quantity int
	Price    float64
	Attempts int
	FilledAt time.Time
}

// OrderAttempt records one iteration of the execution engine's retry
// loop. Ephemeral; exists only for logging and inspection.
type OrderAttempt struct {
	Index      int
	LimitPrice float64
	Filled     bool
}

// Position represents a held instrument as reported by the gateway.
type Position struct {
	Symbol       string
	Quantity     int
	AveragePrice float64
}
