package models

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Order statuses, in board order. Cancelled sits outside the board.
const (
	OrderReceived  = "received"
	OrderWashing   = "washing"
	OrderDrying    = "drying"
	OrderReady     = "ready"
	OrderDelivered = "delivered"
	OrderCancelled = "cancelled"
)

// MaxLineQuantity bounds the quantity of a single order line.
const MaxLineQuantity = 10_000

// OrderBoard is the left-to-right column order of the status board.
var OrderBoard = []string{OrderReceived, OrderWashing, OrderDrying, OrderReady, OrderDelivered}

// OrderLine is one priced line of an order. Name and price are copied from the
// catalog at order time so later catalog edits don't rewrite history.
type OrderLine struct {
	Kind           string             `bson:"kind" json:"kind"` // service | item
	RefID          primitive.ObjectID `bson:"ref_id" json:"ref_id"`
	Name           string             `bson:"name" json:"name"`
	Quantity       float64            `bson:"quantity" json:"quantity"`
	UnitPriceCents int64              `bson:"unit_price_cents" json:"unit_price_cents"`
}

// Order tracks one customer drop-off through the wash.
type Order struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	WorkspaceID primitive.ObjectID `bson:"workspace_id" json:"workspace_id"`
	CustomerID  primitive.ObjectID `bson:"customer_id" json:"customer_id"`
	Lines       []OrderLine        `bson:"lines" json:"lines"`
	TotalCents  int64              `bson:"total_cents" json:"total_cents"`
	Status      string             `bson:"status" json:"status"`
	Notes       string             `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedBy   string             `bson:"created_by" json:"created_by"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// boardIndex returns the column of status on the board, or -1.
func boardIndex(status string) int {
	for i, s := range OrderBoard {
		if s == status {
			return i
		}
	}
	return -1
}

// IsValidOrderStatus reports whether status is a known order status.
func IsValidOrderStatus(status string) bool {
	return status == OrderCancelled || boardIndex(status) >= 0
}

// CanMoveOrder reports whether an order may move from one status to another.
// On the board an order moves one column left or right. Any status before
// delivered may be cancelled. Delivered and cancelled are terminal.
func CanMoveOrder(from, to string) bool {
	if from == OrderDelivered || from == OrderCancelled {
		return false
	}
	if to == OrderCancelled {
		return boardIndex(from) >= 0
	}
	fi, ti := boardIndex(from), boardIndex(to)
	if fi < 0 || ti < 0 {
		return false
	}
	d := ti - fi
	return d == 1 || d == -1
}

// Total sums quantity * unit price across lines, rounded to the nearest cent.
// ok is false when the sum is not a finite value that fits in int64.
func (o Order) Total() (cents int64, ok bool) {
	var total float64
	for _, l := range o.Lines {
		total += l.Quantity * float64(l.UnitPriceCents)
	}
	total = math.Floor(total + 0.5)
	if math.IsNaN(total) || total >= math.MaxInt64 || total < math.MinInt64 {
		return 0, false
	}
	return int64(total), true
}
