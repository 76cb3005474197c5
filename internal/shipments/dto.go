package shipments

import (
	"time"

	"github.com/imiq/imiq-backend/pkg/sheet"
)

// Column names of the shipment table.
const (
	ColShipmentID = "shipment_id"
	ColOrderID    = "order_id"
	ColCourier    = "courier"
	ColTrackingID = "tracking_id"
	ColStatus     = "status"
	ColCreatedAt  = "created_at"
	ColUpdatedAt  = "updated_at"
)

const (
	idPrefix          = "SHIP-"
	minTrackingLength = 5
	SearchFieldAll    = "All"
)

var searchAllColumns = []string{ColShipmentID, ColOrderID, ColCourier, ColTrackingID, ColStatus}

var exactColumns = map[string]bool{
	ColShipmentID: true,
	ColOrderID:    true,
	ColTrackingID: true,
}

// Shipment is a typed view of one shipment row. CreatedAt and UpdatedAt are
// zero when the stored cell does not parse.
type Shipment struct {
	ShipmentID   string    `json:"shipment_id"`
	OrderID      string    `json:"order_id"`
	Courier      string    `json:"courier"`
	TrackingID   string    `json:"tracking_id"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at,omitzero"`
	UpdatedAt    time.Time `json:"updated_at,omitzero"`
	RawCreatedAt string    `json:"raw_created_at,omitempty"`
	RawUpdatedAt string    `json:"raw_updated_at,omitempty"`
}

func shipmentFromRow(row sheet.Row, loc *time.Location) Shipment {
	sh := Shipment{
		ShipmentID:   row.Get(ColShipmentID),
		OrderID:      row.Get(ColOrderID),
		Courier:      row.Get(ColCourier),
		TrackingID:   row.Get(ColTrackingID),
		Status:       row.Get(ColStatus),
		RawCreatedAt: row.Get(ColCreatedAt),
		RawUpdatedAt: row.Get(ColUpdatedAt),
	}
	if ts, ok := sheet.ParseTime(sh.RawCreatedAt); ok {
		sh.CreatedAt = ts.In(loc)
	}
	if ts, ok := sheet.ParseTime(sh.RawUpdatedAt); ok {
		sh.UpdatedAt = ts.In(loc)
	}
	return sh
}

// CreateInput carries a new shipment. Status defaults to Shipped.
type CreateInput struct {
	OrderID    string `json:"order_id" validate:"required"`
	Courier    string `json:"courier" validate:"required"`
	TrackingID string `json:"tracking_id" validate:"required,min=5"`
	Status     string `json:"status"`
}

// Statistics summarizes the shipment table. AverageDeliveryDays covers
// delivered shipments whose created and updated stamps both parse.
type Statistics struct {
	TotalShipments      int            `json:"total_shipments"`
	StatusBreakdown     map[string]int `json:"status_breakdown"`
	CourierBreakdown    map[string]int `json:"courier_breakdown"`
	DeliverySuccessRate float64        `json:"delivery_success_rate"`
	AverageDeliveryDays float64        `json:"average_delivery_days"`
}
