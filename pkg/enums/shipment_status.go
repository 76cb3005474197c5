package enums

import (
	"fmt"
	"strings"
)

// ShipmentStatus is the label carried in the shipment table's status column.
type ShipmentStatus string

const (
	ShipmentStatusShipped        ShipmentStatus = "Shipped"
	ShipmentStatusInTransit      ShipmentStatus = "In Transit"
	ShipmentStatusOutForDelivery ShipmentStatus = "Out for Delivery"
	ShipmentStatusDelivered      ShipmentStatus = "Delivered"
	ShipmentStatusFailedDelivery ShipmentStatus = "Failed Delivery"
	ShipmentStatusReturned       ShipmentStatus = "Returned"
)

var validShipmentStatuses = []ShipmentStatus{
	ShipmentStatusShipped,
	ShipmentStatusInTransit,
	ShipmentStatusOutForDelivery,
	ShipmentStatusDelivered,
	ShipmentStatusFailedDelivery,
	ShipmentStatusReturned,
}

func ShipmentStatuses() []ShipmentStatus {
	out := make([]ShipmentStatus, len(validShipmentStatuses))
	copy(out, validShipmentStatuses)
	return out
}

func (s ShipmentStatus) String() string {
	return string(s)
}

func (s ShipmentStatus) IsValid() bool {
	for _, candidate := range validShipmentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func ParseShipmentStatus(value string) (ShipmentStatus, error) {
	status := ShipmentStatus(strings.TrimSpace(value))
	if !status.IsValid() {
		return "", fmt.Errorf("invalid shipment status %q", value)
	}
	return status, nil
}
