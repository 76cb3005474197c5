package sheet

const (
	TableOrders      = "NewOrders"
	TableShipments   = "Shipments"
	TablePerformance = "Performance"
)

var orderColumns = []string{
	"order_id", "phone", "customer_name", "product", "quantity", "balance_to_pay",
	"advance_paid", "total", "address", "city", "pincode", "payment_method",
	"status", "timestamp", "ai_order_id", "tracking_id", "courier_name",
	"created_by", "advance_screenshot", "PICKUP LOCATION", "Remarks", "Last Update Date",
}

var shipmentColumns = []string{
	"shipment_id", "order_id", "courier", "tracking_id", "status", "created_at", "updated_at",
}

var performanceColumns = []string{
	"date", "created_by", "no_of_leads", "no_of_orders",
}

// DefaultSchemas returns the header each known table is created with.
func DefaultSchemas() map[string][]string {
	return map[string][]string{
		TableOrders:      append([]string(nil), orderColumns...),
		TableShipments:   append([]string(nil), shipmentColumns...),
		TablePerformance: append([]string(nil), performanceColumns...),
	}
}

func emptyTable(schemas map[string][]string, name string) *Table {
	return NewTable(name, schemas[name]...)
}
