package orders

import (
	"strings"
	"time"

	"github.com/imiq/imiq-backend/pkg/sheet"
	"github.com/shopspring/decimal"
)

// Column names of the order table.
const (
	ColOrderID           = "order_id"
	ColPhone             = "phone"
	ColCustomerName      = "customer_name"
	ColProduct           = "product"
	ColQuantity          = "quantity"
	ColBalanceToPay      = "balance_to_pay"
	ColAdvancePaid       = "advance_paid"
	ColTotal             = "total"
	ColPrice             = "price"
	ColAddress           = "address"
	ColCity              = "city"
	ColPincode           = "pincode"
	ColPaymentMethod     = "payment_method"
	ColStatus            = "status"
	ColTimestamp         = "timestamp"
	ColAIOrderID         = "ai_order_id"
	ColTrackingID        = "tracking_id"
	ColCourierName       = "courier_name"
	ColCreatedBy         = "created_by"
	ColAdvanceScreenshot = "advance_screenshot"
	ColPickupLocation    = "PICKUP LOCATION"
	ColRemarks           = "Remarks"
	ColLastUpdateDate    = "Last Update Date"
	ColCustomerEmail     = "customer_email"
	ColLeadID            = "lead_id"
)

const (
	DefaultPaymentMethod     = "COD"
	DefaultAdvanceScreenshot = "No"
	lastUpdateLayout         = "2006-01-02 15:04:05"
)

var knownColumns = map[string]bool{
	ColOrderID: true, ColPhone: true, ColCustomerName: true, ColProduct: true, ColQuantity: true,
	ColBalanceToPay: true, ColAdvancePaid: true, ColTotal: true, ColAddress: true, ColCity: true,
	ColPincode: true, ColPaymentMethod: true, ColStatus: true, ColTimestamp: true,
	ColAIOrderID: true, ColTrackingID: true, ColCourierName: true, ColCreatedBy: true,
	ColAdvanceScreenshot: true, ColPickupLocation: true, ColRemarks: true, ColLastUpdateDate: true,
}

// Order is a typed view of one order row. Timestamp is zero when the stored
// value could not be parsed; RawTimestamp keeps the cell as written.
type Order struct {
	OrderID           string            `json:"order_id"`
	Phone             string            `json:"phone"`
	CustomerName      string            `json:"customer_name"`
	Product           string            `json:"product"`
	Quantity          int               `json:"quantity"`
	BalanceToPay      decimal.Decimal   `json:"balance_to_pay"`
	AdvancePaid       decimal.Decimal   `json:"advance_paid"`
	Total             decimal.Decimal   `json:"total"`
	Address           string            `json:"address"`
	City              string            `json:"city"`
	Pincode           string            `json:"pincode"`
	PaymentMethod     string            `json:"payment_method"`
	Status            string            `json:"status"`
	Timestamp         time.Time         `json:"timestamp,omitzero"`
	RawTimestamp      string            `json:"raw_timestamp,omitempty"`
	AIOrderID         string            `json:"ai_order_id"`
	TrackingID        string            `json:"tracking_id"`
	CourierName       string            `json:"courier_name"`
	CreatedBy         string            `json:"created_by"`
	AdvanceScreenshot string            `json:"advance_screenshot"`
	PickupLocation    string            `json:"pickup_location"`
	Remarks           string            `json:"remarks"`
	LastUpdateDate    string            `json:"last_update_date"`
	Extra             map[string]string `json:"extra,omitempty"`

	totalValid bool
}

// HasTracking reports whether a non-blank tracking id is recorded.
func (o Order) HasTracking() bool {
	return strings.TrimSpace(o.TrackingID) != ""
}

func orderFromRow(row sheet.Row, loc *time.Location) Order {
	o := Order{
		OrderID:           row.Get(ColOrderID),
		Phone:             row.Get(ColPhone),
		CustomerName:      row.Get(ColCustomerName),
		Product:           row.Get(ColProduct),
		Address:           row.Get(ColAddress),
		City:              row.Get(ColCity),
		Pincode:           row.Get(ColPincode),
		PaymentMethod:     row.Get(ColPaymentMethod),
		Status:            row.Get(ColStatus),
		RawTimestamp:      row.Get(ColTimestamp),
		AIOrderID:         row.Get(ColAIOrderID),
		TrackingID:        row.Get(ColTrackingID),
		CourierName:       row.Get(ColCourierName),
		CreatedBy:         row.Get(ColCreatedBy),
		AdvanceScreenshot: row.Get(ColAdvanceScreenshot),
		PickupLocation:    row.Get(ColPickupLocation),
		Remarks:           row.Get(ColRemarks),
		LastUpdateDate:    row.Get(ColLastUpdateDate),
	}
	o.Quantity, _ = sheet.ParseInt(row.Get(ColQuantity))
	o.BalanceToPay, _ = sheet.ParseDecimal(row.Get(ColBalanceToPay))
	o.AdvancePaid, _ = sheet.ParseDecimal(row.Get(ColAdvancePaid))
	o.Total, o.totalValid = sheet.ParseDecimal(row.Get(ColTotal))
	if ts, ok := sheet.ParseTime(o.RawTimestamp); ok {
		o.Timestamp = ts.In(loc)
	}
	for col, v := range row {
		if knownColumns[col] || v == "" {
			continue
		}
		if o.Extra == nil {
			o.Extra = map[string]string{}
		}
		o.Extra[col] = v
	}
	return o
}

// CreateInput carries the caller-supplied fields of a new order. Nil numeric
// fields take their defaults.
type CreateInput struct {
	OrderID           string           `json:"order_id"`
	Phone             string           `json:"phone"`
	CustomerName      string           `json:"customer_name" validate:"required"`
	Product           string           `json:"product" validate:"required"`
	Quantity          *int             `json:"quantity"`
	BalanceToPay      *decimal.Decimal `json:"balance_to_pay"`
	AdvancePaid       *decimal.Decimal `json:"advance_paid"`
	Total             *decimal.Decimal `json:"total"`
	Address           string           `json:"address"`
	City              string           `json:"city"`
	Pincode           string           `json:"pincode"`
	PaymentMethod     string           `json:"payment_method"`
	Status            string           `json:"status"`
	Timestamp         string           `json:"timestamp"`
	AIOrderID         string           `json:"ai_order_id"`
	TrackingID        string           `json:"tracking_id"`
	CourierName       string           `json:"courier_name"`
	CreatedBy         string           `json:"created_by"`
	AdvanceScreenshot string           `json:"advance_screenshot"`
	PickupLocation    string           `json:"pickup_location"`
	Remarks           string           `json:"remarks"`
}

// UpdateFields maps column names onto new values. Only columns in
// UpdatableFields are applied.
type UpdateFields map[string]string

// UpdatableFields lists the columns Update may write.
var UpdatableFields = []string{
	ColCustomerName, ColCustomerEmail, ColProduct, ColQuantity, ColPrice,
	ColStatus, ColLeadID, ColTrackingID, ColCourierName,
}

func isUpdatable(field string) bool {
	for _, f := range UpdatableFields {
		if f == field {
			return true
		}
	}
	return false
}

// SearchParams narrows Search. Empty Term skips text matching; nil dates are
// open-ended; Field defaults to SearchFieldAll. A non-blank Status keeps only
// orders with that status, compared case-insensitively.
type SearchParams struct {
	Term   string
	Field  string
	From   *time.Time
	To     *time.Time
	UserID string
	Status string
}

const SearchFieldAll = "All"

// Frequency is one entry of a top-N breakdown.
type Frequency struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Statistics summarizes a set of orders.
type Statistics struct {
	TotalOrders       int             `json:"total_orders"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
	StatusBreakdown   map[string]int  `json:"status_breakdown"`
	TopProducts       []Frequency     `json:"top_products"`
	TopCustomers      []Frequency     `json:"top_customers"`
}
