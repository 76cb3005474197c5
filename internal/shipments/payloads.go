package shipments

import (
	"strconv"
	"strings"

	"github.com/imiq/imiq-backend/internal/orders"
	"github.com/imiq/imiq-backend/pkg/config"
)

// Sender is the pickup and return party printed on courier bookings.
type Sender struct {
	Name    string
	Address string
	City    string
	State   string
	Pincode string
	Phone   string
}

// SenderFromConfig maps the courier config section onto a Sender.
func SenderFromConfig(cfg config.CourierConfig) Sender {
	return Sender{
		Name:    cfg.SenderName,
		Address: cfg.SenderAddress,
		City:    cfg.SenderCity,
		State:   cfg.SenderState,
		Pincode: cfg.SenderPincode,
		Phone:   cfg.SenderPhone,
	}
}

// Placeholders used when the order lacks delivery details.
const (
	placeholderAddress = "Customer Address (to be filled)"
	placeholderCity    = "Customer City"
	placeholderState   = "Customer State"
	placeholderPincode = "000000"
	placeholderPhone   = "0000000000"
)

type Address struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
	Phone   string `json:"phone"`
}

type Dimensions struct {
	Length  string `json:"length"`
	Breadth string `json:"breadth"`
	Height  string `json:"height"`
}

type ProductDetails struct {
	Description string     `json:"description"`
	Weight      string     `json:"weight"`
	Dimensions  Dimensions `json:"dimensions"`
}

// DTDCPayload is the DTDC consignment booking document.
type DTDCPayload struct {
	ConsignmentNumber string         `json:"consignment_number"`
	PickupAddress     Address        `json:"pickup_address"`
	DeliveryAddress   Address        `json:"delivery_address"`
	ProductDetails    ProductDetails `json:"product_details"`
	ServiceType       string         `json:"service_type"`
	PaymentMode       string         `json:"payment_mode"`
	CODAmount         string         `json:"cod_amount,omitempty"`
}

// DelhiveryPayload wraps one Delhivery shipment record.
type DelhiveryPayload struct {
	Shipments []DelhiveryShipment `json:"shipments"`
}

type DelhiveryShipment struct {
	Name           string `json:"name"`
	Add            string `json:"add"`
	Pin            string `json:"pin"`
	City           string `json:"city"`
	State          string `json:"state"`
	Country        string `json:"country"`
	Phone          string `json:"phone"`
	Order          string `json:"order"`
	PaymentMode    string `json:"payment_mode"`
	ReturnPin      string `json:"return_pin"`
	ReturnCity     string `json:"return_city"`
	ReturnPhone    string `json:"return_phone"`
	ReturnAdd      string `json:"return_add"`
	ReturnState    string `json:"return_state"`
	ReturnCountry  string `json:"return_country"`
	ProductsDesc   string `json:"products_desc"`
	HSNCode        string `json:"hsn_code"`
	CODAmount      string `json:"cod_amount"`
	OrderDate      string `json:"order_date"`
	TotalAmount    string `json:"total_amount"`
	SellerAdd      string `json:"seller_add"`
	SellerName     string `json:"seller_name"`
	SellerInv      string `json:"seller_inv"`
	Quantity       string `json:"quantity"`
	Waybill        string `json:"waybill"`
	ShipmentWidth  string `json:"shipment_width"`
	ShipmentHeight string `json:"shipment_height"`
	Weight         string `json:"weight"`
	SellerGSTTIN   string `json:"seller_gst_tin"`
	ShippingMode   string `json:"shipping_mode"`
	AddressType    string `json:"address_type"`
}

// BuildDTDCPayload maps a shipment and its order onto a DTDC booking.
func BuildDTDCPayload(sh Shipment, order orders.Order, sender Sender) DTDCPayload {
	payload := DTDCPayload{
		ConsignmentNumber: sh.TrackingID,
		PickupAddress: Address{
			Name:    sender.Name,
			Address: sender.Address,
			City:    sender.City,
			State:   sender.State,
			Pincode: sender.Pincode,
			Phone:   sender.Phone,
		},
		DeliveryAddress: Address{
			Name:    order.CustomerName,
			Address: fallback(order.Address, placeholderAddress),
			City:    fallback(order.City, placeholderCity),
			State:   placeholderState,
			Pincode: fallback(order.Pincode, placeholderPincode),
			Phone:   fallback(order.Phone, placeholderPhone),
		},
		ProductDetails: ProductDetails{
			Description: order.Product,
			Weight:      "1.0",
			Dimensions:  Dimensions{Length: "10", Breadth: "10", Height: "10"},
		},
		ServiceType: "Standard",
		PaymentMode: "PPD",
	}
	if isCOD(order) {
		payload.PaymentMode = "COD"
		payload.CODAmount = codAmount(order)
	}
	return payload
}

// BuildDelhiveryPayload maps a shipment and its order onto a Delhivery
// manifest entry.
func BuildDelhiveryPayload(sh Shipment, order orders.Order, sender Sender) DelhiveryPayload {
	quantity := order.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	entry := DelhiveryShipment{
		Name:           order.CustomerName,
		Add:            fallback(order.Address, placeholderAddress),
		Pin:            fallback(order.Pincode, placeholderPincode),
		City:           fallback(order.City, placeholderCity),
		State:          placeholderState,
		Country:        "India",
		Phone:          fallback(order.Phone, placeholderPhone),
		Order:          sh.TrackingID,
		PaymentMode:    "Prepaid",
		ReturnPin:      sender.Pincode,
		ReturnCity:     sender.City,
		ReturnPhone:    sender.Phone,
		ReturnAdd:      sender.Address,
		ReturnState:    sender.State,
		ReturnCountry:  "India",
		ProductsDesc:   order.Product,
		CODAmount:      "0",
		OrderDate:      order.RawTimestamp,
		TotalAmount:    order.Revenue().String(),
		SellerAdd:      sender.Address,
		SellerName:     sender.Name,
		Quantity:       strconv.Itoa(quantity),
		ShipmentWidth:  "10",
		ShipmentHeight: "10",
		Weight:         "1",
		ShippingMode:   "Surface",
		AddressType:    "home",
	}
	if isCOD(order) {
		entry.PaymentMode = "COD"
		entry.CODAmount = codAmount(order)
	}
	return DelhiveryPayload{Shipments: []DelhiveryShipment{entry}}
}

func isCOD(order orders.Order) bool {
	return strings.EqualFold(strings.TrimSpace(order.PaymentMethod), orders.DefaultPaymentMethod)
}

// codAmount is what the courier collects: the open balance, or the full
// total when no balance is recorded.
func codAmount(order orders.Order) string {
	if order.BalanceToPay.IsPositive() {
		return order.BalanceToPay.String()
	}
	return order.Revenue().String()
}

func fallback(v, placeholder string) string {
	if trimmed := strings.TrimSpace(v); trimmed != "" {
		return trimmed
	}
	return placeholder
}
