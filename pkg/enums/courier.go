package enums

import "strings"

// Courier names the carriers the operation ships with.
type Courier string

const (
	CourierDTDC      Courier = "DTDC"
	CourierDelhivery Courier = "Delhivery"
	CourierBlueDart  Courier = "Blue Dart"
	CourierOther     Courier = "Other"
)

var knownCouriers = []Courier{
	CourierDTDC,
	CourierDelhivery,
	CourierBlueDart,
	CourierOther,
}

func (c Courier) String() string {
	return string(c)
}

// LookupCourier matches a courier name case-insensitively.
func LookupCourier(value string) (Courier, bool) {
	trimmed := strings.TrimSpace(value)
	for _, candidate := range knownCouriers {
		if strings.EqualFold(string(candidate), trimmed) {
			return candidate, true
		}
	}
	return Courier(trimmed), false
}
