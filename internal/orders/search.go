package orders

import (
	"context"
	"strings"
	"time"
)

var searchAllFields = []string{ColOrderID, ColCustomerName, ColProduct, ColStatus, ColPhone}

// Search scopes to a user (or everyone), applies the inclusive date window on
// the calendar date of each order, then matches the term. An unknown field
// yields an empty result.
func (s *service) Search(ctx context.Context, params SearchParams) []Order {
	candidates := s.scope(ctx, params.UserID)
	if params.From != nil || params.To != nil {
		candidates = filterByDate(candidates, params.From, params.To, s.loc)
	}
	if status := strings.TrimSpace(params.Status); status != "" {
		candidates = filterByStatus(candidates, status)
	}

	term := strings.ToLower(strings.TrimSpace(params.Term))
	if term == "" {
		return candidates
	}
	field := strings.TrimSpace(params.Field)
	if field == "" {
		field = SearchFieldAll
	}

	if field != SearchFieldAll && field != ColOrderID {
		table, ok := s.read(ctx)
		if !ok || !table.HasColumn(field) {
			s.logg.Warn(s.logg.WithField(ctx, "field", field), "orders.search_unknown_field")
			return []Order{}
		}
	}

	out := make([]Order, 0)
	for _, o := range candidates {
		if matchesTerm(o, field, term) {
			out = append(out, o)
		}
	}
	return out
}

func matchesTerm(o Order, field, term string) bool {
	switch field {
	case SearchFieldAll:
		for _, col := range searchAllFields {
			if strings.Contains(strings.ToLower(o.column(col)), term) {
				return true
			}
		}
		return false
	case ColOrderID:
		return strings.ToLower(strings.TrimSpace(o.OrderID)) == term
	default:
		return strings.Contains(strings.ToLower(o.column(field)), term)
	}
}

func filterByStatus(orders []Order, status string) []Order {
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		if strings.EqualFold(strings.TrimSpace(o.Status), status) {
			out = append(out, o)
		}
	}
	return out
}

func filterByDate(orders []Order, from, to *time.Time, loc *time.Location) []Order {
	var start, end string
	if from != nil {
		start = from.In(loc).Format(time.DateOnly)
	}
	if to != nil {
		end = to.In(loc).Format(time.DateOnly)
	}
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		if o.Timestamp.IsZero() {
			continue
		}
		day := o.Timestamp.In(loc).Format(time.DateOnly)
		if start != "" && day < start {
			continue
		}
		if end != "" && day > end {
			continue
		}
		out = append(out, o)
	}
	return out
}

// column returns the raw text of a named column.
func (o Order) column(name string) string {
	switch name {
	case ColOrderID:
		return o.OrderID
	case ColPhone:
		return o.Phone
	case ColCustomerName:
		return o.CustomerName
	case ColProduct:
		return o.Product
	case ColQuantity:
		return itoa(o.Quantity)
	case ColBalanceToPay:
		return o.BalanceToPay.String()
	case ColAdvancePaid:
		return o.AdvancePaid.String()
	case ColTotal:
		return o.Total.String()
	case ColAddress:
		return o.Address
	case ColCity:
		return o.City
	case ColPincode:
		return o.Pincode
	case ColPaymentMethod:
		return o.PaymentMethod
	case ColStatus:
		return o.Status
	case ColTimestamp:
		return o.RawTimestamp
	case ColAIOrderID:
		return o.AIOrderID
	case ColTrackingID:
		return o.TrackingID
	case ColCourierName:
		return o.CourierName
	case ColCreatedBy:
		return o.CreatedBy
	case ColAdvanceScreenshot:
		return o.AdvanceScreenshot
	case ColPickupLocation:
		return o.PickupLocation
	case ColRemarks:
		return o.Remarks
	case ColLastUpdateDate:
		return o.LastUpdateDate
	}
	return o.Extra[name]
}
