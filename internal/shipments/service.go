package shipments

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/imiq/imiq-backend/internal/orders"
	"github.com/imiq/imiq-backend/pkg/enums"
	pkgerrors "github.com/imiq/imiq-backend/pkg/errors"
	"github.com/imiq/imiq-backend/pkg/logger"
	"github.com/imiq/imiq-backend/pkg/sheet"
)

// Service owns the shipment table and keeps the linked order in step with it.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*Shipment, error)
	UpdateStatus(ctx context.Context, shipmentID, status string) error
	GetByID(ctx context.Context, shipmentID string) (*Shipment, bool)
	GetByOrder(ctx context.Context, orderID string) (*Shipment, bool)
	GetAll(ctx context.Context) []Shipment
	Search(ctx context.Context, term, field string) []Shipment
	Statistics(ctx context.Context) Statistics
	ListOrdersWithoutShipments(ctx context.Context) []orders.Order
	CourierPayload(ctx context.Context, shipmentID, courier string) (any, error)
}

// Options tunes a Service. Zero values fall back to UTC and time.Now.
type Options struct {
	Location *time.Location
	Clock    func() time.Time
	Sender   Sender
}

type service struct {
	store  sheet.Store
	orders orders.Service
	logg   *logger.Logger
	loc    *time.Location
	now    func() time.Time
	sender Sender
	newID  func() string
}

// NewService builds a shipment service. Order side effects go through the
// order service so both tables stay consistent.
func NewService(store sheet.Store, orderSvc orders.Service, logg *logger.Logger, opts Options) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("row store required")
	}
	if orderSvc == nil {
		return nil, fmt.Errorf("order service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	s := &service{
		store:  store,
		orders: orderSvc,
		logg:   logg,
		loc:    opts.Location,
		now:    opts.Clock,
		sender: opts.Sender,
		newID:  generateShipmentID,
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// generateShipmentID returns "SHIP-" plus eight upper-case hex characters.
func generateShipmentID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return idPrefix + strings.ToUpper(raw[:8])
}

func (s *service) Create(ctx context.Context, input CreateInput) (*Shipment, error) {
	orderID := strings.TrimSpace(input.OrderID)
	courierName := strings.TrimSpace(input.Courier)
	trackingID := strings.TrimSpace(input.TrackingID)

	problems := map[string]string{}
	if orderID == "" {
		problems[ColOrderID] = "is required"
	}
	if courierName == "" {
		problems[ColCourier] = "is required"
	}
	if len(trackingID) < minTrackingLength {
		problems[ColTrackingID] = fmt.Sprintf("must be at least %d characters", minTrackingLength)
	}
	status := enums.ShipmentStatusShipped
	if raw := strings.TrimSpace(input.Status); raw != "" {
		parsed, err := enums.ParseShipmentStatus(raw)
		if err != nil {
			problems[ColStatus] = "must be one of " + joinStatuses()
		}
		status = parsed
	}
	if len(problems) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid shipment").WithDetails(problems)
	}

	ctx = s.logg.WithOrderID(ctx, orderID)
	_, found, err := s.orders.Lookup(ctx, orderID)
	if err != nil {
		s.logg.Error(ctx, "shipment.order_lookup_failed", err)
		return nil, err
	}
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order does not exist").
			WithDetails(map[string]any{"order_id": orderID})
	}

	courier, known := enums.LookupCourier(courierName)
	if !known {
		s.logg.Warn(s.logg.WithField(ctx, "courier", courierName), "shipment.unknown_courier")
	}

	table, err := s.store.ReadTable(ctx, sheet.TableShipments)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read shipments")
	}
	taken := make(map[string]bool, table.Len())
	for _, row := range table.Rows {
		taken[strings.TrimSpace(row.Get(ColShipmentID))] = true
	}
	id := s.newID()
	for attempt := 0; attempt < 5 && taken[id]; attempt++ {
		id = s.newID()
	}
	if taken[id] {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "shipment id already exists").WithDetails(map[string]any{"shipment_id": id})
	}

	stamp := s.now().In(s.loc).Format(sheet.TimestampLayout)
	row := sheet.Row{
		ColShipmentID: id,
		ColOrderID:    orderID,
		ColCourier:    courier.String(),
		ColTrackingID: trackingID,
		ColStatus:     status.String(),
		ColCreatedAt:  stamp,
		ColUpdatedAt:  stamp,
	}
	ctx = s.logg.WithShipmentID(ctx, id)
	if err := s.store.AppendRow(ctx, sheet.TableShipments, row); err != nil {
		s.logg.Error(ctx, "shipment.create_failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append shipment row")
	}

	if err := s.orders.AddTrackingInfo(ctx, orderID, trackingID, courier.String()); err != nil {
		s.logg.Error(ctx, "shipment.order_sync_failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record tracking on order").
			WithDetails(map[string]any{"shipment_id": id})
	}
	s.logg.Info(ctx, "shipment.created")

	sh := shipmentFromRow(row, s.loc)
	return &sh, nil
}

func (s *service) UpdateStatus(ctx context.Context, shipmentID, status string) error {
	id := strings.TrimSpace(shipmentID)
	parsed, err := enums.ParseShipmentStatus(status)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipment status").
			WithDetails(map[string]any{"status": status, "allowed": enums.ShipmentStatuses()})
	}

	ctx = s.logg.WithShipmentID(ctx, id)
	stamp := s.now().In(s.loc).Format(sheet.TimestampLayout)
	var orderID string
	updated, err := s.store.UpdateRows(ctx, sheet.TableShipments,
		func(row sheet.Row) bool { return id != "" && strings.TrimSpace(row.Get(ColShipmentID)) == id },
		func(row sheet.Row) sheet.Row {
			row[ColStatus] = parsed.String()
			row[ColUpdatedAt] = stamp
			orderID = strings.TrimSpace(row.Get(ColOrderID))
			return row
		})
	if err != nil {
		s.logg.Error(ctx, "shipment.update_failed", err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update shipment row")
	}
	if updated == 0 {
		s.logg.Warn(ctx, "shipment.update_not_found")
		return pkgerrors.New(pkgerrors.CodeNotFound, "shipment not found").WithDetails(map[string]any{"shipment_id": id})
	}
	ctx = s.logg.WithField(ctx, "status", parsed.String())
	s.logg.Info(ctx, "shipment.status_updated")

	if parsed == enums.ShipmentStatusDelivered && orderID != "" {
		// the shipment write already landed; a failed order sync is logged only
		if err := s.orders.UpdateStatus(ctx, orderID, enums.OrderStatusDelivered.String()); err != nil {
			s.logg.Error(s.logg.WithOrderID(ctx, orderID), "shipment.order_sync_failed", err)
		}
	}
	return nil
}

func (s *service) GetByID(ctx context.Context, shipmentID string) (*Shipment, bool) {
	id := strings.TrimSpace(shipmentID)
	if id == "" {
		return nil, false
	}
	for _, sh := range s.load(ctx) {
		if strings.TrimSpace(sh.ShipmentID) == id {
			return &sh, true
		}
	}
	return nil, false
}

// GetByOrder returns the most recent shipment recorded for the order.
func (s *service) GetByOrder(ctx context.Context, orderID string) (*Shipment, bool) {
	id := strings.TrimSpace(orderID)
	if id == "" {
		return nil, false
	}
	for _, sh := range s.GetAll(ctx) {
		if strings.TrimSpace(sh.OrderID) == id {
			return &sh, true
		}
	}
	return nil, false
}

func (s *service) GetAll(ctx context.Context) []Shipment {
	return sortNewestFirst(s.load(ctx))
}

func (s *service) Search(ctx context.Context, term, field string) []Shipment {
	table, ok := s.read(ctx)
	if !ok {
		return []Shipment{}
	}
	term = strings.ToLower(strings.TrimSpace(term))
	field = strings.TrimSpace(field)
	if field == "" {
		field = SearchFieldAll
	}
	if field != SearchFieldAll && !table.HasColumn(field) {
		return []Shipment{}
	}

	out := make([]Shipment, 0)
	for _, row := range table.Rows {
		if matches(row, term, field) {
			out = append(out, shipmentFromRow(row, s.loc))
		}
	}
	return sortNewestFirst(out)
}

func matches(row sheet.Row, term, field string) bool {
	if term == "" {
		return true
	}
	if field == SearchFieldAll {
		for _, col := range searchAllColumns {
			if strings.Contains(strings.ToLower(row.Get(col)), term) {
				return true
			}
		}
		return false
	}
	value := strings.ToLower(strings.TrimSpace(row.Get(field)))
	if exactColumns[field] {
		return value == term
	}
	return strings.Contains(value, term)
}

func (s *service) Statistics(ctx context.Context) Statistics {
	return Summarize(s.load(ctx))
}

// Summarize computes shipment statistics over an in-memory slice.
func Summarize(shipments []Shipment) Statistics {
	stats := Statistics{
		TotalShipments:   len(shipments),
		StatusBreakdown:  map[string]int{},
		CourierBreakdown: map[string]int{},
	}
	delivered := 0
	var deliveryDays float64
	timed := 0
	for _, sh := range shipments {
		status := strings.TrimSpace(sh.Status)
		if status == "" {
			status = "Unknown"
		}
		stats.StatusBreakdown[status]++
		courier := strings.TrimSpace(sh.Courier)
		if courier == "" {
			courier = "Unknown"
		}
		stats.CourierBreakdown[courier]++

		if enums.ShipmentStatus(status) != enums.ShipmentStatusDelivered {
			continue
		}
		delivered++
		if !sh.CreatedAt.IsZero() && !sh.UpdatedAt.IsZero() && !sh.UpdatedAt.Before(sh.CreatedAt) {
			deliveryDays += sh.UpdatedAt.Sub(sh.CreatedAt).Hours() / 24
			timed++
		}
	}
	if stats.TotalShipments > 0 {
		stats.DeliverySuccessRate = round(float64(delivered)/float64(stats.TotalShipments)*100, 1)
	}
	if timed > 0 {
		stats.AverageDeliveryDays = round(deliveryDays/float64(timed), 1)
	}
	return stats
}

func (s *service) ListOrdersWithoutShipments(ctx context.Context) []orders.Order {
	shipped := map[string]bool{}
	for _, sh := range s.load(ctx) {
		shipped[strings.TrimSpace(sh.OrderID)] = true
	}
	out := make([]orders.Order, 0)
	for _, o := range s.orders.GetAll(ctx) {
		status := enums.OrderStatus(strings.TrimSpace(o.Status))
		if status == enums.OrderStatusCancelled || status == enums.OrderStatusReturned {
			continue
		}
		if shipped[strings.TrimSpace(o.OrderID)] {
			continue
		}
		out = append(out, o)
	}
	return out
}

// CourierPayload builds the booking document for a supported courier. The
// payload is returned, never sent.
func (s *service) CourierPayload(ctx context.Context, shipmentID, courier string) (any, error) {
	sh, ok := s.GetByID(ctx, shipmentID)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shipment not found").WithDetails(map[string]any{"shipment_id": shipmentID})
	}
	order, ok := s.orders.GetByID(ctx, sh.OrderID)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found").WithDetails(map[string]any{"order_id": sh.OrderID})
	}
	target, _ := enums.LookupCourier(courier)
	switch target {
	case enums.CourierDTDC:
		return BuildDTDCPayload(*sh, *order, s.sender), nil
	case enums.CourierDelhivery:
		return BuildDelhiveryPayload(*sh, *order, s.sender), nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no payload format for courier").
			WithDetails(map[string]any{"courier": courier, "supported": []string{enums.CourierDTDC.String(), enums.CourierDelhivery.String()}})
	}
}

func (s *service) load(ctx context.Context) []Shipment {
	table, ok := s.read(ctx)
	if !ok {
		return []Shipment{}
	}
	out := make([]Shipment, 0, table.Len())
	for _, row := range table.Rows {
		out = append(out, shipmentFromRow(row, s.loc))
	}
	return out
}

func (s *service) read(ctx context.Context) (*sheet.Table, bool) {
	table, err := s.store.ReadTable(ctx, sheet.TableShipments)
	if err != nil {
		s.logg.Error(s.logg.WithTable(ctx, sheet.TableShipments), "shipments.read_failed", err)
		return nil, false
	}
	return table, true
}

// sortNewestFirst orders by created_at descending. Among equal stamps the
// later row wins; unparsable stamps sort last.
func sortNewestFirst(shipments []Shipment) []Shipment {
	for i, j := 0, len(shipments)-1; i < j; i, j = i+1, j-1 {
		shipments[i], shipments[j] = shipments[j], shipments[i]
	}
	sort.SliceStable(shipments, func(i, j int) bool {
		a, b := shipments[i].CreatedAt, shipments[j].CreatedAt
		if a.IsZero() || b.IsZero() {
			return !a.IsZero() && b.IsZero()
		}
		return a.After(b)
	})
	return shipments
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func joinStatuses() string {
	statuses := enums.ShipmentStatuses()
	parts := make([]string, len(statuses))
	for i, st := range statuses {
		parts[i] = st.String()
	}
	return strings.Join(parts, ", ")
}
