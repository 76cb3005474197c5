package orders

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/imiq/imiq-backend/pkg/enums"
	pkgerrors "github.com/imiq/imiq-backend/pkg/errors"
	"github.com/imiq/imiq-backend/pkg/logger"
	"github.com/imiq/imiq-backend/pkg/sheet"
	"github.com/shopspring/decimal"
)

// Service owns the order table: creation, lookups and status changes.
// Write paths return typed errors; read paths log storage failures and
// return empty results.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*Order, error)
	GetByID(ctx context.Context, orderID string) (*Order, bool)
	Lookup(ctx context.Context, orderID string) (*Order, bool, error)
	GetByUser(ctx context.Context, userID string) []Order
	GetAll(ctx context.Context) []Order
	Search(ctx context.Context, params SearchParams) []Order
	ListByStatus(ctx context.Context, status, userID string) []Order
	ListWithoutTracking(ctx context.Context) []Order
	Update(ctx context.Context, orderID string, fields UpdateFields) error
	UpdateStatus(ctx context.Context, orderID, status string) error
	AddTrackingInfo(ctx context.Context, orderID, trackingID, courier string) error
	Delete(ctx context.Context, orderID string) (bool, error)
	Statistics(ctx context.Context, userID string) Statistics
}

// Options tunes a Service. Zero values fall back to UTC, time.Now and "system".
type Options struct {
	Location     *time.Location
	Clock        func() time.Time
	DefaultOwner string
}

type service struct {
	store        sheet.Store
	logg         *logger.Logger
	loc          *time.Location
	now          func() time.Time
	defaultOwner string
	newID        func() string
}

// NewService builds an order service over the row store.
func NewService(store sheet.Store, logg *logger.Logger, opts Options) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("row store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	s := &service{
		store:        store,
		logg:         logg,
		loc:          opts.Location,
		now:          opts.Clock,
		defaultOwner: strings.TrimSpace(opts.DefaultOwner),
		newID:        generateOrderID,
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.defaultOwner == "" {
		s.defaultOwner = "system"
	}
	return s, nil
}

// generateOrderID returns "ORD" plus six upper-case hex characters.
func generateOrderID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "ORD" + strings.ToUpper(raw[:6])
}

func (s *service) Create(ctx context.Context, input CreateInput) (*Order, error) {
	now := s.now().In(s.loc)
	row, err := s.buildRow(input, now)
	if err != nil {
		return nil, err
	}

	table, err := s.store.ReadTable(ctx, sheet.TableOrders)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read orders")
	}
	taken := make(map[string]bool, table.Len())
	for _, existing := range table.Rows {
		taken[strings.TrimSpace(existing.Get(ColOrderID))] = true
	}

	id := strings.TrimSpace(input.OrderID)
	if id == "" {
		for attempt := 0; attempt < 5; attempt++ {
			id = s.newID()
			if !taken[id] {
				break
			}
		}
	}
	if taken[id] {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order id already exists").WithDetails(map[string]any{"order_id": id})
	}
	row[ColOrderID] = id

	ctx = s.logg.WithOrderID(ctx, id)
	if err := s.store.AppendRow(ctx, sheet.TableOrders, row); err != nil {
		s.logg.Error(ctx, "order.create_failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append order row")
	}
	s.logg.Info(s.logg.WithUserID(ctx, row[ColCreatedBy]), "order.created")

	order := orderFromRow(row, s.loc)
	return &order, nil
}

// buildRow validates input and fills defaults. Nothing is written here.
func (s *service) buildRow(input CreateInput, now time.Time) (sheet.Row, error) {
	problems := map[string]string{}

	customer := strings.TrimSpace(input.CustomerName)
	if customer == "" {
		problems[ColCustomerName] = "is required"
	}
	product := strings.TrimSpace(input.Product)
	if product == "" {
		problems[ColProduct] = "is required"
	}

	phone := strings.TrimSpace(input.Phone)
	if phone != "" && countDigits(phone) < 10 {
		problems[ColPhone] = "must have at least 10 digits"
	}

	quantity := 1
	if input.Quantity != nil {
		quantity = *input.Quantity
		if quantity <= 0 {
			problems[ColQuantity] = "must be positive"
		}
	}

	amounts := map[string]decimal.Decimal{}
	for col, v := range map[string]*decimal.Decimal{
		ColTotal:        input.Total,
		ColBalanceToPay: input.BalanceToPay,
		ColAdvancePaid:  input.AdvancePaid,
	} {
		amounts[col] = decimal.Zero
		if v == nil {
			continue
		}
		if v.IsNegative() {
			problems[col] = "cannot be negative"
		}
		amounts[col] = *v
	}

	status := enums.OrderStatusPending
	if raw := strings.TrimSpace(input.Status); raw != "" {
		parsed, err := enums.ParseOrderStatus(raw)
		if err != nil {
			problems[ColStatus] = "must be one of " + joinStatuses()
		}
		status = parsed
	}

	timestamp := now.Format(sheet.TimestampLayout)
	if raw := strings.TrimSpace(input.Timestamp); raw != "" {
		if _, ok := sheet.ParseTime(raw); !ok {
			problems[ColTimestamp] = "is not a recognized timestamp"
		}
		timestamp = raw
	}

	if len(problems) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order").WithDetails(problems)
	}

	owner := sheet.NormalizeUser(input.CreatedBy)
	if owner == "" {
		owner = s.defaultOwner
	}

	return sheet.Row{
		ColPhone:             phone,
		ColCustomerName:      customer,
		ColProduct:           product,
		ColQuantity:          fmt.Sprint(quantity),
		ColBalanceToPay:      amounts[ColBalanceToPay].String(),
		ColAdvancePaid:       amounts[ColAdvancePaid].String(),
		ColTotal:             amounts[ColTotal].String(),
		ColAddress:           strings.TrimSpace(input.Address),
		ColCity:              strings.TrimSpace(input.City),
		ColPincode:           strings.TrimSpace(input.Pincode),
		ColPaymentMethod:     orDefault(input.PaymentMethod, DefaultPaymentMethod),
		ColStatus:            status.String(),
		ColTimestamp:         timestamp,
		ColAIOrderID:         strings.TrimSpace(input.AIOrderID),
		ColTrackingID:        strings.TrimSpace(input.TrackingID),
		ColCourierName:       strings.TrimSpace(input.CourierName),
		ColCreatedBy:         owner,
		ColAdvanceScreenshot: orDefault(input.AdvanceScreenshot, DefaultAdvanceScreenshot),
		ColPickupLocation:    strings.TrimSpace(input.PickupLocation),
		ColRemarks:           strings.TrimSpace(input.Remarks),
		ColLastUpdateDate:    now.Format(lastUpdateLayout),
	}, nil
}

func (s *service) GetByID(ctx context.Context, orderID string) (*Order, bool) {
	o, ok, err := s.Lookup(ctx, orderID)
	if err != nil {
		s.logg.Error(s.logg.WithTable(ctx, sheet.TableOrders), "orders.read_failed", err)
		return nil, false
	}
	return o, ok
}

// Lookup is GetByID for write paths: a storage failure is returned as a
// dependency error instead of reading as absence.
func (s *service) Lookup(ctx context.Context, orderID string) (*Order, bool, error) {
	id := strings.TrimSpace(orderID)
	if id == "" {
		return nil, false, nil
	}
	table, err := s.store.ReadTable(ctx, sheet.TableOrders)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read orders")
	}
	for _, row := range table.Rows {
		if strings.TrimSpace(row.Get(ColOrderID)) == id {
			o := orderFromRow(row, s.loc)
			return &o, true, nil
		}
	}
	return nil, false, nil
}

func (s *service) GetByUser(ctx context.Context, userID string) []Order {
	table, ok := s.read(ctx)
	if !ok || !table.HasColumn(ColCreatedBy) {
		return []Order{}
	}
	out := make([]Order, 0)
	for _, row := range table.Rows {
		if sheet.SameUser(row.Get(ColCreatedBy), userID) {
			out = append(out, orderFromRow(row, s.loc))
		}
	}
	return sortNewestFirst(out)
}

func (s *service) GetAll(ctx context.Context) []Order {
	table, ok := s.read(ctx)
	if !ok {
		return []Order{}
	}
	out := make([]Order, 0, table.Len())
	for _, row := range table.Rows {
		out = append(out, orderFromRow(row, s.loc))
	}
	return sortNewestFirst(out)
}

// ListByStatus is Search narrowed to one status. A blank status matches nothing.
func (s *service) ListByStatus(ctx context.Context, status, userID string) []Order {
	if strings.TrimSpace(status) == "" {
		return []Order{}
	}
	return s.Search(ctx, SearchParams{UserID: userID, Status: status})
}

func (s *service) ListWithoutTracking(ctx context.Context) []Order {
	out := make([]Order, 0)
	for _, o := range s.GetAll(ctx) {
		if o.HasTracking() || enums.OrderStatus(strings.TrimSpace(o.Status)).IsClosedForShipping() {
			continue
		}
		out = append(out, o)
	}
	return out
}

func (s *service) Update(ctx context.Context, orderID string, fields UpdateFields) error {
	id := strings.TrimSpace(orderID)
	if id == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	changes := sheet.Row{}
	problems := map[string]string{}
	for field, value := range fields {
		if !isUpdatable(field) {
			continue
		}
		value = strings.TrimSpace(value)
		switch field {
		case ColStatus:
			if _, err := enums.ParseOrderStatus(value); err != nil {
				problems[field] = "must be one of " + joinStatuses()
			}
		case ColQuantity:
			if n, ok := sheet.ParseInt(value); !ok || n <= 0 {
				problems[field] = "must be a positive integer"
			}
		case ColPrice:
			if d, ok := sheet.ParseDecimal(value); !ok || d.IsNegative() {
				problems[field] = "must be a non-negative number"
			}
		case ColCustomerName, ColProduct:
			if value == "" {
				problems[field] = "cannot be empty"
			}
		}
		changes[field] = value
	}
	if len(problems) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid order update").WithDetails(problems)
	}
	if len(changes) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "no updatable fields supplied").
			WithDetails(map[string]any{"allowed": UpdatableFields})
	}
	changes[ColLastUpdateDate] = s.now().In(s.loc).Format(lastUpdateLayout)

	ctx = s.logg.WithOrderID(ctx, id)
	updated, err := s.store.UpdateRows(ctx, sheet.TableOrders,
		func(row sheet.Row) bool { return strings.TrimSpace(row.Get(ColOrderID)) == id },
		func(row sheet.Row) sheet.Row {
			for col, v := range changes {
				row[col] = v
			}
			return row
		})
	if err != nil {
		s.logg.Error(ctx, "order.update_failed", err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order row")
	}
	if updated == 0 {
		s.logg.Warn(ctx, "order.update_not_found")
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found").WithDetails(map[string]any{"order_id": id})
	}
	s.logg.Info(s.logg.WithField(ctx, "fields", sortedKeys(changes)), "order.updated")
	return nil
}

func (s *service) UpdateStatus(ctx context.Context, orderID, status string) error {
	parsed, err := enums.ParseOrderStatus(status)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status").
			WithDetails(map[string]any{"status": status, "allowed": enums.OrderStatuses()})
	}
	return s.Update(ctx, orderID, UpdateFields{ColStatus: parsed.String()})
}

// AddTrackingInfo records tracking fields and always moves the order to Shipped.
func (s *service) AddTrackingInfo(ctx context.Context, orderID, trackingID, courier string) error {
	return s.Update(ctx, orderID, UpdateFields{
		ColTrackingID:  trackingID,
		ColCourierName: courier,
		ColStatus:      enums.OrderStatusShipped.String(),
	})
}

func (s *service) Delete(ctx context.Context, orderID string) (bool, error) {
	id := strings.TrimSpace(orderID)
	ctx = s.logg.WithOrderID(ctx, id)
	table, err := s.store.ReadTable(ctx, sheet.TableOrders)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read orders")
	}
	kept := make([]sheet.Row, 0, table.Len())
	for _, row := range table.Rows {
		if strings.TrimSpace(row.Get(ColOrderID)) == id {
			continue
		}
		kept = append(kept, row)
	}
	if len(kept) == table.Len() {
		s.logg.Warn(ctx, "order.delete_not_found")
		return false, nil
	}
	table.Rows = kept
	if err := s.store.ReplaceTable(ctx, table); err != nil {
		s.logg.Error(ctx, "order.delete_failed", err)
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace orders table")
	}
	s.logg.Info(ctx, "order.deleted")
	return true, nil
}

// read loads the order table, logging and reporting false on failure.
func (s *service) read(ctx context.Context) (*sheet.Table, bool) {
	table, err := s.store.ReadTable(ctx, sheet.TableOrders)
	if err != nil {
		s.logg.Error(s.logg.WithTable(ctx, sheet.TableOrders), "orders.read_failed", err)
		return nil, false
	}
	return table, true
}

func (s *service) scope(ctx context.Context, userID string) []Order {
	if strings.TrimSpace(userID) != "" {
		return s.GetByUser(ctx, userID)
	}
	return s.GetAll(ctx)
}

// sortNewestFirst orders by timestamp descending with unparsable rows last.
// When no timestamp parses at all the stored order is kept.
func sortNewestFirst(orders []Order) []Order {
	parsed := 0
	for _, o := range orders {
		if !o.Timestamp.IsZero() {
			parsed++
		}
	}
	if parsed == 0 {
		return orders
	}
	sort.SliceStable(orders, func(i, j int) bool {
		a, b := orders[i].Timestamp, orders[j].Timestamp
		if a.IsZero() || b.IsZero() {
			return !a.IsZero() && b.IsZero()
		}
		return a.After(b)
	})
	return orders
}

func countDigits(v string) int {
	n := 0
	for _, r := range v {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

func orDefault(v, fallback string) string {
	if trimmed := strings.TrimSpace(v); trimmed != "" {
		return trimmed
	}
	return fallback
}

func joinStatuses() string {
	statuses := enums.OrderStatuses()
	parts := make([]string, len(statuses))
	for i, st := range statuses {
		parts[i] = st.String()
	}
	return strings.Join(parts, ", ")
}

func sortedKeys(row sheet.Row) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
