package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	pkgerrors "github.com/imiq/imiq-backend/pkg/errors"
	"github.com/imiq/imiq-backend/pkg/logger"
	"github.com/imiq/imiq-backend/pkg/sheet"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ist = time.FixedZone("IST", 5*60*60+30*60)

func fixedClock() time.Time {
	return time.Date(2026, 2, 3, 10, 0, 0, 0, ist)
}

func newTestService(t *testing.T, store sheet.Store) *service {
	t.Helper()
	svc, err := NewService(store, logger.Nop(), Options{Location: ist, Clock: fixedClock})
	require.NoError(t, err)
	return svc.(*service)
}

func seedOrders(t *testing.T, rows ...sheet.Row) *sheet.Memory {
	t.Helper()
	store := sheet.NewMemory(nil)
	table := sheet.NewTable(sheet.TableOrders, sheet.DefaultSchemas()[sheet.TableOrders]...)
	for _, row := range rows {
		table.Append(row)
	}
	store.Seed(table)
	return store
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(nil, logger.Nop(), Options{})
	assert.Error(t, err)
	_, err = NewService(sheet.NewMemory(nil), nil, Options{})
	assert.Error(t, err)
}

func TestCreateThenGetByIDAppliesDefaults(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, sheet.NewMemory(nil))

	created, err := svc.Create(ctx, CreateInput{CustomerName: "Asha", Product: "Serum", Phone: "98765 43210"})
	require.NoError(t, err)
	assert.Regexp(t, `^ORD[0-9A-F]{6}$`, created.OrderID)

	got, ok := svc.GetByID(ctx, created.OrderID)
	require.True(t, ok)
	assert.Equal(t, created.OrderID, got.OrderID)
	assert.Equal(t, "Pending", got.Status)
	assert.Equal(t, DefaultPaymentMethod, got.PaymentMethod)
	assert.Equal(t, 1, got.Quantity)
	assert.True(t, got.Total.IsZero())
	assert.Equal(t, "system", got.CreatedBy)
	assert.Equal(t, DefaultAdvanceScreenshot, got.AdvanceScreenshot)
	assert.Equal(t, "2026-02-03T10:00:00+05:30", got.RawTimestamp)
	assert.Equal(t, "2026-02-03 10:00:00", got.LastUpdateDate)
	assert.True(t, got.Timestamp.Equal(fixedClock()))
}

func TestCreateKeepsSuppliedIDAndRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, sheet.NewMemory(nil))
	qty := 3
	total := decimal.NewFromInt(450)

	created, err := svc.Create(ctx, CreateInput{OrderID: "ORD000001", CustomerName: "Ravi", Product: "Oil", Quantity: &qty, Total: &total, CreatedBy: " agent-7 ", Status: "Processing"})
	require.NoError(t, err)
	assert.Equal(t, "ORD000001", created.OrderID)
	assert.Equal(t, "agent-7", created.CreatedBy)
	assert.Equal(t, "Processing", created.Status)
	assert.True(t, created.Total.Equal(total))

	_, err = svc.Create(ctx, CreateInput{OrderID: "ORD000001", CustomerName: "Ravi", Product: "Oil"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestCreateGeneratesFreshIDOnCollision(t *testing.T) {
	store := seedOrders(t, sheet.Row{"order_id": "ORDAAAAAA", "customer_name": "A", "product": "P"})
	svc := newTestService(t, store)
	ids := []string{"ORDAAAAAA", "ORDBBBBBB"}
	svc.newID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}
	created, err := svc.Create(context.Background(), CreateInput{CustomerName: "B", Product: "P"})
	require.NoError(t, err)
	assert.Equal(t, "ORDBBBBBB", created.OrderID)
}

func TestCreateValidationWritesNothing(t *testing.T) {
	zero := 0
	negative := decimal.NewFromInt(-1)
	cases := map[string]CreateInput{
		"missing customer": {Product: "P"},
		"missing product":  {CustomerName: "C"},
		"short phone":      {CustomerName: "C", Product: "P", Phone: "12345"},
		"zero quantity":    {CustomerName: "C", Product: "P", Quantity: &zero},
		"negative total":   {CustomerName: "C", Product: "P", Total: &negative},
		"bogus status":     {CustomerName: "C", Product: "P", Status: "Bogus"},
		"bad timestamp":    {CustomerName: "C", Product: "P", Timestamp: "someday"},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			store := sheet.NewMemory(nil)
			svc := newTestService(t, store)
			_, err := svc.Create(context.Background(), input)
			require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

			table, err := store.ReadTable(context.Background(), sheet.TableOrders)
			require.NoError(t, err)
			assert.Equal(t, 0, table.Len())
		})
	}
}

func TestGetByIDMissingIsAbsence(t *testing.T) {
	svc := newTestService(t, sheet.NewMemory(nil))
	got, ok := svc.GetByID(context.Background(), "ORDNOPE00")
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestGetByUserTrimsAndSortsNewestFirst(t *testing.T) {
	store := seedOrders(t,
		sheet.Row{"order_id": "O1", "created_by": "U1 ", "timestamp": "2026-02-01T09:00:00"},
		sheet.Row{"order_id": "O2", "created_by": "U2", "timestamp": "2026-02-02T09:00:00"},
		sheet.Row{"order_id": "O3", "created_by": " U1", "timestamp": "2026-02-03 09:00:00"},
		sheet.Row{"order_id": "O4", "created_by": "U1", "timestamp": "garbage"},
	)
	svc := newTestService(t, store)

	got := svc.GetByUser(context.Background(), "U1")
	require.Len(t, got, 3)
	assert.Equal(t, []string{"O3", "O1", "O4"}, ids(got))
}

func TestGetByUserBlankMatchesNothing(t *testing.T) {
	store := seedOrders(t,
		sheet.Row{"order_id": "O1", "created_by": "", "timestamp": "2026-02-01T09:00:00"},
		sheet.Row{"order_id": "O2", "created_by": "  ", "timestamp": "2026-02-02T09:00:00"},
	)
	svc := newTestService(t, store)
	assert.Empty(t, svc.GetByUser(context.Background(), ""))
	assert.Empty(t, svc.GetByUser(context.Background(), "   "))
}

func TestGetAllKeepsStoredOrderWhenNoTimestampParses(t *testing.T) {
	store := seedOrders(t,
		sheet.Row{"order_id": "O1", "timestamp": "n/a"},
		sheet.Row{"order_id": "O2", "timestamp": ""},
	)
	svc := newTestService(t, store)
	got := svc.GetAll(context.Background())
	assert.Equal(t, []string{"O1", "O2"}, ids(got))
	for _, o := range got {
		assert.True(t, o.Timestamp.IsZero())
	}
}

func TestUpdateStatusAllowList(t *testing.T) {
	ctx := context.Background()
	store := seedOrders(t, sheet.Row{"order_id": "O1", "customer_name": "C", "product": "P", "status": "Delivered"})
	svc := newTestService(t, store)

	err := svc.UpdateStatus(ctx, "O1", "Bogus")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	// labeled states: any allow-listed value is accepted regardless of the current one
	require.NoError(t, svc.UpdateStatus(ctx, "O1", "Pending"))
	require.NoError(t, svc.UpdateStatus(ctx, "O1", "Delivered"))
	got, ok := svc.GetByID(ctx, "O1")
	require.True(t, ok)
	assert.Equal(t, "Delivered", got.Status)
	assert.Equal(t, "2026-02-03 10:00:00", got.LastUpdateDate)

	err = svc.UpdateStatus(ctx, "missing", "Delivered")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestUpdateOnlyWritesAllowedFields(t *testing.T) {
	ctx := context.Background()
	store := seedOrders(t, sheet.Row{"order_id": "O1", "customer_name": "C", "product": "P", "city": "Pune"})
	svc := newTestService(t, store)

	require.NoError(t, svc.Update(ctx, "O1", UpdateFields{"city": "Goa", "customer_email": "c@example.com", "price": "99.5"}))
	table, err := store.ReadTable(ctx, sheet.TableOrders)
	require.NoError(t, err)
	row := table.Rows[0]
	assert.Equal(t, "Pune", row.Get("city"))
	assert.Equal(t, "c@example.com", row.Get("customer_email"))
	assert.Equal(t, "99.5", row.Get("price"))

	err = svc.Update(ctx, "O1", UpdateFields{"city": "Goa"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	err = svc.Update(ctx, "O1", UpdateFields{"quantity": "-2"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestAddTrackingInfoForcesShipped(t *testing.T) {
	for _, prior := range []string{"Pending", "Delivered", "Cancelled", ""} {
		t.Run("from "+prior, func(t *testing.T) {
			ctx := context.Background()
			store := seedOrders(t, sheet.Row{"order_id": "O1", "customer_name": "C", "product": "P", "status": prior})
			svc := newTestService(t, store)

			require.NoError(t, svc.AddTrackingInfo(ctx, "O1", "TRK12345", "DTDC"))
			got, ok := svc.GetByID(ctx, "O1")
			require.True(t, ok)
			assert.Equal(t, "Shipped", got.Status)
			assert.Equal(t, "TRK12345", got.TrackingID)
			assert.Equal(t, "DTDC", got.CourierName)
		})
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	store := seedOrders(t,
		sheet.Row{"order_id": "O1"},
		sheet.Row{"order_id": "O2"},
	)
	svc := newTestService(t, store)

	deleted, err := svc.Delete(ctx, "O1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = svc.Delete(ctx, "O1")
	require.NoError(t, err)
	assert.False(t, deleted)

	assert.Equal(t, []string{"O2"}, ids(svc.GetAll(ctx)))
}

func TestListByStatusAndWithoutTracking(t *testing.T) {
	ctx := context.Background()
	store := seedOrders(t,
		sheet.Row{"order_id": "O1", "status": "Pending", "created_by": "U1"},
		sheet.Row{"order_id": "O2", "status": "Pending", "created_by": "U2", "tracking_id": "TRK99999"},
		sheet.Row{"order_id": "O3", "status": "Cancelled", "created_by": "U1"},
		sheet.Row{"order_id": "O4", "status": "Processing", "tracking_id": "  "},
	)
	svc := newTestService(t, store)

	assert.Equal(t, []string{"O1", "O2"}, ids(svc.ListByStatus(ctx, "Pending", "")))
	assert.Equal(t, []string{"O1"}, ids(svc.ListByStatus(ctx, "Pending", "U1")))
	assert.Equal(t, []string{"O1", "O2"}, ids(svc.ListByStatus(ctx, " pending ", "")))
	assert.Empty(t, svc.ListByStatus(ctx, "  ", ""))
	assert.Equal(t, []string{"O3"}, ids(svc.Search(ctx, SearchParams{UserID: "U1", Status: "cancelled"})))
	assert.Equal(t, []string{"O1", "O4"}, ids(svc.ListWithoutTracking(ctx)))
}

type failingStore struct {
	sheet.Store
}

func (failingStore) ReadTable(context.Context, string) (*sheet.Table, error) {
	return nil, errors.New("workbook locked")
}

func (failingStore) UpdateRows(context.Context, string, func(sheet.Row) bool, func(sheet.Row) sheet.Row) (int, error) {
	return 0, errors.New("workbook locked")
}

func TestStorageFailuresDegradeReadsAndSurfaceOnWrites(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, failingStore{})

	assert.Empty(t, svc.GetAll(ctx))
	assert.Empty(t, svc.GetByUser(ctx, "U1"))
	_, ok := svc.GetByID(ctx, "O1")
	assert.False(t, ok)
	_, _, err := svc.Lookup(ctx, "O1")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.Equal(t, 0, svc.Statistics(ctx, "").TotalOrders)

	_, err = svc.Create(ctx, CreateInput{CustomerName: "C", Product: "P"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	err = svc.UpdateStatus(ctx, "O1", "Shipped")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	_, err = svc.Delete(ctx, "O1")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func ids(orders []Order) []string {
	out := make([]string, len(orders))
	for i, o := range orders {
		out[i] = o.OrderID
	}
	return out
}
