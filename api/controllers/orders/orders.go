package orders

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/imiq/imiq-backend/api/responses"
	"github.com/imiq/imiq-backend/api/validators"
	internalorders "github.com/imiq/imiq-backend/internal/orders"
	pkgerrors "github.com/imiq/imiq-backend/pkg/errors"
	"github.com/imiq/imiq-backend/pkg/logger"
)

const maxSearchTermLength = 200

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

type trackingRequest struct {
	TrackingID string `json:"tracking_id" validate:"required"`
	Courier    string `json:"courier" validate:"required"`
}

type deleteResponse struct {
	OrderID string `json:"order_id"`
	Deleted bool   `json:"deleted"`
}

// Create appends a new order row built from the request body.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input internalorders.CreateInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// List searches orders by q/field within an optional from/to window, scoped
// to user_id and narrowed to an exact status when given.
func List(svc internalorders.Service, loc *time.Location, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		from, err := validators.ParseOptionalDate(r, "from", loc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := validators.ParseOptionalDate(r, "to", loc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		term := validators.SanitizeString(query.Get("q"), maxSearchTermLength)
		status := strings.TrimSpace(query.Get("status"))
		userID := strings.TrimSpace(query.Get("user_id"))
		if status != "" && term == "" && from == nil && to == nil {
			responses.WriteSuccess(w, svc.ListByStatus(r.Context(), status, userID))
			return
		}
		responses.WriteSuccess(w, svc.Search(r.Context(), internalorders.SearchParams{
			Term:   term,
			Field:  strings.TrimSpace(query.Get("field")),
			From:   from,
			To:     to,
			UserID: userID,
			Status: status,
		}))
	}
}

// WithoutTracking lists open orders that still have no tracking id.
func WithoutTracking(svc internalorders.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, svc.ListWithoutTracking(r.Context()))
	}
}

func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, ok := svc.GetByID(r.Context(), orderID)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// Update applies a partial column update. Non-updatable keys are ignored.
func Update(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var fields internalorders.UpdateFields
		if err := validators.DecodeJSONBody(r, &fields); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Update(r.Context(), orderID, fields); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCurrent(w, r, svc, orderID, logg)
	}
}

func UpdateStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req statusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.UpdateStatus(r.Context(), orderID, req.Status); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCurrent(w, r, svc, orderID, logg)
	}
}

// AddTracking records a tracking number and courier and marks the order Shipped.
func AddTracking(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req trackingRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.AddTrackingInfo(r.Context(), orderID, req.TrackingID, req.Courier); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCurrent(w, r, svc, orderID, logg)
	}
}

func Delete(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		deleted, err := svc.Delete(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !deleted {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
			return
		}
		responses.WriteSuccess(w, deleteResponse{OrderID: orderID, Deleted: true})
	}
}

// Statistics summarizes every order, or one creator's when user_id is set.
func Statistics(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, svc.Statistics(r.Context(), strings.TrimSpace(r.URL.Query().Get("user_id"))))
	}
}

func writeCurrent(w http.ResponseWriter, r *http.Request, svc internalorders.Service, orderID string, logg *logger.Logger) {
	order, ok := svc.GetByID(r.Context(), orderID)
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
		return
	}
	responses.WriteSuccess(w, order)
}

func orderIDParam(r *http.Request) (string, error) {
	orderID := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if orderID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	return orderID, nil
}
