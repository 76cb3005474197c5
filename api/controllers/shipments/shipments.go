package shipments

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/imiq/imiq-backend/api/responses"
	"github.com/imiq/imiq-backend/api/validators"
	internalshipments "github.com/imiq/imiq-backend/internal/shipments"
	pkgerrors "github.com/imiq/imiq-backend/pkg/errors"
	"github.com/imiq/imiq-backend/pkg/logger"
)

const maxSearchTermLength = 200

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

func Create(svc internalshipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input internalshipments.CreateInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		shipment, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, shipment)
	}
}

// List returns every shipment newest first, or the matches for q within field.
func List(svc internalshipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		term := validators.SanitizeString(query.Get("q"), maxSearchTermLength)
		if term == "" {
			responses.WriteSuccess(w, svc.GetAll(r.Context()))
			return
		}
		field := strings.TrimSpace(query.Get("field"))
		if field == "" {
			field = internalshipments.SearchFieldAll
		}
		responses.WriteSuccess(w, svc.Search(r.Context(), term, field))
	}
}

func Detail(svc internalshipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shipmentID, err := shipmentIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		shipment, ok := svc.GetByID(r.Context(), shipmentID)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "shipment not found"))
			return
		}
		responses.WriteSuccess(w, shipment)
	}
}

// ForOrder returns the most recent shipment of an order.
func ForOrder(svc internalshipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID := strings.TrimSpace(chi.URLParam(r, "orderId"))
		if orderID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order id is required"))
			return
		}
		shipment, ok := svc.GetByOrder(r.Context(), orderID)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "no shipment for order"))
			return
		}
		responses.WriteSuccess(w, shipment)
	}
}

func UpdateStatus(svc internalshipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shipmentID, err := shipmentIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req statusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.UpdateStatus(r.Context(), shipmentID, req.Status); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		shipment, ok := svc.GetByID(r.Context(), shipmentID)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "shipment not found"))
			return
		}
		responses.WriteSuccess(w, shipment)
	}
}

func Statistics(svc internalshipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, svc.Statistics(r.Context()))
	}
}

// PendingOrders lists open orders that have no shipment yet.
func PendingOrders(svc internalshipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, svc.ListOrdersWithoutShipments(r.Context()))
	}
}

// Payload renders the courier booking body for a shipment.
func Payload(svc internalshipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shipmentID, err := shipmentIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		courier := strings.TrimSpace(chi.URLParam(r, "courier"))
		payload, err := svc.CourierPayload(r.Context(), shipmentID, courier)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payload)
	}
}

func shipmentIDParam(r *http.Request) (string, error) {
	shipmentID := strings.TrimSpace(chi.URLParam(r, "shipmentId"))
	if shipmentID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "shipment id is required")
	}
	return shipmentID, nil
}
