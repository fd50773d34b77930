package handler

import (
	"net/http"

	"campuspark/internal/lots/service"
	httputil "campuspark/pkg/http"
	"campuspark/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type LotHandler struct {
	service service.LotService
	log     *logger.Logger
}

func NewLotHandler(service service.LotService, log *logger.Logger) *LotHandler {
	return &LotHandler{
		service: service,
		log:     log,
	}
}

func (h *LotHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	lots, total, err := h.service.GetAll(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := httputil.WritePaginated(w, lots, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *LotHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	lot, err := h.service.GetLot(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, lot); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *LotHandler) ListSpots(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	spots, err := h.service.ListSpots(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "ListSpots", err)
		return
	}

	if err := httputil.WriteSuccess(w, spots); err != nil {
		h.log.Error("failed to write success response", "handler", "ListSpots", "operation", "WriteSuccess", "error", err)
	}
}

func (h *LotHandler) GetSpot(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	spot, err := h.service.GetSpot(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetSpot", err)
		return
	}

	if err := httputil.WriteSuccess(w, spot); err != nil {
		h.log.Error("failed to write success response", "handler", "GetSpot", "operation", "WriteSuccess", "error", err)
	}
}

func (h *LotHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *LotHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/lots", h.GetAll)
	router.GET("/api/v1/lots/id/:id", h.GetByID)
	router.GET("/api/v1/lots/id/:id/spots", h.ListSpots)
	router.GET("/api/v1/spots/id/:id", h.GetSpot)
}
