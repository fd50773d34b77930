package handler

import (
	"context"
	"net/http"

	"campuspark/internal/reservations/service"
	"campuspark/pkg/auth"
	httputil "campuspark/pkg/http"
	"campuspark/pkg/logger"
	"campuspark/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type ReservationHandler struct {
	service service.ReservationService
	auth    *auth.Service
	log     *logger.Logger
}

func NewReservationHandler(service service.ReservationService, authService *auth.Service, log *logger.Logger) *ReservationHandler {
	return &ReservationHandler{
		service: service,
		auth:    authService,
		log:     log,
	}
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.ReservationCreate
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	view, err := h.service.Create(r.Context(), &req)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, view); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *ReservationHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	view, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, view); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	query := r.URL.Query()
	filter := model.ReservationFilter{
		Requester: query.Get("requester"),
		Kind:      model.ReservationKind(query.Get("kind")),
	}

	views, total, err := h.service.GetAll(r.Context(), filter, limit, offset)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := httputil.WritePaginated(w, views, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *ReservationHandler) Modify(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.ReservationUpdate
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		h.writeError(w, "Modify", err)
		return
	}

	view, err := h.service.Modify(r.Context(), ps.ByName("id"), &req)
	if err != nil {
		h.writeError(w, "Modify", err)
		return
	}

	if err := httputil.WriteSuccess(w, view); err != nil {
		h.log.Error("failed to write success response", "handler", "Modify", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Cancel(r.Context(), ps.ByName("id")); err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *ReservationHandler) Approve(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.decide(w, r, ps, "Approve", h.service.Approve)
}

func (h *ReservationHandler) Reject(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.decide(w, r, ps, "Reject", h.service.Reject)
}

type decideFunc func(ctx context.Context, id string, decision *model.AdminDecision) (*model.ReservationView, error)

func (h *ReservationHandler) decide(
	w http.ResponseWriter,
	r *http.Request,
	ps httprouter.Params,
	name string,
	apply decideFunc,
) {
	var decision model.AdminDecision
	if err := httputil.DecodeJSON(r, &decision, true); err != nil {
		h.writeError(w, name, err)
		return
	}

	id := ps.ByName("id")
	view, err := apply(r.Context(), id, &decision)
	if err != nil {
		h.writeError(w, name, err)
		return
	}

	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		h.log.Info("admin decision recorded", "id", id, "decision", name, "admin", claims.Subject)
	}

	if err := httputil.WriteSuccess(w, view); err != nil {
		h.log.Error("failed to write success response", "handler", name, "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *ReservationHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/reservations", h.Create)
	router.GET("/api/v1/reservations", h.GetAll)
	router.GET("/api/v1/reservations/id/:id", h.GetByID)
	router.PATCH("/api/v1/reservations/id/:id", h.Modify)
	router.POST("/api/v1/reservations/id/:id/cancel", h.Cancel)
	router.POST("/api/v1/reservations/id/:id/approve", h.auth.RequireRole(auth.RoleAdmin, h.log, h.Approve))
	router.POST("/api/v1/reservations/id/:id/reject", h.auth.RequireRole(auth.RoleAdmin, h.log, h.Reject))
}
