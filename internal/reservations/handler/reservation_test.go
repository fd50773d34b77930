package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"campuspark/pkg/auth"
	apperrors "campuspark/pkg/errors"
	"campuspark/pkg/logger"
	"campuspark/pkg/model"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReservationService struct {
	createFunc  func(ctx context.Context, req *model.ReservationCreate) (*model.ReservationView, error)
	getAllFunc  func(ctx context.Context, filter model.ReservationFilter, limit int, offset int64) ([]*model.ReservationView, int64, error)
	modifyFunc  func(ctx context.Context, id string, req *model.ReservationUpdate) (*model.ReservationView, error)
	cancelFunc  func(ctx context.Context, id string) error
	approveFunc func(ctx context.Context, id string, d *model.AdminDecision) (*model.ReservationView, error)
}

func view(id string, status model.ReservationStatus) *model.ReservationView {
	return &model.ReservationView{
		Reservation:     &model.Reservation{ID: id, Kind: model.KindRegular, Status: status, TotalPrice: 750},
		EffectiveStatus: model.DisplayStatus(status),
	}
}

func (m *mockReservationService) Create(ctx context.Context, req *model.ReservationCreate) (*model.ReservationView, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, req)
	}
	return view("r-1", model.StatusPending), nil
}

func (m *mockReservationService) GetByID(ctx context.Context, id string) (*model.ReservationView, error) {
	if id == "r-1" {
		return view(id, model.StatusPending), nil
	}
	return nil, apperrors.NotFoundWithID("Reservation", id)
}

func (m *mockReservationService) GetAll(ctx context.Context, filter model.ReservationFilter, limit int, offset int64) ([]*model.ReservationView, int64, error) {
	if m.getAllFunc != nil {
		return m.getAllFunc(ctx, filter, limit, offset)
	}
	return []*model.ReservationView{}, 0, nil
}

func (m *mockReservationService) Modify(ctx context.Context, id string, req *model.ReservationUpdate) (*model.ReservationView, error) {
	if m.modifyFunc != nil {
		return m.modifyFunc(ctx, id, req)
	}
	return view(id, model.StatusPending), nil
}

func (m *mockReservationService) Cancel(ctx context.Context, id string) error {
	if m.cancelFunc != nil {
		return m.cancelFunc(ctx, id)
	}
	return nil
}

func (m *mockReservationService) Approve(ctx context.Context, id string, d *model.AdminDecision) (*model.ReservationView, error) {
	if m.approveFunc != nil {
		return m.approveFunc(ctx, id, d)
	}
	return view(id, model.StatusApproved), nil
}

func (m *mockReservationService) Reject(ctx context.Context, id string, d *model.AdminDecision) (*model.ReservationView, error) {
	return view(id, model.StatusRejected), nil
}

func (m *mockReservationService) MarkPaid(ctx context.Context, id string, sessionID string) (*model.ReservationView, bool, error) {
	return view(id, model.StatusPending), true, nil
}

const testSecret = "handler-test-secret"

func newRouter(svc *mockReservationService) *httprouter.Router {
	router := httprouter.New()
	NewReservationHandler(svc, auth.NewService(testSecret), logger.Discard()).RegisterRoutes(router)
	return router
}

func token(t *testing.T, roles ...string) string {
	t.Helper()
	tok, err := auth.NewService(testSecret).Issue("ops@campus.edu", roles, time.Hour)
	require.NoError(t, err)
	return tok
}

func serve(router http.Handler, method, path, body, bearer string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Code
}

func TestCreate(t *testing.T) {
	body := `{"spot_id":"spot-a1","requester":"alice","start_time":"2026-03-02T10:00:00Z","end_time":"2026-03-02T13:00:00Z"}`

	t.Run("created", func(t *testing.T) {
		var got *model.ReservationCreate
		svc := &mockReservationService{
			createFunc: func(ctx context.Context, req *model.ReservationCreate) (*model.ReservationView, error) {
				got = req
				return view("r-9", model.StatusPending), nil
			},
		}
		rec := serve(newRouter(svc), http.MethodPost, "/api/v1/reservations", body, "")

		assert.Equal(t, http.StatusCreated, rec.Code)
		require.NotNil(t, got)
		assert.Equal(t, "spot-a1", got.SpotID)
		assert.Equal(t, "alice", got.Requester)

		var resp struct {
			Data struct {
				ID              string  `json:"id"`
				TotalPrice      float64 `json:"total_price"`
				EffectiveStatus string  `json:"effective_status"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "r-9", resp.Data.ID)
		assert.Equal(t, 7.5, resp.Data.TotalPrice)
		assert.Equal(t, "pending", resp.Data.EffectiveStatus)
	})

	errs := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid window", apperrors.InvalidWindow("start must be before end"), http.StatusBadRequest, "INVALID_WINDOW"},
		{"slot unavailable", apperrors.SlotUnavailable("taken"), http.StatusConflict, "SLOT_UNAVAILABLE"},
		{"unknown spot", apperrors.NotFoundWithID("Spot", "x"), http.StatusNotFound, "NOT_FOUND"},
		{"store down", apperrors.StoreUnavailable("create", assert.AnError), http.StatusServiceUnavailable, "STORE_UNAVAILABLE"},
	}
	for _, tt := range errs {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockReservationService{
				createFunc: func(ctx context.Context, req *model.ReservationCreate) (*model.ReservationView, error) {
					return nil, tt.err
				},
			}
			rec := serve(newRouter(svc), http.MethodPost, "/api/v1/reservations", body, "")
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCode, errorCode(t, rec))
		})
	}

	t.Run("malformed body", func(t *testing.T) {
		rec := serve(newRouter(&mockReservationService{}), http.MethodPost, "/api/v1/reservations", "{", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetAllPassesFilter(t *testing.T) {
	var gotFilter model.ReservationFilter
	var gotLimit int
	var gotOffset int64
	svc := &mockReservationService{
		getAllFunc: func(ctx context.Context, filter model.ReservationFilter, limit int, offset int64) ([]*model.ReservationView, int64, error) {
			gotFilter, gotLimit, gotOffset = filter, limit, offset
			return []*model.ReservationView{view("r-1", model.StatusPending)}, 1, nil
		},
	}

	rec := serve(newRouter(svc), http.MethodGet, "/api/v1/reservations?requester=alice&kind=event&limit=5&offset=2", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", gotFilter.Requester)
	assert.Equal(t, model.KindEvent, gotFilter.Kind)
	assert.Equal(t, 5, gotLimit)
	assert.Equal(t, int64(2), gotOffset)

	rec = serve(newRouter(svc), http.MethodGet, "/api/v1/reservations?offset=nope", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetByID(t *testing.T) {
	router := newRouter(&mockReservationService{})

	rec := serve(router, http.MethodGet, "/api/v1/reservations/id/r-1", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"effective_status":"pending"`)

	rec = serve(router, http.MethodGet, "/api/v1/reservations/id/missing", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestModify(t *testing.T) {
	svc := &mockReservationService{
		modifyFunc: func(ctx context.Context, id string, req *model.ReservationUpdate) (*model.ReservationView, error) {
			if id == "approved" {
				return nil, apperrors.InvalidState("only pending reservations can be modified")
			}
			return view(id, model.StatusPending), nil
		},
	}
	router := newRouter(svc)
	body := `{"start_time":"2026-03-02T11:00:00Z","end_time":"2026-03-02T12:00:00Z"}`

	rec := serve(router, http.MethodPatch, "/api/v1/reservations/id/r-1", body, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(router, http.MethodPatch, "/api/v1/reservations/id/approved", body, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "INVALID_STATE", errorCode(t, rec))
}

func TestCancel(t *testing.T) {
	svc := &mockReservationService{
		cancelFunc: func(ctx context.Context, id string) error {
			switch id {
			case "missing":
				return apperrors.NotFoundWithID("Reservation", id)
			case "active":
				return apperrors.InvalidState("reservation already started")
			}
			return nil
		},
	}
	router := newRouter(svc)

	rec := serve(router, http.MethodPost, "/api/v1/reservations/id/r-1/cancel", "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = serve(router, http.MethodPost, "/api/v1/reservations/id/missing/cancel", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(router, http.MethodPost, "/api/v1/reservations/id/active/cancel", "", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAdminRoutesRequireRole(t *testing.T) {
	router := newRouter(&mockReservationService{})

	tests := []struct {
		name       string
		path       string
		bearer     string
		wantStatus int
	}{
		{"no token", "/api/v1/reservations/id/r-1/approve", "", http.StatusUnauthorized},
		{"garbage token", "/api/v1/reservations/id/r-1/approve", "not-a-jwt", http.StatusUnauthorized},
		{"wrong role", "/api/v1/reservations/id/r-1/approve", token(t, "student"), http.StatusForbidden},
		{"admin approve", "/api/v1/reservations/id/r-1/approve", token(t, auth.RoleAdmin), http.StatusOK},
		{"admin reject", "/api/v1/reservations/id/r-1/reject", token(t, auth.RoleAdmin), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(router, http.MethodPost, tt.path, "", tt.bearer)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestApprovePassesNotes(t *testing.T) {
	var notes string
	svc := &mockReservationService{
		approveFunc: func(ctx context.Context, id string, d *model.AdminDecision) (*model.ReservationView, error) {
			notes = d.AdminNotes
			if id == "decided" {
				return nil, apperrors.InvalidState("reservation is not pending")
			}
			return view(id, model.StatusApproved), nil
		},
	}
	router := newRouter(svc)
	admin := token(t, auth.RoleAdmin)

	rec := serve(router, http.MethodPost, "/api/v1/reservations/id/r-1/approve", `{"admin_notes":"lot B closed"}`, admin)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "lot B closed", notes)

	rec = serve(router, http.MethodPost, "/api/v1/reservations/id/decided/approve", "", admin)
	assert.Equal(t, http.StatusConflict, rec.Code)
}
