package client

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"campuspark/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReservationClient_CreateSendsHeadersAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/reservations", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "alice", r.Header.Get("X-Requester"))

		body, _ := io.ReadAll(r.Body)
		var req model.ReservationCreate
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "spot-1", req.SpotID)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"r1","kind":"regular","spot_ids":["spot-1"],"status":"pending","total_price":7.50,"effective_status":"pending"}}`))
	}))
	defer srv.Close()

	c := NewReservationClient(srv.URL).WithToken("tok").WithRequester("alice")
	resp, err := c.Create(model.ReservationCreate{SpotID: "spot-1", Requester: "alice"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	view, err := c.DecodeReservation(resp)
	require.NoError(t, err)
	assert.Equal(t, "r1", view.ID)
	assert.Equal(t, model.Cents(750), view.TotalPrice)
	assert.Equal(t, model.DisplayPending, view.EffectiveStatus)
}

func TestReservationClient_ListQueryAndDecode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "alice", r.URL.Query().Get("requester"))
		assert.Equal(t, "event", r.URL.Query().Get("kind"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"data":[{"id":"a","status":"pending","effective_status":"pending"},{"id":"b","status":"approved","effective_status":"active"}],"total_count":2,"limit":5,"offset":0}`))
	}))
	defer srv.Close()

	c := NewReservationClient(srv.URL)
	resp, err := c.List("alice", model.KindEvent, 5, 0)
	require.NoError(t, err)

	views, meta, err := c.DecodeReservations(resp)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, model.DisplayActive, views[1].EffectiveStatus)
	assert.Equal(t, int64(2), meta.TotalCount)
	assert.Equal(t, 5, meta.Limit)
}

func TestReservationClient_LifecyclePaths(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewReservationClient(srv.URL)
	_, err := c.Cancel("r1")
	require.NoError(t, err)
	_, err = c.Approve("r2", "ok")
	require.NoError(t, err)
	_, err = c.Reject("r3", "")
	require.NoError(t, err)
	_, err = c.Modify("r4", model.ReservationUpdate{})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"POST /api/v1/reservations/id/r1/cancel",
		"POST /api/v1/reservations/id/r2/approve",
		"POST /api/v1/reservations/id/r3/reject",
		"PATCH /api/v1/reservations/id/r4",
	}, paths)
}

func TestLotClient_Decode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/lots/id/lot-1":
			_, _ = w.Write([]byte(`{"data":{"id":"lot-1","name":"Lot Blue","location":"Main Campus West","base_rate":2.50}}`))
		case "/api/v1/lots/id/lot-1/spots":
			_, _ = w.Write([]byte(`{"data":[{"id":"s1","code":"BLUE-001","lot_id":"lot-1"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"Spot not found","code":"NOT_FOUND"}`))
		}
	}))
	defer srv.Close()

	c := NewLotClient(srv.URL)

	resp, err := c.GetByID("lot-1")
	require.NoError(t, err)
	lot, err := c.DecodeLot(resp)
	require.NoError(t, err)
	assert.Equal(t, "Lot Blue", lot.Name)
	assert.Equal(t, model.Cents(250), lot.BaseRate)

	resp, err = c.ListSpots("lot-1")
	require.NoError(t, err)
	spots, err := c.DecodeSpots(resp)
	require.NoError(t, err)
	require.Len(t, spots, 1)
	assert.Equal(t, "BLUE-001", spots[0].Code)

	resp, err = c.GetSpot("missing")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Spot not found", GetErrorMessage(resp))
}
