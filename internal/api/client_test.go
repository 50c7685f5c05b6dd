package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/JuiPharm/BHH-Meal-Ordering-Approve/internal/api"
	"github.com/JuiPharm/BHH-Meal-Ordering-Approve/internal/models"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *api.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return api.New(srv.URL, 2*time.Second, zap.NewNop())
}

func TestGet_UnwrapsData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "version", r.URL.Query().Get("action"))
		_, _ = w.Write([]byte(`{"ok":true,"data":{"version":7}}`))
	})

	v, err := c.Version(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(7), v)
}

func TestGet_BackendError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"error":{"message":"invalid passcode"}}`))
	})

	_, err := c.PendingCount(context.Background())
	var apiErr *api.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "invalid passcode", apiErr.Message)
}

func TestGet_BackendErrorDefaultMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false}`))
	})

	_, err := c.Version(context.Background())
	var apiErr *api.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "API error", apiErr.Message)
}

func TestGet_MalformedEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>gateway timeout</html>`))
	})

	_, err := c.Version(context.Background())
	require.Error(t, err)
	var apiErr *api.APIError
	require.False(t, errors.As(err, &apiErr))
}

func TestGet_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections
	c := api.New(srv.URL, time.Second, zap.NewNop())

	_, err := c.Version(context.Background())
	require.Error(t, err)
}

func TestOrders_DecodesPositionalRows(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "orders", r.URL.Query().Get("action"))
		require.Equal(t, "pending", r.URL.Query().Get("mode"))
		require.Equal(t, "50", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"ok":true,"data":{"rows":[
			[5,"","2025-01-10","HN1","A","","","","n1","ER",1,0,0,0,"","","","","","","","",""],
			[3,"Food House รับ Order","2025-01-09","HN2","B","","","","n2","ICU",0,2,0,0,"","","","","","","","",""]
		]}}`))
	})

	rows, err := c.Orders(context.Background(), "pending", 50)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, int64(5), rows[0].ID)
	require.Equal(t, models.StateStep1Done, rows[1].State())
}

func TestUpdateStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "updateStatus", r.URL.Query().Get("action"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.EqualValues(t, 7, body["id"])
		require.EqualValues(t, 1, body["step"])
		require.Equal(t, "s3cret", body["passcode"])

		_, _ = w.Write([]byte(`{"ok":true,"data":{"status":"Food House เตรียมอาหารเสร็จแล้ว"},"warn":"late"}`))
	})

	res, err := c.UpdateStatus(context.Background(), 7, models.StepPrepare, "s3cret")
	require.NoError(t, err)
	require.Equal(t, "Food House เตรียมอาหารเสร็จแล้ว", res.Status)
	require.Equal(t, "late", res.Warn)
}

func TestSlip(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.EqualValues(t, 42, body["id"])
		_, _ = w.Write([]byte(`{"ok":true,"data":{"b64":"JVBE","filename":"X.pdf"}}`))
	})

	slip, err := c.Slip(context.Background(), 42)
	require.NoError(t, err)
	require.Equal(t, "JVBE", slip.B64)
	require.Equal(t, "X.pdf", slip.Filename)
}
