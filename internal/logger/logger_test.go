package logger

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	httpmiddleware "github.com/wolfeidau/usermanager/internal/http"
)

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":"not_found"}`))
	})
	h := httpmiddleware.RequestIDMiddleware()(AccessLog(log, "/llmariner.")(next))

	t.Run("rest request", func(t *testing.T) {
		buf.Reset()
		r := httptest.NewRequest(http.MethodDelete, "/v1/organizations/org-1", nil)
		r.Header.Set(httpmiddleware.RequestIDHeader, "req-1")
		h.ServeHTTP(httptest.NewRecorder(), r)

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		require.Equal(t, "DELETE", entry["method"])
		require.Equal(t, "/v1/organizations/org-1", entry["path"])
		require.EqualValues(t, http.StatusNotFound, entry["status"])
		require.EqualValues(t, 20, entry["bytes"])
		require.Equal(t, "req-1", entry["request_id"])
	})

	t.Run("skipped prefix", func(t *testing.T) {
		buf.Reset()
		r := httptest.NewRequest(http.MethodPost, "/llmariner.users.server.v1.UsersService/ListUsers", nil)
		h.ServeHTTP(httptest.NewRecorder(), r)
		require.Zero(t, buf.Len())
	})
}
