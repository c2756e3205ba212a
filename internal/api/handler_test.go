package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/alerttree/internal/config"
	"github.com/gyaneshwarpardhi/alerttree/internal/engine"
	"github.com/gyaneshwarpardhi/alerttree/internal/event"
	"github.com/gyaneshwarpardhi/alerttree/internal/handler"
)

const cpuTreeJSON = `{
  "id": "cpu",
  "name": "CPU saturation",
  "root": {
    "id": "root", "type": "sequence", "name": "check and flag",
    "children": [
      {"id": "hot", "type": "condition", "name": "cpu hot", "conditionId": "greaterThan",
       "parameters": {"left": "$cpu", "right": 90}},
      {"id": "flag", "type": "action", "name": "flag host", "actionId": "setVariable",
       "parameters": {"key": "flagged", "value": "$host"}}
    ]
  }
}`

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestServer(t *testing.T, reload ReloadFunc) (*httptest.Server, *engine.Engine) {
	t.Helper()
	reg := handler.NewRegistry(discard)
	eng := engine.New(context.Background(), reg, event.NewRecorder(100), config.EngineConf{}, discard)
	handler.RegisterBuiltins(reg, eng, discard)
	srv := httptest.NewServer(New(eng, reload, discard))
	t.Cleanup(func() {
		srv.Close()
		eng.Shutdown()
	})
	return srv, eng
}

func do(t *testing.T, method, url, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]interface{}
	if len(bytes.TrimSpace(raw)) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return resp, out
}

func TestTreeCRUD(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, body := do(t, http.MethodPost, srv.URL+"/v1/trees", cpuTreeJSON)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "cpu", body["id"])
	assert.Equal(t, "1.0.0", body["version"])

	resp, body = do(t, http.MethodGet, srv.URL+"/v1/trees", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["count"])
	first := body["trees"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, float64(3), first["nodes"])

	resp, body = do(t, http.MethodGet, srv.URL+"/v1/trees/cpu", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "CPU saturation", body["name"])

	resp, _ = do(t, http.MethodGet, srv.URL+"/v1/trees/cpu/export", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "cpu.json")

	resp, body = do(t, http.MethodPost, srv.URL+"/v1/trees/cpu/clone", `{"id":"cpu-2","name":"CPU two"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "cpu-2", body["id"])
	assert.Equal(t, "CPU two", body["name"])

	resp, _ = do(t, http.MethodPost, srv.URL+"/v1/trees/cpu/clone", `{"id":"cpu-2"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = do(t, http.MethodPost, srv.URL+"/v1/trees/cpu/clone", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, body["id"])
	assert.Equal(t, "CPU saturation (copy)", body["name"])

	resp, _ = do(t, http.MethodDelete, srv.URL+"/v1/trees/cpu", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = do(t, http.MethodGet, srv.URL+"/v1/trees/cpu", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = do(t, http.MethodDelete, srv.URL+"/v1/trees/cpu", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestImportErrors(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, _ := do(t, http.MethodPost, srv.URL+"/v1/trees", `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := do(t, http.MethodPost, srv.URL+"/v1/trees",
		`{"id":"x","name":"x","root":{"id":"r","type":"inverter","name":"r"}}`)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.NotEmpty(t, body["problems"])
}

func TestExecute(t *testing.T) {
	srv, eng := newTestServer(t, nil)
	_, err := eng.ImportTree([]byte(cpuTreeJSON))
	require.NoError(t, err)

	resp, body := do(t, http.MethodPost, srv.URL+"/v1/trees/cpu/execute", `{"data":{"cpu":97,"host":"web-1"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "success", body["status"])

	resp, body = do(t, http.MethodPost, srv.URL+"/v1/trees/cpu/execute", `{"data":{"cpu":12}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "failure", body["status"])
	assert.Contains(t, body["error"], "hot")

	resp, body = do(t, http.MethodPost, srv.URL+"/v1/trees/cpu/execute?async=true", `{"data":{"cpu":99,"host":"web-2"}}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, true, body["queued"])

	resp, _ = do(t, http.MethodPost, srv.URL+"/v1/trees/nope/execute", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = do(t, http.MethodPost, srv.URL+"/v1/trees/cpu/execute", `[1,2]`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	require.Eventually(t, func() bool {
		st, err := eng.Stats("cpu")
		return err == nil && st.TotalExecutions == 3
	}, time.Second, 5*time.Millisecond)

	resp, body = do(t, http.MethodGet, srv.URL+"/v1/stats/cpu", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(3), body["totalExecutions"])
	assert.Equal(t, float64(2), body["successCount"])
	assert.Equal(t, float64(1), body["failureCount"])

	resp, body = do(t, http.MethodGet, srv.URL+"/v1/stats", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "cpu")

	resp, _ = do(t, http.MethodGet, srv.URL+"/v1/stats/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandlersAndProbes(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, body := do(t, http.MethodGet, srv.URL+"/v1/handlers", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body["actions"], "setVariable")
	assert.Contains(t, body["conditions"], "expression")

	resp, body = do(t, http.MethodGet, srv.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])

	resp, body = do(t, http.MethodGet, srv.URL+"/readyz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ready", body["status"])

	resp, _ = do(t, http.MethodGet, srv.URL+"/metrics", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReload(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	resp, _ := do(t, http.MethodPost, srv.URL+"/v1/reload", "")
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)

	calls := 0
	srv, _ = newTestServer(t, func() error {
		calls++
		if calls > 1 {
			return errors.New("trees/bad.json: parse tree: unexpected EOF")
		}
		return nil
	})
	resp, body := do(t, http.MethodPost, srv.URL+"/v1/reload", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["reloaded"])

	resp, body = do(t, http.MethodPost, srv.URL+"/v1/reload", "")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body["error"], "bad.json")
}
