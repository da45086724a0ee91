package statkit

import (
	"bytes"
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/goccy/go-json"
	fiber "github.com/gofiber/fiber/v3"
	"github.com/longbridgeapp/assert"
	"github.com/shamaton/msgpack/v2"
)

func startMgmtKit(t *testing.T, opts ...ManagementHTTPOption) (*StatKit, string) {
	t.Helper()

	kit := newTestKit(t, WithBootstrapParameters(20, 4), WithManagementHTTP("127.0.0.1:0", opts...))

	// wait briefly for listener
	time.Sleep(30 * time.Millisecond)

	addr := kit.ManagementHTTPAddress()
	assert.True(t, addr != "")

	return kit, "http://" + addr
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()

	defer resp.Body.Close()

	assert.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func do(t *testing.T, client *http.Client, method, url string, body []byte) *http.Response {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), method, url, bytes.NewReader(body))
	assert.Nil(t, err)

	resp, err := client.Do(req)
	assert.Nil(t, err)

	return resp
}

// TestManagementHTTP_Endpoints spins up the management HTTP server on an ephemeral port
// and drives a dataset through it.
func TestManagementHTTP_Endpoints(t *testing.T) {
	kit, base := startMgmtKit(t)
	client := &http.Client{Timeout: 2 * time.Second}

	// /health
	resp := do(t, client, http.MethodGet, base+"/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	// /dataset
	resp = do(t, client, http.MethodPut, base+"/dataset", []byte("[2, 4, 4, 4, 5, 5, 7, 9]"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var loaded struct {
		Version uint64 `json:"version"`
		Len     int    `json:"len"`
	}

	decodeBody(t, resp, &loaded)
	assert.Equal(t, uint64(1), loaded.Version)
	assert.Equal(t, 8, loaded.Len)

	// /statistics
	resp = do(t, client, http.MethodGet, base+"/statistics", nil)
	assert.Equal(t, "application/json", resp.Header.Get(fiber.HeaderContentType))

	var stats Statistics

	decodeBody(t, resp, &stats)
	assert.Equal(t, 5.0, stats.Snapshot.Mean)
	assert.Equal(t, 2.0, stats.Snapshot.StandardDeviation)

	// /distribution in msgpack
	resp = do(t, client, http.MethodGet, base+"/distribution?format=msgpack", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/msgpack", resp.Header.Get(fiber.HeaderContentType))

	var raw bytes.Buffer

	_, err := raw.ReadFrom(resp.Body)
	assert.Nil(t, err)
	_ = resp.Body.Close()

	var dist Distribution

	assert.Nil(t, msgpack.Unmarshal(raw.Bytes(), &dist))
	assert.Equal(t, 20, dist.Result.Len())

	// content negotiation
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, base+"/distribution/statistics", nil)
	assert.Nil(t, err)
	req.Header.Set(fiber.HeaderAccept, "application/cbor")

	resp, err = client.Do(req)
	assert.Nil(t, err)
	assert.Equal(t, "application/cbor", resp.Header.Get(fiber.HeaderContentType))
	_ = resp.Body.Close()

	// /parameters
	resp = do(t, client, http.MethodPut, base+"/parameters", []byte(`{"n": 7, "k": 3}`))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var updated struct {
		Published    bool         `json:"published"`
		Distribution Distribution `json:"distribution"`
	}

	decodeBody(t, resp, &updated)
	assert.True(t, updated.Published)
	assert.Equal(t, 7, updated.Distribution.Result.Len())
	assert.Equal(t, 7, kit.Parameters().N)

	resp = do(t, client, http.MethodGet, base+"/parameters", nil)

	var params struct {
		N int `json:"n"`
		K int `json:"k"`
	}

	decodeBody(t, resp, &params)
	assert.Equal(t, 7, params.N)
	assert.Equal(t, 3, params.K)

	// /distribution/statistics
	resp = do(t, client, http.MethodGet, base+"/distribution/statistics", nil)

	var means Statistics

	decodeBody(t, resp, &means)
	assert.Equal(t, 7, means.Snapshot.Count)

	// /recompute
	resp = do(t, client, http.MethodPost, base+"/recompute", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	// /histogram
	resp = do(t, client, http.MethodGet, base+"/histogram?start=2&end=9&step=1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var hist struct {
		Total int `json:"total"`
		Bins  []struct {
			Count int    `json:"count"`
			Band  string `json:"band"`
		} `json:"bins"`
	}

	decodeBody(t, resp, &hist)
	assert.Equal(t, 8, hist.Total)
	assert.Equal(t, 8, len(hist.Bins))
	assert.Equal(t, 3, hist.Bins[2].Count)

	resp = do(t, client, http.MethodGet, base+"/histogram?source=means", nil)
	decodeBody(t, resp, &hist)
	assert.Equal(t, 7, hist.Total)
}

func TestManagementHTTP_BadRequests(t *testing.T) {
	_, base := startMgmtKit(t)
	client := &http.Client{Timeout: 2 * time.Second}

	for _, tc := range []struct {
		method, path string
		body         []byte
	}{
		{http.MethodPut, "/dataset", []byte(`["a"]`)},
		{http.MethodPut, "/parameters", []byte(`{`)},
		{http.MethodGet, "/statistics?format=xml", nil},
		{http.MethodGet, "/histogram?source=other", nil},
		{http.MethodGet, "/histogram?step=abc", nil},
		{http.MethodGet, "/histogram?step=-1", nil},
	} {
		resp := do(t, client, tc.method, base+tc.path, tc.body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		_ = resp.Body.Close()
	}
}

func TestManagementHTTP_Auth(t *testing.T) {
	_, base := startMgmtKit(t, WithMgmtAuth(func(fiberCtx fiber.Ctx) error {
		if fiberCtx.Get("X-Token") != "secret" {
			return fiber.ErrUnauthorized
		}

		return nil
	}))
	client := &http.Client{Timeout: 2 * time.Second}

	resp := do(t, client, http.MethodGet, base+"/health", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	_ = resp.Body.Close()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, base+"/health", nil)
	assert.Nil(t, err)
	req.Header.Set("X-Token", "secret")

	resp, err = client.Do(req)
	assert.Nil(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestManagementHTTP_ParametersBeyondLimits(t *testing.T) {
	kit, base := startMgmtKit(t)
	client := &http.Client{Timeout: 2 * time.Second}

	resp := do(t, client, http.MethodPut, base+"/dataset", []byte("[1, 2, 3]"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp = do(t, client, http.MethodPut, base+"/parameters", []byte(`{"n": 4611686018427387904, "k": 1}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()

	assert.Equal(t, 20, kit.Parameters().N)

	// the server keeps answering
	resp = do(t, client, http.MethodPut, base+"/parameters", []byte(`{"n": 5, "k": 2}`))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	assert.Equal(t, 5, kit.Parameters().N)
}
