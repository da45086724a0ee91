package main

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/longbridgeapp/assert"
)

func writeDataset(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	assert.Nil(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func run(t *testing.T, args ...string) ([]byte, error) {
	t.Helper()

	return runContext(t.Context(), args...)
}

func runContext(ctx context.Context, args ...string) ([]byte, error) {
	var out bytes.Buffer

	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))

	err := cmd.ExecuteContext(ctx)

	return out.Bytes(), err
}

func freeAddr(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	assert.Nil(t, err)

	addr := ln.Addr().String()
	assert.Nil(t, ln.Close())

	return addr
}

func TestDescribe(t *testing.T) {
	path := writeDataset(t, "data.csv", "value,label\n1,a\n2,b\n2,c\n5,d\n")

	out, err := run(t, "describe", "--header", path)
	assert.Nil(t, err)

	var got struct {
		Snapshot struct {
			Count  int       `json:"count"`
			Mean   float64   `json:"mean"`
			Mode   []float64 `json:"mode"`
			Median float64   `json:"median"`
		} `json:"snapshot"`
	}

	assert.Nil(t, json.Unmarshal(out, &got))
	assert.Equal(t, 4, got.Snapshot.Count)
	assert.Equal(t, 2.5, got.Snapshot.Mean)
	assert.Equal(t, []float64{2}, got.Snapshot.Mode)
	assert.Equal(t, 2.0, got.Snapshot.Median)
}

func TestCLT_Seeded(t *testing.T) {
	path := writeDataset(t, "data.json", "[1, 2, 3, 4, 5, 6, 7, 8]")

	first, err := run(t, "clt", "-n", "30", "-k", "4", "--seed", "11", path)
	assert.Nil(t, err)

	second, err := run(t, "clt", "-n", "30", "-k", "4", "--seed", "11", path)
	assert.Nil(t, err)

	var got struct {
		Distribution struct {
			Result struct {
				SampleMeans []float64 `json:"sampleMeans"`
			} `json:"result"`
		} `json:"distribution"`
		Statistics struct {
			Snapshot struct {
				Count int `json:"count"`
			} `json:"snapshot"`
		} `json:"statistics"`
	}

	assert.Nil(t, json.Unmarshal(first, &got))
	assert.Equal(t, 30, len(got.Distribution.Result.SampleMeans))
	assert.Equal(t, 30, got.Statistics.Snapshot.Count)
	assert.Equal(t, string(first), string(second))
}

func TestHistogram(t *testing.T) {
	path := writeDataset(t, "data.txt", "1\n1.2\n2\n3.9\n")

	out, err := run(t, "histogram", "--start", "1", "--end", "3", "--step", "1", path)
	assert.Nil(t, err)

	var got struct {
		Bins []struct {
			Start float64 `json:"start"`
			Count int     `json:"count"`
		} `json:"bins"`
	}

	assert.Nil(t, json.Unmarshal(out, &got))
	assert.Equal(t, 3, len(got.Bins))
	assert.Equal(t, 2, got.Bins[0].Count)
	assert.Equal(t, 1, got.Bins[1].Count)
	assert.Equal(t, 1, got.Bins[2].Count)
}

func TestErrors(t *testing.T) {
	_, err := run(t, "describe", filepath.Join(t.TempDir(), "missing.csv"))
	assert.True(t, err != nil)

	path := writeDataset(t, "bad.csv", "1\nabc\n")

	_, err = run(t, "describe", path)
	assert.True(t, err != nil)

	_, err = run(t, "describe")
	assert.True(t, err != nil)
}

func TestServe_ConfigAddress(t *testing.T) {
	addr := freeAddr(t)
	cfgPath := writeDataset(t, "statkit.yaml", "management:\n  addr: "+addr+"\n")
	dataPath := writeDataset(t, "data.json", "[1, 2, 3]")

	// a one-shot command must not claim the configured address
	_, err := run(t, "--config", cfgPath, "describe", dataPath)
	assert.Nil(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	done := make(chan error, 1)

	go func() {
		_, serveErr := runContext(ctx, "--config", cfgPath, "serve", "--data", dataPath)
		done <- serveErr
	}()

	client := &http.Client{Timeout: time.Second}
	status := 0

	for deadline := time.Now().Add(3 * time.Second); time.Now().Before(deadline); time.Sleep(20 * time.Millisecond) {
		req, reqErr := http.NewRequestWithContext(t.Context(), http.MethodGet, "http://"+addr+"/health", nil)
		assert.Nil(t, reqErr)

		resp, doErr := client.Do(req)
		if doErr == nil {
			status = resp.StatusCode
			_ = resp.Body.Close()

			break
		}
	}

	assert.Equal(t, http.StatusOK, status)

	cancel()
	assert.Nil(t, <-done)
}
