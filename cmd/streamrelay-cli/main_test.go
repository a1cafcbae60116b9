package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeServer(t *testing.T, healthy bool) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"connected_clients":3}`))
	})
	mux.HandleFunc("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"healthy":          healthy,
			"sourceHealthy":    healthy,
			"source":           "redis:rc",
			"connectedClients": 3,
			"subscriptions":    5,
			"eventsReceived":   42,
			"eventsDropped":    1,
		})
	})
	mux.HandleFunc("/api/v1/clients", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"clients": []map[string]interface{}{
				{
					"id":            "c1",
					"remoteAddr":    "10.0.0.1:5000",
					"connectedAt":   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
					"subscriptions": []string{"*.wikipedia.org", "commons.wikimedia.org"},
				},
			},
		})
	})

	upgrader := websocket.Upgrader{}
	mux.HandleFunc("/stream", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var frame map[string]interface{}
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}
		conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"change","data":{"server_name":"en.wikipedia.org"}}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"change","data":{"server_name":"de.wikipedia.org"}}`))

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), err
}

func TestStatusCommand(t *testing.T) {
	server := newFakeServer(t, true)

	output, err := executeCommand(t, "status", "--server", server.URL)
	require.NoError(t, err)
	assert.Contains(t, output, "Connected Clients: 3")
}

func TestHealthCommand(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		server := newFakeServer(t, true)

		output, err := executeCommand(t, "health", "--server", server.URL)
		require.NoError(t, err)
		assert.Contains(t, output, "Relay is healthy")
		assert.Contains(t, output, "Source: redis:rc (healthy: true)")
		assert.Contains(t, output, "Events Received: 42")
	})

	t.Run("unhealthy", func(t *testing.T) {
		server := newFakeServer(t, false)

		output, err := executeCommand(t, "health", "--server", server.URL)
		require.Error(t, err)
		assert.Contains(t, output, "Relay is not healthy")
	})
}

func TestClientsCommand(t *testing.T) {
	server := newFakeServer(t, true)

	output, err := executeCommand(t, "clients", "--server", server.URL)
	require.NoError(t, err)
	assert.Contains(t, output, "c1")
	assert.Contains(t, output, "*.wikipedia.org,commons.wikimedia.org")

	output, err = executeCommand(t, "clients", "--server", server.URL, "--json")
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(output), &decoded))
	assert.Len(t, decoded["clients"], 1)
}

func TestStreamCommand(t *testing.T) {
	server := newFakeServer(t, true)

	output, err := executeCommand(t, "stream", "--server", server.URL,
		"--pattern", "*.wikipedia.org", "--limit", "2", "--timeout", "5s")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(output), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "en.wikipedia.org")
	assert.Contains(t, lines[1], "de.wikipedia.org")
}

func TestStreamCommandRequiresPattern(t *testing.T) {
	server := newFakeServer(t, true)

	_, err := executeCommand(t, "stream", "--server", server.URL)
	require.Error(t, err)
}

func TestInvalidServerURL(t *testing.T) {
	_, err := executeCommand(t, "status", "--server", "ftp://localhost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create client")
}
