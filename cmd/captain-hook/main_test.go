package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/guseggert/captainhook/bridge"
	"github.com/guseggert/captainhook/bridge/command"
	"github.com/guseggert/captainhook/bridge/signals"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// socketDir returns a short temp dir, since Unix socket paths are limited to about 100 bytes.
func socketDir(t *testing.T) string {
	dir, err := os.MkdirTemp("", "hook")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func startBridge(t *testing.T, dir string) *bridge.Bridge {
	t.Helper()
	b, err := bridge.NewBridge(bridge.DefaultName, serveRegistry(),
		bridge.WithTempDir(dir),
		bridge.WithNotifier(&signals.Manual{}),
		bridge.WithLogger(zap.NewNop()),
	)
	require.NoError(t, err)
	require.NoError(t, b.Connect(context.Background()))
	t.Cleanup(func() { require.NoError(t, b.Close()) })
	return b
}

func runApp(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	app := newApp()
	out := &bytes.Buffer{}
	app.Writer = out
	app.ErrWriter = out
	err := app.RunContext(ctx, append([]string{"captain-hook", "--log-level", "error"}, args...))
	return out.String(), err
}

func TestCall(t *testing.T) {
	dir := socketDir(t)
	startBridge(t, dir)
	ctx := context.Background()

	cases := []struct {
		name   string
		args   []string
		expOut string
	}{
		{name: "nullary", args: []string{"call", "ping"}, expOut: `"pong"`},
		{name: "positional", args: []string{"call", "echo", "[1,2,3]"}, expOut: `[1,2,3]`},
		{name: "non-JSON payload is a string", args: []string{"call", "echo", "hi"}, expOut: `["hi"]`},
		{name: "unregistered", args: []string{"call", "nope"}, expOut: `null`},
		{name: "raw", args: []string{"call", "--raw", `{"ping":null,"echo":1}`}, expOut: `{"echo":[1],"ping":"pong"}`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			args := append([]string{"--temp-dir", dir}, c.args...)
			out, err := runApp(t, ctx, args...)
			require.NoError(t, err)
			assert.JSONEq(t, c.expOut, strings.TrimSpace(out))
		})
	}
}

func TestCallMalformed(t *testing.T) {
	dir := socketDir(t)
	startBridge(t, dir)
	out, err := runApp(t, context.Background(), "--temp-dir", dir, "call", "--raw", "notjson")
	require.NoError(t, err)
	assert.Equal(t, `{"err":{"message":"'notjson' is invalid"}}`, strings.TrimSpace(out))
}

func TestCallNoBridge(t *testing.T) {
	_, err := runApp(t, context.Background(), "--temp-dir", socketDir(t), "call", "ping")
	assert.Error(t, err)
}

func TestServe(t *testing.T) {
	dir := socketDir(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		_, err := runApp(t, ctx, "--temp-dir", dir, "serve", "--dispatch-limit", "2")
		errCh <- err
	}()

	path := filepath.Join(dir, bridge.DefaultName+".sock")
	var client *bridge.Client
	require.Eventually(t, func() bool {
		c, err := bridge.Dial(ctx, path)
		if err != nil {
			return false
		}
		client = c
		return true
	}, 5*time.Second, 10*time.Millisecond)
	defer client.Close()

	resp, err := client.Call(ctx, "ping", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `"pong"`, string(resp))

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after its context was canceled")
	}
	assert.NoFileExists(t, path)
}

func TestRouter(t *testing.T) {
	promReg := prometheus.NewRegistry()
	registry := command.NewRegistry(map[string]command.Handler{"ping": command.Echo})
	b, err := bridge.NewBridge(bridge.DefaultName, registry,
		bridge.WithTempDir(socketDir(t)),
		bridge.WithNotifier(&signals.Manual{}),
		bridge.WithMetrics(bridge.NewMetrics(promReg)),
	)
	require.NoError(t, err)
	require.NoError(t, b.Connect(context.Background()))
	t.Cleanup(b.MustClose)

	client, err := bridge.Dial(context.Background(), b.Path())
	require.NoError(t, err)
	_, err = client.Call(context.Background(), "ping", 1)
	require.NoError(t, err)
	require.NoError(t, client.Close())

	server := httptest.NewServer(newRouter(promReg, registry, b))
	defer server.Close()

	t.Run("status", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/status")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var status statusResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
		assert.Equal(t, statusResponse{Name: bridge.DefaultName, Path: b.Path(), Connected: true, Commands: []string{"ping"}}, status)
	})

	t.Run("metrics", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body := &bytes.Buffer{}
		_, err = body.ReadFrom(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, body.String(), `captainhook_bridge_commands_total{command="ping",outcome="ok"} 1`)
	})

	t.Run("unknown route", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/nope")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestFilterRequiresRules(t *testing.T) {
	_, err := runApp(t, context.Background(), "filter")
	assert.Error(t, err)

	rules := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(rules, []byte("emails: []\n"), 0644))
	_, err = runApp(t, context.Background(), "filter", "--rules", rules, "--repo", t.TempDir())
	assert.ErrorContains(t, err, "has no rules")
}

func TestFilterDryRun(t *testing.T) {
	repo := t.TempDir()
	rules := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(rules, []byte("names:\n  - from: ada\n    to: Ada\n"), 0644))

	_, err := runApp(t, context.Background(), "--temp-dir", socketDir(t), "filter", "--rules", rules, "--repo", repo, "--dry-run")
	require.NoError(t, err)
}
