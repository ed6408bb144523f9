package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/gerritnav/internal/config"
	"github.com/zjrosen/gerritnav/internal/testutil"
)

// writeConfig writes a config file whose history lives in the same temp
// directory and returns its path.
func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf("history:\n  path: %s\n", filepath.Join(dir, "history.db")) + extra
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, configPath string, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", configPath}, args...))
	err := root.Execute()
	return out.String(), err
}

func decodeAll[T any](t *testing.T, s string) []T {
	t.Helper()
	var out []T
	dec := json.NewDecoder(strings.NewReader(s))
	for dec.More() {
		var v T
		require.NoError(t, dec.Decode(&v))
		out = append(out, v)
	}
	return out
}

func TestParse(t *testing.T) {
	cfg := writeConfig(t, "")

	out, err := run(t, cfg, "", "parse", "/c/test/+/42/3..5", "/42", "/c/42", "/nope/nope")
	require.NoError(t, err)

	var results []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 4)

	require.Equal(t, "resolved", results[0]["kind"])
	require.Equal(t, "change", results[0]["view"])
	require.Equal(t, "redirect", results[1]["kind"])
	require.Equal(t, "/c/42", results[1]["redirectUrl"])
	require.Equal(t, "needs-lookup", results[2]["kind"])
	require.Equal(t, "not-found", results[3]["kind"])
}

func TestParse_BasePathFlag(t *testing.T) {
	cfg := writeConfig(t, "")

	out, err := run(t, cfg, "", "--base-path", "/gerrit", "parse", "/gerrit/q/status:open")
	require.NoError(t, err)
	require.Contains(t, out, `"kind": "resolved"`)
	require.Contains(t, out, `"view": "search"`)
}

func TestParse_ViewRestriction(t *testing.T) {
	cfg := writeConfig(t, "")

	out, err := run(t, cfg, "", "parse", "--view", "search", "/c/test/+/42")
	require.NoError(t, err)
	require.Contains(t, out, `"kind": "not-found"`)

	_, err = run(t, cfg, "", "parse", "--view", "bogus", "/c/test/+/42")
	require.Error(t, err)
}

func TestParse_YAMLOutput(t *testing.T) {
	cfg := writeConfig(t, "output: yaml\n")

	out, err := run(t, cfg, "", "parse", "/c/test/+/42/1")
	require.NoError(t, err)
	require.Contains(t, out, "kind: resolved")
	require.Contains(t, out, "changeNum: 42")
}

func TestURL(t *testing.T) {
	cfg := writeConfig(t, "")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "change",
			args: []string{"--view", "change", "--change", "42", "--repo", "platform/build", "--patch", "3"},
			want: "/c/platform/build/+/42/3",
		},
		{
			name: "diff with base and left line",
			args: []string{"--view", "diff", "--change", "42", "--repo", "test", "--base", "6", "--patch", "12", "--path", "a", "--line", "123", "--left"},
			want: "/c/test/+/42/6..12/a#b123",
		},
		{
			name: "edit",
			args: []string{"--view", "edit", "--change", "42", "--repo", "test", "--patch", "edit", "--path", "x+y/path.cpp"},
			want: "/c/test/+/42/edit/x%252By/path.cpp,edit",
		},
		{
			name: "diff comment link",
			args: []string{"--view", "diff", "--change", "42", "--repo", "test", "--comment", "abc123"},
			want: "/c/test/+/42/comment/abc123",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, cfg, "", append([]string{"url"}, tt.args...)...)
			require.NoError(t, err)
			require.Equal(t, tt.want+"\n", out)
		})
	}
}

func TestURL_RoundTripsThroughParse(t *testing.T) {
	cfg := writeConfig(t, "base_path: /gerrit\n")

	u, err := run(t, cfg, "", "url", "--view", "dashboard", "--title", "Mine", "--section", "Open=is:open owner:self")
	require.NoError(t, err)
	u = strings.TrimSpace(u)
	require.True(t, strings.HasPrefix(u, "/gerrit/dashboard/?"), u)

	out, err := run(t, cfg, "", "parse", u)
	require.NoError(t, err)
	require.Contains(t, out, `"title": "Mine"`)
	require.Contains(t, out, `"query": "is:open owner:self"`)
}

func TestURL_Errors(t *testing.T) {
	cfg := writeConfig(t, "")

	_, err := run(t, cfg, "", "url")
	require.Error(t, err, "--view is required")

	_, err = run(t, cfg, "", "url", "--view", "change")
	require.Error(t, err, "a change state needs a change number")

	_, err = run(t, cfg, "", "url", "--view", "diff", "--change", "1", "--patch", "bogus", "--path", "a")
	require.Error(t, err)
	require.Contains(t, err.Error(), "--patch")

	_, err = run(t, cfg, "", "url", "--view", "dashboard", "--section", "noequals")
	require.Error(t, err)
	require.Contains(t, err.Error(), "name=query")
}

func TestFollow_PinnedLookupAndHistory(t *testing.T) {
	cfg := writeConfig(t, "lookup:\n  projects:\n    \"42\": platform/build\n")

	out, err := run(t, cfg, "", "follow", "/42", "/c/test/+/1/1..1")
	require.NoError(t, err)

	outcomes := decodeAll[map[string]any](t, out)
	require.Len(t, outcomes, 2)
	require.Equal(t, "resolved", outcomes[0]["status"])
	require.Equal(t, "/c/platform/build/+/42", outcomes[0]["canonicalUrl"])
	require.Equal(t, []any{"/c/42", "/c/platform/build/+/42/"}, outcomes[0]["redirects"])
	require.Equal(t, "/c/test/+/1/1", outcomes[1]["canonicalUrl"])

	out, err = run(t, cfg, "", "history", "--limit", "10")
	require.NoError(t, err)
	var entries []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 2)
	require.Equal(t, "/c/test/+/1/1..1", entries[0]["url"], "newest first")
	require.Equal(t, "/42", entries[1]["url"])

	out, err = run(t, cfg, "", "history", "--view", "diff")
	require.NoError(t, err)
	require.JSONEq(t, "[]", out)

	out, err = run(t, cfg, "", "history", "clear")
	require.NoError(t, err)
	require.Equal(t, "deleted 2 entries\n", out)

	out, err = run(t, cfg, "", "history")
	require.NoError(t, err)
	require.JSONEq(t, "[]", out)
}

func TestHistory_ViewFilterAndPrune(t *testing.T) {
	cfg := writeConfig(t, "")
	db := testutil.OpenHistoryDB(t, filepath.Join(filepath.Dir(cfg), "history.db"))
	testutil.NewBuilder(t, db).
		WithStandardNavigations().
		WithAgedNavigations(3).
		Build()
	require.NoError(t, db.Close())

	out, err := run(t, cfg, "", "history", "--view", "diff")
	require.NoError(t, err)
	var entries []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	require.Equal(t, "/c/platform/build/+/42/1..2/a.go", entries[0]["url"])

	out, err = run(t, cfg, "", "history", "-n", "2")
	require.NoError(t, err)
	entries = nil
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 2)
	require.Equal(t, "/c/5", entries[0]["url"])

	out, err = run(t, cfg, "", "history", "prune", "--older-than", "36h")
	require.NoError(t, err)
	require.Equal(t, "deleted 2 entries\n", out)

	_, err = run(t, cfg, "", "history", "prune", "--older-than", "0s")
	require.Error(t, err)
}

func TestHistory_Show(t *testing.T) {
	cfg := writeConfig(t, "")
	db := testutil.OpenHistoryDB(t, filepath.Join(filepath.Dir(cfg), "history.db"))
	built := testutil.NewBuilder(t, db).WithStandardNavigations().Build()
	require.NoError(t, db.Close())

	diff := built[1]
	out, err := run(t, cfg, "", "history", "show", diff.ID.String())
	require.NoError(t, err)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &entry))
	require.Equal(t, diff.ID.String(), entry["id"])
	require.Equal(t, "diff", entry["view"])
	require.Equal(t, map[string]any{"view": "diff", "changeNum": float64(42), "path": "a.go"}, entry["state"])

	_, err = run(t, cfg, "", "history", "show", "not-a-uuid")
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid navigation id")

	_, err = run(t, cfg, "", "history", "show", "00000000-0000-4000-8000-000000000000")
	require.Error(t, err)
	require.Contains(t, err.Error(), "history entry not found")
}

func TestFollow_Stdin(t *testing.T) {
	cfg := writeConfig(t, "")

	stdin := "# comment\n\n/q/status:open\n   /c/test/+/7  \n"
	out, err := run(t, cfg, stdin, "follow", "--watch=false")
	require.NoError(t, err)

	outcomes := decodeAll[map[string]any](t, out)
	require.Len(t, outcomes, 2)
	require.Equal(t, "search", outcomes[0]["view"])
	require.Equal(t, "change", outcomes[1]["view"])
}

func TestFollow_FailedLookupIsReported(t *testing.T) {
	cfg := writeConfig(t, "")

	out, err := run(t, cfg, "", "follow", "/c/5", "/c/test/+/1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "1 navigation(s) failed")

	outcomes := decodeAll[map[string]any](t, out)
	require.Len(t, outcomes, 2, "later URLs are still navigated")
	require.Equal(t, "failed", outcomes[0]["status"])
	require.Contains(t, outcomes[0]["error"], "no repository lookup configured")

	_, err = run(t, cfg, "", "follow", "--fail-fast", "/c/5", "/c/test/+/1")
	require.Error(t, err)
	require.NotContains(t, err.Error(), "navigation(s) failed")
}

func TestFollow_HistoryDisabled(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("history:\n  enabled: false\n"), 0o600))

	_, err := run(t, cfg, "", "follow", "/c/test/+/1")
	require.NoError(t, err)

	_, err = run(t, cfg, "", "history")
	require.Error(t, err)
	require.Contains(t, err.Error(), "history is disabled")
}

func gerritServer(t *testing.T, projects map[int]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := strings.TrimPrefix(r.URL.Query().Get("q"), "change:")
		for num, project := range projects {
			if fmt.Sprint(num) == q {
				_, _ = fmt.Fprintf(w, ")]}'\n[{\"_number\":%d,\"project\":%q}]", num, project)
				return
			}
		}
		_, _ = io.WriteString(w, ")]}'\n[]")
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLookup(t *testing.T) {
	srv := gerritServer(t, map[int]string{100: "plugins/replication"})
	cfg := writeConfig(t, fmt.Sprintf("lookup:\n  gerrit_url: %s\n  projects:\n    \"42\": pinned/repo\n", srv.URL))

	out, err := run(t, cfg, "", "lookup", "42")
	require.NoError(t, err)
	require.Equal(t, "pinned/repo\n", out)

	out, err = run(t, cfg, "", "lookup", "100")
	require.NoError(t, err)
	require.Equal(t, "plugins/replication\n", out)

	_, err = run(t, cfg, "", "lookup", "7")
	require.Error(t, err)
	require.Contains(t, err.Error(), "change 7 not found")

	_, err = run(t, cfg, "", "lookup", "abc")
	require.Error(t, err)
	require.Contains(t, err.Error(), "positive integer")
}

func TestFollow_ServerLookup(t *testing.T) {
	srv := gerritServer(t, map[int]string{100: "plugins/replication"})
	cfg := writeConfig(t, fmt.Sprintf("lookup:\n  gerrit_url: %s\n  cache:\n    backend: none\n", srv.URL))

	out, err := run(t, cfg, "", "follow", "/c/100/2/src/Main.java")
	require.NoError(t, err)
	outcomes := decodeAll[map[string]any](t, out)
	require.Len(t, outcomes, 1)
	require.Equal(t, "diff", outcomes[0]["view"])
	state := outcomes[0]["state"].(map[string]any)
	require.Equal(t, "plugins/replication", state["project"])
	require.Equal(t, "src/Main.java", state["path"])
}

func TestPin(t *testing.T) {
	cfg := writeConfig(t, "# keep me\nbase_path: /gerrit\n")

	out, err := run(t, cfg, "", "pin", "55", "tools/repo")
	require.NoError(t, err)
	require.Contains(t, out, "pinned change 55 to tools/repo")

	out, err = run(t, cfg, "", "lookup", "55")
	require.NoError(t, err)
	require.Equal(t, "tools/repo\n", out)

	data, err := os.ReadFile(cfg)
	require.NoError(t, err)
	require.Contains(t, string(data), "# keep me")
	require.Contains(t, string(data), "base_path: /gerrit")

	_, err = run(t, cfg, "", "pin", "0", "x")
	require.Error(t, err)
}

func TestMissingExplicitConfig(t *testing.T) {
	_, err := run(t, filepath.Join(t.TempDir(), "absent.yaml"), "", "parse", "/")
	require.Error(t, err)
}

func TestInvalidConfig(t *testing.T) {
	cfg := writeConfig(t, "max_redirects: 0\n")
	_, err := run(t, cfg, "", "parse", "/")
	require.Error(t, err)
	require.Contains(t, err.Error(), "max_redirects")
}

func TestBuildResolver_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	srv := gerritServer(t, map[int]string{9: "redis/backed"})

	lc := config.LookupConfig{
		GerritURL: srv.URL,
		Timeout:   time.Second,
		Cache:     config.CacheConfig{Backend: config.CacheRedis, RedisURL: "redis://" + mr.Addr(), TTL: time.Hour},
	}
	_, resolver, closers, err := buildResolver(t.Context(), lc)
	require.NoError(t, err)
	t.Cleanup(func() {
		for _, c := range closers {
			_ = c()
		}
	})

	project, err := resolver.ProjectFor(t.Context(), 9)
	require.NoError(t, err)
	require.Equal(t, "redis/backed", project)
	require.NotEmpty(t, mr.Keys(), "the answer is cached in redis")
	require.True(t, strings.HasPrefix(mr.Keys()[0], redisKeyPrefix))
}

func TestBuildResolver_RedisUnavailable(t *testing.T) {
	lc := config.LookupConfig{
		GerritURL: "http://127.0.0.1:1",
		Cache:     config.CacheConfig{Backend: config.CacheRedis, RedisURL: "redis://127.0.0.1:1"},
	}
	_, _, _, err := buildResolver(t.Context(), lc)
	require.Error(t, err)
	require.Contains(t, err.Error(), "connecting lookup cache")
}

func TestWatchConfig_AppliesChanges(t *testing.T) {
	path := writeConfig(t, "lookup:\n  projects:\n    \"1\": first\n")

	a := &app{v: viper.New(), cfgFile: path}
	a.configPath = path
	a.v.SetConfigFile(path)
	cfg, err := config.Load(a.v)
	require.NoError(t, err)
	a.cfg = cfg

	svc, err := newServices(t.Context(), cfg)
	require.NoError(t, err)
	t.Cleanup(svc.Close)

	stop := a.watchConfig(svc)
	t.Cleanup(stop)

	updated := fmt.Sprintf("base_path: /gerrit\nhistory:\n  path: %s\nlookup:\n  projects:\n    \"2\": second\n", cfg.History.Path)
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))

	require.Eventually(t, func() bool {
		return svc.navigator.Router().Options().BasePath == "/gerrit"
	}, 5*time.Second, 20*time.Millisecond)

	project, err := svc.resolver.ProjectFor(t.Context(), 2)
	require.NoError(t, err)
	require.Equal(t, "second", project)
}
