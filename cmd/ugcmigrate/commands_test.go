package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"ugcmigrate/internal/api"
	"ugcmigrate/internal/config"
)

const fakeDBPath = "/definitely/not/used.db"

// fakeAPI answers /health and /v1/info for fakeDBPath and delegates
// everything else to handler.
func fakeAPI(t *testing.T, handler http.HandlerFunc) *config.Config {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		case "/v1/info":
			_ = json.NewEncoder(w).Encode(api.InfoResponse{DBPath: fakeDBPath, StorageBackend: "local_cas"})
		default:
			handler(w, r)
		}
	}))
	t.Cleanup(ts.Close)

	cfg := config.Default()
	cfg.APIURL = ts.URL
	cfg.DBPath = fakeDBPath
	return &cfg
}

func TestFetchAssetUsesAPIClient(t *testing.T) {
	var called atomic.Bool
	cfg := fakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/assets/import" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"not found"}`))
			return
		}
		var req api.AssetImportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL != "http://img.example.com/a.png" {
			t.Errorf("unexpected request %+v (%v)", req, err)
		}
		called.Store(true)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"path":"/content/usergenerated/tmp/social/images/x.png"}`))
	})

	jsonOutput := false
	cmd := newFetchAssetCmd(cfg, &jsonOutput)
	cmd.SetArgs([]string{"http://img.example.com/a.png"})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("execute fetch-asset: %v", err)
	}
	if !called.Load() {
		t.Fatal("expected fetch-asset to call API endpoint")
	}
}

func TestFetchAssetSurfacesNotImported(t *testing.T) {
	cfg := fakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"asset not imported","code":"not_imported","error_code":2201}`))
	})

	jsonOutput := false
	cmd := newFetchAssetCmd(cfg, &jsonOutput)
	cmd.SetArgs([]string{"file:///etc/passwd"})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	err := cmd.ExecuteContext(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "asset not imported") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestRewriteWritesOutputFile(t *testing.T) {
	cfg := fakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		var req api.RewriteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Include != "example.com" {
			t.Errorf("expected include filter, got %q", req.Include)
		}
		_ = json.NewEncoder(w).Encode(api.RewriteResponse{
			Text:         strings.ReplaceAll(req.Text, "http://example.com/a.png", "/content/a.png"),
			Replacements: []api.Replacement{{URL: "http://example.com/a.png", Path: "/content/a.png"}},
		})
	})

	dir := t.TempDir()
	input := filepath.Join(dir, "post.html")
	output := filepath.Join(dir, "post.out.html")
	if err := os.WriteFile(input, []byte(`<img src="http://example.com/a.png">`), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	jsonOutput := false
	cmd := newRewriteCmd(cfg, &jsonOutput)
	cmd.SetArgs([]string{"--input", input, "--include", "example.com", "--output", output})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("execute rewrite: %v", err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != `<img src="/content/a.png">` {
		t.Fatalf("unexpected output %q", data)
	}
}

func TestReadInputFromStdin(t *testing.T) {
	text, err := readInput(strings.NewReader("<p>hi</p>"), "-")
	if err != nil {
		t.Fatalf("read input: %v", err)
	}
	if text != "<p>hi</p>" {
		t.Fatalf("unexpected text %q", text)
	}
	if _, err := readInput(strings.NewReader(""), " "); err == nil {
		t.Fatal("expected error for empty input flag")
	}
}

func TestScoresImportUploadsFile(t *testing.T) {
	var called atomic.Bool
	cfg := fakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != api.ScoreImportPath {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		body, _ := io.ReadAll(file)
		if header.Filename != "scores.json" || string(body) != `{"u1": 4}` {
			t.Errorf("unexpected upload %s %s", header.Filename, body)
		}
		if r.FormValue("path") != "/content/site" || r.FormValue("scoringRule") != "/rules/r1" {
			t.Errorf("unexpected form values")
		}
		called.Store(true)
		_, _ = w.Write([]byte(`{"applied":1,"target_path":"/content/site","rule_path":"/rules/r1"}`))
	})

	path := filepath.Join(t.TempDir(), "scores.json")
	if err := os.WriteFile(path, []byte(`{"u1": 4}`), 0o644); err != nil {
		t.Fatalf("write scores: %v", err)
	}

	jsonOutput := false
	cmd := newScoresImportCmd(cfg, &jsonOutput)
	cmd.SetArgs([]string{"--file", path, "--path", "/content/site", "--rule", "/rules/r1"})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("execute scores import: %v", err)
	}
	if !called.Load() {
		t.Fatal("expected scores import to call API endpoint")
	}
}

func TestAssetsGCDefaultsToDryRun(t *testing.T) {
	var applied atomic.Bool
	cfg := fakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("apply") == "true" {
			applied.Store(true)
		}
		_, _ = w.Write([]byte(`{"candidate_count":0,"deleted_count":0,"failed_count":0,"reclaimed_bytes":0,"dry_run":true}`))
	})

	jsonOutput := false
	cmd := newAssetsGCCmd(cfg, &jsonOutput)
	cmd.SetArgs([]string{})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("execute assets gc: %v", err)
	}
	if applied.Load() {
		t.Fatal("expected dry run without --apply")
	}
}

func TestAdminHashTokenRejectsShortToken(t *testing.T) {
	jsonOutput := false
	cmd := newAdminHashTokenCmd(&jsonOutput)
	cmd.SetArgs([]string{"short"})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	if err := cmd.ExecuteContext(context.Background()); err == nil {
		t.Fatal("expected error for short token")
	}
}

func TestOpenBlobStoreSelectsBackend(t *testing.T) {
	cfg := config.Default()
	cfg.DBPath = filepath.Join(t.TempDir(), "test.db")

	store, err := openBlobStore(context.Background(), &cfg)
	if err != nil {
		t.Fatalf("open local blob store: %v", err)
	}
	if store.Backend() != "local_cas" {
		t.Fatalf("expected local_cas backend, got %s", store.Backend())
	}

	cfg.Storage.Backend = "tape"
	if _, err := openBlobStore(context.Background(), &cfg); err == nil {
		t.Fatal("expected error for unsupported backend")
	}

	cfg.Storage.Backend = "s3"
	cfg.Storage.S3Bucket = ""
	if _, err := openBlobStore(context.Background(), &cfg); err == nil {
		t.Fatal("expected error for s3 without bucket")
	}
}

func TestOpenRepositoryRequiresDBPath(t *testing.T) {
	cfg := config.Default()
	if _, err := openRepository(context.Background(), &cfg); err == nil {
		t.Fatal("expected error without db path")
	}
}

func TestRequireNodePathArg(t *testing.T) {
	cases := []struct {
		args    []string
		wantErr bool
	}{
		{args: []string{"/content/usergenerated/tmp/social/images/a.png"}, wantErr: false},
		{args: []string{"/content/a/../b.png"}, wantErr: false},
		{args: []string{"content/a.png"}, wantErr: true},
		{args: []string{"/etc/passwd"}, wantErr: true},
		{args: []string{"/content/../etc/passwd"}, wantErr: true},
		{args: nil, wantErr: true},
		{args: []string{"/content/a", "/content/b"}, wantErr: true},
	}
	for _, tc := range cases {
		err := requireNodePathArg(nil, tc.args)
		if (err != nil) != tc.wantErr {
			t.Fatalf("args %v: err=%v wantErr=%v", tc.args, err, tc.wantErr)
		}
	}
}

func TestEnsureServerRejectsServerForOtherDatabase(t *testing.T) {
	cfg := fakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
	})
	cfg.DBPath = filepath.Join(t.TempDir(), "other.db")

	cleanup, err := ensureServer(cfg)
	if cleanup != nil {
		t.Fatal("expected no server to be started")
	}
	if err == nil || !strings.Contains(err.Error(), fakeDBPath) {
		t.Fatalf("expected database mismatch error, got %v", err)
	}
}

func TestEnsureServerReusesMatchingServer(t *testing.T) {
	cfg := fakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
	})

	cleanup, err := ensureServer(cfg)
	if err != nil {
		t.Fatalf("ensure server: %v", err)
	}
	if cleanup != nil {
		t.Fatal("expected the running server to be reused")
	}
}

func TestCheckConfigValue(t *testing.T) {
	if err := checkConfigValue("admin_token_hash", "not-a-hash"); err == nil {
		t.Fatal("expected plaintext admin token to be rejected")
	}
	if err := checkConfigValue("storage.backend", "tape"); err == nil {
		t.Fatal("expected unknown backend to be rejected")
	}
	for _, backend := range []string{"local_cas", "s3"} {
		if err := checkConfigValue("storage.backend", backend); err != nil {
			t.Fatalf("backend %s: %v", backend, err)
		}
	}
	if err := checkConfigValue("fetch.timeout", "10s"); err != nil {
		t.Fatalf("unchecked key: %v", err)
	}
}
