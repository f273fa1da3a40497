package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fastchannels/internal/daemon"
	"fastchannels/internal/journal"
	"fastchannels/internal/pipeline"
	"fastchannels/internal/testsupport"
)

type cliTestEnv struct {
	configPath string
	stateDir   string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, extra string) *cliTestEnv {
	t.Helper()
	base := t.TempDir()
	home := filepath.Join(base, "home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", home)
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")

	env := &cliTestEnv{
		configPath: filepath.Join(base, "config.toml"),
		stateDir:   filepath.Join(base, "state"),
		baseDir:    base,
	}
	writeTestConfig(t, env.configPath, env.stateDir, extra)
	return env
}

func writeTestConfig(t *testing.T, path, stateDir, extra string) {
	t.Helper()
	content := fmt.Sprintf("[paths]\nstate_dir = %q\n%s\n[logging]\nlevel = \"error\"\n", stateDir, extra)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string, stdin string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t, "")

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath, "")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "Stage transcode disabled")

	if _, _, err := runCLI(t, []string{"config", "validate", "--strict"}, env.configPath, ""); err == nil {
		t.Fatal("expected strict validation to fail without stage settings")
	}

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "", "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", ""); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
}

func TestConfigShowRedactsToken(t *testing.T) {
	env := setupCLITestEnv(t, "api_token = \"hunter2\"")
	out, _, err := runCLI(t, []string{"config", "show"}, env.configPath, "")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "hunter2") {
		t.Fatal("token leaked into config show output")
	}
	requireContains(t, out, redacted)
	requireContains(t, out, env.stateDir)
}

func TestESAMCommand(t *testing.T) {
	out, _, err := runCLI(t, []string{"esam", "5000", "15000"}, "", "")
	if err != nil {
		t.Fatalf("esam: %v", err)
	}
	requireContains(t, out, "2 cue(s) at 5000 15000")
	requireContains(t, out, "SignalProcessingNotification")
	requireContains(t, out, "ManifestConfirmConditionNotification")

	out, _, err = runCLI(t, []string{"esam", "--json", "5000 15000"}, "", "")
	if err != nil {
		t.Fatalf("esam --json: %v", err)
	}
	var decoded esamOutput
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Cues != 2 || len(decoded.Offsets) != 2 {
		t.Fatalf("unexpected output %+v", decoded)
	}
	requireContains(t, out, `"signalProcessingNotification": "<`)

	if _, _, err := runCLI(t, []string{"esam", "5000", "abc"}, "", ""); err == nil {
		t.Fatal("expected malformed offsets to fail")
	}
}

func TestResourceIDCommand(t *testing.T) {
	out, _, err := runCLI(t, []string{"resource-id", "s3://bucket/shows/ep_01.m3u8"}, "", "")
	if err != nil {
		t.Fatalf("resource-id: %v", err)
	}
	requireContains(t, out, "Asset ID:   showsep01")
	requireContains(t, out, "Source ARN: arn:aws:s3:::bucket/shows/ep_01.m3u8")
}

func TestHistoryReadsLocalJournal(t *testing.T) {
	env := setupCLITestEnv(t, "")
	store, err := journal.Open(env.stateDir)
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	ctx := context.Background()
	for _, d := range []journal.Delivery{
		{RequestID: "r1", Source: "aws.s3", Stage: "transcode", Status: journal.StatusOK, Outcome: "submitted", ResourceKey: "bucket/a.mp4"},
		{RequestID: "r2", Source: "aws.mediaconvert", Stage: "packaging", Status: journal.StatusFailed, FailureClass: "configuration", Message: "packaging group missing"},
	} {
		if _, err := store.Record(ctx, d); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	store.Close()

	out, _, err := runCLI(t, []string{"history"}, env.configPath, "")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "bucket/a.mp4")
	requireContains(t, out, "packaging group missing")

	out, _, err = runCLI(t, []string{"history", "--status", "failed", "--json"}, env.configPath, "")
	if err != nil {
		t.Fatalf("history --json: %v", err)
	}
	if strings.Contains(out, "bucket/a.mp4") {
		t.Fatalf("status filter ignored: %s", out)
	}
	requireContains(t, out, `"failureClass": "configuration"`)
}

func TestHandleRejectsUnroutedEnvelope(t *testing.T) {
	env := setupCLITestEnv(t, "")
	envelope := `{"version":"0","id":"evt-1","detail-type":"Something","source":"com.example","account":"1","time":"2026-01-01T00:00:00Z","region":"us-east-1","resources":[],"detail":{}}`

	out, _, err := runCLI(t, []string{"handle", "-"}, env.configPath, envelope)
	if err == nil {
		t.Fatal("expected unrouted envelope to fail")
	}
	var result pipeline.Result
	if jerr := json.Unmarshal([]byte(out), &result); jerr != nil {
		t.Fatalf("decode result %q: %v", out, jerr)
	}
	if result.Stage != pipeline.StageUnrouted || result.Class != "validation" {
		t.Fatalf("unexpected result %+v", result)
	}

	store, err := journal.Open(env.stateDir)
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	defer store.Close()
	rows, err := store.List(context.Background(), journal.Filter{})
	if err != nil || len(rows) != 1 || rows[0].EventID != "evt-1" {
		t.Fatalf("expected the delivery journaled, got %+v (%v)", rows, err)
	}
}

func TestHandleRequiresEnvelope(t *testing.T) {
	env := setupCLITestEnv(t, "")
	if _, _, err := runCLI(t, []string{"handle"}, env.configPath, "  "); err == nil {
		t.Fatal("expected empty stdin to fail")
	}
}

type stubDispatcher struct{}

func (stubDispatcher) Dispatch(context.Context, []byte) (pipeline.Result, error) {
	return pipeline.Result{}, nil
}

func (stubDispatcher) Disabled() map[string]string {
	return map[string]string{"vodsource": "vodsource stage requires scheduling.source_location"}
}

func TestStatusQueriesDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIToken = "tok"
	d, err := daemon.New(cfg, daemon.Options{Dispatcher: stubDispatcher{}})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	env := setupCLITestEnv(t, fmt.Sprintf("api_bind = %q\napi_token = \"tok\"", d.Addr()))

	out, _, err := runCLI(t, []string{"status"}, env.configPath, "")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Running:")
	requireContains(t, out, "[OK] yes")
	requireContains(t, out, "vodsource stage requires scheduling.source_location")
}
