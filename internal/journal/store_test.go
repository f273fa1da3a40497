package journal_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fastchannels/internal/journal"
	"fastchannels/internal/testsupport"
)

func TestRecordAndList(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := []journal.Delivery{
		{RequestID: "r1", Source: "aws.s3", Stage: "transcode", Status: journal.StatusOK, Outcome: "SUBMITTED", ReceivedAt: base},
		{RequestID: "r2", Source: "aws.s3", Stage: "transcode", Status: journal.StatusSkipped, Message: "Not a video file", ReceivedAt: base.Add(time.Minute)},
		{RequestID: "r3", Source: "aws.mediaconvert", Stage: "packaging", Status: journal.StatusFailed, FailureClass: "transient", Duration: 1500 * time.Millisecond, ReceivedAt: base.Add(2 * time.Minute)},
	}
	for _, e := range entries {
		recorded, err := store.Record(ctx, e)
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
		if recorded.ID == 0 {
			t.Fatal("expected id to be assigned")
		}
	}

	all, err := store.List(ctx, journal.Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 || all[0].RequestID != "r3" {
		t.Fatalf("expected newest first, got %+v", all)
	}
	if all[0].Duration != 1500*time.Millisecond || all[0].FailureClass != "transient" {
		t.Fatalf("unexpected round trip %+v", all[0])
	}
	if !all[2].ReceivedAt.Equal(base) {
		t.Fatalf("received_at = %s, want %s", all[2].ReceivedAt, base)
	}

	transcode, err := store.List(ctx, journal.Filter{Stage: "transcode", Limit: 1})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(transcode) != 1 || transcode[0].RequestID != "r2" {
		t.Fatalf("unexpected filtered list %+v", transcode)
	}

	failed, err := store.List(ctx, journal.Filter{Status: journal.StatusFailed})
	if err != nil || len(failed) != 1 {
		t.Fatalf("failed filter = %+v, %v", failed, err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[journal.StatusOK] != 1 || stats[journal.StatusSkipped] != 1 || stats[journal.StatusFailed] != 1 {
		t.Fatalf("unexpected stats %v", stats)
	}

	removed, err := store.Prune(ctx, base.Add(90*time.Second))
	if err != nil || removed != 2 {
		t.Fatalf("Prune = %d, %v", removed, err)
	}
}

func TestReopenKeepsHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := journal.Open(cfg.Paths.StateDir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := store.Record(context.Background(), journal.Delivery{RequestID: "r1", Source: "aws.s3", Stage: "transcode", Status: journal.StatusOK}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	store.Close()

	reopened := testsupport.MustOpenJournal(t, cfg)
	list, err := reopened.List(context.Background(), journal.Filter{})
	if err != nil || len(list) != 1 {
		t.Fatalf("expected persisted delivery, got %+v, %v", list, err)
	}
	if err := reopened.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if reopened.Path() != filepath.Join(cfg.Paths.StateDir, journal.FileName) {
		t.Fatalf("unexpected path %q", reopened.Path())
	}
}

func TestSchemaMismatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	store.Close()

	path := filepath.Join(cfg.Paths.StateDir, journal.FileName)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("journal missing: %v", err)
	}
	db := testsupport.MustOpenJournal(t, cfg)
	if err := db.ExecForTest(context.Background(), "UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	db.Close()

	if _, err := journal.Open(cfg.Paths.StateDir); !errors.Is(err, journal.ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
}

func TestOpenRequiresStateDir(t *testing.T) {
	if _, err := journal.Open(" "); err == nil {
		t.Fatal("expected error for blank state dir")
	}
}
