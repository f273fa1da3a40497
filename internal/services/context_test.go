package services_test

import (
	"context"
	"testing"

	"fastchannels/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithEventID(ctx, "evt-42")
	ctx = services.WithStage(ctx, "packaging")
	ctx = services.WithResourceKey(ctx, "movie-hls")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.EventIDFromContext(ctx); !ok || id != "evt-42" {
		t.Fatalf("unexpected event id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "packaging" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if key, ok := services.ResourceKeyFromContext(ctx); !ok || key != "movie-hls" {
		t.Fatalf("unexpected resource key: %v %v", key, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestStageBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
}
