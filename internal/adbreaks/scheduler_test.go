package adbreaks

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"fastchannels/internal/resources"
)

func TestBreaksFromTags(t *testing.T) {
	scheduler := Scheduler{SourceLocation: "vod-location", SlateVodSource: "AdBreakSlate_30000"}

	breaks, err := scheduler.Breaks(map[string]string{"AdOffsets": "5000 15000 45000"})
	if err != nil {
		t.Fatalf("Breaks: %v", err)
	}
	if len(breaks) != 3 {
		t.Fatalf("expected 3 breaks, got %d", len(breaks))
	}
	for i, want := range []int64{5000, 15000, 45000} {
		b := breaks[i]
		if b.OffsetMillis != want {
			t.Fatalf("break %d offset = %d, want %d", i, b.OffsetMillis, want)
		}
		wantSplice := resources.SpliceInsert{AvailNum: int32(i), AvailsExpected: 1, SpliceEventID: int32(i), UniqueProgramID: int32(i)}
		if diff := cmp.Diff(wantSplice, b.SpliceInsert); diff != "" {
			t.Fatalf("break %d splice mismatch (-want +got):\n%s", i, diff)
		}
		if b.MessageType != "SPLICE_INSERT" {
			t.Fatalf("unexpected message type %q", b.MessageType)
		}
		if b.Slate != (resources.SlateRef{SourceLocation: "vod-location", VodSource: "AdBreakSlate_30000"}) {
			t.Fatalf("unexpected slate %+v", b.Slate)
		}
	}
}

func TestBreaksOmittedWithoutOffsets(t *testing.T) {
	scheduler := Scheduler{SourceLocation: "loc", SlateVodSource: "slate"}
	for _, tags := range []map[string]string{
		nil,
		{},
		{"Owner": "ops"},
		{"AdOffsets": ""},
		{"AdOffsets": "1000 x"},
	} {
		breaks, err := scheduler.Breaks(tags)
		if err != nil {
			t.Fatalf("Breaks(%v): %v", tags, err)
		}
		if breaks != nil {
			t.Fatalf("Breaks(%v) = %v, want nil", tags, breaks)
		}
	}
}

func TestBreaksReadsPropagatedKey(t *testing.T) {
	scheduler := Scheduler{SourceLocation: "loc", SlateVodSource: "slate"}
	breaks, err := scheduler.Breaks(map[string]string{"AdOffsets": "2000", "breaks": "9000"})
	if err != nil || len(breaks) != 1 || breaks[0].OffsetMillis != 2000 {
		t.Fatalf("unexpected breaks %v, %v", breaks, err)
	}
}
