// Package adbreaks converts propagated offset tags into ad-stitcher break
// descriptors for a scheduled program.
package adbreaks

import (
	"fmt"
	"math"

	"fastchannels/internal/adoffsets"
	"fastchannels/internal/resources"
)

// Scheduler builds breaks that fall back to a pre-provisioned slate. Offsets
// are read from adoffsets.DefaultKey, the key every upstream stage writes.
type Scheduler struct {
	SourceLocation string
	SlateVodSource string
}

// Breaks returns one SPLICE_INSERT break per offset found in tags. It returns
// nil when tags carry no offsets so callers omit the field entirely.
func (s Scheduler) Breaks(tags map[string]string) ([]resources.AdBreak, error) {
	offsets, _, ok := adoffsets.Extract(tags, adoffsets.DefaultKey)
	if !ok {
		return nil, nil
	}
	return s.BreaksFor(offsets)
}

// BreaksFor builds breaks for already-parsed offsets.
func (s Scheduler) BreaksFor(offsets []int64) ([]resources.AdBreak, error) {
	if len(offsets) == 0 {
		return nil, nil
	}
	if len(offsets) > math.MaxInt32 {
		return nil, fmt.Errorf("too many ad breaks: %d", len(offsets))
	}
	breaks := make([]resources.AdBreak, len(offsets))
	for i, offset := range offsets {
		index := int32(i)
		breaks[i] = resources.AdBreak{
			OffsetMillis: offset,
			MessageType:  resources.MessageTypeSpliceInsert,
			SpliceInsert: resources.SpliceInsert{
				AvailNum:        index,
				AvailsExpected:  1,
				SpliceEventID:   index,
				UniqueProgramID: index,
			},
			Slate: resources.SlateRef{
				SourceLocation: s.SourceLocation,
				VodSource:      s.SlateVodSource,
			},
		}
	}
	return breaks, nil
}
