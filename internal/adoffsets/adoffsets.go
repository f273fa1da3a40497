// Package adoffsets reads and writes the ad-break offset tag carried between
// the transcoder, the packager, and the ad stitcher.
//
// An offset tag is a whitespace-separated list of non-negative millisecond
// positions, e.g. "5000 15000 45000". Position in the list is the cue index.
package adoffsets

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DefaultKey is the tag key written by every stage when propagating offsets.
const DefaultKey = "AdOffsets"

// legacyKeys are historical spellings still found on uploaded objects.
var legacyKeys = []string{"ad_offsets", "AdOffsets", "adoffsets", "Adoffsets"}

// ErrMalformed reports a tag value containing a token that is not a non-negative integer.
var ErrMalformed = errors.New("malformed ad offset")

// Parse splits an offset tag into millisecond offsets. An empty tag yields an
// empty list. Any token that is not a plain non-negative integer fails the
// whole parse.
func Parse(tag string) ([]int64, error) {
	fields := strings.Fields(tag)
	if len(fields) == 0 {
		return nil, nil
	}
	offsets := make([]int64, 0, len(fields))
	for i, field := range fields {
		if field[0] == '+' || field[0] == '-' {
			return nil, fmt.Errorf("%w: token %d %q", ErrMalformed, i, field)
		}
		value, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: token %d %q", ErrMalformed, i, field)
		}
		offsets = append(offsets, value)
	}
	return offsets, nil
}

// Format joins offsets with single spaces.
func Format(offsets []int64) string {
	if len(offsets) == 0 {
		return ""
	}
	parts := make([]string, len(offsets))
	for i, offset := range offsets {
		parts[i] = strconv.FormatInt(offset, 10)
	}
	return strings.Join(parts, " ")
}

// CandidateKeys returns the tag keys searched for offsets, highest priority first.
func CandidateKeys(primary string) []string {
	keys := make([]string, 0, len(legacyKeys)+1)
	if primary = strings.TrimSpace(primary); primary != "" {
		keys = append(keys, primary)
	}
	for _, key := range legacyKeys {
		if key != primary {
			keys = append(keys, key)
		}
	}
	return keys
}

// Extract finds the first candidate key present in tags and parses its value.
// It reports false when no key matches, the value is empty, or any token is
// malformed; a partially valid list is never returned.
func Extract(tags map[string]string, primary string) ([]int64, string, bool) {
	if len(tags) == 0 {
		return nil, "", false
	}
	for _, key := range CandidateKeys(primary) {
		value, ok := tags[key]
		if !ok {
			continue
		}
		offsets, err := Parse(value)
		if err != nil || len(offsets) == 0 {
			return nil, key, false
		}
		return offsets, key, true
	}
	return nil, "", false
}
