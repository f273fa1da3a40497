// Package resources models the remote media resources the pipeline creates
// and the per-field merge rules used when a resource already exists.
package resources

import (
	"fmt"
	"maps"
	"net/url"
	"path"
	"strings"
)

// ManifestType identifies the streaming format of a packaged manifest.
type ManifestType string

const (
	ManifestHLS  ManifestType = "HLS"
	ManifestDASH ManifestType = "DASH"
)

// ManifestTypeFromURL maps a manifest URL's extension to its streaming format.
func ManifestTypeFromURL(raw string) (ManifestType, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse manifest url %q: %w", raw, err)
	}
	switch ext := path.Ext(parsed.Path); ext {
	case ".m3u8":
		return ManifestHLS, nil
	case ".mpd":
		return ManifestDASH, nil
	default:
		return "", fmt.Errorf("invalid manifest extension %q: must be .m3u8 or .mpd", ext)
	}
}

// PackagingRef ties one packaging configuration's manifest to a VOD source.
type PackagingRef struct {
	ConfigurationID string       `json:"packagingConfigurationId"`
	ManifestPath    string       `json:"manifestPath"`
	Type            ManifestType `json:"type"`
}

// NewPackagingRef builds a ref from a playable manifest URL.
func NewPackagingRef(manifestURL, configurationID string) (PackagingRef, error) {
	manifestType, err := ManifestTypeFromURL(manifestURL)
	if err != nil {
		return PackagingRef{}, err
	}
	parsed, err := url.Parse(manifestURL)
	if err != nil {
		return PackagingRef{}, err
	}
	if strings.TrimSpace(configurationID) == "" {
		return PackagingRef{}, fmt.Errorf("packaging configuration id is required")
	}
	return PackagingRef{ConfigurationID: configurationID, ManifestPath: parsed.Path, Type: manifestType}, nil
}

// MergePackagingRefs returns incoming refs first followed by every existing
// ref whose configuration ID is not in incoming. The second result reports
// whether the merge differs from existing.
func MergePackagingRefs(existing, incoming []PackagingRef) ([]PackagingRef, bool) {
	replaced := make(map[string]bool, len(incoming))
	merged := make([]PackagingRef, 0, len(existing)+len(incoming))
	for _, ref := range incoming {
		if replaced[ref.ConfigurationID] {
			continue
		}
		replaced[ref.ConfigurationID] = true
		merged = append(merged, ref)
	}
	for _, ref := range existing {
		if !replaced[ref.ConfigurationID] {
			merged = append(merged, ref)
		}
	}
	return merged, !sameRefSet(existing, merged)
}

// HasPackagingRefs reports whether every configuration ID in want is present in refs.
func HasPackagingRefs(refs, want []PackagingRef) bool {
	present := make(map[string]bool, len(refs))
	for _, ref := range refs {
		present[ref.ConfigurationID] = true
	}
	for _, ref := range want {
		if !present[ref.ConfigurationID] {
			return false
		}
	}
	return true
}

func sameRefSet(a, b []PackagingRef) bool {
	if len(a) != len(b) {
		return false
	}
	index := make(map[string]PackagingRef, len(a))
	for _, ref := range a {
		index[ref.ConfigurationID] = ref
	}
	for _, ref := range b {
		if existing, ok := index[ref.ConfigurationID]; !ok || existing != ref {
			return false
		}
	}
	return true
}

// VodSource is an ad-stitcher VOD source backed by packaged manifests.
type VodSource struct {
	Name           string
	SourceLocation string
	Packages       []PackagingRef
	Tags           map[string]string
}

// MergeVodSource folds desired's packaging refs into current. Tags are never
// merged because the remote store accepts them only on create.
func MergeVodSource(current, desired VodSource) (VodSource, bool) {
	merged := current
	merged.Tags = maps.Clone(current.Tags)
	var changed bool
	merged.Packages, changed = MergePackagingRefs(current.Packages, desired.Packages)
	return merged, changed
}

// VodSourceHasPackages reports whether current carries every configuration in desired.
func VodSourceHasPackages(current, desired VodSource) bool {
	return HasPackagingRefs(current.Packages, desired.Packages)
}

// EgressEndpoint is one playable URL exposed by a packaged asset.
type EgressEndpoint struct {
	URL             string
	ConfigurationID string
	Status          string
}

// Asset is a packager VOD asset ingested from transcoder output.
type Asset struct {
	ID               string
	PackagingGroupID string
	SourceARN        string
	SourceRoleARN    string
	Tags             map[string]string
	EgressEndpoints  []EgressEndpoint
	ARN              string
}

// MergeAsset decides whether an existing asset already satisfies desired.
// The packager cannot update assets in place, so a changed result means the
// store must replace the asset.
func MergeAsset(current, desired Asset) (Asset, bool) {
	if current.SourceARN == desired.SourceARN &&
		current.PackagingGroupID == desired.PackagingGroupID &&
		current.SourceRoleARN == desired.SourceRoleARN {
		return current, false
	}
	merged := desired
	merged.Tags = maps.Clone(current.Tags)
	if merged.Tags == nil {
		merged.Tags = map[string]string{}
	}
	maps.Copy(merged.Tags, desired.Tags)
	merged.EgressEndpoints = nil
	return merged, true
}

// TransitionType values accepted by the ad stitcher for program placement.
const (
	TransitionRelative      = "RELATIVE"
	RelativeBeforeProgram   = "BEFORE_PROGRAM"
	MessageTypeSpliceInsert = "SPLICE_INSERT"
)

// Transition places a program relative to the channel schedule.
type Transition struct {
	Type             string
	RelativePosition string
	RelativeProgram  string
}

// SpliceInsert is the SCTE-35 splice insert message attached to a break.
type SpliceInsert struct {
	AvailNum        int32
	AvailsExpected  int32
	SpliceEventID   int32
	UniqueProgramID int32
}

// SlateRef names the filler VOD source played during a break.
type SlateRef struct {
	SourceLocation string
	VodSource      string
}

// AdBreak is one scheduled ad insertion point within a program.
type AdBreak struct {
	OffsetMillis int64
	MessageType  string
	SpliceInsert SpliceInsert
	Slate        SlateRef
}

// Program is a scheduled channel program backed by a VOD source.
type Program struct {
	ChannelName    string
	Name           string
	SourceLocation string
	VodSource      string
	Transition     Transition
	AdBreaks       []AdBreak
}
