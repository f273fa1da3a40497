// Package eventbus decodes inbound event envelopes and publishes pipeline
// events to EventBridge.
package eventbus

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"fastchannels/internal/playback"
	"fastchannels/internal/services"
)

// Event sources emitted by the managed services.
const (
	SourceS3           = "aws.s3"
	SourceMediaConvert = "aws.mediaconvert"
	SourceMediaPackage = "aws.mediapackage"
)

// DetailTypePlaybackURLs is the default detail type of published playback URL events.
const DetailTypePlaybackURLs = "Playback URLs"

// Envelope is the event bus wrapper around every delivered event.
type Envelope struct {
	ID         string          `json:"id"`
	DetailType string          `json:"detail-type"`
	Source     string          `json:"source"`
	Account    string          `json:"account,omitempty"`
	Time       time.Time       `json:"time"`
	Region     string          `json:"region,omitempty"`
	Resources  []string        `json:"resources"`
	Detail     json.RawMessage `json:"detail"`
}

// Decode parses an envelope, rejecting documents without a source or detail.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, services.Wrap(services.ErrValidation, "eventbus", "decode", "invalid envelope", err)
	}
	if strings.TrimSpace(env.Source) == "" {
		return Envelope{}, services.Wrap(services.ErrValidation, "eventbus", "decode", "envelope has no source", nil)
	}
	if len(env.Detail) == 0 || string(env.Detail) == "null" {
		return Envelope{}, services.Wrap(services.ErrValidation, "eventbus", "decode", "envelope has no detail", nil)
	}
	return env, nil
}

// DecodeDetail unmarshals the envelope detail into out.
func (e Envelope) DecodeDetail(out any) error {
	if err := json.Unmarshal(e.Detail, out); err != nil {
		return services.Wrap(services.ErrValidation, "eventbus", "decode detail",
			fmt.Sprintf("%s from %s", e.DetailType, e.Source), err)
	}
	return nil
}

// UploadDetail is the blob store object-created detail.
type UploadDetail struct {
	Bucket struct {
		Name string `json:"name"`
	} `json:"bucket"`
	Object struct {
		Key  string `json:"key"`
		Size int64  `json:"size,omitempty"`
	} `json:"object"`
}

// OutputGroupDetail lists the manifests one output group produced.
type OutputGroupDetail struct {
	PlaylistFilePaths []string `json:"playlistFilePaths"`
	Type              string   `json:"type,omitempty"`
}

// TranscodeCompleteDetail is the transcoder job state change detail.
type TranscodeCompleteDetail struct {
	Status             string              `json:"status"`
	JobID              string              `json:"jobId"`
	OutputGroupDetails []OutputGroupDetail `json:"outputGroupDetails"`
	UserMetadata       map[string]string   `json:"userMetadata,omitempty"`
}

// FirstPlaylist returns the first manifest path of the first output group.
func (d TranscodeCompleteDetail) FirstPlaylist() (string, bool) {
	if len(d.OutputGroupDetails) == 0 || len(d.OutputGroupDetails[0].PlaylistFilePaths) == 0 {
		return "", false
	}
	return d.OutputGroupDetails[0].PlaylistFilePaths[0], true
}

// AssetPlayableDetail is the packager asset-playable detail.
type AssetPlayableDetail struct {
	Event                    string   `json:"event,omitempty"`
	ManifestURLs             []string `json:"manifest_urls"`
	PackagingConfigurationID string   `json:"packaging_configuration_id"`
}

// PlaybackURLsDetail is published once an asset's playback URLs are known.
type PlaybackURLsDetail struct {
	PlaybackURLs []playback.URL `json:"playbackUrls" yaml:"playbackUrls"`
}
