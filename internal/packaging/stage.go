// Package packaging ingests transcoder output into packager assets and
// publishes the resulting playback URLs.
package packaging

import (
	"context"
	"log/slog"
	"maps"

	"fastchannels/internal/adoffsets"
	"fastchannels/internal/eventbus"
	"fastchannels/internal/logging"
	"fastchannels/internal/playback"
	"fastchannels/internal/reconcile"
	"fastchannels/internal/resources"
	"fastchannels/internal/services"
)

// StatusNoOutput marks completion events that carry no manifests.
const StatusNoOutput = "NO_OUTPUT"

// AssetWriter converges a packager asset.
type AssetWriter interface {
	Ensure(ctx context.Context, desired resources.Asset) (resources.Asset, reconcile.Outcome, error)
}

// Settings configures the packaging stage.
type Settings struct {
	PackagingGroupID string
	SourceRoleARN    string
	StackTags        map[string]string
	DetailType       string
}

// Result summarizes one handled completion event.
type Result struct {
	Status       string         `json:"status"`
	AssetID      string         `json:"assetId,omitempty"`
	Outcome      string         `json:"outcome,omitempty"`
	PlaybackURLs []playback.URL `json:"playbackUrls,omitempty"`
	EventID      string         `json:"eventId,omitempty"`
}

// Stage handles transcode-complete events.
type Stage struct {
	settings  Settings
	assets    AssetWriter
	projector *playback.Projector
	publisher eventbus.Publisher
	logger    *slog.Logger
}

// NewStage constructs the packaging stage.
func NewStage(settings Settings, assets AssetWriter, projector *playback.Projector, publisher eventbus.Publisher, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = logging.NewNop()
	}
	if settings.DetailType == "" {
		settings.DetailType = eventbus.DetailTypePlaybackURLs
	}
	return &Stage{settings: settings, assets: assets, projector: projector, publisher: publisher, logger: logger}
}

// DesiredAsset builds the asset for a completion event.
func (s *Stage) DesiredAsset(detail eventbus.TranscodeCompleteDetail) (resources.Asset, bool, error) {
	output, ok := detail.FirstPlaylist()
	if !ok {
		return resources.Asset{}, false, nil
	}
	id, err := DeriveResourceID(output)
	if err != nil {
		return resources.Asset{}, true, err
	}
	source, err := SourceARN(output)
	if err != nil {
		return resources.Asset{}, true, err
	}
	tags := maps.Clone(s.settings.StackTags)
	if tags == nil {
		tags = map[string]string{}
	}
	maps.Copy(tags, detail.UserMetadata)
	return resources.Asset{
		ID:               id,
		PackagingGroupID: s.settings.PackagingGroupID,
		SourceARN:        source,
		SourceRoleARN:    s.settings.SourceRoleARN,
		Tags:             tags,
	}, true, nil
}

// Handle ensures the asset exists and publishes its playback URLs.
func (s *Stage) Handle(ctx context.Context, detail eventbus.TranscodeCompleteDetail) (Result, error) {
	logger := logging.WithContext(ctx, s.logger)
	desired, ok, err := s.DesiredAsset(detail)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		logging.WarnWithContext(logger, "completion event has no playlist paths", "no_output",
			logging.String("job_id", detail.JobID),
			logging.String(logging.FieldErrorHint, "check the job template output groups"),
			logging.String(logging.FieldImpact, "no asset is created for this job"),
		)
		return Result{Status: StatusNoOutput}, nil
	}

	ctx = services.WithResourceKey(ctx, desired.ID)
	asset, outcome, err := s.assets.Ensure(ctx, desired)
	if err != nil {
		return Result{}, err
	}

	urls, err := s.projector.Project(asset.ID, asset.EgressEndpoints, offsetTag(asset.Tags, desired.Tags))
	if err != nil {
		return Result{}, services.Wrap(services.ErrValidation, "packaging", "project urls", asset.ID, err)
	}
	eventID, err := s.publisher.Publish(ctx, s.settings.DetailType, eventbus.PlaybackURLsDetail{PlaybackURLs: urls})
	if err != nil {
		return Result{}, err
	}

	logger.Info("asset ready",
		logging.String(logging.FieldEventType, "asset_ready"),
		logging.String("asset_id", asset.ID),
		logging.String("outcome", string(outcome)),
		logging.Int("playback_urls", len(urls)),
	)
	return Result{
		Status:       "OK",
		AssetID:      asset.ID,
		Outcome:      string(outcome),
		PlaybackURLs: urls,
		EventID:      eventID,
	}, nil
}

// offsetTag prefers the tags stored on the asset and falls back to the
// desired tags when the store did not echo them.
func offsetTag(stored, desired map[string]string) string {
	if value, ok := stored[adoffsets.DefaultKey]; ok {
		return value
	}
	return desired[adoffsets.DefaultKey]
}
