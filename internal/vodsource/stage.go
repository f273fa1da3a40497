// Package vodsource registers playable packager assets as ad-stitcher VOD
// sources and optionally schedules them on a channel.
package vodsource

import (
	"context"
	"log/slog"
	"time"

	"fastchannels/internal/adbreaks"
	"fastchannels/internal/eventbus"
	"fastchannels/internal/logging"
	"fastchannels/internal/reconcile"
	"fastchannels/internal/resources"
	"fastchannels/internal/services"
)

// TagReader returns the tags attached to a packager asset.
type TagReader interface {
	Tags(ctx context.Context, arn string) (map[string]string, error)
}

// ScheduleReader looks up the head of a channel schedule.
type ScheduleReader interface {
	FirstScheduledProgram(ctx context.Context, channel string) (string, error)
}

// SourceWriter converges a VOD source.
type SourceWriter interface {
	Ensure(ctx context.Context, desired resources.VodSource) (resources.VodSource, reconcile.Outcome, error)
}

// ProgramWriter creates or replaces a channel program.
type ProgramWriter interface {
	Ensure(ctx context.Context, desired resources.Program) (resources.Program, reconcile.Outcome, error)
}

// Settings configures the asset-playable stage. An empty ChannelName
// disables program scheduling.
type Settings struct {
	SourceLocation   string
	ChannelName      string
	SlateVodSource   string
	PropagationDelay time.Duration
	// Retry bounds the backoff on throttled asset tag reads.
	Retry            reconcile.RetryPolicy
}

// Result summarizes one handled asset-playable event.
type Result struct {
	Status         string `json:"status"`
	VodSource      string `json:"vodSource"`
	Outcome        string `json:"outcome"`
	Program        string `json:"program,omitempty"`
	ProgramOutcome string `json:"programOutcome,omitempty"`
	AdBreaks       int    `json:"adBreaks,omitempty"`
}

// Stage handles asset-playable events.
type Stage struct {
	settings Settings
	tags     TagReader
	sources  SourceWriter
	schedule ScheduleReader
	programs ProgramWriter
	sleep    func(ctx context.Context, d time.Duration) error
	logger   *slog.Logger
}

// NewStage constructs the asset-playable stage. schedule and programs may be
// nil when no channel is configured.
func NewStage(settings Settings, tags TagReader, sources SourceWriter, schedule ScheduleReader, programs ProgramWriter, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Stage{
		settings: settings,
		tags:     tags,
		sources:  sources,
		schedule: schedule,
		programs: programs,
		sleep:    reconcile.Sleep,
		logger:   logger,
	}
}

// WithSleep replaces the propagation wait, for tests.
func (s *Stage) WithSleep(sleep func(ctx context.Context, d time.Duration) error) *Stage {
	s.sleep = sleep
	return s
}

// Scheduling reports whether programs are created for new sources.
func (s *Stage) Scheduling() bool {
	return s.settings.ChannelName != "" && s.programs != nil && s.schedule != nil
}

// Handle ensures a VOD source for the asset and, when a channel is
// configured, schedules it as a program.
func (s *Stage) Handle(ctx context.Context, assetARN string, detail eventbus.AssetPlayableDetail) (Result, error) {
	logger := logging.WithContext(ctx, s.logger)

	name, err := ResourceName(assetARN)
	if err != nil {
		return Result{}, services.Wrap(services.ErrValidation, "vodsource", "parse arn", assetARN, err)
	}
	if len(detail.ManifestURLs) == 0 {
		return Result{}, services.Wrap(services.ErrValidation, "vodsource", "read event", "no manifest urls", nil)
	}
	ref, err := resources.NewPackagingRef(detail.ManifestURLs[0], detail.PackagingConfigurationID)
	if err != nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "vodsource", "packaging ref", detail.ManifestURLs[0], err)
	}

	tags, err := s.assetTags(ctx, logger, assetARN)
	if err != nil {
		return Result{}, err
	}
	desired := resources.VodSource{
		Name:           name,
		SourceLocation: s.settings.SourceLocation,
		Packages:       []resources.PackagingRef{ref},
		Tags:           tags,
	}

	ctx = services.WithResourceKey(ctx, name)
	_, outcome, err := s.sources.Ensure(ctx, desired)
	if err != nil {
		return Result{}, err
	}
	result := Result{Status: "OK", VodSource: name, Outcome: string(outcome)}
	logger.Info("vod source ready",
		logging.String(logging.FieldEventType, "vod_source_ready"),
		logging.String("vod_source", name),
		logging.String("packaging_configuration_id", ref.ConfigurationID),
		logging.String("outcome", string(outcome)),
	)

	if !s.Scheduling() {
		return result, nil
	}
	program, programOutcome, err := s.scheduleProgram(ctx, name, tags)
	if err != nil {
		return Result{}, err
	}
	result.Program = program.Name
	result.ProgramOutcome = string(programOutcome)
	result.AdBreaks = len(program.AdBreaks)
	return result, nil
}

// assetTags fetches the asset's tags. Tags are only set when a source is
// created, so a failed read stops the stage instead of registering the source
// untagged. A missing asset degrades to no tags.
func (s *Stage) assetTags(ctx context.Context, logger *slog.Logger, arn string) (map[string]string, error) {
	if s.tags == nil {
		return map[string]string{}, nil
	}
	var tags map[string]string
	err := s.settings.Retry.Do(ctx, "read asset tags", func(ctx context.Context) error {
		var err error
		tags, err = s.tags.Tags(ctx, arn)
		return err
	})
	if reconcile.IsKind(err, reconcile.KindNotFound) {
		logging.WarnWithContext(logger, "asset not found while reading tags", "asset_tags_unavailable",
			logging.String("asset_arn", arn),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that the asset still exists in the packaging group"),
			logging.String(logging.FieldImpact, "source registered without tags or ad breaks"),
		)
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, reconcile.Surface("asset", "read tags", arn, err)
	}
	if tags == nil {
		tags = map[string]string{}
	}
	return tags, nil
}

func (s *Stage) scheduleProgram(ctx context.Context, name string, tags map[string]string) (resources.Program, reconcile.Outcome, error) {
	if err := s.sleep(ctx, s.settings.PropagationDelay); err != nil {
		return resources.Program{}, "", err
	}

	head, err := s.schedule.FirstScheduledProgram(ctx, s.settings.ChannelName)
	if err != nil {
		return resources.Program{}, "", reconcile.Surface("program", "schedule", s.settings.ChannelName, err)
	}
	scheduler := adbreaks.Scheduler{
		SourceLocation: s.settings.SourceLocation,
		SlateVodSource: s.settings.SlateVodSource,
	}
	breaks, err := scheduler.Breaks(tags)
	if err != nil {
		return resources.Program{}, "", services.Wrap(services.ErrValidation, "vodsource", "ad breaks", name, err)
	}

	program := resources.Program{
		ChannelName:    s.settings.ChannelName,
		Name:           name,
		SourceLocation: s.settings.SourceLocation,
		VodSource:      name,
		Transition: resources.Transition{
			Type:             resources.TransitionRelative,
			RelativePosition: resources.RelativeBeforeProgram,
			RelativeProgram:  head,
		},
		AdBreaks: breaks,
	}
	created, outcome, err := s.programs.Ensure(ctx, program)
	if err != nil {
		return resources.Program{}, "", err
	}
	logging.WithContext(ctx, s.logger).Info("program scheduled",
		logging.String(logging.FieldEventType, "program_scheduled"),
		logging.String("channel", s.settings.ChannelName),
		logging.String("program", name),
		logging.String("relative_program", head),
		logging.Int("ad_breaks", len(breaks)),
		logging.String("outcome", string(outcome)),
	)
	return created, outcome, nil
}
