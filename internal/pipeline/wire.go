package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"fastchannels/internal/awsclient"
	"fastchannels/internal/config"
	"fastchannels/internal/eventbus"
	"fastchannels/internal/logging"
	"fastchannels/internal/notifications"
	"fastchannels/internal/packaging"
	"fastchannels/internal/playback"
	"fastchannels/internal/reconcile"
	"fastchannels/internal/remote"
	"fastchannels/internal/resources"
	"fastchannels/internal/transcode"
	"fastchannels/internal/vodsource"
)

func millis(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// RetryPolicy builds the transient retry policy from configuration.
func RetryPolicy(cfg *config.Config, logger *slog.Logger) reconcile.RetryPolicy {
	return reconcile.RetryPolicy{
		Attempts:     uint(max(cfg.Reconcile.RetryAttempts, 1)),
		InitialDelay: millis(cfg.Reconcile.RetryInitialMillis),
		MaxDelay:     millis(cfg.Reconcile.RetryMaxDelayMillis),
		OnRetry: func(attempt uint, err error) {
			if logger == nil {
				return
			}
			logger.Debug("retrying throttled call",
				logging.Int("attempt", int(attempt)),
				logging.Error(err),
			)
		},
	}
}

// StackTags returns the tags stamped on every created asset.
func StackTags(cfg *config.Config) map[string]string {
	tags := map[string]string{}
	if cfg.Stack.Name != "" {
		tags["stack-name"] = cfg.Stack.Name
	}
	if cfg.Stack.ID != "" {
		tags["stack-id"] = cfg.Stack.ID
	}
	return tags
}

// NewStages builds every stage whose required configuration is present.
// Stages that cannot be built are listed in Stages.Disabled.
func NewStages(cfg *config.Config, clients *awsclient.Clients, observer reconcile.Observer, notifier notifications.Service, logger *slog.Logger) (Stages, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	stages := Stages{Disabled: map[string]string{}}
	retry := RetryPolicy(cfg, logger)
	jitter := reconcile.NewJitter(millis(cfg.Reconcile.JitterMinMillis), millis(cfg.Reconcile.JitterMaxMillis))
	locks := reconcile.NewKeyedMutex()

	if err := cfg.RequireStage(config.StageTranscode); err != nil {
		stages.Disabled[config.StageTranscode] = err.Error()
	} else {
		stages.Transcode = transcode.NewStage(transcode.Settings{
			RoleARN:         cfg.Transcode.RoleARN,
			JobTemplate:     cfg.Transcode.JobTemplate,
			TagKey:          cfg.Transcode.AdOffsetTagKey,
			VideoExtensions: cfg.Transcode.VideoExtensions,
		},
			&remote.ObjectTags{Client: clients.S3},
			&remote.JobClient{Client: clients.MediaConvert},
			retry,
			logging.NewComponentLogger(logger, config.StageTranscode),
		)
	}

	if err := cfg.RequireStage(config.StagePackaging); err != nil {
		stages.Disabled[config.StagePackaging] = err.Error()
	} else {
		projector, err := playback.NewProjector(cfg.Playback.HLSRewriteBase, cfg.Playback.DASHRewriteBase)
		if err != nil {
			return Stages{}, fmt.Errorf("playback projector: %w", err)
		}
		assets := &reconcile.Writer[resources.Asset]{
			Kind: "asset",
			Store: &remote.AssetStore{
				Client: clients.MediaPackage,
				Gap:    seconds(cfg.Scheduling.RecreateGapSeconds),
			},
			Merge:     resources.MergeAsset,
			Key:       func(a resources.Asset) string { return a.ID },
			Jitter:    jitter,
			Retry:     retry,
			MaxRounds: cfg.Reconcile.MaxRounds,
			Locks:     locks,
			Logger:    logger,
			Observer:  observer,
		}
		publisher := eventbus.NewEventBridgePublisher(clients.EventBridge, cfg.EventBus.BusName, cfg.EventBus.Source, logger)
		stages.Packaging = packaging.NewStage(packaging.Settings{
			PackagingGroupID: cfg.Packaging.GroupID,
			SourceRoleARN:    cfg.Packaging.RoleARN,
			StackTags:        StackTags(cfg),
			DetailType:       cfg.EventBus.DetailType,
		}, assets, projector, publisher, logging.NewComponentLogger(logger, config.StagePackaging))
	}

	if err := cfg.RequireStage(config.StageVodSource); err != nil {
		stages.Disabled[config.StageVodSource] = err.Error()
	} else {
		sources := &reconcile.Writer[resources.VodSource]{
			Kind:      "vod_source",
			Store:     &remote.VodSourceStore{Client: clients.MediaTailor},
			Merge:     resources.MergeVodSource,
			Key:       func(v resources.VodSource) string { return v.SourceLocation + "/" + v.Name },
			Jitter:    jitter,
			Retry:     retry,
			MaxRounds: cfg.Reconcile.MaxRounds,
			Present:   resources.VodSourceHasPackages,
			Locks:     locks,
			Logger:    logger,
			Observer:  observer,
		}
		var (
			schedule vodsource.ScheduleReader
			programs vodsource.ProgramWriter
		)
		if cfg.Scheduling.ChannelName != "" {
			store := &remote.ProgramStore{Client: clients.MediaTailor}
			schedule = store
			programs = &reconcile.ReplaceWriter[resources.Program]{
				Kind:     "program",
				Store:    store,
				Key:      func(p resources.Program) string { return p.ChannelName + "/" + p.Name },
				Gap:      seconds(cfg.Scheduling.RecreateGapSeconds),
				Retry:    retry,
				Logger:   logger,
				Observer: observer,
			}
		}
		stages.VodSource = vodsource.NewStage(vodsource.Settings{
			SourceLocation:   cfg.Scheduling.SourceLocation,
			ChannelName:      cfg.Scheduling.ChannelName,
			SlateVodSource:   cfg.Scheduling.SlateVodSource,
			PropagationDelay: seconds(cfg.Scheduling.PropagationDelaySeconds),
			Retry:            retry,
		},
			&remote.AssetStore{Client: clients.MediaPackage},
			sources, schedule, programs,
			logging.NewComponentLogger(logger, config.StageVodSource),
		)
	}

	if err := cfg.RequireStage(config.StageNotify); err != nil {
		stages.Disabled[config.StageNotify] = err.Error()
	} else {
		stages.Notify = notifier
	}
	return stages, nil
}
