package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"fastchannels/internal/config"
	"fastchannels/internal/eventbus"
	"fastchannels/internal/journal"
	"fastchannels/internal/logging"
	"fastchannels/internal/notifications"
	"fastchannels/internal/packaging"
	"fastchannels/internal/services"
	"fastchannels/internal/transcode"
	"fastchannels/internal/vodsource"
)

// Transcode job states the packaging stage acts on.
const jobStatusComplete = "COMPLETE"

// Packager notification the VOD source stage acts on.
const assetPlayableEvent = "VodAssetPlayable"

// TranscodeHandler handles upload-complete events.
type TranscodeHandler interface {
	Handle(ctx context.Context, detail eventbus.UploadDetail) (transcode.Result, error)
}

// PackagingHandler handles transcode-complete events.
type PackagingHandler interface {
	Handle(ctx context.Context, detail eventbus.TranscodeCompleteDetail) (packaging.Result, error)
}

// VodSourceHandler handles asset-playable events.
type VodSourceHandler interface {
	Handle(ctx context.Context, assetARN string, detail eventbus.AssetPlayableDetail) (vodsource.Result, error)
}

// Journal records deliveries.
type Journal interface {
	Record(ctx context.Context, d journal.Delivery) (journal.Delivery, error)
}

// Metrics samples deliveries.
type Metrics interface {
	Begin(stage string) func(status, class string)
}

// Stages holds the handler for each stage. A nil handler means the stage is
// not configured; Disabled carries the reason.
type Stages struct {
	Transcode TranscodeHandler
	Packaging PackagingHandler
	VodSource VodSourceHandler
	Notify    notifications.Service
	Disabled  map[string]string
}

// Options configures a Dispatcher.
type Options struct {
	Stages             Stages
	Journal            Journal
	Metrics            Metrics
	Notifier           notifications.Service
	Logger             *slog.Logger
	StageOverrides     map[string]string
	StackSource        string
	PlaybackDetailType string
}

// Result describes one handled delivery.
type Result struct {
	RequestID   string `json:"requestId"`
	EventID     string `json:"eventId,omitempty"`
	Stage       string `json:"stage"`
	Status      string `json:"status"`
	Class       string `json:"class,omitempty"`
	ResourceKey string `json:"resourceKey,omitempty"`
	Outcome     string `json:"outcome,omitempty"`
	Error       string `json:"error,omitempty"`
	Output      any    `json:"output,omitempty"`
}

// Dispatcher routes envelopes to stages.
type Dispatcher struct {
	opts   Options
	logger *slog.Logger
}

// NewDispatcher constructs a dispatcher.
func NewDispatcher(opts Options) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.PlaybackDetailType == "" {
		opts.PlaybackDetailType = eventbus.DetailTypePlaybackURLs
	}
	return &Dispatcher{opts: opts, logger: logger}
}

// Disabled returns the stages that are not configured, keyed by stage name.
func (d *Dispatcher) Disabled() map[string]string {
	out := make(map[string]string, len(d.opts.Stages.Disabled))
	for stage, reason := range d.opts.Stages.Disabled {
		out[stage] = reason
	}
	return out
}

// stageOutput is what a stage run reports back to the dispatcher.
type stageOutput struct {
	status      string
	resourceKey string
	outcome     string
	output      any
}

// Dispatch decodes and handles one raw envelope. The returned error carries
// the service classification; Result is populated either way.
func (d *Dispatcher) Dispatch(ctx context.Context, raw []byte) (Result, error) {
	requestID := uuid.NewString()
	ctx = services.WithRequestID(ctx, requestID)
	received := time.Now()

	env, err := eventbus.Decode(raw)
	if err != nil {
		result := d.finish(ctx, received, eventbus.Envelope{}, StageUnrouted, stageOutput{}, err)
		d.sample(StageUnrouted, result)
		return result, err
	}
	return d.DispatchEnvelope(ctx, env)
}

// DispatchEnvelope handles an already decoded envelope.
func (d *Dispatcher) DispatchEnvelope(ctx context.Context, env eventbus.Envelope) (Result, error) {
	if _, ok := services.RequestIDFromContext(ctx); !ok {
		ctx = services.WithRequestID(ctx, uuid.NewString())
	}
	received := time.Now()
	stage, ok := Route(env, d.opts.StackSource, d.opts.PlaybackDetailType)
	if !ok {
		err := services.Wrap(services.ErrValidation, "pipeline", "route",
			fmt.Sprintf("no stage handles source %q detail-type %q", env.Source, env.DetailType), nil)
		result := d.finish(ctx, received, env, stage, stageOutput{}, err)
		d.sample(stage, result)
		return result, err
	}

	ctx = services.WithStage(ctx, stage)
	if env.ID != "" {
		ctx = services.WithEventID(ctx, env.ID)
	}
	var done func(status, class string)
	if d.opts.Metrics != nil {
		done = d.opts.Metrics.Begin(stage)
	}
	logger := logging.WithContext(ctx, logging.ForStage(d.logger, d.opts.StageOverrides, stage))
	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("source", env.Source),
		logging.String("detail_type", env.DetailType),
	)

	out, err := d.run(ctx, stage, env)
	result := d.finish(ctx, received, env, stage, out, err)
	if done != nil {
		done(result.Status, result.Class)
	}
	return result, err
}

func (d *Dispatcher) sample(stage string, result Result) {
	if d.opts.Metrics != nil {
		d.opts.Metrics.Begin(stage)(result.Status, result.Class)
	}
}

func (d *Dispatcher) run(ctx context.Context, stage string, env eventbus.Envelope) (stageOutput, error) {
	if reason, disabled := d.opts.Stages.Disabled[stage]; disabled {
		return stageOutput{}, services.Wrap(services.ErrConfiguration, stage, "dispatch", reason, nil)
	}
	switch stage {
	case config.StageTranscode:
		return d.runTranscode(ctx, env)
	case config.StagePackaging:
		return d.runPackaging(ctx, env)
	case config.StageVodSource:
		return d.runVodSource(ctx, env)
	case config.StageNotify:
		return d.runNotify(ctx, env)
	default:
		return stageOutput{}, services.Wrap(services.ErrValidation, "pipeline", "dispatch", "unknown stage "+stage, nil)
	}
}

func unconfigured(stage string) error {
	return services.Wrap(services.ErrConfiguration, stage, "dispatch", "stage is not configured", nil)
}

func (d *Dispatcher) runTranscode(ctx context.Context, env eventbus.Envelope) (stageOutput, error) {
	if d.opts.Stages.Transcode == nil {
		return stageOutput{}, unconfigured(config.StageTranscode)
	}
	var detail eventbus.UploadDetail
	if err := env.DecodeDetail(&detail); err != nil {
		return stageOutput{}, err
	}
	res, err := d.opts.Stages.Transcode.Handle(ctx, detail)
	if err != nil {
		return stageOutput{resourceKey: detail.Object.Key}, err
	}
	status := journal.StatusOK
	if res.Status == transcode.StatusSkipped {
		status = journal.StatusSkipped
	}
	return stageOutput{status: status, resourceKey: detail.Object.Key, outcome: res.Status, output: res}, nil
}

func (d *Dispatcher) runPackaging(ctx context.Context, env eventbus.Envelope) (stageOutput, error) {
	if d.opts.Stages.Packaging == nil {
		return stageOutput{}, unconfigured(config.StagePackaging)
	}
	var detail eventbus.TranscodeCompleteDetail
	if err := env.DecodeDetail(&detail); err != nil {
		return stageOutput{}, err
	}
	if detail.Status != "" && !strings.EqualFold(detail.Status, jobStatusComplete) {
		return stageOutput{status: journal.StatusSkipped, resourceKey: detail.JobID, outcome: detail.Status}, nil
	}
	res, err := d.opts.Stages.Packaging.Handle(ctx, detail)
	if err != nil {
		return stageOutput{resourceKey: detail.JobID}, err
	}
	if res.Status == packaging.StatusNoOutput {
		return stageOutput{status: journal.StatusSkipped, resourceKey: detail.JobID, outcome: res.Status, output: res}, nil
	}
	return stageOutput{status: journal.StatusOK, resourceKey: res.AssetID, outcome: res.Outcome, output: res}, nil
}

func (d *Dispatcher) runVodSource(ctx context.Context, env eventbus.Envelope) (stageOutput, error) {
	if d.opts.Stages.VodSource == nil {
		return stageOutput{}, unconfigured(config.StageVodSource)
	}
	var detail eventbus.AssetPlayableDetail
	if err := env.DecodeDetail(&detail); err != nil {
		return stageOutput{}, err
	}
	if detail.Event != "" && detail.Event != assetPlayableEvent {
		return stageOutput{status: journal.StatusSkipped, outcome: detail.Event}, nil
	}
	if len(env.Resources) == 0 {
		return stageOutput{}, services.Wrap(services.ErrValidation, config.StageVodSource, "dispatch", "envelope names no asset", nil)
	}
	res, err := d.opts.Stages.VodSource.Handle(ctx, env.Resources[0], detail)
	if err != nil {
		return stageOutput{resourceKey: env.Resources[0]}, err
	}
	outcome := res.Outcome
	if res.ProgramOutcome != "" {
		outcome += "+program:" + res.ProgramOutcome
	}
	return stageOutput{status: journal.StatusOK, resourceKey: res.VodSource, outcome: outcome, output: res}, nil
}

func (d *Dispatcher) runNotify(ctx context.Context, env eventbus.Envelope) (stageOutput, error) {
	if d.opts.Stages.Notify == nil {
		return stageOutput{}, unconfigured(config.StageNotify)
	}
	var detail eventbus.PlaybackURLsDetail
	if err := env.DecodeDetail(&detail); err != nil {
		return stageOutput{}, err
	}
	var key string
	if len(detail.PlaybackURLs) > 0 {
		key = detail.PlaybackURLs[0].AssetID
	}
	if err := d.opts.Stages.Notify.NotifyPlaybackURLs(ctx, detail.PlaybackURLs); err != nil {
		return stageOutput{resourceKey: key}, services.Wrap(services.ErrTransient, config.StageNotify, "deliver", key, err)
	}
	return stageOutput{status: journal.StatusOK, resourceKey: key, outcome: "delivered", output: detail}, nil
}

// finish logs, journals and, for permanent failures, notifies.
func (d *Dispatcher) finish(ctx context.Context, received time.Time, env eventbus.Envelope, stage string, out stageOutput, err error) Result {
	requestID, _ := services.RequestIDFromContext(ctx)
	logger := logging.WithContext(ctx, logging.ForStage(d.logger, d.opts.StageOverrides, stage))
	result := Result{
		RequestID:   requestID,
		EventID:     env.ID,
		Stage:       stage,
		Status:      out.status,
		ResourceKey: out.resourceKey,
		Outcome:     out.outcome,
		Output:      out.output,
	}
	elapsed := time.Since(received)

	if err != nil {
		result.Status = journal.StatusFailed
		result.Class = services.Classify(err)
		result.Error = err.Error()
		result.Output = nil
		logging.ErrorWithContext(logger, "stage failed", "stage_failure",
			logging.String("failure_class", result.Class),
			logging.Bool("redeliver", services.Retryable(err)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, hintFor(result.Class)),
			logging.Alert("stage_failure"),
		)
	} else {
		logger.Info("stage completed",
			logging.String(logging.FieldEventType, "stage_complete"),
			logging.String("status", result.Status),
			logging.String("outcome", result.Outcome),
			logging.Duration("elapsed", elapsed),
		)
	}

	if d.opts.Journal != nil {
		_, jerr := d.opts.Journal.Record(ctx, journal.Delivery{
			RequestID:    requestID,
			EventID:      env.ID,
			Source:       env.Source,
			DetailType:   env.DetailType,
			Stage:        stage,
			ResourceKey:  result.ResourceKey,
			Status:       result.Status,
			FailureClass: result.Class,
			Outcome:      result.Outcome,
			Message:      result.Error,
			Duration:     elapsed,
			ReceivedAt:   received,
		})
		if jerr != nil {
			logging.WarnWithContext(logger, "journal write failed", "journal_write_failed",
				logging.Error(jerr),
				logging.String(logging.FieldImpact, "delivery missing from history"),
			)
		}
	}

	// Transient failures are redelivered, so only permanent ones are reported.
	if err != nil && !services.Retryable(err) && d.opts.Notifier != nil {
		if nerr := d.opts.Notifier.NotifyError(ctx, err, stage); nerr != nil {
			logging.WarnWithContext(logger, "error notification failed", "notify_failed",
				logging.Error(nerr),
				logging.String(logging.FieldImpact, "operators were not alerted"),
			)
		}
	}
	return result
}

func hintFor(class string) string {
	switch class {
	case services.ClassTransient:
		return "the event bus will redeliver this event"
	case services.ClassConfiguration:
		return "check role ARNs, template, packaging group and source location"
	case services.ClassValidation:
		return "inspect the delivered event payload"
	case services.ClassNotFound:
		return "confirm the referenced resource exists"
	default:
		return "check logs for details"
	}
}
