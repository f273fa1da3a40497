// Package transcode submits transcoder jobs for uploaded media, carrying ad
// break signaling derived from the object's tags.
package transcode

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/mediaconvert"
	"github.com/aws/aws-sdk-go-v2/service/mediaconvert/types"

	"fastchannels/internal/adoffsets"
	"fastchannels/internal/esam"
	"fastchannels/internal/eventbus"
	"fastchannels/internal/logging"
	"fastchannels/internal/reconcile"
	"fastchannels/internal/services"
)

// StatusSkipped marks uploads that are not transcoded.
const StatusSkipped = "SKIPPED"

// TagReader reads blob store object tags.
type TagReader interface {
	Get(ctx context.Context, bucket, key string) (map[string]string, error)
}

// JobSubmitter fetches templates and creates jobs.
type JobSubmitter interface {
	Template(ctx context.Context, name string) (*types.JobTemplate, error)
	Submit(ctx context.Context, input *mediaconvert.CreateJobInput) (*types.Job, error)
}

// Settings configures the upload stage.
type Settings struct {
	RoleARN         string
	JobTemplate     string
	TagKey          string
	VideoExtensions []string
}

// Result summarizes one handled upload.
type Result struct {
	Status    string `json:"Status"`
	ID        string `json:"Id,omitempty"`
	InputFile string `json:"InputFile,omitempty"`
	Reason    string `json:"Reason,omitempty"`
	AdOffsets string `json:"AdOffsets,omitempty"`
}

// Stage handles upload-complete events.
type Stage struct {
	settings   Settings
	extensions map[string]bool
	tags       TagReader
	jobs       JobSubmitter
	retry      reconcile.RetryPolicy
	logger     *slog.Logger
}

// NewStage constructs the upload stage.
func NewStage(settings Settings, tags TagReader, jobs JobSubmitter, retry reconcile.RetryPolicy, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = logging.NewNop()
	}
	extensions := make(map[string]bool, len(settings.VideoExtensions))
	for _, ext := range settings.VideoExtensions {
		extensions[strings.ToLower(ext)] = true
	}
	return &Stage{
		settings:   settings,
		extensions: extensions,
		tags:       tags,
		jobs:       jobs,
		retry:      retry,
		logger:     logger,
	}
}

// IsVideo reports whether key has a video extension.
func (s *Stage) IsVideo(key string) bool {
	return s.extensions[strings.ToLower(path.Ext(key))]
}

// Handle submits a transcode job for the uploaded object.
func (s *Stage) Handle(ctx context.Context, detail eventbus.UploadDetail) (Result, error) {
	bucket, key := detail.Bucket.Name, detail.Object.Key
	if bucket == "" || key == "" {
		return Result{}, services.Wrap(services.ErrValidation, "transcode", "handle", "upload event missing bucket or key", nil)
	}
	logger := logging.WithContext(ctx, s.logger)
	input := fmt.Sprintf("s3://%s/%s", bucket, key)

	if !s.IsVideo(key) {
		logger.Info("skipping non-video upload",
			logging.String(logging.FieldEventType, "upload_skipped"),
			logging.String("input", input),
		)
		return Result{Status: StatusSkipped, Reason: "Not a video file", InputFile: input}, nil
	}

	tags, err := s.objectTags(ctx, bucket, key)
	if err != nil {
		logging.WarnWithContext(logger, "object tags unavailable, continuing without ad breaks", "object_tags_unavailable",
			logging.String("input", input),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "grant s3:GetObjectTagging to the pipeline role"),
			logging.String(logging.FieldImpact, "job is created without ad signaling"),
		)
		tags = nil
	}

	var signal *esam.Signal
	var offsetTag string
	if offsets, matchedKey, ok := adoffsets.Extract(tags, s.settings.TagKey); ok {
		generated, present, err := esam.Synthesize(offsets)
		if err != nil {
			return Result{}, services.Wrap(services.ErrValidation, "transcode", "synthesize signal", input, err)
		}
		if present {
			signal = &generated
			offsetTag = adoffsets.Format(offsets)
			logger.Info("ad offsets found",
				logging.String("tag_key", matchedKey),
				logging.String("ad_offsets", offsetTag),
				logging.Int("cues", generated.Cues),
			)
		}
	} else if matchedKey != "" {
		logging.WarnWithContext(logger, "ad offset tag malformed, ignoring", "ad_offsets_malformed",
			logging.String("tag_key", matchedKey),
			logging.String("input", input),
			logging.String(logging.FieldErrorHint, "tag value must be space-separated non-negative milliseconds"),
			logging.String(logging.FieldImpact, "job is created without ad signaling"),
		)
	}

	var template *types.JobTemplate
	err = s.retry.Do(ctx, "get job template", func(ctx context.Context) error {
		var err error
		template, err = s.jobs.Template(ctx, s.settings.JobTemplate)
		return err
	})
	if err != nil {
		return Result{}, reconcile.Surface("job_template", "get", s.settings.JobTemplate, err)
	}

	request, err := BuildJobRequest(template, input, s.settings.RoleARN, signal, offsetTag)
	if err != nil {
		return Result{}, err
	}

	var job *types.Job
	err = s.retry.Do(ctx, "create job", func(ctx context.Context) error {
		var err error
		job, err = s.jobs.Submit(ctx, request)
		return err
	})
	if err != nil {
		return Result{}, reconcile.Surface("job", "create", input, err)
	}

	result := Result{
		Status:    string(job.Status),
		ID:        aws.ToString(job.Id),
		InputFile: input,
		AdOffsets: offsetTag,
	}
	logger.Info("transcode job created",
		logging.String(logging.FieldEventType, "job_created"),
		logging.String("job_id", result.ID),
		logging.String("job_status", result.Status),
		logging.String("input", input),
	)
	return result, nil
}

func (s *Stage) objectTags(ctx context.Context, bucket, key string) (map[string]string, error) {
	var tags map[string]string
	err := s.retry.Do(ctx, "get object tags", func(ctx context.Context) error {
		var err error
		tags, err = s.tags.Get(ctx, bucket, key)
		return err
	})
	return tags, err
}
