package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/mediaconvert"
	"github.com/aws/aws-sdk-go-v2/service/mediapackagevod"
	"github.com/aws/aws-sdk-go-v2/service/mediatailor"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"fastchannels/internal/awsclient"
	"fastchannels/internal/config"
	"fastchannels/internal/eventbus"
	"fastchannels/internal/journal"
	"fastchannels/internal/packaging"
	"fastchannels/internal/playback"
	"fastchannels/internal/services"
	"fastchannels/internal/testsupport"
	"fastchannels/internal/transcode"
	"fastchannels/internal/vodsource"
)

type fakeTranscode struct {
	got eventbus.UploadDetail
	res transcode.Result
	err error
}

func (f *fakeTranscode) Handle(_ context.Context, d eventbus.UploadDetail) (transcode.Result, error) {
	f.got = d
	return f.res, f.err
}

type fakePackaging struct {
	calls int
	res   packaging.Result
	err   error
}

func (f *fakePackaging) Handle(context.Context, eventbus.TranscodeCompleteDetail) (packaging.Result, error) {
	f.calls++
	return f.res, f.err
}

type fakeVodSource struct {
	arn string
	res vodsource.Result
	err error
}

func (f *fakeVodSource) Handle(_ context.Context, arn string, _ eventbus.AssetPlayableDetail) (vodsource.Result, error) {
	f.arn = arn
	return f.res, f.err
}

type fakeNotifier struct {
	mu     sync.Mutex
	urls   []playback.URL
	errors []string
	err    error
}

func (f *fakeNotifier) NotifyPlaybackURLs(_ context.Context, urls []playback.URL) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, urls...)
	return f.err
}

func (f *fakeNotifier) NotifyError(_ context.Context, _ error, label string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, label)
	return nil
}

func (f *fakeNotifier) TestNotification(context.Context) error { return nil }

type fakeJournal struct {
	deliveries []journal.Delivery
}

func (f *fakeJournal) Record(_ context.Context, d journal.Delivery) (journal.Delivery, error) {
	f.deliveries = append(f.deliveries, d)
	return d, nil
}

type fakeMetrics struct {
	samples []string
}

func (f *fakeMetrics) Begin(stage string) func(status, class string) {
	return func(status, class string) {
		f.samples = append(f.samples, stage+"/"+status+"/"+class)
	}
}

func envelope(t *testing.T, source, detailType string, resources []string, detail any) []byte {
	t.Helper()
	body, err := json.Marshal(detail)
	if err != nil {
		t.Fatalf("marshal detail: %v", err)
	}
	raw, err := json.Marshal(eventbus.Envelope{
		ID:         "evt-1",
		DetailType: detailType,
		Source:     source,
		Resources:  resources,
		Detail:     body,
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return raw
}

func upload(t *testing.T, key string) []byte {
	var detail eventbus.UploadDetail
	detail.Bucket.Name = "in"
	detail.Object.Key = key
	return envelope(t, eventbus.SourceS3, "Object Created", nil, detail)
}

func TestRoute(t *testing.T) {
	tests := []struct {
		source     string
		detailType string
		want       string
		ok         bool
	}{
		{source: "aws.s3", want: config.StageTranscode, ok: true},
		{source: "aws.mediaconvert", want: config.StagePackaging, ok: true},
		{source: "aws.mediapackage", want: config.StageVodSource, ok: true},
		{source: "fast", detailType: "Playback URLs", want: config.StageNotify, ok: true},
		{source: "fast", detailType: "Other", want: StageUnrouted},
		{source: "aws.ec2", want: StageUnrouted},
	}
	for _, tt := range tests {
		got, ok := Route(eventbus.Envelope{Source: tt.source, DetailType: tt.detailType}, "fast", "Playback URLs")
		if got != tt.want || ok != tt.ok {
			t.Fatalf("Route(%s, %s) = %s, %v; want %s, %v", tt.source, tt.detailType, got, ok, tt.want, tt.ok)
		}
	}
}

func TestDispatchUpload(t *testing.T) {
	stage := &fakeTranscode{res: transcode.Result{Status: "SUBMITTED", ID: "job-1"}}
	j := &fakeJournal{}
	m := &fakeMetrics{}
	d := NewDispatcher(Options{Stages: Stages{Transcode: stage}, Journal: j, Metrics: m})

	result, err := d.Dispatch(context.Background(), upload(t, "movie.mp4"))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if stage.got.Object.Key != "movie.mp4" {
		t.Fatalf("unexpected detail %+v", stage.got)
	}
	if result.Stage != config.StageTranscode || result.Status != journal.StatusOK || result.Outcome != "SUBMITTED" {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.RequestID == "" || result.EventID != "evt-1" {
		t.Fatalf("missing identifiers %+v", result)
	}
	if len(j.deliveries) != 1 || j.deliveries[0].RequestID != result.RequestID || j.deliveries[0].ResourceKey != "movie.mp4" {
		t.Fatalf("unexpected journal %+v", j.deliveries)
	}
	if len(m.samples) != 1 || m.samples[0] != "transcode/ok/" {
		t.Fatalf("unexpected samples %v", m.samples)
	}
}

func TestDispatchSkips(t *testing.T) {
	pkg := &fakePackaging{}
	d := NewDispatcher(Options{Stages: Stages{
		Transcode: &fakeTranscode{res: transcode.Result{Status: transcode.StatusSkipped}},
		Packaging: pkg,
	}})

	result, err := d.Dispatch(context.Background(), upload(t, "image.png"))
	if err != nil || result.Status != journal.StatusSkipped {
		t.Fatalf("upload skip = %+v, %v", result, err)
	}

	errored := envelope(t, eventbus.SourceMediaConvert, "MediaConvert Job State Change", nil,
		eventbus.TranscodeCompleteDetail{Status: "ERROR", JobID: "job-1"})
	result, err = d.Dispatch(context.Background(), errored)
	if err != nil || result.Status != journal.StatusSkipped || pkg.calls != 0 {
		t.Fatalf("errored job = %+v, %v, calls %d", result, err, pkg.calls)
	}

	pkg.res = packaging.Result{Status: packaging.StatusNoOutput}
	complete := envelope(t, eventbus.SourceMediaConvert, "MediaConvert Job State Change", nil,
		eventbus.TranscodeCompleteDetail{Status: "COMPLETE", JobID: "job-2"})
	result, err = d.Dispatch(context.Background(), complete)
	if err != nil || result.Status != journal.StatusSkipped || pkg.calls != 1 {
		t.Fatalf("no output = %+v, %v", result, err)
	}
}

func TestDispatchFailuresNotifyOnlyWhenPermanent(t *testing.T) {
	notifier := &fakeNotifier{}
	stage := &fakeTranscode{}
	j := &fakeJournal{}
	d := NewDispatcher(Options{Stages: Stages{Transcode: stage}, Notifier: notifier, Journal: j})

	stage.err = services.Wrap(services.ErrTransient, "transcode", "submit", "throttled", nil)
	result, err := d.Dispatch(context.Background(), upload(t, "movie.mp4"))
	if !services.Retryable(err) || result.Class != services.ClassTransient || result.Status != journal.StatusFailed {
		t.Fatalf("transient = %+v, %v", result, err)
	}
	if len(notifier.errors) != 0 {
		t.Fatal("transient failures must not notify")
	}

	stage.err = services.Wrap(services.ErrConfiguration, "transcode", "template", "missing", nil)
	result, err = d.Dispatch(context.Background(), upload(t, "movie.mp4"))
	if !errors.Is(err, services.ErrConfiguration) || result.Class != services.ClassConfiguration {
		t.Fatalf("configuration = %+v, %v", result, err)
	}
	if len(notifier.errors) != 1 || notifier.errors[0] != config.StageTranscode {
		t.Fatalf("unexpected notifications %v", notifier.errors)
	}
	if last := j.deliveries[len(j.deliveries)-1]; last.FailureClass != services.ClassConfiguration || last.Message == "" {
		t.Fatalf("unexpected journal entry %+v", last)
	}
}

func TestDispatchRejectsBadInput(t *testing.T) {
	j := &fakeJournal{}
	m := &fakeMetrics{}
	d := NewDispatcher(Options{Journal: j, Metrics: m})

	if _, err := d.Dispatch(context.Background(), []byte("{")); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	raw := envelope(t, "aws.ec2", "EC2 Instance State-change Notification", nil, map[string]string{"state": "running"})
	result, err := d.Dispatch(context.Background(), raw)
	if !errors.Is(err, services.ErrValidation) || result.Stage != StageUnrouted {
		t.Fatalf("unrouted = %+v, %v", result, err)
	}
	if len(j.deliveries) != 2 || len(m.samples) != 2 {
		t.Fatalf("expected both failures journaled and sampled, got %d/%d", len(j.deliveries), len(m.samples))
	}
}

func TestDispatchDisabledStage(t *testing.T) {
	d := NewDispatcher(Options{Stages: Stages{Disabled: map[string]string{
		config.StageTranscode: "transcode stage requires transcode.role_arn",
	}}})
	_, err := d.Dispatch(context.Background(), upload(t, "movie.mp4"))
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}

	d = NewDispatcher(Options{})
	_, err = d.Dispatch(context.Background(), upload(t, "movie.mp4"))
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for nil stage, got %v", err)
	}
}

func TestDispatchVodSourceAndNotify(t *testing.T) {
	vod := &fakeVodSource{res: vodsource.Result{Status: "OK", VodSource: "moviemovie", Outcome: "created", ProgramOutcome: "recreated"}}
	notifier := &fakeNotifier{}
	d := NewDispatcher(Options{
		Stages:      Stages{VodSource: vod, Notify: notifier},
		StackSource: "fast",
	})

	arn := "arn:aws:mediapackage-vod:us-east-1:123456789012:assets/moviemovie"
	raw := envelope(t, eventbus.SourceMediaPackage, "MediaPackage HarvestJob Notification", []string{arn},
		eventbus.AssetPlayableDetail{Event: "VodAssetPlayable", ManifestURLs: []string{"https://e/a.m3u8"}, PackagingConfigurationID: "hls"})
	result, err := d.Dispatch(context.Background(), raw)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if vod.arn != arn || result.Outcome != "created+program:recreated" {
		t.Fatalf("unexpected vod result %+v", result)
	}

	noARN := envelope(t, eventbus.SourceMediaPackage, "x", nil, eventbus.AssetPlayableDetail{Event: "VodAssetPlayable"})
	if _, err := d.Dispatch(context.Background(), noARN); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error without resources, got %v", err)
	}

	urls := eventbus.PlaybackURLsDetail{PlaybackURLs: []playback.URL{{AssetID: "moviemovie", VodPlaybackURL: "https://stitch/a.m3u8"}}}
	result, err = d.Dispatch(context.Background(), envelope(t, "fast", eventbus.DetailTypePlaybackURLs, nil, urls))
	if err != nil || result.Stage != config.StageNotify {
		t.Fatalf("notify = %+v, %v", result, err)
	}
	if len(notifier.urls) != 1 || notifier.urls[0].AssetID != "moviemovie" {
		t.Fatalf("unexpected notified urls %+v", notifier.urls)
	}

	notifier.err = errors.New("sns down")
	_, err = d.Dispatch(context.Background(), envelope(t, "fast", eventbus.DetailTypePlaybackURLs, nil, urls))
	if !services.Retryable(err) {
		t.Fatalf("expected transient notify failure, got %v", err)
	}
}

func offlineClients() *awsclient.Clients {
	cfg := aws.Config{Region: "us-east-1"}
	return &awsclient.Clients{
		Config:       cfg,
		S3:           s3.NewFromConfig(cfg),
		MediaConvert: mediaconvert.NewFromConfig(cfg),
		MediaPackage: mediapackagevod.NewFromConfig(cfg),
		MediaTailor:  mediatailor.NewFromConfig(cfg),
		EventBridge:  eventbridge.NewFromConfig(cfg),
		SNS:          sns.NewFromConfig(cfg),
	}
}

func TestNewStages(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithChannel("fast-channel"))
	stages, err := NewStages(cfg, offlineClients(), nil, &fakeNotifier{}, nil)
	if err != nil {
		t.Fatalf("NewStages: %v", err)
	}
	if stages.Transcode == nil || stages.Packaging == nil || stages.VodSource == nil {
		t.Fatalf("expected every AWS stage built, disabled: %v", stages.Disabled)
	}
	if stages.Notify != nil {
		t.Fatal("notify stage needs a destination")
	}
	if _, ok := stages.Disabled[config.StageNotify]; !ok {
		t.Fatalf("expected notify disabled, got %v", stages.Disabled)
	}
	vs, ok := stages.VodSource.(*vodsource.Stage)
	if !ok || !vs.Scheduling() {
		t.Fatal("expected scheduling enabled with a channel")
	}

	cfg.Transcode.RoleARN = ""
	stages, err = NewStages(cfg, offlineClients(), nil, nil, nil)
	if err != nil {
		t.Fatalf("NewStages: %v", err)
	}
	if stages.Transcode != nil || stages.Disabled[config.StageTranscode] == "" {
		t.Fatal("expected transcode disabled without a role")
	}
}

func TestStackTags(t *testing.T) {
	cfg := config.Default()
	cfg.Stack.ID = "id-1"
	tags := StackTags(&cfg)
	if tags["stack-name"] != cfg.Stack.Name || tags["stack-id"] != "id-1" {
		t.Fatalf("unexpected tags %v", tags)
	}
}
