package testsupport

import (
	"path/filepath"
	"testing"

	"fastchannels/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with a unique state directory per test
// and every stage's required fields filled with placeholder identifiers.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Transcode.RoleARN = "arn:aws:iam::123456789012:role/transcode"
	cfgVal.Transcode.JobTemplate = "fast-template"
	cfgVal.Packaging.GroupID = "fast-group"
	cfgVal.Packaging.RoleARN = "arn:aws:iam::123456789012:role/packager-read"
	cfgVal.Scheduling.SourceLocation = "fast-location"
	cfgVal.Scheduling.SlateVodSource = config.SlateName(cfgVal.Scheduling.SlateDurationMillis)
	cfgVal.EventBus.Source = cfgVal.Stack.Name
	cfgVal.Reconcile.JitterMinMillis = 0
	cfgVal.Reconcile.JitterMaxMillis = 0
	cfgVal.Reconcile.RetryInitialMillis = 1
	cfgVal.Reconcile.RetryMaxDelayMillis = 1
	cfgVal.Scheduling.PropagationDelaySeconds = 0
	cfgVal.Scheduling.RecreateGapSeconds = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithChannel enables program scheduling on the named channel.
func WithChannel(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Scheduling.ChannelName = name
	}
}

// WithNtfyTopic points notifications at an ntfy endpoint.
func WithNtfyTopic(endpoint string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = endpoint
	}
}

// WithRewriteBases sets the playback rewrite targets.
func WithRewriteBases(hls, dash string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Playback.HLSRewriteBase = hls
		b.cfg.Playback.DASHRewriteBase = dash
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
