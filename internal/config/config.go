package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// AWS contains client construction settings shared by every remote service.
type AWS struct {
	Region              string `toml:"region"`
	MaxAttempts         int    `toml:"max_attempts"`
	MediaConvertBaseURL string `toml:"mediaconvert_endpoint"`
}

// Transcode contains settings for the upload stage.
type Transcode struct {
	RoleARN         string   `toml:"role_arn"`
	JobTemplate     string   `toml:"job_template"`
	AdOffsetTagKey  string   `toml:"ad_offset_tag_key"`
	VideoExtensions []string `toml:"video_extensions"`
}

// Packaging contains settings for the packager stage.
type Packaging struct {
	GroupID string `toml:"group_id"`
	RoleARN string `toml:"role_arn"`
}

// Playback contains the optional ad-stitcher playback rewrite targets.
type Playback struct {
	HLSRewriteBase  string `toml:"hls_rewrite_base"`
	DASHRewriteBase string `toml:"dash_rewrite_base"`
}

// Scheduling contains settings for VOD source creation and channel programs.
type Scheduling struct {
	SourceLocation          string `toml:"source_location"`
	ChannelName             string `toml:"channel_name"`
	SlateDurationMillis     int64  `toml:"slate_duration_millis"`
	SlateVodSource          string `toml:"slate_vod_source"`
	PropagationDelaySeconds int    `toml:"propagation_delay_seconds"`
	RecreateGapSeconds      int    `toml:"recreate_gap_seconds"`
}

// Reconcile contains the collision-avoidance and transient retry policy.
type Reconcile struct {
	JitterMinMillis     int `toml:"jitter_min_millis"`
	JitterMaxMillis     int `toml:"jitter_max_millis"`
	MaxRounds           int `toml:"max_rounds"`
	RetryAttempts       int `toml:"retry_attempts"`
	RetryInitialMillis  int `toml:"retry_initial_millis"`
	RetryMaxDelayMillis int `toml:"retry_max_delay_millis"`
}

// EventBus contains settings for publishing downstream events.
type EventBus struct {
	BusName    string `toml:"bus_name"`
	Source     string `toml:"source"`
	DetailType string `toml:"detail_type"`
}

// Notifications contains settings for playback URL and error notifications.
type Notifications struct {
	SNSTopicARN    string `toml:"sns_topic_arn"`
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Errors         bool   `toml:"errors"`
}

// Stack identifies the deployment that owns the created resources.
type Stack struct {
	Name string `toml:"name"`
	ID   string `toml:"id"`
}

// Paths contains local state locations and the daemon bind address.
type Paths struct {
	StateDir             string `toml:"state_dir"`
	APIBind              string `toml:"api_bind"`
	APIToken             string `toml:"api_token"`
	JournalRetentionDays int    `toml:"journal_retention_days"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format         string            `toml:"format"`
	Level          string            `toml:"level"`
	File           string            `toml:"file"`
	StageOverrides map[string]string `toml:"stage_overrides"`
}

// Config encapsulates all configuration values for the pipeline.
//
// Configuration sections by subsystem:
//   - AWS: region and SDK retry settings
//   - Transcode: job role, template, and ad offset tag key
//   - Packaging: packaging group and source read role
//   - Playback: ad-stitcher rewrite targets for HLS and DASH
//   - Scheduling: source location, optional channel, slate, and timing gaps
//   - Reconcile: jitter window and transient retry policy
//   - EventBus: destination for playback URL events
//   - Notifications: SNS and ntfy delivery
//   - Stack: tags stamped on created resources
//   - Paths: journal directory and daemon bind address
//   - Logging: log format, level, and per-stage overrides
type Config struct {
	AWS           AWS           `toml:"aws"`
	Transcode     Transcode     `toml:"transcode"`
	Packaging     Packaging     `toml:"packaging"`
	Playback      Playback      `toml:"playback"`
	Scheduling    Scheduling    `toml:"scheduling"`
	Reconcile     Reconcile     `toml:"reconcile"`
	EventBus      EventBus      `toml:"event_bus"`
	Notifications Notifications `toml:"notifications"`
	Stack         Stack         `toml:"stack"`
	Paths         Paths         `toml:"paths"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/fastchannels/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and environment fallbacks applied.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("fastchannels.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the local state directory used by the journal and daemon lock.
func (c *Config) EnsureDirectories() error {
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return nil
	}
	if err := os.MkdirAll(c.Paths.StateDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.StateDir, err)
	}
	return nil
}

// SchedulingEnabled reports whether channel program scheduling runs after VOD source creation.
func (c *Config) SchedulingEnabled() bool {
	return strings.TrimSpace(c.Scheduling.ChannelName) != ""
}

// JitterWindow returns the randomized delay bounds used before read-merge-write cycles.
func (c *Config) JitterWindow() (time.Duration, time.Duration) {
	return time.Duration(c.Reconcile.JitterMinMillis) * time.Millisecond,
		time.Duration(c.Reconcile.JitterMaxMillis) * time.Millisecond
}

// RecreateGap returns the pause between deleting and recreating a channel program.
func (c *Config) RecreateGap() time.Duration {
	return time.Duration(c.Scheduling.RecreateGapSeconds) * time.Second
}

// PropagationDelay returns the pause between VOD source creation and program scheduling.
func (c *Config) PropagationDelay() time.Duration {
	return time.Duration(c.Scheduling.PropagationDelaySeconds) * time.Second
}

// JournalRetention returns how long journal rows are kept. Zero disables pruning.
func (c *Config) JournalRetention() time.Duration {
	return time.Duration(c.Paths.JournalRetentionDays) * 24 * time.Hour
}

// StackTags returns the constant tags stamped on every created resource.
func (c *Config) StackTags() map[string]string {
	return map[string]string{
		"stack-id":   c.Stack.ID,
		"stack-name": c.Stack.Name,
	}
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
