package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Stage names accepted by RequireStage.
const (
	StageTranscode = "transcode"
	StagePackaging = "packaging"
	StageVodSource = "vodsource"
	StageNotify    = "notify"
)

// Validate ensures the configuration is internally consistent. Stage-specific
// required fields are checked by RequireStage.
func (c *Config) Validate() error {
	if err := c.validatePlayback(); err != nil {
		return err
	}
	if err := c.validateReconcile(); err != nil {
		return err
	}
	if err := c.validateScheduling(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if c.AWS.MaxAttempts <= 0 {
		return errors.New("aws.max_attempts must be positive")
	}
	if c.Paths.JournalRetentionDays < 0 {
		return errors.New("paths.journal_retention_days must not be negative")
	}
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive (seconds)")
	}
	return nil
}

// RequireStage verifies that every field the named stage depends on is set.
func (c *Config) RequireStage(stage string) error {
	var missing []string
	require := func(key, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, key)
		}
	}
	switch stage {
	case StageTranscode:
		require("transcode.role_arn (MediaConvertTranscodeRoleArn)", c.Transcode.RoleARN)
		require("transcode.job_template (MediaConvertJobTemplate)", c.Transcode.JobTemplate)
	case StagePackaging:
		require("packaging.group_id (MediaPackagePackagingGroupId)", c.Packaging.GroupID)
		require("packaging.role_arn (MediaPackageReadS3RoleArn)", c.Packaging.RoleARN)
		require("event_bus.source", c.EventBus.Source)
	case StageVodSource:
		require("scheduling.source_location (MediaTailorSourceLocation)", c.Scheduling.SourceLocation)
	case StageNotify:
		if strings.TrimSpace(c.Notifications.SNSTopicARN) == "" && strings.TrimSpace(c.Notifications.NtfyTopic) == "" {
			missing = append(missing, "notifications.sns_topic_arn (SnsTopicArn) or notifications.ntfy_topic")
		}
	default:
		return fmt.Errorf("unknown stage %q", stage)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s stage requires %s", stage, strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) validatePlayback() error {
	for key, value := range map[string]string{
		"playback.hls_rewrite_base":  c.Playback.HLSRewriteBase,
		"playback.dash_rewrite_base": c.Playback.DASHRewriteBase,
	} {
		if strings.TrimSpace(value) == "" {
			continue
		}
		parsed, err := url.Parse(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if parsed.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", key, value)
		}
	}
	return nil
}

func (c *Config) validateReconcile() error {
	r := c.Reconcile
	if r.JitterMinMillis < 0 || r.JitterMaxMillis < 0 {
		return errors.New("reconcile jitter bounds must not be negative")
	}
	if r.JitterMaxMillis < r.JitterMinMillis {
		return errors.New("reconcile.jitter_max_millis must be >= reconcile.jitter_min_millis")
	}
	if r.MaxRounds <= 0 {
		return errors.New("reconcile.max_rounds must be positive")
	}
	if r.RetryAttempts <= 0 {
		return errors.New("reconcile.retry_attempts must be positive")
	}
	if r.RetryInitialMillis < 0 || r.RetryMaxDelayMillis < r.RetryInitialMillis {
		return errors.New("reconcile retry delays must satisfy 0 <= initial <= max")
	}
	return nil
}

func (c *Config) validateScheduling() error {
	if c.Scheduling.PropagationDelaySeconds < 0 {
		return errors.New("scheduling.propagation_delay_seconds must not be negative")
	}
	if c.Scheduling.RecreateGapSeconds < 0 {
		return errors.New("scheduling.recreate_gap_seconds must not be negative")
	}
	if c.SchedulingEnabled() && c.Scheduling.SourceLocation == "" {
		return errors.New("scheduling.source_location must be set when scheduling.channel_name is set")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}
