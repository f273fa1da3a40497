package config

import (
	"fmt"
	"os"
	"strings"
)

// envOverrides maps the deployment environment variables onto config fields.
func (c *Config) envOverrides() map[string]*string {
	return map[string]*string{
		"AWS_REGION":                              &c.AWS.Region,
		"MediaConvertTranscodeRoleArn":            &c.Transcode.RoleARN,
		"MediaConvertJobTemplate":                 &c.Transcode.JobTemplate,
		"AdOffsetS3TagKeyName":                    &c.Transcode.AdOffsetTagKey,
		"MediaPackagePackagingGroupId":            &c.Packaging.GroupID,
		"MediaPackageReadS3RoleArn":               &c.Packaging.RoleARN,
		"MediaTailorPlaybackConfigurationVodHls":  &c.Playback.HLSRewriteBase,
		"MediaTailorPlaybackConfigurationVodDash": &c.Playback.DASHRewriteBase,
		"MediaTailorSourceLocation":               &c.Scheduling.SourceLocation,
		"MediaTailorChannelName":                  &c.Scheduling.ChannelName,
		"EventBusName":                            &c.EventBus.BusName,
		"SnsTopicArn":                             &c.Notifications.SNSTopicARN,
		"StackName":                               &c.Stack.Name,
		"StackId":                                 &c.Stack.ID,
		"LOG_LEVEL":                               &c.Logging.Level,
		"FASTCHANNELS_API_TOKEN":                  &c.Paths.APIToken,
	}
}

func (c *Config) normalize() error {
	c.applyEnvironment()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTranscode()
	c.normalizeScheduling()
	c.normalizeEventBus()
	c.normalizeLogging()
	return nil
}

func (c *Config) applyEnvironment() {
	for name, field := range c.envOverrides() {
		if value, ok := os.LookupEnv(name); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				*field = trimmed
			}
		}
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if strings.TrimSpace(c.Logging.File) != "" {
		if c.Logging.File, err = expandPath(c.Logging.File); err != nil {
			return fmt.Errorf("logging.file: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeTranscode() {
	c.Transcode.RoleARN = strings.TrimSpace(c.Transcode.RoleARN)
	c.Transcode.JobTemplate = strings.TrimSpace(c.Transcode.JobTemplate)
	c.Transcode.AdOffsetTagKey = strings.TrimSpace(c.Transcode.AdOffsetTagKey)
	if c.Transcode.AdOffsetTagKey == "" {
		c.Transcode.AdOffsetTagKey = defaultAdOffsetTagKey
	}
	extensions := make([]string, 0, len(c.Transcode.VideoExtensions))
	for _, ext := range c.Transcode.VideoExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extensions = append(extensions, ext)
	}
	if len(extensions) == 0 {
		extensions = append(extensions, defaultVideoExtensions...)
	}
	c.Transcode.VideoExtensions = extensions
}

func (c *Config) normalizeScheduling() {
	c.Scheduling.SourceLocation = strings.TrimSpace(c.Scheduling.SourceLocation)
	c.Scheduling.ChannelName = strings.TrimSpace(c.Scheduling.ChannelName)
	if c.Scheduling.SlateDurationMillis <= 0 {
		c.Scheduling.SlateDurationMillis = defaultSlateDurationMillis
	}
	c.Scheduling.SlateVodSource = strings.TrimSpace(c.Scheduling.SlateVodSource)
	if c.Scheduling.SlateVodSource == "" {
		c.Scheduling.SlateVodSource = SlateName(c.Scheduling.SlateDurationMillis)
	}
}

func (c *Config) normalizeEventBus() {
	c.EventBus.BusName = strings.TrimSpace(c.EventBus.BusName)
	if c.EventBus.BusName == "" {
		c.EventBus.BusName = defaultEventBusName
	}
	c.EventBus.Source = strings.TrimSpace(c.EventBus.Source)
	if c.EventBus.Source == "" {
		c.EventBus.Source = c.Stack.Name
	}
	if strings.TrimSpace(c.EventBus.DetailType) == "" {
		c.EventBus.DetailType = defaultEventDetailType
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if len(c.Logging.StageOverrides) > 0 {
		normalized := make(map[string]string, len(c.Logging.StageOverrides))
		for stage, level := range c.Logging.StageOverrides {
			stage = strings.ToLower(strings.TrimSpace(stage))
			level = strings.ToLower(strings.TrimSpace(level))
			if stage == "" || level == "" {
				continue
			}
			normalized[stage] = level
		}
		c.Logging.StageOverrides = normalized
	}
}

// SlateName returns the VOD source name of the pre-provisioned slate with the given duration.
func SlateName(durationMillis int64) string {
	return fmt.Sprintf("AdBreakSlate_%d", durationMillis)
}
