package config

const (
	defaultRegion                  = "us-east-1"
	defaultAWSMaxAttempts          = 3
	defaultAdOffsetTagKey          = "AdOffsets"
	defaultSlateDurationMillis     = 30000
	defaultPropagationDelaySeconds = 5
	defaultRecreateGapSeconds      = 5
	defaultJitterMinMillis         = 1000
	defaultJitterMaxMillis         = 10000
	defaultMaxRounds               = 3
	defaultRetryAttempts           = 4
	defaultRetryInitialMillis      = 200
	defaultRetryMaxDelayMillis     = 5000
	defaultEventDetailType         = "Playback URLs"
	defaultEventBusName            = "default"
	defaultStackName               = "fast-channels"
	defaultStateDir                = "~/.local/share/fastchannels"
	defaultAPIBind                 = "127.0.0.1:7490"
	defaultJournalRetentionDays    = 30
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
	defaultNotifyRequestTimeout    = 10
)

var defaultVideoExtensions = []string{".mp4", ".mov", ".mxf", ".mkv", ".avi", ".ts", ".m2ts"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		AWS: AWS{
			Region:      defaultRegion,
			MaxAttempts: defaultAWSMaxAttempts,
		},
		Transcode: Transcode{
			AdOffsetTagKey:  defaultAdOffsetTagKey,
			VideoExtensions: append([]string(nil), defaultVideoExtensions...),
		},
		Scheduling: Scheduling{
			SlateDurationMillis:     defaultSlateDurationMillis,
			PropagationDelaySeconds: defaultPropagationDelaySeconds,
			RecreateGapSeconds:      defaultRecreateGapSeconds,
		},
		Reconcile: Reconcile{
			JitterMinMillis:     defaultJitterMinMillis,
			JitterMaxMillis:     defaultJitterMaxMillis,
			MaxRounds:           defaultMaxRounds,
			RetryAttempts:       defaultRetryAttempts,
			RetryInitialMillis:  defaultRetryInitialMillis,
			RetryMaxDelayMillis: defaultRetryMaxDelayMillis,
		},
		EventBus: EventBus{
			BusName:    defaultEventBusName,
			DetailType: defaultEventDetailType,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Errors:         true,
		},
		Stack: Stack{
			Name: defaultStackName,
		},
		Paths: Paths{
			StateDir:             defaultStateDir,
			APIBind:              defaultAPIBind,
			JournalRetentionDays: defaultJournalRetentionDays,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
