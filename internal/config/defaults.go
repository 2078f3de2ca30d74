package config

const (
	defaultStashScheme          = "http"
	defaultStashHost            = "localhost"
	defaultStashPort            = 9999
	defaultStashTimeoutSeconds  = 60
	defaultStashCacheTTLSeconds = 300
	defaultLogDir               = "~/.local/share/scenekeeper/logs"
	defaultStateDir             = "~/.local/share/scenekeeper"
	defaultLogRetentionDays     = 30
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultRetryMaxAttempts     = 3
	defaultRetryDelaySeconds    = 4
	defaultRetryMaxDelaySeconds = 30
	defaultConcurrency          = 4
	defaultMinDurationSeconds   = 600
	defaultResolutionAxis       = "width"
	defaultDuplicatesMaxScenes  = 200
	defaultMatchingPageSize     = 200
	defaultMatchingMaxScenes    = 200
	defaultMatchingBatchSize    = 50
	defaultDoneTag              = "MATCH_DONE"
	defaultFalseTag             = "MATCH_FALSE"
	defaultUnknownTag           = "UNKNOWN"
	defaultCleanupMaxScenes     = 1000
	defaultNotifyRequestTimeout = 10
)

var defaultDistances = []string{"exact", "high", "medium", "low"}

func defaultStashBoxes() []StashBox {
	return []StashBox{
		{Name: "stashdb.org", Tag: "MATCH_STASHDB"},
		{Name: "ThePornDB", Tag: "MATCH_PORNDB"},
		{Name: "PMV Stash", Tag: "MATCH_PMV"},
		{Name: "FansDB", Tag: "MATCH_FANSDB"},
	}
}

// Default returns a Config populated with repository defaults. Destructive
// jobs default to dry-run.
func Default() Config {
	return Config{
		Stash: Stash{
			Scheme:          defaultStashScheme,
			Host:            defaultStashHost,
			Port:            defaultStashPort,
			TimeoutSeconds:  defaultStashTimeoutSeconds,
			CacheTTLSeconds: defaultStashCacheTTLSeconds,
		},
		Paths: Paths{
			LogDir:   defaultLogDir,
			StateDir: defaultStateDir,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Retry: Retry{
			MaxAttempts:     defaultRetryMaxAttempts,
			DelaySeconds:    defaultRetryDelaySeconds,
			MaxDelaySeconds: defaultRetryMaxDelaySeconds,
		},
		Workflow: Workflow{
			DryRun:      true,
			Concurrency: defaultConcurrency,
		},
		Duplicates: Duplicates{
			MinDurationSeconds: defaultMinDurationSeconds,
			ResolutionAxis:     defaultResolutionAxis,
			Distances:          append([]string(nil), defaultDistances...),
			MaxScenes:          defaultDuplicatesMaxScenes,
		},
		Matching: Matching{
			PageSize:   defaultMatchingPageSize,
			MaxScenes:  defaultMatchingMaxScenes,
			BatchSize:  defaultMatchingBatchSize,
			DoneTag:    defaultDoneTag,
			FalseTag:   defaultFalseTag,
			UnknownTag: defaultUnknownTag,
			StashBoxes: defaultStashBoxes(),
		},
		Cleanup: Cleanup{
			MaxScenes: defaultCleanupMaxScenes,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			RunSummary:     true,
			Errors:         true,
		},
	}
}
