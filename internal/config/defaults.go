package config

const (
	defaultEngineBaseURL         = "http://127.0.0.1:8188"
	defaultEngineTimeoutSeconds  = 30
	defaultTransportAttempts     = 3
	defaultTransportDelayMillis  = 1000
	defaultPollAttempts          = 5
	defaultPollDelayMillis       = 1000
	defaultInitialWaitMillis     = 1000
	defaultTemplateDir           = "workflows"
	defaultTemplateName          = "2-Text Analysis"
	defaultInputNode             = "1"
	defaultInputKey              = "String"
	defaultOutputNode            = "4"
	defaultOutputKey             = "STRING"
	defaultServerBind            = "127.0.0.1:7600"
	defaultRequestTimeoutSeconds = 120
	defaultLockPath              = "~/.local/share/carousel/carousel.lock"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults. Engine URL and
// template directory are left empty so normalize can apply environment
// fallbacks before the built-in defaults.
func Default() Config {
	return Config{
		Engine: Engine{
			TimeoutSeconds: defaultEngineTimeoutSeconds,
		},
		Retry: Retry{
			TransportAttempts:    defaultTransportAttempts,
			TransportDelayMillis: defaultTransportDelayMillis,
			PollAttempts:         defaultPollAttempts,
			PollDelayMillis:      defaultPollDelayMillis,
			InitialWaitMillis:    defaultInitialWaitMillis,
		},
		Templates: Templates{
			Default: defaultTemplateName,
		},
		Server: Server{
			Bind:                  defaultServerBind,
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
			LockPath:              defaultLockPath,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
