package config

const (
	defaultConfigPath          = "~/.config/tuner/config.toml"
	defaultServiceURL          = "http://127.0.0.1:8080"
	defaultRequestTimeout      = 30
	defaultBucketURL           = "~/.local/share/tuner/bucket"
	defaultRecordsTable        = "finetuningruns"
	defaultPollIntervalSeconds = 10
	defaultStateDir            = "~/.local/share/tuner"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Service: Service{
			URL:            defaultServiceURL,
			RequestTimeout: defaultRequestTimeout,
		},
		Storage: Storage{
			BucketURL: defaultBucketURL,
		},
		Records: Records{
			Table: defaultRecordsTable,
		},
		Polling: Polling{
			JobInterval:   defaultPollIntervalSeconds,
			ModelInterval: defaultPollIntervalSeconds,
		},
		Paths: Paths{
			StateDir: defaultStateDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
