package config

// DefaultFeedSource is the public activity feed the service was built for.
const DefaultFeedSource = "https://cdn.prod.website-files.com/634d5c356b8adeff5a7c6393/6884a1f50007bdc0d663422c_activities.csv"

// Feed compression modes.
const (
	CompressionAuto   = "auto"
	CompressionNone   = "none"
	CompressionSnappy = "snappy"
)

// ServiceConfig is the top-level YAML structure.
type ServiceConfig struct {
	Version string     `yaml:"version"`
	HTTP    HTTPConf   `yaml:"http"`
	Feed    FeedConf   `yaml:"feed"`
	Ingest  IngestConf `yaml:"ingest"`
	Log     LogConf    `yaml:"log"`
}

// HTTPConf configures the query API listener.
type HTTPConf struct {
	Addr           string   `yaml:"addr"`
	ReadTimeoutMs  int      `yaml:"read_timeout_ms"`
	WriteTimeoutMs int      `yaml:"write_timeout_ms"`
	IdleTimeoutMs  int      `yaml:"idle_timeout_ms"`
	CORSOrigins    []string `yaml:"cors_origins"` // empty = allow all
}

// FeedConf describes where the activity feed lives and how to fetch it.
type FeedConf struct {
	Source             string `yaml:"source"`      // http(s)://, s3://bucket/key, file:// or path
	Compression        string `yaml:"compression"` // auto | none | snappy
	HeaderTimeoutMs    int    `yaml:"header_timeout_ms"`
	RefreshIntervalSec int    `yaml:"refresh_interval_sec"` // 0 = load only at startup / on demand
	S3                 S3Conf `yaml:"s3"`
}

// S3Conf holds settings for s3:// sources.
type S3Conf struct {
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`       // MinIO, LocalStack, ...
	UsePathStyle bool   `yaml:"use_path_style"` // required for MinIO
}

// IngestConf tunes the load scheduler.
type IngestConf struct {
	QueueDepth int `yaml:"queue_depth"` // pending loads allowed behind the running one
}

// LogConf sets the slog level: debug, info, warn or error.
type LogConf struct {
	Level string `yaml:"level"`
}
