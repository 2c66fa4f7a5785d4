package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "filedrop"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Secret       SecretConfig
	Storage      StorageConfig
	Upload       UploadConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Storage.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FILEDROP_APP_ENV" required:"true"`
	Port         string `envconfig:"FILEDROP_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FILEDROP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FILEDROP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"FILEDROP_DB_DSN" required:"true"`

	MaxOpenConns    int           `envconfig:"FILEDROP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FILEDROP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FILEDROP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FILEDROP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FILEDROP_REDIS_URL"`
	Address      string        `envconfig:"FILEDROP_REDIS_ADDR"`
	Password     string        `envconfig:"FILEDROP_REDIS_PASSWORD"`
	DB           int           `envconfig:"FILEDROP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FILEDROP_REDIS_POOL_SIZE" default:"10"`
	DialTimeout  time.Duration `envconfig:"FILEDROP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FILEDROP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FILEDROP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret string `envconfig:"FILEDROP_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"FILEDROP_JWT_ISSUER" required:"true"`
}

// SecretConfig tunes the Argon2id hashing applied to upload access secrets.
type SecretConfig struct {
	ArgonMemoryKB    int `envconfig:"FILEDROP_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"FILEDROP_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"FILEDROP_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"FILEDROP_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"FILEDROP_ARGON_KEY_LEN" default:"32"`
}

const (
	StorageKindLocal = "local"
	StorageKindS3    = "s3"
)

type StorageConfig struct {
	Kind string `envconfig:"FILEDROP_STORAGE_KIND" default:"local"`

	Local LocalStorageConfig
	S3    S3StorageConfig
}

type LocalStorageConfig struct {
	RootDir string `envconfig:"FILEDROP_STORAGE_LOCAL_ROOT"`
}

type S3StorageConfig struct {
	Endpoint  string `envconfig:"FILEDROP_S3_ENDPOINT"`
	Region    string `envconfig:"FILEDROP_S3_REGION"`
	Bucket    string `envconfig:"FILEDROP_S3_BUCKET"`
	AccessKey string `envconfig:"FILEDROP_S3_ACCESS_KEY"`
	SecretKey string `envconfig:"FILEDROP_S3_SECRET_KEY"`
	PathStyle bool   `envconfig:"FILEDROP_S3_PATH_STYLE" default:"true"`
}

// validate fails fast on missing credentials for the selected variant so a
// misconfigured backend never surfaces as per-request storage errors.
func (s StorageConfig) validate() error {
	switch strings.ToLower(s.Kind) {
	case StorageKindLocal:
		if strings.TrimSpace(s.Local.RootDir) == "" {
			return fmt.Errorf("FILEDROP_STORAGE_LOCAL_ROOT is required for local storage")
		}
	case StorageKindS3:
		missing := []string{}
		if s.S3.Region == "" {
			missing = append(missing, "FILEDROP_S3_REGION")
		}
		if s.S3.Bucket == "" {
			missing = append(missing, "FILEDROP_S3_BUCKET")
		}
		if s.S3.AccessKey == "" {
			missing = append(missing, "FILEDROP_S3_ACCESS_KEY")
		}
		if s.S3.SecretKey == "" {
			missing = append(missing, "FILEDROP_S3_SECRET_KEY")
		}
		if len(missing) > 0 {
			return fmt.Errorf("s3 storage selected but missing %s", strings.Join(missing, ", "))
		}
	default:
		return fmt.Errorf("unknown storage kind %q", s.Kind)
	}
	return nil
}

type UploadConfig struct {
	// OwnerQuotaBytes caps the total declared size per owner. Zero disables the cap.
	OwnerQuotaBytes int64         `envconfig:"FILEDROP_UPLOAD_OWNER_QUOTA_BYTES" default:"0"`
	DownloadTTL     time.Duration `envconfig:"FILEDROP_UPLOAD_DOWNLOAD_TTL" default:"5m"`
	PatchLockTTL    time.Duration `envconfig:"FILEDROP_UPLOAD_PATCH_LOCK_TTL" default:"1m"`
	MaxChunkBytes   int64         `envconfig:"FILEDROP_UPLOAD_MAX_CHUNK_BYTES" default:"67108864"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"FILEDROP_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	DeletionTopic        string `envconfig:"FILEDROP_PUBSUB_DELETION_TOPIC" default:"filedrop-deletions"`
	DeletionSubscription string `envconfig:"FILEDROP_PUBSUB_DELETION_SUBSCRIPTION" default:"filedrop-deletions-worker"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"FILEDROP_OUTBOX_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"FILEDROP_OUTBOX_POLL_INTERVAL_MS" default:"500"`
	MaxAttempts    int `envconfig:"FILEDROP_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"FILEDROP_AUTO_MIGRATE" default:"false"`
}
