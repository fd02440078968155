package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App    AppConfig
	Google GoogleConfig
	Drive  DriveConfig
	Upload UploadConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Google.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"WEDSHARE_APP_ENV" required:"true"`
	Port         string `envconfig:"WEDSHARE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"WEDSHARE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"WEDSHARE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// GoogleConfig carries the credential material for acting as the owner of the
// destination folder. Either the OAuth triple or a service account key must be
// present; both resolve to the same Drive capability.
type GoogleConfig struct {
	ClientID     string `envconfig:"WEDSHARE_GOOGLE_CLIENT_ID"`
	ClientSecret string `envconfig:"WEDSHARE_GOOGLE_CLIENT_SECRET"`
	RefreshToken string `envconfig:"WEDSHARE_GOOGLE_REFRESH_TOKEN"`

	CredentialsJSON        string `envconfig:"WEDSHARE_GOOGLE_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"WEDSHARE_GOOGLE_APPLICATION_CREDENTIALS"`
}

func (g GoogleConfig) HasOAuth() bool {
	return g.ClientID != "" && g.ClientSecret != "" && g.RefreshToken != ""
}

func (g GoogleConfig) HasServiceAccount() bool {
	return g.CredentialsJSON != "" || g.ApplicationCredentials != ""
}

func (g GoogleConfig) validate() error {
	if g.HasOAuth() || g.HasServiceAccount() {
		return nil
	}
	return fmt.Errorf(
		"either %s/%s/%s or %s are required",
		EnvGoogleClientID, EnvGoogleClientSecret, EnvGoogleRefreshToken, EnvGoogleCredentialsJSON,
	)
}

type DriveConfig struct {
	FolderID string `envconfig:"WEDSHARE_DRIVE_FOLDER_ID" required:"true"`
}

type UploadConfig struct {
	StagingDir        string `envconfig:"WEDSHARE_UPLOAD_STAGING_DIR"`
	RelayChunkBytes   int64  `envconfig:"WEDSHARE_UPLOAD_RELAY_CHUNK_BYTES" default:"4194304"`
	DirectChunkBytes  int64  `envconfig:"WEDSHARE_UPLOAD_DIRECT_CHUNK_BYTES" default:"262144"`
	MaxVideoMB        int64  `envconfig:"WEDSHARE_UPLOAD_MAX_VIDEO_MB" default:"250"`
	ListPageSize      int64  `envconfig:"WEDSHARE_LIST_PAGE_SIZE" default:"15"`
	RelayEndpoint     string `envconfig:"WEDSHARE_RELAY_ENDPOINT" default:"http://localhost:8080"`
	ResumableEndpoint string `envconfig:"WEDSHARE_RESUMABLE_ENDPOINT" default:"https://www.googleapis.com/upload/drive/v3/files?uploadType=resumable"`
}

// MaxVideoBytes converts the configured megabyte ceiling into bytes.
func (u UploadConfig) MaxVideoBytes() int64 {
	return u.MaxVideoMB * 1024 * 1024
}
