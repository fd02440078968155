package config

const EnvPrefix = "WEDSHARE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	EnvAppEnv  = "WEDSHARE_APP_ENV"
	EnvPort    = "WEDSHARE_APP_PORT"
	EnvLogLvl  = "WEDSHARE_LOG_LEVEL"
	EnvFolder  = "WEDSHARE_DRIVE_FOLDER_ID"
	EnvStaging = "WEDSHARE_UPLOAD_STAGING_DIR"

	EnvGoogleClientID        = "WEDSHARE_GOOGLE_CLIENT_ID"
	EnvGoogleClientSecret    = "WEDSHARE_GOOGLE_CLIENT_SECRET"
	EnvGoogleRefreshToken    = "WEDSHARE_GOOGLE_REFRESH_TOKEN"
	EnvGoogleCredentialsJSON = "WEDSHARE_GOOGLE_CREDENTIALS_JSON"
)
