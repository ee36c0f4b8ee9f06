package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// envPrefix is prepended to every variable read by parseEnv.
const envPrefix = "DEVICEGATE_"

// parseEnv overrides config with DEVICEGATE_* environment variables that
// are set and non-empty. A value that does not parse panics, matching the
// JSON and flag loaders.
func parseEnv(config *Config) {
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(envPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v, ok := os.LookupEnv(envPrefix + name); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				panic(fmt.Errorf("%s%s: %w", envPrefix, name, err))
			}
			*dst = d
		}
	}
	integer := func(name string, dst *int64) {
		if v, ok := os.LookupEnv(envPrefix + name); ok && v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				panic(fmt.Errorf("%s%s: %w", envPrefix, name, err))
			}
			*dst = n
		}
	}

	str("HTTP_ADDR", &config.EndpointAddrHTTP)
	str("GRPC_ADDR", &config.EndpointAddrGRPC)
	str("DATABASE_DSN", &config.DatabaseDSN)
	str("SECRET_KEY", &config.SecretKey)
	dur("CODE_TTL", &config.CodeTTL)
	dur("CODE_RESEND_INTERVAL", &config.CodeResendInterval)
	dur("SESSION_TTL", &config.SessionTTL)
	dur("SWEEP_INTERVAL", &config.SweepInterval)
	str("STORAGE_BACKEND", &config.StorageBackend)
	str("STORAGE_ROOT", &config.StorageRoot)
	integer("MAX_UPLOAD_BYTES", &config.MaxUploadBytes)
	str("S3_ROOT_USER", &config.S3RootUser)
	str("S3_ROOT_PASSWORD", &config.S3RootPassword)
	str("S3_BUCKET", &config.S3Bucket)
	str("S3_REGION", &config.S3Region)
	str("S3_BASE_ENDPOINT", &config.S3BaseEndpoint)
	str("SMTP_HOST", &config.SMTPHost)
	str("SMTP_PORT", &config.SMTPPort)
	str("SMTP_USER", &config.SMTPUser)
	str("SMTP_PASSWORD", &config.SMTPPassword)
	str("SMTP_FROM", &config.SMTPFrom)
	str("LOG_LEVEL", &config.LogLevel)

	attempts := int64(config.MaxVerifyAttempts)
	integer("MAX_VERIFY_ATTEMPTS", &attempts)
	config.MaxVerifyAttempts = int(attempts)

	chunk := int64(config.ChunkSize)
	integer("CHUNK_SIZE", &chunk)
	config.ChunkSize = int(chunk)
}
