package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/devicegate/internal/flagx"
	"github.com/dmitrijs2005/devicegate/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "1s" and integer nanoseconds.
//
// This struct is an intermediate DTO (Data Transfer Object) used only for
// reading JSON configuration files. After unmarshalling, its non-zero fields
// are copied into the runtime Config struct which uses time.Duration.
type JsonConfig struct {
	EndpointAddrHTTP   string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC   string         `json:"endpoint_addr_grpc"`
	DatabaseDSN        string         `json:"database_dsn"`
	SecretKey          string         `json:"secret_key"`
	CodeTTL            timex.Duration `json:"code_ttl"`
	CodeResendInterval timex.Duration `json:"code_resend_interval"`
	SessionTTL         timex.Duration `json:"session_ttl"`
	MaxVerifyAttempts  int            `json:"max_verify_attempts"`
	SweepInterval      timex.Duration `json:"sweep_interval"`
	StorageBackend     string         `json:"storage_backend"`
	StorageRoot        string         `json:"storage_root"`
	ChunkSize          int            `json:"chunk_size"`
	MaxUploadBytes     int64          `json:"max_upload_bytes"`
	S3RootUser         string         `json:"s3_root_user"`
	S3RootPassword     string         `json:"s3_root_password"`
	S3Bucket           string         `json:"s3_bucket"`
	S3Region           string         `json:"s3_region"`
	S3BaseEndpoint     string         `json:"s3_base_endpoint"`
	SMTPHost           string         `json:"smtp_host"`
	SMTPPort           string         `json:"smtp_port"`
	SMTPUser           string         `json:"smtp_user"`
	SMTPPassword       string         `json:"smtp_password"`
	SMTPFrom           string         `json:"smtp_from"`
	LogLevel           string         `json:"log_level"`
	DevEcho            bool           `json:"dev_echo"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path comes from the -c or -config command-line flags. If neither
// is set, no JSON file is loaded. If the file cannot be read or contains
// invalid JSON, the function panics.
//
// Only values that are set in the file override what config already holds,
// so a partial file keeps the defaults for everything it leaves out.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.CodeTTL, c.CodeTTL)
	setDuration(&config.CodeResendInterval, c.CodeResendInterval)
	setDuration(&config.SessionTTL, c.SessionTTL)
	if c.MaxVerifyAttempts != 0 {
		config.MaxVerifyAttempts = c.MaxVerifyAttempts
	}
	setDuration(&config.SweepInterval, c.SweepInterval)
	setString(&config.StorageBackend, c.StorageBackend)
	setString(&config.StorageRoot, c.StorageRoot)
	if c.ChunkSize != 0 {
		config.ChunkSize = c.ChunkSize
	}
	if c.MaxUploadBytes != 0 {
		config.MaxUploadBytes = c.MaxUploadBytes
	}
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.SMTPHost, c.SMTPHost)
	setString(&config.SMTPPort, c.SMTPPort)
	setString(&config.SMTPUser, c.SMTPUser)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setString(&config.SMTPFrom, c.SMTPFrom)
	setString(&config.LogLevel, c.LogLevel)
	if c.DevEcho {
		config.DevEcho = true
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
