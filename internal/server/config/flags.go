package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/devicegate/internal/flagx"
)

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags:
//
//	-l string     HTTP bind address (e.g., ":8080")
//	-a string     gRPC bind address (e.g., ":50051")
//	-d string     PostgreSQL DSN
//	-s string     code hashing secret key
//	-t duration   code lifetime
//	-i duration   minimum interval between two codes for one device
//	-r duration   session lifetime
//	-m int        failed verifications allowed per code
//	-w duration   expiry sweep interval (0 disables)
//	-storage      storage backend: fs, s3 or minio
//	-root         root directory for the fs backend
//	-chunk int    streaming chunk size, bytes
//	-max-upload   upload size limit, bytes (0 = unlimited)
//	-u string     S3 root user
//	-p string     S3 root password
//	-b string     S3 bucket name
//	-g string     S3 region
//	-e string     S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-smtp-host    SMTP server host; empty disables mail delivery
//	-smtp-port    SMTP server port
//	-smtp-user    SMTP user
//	-smtp-password SMTP password
//	-smtp-from    sender address (defaults to the SMTP user)
//	-log-level    debug, info, warn or error
//	-dev-echo     log issued codes in clear text
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-l", "-a", "-d", "-s", "-t", "-i", "-r", "-m", "-w",
		"-storage", "-root", "-chunk", "-max-upload",
		"-u", "-p", "-b", "-g", "-e", "-log-level",
		"-smtp-host", "-smtp-port", "-smtp-user", "-smtp-password", "-smtp-from",
	}, "-dev-echo")

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "l", config.EndpointAddrHTTP, "http address and port to run server")
	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "grpc address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	fs.DurationVar(&config.CodeTTL, "t", config.CodeTTL, "code lifetime")
	fs.DurationVar(&config.CodeResendInterval, "i", config.CodeResendInterval, "code resend interval")
	fs.DurationVar(&config.SessionTTL, "r", config.SessionTTL, "session lifetime")
	fs.IntVar(&config.MaxVerifyAttempts, "m", config.MaxVerifyAttempts, "max verify attempts per code")
	fs.DurationVar(&config.SweepInterval, "w", config.SweepInterval, "expiry sweep interval")

	fs.StringVar(&config.StorageBackend, "storage", config.StorageBackend, "storage backend (fs|s3|minio)")
	fs.StringVar(&config.StorageRoot, "root", config.StorageRoot, "storage root directory")
	fs.IntVar(&config.ChunkSize, "chunk", config.ChunkSize, "streaming chunk size")
	fs.Int64Var(&config.MaxUploadBytes, "max-upload", config.MaxUploadBytes, "upload size limit")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.SMTPHost, "smtp-host", config.SMTPHost, "SMTP host")
	fs.StringVar(&config.SMTPPort, "smtp-port", config.SMTPPort, "SMTP port")
	fs.StringVar(&config.SMTPUser, "smtp-user", config.SMTPUser, "SMTP user")
	fs.StringVar(&config.SMTPPassword, "smtp-password", config.SMTPPassword, "SMTP password")
	fs.StringVar(&config.SMTPFrom, "smtp-from", config.SMTPFrom, "sender address")

	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level")
	fs.BoolVar(&config.DevEcho, "dev-echo", config.DevEcho, "log issued codes (development only)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
