package common

// SessionTokenHeaderName is the HTTP header and gRPC metadata key that
// carries the session token on authenticated requests.
const SessionTokenHeaderName = "session_token"

// SessionTokenHTTPHeader is the canonical HTTP form of SessionTokenHeaderName.
const SessionTokenHTTPHeader = "X-Session-Token"

// FileNameMetadataKey carries the target file name on gRPC file streams.
const FileNameMetadataKey = "file_name"

// SessionTokenLength is the exact length of a session token in hex characters.
const SessionTokenLength = 16

// CodeLength is the number of decimal digits in a one-time code.
const CodeLength = 4
