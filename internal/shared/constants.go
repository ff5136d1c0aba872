package shared

import "time"

// HTTP Client Configuration
const (
	DefaultHTTPTimeout     = 180 * time.Second
	DefaultStreamTimeout   = 120 * time.Second
	DefaultShutdownTimeout = 10 * time.Minute
)

// Credential Configuration
const (
	SecretTag          = "ck_"
	SecretRandomLength = 40
	LookupPrefixLength = 8
	CredentialIDLength = 16
	CredentialCacheTTL = 1 * time.Minute
)

// Gateway Configuration
const (
	ProtocolVersion   = "2024-11-05"
	ServerName        = "compass-gateway"
	ServerVersion     = "0.1.0"
	HeartbeatInterval = 30 * time.Second
)

// Streaming Configuration
const (
	DefaultChunkSize   = 120
	EntryPreviewLength = 160
	DefaultMaxTokens   = 1024
)

// Listing Configuration
const (
	DefaultEntryListLimit = 10
	MaxEntryListLimit     = 50
)
