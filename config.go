package cmsreplace

import "github.com/goliatone/go-cms-replace/internal/runtimeconfig"

var (
	ErrStorageProviderUnknown  = runtimeconfig.ErrStorageProviderUnknown
	ErrStorageDriverUnknown    = runtimeconfig.ErrStorageDriverUnknown
	ErrStorageDSNRequired      = runtimeconfig.ErrStorageDSNRequired
	ErrCacheTTLInvalid         = runtimeconfig.ErrCacheTTLInvalid
	ErrChunkSizeInvalid        = runtimeconfig.ErrChunkSizeInvalid
	ErrContextWidthInvalid     = runtimeconfig.ErrContextWidthInvalid
	ErrMatchTimeoutInvalid     = runtimeconfig.ErrMatchTimeoutInvalid
	ErrMaxDepthInvalid         = runtimeconfig.ErrMaxDepthInvalid
	ErrPageSizeInvalid         = runtimeconfig.ErrPageSizeInvalid
	ErrLoggingProviderRequired = runtimeconfig.ErrLoggingProviderRequired
	ErrLoggingProviderUnknown  = runtimeconfig.ErrLoggingProviderUnknown
	ErrLoggingLevelInvalid     = runtimeconfig.ErrLoggingLevelInvalid
	ErrLoggingFormatInvalid    = runtimeconfig.ErrLoggingFormatInvalid
)

type (
	Config          = runtimeconfig.Config
	StorageConfig   = runtimeconfig.StorageConfig
	CacheConfig     = runtimeconfig.CacheConfig
	BatchConfig     = runtimeconfig.BatchConfig
	MatcherConfig   = runtimeconfig.MatcherConfig
	HighlightConfig = runtimeconfig.HighlightConfig
	WalkerConfig    = runtimeconfig.WalkerConfig
	SearchConfig    = runtimeconfig.SearchConfig
	ExportConfig    = runtimeconfig.ExportConfig
	Features        = runtimeconfig.Features
	LoggingConfig   = runtimeconfig.LoggingConfig
)

func DefaultConfig() Config {
	return runtimeconfig.DefaultConfig()
}

// LoadConfig reads a YAML configuration file layered over DefaultConfig. An
// empty path returns the defaults.
func LoadConfig(path string) (Config, error) {
	return runtimeconfig.LoadFile(path)
}
