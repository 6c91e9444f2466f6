package model

// RunMetadata describes a finished transcription in loggable key/value form.
type RunMetadata map[string]string

const (
	MetadataKeyProvider      = "provider"
	MetadataKeyInputKind     = "input_kind"
	MetadataKeyLatencyMs     = "latency_ms"
	MetadataKeyAPICalls      = "api_calls"
	MetadataKeyBytesUploaded = "bytes_uploaded"
)
