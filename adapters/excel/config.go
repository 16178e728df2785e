package excel

import (
	"gopanel/internal/coercer"
)

// ReaderConfig holds configuration for reading CSV and XLSX data
type ReaderConfig struct {
	// Sheet is read instead of the first sheet when set (xlsx only)
	Sheet    string                 `json:"sheet"`
	Coercion coercer.CoercionConfig `json:"coercion_config"`
}

// DefaultReaderConfig returns sensible defaults for data ingestion
func DefaultReaderConfig() ReaderConfig {
	return ReaderConfig{
		Coercion: coercer.DefaultCoercionConfig(),
	}
}
