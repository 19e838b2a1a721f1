// Package converter turns warehouse rows into the raw rows the normalizer reads.
package converter

import (
	"go.uber.org/zap"
)

// TypeConverter handles mapping of warehouse columns and values onto dataset headers
type TypeConverter struct {
	logger *zap.Logger
	// Configuration options
	config TypeConverterConfig
}

// TypeConverterConfig provides configuration options for value conversion
type TypeConverterConfig struct {
	// Layout used to render timestamps
	TimeLayout string
	// Layout used to render values whose time of day is midnight UTC
	DateLayout string
	// Strings treated as missing values
	NullTokens []string
	// Render booleans as Yes/No instead of true/false
	YesNoBooleans bool
}

// DefaultConfig returns the default configuration
func DefaultConfig() TypeConverterConfig {
	return TypeConverterConfig{
		TimeLayout:    "2006-01-02 15:04:05",
		DateLayout:    "2006-01-02",
		NullTokens:    []string{"null", "NULL", "nil", "NIL"},
		YesNoBooleans: true,
	}
}

// NewTypeConverter creates a new TypeConverter with default configuration
func NewTypeConverter(logger *zap.Logger) *TypeConverter {
	return NewTypeConverterWithConfig(logger, DefaultConfig())
}

// NewTypeConverterWithConfig creates a TypeConverter with custom configuration
func NewTypeConverterWithConfig(logger *zap.Logger, config TypeConverterConfig) *TypeConverter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TypeConverter{
		logger: logger,
		config: config,
	}
}
