package logger

import (
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/assessment-recommender/internal/utils"
)

const (
	FieldProvider       = "ai_provider"
	FieldModel          = "ai_model"
	FieldRequestID      = "request_id"
	FieldQueryPreview   = "query_preview"
	FieldCatalogSource  = "catalog_source"
	FieldCatalogVersion = "catalog_version"
)

// StringField is a key/value pair for StringFields.
type StringField struct {
	Key   string
	Value string
}

// StringFields builds zap string fields, trimming both sides and skipping
// pairs with a blank key or value.
func StringFields(pairs ...StringField) []zap.Field {
	fields := make([]zap.Field, 0, len(pairs))
	for _, p := range pairs {
		key, value := strings.TrimSpace(p.Key), strings.TrimSpace(p.Value)
		if key == "" || value == "" {
			continue
		}
		fields = append(fields, zap.String(key, value))
	}
	return fields
}

// WithFields returns logger enriched with fields. A nil logger becomes a no-op logger.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}

// CommonFields describe the AI provider and model.
func CommonFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
}

func WithCommonFields(logger *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(logger, CommonFields(provider, model)...)
}

// RequestFields describe a recommendation request. The query is shortened
// to maxLen runes.
func RequestFields(requestID, query string, maxLen int) []zap.Field {
	return StringFields(
		StringField{Key: FieldRequestID, Value: requestID},
		StringField{Key: FieldQueryPreview, Value: utils.Preview(query, maxLen)},
	)
}

// CatalogFields describe the catalog snapshot that served a request.
func CatalogFields(source string, version uint64) []zap.Field {
	fields := StringFields(StringField{Key: FieldCatalogSource, Value: source})
	if version > 0 {
		fields = append(fields, zap.Uint64(FieldCatalogVersion, version))
	}
	return fields
}
