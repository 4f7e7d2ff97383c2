package models

import (
	"encoding/json"
	"log/slog"

	"gorm.io/datatypes"

	"github.com/SAP-F-2025/instantquiz-service/pkg/monitoring"
)

// SortOrderAuto asks the store to append the entity after the existing ones.
const SortOrderAuto = -1

// Entity is implemented by the ordered, quiz-scoped records (questions, criteria, feedbacks).
type Entity interface {
	GetID() uint
	SetID(id uint)
	GetQuizID() uint
	GetSortOrder() int
	SetSortOrder(order int)
	EncodePayload() error
	DecodePayload()
}

// decodePayload never fails: a malformed blob is reported and replaced by the zero value.
func decodePayload[T any](entity, field string, raw datatypes.JSON) T {
	var value T
	if len(raw) == 0 || string(raw) == "null" {
		return value
	}

	if err := json.Unmarshal(raw, &value); err != nil {
		slog.Warn("Malformed stored payload",
			"entity", entity,
			"field", field,
			"error", err)
		monitoring.MalformedPayloads.WithLabelValues(entity, field).Inc()

		var zero T
		return zero
	}

	return value
}

func encodePayload(value any) (datatypes.JSON, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}
