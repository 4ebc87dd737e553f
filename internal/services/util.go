package services

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	domainagg "github.com/yungbote/dineops-backend/internal/domain/aggregates"
)

func jsonBytes(v any) ([]byte, error) {
	return json.Marshal(v)
}

// parseID reads a required uuid field from request data.
func parseID(op, field, raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, domainagg.Validation(op, field+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domainagg.Validation(op, "invalid "+field)
	}
	return id, nil
}

// parseOptionalID is parseID for fields that may be omitted.
func parseOptionalID(op, field, raw string) (uuid.UUID, error) {
	if strings.TrimSpace(raw) == "" {
		return uuid.Nil, nil
	}
	return parseID(op, field, raw)
}
