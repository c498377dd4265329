package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/guregu/null/v6"
)

// Company is a persisted listed company.
type Company struct {
	ID        uuid.UUID
	Symbol    string
	ISIN      null.String
	Name      string
	Sector    null.String
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Snapshot kinds.
const (
	SnapshotOverview = "overview"
)

// Snapshot is a stored point-in-time analysis of one company.
//
// Data holds the serialized view; Sources records per-provider status so a
// degraded snapshot can be told apart from a complete one.
type Snapshot struct {
	ID        uuid.UUID         `json:"id"`
	CompanyID uuid.UUID         `json:"company_id"`
	Kind      string            `json:"kind"`
	Version   string            `json:"version"`
	AsOf      time.Time         `json:"as_of"`
	Data      json.RawMessage   `json:"data" swaggertype:"object"`
	Sources   map[string]string `json:"sources"`
	CreatedAt time.Time         `json:"created_at"`
}
