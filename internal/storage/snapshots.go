package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/guttosm/nsepulse/internal/domain/models"
)

// SnapshotRepository stores analysis snapshots, at most one per company,
// kind and trading date as far as the recorder is concerned.
type SnapshotRepository interface {
	Insert(ctx context.Context, s *models.Snapshot) error
	HasSnapshotForDate(ctx context.Context, companyID uuid.UUID, kind string, date time.Time) (bool, error)
	Latest(ctx context.Context, companyID uuid.UUID, kind string) (*models.Snapshot, error)
}

type snapshotRepository struct {
	db *sql.DB
}

func NewSnapshotRepository(db *sql.DB) SnapshotRepository {
	return &snapshotRepository{db: db}
}

// Insert assigns an id when missing and stores s.
func (r *snapshotRepository) Insert(ctx context.Context, s *models.Snapshot) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	sources, err := json.Marshal(s.Sources)
	if err != nil {
		return err
	}
	data := []byte(s.Data)
	if len(data) == 0 {
		data = []byte("{}")
	}
	return r.db.QueryRowContext(ctx, `
		INSERT INTO snapshots (id, company_id, kind, version, as_of, data, sources)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, s.ID, s.CompanyID, s.Kind, s.Version, s.AsOf.Format(dateLayout), data, sources).Scan(&s.CreatedAt)
}

// HasSnapshotForDate checks if a snapshot was already recorded for a given trading day.
func (r *snapshotRepository) HasSnapshotForDate(ctx context.Context, companyID uuid.UUID, kind string, date time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM snapshots WHERE company_id = $1 AND kind = $2 AND as_of = $3)`,
		companyID, kind, date.Format(dateLayout),
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// Latest returns the most recent snapshot, or nil, nil when there is none.
func (r *snapshotRepository) Latest(ctx context.Context, companyID uuid.UUID, kind string) (*models.Snapshot, error) {
	var (
		s       models.Snapshot
		data    []byte
		sources []byte
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, company_id, kind, version, as_of, data, sources, created_at
		FROM snapshots
		WHERE company_id = $1 AND kind = $2
		ORDER BY as_of DESC, created_at DESC
		LIMIT 1
	`, companyID, kind).Scan(&s.ID, &s.CompanyID, &s.Kind, &s.Version, &s.AsOf, &data, &sources, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.Data = json.RawMessage(data)
	if len(sources) > 0 {
		if err := json.Unmarshal(sources, &s.Sources); err != nil {
			return nil, err
		}
	}
	return &s, nil
}
