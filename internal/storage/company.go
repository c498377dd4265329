// Package storage persists companies, their daily price history and
// point-in-time analysis snapshots in PostgreSQL.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/guttosm/nsepulse/internal/domain/models"
)

// CompanyRepository defines contract for company rows.
type CompanyRepository interface {
	Upsert(ctx context.Context, c *models.Company) error
	GetBySymbol(ctx context.Context, symbol string) (*models.Company, error)
	ListBySector(ctx context.Context, sector string, skip, limit int) ([]models.Company, error)
	SearchByName(ctx context.Context, query string, limit int) ([]models.Company, error)
}

type companyRepository struct {
	db *sql.DB
}

func NewCompanyRepository(db *sql.DB) CompanyRepository {
	return &companyRepository{db: db}
}

const companyColumns = `id, symbol, isin, name, sector, created_at, updated_at`

// Upsert inserts c or refreshes the row with the same symbol. A null ISIN or
// sector never overwrites a known one. c is updated with the stored id and
// timestamps.
func (r *companyRepository) Upsert(ctx context.Context, c *models.Company) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return r.db.QueryRowContext(ctx, `
		INSERT INTO companies (id, symbol, isin, name, sector)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (symbol)
		DO UPDATE SET name = EXCLUDED.name,
					  isin = COALESCE(EXCLUDED.isin, companies.isin),
					  sector = COALESCE(EXCLUDED.sector, companies.sector),
					  updated_at = NOW()
		RETURNING id, created_at, updated_at
	`, c.ID, c.Symbol, c.ISIN, c.Name, c.Sector).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

// GetBySymbol returns nil, nil when no company has that symbol.
func (r *companyRepository) GetBySymbol(ctx context.Context, symbol string) (*models.Company, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+companyColumns+` FROM companies WHERE symbol = $1`, symbol)
	c, err := scanCompany(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListBySector pages through companies of one sector ordered by symbol.
func (r *companyRepository) ListBySector(ctx context.Context, sector string, skip, limit int) ([]models.Company, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+companyColumns+`
		FROM companies
		WHERE sector = $1
		ORDER BY symbol
		OFFSET $2 LIMIT $3
	`, sector, skip, limit)
	if err != nil {
		return nil, err
	}
	return collectCompanies(rows)
}

// SearchByName matches a case-insensitive substring of the company name.
func (r *companyRepository) SearchByName(ctx context.Context, query string, limit int) ([]models.Company, error) {
	if limit <= 0 {
		limit = 10
	}
	pattern := "%" + escapeLike(strings.ToLower(strings.TrimSpace(query))) + "%"
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+companyColumns+`
		FROM companies
		WHERE LOWER(name) LIKE $1
		ORDER BY name
		LIMIT $2
	`, pattern, limit)
	if err != nil {
		return nil, err
	}
	return collectCompanies(rows)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCompany(s scanner) (models.Company, error) {
	var c models.Company
	err := s.Scan(&c.ID, &c.Symbol, &c.ISIN, &c.Name, &c.Sector, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func collectCompanies(rows *sql.Rows) ([]models.Company, error) {
	defer func() { _ = rows.Close() }()
	out := []models.Company{}
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
