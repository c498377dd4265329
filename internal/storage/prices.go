package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	pq "github.com/lib/pq"

	"github.com/guttosm/nsepulse/internal/domain/models"
)

const dateLayout = "2006-01-02"

// PriceRepository stores one daily bar per company and date.
type PriceRepository interface {
	ReplaceRange(ctx context.Context, companyID uuid.UUID, points []models.PricePoint) error
	Range(ctx context.Context, companyID uuid.UUID, from, to time.Time) ([]models.PricePoint, error)
}

type priceRepository struct {
	db *sql.DB
}

func NewPriceRepository(db *sql.DB) PriceRepository {
	return &priceRepository{db: db}
}

// ReplaceRange deletes the stored bars between the first and last date of
// points and bulk loads points in their place, in a single transaction.
// points must be ascending; bars sharing a date keep the last one.
func (r *priceRepository) ReplaceRange(ctx context.Context, companyID uuid.UUID, points []models.PricePoint) error {
	points = dedupeByDate(points)
	if len(points) == 0 {
		return nil
	}
	from, to := points[0].Date, points[len(points)-1].Date

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM prices_ohlc WHERE company_id = $1 AND date BETWEEN $2 AND $3`,
		companyID, from, to,
	); err != nil {
		_ = tx.Rollback()
		return err
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(
		"prices_ohlc",
		"company_id",
		"date",
		"open",
		"high",
		"low",
		"close",
		"volume",
	))
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	for _, p := range points {
		if _, err := stmt.ExecContext(ctx, companyID, p.Date, p.Open, p.High, p.Low, p.Close, p.Volume); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return fmt.Errorf("copy %s: %w", p.Date, err)
		}
	}

	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		_ = tx.Rollback()
		return err
	}
	if err := stmt.Close(); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

// Range returns the stored bars with from <= date <= to, ascending.
func (r *priceRepository) Range(ctx context.Context, companyID uuid.UUID, from, to time.Time) ([]models.PricePoint, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT date, open, high, low, close, volume
		FROM prices_ohlc
		WHERE company_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date
	`, companyID, from.Format(dateLayout), to.Format(dateLayout))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []models.PricePoint{}
	for rows.Next() {
		var p models.PricePoint
		var d time.Time
		if err := rows.Scan(&d, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume); err != nil {
			return nil, err
		}
		p.Time = d
		p.Date = d.Format(dateLayout)
		p.Unix = d.Unix()
		out = append(out, p)
	}
	return out, rows.Err()
}

func dedupeByDate(points []models.PricePoint) []models.PricePoint {
	out := make([]models.PricePoint, 0, len(points))
	for _, p := range points {
		if p.Date == "" {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Date == p.Date {
			out[n-1] = p
			continue
		}
		out = append(out, p)
	}
	return out
}
