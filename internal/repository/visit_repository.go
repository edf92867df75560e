package repository

import (
	"context"
	"fmt"

	"github.com/SergeiKhy/link-redirector/internal/models"
	"github.com/google/uuid"
)

// VisitRepository только добавляет и агрегирует визиты, без обновлений
type VisitRepository interface {
	Record(ctx context.Context, visit *models.Visit) error
	DailyCounts(ctx context.Context, linkID uuid.UUID) ([]models.DailyClicks, error)
	CountryCounts(ctx context.Context, linkID uuid.UUID) ([]models.CountryClicks, error)
	Recent(ctx context.Context, linkID uuid.UUID, limit int) ([]models.Visit, error)
}

type visitRepository struct {
	db *PostgresDB
}

// NewVisitRepository создаёт репозиторий визитов
func NewVisitRepository(db *PostgresDB) VisitRepository {
	return &visitRepository{db: db}
}

// Record вставляет визит. Повтор с тем же id ничего не делает.
// Визит удалённой ссылки не сохраняется: вставка идёт только при существующей строке ссылки.
func (r *visitRepository) Record(ctx context.Context, visit *models.Visit) error {
	t, err := tableFor(visit.Namespace)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO visits (id, link_id, namespace, visited_at, user_agent, referrer, ip, country, region, city)
		SELECT $1::uuid, $2::uuid, $3::text, $4::timestamptz, $5::text, $6::text, $7::text, $8::text, $9::text, $10::text
		WHERE EXISTS (SELECT 1 FROM %s WHERE id = $2::uuid)
		ON CONFLICT (id) DO NOTHING
	`, t.name)

	_, err = r.db.Pool.Exec(ctx, query,
		visit.ID,
		visit.LinkID,
		string(visit.Namespace),
		visit.VisitedAt,
		visit.UserAgent,
		visit.Referrer,
		visit.IP,
		visit.Country,
		visit.Region,
		visit.City,
	)

	if err != nil {
		return fmt.Errorf("failed to record visit: %w", err)
	}

	return nil
}

// DailyCounts группирует визиты по суткам UTC, от старых к новым
func (r *visitRepository) DailyCounts(ctx context.Context, linkID uuid.UUID) ([]models.DailyClicks, error) {
	query := `
		SELECT
			TO_CHAR(visited_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day,
			COUNT(*) AS clicks
		FROM visits
		WHERE link_id = $1
		GROUP BY day
		ORDER BY day ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, linkID)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily counts: %w", err)
	}
	defer rows.Close()

	stats := []models.DailyClicks{}
	for rows.Next() {
		var day models.DailyClicks
		if err := rows.Scan(&day.Date, &day.Clicks); err != nil {
			return nil, fmt.Errorf("failed to scan daily count: %w", err)
		}
		stats = append(stats, day)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily counts: %w", err)
	}

	return stats, nil
}

// CountryCounts returns raw stored country values; display normalization happens above.
func (r *visitRepository) CountryCounts(ctx context.Context, linkID uuid.UUID) ([]models.CountryClicks, error) {
	query := `
		SELECT country, COUNT(*)
		FROM visits
		WHERE link_id = $1 AND country IS NOT NULL AND country <> ''
		GROUP BY country
	`

	rows, err := r.db.Pool.Query(ctx, query, linkID)
	if err != nil {
		return nil, fmt.Errorf("failed to get country counts: %w", err)
	}
	defer rows.Close()

	stats := []models.CountryClicks{}
	for rows.Next() {
		var c models.CountryClicks
		if err := rows.Scan(&c.Name, &c.Value); err != nil {
			return nil, fmt.Errorf("failed to scan country count: %w", err)
		}
		stats = append(stats, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating country counts: %w", err)
	}

	return stats, nil
}

func (r *visitRepository) Recent(ctx context.Context, linkID uuid.UUID, limit int) ([]models.Visit, error) {
	query := `
		SELECT id, link_id, namespace, visited_at, user_agent, referrer, ip, country, region, city
		FROM visits
		WHERE link_id = $1
		ORDER BY visited_at DESC
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, linkID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent visits: %w", err)
	}
	defer rows.Close()

	visits := []models.Visit{}
	for rows.Next() {
		var v models.Visit
		var ns string
		if err := rows.Scan(&v.ID, &v.LinkID, &ns, &v.VisitedAt, &v.UserAgent, &v.Referrer,
			&v.IP, &v.Country, &v.Region, &v.City); err != nil {
			return nil, fmt.Errorf("failed to scan visit: %w", err)
		}
		v.Namespace = models.Namespace(ns)
		visits = append(visits, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating visits: %w", err)
	}

	return visits, nil
}
