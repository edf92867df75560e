package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SergeiKhy/link-redirector/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrLinkNotFound     = errors.New("link not found")
	ErrCodeExists       = errors.New("short code already exists")
	ErrUnknownNamespace = errors.New("unknown namespace")
)

const uniqueViolation = "23505"

// LinkRepository хранит ссылки обоих пространств имён, каждый метод работает с одним
type LinkRepository interface {
	Create(ctx context.Context, link *models.Link) error
	GetByShortCode(ctx context.Context, ns models.Namespace, code string) (*models.Link, error)
	GetByID(ctx context.Context, ref models.LinkRef) (*models.Link, error)
	ListByOwner(ctx context.Context, ns models.Namespace, owner string) ([]models.Link, error)
	Delete(ctx context.Context, ref models.LinkRef, owner string) (*models.Link, error)
	IncrementClicks(ctx context.Context, ref models.LinkRef) (int64, error)
	CountCreatedBetween(ctx context.Context, ns models.Namespace, from, to time.Time) (int64, error)
}

// linkTable описывает таблицу одного пространства имён, структура у таблиц общая
type linkTable struct {
	name        string
	ownerColumn string
	incrementFn string
}

var linkTables = map[models.Namespace]linkTable{
	models.NamespaceRegistered: {name: "links", ownerColumn: "owner_id", incrementFn: "increment_clicks"},
	models.NamespaceAnonymous:  {name: "anonymous_links", ownerColumn: "client_id", incrementFn: "increment_anonymous_clicks"},
}

func tableFor(ns models.Namespace) (linkTable, error) {
	t, ok := linkTables[ns]
	if !ok {
		return linkTable{}, fmt.Errorf("%w: %q", ErrUnknownNamespace, ns)
	}
	return t, nil
}

func (t linkTable) columns() string {
	return "id, short_code, original_url, custom_alias, " + t.ownerColumn + ", clicks, created_at"
}

type linkRepository struct {
	db *PostgresDB
}

// NewLinkRepository создаёт репозиторий ссылок
func NewLinkRepository(db *PostgresDB) LinkRepository {
	return &linkRepository{db: db}
}

func (r *linkRepository) Create(ctx context.Context, link *models.Link) error {
	t, err := tableFor(link.Namespace)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (short_code, original_url, custom_alias, %s)
		VALUES ($1, $2, $3, $4)
		RETURNING id, clicks, created_at
	`, t.name, t.ownerColumn)

	err = r.db.Pool.QueryRow(ctx, query,
		link.ShortCode,
		link.OriginalURL,
		link.CustomAlias,
		link.Owner,
	).Scan(&link.ID, &link.Clicks, &link.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrCodeExists
		}
		return fmt.Errorf("failed to create link: %w", err)
	}

	return nil
}

func (r *linkRepository) GetByShortCode(ctx context.Context, ns models.Namespace, code string) (*models.Link, error) {
	t, err := tableFor(ns)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE short_code = $1`, t.columns(), t.name)

	link, err := scanLink(r.db.Pool.QueryRow(ctx, query, code), ns)
	if err != nil {
		return nil, fmt.Errorf("failed to get link by code: %w", err)
	}
	return link, nil
}

func (r *linkRepository) GetByID(ctx context.Context, ref models.LinkRef) (*models.Link, error) {
	t, err := tableFor(ref.Namespace)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, t.columns(), t.name)

	link, err := scanLink(r.db.Pool.QueryRow(ctx, query, ref.ID), ref.Namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to get link by id: %w", err)
	}
	return link, nil
}

func (r *linkRepository) ListByOwner(ctx context.Context, ns models.Namespace, owner string) ([]models.Link, error) {
	t, err := tableFor(ns)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 ORDER BY created_at DESC`,
		t.columns(), t.name, t.ownerColumn)

	rows, err := r.db.Pool.Query(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	links := []models.Link{}
	for rows.Next() {
		link, err := scanLink(rows, ns)
		if err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links = append(links, *link)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating links: %w", err)
	}

	return links, nil
}

// Delete удаляет ссылку владельца вместе с визитами и возвращает удалённую строку
func (r *linkRepository) Delete(ctx context.Context, ref models.LinkRef, owner string) (*models.Link, error) {
	t, err := tableFor(ref.Namespace)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		WITH deleted AS (
			DELETE FROM %s WHERE id = $1 AND %s = $2
			RETURNING %s
		), purged AS (
			DELETE FROM visits WHERE link_id IN (SELECT id FROM deleted)
		)
		SELECT %s FROM deleted
	`, t.name, t.ownerColumn, t.columns(), t.columns())

	link, err := scanLink(r.db.Pool.QueryRow(ctx, query, ref.ID, owner), ref.Namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to delete link: %w", err)
	}
	return link, nil
}

// IncrementClicks вызывает хранимую функцию пространства имён:
// один UPDATE ... SET clicks = clicks + 1 внутри базы
func (r *linkRepository) IncrementClicks(ctx context.Context, ref models.LinkRef) (int64, error) {
	t, err := tableFor(ref.Namespace)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf(`SELECT %s($1)`, t.incrementFn)

	var clicks *int64
	if err := r.db.Pool.QueryRow(ctx, query, ref.ID).Scan(&clicks); err != nil {
		return 0, fmt.Errorf("failed to increment clicks: %w", err)
	}
	if clicks == nil {
		return 0, ErrLinkNotFound
	}

	return *clicks, nil
}

// CountCreatedBetween считает ссылки, созданные в [from, to)
func (r *linkRepository) CountCreatedBetween(ctx context.Context, ns models.Namespace, from, to time.Time) (int64, error) {
	t, err := tableFor(ns)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE created_at >= $1 AND created_at < $2`, t.name)

	var count int64
	if err := r.db.Pool.QueryRow(ctx, query, from, to).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count links: %w", err)
	}

	return count, nil
}

func scanLink(row pgx.Row, ns models.Namespace) (*models.Link, error) {
	link := &models.Link{Namespace: ns}
	err := row.Scan(
		&link.ID,
		&link.ShortCode,
		&link.OriginalURL,
		&link.CustomAlias,
		&link.Owner,
		&link.Clicks,
		&link.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	return link, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
