package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/SergeiKhy/link-redirector/internal/geo"
	"github.com/SergeiKhy/link-redirector/internal/models"
	"github.com/SergeiKhy/link-redirector/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxRecordAttempts = 3

// GeoResolver дополняет визит грубой геолокацией и не возвращает ошибок
type GeoResolver interface {
	Resolve(ctx context.Context, ip string, hints geo.Location) geo.Location
}

// VisitRecorder превращает событие в одну сохранённую запись Visit
type VisitRecorder interface {
	Record(ctx context.Context, event *models.VisitEvent) (*models.Visit, error)
}

type visitRecorder struct {
	visitRepo repository.VisitRepository
	geo       GeoResolver
	logger    *zap.Logger
	backoff   time.Duration
}

// NewVisitRecorder создаёт запись визитов с повторами
func NewVisitRecorder(visitRepo repository.VisitRepository, geo GeoResolver, logger *zap.Logger) VisitRecorder {
	return &visitRecorder{
		visitRepo: visitRepo,
		geo:       geo,
		logger:    logger,
		backoff:   100 * time.Millisecond,
	}
}

func (r *visitRecorder) Record(ctx context.Context, event *models.VisitEvent) (*models.Visit, error) {
	visit := r.build(ctx, event)

	var err error
	for attempt := 1; attempt <= maxRecordAttempts; attempt++ {
		if err = r.visitRepo.Record(ctx, visit); err == nil {
			return visit, nil
		}
		if attempt == maxRecordAttempts {
			break
		}

		r.logger.Debug("Retrying visit insert",
			zap.String("visit_id", visit.ID.String()),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("record visit: %w", ctx.Err())
		case <-time.After(time.Duration(attempt) * r.backoff):
		}
	}

	return nil, fmt.Errorf("record visit after %d attempts: %w", maxRecordAttempts, err)
}

func (r *visitRecorder) build(ctx context.Context, event *models.VisitEvent) *models.Visit {
	id := event.VisitID
	if id == uuid.Nil {
		id = uuid.New()
	}
	visitedAt := event.OccurredAt
	if visitedAt.IsZero() {
		visitedAt = time.Now()
	}

	loc := r.geo.Resolve(ctx, event.Meta.IP, geo.Location{
		Country: event.Meta.Country,
		Region:  event.Meta.Region,
		City:    event.Meta.City,
	})

	return &models.Visit{
		ID:        id,
		LinkID:    event.Link.ID,
		Namespace: event.Link.Namespace,
		VisitedAt: visitedAt.UTC(),
		UserAgent: optional(event.Meta.UserAgent),
		Referrer:  optional(event.Meta.Referrer),
		IP:        optional(event.Meta.IP),
		Country:   optional(loc.Country),
		Region:    optional(loc.Region),
		City:      optional(loc.City),
	}
}

// optional превращает пустое значение в NULL
func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "unknown") {
		return nil
	}
	return &s
}
