package service

import (
	"context"
	"time"

	"github.com/SergeiKhy/link-redirector/internal/models"
	"github.com/SergeiKhy/link-redirector/internal/repository"
	"go.uber.org/zap"
)

// QuotaGuard считает общую квоту анонимных ссылок за текущие сутки UTC.
//
// Проверка рекомендательная: между Check и вставкой ничего не резервируется,
// поэтому конкурентные создания могут слегка превысить лимит.
type QuotaGuard interface {
	Check(ctx context.Context) models.Quota
}

type quotaGuard struct {
	linkRepo repository.LinkRepository
	settings Settings
	logger   *zap.Logger
	now      func() time.Time
}

// NewQuotaGuard создаёт проверку квоты
func NewQuotaGuard(linkRepo repository.LinkRepository, settings Settings, logger *zap.Logger) QuotaGuard {
	return newQuotaGuard(linkRepo, settings, logger, time.Now)
}

func newQuotaGuard(linkRepo repository.LinkRepository, settings Settings, logger *zap.Logger, now func() time.Time) *quotaGuard {
	return &quotaGuard{linkRepo: linkRepo, settings: settings, logger: logger, now: now}
}

func fallbackQuota() models.Quota {
	return models.NewQuota(0, DefaultAnonymousDailyLimit)
}

func (g *quotaGuard) Check(ctx context.Context) models.Quota {
	limit, err := g.settings.AnonymousDailyLimit(ctx)
	if err != nil {
		g.logger.Error("Failed to read anonymous daily limit", zap.Error(err))
		return fallbackQuota()
	}

	from, to := utcDay(g.now())
	used, err := g.linkRepo.CountCreatedBetween(ctx, models.NamespaceAnonymous, from, to)
	if err != nil {
		g.logger.Error("Failed to count anonymous links", zap.Error(err))
		return fallbackQuota()
	}

	return models.NewQuota(used, limit)
}

// utcDay возвращает [начало суток UTC, начало следующих суток UTC)
func utcDay(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}
