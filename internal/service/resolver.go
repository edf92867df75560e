package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SergeiKhy/link-redirector/internal/models"
	"github.com/SergeiKhy/link-redirector/internal/repository"
	"go.uber.org/zap"
)

const defaultCacheTTL = time.Hour

// Resolver находит адрес по короткому коду, без побочных эффектов
type Resolver interface {
	Resolve(ctx context.Context, code string) (*models.ResolvedLink, error)
}

type codeResolver struct {
	linkRepo  repository.LinkRepository
	cacheRepo repository.CacheRepository
	cacheTTL  time.Duration
	logger    *zap.Logger
}

// NewResolver создаёт резолвер с кэшем. cacheTTL <= 0 означает час
func NewResolver(linkRepo repository.LinkRepository, cacheRepo repository.CacheRepository, cacheTTL time.Duration, logger *zap.Logger) Resolver {
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}
	return &codeResolver{
		linkRepo:  linkRepo,
		cacheRepo: cacheRepo,
		cacheTTL:  cacheTTL,
		logger:    logger,
	}
}

// Resolve проверяет кэш, затем пространства имён в порядке models.ResolutionOrder.
// Ошибка хранилища прерывает обход: иначе можно попасть на совпавший код
// из следующего пространства.
func (r *codeResolver) Resolve(ctx context.Context, code string) (*models.ResolvedLink, error) {
	if strings.TrimSpace(code) == "" {
		return nil, ErrNotFound
	}

	cached, err := r.cacheRepo.Get(ctx, code)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, repository.ErrCacheMiss) {
		r.logger.Debug("Cache lookup failed", zap.String("code", code), zap.Error(err))
	}

	for _, ns := range models.ResolutionOrder {
		link, err := r.linkRepo.GetByShortCode(ctx, ns, code)
		if errors.Is(err, repository.ErrLinkNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: resolve %s: %w", ErrStorageUnavailable, ns, err)
		}

		resolved := &models.ResolvedLink{Ref: link.Ref(), OriginalURL: link.OriginalURL}
		if err := r.cacheRepo.Set(ctx, code, resolved, r.cacheTTL); err != nil {
			r.logger.Debug("Failed to cache link", zap.String("code", code), zap.Error(err))
		}
		return resolved, nil
	}

	return nil, ErrNotFound
}
