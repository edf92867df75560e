package service

import (
	"context"

	"github.com/SergeiKhy/link-redirector/internal/models"
	"github.com/SergeiKhy/link-redirector/internal/repository"
)

// ClickCounter увеличивает счётчик кликов ровно на единицу.
// Инкремент выполняется одним UPDATE в базе, конкурентные вызовы не теряются.
type ClickCounter interface {
	Increment(ctx context.Context, ref models.LinkRef) (int64, error)
}

type clickCounter struct {
	linkRepo repository.LinkRepository
}

// NewClickCounter создаёт счётчик кликов
func NewClickCounter(linkRepo repository.LinkRepository) ClickCounter {
	return &clickCounter{linkRepo: linkRepo}
}

func (c *clickCounter) Increment(ctx context.Context, ref models.LinkRef) (int64, error) {
	return c.linkRepo.IncrementClicks(ctx, ref)
}
