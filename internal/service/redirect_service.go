package service

import (
	"context"
	"time"

	"github.com/SergeiKhy/link-redirector/internal/models"
	"github.com/google/uuid"
)

// RedirectService обслуживает GET /:code. Ошибку может дать только резолв,
// запись визита и подсчёт клика уходят в dispatcher.
type RedirectService interface {
	Redirect(ctx context.Context, code string, meta models.RequestMeta) (string, error)
}

type redirectService struct {
	resolver   Resolver
	dispatcher VisitDispatcher
	now        func() time.Time
}

// NewRedirectService создаёт сервис редиректа
func NewRedirectService(resolver Resolver, dispatcher VisitDispatcher) RedirectService {
	return &redirectService{
		resolver:   resolver,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

func (s *redirectService) Redirect(ctx context.Context, code string, meta models.RequestMeta) (string, error) {
	link, err := s.resolver.Resolve(ctx, code)
	if err != nil {
		return "", err
	}

	s.dispatcher.Dispatch(&models.VisitEvent{
		VisitID:    uuid.New(),
		Link:       link.Ref,
		ShortCode:  code,
		Meta:       meta,
		OccurredAt: s.now().UTC(),
	})

	return link.OriginalURL, nil
}
