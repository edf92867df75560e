package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/SergeiKhy/link-redirector/internal/geo"
	"github.com/SergeiKhy/link-redirector/internal/models"
	"github.com/SergeiKhy/link-redirector/internal/repository"
)

const (
	recentVisitsLimit = 10
	unknownValue      = "Unknown"
)

// AnalyticsService собирает отчёт по ссылке для её владельца
type AnalyticsService interface {
	ForLink(ctx context.Context, ref models.LinkRef, owner string) (*models.LinkAnalytics, error)
}

type analyticsService struct {
	linkRepo  repository.LinkRepository
	visitRepo repository.VisitRepository
}

// NewAnalyticsService создаёт сервис аналитики
func NewAnalyticsService(linkRepo repository.LinkRepository, visitRepo repository.VisitRepository) AnalyticsService {
	return &analyticsService{linkRepo: linkRepo, visitRepo: visitRepo}
}

// ForLink возвращает ErrNotFound и для чужих ссылок
func (s *analyticsService) ForLink(ctx context.Context, ref models.LinkRef, owner string) (*models.LinkAnalytics, error) {
	link, err := s.linkRepo.GetByID(ctx, ref)
	if errors.Is(err, repository.ErrLinkNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	if link.Owner != owner {
		return nil, ErrNotFound
	}

	daily, err := s.visitRepo.DailyCounts(ctx, link.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	countries, err := s.visitRepo.CountryCounts(ctx, link.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	visits, err := s.visitRepo.Recent(ctx, link.ID, recentVisitsLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	return &models.LinkAnalytics{
		ID:           link.ID,
		ShortCode:    link.ShortCode,
		OriginalURL:  link.OriginalURL,
		CreatedAt:    link.CreatedAt,
		Clicks:       link.Clicks,
		DailyClicks:  daily,
		Countries:    normalizeCountries(countries),
		RecentVisits: recentVisits(visits),
	}, nil
}

// normalizeCountries приводит коды к названиям и склеивает строки
// с одинаковым названием ("ES" и "España")
func normalizeCountries(raw []models.CountryClicks) []models.CountryClicks {
	totals := make(map[string]int64, len(raw))
	for _, c := range raw {
		totals[geo.CountryName(c.Name)] += c.Value
	}

	out := make([]models.CountryClicks, 0, len(totals))
	for name, value := range totals {
		out = append(out, models.CountryClicks{Name: name, Value: value})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func recentVisits(visits []models.Visit) []models.RecentVisit {
	out := make([]models.RecentVisit, 0, len(visits))
	for _, v := range visits {
		rv := models.RecentVisit{
			ID:        v.ID,
			Timestamp: v.VisitedAt,
			Country:   unknownValue,
			Region:    v.Region,
			City:      v.City,
			UserAgent: unknownValue,
			IP:        v.IP,
		}
		if v.Country != nil {
			rv.Country = geo.CountryName(*v.Country)
		}
		if v.UserAgent != nil && *v.UserAgent != "" {
			rv.UserAgent = *v.UserAgent
		}
		out = append(out, rv)
	}
	return out
}
