package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"regexp"
	"strings"

	"github.com/SergeiKhy/link-redirector/internal/models"
	"github.com/SergeiKhy/link-redirector/internal/repository"
	"go.uber.org/zap"
)

// Константы сервиса
const (
	defaultCodeLength  = 6
	maxGenerateRetries = 5
	charset            = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var aliasPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,32}$`)

type LinkServiceConfig struct {
	CodeLength     int
	BlockedDomains []string
}

// LinkService управляет ссылками обоих пространств имён
type LinkService interface {
	CreateRegistered(ctx context.Context, owner string, input *models.CreateLinkInput) (*models.Link, error)
	CreateAnonymous(ctx context.Context, clientID string, input *models.CreateLinkInput) (*models.Link, error)
	List(ctx context.Context, ns models.Namespace, owner string) ([]models.Link, error)
	Delete(ctx context.Context, ref models.LinkRef, owner string) error
}

type linkService struct {
	linkRepo  repository.LinkRepository
	cacheRepo repository.CacheRepository
	quota     QuotaGuard
	cfg       LinkServiceConfig
	logger    *zap.Logger
}

// NewLinkService создаёт новый экземпляр сервиса
func NewLinkService(
	linkRepo repository.LinkRepository,
	cacheRepo repository.CacheRepository,
	quota QuotaGuard,
	cfg LinkServiceConfig,
	logger *zap.Logger,
) LinkService {
	if cfg.CodeLength <= 0 {
		cfg.CodeLength = defaultCodeLength
	}
	return &linkService{
		linkRepo:  linkRepo,
		cacheRepo: cacheRepo,
		quota:     quota,
		cfg:       cfg,
		logger:    logger,
	}
}

func (s *linkService) CreateRegistered(ctx context.Context, owner string, input *models.CreateLinkInput) (*models.Link, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, ErrMissingOwner
	}
	return s.create(ctx, models.NamespaceRegistered, owner, input)
}

// CreateAnonymous проверяет общую дневную квоту перед созданием.
// Проверка не атомарна с вставкой, возможен небольшой перерасход.
func (s *linkService) CreateAnonymous(ctx context.Context, clientID string, input *models.CreateLinkInput) (*models.Link, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, ErrMissingOwner
	}

	if q := s.quota.Check(ctx); q.Remaining <= 0 {
		return nil, ErrQuotaExceeded
	}

	return s.create(ctx, models.NamespaceAnonymous, clientID, input)
}

func (s *linkService) create(ctx context.Context, ns models.Namespace, owner string, input *models.CreateLinkInput) (*models.Link, error) {
	input.OriginalURL = strings.TrimSpace(input.OriginalURL)

	// Валидация URL
	host, err := s.validateURL(input.OriginalURL)
	if err != nil {
		return nil, err
	}

	// Проверка на спам-домены
	if s.isBlocked(host) {
		return nil, ErrSpamDomain
	}

	link := &models.Link{
		Namespace:   ns,
		OriginalURL: input.OriginalURL,
		Owner:       owner,
	}

	if input.CustomAlias != nil && strings.TrimSpace(*input.CustomAlias) != "" {
		alias := strings.TrimSpace(*input.CustomAlias)
		if !aliasPattern.MatchString(alias) {
			return nil, ErrInvalidCode
		}
		link.ShortCode = alias
		link.CustomAlias = &alias
		return s.insert(ctx, link)
	}

	// Retry с новым кодом при коллизии
	for attempt := 0; attempt < maxGenerateRetries; attempt++ {
		code, err := s.generateShortCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate code: %w", err)
		}
		link.ShortCode = code

		created, err := s.insert(ctx, link)
		if errors.Is(err, ErrCodeTaken) {
			s.logger.Debug("Short code collision, retrying", zap.String("code", code), zap.Int("attempt", attempt+1))
			continue
		}
		return created, err
	}

	return nil, fmt.Errorf("failed to generate unique code after %d attempts", maxGenerateRetries)
}

// insert отклоняет код, занятый в другом пространстве имён:
// зарегистрированные ссылки резолвятся первыми и перекрыли бы анонимную
func (s *linkService) insert(ctx context.Context, link *models.Link) (*models.Link, error) {
	for _, ns := range models.ResolutionOrder {
		if ns == link.Namespace {
			continue
		}
		_, err := s.linkRepo.GetByShortCode(ctx, ns, link.ShortCode)
		if err == nil {
			return nil, ErrCodeTaken
		}
		if !errors.Is(err, repository.ErrLinkNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
		}
	}

	if err := s.linkRepo.Create(ctx, link); err != nil {
		if errors.Is(err, repository.ErrCodeExists) {
			return nil, ErrCodeTaken
		}
		return nil, err
	}

	// Удаляем возможную запись о промахе в кэше
	if err := s.cacheRepo.Delete(ctx, link.ShortCode); err != nil {
		s.logger.Debug("Failed to invalidate cache", zap.String("code", link.ShortCode), zap.Error(err))
	}

	return link, nil
}

func (s *linkService) List(ctx context.Context, ns models.Namespace, owner string) ([]models.Link, error) {
	if !ns.Valid() {
		return nil, repository.ErrUnknownNamespace
	}
	if strings.TrimSpace(owner) == "" {
		return nil, ErrMissingOwner
	}
	return s.linkRepo.ListByOwner(ctx, ns, owner)
}

// Delete удаляет ссылку владельца вместе с её визитами
func (s *linkService) Delete(ctx context.Context, ref models.LinkRef, owner string) error {
	link, err := s.linkRepo.Delete(ctx, ref, owner)
	if errors.Is(err, repository.ErrLinkNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	// Удаляем кэш
	if err := s.cacheRepo.Delete(ctx, link.ShortCode); err != nil {
		s.logger.Warn("Failed to invalidate cache", zap.String("code", link.ShortCode), zap.Error(err))
	}
	return nil
}

// generateShortCode генерирует случайный base62-код заданной длины
func (s *linkService) generateShortCode() (string, error) {
	result := make([]byte, s.cfg.CodeLength)
	for i := range result {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[num.Int64()]
	}
	return string(result), nil
}

// validateURL допускает только абсолютные http(s) URL с хостом
func (s *linkService) validateURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", ErrInvalidURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", ErrInvalidURL
	}
	if u.Hostname() == "" {
		return "", ErrInvalidURL
	}
	return strings.ToLower(u.Hostname()), nil
}

// isBlocked проверяет сам домен и его поддомены
func (s *linkService) isBlocked(host string) bool {
	for _, domain := range s.cfg.BlockedDomains {
		domain = strings.ToLower(strings.TrimSpace(domain))
		if domain == "" {
			continue
		}
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}
