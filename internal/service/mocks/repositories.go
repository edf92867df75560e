package mocks

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/SergeiKhy/link-redirector/internal/models"
	"github.com/SergeiKhy/link-redirector/internal/repository"
	"github.com/google/uuid"
)

// MockLinkRepository implements repository.LinkRepository for testing.
// Set Err to make every call fail.
type MockLinkRepository struct {
	mu    sync.RWMutex
	links map[models.Namespace]map[string]*models.Link // namespace -> short code -> link

	Err          error
	IncrementErr error
}

func NewMockLinkRepository() *MockLinkRepository {
	m := &MockLinkRepository{}
	m.Reset()
	return m
}

func (m *MockLinkRepository) Create(ctx context.Context, link *models.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}

	byCode, ok := m.links[link.Namespace]
	if !ok {
		return repository.ErrUnknownNamespace
	}
	if _, exists := byCode[link.ShortCode]; exists {
		return repository.ErrCodeExists
	}

	link.ID = uuid.New()
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}
	stored := *link
	byCode[link.ShortCode] = &stored
	return nil
}

func (m *MockLinkRepository) GetByShortCode(ctx context.Context, ns models.Namespace, code string) (*models.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}

	link, exists := m.links[ns][code]
	if !exists {
		return nil, repository.ErrLinkNotFound
	}
	cp := *link
	return &cp, nil
}

func (m *MockLinkRepository) GetByID(ctx context.Context, ref models.LinkRef) (*models.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}

	link := m.findLocked(ref)
	if link == nil {
		return nil, repository.ErrLinkNotFound
	}
	cp := *link
	return &cp, nil
}

func (m *MockLinkRepository) ListByOwner(ctx context.Context, ns models.Namespace, owner string) ([]models.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}

	links := []models.Link{}
	for _, link := range m.links[ns] {
		if link.Owner == owner {
			links = append(links, *link)
		}
	}
	sort.Slice(links, func(i, j int) bool { return links[i].CreatedAt.After(links[j].CreatedAt) })
	return links, nil
}

func (m *MockLinkRepository) Delete(ctx context.Context, ref models.LinkRef, owner string) (*models.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	link := m.findLocked(ref)
	if link == nil || link.Owner != owner {
		return nil, repository.ErrLinkNotFound
	}
	delete(m.links[ref.Namespace], link.ShortCode)
	return link, nil
}

func (m *MockLinkRepository) IncrementClicks(ctx context.Context, ref models.LinkRef) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.IncrementErr != nil {
		return 0, m.IncrementErr
	}

	link := m.findLocked(ref)
	if link == nil {
		return 0, repository.ErrLinkNotFound
	}
	link.Clicks++
	return link.Clicks, nil
}

func (m *MockLinkRepository) CountCreatedBetween(ctx context.Context, ns models.Namespace, from, to time.Time) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return 0, m.Err
	}

	var count int64
	for _, link := range m.links[ns] {
		if !link.CreatedAt.Before(from) && link.CreatedAt.Before(to) {
			count++
		}
	}
	return count, nil
}

// Exists reports whether the link row is still present.
func (m *MockLinkRepository) Exists(ref models.LinkRef) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.findLocked(ref) != nil
}

func (m *MockLinkRepository) findLocked(ref models.LinkRef) *models.Link {
	for _, link := range m.links[ref.Namespace] {
		if link.ID == ref.ID {
			return link
		}
	}
	return nil
}

func (m *MockLinkRepository) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = map[models.Namespace]map[string]*models.Link{
		models.NamespaceRegistered: {},
		models.NamespaceAnonymous:  {},
	}
}

// MockCacheRepository implements repository.CacheRepository for testing
type MockCacheRepository struct {
	mu    sync.RWMutex
	cache map[string]*models.ResolvedLink

	Err error
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{
		cache: make(map[string]*models.ResolvedLink),
	}
}

func (m *MockCacheRepository) Get(ctx context.Context, code string) (*models.ResolvedLink, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, &repository.CacheError{Op: "get", Key: code, Err: m.Err}
	}

	link, exists := m.cache[code]
	if !exists {
		return nil, repository.ErrCacheMiss
	}
	return link, nil
}

func (m *MockCacheRepository) Set(ctx context.Context, code string, link *models.ResolvedLink, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return &repository.CacheError{Op: "set", Key: code, Err: m.Err}
	}
	m.cache[code] = link
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return &repository.CacheError{Op: "delete", Key: code, Err: m.Err}
	}
	delete(m.cache, code)
	return nil
}

func (m *MockCacheRepository) Has(code string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.cache[code]
	return ok
}

// MockVisitRepository implements repository.VisitRepository for testing.
// FailTimes makes the next N Record calls fail with Err.
// With Links set, visits of missing links are skipped like the conditional insert does.
type MockVisitRepository struct {
	mu     sync.RWMutex
	visits map[uuid.UUID]*models.Visit

	Links     *MockLinkRepository
	Err       error
	FailTimes int
	Calls     int
}

func NewMockVisitRepository() *MockVisitRepository {
	return &MockVisitRepository{
		visits: make(map[uuid.UUID]*models.Visit),
	}
}

func (m *MockVisitRepository) Record(ctx context.Context, visit *models.Visit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++

	if m.Err != nil && (m.FailTimes == 0 || m.Calls <= m.FailTimes) {
		return m.Err
	}

	if m.Links != nil && !m.Links.Exists(models.LinkRef{Namespace: visit.Namespace, ID: visit.LinkID}) {
		return nil
	}
	if _, exists := m.visits[visit.ID]; !exists {
		cp := *visit
		m.visits[visit.ID] = &cp
	}
	return nil
}

func (m *MockVisitRepository) DailyCounts(ctx context.Context, linkID uuid.UUID) ([]models.DailyClicks, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[string]int64)
	for _, v := range m.visits {
		if v.LinkID == linkID {
			counts[v.VisitedAt.UTC().Format("2006-01-02")]++
		}
	}

	out := []models.DailyClicks{}
	for day, n := range counts {
		out = append(out, models.DailyClicks{Date: day, Clicks: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (m *MockVisitRepository) CountryCounts(ctx context.Context, linkID uuid.UUID) ([]models.CountryClicks, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[string]int64)
	for _, v := range m.visits {
		if v.LinkID == linkID && v.Country != nil && *v.Country != "" {
			counts[*v.Country]++
		}
	}

	out := []models.CountryClicks{}
	for name, n := range counts {
		out = append(out, models.CountryClicks{Name: name, Value: n})
	}
	return out, nil
}

func (m *MockVisitRepository) Recent(ctx context.Context, linkID uuid.UUID, limit int) ([]models.Visit, error) {
	visits := m.ForLink(linkID)
	sort.Slice(visits, func(i, j int) bool { return visits[i].VisitedAt.After(visits[j].VisitedAt) })
	if len(visits) > limit {
		visits = visits[:limit]
	}
	return visits, nil
}

// ForLink returns all stored visits of a link, unordered.
func (m *MockVisitRepository) ForLink(linkID uuid.UUID) []models.Visit {
	m.mu.RLock()
	defer m.mu.RUnlock()

	visits := []models.Visit{}
	for _, v := range m.visits {
		if v.LinkID == linkID {
			visits = append(visits, *v)
		}
	}
	return visits
}

// MockSettingsRepository implements repository.SettingsRepository for testing
type MockSettingsRepository struct {
	mu     sync.RWMutex
	values map[string]json.RawMessage

	Err error
}

func NewMockSettingsRepository() *MockSettingsRepository {
	return &MockSettingsRepository{
		values: make(map[string]json.RawMessage),
	}
}

func (m *MockSettingsRepository) Get(ctx context.Context, key string) (json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}

	value, ok := m.values[key]
	if !ok {
		return nil, repository.ErrSettingNotFound
	}
	return value, nil
}

func (m *MockSettingsRepository) Upsert(ctx context.Context, key string, value json.RawMessage, updatedBy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.values[key] = value
	return nil
}

// SetRaw stores a value verbatim, including malformed JSON.
func (m *MockSettingsRepository) SetRaw(key, raw string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = json.RawMessage(raw)
}
