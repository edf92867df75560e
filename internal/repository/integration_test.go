package repository_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/SergeiKhy/link-redirector/internal/config"
	"github.com/SergeiKhy/link-redirector/internal/models"
	"github.com/SergeiKhy/link-redirector/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestEnv хранит окружение для интеграционных тестов
type TestEnv struct {
	db    *repository.PostgresDB
	redis *repository.RedisDB
}

// setupTestEnv поднимает PostgreSQL и Redis в контейнерах и применяет миграции
func setupTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	if testing.Short() {
		t.Skip("Пропускаем интеграционный тест в коротком режиме")
	}
	ctx := t.Context()

	dbContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("redirector"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(dbContainer) })

	redisContainer, err := redis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(redisContainer) })

	dbHost, err := dbContainer.Host(ctx)
	require.NoError(t, err)
	dbPort, err := dbContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	redisHost, err := redisContainer.Host(ctx)
	require.NoError(t, err)
	redisPort, err := redisContainer.MappedPort(ctx, "6379")
	require.NoError(t, err)

	dbCfg := config.DBConfig{
		Host:     dbHost,
		Port:     dbPort.Port(),
		User:     "user",
		Password: "password",
		Name:     "redirector",
	}
	require.NoError(t, repository.Migrate(dbCfg))
	// повторный запуск миграций не должен падать
	require.NoError(t, repository.Migrate(dbCfg))

	db, err := repository.NewPostgresDB(dbCfg)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	redisClient, err := repository.NewRedisClient(config.RedisConfig{
		Host: redisHost,
		Port: redisPort.Port(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = redisClient.Close() })

	return &TestEnv{db: db, redis: redisClient}
}

func TestIntegration_Postgres(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	links := repository.NewLinkRepository(env.db)
	visits := repository.NewVisitRepository(env.db)
	settings := repository.NewSettingsRepository(env.db)

	registered := &models.Link{Namespace: models.NamespaceRegistered, ShortCode: "abc123", OriginalURL: "https://registered.example", Owner: "alice"}
	anonymous := &models.Link{Namespace: models.NamespaceAnonymous, ShortCode: "xyz789", OriginalURL: "https://example.com/a", Owner: uuid.NewString()}
	require.NoError(t, links.Create(ctx, registered))
	require.NoError(t, links.Create(ctx, anonymous))

	t.Run("коды уникальны внутри namespace", func(t *testing.T) {
		dup := &models.Link{Namespace: models.NamespaceRegistered, ShortCode: "abc123", OriginalURL: "https://x.example", Owner: "bob"}
		assert.ErrorIs(t, links.Create(ctx, dup), repository.ErrCodeExists)
	})

	t.Run("поиск по namespace", func(t *testing.T) {
		got, err := links.GetByShortCode(ctx, models.NamespaceAnonymous, "xyz789")
		require.NoError(t, err)
		assert.Equal(t, anonymous.ID, got.ID)
		assert.Equal(t, anonymous.Owner, got.Owner)

		_, err = links.GetByShortCode(ctx, models.NamespaceRegistered, "xyz789")
		assert.ErrorIs(t, err, repository.ErrLinkNotFound)
	})

	t.Run("конкурентные инкременты не теряются", func(t *testing.T) {
		const n = 100
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := links.IncrementClicks(ctx, anonymous.Ref())
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		got, err := links.GetByID(ctx, anonymous.Ref())
		require.NoError(t, err)
		assert.Equal(t, int64(n), got.Clicks)

		// другой namespace не затронут
		got, err = links.GetByID(ctx, registered.Ref())
		require.NoError(t, err)
		assert.Zero(t, got.Clicks)
	})

	t.Run("инкремент удалённой ссылки", func(t *testing.T) {
		_, err := links.IncrementClicks(ctx, models.LinkRef{Namespace: models.NamespaceRegistered, ID: uuid.New()})
		assert.ErrorIs(t, err, repository.ErrLinkNotFound)
	})

	t.Run("визиты и агрегаты", func(t *testing.T) {
		es, mx := "ES", "MX"
		visit := &models.Visit{ID: uuid.New(), LinkID: anonymous.ID, Namespace: models.NamespaceAnonymous, VisitedAt: time.Now().UTC(), Country: &es}
		require.NoError(t, visits.Record(ctx, visit))
		// повтор с тем же id идемпотентен
		require.NoError(t, visits.Record(ctx, visit))
		require.NoError(t, visits.Record(ctx, &models.Visit{ID: uuid.New(), LinkID: anonymous.ID, Namespace: models.NamespaceAnonymous, VisitedAt: time.Now().UTC(), Country: &mx}))
		require.NoError(t, visits.Record(ctx, &models.Visit{ID: uuid.New(), LinkID: anonymous.ID, Namespace: models.NamespaceAnonymous, VisitedAt: time.Now().UTC()}))

		recent, err := visits.Recent(ctx, anonymous.ID, 10)
		require.NoError(t, err)
		assert.Len(t, recent, 3)

		daily, err := visits.DailyCounts(ctx, anonymous.ID)
		require.NoError(t, err)
		require.Len(t, daily, 1)
		assert.Equal(t, int64(3), daily[0].Clicks)
		assert.Equal(t, time.Now().UTC().Format("2006-01-02"), daily[0].Date)

		countries, err := visits.CountryCounts(ctx, anonymous.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []models.CountryClicks{{Name: "ES", Value: 1}, {Name: "MX", Value: 1}}, countries)
	})

	t.Run("квота считает анонимные ссылки за сутки", func(t *testing.T) {
		now := time.Now().UTC()
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

		count, err := links.CountCreatedBetween(ctx, models.NamespaceAnonymous, start, start.AddDate(0, 0, 1))
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("настройки", func(t *testing.T) {
		raw, err := settings.Get(ctx, "anonymous_daily_limit")
		require.NoError(t, err)
		assert.JSONEq(t, `{"limit": 50}`, string(raw))

		require.NoError(t, settings.Upsert(ctx, "anonymous_daily_limit", json.RawMessage(`{"limit": 75}`), "alice"))
		raw, err = settings.Get(ctx, "anonymous_daily_limit")
		require.NoError(t, err)
		assert.JSONEq(t, `{"limit": 75}`, string(raw))

		_, err = settings.Get(ctx, "missing")
		assert.ErrorIs(t, err, repository.ErrSettingNotFound)
	})

	t.Run("удаление владельцем вместе с визитами", func(t *testing.T) {
		_, err := links.Delete(ctx, anonymous.Ref(), "someone-else")
		assert.ErrorIs(t, err, repository.ErrLinkNotFound)

		deleted, err := links.Delete(ctx, anonymous.Ref(), anonymous.Owner)
		require.NoError(t, err)
		assert.Equal(t, "xyz789", deleted.ShortCode)

		recent, err := visits.Recent(ctx, anonymous.ID, 10)
		require.NoError(t, err)
		assert.Empty(t, recent)

		// запоздавший визит удалённой ссылки не сохраняется
		require.NoError(t, visits.Record(ctx, &models.Visit{ID: uuid.New(), LinkID: anonymous.ID, Namespace: models.NamespaceAnonymous, VisitedAt: time.Now().UTC()}))
		recent, err = visits.Recent(ctx, anonymous.ID, 10)
		require.NoError(t, err)
		assert.Empty(t, recent)
	})

	t.Run("визит проверяет ссылку в своём namespace", func(t *testing.T) {
		// registered.ID нет среди анонимных ссылок
		require.NoError(t, visits.Record(ctx, &models.Visit{ID: uuid.New(), LinkID: registered.ID, Namespace: models.NamespaceAnonymous, VisitedAt: time.Now().UTC()}))
		recent, err := visits.Recent(ctx, registered.ID, 10)
		require.NoError(t, err)
		assert.Empty(t, recent)

		require.NoError(t, visits.Record(ctx, &models.Visit{ID: uuid.New(), LinkID: registered.ID, Namespace: models.NamespaceRegistered, VisitedAt: time.Now().UTC()}))
		recent, err = visits.Recent(ctx, registered.ID, 10)
		require.NoError(t, err)
		assert.Len(t, recent, 1)
	})
}

func TestIntegration_Cache(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	cache := repository.NewCacheRepository(env.redis)

	_, err := cache.Get(ctx, "abc123")
	assert.ErrorIs(t, err, repository.ErrCacheMiss)

	link := &models.ResolvedLink{
		Ref:         models.LinkRef{Namespace: models.NamespaceAnonymous, ID: uuid.New()},
		OriginalURL: "https://example.com/a",
	}
	require.NoError(t, cache.Set(ctx, "abc123", link, time.Minute))

	got, err := cache.Get(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, link, got)

	require.NoError(t, cache.Delete(ctx, "abc123"))
	_, err = cache.Get(ctx, "abc123")
	assert.ErrorIs(t, err, repository.ErrCacheMiss)
}
