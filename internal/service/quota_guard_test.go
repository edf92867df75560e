package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/SergeiKhy/link-redirector/internal/models"
	"github.com/SergeiKhy/link-redirector/internal/service/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quotaNow = time.Date(2025, 3, 14, 15, 0, 0, 0, time.UTC)

func seedAnonymous(t *testing.T, repo *mocks.MockLinkRepository, n int, createdAt time.Time) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, repo.Create(context.Background(), &models.Link{
			Namespace: models.NamespaceAnonymous,
			ShortCode: createdAt.Format("0102") + string(rune('a'+i%26)) + string(rune('a'+i/26)),
			Owner:     "client",
			CreatedAt: createdAt,
		}))
	}
}

func newTestGuard(linkRepo *mocks.MockLinkRepository, settingsRepo *mocks.MockSettingsRepository) QuotaGuard {
	return newQuotaGuard(linkRepo, NewSettings(settingsRepo), zap.NewNop(), func() time.Time { return quotaNow })
}

func TestQuotaGuard_Check(t *testing.T) {
	tests := []struct {
		name     string
		setting  string
		today    int
		expected models.Quota
	}{
		{name: "default limit", today: 37, expected: models.Quota{Used: 37, Limit: 50, Remaining: 13}},
		{name: "configured limit", setting: `{"limit": 100}`, today: 5, expected: models.Quota{Used: 5, Limit: 100, Remaining: 95}},
		{name: "string limit", setting: `{"limit": "10"}`, today: 4, expected: models.Quota{Used: 4, Limit: 10, Remaining: 6}},
		{name: "overshoot clamps at zero", today: 60, expected: models.Quota{Used: 60, Limit: 50, Remaining: 0}},
		{name: "zero limit", setting: `{"limit": 0}`, expected: models.Quota{Used: 0, Limit: 0, Remaining: 0}},
		{name: "negative limit is malformed", setting: `{"limit": -5}`, today: 1, expected: models.Quota{Used: 1, Limit: 50, Remaining: 49}},
		{name: "non-numeric limit is malformed", setting: `{"limit": "lots"}`, expected: models.Quota{Used: 0, Limit: 50, Remaining: 50}},
		{name: "limit above int64 is malformed", setting: `{"limit": 1e19}`, today: 2, expected: models.Quota{Used: 2, Limit: 50, Remaining: 48}},
		{name: "limit just above int64 is malformed", setting: `{"limit": 9.3e18}`, expected: models.Quota{Used: 0, Limit: 50, Remaining: 50}},
		{name: "huge string limit is malformed", setting: `{"limit": "1e300"}`, expected: models.Quota{Used: 0, Limit: 50, Remaining: 50}},
		{name: "fractional limit is malformed", setting: `{"limit": 7.5}`, expected: models.Quota{Used: 0, Limit: 50, Remaining: 50}},
		{name: "broken json is malformed", setting: `{"limit":`, expected: models.Quota{Used: 0, Limit: 50, Remaining: 50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			linkRepo := mocks.NewMockLinkRepository()
			settingsRepo := mocks.NewMockSettingsRepository()
			if tt.setting != "" {
				settingsRepo.SetRaw(AnonymousDailyLimitKey, tt.setting)
			}
			seedAnonymous(t, linkRepo, tt.today, quotaNow.Add(-time.Hour))

			quota := newTestGuard(linkRepo, settingsRepo).Check(context.Background())
			assert.Equal(t, tt.expected, quota)
		})
	}
}

func TestQuotaGuard_CountsOnlyTodayUTC(t *testing.T) {
	linkRepo := mocks.NewMockLinkRepository()
	seedAnonymous(t, linkRepo, 3, quotaNow.Add(-24*time.Hour))
	seedAnonymous(t, linkRepo, 2, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC))

	// зарегистрированные ссылки не считаются
	require.NoError(t, linkRepo.Create(context.Background(), &models.Link{
		Namespace: models.NamespaceRegistered, ShortCode: "reg", Owner: "alice", CreatedAt: quotaNow,
	}))

	quota := newTestGuard(linkRepo, mocks.NewMockSettingsRepository()).Check(context.Background())
	assert.Equal(t, models.Quota{Used: 2, Limit: 50, Remaining: 48}, quota)
}

func TestQuotaGuard_FallbackOnStoreFailure(t *testing.T) {
	linkRepo := mocks.NewMockLinkRepository()
	settingsRepo := mocks.NewMockSettingsRepository()
	settingsRepo.Err = errors.New("timeout")

	quota := newTestGuard(linkRepo, settingsRepo).Check(context.Background())
	assert.Equal(t, models.Quota{Used: 0, Limit: 50, Remaining: 50}, quota)

	settingsRepo.Err = nil
	linkRepo.Err = errors.New("timeout")

	quota = newTestGuard(linkRepo, settingsRepo).Check(context.Background())
	assert.Equal(t, models.Quota{Used: 0, Limit: 50, Remaining: 50}, quota)
}

func TestSettings_SetAnonymousDailyLimit(t *testing.T) {
	repo := mocks.NewMockSettingsRepository()
	settings := NewSettings(repo)
	ctx := context.Background()

	assert.ErrorIs(t, settings.SetAnonymousDailyLimit(ctx, -1, "admin"), ErrInvalidLimit)

	require.NoError(t, settings.SetAnonymousDailyLimit(ctx, 75, "admin"))
	limit, err := settings.AnonymousDailyLimit(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(75), limit)
}

func TestUTCDay(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	from, to := utcDay(time.Date(2025, 3, 15, 1, 0, 0, 0, loc)) // 2025-03-14 22:00 UTC

	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), to)
}
