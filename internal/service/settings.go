package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/SergeiKhy/link-redirector/internal/repository"
)

const (
	AnonymousDailyLimitKey     = "anonymous_daily_limit"
	DefaultAnonymousDailyLimit = 50
)

// Settings читает изменяемые настройки из хранилища.
// Отсутствующие или битые значения заменяются умолчаниями, наружу уходят только ошибки хранилища.
type Settings interface {
	AnonymousDailyLimit(ctx context.Context) (int64, error)
	SetAnonymousDailyLimit(ctx context.Context, limit int64, updatedBy string) error
}

type settingsService struct {
	repo repository.SettingsRepository
}

// NewSettings создаёт доступ к настройкам
func NewSettings(repo repository.SettingsRepository) Settings {
	return &settingsService{repo: repo}
}

type limitSetting struct {
	Limit json.RawMessage `json:"limit"`
}

func (s *settingsService) AnonymousDailyLimit(ctx context.Context) (int64, error) {
	raw, err := s.repo.Get(ctx, AnonymousDailyLimitKey)
	if errors.Is(err, repository.ErrSettingNotFound) {
		return DefaultAnonymousDailyLimit, nil
	}
	if err != nil {
		return 0, err
	}

	limit, ok := parseLimit(raw)
	if !ok {
		return DefaultAnonymousDailyLimit, nil
	}
	return limit, nil
}

func (s *settingsService) SetAnonymousDailyLimit(ctx context.Context, limit int64, updatedBy string) error {
	if limit < 0 {
		return ErrInvalidLimit
	}

	value, err := json.Marshal(map[string]int64{"limit": limit})
	if err != nil {
		return fmt.Errorf("failed to encode limit: %w", err)
	}

	return s.repo.Upsert(ctx, AnonymousDailyLimitKey, value, updatedBy)
}

// parseLimit принимает {"limit": 50} и {"limit": "50"}, остальное считается битым
func parseLimit(raw json.RawMessage) (int64, bool) {
	var setting limitSetting
	if err := json.Unmarshal(raw, &setting); err != nil || len(setting.Limit) == 0 {
		return 0, false
	}

	var n float64
	if err := json.Unmarshal(setting.Limit, &n); err != nil {
		var str string
		if err := json.Unmarshal(setting.Limit, &str); err != nil {
			return 0, false
		}
		if n, err = strconv.ParseFloat(strings.TrimSpace(str), 64); err != nil {
			return 0, false
		}
	}

	// float64(math.MaxInt64) == 2^63, поэтому граница строгая
	if math.IsNaN(n) || math.IsInf(n, 0) || n < 0 || n >= math.MaxInt64 || n != math.Trunc(n) {
		return 0, false
	}
	return int64(n), true
}
