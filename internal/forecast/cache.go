package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/i474232898/forecast-enhancer/internal/store"
	"github.com/i474232898/forecast-enhancer/internal/weather"
)

// cacheEntry is what gets written to the storage handle.
type cacheEntry struct {
	ExpiresAt *time.Time                `json:"expires_at,omitempty"`
	Readings  []weather.ProviderReading `json:"readings"`
}

func (c *Client) cacheKey(req weather.ForecastRequest) string {
	return "forecast:" + c.provider.Name() + ":" + req.Location.Key() + ":" + string(req.Unit) + ":" + req.Language
}

// readings serves one target from storage when a fresh entry exists and
// otherwise fetches it from the provider and writes it back.
func (c *Client) readings(ctx context.Context, req weather.ForecastRequest) ([]weather.ProviderReading, error) {
	c.mu.RLock()
	s, expire := c.storage, c.expire
	c.mu.RUnlock()

	key := c.cacheKey(req)
	if s != nil {
		if readings, ok := c.cached(s, key); ok {
			return readings, nil
		}
	}

	readings, err := c.provider.FetchForecast(ctx, req)
	if err != nil {
		return nil, err
	}

	if s != nil {
		entry := cacheEntry{Readings: readings}
		if at, ok := expire.ExpiresAt(c.now()); ok {
			entry.ExpiresAt = &at
		}
		data, err := json.Marshal(entry)
		if err == nil {
			err = s.Set(key, data)
		}
		if err != nil {
			c.log.Warn().Err(err).Str("key", key).Msg("failed to update forecast cache")
		}
	}
	return readings, nil
}

func (c *Client) cached(s store.Storage, key string) ([]weather.ProviderReading, bool) {
	data, err := s.Get(key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			c.log.Warn().Err(err).Str("key", key).Msg("forecast cache read failed")
		}
		return nil, false
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("dropping unreadable forecast cache entry")
		_ = s.Remove(key)
		return nil, false
	}
	if entry.ExpiresAt != nil && !c.now().Before(*entry.ExpiresAt) {
		c.log.Debug().Str("key", key).Msg("forecast cache entry expired")
		_ = s.Remove(key)
		return nil, false
	}

	c.log.Debug().Str("key", key).Msg("forecast cache hit")
	return entry.Readings, true
}
