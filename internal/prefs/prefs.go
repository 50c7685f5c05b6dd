package prefs

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/JuiPharm/BHH-Meal-Ordering-Approve/internal/store"

	"go.uber.org/zap"
)

// Built-in alert sound pattern names, plus "notification" which plays
// the backend-provided clip when one is available.
const (
	SoundNotification = "notification"
	SoundBell         = "bell"
	SoundChime        = "chime"
	SoundAlert        = "alert"
	SoundDing         = "ding"
)

// Preferences are the per-workstation alert settings. They survive
// restarts; nothing else on the client does.
type Preferences struct {
	Sound   string `json:"sound"`
	Volume  int    `json:"volume"`
	Enabled bool   `json:"enabled"`
}

func Defaults() Preferences {
	return Preferences{Sound: SoundNotification, Volume: 70, Enabled: true}
}

// Store persists preferences in a KV backend under a single key.
type Store struct {
	kv     store.KV
	key    string
	logger *zap.Logger
}

func NewStore(kv store.KV, key string, logger *zap.Logger) *Store {
	if key == "" {
		key = "mealboard:prefs"
	}
	return &Store{kv: kv, key: key, logger: logger}
}

// Get reads the current preferences. A missing or unreadable record
// falls back to defaults; alerting must never break on bad prefs.
func (s *Store) Get(ctx context.Context) Preferences {
	raw, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, store.ErrMiss) {
			s.logger.Warn("Failed to read preferences, using defaults", zap.Error(err))
		}
		return Defaults()
	}
	p := Defaults()
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		s.logger.Warn("Corrupt preferences record, using defaults", zap.Error(err))
		return Defaults()
	}
	return clamp(p)
}

// Put stores new preferences, clamping the volume to 0-100.
func (s *Store) Put(ctx context.Context, p Preferences) error {
	p = clamp(p)
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, s.key, string(raw), 0)
}

func clamp(p Preferences) Preferences {
	if p.Volume < 0 {
		p.Volume = 0
	}
	if p.Volume > 100 {
		p.Volume = 100
	}
	if p.Sound == "" {
		p.Sound = SoundNotification
	}
	return p
}
