package alert

import (
	"context"
	"sync"
	"time"

	"github.com/JuiPharm/BHH-Meal-Ordering-Approve/internal/prefs"

	"go.uber.org/zap"
)

// armer is implemented by sounders/notifiers that need a one-time
// warm-up (permission grab, device open). Arming is best effort.
type armer interface {
	Arm(ctx context.Context) error
}

// Alerter turns pending-count samples into audio alerts and
// notifications. It owns the "still waiting" repeat reminder and the
// notification cool-down.
type Alerter struct {
	prefs     *prefs.Store
	clip      Sounder
	pattern   Sounder
	notifiers []Notifier
	logger    *zap.Logger

	repeatEvery time.Duration
	cooldown    time.Duration

	mu           sync.Mutex
	clipURL      string
	lastPending  int
	lastNotified int
	lastNotifyAt time.Time
	repeatCancel context.CancelFunc

	armOnce sync.Once
	now     func() time.Time
}

// New builds an Alerter. clip plays the backend-provided mp3, pattern
// is the built-in tone fallback. notifiers may be empty.
func New(p *prefs.Store, clip, pattern Sounder, notifiers []Notifier, repeatEvery, cooldown time.Duration, logger *zap.Logger) *Alerter {
	return &Alerter{
		prefs:       p,
		clip:        clip,
		pattern:     pattern,
		notifiers:   notifiers,
		logger:      logger,
		repeatEvery: repeatEvery,
		cooldown:    cooldown,
		now:         time.Now,
	}
}

// SetClipURL records the external alert clip location fetched from
// the backend at boot. Empty keeps the built-in patterns only.
func (a *Alerter) SetClipURL(u string) {
	a.mu.Lock()
	a.clipURL = u
	a.mu.Unlock()
}

// OnPendingCount feeds one pending-count sample. An increase over the
// previous sample fires one alert cycle; the repeat reminder runs
// while the count stays above zero and stops once it returns to zero.
func (a *Alerter) OnPendingCount(ctx context.Context, n int) {
	a.mu.Lock()
	prev := a.lastPending
	a.lastPending = n
	a.mu.Unlock()

	if n > prev {
		a.alertCycle(ctx, n)
	}

	if n > 0 {
		a.startRepeat()
	} else {
		a.stopRepeat()
	}
}

// Pending returns the last sample fed to the alerter.
func (a *Alerter) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastPending
}

// Stop cancels the repeat reminder. In-flight playback finishes.
func (a *Alerter) Stop() {
	a.stopRepeat()
}

func (a *Alerter) alertCycle(ctx context.Context, n int) {
	a.playOnce(ctx)
	a.maybeNotify(ctx, n)
}

// playOnce plays the alert once, honoring preferences. Returns false
// when the user disabled sound or the external clip failed and only
// the fallback tone was attempted, mirroring the degraded path.
func (a *Alerter) playOnce(ctx context.Context) bool {
	a.arm(ctx)

	p := a.prefs.Get(ctx)
	if !p.Enabled {
		return false
	}

	a.mu.Lock()
	clipURL := a.clipURL
	a.mu.Unlock()

	if p.Sound == prefs.SoundNotification && clipURL != "" {
		err := a.clip.Play(ctx, clipURL, p.Volume)
		if err == nil {
			return true
		}
		a.logger.Warn("External alert clip failed, falling back to tone", zap.Error(err))
		if err := a.pattern.Play(ctx, prefs.SoundNotification, p.Volume); err != nil {
			a.logger.Warn("Fallback tone failed", zap.Error(err))
		}
		return false
	}

	if err := a.pattern.Play(ctx, p.Sound, p.Volume); err != nil {
		a.logger.Warn("Alert tone failed", zap.Error(err))
		return false
	}
	return true
}

// maybeNotify fires the notifiers at most once per cool-down window
// and only when the count exceeds the last count that notified.
func (a *Alerter) maybeNotify(ctx context.Context, n int) {
	a.mu.Lock()
	if n <= a.lastNotified {
		a.mu.Unlock()
		return
	}
	now := a.now()
	if now.Sub(a.lastNotifyAt) < a.cooldown {
		a.mu.Unlock()
		return
	}
	a.lastNotified = n
	a.lastNotifyAt = now
	notifiers := a.notifiers
	a.mu.Unlock()

	for _, notifier := range notifiers {
		if err := notifier.Notify(ctx, n); err != nil {
			a.logger.Debug("Notification delivery failed", zap.Error(err))
		}
	}
}

func (a *Alerter) startRepeat() {
	a.mu.Lock()
	if a.repeatCancel != nil || a.repeatEvery <= 0 {
		a.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.repeatCancel = cancel
	a.mu.Unlock()

	go a.repeatLoop(ctx)
}

func (a *Alerter) stopRepeat() {
	a.mu.Lock()
	cancel := a.repeatCancel
	a.repeatCancel = nil
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// repeatLoop replays the alert while orders stay pending. One tick
// after the count reaches zero it shuts itself down.
func (a *Alerter) repeatLoop(ctx context.Context) {
	ticker := time.NewTicker(a.repeatEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := a.Pending()
			if n <= 0 {
				a.stopRepeat()
				return
			}
			if ok := a.playOnce(ctx); !ok {
				a.maybeNotify(ctx, n)
			}
		}
	}
}

// arm performs the one-time best-effort warm-up of audio and
// notification backends. Failures are swallowed; alerting proceeds
// degraded.
func (a *Alerter) arm(ctx context.Context) {
	a.armOnce.Do(func() {
		for _, c := range []any{a.clip, a.pattern} {
			if ar, ok := c.(armer); ok {
				if err := ar.Arm(ctx); err != nil {
					a.logger.Debug("Sound arm failed", zap.Error(err))
				}
			}
		}
		for _, n := range a.notifiers {
			if ar, ok := n.(armer); ok {
				if err := ar.Arm(ctx); err != nil {
					a.logger.Debug("Notifier arm failed", zap.Error(err))
				}
			}
		}
	})
}
