package alert

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/JuiPharm/BHH-Meal-Ordering-Approve/internal/prefs"
	"github.com/JuiPharm/BHH-Meal-Ordering-Approve/internal/store"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSounder struct {
	mu    sync.Mutex
	plays []string
	err   error
}

func (f *fakeSounder) Play(ctx context.Context, clip string, volume int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plays = append(f.plays, clip)
	return f.err
}

func (f *fakeSounder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.plays)
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []int
}

func (f *fakeNotifier) Notify(ctx context.Context, pending int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, pending)
	return nil
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newPrefsStore(t *testing.T, p prefs.Preferences) *prefs.Store {
	t.Helper()
	s := prefs.NewStore(store.NewMemoryKV(), "k", zap.NewNop())
	require.NoError(t, s.Put(context.Background(), p))
	return s
}

func newAlerter(t *testing.T, p prefs.Preferences, clip, pattern *fakeSounder, n Notifier) *Alerter {
	t.Helper()
	var notifiers []Notifier
	if n != nil {
		notifiers = []Notifier{n}
	}
	return New(newPrefsStore(t, p), clip, pattern, notifiers, 0, time.Minute, zap.NewNop())
}

func TestOnPendingCount_PlaysOnIncreaseOnly(t *testing.T) {
	pattern := &fakeSounder{}
	a := newAlerter(t, prefs.Preferences{Sound: prefs.SoundBell, Volume: 50, Enabled: true}, &fakeSounder{}, pattern, nil)
	ctx := context.Background()

	a.OnPendingCount(ctx, 2)
	require.Equal(t, 1, pattern.count())

	// same count: no alert
	a.OnPendingCount(ctx, 2)
	require.Equal(t, 1, pattern.count())

	// decrease: no alert
	a.OnPendingCount(ctx, 1)
	require.Equal(t, 1, pattern.count())

	// increase again
	a.OnPendingCount(ctx, 3)
	require.Equal(t, 2, pattern.count())
}

func TestOnPendingCount_SoundDisabled(t *testing.T) {
	clip, pattern := &fakeSounder{}, &fakeSounder{}
	a := newAlerter(t, prefs.Preferences{Sound: prefs.SoundBell, Volume: 50, Enabled: false}, clip, pattern, nil)

	a.OnPendingCount(context.Background(), 4)
	require.Zero(t, clip.count())
	require.Zero(t, pattern.count())
}

func TestPlayOnce_ClipFallsBackToPattern(t *testing.T) {
	clip := &fakeSounder{err: errors.New("player missing")}
	pattern := &fakeSounder{}
	a := newAlerter(t, prefs.Preferences{Sound: prefs.SoundNotification, Volume: 50, Enabled: true}, clip, pattern, nil)
	a.SetClipURL("https://cdn.example/alarm.mp3")

	ok := a.playOnce(context.Background())
	require.False(t, ok)
	require.Equal(t, []string{"https://cdn.example/alarm.mp3"}, clip.plays)
	require.Equal(t, []string{prefs.SoundNotification}, pattern.plays)
}

func TestPlayOnce_ClipPreferredWhenAvailable(t *testing.T) {
	clip, pattern := &fakeSounder{}, &fakeSounder{}
	a := newAlerter(t, prefs.Preferences{Sound: prefs.SoundNotification, Volume: 50, Enabled: true}, clip, pattern, nil)
	a.SetClipURL("https://cdn.example/alarm.mp3")

	require.True(t, a.playOnce(context.Background()))
	require.Equal(t, 1, clip.count())
	require.Zero(t, pattern.count())
}

func TestMaybeNotify_CooldownWindow(t *testing.T) {
	notifier := &fakeNotifier{}
	a := newAlerter(t, prefs.Preferences{Sound: prefs.SoundBell, Volume: 50, Enabled: true}, &fakeSounder{}, &fakeSounder{}, notifier)

	base := time.Now()
	current := base
	a.now = func() time.Time { return current }
	ctx := context.Background()

	a.OnPendingCount(ctx, 1)
	require.Equal(t, 1, notifier.count())

	// further increases inside the window are suppressed
	current = base.Add(10 * time.Second)
	a.OnPendingCount(ctx, 2)
	current = base.Add(30 * time.Second)
	a.OnPendingCount(ctx, 3)
	require.Equal(t, 1, notifier.count())

	// after the window, fires again for a higher count
	current = base.Add(2 * time.Minute)
	a.OnPendingCount(ctx, 4)
	require.Equal(t, 2, notifier.count())
	require.Equal(t, []int{1, 4}, notifier.calls)
}

func TestMaybeNotify_RequiresCountAboveLastNotified(t *testing.T) {
	notifier := &fakeNotifier{}
	a := newAlerter(t, prefs.Preferences{Sound: prefs.SoundBell, Volume: 50, Enabled: true}, &fakeSounder{}, &fakeSounder{}, notifier)

	base := time.Now()
	current := base
	a.now = func() time.Time { return current }
	ctx := context.Background()

	a.OnPendingCount(ctx, 3)
	require.Equal(t, 1, notifier.count())

	// count dropped and rose back to the notified level: no re-notify
	current = base.Add(5 * time.Minute)
	a.OnPendingCount(ctx, 1)
	a.OnPendingCount(ctx, 3)
	require.Equal(t, 1, notifier.count())
}

func TestRepeat_StopsAfterZero(t *testing.T) {
	pattern := &fakeSounder{}
	p := newPrefsStore(t, prefs.Preferences{Sound: prefs.SoundBell, Volume: 50, Enabled: true})
	a := New(p, &fakeSounder{}, pattern, nil, 20*time.Millisecond, time.Minute, zap.NewNop())
	defer a.Stop()
	ctx := context.Background()

	a.OnPendingCount(ctx, 1)
	require.Eventually(t, func() bool { return pattern.count() >= 3 },
		time.Second, 5*time.Millisecond, "repeat reminder should keep playing")

	a.OnPendingCount(ctx, 0)
	time.Sleep(60 * time.Millisecond)
	settled := pattern.count()
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, settled, pattern.count(), "repeat should stop once pending hits zero")
}

func TestBellSounder_WritesPattern(t *testing.T) {
	var buf bytes.Buffer
	s := NewBellSounder(&buf, zap.NewNop())
	require.NoError(t, s.Play(context.Background(), prefs.SoundDing, 80))
	require.Equal(t, "\a", buf.String())

	buf.Reset()
	require.NoError(t, s.Play(context.Background(), "unknown-pattern", 80))
	require.NotEmpty(t, buf.String())
}
