package alert

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/JuiPharm/BHH-Meal-Ordering-Approve/internal/prefs"

	"go.uber.org/zap"
)

// Sounder plays one alert sound. clip is either the external clip URL
// or a built-in pattern name from the prefs package.
type Sounder interface {
	Play(ctx context.Context, clip string, volume int) error
}

// CommandSounder shells out to a configured player (e.g. "mpg123 -q")
// with the clip appended as the last argument. The volume is exposed
// to the player via MEALBOARD_VOLUME since player flags differ.
type CommandSounder struct {
	command string
	logger  *zap.Logger
}

func NewCommandSounder(command string, logger *zap.Logger) *CommandSounder {
	return &CommandSounder{command: command, logger: logger}
}

func (s *CommandSounder) Play(ctx context.Context, clip string, volume int) error {
	if strings.TrimSpace(s.command) == "" {
		return fmt.Errorf("no player command configured")
	}
	argv := strings.Fields(s.command)
	argv = append(argv, clip)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = append(os.Environ(), fmt.Sprintf("MEALBOARD_VOLUME=%d", volume))
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run player: %w", err)
	}
	return nil
}

// beep is one note of a built-in pattern: how many BEL pulses and the
// pause before the next note.
type beep struct {
	pulses int
	gap    time.Duration
}

var bellPatterns = map[string][]beep{
	prefs.SoundBell:  {{1, 180 * time.Millisecond}, {1, 0}},
	prefs.SoundChime: {{1, 280 * time.Millisecond}, {1, 0}},
	prefs.SoundAlert: {{1, 160 * time.Millisecond}, {1, 160 * time.Millisecond}, {1, 160 * time.Millisecond}, {1, 0}},
	prefs.SoundDing:  {{1, 0}},
}

// defaultPattern backs any unknown name, including "notification"
// when the external clip is unavailable.
var defaultPattern = []beep{{1, 160 * time.Millisecond}, {1, 0}}

// BellSounder writes terminal-bell pulses as the synthesized fallback
// tone. The terminal bell has no volume, so volume is accepted and
// ignored.
type BellSounder struct {
	out    io.Writer
	logger *zap.Logger
}

func NewBellSounder(out io.Writer, logger *zap.Logger) *BellSounder {
	if out == nil {
		out = os.Stdout
	}
	return &BellSounder{out: out, logger: logger}
}

func (s *BellSounder) Play(ctx context.Context, clip string, volume int) error {
	pattern, ok := bellPatterns[clip]
	if !ok {
		pattern = defaultPattern
	}
	for _, b := range pattern {
		for i := 0; i < b.pulses; i++ {
			if _, err := s.out.Write([]byte("\a")); err != nil {
				return fmt.Errorf("write bell: %w", err)
			}
		}
		if b.gap <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.gap):
		}
	}
	return nil
}
