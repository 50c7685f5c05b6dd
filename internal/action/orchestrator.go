package action

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JuiPharm/BHH-Meal-Ordering-Approve/internal/api"
	"github.com/JuiPharm/BHH-Meal-Ordering-Approve/internal/cache"
	"github.com/JuiPharm/BHH-Meal-Ordering-Approve/internal/models"

	"go.uber.org/zap"
)

// ErrEmptyPasscode means the user cancelled or submitted an empty
// passcode; no backend call was made.
var ErrEmptyPasscode = errors.New("passcode required")

// ErrInvalidStep means the requested step is outside the 3-step
// workflow.
var ErrInvalidStep = errors.New("invalid workflow step")

// PendingRefresher re-samples the pending count right after a
// successful transition (satisfied by *poller.Poller).
type PendingRefresher interface {
	RefreshPending(ctx context.Context)
}

// Orchestrator drives the passcode-gated step transitions and the
// slip download against the backend, keeping the local cache
// optimistically in sync.
type Orchestrator struct {
	client    *api.Client
	cache     *cache.RowCache
	refresher PendingRefresher
	slipDir   string
	logger    *zap.Logger
}

func New(client *api.Client, rows *cache.RowCache, refresher PendingRefresher, slipDir string, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		client:    client,
		cache:     rows,
		refresher: refresher,
		slipDir:   slipDir,
		logger:    logger,
	}
}

// AdvanceStep posts one approval step for the order. On success the
// cached record's status is patched from the server response and the
// pending count re-sampled; on failure local state is untouched and
// the server message propagates to the caller.
func (o *Orchestrator) AdvanceStep(ctx context.Context, id int64, step models.Step, passcode string) (*api.UpdateStatusResult, error) {
	if strings.TrimSpace(passcode) == "" {
		return nil, ErrEmptyPasscode
	}
	if !step.Valid() {
		return nil, ErrInvalidStep
	}

	o.logger.Info("Advancing order step",
		zap.Int64("order_id", id),
		zap.Int("step", int(step)),
	)

	res, err := o.client.UpdateStatus(ctx, id, step, passcode)
	if err != nil {
		o.logger.Warn("Step update rejected",
			zap.Int64("order_id", id),
			zap.Int("step", int(step)),
			zap.Error(err),
		)
		return nil, err
	}

	if res.Status != "" {
		o.cache.PatchStatus(id, res.Status)
	}
	if o.refresher != nil {
		o.refresher.RefreshPending(ctx)
	}

	o.logger.Info("Order step updated",
		zap.Int64("order_id", id),
		zap.String("status", res.Status),
		zap.String("warn", res.Warn),
	)
	return res, nil
}

// Slip is a decoded PDF slip. Path is set when the orchestrator also
// saved it to the configured slip directory.
type Slip struct {
	Filename string
	PDF      []byte
	Path     string
}

// DownloadSlip fetches and decodes the PDF slip for one order. The
// upstream slip action takes no passcode. A missing server filename
// falls back to MealSlip_<id>.pdf; when a slip directory is configured
// the file is written there exactly once.
func (o *Orchestrator) DownloadSlip(ctx context.Context, id int64) (*Slip, error) {
	o.logger.Info("Generating slip", zap.Int64("order_id", id))

	data, err := o.client.Slip(ctx, id)
	if err != nil {
		o.logger.Warn("Slip generation failed",
			zap.Int64("order_id", id),
			zap.Error(err),
		)
		return nil, err
	}

	pdf, err := base64.StdEncoding.DecodeString(data.B64)
	if err != nil {
		return nil, fmt.Errorf("decode slip pdf: %w", err)
	}

	name := strings.TrimSpace(data.Filename)
	if name == "" {
		name = fmt.Sprintf("MealSlip_%d.pdf", id)
	}
	// keep only the base name; the server must not steer the path
	name = filepath.Base(name)

	slip := &Slip{Filename: name, PDF: pdf}
	if o.slipDir != "" {
		if err := os.MkdirAll(o.slipDir, 0o755); err != nil {
			return nil, fmt.Errorf("create slip dir: %w", err)
		}
		path := filepath.Join(o.slipDir, name)
		if err := os.WriteFile(path, pdf, 0o644); err != nil {
			return nil, fmt.Errorf("save slip: %w", err)
		}
		slip.Path = path
	}

	o.logger.Info("Slip ready",
		zap.Int64("order_id", id),
		zap.String("filename", name),
		zap.Int("bytes", len(pdf)),
	)
	return slip, nil
}
