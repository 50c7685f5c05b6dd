package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/JuiPharm/BHH-Meal-Ordering-Approve/internal/action"
	"github.com/JuiPharm/BHH-Meal-Ordering-Approve/internal/alert"
	"github.com/JuiPharm/BHH-Meal-Ordering-Approve/internal/api"
	"github.com/JuiPharm/BHH-Meal-Ordering-Approve/internal/cache"
	"github.com/JuiPharm/BHH-Meal-Ordering-Approve/internal/config"
	"github.com/JuiPharm/BHH-Meal-Ordering-Approve/internal/httpapi"
	"github.com/JuiPharm/BHH-Meal-Ordering-Approve/internal/poller"
	"github.com/JuiPharm/BHH-Meal-Ordering-Approve/internal/prefs"
	"github.com/JuiPharm/BHH-Meal-Ordering-Approve/internal/store"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Dashboard is the session object owning every moving part of the
// daemon: API client, row cache, polling engine, alerter, action
// orchestrator and the local view API. No ambient globals; tests can
// run several sessions side by side.
type Dashboard struct {
	config *config.Config
	logger *zap.Logger

	client *api.Client
	rows   *cache.RowCache
	prefs  *prefs.Store

	alerter      *alert.Alerter
	poller       *poller.Poller
	orchestrator *action.Orchestrator
	server       *httpapi.Server

	redisClient  *redis.Client
	mqttNotifier *alert.MQTTNotifier
}

// New wires the full session from config.
func New(cfg *config.Config, logger *zap.Logger) (*Dashboard, error) {
	sessionID := uuid.NewString()
	logger = logger.With(zap.String("session_id", sessionID))

	d := &Dashboard{
		config: cfg,
		logger: logger,
		rows:   cache.New(),
	}

	d.client = api.New(cfg.APIBaseURL, time.Duration(cfg.APITimeoutSeconds)*time.Second, logger)

	// Preferences live in Redis when configured, else in a local file.
	var kv store.KV
	if cfg.RedisAddr != "" {
		d.redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := d.redisClient.Ping(context.Background()).Err(); err != nil {
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		kv = store.NewRedisKV(d.redisClient)
	} else {
		fileKV, err := store.NewFileKV(cfg.PrefsFile)
		if err != nil {
			return nil, fmt.Errorf("open preferences file: %w", err)
		}
		kv = fileKV
	}
	d.prefs = prefs.NewStore(kv, "mealboard:prefs", logger)

	var notifiers []alert.Notifier
	if cfg.NotifyCommand != "" {
		notifiers = append(notifiers, alert.NewCommandNotifier(cfg.NotifyCommand, logger))
	}
	if cfg.MQTT.Broker != "" {
		mq, err := alert.NewMQTTNotifier(cfg.MQTT.Broker, "mealboard-"+sessionID, cfg.MQTT.Topic, byte(cfg.MQTT.QoS), logger)
		if err != nil {
			return nil, fmt.Errorf("connect mqtt notifier: %w", err)
		}
		d.mqttNotifier = mq
		notifiers = append(notifiers, mq)
	}

	d.alerter = alert.New(
		d.prefs,
		alert.NewCommandSounder(cfg.PlayerCommand, logger),
		alert.NewBellSounder(os.Stdout, logger),
		notifiers,
		time.Duration(cfg.AlertRepeatSeconds)*time.Second,
		time.Duration(cfg.NotifyCooldownSeconds)*time.Second,
		logger,
	)

	d.poller = poller.New(
		d.client,
		d.rows,
		d.alerter,
		time.Duration(cfg.PollInterval)*time.Second,
		time.Duration(cfg.PendingInterval)*time.Second,
		cfg.OrderMode,
		0,
		logger,
	)

	d.orchestrator = action.New(d.client, d.rows, d.poller, cfg.SlipDir, logger)

	handler := httpapi.NewHandler(d.rows, d.poller, d.orchestrator, d.prefs, cfg.BrandTitle, cfg.PageSize, logger)
	router := httpapi.NewRouter(handler, cfg.AllowedOrigins, logger)
	d.server = httpapi.NewServer(cfg.ListenAddr, router, logger)

	return d, nil
}

// Start boots the session the way the dashboard always has: load the
// alert clip location (best effort), do the initial full load and
// pending sample, then run the refresh loops and serve the view API.
// Blocks until the HTTP server exits.
func (d *Dashboard) Start(ctx context.Context) error {
	d.logger.Info("Starting meal ordering dashboard",
		zap.String("api_base", d.config.APIBaseURL),
		zap.String("listen_addr", d.config.ListenAddr),
	)

	if clipURL, err := d.client.AlarmURL(ctx); err != nil {
		d.logger.Warn("No external alert clip available", zap.Error(err))
	} else {
		d.alerter.SetClipURL(clipURL)
	}

	if err := d.poller.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	if err := d.poller.Start(ctx); err != nil {
		return err
	}

	if err := d.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the session down: loops first, then the HTTP server and
// external connections. In-flight ticks complete.
func (d *Dashboard) Stop() {
	d.poller.Stop()
	d.alerter.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.server.Stop(ctx); err != nil {
		d.logger.Error("Failed to stop view API", zap.Error(err))
	}

	if d.mqttNotifier != nil {
		d.mqttNotifier.Close()
	}
	if d.redisClient != nil {
		if err := d.redisClient.Close(); err != nil {
			d.logger.Error("Failed to close redis", zap.Error(err))
		}
	}

	d.logger.Info("Dashboard stopped")
}
