package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/B0user/woolzy/internal/catalog"
	"github.com/B0user/woolzy/internal/config"
	"github.com/B0user/woolzy/internal/scheduler"
	"github.com/B0user/woolzy/internal/stats"
	"github.com/B0user/woolzy/internal/store"
	"github.com/B0user/woolzy/internal/telegram"
)

type App struct {
	cfg     config.Config
	log     *zap.Logger
	bot     *tgbotapi.BotAPI
	httpSrv *http.Server
	repo    store.Repo
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	bot.Debug = false

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	return &App{cfg: cfg, log: log, bot: bot, httpSrv: srv}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting woolzy-bot",
		zap.String("db", a.cfg.DBPath),
		zap.String("http", a.cfg.HTTPAddr),
		zap.Int("admins", len(a.cfg.AdminIDs)),
	)

	// Open SQLite and run migrations. This is the only fatal startup step.
	repo, err := store.OpenSQLite(ctx, a.cfg.DBPath)
	if err != nil {
		a.log.Error("open sqlite failed", zap.Error(err))
		return err
	}
	a.repo = repo
	a.log.Info("sqlite ready")

	cat, err := catalog.Load()
	if err != nil {
		a.log.Error("load catalog failed", zap.Error(err))
		return err
	}

	agg := stats.New(repo, cat.ClickLabels)
	sched := scheduler.New(a.log, a.cfg.MaxInFlight)
	router := telegram.NewRouter(a.bot, a.log, repo, agg, sched, cat, a.cfg)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sched.Run(ctx, router.DeliverScheduled)

	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updCh := a.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutdown signal received")

			shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := a.httpSrv.Shutdown(shCtx)
			cancel()

			if err != nil {
				a.log.Warn("http server shutdown error", zap.Error(err))
			}
			if a.repo != nil {
				_ = a.repo.Close()
			}
			return nil

		case upd := <-updCh:
			// Recipients' flows interleave; one slow store write must not
			// stall the update stream.
			go router.HandleUpdate(ctx, upd)
		}
	}
}
