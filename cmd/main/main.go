package main

import (
	"context"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/awatari/storewatch/internal/config"
	"github.com/awatari/storewatch/internal/feed"
	"github.com/awatari/storewatch/internal/models"
	"github.com/awatari/storewatch/internal/notify"
	"github.com/awatari/storewatch/internal/repository/sqlite"
	"github.com/awatari/storewatch/internal/scanner"
	"github.com/awatari/storewatch/internal/services/crawler"
	"github.com/awatari/storewatch/internal/state"
	"github.com/awatari/storewatch/internal/steam"

	_ "github.com/mattn/go-sqlite3"
)

// Constants for different environment types.
const (
	envLocal = "local"
	envDev   = "development"
	envProd  = "production"
)

// stateSaver binds the state store to its configured path.
type stateSaver struct {
	path string
}

func (s stateSaver) Save(st *state.CrawlState) error {
	return state.Save(s.path, st)
}

// main is the entry point of the application: it performs exactly one scan
// run and exits, leaving scheduling to the invoker.
func main() {
	// Create a context that will be canceled when an interrupt signal is
	// received. This allows for graceful shutdown mid-run; progress made so
	// far is still persisted.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoad()

	// Set up the logger based on the environment.
	logger := setupLogger(cfg.Env)

	if err := run(ctx, logger, cfg); err != nil {
		logger.Error("Run failed", "err", err)
		os.Exit(1)
	}
}

// run wires the components and executes one crawl.
func run(ctx context.Context, logger *slog.Logger, cfg *config.Config) error {
	// Durable state: prior cursor, seen-set, pending queue, snapshots and
	// the bounded event windows. A corrupt file aborts the run.
	st, err := state.Load(cfg.StatePath)
	if err != nil {
		return err
	}

	repo, err := sqlite.NewRepository(ctx, logger, cfg.ArchivePath)
	if err != nil {
		return err
	}
	defer repo.Close()

	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))

	client := steam.NewClient(logger, steam.Options{
		Lang:       cfg.HTTP.Lang,
		Region:     cfg.HTTP.Region,
		Timeout:    cfg.HTTP.Timeout,
		MaxRetries: cfg.HTTP.Retries,
		MinDelay:   cfg.HTTP.Pause,
		SlowMult:   cfg.HTTP.SlowMult,
		CoolDown:   cfg.HTTP.CoolDown,
	}, rnd)

	scan := scanner.New(logger, client, st, rnd)

	crawl := crawler.NewCrawler(logger, client, scan, st, stateSaver{path: cfg.StatePath}, repo, crawler.Options{
		BatchSize:  cfg.Crawl.ItemsPerRun,
		ArrivalCap: cfg.Crawl.ArrivalCap,
		PendingCap: cfg.Crawl.PendingCap,
		MaxNew:     cfg.Crawl.MaxNewEvents,
		MaxChanged: cfg.Crawl.MaxChgEvents,
		RunBudget:  cfg.Crawl.RunBudget,
		Retain:     cfg.Crawl.ArchiveRetain,
	})

	logger.InfoContext(ctx, "Starting scan run", "state", cfg.StatePath, "batch", cfg.Crawl.ItemsPerRun)

	report, runErr := crawl.Run(ctx)

	// The feeds are rendered even after a partial run: the bounded windows
	// in state always hold the latest committed events.
	now := time.Now().UTC()
	if err = feed.Write(cfg.FeedNewPath, models.EventNew, st.NewEvents, now); err != nil {
		logger.Error("Failed to write new-pages feed", "err", err)
	}
	if err = feed.Write(cfg.FeedUpdPath, models.EventChanged, st.ChangeEvents, now); err != nil {
		logger.Error("Failed to write updates feed", "err", err)
	}

	if runErr != nil {
		return runErr
	}

	announce(ctx, logger, cfg, repo, report)

	logger.InfoContext(ctx, "Scan run finished",
		"attempted", report.Attempted,
		"new", report.NewFound,
		"changed", report.Changed,
		"pending", report.Pending,
		"cursor", report.Cursor,
		"total", report.Total,
	)

	return nil
}

// announce pushes the run's events to Telegram subscribers when a token is
// configured. Announcement failures never fail the run.
func announce(ctx context.Context, logger *slog.Logger, cfg *config.Config, repo *sqlite.Repository, report *crawler.RunReport) {
	if cfg.Tg.Token == "" || len(report.Emitted) == 0 {
		return
	}

	notifier, err := notify.NewNotifier(logger, cfg.Tg.Token, repo)
	if err != nil {
		logger.Warn("Failed to initialize notifier", "err", err)
		return
	}

	notifier.EnsureSubscriptions(ctx, cfg.Tg.Chats)

	if err = notifier.AnnounceRun(ctx, report.Emitted); err != nil {
		logger.Warn("Failed to announce run", "err", err)
	}
}

// setupLogger initializes and returns a logger based on the environment provided.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelDebug,
				AddSource: true,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					return a
				},
			}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelInfo,
				AddSource: false,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					return a
				},
			}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelWarn,
				AddSource: false,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					if a.Key == slog.TimeKey {
						return slog.Attr{}
					}
					return a
				},
			}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelError,
				AddSource: false,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					if a.Key == slog.TimeKey {
						return slog.Attr{}
					}
					return a
				},
			}),
		)

		log.Error(
			"The env parameter was not specified	 or was invalid. Logging will be minimal, by default.",
			slog.String("available_envs", "local, development, production"))
	}

	return log
}
