package config

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	ErrBadBatchSize = errors.New("error getting SW_ITEMS_PER_RUN: value must be a positive integer")
	ErrBadChatList  = errors.New("error getting SW_TELEGRAM_CHATS: value must be a comma-separated list of chat IDs")
)

type Config struct {
	Env string // Env is the current environment: local, dev, prod.

	StatePath   string // StatePath is the crawl state file; .gz enables compression.
	ArchivePath string // ArchivePath is the SQLite event archive location.
	FeedNewPath string
	FeedUpdPath string

	Crawl Crawl
	HTTP  HTTP
	Tg    Telegram
}

type Crawl struct {
	ItemsPerRun   int           // ItemsPerRun is the rolling window size per run.
	ArrivalCap    int           // ArrivalCap bounds new-arrival processing per run.
	PendingCap    int           // PendingCap bounds pending retries per run.
	MaxNewEvents  int           // MaxNewEvents caps the bounded New feed window.
	MaxChgEvents  int           // MaxChgEvents caps the bounded Changed feed window.
	RunBudget     time.Duration // RunBudget is the optional wall-clock deadline; zero disables it.
	ArchiveRetain time.Duration // ArchiveRetain is how long archived events are kept.
}

type HTTP struct {
	Lang     string        // Lang is the store language for details payloads.
	Region   string        // Region is the primary country code for pricing.
	Timeout  time.Duration // Timeout is a per-request timeout duration.
	Pause    time.Duration // Pause is the minimum spacing between requests.
	SlowMult int           // SlowMult multiplies Pause during slow mode.
	CoolDown time.Duration // CoolDown is the slow mode window after throttling.
	Retries  int           // Retries is the in-call retry bound.
}

type Telegram struct {
	Token string  // Token is an unique telegram bot token; empty disables announcements.
	Chats []int64 // Chats are the announcement targets, enrolled on startup.
}

// MustLoad loads the configuration from environment variables and returns a Config struct.
func MustLoad() *Config {
	// Automatically binds environment variables to config keys
	viper.SetEnvPrefix("SW")
	viper.AutomaticEnv()

	// optional args
	viper.SetDefault("ENV", "production")
	viper.SetDefault("STATE_PATH", "state/state.json.gz")
	viper.SetDefault("ARCHIVE_PATH", "state/archive.sqlite")
	viper.SetDefault("FEED_NEW_PATH", "feed_new.xml")
	viper.SetDefault("FEED_UPDATES_PATH", "feed_updates.xml")
	viper.SetDefault("ITEMS_PER_RUN", 300)
	viper.SetDefault("ARRIVAL_CAP", 100)
	viper.SetDefault("PENDING_CAP", 50)
	viper.SetDefault("MAX_NEW_EVENTS", 300)
	viper.SetDefault("MAX_CHANGE_EVENTS", 300)
	viper.SetDefault("RUN_BUDGET", "9m")
	viper.SetDefault("ARCHIVE_RETAIN", "336h") // 14 days
	viper.SetDefault("STEAM_LANG", "en")
	viper.SetDefault("STEAM_CC", "US")
	viper.SetDefault("HTTP_TIMEOUT", "6s")
	viper.SetDefault("HTTP_PAUSE", "300ms")
	viper.SetDefault("HTTP_SLOW_MULT", 10)
	viper.SetDefault("HTTP_COOLDOWN", "2m")
	viper.SetDefault("HTTP_RETRIES", 3)

	if viper.GetInt("ITEMS_PER_RUN") <= 0 {
		panic(ErrBadBatchSize)
	}

	return &Config{
		Env:         viper.GetString("ENV"),
		StatePath:   viper.GetString("STATE_PATH"),
		ArchivePath: viper.GetString("ARCHIVE_PATH"),
		FeedNewPath: viper.GetString("FEED_NEW_PATH"),
		FeedUpdPath: viper.GetString("FEED_UPDATES_PATH"),
		Crawl: Crawl{
			ItemsPerRun:   viper.GetInt("ITEMS_PER_RUN"),
			ArrivalCap:    viper.GetInt("ARRIVAL_CAP"),
			PendingCap:    viper.GetInt("PENDING_CAP"),
			MaxNewEvents:  viper.GetInt("MAX_NEW_EVENTS"),
			MaxChgEvents:  viper.GetInt("MAX_CHANGE_EVENTS"),
			RunBudget:     viper.GetDuration("RUN_BUDGET"),
			ArchiveRetain: viper.GetDuration("ARCHIVE_RETAIN"),
		},
		HTTP: HTTP{
			Lang:     viper.GetString("STEAM_LANG"),
			Region:   viper.GetString("STEAM_CC"),
			Timeout:  viper.GetDuration("HTTP_TIMEOUT"),
			Pause:    viper.GetDuration("HTTP_PAUSE"),
			SlowMult: viper.GetInt("HTTP_SLOW_MULT"),
			CoolDown: viper.GetDuration("HTTP_COOLDOWN"),
			Retries:  viper.GetInt("HTTP_RETRIES"),
		},
		Tg: Telegram{
			Token: viper.GetString("TELEGRAM_TOKEN"),
			Chats: parseChatList(viper.GetString("TELEGRAM_CHATS")),
		},
	}
}

// parseChatList splits a comma-separated chat ID list. Empty elements are
// skipped; a non-numeric element panics like any other invalid setting.
func parseChatList(raw string) []int64 {
	var chats []int64
	for _, tok := range strings.Split(raw, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		id, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			panic(ErrBadChatList)
		}
		chats = append(chats, id)
	}
	return chats
}
