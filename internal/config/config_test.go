package config_test

import (
	"testing"
	"time"

	"github.com/awatari/storewatch/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestMustLoad_Defaults(t *testing.T) {
	cfg := config.MustLoad()

	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "state/state.json.gz", cfg.StatePath)
	assert.Equal(t, "state/archive.sqlite", cfg.ArchivePath)
	assert.Equal(t, "feed_new.xml", cfg.FeedNewPath)
	assert.Equal(t, "feed_updates.xml", cfg.FeedUpdPath)
	assert.Equal(t, 300, cfg.Crawl.ItemsPerRun)
	assert.Equal(t, 100, cfg.Crawl.ArrivalCap)
	assert.Equal(t, 50, cfg.Crawl.PendingCap)
	assert.Equal(t, 9*time.Minute, cfg.Crawl.RunBudget)
	assert.Equal(t, 336*time.Hour, cfg.Crawl.ArchiveRetain)
	assert.Equal(t, "en", cfg.HTTP.Lang)
	assert.Equal(t, "US", cfg.HTTP.Region)
	assert.Equal(t, 6*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 300*time.Millisecond, cfg.HTTP.Pause)
	assert.Equal(t, 10, cfg.HTTP.SlowMult)
	assert.Equal(t, 2*time.Minute, cfg.HTTP.CoolDown)
	assert.Equal(t, 3, cfg.HTTP.Retries)
	assert.Empty(t, cfg.Tg.Token)
}

func TestMustLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("SW_ENV", "local")
	t.Setenv("SW_STATE_PATH", "/var/lib/storewatch/state.json")
	t.Setenv("SW_ITEMS_PER_RUN", "25")
	t.Setenv("SW_RUN_BUDGET", "30s")
	t.Setenv("SW_STEAM_CC", "JP")
	t.Setenv("SW_TELEGRAM_TOKEN", "123:abc")
	t.Setenv("SW_TELEGRAM_CHATS", "-100123, 456")

	cfg := config.MustLoad()

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "/var/lib/storewatch/state.json", cfg.StatePath)
	assert.Equal(t, 25, cfg.Crawl.ItemsPerRun)
	assert.Equal(t, 30*time.Second, cfg.Crawl.RunBudget)
	assert.Equal(t, "JP", cfg.HTTP.Region)
	assert.Equal(t, "123:abc", cfg.Tg.Token)
	assert.Equal(t, []int64{-100123, 456}, cfg.Tg.Chats)
}

func TestMustLoad_EmptyChatListDisablesEnrollment(t *testing.T) {
	t.Setenv("SW_TELEGRAM_CHATS", "")

	cfg := config.MustLoad()

	assert.Empty(t, cfg.Tg.Chats)
}

func TestMustLoad_RejectsMalformedChatList(t *testing.T) {
	t.Setenv("SW_TELEGRAM_CHATS", "123,abc")

	assert.PanicsWithValue(t, config.ErrBadChatList, func() { config.MustLoad() })
}

func TestMustLoad_RejectsNonPositiveBatchSize(t *testing.T) {
	t.Setenv("SW_ITEMS_PER_RUN", "0")

	assert.PanicsWithValue(t, config.ErrBadBatchSize, func() { config.MustLoad() })
}
