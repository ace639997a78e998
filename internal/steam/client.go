package steam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/awatari/storewatch/internal/models"
)

// Sentinel errors returned by FetchDetails.
var (
	// ErrNotFound means the store explicitly reported no page for the
	// identifier, or every retry was exhausted. Terminal for this call.
	ErrNotFound = errors.New("store page not found")
	// ErrRateLimited is the classification of an explicit throttling
	// response. Surfaced only when retries are exhausted.
	ErrRateLimited = errors.New("remote rate limit")
)

// Default endpoints of the public storefront API.
const (
	defaultAppListURL    = "https://api.steampowered.com/ISteamApps/GetAppList/v2/"
	defaultAppDetailsURL = "https://store.steampowered.com/api/appdetails"

	userAgent = "Mozilla/5.0 (compatible; storewatch/1.0)"
)

// fallbackRegions are tried in order after the configured primary region
// fails for reasons other than an explicit not-found.
var fallbackRegions = []string{"US", "JP", "DE"}

// Options configures a Client.
type Options struct {
	Lang       string        // store language for details payloads
	Region     string        // primary country code for pricing
	Timeout    time.Duration // per-request timeout
	MaxRetries int           // in-call retries for transient/throttled failures
	MinDelay   time.Duration // baseline spacing between outbound requests
	SlowMult   int           // spacing multiplier during slow mode
	CoolDown   time.Duration // slow mode duration after a throttling signal

	// Endpoint overrides, used by tests; empty means the public API.
	AppListURL    string
	AppDetailsURL string
}

// Client resolves identifiers against the storefront API with retry,
// backoff and run-global pacing.
type Client struct {
	log        *slog.Logger
	client     *http.Client
	pacer      *Pacer
	rnd        *rand.Rand
	lang       string
	region     string
	maxRetries int

	appListURL    string
	appDetailsURL string
}

// NewClient creates a storefront client. The random source drives backoff
// jitter and is injectable for tests.
func NewClient(log *slog.Logger, opts Options, rnd *rand.Rand) *Client {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.AppListURL == "" {
		opts.AppListURL = defaultAppListURL
	}
	if opts.AppDetailsURL == "" {
		opts.AppDetailsURL = defaultAppDetailsURL
	}
	return &Client{
		log:           log,
		client:        &http.Client{Timeout: opts.Timeout},
		pacer:         NewPacer(opts.MinDelay, opts.SlowMult, opts.CoolDown),
		rnd:           rnd,
		lang:          opts.Lang,
		region:        opts.Region,
		maxRetries:    opts.MaxRetries,
		appListURL:    opts.AppListURL,
		appDetailsURL: opts.AppDetailsURL,
	}
}

// Slowed reports whether the shared pacer is inside a slow-mode window.
func (c *Client) Slowed() bool {
	return c.pacer.Slowed()
}

// appListResponse mirrors the envelope of the full catalog listing.
type appListResponse struct {
	AppList struct {
		Apps []models.AppEntry `json:"apps"`
	} `json:"applist"`
}

// detailsEnvelope mirrors one entry of the appdetails response, keyed by the
// decimal identifier.
type detailsEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

// ListAppIDs fetches the full identifier ordering from the catalog listing
// endpoint. The listing may legitimately fail; callers fall back to their
// cached ordering.
func (c *Client) ListAppIDs(ctx context.Context) ([]models.AppID, error) {
	const opn = "steam.ListAppIDs"

	body, err := c.get(ctx, c.appListURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opn, err)
	}

	var parsed appListResponse
	if err = json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%s: failed to decode listing: %w", opn, err)
	}

	ids := make([]models.AppID, 0, len(parsed.AppList.Apps))
	for _, app := range parsed.AppList.Apps {
		if app.AppID > 0 {
			ids = append(ids, app.AppID)
		}
	}

	c.log.DebugContext(ctx, "Fetched catalog listing", "apps", len(ids))

	return ids, nil
}

// FetchDetails resolves one identifier to its raw store record. It tries the
// primary region first, then the fixed fallback regions, returning the first
// published record. Throttled and transient failures are retried in-call
// with exponential backoff and jitter; exhausting retries degrades to
// ErrNotFound so the outer pending queue provides the next-run retry.
func (c *Client) FetchDetails(ctx context.Context, id models.AppID) (*models.AppRecord, error) {
	const opn = "steam.FetchDetails"

	regions := []string{c.region}
	for _, region := range fallbackRegions {
		if region != c.region {
			regions = append(regions, region)
		}
	}

	var lastErr error
	for _, region := range regions {
		if region == "" {
			continue
		}
		rec, err := c.fetchRegion(ctx, id, region)
		if err == nil {
			return rec, nil
		}
		if errors.Is(err, ErrNotFound) {
			// Explicit not-found is terminal: no other region will have
			// a page the store says does not exist.
			return nil, fmt.Errorf("%s: app %d: %w", opn, id, err)
		}
		lastErr = err
	}

	c.log.DebugContext(ctx, "All regions exhausted", "appid", id, "err", lastErr)

	return nil, fmt.Errorf("%s: app %d: retries exhausted (%v): %w", opn, id, lastErr, ErrNotFound)
}

// fetchRegion performs the bounded retry loop for a single region.
func (c *Client) fetchRegion(ctx context.Context, id models.AppID, region string) (*models.AppRecord, error) {
	backoff := 500 * time.Millisecond

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff with up to 50% jitter.
			jitter := time.Duration(c.rnd.Int63n(int64(backoff)/2 + 1))
			select {
			case <-time.After(backoff + jitter):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoff *= 2
		}

		rec, err := c.fetchOnce(ctx, id, region)
		switch {
		case err == nil:
			return rec, nil
		case errors.Is(err, ErrNotFound):
			return nil, err
		case errors.Is(err, ErrRateLimited):
			c.pacer.EnterSlowMode()
			c.log.WarnContext(ctx, "Rate limited, entering slow mode", "appid", id, "attempt", attempt)
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			return nil, err
		default:
			c.log.DebugContext(ctx, "Transient fetch failure", "appid", id, "attempt", attempt, "err", err)
		}

		if attempt == c.maxRetries {
			return nil, err
		}
	}

	return nil, ErrNotFound
}

// fetchOnce issues exactly one details request and classifies the outcome.
func (c *Client) fetchOnce(ctx context.Context, id models.AppID, region string) (*models.AppRecord, error) {
	params := url.Values{}
	params.Set("appids", id.String())
	params.Set("l", c.lang)
	params.Set("cc", region)
	params.Set("filters", "basic,price_overview,release_date,header_image,short_description,genres,is_free,type")

	body, err := c.get(ctx, c.appDetailsURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var envelope map[string]detailsEnvelope
	if err = json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode details payload: %w", err)
	}

	info, ok := envelope[id.String()]
	if !ok || !info.Success || len(info.Data) == 0 || string(info.Data) == "null" {
		return nil, ErrNotFound
	}

	var rec models.AppRecord
	if err = json.Unmarshal(info.Data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode app record: %w", err)
	}
	if strings.TrimSpace(rec.Name) == "" {
		// A record with no name is not a usable store page yet.
		return nil, ErrNotFound
	}
	if rec.AppID == 0 {
		rec.AppID = id
	}

	return &rec, nil
}

// get performs one paced GET and maps the HTTP status to the error model.
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", userAgent)

	c.pacer.Wait()

	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to request %s: %w", rawURL, err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusTooManyRequests || res.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("status %d: %w", res.StatusCode, ErrRateLimited)
	case res.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("status %d: %w", res.StatusCode, ErrNotFound)
	case res.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("status code error: [%d] %s", res.StatusCode, res.Status)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return body, nil
}
