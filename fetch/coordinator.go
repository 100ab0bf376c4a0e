// Package fetch implements the coordinator: the component that composes
// cache lookup, rate-limit gating, HTTP fetch, content-type dispatch to
// the dual-format parsers, retry-with-backoff and ledger accounting into
// the three public operations List/View/Download.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gocolly/colly"
	"go.uber.org/zap"

	"github.com/sunerpy/indexproxy/cache"
	"github.com/sunerpy/indexproxy/config"
	"github.com/sunerpy/indexproxy/feedparser"
	"github.com/sunerpy/indexproxy/htmlparser"
	"github.com/sunerpy/indexproxy/ledger"
	"github.com/sunerpy/indexproxy/models"
	"github.com/sunerpy/indexproxy/ratelimit"
)

// DownloadResult is the torrent-file passthrough value: raw bytes plus the
// upstream Content-Type, cached and returned as one unit since no
// component decodes the bytes further.
type DownloadResult struct {
	Data        []byte `json:"data"`
	ContentType string `json:"content_type"`
}

// Fixture lets a test seam stand in for the network on View. It is a
// development artifact and must never be wired into cmd.
type Fixture func(ctx context.Context, id int64) (models.View, error)

// Coordinator is the per-origin fetch pipeline: one cache, one rate
// limiter and one ledger, all scoped to a single upstream. The mirror
// façade holds one Coordinator per configured origin.
type Coordinator struct {
	cfg     config.OriginConfig
	cache   *cache.Cache
	limiter *ratelimit.Limiter
	tracker *ledger.Tracker
	log     *zap.Logger

	mirrorID         string
	retryParseErrors bool
	fixture          Fixture
}

// Option configures a Coordinator beyond its required collaborators.
type Option func(*Coordinator)

// WithMirrorID tags every ledger record this coordinator writes with id,
// for the mirror façade's per-origin health projection.
func WithMirrorID(id string) Option {
	return func(c *Coordinator) { c.mirrorID = id }
}

// WithRetryParseErrors flips the retry wrapper's stance on parse errors.
// The default is to not retry them; this is the documented opt-in for
// deployments that prefer retry-all.
func WithRetryParseErrors(v bool) Option {
	return func(c *Coordinator) { c.retryParseErrors = v }
}

// WithFixture installs a test-only seam for View that bypasses the
// network entirely. Never call this from cmd.
func WithFixture(f Fixture) Option {
	return func(c *Coordinator) { c.fixture = f }
}

func New(cfg config.OriginConfig, ch *cache.Cache, lim *ratelimit.Limiter, tr *ledger.Tracker, log *zap.Logger, opts ...Option) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Coordinator{cfg: cfg, cache: ch, limiter: lim, tracker: tr, log: log}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List fetches (or serves from cache) the origin's listing for q.
func (c *Coordinator) List(ctx context.Context, q ListQuery) ([]models.ListItem, bool, error) {
	query := q.Values()
	key := cache.Key(c.cfg.URL, query)

	var cached []models.ListItem
	if c.cache.Get(key, &cached) {
		c.tracker.TrackCached(c.mirrorID, c.cfg.URL, query)
		return cached, true, nil
	}

	begin := time.Now()
	items, err := retryGeneric(c, ctx, func(ctx context.Context) ([]models.ListItem, error) {
		return c.fetchList(ctx, query, begin)
	})
	if err != nil {
		return nil, false, err
	}
	if err := c.cache.Put(key, c.cfg.ListTTL, items); err != nil {
		c.log.Warn("fetch: list cache put failed", zap.Error(err))
	}
	return items, false, nil
}

// View fetches (or serves from cache) the detail page for id. Cache key
// uses a distinct "view" fragment from List's key so the two never
// collide even when both are keyed off the same origin URL.
func (c *Coordinator) View(ctx context.Context, id int64) (models.View, bool, error) {
	key := cache.Key(c.cfg.URL, url.Values{"__op": {"view"}, "id": {strconv.FormatInt(id, 10)}})

	var cached models.View
	if c.cache.Get(key, &cached) {
		c.tracker.TrackCached(c.mirrorID, c.cfg.URL, url.Values{"id": {strconv.FormatInt(id, 10)}})
		return cached, true, nil
	}

	if c.fixture != nil {
		v, err := c.fixture(ctx, id)
		if err != nil {
			return models.View{}, false, err
		}
		if err := c.cache.Put(key, c.cfg.ViewTTL, v); err != nil {
			c.log.Warn("fetch: view cache put failed (fixture)", zap.Error(err))
		}
		return v, false, nil
	}

	begin := time.Now()
	view, err := retryGeneric(c, ctx, func(ctx context.Context) (models.View, error) {
		return c.fetchView(ctx, id, begin)
	})
	if err != nil {
		return models.View{}, false, err
	}
	if err := c.cache.Put(key, c.cfg.ViewTTL, view); err != nil {
		c.log.Warn("fetch: view cache put failed", zap.Error(err))
	}
	return view, false, nil
}

// Download fetches (or serves from cache) the raw torrent bytes for id.
// Unlike List/View it is not retried: only list/view go through the
// retry loop.
func (c *Coordinator) Download(ctx context.Context, id int64) (DownloadResult, bool, error) {
	key := cache.Key(c.cfg.URL, url.Values{"__op": {"download"}, "id": {strconv.FormatInt(id, 10)}})

	var cached DownloadResult
	if c.cache.Get(key, &cached) {
		c.tracker.TrackCached(c.mirrorID, c.cfg.URL, url.Values{"id": {strconv.FormatInt(id, 10)}})
		return cached, true, nil
	}

	start := time.Now()
	if err := c.limiter.Acquire(ctx); err != nil {
		return DownloadResult{}, false, err
	}
	body, status, contentType, err := c.doGET(ctx, c.downloadURL(id), "*/*; q=0.9")
	elapsed := time.Since(start)
	if err != nil {
		c.tracker.Track(c.mirrorID, c.cfg.URL, nil, false, elapsed)
		return DownloadResult{}, false, err
	}
	if status < 200 || status >= 300 {
		c.tracker.Track(c.mirrorID, c.cfg.URL, nil, false, elapsed)
		return DownloadResult{}, false, &models.HTTPStatusError{Status: status, Body: string(body)}
	}
	c.tracker.Track(c.mirrorID, c.cfg.URL, nil, true, elapsed)

	result := DownloadResult{Data: body, ContentType: contentType}
	if err := c.cache.Put(key, c.cfg.DownloadTTL, result); err != nil {
		c.log.Warn("fetch: download cache put failed", zap.Error(err))
	}
	return result, false, nil
}

func (c *Coordinator) listURL() string {
	return c.cfg.URL
}

func (c *Coordinator) viewURL(id int64) string {
	return strings.TrimRight(c.cfg.URL, "/") + "/view/" + strconv.FormatInt(id, 10)
}

func (c *Coordinator) downloadURL(id int64) string {
	return strings.TrimRight(c.cfg.URL, "/") + "/download/" + strconv.FormatInt(id, 10) + ".torrent"
}

// fetchList performs one attempt within the retry sequence List started at
// begin. A failed attempt is tracked with just its own round-trip time; the
// attempt that finally succeeds is tracked against begin, so its elapsed
// spans the whole sequence (every earlier attempt plus every backoff sleep
// between them), not just its own round trip.
func (c *Coordinator) fetchList(ctx context.Context, query url.Values, begin time.Time) ([]models.ListItem, error) {
	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	u := c.listURL()
	if len(query) > 0 {
		parsed, err := url.Parse(u)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrParseString, err)
		}
		parsed.RawQuery = query.Encode()
		u = parsed.String()
	}

	attemptStart := time.Now()
	body, status, contentType, err := c.doGET(ctx, u, "application/xml, text/html, */*; q=0.9")
	if err != nil {
		c.tracker.Track(c.mirrorID, c.cfg.URL, query, false, time.Since(attemptStart))
		return nil, err
	}
	if status < 200 || status >= 300 {
		c.tracker.Track(c.mirrorID, c.cfg.URL, query, false, time.Since(attemptStart))
		return nil, &models.HTTPStatusError{Status: status, Body: string(body)}
	}

	items, err := dispatchList(contentType, body, c.cfg.URL)
	if err != nil {
		c.tracker.Track(c.mirrorID, c.cfg.URL, query, false, time.Since(attemptStart))
		return nil, err
	}
	c.tracker.Track(c.mirrorID, c.cfg.URL, query, true, time.Since(begin))
	return items, nil
}

// fetchView performs one attempt within the retry sequence View started at
// begin, with the same begin-vs-own-latency split as fetchList: a failed
// attempt's record is just that attempt's round trip, the eventual success
// is tracked against begin so it carries the whole sequence's elapsed time.
func (c *Coordinator) fetchView(ctx context.Context, id int64, begin time.Time) (models.View, error) {
	if err := c.limiter.Acquire(ctx); err != nil {
		return models.View{}, err
	}
	idQuery := url.Values{"id": {strconv.FormatInt(id, 10)}}

	attemptStart := time.Now()
	body, status, contentType, err := c.doGET(ctx, c.viewURL(id), "text/html, */*; q=0.9")
	if err != nil {
		c.tracker.Track(c.mirrorID, c.cfg.URL, idQuery, false, time.Since(attemptStart))
		return models.View{}, err
	}
	if status < 200 || status >= 300 {
		c.tracker.Track(c.mirrorID, c.cfg.URL, idQuery, false, time.Since(attemptStart))
		return models.View{}, &models.HTTPStatusError{Status: status, Body: string(body)}
	}
	if !strings.Contains(strings.ToLower(contentType), "html") {
		c.tracker.Track(c.mirrorID, c.cfg.URL, idQuery, false, time.Since(attemptStart))
		return models.View{}, fmt.Errorf("%w: %s", models.ErrUnsupportedContentType, contentType)
	}

	view, err := htmlparser.ParseDetail(newReader(body), c.cfg.URL)
	if err != nil {
		c.tracker.Track(c.mirrorID, c.cfg.URL, idQuery, false, time.Since(attemptStart))
		return models.View{}, err
	}
	c.tracker.Track(c.mirrorID, c.cfg.URL, idQuery, true, time.Since(begin))
	return view, nil
}

// dispatchList inspects Content-Type and routes to the feed or HTML list
// parser.
func dispatchList(contentType string, body []byte, baseURL string) ([]models.ListItem, error) {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "xml"):
		return feedparser.Parse(newReader(body))
	case strings.Contains(ct, "html"):
		return htmlparser.ParseList(newReader(body), baseURL)
	default:
		return nil, fmt.Errorf("%w: %s", models.ErrUnsupportedContentType, contentType)
	}
}

// doGET issues one GET through a fresh colly collector scoped to this
// call, configured with the origin's user agent, timeouts and optional
// local_address/interface binding. Returns the body bytes, status and
// Content-Type.
func (c *Coordinator) doGET(ctx context.Context, rawURL, accept string) ([]byte, int, string, error) {
	col := colly.NewCollector()
	col.AllowURLRevisit = true
	col.SetRequestTimeout(c.cfg.Timeout)
	col.WithTransport(newTransport(c.cfg.ConnectTimeout, c.cfg.LocalAddress, c.cfg.Interface))

	var (
		respBody []byte
		status   int
		ctype    string
		fetchErr error
	)

	col.OnRequest(func(r *colly.Request) {
		select {
		case <-ctx.Done():
			r.Abort()
		default:
		}
		r.Headers.Set("User-Agent", c.cfg.UserAgent)
		r.Headers.Set("Accept", accept)
	})
	col.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		respBody = append([]byte(nil), r.Body...)
		ctype = r.Headers.Get("Content-Type")
	})
	col.OnError(func(r *colly.Response, err error) {
		fetchErr = err
		status = r.StatusCode
		respBody = append([]byte(nil), r.Body...)
		ctype = r.Headers.Get("Content-Type")
	})

	if err := col.Visit(rawURL); err != nil && fetchErr == nil {
		return nil, 0, "", err
	}
	if ctx.Err() != nil {
		return nil, 0, "", ctx.Err()
	}
	if fetchErr != nil && status == 0 {
		return nil, 0, "", fetchErr
	}
	return respBody, status, ctype, nil
}

// retryGeneric wraps op in a backoff-driven loop: up to cfg.MaxRetries
// extra attempts, each waiting min_interval+1s and re-entering rate-limit
// gating via op itself. Parse errors are not retried unless
// retryParseErrors is set; only the last error is returned.
func retryGeneric[T any](c *Coordinator, ctx context.Context, op func(context.Context) (T, error)) (T, error) {
	var result T

	b := backoff.WithContext(backoff.WithMaxRetries(
		backoff.NewConstantBackOff(c.cfg.MinInterval+time.Second),
		uint64(c.cfg.MaxRetries),
	), ctx)

	err := backoff.Retry(func() error {
		r, err := op(ctx)
		if err == nil {
			result = r
			return nil
		}
		if isParseError(err) && !c.retryParseErrors {
			return backoff.Permanent(err)
		}
		return err
	}, b)
	if err != nil {
		if permErr, ok := err.(*backoff.PermanentError); ok {
			return result, permErr.Unwrap()
		}
		return result, err
	}
	return result, nil
}

func isParseError(err error) bool {
	for _, sentinel := range []error{
		models.ErrParseNumber, models.ErrParseDate, models.ErrParseBoolean,
		models.ErrParseSize, models.ErrParseCategory, models.ErrParseTime,
		models.ErrParseString, models.ErrParseInteger, models.ErrParseXML,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	switch err.(type) {
	case *models.HTMLMissingElementError, *models.HTMLMissingAttributeError, *models.HTMLUnexpectedElementError:
		return true
	}
	return false
}

func newReader(body []byte) *bytes.Reader {
	return bytes.NewReader(body)
}
