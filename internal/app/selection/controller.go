// Package selection owns the currently viewed date and drives foreground
// loads, refreshes and background prefetch around it.
package selection

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/preston-bernstein/matchday-service/internal/app/fetch"
	"github.com/preston-bernstein/matchday-service/internal/domain/matches"
	"github.com/preston-bernstein/matchday-service/internal/leagues"
	"github.com/preston-bernstein/matchday-service/internal/logging"
	"github.com/preston-bernstein/matchday-service/internal/metrics"
	"github.com/preston-bernstein/matchday-service/internal/store"
	"github.com/preston-bernstein/matchday-service/internal/timeutil"
)

var (
	ErrNotInitialized    = errors.New("selection not initialized")
	ErrDateOutsideWindow = errors.New("date outside window")
)

// Fetcher loads a date into the cache.
type Fetcher interface {
	Fetch(ctx context.Context, date timeutil.DateKey, scope matches.LeagueScope) (fetch.Result, error)
	Refresh(ctx context.Context, date timeutil.DateKey, scope matches.LeagueScope) (fetch.Result, error)
}

// Prefetcher warms window dates in the background.
type Prefetcher interface {
	Prefetch(window []timeutil.DateKey, scope matches.LeagueScope, excluding timeutil.DateKey) int
}

// Options configures a Controller. Leagues and Prefetcher may be nil.
type Options struct {
	Radius     int
	Leagues    leagues.Source
	Prefetcher Prefetcher
	Logger     *slog.Logger
	Metrics    *metrics.Recorder
	Now        func() time.Time
}

// Controller is the state machine behind one viewing session.
type Controller struct {
	fetcher    Fetcher
	cache      *store.CacheStore
	leagues    leagues.Source
	prefetcher Prefetcher
	logger     *slog.Logger
	metrics    *metrics.Recorder
	now        func() time.Time
	radius     int
	session    string

	mu        sync.Mutex
	state     State
	window    []timeutil.DateKey
	today     timeutil.DateKey
	requested timeutil.DateKey
	token     uint64
	subs      map[int]chan State
	nextSub   int
}

// New constructs an idle Controller over fetcher and cache.
func New(fetcher Fetcher, cache *store.CacheStore, opts Options) *Controller {
	if opts.Radius < 0 {
		opts.Radius = timeutil.DefaultWindowRadius
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	c := &Controller{
		fetcher:    fetcher,
		cache:      cache,
		leagues:    opts.Leagues,
		prefetcher: opts.Prefetcher,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		now:        opts.Now,
		radius:     opts.Radius,
		session:    uuid.NewString(),
		subs:       make(map[int]chan State),
	}
	c.state = State{Session: c.session, Phase: PhaseIdle, Index: -1, UpdatedAt: c.now()}
	return c
}

// Session identifies this controller in logs and events.
func (c *Controller) Session() string {
	return c.session
}

// Init builds the window around today, loads today in the foreground and, on
// success, hands the rest of the window to the prefetcher.
func (c *Controller) Init(ctx context.Context) error {
	today := timeutil.DateOf(c.now())
	c.mu.Lock()
	c.resetWindowLocked(today)
	c.mu.Unlock()

	c.logInfo("selection initialized",
		slog.String(logging.FieldDate, today.String()),
		slog.Int("radius", c.radius),
	)
	if err := c.load(ctx, today, false); err != nil {
		return err
	}
	c.prefetch()
	return nil
}

// SelectDate makes date the viewed date. A fresh cache entry is served
// without touching the network.
func (c *Controller) SelectDate(ctx context.Context, date timeutil.DateKey) error {
	c.mu.Lock()
	if len(c.window) == 0 {
		c.mu.Unlock()
		return ErrNotInitialized
	}
	if timeutil.IndexOf(c.window, date) < 0 {
		c.mu.Unlock()
		return ErrDateOutsideWindow
	}
	hit := c.cache.IsValid(date, c.now())
	c.metrics.RecordCacheLookup(hit)
	if hit {
		c.token++
		c.requested = date
		c.setLocked(PhaseReady, date, nil)
		c.mu.Unlock()
		c.logDebug("selection served from cache", slog.String(logging.FieldDate, date.String()))
		return nil
	}
	c.mu.Unlock()
	return c.load(ctx, date, false)
}

// Refresh drops the viewed date's cache entry and fetches it again.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	date := c.state.Date
	initialized := len(c.window) > 0
	c.mu.Unlock()
	if !initialized || date.IsZero() {
		return ErrNotInitialized
	}
	return c.load(ctx, date, true)
}

// Retry repeats the foreground load of the most recently requested date.
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	date := c.requested
	c.mu.Unlock()
	if date.IsZero() {
		return c.Init(ctx)
	}
	return c.load(ctx, date, false)
}

// Tick is the periodic maintenance step: it initializes an idle controller,
// rebuilds the window when the day rolls over, retries a failed foreground
// load and prefetches whatever in the window has gone stale.
func (c *Controller) Tick(ctx context.Context) error {
	c.mu.Lock()
	phase := c.state.Phase
	today := c.today
	c.mu.Unlock()

	if phase == PhaseIdle {
		return c.Init(ctx)
	}
	if current := timeutil.DateOf(c.now()); current != today {
		return c.rollover(ctx, current)
	}
	if phase == PhaseError {
		if err := c.Retry(ctx); err != nil {
			return err
		}
	}
	c.prefetch()
	return nil
}

func (c *Controller) rollover(ctx context.Context, today timeutil.DateKey) error {
	c.mu.Lock()
	previous := c.today
	c.resetWindowLocked(today)
	pruned := c.cache.Retain(c.window)
	target := today
	if timeutil.IndexOf(c.window, c.state.Date) >= 0 {
		target = c.state.Date
	}
	c.mu.Unlock()

	c.logInfo("window rolled over",
		slog.String("previous", previous.String()),
		slog.String(logging.FieldDate, today.String()),
		slog.Int("pruned", pruned),
	)
	if err := c.SelectDate(ctx, target); err != nil {
		return err
	}
	c.prefetch()
	return nil
}

// load runs a foreground fetch for date. Only the newest request may move
// the state; results of superseded requests still land in the cache.
func (c *Controller) load(ctx context.Context, date timeutil.DateKey, force bool) error {
	c.mu.Lock()
	c.token++
	token := c.token
	c.requested = date
	c.setLocked(PhaseLoading, date, nil)
	c.mu.Unlock()

	scope := c.scope()
	var (
		res fetch.Result
		err error
	)
	if force {
		res, err = c.fetcher.Refresh(ctx, date, scope)
	} else {
		res, err = c.fetcher.Fetch(ctx, date, scope)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if token != c.token {
		c.logDebug("selection result superseded", slog.String(logging.FieldDate, date.String()))
		return err
	}
	if err != nil {
		c.setLocked(PhaseError, date, err)
		c.logWarn("foreground load failed",
			slog.String(logging.FieldDate, date.String()),
			slog.Any("err", err),
		)
		return err
	}
	c.setLocked(PhaseReady, date, nil)
	c.logDebug("foreground load ready",
		slog.String(logging.FieldDate, date.String()),
		slog.Int(logging.FieldCount, len(res.Matches)),
		slog.Bool("partial", res.Partial()),
	)
	return nil
}

func (c *Controller) prefetch() {
	if c.prefetcher == nil {
		return
	}
	c.mu.Lock()
	window := append([]timeutil.DateKey(nil), c.window...)
	excluding := c.state.Date
	c.mu.Unlock()
	c.prefetcher.Prefetch(window, c.scope(), excluding)
}

func (c *Controller) scope() matches.LeagueScope {
	if c.leagues == nil {
		return nil
	}
	return c.leagues.DisplayLeagues()
}

// MatchesFor returns the cached entry for date. ok is false when the date
// has never been fetched.
func (c *Controller) MatchesFor(date timeutil.DateKey) (store.Entry, bool) {
	return c.cache.Get(date)
}

// State returns the latest snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Window returns a copy of the current date window.
func (c *Controller) Window() []timeutil.DateKey {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]timeutil.DateKey(nil), c.window...)
}

// Today returns the day the window is centered on.
func (c *Controller) Today() timeutil.DateKey {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.today
}

// Subscribe returns a channel that receives state snapshots, starting with
// the current one. Slow readers only ever see the latest snapshot. The
// returned func unsubscribes and closes the channel.
func (c *Controller) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.state
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
			close(ch)
		})
	}
}

func (c *Controller) resetWindowLocked(today timeutil.DateKey) {
	c.today = today
	c.window = timeutil.BuildWindow(today, c.radius)
}

func (c *Controller) setLocked(phase Phase, date timeutil.DateKey, err error) {
	c.state.Seq++
	c.state.Phase = phase
	c.state.Date = date
	c.state.Index = timeutil.IndexOf(c.window, date)
	c.state.Reason = ""
	if err != nil {
		c.state.Reason = err.Error()
	}
	c.state.UpdatedAt = c.now()

	for _, ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- c.state:
		default:
		}
	}
}

func (c *Controller) logInfo(msg string, args ...any) {
	logging.Info(c.logger, msg, append(args, slog.String(logging.FieldSession, c.session))...)
}

func (c *Controller) logDebug(msg string, args ...any) {
	logging.Debug(c.logger, msg, append(args, slog.String(logging.FieldSession, c.session))...)
}

func (c *Controller) logWarn(msg string, args ...any) {
	logging.Warn(c.logger, msg, append(args, slog.String(logging.FieldSession, c.session))...)
}
