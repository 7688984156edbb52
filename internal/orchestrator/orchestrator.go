// Package orchestrator drives a forecast client through its query
// lifecycle: activation, conditional refetch on reconfiguration, periodic
// device relocation and teardown. State changes are published to
// subscribers and projected onto render branches.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/i474232898/forecast-enhancer/internal/forecast"
	"github.com/i474232898/forecast-enhancer/internal/store"
	"github.com/i474232898/forecast-enhancer/internal/weather"
)

var (
	ErrAlreadyActive = errors.New("orchestrator already active")
	ErrNoScheduler   = errors.New("geo refresh requires a scheduler")
	ErrNoAPIKey      = errors.New("api key is required")
)

var validate = validator.New()

// Forecaster is the forecast client surface the orchestrator drives.
type Forecaster interface {
	Copy() weather.Query
	List(g weather.Granularity) forecast.List
	Geo(ctx context.Context) error
	Error(handler func(error))
	Store(s store.Storage, expire store.Expiry)
}

// Scheduler runs job every interval until the returned cancel is called.
type Scheduler interface {
	Every(interval time.Duration, job func()) (cancel func(), err error)
}

// Props are the integrator supplied inputs that may change over time.
type Props[C Forecaster] struct {
	Fields      []weather.Field     `validate:"required,min=1,dive,required"`
	Granularity weather.Granularity `validate:"omitempty,oneof=day hour"`
	// Setup configures the client before every cycle.
	Setup func(C) `validate:"-"`
}

func (p Props[C]) withDefaults() Props[C] {
	if p.Granularity == "" {
		p.Granularity = weather.ByDay
	}
	return p
}

func (p Props[C]) check() error {
	if err := validate.Struct(p); err != nil {
		return err
	}
	for _, f := range p.Fields {
		if !f.Known() {
			return fmt.Errorf("%w: %s", forecast.ErrUnknownField, f)
		}
	}
	return nil
}

type Options[C Forecaster] struct {
	Props Props[C]

	// Geo resolves the device position before the first cycle.
	Geo bool
	// GeoRefreshMinutes re-resolves the position periodically when positive.
	GeoRefreshMinutes int `validate:"gte=0"`

	Storage   store.Storage `validate:"required"`
	Expire    store.Expiry  `validate:"-"`
	Scheduler Scheduler     `validate:"-"`
	Logger    zerolog.Logger `validate:"-"`
}

// Orchestrator owns one forecast client for its whole lifetime.
type Orchestrator[C Forecaster] struct {
	id        uuid.UUID
	client    C
	geo       bool
	refresh   time.Duration
	scheduler Scheduler
	log       zerolog.Logger

	mu        sync.Mutex
	props     Props[C]
	state     State
	active    bool
	epoch     uint64 // bumped on every deactivation
	cycle     uint64
	inflight  map[uint64]int // accessor calls in progress per cycle
	cancelGeo func()
	subs      map[uuid.UUID]func(State)
}

// New validates opts, forwards the persistence binding to client and
// registers the error channel.
func New[C Forecaster](client C, opts Options[C]) (*Orchestrator[C], error) {
	opts.Props = opts.Props.withDefaults()
	if err := validate.Struct(opts); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if err := opts.Props.check(); err != nil {
		return nil, fmt.Errorf("invalid props: %w", err)
	}
	if opts.Geo && opts.GeoRefreshMinutes > 0 && opts.Scheduler == nil {
		return nil, ErrNoScheduler
	}

	id := uuid.New()
	o := &Orchestrator[C]{
		id:        id,
		client:    client,
		geo:       opts.Geo,
		refresh:   time.Duration(opts.GeoRefreshMinutes) * time.Minute,
		scheduler: opts.Scheduler,
		log:       opts.Logger.With().Str("component", "orchestrator").Str("instance", id.String()).Logger(),
		props:     opts.Props,
		inflight:  make(map[uint64]int),
		subs:      make(map[uuid.UUID]func(State)),
	}

	client.Store(opts.Storage, opts.Expire)
	client.Error(o.captureError)
	return o, nil
}

// ForForecast builds the forecast client from an API key and account tier and
// wraps it in an orchestrator.
func ForForecast(apiKey string, pro bool, opts Options[*forecast.Client], clientOpts ...forecast.Option) (*Orchestrator[*forecast.Client], error) {
	if err := validate.Var(apiKey, "required"); err != nil {
		return nil, ErrNoAPIKey
	}
	return New(forecast.New(apiKey, pro, clientOpts...), opts)
}

// ID identifies the instance in logs.
func (o *Orchestrator[C]) ID() uuid.UUID { return o.id }

// Client returns the live client handle.
func (o *Orchestrator[C]) Client() C { return o.client }

// Props returns the props the orchestrator currently runs with.
func (o *Orchestrator[C]) Props() Props[C] {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.props
}

// Activate starts the lifecycle: setup, optional geo resolution with
// periodic refresh, then the first resolution cycle.
func (o *Orchestrator[C]) Activate(ctx context.Context) error {
	o.mu.Lock()
	if o.active {
		o.mu.Unlock()
		return ErrAlreadyActive
	}
	o.active = true
	epoch := o.epoch
	props := o.props
	o.mu.Unlock()

	o.log.Debug().Strs("fields", fieldNames(props.Fields)).Str("by", string(props.Granularity)).Msg("activating")

	if props.Setup != nil {
		props.Setup(o.client)
	}

	if o.geo {
		geoErr := o.locate(ctx, epoch)
		if errors.Is(geoErr, errDeactivated) {
			return nil
		}
		if o.refresh > 0 {
			if err := o.scheduleGeo(epoch); err != nil {
				return err
			}
		}
		if geoErr != nil {
			return nil
		}
		if !o.current(epoch) {
			return nil
		}
	}

	o.ResolveFields(ctx)
	return nil
}

// current tells whether the activation identified by epoch is still live.
func (o *Orchestrator[C]) current(epoch uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active && o.epoch == epoch
}

// scheduleGeo starts the periodic geo refresh for the activation identified
// by epoch. A failure to schedule deactivates the orchestrator so that a
// later Activate can retry.
func (o *Orchestrator[C]) scheduleGeo(epoch uint64) error {
	cancel, err := o.scheduler.Every(o.refresh, o.refreshGeo)
	if err != nil {
		o.mu.Lock()
		if o.epoch == epoch {
			o.active = false
			o.epoch++
			o.cycle++
		}
		o.mu.Unlock()
		o.log.Error().Err(err).Msg("cannot schedule geo refresh")
		return fmt.Errorf("schedule geo refresh: %w", err)
	}

	o.mu.Lock()
	if !o.active || o.epoch != epoch {
		o.mu.Unlock()
		cancel()
		return nil
	}
	prev := o.cancelGeo
	o.cancelGeo = cancel
	o.mu.Unlock()

	if prev != nil {
		prev()
	}
	return nil
}

// Reconfigure applies new props. A resolution cycle runs only when the
// effective query changed; the return value reports whether it did.
func (o *Orchestrator[C]) Reconfigure(ctx context.Context, props Props[C]) (bool, error) {
	props = props.withDefaults()
	if err := props.check(); err != nil {
		return false, fmt.Errorf("invalid props: %w", err)
	}

	o.mu.Lock()
	prevProps := o.props
	o.props = props
	active := o.active
	o.mu.Unlock()

	if !active {
		return false, nil
	}

	before := o.client.Copy()
	before.Fields = prevProps.Fields
	before.Granularity = prevProps.Granularity

	if props.Setup != nil {
		props.Setup(o.client)
	}

	after := o.client.Copy()
	after.Fields = props.Fields
	after.Granularity = props.Granularity

	if !weather.ShouldRefetch(before, after) {
		o.log.Debug().Msg("configuration unchanged")
		return false, nil
	}

	o.log.Debug().Stringer("from", before.Location).Stringer("to", after.Location).Msg("configuration changed, refetching")
	return o.ResolveFields(ctx), nil
}

// Deactivate cancels the periodic geo refresh. Cycles still in flight
// finish but their outcome is discarded.
func (o *Orchestrator[C]) Deactivate() {
	o.mu.Lock()
	cancel := o.cancelGeo
	o.cancelGeo = nil
	o.active = false
	o.epoch++
	o.cycle++
	o.state.GeoLoading = false
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	o.log.Debug().Msg("deactivated")
}

// ResolveFields runs one resolution cycle. Fields resolve one after another
// in the requested order; the first error ends the cycle and the partial
// result set is dropped. The call is a no-op before activation and while the
// device position is being resolved; the return value reports whether a
// cycle ran.
func (o *Orchestrator[C]) ResolveFields(ctx context.Context) bool {
	o.mu.Lock()
	if !o.active {
		o.mu.Unlock()
		return false
	}
	if o.state.GeoLoading {
		o.mu.Unlock()
		o.log.Debug().Msg("geo resolution in flight, skipping cycle")
		return false
	}
	o.cycle++
	cycle := o.cycle
	props := o.props
	o.state.Phase = PhaseLoading
	o.state.Error = nil
	snap := o.state
	o.mu.Unlock()
	o.publish(snap)

	start := time.Now()
	list := o.client.List(props.Granularity)
	results := weather.NewResultSet(len(props.Fields))

	var failure error
	for _, f := range props.Fields {
		if o.errored() {
			break
		}
		get, ok := list[f]
		if !ok {
			failure = fmt.Errorf("%w: %s", forecast.ErrUnknownField, f)
			break
		}
		v, err := o.call(ctx, cycle, get)
		if err != nil {
			failure = err
			break
		}
		results.Set(f, v)
	}

	var info *ErrorInfo
	if failure != nil {
		info = newErrorInfo(failure)
	}

	o.mu.Lock()
	if cycle != o.cycle || !o.active {
		o.mu.Unlock()
		o.log.Debug().Uint64("cycle", cycle).Msg("discarding superseded cycle")
		return true
	}
	if o.state.Error == nil && info != nil {
		o.state.Error = info
	}
	if o.state.Error != nil {
		o.state.Phase = PhaseFailed
		o.state.Results = nil
	} else {
		o.state.Phase = PhaseReady
		o.state.Results = results
	}
	snap = o.state
	o.mu.Unlock()

	if snap.Phase == PhaseFailed {
		o.log.Warn().Err(snap.Error.Err).Uint64("cycle", cycle).Msg("resolution failed")
	} else {
		o.log.Info().Uint64("cycle", cycle).Int("fields", results.Len()).Dur("took", time.Since(start)).Msg("forecast resolved")
	}
	o.publish(snap)
	return true
}

// call runs one accessor on behalf of cycle. Errors the client reports while
// the call is in progress are attributed to that cycle.
func (o *Orchestrator[C]) call(ctx context.Context, cycle uint64, get forecast.Accessor) (any, error) {
	o.mu.Lock()
	o.inflight[cycle]++
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		if o.inflight[cycle]--; o.inflight[cycle] <= 0 {
			delete(o.inflight, cycle)
		}
		o.mu.Unlock()
	}()
	return get(ctx)
}

func (o *Orchestrator[C]) errored() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.Error != nil
}

var errDeactivated = errors.New("orchestrator deactivated")

// locate resolves the device position with the geo loading flag raised.
// A failure fails the current cycle. When the activation identified by
// epoch has ended in the meantime the outcome is dropped and
// errDeactivated returned.
func (o *Orchestrator[C]) locate(ctx context.Context, epoch uint64) error {
	o.mu.Lock()
	if !o.active || o.epoch != epoch {
		o.mu.Unlock()
		return errDeactivated
	}
	o.state.GeoLoading = true
	snap := o.state
	o.mu.Unlock()
	o.publish(snap)

	err := o.client.Geo(ctx)

	var info *ErrorInfo
	if err != nil {
		info = newErrorInfo(err)
	}

	o.mu.Lock()
	if !o.active || o.epoch != epoch {
		o.mu.Unlock()
		o.log.Debug().Msg("dropping geo result of ended activation")
		return errDeactivated
	}
	o.state.GeoLoading = false
	if err != nil {
		if o.state.Error == nil {
			o.state.Error = info
		}
		o.state.Phase = PhaseFailed
		o.state.Results = nil
	}
	snap = o.state
	o.mu.Unlock()

	if err != nil {
		o.log.Warn().Err(err).Msg("geo resolution failed")
	}
	o.publish(snap)
	return err
}

// refreshGeo is the periodic job: relocate, then run a full cycle.
func (o *Orchestrator[C]) refreshGeo() {
	o.mu.Lock()
	active, epoch := o.active, o.epoch
	o.mu.Unlock()
	if !active {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), o.refresh)
	defer cancel()

	if err := o.locate(ctx, epoch); err != nil {
		return
	}
	o.ResolveFields(ctx)
}

// captureError is the standing error channel registered with the client.
// The first error wins until the next cycle clears it. Errors raised by a
// superseded cycle's accessors are dropped.
func (o *Orchestrator[C]) captureError(err error) {
	if err == nil {
		return
	}
	info := newErrorInfo(err)

	o.mu.Lock()
	if !o.active || o.state.Error != nil || o.reportedByStaleCycle() {
		o.mu.Unlock()
		o.log.Debug().Err(err).Msg("suppressing client error")
		return
	}
	o.state.Error = info
	snap := o.state
	o.mu.Unlock()

	o.publish(snap)
}

// reportedByStaleCycle tells whether an error arriving now may come from a
// superseded cycle. With no accessor in flight the error belongs to the
// current cycle. With calls of older cycles in flight it cannot be
// attributed; the current cycle still fails through its accessor's return
// value. Callers hold o.mu.
func (o *Orchestrator[C]) reportedByStaleCycle() bool {
	if len(o.inflight) == 0 {
		return false
	}
	_, current := o.inflight[o.cycle]
	return !current || len(o.inflight) > 1
}

// Snapshot returns the current state.
func (o *Orchestrator[C]) Snapshot() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Subscribe registers fn to receive every state change. The returned func
// removes the subscription.
func (o *Orchestrator[C]) Subscribe(fn func(State)) (unsubscribe func()) {
	key := uuid.New()
	o.mu.Lock()
	o.subs[key] = fn
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		delete(o.subs, key)
		o.mu.Unlock()
	}
}

func (o *Orchestrator[C]) publish(s State) {
	o.mu.Lock()
	subs := make([]func(State), 0, len(o.subs))
	for _, fn := range o.subs {
		subs = append(subs, fn)
	}
	o.mu.Unlock()

	for _, fn := range subs {
		fn(s)
	}
}

func fieldNames(fields []weather.Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = string(f)
	}
	return out
}
