package engage

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Mode selects the delivery strategy.
type Mode string

const (
	// ModePerRecord issues one user call and one call per event for every
	// record, paced to the requests-per-second cap.
	ModePerRecord Mode = "per-record"
	// ModeBulk groups records into batches and uses the bulk endpoints,
	// halving the batch size when the API rate-limits.
	ModeBulk Mode = "bulk"
)

// DispatcherConfig tunes delivery behavior.
type DispatcherConfig struct {
	Mode              Mode
	RequestsPerSecond float64
	MaxAttempts       int
	BackoffBase       time.Duration
	BatchSize         int
	MinBatchSize      int
	Cooldown          time.Duration
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	if c.Mode == "" {
		c.Mode = ModePerRecord
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 10
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 25
	}
	if c.MinBatchSize <= 0 {
		c.MinBatchSize = 5
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 30 * time.Second
	}
	return c
}

// Failure records one permanently failed call.
type Failure struct {
	Index      int    `json:"index"`
	Identifier string `json:"identifier"`
	Message    string `json:"message"`
	Status     int    `json:"status"`
}

// CallSummary aggregates outcomes for one call kind.
type CallSummary struct {
	Attempted int       `json:"attempted"`
	Succeeded int       `json:"succeeded"`
	Failures  []Failure `json:"failures,omitempty"`
}

// EventSummary is the outcome of one event kind, in dispatch order.
type EventSummary struct {
	Name string `json:"name"`
	CallSummary
}

// Summary is the run-level dispatch report. User upserts and each event kind
// keep separate counters and failure lists.
type Summary struct {
	Mode   Mode           `json:"mode"`
	Users  CallSummary    `json:"users"`
	Events []EventSummary `json:"events"`
}

// Succeeded reports whether every attempted call landed.
func (s Summary) Succeeded() bool {
	if len(s.Users.Failures) > 0 {
		return false
	}
	for _, ev := range s.Events {
		if len(ev.Failures) > 0 {
			return false
		}
	}
	return true
}

// Dispatcher delivers a set of records to the API. It holds no per-run
// state; every Dispatch call threads its own runState, so one Dispatcher is
// reusable across runs.
type Dispatcher struct {
	client *Client
	cfg    DispatcherConfig

	// sleep is swapped out by tests.
	sleep func(time.Duration)
}

// NewDispatcher builds a dispatcher over a client.
func NewDispatcher(client *Client, cfg DispatcherConfig) *Dispatcher {
	return &Dispatcher{client: client, cfg: cfg.withDefaults(), sleep: time.Sleep}
}

// runState carries the mutable retry and pacing state of one dispatch run.
type runState struct {
	batchSize int

	mu          sync.Mutex
	lastRequest time.Time
}

// pace blocks until the minimum inter-request interval has elapsed since the
// previous call. The last-request time is mutex-guarded so the pacing
// contract survives if callers ever dispatch from multiple goroutines.
func (d *Dispatcher) pace(st *runState) {
	interval := time.Duration(float64(time.Second) / d.cfg.RequestsPerSecond)
	st.mu.Lock()
	last := st.lastRequest
	now := time.Now()
	if !last.IsZero() {
		if wait := interval - now.Sub(last); wait > 0 {
			d.sleep(wait)
			now = now.Add(wait)
		}
	}
	st.lastRequest = now
	st.mu.Unlock()
}

// call runs one paced API call, retrying with exponential backoff on 429
// only. Other failures return after the first attempt.
func (d *Dispatcher) call(st *runState, fn func() error) error {
	var err error
	for attempt := 0; attempt < d.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			d.sleep(d.cfg.BackoffBase << (attempt - 1))
		}
		d.pace(st)
		err = fn()
		if err == nil || !IsRateLimited(err) {
			return err
		}
	}
	return err
}

// eventNames returns the distinct event names across records in first-seen
// order; the dual workflow yields registration before attendance.
func eventNames(records []Record) []string {
	seen := map[string]bool{}
	var names []string
	for _, r := range records {
		for _, ev := range r.Events {
			if !seen[ev.EventName] {
				seen[ev.EventName] = true
				names = append(names, ev.EventName)
			}
		}
	}
	return names
}

// ParseMode validates a mode identifier from a request or flag.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModePerRecord, ModeBulk:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown dispatch mode %q (expected %q or %q)", s, ModePerRecord, ModeBulk)
}

// Dispatch delivers all records in the configured mode. Records are sent in
// input order. Dispatch never returns an error: delivery failures are
// partial by design and land in the summary.
func (d *Dispatcher) Dispatch(ctx context.Context, records []Record) Summary {
	return d.DispatchWithMode(ctx, records, d.cfg.Mode)
}

// DispatchWithMode delivers all records, overriding the configured mode for
// this run only.
func (d *Dispatcher) DispatchWithMode(ctx context.Context, records []Record, mode Mode) Summary {
	st := &runState{batchSize: d.cfg.BatchSize}
	sum := Summary{Mode: mode}
	for _, name := range eventNames(records) {
		sum.Events = append(sum.Events, EventSummary{Name: name})
	}

	if mode == ModeBulk {
		d.dispatchBulk(ctx, st, records, &sum)
	} else {
		d.dispatchPerRecord(ctx, st, records, &sum)
	}

	d.retrySweep(ctx, st, records, &sum)
	return sum
}

func (d *Dispatcher) dispatchPerRecord(ctx context.Context, st *runState, records []Record, sum *Summary) {
	for _, rec := range records {
		d.userCall(ctx, st, rec, sum)
		for _, ev := range rec.Events {
			d.eventCall(ctx, st, rec, ev, sum)
		}
	}
}

func (d *Dispatcher) userCall(ctx context.Context, st *runState, rec Record, sum *Summary) {
	sum.Users.Attempted++
	err := d.call(st, func() error { return d.client.UpsertUser(ctx, rec.User) })
	if err == nil {
		sum.Users.Succeeded++
		return
	}
	sum.Users.Failures = append(sum.Users.Failures, failure(rec, err))
}

func (d *Dispatcher) eventCall(ctx context.Context, st *runState, rec Record, ev EventPayload, sum *Summary) {
	es := sum.eventSummary(ev.EventName)
	es.Attempted++
	err := d.call(st, func() error { return d.client.FireEvent(ctx, ev) })
	if err == nil {
		es.Succeeded++
		return
	}
	es.Failures = append(es.Failures, failure(rec, err))
}

// dispatchBulk sends batched calls. The first pass pairs bulk user upserts
// with the first event kind; each later event kind runs as its own pass so
// all registration batches land before any attendance batch.
func (d *Dispatcher) dispatchBulk(ctx context.Context, st *runState, records []Record, sum *Summary) {
	names := eventNames(records)

	for pass, name := range names {
		offset := 0
		for offset < len(records) {
			end := offset + st.batchSize
			if end > len(records) {
				end = len(records)
			}
			chunk := records[offset:end]
			if pass == 0 {
				d.bulkUsersChunk(ctx, st, chunk, sum)
			}
			d.bulkEventsChunk(ctx, st, chunk, name, sum)
			offset = end
		}
	}

	// Records with no events still need their user upsert.
	if len(names) == 0 {
		offset := 0
		for offset < len(records) {
			end := offset + st.batchSize
			if end > len(records) {
				end = len(records)
			}
			d.bulkUsersChunk(ctx, st, records[offset:end], sum)
			offset = end
		}
	}
}

// bulkUsersChunk sends one bulk user-upsert call for a batch. A 429 halves
// the batch size for subsequent batches and retries this same batch after
// the cool-down; any other failure falls back to per-record calls so the
// failing rows can be named.
func (d *Dispatcher) bulkUsersChunk(ctx context.Context, st *runState, chunk []Record, sum *Summary) {
	users := make([]UserPayload, len(chunk))
	for i, rec := range chunk {
		users[i] = rec.User
	}

	sum.Users.Attempted += len(chunk)
	err := d.bulkCall(st, func() error { return d.client.BulkUpsertUsers(ctx, users) })
	switch {
	case err == nil:
		sum.Users.Succeeded += len(chunk)
	case IsRateLimited(err):
		for _, rec := range chunk {
			sum.Users.Failures = append(sum.Users.Failures, failure(rec, err))
		}
	default:
		sum.Users.Attempted -= len(chunk)
		for _, rec := range chunk {
			d.userCall(ctx, st, rec, sum)
		}
	}
}

func (d *Dispatcher) bulkEventsChunk(ctx context.Context, st *runState, chunk []Record, name string, sum *Summary) {
	var events []EventPayload
	var carriers []Record
	for _, rec := range chunk {
		for _, ev := range rec.Events {
			if ev.EventName == name {
				events = append(events, ev)
				carriers = append(carriers, rec)
			}
		}
	}
	if len(events) == 0 {
		return
	}

	es := sum.eventSummary(name)
	es.Attempted += len(events)
	err := d.bulkCall(st, func() error { return d.client.BulkFireEvents(ctx, events) })
	switch {
	case err == nil:
		es.Succeeded += len(events)
	case IsRateLimited(err):
		for _, rec := range carriers {
			es.Failures = append(es.Failures, failure(rec, err))
		}
	default:
		es.Attempted -= len(events)
		for i, ev := range events {
			d.eventCall(ctx, st, carriers[i], ev, sum)
		}
	}
}

// bulkCall runs one paced bulk call. On 429 it halves the batch size for
// subsequent batches (floored at the minimum), cools down, and retries the
// same batch up to the attempt cap.
func (d *Dispatcher) bulkCall(st *runState, fn func() error) error {
	var err error
	for attempt := 0; attempt < d.cfg.MaxAttempts; attempt++ {
		d.pace(st)
		err = fn()
		if err == nil || !IsRateLimited(err) {
			return err
		}
		if st.batchSize/2 >= d.cfg.MinBatchSize {
			st.batchSize /= 2
		} else {
			st.batchSize = d.cfg.MinBatchSize
		}
		if attempt+1 < d.cfg.MaxAttempts {
			d.sleep(d.cfg.Cooldown)
		}
	}
	return err
}

// retrySweep re-attempts, once, only the failures that were rate-limited,
// after a final cool-down. Other failures stay as recorded.
func (d *Dispatcher) retrySweep(ctx context.Context, st *runState, records []Record, sum *Summary) {
	if !hasRateLimitedFailure(sum) {
		return
	}
	d.sleep(d.cfg.Cooldown)

	byIndex := make(map[int]Record, len(records))
	for _, rec := range records {
		byIndex[rec.Index] = rec
	}

	sum.Users.Failures = d.sweepFailures(sum.Users.Failures, func(f Failure) error {
		d.pace(st)
		return d.client.UpsertUser(ctx, byIndex[f.Index].User)
	}, &sum.Users.Succeeded)

	for i := range sum.Events {
		es := &sum.Events[i]
		es.Failures = d.sweepFailures(es.Failures, func(f Failure) error {
			rec := byIndex[f.Index]
			for _, ev := range rec.Events {
				if ev.EventName == es.Name {
					d.pace(st)
					return d.client.FireEvent(ctx, ev)
				}
			}
			return nil
		}, &es.Succeeded)
	}
}

func (d *Dispatcher) sweepFailures(failures []Failure, retry func(Failure) error, succeeded *int) []Failure {
	var remaining []Failure
	for _, f := range failures {
		if f.Status != 429 {
			remaining = append(remaining, f)
			continue
		}
		if err := retry(f); err != nil {
			f.Message = err.Error()
			f.Status = StatusOf(err)
			remaining = append(remaining, f)
			continue
		}
		*succeeded++
	}
	return remaining
}

func hasRateLimitedFailure(sum *Summary) bool {
	for _, f := range sum.Users.Failures {
		if f.Status == 429 {
			return true
		}
	}
	for _, ev := range sum.Events {
		for _, f := range ev.Failures {
			if f.Status == 429 {
				return true
			}
		}
	}
	return false
}

func (s *Summary) eventSummary(name string) *EventSummary {
	for i := range s.Events {
		if s.Events[i].Name == name {
			return &s.Events[i]
		}
	}
	s.Events = append(s.Events, EventSummary{Name: name})
	return &s.Events[len(s.Events)-1]
}

func failure(rec Record, err error) Failure {
	return Failure{
		Index:      rec.Index,
		Identifier: rec.Identifier,
		Message:    err.Error(),
		Status:     StatusOf(err),
	}
}
