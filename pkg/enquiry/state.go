// Package enquiry implements the observable enquiry record of the booking
// widget: field conversion, validation, reset of stale submission answers,
// automatic submission, and calendar cell rendering.
package enquiry

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/staybook/pkg/observe"
	"github.com/mesh-intelligence/staybook/pkg/types"
)

// EventAvailability is the key notified after the availability source has
// been re-resolved. Calendars refresh on it.
const EventAvailability = "avail"

// TooltipGoodToGo is shown on selected days when no submission error exists.
const TooltipGoodToGo = "Good to go!"

// State is an enquiry session. It validates itself on every change, strips
// answers from a previous submission when the date range moves, and submits
// once the range becomes valid.
//
// One owner mutates a State; only submission responses arrive from other
// goroutines, which the internal lock serializes.
type State struct {
	mu     sync.Mutex
	rec    types.Enquiry
	source types.AvailabilitySource
	closed bool
	gen    uint64 // bumped on every date change

	hub *observe.Hub
	own *observe.Group

	parent   context.Context
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup // submissions, responses included
	inflight sync.WaitGroup // backend exchanges only

	submitter  types.Submitter
	resolver   types.AvailabilityResolver
	autoSubmit bool
	now        func() time.Time
	logger     *zap.Logger
}

// New creates the state of an enquiry about propRef and installs its
// reactions. Release them with Close.
func New(propRef string, opts ...Option) *State {
	s := &State{
		rec:        types.NewEnquiry(propRef),
		hub:        observe.NewHub(),
		parent:     context.Background(),
		autoSubmit: true,
		now:        time.Now,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ctx, s.cancel = context.WithCancel(s.parent)
	s.logger = s.logger.With(zap.String("prop_ref", propRef))

	s.own = observe.NewGroup(s.hub)
	s.own.On(observe.Wildcard, s.react)

	if propRef != "" {
		s.resolveAvailability(propRef)
	}
	return s
}

// SetField converts raw and stores it under name. Dates accept Unix
// seconds, "YYYY-MM-DD" strings, time.Time and types.Date; party counters
// accept non-negative integers; nil removes the attribute. Names without a
// typed field are kept as extra attributes. A change notifies subscribers
// of name and then runs the state's own reactions.
func (s *State) SetField(name string, raw any) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return types.ErrStateClosed
	}
	ev, changed, err := s.assign(name, raw)
	if changed && (name == types.FieldFromDate || name == types.FieldToDate) {
		s.gen++
	}
	s.mu.Unlock()

	if err != nil {
		return err
	}
	if changed {
		s.logger.Debug("field changed", zap.String("field", name), zap.Any("value", ev.New))
		s.hub.Notify(ev)
	}
	return nil
}

// Merge sets every attribute of attrs inside one notification batch, in
// name order. It returns the joined conversion errors; valid attributes are
// applied regardless.
func (s *State) Merge(attrs map[string]any) error {
	names := make([]string, 0, len(attrs))
	for k := range attrs {
		names = append(names, k)
	}
	sort.Strings(names)

	var errs []error
	s.hub.Batch(func() {
		for _, name := range names {
			if err := s.SetField(name, attrs[name]); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}

// assign applies one field. The caller holds s.mu.
func (s *State) assign(name string, raw any) (observe.Event, bool, error) {
	if name == "" {
		return observe.Event{}, false, types.ErrUnknownField
	}
	old, had := s.rec.Get(name)

	conv, typed := converters[name]
	if !typed {
		if raw == nil {
			if !had {
				return observe.Event{}, false, nil
			}
			delete(s.rec.Extra, name)
			return observe.Event{Key: name, Old: old}, true, nil
		}
		if had && reflect.DeepEqual(old, raw) {
			return observe.Event{}, false, nil
		}
		if s.rec.Extra == nil {
			s.rec.Extra = make(map[string]any)
		}
		s.rec.Extra[name] = raw
		return observe.Event{Key: name, Old: old, New: raw}, true, nil
	}

	v, err := conv(raw)
	if err != nil {
		return observe.Event{}, false, fmt.Errorf("%s: %w", name, err)
	}

	switch name {
	case types.FieldPropRef:
		if !setString(&s.rec.PropRef, v.(string)) {
			return observe.Event{}, false, nil
		}
	case types.FieldStatus:
		if !setString(&s.rec.Status, v.(string)) {
			return observe.Event{}, false, nil
		}
	case types.FieldMessage:
		if !setString(&s.rec.Message, v.(string)) {
			return observe.Event{}, false, nil
		}
	case types.FieldFromDate:
		if !setDate(&s.rec.FromDate, v.(types.Date)) {
			return observe.Event{}, false, nil
		}
	case types.FieldToDate:
		if !setDate(&s.rec.ToDate, v.(types.Date)) {
			return observe.Event{}, false, nil
		}
	default:
		n := v.(*int)
		if (n == nil && !had) || (n != nil && had && old == *n) {
			return observe.Event{}, false, nil
		}
		s.rec.SetCount(name, n)
	}

	cur, _ := s.rec.Get(name)
	return observe.Event{Key: name, Old: old, New: cur}, true, nil
}

func setString(dst *string, v string) bool {
	if *dst == v {
		return false
	}
	*dst = v
	return true
}

func setDate(dst *types.Date, v types.Date) bool {
	if dst.Equal(v) {
		return false
	}
	*dst = v
	return true
}

// react dispatches a delivered batch to the state's own reactions. A batch
// that moves both dates triggers one reset and one submission.
func (s *State) react(b observe.Batch) {
	var datesMoved, refMoved bool
	var ref string
	for _, e := range b {
		switch e.Key {
		case types.FieldFromDate, types.FieldToDate:
			datesMoved = true
		case types.FieldPropRef:
			refMoved = true
			ref, _ = e.New.(string)
		}
	}
	if refMoved {
		s.resolveAvailability(ref)
	}
	if datesMoved {
		s.onDateChanged()
	}
}

// onDateChanged runs after fromDate or toDate changed. Answers committed by
// an earlier submission attempt are cleared first so that they cannot leak
// into the new range; then the enquiry is submitted if it has become valid.
func (s *State) onDateChanged() {
	s.resetSubmission()
	if s.autoSubmit {
		s.trySubmit()
	}
}

// resetSubmission strips every attribute except the declared defaults and
// the required fields while the record carries a status or any error.
func (s *State) resetSubmission() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	errs := s.rec.Validate(s.now())
	if s.rec.Status == "" && errs.Empty() {
		s.mu.Unlock()
		return
	}
	before := s.rec.Clone()
	removed := s.rec.Strip()
	s.mu.Unlock()

	if len(removed) == 0 {
		return
	}
	s.logger.Debug("cleared previous submission", zap.Strings("fields", removed))
	s.hub.Batch(func() {
		for _, name := range removed {
			old, _ := before.Get(name)
			s.hub.Notify(observe.Event{Key: name, Old: old})
		}
	})
}

// trySubmit submits in the background when both dates are present and no
// validation error exists. The response is tagged with the current date
// generation; one that arrives after the dates moved again is discarded.
func (s *State) trySubmit() {
	s.mu.Lock()
	if s.closed || s.submitter == nil {
		s.mu.Unlock()
		return
	}
	if s.rec.FromDate.IsZero() || s.rec.ToDate.IsZero() || !s.rec.Validate(s.now()).Empty() {
		s.mu.Unlock()
		return
	}
	payload := s.rec.Serialize()
	gen := s.gen
	ctx := s.ctx
	s.wg.Add(1)
	s.inflight.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		attrs := s.exchange(ctx, payload)
		s.inflight.Done()
		if ctx.Err() != nil {
			return
		}
		s.applyResponse(gen, attrs)
	}()
}

// Submit sends the enquiry now and applies the outcome to the state. It
// returns ErrNotReady while the range is incomplete or invalid, and the
// context error when ctx ends first. Backend and transport failures are
// never returned; they become status and message.
func (s *State) Submit(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return types.ErrStateClosed
	}
	if s.submitter == nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: no submitter configured", types.ErrNotReady)
	}
	if s.rec.FromDate.IsZero() || s.rec.ToDate.IsZero() {
		s.mu.Unlock()
		return fmt.Errorf("%w: both dates are required", types.ErrNotReady)
	}
	if errs := s.rec.Validate(s.now()); !errs.Empty() {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", types.ErrNotReady, firstError(errs))
	}
	payload := s.rec.Serialize()
	gen := s.gen
	s.mu.Unlock()

	attrs := s.exchange(ctx, payload)
	if err := ctx.Err(); err != nil {
		return err
	}
	s.applyResponse(gen, attrs)
	return nil
}

// exchange calls the submitter and returns the attributes to merge: the
// echoed attributes on success, the decoded failure body when the failure
// carries a JSON object, or a generic fatal status otherwise.
func (s *State) exchange(ctx context.Context, payload map[string]any) map[string]any {
	s.logger.Info("submitting enquiry",
		zap.Any(types.FieldFromDate, payload[types.FieldFromDate]),
		zap.Any(types.FieldToDate, payload[types.FieldToDate]))

	resp, err := s.submitter.Submit(ctx, payload)
	if err == nil {
		return resp
	}

	var pe types.PayloadError
	if errors.As(err, &pe) && len(pe.Payload()) > 0 {
		var body map[string]any
		if jerr := json.Unmarshal(pe.Payload(), &body); jerr == nil && body != nil {
			s.logger.Warn("enquiry rejected", zap.Error(err), zap.Any(types.FieldStatus, body[types.FieldStatus]))
			return body
		}
	}
	s.logger.Warn("enquiry submission failed", zap.Error(err))
	return map[string]any{
		types.FieldStatus:  types.StatusError,
		types.FieldMessage: types.MsgFatalError,
	}
}

// applyResponse merges attrs unless the state was closed or the dates have
// changed since the submission of generation gen.
func (s *State) applyResponse(gen uint64, attrs map[string]any) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if gen != s.gen {
		s.mu.Unlock()
		s.logger.Debug("discarding stale submission response", zap.Uint64("generation", gen))
		return
	}
	s.mu.Unlock()

	if err := s.Merge(attrs); err != nil && !errors.Is(err, types.ErrStateClosed) {
		s.logger.Warn("submission response had unusable attributes", zap.Error(err))
	}
}

// resolveAvailability replaces the availability source with the one of ref.
// A lookup failure leaves the state without a source.
func (s *State) resolveAvailability(ref string) {
	var src types.AvailabilitySource
	if s.resolver != nil && ref != "" {
		var err error
		src, err = s.resolver.Resolve(s.ctx, ref)
		if err != nil {
			s.logger.Warn("availability lookup failed", zap.String("ref", ref), zap.Error(err))
			src = nil
		}
	}

	s.mu.Lock()
	if s.closed || s.rec.PropRef != ref {
		s.mu.Unlock()
		return
	}
	old := s.source
	s.source = src
	s.mu.Unlock()

	s.hub.Notify(observe.Event{Key: EventAvailability, Old: old, New: src})
}

// Validate returns the advisory messages of every field. It never fails.
func (s *State) Validate() types.Errors {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Validate(s.now())
}

// Errors returns the validation messages, or nil when there are none.
func (s *State) Errors() types.Errors {
	if errs := s.Validate(); !errs.Empty() {
		return errs
	}
	return nil
}

// FallsBetween reports whether d lies within the selected range, bounds
// included. It is false while either bound is missing.
func (s *State) FallsBetween(d types.Date) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.FallsBetween(d)
}

// RenderCalendarCell returns how a calendar should draw d: days up to now
// and days without availability data are disabled; bookable days inside
// the selected range are marked selected, and flagged with errors and a
// tooltip while the enquiry is invalid. Every day with data carries its
// rate code class and a changeover slot.
func (s *State) RenderCalendarCell(d types.Date) types.CellRender {
	s.mu.Lock()
	src := s.source
	rec := s.rec.Clone()
	s.mu.Unlock()

	var cell types.CellRender
	now := s.now()
	if !d.IsValid() || !d.Time().After(now) || src == nil {
		return cell
	}
	day, ok := src.Day(d)
	if !ok {
		return cell
	}

	cell.Enabled = day.Available
	var classes []string
	if day.Available && rec.FallsBetween(d) {
		classes = append(classes, "selected")
		if errs := rec.Validate(now); !errs.Empty() {
			classes = append(classes, "errors")
			if errs.Has(types.FieldStatus) {
				cell.Tooltip = errs.First(types.FieldStatus)
			} else {
				cell.Tooltip = TooltipGoodToGo
			}
		}
	}
	classes = append(classes, "code-"+string(day.Code))
	if day.Changeover {
		classes = append(classes, "changeover")
	} else {
		classes = append(classes, "")
	}
	cell.Classes = strings.Join(classes, " ")
	return cell
}

// Subscribe registers l for changes to field (or EventAvailability, or
// observe.Wildcard for everything).
//
// Attributes from an automatic submission response are applied on the
// submission goroutine, so l may run there. While a response is being
// applied its batch is open, and changes the owner makes meanwhile are
// delivered with it, on that goroutine. Call Wait before reading state
// that a response or its reactions may have changed.
func (s *State) Subscribe(field string, l observe.Listener) observe.Subscription {
	return s.hub.Subscribe(field, l)
}

// Unsubscribe removes a listener installed with Subscribe.
func (s *State) Unsubscribe(sub observe.Subscription) bool {
	return s.hub.Unsubscribe(sub)
}

// Wait blocks until background submissions have settled: every response
// has been applied and its listeners have returned. A listener must not
// call Wait.
func (s *State) Wait() {
	s.wg.Wait()
}

// Close releases the state's own subscriptions, cancels in-flight
// submissions and waits for their backend exchanges. A response that is
// already being applied is not waited for, so a listener may call Close.
// Later mutations fail with ErrStateClosed. Idempotent.
func (s *State) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.own.Release()
	s.cancel()
	s.inflight.Wait()
}

// Snapshot returns a copy of the enquiry record.
func (s *State) Snapshot() types.Enquiry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Clone()
}

// Serialize returns the wire form of the enquiry.
func (s *State) Serialize() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Serialize()
}

// Attr returns the value of any attribute and whether it is present.
func (s *State) Attr(name string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Get(name)
}

// Availability returns the current availability source, or nil.
func (s *State) Availability() types.AvailabilitySource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

// PropRef returns the property reference.
func (s *State) PropRef() string { return s.Snapshot().PropRef }

// FromDate returns the start of the stay.
func (s *State) FromDate() types.Date { return s.Snapshot().FromDate }

// ToDate returns the end of the stay.
func (s *State) ToDate() types.Date { return s.Snapshot().ToDate }

// Status returns the status set by the last submission response.
func (s *State) Status() string { return s.Snapshot().Status }

// Message returns the message set alongside a non-ok status.
func (s *State) Message() string { return s.Snapshot().Message }

// Adults returns the number of adults, 0 when unset.
func (s *State) Adults() int {
	if a := s.Snapshot().Adults; a != nil {
		return *a
	}
	return 0
}

// firstError picks a deterministic message for error wrapping.
func firstError(errs types.Errors) string {
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		if msg := errs.First(f); msg != "" {
			return msg
		}
	}
	return ""
}
