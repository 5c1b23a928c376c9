package enquiry

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/staybook/pkg/types"
)

// Option configures a State at construction.
type Option func(*State)

// WithSubmitter sets the collaborator that receives submitted enquiries.
// Without one, submissions are skipped.
func WithSubmitter(s types.Submitter) Option {
	return func(st *State) { st.submitter = s }
}

// WithAvailability sets the resolver consulted whenever propRef changes.
func WithAvailability(r types.AvailabilityResolver) Option {
	return func(st *State) { st.resolver = r }
}

// WithAutoSubmit enables or disables submitting as soon as the date range
// becomes valid. It is enabled by default.
func WithAutoSubmit(on bool) Option {
	return func(st *State) { st.autoSubmit = on }
}

// WithClock replaces time.Now as the reference for "now".
func WithClock(now func() time.Time) Option {
	return func(st *State) { st.now = now }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(st *State) { st.logger = l }
}

// WithContext sets the parent context of availability lookups and
// submissions. Close cancels the derived context.
func WithContext(ctx context.Context) Option {
	return func(st *State) { st.parent = ctx }
}
