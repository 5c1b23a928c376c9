package types

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Enquiry field names. They double as the wire names of the serialized
// enquiry and as the labels used in validation messages.
const (
	FieldPropRef  = "propRef"
	FieldFromDate = "fromDate"
	FieldToDate   = "toDate"
	FieldAdults   = "adults"
	FieldChildren = "children"
	FieldInfants  = "infants"
	FieldPets     = "pets"
	FieldStatus   = "status"
	FieldMessage  = "message"
)

// Submission statuses. Backends may report other non-ok values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// DefaultAdults is the party size a new enquiry starts with.
const DefaultAdults = 1

// Validation and submission messages.
const (
	MsgInvalidDate    = "Invalid date"
	MsgStayInPast     = "Your stay should be in the future"
	MsgStartAfterEnd  = "The start of your stay must be before the end"
	MsgEndBeforeStart = "The end of your stay must be after the start"
	MsgUnknownError   = "An unknown error occurred"
	MsgFatalError     = "A fatal error has occurred, sorry for any inconveniences."
	msgRequired       = "The %s field is required"
)

// RequiredFields must all be present for an enquiry to be submitted.
var RequiredFields = []string{FieldPropRef, FieldFromDate, FieldToDate, FieldAdults}

// DefaultFields carry a default value from construction.
var DefaultFields = []string{FieldAdults}

// partyFields are the non-negative party size counters.
var partyFields = map[string]bool{
	FieldAdults:   true,
	FieldChildren: true,
	FieldInfants:  true,
	FieldPets:     true,
}

// IsPartyField reports whether name is one of the party size counters.
func IsPartyField(name string) bool { return partyFields[name] }

// Submitter sends a serialized enquiry to the booking backend. On success
// it returns the attributes the backend echoed back. Failures that carry a
// structured body implement PayloadError.
type Submitter interface {
	Submit(ctx context.Context, payload map[string]any) (map[string]any, error)
}

// Enquiry is a booking request for a property and date range prior to
// confirmation. Optional party counters are nil when unset. Extra holds
// attributes merged from backend responses that have no typed field.
type Enquiry struct {
	PropRef  string
	FromDate Date
	ToDate   Date
	Adults   *int
	Children *int
	Infants  *int
	Pets     *int
	Status   string
	Message  string
	Extra    map[string]any
}

// NewEnquiry returns an enquiry for propRef carrying the declared defaults.
func NewEnquiry(propRef string) Enquiry {
	adults := DefaultAdults
	return Enquiry{PropRef: propRef, Adults: &adults}
}

// Clone returns a deep copy.
func (e Enquiry) Clone() Enquiry {
	c := e
	c.Adults = cloneInt(e.Adults)
	c.Children = cloneInt(e.Children)
	c.Infants = cloneInt(e.Infants)
	c.Pets = cloneInt(e.Pets)
	if e.Extra != nil {
		c.Extra = make(map[string]any, len(e.Extra))
		for k, v := range e.Extra {
			c.Extra[k] = v
		}
	}
	return c
}

// Get returns the value of a field and whether it is present.
func (e Enquiry) Get(name string) (any, bool) {
	switch name {
	case FieldPropRef:
		return e.PropRef, e.PropRef != ""
	case FieldFromDate:
		return e.FromDate, !e.FromDate.IsZero()
	case FieldToDate:
		return e.ToDate, !e.ToDate.IsZero()
	case FieldStatus:
		return e.Status, e.Status != ""
	case FieldMessage:
		return e.Message, e.Message != ""
	}
	if p := e.partyField(name); p != nil {
		if *p == nil {
			return nil, false
		}
		return **p, true
	}
	v, ok := e.Extra[name]
	return v, ok
}

// Fields lists the names of all present fields, typed fields first in
// declaration order, then extras sorted by name.
func (e Enquiry) Fields() []string {
	var names []string
	for _, f := range []string{FieldPropRef, FieldFromDate, FieldToDate, FieldAdults,
		FieldChildren, FieldInfants, FieldPets, FieldStatus, FieldMessage} {
		if _, ok := e.Get(f); ok {
			names = append(names, f)
		}
	}
	extras := make([]string, 0, len(e.Extra))
	for k := range e.Extra {
		extras = append(extras, k)
	}
	sort.Strings(extras)
	return append(names, extras...)
}

// Validate returns the advisory error messages of every field, judged
// against now. It never fails; an empty result means the enquiry is valid.
func (e Enquiry) Validate(now time.Time) Errors {
	errs := Errors{}
	if msg := e.fromDateError(now); msg != "" {
		errs.Add(FieldFromDate, msg)
	}
	if msg := e.toDateError(); msg != "" {
		errs.Add(FieldToDate, msg)
	}
	if e.Status != "" && e.Status != StatusOK {
		msg := e.Message
		if msg == "" {
			msg = MsgUnknownError
		}
		errs.Add(FieldStatus, msg)
	}
	for _, f := range RequiredFields {
		if _, ok := e.Get(f); !ok {
			errs.Add(f, fmt.Sprintf(msgRequired, f))
		}
	}
	return errs
}

// fromDateError defers until toDate is present.
func (e Enquiry) fromDateError(now time.Time) string {
	if e.ToDate.IsZero() {
		return ""
	}
	if e.FromDate.IsInvalid() {
		return MsgInvalidDate
	}
	if e.FromDate.IsValid() && e.FromDate.Time().Before(now) {
		return MsgStayInPast
	}
	if e.FromDate.After(e.ToDate) {
		return MsgStartAfterEnd
	}
	return ""
}

// toDateError defers until fromDate is present.
func (e Enquiry) toDateError() string {
	if e.FromDate.IsZero() {
		return ""
	}
	if e.ToDate.IsInvalid() {
		return MsgInvalidDate
	}
	if e.ToDate.Before(e.FromDate) {
		return MsgEndBeforeStart
	}
	return ""
}

// FallsBetween reports whether d lies within the selected range, bounds
// included. It is false while either bound is missing.
func (e Enquiry) FallsBetween(d Date) bool {
	if !e.FromDate.IsValid() || !e.ToDate.IsValid() || !d.IsValid() {
		return false
	}
	return !d.Before(e.FromDate) && !d.After(e.ToDate)
}

// Strip removes every attribute that is neither required nor a declared
// default, and returns the names it removed.
func (e *Enquiry) Strip() []string {
	var removed []string
	for _, p := range []struct {
		name string
		ptr  **int
	}{
		{FieldChildren, &e.Children},
		{FieldInfants, &e.Infants},
		{FieldPets, &e.Pets},
	} {
		if *p.ptr != nil {
			*p.ptr = nil
			removed = append(removed, p.name)
		}
	}
	if e.Status != "" {
		e.Status = ""
		removed = append(removed, FieldStatus)
	}
	if e.Message != "" {
		e.Message = ""
		removed = append(removed, FieldMessage)
	}
	extras := make([]string, 0, len(e.Extra))
	for k := range e.Extra {
		extras = append(extras, k)
	}
	sort.Strings(extras)
	e.Extra = nil
	return append(removed, extras...)
}

// Serialize returns the wire form of the enquiry: dates as "YYYY-MM-DD",
// everything else passed through. Absent fields are omitted.
func (e Enquiry) Serialize() map[string]any {
	out := make(map[string]any, len(e.Extra)+9)
	for k, v := range e.Extra {
		out[k] = v
	}
	for _, f := range e.Fields() {
		v, _ := e.Get(f)
		if d, ok := v.(Date); ok {
			v = d.String()
		}
		out[f] = v
	}
	return out
}

// partyField returns the address of the counter named name, or nil.
func (e *Enquiry) partyField(name string) **int {
	switch name {
	case FieldAdults:
		return &e.Adults
	case FieldChildren:
		return &e.Children
	case FieldInfants:
		return &e.Infants
	case FieldPets:
		return &e.Pets
	}
	return nil
}

// SetCount sets or, with nil, removes a party counter. It reports whether
// name is a party counter.
func (e *Enquiry) SetCount(name string, n *int) bool {
	p := e.partyField(name)
	if p == nil {
		return false
	}
	*p = cloneInt(n)
	return true
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Errors maps a field name to its validation messages, in rule order.
type Errors map[string][]string

// Add appends msg to the messages of field.
func (e Errors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// First returns the first message of field, or "".
func (e Errors) First(field string) string {
	if msgs := e[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// Has reports whether field has at least one message.
func (e Errors) Has(field string) bool { return len(e[field]) > 0 }

// Empty reports whether there are no messages at all.
func (e Errors) Empty() bool {
	for _, msgs := range e {
		if len(msgs) > 0 {
			return false
		}
	}
	return true
}
