package types

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Traveller categories known to the booking widget. Rosters accept any
// other non-empty category as well.
const (
	TravellerAdult  = "adult"
	TravellerChild  = "child"
	TravellerInfant = "infant"
	TravellerPet    = "pet"
)

// KnownTravellerTypes lists the built-in categories in display order.
var KnownTravellerTypes = []string{TravellerAdult, TravellerChild, TravellerInfant, TravellerPet}

// Traveller is one member of the travelling party. Its category is fixed
// at creation; every other field is opaque to roster reconciliation.
type Traveller struct {
	ID        string         // UUID v7, generated on creation.
	Name      string         // Optional display name.
	Age       *int           // Optional age in years.
	Fields    map[string]any // Free-form per-person answers.
	CreatedAt time.Time      // Timestamp of creation.

	kind string
}

// NewTraveller returns a blank traveller of the given category.
func NewTraveller(kind string) *Traveller {
	return &Traveller{
		ID:        newID(),
		Fields:    map[string]any{},
		CreatedAt: time.Now(),
		kind:      kind,
	}
}

// Type returns the traveller's category.
func (t *Traveller) Type() string { return t.kind }

// SetField records a per-person answer.
func (t *Traveller) SetField(name string, value any) {
	if t.Fields == nil {
		t.Fields = map[string]any{}
	}
	t.Fields[name] = value
}

// travellerJSON is the wire form of a Traveller.
type travellerJSON struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Name      string         `json:"name,omitempty"`
	Age       *int           `json:"age,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// MarshalJSON includes the category, which is not an exported field.
func (t *Traveller) MarshalJSON() ([]byte, error) {
	return json.Marshal(travellerJSON{
		ID:        t.ID,
		Type:      t.kind,
		Name:      t.Name,
		Age:       t.Age,
		Fields:    t.Fields,
		CreatedAt: t.CreatedAt,
	})
}

// UnmarshalJSON restores a traveller, category included.
func (t *Traveller) UnmarshalJSON(b []byte) error {
	var w travellerJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*t = Traveller{ID: w.ID, Name: w.Name, Age: w.Age, Fields: w.Fields, CreatedAt: w.CreatedAt, kind: w.Type}
	return nil
}

// newID generates a UUID v7, falling back to v4 if v7 generation fails.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
