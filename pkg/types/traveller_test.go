package types

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTraveller(t *testing.T) {
	a := NewTraveller(TravellerAdult)
	b := NewTraveller(TravellerAdult)

	assert.Equal(t, TravellerAdult, a.Type())
	assert.NotEqual(t, a.ID, b.ID)
	id, err := uuid.Parse(a.ID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
	assert.False(t, a.CreatedAt.IsZero())
	assert.NotNil(t, a.Fields)
}

func TestTravellerJSON(t *testing.T) {
	age := 7
	tr := NewTraveller(TravellerChild)
	tr.Name = "Ada"
	tr.Age = &age
	tr.SetField("diet", "vegetarian")

	data, err := json.Marshal(tr)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"child"`)

	var back Traveller
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, TravellerChild, back.Type())
	assert.Equal(t, tr.ID, back.ID)
	assert.Equal(t, "Ada", back.Name)
	require.NotNil(t, back.Age)
	assert.Equal(t, 7, *back.Age)
	assert.Equal(t, "vegetarian", back.Fields["diet"])
}
