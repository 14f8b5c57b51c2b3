package pagination

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 10, p.PerPage)
}

func TestNewParams(t *testing.T) {
	tests := []struct {
		name            string
		page, perPage   int
		wantPage, wantN int
	}{
		{"valid", 3, 25, 3, 25},
		{"zero page", 0, 10, 1, 10},
		{"negative page", -2, 10, 1, 10},
		{"zero per page", 2, 0, 2, 10},
		{"per page cap", 2, 200, 2, 10},
		{"exactly 100", 1, 100, 1, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParams(tt.page, tt.perPage)
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantN, p.PerPage)
		})
	}
}

func TestParams_Query(t *testing.T) {
	q := NewParams(2, 10).Query()
	assert.Equal(t, "page=2&per_page=10", q.Encode())
}

func TestFromEnvelope_ServerAuthoritative(t *testing.T) {
	env := Envelope[string]{
		Data:        []string{"a", "b"},
		CurrentPage: intPtr(2),
		LastPage:    intPtr(3),
		Total:       intPtr(25),
	}
	p := FromEnvelope(env, NewParams(5, 10))

	assert.Equal(t, []string{"a", "b"}, p.Items)
	assert.Equal(t, 2, p.Page)
	assert.Equal(t, 3, p.LastPage)
	assert.Equal(t, 25, p.Total)
	assert.Equal(t, 10, p.PerPage)
	assert.True(t, p.HasNext())
	assert.True(t, p.HasPrev())
}

func TestFromEnvelope_Fallbacks(t *testing.T) {
	var env Envelope[int]
	require.NoError(t, json.Unmarshal([]byte(`{"data":[1,2,3]}`), &env))

	p := FromEnvelope(env, NewParams(4, 10))

	assert.Equal(t, 4, p.Page)
	assert.Equal(t, 1, p.LastPage)
	assert.Equal(t, 3, p.Total)
	assert.False(t, p.HasNext())
}

func TestFromEnvelope_NilData(t *testing.T) {
	p := FromEnvelope(Envelope[int]{}, DefaultParams())
	assert.NotNil(t, p.Items)
	assert.Empty(t, p.Items)
	assert.Equal(t, 0, p.Total)
	assert.False(t, p.HasPrev())
}
