package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckSchema(t *testing.T) {
	tests := []struct {
		name   string
		doc    string
		fields []string
	}{
		{
			name: "valid",
			doc:  `{"baseUrl": "http://localhost:8080", "seed": 9007199254740993, "scenarios": [{"name": "a", "weight": 0.5, "path": "/x"}]}`,
		},
		{
			name:   "negative weight",
			doc:    `{"scenarios": [{"name": "a", "weight": -1, "path": "/x"}]}`,
			fields: []string{"scenarios[0].weight"},
		},
		{
			name:   "fractional seed",
			doc:    `{"seed": 1.5}`,
			fields: []string{"seed"},
		},
		{
			name:   "missing path",
			doc:    `{"scenarios": [{"name": "a", "weight": 1}]}`,
			fields: []string{"scenarios[0]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckSchema([]byte(tt.doc))
			if len(tt.fields) == 0 {
				require.NoError(t, err)
				return
			}

			var errs *ValidationErrors
			require.True(t, errors.As(err, &errs), "got %v", err)
			var got []string
			for _, e := range errs.Errors {
				got = append(got, e.Field)
			}
			assert.Equal(t, tt.fields, got)
		})
	}
}

func TestCheckSchema_InvalidJSON(t *testing.T) {
	err := CheckSchema([]byte(`{"scenarios": [`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON")
}
