// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoalesceString(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   string
	}{
		{"first non-empty wins", []string{"", "primary", "secondary"}, "primary"},
		{"all empty", []string{"", ""}, ""},
		{"no values", nil, ""},
		{"whitespace counts as a value", []string{"", " ", "x"}, " "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CoalesceString(tt.values...))
		})
	}
}
