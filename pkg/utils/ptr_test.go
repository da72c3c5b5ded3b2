// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStringPtrValue(t *testing.T) {
	p := StringPtr("conf-1")
	assert.Equal(t, "conf-1", StringValue(p))
	assert.Equal(t, "", StringValue(nil))

	*p = "changed"
	assert.Equal(t, "changed", StringValue(p))
}

func TestTimePtrValue(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	assert.True(t, TimeValue(TimePtr(now)).Equal(now))
	assert.True(t, TimeValue(nil).IsZero())
}
