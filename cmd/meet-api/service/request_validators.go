// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"strconv"
	"strings"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain"
)

// EtagValidator validates an If-Match value and converts it to the KV revision
// used for optimistic locking. Accepted forms: "123", W/"123" and 123.
func EtagValidator(etag string) (uint64, error) {
	raw := strings.TrimSpace(etag)
	if raw == "" {
		return 0, domain.NewValidationError("If-Match header is required")
	}

	// Weak ETags: W/"123" -> "123"
	if strings.HasPrefix(raw, "W/") || strings.HasPrefix(raw, "w/") {
		raw = strings.TrimSpace(raw[2:])
	}
	raw = strings.Trim(raw, `"`)

	revision, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, domain.NewValidationError("If-Match header must carry a numeric revision", err)
	}
	return revision, nil
}

// EtagValue formats a revision as a strong ETag.
func EtagValue(revision uint64) string {
	return strconv.Quote(strconv.FormatUint(revision, 10))
}
