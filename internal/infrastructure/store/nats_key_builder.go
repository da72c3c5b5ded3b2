// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
)

// Common key prefixes
const (
	// Entity prefixes
	KeyPrefixMeetingRecord = "meeting"
	KeyPrefixEventLog      = "event-log"
	KeyPrefixCredential    = "credential"

	// KeySettings is the key of the single settings document
	KeySettings = "settings"

	// Index prefixes
	KeyPrefixIndex              = "index"
	KeyPrefixIndexConference    = "conference"
	KeyPrefixIndexStatus        = "status"
	KeyPrefixIndexCalendarEvent = "calendar-event"
	KeyPrefixIndexMeeting       = "meeting"
)

// plainSegmentPattern matches values that are safe to use verbatim in a NATS KV key
var plainSegmentPattern = regexp.MustCompile(`^[-_=a-zA-Z0-9]+$`)

// KeyBuilder provides utilities for building consistent NATS KV keys
type KeyBuilder struct {
	prefix string
}

// NewKeyBuilder creates a new key builder with an optional prefix
func NewKeyBuilder(prefix string) *KeyBuilder {
	return &KeyBuilder{
		prefix: prefix,
	}
}

// EntityKey builds a key for an entity (e.g., "meeting/uid-123")
func (kb *KeyBuilder) EntityKey(entityType, uid string) string {
	return kb.applyPrefix(fmt.Sprintf("%s/%s", entityType, Segment(uid)))
}

// EntityPrefix returns the key prefix shared by all entities of a type
func (kb *KeyBuilder) EntityPrefix(entityType string) string {
	return kb.applyPrefix(entityType + "/")
}

// IndexKey builds a key for an index (e.g., "index/conference/abc123/meeting-uid")
func (kb *KeyBuilder) IndexKey(indexType, indexValue, entityUID string) string {
	return kb.IndexPrefix(indexType, indexValue) + Segment(entityUID)
}

// IndexPrefix returns the key prefix shared by every entity indexed under one value
func (kb *KeyBuilder) IndexPrefix(indexType, indexValue string) string {
	return kb.applyPrefix(fmt.Sprintf("%s/%s/%s/", KeyPrefixIndex, indexType, Segment(indexValue)))
}

// CompoundKey builds a compound key from multiple parts
func (kb *KeyBuilder) CompoundKey(parts ...string) string {
	return kb.applyPrefix(strings.Join(parts, "/"))
}

// applyPrefix adds the builder's prefix if one is set
func (kb *KeyBuilder) applyPrefix(key string) string {
	if kb.prefix == "" {
		return key
	}
	return fmt.Sprintf("%s/%s", kb.prefix, key)
}

// Segment returns value unchanged when it only uses characters valid in a
// NATS KV key, and a "b64." prefixed URL-safe base64 form otherwise.
//
// NATS limitations: https://docs.nats.io/nats-concepts/jetstream/key-value-store#notes
func Segment(value string) string {
	if plainSegmentPattern.MatchString(value) {
		return value
	}
	return "b64." + base64.RawURLEncoding.EncodeToString([]byte(value))
}

// DecodeSegment reverses Segment.
func DecodeSegment(segment string) (string, error) {
	encoded, ok := strings.CutPrefix(segment, "b64.")
	if !ok {
		return segment, nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// StatusSlug turns a status such as "In Progress" into an index value such as "in-progress"
func StatusSlug(status string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(status)), " ", "-")
}
