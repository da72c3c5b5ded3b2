// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package utils

import (
	"crypto/rand"
	"crypto/subtle"

	"github.com/akamensky/base58"
	"github.com/google/uuid"
)

// NewChannelID returns an id for a calendar push channel.
func NewChannelID() string {
	return uuid.NewString()
}

// NewChannelToken returns a random token attached to a calendar push channel.
// Google echoes it in X-Goog-Channel-Token on every notification.
func NewChannelToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base58.Encode(buf), nil
}

// ChannelTokenMatches compares a received channel token with the stored one.
// An empty stored token accepts every notification.
func ChannelTokenMatches(stored, received string) bool {
	if stored == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(received)) == 1
}
