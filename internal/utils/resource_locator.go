// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package utils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/pkg/constants"
)

// meetLinkPattern matches a Google Meet link and captures the meeting code
// Pattern explanation:
// - meet\.google\.com/ - the Meet host followed by a slash
// - ([a-z]{3}-[a-z]{4}-[a-z]{3}) - the xxx-xxxx-xxx meeting code
var meetLinkPattern = regexp.MustCompile(`meet\.google\.com/([a-z]{3}-[a-z]{4}-[a-z]{3})`)

// SpaceCodeFromLink extracts the meeting code from a Meet link.
// Examples:
//   - "https://meet.google.com/abc-defg-hij" -> "abc-defg-hij", true
//   - "meet.google.com/xyz-abcd-efg?authuser=0" -> "xyz-abcd-efg", true
//   - "https://example.com" -> "", false
func SpaceCodeFromLink(link string) (string, bool) {
	if link == "" {
		return "", false
	}
	match := meetLinkPattern.FindStringSubmatch(link)
	if len(match) < 2 {
		return "", false
	}
	return match[1], true
}

// ConferenceIDFromResourceName returns the path segment that follows
// "conferenceRecords" in a Meet resource name, or "" when there is none.
// Examples:
//   - "conferenceRecords/abc123" -> "abc123"
//   - "conferenceRecords/abc123/participants/p1/participantSessions/s1" -> "abc123"
//   - "spaces/xyz" -> ""
func ConferenceIDFromResourceName(name string) string {
	parts := strings.Split(strings.Trim(name, "/"), "/")
	for i := 0; i < len(parts)-1; i++ {
		if parts[i] == constants.ConferenceRecordsPrefix {
			return parts[i+1]
		}
	}
	return ""
}

// ConferenceIDFromTranscriptName returns the conference id of a transcript
// resource name of the form conferenceRecords/{conf}/transcripts/{id}.
func ConferenceIDFromTranscriptName(name string) string {
	return ConferenceIDFromResourceName(name)
}

// ConferenceIDFromSessionName returns the conference id of a participant
// session name. The conference id is the second path segment.
func ConferenceIDFromSessionName(name string) string {
	if id := ConferenceIDFromResourceName(name); id != "" {
		return id
	}
	parts := strings.Split(name, "/")
	if len(parts) >= 2 {
		return parts[1]
	}
	return ""
}

// LastSegment returns the final path segment of a resource name.
func LastSegment(name string) string {
	name = strings.TrimRight(name, "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}

// ConferenceRecordName builds the resource name of a conference record.
func ConferenceRecordName(conferenceID string) string {
	return constants.ConferenceRecordsPrefix + "/" + conferenceID
}

// DriveFileViewURL returns the browser URL of a Drive file.
func DriveFileViewURL(fileID string) string {
	if fileID == "" {
		return ""
	}
	return fmt.Sprintf(constants.DriveFileViewURLFormat, fileID)
}
