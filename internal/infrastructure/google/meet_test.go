// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package google

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConferenceClient_ListTranscripts(t *testing.T) {
	client := NewConferenceClient(newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/conferenceRecords/abc123/transcripts"), r.URL.Path)
		if r.URL.Query().Get("pageToken") == "" {
			writeJSON(t, w, http.StatusOK, map[string]any{
				"transcripts": []map[string]any{
					{
						"name":  "conferenceRecords/abc123/transcripts/t1",
						"state": "FILE_GENERATED",
						"docsDestination": map[string]any{
							"document":  "documents/doc-1",
							"exportUri": "https://docs.google.com/document/d/doc-1/export",
						},
					},
				},
				"nextPageToken": "page-2",
			})
			return
		}
		writeJSON(t, w, http.StatusOK, map[string]any{
			"transcripts": []map[string]any{
				{"name": "conferenceRecords/abc123/transcripts/t2", "state": "STARTED"},
			},
		})
	}))

	transcripts, err := client.ListTranscripts(context.Background(), "ops@example.com", "abc123")

	require.NoError(t, err)
	require.Len(t, transcripts, 2)
	assert.Equal(t, "conferenceRecords/abc123/transcripts/t1", transcripts[0].Name)
	assert.Equal(t, "doc-1", transcripts[0].DocumentID)
	assert.Equal(t, "https://docs.google.com/document/d/doc-1/export", transcripts[0].ExportURI)
	assert.Equal(t, "STARTED", transcripts[1].State)
	assert.Empty(t, transcripts[1].DocumentID)
}

func TestConferenceClient_ListTranscriptsEmpty(t *testing.T) {
	client := NewConferenceClient(newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{})
	}))

	transcripts, err := client.ListTranscripts(context.Background(), "ops@example.com", "abc123")

	require.NoError(t, err)
	assert.Empty(t, transcripts)
}

func TestConferenceClient_ListTranscriptEntries(t *testing.T) {
	client := NewConferenceClient(newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/conferenceRecords/abc123/transcripts/t1/entries"), r.URL.Path)
		writeJSON(t, w, http.StatusOK, map[string]any{
			"transcriptEntries": []map[string]any{
				{
					"participant":  "conferenceRecords/abc123/participants/p1",
					"text":         "Hello",
					"startTime":    "2026-01-01T10:00:01Z",
					"languageCode": "en-US",
				},
				{
					"participant": "conferenceRecords/abc123/participants/p2",
					"text":        "Hi",
					"startTime":   "2026-01-01T10:00:05Z",
				},
			},
		})
	}))

	entries, err := client.ListTranscriptEntries(context.Background(), "ops@example.com", "conferenceRecords/abc123/transcripts/t1")

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Hello", entries[0].Text)
	assert.Equal(t, "en-US", entries[0].LanguageCode)
	assert.Equal(t, "conferenceRecords/abc123/participants/p2", entries[1].Participant)
}
