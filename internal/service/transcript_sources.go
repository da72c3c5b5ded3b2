// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/utils"
)

const plainTextMimeType = "text/plain"

// TranscriptRequest identifies the transcript to retrieve.
type TranscriptRequest struct {
	ConferenceID string
	// MeetCode is the meeting code of the space, used to search Drive.
	MeetCode string
	// DocumentID is the Docs document announced by a transcript-ready event.
	DocumentID string
}

// TranscriptContent is a retrieved transcript.
type TranscriptContent struct {
	Text   string
	FileID string
	URL    string
	Source string
}

// TranscriptSource is one strategy for obtaining transcript text.
// Implementations return domain.ErrTranscriptNotReady when nothing is
// available yet.
type TranscriptSource interface {
	Name() string
	Fetch(ctx context.Context, accountRef string, req TranscriptRequest) (*TranscriptContent, error)
}

// MeetEntriesSource builds the transcript from the attributed entries of the
// first transcript of the conference.
type MeetEntriesSource struct {
	Conferences domain.ConferenceClient
}

// Name implements TranscriptSource.
func (s *MeetEntriesSource) Name() string { return "meet_entries" }

// Fetch implements TranscriptSource.
func (s *MeetEntriesSource) Fetch(ctx context.Context, accountRef string, req TranscriptRequest) (*TranscriptContent, error) {
	if req.ConferenceID == "" {
		return nil, fmt.Errorf("no conference id: %w", domain.ErrTranscriptNotReady)
	}

	transcripts, err := s.Conferences.ListTranscripts(ctx, accountRef, req.ConferenceID)
	if err != nil {
		return nil, err
	}
	if len(transcripts) == 0 {
		return nil, fmt.Errorf("no transcripts for conference %s: %w", req.ConferenceID, domain.ErrTranscriptNotReady)
	}
	transcript := transcripts[0]

	entries, err := s.Conferences.ListTranscriptEntries(ctx, accountRef, transcript.Name)
	if err != nil {
		return nil, err
	}
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", entry.StartTime, entry.Participant, entry.Text))
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("transcript %s has no entries: %w", transcript.Name, domain.ErrTranscriptNotReady)
	}

	return &TranscriptContent{
		Text:   strings.Join(lines, "\n"),
		FileID: transcript.DocumentID,
		URL:    utils.DriveFileViewURL(transcript.DocumentID),
		Source: s.Name(),
	}, nil
}

// DriveDocumentSource reads the transcript document Meet writes to Drive.
// A known document is exported as plain text; otherwise Drive is searched for
// a text file named after the meeting code.
type DriveDocumentSource struct {
	Drive domain.DriveClient
}

// Name implements TranscriptSource.
func (s *DriveDocumentSource) Name() string { return "drive_document" }

// Fetch implements TranscriptSource.
func (s *DriveDocumentSource) Fetch(ctx context.Context, accountRef string, req TranscriptRequest) (*TranscriptContent, error) {
	if req.DocumentID != "" {
		content, err := s.Drive.ExportDocument(ctx, accountRef, req.DocumentID, plainTextMimeType)
		if err != nil {
			return nil, err
		}
		return s.content(req.DocumentID, content)
	}

	if req.MeetCode == "" {
		return nil, fmt.Errorf("no document or meet code to search: %w", domain.ErrTranscriptNotReady)
	}
	query := fmt.Sprintf("name contains '%s' and mimeType='%s'", escapeDriveQuery(req.MeetCode), plainTextMimeType)
	files, err := s.Drive.FindFiles(ctx, accountRef, query)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no transcript file for %s: %w", req.MeetCode, domain.ErrTranscriptNotReady)
	}
	if len(files) > 1 {
		slog.DebugContext(ctx, "several transcript files found, using the newest",
			"meet_code", req.MeetCode,
			"file_count", len(files))
	}
	file := files[0]

	content, err := s.Drive.DownloadFile(ctx, accountRef, file.ID)
	if err != nil {
		return nil, err
	}
	return s.content(file.ID, content)
}

func (s *DriveDocumentSource) content(fileID string, content []byte) (*TranscriptContent, error) {
	text := strings.TrimSpace(string(content))
	if text == "" {
		return nil, fmt.Errorf("transcript file %s is empty: %w", fileID, domain.ErrTranscriptNotReady)
	}
	return &TranscriptContent{
		Text:   text,
		FileID: fileID,
		URL:    utils.DriveFileViewURL(fileID),
		Source: s.Name(),
	}, nil
}

// escapeDriveQuery escapes a value placed inside a quoted Drive query term.
func escapeDriveQuery(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	return strings.ReplaceAll(value, `'`, `\'`)
}
