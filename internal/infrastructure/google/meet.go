// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package google

import (
	"context"

	"google.golang.org/api/meet/v2"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/utils"
)

const transcriptPageSize = 100

// ConferenceClient implements domain.ConferenceClient on the Meet v2 API
type ConferenceClient struct {
	*Client
}

// Ensure that ConferenceClient implements domain.ConferenceClient
var _ domain.ConferenceClient = (*ConferenceClient)(nil)

// NewConferenceClient creates a new Meet client
func NewConferenceClient(client *Client) *ConferenceClient {
	return &ConferenceClient{Client: client}
}

func (c *ConferenceClient) service(ctx context.Context, accountRef string) (*meet.Service, error) {
	opts, err := c.options(ctx, accountRef)
	if err != nil {
		return nil, err
	}
	return meet.NewService(ctx, opts...)
}

// ListTranscripts lists the transcripts of a conference record.
func (c *ConferenceClient) ListTranscripts(ctx context.Context, accountRef, conferenceID string) ([]*models.TranscriptInfo, error) {
	svc, err := c.service(ctx, accountRef)
	if err != nil {
		return nil, err
	}
	parent := utils.ConferenceRecordName(conferenceID)
	return call(ctx, c.Client, "meet.transcripts.list", func() ([]*models.TranscriptInfo, error) {
		var result []*models.TranscriptInfo
		err := svc.ConferenceRecords.Transcripts.List(parent).
			PageSize(transcriptPageSize).
			Pages(ctx, func(page *meet.ListTranscriptsResponse) error {
				for _, transcript := range page.Transcripts {
					info := &models.TranscriptInfo{
						Name:  transcript.Name,
						State: transcript.State,
					}
					if transcript.DocsDestination != nil {
						info.DocumentID = utils.LastSegment(transcript.DocsDestination.Document)
						info.ExportURI = transcript.DocsDestination.ExportUri
					}
					result = append(result, info)
				}
				return nil
			})
		return result, err
	})
}

// ListTranscriptEntries lists every entry of a transcript in API order.
func (c *ConferenceClient) ListTranscriptEntries(ctx context.Context, accountRef, transcriptName string) ([]*models.TranscriptEntry, error) {
	svc, err := c.service(ctx, accountRef)
	if err != nil {
		return nil, err
	}
	return call(ctx, c.Client, "meet.transcripts.entries.list", func() ([]*models.TranscriptEntry, error) {
		var result []*models.TranscriptEntry
		err := svc.ConferenceRecords.Transcripts.Entries.List(transcriptName).
			PageSize(transcriptPageSize).
			Pages(ctx, func(page *meet.ListTranscriptEntriesResponse) error {
				for _, entry := range page.TranscriptEntries {
					result = append(result, &models.TranscriptEntry{
						Participant:  entry.Participant,
						Text:         entry.Text,
						StartTime:    entry.StartTime,
						LanguageCode: entry.LanguageCode,
					})
				}
				return nil
			})
		return result, err
	})
}
