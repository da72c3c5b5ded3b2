// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package handlers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/service"
)

// JobHandler runs the deferred jobs taken off the job stream.
type JobHandler struct {
	meetingController *service.MeetingController
	retriever         *service.TranscriptRetriever
	calendarSync      *service.CalendarSyncService
}

var _ domain.JobHandler = (*JobHandler)(nil)

func NewJobHandler(
	meetingController *service.MeetingController,
	retriever *service.TranscriptRetriever,
	calendarSync *service.CalendarSyncService,
) *JobHandler {
	return &JobHandler{
		meetingController: meetingController,
		retriever:         retriever,
		calendarSync:      calendarSync,
	}
}

func (h *JobHandler) HandlerReady() bool {
	return h.meetingController != nil && h.meetingController.ServiceReady() &&
		h.retriever != nil && h.retriever.ServiceReady() &&
		h.calendarSync != nil && h.calendarSync.ServiceReady()
}

// HandleJob implements domain.JobHandler interface
func (h *JobHandler) HandleJob(ctx context.Context, job *models.Job) error {
	handlers := map[models.JobName]func(ctx context.Context, job *models.Job) error{
		models.JobSyncMeetLink:          h.HandleSyncMeetLink,
		models.JobFetchTranscript:       h.HandleFetchTranscript,
		models.JobProcessCalendarChange: h.HandleProcessCalendarChange,
	}

	handler, ok := handlers[job.Name]
	if !ok {
		slog.WarnContext(ctx, "unknown job", "job", job.Name)
		return domain.NewValidationError(fmt.Sprintf("unknown job %q", job.Name))
	}

	slog.DebugContext(ctx, "handling job", "attempt", job.Attempt)
	return handler(ctx, job)
}

func (h *JobHandler) HandleSyncMeetLink(ctx context.Context, job *models.Job) error {
	var args models.SyncMeetLinkArgs
	if err := job.DecodeArgs(&args); err != nil {
		return domain.NewValidationError(err.Error())
	}
	if args.MeetingUID == "" {
		return domain.NewValidationError("sync_meet_link requires meeting_uid")
	}
	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", args.MeetingUID))

	return h.meetingController.SyncMeetLink(ctx, args.MeetingUID)
}

func (h *JobHandler) HandleFetchTranscript(ctx context.Context, job *models.Job) error {
	var args models.FetchTranscriptArgs
	if err := job.DecodeArgs(&args); err != nil {
		return domain.NewValidationError(err.Error())
	}
	if args.MeetingUID == "" {
		return domain.NewValidationError("fetch_transcript requires meeting_uid")
	}

	return h.retriever.Fetch(ctx, service.FetchTranscriptRequest{
		MeetingUID:   args.MeetingUID,
		ConferenceID: args.ConferenceID,
		DocumentID:   args.DocumentID,
	})
}

func (h *JobHandler) HandleProcessCalendarChange(ctx context.Context, job *models.Job) error {
	var args models.ProcessCalendarChangeArgs
	if err := job.DecodeArgs(&args); err != nil {
		return domain.NewValidationError(err.Error())
	}
	ctx = logging.AppendCtx(ctx, slog.String("channel_id", args.ChannelID))

	return h.calendarSync.ProcessCalendarChange(ctx)
}
