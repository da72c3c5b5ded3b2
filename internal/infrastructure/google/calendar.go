// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package google

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/api/calendar/v3"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain/models"
)

const (
	conferenceSolutionHangoutsMeet = "hangoutsMeet"
	entryPointVideo                = "video"
	channelTypeWebHook             = "web_hook"
	sendUpdatesAll                 = "all"
)

// CalendarClient implements domain.CalendarClient on the Calendar v3 API
type CalendarClient struct {
	*Client
}

// Ensure that CalendarClient implements domain.CalendarClient
var _ domain.CalendarClient = (*CalendarClient)(nil)

// NewCalendarClient creates a new calendar client
func NewCalendarClient(client *Client) *CalendarClient {
	return &CalendarClient{Client: client}
}

func (c *CalendarClient) service(ctx context.Context, accountRef string) (*calendar.Service, error) {
	opts, err := c.options(ctx, accountRef)
	if err != nil {
		return nil, err
	}
	return calendar.NewService(ctx, opts...)
}

// InsertEvent creates the event with a Meet conference request attached.
func (c *CalendarClient) InsertEvent(ctx context.Context, accountRef, calendarID string, event *models.CalendarEvent) (*models.CalendarEvent, error) {
	svc, err := c.service(ctx, accountRef)
	if err != nil {
		return nil, err
	}
	body := toAPIEvent(event)
	body.ConferenceData = &calendar.ConferenceData{
		CreateRequest: &calendar.CreateConferenceRequest{
			RequestId: uuid.NewString(),
			ConferenceSolutionKey: &calendar.ConferenceSolutionKey{
				Type: conferenceSolutionHangoutsMeet,
			},
		},
	}
	created, err := call(ctx, c.Client, "calendar.events.insert", func() (*calendar.Event, error) {
		return svc.Events.Insert(calendarID, body).
			ConferenceDataVersion(1).
			SendUpdates(sendUpdatesAll).
			Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "calendar event created", "calendar_event_id", created.Id)
	return fromAPIEvent(created), nil
}

// GetEvent fetches one event.
func (c *CalendarClient) GetEvent(ctx context.Context, accountRef, calendarID, eventID string) (*models.CalendarEvent, error) {
	svc, err := c.service(ctx, accountRef)
	if err != nil {
		return nil, err
	}
	event, err := call(ctx, c.Client, "calendar.events.get", func() (*calendar.Event, error) {
		return svc.Events.Get(calendarID, eventID).Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}
	return fromAPIEvent(event), nil
}

// PatchEvent pushes the scheduling fields of event to the calendar.
func (c *CalendarClient) PatchEvent(ctx context.Context, accountRef, calendarID string, event *models.CalendarEvent) (*models.CalendarEvent, error) {
	svc, err := c.service(ctx, accountRef)
	if err != nil {
		return nil, err
	}
	body := toAPIEvent(event)
	patched, err := call(ctx, c.Client, "calendar.events.patch", func() (*calendar.Event, error) {
		return svc.Events.Patch(calendarID, event.ID, body).
			SendUpdates(sendUpdatesAll).
			Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}
	return fromAPIEvent(patched), nil
}

// DeleteEvent removes the event. An event that is already gone counts as deleted.
func (c *CalendarClient) DeleteEvent(ctx context.Context, accountRef, calendarID, eventID string) error {
	svc, err := c.service(ctx, accountRef)
	if err != nil {
		return err
	}
	_, err = call(ctx, c.Client, "calendar.events.delete", func() (struct{}, error) {
		return struct{}{}, svc.Events.Delete(calendarID, eventID).SendUpdates(sendUpdatesAll).Context(ctx).Do()
	})
	if err != nil && isNotFound(err) {
		slog.DebugContext(ctx, "calendar event already deleted", "calendar_event_id", eventID)
		return nil
	}
	return err
}

// ListUpdatedEvents lists single events changed since updatedMin, ordered by start time.
func (c *CalendarClient) ListUpdatedEvents(ctx context.Context, accountRef, calendarID string, updatedMin time.Time, maxResults int) ([]*models.CalendarEvent, error) {
	svc, err := c.service(ctx, accountRef)
	if err != nil {
		return nil, err
	}
	events, err := call(ctx, c.Client, "calendar.events.list", func() (*calendar.Events, error) {
		return svc.Events.List(calendarID).
			UpdatedMin(updatedMin.UTC().Format(time.RFC3339)).
			SingleEvents(true).
			OrderBy("startTime").
			MaxResults(int64(maxResults)).
			Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}
	result := make([]*models.CalendarEvent, 0, len(events.Items))
	for _, item := range events.Items {
		result = append(result, fromAPIEvent(item))
	}
	return result, nil
}

// Watch registers a push channel on the calendar's events.
func (c *CalendarClient) Watch(ctx context.Context, accountRef, calendarID string, channel *models.CalendarChannel) (*models.CalendarChannel, error) {
	svc, err := c.service(ctx, accountRef)
	if err != nil {
		return nil, err
	}
	body := &calendar.Channel{
		Id:      channel.ID,
		Type:    channelTypeWebHook,
		Address: channel.Address,
		Token:   channel.Token,
	}
	if !channel.Expiration.IsZero() {
		body.Expiration = channel.Expiration.UnixMilli()
	}
	watched, err := call(ctx, c.Client, "calendar.events.watch", func() (*calendar.Channel, error) {
		return svc.Events.Watch(calendarID, body).Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}
	result := &models.CalendarChannel{
		ID:         watched.Id,
		ResourceID: watched.ResourceId,
		Address:    channel.Address,
		Token:      channel.Token,
	}
	if watched.Expiration > 0 {
		result.Expiration = time.UnixMilli(watched.Expiration).UTC()
	}
	return result, nil
}

// StopChannel stops a push channel. A channel that no longer exists counts as stopped.
func (c *CalendarClient) StopChannel(ctx context.Context, accountRef, channelID, resourceID string) error {
	svc, err := c.service(ctx, accountRef)
	if err != nil {
		return err
	}
	_, err = call(ctx, c.Client, "calendar.channels.stop", func() (struct{}, error) {
		return struct{}{}, svc.Channels.Stop(&calendar.Channel{Id: channelID, ResourceId: resourceID}).Context(ctx).Do()
	})
	if err != nil && isNotFound(err) {
		return nil
	}
	return err
}

func toAPIEvent(event *models.CalendarEvent) *calendar.Event {
	body := &calendar.Event{
		Summary:     event.Summary,
		Description: event.Description,
		Recurrence:  event.Recurrence,
	}
	if !event.Start.IsZero() {
		body.Start = &calendar.EventDateTime{DateTime: event.Start.Format(time.RFC3339), TimeZone: event.TimeZone}
	}
	if !event.End.IsZero() {
		body.End = &calendar.EventDateTime{DateTime: event.End.Format(time.RFC3339), TimeZone: event.TimeZone}
	}
	for _, email := range event.Attendees {
		body.Attendees = append(body.Attendees, &calendar.EventAttendee{Email: email})
	}
	return body
}

func fromAPIEvent(event *calendar.Event) *models.CalendarEvent {
	if event == nil {
		return nil
	}
	result := &models.CalendarEvent{
		ID:          event.Id,
		Summary:     event.Summary,
		Description: event.Description,
		Recurrence:  event.Recurrence,
		MeetLink:    MeetLink(event),
		Status:      event.Status,
	}
	if event.Start != nil {
		result.Start = parseEventDateTime(event.Start)
		result.TimeZone = event.Start.TimeZone
	}
	if event.End != nil {
		result.End = parseEventDateTime(event.End)
	}
	if updated, err := time.Parse(time.RFC3339Nano, event.Updated); err == nil {
		result.Updated = updated
	}
	for _, attendee := range event.Attendees {
		if attendee != nil && attendee.Email != "" {
			result.Attendees = append(result.Attendees, attendee.Email)
		}
	}
	return result
}

func parseEventDateTime(value *calendar.EventDateTime) time.Time {
	if value.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, value.DateTime); err == nil {
			return t
		}
	}
	if value.Date != "" {
		if t, err := time.Parse(models.MeetingDateLayout, value.Date); err == nil {
			return t
		}
	}
	return time.Time{}
}

// MeetLink returns the Meet join URL of an event: the hangout link when set,
// otherwise the video entry point of its conference data.
func MeetLink(event *calendar.Event) string {
	if event == nil {
		return ""
	}
	if event.HangoutLink != "" {
		return event.HangoutLink
	}
	if event.ConferenceData == nil {
		return ""
	}
	for _, entry := range event.ConferenceData.EntryPoints {
		if entry != nil && entry.EntryPointType == entryPointVideo && entry.Uri != "" {
			return entry.Uri
		}
	}
	return ""
}
