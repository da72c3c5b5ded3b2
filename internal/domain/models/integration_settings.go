// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"errors"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/pkg/constants"
)

var pubsubTopicPattern = regexp.MustCompile(`^projects/[^/]+/topics/[^/]+$`)

// IntegrationSettings is the persisted configuration document of the integration.
// It is fetched once per request or job and passed down explicitly.
type IntegrationSettings struct {
	CalendarAccount        string `json:"calendar_account"`
	CalendarID             string `json:"calendar_id,omitempty"`
	OrganizerEmail         string `json:"organizer_email,omitempty"`
	PubSubTopic            string `json:"pubsub_topic,omitempty"`
	EnableMeetEvents       bool   `json:"enable_meet_events"`
	EnableCalendarWebhook  bool   `json:"enable_calendar_webhook"`
	WebhookBaseURL         string `json:"webhook_base_url,omitempty"`
	TranscriptDelayMinutes int    `json:"transcript_delay_minutes,omitempty"`

	SubscriptionID     string `json:"subscription_id,omitempty"`
	SubscriptionState  string `json:"subscription_state,omitempty"`
	SubscriptionTarget string `json:"subscription_target,omitempty"`

	CalendarWatch *CalendarWatch `json:"calendar_watch,omitempty"`
	UpdatedAt     *time.Time     `json:"updated_at,omitempty"`
}

// CalendarWatch is the active push channel registered on the calendar.
type CalendarWatch struct {
	ChannelID  string    `json:"channel_id"`
	ResourceID string    `json:"resource_id"`
	Expiration time.Time `json:"expiration"`
	Token      string    `json:"token"`
}

// NeedsRenewal reports whether the channel expires within window of now.
func (w *CalendarWatch) NeedsRenewal(now time.Time, window time.Duration) bool {
	if w == nil {
		return false
	}
	return w.Expiration.Sub(now) <= window
}

// Validate enforces the fields required once Meet events are enabled.
func (s *IntegrationSettings) Validate() error {
	var errs []error
	if s.EnableMeetEvents {
		if strings.TrimSpace(s.CalendarAccount) == "" {
			errs = append(errs, errors.New("calendar_account is required to enable Meet events"))
		}
		if strings.TrimSpace(s.OrganizerEmail) == "" {
			errs = append(errs, errors.New("organizer_email is required to enable Meet events"))
		}
		if strings.TrimSpace(s.PubSubTopic) == "" {
			errs = append(errs, errors.New("pubsub_topic is required to enable Meet events, format: projects/PROJECT_ID/topics/TOPIC"))
		}
	}
	if s.OrganizerEmail != "" {
		if _, err := mail.ParseAddress(s.OrganizerEmail); err != nil {
			errs = append(errs, errors.New("organizer_email is not a valid email address"))
		}
	}
	if s.PubSubTopic != "" && !pubsubTopicPattern.MatchString(s.PubSubTopic) {
		errs = append(errs, errors.New("pubsub_topic must have the form projects/PROJECT_ID/topics/TOPIC"))
	}
	if s.EnableCalendarWebhook && strings.TrimSpace(s.WebhookBaseURL) == "" {
		errs = append(errs, errors.New("webhook_base_url is required to enable the calendar webhook"))
	}
	if s.TranscriptDelayMinutes < 0 {
		errs = append(errs, errors.New("transcript_delay_minutes must not be negative"))
	}
	return errors.Join(errs...)
}

// TranscriptDelay returns the wait between conference end and the first transcript fetch.
func (s *IntegrationSettings) TranscriptDelay() time.Duration {
	if s == nil || s.TranscriptDelayMinutes <= 0 {
		return constants.DefaultTranscriptDelay
	}
	return time.Duration(s.TranscriptDelayMinutes) * time.Minute
}

// Calendar returns the configured calendar id.
func (s *IntegrationSettings) Calendar() string {
	if s == nil || s.CalendarID == "" {
		return constants.DefaultCalendarID
	}
	return s.CalendarID
}

// CalendarWebhookURL is the endpoint registered on calendar watch channels.
func (s *IntegrationSettings) CalendarWebhookURL() string {
	return strings.TrimRight(s.WebhookBaseURL, "/") + constants.CalendarWebhookPath
}

// EventsWebhookURL is the endpoint the Pub/Sub push subscription must target.
func (s *IntegrationSettings) EventsWebhookURL() string {
	return strings.TrimRight(s.WebhookBaseURL, "/") + constants.EventsWebhookPath
}

// ClearSubscription forgets the user-level subscription.
func (s *IntegrationSettings) ClearSubscription() {
	s.SubscriptionID = ""
	s.SubscriptionState = ""
	s.SubscriptionTarget = ""
}
