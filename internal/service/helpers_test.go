// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain/mocks"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain/models"
)

// memoryMeetings is a revision-checked in-memory MeetingRecordRepository.
type memoryMeetings struct {
	mu        sync.Mutex
	records   map[string]*models.MeetingRecord
	revisions map[string]uint64
	next      uint64
}

var _ domain.MeetingRecordRepository = (*memoryMeetings)(nil)

func newMemoryMeetings(records ...*models.MeetingRecord) *memoryMeetings {
	m := &memoryMeetings{
		records:   map[string]*models.MeetingRecord{},
		revisions: map[string]uint64{},
	}
	for _, record := range records {
		m.put(record)
	}
	return m
}

func cloneRecord(record *models.MeetingRecord) *models.MeetingRecord {
	data, err := json.Marshal(record)
	if err != nil {
		panic(err)
	}
	var out models.MeetingRecord
	if err := json.Unmarshal(data, &out); err != nil {
		panic(err)
	}
	return &out
}

func (m *memoryMeetings) put(record *models.MeetingRecord) uint64 {
	m.next++
	m.records[record.UID] = cloneRecord(record)
	m.revisions[record.UID] = m.next
	return m.next
}

func (m *memoryMeetings) record(t *testing.T, uid string) *models.MeetingRecord {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[uid]
	require.True(t, ok, "meeting %s not stored", uid)
	return cloneRecord(record)
}

func (m *memoryMeetings) Create(_ context.Context, record *models.MeetingRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[record.UID]; ok {
		return domain.NewConflictError("meeting already exists")
	}
	m.put(record)
	return nil
}

func (m *memoryMeetings) Exists(_ context.Context, uid string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.records[uid]
	return ok, nil
}

func (m *memoryMeetings) Get(ctx context.Context, uid string) (*models.MeetingRecord, error) {
	record, _, err := m.GetWithRevision(ctx, uid)
	return record, err
}

func (m *memoryMeetings) GetWithRevision(_ context.Context, uid string) (*models.MeetingRecord, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[uid]
	if !ok {
		return nil, 0, domain.NewNotFoundError("meeting not found", domain.ErrMeetingNotFound)
	}
	return cloneRecord(record), m.revisions[uid], nil
}

func (m *memoryMeetings) Update(_ context.Context, record *models.MeetingRecord, revision uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.revisions[record.UID]
	if !ok {
		return domain.NewNotFoundError("meeting not found", domain.ErrMeetingNotFound)
	}
	if current != revision {
		return domain.NewConflictError("meeting has been modified", domain.ErrRevisionMismatch)
	}
	m.put(record)
	return nil
}

func (m *memoryMeetings) Delete(_ context.Context, uid string, revision uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.revisions[uid]
	if !ok {
		return domain.NewNotFoundError("meeting not found", domain.ErrMeetingNotFound)
	}
	if current != revision {
		return domain.NewConflictError("meeting has been modified", domain.ErrRevisionMismatch)
	}
	delete(m.records, uid)
	delete(m.revisions, uid)
	return nil
}

func (m *memoryMeetings) filter(keep func(*models.MeetingRecord) bool) []*models.MeetingRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.MeetingRecord
	for _, record := range m.records {
		if keep(record) {
			out = append(out, cloneRecord(record))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out
}

func (m *memoryMeetings) ListAll(context.Context) ([]*models.MeetingRecord, error) {
	return m.filter(func(*models.MeetingRecord) bool { return true }), nil
}

func (m *memoryMeetings) ListByConferenceID(_ context.Context, conferenceID string) ([]*models.MeetingRecord, error) {
	return m.filter(func(r *models.MeetingRecord) bool { return r.ConferenceID == conferenceID }), nil
}

func (m *memoryMeetings) ListByStatus(_ context.Context, statuses ...models.MeetingStatus) ([]*models.MeetingRecord, error) {
	return m.filter(func(r *models.MeetingRecord) bool {
		for _, s := range statuses {
			if r.Status == s {
				return true
			}
		}
		return false
	}), nil
}

func (m *memoryMeetings) ListByCalendarEventID(_ context.Context, eventID string) ([]*models.MeetingRecord, error) {
	return m.filter(func(r *models.MeetingRecord) bool { return r.CalendarEventID == eventID }), nil
}

func (m *memoryMeetings) ListByLinkContains(_ context.Context, fragment string) ([]*models.MeetingRecord, error) {
	return m.filter(func(r *models.MeetingRecord) bool {
		return r.MeetLink != "" && strings.Contains(r.MeetLink, fragment)
	}), nil
}

// memoryEventLog is an in-memory EventLogRepository.
type memoryEventLog struct {
	mu        sync.Mutex
	entries   map[string]*models.EventLogEntry
	revisions map[string]uint64
	next      uint64
}

var _ domain.EventLogRepository = (*memoryEventLog)(nil)

func newMemoryEventLog() *memoryEventLog {
	return &memoryEventLog{
		entries:   map[string]*models.EventLogEntry{},
		revisions: map[string]uint64{},
	}
}

func (l *memoryEventLog) all() []*models.EventLogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*models.EventLogEntry, 0, len(l.entries))
	for _, entry := range l.entries {
		copied := *entry
		out = append(out, &copied)
	}
	return out
}

func (l *memoryEventLog) Create(_ context.Context, entry *models.EventLogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	copied := *entry
	l.next++
	l.entries[entry.UID] = &copied
	l.revisions[entry.UID] = l.next
	return nil
}

func (l *memoryEventLog) GetWithRevision(_ context.Context, uid string) (*models.EventLogEntry, uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[uid]
	if !ok {
		return nil, 0, domain.NewNotFoundError("event log entry not found")
	}
	copied := *entry
	return &copied, l.revisions[uid], nil
}

func (l *memoryEventLog) Update(_ context.Context, entry *models.EventLogEntry, revision uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.revisions[entry.UID] != revision {
		return domain.NewConflictError("event log entry has been modified")
	}
	copied := *entry
	l.next++
	l.entries[entry.UID] = &copied
	l.revisions[entry.UID] = l.next
	return nil
}

func (l *memoryEventLog) ListByMeetingUID(_ context.Context, meetingUID string) ([]*models.EventLogEntry, error) {
	var out []*models.EventLogEntry
	for _, entry := range l.all() {
		if entry.MeetingUID != nil && *entry.MeetingUID == meetingUID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (l *memoryEventLog) ClearMeetingReference(ctx context.Context, meetingUID string) (int, error) {
	entries, _ := l.ListByMeetingUID(ctx, meetingUID)
	for _, entry := range entries {
		entry.ClearMeetingReference()
		l.mu.Lock()
		l.entries[entry.UID] = entry
		l.mu.Unlock()
	}
	return len(entries), nil
}

// settingsRepo returns a settings mock serving settings at revision 1.
func settingsRepo(settings *models.IntegrationSettings) *mocks.MockSettingsRepository {
	repo := &mocks.MockSettingsRepository{}
	if settings == nil {
		repo.On("GetWithRevision", mock.Anything).
			Return(nil, uint64(0), domain.NewNotFoundError("settings not found", domain.ErrSettingsNotFound))
	} else {
		repo.On("GetWithRevision", mock.Anything).Return(settings, uint64(1), nil)
	}
	return repo
}

func testSettings() *models.IntegrationSettings {
	return &models.IntegrationSettings{
		CalendarAccount:  "calendar@example.org",
		OrganizerEmail:   "organizer@example.org",
		PubSubTopic:      "projects/lfx/topics/meet-events",
		EnableMeetEvents: true,
		WebhookBaseURL:   "https://meet.example.org",
	}
}

func testConfig() ServiceConfig {
	return ServiceConfig{
		LinkSyncPolls:    3,
		LinkSyncInterval: time.Millisecond,
	}.WithDefaults()
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// capturedJobs records every enqueued job on a scheduler mock.
type capturedJobs struct {
	mu   sync.Mutex
	jobs []*models.Job
}

func (c *capturedJobs) scheduler(err error) *mocks.MockJobScheduler {
	scheduler := &mocks.MockJobScheduler{}
	scheduler.On("Enqueue", mock.Anything, mock.AnythingOfType("*models.Job")).
		Run(func(args mock.Arguments) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.jobs = append(c.jobs, args.Get(1).(*models.Job))
		}).
		Return(err)
	return scheduler
}

func (c *capturedJobs) all() []*models.Job {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*models.Job(nil), c.jobs...)
}
