// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/logging"
)

const (
	instrumentationName      = "github.com/linuxfoundation/lfx-v2-google-meet-service/internal/service"
	fallbackLookupMetric     = "meet.reconciler.fallback_lookups"
	defaultFallbackScanLimit = 5
)

// LookupTier tells which strategy produced the records of a lookup.
type LookupTier string

const (
	LookupTierPrecise  LookupTier = "precise"
	LookupTierFallback LookupTier = "fallback"
	LookupTierLink     LookupTier = "link"
	LookupTierNone     LookupTier = "none"
)

// LookupResult is the outcome of a meeting lookup.
type LookupResult struct {
	Records []*models.MeetingRecord
	Tier    LookupTier
}

// MeetingLookup resolves inbound conference notifications to meeting records.
//
// The precise tier uses the conference id index. The fallback tier scans
// records in the eligible statuses that have no conference id yet; it exists
// because the id is often backfilled by the very event being handled. It can
// pick the wrong meeting when several are eligible at once, so every fallback
// match is logged at WARN and counted.
type MeetingLookup struct {
	meetings        domain.MeetingRecordRepository
	limit           int
	fallbackCounter metric.Int64Counter
}

// NewMeetingLookup creates a lookup. A nil meter uses the global meter provider.
func NewMeetingLookup(meetings domain.MeetingRecordRepository, limit int, meter metric.Meter) *MeetingLookup {
	if limit <= 0 {
		limit = defaultFallbackScanLimit
	}
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}
	counter, err := meter.Int64Counter(fallbackLookupMetric,
		metric.WithDescription("Meeting lookups resolved by the fallback status scan"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		slog.Warn("failed to create fallback lookup counter", logging.ErrKey, err)
	}
	return &MeetingLookup{
		meetings:        meetings,
		limit:           limit,
		fallbackCounter: counter,
	}
}

// ByConference finds the records of a conference.
//
// preciseStatuses filters the records carrying conferenceID. When no record
// carries it, records in fallbackStatuses without a conference id are used
// instead. An empty fallbackStatuses disables the fallback tier.
func (l *MeetingLookup) ByConference(
	ctx context.Context,
	event models.EventKind,
	conferenceID string,
	preciseStatuses []models.MeetingStatus,
	fallbackStatuses []models.MeetingStatus,
) (LookupResult, error) {
	if conferenceID != "" {
		indexed, err := l.meetings.ListByConferenceID(ctx, conferenceID)
		if err != nil {
			return LookupResult{}, err
		}
		if len(indexed) > 0 {
			return LookupResult{Records: filterByStatus(indexed, preciseStatuses), Tier: LookupTierPrecise}, nil
		}
	}

	if len(fallbackStatuses) == 0 {
		return LookupResult{Tier: LookupTierNone}, nil
	}

	candidates, err := l.meetings.ListByStatus(ctx, fallbackStatuses...)
	if err != nil {
		return LookupResult{}, err
	}
	var unmatched []*models.MeetingRecord
	for _, record := range candidates {
		if record.ConferenceID == "" {
			unmatched = append(unmatched, record)
		}
	}
	if len(unmatched) == 0 {
		return LookupResult{Tier: LookupTierNone}, nil
	}

	sortByScheduledStart(unmatched)
	truncated := 0
	if len(unmatched) > l.limit {
		truncated = len(unmatched) - l.limit
		unmatched = unmatched[:l.limit]
	}

	uids := make([]string, 0, len(unmatched))
	for _, record := range unmatched {
		uids = append(uids, record.UID)
	}
	slog.WarnContext(ctx, "meeting resolved by fallback status scan",
		"lookup_tier", string(LookupTierFallback),
		"event_kind", event.String(),
		"conference_id", conferenceID,
		"match_count", len(unmatched),
		"truncated", truncated,
		"meeting_uids", uids,
	)
	if len(unmatched) > 1 {
		slog.WarnContext(ctx, "ambiguous fallback lookup, every match will be updated",
			"lookup_tier", string(LookupTierFallback),
			"conference_id", conferenceID,
			"match_count", len(unmatched),
		)
	}
	if l.fallbackCounter != nil {
		l.fallbackCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("event_kind", event.String()),
			attribute.Bool("ambiguous", len(unmatched) > 1),
		))
	}
	return LookupResult{Records: unmatched, Tier: LookupTierFallback}, nil
}

// ByConferenceOrLink finds the records of a conference by id and, failing
// that, by meet links containing the id.
func (l *MeetingLookup) ByConferenceOrLink(ctx context.Context, conferenceID string) (LookupResult, error) {
	if conferenceID == "" {
		return LookupResult{Tier: LookupTierNone}, nil
	}
	indexed, err := l.meetings.ListByConferenceID(ctx, conferenceID)
	if err != nil {
		return LookupResult{}, err
	}
	if len(indexed) > 0 {
		return LookupResult{Records: indexed, Tier: LookupTierPrecise}, nil
	}
	return l.ByLink(ctx, conferenceID)
}

// ByLink finds the records whose meet link contains fragment.
func (l *MeetingLookup) ByLink(ctx context.Context, fragment string) (LookupResult, error) {
	if fragment == "" {
		return LookupResult{Tier: LookupTierNone}, nil
	}
	records, err := l.meetings.ListByLinkContains(ctx, fragment)
	if err != nil {
		return LookupResult{}, err
	}
	if len(records) == 0 {
		return LookupResult{Tier: LookupTierNone}, nil
	}
	return LookupResult{Records: records, Tier: LookupTierLink}, nil
}

func filterByStatus(records []*models.MeetingRecord, statuses []models.MeetingStatus) []*models.MeetingRecord {
	if len(statuses) == 0 {
		return records
	}
	var result []*models.MeetingRecord
	for _, record := range records {
		status := record.Status
		if status == "" {
			status = models.MeetingStatusScheduled
		}
		for _, s := range statuses {
			if status == s {
				result = append(result, record)
				break
			}
		}
	}
	return result
}

// sortByScheduledStart orders records by scheduled start, unparseable last.
func sortByScheduledStart(records []*models.MeetingRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		si, _, erri := records[i].ScheduledWindow()
		sj, _, errj := records[j].ScheduledWindow()
		switch {
		case erri != nil:
			return false
		case errj != nil:
			return true
		default:
			return si.Before(sj)
		}
	})
}
