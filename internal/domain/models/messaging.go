// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import "time"

// JetStream resources backing the deferred job queue.
const (
	// JobStreamName is the stream that retains queued jobs until they are acknowledged.
	JobStreamName = "GOOGLE_MEET_JOBS"

	// JobSubjectPrefix prefixes every job subject.
	// The subject is of the form: lfx.google-meet.jobs.<job name>
	JobSubjectPrefix = "lfx.google-meet.jobs."

	// JobSubjectWildcard matches every job subject.
	JobSubjectWildcard = JobSubjectPrefix + ">"

	// JobConsumerName is the durable consumer shared by all service replicas.
	JobConsumerName = "google-meet-job-worker"

	// JobMaxDeliveries bounds redelivery of one job message. Waiting for
	// not_before costs one delivery.
	JobMaxDeliveries = 10

	// JobErrorRetryDelay is the redelivery delay after a transient failure.
	JobErrorRetryDelay = 30 * time.Second
)

// JobSubject returns the subject a job is published on.
func JobSubject(name JobName) string {
	return JobSubjectPrefix + string(name)
}
