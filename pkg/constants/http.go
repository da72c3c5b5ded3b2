// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

// Constants for the HTTP request headers
const (
	// AuthorizationHeader is the header name for the authorization
	AuthorizationHeader string = "authorization"

	// RequestIDHeader is the header name for the request ID
	RequestIDHeader string = "X-REQUEST-ID"

	// EtagHeader is the header name for the ETag
	EtagHeader string = "ETag"

	// IfMatchHeader carries the revision a client expects to update
	IfMatchHeader string = "If-Match"
)

// Google Calendar push notification headers.
const (
	GoogChannelIDHeader     string = "X-Goog-Channel-ID"
	GoogChannelTokenHeader  string = "X-Goog-Channel-Token"
	GoogResourceIDHeader    string = "X-Goog-Resource-ID"
	GoogResourceStateHeader string = "X-Goog-Resource-State"
	GoogResourceURIHeader   string = "X-Goog-Resource-URI"
)

// Calendar push resource states.
const (
	ResourceStateSync   = "sync"
	ResourceStateExists = "exists"
)

// HTTP route paths that need special treatment in middleware.
const (
	CalendarWebhookPath = "/webhooks/google/calendar"
	EventsWebhookPath   = "/webhooks/google/events"
	LivezPath           = "/livez"
	ReadyzPath          = "/readyz"
)

// contextRequestID is the type for the request ID context key
type contextRequestID string

// RequestIDContextID is the context ID for the request ID
const RequestIDContextID contextRequestID = "X-REQUEST-ID"

// contextAuthorization is the type for the authorization context key
type contextAuthorization string

// AuthorizationContextID is the context ID for the authorization
const AuthorizationContextID contextAuthorization = "authorization"

// contextPrincipal is the type for the principal context key
type contextPrincipal string

// PrincipalContextID is the context ID for the principal
const PrincipalContextID contextPrincipal = "x-on-behalf-of"
