// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"net/http"
	"strconv"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain/models"
)

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SettingsResponse is the settings document with its derived endpoint URLs.
type SettingsResponse struct {
	*models.IntegrationSettings
	CalendarWebhookURL string `json:"calendar_webhook_url,omitempty"`
	EventsWebhookURL   string `json:"events_webhook_url,omitempty"`
}

// ConvertSettingsToResponse adds the derived URLs to the settings document.
// The channel token of the calendar watch is not exposed.
func ConvertSettingsToResponse(settings *models.IntegrationSettings) *SettingsResponse {
	if settings == nil {
		return &SettingsResponse{}
	}
	redacted := *settings
	redacted.CalendarWatch = ConvertWatchToResponse(settings.CalendarWatch)

	response := &SettingsResponse{IntegrationSettings: &redacted}
	if settings.WebhookBaseURL != "" {
		response.CalendarWebhookURL = settings.CalendarWebhookURL()
		response.EventsWebhookURL = settings.EventsWebhookURL()
	}
	return response
}

// ConvertWatchToResponse copies the calendar watch without its channel token.
func ConvertWatchToResponse(watch *models.CalendarWatch) *models.CalendarWatch {
	if watch == nil {
		return nil
	}
	redacted := *watch
	redacted.Token = ""
	return &redacted
}

// StatusCodeFromError maps a domain error onto its HTTP status code.
func StatusCodeFromError(err error) int {
	switch domain.GetErrorType(err) {
	case domain.ErrorTypeValidation:
		return http.StatusBadRequest
	case domain.ErrorTypeNotFound:
		return http.StatusNotFound
	case domain.ErrorTypeConflict:
		return http.StatusConflict
	case domain.ErrorTypeUnavailable:
		return http.StatusServiceUnavailable
	case domain.ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// ConvertErrorToResponse builds the error body and its status code. Internal
// error details are not exposed.
func ConvertErrorToResponse(err error) (int, *ErrorResponse) {
	code := StatusCodeFromError(err)
	message := err.Error()
	if code == http.StatusInternalServerError {
		message = "internal server error"
	}
	return code, &ErrorResponse{
		Code:    strconv.Itoa(code),
		Message: message,
	}
}
