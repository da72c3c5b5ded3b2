// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain/models"
)

// CloudEvents attributes set by the Workspace Events API on Pub/Sub messages.
const (
	attributeEventType   = "ce-type"
	attributeEventID     = "ce-id"
	attributeEventSource = "ce-source"
)

// DecodeEnvelope turns a Pub/Sub push body into a normalized event. It only
// fails when the envelope or its message is missing; an undecodable data
// field yields an empty body.
func DecodeEnvelope(body []byte) (*models.NormalizedEvent, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, domain.NewDecodeError("no message")
	}

	var envelope models.PushEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, domain.NewDecodeError("no message")
	}
	if envelope.Message == nil {
		return nil, domain.NewDecodeError("invalid envelope")
	}
	message := envelope.Message

	event := &models.NormalizedEvent{
		Raw:  string(body),
		Data: json.RawMessage("{}"),
	}
	if data := decodeData(message.Data); data != nil {
		var eventBody models.EventBody
		if err := json.Unmarshal(data, &eventBody); err == nil {
			event.Body = eventBody
			event.Data = data
		}
	}

	event.Type = firstNonEmpty(message.Attributes[attributeEventType], event.Body.EventType, event.Body.Type)
	event.ID = firstNonEmpty(message.Attributes[attributeEventID], message.MessageID)
	event.Source = firstNonEmpty(envelope.Subscription, message.Attributes[attributeEventSource])
	event.Kind = models.ParseEventKind(event.Type)
	return event, nil
}

// decodeData base64-decodes the message data. Pub/Sub uses the standard
// alphabet; the URL-safe and unpadded forms are tolerated.
func decodeData(data string) []byte {
	data = strings.TrimSpace(data)
	if data == "" {
		return nil
	}
	for _, encoding := range []*base64.Encoding{
		base64.StdEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.RawURLEncoding,
	} {
		if decoded, err := encoding.DecodeString(data); err == nil {
			return decoded
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
