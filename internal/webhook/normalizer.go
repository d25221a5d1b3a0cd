// Package webhook receives inbound provider callbacks, normalizes them into
// a provider-agnostic event and hands them to the conversation pipeline.
package webhook

import (
	"fmt"
	"strings"

	"imobzap_backend/platform/phone"
)

// Provider identifies the callback's origin.
type Provider string

const (
	ProviderGateway Provider = "gateway"
	ProviderBridge  Provider = "bridge"
	ProviderUnknown Provider = "unknown"
)

// Kind of inbound content, derived from the media content type.
type Kind string

const (
	KindText     Kind = "text"
	KindAudio    Kind = "audio"
	KindImage    Kind = "image"
	KindVideo    Kind = "video"
	KindDocument Kind = "document"
)

// InboundEvent is the normalized form every provider payload reduces to.
type InboundEvent struct {
	Provider         Provider
	From             string
	To               string
	Text             string
	MediaURL         string
	MediaContentType string
	ExternalID       string
	SenderName       string
	Kind             Kind
}

// Normalize reduces a raw callback payload to an InboundEvent. Detection is
// structural: a payload carrying the gateway's MessageSid and AccountSid
// fields is a gateway event, one carrying the bridge's event envelope is a
// bridge event. Anything else is scraped best effort under the unknown
// provider. The only unrecoverable case is a payload naming neither a sender
// nor a recipient.
func Normalize(payload map[string]any) (InboundEvent, error) {
	switch {
	case isGateway(payload):
		return normalizeGateway(payload), nil
	case isBridge(payload):
		return normalizeBridge(payload), nil
	default:
		return normalizeUnknown(payload)
	}
}

func isGateway(payload map[string]any) bool {
	return str(payload, "MessageSid") != "" && str(payload, "AccountSid") != ""
}

func isBridge(payload map[string]any) bool {
	if str(payload, "event") == "" {
		return false
	}
	if str(payload, "instance") != "" {
		return true
	}
	_, ok := payload["data"].(map[string]any)
	return ok
}

func normalizeGateway(payload map[string]any) InboundEvent {
	ev := InboundEvent{
		Provider:   ProviderGateway,
		From:       phone.Canonical(str(payload, "From")),
		To:         phone.Canonical(str(payload, "To")),
		Text:       str(payload, "Body"),
		ExternalID: str(payload, "MessageSid"),
		SenderName: str(payload, "ProfileName"),
	}

	if str(payload, "NumMedia") != "0" && str(payload, "NumMedia") != "" {
		ev.MediaURL = str(payload, "MediaUrl0")
		ev.MediaContentType = str(payload, "MediaContentType0")
	}

	ev.Kind = kindFor(ev.MediaContentType)
	return ev
}

func normalizeBridge(payload map[string]any) InboundEvent {
	data, _ := payload["data"].(map[string]any)
	if data == nil {
		data = payload
	}

	ev := InboundEvent{
		Provider:   ProviderBridge,
		From:       phone.Canonical(firstStr(data, "from", "sender")),
		To:         phone.Canonical(firstStr(data, "to", "chat_id")),
		SenderName: firstStr(data, "pushname", "sender_name"),
	}

	if key, ok := data["key"].(map[string]any); ok {
		ev.ExternalID = str(key, "id")
		if ev.From == "" {
			ev.From = phone.Canonical(str(key, "remoteJid"))
		}
	}
	if ev.ExternalID == "" {
		ev.ExternalID = firstStr(data, "id", "message_id")
	}

	if msg, ok := data["message"].(map[string]any); ok {
		ev.Text = firstStr(msg, "text", "conversation", "caption")
	}
	if ev.Text == "" {
		ev.Text = firstStr(data, "message", "text", "body")
	}

	if media, ok := data["media"].(map[string]any); ok {
		ev.MediaURL = firstStr(media, "url", "media_url")
		ev.MediaContentType = firstStr(media, "mime_type", "mimetype")
	}
	if ev.MediaURL == "" {
		ev.MediaURL = firstStr(data, "media_url", "audio_url")
		ev.MediaContentType = firstStr(data, "mime_type", "mimetype")
	}

	ev.Kind = kindFor(ev.MediaContentType)
	return ev
}

// normalizeUnknown scrapes common field aliases so unrecognized providers
// still get a best-effort event instead of being dropped outright.
func normalizeUnknown(payload map[string]any) (InboundEvent, error) {
	ev := InboundEvent{
		Provider:   ProviderUnknown,
		From:       phone.Canonical(firstStr(payload, "from", "From", "sender", "phone")),
		To:         phone.Canonical(firstStr(payload, "to", "To", "recipient")),
		Text:       firstStr(payload, "text", "Body", "body", "message", "content"),
		ExternalID: firstStr(payload, "id", "message_id", "MessageSid"),
		SenderName: firstStr(payload, "name", "sender_name", "ProfileName"),
	}
	ev.MediaURL = firstStr(payload, "media_url", "MediaUrl0")
	ev.MediaContentType = firstStr(payload, "media_content_type", "MediaContentType0")
	ev.Kind = kindFor(ev.MediaContentType)

	if ev.From == "" && ev.To == "" {
		return InboundEvent{}, fmt.Errorf("payload carries neither sender nor recipient")
	}
	return ev, nil
}

func kindFor(contentType string) Kind {
	switch {
	case contentType == "":
		return KindText
	case strings.HasPrefix(contentType, "audio/"):
		return KindAudio
	case strings.HasPrefix(contentType, "image/"):
		return KindImage
	case strings.HasPrefix(contentType, "video/"):
		return KindVideo
	default:
		return KindDocument
	}
}

func str(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func firstStr(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if v := str(m, key); v != "" {
			return v
		}
	}
	return ""
}
