package webhook

import (
	"testing"
)

func TestNormalizeGatewayPayload(t *testing.T) {
	payload := map[string]any{
		"MessageSid":  "SM123",
		"AccountSid":  "AC456",
		"From":        "whatsapp:+5531988887777",
		"To":          "whatsapp:+5531999990000",
		"Body":        "Olá, quero um apartamento",
		"ProfileName": "João Silva",
		"NumMedia":    "0",
	}

	event, err := Normalize(payload)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}

	if event.Provider != ProviderGateway {
		t.Fatalf("expected gateway provider, got %s", event.Provider)
	}
	if event.From != "+5531988887777" {
		t.Fatalf("from not canonicalized: %q", event.From)
	}
	if event.To != "+5531999990000" {
		t.Fatalf("to not canonicalized: %q", event.To)
	}
	if event.Kind != KindText {
		t.Fatalf("expected text kind, got %s", event.Kind)
	}
	if event.ExternalID != "SM123" || event.SenderName != "João Silva" {
		t.Fatalf("unexpected identity fields: %+v", event)
	}
}

func TestNormalizeGatewayAudioPayload(t *testing.T) {
	payload := map[string]any{
		"MessageSid":        "SM124",
		"AccountSid":        "AC456",
		"From":              "whatsapp:+5531988887777",
		"To":                "whatsapp:+5531999990000",
		"NumMedia":          "1",
		"MediaUrl0":         "https://api.gateway.example/media/SM124",
		"MediaContentType0": "audio/ogg",
	}

	event, err := Normalize(payload)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}

	if event.Kind != KindAudio {
		t.Fatalf("expected audio kind, got %s", event.Kind)
	}
	if event.MediaURL == "" || event.MediaContentType != "audio/ogg" {
		t.Fatalf("media fields lost: %+v", event)
	}
}

func TestNormalizeBridgePayload(t *testing.T) {
	payload := map[string]any{
		"event":    "message",
		"instance": "device-1",
		"data": map[string]any{
			"from":     "5531988887777@s.whatsapp.net",
			"to":       "5531999990000@s.whatsapp.net",
			"pushname": "Maria",
			"key":      map[string]any{"id": "3EB0ABC"},
			"message":  map[string]any{"conversation": "Procuro casa em Savassi"},
		},
	}

	event, err := Normalize(payload)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}

	if event.Provider != ProviderBridge {
		t.Fatalf("expected bridge provider, got %s", event.Provider)
	}
	if event.From != "+5531988887777" {
		t.Fatalf("JID not canonicalized: %q", event.From)
	}
	if event.Text != "Procuro casa em Savassi" {
		t.Fatalf("text lost: %q", event.Text)
	}
	if event.ExternalID != "3EB0ABC" || event.SenderName != "Maria" {
		t.Fatalf("identity fields lost: %+v", event)
	}
}

func TestNormalizeUnknownProviderScrapesAliases(t *testing.T) {
	payload := map[string]any{
		"from":    "+5531988887777",
		"to":      "+5531999990000",
		"message": "oi",
	}

	event, err := Normalize(payload)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}

	if event.Provider != ProviderUnknown {
		t.Fatalf("expected unknown provider, got %s", event.Provider)
	}
	if event.Text != "oi" || event.From != "+5531988887777" {
		t.Fatalf("scraped fields wrong: %+v", event)
	}
}

func TestNormalizeRejectsPayloadWithoutParties(t *testing.T) {
	_, err := Normalize(map[string]any{"message": "oi"})
	if err == nil {
		t.Fatal("expected error for payload naming neither sender nor recipient")
	}
}
