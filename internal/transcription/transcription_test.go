package transcription

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"imobzap_backend/internal/tenant"
	"imobzap_backend/platform/logger"
)

func testService(t *testing.T, sttURL string) *Service {
	t.Helper()
	return NewService(Config{
		BaseURL: sttURL,
		APIKey:  "test-key",
		Model:   "whisper-1",
		Timeout: 2 * time.Second,
	}, nil, logger.New("test"))
}

func TestTranscribeReturnsText(t *testing.T) {
	media := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, _, ok := r.BasicAuth(); !ok || user != "AC123" {
			t.Errorf("media download missing gateway basic auth")
		}
		w.Header().Set("Content-Type", "audio/ogg")
		_, _ = w.Write([]byte("OggS fake audio"))
	}))
	defer media.Close()

	stt := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("language"); got != "pt" {
			t.Errorf("expected language=pt, got %q", got)
		}
		if got := r.FormValue("model"); got != "whisper-1" {
			t.Errorf("expected model=whisper-1, got %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"text": "quero um apartamento de dois quartos"})
	}))
	defer stt.Close()

	creds := tenant.Credentials{GatewayAccountSID: "AC123", GatewayAuthToken: "tok", GatewayFrom: "+5531999990000"}
	result := testService(t, stt.URL).Transcribe(context.Background(), creds, "tenant-1", media.URL, "audio/ogg")

	if !result.OK {
		t.Fatalf("expected successful transcription, got %+v", result)
	}
	if result.Text != "quero um apartamento de dois quartos" {
		t.Fatalf("unexpected transcript: %q", result.Text)
	}
}

func TestTranscribePlaceholderOnDownloadFailure(t *testing.T) {
	media := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer media.Close()

	result := testService(t, "http://unused").Transcribe(context.Background(), tenant.Credentials{}, "tenant-1", media.URL, "audio/ogg")

	if result.OK {
		t.Fatal("expected failed transcription")
	}
	if result.Text != Placeholder {
		t.Fatalf("expected placeholder, got %q", result.Text)
	}
}

func TestTranscribePlaceholderOnSTTTimeout(t *testing.T) {
	media := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OggS fake audio"))
	}))
	defer media.Close()

	stt := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(map[string]string{"text": "atrasado"})
	}))
	defer stt.Close()

	svc := NewService(Config{
		BaseURL: stt.URL,
		APIKey:  "test-key",
		Model:   "whisper-1",
		Timeout: 50 * time.Millisecond,
	}, nil, logger.New("test"))

	result := svc.Transcribe(context.Background(), tenant.Credentials{}, "tenant-1", media.URL, "audio/ogg")

	if result.OK || result.Text != Placeholder {
		t.Fatalf("expected placeholder on timeout, got %+v", result)
	}
}

func TestTranscribePlaceholderOnEmptyTranscript(t *testing.T) {
	media := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OggS fake audio"))
	}))
	defer media.Close()

	stt := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"text": "   "})
	}))
	defer stt.Close()

	result := testService(t, stt.URL).Transcribe(context.Background(), tenant.Credentials{}, "tenant-1", media.URL, "audio/ogg")

	if result.OK || result.Text != Placeholder {
		t.Fatalf("expected placeholder on empty transcript, got %+v", result)
	}
}
