// Package transcription turns inbound voice notes into text through an
// OpenAI-compatible speech-to-text endpoint. Failures never stop the
// pipeline: the caller gets a placeholder transcript instead of an error.
package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"imobzap_backend/internal/tenant"
	"imobzap_backend/platform/logger"
)

// Placeholder replaces the transcript when download or transcription fails,
// so the conversation record still shows an audio message arrived.
const Placeholder = "[áudio não pôde ser transcrito]"

const maxAudioBytes = 25 << 20

// Result of a transcription attempt. Text holds the placeholder when OK is
// false.
type Result struct {
	OK   bool
	Text string
}

// Archiver stores the raw media bytes before transcription. Archiving is
// best effort and never fails the transcription.
type Archiver interface {
	Archive(ctx context.Context, tenantID, name, contentType string, data []byte) error
}

// Config for the speech-to-text endpoint.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Service downloads media with the tenant's provider credentials and sends
// it to the transcription endpoint.
type Service struct {
	cfg      Config
	client   *http.Client
	archiver Archiver
	log      *logger.Logger
}

func NewService(cfg Config, archiver Archiver, log *logger.Logger) *Service {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Service{
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.Timeout},
		archiver: archiver,
		log:      log,
	}
}

// Transcribe fetches the audio at mediaURL and returns its transcript in
// Portuguese. Any failure along the way yields the placeholder result.
func (s *Service) Transcribe(ctx context.Context, creds tenant.Credentials, tenantID, mediaURL, contentType string) Result {
	data, err := s.download(ctx, creds, mediaURL)
	if err != nil {
		s.log.ProviderFailure("media", "download", err)
		return Result{OK: false, Text: Placeholder}
	}

	if s.archiver != nil {
		name := fmt.Sprintf("audio/%d%s", time.Now().UnixNano(), extensionFor(contentType))
		if err := s.archiver.Archive(ctx, tenantID, name, contentType, data); err != nil {
			s.log.ProviderFailure("archive", "put", err)
		}
	}

	text, err := s.transcribe(ctx, data, contentType)
	if err != nil {
		s.log.ProviderFailure("stt", "transcribe", err)
		return Result{OK: false, Text: Placeholder}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return Result{OK: false, Text: Placeholder}
	}
	return Result{OK: true, Text: text}
}

func (s *Service) download(ctx context.Context, creds tenant.Credentials, mediaURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, err
	}
	// Gateway media URLs require the account's basic auth credentials.
	if creds.HasGateway() {
		req.SetBasicAuth(creds.GatewayAccountSID, creds.GatewayAuthToken)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("media download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxAudioBytes {
		return nil, fmt.Errorf("media exceeds %d bytes", maxAudioBytes)
	}
	return data, nil
}

type sttResponse struct {
	Text string `json:"text"`
}

func (s *Service) transcribe(ctx context.Context, data []byte, contentType string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "audio"+extensionFor(contentType))
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	_ = writer.WriteField("model", s.cfg.Model)
	_ = writer.WriteField("language", "pt")
	if err := writer.Close(); err != nil {
		return "", err
	}

	endpoint := strings.TrimRight(s.cfg.BaseURL, "/") + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("stt returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed sttResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", err
	}
	return parsed.Text, nil
}

func extensionFor(contentType string) string {
	base := contentType
	if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
		base = parsed
	}
	switch base {
	case "audio/ogg":
		return ".ogg"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/mp4":
		return ".m4a"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	default:
		return ".bin"
	}
}
