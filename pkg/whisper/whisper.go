// Package whisper is the HTTP client for the co-located faster-whisper
// transcription service.
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"time"
)

var (
	ErrUnavailable = errors.New("transcription service unavailable")
	ErrTimeout     = errors.New("transcription timed out")
)

type Transcript struct {
	Text                string
	Language            string
	LanguageProbability float64
	DurationSeconds     float64
}

type IWhisper interface {
	Transcribe(ctx context.Context, filename string, audio io.Reader, languageHint string) (Transcript, error)
	Health(ctx context.Context) error
}

type whisperClient struct {
	baseURL    string
	httpClient *http.Client
}

func New() IWhisper {
	baseURL := os.Getenv("WHISPER_API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	return &whisperClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

// transcribeResponse mirrors the whisper service payload. duration and
// language_probability arrive as formatted strings.
type transcribeResponse struct {
	Status              string `json:"status"`
	Language            string `json:"language"`
	LanguageProbability string `json:"language_probability"`
	Duration            string `json:"duration"`
	FullText            string `json:"full_text"`
	Error               string `json:"error"`
}

func (w *whisperClient) Transcribe(ctx context.Context, filename string, audio io.Reader, languageHint string) (Transcript, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return Transcript{}, err
	}
	if _, err := io.Copy(part, audio); err != nil {
		return Transcript{}, err
	}
	if languageHint != "" {
		if err := writer.WriteField("language", languageHint); err != nil {
			return Transcript{}, err
		}
	}
	if err := writer.Close(); err != nil {
		return Transcript{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/transcribe", &body)
	if err != nil {
		return Transcript{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := w.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Transcript{}, ErrTimeout
		}
		return Transcript{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return Transcript{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var parsed transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Transcript{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if parsed.Status != "success" {
		return Transcript{}, fmt.Errorf("%w: %s", ErrUnavailable, parsed.Error)
	}

	prob, _ := strconv.ParseFloat(parsed.LanguageProbability, 64)
	duration, _ := strconv.ParseFloat(parsed.Duration, 64)

	return Transcript{
		Text:                parsed.FullText,
		Language:            parsed.Language,
		LanguageProbability: prob,
		DurationSeconds:     duration,
	}, nil
}

func (w *whisperClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.baseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}
