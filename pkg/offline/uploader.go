package offline

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// HTTPUploader pushes spooled recordings to the pipeline's upload endpoint.
type HTTPUploader struct {
	baseURL string
	userID  string
	client  *http.Client
}

func NewHTTPUploader(baseURL string, userID string) *HTTPUploader {
	return &HTTPUploader{
		baseURL: baseURL,
		userID:  userID,
		client:  &http.Client{Timeout: 2 * time.Minute},
	}
}

type uploadResponse struct {
	RecordingID string `json:"recording_id"`
	Status      string `json:"status"`
}

func (u *HTTPUploader) Upload(ctx context.Context, rec QueuedRecording) (string, error) {
	audio, err := os.Open(rec.AudioPath)
	if err != nil {
		return "", fmt.Errorf("open spooled audio: %w", err)
	}
	defer audio.Close()

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		part, err := writer.CreateFormFile("audio", filepath.Base(rec.AudioPath))
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, audio); err != nil {
			pw.CloseWithError(err)
			return
		}

		if rec.Context.HasPatient() {
			if err := writer.WriteField("patient_id", *rec.Context.PatientID); err != nil {
				pw.CloseWithError(err)
				return
			}
		}
		if rec.LanguageHint != "" {
			if err := writer.WriteField("language_hint", rec.LanguageHint); err != nil {
				pw.CloseWithError(err)
				return
			}
		}
		if err := writer.WriteField("captured_at", rec.CaptureTimestamp.Format(time.RFC3339)); err != nil {
			pw.CloseWithError(err)
			return
		}

		pw.CloseWithError(writer.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.baseURL+"/api/v1/recordings/", pr)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-User-ID", u.userID)

	resp, err := u.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("upload rejected with status %d: %s", resp.StatusCode, string(body))
	}

	var parsed uploadResponse
	if err := jsoniter.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("unexpected upload response: %w", err)
	}

	return parsed.RecordingID, nil
}
