package recording

import "github.com/snditnz/verbumcare/pkg/response"

var (
	ErrInvalidAudioFile   = response.NewError(400, "invalid audio file")
	ErrInvalidContext     = response.NewError(400, "recording context is invalid")
	ErrRecordingNotFound  = response.NewError(404, "recording not found")
	ErrAudioUploadFailed  = response.NewError(502, "failed to store audio")
	ErrRecordingDiscarded = response.NewError(409, "recording has been discarded")
)
