package recordingRepository

const (
	queryCreateRecording = `
		INSERT INTO voice_recordings (
			id,
			user_id,
			audio_url,
			duration_seconds,
			transcript,
			patient_id,
			language_hint,
			status,
			captured_at,
			created_at
		) VALUES (
			:id,
			:user_id,
			:audio_url,
			:duration_seconds,
			:transcript,
			:patient_id,
			:language_hint,
			:status,
			:captured_at,
			:created_at
		)
	`

	queryGetRecordingByID = `
		SELECT
			id,
			user_id,
			audio_url,
			duration_seconds,
			transcript,
			patient_id,
			language_hint,
			status,
			captured_at,
			created_at
		FROM voice_recordings
		WHERE id = :id
	`

	queryListByStatus = `
		SELECT
			id,
			user_id,
			audio_url,
			duration_seconds,
			transcript,
			patient_id,
			language_hint,
			status,
			captured_at,
			created_at
		FROM voice_recordings
		WHERE status = :status
		ORDER BY created_at ASC
		LIMIT :limit
	`

	queryStoreTranscription = `
		UPDATE voice_recordings
		SET transcript = :transcript, duration_seconds = :duration_seconds
		WHERE id = :id
	`
)
