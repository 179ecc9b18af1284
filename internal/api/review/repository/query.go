package reviewRepository

const (
	queryCreateReviewItem = `
		INSERT INTO review_items (
			id,
			recording_id,
			user_id,
			patient_id,
			transcript,
			transcript_lang,
			extracted_data,
			overall_confidence,
			status,
			created_at
		) VALUES (
			:id,
			:recording_id,
			:user_id,
			:patient_id,
			:transcript,
			:transcript_lang,
			:extracted_data,
			:overall_confidence,
			:status,
			:created_at
		)
	`

	queryGetReviewItemByID = `
		SELECT
			id,
			recording_id,
			user_id,
			patient_id,
			transcript,
			transcript_lang,
			extracted_data,
			overall_confidence,
			status,
			created_at,
			reviewed_at
		FROM review_items
		WHERE id = :id
	`

	queryGetQueueByUserID = `
		SELECT
			id,
			recording_id,
			user_id,
			patient_id,
			transcript,
			transcript_lang,
			extracted_data,
			overall_confidence,
			status,
			created_at,
			reviewed_at
		FROM review_items
		WHERE
			user_id = :user_id
			AND status IN ('pending', 'in_review')
		ORDER BY created_at ASC
	`

	queryUpdateExtractedData = `
		UPDATE review_items
		SET
			transcript = :transcript,
			transcript_lang = :transcript_lang,
			extracted_data = :extracted_data,
			overall_confidence = :overall_confidence
		WHERE id = :id AND status IN ('pending', 'in_review')
	`

	queryListArchiveDue = `
		SELECT
			id,
			recording_id,
			user_id,
			patient_id,
			transcript,
			transcript_lang,
			extracted_data,
			overall_confidence,
			status,
			created_at,
			reviewed_at
		FROM review_items
		WHERE
			status IN ('pending', 'in_review')
			AND created_at < :cutoff
		ORDER BY created_at ASC
	`

	queryCreateAuditEntry = `
		INSERT INTO categorization_log (
			id,
			review_id,
			detected_categories,
			transcript_edited,
			data_edited,
			reanalysis_count,
			created_at
		) VALUES (
			:id,
			:review_id,
			:detected_categories,
			:transcript_edited,
			:data_edited,
			:reanalysis_count,
			:created_at
		)
	`

	queryLatestAuditForReview = `
		SELECT
			id,
			review_id,
			detected_categories,
			transcript_edited,
			data_edited,
			reanalysis_count,
			created_at,
			confirmed_at,
			confirmed_by
		FROM categorization_log
		WHERE review_id = :review_id
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	queryStampConfirmation = `
		UPDATE categorization_log
		SET
			confirmed_at = :confirmed_at,
			confirmed_by = :confirmed_by
		WHERE id = (
			SELECT id
			FROM categorization_log
			WHERE review_id = :review_id
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		)
	`

	queryInsertVitals = `
		INSERT INTO vital_sign_measurements (
			id, patient_id, recording_id, temperature_celsius, systolic_bp,
			diastolic_bp, heart_rate, respiratory_rate, spo2, measured_at,
			notes, created_at
		) VALUES (
			:id, :patient_id, :recording_id, :temperature_celsius, :systolic_bp,
			:diastolic_bp, :heart_rate, :respiratory_rate, :spo2, :measured_at,
			:notes, :created_at
		)
	`

	queryInsertMedication = `
		INSERT INTO medication_administrations (
			id, patient_id, recording_id, medication_name, dose, route,
			administered_at, refused, notes, created_at
		) VALUES (
			:id, :patient_id, :recording_id, :medication_name, :dose, :route,
			:administered_at, :refused, :notes, :created_at
		)
	`

	queryInsertClinicalNote = `
		INSERT INTO clinical_notes (
			id, patient_id, recording_id, note_type, text, created_at
		) VALUES (
			:id, :patient_id, :recording_id, :note_type, :text, :created_at
		)
	`

	queryInsertFunctionalAssessment = `
		INSERT INTO functional_assessments (
			id, patient_id, recording_id, activity, assist_level, observation,
			assessed_scale, score, created_at
		) VALUES (
			:id, :patient_id, :recording_id, :activity, :assist_level, :observation,
			:assessed_scale, :score, :created_at
		)
	`

	queryInsertIncident = `
		INSERT INTO incident_reports (
			id, patient_id, recording_id, incident_type, description, occurred_at,
			location, injury_seen, action_taken, created_at
		) VALUES (
			:id, :patient_id, :recording_id, :incident_type, :description, :occurred_at,
			:location, :injury_seen, :action_taken, :created_at
		)
	`

	queryInsertCarePlan = `
		INSERT INTO care_plan_items (
			id, patient_id, recording_id, goal, intervention, target_date,
			discipline, created_at
		) VALUES (
			:id, :patient_id, :recording_id, :goal, :intervention, :target_date,
			:discipline, :created_at
		)
	`

	queryInsertPain = `
		INSERT INTO pain_assessments (
			id, patient_id, recording_id, score, scale, location, character,
			relief_given, notes, created_at
		) VALUES (
			:id, :patient_id, :recording_id, :score, :scale, :location, :character,
			:relief_given, :notes, :created_at
		)
	`
)
