package models

import "time"

// SubmissionResponse is returned as soon as a job is queued
type SubmissionResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// StatusResponse is the body of a status or result poll
type StatusResponse struct {
	JobID       string     `json:"job_id"`
	Kind        JobKind    `json:"kind"`
	Status      string     `json:"status"`
	Result      *JobResult `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewStatusResponse projects a job record onto the polling contract
func NewStatusResponse(job Job) StatusResponse {
	return StatusResponse{
		JobID:       job.ID,
		Kind:        job.Kind,
		Status:      job.Status.APIStatus(),
		Result:      job.Result,
		Error:       job.Error,
		CreatedAt:   job.CreatedAt,
		CompletedAt: job.CompletedAt,
	}
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HealthResponse reports liveness and model backend availability
type HealthResponse struct {
	Status       string `json:"status"`
	ModelBackend string `json:"model_backend"`
	OCREnabled   bool   `json:"ocr_enabled"`
	QueueDepth   int    `json:"queue_depth"`
}
