package repository

import "errors"

var (
	// ErrJobNotFound indicates no job is registered under the id
	ErrJobNotFound = errors.New("job not found")

	// ErrJobExists indicates a job with the same id was already created
	ErrJobExists = errors.New("job already exists")

	// ErrInvalidTransition indicates the requested status change is not allowed
	ErrInvalidTransition = errors.New("invalid job transition")

	// ErrRepositoryFull indicates the job cap is reached and nothing can be evicted
	ErrRepositoryFull = errors.New("job repository full")
)
