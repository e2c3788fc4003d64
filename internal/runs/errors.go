package runs

import "errors"

// Domain errors for assessment run operations.
var (
	ErrEmptyFeedback = errors.New("feedback text must be non-empty")
	ErrRunNotFound   = errors.New("assessment run not found")
	ErrNoRuns        = errors.New("submission has no assessment runs")
	ErrNoPrevious    = errors.New("submission has no previous assessment run")
	ErrDuplicateRun  = errors.New("assessment run already exists")
)
