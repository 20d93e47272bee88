package domain

import "errors"

var (
	// ErrNotFound is returned when the input file does not exist.
	ErrNotFound = errors.New("file not found")
	// ErrStoreNotInitialized is returned when answering before indexing.
	ErrStoreNotInitialized = errors.New("vector store not initialized, run index first")
	// ErrNoDocuments is returned when there is nothing to split or index.
	ErrNoDocuments = errors.New("no documents")
	// ErrDimensionMismatch is returned when vectors disagree on length.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// PipelineError wraps a failure from any delegated step.
type PipelineError struct {
	Op  string
	Err error
}

func (e *PipelineError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *PipelineError) Unwrap() error { return e.Err }

// Wrap returns nil for a nil err, otherwise a *PipelineError for op.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PipelineError
	if errors.As(err, &pe) && pe.Op == op {
		return err
	}
	return &PipelineError{Op: op, Err: err}
}
