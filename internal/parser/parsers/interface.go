package parsers

import (
	"context"
	"errors"
	"fmt"

	"github.com/Vodeneev/linecompare/internal/pkg/models"
)

// ErrUnknownProducer is returned by Build when a source's kind has no registered factory.
var ErrUnknownProducer = errors.New("unknown producer")

// Producer fetches one raw extraction from a price source.
type Producer interface {
	Name() string
	FetchRaw(ctx context.Context) (*models.RawExtraction, error)
}

// Closer is implemented by producers holding resources (browser tabs) across cycles.
type Closer interface {
	Close() error
}

// ExtractionError reports that a source could not deliver data this cycle.
type ExtractionError struct {
	Source string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s: extraction failed: %v", e.Source, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// NewExtractionError wraps err for source, keeping an existing ExtractionError as is.
func NewExtractionError(source string, err error) error {
	if err == nil {
		return nil
	}
	var ee *ExtractionError
	if errors.As(err, &ee) {
		return err
	}
	return &ExtractionError{Source: source, Err: err}
}
