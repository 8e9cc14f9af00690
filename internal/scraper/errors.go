package scraper

import (
	"context"
	"errors"
	"fmt"

	"github.com/playwright-community/playwright-go"

	"github.com/maltedev/storefront-scraper/internal/models"
	"github.com/maltedev/storefront-scraper/internal/parser"
)

// StageError records which step of a unit of work failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}

// errorKind maps an error to a metrics label.
func errorKind(err error) string {
	if err == nil {
		return "unknown"
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, playwright.ErrTimeout):
		return "timeout"
	case errors.Is(err, playwright.ErrTargetClosed):
		return "target_closed"
	}
	var stage *StageError
	if errors.As(err, &stage) {
		return stage.Stage
	}
	return "unknown"
}

// errorMessage is the cleaned, length-capped form stored on rows.
func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	return parser.Truncate(parser.CleanText(err.Error()), models.MaxErrorLength)
}
