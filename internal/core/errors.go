package core

import (
	"errors"
	"fmt"
)

var (
	ErrSourceUnavailable = errors.New("data source unavailable")
	ErrMissingSheet      = errors.New("missing sheet")
	ErrMissingColumn     = errors.New("missing required column")
	ErrInvalidDate       = errors.New("invalid date")
	ErrNoData            = errors.New("no sales data")
)

// LoadError aborts a render cycle. It is shown to the user verbatim and
// never recovered per row.
type LoadError struct {
	Source string // backend name, e.g. "sheets"
	Sheet  string // optional
	Err    error
}

func (e *LoadError) Error() string {
	switch {
	case e.Sheet != "" && e.Source != "":
		return fmt.Sprintf("load %s (sheet %q): %v", e.Source, e.Sheet, e.Err)
	case e.Sheet != "":
		return fmt.Sprintf("load sheet %q: %v", e.Sheet, e.Err)
	case e.Source != "":
		return fmt.Sprintf("load %s: %v", e.Source, e.Err)
	default:
		return fmt.Sprintf("load: %v", e.Err)
	}
}

func (e *LoadError) Unwrap() error { return e.Err }

// NewLoadError wraps err unless it already is a LoadError.
func NewLoadError(source, sheet string, err error) error {
	if err == nil {
		return nil
	}
	var le *LoadError
	if errors.As(err, &le) {
		return err
	}
	return &LoadError{Source: source, Sheet: sheet, Err: err}
}

// IsLoadError reports whether err aborted a data load.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}
