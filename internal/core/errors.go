package core

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat is returned for files that are not .xlsx, .xlsm, .xls or .csv.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrFileTooLarge is returned when an import exceeds the configured size limit.
	ErrFileTooLarge = errors.New("file too large")
	// ErrEmptyFile is returned for files with no bytes or no worksheet rows.
	ErrEmptyFile = errors.New("empty file")
	// ErrNoWorksheet is returned for workbooks without a readable first sheet.
	ErrNoWorksheet = errors.New("no worksheet found")

	// ErrJobNotFound is returned for unknown or expired batch job ids.
	ErrJobNotFound = errors.New("batch job not found")
	// ErrTooManyJobs is returned when all batch slots stay busy past the wait time.
	ErrTooManyJobs = errors.New("too many batch jobs, please try again later")
	// ErrCancelled marks units skipped because their batch was cancelled.
	ErrCancelled = errors.New("batch cancelled")

	// ErrInvalidRecordID is returned for ids that no store can assign.
	ErrInvalidRecordID = errors.New("invalid record id")
	// ErrRecordNotFound is returned when an operation names an id that does not exist.
	ErrRecordNotFound = errors.New("record not found")
)

// ImportError aborts a whole import before any row is processed.
type ImportError struct {
	File string
	Err  error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import %s: %v", e.File, e.Err)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}
