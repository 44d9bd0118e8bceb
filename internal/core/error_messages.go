package core

// # Error Codes Reference
//
// This file maps technical errors to user-facing messages with a code that
// staff can quote when asking for support.
//
// # Validation (VAL001-VAL099)
//
//	VAL001 - Required field: A required field is empty (student name)
//	         Action: Enter the student name before saving
//	         Patterns: "required field"
//
//	VAL002 - Invalid id: The record id is not a number
//	         Action: Select a record from the list and try again
//	         Patterns: "invalid record id"
//
// # Records (REC001-REC099)
//
//	REC001 - Not found: The record does not exist
//	         Action: Refresh the list; it may have been deleted
//	         Patterns: "record not found"
//
// # Storage (DB001-DB099)
//
//	DB001 - Connection refused: Unable to connect to database
//	        Patterns: "connection refused", "no such host"
//
//	DB002 - Database busy: The database file is locked by another writer
//	        Patterns: "database is locked", "sqlite_busy"
//
//	DB003 - Timeout: Database operation timed out
//	        Patterns: "timeout"
//
//	DB004 - Storage failure: Any other *store.StorageError
//
// # Import (IMP001-IMP099)
//
//	IMP001 - Unsupported format: only .xlsx, .xlsm, .xls and .csv are read
//	IMP002 - File too large
//	IMP003 - Empty file or no worksheet
//	IMP004 - Unreadable file: any other *ImportError
//
// # Render (RND001-RND099)
//
//	RND001 - Render failed: the certificate could not be written (*render.RenderError)
//
// # Batch jobs (JOB001-JOB099)
//
//	JOB001 - Job not found: unknown or expired batch id
//	JOB002 - System busy: too many imports or batch jobs in progress
//	JOB003 - Cancelled: the batch was cancelled before this unit ran
//
// # Requests (REQ001-REQ099)
//
//	REQ001 - Request cancelled ("context canceled")
//	REQ002 - Request timed out ("context deadline exceeded")
//	REQ003 - Malformed request ("invalid request")
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many requests ("rate limit")
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Check the application log for the
// technical error.
//
// # Matching
//
// Patterns are matched case-insensitively with strings.Contains and the first
// match wins. When no pattern matches, typed errors fall back to their
// category's generic code (DB004, IMP004, RND001).

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/tcgen/internal/render"
	"github.com/JonMunkholm/tcgen/internal/store"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var (
	msgRequired = UserMessage{
		Message: "Student name is required",
		Action:  "Enter the student name before saving",
		Code:    "VAL001",
	}
	msgStorage = UserMessage{
		Message: "The database operation failed",
		Action:  "Please try again; if it keeps failing, check the server log",
		Code:    "DB004",
	}
	msgImport = UserMessage{
		Message: "The file could not be read",
		Action:  "Check that the file is a valid Excel or CSV spreadsheet",
		Code:    "IMP004",
	}
	msgRender = UserMessage{
		Message: "The certificate could not be written",
		Action:  "Check that the output folder exists and is writable",
		Code:    "RND001",
	}
)

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// More specific patterns come first.
var errorPatterns = []errorPattern{
	// =========================================================================
	// Validation and records
	// =========================================================================
	{pattern: "required field", msg: msgRequired},
	{
		pattern: "invalid record id",
		msg: UserMessage{
			Message: "The record id is not valid",
			Action:  "Select a record from the list and try again",
			Code:    "VAL002",
		},
	},
	{
		pattern: "record not found",
		msg: UserMessage{
			Message: "The record does not exist",
			Action:  "Refresh the list; it may have been deleted",
			Code:    "REC001",
		},
	},

	// =========================================================================
	// Import
	// =========================================================================
	{
		pattern: "unsupported file format",
		msg: UserMessage{
			Message: "This file type is not supported",
			Action:  "Upload an .xlsx, .xls or .csv file",
			Code:    "IMP001",
		},
	},
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "The file exceeds the maximum import size",
			Action:  "Split the spreadsheet into smaller files",
			Code:    "IMP002",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The file is empty",
			Action:  "Upload a spreadsheet with at least one data row",
			Code:    "IMP003",
		},
	},
	{
		pattern: "no worksheet found",
		msg: UserMessage{
			Message: "The workbook has no worksheet",
			Action:  "Put the records on the first sheet of the workbook",
			Code:    "IMP003",
		},
	},

	// =========================================================================
	// Batch jobs and limits
	// =========================================================================
	{
		pattern: "batch job not found",
		msg: UserMessage{
			Message: "Batch job not found",
			Action:  "The job may have expired. Please start a new batch",
			Code:    "JOB001",
		},
	},
	{
		pattern: "too many concurrent imports",
		msg: UserMessage{
			Message: "System is busy processing other imports",
			Action:  "Please wait a moment and try again",
			Code:    "JOB002",
		},
	},
	{
		pattern: "too many batch jobs",
		msg: UserMessage{
			Message: "System is busy processing other batch jobs",
			Action:  "Please wait a moment and try again",
			Code:    "JOB002",
		},
	},
	{
		pattern: "batch cancelled",
		msg: UserMessage{
			Message: "The batch was cancelled",
			Action:  "Start a new batch when ready",
			Code:    "JOB003",
		},
	},

	// =========================================================================
	// Database connectivity
	// =========================================================================
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB001",
		},
	},
	{
		pattern: "no such host",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Check the database address in the configuration",
			Code:    "DB001",
		},
	},
	{
		pattern: "database is locked",
		msg: UserMessage{
			Message: "The database is busy",
			Action:  "Please try again",
			Code:    "DB002",
		},
	},
	{
		pattern: "sqlite_busy",
		msg: UserMessage{
			Message: "The database is busy",
			Action:  "Please try again",
			Code:    "DB002",
		},
	},

	// =========================================================================
	// Requests
	// =========================================================================
	{
		pattern: "invalid request",
		msg: UserMessage{
			Message: "The request could not be understood",
			Action:  "Check the submitted values and try again",
			Code:    "REQ003",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "REQ001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or fewer records",
			Code:    "REQ002",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
			Code:    "DB003",
		},
	},

	// =========================================================================
	// Rate Limiting (RATE001)
	// =========================================================================
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It searches through known error patterns (case-insensitive) and returns
// the first match, then falls back on the error's type, then ERR000.
//
// Example:
//
//	_, err := st.Insert(ctx, schema.Record{})
//	msg := MapError(err)
//	// msg.Code == "VAL001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	var (
		ve *store.ValidationError
		se *store.StorageError
		ie *ImportError
		re *render.RenderError
	)
	switch {
	case errors.As(err, &ve):
		return msgRequired
	case errors.As(err, &re):
		return msgRender
	case errors.As(err, &ie):
		return msgImport
	case errors.As(err, &se):
		return msgStorage
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific code rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	msg := MapError(err)
	return msg.Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
// The original error is preserved for logging.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps a technical error to a UserError.
// Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
