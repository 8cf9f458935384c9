package core

// error_messages.go maps technical errors to short operator-facing messages
// with a code that can be quoted in bug reports.
//
// Codes by category:
//
//	CFG001  database URL missing
//	DB001   connection refused
//	DB002   authentication failed
//	DB003   database does not exist
//	DB004   timeout
//	DB005   permission denied
//	FILE001 stops file not found
//	FILE002 header is missing required columns
//	FILE003 file is not valid CSV
//	STOP001 stop not found
//	PRED001 arrival prediction feed failed or returned garbage
//	ERR000  anything else; check the logs for the technical error
//
// Sentinel errors are checked with errors.Is first. After that, patterns are
// matched case-insensitively against err.Error() and the first match wins.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Reference code
}

var sentinelMessages = []struct {
	target error
	msg    UserMessage
}{
	{ErrMissingConnString, UserMessage{
		Message: "Database URL is not configured",
		Action:  "Set DATABASE_URL in the environment or .env file",
		Code:    "CFG001",
	}},
	{ErrFileNotFound, UserMessage{
		Message: "Stops file not found",
		Action:  "Check the --file path; a GTFS zip must contain stops.txt",
		Code:    "FILE001",
	}},
	{ErrStopNotFound, UserMessage{
		Message: "Stop not found",
		Action:  "Check the stop ID, or import the feed first",
		Code:    "STOP001",
	}},
	{ErrPredictionFeed, UserMessage{
		Message: "Arrival predictions are unavailable",
		Action:  "Check the route tag and try again later",
		Code:    "PRED001",
	}},
}

// errorPatterns is ordered: specific patterns before general ones.
var errorPatterns = []struct {
	pattern string
	msg     UserMessage
}{
	{"connection refused", UserMessage{
		Message: "Unable to connect to database",
		Action:  "Check that PostgreSQL is running and the host and port are correct",
		Code:    "DB001",
	}},
	{"password authentication failed", UserMessage{
		Message: "Database rejected the credentials",
		Action:  "Check the user and password in DATABASE_URL",
		Code:    "DB002",
	}},
	{"does not exist (sqlstate 3d000)", UserMessage{
		Message: "Database does not exist",
		Action:  "Create the database or fix the name in DATABASE_URL",
		Code:    "DB003",
	}},
	{"timeout", UserMessage{
		Message: "Operation timed out",
		Action:  "Please try again",
		Code:    "DB004",
	}},
	{"context deadline exceeded", UserMessage{
		Message: "Operation timed out",
		Action:  "Please try again",
		Code:    "DB004",
	}},
	{"permission denied", UserMessage{
		Message: "Database user lacks the required privileges",
		Action:  "Grant CREATE and INSERT on the target schema",
		Code:    "DB005",
	}},
	{"missing required columns", UserMessage{
		Message: "Stops file header is missing required columns",
		Action:  "The header must include stop_id, stop_name, stop_lat and stop_lon",
		Code:    "FILE002",
	}},
	{"missing header", UserMessage{
		Message: "Stops file is empty",
		Action:  "Provide a stops file with a header row",
		Code:    "FILE002",
	}},
	{"parse error on line", UserMessage{
		Message: "Stops file is not valid CSV",
		Action:  "Ensure the file is comma-separated UTF-8 text",
		Code:    "FILE003",
	}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the logs for details",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-facing message.
// Returns the zero UserMessage for nil and ERR000 when nothing matches.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, s := range sentinelMessages {
		if errors.Is(err, s.target) {
			return s.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders MapError as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}
