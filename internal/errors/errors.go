package errors

import (
	"errors"
	"fmt"
	"os"

	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/logger"
)

// ExitCancelled is the exit status used when the user backs out of a command
const ExitCancelled = 130

var (
	// ErrCancelled is returned when the user dismisses the planning dialog or a watch
	ErrCancelled = errors.New("cancelled")
	// ErrNoCurrentJob is returned when no submitted job is recorded locally
	ErrNoCurrentJob = errors.New("no planning job recorded")
)

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// IsCancelled reports whether err stems from the user backing out
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// ExitCode maps an error to the process exit status
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case IsCancelled(err):
		return ExitCancelled
	default:
		return 1
	}
}

// Fatal logs an error and exits the program with the status from ExitCode
func Fatal(err error) {
	if err == nil {
		return
	}
	if IsCancelled(err) {
		logger.Info("Command cancelled by user")
		fmt.Fprintln(os.Stderr, "Cancelled.")
		os.Exit(ExitCancelled)
	}
	logger.Error("Command execution failed", "error", err)
	fmt.Fprintf(os.Stderr, "%s\n", Format(err))
	os.Exit(ExitCode(err))
}

// Fatalf logs and formats an error message, then exits the program with exit code 1
func Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logger.Error("Command execution failed", "error", msg)
	fmt.Fprintf(os.Stderr, "%s\n", Formatf(format, args...))
	os.Exit(1)
}
