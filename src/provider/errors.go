package provider

import (
	"errors"
	"fmt"
)

var (
	ErrAuthFailed     = errors.New("authentication failed")
	ErrBuildNotFound  = errors.New("build not found")
	ErrJobNotFound    = errors.New("job not found")
	ErrNetworkTimeout = errors.New("network timeout")
)

// UserError wraps errors with user-friendly messages
type UserError struct {
	Message string
	Hint    string
	Err     error
}

func (e *UserError) Error() string {
	msg := e.Message
	if e.Hint != "" {
		msg += "\n\nHint: " + e.Hint
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n\nDetails: %v", e.Err)
	}
	return msg
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// WrapError converts provider errors to user-friendly messages
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrInvalidURL):
		return &UserError{
			Message: "Invalid build URL",
			Hint:    "Supported format:\n  - https://jenkins.example.com/job/<name>/<number>/\n  - https://jenkins.example.com/job/<folder>/job/<name>/<number>/",
			Err:     err,
		}
	case errors.Is(err, ErrAuthFailed):
		return &UserError{
			Message: "Authentication failed",
			Hint:    "Check that JENKINS_USER and JENKINS_TOKEN are set and the API token is still valid.",
			Err:     err,
		}
	case errors.Is(err, ErrJobNotFound):
		return &UserError{
			Message: "Job not found",
			Hint:    "Check the job name. Jobs inside folders are written as folder/job.",
			Err:     err,
		}
	case errors.Is(err, ErrBuildNotFound):
		return &UserError{
			Message: "Build not found",
			Hint:    "Check that the build number exists and has not been discarded by the job's retention policy.",
			Err:     err,
		}
	case errors.Is(err, ErrNetworkTimeout):
		return &UserError{
			Message: "Jenkins did not respond in time",
			Hint:    "Check that JENKINS_URL is reachable from this host.",
			Err:     err,
		}
	}

	return err
}
