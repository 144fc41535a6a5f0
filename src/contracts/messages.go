// Package contracts defines the messages exchanged over the broker.
package contracts

// TopicBuildFailures carries one StageFailureEvent per failed build.
// Key: {job}
const TopicBuildFailures = "jenkins.builds.failures"

// StageFailureEvent reports a build that finished failure-class, with the
// stage and command the analyzer attributed the failure to.
type StageFailureEvent struct {
	// Unique identifier.
	ID string `json:"id"`
	// Originating CI server (e.g. "jenkins").
	Source string `json:"source"`
	// Full job name, folders joined with "/".
	Job string `json:"job"`
	// Build number.
	BuildNumber int `json:"build_number"`
	// Build URL on the CI server, when known.
	BuildURL string `json:"build_url,omitempty"`
	// Build status (FAILURE or ABORTED).
	Status string `json:"status"`
	// Stage the failure was attributed to, empty when unknown.
	FailedStage string `json:"failed_stage,omitempty"`
	// Last command that ran before the failure, empty when unknown.
	FailingCommand string `json:"failing_command,omitempty"`
	// Build start time (epoch millis).
	Timestamp int64 `json:"timestamp"`
	// Time the event was emitted (RFC 3339).
	DetectedAt string `json:"detected_at"`
}
