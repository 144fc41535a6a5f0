package provider

import "time"

// BuildRef identifies a build in a CI system
type BuildRef struct {
	Provider string // "jenkins"
	Job      string // Full job name, folders joined with "/"
	Number   int    // Build number assigned by the CI server
}

// Job is an entry of the CI server's job list
type Job struct {
	Name  string `json:"name"`
	URL   string `json:"url"`
	Color string `json:"color"`
}

// BuildMetadata is the CI server's description of a single build.
// Result is empty while the build is running or when the server omits it.
type BuildMetadata struct {
	Number    int
	Building  bool
	Result    string
	Timestamp int64 // epoch millis
	Duration  int64 // millis
}

// StageRecord is one entry of the structured workflow description, in execution order.
type StageRecord struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// JobParameters lists the build parameters a job declares.
type JobParameters struct {
	HasParameters bool           `json:"hasParameters"`
	Parameters    []JobParameter `json:"parameters"`
}

// JobParameter is one declared build parameter. DefaultValue is rendered as text.
type JobParameter struct {
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	Description  string   `json:"description"`
	DefaultValue string   `json:"defaultValue"`
	Choices      []string `json:"choices"`
}

// NoParameters is the answer for a job that declares no parameters.
func NoParameters() *JobParameters {
	return &JobParameters{Parameters: []JobParameter{}}
}

// Credentials configure a provider instance
type Credentials struct {
	BaseURL  string
	Username string
	Token    string
	// Timeout caps every request when non-zero.
	Timeout time.Duration
}
