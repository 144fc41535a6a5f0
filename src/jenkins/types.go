package jenkins

// JobList is the response of GET /api/json.
type JobList struct {
	Jobs []JobEntry `json:"jobs"`
}

// JobEntry is one job of the server's top-level job list.
type JobEntry struct {
	Name  string `json:"name"`
	URL   string `json:"url"`
	Color string `json:"color"`
}

// JobDetail is the response of GET /job/<job>/api/json.
// Builds are ordered newest first.
type JobDetail struct {
	Name     string        `json:"name"`
	Builds   []BuildRef    `json:"builds"`
	Property []JobProperty `json:"property"`
}

// ParametersPropertyClass marks the job property holding parameter definitions.
const ParametersPropertyClass = "hudson.model.ParametersDefinitionProperty"

// JobProperty is one entry of a job's property list. Only the
// ParametersPropertyClass entry carries ParameterDefinitions.
type JobProperty struct {
	Class                string                `json:"_class"`
	ParameterDefinitions []ParameterDefinition `json:"parameterDefinitions"`
}

// ParameterDefinition describes one build parameter of a job.
type ParameterDefinition struct {
	Class                 string          `json:"_class"`
	Name                  string          `json:"name"`
	Type                  string          `json:"type"`
	Description           string          `json:"description"`
	DefaultParameterValue *ParameterValue `json:"defaultParameterValue"`
	Choices               []string        `json:"choices"`
}

// ParameterValue is a parameter's default. Value is a string, bool or number
// depending on the parameter type.
type ParameterValue struct {
	Value interface{} `json:"value"`
}

// BuildRef is a build entry inside JobDetail.
type BuildRef struct {
	Number int    `json:"number"`
	URL    string `json:"url"`
}

// Build is the response of GET /job/<job>/<n>/api/json.
// Result is null while the build is running.
type Build struct {
	Number    int     `json:"number"`
	Building  bool    `json:"building"`
	Result    *string `json:"result"`
	Timestamp int64   `json:"timestamp"`
	Duration  int64   `json:"duration"`
}

// WorkflowRun is the response of GET /job/<job>/<n>/wfapi/describe.
type WorkflowRun struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Status string          `json:"status"`
	Stages []WorkflowStage `json:"stages"`
}

// WorkflowStage is one stage of a pipeline run.
type WorkflowStage struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Status         string `json:"status"`
	DurationMillis int64  `json:"durationMillis"`
}
