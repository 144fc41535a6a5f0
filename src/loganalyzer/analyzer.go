// Package loganalyzer infers failure context from raw Jenkins console text.
//
// Both entry points are pure functions of their input. They never panic on
// malformed text and report "no answer" through their boolean result.
package loganalyzer

import (
	"regexp"
	"strings"
)

// SyntheticStagePrefix marks the wrapper stages that declarative pipelines emit
// around user-authored work (checkout, tool install, post actions).
const SyntheticStagePrefix = "Declarative:"

// Stage markers, in priority order. The first one matching a line wins.
var stagePatterns = []*regexp.Regexp{
	// [Pipeline] { (Build)
	regexp.MustCompile(`^\s*\[Pipeline\]\s*\{\s*\((.+)\)\s*$`),
	// Entering stage Build / Entering stage [Build]
	regexp.MustCompile(`(?i)\bentering stage\s+\[?([^\]\r\n]+?)\]?\s*$`),
	// Stage "Build" skipped due to earlier failure(s)
	regexp.MustCompile(`\bStage\s+["']([^"']+)["']`),
}

// Lines that mark the point where a build went wrong.
var failureIndicators = []*regexp.Regexp{
	regexp.MustCompile(`\bERROR:`),
	regexp.MustCompile(`\bFinished:\s*(FAILURE|ABORTED)\b`),
	regexp.MustCompile(`(?i)script returned exit code\s+[1-9]\d*`),
	regexp.MustCompile(`FlowInterruptedException|\bInterruptedException\b|\bAborted by\b`),
	regexp.MustCompile(`\b[A-Za-z_$][\w$.]*Exception\b`),
	regexp.MustCompile(`^\s*\[Pipeline\]\s*error\b`),
}

// Command echoes, checked on every line. Group 1 is the command text.
var commandPatterns = []*regexp.Regexp{
	// sh with -x tracing: "+ make test", nested subshells "++ git rev-parse"
	regexp.MustCompile(`^\s*\++\s+(\S.*)$`),
	// bat echo: "> gradlew.bat build" or "C:\workspace\app>gradlew.bat build"
	regexp.MustCompile(`^\s*>\s*(\S.*)$`),
	regexp.MustCompile(`^\s*[A-Za-z]:\\[^>]*>\s*(\S.*)$`),
	// interactive-style echo: "$ npm ci"
	regexp.MustCompile(`^\s*\$\s+(\S.*)$`),
	// inline invocation: sh -c 'make' / bash -c "make" / Running command: make
	regexp.MustCompile(`\b(?:ba)?sh\s+-c\s+["']?(.+?)["']?\s*$`),
	regexp.MustCompile(`(?i)\b(?:running|executing) command:\s*(\S.*)$`),
}

// Lines that open a shell or batch step.
var stepStartPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:running|executing) (?:shell|batch) script\b`),
	regexp.MustCompile(`^\s*\[Pipeline\]\s*(?:sh|bat|powershell|pwsh)\s*$`),
}

var bracketAnnotation = regexp.MustCompile(`^\s*\[Pipeline\]`)

// IsSyntheticStage reports whether name is declarative-pipeline bookkeeping
// rather than a stage the pipeline author wrote.
func IsSyntheticStage(name string) bool {
	return strings.HasPrefix(strings.TrimSpace(name), SyntheticStagePrefix)
}

// FindFailedStage returns the stage that was active when the first failure
// indicator appeared. Without any indicator seen inside a real stage it falls
// back to the last non-synthetic stage of the log.
func FindFailedStage(logText string) (string, bool) {
	if logText == "" {
		return "", false
	}

	current := ""
	for _, line := range splitLines(logText) {
		if name, ok := extractStage(line); ok && !IsSyntheticStage(name) {
			current = name
		}

		if current != "" && isFailureLine(line) {
			return current, true
		}
	}

	return current, current != ""
}

// FindFailingCommand returns the shell or batch command that was executing
// closest to the end of the log.
func FindFailingCommand(logText string) (string, bool) {
	if logText == "" {
		return "", false
	}
	lines := splitLines(logText)

	for i := len(lines) - 1; i >= 0; i-- {
		if cmd, ok := extractCommand(lines[i]); ok {
			return cmd, true
		}
	}

	for i := len(lines) - 1; i >= 0; i-- {
		if !isStepStart(lines[i]) {
			continue
		}
		for _, next := range lines[i+1:] {
			if cmd, ok := extractCommand(next); ok {
				return cmd, true
			}
			if trimmed := strings.TrimSpace(next); trimmed != "" && !bracketAnnotation.MatchString(next) {
				return trimmed, true
			}
		}
	}

	return "", false
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(text, "\n")
}

func extractStage(line string) (string, bool) {
	for _, re := range stagePatterns {
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		// A matching marker with a blank name still consumes the line.
		name := strings.TrimSpace(m[1])
		return name, name != ""
	}
	return "", false
}

func isFailureLine(line string) bool {
	for _, re := range failureIndicators {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

func extractCommand(line string) (string, bool) {
	for _, re := range commandPatterns {
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if cmd := strings.TrimSpace(m[1]); cmd != "" {
			return cmd, true
		}
	}
	return "", false
}

func isStepStart(line string) bool {
	for _, re := range stepStartPatterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}
