package signal

import "strings"

// issuePrefix marks a reported finding in failing review/QA output.
// Each finding sits on its own line: "ISSUE: <description>".
const issuePrefix = "ISSUE:"

// Classify scans raw worker output for a vocabulary token and returns
// the matching signal, or Unrecognized when none is present. Matching
// is plain substring presence walked in Priority order.
func Classify(output string) Signal {
	for _, sig := range Priority {
		if strings.Contains(output, string(sig)) {
			return sig
		}
	}
	return Unrecognized
}

// ExtractIssues collects the ISSUE: lines from worker output, in order.
// Returns nil when the output reports none.
func ExtractIssues(output string) []string {
	var issues []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, issuePrefix) {
			continue
		}
		desc := strings.TrimSpace(strings.TrimPrefix(line, issuePrefix))
		if desc != "" {
			issues = append(issues, desc)
		}
	}
	return issues
}
