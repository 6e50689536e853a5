package main

import (
	"encoding/json"
	"regexp"
	"strings"
)

// recoveryMarker separates the alert section of a message template from
// the recovery section. Only the first occurrence splits; any later
// occurrence is plain text.
const recoveryMarker = "{{#is_recovery}}"

// mentionPattern matches an @-mention: an at-sign followed by one or more
// non-whitespace characters.
var mentionPattern = regexp.MustCompile(`@\S+`)

// projectTagPrefixes are checked per tag, in this order.
var projectTagPrefixes = []string{"project:", "service:", "team:"}

// projectKeywords are matched against the monitor name, in this order,
// when no tag classifies the monitor.
var projectKeywords = []string{"api", "web", "frontend", "backend", "db", "database", "service"}

// parseNotifications extracts every @-mention from a message template.
// Mentions before the recovery marker are alert targets, mentions after
// it are recovery targets. Each target carries the whole trimmed line it
// was found on as context, so two mentions on one line share context.
func parseNotifications(message string) []NotificationTarget {
	if message == "" {
		return nil
	}

	parts := strings.SplitN(message, recoveryMarker, 2)
	targets := collectMentions(parts[0], false)
	if len(parts) == 2 {
		targets = append(targets, collectMentions(parts[1], true)...)
	}
	return targets
}

// collectMentions scans one section line by line, in order.
func collectMentions(section string, isRecovery bool) []NotificationTarget {
	var targets []NotificationTarget
	for _, line := range strings.Split(section, "\n") {
		matches := mentionPattern.FindAllString(line, -1)
		if len(matches) == 0 {
			continue
		}
		context := strings.TrimSpace(line)
		for _, m := range matches {
			targets = append(targets, NotificationTarget{
				Target:     m,
				Context:    context,
				IsRecovery: isRecovery,
			})
		}
	}
	return targets
}

// classifySeverity derives a priority label. A priority:<value> tag wins
// outright; otherwise the monitor's thresholds decide: a critical
// threshold means "high", a warning threshold "medium". Malformed or
// missing options never fail, they just fall through to "normal".
func classifySeverity(tags []string, options json.RawMessage) string {
	for _, tag := range tags {
		if v, ok := strings.CutPrefix(tag, "priority:"); ok && v != "" {
			return v
		}
	}

	var opts struct {
		Thresholds map[string]json.RawMessage `json:"thresholds"`
	}
	if len(options) > 0 && json.Unmarshal(options, &opts) == nil {
		if thresholdPresent(opts.Thresholds, "critical") {
			return "high"
		}
		if thresholdPresent(opts.Thresholds, "warning") {
			return "medium"
		}
	}
	return "normal"
}

func thresholdPresent(thresholds map[string]json.RawMessage, key string) bool {
	v, ok := thresholds[key]
	return ok && string(v) != "null"
}

// classifyProject derives a project label. Tags are scanned in their
// original order and the first tag carrying a project:, service: or
// team: prefix wins; failing that, the monitor name is searched for a
// known keyword; failing that, "unknown".
func classifyProject(tags []string, name string) string {
	for _, tag := range tags {
		for _, prefix := range projectTagPrefixes {
			if v, ok := strings.CutPrefix(tag, prefix); ok && v != "" {
				return v
			}
		}
	}

	lower := strings.ToLower(name)
	for _, keyword := range projectKeywords {
		if strings.Contains(lower, keyword) {
			return keyword
		}
	}
	return "unknown"
}
