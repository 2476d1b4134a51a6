// internal/pipeline/extract.go
package pipeline

import (
	"regexp"
	"strconv"
)

const (
	defaultAccuracy   = 85
	defaultEngagement = 80
)

var (
	accuracyRe   = regexp.MustCompile(`(?i)Accuracy[^:]*:\s*(\d+)`)
	engagementRe = regexp.MustCompile(`(?i)Engagement[^:]*:\s*(\d+)`)
	sourceRe     = regexp.MustCompile(`Source:\s*(https?://\S+)`)
)

// ExtractScores pulls the accuracy and engagement scores out of the
// reflection report, defaulting when the report does not carry them.
func ExtractScores(reflectionOutput string) (accuracy, engagement int) {
	accuracy = defaultAccuracy
	engagement = defaultEngagement

	if m := accuracyRe.FindStringSubmatch(reflectionOutput); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			accuracy = v
		}
	}
	if m := engagementRe.FindStringSubmatch(reflectionOutput); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			engagement = v
		}
	}
	return accuracy, engagement
}

// ExtractSources collects source URLs from the research context.
func ExtractSources(ragOutput string) []string {
	matches := sourceRe.FindAllStringSubmatch(ragOutput, -1)
	if len(matches) == 0 {
		return nil
	}
	sources := make([]string, 0, len(matches))
	for _, m := range matches {
		sources = append(sources, m[1])
	}
	return sources
}
