package service

import (
	"fmt"
	"strings"

	"github.com/nmibc-risk-mcp/internal/domain"
)

// BuildCaseSummary renders an evaluation and its optional schedule as plain text
// for the text-generation collaborator. It contains no patient identifiers.
func BuildCaseSummary(evaluation *domain.Evaluation, schedule []domain.ScheduleEntry) string {
	var b strings.Builder

	b.WriteString("NMIBC case summary\n")
	for _, line := range evaluation.Findings.Describe() {
		b.WriteString("- ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "- Clinical risk factor count: %d of 3\n", evaluation.ClinicalRiskFactorCount)
	fmt.Fprintf(&b, "\nEAU 2025 risk group: %s\n", evaluation.Protocol.DisplayLabel)
	fmt.Fprintf(&b, "Recommendation: %s\n", evaluation.Protocol.ShortRecommendation)
	fmt.Fprintf(&b, "Treatment: %s\n", evaluation.Protocol.TreatmentText)
	if evaluation.Protocol.InductionDescription != nil {
		fmt.Fprintf(&b, "BCG protocol: %s\n", *evaluation.Protocol.InductionDescription)
	}
	fmt.Fprintf(&b, "Follow-up: %s\n", evaluation.Protocol.FollowUpText)

	if len(schedule) > 0 {
		b.WriteString("\nMaintenance cycle start dates:\n")
		for _, entry := range schedule {
			fmt.Fprintf(&b, "- month %d: %s\n", entry.MonthOffset, entry.FormattedDate())
		}
	}

	return b.String()
}
