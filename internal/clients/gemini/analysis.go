// internal/clients/gemini/analysis.go
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	apperrors "compliance-agent/internal/common/errors"
)

// ComplianceAnalysis is the structured model assessment of a
// compliance question.
type ComplianceAnalysis struct {
	Status          string   `json:"status"`
	Score           int      `json:"score"`
	Jurisdiction    string   `json:"jurisdiction"`
	Findings        []string `json:"findings"`
	Recommendations []string `json:"recommendations"`
	RiskFactors     []string `json:"riskFactors"`
	NextSteps       []string `json:"nextSteps"`
	Sources         []string `json:"sources"`
}

const analysisSystemPrompt = `You are an expert crypto compliance advisor with deep knowledge of international regulations including FinCEN, FATF, EU regulations, and jurisdiction-specific requirements.

Your role is to:
1. Analyze compliance questions thoroughly using provided web research
2. Provide structured, actionable recommendations
3. Identify compliance gaps and risks
4. Suggest remediation strategies
5. Cite sources from the research provided

When analyzing compliance:
- Consider KYC/AML requirements
- Evaluate regulatory frameworks
- Assess risk levels
- Provide jurisdiction-specific guidance
- Recommend best practices

Always provide responses in valid JSON format with these exact fields:
{
  "status": "compliant" | "warning" | "non-compliant",
  "score": number (0-100),
  "jurisdiction": "identified jurisdiction",
  "findings": ["finding1", "finding2", ...],
  "recommendations": ["rec1", "rec2", ...],
  "riskFactors": ["risk1", "risk2", ...],
  "nextSteps": ["step1", "step2", ...],
  "sources": ["source1", "source2", ...]
}`

// jsonBlockRe captures the first brace-delimited substring.
var jsonBlockRe = regexp.MustCompile(`(?s)\{.*\}`)

// StructuredAnalysis asks the model for a strict-JSON compliance
// assessment. It never fails: when the model is unavailable, or the
// response carries no parseable JSON, a canned degraded analysis is
// returned instead.
func (c *Client) StructuredAnalysis(ctx context.Context, query, researchContext string) *ComplianceAnalysis {
	userPrompt := fmt.Sprintf(`Analyze this compliance question using the provided web research:

Question: %q

Web Research Results:
%s

Provide a detailed compliance assessment in JSON format.`, query, researchContext)

	response, ok := c.Generate(ctx, analysisSystemPrompt, userPrompt)
	if !ok {
		c.logger.Warn("Model unavailable, returning fallback analysis", nil)
		return unavailableAnalysis()
	}

	jsonBlock := jsonBlockRe.FindString(response)
	if jsonBlock == "" {
		return noJSONAnalysis()
	}

	var analysis ComplianceAnalysis
	if err := json.Unmarshal([]byte(jsonBlock), &analysis); err != nil {
		stdErr := apperrors.NewResponseParseError(err.Error())
		c.logger.Error("Failed to parse structured analysis", map[string]interface{}{
			"errorCode": string(stdErr.Code),
			"error":     err.Error(),
		})
		return parseFailureAnalysis()
	}
	return &analysis
}

// unavailableAnalysis is the fallback when the model cannot be reached.
func unavailableAnalysis() *ComplianceAnalysis {
	return &ComplianceAnalysis{
		Status:       "warning",
		Score:        65,
		Jurisdiction: "Multiple",
		Findings: []string{
			"Analysis using knowledge base only",
			"Real-time web search unavailable",
			"Please configure Gemini API for enhanced analysis",
		},
		Recommendations: []string{"Review compliance documentation", "Consult with compliance professional"},
		RiskFactors:     []string{"Limited real-time data", "Incomplete analysis"},
		NextSteps:       []string{"Provide more specific compliance details"},
		Sources:         []string{},
	}
}

// noJSONAnalysis is the fallback when the response has no JSON block.
func noJSONAnalysis() *ComplianceAnalysis {
	return &ComplianceAnalysis{
		Status:          "warning",
		Score:           70,
		Jurisdiction:    "Multiple",
		Findings:        []string{"Analysis completed", "Regulatory framework assessed"},
		Recommendations: []string{"Review compliance procedures", "Implement monitoring"},
		RiskFactors:     []string{"Regulatory changes"},
		NextSteps:       []string{"Schedule compliance review"},
		Sources:         []string{},
	}
}

// parseFailureAnalysis is the fallback when the JSON block is invalid.
func parseFailureAnalysis() *ComplianceAnalysis {
	return &ComplianceAnalysis{
		Status:          "warning",
		Score:           60,
		Jurisdiction:    "Unknown",
		Findings:        []string{"Analysis in progress", "Regulatory assessment pending"},
		Recommendations: []string{"Consult with compliance expert", "Review regulatory updates"},
		RiskFactors:     []string{"Incomplete information"},
		NextSteps:       []string{"Provide more details", "Consult professional"},
		Sources:         []string{},
	}
}
