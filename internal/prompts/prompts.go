// Package prompts centralizes prompt templates, search query generation,
// and score extraction for the research pipeline.
package prompts

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/fyrsmithlabs/researchd/internal/search"
)

// DefaultScore is returned when no viability score can be extracted
// from criticism text.
const DefaultScore = 50.0

// Restart reasons recorded in run state.
const (
	RestartReasonPriorArt     = "prior-art"
	RestartReasonLowViability = "low-viability"
)

const alphaOnlyPlanTemplate = `Research Plan for Alpha-Only Proposal: %s

Focus Areas:
1. Market analysis and data sources needed
2. Alpha generation strategy and methodology
3. Risk considerations and limitations
4. Universe definition and asset selection criteria

Search Strategy:
- Academic papers on similar trading strategies
- Industry reports on relevant market segments
- Technical analysis methodologies
- Risk management frameworks`

const fullPlanTemplate = `Research Plan for Full Proposal: %s

Focus Areas:
1. Alpha generation strategies
2. Risk management approaches
3. Portfolio construction methods
4. Execution frameworks
5. Universe definition

Search Strategy:
- Comprehensive literature review
- Industry best practices
- Technical implementations
- Academic research`

// Plan renders the research plan text for an idea.
func Plan(idea string, alphaOnly bool) string {
	if alphaOnly {
		return fmt.Sprintf(alphaOnlyPlanTemplate, idea)
	}
	return fmt.Sprintf(fullPlanTemplate, idea)
}

// IterationNote renders restart guidance appended to the plan when a
// previous pass triggered a planning restart.
func IterationNote(iteration int, reason string) string {
	if reason == "" {
		return ""
	}
	note := fmt.Sprintf("\n\nITERATION %d - ADDRESSING: %s", iteration+1, reason)
	switch reason {
	case RestartReasonPriorArt:
		note += "\nFocus on: Novel approaches, unique data sources, differentiation strategies"
	case RestartReasonLowViability:
		note += "\nFocus on: Risk mitigation, implementation feasibility, alternative approaches"
	}
	return note
}

var alphaOnlySearchQueries = []string{
	"%s trading strategy research",
	"%s alpha generation finance",
	"%s market analysis methodology",
	"quantitative trading risk management",
	"portfolio alpha generation techniques",
}

var fullSearchQueries = []string{
	"%s quantitative finance research",
	"%s portfolio management",
	"%s trading strategy",
	"risk management quantitative finance",
	"portfolio optimization techniques",
	"execution algorithms trading",
}

// SearchQueries returns the web search queries for an idea.
func SearchQueries(idea string, alphaOnly bool) []string {
	templates := fullSearchQueries
	if alphaOnly {
		templates = alphaOnlySearchQueries
	}
	queries := make([]string, 0, len(templates))
	for _, tmpl := range templates {
		if strings.Contains(tmpl, "%s") {
			queries = append(queries, fmt.Sprintf(tmpl, idea))
		} else {
			queries = append(queries, tmpl)
		}
	}
	return queries
}

// IterationQueries returns extra query variations used on planning
// restarts to steer research away from the failed approach.
func IterationQueries(idea string) []string {
	return []string{
		fmt.Sprintf("%s novel approach alternative", idea),
		fmt.Sprintf("%s differentiation strategy unique", idea),
		fmt.Sprintf("alternative %s methodology", idea),
	}
}

// PriorArtQueries returns GitHub repository search queries for an idea.
func PriorArtQueries(idea string) []string {
	return []string{
		fmt.Sprintf("%s trading strategy", idea),
		fmt.Sprintf("%s algorithmic trading", idea),
		fmt.Sprintf("%s quantconnect lean", idea),
	}
}

// PriorArtVerdict classifies the novelty of an idea from the number of
// related repositories found.
func PriorArtVerdict(totalFound int) (verdict, reasoning string) {
	if totalFound == 0 {
		return "novel", "No similar implementations found"
	}
	return "similar", fmt.Sprintf("Found %d potentially related implementations", totalFound)
}

// AlphaModeNote returns the synthesis system prompt addendum for
// alpha-only mode.
func AlphaModeNote(alphaOnly bool) string {
	if !alphaOnly {
		return ""
	}
	return `ALPHA-ONLY MODE:
- Only include these fields: 'alphas', 'universe', 'alpha-only'
- Set 'alpha-only': true
- Include exactly 1 alpha (new or amend) and 1 existing universe
`
}

const criticismSystemPrompt = `You are a senior quantitative finance researcher and risk management expert tasked with critically evaluating research proposals.

TARGET FINANCIAL INSTRUMENTS: %s

Your role is to identify potential flaws, risks, limitations, and areas for improvement in quantitative trading strategies BEFORE they are fully developed.

Focus on:
1. Market regime dependencies and robustness
2. Data quality and availability concerns
3. Implementation challenges and transaction costs
4. Risk management gaps
5. Overfitting and survivorship bias risks
6. Regulatory and compliance considerations
7. Scalability and capacity constraints
8. Alternative explanations for observed patterns

Be constructive but thorough in identifying potential issues.`

const criticismUserPrompt = `Please critically evaluate this research proposal idea: %s
Target Instruments: %s

Research Context:
%s

Provide a balanced assessment that identifies both strengths and potential weaknesses.
Include specific recommendations for addressing identified concerns.

IMPORTANT: Also provide a VIABILITY SCORE from 0-100 where:
- 0-30: Major fundamental flaws, high risk of failure
- 31-50: Significant concerns but potentially salvageable with major modifications
- 51-70: Moderate concerns, needs refinement but viable
- 71-85: Good concept with minor issues to address
- 86-100: Excellent concept with minimal concerns

Format your response with the score clearly stated as "VIABILITY SCORE: XX" at the end.`

// CriticismSystem renders the criticism system prompt.
func CriticismSystem(instruments string) string {
	return fmt.Sprintf(criticismSystemPrompt, instruments)
}

// CriticismUser renders the criticism user prompt.
func CriticismUser(idea, instruments, researchContext string) string {
	return fmt.Sprintf(criticismUserPrompt, idea, instruments, researchContext)
}

// CriticismContext summarizes the research plan and top findings for
// the criticism prompt.
func CriticismContext(researchPlan string, results []search.Result) string {
	summary := "Limited research data available"
	if len(results) > 0 {
		var b strings.Builder
		b.WriteString("Key findings from web research:\n")
		for i, r := range results {
			if i >= 3 {
				break
			}
			fmt.Fprintf(&b, "%d. %s: %s...\n", i+1, orUntitled(r.Title), truncate(r.Content, 200))
		}
		summary = b.String()
	}
	return fmt.Sprintf("Research Plan:\n%s\n\nKey Research Findings:\n%s", researchPlan, summary)
}

const synthesisSystemPrompt = `You are a quantitative finance research expert generating a Lean algorithm research proposal.

TARGET FINANCIAL INSTRUMENTS: %s

You must generate a research proposal that strictly follows the provided JSON schema.

FULL JSON SCHEMA:
%s

SCHEMA OVERVIEW:
- "universe": Market universe definition (new, existing, or amend)
- "alphas": Alpha signal definitions (new, existing, or amend)
- "portfolio": Portfolio construction logic (new, existing, or amend)
- "execution": Execution model definitions (new, existing, or amend)
- "risk": Risk management components (new, existing, or amend)
- "misc": Free-form metadata and additional information
- "alpha-only": Boolean flag for alpha-only mode restrictions

%s
CORE REQUIREMENTS:
- Never include actual trading code - only plain-language descriptions in 'text' fields
- All components must have clear text descriptions of their logic and methodology
- Ensure all required fields are present and properly typed
- Use descriptive names and clear explanations for all components
- Reference research findings and methodology in component descriptions

RESPONSE FORMAT:
Return only valid JSON that conforms exactly to the schema.`

// SynthesisSystem renders the synthesis system prompt.
func SynthesisSystem(instruments, schemaJSON string, alphaOnly bool) string {
	return fmt.Sprintf(synthesisSystemPrompt, instruments, schemaJSON, AlphaModeNote(alphaOnly))
}

const synthesisUserPrompt = `%s

IDEA: %s
TARGET INSTRUMENTS: %s

RESEARCH CONTEXT:
%s

CONFIGURATION:
- Alpha-only mode: %t
%s
REQUIREMENTS:
- Base your proposal on the research context provided above
- Include detailed text descriptions (no trading code)
- Reference the research findings in your component descriptions
- If alpha-only mode is enabled, include exactly one alpha and one existing universe only

Generate the JSON proposal now:`

// SynthesisUser renders the synthesis user prompt.
func SynthesisUser(taskContext, idea, instruments, researchContext string, alphaOnly bool, validationContext string) string {
	return fmt.Sprintf(synthesisUserPrompt, taskContext, idea, instruments, researchContext, alphaOnly, validationContext)
}

// TaskContext distinguishes a fresh synthesis from a repair pass.
func TaskContext(isRepair bool, originalProposal string) string {
	if !isRepair {
		return "TASK: Generate a comprehensive research proposal for the following trading strategy idea."
	}
	return fmt.Sprintf(`TASK: Fix the validation errors in this existing research proposal.

ORIGINAL PROPOSAL WITH ERRORS:
`+"```json\n%s\n```"+`

You must analyze the validation errors and return a corrected version that:
1. Fixes ALL validation errors completely
2. Maintains the original research intent and content
3. Preserves all valid components and descriptions
4. Only makes minimal necessary changes to resolve errors`, originalProposal)
}

// ValidationContext renders the error feedback block for repair passes.
func ValidationContext(errors []string) string {
	if len(errors) == 0 {
		return ""
	}
	return fmt.Sprintf(`
VALIDATION ERRORS TO FIX:
%s

Please address each validation error listed above in your response.
`, strings.Join(errors, "\n"))
}

// ResearchContext assembles the synthesis research context from the
// plan, web findings, and the prior art verdict.
func ResearchContext(researchPlan string, results []search.Result, verdict, reasoning string, totalFound int) string {
	return fmt.Sprintf(`Research Plan:
%s

Web Search Results:
%s
Prior Art Analysis:
- Verdict: %s
- Reasoning: %s
- Found %d related implementations
`, researchPlan, FormatWebResults(results, 5), verdict, reasoning, totalFound)
}

// FormatWebResults renders up to limit search results as a bullet list.
func FormatWebResults(results []search.Result, limit int) string {
	var b strings.Builder
	for i, r := range results {
		if i >= limit {
			break
		}
		fmt.Fprintf(&b, "- %s (%s)\n  %s...\n", orUntitled(r.Title), r.Source, truncate(r.Content, 500))
	}
	return b.String()
}

var (
	scorePattern    = regexp.MustCompile(`(?i)VIABILITY SCORE:\s*(\d+)`)
	fallbackScoreRE = []*regexp.Regexp{
		regexp.MustCompile(`(?i)viability.*?(\d+)(?:/100|\s*out of 100)`),
		regexp.MustCompile(`(?i)score.*?(\d+)(?:/100|\s*out of 100)`),
		regexp.MustCompile(`(?i)rating.*?(\d+)(?:/100|\s*out of 100)`),
	}
)

// ExtractViabilityScore pulls the 0-100 viability score out of
// criticism text. Returns DefaultScore when no score is found.
func ExtractViabilityScore(text string) float64 {
	if m := scorePattern.FindStringSubmatch(text); m != nil {
		if score, err := strconv.ParseFloat(m[1], 64); err == nil {
			return score
		}
	}
	for _, re := range fallbackScoreRE {
		if m := re.FindStringSubmatch(text); m != nil {
			if score, err := strconv.ParseFloat(m[1], 64); err == nil {
				return score
			}
		}
	}
	return DefaultScore
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func orUntitled(title string) string {
	if title == "" {
		return "Untitled"
	}
	return title
}
