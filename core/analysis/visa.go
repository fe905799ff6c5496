package analysis

import (
	"context"

	"github.com/pkg/errors"

	"github.com/darpanintel/darpan/core"
)

const visaSystemPrompt = `You are an expert immigration consultant who reviews visa decision letters for students.
Identify the decision outcome, every stated reason for refusal, and practical steps to improve a future application.
Respond with a single JSON object with these keys:
"summary" (string), "outcome" ("approved", "refused" or "unknown"), "country" (string), "visaType" (string),
"rejectionReasons" (array of {"title", "description", "category": "financial"|"academic"|"documentation"|"intent"|"eligibility"|"other", "severity": "high"|"medium"|"low"}),
"recommendations" (array of {"title", "description", "priority": "high"|"medium"|"low"}),
"nextSteps" (array of strings).`

// Coerced values
var (
	Outcomes         = []string{"approved", "refused", "unknown"}
	ReasonCategories = []string{"financial", "academic", "documentation", "intent", "eligibility", "other"}
	Levels           = []string{"high", "medium", "low"}
)

type (
	VisaAnalysis struct {
		Summary          string            `json:"summary"`
		Outcome          string            `json:"outcome"`
		Country          string            `json:"country"`
		VisaType         string            `json:"visa_type"`
		RejectionReasons []RejectionReason `json:"rejection_reasons"`
		Recommendations  []Recommendation  `json:"recommendations"`
		NextSteps        []string          `json:"next_steps"`
	}

	RejectionReason struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Category    string `json:"category"`
		Severity    string `json:"severity"`
	}

	Recommendation struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Priority    string `json:"priority"`
	}
)

var (
	defaultRecommendations = []Recommendation{{
		Title:       "Consult an immigration expert",
		Description: "Have a registered migration agent or counsellor review the decision letter and your documents.",
		Priority:    "high",
	}}
	defaultNextSteps = []string{
		"Review the decision letter carefully",
		"Gather supporting documents that address each concern",
		"Book a consultation with a Darpan counsellor",
	}
)

// VisaAnalyzer reviews visa decision letters.
type VisaAnalyzer interface {
	// AnalyzeVisa never fails: model or parse errors yield a fallback analysis.
	AnalyzeVisa(ctx context.Context, text string) VisaAnalysis
}

type visaAnalyzer struct {
	llm      core.LLMService
	maxChars int
	logger   core.Logger
}

var _ VisaAnalyzer = (*visaAnalyzer)(nil)

func NewVisaAnalyzer(llm core.LLMService, maxChars int, logger core.Logger) VisaAnalyzer {
	return &visaAnalyzer{llm: llm, maxChars: maxChars, logger: logger}
}

func (a *visaAnalyzer) AnalyzeVisa(ctx context.Context, text string) VisaAnalysis {
	resp, err := a.llm.Complete(ctx, core.ChatRequest{
		System: visaSystemPrompt,
		User:   "Analyze this visa decision document:\n\n" + core.Truncate(text, a.maxChars),
		JSON:   true,
	})
	if err != nil {
		a.logger.Error("visa analysis failed", errors.Wrap(err, "calling language model"))
		return FallbackVisaAnalysis(err)
	}
	obj, err := core.ParseJSONObject(resp)
	if err != nil {
		a.logger.Error("visa analysis returned invalid JSON", errors.Wrap(err, "parsing visa analysis"))
		return FallbackVisaAnalysis(err)
	}
	return RepairVisaAnalysis(obj)
}

// RepairVisaAnalysis coerces every field of a decoded model answer, filling defaults.
func RepairVisaAnalysis(obj map[string]interface{}) VisaAnalysis {
	va := VisaAnalysis{
		Summary:   core.AsString(obj["summary"], "The document was analysed but no summary was produced."),
		Outcome:   core.OneOf(core.AsString(obj["outcome"], ""), "unknown", Outcomes...),
		Country:   core.AsString(obj["country"], ""),
		VisaType:  core.AsString(core.Field(obj, "visaType", "visa_type"), ""),
		NextSteps: core.AsStringSlice(core.Field(obj, "nextSteps", "next_steps"), append([]string(nil), defaultNextSteps...)),
	}

	for _, m := range core.AsMapSlice(core.Field(obj, "rejectionReasons", "rejection_reasons")) {
		title := core.AsString(core.Field(m, "title", "reason"), "")
		desc := core.AsString(core.Field(m, "description", "details"), "")
		if title == "" && desc == "" {
			continue
		}
		if title == "" {
			title = core.FirstSentence(desc)
		}
		va.RejectionReasons = append(va.RejectionReasons, RejectionReason{
			Title:       title,
			Description: desc,
			Category:    core.OneOf(core.AsString(m["category"], ""), "other", ReasonCategories...),
			Severity:    core.OneOf(core.AsString(m["severity"], ""), "medium", Levels...),
		})
	}
	// plain string reasons
	if len(va.RejectionReasons) == 0 {
		for _, s := range core.AsStringSlice(core.Field(obj, "rejectionReasons", "rejection_reasons"), nil) {
			va.RejectionReasons = append(va.RejectionReasons, RejectionReason{Title: s, Category: "other", Severity: "medium"})
		}
	}
	if va.RejectionReasons == nil {
		va.RejectionReasons = []RejectionReason{}
	}

	va.Recommendations = repairRecommendations(core.Field(obj, "recommendations"), defaultRecommendations)
	return va
}

func repairRecommendations(v interface{}, def []Recommendation) []Recommendation {
	var recs []Recommendation
	if items := core.AsMapSlice(v); len(items) > 0 {
		for _, m := range items {
			title := core.AsString(core.Field(m, "title", "recommendation"), "")
			desc := core.AsString(m["description"], "")
			if title == "" && desc == "" {
				continue
			}
			if title == "" {
				title = core.FirstSentence(desc)
			}
			recs = append(recs, Recommendation{
				Title:       title,
				Description: desc,
				Priority:    core.OneOf(core.AsString(m["priority"], ""), "medium", Levels...),
			})
		}
	} else {
		for _, s := range core.AsStringSlice(v, nil) {
			recs = append(recs, Recommendation{Title: s, Priority: "medium"})
		}
	}
	if len(recs) == 0 {
		return append([]Recommendation(nil), def...)
	}
	return recs
}

// FallbackVisaAnalysis is returned when no usable answer could be obtained.
func FallbackVisaAnalysis(cause error) VisaAnalysis {
	return VisaAnalysis{
		Summary:          core.AnalysisErrorSummary(cause),
		Outcome:          "unknown",
		RejectionReasons: []RejectionReason{},
		Recommendations:  append([]Recommendation(nil), defaultRecommendations...),
		NextSteps:        append([]string(nil), defaultNextSteps...),
	}
}
