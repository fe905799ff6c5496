package coe

import (
	"context"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/darpanintel/darpan/core"
)

const systemPrompt = `You are an Australian student visa specialist who reviews Confirmation of Enrolment (CoE) documents.
Extract the enrolment details exactly as printed and point out anything a student visa application depends on.
When a value is not printed, leave it empty or 0. Amounts are plain numbers.
Respond with a single JSON object with these keys:
"studentName", "studentId", "providerName", "providerCricos", "courseName", "courseCricos", "courseLevel",
"startDate", "endDate", "currency", "tuitionFee", "prepaidAmount",
"oshc": {"provider", "startDate", "endDate"},
"summary" (string), "keyFindings" (array of strings), "complianceNotes" (array of strings),
"recommendations" (array of strings), "nextSteps" (array of strings).`

var (
	// CRICOS provider codes are 5 digits and a letter; course codes 6 digits and a letter.
	providerCricosRegex = regexp.MustCompile(`^\d{5}[A-Z]$`)
	courseCricosRegex   = regexp.MustCompile(`^\d{6}[A-Z]$`)

	// hints read directly from the document
	providerCodeHint = regexp.MustCompile(`(?i)provider\s+(?:cricos\s+)?code\s*:?\s*(\d{5}[A-Za-z])\b`)
	courseCodeHint   = regexp.MustCompile(`(?i)course\s+(?:cricos\s+)?code\s*:?\s*(\d{6}[A-Za-z])\b`)
)

var (
	defaultKeyFindings     = []string{"Confirmation of Enrollment received; verify every detail against your offer letter"}
	defaultComplianceNotes = []string{
		"Maintain satisfactory course progress and attendance",
		"Keep Overseas Student Health Cover for the whole duration of your visa",
		"Notify your provider of any change of address within 7 days",
	}
	defaultRecommendations = []string{
		"Check that the course dates match your visa application",
		"Keep a copy of the CoE with your visa documents",
	}
	defaultNextSteps = []string{
		"Lodge your student visa application with this CoE",
		"Arrange Overseas Student Health Cover if it is not included",
		"Plan your arrival before the course start date",
	}
)

// Analyzer reads COE documents.
type Analyzer interface {
	// Analyze never fails: model or parse errors yield a fallback analysis.
	Analyze(ctx context.Context, text string) CoeAnalysis
}

type analyzer struct {
	llm      core.LLMService
	maxChars int
	logger   core.Logger
}

var _ Analyzer = (*analyzer)(nil)

func NewAnalyzer(llm core.LLMService, maxChars int, logger core.Logger) Analyzer {
	return &analyzer{llm: llm, maxChars: maxChars, logger: logger}
}

func (a *analyzer) Analyze(ctx context.Context, text string) CoeAnalysis {
	hints := ExtractHints(text)
	resp, err := a.llm.Complete(ctx, core.ChatRequest{
		System: systemPrompt,
		User:   "Analyze this Confirmation of Enrolment:\n\n" + core.Truncate(text, a.maxChars),
		JSON:   true,
	})
	if err != nil {
		a.logger.Error("coe analysis failed", errors.Wrap(err, "calling language model"))
		return Fallback(err, hints)
	}
	obj, err := core.ParseJSONObject(resp)
	if err != nil {
		a.logger.Error("coe analysis returned invalid JSON", errors.Wrap(err, "parsing coe analysis"))
		return Fallback(err, hints)
	}
	return Repair(obj, hints)
}

// Hints are the CRICOS codes printed on the document.
type Hints struct {
	ProviderCricos string
	CourseCricos   string
}

func ExtractHints(text string) Hints {
	var h Hints
	if m := providerCodeHint.FindStringSubmatch(text); m != nil {
		h.ProviderCricos = strings.ToUpper(m[1])
	}
	if m := courseCodeHint.FindStringSubmatch(text); m != nil {
		h.CourseCricos = strings.ToUpper(m[1])
	}
	return h
}

// Repair coerces every field of a decoded model answer into a CoeAnalysis.
func Repair(obj map[string]interface{}, h Hints) CoeAnalysis {
	oshc := core.AsMap(core.Field(obj, "oshc", "OSHC", "healthCover"))
	return CoeAnalysis{
		StudentName:    core.AsString(core.Field(obj, "studentName", "student_name"), ""),
		StudentID:      core.AsString(core.Field(obj, "studentId", "student_id"), ""),
		ProviderName:   core.AsString(core.Field(obj, "providerName", "provider_name", "provider"), ""),
		ProviderCricos: cricos(core.Field(obj, "providerCricos", "provider_cricos"), providerCricosRegex, h.ProviderCricos),
		CourseName:     core.AsString(core.Field(obj, "courseName", "course_name", "course"), ""),
		CourseCricos:   cricos(core.Field(obj, "courseCricos", "course_cricos"), courseCricosRegex, h.CourseCricos),
		CourseLevel:    core.AsString(core.Field(obj, "courseLevel", "course_level"), ""),
		StartDate:      core.AsString(core.Field(obj, "startDate", "start_date"), ""),
		EndDate:        core.AsString(core.Field(obj, "endDate", "end_date"), ""),
		Currency:       strings.ToUpper(core.AsString(obj["currency"], "AUD")),
		TuitionFee:     nonNegative(core.AsFloat(core.Field(obj, "tuitionFee", "tuition_fee", "totalTuitionFee"), 0)),
		PrepaidAmount:  nonNegative(core.AsFloat(core.Field(obj, "prepaidAmount", "prepaid_amount", "prepaid"), 0)),
		OSHC: OSHC{
			Provider:  core.AsString(core.Field(oshc, "provider", "name"), ""),
			StartDate: core.AsString(core.Field(oshc, "startDate", "start_date"), ""),
			EndDate:   core.AsString(core.Field(oshc, "endDate", "end_date"), ""),
		},
		Summary:         core.AsString(obj["summary"], "Confirmation of Enrollment analysed. Review the details below."),
		KeyFindings:     core.AsStringSlice(core.Field(obj, "keyFindings", "key_findings"), copyStrings(defaultKeyFindings)),
		ComplianceNotes: core.AsStringSlice(core.Field(obj, "complianceNotes", "compliance_notes"), copyStrings(defaultComplianceNotes)),
		Recommendations: core.AsStringSlice(obj["recommendations"], copyStrings(defaultRecommendations)),
		NextSteps:       core.AsStringSlice(core.Field(obj, "nextSteps", "next_steps"), copyStrings(defaultNextSteps)),
	}
}

// cricos keeps a well formed code, falling back to the one read from the document.
func cricos(v interface{}, format *regexp.Regexp, hint string) string {
	code := strings.ToUpper(strings.ReplaceAll(core.AsString(v, ""), " ", ""))
	if format.MatchString(code) {
		return code
	}
	return hint
}

func nonNegative(f float64) float64 {
	if f < 0 {
		return 0
	}
	return f
}

// Fallback is the analysis returned when no usable model answer could be obtained.
func Fallback(cause error, h Hints) CoeAnalysis {
	return CoeAnalysis{
		ProviderCricos:  h.ProviderCricos,
		CourseCricos:    h.CourseCricos,
		Currency:        "AUD",
		Summary:         core.AnalysisErrorSummary(cause),
		KeyFindings:     copyStrings(defaultKeyFindings),
		ComplianceNotes: copyStrings(defaultComplianceNotes),
		Recommendations: copyStrings(defaultRecommendations),
		NextSteps:       copyStrings(defaultNextSteps),
	}
}

func copyStrings(s []string) []string {
	return append([]string(nil), s...)
}
