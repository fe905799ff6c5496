package offerletter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/darpanintel/darpan/core"
	"github.com/darpanintel/darpan/core/scholarship"
)

const systemPrompt = `You are an international education advisor who explains university offer letters to students.
Read the offer letter and produce an accurate, structured analysis. Use only facts stated in the letter or in the
scholarship list you are given; when a value is not stated, leave it empty or 0. Amounts are plain numbers.
Respond with a single JSON object with these keys:
"universityInfo": {"name", "program", "level": "undergraduate"|"postgraduate"|"doctorate"|"diploma"|"other", "location", "country", "startDate", "duration", "studentName", "studentId"},
"summary": string,
"financialBreakdown": {"currency", "tuitionFee", "deposit", "otherFees": [{"name", "amount"}], "scholarship", "totalCost"},
"paymentSchedule": [{"description", "amount", "dueDate"}],
"conditions": [{"description", "type": "academic"|"english"|"financial"|"documentation"|"visa"|"other", "deadline"}],
"importantDates": [{"event", "date"}],
"scholarships": [{"name", "provider", "amount", "eligibility", "deadline", "url"}],
"strengths": [string], "risks": [{"title", "description", "severity": "high"|"medium"|"low"}],
"recommendations": [string], "nextSteps": [string]`

// Defaults used when the model leaves a list out.
var (
	defaultPaymentSchedule = []Payment{{Description: "Payment schedule not stated in the offer letter; confirm due dates with the university"}}
	defaultConditions      = []Condition{{Description: "Review the offer letter for any conditions attached to your enrolment", Type: "other"}}
	defaultImportantDates  = []ImportantDate{{Event: "Offer acceptance deadline", Date: "See offer letter"}}
	defaultStrengths       = []string{"You have received an offer of admission"}
	defaultRisks           = []Risk{{
		Title:       "Unverified details",
		Description: "Some details could not be confirmed automatically; check them against the original letter.",
		Severity:    "low",
	}}
	defaultRecommendations = []string{
		"Read every condition of the offer carefully before accepting",
		"Confirm tuition fees and payment deadlines with the university",
		"Check your eligibility for scholarships before paying the deposit",
	}
	defaultNextSteps = []string{
		"Accept the offer before the stated deadline",
		"Pay the required deposit to receive your Confirmation of Enrollment",
		"Arrange health cover and start your student visa application",
	}
)

// Analyzer runs the offer letter pipeline.
type Analyzer interface {
	// ResearchScholarships never fails and returns within the research timeout.
	ResearchScholarships(ctx context.Context, info UniversityInfo) []scholarship.Suggestion
	// Analyze never fails: model or parse errors yield a fallback analysis.
	Analyze(ctx context.Context, text string) Analysis
}

type analyzer struct {
	llm        core.LLMService
	researcher scholarship.Researcher
	maxChars   int
	logger     core.Logger
}

var _ Analyzer = (*analyzer)(nil)

func NewAnalyzer(llm core.LLMService, researcher scholarship.Researcher, maxChars int, logger core.Logger) Analyzer {
	return &analyzer{llm: llm, researcher: researcher, maxChars: maxChars, logger: logger}
}

func (a *analyzer) ResearchScholarships(ctx context.Context, info UniversityInfo) []scholarship.Suggestion {
	return a.researcher.Research(ctx, scholarship.Query{
		University: info.University,
		Country:    info.Country,
		Program:    info.Program,
	})
}

func (a *analyzer) Analyze(ctx context.Context, text string) Analysis {
	hints := ExtractUniversityInfo(text)
	found := a.ResearchScholarships(ctx, hints)

	resp, err := a.llm.Complete(ctx, core.ChatRequest{
		System: systemPrompt,
		User:   a.prompt(text, hints, found),
		JSON:   true,
	})
	if err != nil {
		a.logger.Error("offer letter analysis failed", errors.Wrap(err, "calling language model"))
		return Fallback(err, hints, found)
	}
	obj, err := core.ParseJSONObject(resp)
	if err != nil {
		a.logger.Error("offer letter analysis returned invalid JSON", errors.Wrap(err, "parsing offer letter analysis"))
		return Fallback(err, hints, found)
	}
	return Repair(obj, hints, found)
}

func (a *analyzer) prompt(text string, hints UniversityInfo, found []scholarship.Suggestion) string {
	var b strings.Builder
	b.WriteString("Details detected in the letter (may be incomplete):\n")
	fmt.Fprintf(&b, "- University: %s\n- Program: %s\n- Location: %s\n- Country: %s\n\n",
		orUnknown(hints.University), orUnknown(hints.Program), orUnknown(hints.Location), orUnknown(hints.Country))

	if len(found) > 0 {
		list, _ := json.Marshal(found)
		b.WriteString("Scholarships found for this study plan (include the relevant ones):\n")
		b.Write(list)
		b.WriteString("\n\n")
	} else {
		b.WriteString("No scholarship research is available; only list scholarships named in the letter.\n\n")
	}

	b.WriteString("Offer letter:\n")
	b.WriteString(core.Truncate(text, a.maxChars))
	return b.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// Repair coerces every field of a decoded model answer into an Analysis.
// Values the model left out are taken from the extracted hints or defaults.
func Repair(obj map[string]interface{}, hints UniversityInfo, found []scholarship.Suggestion) Analysis {
	uni := core.AsMap(core.Field(obj, "universityInfo", "university_info", "university"))
	an := Analysis{
		UniversityInfo: UniversityDetails{
			Name:        core.AsString(core.Field(uni, "name", "university"), hints.University),
			Program:     core.AsString(core.Field(uni, "program", "course"), hints.Program),
			Level:       core.OneOf(core.AsString(core.Field(uni, "level", "studyLevel"), ""), "", StudyLevels...),
			Location:    core.AsString(core.Field(uni, "location", "campus"), hints.Location),
			Country:     core.AsString(uni["country"], hints.Country),
			StartDate:   core.AsString(core.Field(uni, "startDate", "start_date"), ""),
			Duration:    core.AsString(uni["duration"], ""),
			StudentName: core.AsString(core.Field(uni, "studentName", "student_name"), ""),
			StudentID:   core.AsString(core.Field(uni, "studentId", "student_id"), ""),
		},
		Summary:            core.AsString(obj["summary"], summaryFor(hints)),
		FinancialBreakdown: repairFinancials(core.AsMap(core.Field(obj, "financialBreakdown", "financial_breakdown"))),
		Strengths:          core.AsStringSlice(obj["strengths"], copyStrings(defaultStrengths)),
		Recommendations:    core.AsStringSlice(obj["recommendations"], copyStrings(defaultRecommendations)),
		NextSteps:          core.AsStringSlice(core.Field(obj, "nextSteps", "next_steps"), copyStrings(defaultNextSteps)),
	}

	for _, m := range core.AsMapSlice(core.Field(obj, "paymentSchedule", "payment_schedule")) {
		p := Payment{
			Description: core.AsString(core.Field(m, "description", "name"), ""),
			Amount:      core.AsFloat(m["amount"], 0),
			DueDate:     core.AsString(core.Field(m, "dueDate", "due_date", "date"), ""),
		}
		if p.Description != "" || p.Amount > 0 {
			an.PaymentSchedule = append(an.PaymentSchedule, p)
		}
	}
	if len(an.PaymentSchedule) == 0 {
		an.PaymentSchedule = append([]Payment(nil), defaultPaymentSchedule...)
	}

	for _, m := range core.AsMapSlice(obj["conditions"]) {
		if desc := core.AsString(core.Field(m, "description", "condition"), ""); desc != "" {
			an.Conditions = append(an.Conditions, Condition{
				Description: desc,
				Type:        core.OneOf(core.AsString(m["type"], ""), "other", ConditionTypes...),
				Deadline:    core.AsString(m["deadline"], ""),
			})
		}
	}
	if len(an.Conditions) == 0 {
		for _, s := range core.AsStringSlice(obj["conditions"], nil) {
			an.Conditions = append(an.Conditions, Condition{Description: s, Type: "other"})
		}
	}
	if len(an.Conditions) == 0 {
		an.Conditions = append([]Condition(nil), defaultConditions...)
	}

	for _, m := range core.AsMapSlice(core.Field(obj, "importantDates", "important_dates")) {
		d := ImportantDate{
			Event: core.AsString(core.Field(m, "event", "description", "name"), ""),
			Date:  core.AsString(m["date"], ""),
		}
		if d.Event != "" {
			an.ImportantDates = append(an.ImportantDates, d)
		}
	}
	if len(an.ImportantDates) == 0 {
		an.ImportantDates = append([]ImportantDate(nil), defaultImportantDates...)
	}

	for _, m := range core.AsMapSlice(obj["risks"]) {
		title := core.AsString(core.Field(m, "title", "risk"), "")
		desc := core.AsString(m["description"], "")
		if title == "" && desc == "" {
			continue
		}
		if title == "" {
			title = core.FirstSentence(desc)
		}
		an.Risks = append(an.Risks, Risk{
			Title:       title,
			Description: desc,
			Severity:    core.OneOf(core.AsString(m["severity"], ""), "medium", Severities...),
		})
	}
	if len(an.Risks) == 0 {
		for _, s := range core.AsStringSlice(obj["risks"], nil) {
			an.Risks = append(an.Risks, Risk{Title: s, Severity: "medium"})
		}
	}
	if len(an.Risks) == 0 {
		an.Risks = append([]Risk(nil), defaultRisks...)
	}

	// researched scholarships first, then the ones the model read from the letter
	mentioned := make([]scholarship.Suggestion, 0)
	for _, m := range core.AsMapSlice(obj["scholarships"]) {
		if name := core.AsString(core.Field(m, "name", "title"), ""); name != "" {
			mentioned = append(mentioned, scholarship.Suggestion{
				Name:        name,
				Provider:    core.AsString(m["provider"], ""),
				Amount:      core.AsString(m["amount"], ""),
				Eligibility: core.AsString(m["eligibility"], ""),
				Deadline:    core.AsString(m["deadline"], ""),
				URL:         core.AsString(core.Field(m, "url", "link"), ""),
				Source:      scholarship.SourceDocument,
			})
		}
	}
	an.Scholarships = scholarship.Merge(found, mentioned)
	return an
}

func repairFinancials(m map[string]interface{}) FinancialBreakdown {
	fb := FinancialBreakdown{
		Currency:    strings.ToUpper(core.AsString(m["currency"], "")),
		TuitionFee:  core.AsFloat(core.Field(m, "tuitionFee", "tuition_fee", "tuition"), 0),
		Deposit:     core.AsFloat(m["deposit"], 0),
		Scholarship: core.AsFloat(core.Field(m, "scholarship", "scholarshipAmount"), 0),
		TotalCost:   core.AsFloat(core.Field(m, "totalCost", "total_cost", "total"), 0),
		OtherFees:   make([]Fee, 0),
	}
	var fees float64
	for _, f := range core.AsMapSlice(core.Field(m, "otherFees", "other_fees")) {
		fee := Fee{
			Name:   core.AsString(core.Field(f, "name", "description"), ""),
			Amount: core.AsFloat(f["amount"], 0),
		}
		if fee.Name != "" {
			fb.OtherFees = append(fb.OtherFees, fee)
			fees += fee.Amount
		}
	}
	if fb.TotalCost <= 0 {
		fb.TotalCost = fb.TuitionFee + fees - fb.Scholarship
		if fb.TotalCost < 0 {
			fb.TotalCost = 0
		}
	}
	return fb
}

func summaryFor(hints UniversityInfo) string {
	if hints.University == "" {
		return "Offer letter analysed. Review the details below."
	}
	if hints.Program == "" {
		return "Offer letter from " + hints.University + " analysed. Review the details below."
	}
	return "Offer letter from " + hints.University + " for " + hints.Program + " analysed. Review the details below."
}

// Fallback is the analysis returned when no usable model answer could be obtained.
// It keeps what the regular expressions and the research stage found.
func Fallback(cause error, hints UniversityInfo, found []scholarship.Suggestion) Analysis {
	if found == nil {
		found = []scholarship.Suggestion{}
	}
	return Analysis{
		UniversityInfo: UniversityDetails{
			Name:     hints.University,
			Program:  hints.Program,
			Location: hints.Location,
			Country:  hints.Country,
		},
		Summary:            core.AnalysisErrorSummary(cause),
		FinancialBreakdown: FinancialBreakdown{OtherFees: []Fee{}},
		PaymentSchedule:    append([]Payment(nil), defaultPaymentSchedule...),
		Conditions:         append([]Condition(nil), defaultConditions...),
		ImportantDates:     append([]ImportantDate(nil), defaultImportantDates...),
		Scholarships:       found,
		Strengths:          copyStrings(defaultStrengths),
		Risks:              append([]Risk(nil), defaultRisks...),
		Recommendations:    copyStrings(defaultRecommendations),
		NextSteps:          copyStrings(defaultNextSteps),
	}
}

func copyStrings(s []string) []string {
	return append([]string(nil), s...)
}
