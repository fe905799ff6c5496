package destination

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/darpanintel/darpan/core"
	"github.com/darpanintel/darpan/core/scholarship"
)

const systemPrompt = `You are a study abroad counsellor. Given a student profile, suggest the study destinations
(countries) that best fit the student's academic record, budget, English level and goals.
Be realistic about costs and visa requirements. Respond with a single JSON object with these keys:
"suggestions": [{"country", "matchScore" (0-100), "reasons": [string], "estimatedAnnualCost" (number),
"currency", "universities": [string], "visaDifficulty": "low"|"medium"|"high"}],
"summary": string, "recommendations": [string], "nextSteps": [string]`

const (
	maxSuggestions = 5
	// scholarship research runs for this many of the best suggestions
	researchedCountries = 2
)

var (
	fallbackCountries      = []string{"Australia", "Canada", "United Kingdom"}
	defaultRecommendations = []string{
		"Compare total costs including living expenses, not only tuition",
		"Check the English test score each university requires",
		"Start scholarship applications early",
	}
	defaultNextSteps = []string{
		"Shortlist universities in your top destinations",
		"Prepare your academic documents and English test results",
		"Book a consultation with a Darpan counsellor",
	}
)

// Service suggests study destinations.
type Service interface {
	// Suggest never fails: model or parse errors yield a fallback result.
	Suggest(ctx context.Context, p Profile) Result
}

type service struct {
	llm        core.LLMService
	researcher scholarship.Researcher
	logger     core.Logger
}

var _ Service = (*service)(nil)

func NewService(llm core.LLMService, researcher scholarship.Researcher, logger core.Logger) Service {
	return &service{llm: llm, researcher: researcher, logger: logger}
}

func (svc *service) Suggest(ctx context.Context, p Profile) Result {
	res := svc.suggest(ctx, p)
	res.Scholarships = svc.research(ctx, p, res.Suggestions)
	return res
}

func (svc *service) suggest(ctx context.Context, p Profile) Result {
	profile, _ := json.Marshal(p)
	resp, err := svc.llm.Complete(ctx, core.ChatRequest{
		System: systemPrompt,
		User:   "Student profile:\n" + string(profile),
		JSON:   true,
	})
	if err != nil {
		svc.logger.Error("destination suggestion failed", errors.Wrap(err, "calling language model"))
		return Fallback(err, p)
	}
	obj, err := core.ParseJSONObject(resp)
	if err != nil {
		svc.logger.Error("destination suggestion returned invalid JSON", errors.Wrap(err, "parsing destination suggestions"))
		return Fallback(err, p)
	}
	res, ok := Repair(obj, p)
	if !ok {
		svc.logger.Warn("destination suggestion had no usable suggestions")
		return Fallback(errors.New("no usable suggestions"), p)
	}
	return res
}

// research looks for scholarships in the top suggested countries concurrently.
// Each lookup is bounded by the research timeout.
func (svc *service) research(ctx context.Context, p Profile, suggestions []Suggestion) []scholarship.Suggestion {
	n := len(suggestions)
	if n > researchedCountries {
		n = researchedCountries
	}
	results := make([][]scholarship.Suggestion, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = svc.researcher.Research(ctx, scholarship.Query{
				Country: suggestions[i].Country,
				Program: p.FieldOfStudy,
				Level:   studyLevel(p.AcademicLevel),
			})
		}(i)
	}
	wg.Wait()
	return scholarship.Merge(results...)
}

// studyLevel maps the student's current level to the level they will study at.
func studyLevel(current string) string {
	switch current {
	case "high_school":
		return scholarship.LevelUndergraduate
	case "undergraduate":
		return scholarship.LevelPostgraduate
	case "postgraduate", "doctorate":
		return scholarship.LevelDoctorate
	case "diploma":
		return scholarship.LevelUndergraduate
	}
	return ""
}

// Repair coerces a decoded model answer. ok is false when no suggestion names a country.
func Repair(obj map[string]interface{}, p Profile) (res Result, ok bool) {
	res = Result{
		Summary:         core.AsString(obj["summary"], "Destinations matched to your profile."),
		Recommendations: core.AsStringSlice(obj["recommendations"], copyStrings(defaultRecommendations)),
		NextSteps:       core.AsStringSlice(core.Field(obj, "nextSteps", "next_steps"), copyStrings(defaultNextSteps)),
		Scholarships:    []scholarship.Suggestion{},
	}

	seen := make(map[string]bool)
	for _, m := range core.AsMapSlice(core.Field(obj, "suggestions", "destinations")) {
		country := core.AsString(core.Field(m, "country", "name"), "")
		if country == "" || seen[strings.ToLower(country)] {
			continue
		}
		seen[strings.ToLower(country)] = true

		s := Suggestion{
			Country:             country,
			MatchScore:          core.Clamp(core.AsInt(core.Field(m, "matchScore", "match_score", "score"), 50), 0, 100),
			Reasons:             core.AsStringSlice(m["reasons"], []string{"Matches your field of study: " + p.FieldOfStudy}),
			EstimatedAnnualCost: core.AsFloat(core.Field(m, "estimatedAnnualCost", "estimated_annual_cost", "annualCost"), 0),
			Currency:            strings.ToUpper(core.AsString(m["currency"], p.BudgetCurrency)),
			Universities:        core.AsStringSlice(m["universities"], []string{"Research universities offering " + p.FieldOfStudy + " in " + country}),
			VisaDifficulty:      core.OneOf(core.AsString(core.Field(m, "visaDifficulty", "visa_difficulty"), ""), "medium", VisaDifficulties...),
		}
		if s.EstimatedAnnualCost < 0 {
			s.EstimatedAnnualCost = 0
		}
		res.Suggestions = append(res.Suggestions, s)
	}
	if len(res.Suggestions) == 0 {
		return res, false
	}

	sort.SliceStable(res.Suggestions, func(i, j int) bool {
		return res.Suggestions[i].MatchScore > res.Suggestions[j].MatchScore
	})
	if len(res.Suggestions) > maxSuggestions {
		res.Suggestions = res.Suggestions[:maxSuggestions]
	}
	return res, true
}

// Fallback suggests the student's preferred countries, or common destinations, with neutral scores.
func Fallback(cause error, p Profile) Result {
	countries := p.PreferredCountries
	if len(countries) == 0 {
		countries = fallbackCountries
	}
	if len(countries) > maxSuggestions {
		countries = countries[:maxSuggestions]
	}

	res := Result{
		Suggestions:     make([]Suggestion, 0, len(countries)),
		Summary:         core.AnalysisErrorSummary(cause),
		Recommendations: copyStrings(defaultRecommendations),
		NextSteps:       copyStrings(defaultNextSteps),
		Scholarships:    []scholarship.Suggestion{},
	}
	for _, c := range countries {
		res.Suggestions = append(res.Suggestions, Suggestion{
			Country:        c,
			MatchScore:     50,
			Reasons:        []string{"Listed as a destination you are interested in or popular with international students"},
			Currency:       strings.ToUpper(p.BudgetCurrency),
			Universities:   []string{"Research universities offering " + p.FieldOfStudy + " in " + c},
			VisaDifficulty: "medium",
		})
	}
	return res
}

func copyStrings(s []string) []string {
	return append([]string(nil), s...)
}
