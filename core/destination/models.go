package destination

import (
	"github.com/darpanintel/darpan/core"
	"github.com/darpanintel/darpan/core/scholarship"
)

// Profile is what a student tells us before asking for destination suggestions.
type Profile struct {
	AcademicLevel      string   `json:"academic_level" validate:"required,oneof=high_school undergraduate postgraduate doctorate diploma"`
	GPA                float64  `json:"gpa" validate:"gte=0,lte=100"`
	FieldOfStudy       string   `json:"field_of_study" validate:"required,max=128"`
	Budget             float64  `json:"budget" validate:"gte=0"`
	BudgetCurrency     string   `json:"budget_currency" validate:"omitempty,len=3,alpha"`
	PreferredCountries []string `json:"preferred_countries" validate:"max=10,dive,notblank"`
	EnglishTest        string   `json:"english_test" validate:"omitempty,oneof=IELTS TOEFL PTE Duolingo none"`
	EnglishScore       float64  `json:"english_score" validate:"gte=0,lte=200"`
	WorkExperience     int      `json:"work_experience" validate:"gte=0,lte=60"` // years
	Goals              string   `json:"goals" validate:"max=2000"`
}

func (p *Profile) Validate() error {
	p.AcademicLevel = core.CleanString(p.AcademicLevel, true /* lower */)
	p.FieldOfStudy = core.CleanString(p.FieldOfStudy)
	p.BudgetCurrency = core.CleanString(p.BudgetCurrency)
	p.EnglishTest = core.CleanString(p.EnglishTest)
	p.Goals = core.CleanString(p.Goals)
	return core.Validate.Struct(p)
}

// Visa difficulty levels
var VisaDifficulties = []string{"low", "medium", "high"}

type (
	// Result is the answer to a destination request. Every list is non-nil.
	Result struct {
		Suggestions     []Suggestion             `json:"suggestions"`
		Summary         string                   `json:"summary"`
		Recommendations []string                 `json:"recommendations"`
		NextSteps       []string                 `json:"next_steps"`
		Scholarships    []scholarship.Suggestion `json:"scholarships"`
	}

	Suggestion struct {
		Country             string   `json:"country"`
		MatchScore          int      `json:"match_score"` // 0..100
		Reasons             []string `json:"reasons"`
		EstimatedAnnualCost float64  `json:"estimated_annual_cost"`
		Currency            string   `json:"currency"`
		Universities        []string `json:"universities"`
		VisaDifficulty      string   `json:"visa_difficulty"`
	}
)
