package scholarship

import (
	"time"

	"github.com/darpanintel/darpan/core"
)

// Study levels
const (
	LevelUndergraduate = "undergraduate"
	LevelPostgraduate  = "postgraduate"
	LevelDoctorate     = "doctorate"
	LevelDiploma       = "diploma"
)

var StudyLevels = []string{LevelUndergraduate, LevelPostgraduate, LevelDoctorate, LevelDiploma}

// Scholarship is a catalog entry managed by admins.
type Scholarship struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Provider    string    `json:"provider"`
	Description string    `json:"description"`
	Country     string    `json:"country"`
	University  string    `json:"university"`
	StudyLevels []string  `json:"study_levels"`
	Fields      []string  `json:"fields"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	Coverage    string    `json:"coverage"`
	Eligibility string    `json:"eligibility"`
	Deadline    time.Time `json:"deadline"` // zero: rolling
	URL         string    `json:"url"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Suggestion converts the catalog entry to the shape returned by analyses.
func (s Scholarship) Suggestion() Suggestion {
	sug := Suggestion{
		Name:        s.Title,
		Provider:    s.Provider,
		Eligibility: s.Eligibility,
		URL:         s.URL,
		Source:      SourceCatalog,
	}
	if s.Amount > 0 {
		sug.Amount = formatAmount(s.Amount, s.Currency)
	} else {
		sug.Amount = s.Coverage
	}
	if !s.Deadline.IsZero() {
		sug.Deadline = s.Deadline.Format("2006-01-02")
	}
	return sug
}

// NewScholarship is the admin payload used to create or replace a catalog entry.
type NewScholarship struct {
	Title       string    `json:"title" validate:"required,max=255"`
	Provider    string    `json:"provider" validate:"omitempty,max=255"`
	Description string    `json:"description"`
	Country     string    `json:"country" validate:"required,max=64"`
	University  string    `json:"university" validate:"omitempty,max=255"`
	StudyLevels []string  `json:"study_levels" validate:"omitempty,dive,studylevel"`
	Fields      []string  `json:"fields"`
	Amount      float64   `json:"amount" validate:"gte=0"`
	Currency    string    `json:"currency" validate:"omitempty,len=3,alpha"`
	Coverage    string    `json:"coverage" validate:"omitempty,max=255"`
	Eligibility string    `json:"eligibility"`
	Deadline    time.Time `json:"deadline"`
	URL         string    `json:"url" validate:"omitempty,url"`
	IsActive    *bool     `json:"is_active"`
}

func (ns *NewScholarship) Validate() error {
	ns.Title = core.CleanString(ns.Title)
	ns.Provider = core.CleanString(ns.Provider)
	ns.Country = core.CleanString(ns.Country)
	ns.University = core.CleanString(ns.University)
	ns.Currency = core.CleanString(ns.Currency)
	ns.URL = core.CleanString(ns.URL)
	for i, lvl := range ns.StudyLevels {
		ns.StudyLevels[i] = core.CleanString(lvl, true /* lower */)
	}
	return core.Validate.Struct(ns)
}

// SearchFilter filters the catalog. Fields are ANDed; zero values are ignored.
type SearchFilter struct {
	Query         string    `query:"q"`
	Country       string    `query:"country"`
	University    string    `query:"university"`
	StudyLevel    string    `query:"study_level"`
	Field         string    `query:"field"`
	MinAmount     float64   `query:"min_amount"`
	DeadlineAfter time.Time `query:"deadline_after"`
	IsActive      *bool     `query:"is_active"`
	Limit         int       `query:"limit"`
}

func (f *SearchFilter) Clean() {
	f.Query = core.CleanString(f.Query)
	f.Country = core.CleanString(f.Country)
	f.University = core.CleanString(f.University)
	f.StudyLevel = core.CleanString(f.StudyLevel, true /* lower */)
	f.Field = core.CleanString(f.Field)
	if f.Limit < 0 {
		f.Limit = 0
	}
}

var OrderingFields = map[string]string{
	"title":      "title",
	"country":    "country",
	"amount":     "amount",
	"deadline":   "deadline",
	"created_at": "created_at",
}

// Suggestion sources
const (
	SourceCatalog  = "catalog"
	SourceResearch = "research"
	SourceDocument = "document"
)

// Suggestion is a scholarship proposed to a student, from the catalog or from model research.
type Suggestion struct {
	Name        string `json:"name"`
	Provider    string `json:"provider"`
	Amount      string `json:"amount"`
	Eligibility string `json:"eligibility"`
	Deadline    string `json:"deadline"`
	URL         string `json:"url"`
	Source      string `json:"source"`
}

// Query describes the study plan scholarships are researched for.
type Query struct {
	University string
	Country    string
	Program    string
	Level      string
}

func (q Query) IsEmpty() bool {
	return q.University == "" && q.Country == "" && q.Program == ""
}
