package offerletter

import (
	"time"

	"github.com/darpanintel/darpan/core"
	"github.com/darpanintel/darpan/core/scholarship"
)

type (
	// Analysis is the structured reading of an offer letter. Every list is non-nil.
	Analysis struct {
		UniversityInfo     UniversityDetails        `json:"university_info"`
		Summary            string                   `json:"summary"`
		FinancialBreakdown FinancialBreakdown       `json:"financial_breakdown"`
		PaymentSchedule    []Payment                `json:"payment_schedule"`
		Conditions         []Condition              `json:"conditions"`
		ImportantDates     []ImportantDate          `json:"important_dates"`
		Scholarships       []scholarship.Suggestion `json:"scholarships"`
		Strengths          []string                 `json:"strengths"`
		Risks              []Risk                   `json:"risks"`
		Recommendations    []string                 `json:"recommendations"`
		NextSteps          []string                 `json:"next_steps"`
	}

	UniversityDetails struct {
		Name        string `json:"name"`
		Program     string `json:"program"`
		Level       string `json:"level"`
		Location    string `json:"location"`
		Country     string `json:"country"`
		StartDate   string `json:"start_date"`
		Duration    string `json:"duration"`
		StudentName string `json:"student_name"`
		StudentID   string `json:"student_id"`
	}

	FinancialBreakdown struct {
		Currency    string  `json:"currency"`
		TuitionFee  float64 `json:"tuition_fee"`
		Deposit     float64 `json:"deposit"`
		OtherFees   []Fee   `json:"other_fees"`
		Scholarship float64 `json:"scholarship"`
		TotalCost   float64 `json:"total_cost"`
	}

	Fee struct {
		Name   string  `json:"name"`
		Amount float64 `json:"amount"`
	}

	Payment struct {
		Description string  `json:"description"`
		Amount      float64 `json:"amount"`
		DueDate     string  `json:"due_date"`
	}

	Condition struct {
		Description string `json:"description"`
		Type        string `json:"type"`
		Deadline    string `json:"deadline"`
	}

	ImportantDate struct {
		Event string `json:"event"`
		Date  string `json:"date"`
	}

	Risk struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Severity    string `json:"severity"`
	}
)

// Coerced values
var (
	ConditionTypes = []string{"academic", "english", "financial", "documentation", "visa", "other"}
	Severities     = []string{"high", "medium", "low"}
	StudyLevels    = []string{"undergraduate", "postgraduate", "doctorate", "diploma", "other"}
)

// Info is the offer letter specific record stored alongside the generic analysis record.
type Info struct {
	ID         string    `json:"id"`
	AnalysisID string    `json:"analysis_id"`
	UserID     string    `json:"user_id"`
	University string    `json:"university"`
	Program    string    `json:"program"`
	Location   string    `json:"location"`
	Country    string    `json:"country"`
	Currency   string    `json:"currency"`
	TuitionFee float64   `json:"tuition_fee"`
	StartDate  string    `json:"start_date"`
	Results    Analysis  `json:"results"`
	CreatedAt  time.Time `json:"created_at"`
}

const currencyWidth = 8

// NewInfo summarises `an` into the record kept for searching and listing.
// Text fields are clamped to the widths of the offer_letter_infos columns.
func NewInfo(userID string, an Analysis) Info {
	return Info{
		UserID:     userID,
		University: core.Truncate(an.UniversityInfo.Name, core.NameWidth),
		Program:    core.Truncate(an.UniversityInfo.Program, core.NameWidth),
		Location:   core.Truncate(an.UniversityInfo.Location, core.NameWidth),
		Country:    core.Truncate(an.UniversityInfo.Country, core.ShortWidth),
		Currency:   core.Truncate(an.FinancialBreakdown.Currency, currencyWidth),
		TuitionFee: an.FinancialBreakdown.TuitionFee,
		StartDate:  core.Truncate(an.UniversityInfo.StartDate, core.ShortWidth),
		Results:    an,
		CreatedAt:  time.Now().UTC(),
	}
}
