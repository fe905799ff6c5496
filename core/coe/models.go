package coe

import (
	"time"

	"github.com/darpanintel/darpan/core"
)

type (
	// CoeAnalysis is the structured reading of a Confirmation of Enrollment. Every list is non-nil.
	CoeAnalysis struct {
		StudentName     string   `json:"student_name"`
		StudentID       string   `json:"student_id"`
		ProviderName    string   `json:"provider_name"`
		ProviderCricos  string   `json:"provider_cricos"`
		CourseName      string   `json:"course_name"`
		CourseCricos    string   `json:"course_cricos"`
		CourseLevel     string   `json:"course_level"`
		StartDate       string   `json:"start_date"`
		EndDate         string   `json:"end_date"`
		Currency        string   `json:"currency"`
		TuitionFee      float64  `json:"tuition_fee"`
		PrepaidAmount   float64  `json:"prepaid_amount"`
		OSHC            OSHC     `json:"oshc"`
		Summary         string   `json:"summary"`
		KeyFindings     []string `json:"key_findings"`
		ComplianceNotes []string `json:"compliance_notes"`
		Recommendations []string `json:"recommendations"`
		NextSteps       []string `json:"next_steps"`
	}

	// OSHC is the Overseas Student Health Cover arranged with the enrolment.
	OSHC struct {
		Provider  string `json:"provider"`
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
	}
)

// Info is the COE specific record stored alongside the generic analysis record.
type Info struct {
	ID          string      `json:"id"`
	AnalysisID  string      `json:"analysis_id"`
	UserID      string      `json:"user_id"`
	StudentName string      `json:"student_name"`
	Provider    string      `json:"provider"`
	CricosCode  string      `json:"cricos_code"`
	Course      string      `json:"course"`
	StartDate   string      `json:"start_date"`
	EndDate     string      `json:"end_date"`
	TuitionFee  float64     `json:"tuition_fee"`
	Results     CoeAnalysis `json:"results"`
	CreatedAt   time.Time   `json:"created_at"`
}

const cricosWidth = 16

// NewInfo keeps the searchable fields of ca, clamped to the coe_infos column widths.
func NewInfo(userID string, ca CoeAnalysis) Info {
	return Info{
		UserID:      userID,
		StudentName: core.Truncate(ca.StudentName, core.NameWidth),
		Provider:    core.Truncate(ca.ProviderName, core.NameWidth),
		CricosCode:  core.Truncate(ca.ProviderCricos, cricosWidth),
		Course:      core.Truncate(ca.CourseName, core.NameWidth),
		StartDate:   core.Truncate(ca.StartDate, core.ShortWidth),
		EndDate:     core.Truncate(ca.EndDate, core.ShortWidth),
		TuitionFee:  ca.TuitionFee,
		Results:     ca,
		CreatedAt:   time.Now().UTC(),
	}
}
