package analysis

import (
	"encoding/json"
	"time"

	"github.com/darpanintel/darpan/core"
)

// Document types
const (
	TypeVisa        = "visa"
	TypeCOE         = "coe"
	TypeOfferLetter = "offer_letter"
)

var DocumentTypes = []string{TypeVisa, TypeCOE, TypeOfferLetter}

// DocumentLabel is the human name of a document type, used in emails.
func DocumentLabel(docType string) string {
	switch docType {
	case TypeVisa:
		return "visa decision"
	case TypeCOE:
		return "Confirmation of Enrollment"
	case TypeOfferLetter:
		return "offer letter"
	}
	return "document"
}

// Analysis is the record kept for every analysed upload.
// Results holds the type specific analysis (VisaAnalysis, coe.CoeAnalysis, offerletter.Analysis).
type Analysis struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	DocumentType string          `json:"document_type"`
	Filename     string          `json:"filename"`
	FilePath     string          `json:"-"`
	MimeType     string          `json:"mime_type"`
	Size         int64           `json:"size"`
	Summary      string          `json:"summary"`
	Results      json.RawMessage `json:"results"`
	IsPublic     bool            `json:"is_public"`
	CreatedAt    time.Time       `json:"created_at"`
}

// NewAnalysis holds what is known about an analysed upload before it is saved.
type NewAnalysis struct {
	UserID       string
	DocumentType string `validate:"required,doctype"`
	Filename     string `validate:"required"`
	FilePath     string
	MimeType     string
	Size         int64
	Summary      string
	Results      interface{}
}

type QueryFilter struct {
	UserID       string    `query:"user_id"`
	DocumentType string    `query:"document_type"`
	Search       string    `query:"search"`
	CreatedFrom  time.Time `query:"created_from"`
	CreatedTo    time.Time `query:"created_to"`
}

func (qf *QueryFilter) Clean() {
	qf.UserID = core.CleanString(qf.UserID)
	qf.DocumentType = core.CleanString(qf.DocumentType, true /* lower */)
	qf.Search = core.CleanString(qf.Search)
}

var OrderingFields = map[string]string{
	"filename":      "filename",
	"document_type": "document_type",
	"size":          "size",
	"created_at":    "created_at",
}

// Stats summarises the analyses for the admin dashboard.
type Stats struct {
	Total      int            `json:"total"`
	ByType     map[string]int `json:"by_type"`
	LastWeek   int            `json:"last_week"`
	TotalUsers int            `json:"total_users,omitempty"`
}
