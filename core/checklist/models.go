package checklist

import (
	"time"

	"github.com/darpanintel/darpan/core"
)

// Template categories
var Categories = []string{"visa", "admission", "financial", "identity", "health", "other"}

// User types a checklist applies to
var UserTypes = []string{"student", "dependent", "graduate", "any"}

// DocumentTemplate is a downloadable sample document.
type DocumentTemplate struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	FileURL     string    `json:"file_url"`
	Countries   []string  `json:"countries"`
	VisaTypes   []string  `json:"visa_types"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type NewDocumentTemplate struct {
	Title       string   `json:"title" validate:"required,max=255"`
	Description string   `json:"description"`
	Category    string   `json:"category" validate:"required,doccategory"`
	FileURL     string   `json:"file_url" validate:"omitempty,url"`
	Countries   []string `json:"countries" validate:"dive,notblank"`
	VisaTypes   []string `json:"visa_types" validate:"dive,notblank"`
	IsActive    *bool    `json:"is_active"`
}

func (nt *NewDocumentTemplate) Validate() error {
	nt.Title = core.CleanString(nt.Title)
	nt.Category = core.CleanString(nt.Category, true /* lower */)
	nt.FileURL = core.CleanString(nt.FileURL)
	nt.Countries = cleanList(nt.Countries)
	nt.VisaTypes = cleanList(nt.VisaTypes)
	return core.Validate.Struct(nt)
}

// Item is one entry of a checklist.
type Item struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// DocumentChecklist lists the documents needed for a visa application.
type DocumentChecklist struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Country   string    `json:"country"`
	VisaType  string    `json:"visa_type"`
	UserType  string    `json:"user_type"`
	Items     []Item    `json:"items"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type NewDocumentChecklist struct {
	Title    string `json:"title" validate:"required,max=255"`
	Country  string `json:"country" validate:"required,max=64"`
	VisaType string `json:"visa_type" validate:"required,max=64"`
	UserType string `json:"user_type" validate:"omitempty,usertype"`
	Items    []Item `json:"items" validate:"required,min=1,dive"`
	IsActive *bool  `json:"is_active"`
}

func (nc *NewDocumentChecklist) Validate() error {
	nc.Title = core.CleanString(nc.Title)
	nc.Country = core.CleanString(nc.Country)
	nc.VisaType = core.CleanString(nc.VisaType)
	nc.UserType = core.CleanString(nc.UserType, true /* lower */)
	for i := range nc.Items {
		nc.Items[i].Title = core.CleanString(nc.Items[i].Title)
		nc.Items[i].Description = core.CleanString(nc.Items[i].Description)
	}
	return core.Validate.Struct(nc)
}

// Filter selects templates and checklists; zero fields are ignored.
// Country and VisaType match case-insensitively; for templates they match any listed value.
type Filter struct {
	Country  string `query:"country"`
	VisaType string `query:"visa_type"`
	Category string `query:"category"`
	UserType string `query:"user_type"`
	IsActive *bool  `query:"is_active"`
}

func (f *Filter) Clean() {
	f.Country = core.CleanString(f.Country)
	f.VisaType = core.CleanString(f.VisaType)
	f.Category = core.CleanString(f.Category, true /* lower */)
	f.UserType = core.CleanString(f.UserType, true /* lower */)
}

func cleanList(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		out = append(out, core.CleanString(s))
	}
	return out
}
