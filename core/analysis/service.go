package analysis

import (
	"context"
	"encoding/json"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/darpanintel/darpan/core"
	"github.com/darpanintel/darpan/core/user"
)

var ErrNotFound = errors.New("analysis not found")

type (
	Repository interface {
		CreateAnalysis(ctx context.Context, a Analysis) (Analysis, error)
		GetAnalysis(ctx context.Context, id string) (Analysis, error)
		// QueryAnalyses applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Analysis.Filename or Analysis.Summary.
		QueryAnalyses(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Analysis, error)
		// CountAnalyses counts analyses created at or after `since` per document type.
		CountAnalyses(ctx context.Context, since time.Time) (map[string]int, error)
		DeleteAnalysesByID(ctx context.Context, ids []string) (int, error)
	}

	Service interface {
		Create(ctx context.Context, na NewAnalysis) (Analysis, error)
		GetByID(ctx context.Context, id string) (Analysis, error)
		// GetFor returns the analysis if `usr` owns it or is staff, ErrNotFound otherwise.
		GetFor(ctx context.Context, id string, usr user.User) (Analysis, error)
		QueryByUser(ctx context.Context, userID, docType string, ordering []core.DBOrdering) ([]Analysis, error)
		Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Analysis, error)
		Delete(ctx context.Context, ids ...string) error
		Stats(ctx context.Context) (Stats, error)
		NotifyReady(usr user.User, a Analysis, path string)
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
		logger  core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, logger core.Logger) Service {
	return &service{repo: repo, mailSvc: mailSvc, logger: logger}
}

const mimeWidth = 64

// Build validates na and turns it into a record ready to be saved.
func Build(na NewAnalysis) (Analysis, error) {
	if err := core.Validate.Struct(na); err != nil {
		return Analysis{}, err
	}
	results, err := json.Marshal(na.Results)
	if err != nil {
		return Analysis{}, errors.Wrap(err, "encoding analysis results")
	}
	return Analysis{
		UserID:       na.UserID,
		DocumentType: na.DocumentType,
		Filename:     core.Truncate(na.Filename, core.NameWidth),
		FilePath:     na.FilePath,
		MimeType:     core.Truncate(na.MimeType, mimeWidth),
		Size:         na.Size,
		Summary:      na.Summary,
		Results:      results,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

func (svc *service) Create(ctx context.Context, na NewAnalysis) (Analysis, error) {
	a, err := Build(na)
	if err != nil {
		return Analysis{}, err
	}
	return svc.repo.CreateAnalysis(ctx, a)
}

func (svc *service) GetByID(ctx context.Context, id string) (Analysis, error) {
	return svc.repo.GetAnalysis(ctx, id)
}

func (svc *service) GetFor(ctx context.Context, id string, usr user.User) (Analysis, error) {
	a, err := svc.repo.GetAnalysis(ctx, id)
	if err != nil {
		return Analysis{}, err
	}
	if a.UserID != usr.ID && !usr.IsStaff() && !a.IsPublic {
		return Analysis{}, ErrNotFound
	}
	return a, nil
}

func (svc *service) QueryByUser(ctx context.Context, userID, docType string, ordering []core.DBOrdering) ([]Analysis, error) {
	return svc.Query(ctx, QueryFilter{UserID: userID, DocumentType: docType}, ordering)
}

func (svc *service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Analysis, error) {
	filter.Clean()
	ordering = core.CleanOrderings(ordering, OrderingFields)
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	return svc.repo.QueryAnalyses(ctx, filter, ordering)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	if _, err := svc.repo.DeleteAnalysesByID(ctx, ids); err != nil {
		return errors.Wrap(err, "deleting analyses")
	}
	return nil
}

func (svc *service) Stats(ctx context.Context) (Stats, error) {
	all, err := svc.repo.CountAnalyses(ctx, time.Time{})
	if err != nil {
		return Stats{}, errors.Wrap(err, "counting analyses")
	}
	recent, err := svc.repo.CountAnalyses(ctx, time.Now().UTC().AddDate(0, 0, -7))
	if err != nil {
		return Stats{}, errors.Wrap(err, "counting recent analyses")
	}

	stats := Stats{ByType: make(map[string]int, len(DocumentTypes))}
	for _, t := range DocumentTypes {
		stats.ByType[t] = all[t]
	}
	for _, n := range all {
		stats.Total += n
	}
	for _, n := range recent {
		stats.LastWeek += n
	}
	return stats, nil
}

// NotifyReady emails the owner that their analysis is available at `path` on the frontend.
func (svc *service) NotifyReady(usr user.User, a Analysis, path string) {
	if usr.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Your " + DocumentLabel(a.DocumentType) + " analysis is ready",
		TemplateName: "analysis_ready",
		TemplateData: map[string]interface{}{
			"Name":          usr.DisplayName(),
			"DocumentLabel": DocumentLabel(a.DocumentType),
			"Filename":      a.Filename,
			"Summary":       core.Truncate(a.Summary, 300),
			"Path":          path,
		},
	})
}
