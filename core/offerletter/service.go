package offerletter

import (
	"context"

	"github.com/pkg/errors"

	"github.com/darpanintel/darpan/core/analysis"
)

var ErrNotFound = errors.New("offer letter analysis not found")

type (
	Repository interface {
		// CreateOfferLetterAnalysis saves the generic record and the offer letter info atomically.
		CreateOfferLetterAnalysis(ctx context.Context, a analysis.Analysis, info Info) (analysis.Analysis, Info, error)
		GetOfferLetterInfo(ctx context.Context, analysisID string) (Info, error)
		QueryOfferLetterInfos(ctx context.Context, userID string) ([]Info, error)
	}

	Service interface {
		Analyzer

		// Save stores an analysed upload. na.Results is replaced by `an`.
		Save(ctx context.Context, na analysis.NewAnalysis, an Analysis) (analysis.Analysis, Info, error)
		GetByAnalysisID(ctx context.Context, analysisID string) (Info, error)
		// QueryByUser lists a user's offer letter analyses, newest first. An empty userID lists all of them.
		QueryByUser(ctx context.Context, userID string) ([]Info, error)
	}

	service struct {
		Analyzer
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, analyzer Analyzer) Service {
	return &service{Analyzer: analyzer, repo: repo}
}

func (svc *service) Save(ctx context.Context, na analysis.NewAnalysis, an Analysis) (analysis.Analysis, Info, error) {
	na.DocumentType = analysis.TypeOfferLetter
	na.Summary = an.Summary
	na.Results = an
	rec, err := analysis.Build(na)
	if err != nil {
		return analysis.Analysis{}, Info{}, err
	}
	info := NewInfo(na.UserID, an)
	return svc.repo.CreateOfferLetterAnalysis(ctx, rec, info)
}

func (svc *service) GetByAnalysisID(ctx context.Context, analysisID string) (Info, error) {
	return svc.repo.GetOfferLetterInfo(ctx, analysisID)
}

func (svc *service) QueryByUser(ctx context.Context, userID string) ([]Info, error) {
	return svc.repo.QueryOfferLetterInfos(ctx, userID)
}
