package coe

import (
	"context"

	"github.com/pkg/errors"

	"github.com/darpanintel/darpan/core/analysis"
)

var ErrNotFound = errors.New("coe analysis not found")

type (
	Repository interface {
		// CreateCoeAnalysis saves the generic record and the COE info atomically.
		CreateCoeAnalysis(ctx context.Context, a analysis.Analysis, info Info) (analysis.Analysis, Info, error)
		GetCoeInfo(ctx context.Context, analysisID string) (Info, error)
		QueryCoeInfos(ctx context.Context, userID string) ([]Info, error)
	}

	Service interface {
		Analyzer

		Save(ctx context.Context, na analysis.NewAnalysis, ca CoeAnalysis) (analysis.Analysis, Info, error)
		GetByAnalysisID(ctx context.Context, analysisID string) (Info, error)
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

func (svc *service) Save(ctx context.Context, na analysis.NewAnalysis, ca CoeAnalysis) (analysis.Analysis, Info, error) {
	na.DocumentType = analysis.TypeCOE
	na.Summary = ca.Summary
	na.Results = ca
	rec, err := analysis.Build(na)
	if err != nil {
		return analysis.Analysis{}, Info{}, err
	}
	return svc.repo.CreateCoeAnalysis(ctx, rec, NewInfo(na.UserID, ca))
}

func (svc *service) GetByAnalysisID(ctx context.Context, analysisID string) (Info, error) {
	return svc.repo.GetCoeInfo(ctx, analysisID)
}

func (svc *service) QueryByUser(ctx context.Context, userID string) ([]Info, error) {
	return svc.repo.QueryCoeInfos(ctx, userID)
}
