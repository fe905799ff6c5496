package inmemdb

import (
	"context"
	"time"

	"github.com/darpanintel/darpan/core"
	"github.com/darpanintel/darpan/core/analysis"
	"github.com/darpanintel/darpan/core/coe"
	"github.com/darpanintel/darpan/core/offerletter"
)

type analysisRepository struct {
	db *DB
}

var (
	_ analysis.Repository    = (*analysisRepository)(nil)
	_ offerletter.Repository = (*analysisRepository)(nil)
	_ coe.Repository         = (*analysisRepository)(nil)
)

func NewAnalysisRepository(db *DB) analysis.Repository {
	return &analysisRepository{db: db}
}

func NewOfferLetterRepository(db *DB) offerletter.Repository {
	return &analysisRepository{db: db}
}

func NewCoeRepository(db *DB) coe.Repository {
	return &analysisRepository{db: db}
}

// deleteInfos removes the type specific records of the given analyses. The caller holds the lock.
func (db *DB) deleteInfos(analysisIDs []string) {
	if len(analysisIDs) == 0 {
		return
	}
	gone := make(map[string]bool, len(analysisIDs))
	for _, id := range analysisIDs {
		gone[id] = true
	}
	db.offerLetters.deleteWhere(func(info offerletter.Info) bool { return gone[info.AnalysisID] })
	db.coes.deleteWhere(func(info coe.Info) bool { return gone[info.AnalysisID] })
}

func (repo *analysisRepository) insertAnalysis(a analysis.Analysis) analysis.Analysis {
	a.ID = newID()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	repo.db.analyses.insert(a.ID, a)
	return a
}

func (repo *analysisRepository) CreateAnalysis(ctx context.Context, a analysis.Analysis) (analysis.Analysis, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	return repo.insertAnalysis(a), nil
}

func (repo *analysisRepository) GetAnalysis(ctx context.Context, id string) (analysis.Analysis, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if a, ok := repo.db.analyses.get(id); ok {
		return a, nil
	}
	return analysis.Analysis{}, analysis.ErrNotFound
}

func (repo *analysisRepository) QueryAnalyses(ctx context.Context, filter analysis.QueryFilter, ordering []core.DBOrdering) ([]analysis.Analysis, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	list := repo.db.analyses.filter(func(a analysis.Analysis) bool {
		if filter.UserID != "" && a.UserID != filter.UserID {
			return false
		}
		if filter.DocumentType != "" && a.DocumentType != filter.DocumentType {
			return false
		}
		if filter.Search != "" && !containsFold(a.Filename, filter.Search) && !containsFold(a.Summary, filter.Search) {
			return false
		}
		return inTimeRange(a.CreatedAt, filter.CreatedFrom, filter.CreatedTo)
	})
	orderRows(list, ordering, func(i, j int, field string) int {
		a, b := list[i], list[j]
		switch field {
		case "filename":
			return compareStrings(a.Filename, b.Filename)
		case "document_type":
			return compareStrings(a.DocumentType, b.DocumentType)
		case "size":
			return compareNumbers(float64(a.Size), float64(b.Size))
		}
		return compareTimes(a.CreatedAt, b.CreatedAt)
	})
	return list, nil
}

func (repo *analysisRepository) CountAnalyses(ctx context.Context, since time.Time) (map[string]int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	counts := make(map[string]int)
	for _, a := range repo.db.analyses.filter(nil) {
		if !a.CreatedAt.Before(since) {
			counts[a.DocumentType]++
		}
	}
	return counts, nil
}

func (repo *analysisRepository) DeleteAnalysesByID(ctx context.Context, ids []string) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	n := repo.db.analyses.delete(ids)
	repo.db.deleteInfos(ids)
	return n, nil
}

// Offer letters

func (repo *analysisRepository) CreateOfferLetterAnalysis(ctx context.Context, a analysis.Analysis, info offerletter.Info) (analysis.Analysis, offerletter.Info, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	a = repo.insertAnalysis(a)
	info.ID = newID()
	info.AnalysisID = a.ID
	info.UserID = a.UserID
	info.CreatedAt = a.CreatedAt
	repo.db.offerLetters.insert(info.ID, info)
	return a, info, nil
}

func (repo *analysisRepository) GetOfferLetterInfo(ctx context.Context, analysisID string) (offerletter.Info, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	list := repo.db.offerLetters.filter(func(info offerletter.Info) bool { return info.AnalysisID == analysisID })
	if len(list) == 0 {
		return offerletter.Info{}, offerletter.ErrNotFound
	}
	return list[0], nil
}

func (repo *analysisRepository) QueryOfferLetterInfos(ctx context.Context, userID string) ([]offerletter.Info, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	list := repo.db.offerLetters.filter(func(info offerletter.Info) bool { return userID == "" || info.UserID == userID })
	orderRows(list, newestFirst, func(i, j int, _ string) int { return compareTimes(list[i].CreatedAt, list[j].CreatedAt) })
	return list, nil
}

// COEs

func (repo *analysisRepository) CreateCoeAnalysis(ctx context.Context, a analysis.Analysis, info coe.Info) (analysis.Analysis, coe.Info, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	a = repo.insertAnalysis(a)
	info.ID = newID()
	info.AnalysisID = a.ID
	info.UserID = a.UserID
	info.CreatedAt = a.CreatedAt
	repo.db.coes.insert(info.ID, info)
	return a, info, nil
}

func (repo *analysisRepository) GetCoeInfo(ctx context.Context, analysisID string) (coe.Info, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	list := repo.db.coes.filter(func(info coe.Info) bool { return info.AnalysisID == analysisID })
	if len(list) == 0 {
		return coe.Info{}, coe.ErrNotFound
	}
	return list[0], nil
}

func (repo *analysisRepository) QueryCoeInfos(ctx context.Context, userID string) ([]coe.Info, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	list := repo.db.coes.filter(func(info coe.Info) bool { return userID == "" || info.UserID == userID })
	orderRows(list, newestFirst, func(i, j int, _ string) int { return compareTimes(list[i].CreatedAt, list[j].CreatedAt) })
	return list, nil
}

var newestFirst = []core.DBOrdering{{Field: "created_at"}}
