package inmemdb

import (
	"context"
	"strings"

	"github.com/darpanintel/darpan/core"
	"github.com/darpanintel/darpan/core/scholarship"
)

type scholarshipRepository struct {
	db *DB
}

var _ scholarship.Repository = (*scholarshipRepository)(nil)

func NewScholarshipRepository(db *DB) scholarship.Repository {
	return &scholarshipRepository{db: db}
}

func (repo *scholarshipRepository) CreateScholarship(ctx context.Context, s scholarship.Scholarship) (scholarship.Scholarship, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	s.ID = newID()
	repo.db.scholarships.insert(s.ID, s)
	return s, nil
}

func (repo *scholarshipRepository) QueryScholarships(ctx context.Context, filter scholarship.SearchFilter, ordering []core.DBOrdering) ([]scholarship.Scholarship, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	list := repo.db.scholarships.filter(func(s scholarship.Scholarship) bool { return matchScholarship(s, filter) })
	orderRows(list, ordering, func(i, j int, field string) int {
		a, b := list[i], list[j]
		switch field {
		case "title":
			return compareStrings(a.Title, b.Title)
		case "country":
			return compareStrings(a.Country, b.Country)
		case "amount":
			return compareNumbers(a.Amount, b.Amount)
		case "deadline":
			return compareTimes(a.Deadline, b.Deadline)
		}
		return compareTimes(a.CreatedAt, b.CreatedAt)
	})
	if filter.Limit > 0 && len(list) > filter.Limit {
		list = list[:filter.Limit]
	}
	return list, nil
}

func matchScholarship(s scholarship.Scholarship, filter scholarship.SearchFilter) bool {
	if q := filter.Query; q != "" &&
		!containsFold(s.Title, q) && !containsFold(s.Provider, q) &&
		!containsFold(s.Description, q) && !containsFold(s.University, q) {
		return false
	}
	if filter.Country != "" && !strings.EqualFold(s.Country, filter.Country) {
		return false
	}
	if filter.University != "" && !containsFold(s.University, filter.University) {
		return false
	}
	if filter.StudyLevel != "" && !hasFold(s.StudyLevels, filter.StudyLevel) {
		return false
	}
	if filter.Field != "" && !hasFold(s.Fields, filter.Field) {
		return false
	}
	if filter.MinAmount > 0 && s.Amount < filter.MinAmount {
		return false
	}
	if !filter.DeadlineAfter.IsZero() && !s.Deadline.IsZero() && s.Deadline.Before(filter.DeadlineAfter) {
		return false
	}
	return filter.IsActive == nil || s.IsActive == *filter.IsActive
}

func hasFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}

func (repo *scholarshipRepository) GetScholarship(ctx context.Context, id string) (scholarship.Scholarship, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.db.scholarships.get(id); ok {
		return s, nil
	}
	return scholarship.Scholarship{}, scholarship.ErrNotFound
}

func (repo *scholarshipRepository) UpdateScholarship(ctx context.Context, s scholarship.Scholarship) (scholarship.Scholarship, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if !repo.db.scholarships.set(s.ID, s) {
		return scholarship.Scholarship{}, scholarship.ErrNotFound
	}
	return s, nil
}

func (repo *scholarshipRepository) DeleteScholarshipsByID(ctx context.Context, ids []string) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	return repo.db.scholarships.delete(ids), nil
}
