package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darpanintel/darpan/core"
	"github.com/darpanintel/darpan/core/scholarship"
)

const scholarshipTable = "scholarships"

var scholarshipColumns = []string{
	"id", "title", "provider", "description", "country", "university", "study_levels", "fields",
	"amount", "currency", "coverage", "eligibility", "deadline", "url", "is_active", "created_at", "updated_at",
}

type scholarshipRow struct {
	ID          string         `db:"id"`
	Title       string         `db:"title"`
	Provider    string         `db:"provider"`
	Description string         `db:"description"`
	Country     string         `db:"country"`
	University  string         `db:"university"`
	StudyLevels pq.StringArray `db:"study_levels"`
	Fields      pq.StringArray `db:"fields"`
	Amount      float64        `db:"amount"`
	Currency    string         `db:"currency"`
	Coverage    string         `db:"coverage"`
	Eligibility string         `db:"eligibility"`
	Deadline    null.Time      `db:"deadline"`
	URL         string         `db:"url"`
	IsActive    bool           `db:"is_active"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (r scholarshipRow) scholarship() scholarship.Scholarship {
	return scholarship.Scholarship{
		ID:          r.ID,
		Title:       r.Title,
		Provider:    r.Provider,
		Description: r.Description,
		Country:     r.Country,
		University:  r.University,
		StudyLevels: r.StudyLevels,
		Fields:      r.Fields,
		Amount:      r.Amount,
		Currency:    r.Currency,
		Coverage:    r.Coverage,
		Eligibility: r.Eligibility,
		Deadline:    r.Deadline.Time,
		URL:         r.URL,
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func scholarshipValues(s scholarship.Scholarship) map[string]interface{} {
	return map[string]interface{}{
		"title":        s.Title,
		"provider":     s.Provider,
		"description":  s.Description,
		"country":      s.Country,
		"university":   s.University,
		"study_levels": pq.StringArray(nonNilStrings(s.StudyLevels)),
		"fields":       pq.StringArray(nonNilStrings(s.Fields)),
		"amount":       s.Amount,
		"currency":     s.Currency,
		"coverage":     s.Coverage,
		"eligibility":  s.Eligibility,
		"deadline":     null.NewTime(s.Deadline.UTC(), !s.Deadline.IsZero()),
		"url":          s.URL,
		"is_active":    s.IsActive,
		"updated_at":   s.UpdatedAt.UTC(),
	}
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

type scholarshipRepository struct {
	exec core.DBExecutor
}

var _ scholarship.Repository = (*scholarshipRepository)(nil)

func NewScholarshipRepository(exec core.DBExecutor) scholarship.Repository {
	return &scholarshipRepository{exec: exec}
}

func (repo scholarshipRepository) CreateScholarship(ctx context.Context, s scholarship.Scholarship) (scholarship.Scholarship, error) {
	s.ID = uuid.New().String()
	values := scholarshipValues(s)
	values["id"] = s.ID
	values["created_at"] = s.CreatedAt.UTC()
	if _, err := execStmt(ctx, repo.exec, psql.Insert(scholarshipTable).SetMap(values)); err != nil {
		return scholarship.Scholarship{}, errors.Wrap(err, "inserting scholarship")
	}
	return s, nil
}

func (repo scholarshipRepository) QueryScholarships(ctx context.Context, filter scholarship.SearchFilter, ordering []core.DBOrdering) ([]scholarship.Scholarship, error) {
	b := psql.Select(scholarshipColumns...).From(scholarshipTable)
	if filter.Query != "" {
		val := contains(filter.Query)
		b = b.Where(sq.Or{
			sq.ILike{"title": val}, sq.ILike{"provider": val},
			sq.ILike{"description": val}, sq.ILike{"university": val},
		})
	}
	if filter.Country != "" {
		b = b.Where(sq.Expr("lower(country) = lower(?)", filter.Country))
	}
	if filter.University != "" {
		b = b.Where(sq.ILike{"university": contains(filter.University)})
	}
	if filter.StudyLevel != "" {
		b = b.Where(anyFold("study_levels", filter.StudyLevel))
	}
	if filter.Field != "" {
		b = b.Where(anyFold("fields", filter.Field))
	}
	if filter.MinAmount > 0 {
		b = b.Where(sq.GtOrEq{"amount": filter.MinAmount})
	}
	// rolling scholarships have no deadline
	if !filter.DeadlineAfter.IsZero() {
		b = b.Where(sq.Or{sq.Eq{"deadline": nil}, sq.GtOrEq{"deadline": filter.DeadlineAfter.UTC()}})
	}
	if filter.IsActive != nil {
		b = b.Where(sq.Eq{"is_active": *filter.IsActive})
	}
	if filter.Limit > 0 {
		b = b.Limit(uint64(filter.Limit))
	}

	var rows []scholarshipRow
	if err := selectRows(ctx, repo.exec, &rows, orderBy(b, ordering)); err != nil {
		return nil, errors.Wrap(err, "querying scholarships")
	}
	list := make([]scholarship.Scholarship, 0, len(rows))
	for _, r := range rows {
		list = append(list, r.scholarship())
	}
	return list, nil
}

func (repo scholarshipRepository) GetScholarship(ctx context.Context, id string) (scholarship.Scholarship, error) {
	if !isUUID(id) {
		return scholarship.Scholarship{}, scholarship.ErrNotFound
	}
	var row scholarshipRow
	b := psql.Select(scholarshipColumns...).From(scholarshipTable).Where(sq.Eq{"id": id})
	if err := getRow(ctx, repo.exec, &row, b); err != nil {
		return scholarship.Scholarship{}, trapNoRowsErr(err, scholarship.ErrNotFound, "finding scholarship")
	}
	return row.scholarship(), nil
}

func (repo scholarshipRepository) UpdateScholarship(ctx context.Context, s scholarship.Scholarship) (scholarship.Scholarship, error) {
	if !isUUID(s.ID) {
		return scholarship.Scholarship{}, scholarship.ErrNotFound
	}
	stmt := psql.Update(scholarshipTable).SetMap(scholarshipValues(s)).Where(sq.Eq{"id": s.ID})
	n, err := execStmt(ctx, repo.exec, stmt)
	if err != nil {
		return scholarship.Scholarship{}, errors.Wrap(err, "updating scholarship")
	}
	if n == 0 {
		return scholarship.Scholarship{}, scholarship.ErrNotFound
	}
	return s, nil
}

func (repo scholarshipRepository) DeleteScholarshipsByID(ctx context.Context, ids []string) (int, error) {
	n, err := execStmt(ctx, repo.exec, psql.Delete(scholarshipTable).Where(sq.Eq{"id": validIDs(ids)}))
	if err != nil {
		return 0, errors.Wrap(err, "deleting scholarships")
	}
	return n, nil
}
