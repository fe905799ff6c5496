package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/darpanintel/darpan/core"
	"github.com/darpanintel/darpan/core/checklist"
)

const (
	templateTable  = "document_templates"
	checklistTable = "document_checklists"
)

var (
	templateColumns = []string{
		"id", "title", "description", "category", "file_url", "countries", "visa_types", "is_active", "created_at", "updated_at",
	}
	checklistColumns = []string{
		"id", "title", "country", "visa_type", "user_type", "items", "is_active", "created_at", "updated_at",
	}
)

type templateRow struct {
	ID          string         `db:"id"`
	Title       string         `db:"title"`
	Description string         `db:"description"`
	Category    string         `db:"category"`
	FileURL     string         `db:"file_url"`
	Countries   pq.StringArray `db:"countries"`
	VisaTypes   pq.StringArray `db:"visa_types"`
	IsActive    bool           `db:"is_active"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (r templateRow) template() checklist.DocumentTemplate {
	return checklist.DocumentTemplate{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		FileURL:     r.FileURL,
		Countries:   r.Countries,
		VisaTypes:   r.VisaTypes,
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func templateValues(t checklist.DocumentTemplate) map[string]interface{} {
	return map[string]interface{}{
		"title":       t.Title,
		"description": t.Description,
		"category":    t.Category,
		"file_url":    t.FileURL,
		"countries":   pq.StringArray(nonNilStrings(t.Countries)),
		"visa_types":  pq.StringArray(nonNilStrings(t.VisaTypes)),
		"is_active":   t.IsActive,
		"updated_at":  t.UpdatedAt.UTC(),
	}
}

type checklistRow struct {
	ID        string         `db:"id"`
	Title     string         `db:"title"`
	Country   string         `db:"country"`
	VisaType  string         `db:"visa_type"`
	UserType  string         `db:"user_type"`
	Items     types.JSONText `db:"items"`
	IsActive  bool           `db:"is_active"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func (r checklistRow) checklist() (checklist.DocumentChecklist, error) {
	c := checklist.DocumentChecklist{
		ID:        r.ID,
		Title:     r.Title,
		Country:   r.Country,
		VisaType:  r.VisaType,
		UserType:  r.UserType,
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	return c, errors.Wrap(r.Items.Unmarshal(&c.Items), "decoding checklist items")
}

func checklistValues(c checklist.DocumentChecklist) (map[string]interface{}, error) {
	items := c.Items
	if items == nil {
		items = []checklist.Item{}
	}
	itemsJSON, err := jsonText(items)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"title":      c.Title,
		"country":    c.Country,
		"visa_type":  c.VisaType,
		"user_type":  c.UserType,
		"items":      itemsJSON,
		"is_active":  c.IsActive,
		"updated_at": c.UpdatedAt.UTC(),
	}, nil
}

type checklistRepository struct {
	exec core.DBExecutor
}

var _ checklist.Repository = (*checklistRepository)(nil)

func NewChecklistRepository(exec core.DBExecutor) checklist.Repository {
	return &checklistRepository{exec: exec}
}

// Templates

func (repo checklistRepository) CreateTemplate(ctx context.Context, t checklist.DocumentTemplate) (checklist.DocumentTemplate, error) {
	t.ID = uuid.New().String()
	values := templateValues(t)
	values["id"] = t.ID
	values["created_at"] = t.CreatedAt.UTC()
	if _, err := execStmt(ctx, repo.exec, psql.Insert(templateTable).SetMap(values)); err != nil {
		return checklist.DocumentTemplate{}, errors.Wrap(err, "inserting document template")
	}
	return t, nil
}

func (repo checklistRepository) GetTemplate(ctx context.Context, id string) (checklist.DocumentTemplate, error) {
	if !isUUID(id) {
		return checklist.DocumentTemplate{}, checklist.ErrTemplateNotFound
	}
	var row templateRow
	b := psql.Select(templateColumns...).From(templateTable).Where(sq.Eq{"id": id})
	if err := getRow(ctx, repo.exec, &row, b); err != nil {
		return checklist.DocumentTemplate{}, trapNoRowsErr(err, checklist.ErrTemplateNotFound, "finding document template")
	}
	return row.template(), nil
}

func (repo checklistRepository) QueryTemplates(ctx context.Context, filter checklist.Filter) ([]checklist.DocumentTemplate, error) {
	b := psql.Select(templateColumns...).From(templateTable).OrderBy("lower(title) ASC")
	if filter.Category != "" {
		b = b.Where(sq.Eq{"category": filter.Category})
	}
	if filter.Country != "" {
		b = b.Where(anyFold("countries", filter.Country))
	}
	if filter.VisaType != "" {
		b = b.Where(anyFold("visa_types", filter.VisaType))
	}
	if filter.IsActive != nil {
		b = b.Where(sq.Eq{"is_active": *filter.IsActive})
	}

	var rows []templateRow
	if err := selectRows(ctx, repo.exec, &rows, b); err != nil {
		return nil, errors.Wrap(err, "querying document templates")
	}
	list := make([]checklist.DocumentTemplate, 0, len(rows))
	for _, r := range rows {
		list = append(list, r.template())
	}
	return list, nil
}

func (repo checklistRepository) UpdateTemplate(ctx context.Context, t checklist.DocumentTemplate) (checklist.DocumentTemplate, error) {
	if !isUUID(t.ID) {
		return checklist.DocumentTemplate{}, checklist.ErrTemplateNotFound
	}
	n, err := execStmt(ctx, repo.exec, psql.Update(templateTable).SetMap(templateValues(t)).Where(sq.Eq{"id": t.ID}))
	if err != nil {
		return checklist.DocumentTemplate{}, errors.Wrap(err, "updating document template")
	}
	if n == 0 {
		return checklist.DocumentTemplate{}, checklist.ErrTemplateNotFound
	}
	return t, nil
}

func (repo checklistRepository) DeleteTemplatesByID(ctx context.Context, ids []string) (int, error) {
	n, err := execStmt(ctx, repo.exec, psql.Delete(templateTable).Where(sq.Eq{"id": validIDs(ids)}))
	if err != nil {
		return 0, errors.Wrap(err, "deleting document templates")
	}
	return n, nil
}

// Checklists

func (repo checklistRepository) CreateChecklist(ctx context.Context, c checklist.DocumentChecklist) (checklist.DocumentChecklist, error) {
	c.ID = uuid.New().String()
	values, err := checklistValues(c)
	if err != nil {
		return checklist.DocumentChecklist{}, err
	}
	values["id"] = c.ID
	values["created_at"] = c.CreatedAt.UTC()
	if _, err = execStmt(ctx, repo.exec, psql.Insert(checklistTable).SetMap(values)); err != nil {
		return checklist.DocumentChecklist{}, errors.Wrap(err, "inserting document checklist")
	}
	return c, nil
}

func (repo checklistRepository) GetChecklist(ctx context.Context, id string) (checklist.DocumentChecklist, error) {
	if !isUUID(id) {
		return checklist.DocumentChecklist{}, checklist.ErrChecklistNotFound
	}
	var row checklistRow
	b := psql.Select(checklistColumns...).From(checklistTable).Where(sq.Eq{"id": id})
	if err := getRow(ctx, repo.exec, &row, b); err != nil {
		return checklist.DocumentChecklist{}, trapNoRowsErr(err, checklist.ErrChecklistNotFound, "finding document checklist")
	}
	return row.checklist()
}

func (repo checklistRepository) QueryChecklists(ctx context.Context, filter checklist.Filter) ([]checklist.DocumentChecklist, error) {
	b := psql.Select(checklistColumns...).From(checklistTable).OrderBy("lower(title) ASC")
	if filter.Country != "" {
		b = b.Where(sq.Expr("lower(country) = lower(?)", filter.Country))
	}
	if filter.VisaType != "" {
		b = b.Where(sq.Expr("lower(visa_type) = lower(?)", filter.VisaType))
	}
	if filter.UserType != "" {
		b = b.Where(sq.Eq{"user_type": []string{filter.UserType, "any"}})
	}
	if filter.IsActive != nil {
		b = b.Where(sq.Eq{"is_active": *filter.IsActive})
	}

	var rows []checklistRow
	if err := selectRows(ctx, repo.exec, &rows, b); err != nil {
		return nil, errors.Wrap(err, "querying document checklists")
	}
	list := make([]checklist.DocumentChecklist, 0, len(rows))
	for _, r := range rows {
		c, err := r.checklist()
		if err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, nil
}

func (repo checklistRepository) UpdateChecklist(ctx context.Context, c checklist.DocumentChecklist) (checklist.DocumentChecklist, error) {
	if !isUUID(c.ID) {
		return checklist.DocumentChecklist{}, checklist.ErrChecklistNotFound
	}
	values, err := checklistValues(c)
	if err != nil {
		return checklist.DocumentChecklist{}, err
	}
	n, err := execStmt(ctx, repo.exec, psql.Update(checklistTable).SetMap(values).Where(sq.Eq{"id": c.ID}))
	if err != nil {
		return checklist.DocumentChecklist{}, errors.Wrap(err, "updating document checklist")
	}
	if n == 0 {
		return checklist.DocumentChecklist{}, checklist.ErrChecklistNotFound
	}
	return c, nil
}

func (repo checklistRepository) DeleteChecklistsByID(ctx context.Context, ids []string) (int, error) {
	n, err := execStmt(ctx, repo.exec, psql.Delete(checklistTable).Where(sq.Eq{"id": validIDs(ids)}))
	if err != nil {
		return 0, errors.Wrap(err, "deleting document checklists")
	}
	return n, nil
}
