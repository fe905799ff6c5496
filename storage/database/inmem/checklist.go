package inmemdb

import (
	"context"
	"strings"

	"github.com/darpanintel/darpan/core"
	"github.com/darpanintel/darpan/core/checklist"
)

type checklistRepository struct {
	db *DB
}

var _ checklist.Repository = (*checklistRepository)(nil)

func NewChecklistRepository(db *DB) checklist.Repository {
	return &checklistRepository{db: db}
}

// Templates

func (repo *checklistRepository) CreateTemplate(ctx context.Context, t checklist.DocumentTemplate) (checklist.DocumentTemplate, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	t.ID = newID()
	repo.db.templates.insert(t.ID, t)
	return t, nil
}

func (repo *checklistRepository) GetTemplate(ctx context.Context, id string) (checklist.DocumentTemplate, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if t, ok := repo.db.templates.get(id); ok {
		return t, nil
	}
	return checklist.DocumentTemplate{}, checklist.ErrTemplateNotFound
}

func (repo *checklistRepository) QueryTemplates(ctx context.Context, filter checklist.Filter) ([]checklist.DocumentTemplate, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	list := repo.db.templates.filter(func(t checklist.DocumentTemplate) bool {
		if filter.Category != "" && t.Category != filter.Category {
			return false
		}
		if filter.Country != "" && !hasFold(t.Countries, filter.Country) {
			return false
		}
		if filter.VisaType != "" && !hasFold(t.VisaTypes, filter.VisaType) {
			return false
		}
		return filter.IsActive == nil || t.IsActive == *filter.IsActive
	})
	orderRows(list, byTitle, func(i, j int, _ string) int { return compareStrings(list[i].Title, list[j].Title) })
	return list, nil
}

func (repo *checklistRepository) UpdateTemplate(ctx context.Context, t checklist.DocumentTemplate) (checklist.DocumentTemplate, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if !repo.db.templates.set(t.ID, t) {
		return checklist.DocumentTemplate{}, checklist.ErrTemplateNotFound
	}
	return t, nil
}

func (repo *checklistRepository) DeleteTemplatesByID(ctx context.Context, ids []string) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	return repo.db.templates.delete(ids), nil
}

// Checklists

func (repo *checklistRepository) CreateChecklist(ctx context.Context, c checklist.DocumentChecklist) (checklist.DocumentChecklist, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	c.ID = newID()
	repo.db.checklists.insert(c.ID, c)
	return c, nil
}

func (repo *checklistRepository) GetChecklist(ctx context.Context, id string) (checklist.DocumentChecklist, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if c, ok := repo.db.checklists.get(id); ok {
		return c, nil
	}
	return checklist.DocumentChecklist{}, checklist.ErrChecklistNotFound
}

func (repo *checklistRepository) QueryChecklists(ctx context.Context, filter checklist.Filter) ([]checklist.DocumentChecklist, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	list := repo.db.checklists.filter(func(c checklist.DocumentChecklist) bool {
		if filter.Country != "" && !strings.EqualFold(c.Country, filter.Country) {
			return false
		}
		if filter.VisaType != "" && !strings.EqualFold(c.VisaType, filter.VisaType) {
			return false
		}
		if filter.UserType != "" && c.UserType != filter.UserType && c.UserType != "any" {
			return false
		}
		return filter.IsActive == nil || c.IsActive == *filter.IsActive
	})
	orderRows(list, byTitle, func(i, j int, _ string) int { return compareStrings(list[i].Title, list[j].Title) })
	return list, nil
}

func (repo *checklistRepository) UpdateChecklist(ctx context.Context, c checklist.DocumentChecklist) (checklist.DocumentChecklist, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if !repo.db.checklists.set(c.ID, c) {
		return checklist.DocumentChecklist{}, checklist.ErrChecklistNotFound
	}
	return c, nil
}

func (repo *checklistRepository) DeleteChecklistsByID(ctx context.Context, ids []string) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	return repo.db.checklists.delete(ids), nil
}

var byTitle = []core.DBOrdering{{Field: "title", Ascending: true}}
