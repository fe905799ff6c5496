package checklist

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/darpanintel/darpan/core"
)

var (
	ErrTemplateNotFound  = errors.New("document template not found")
	ErrChecklistNotFound = errors.New("document checklist not found")

	categoryTag  = "doccategory"
	categoryText = "invalid category"
	userTypeTag  = "usertype"
	userTypeText = "invalid user type"
)

func init() {
	_ = core.Validate.RegisterValidation(categoryTag, core.OneOfValidation(Categories...))
	core.RegisterCustomTranslation(categoryTag, categoryText)
	_ = core.Validate.RegisterValidation(userTypeTag, core.OneOfValidation(UserTypes...))
	core.RegisterCustomTranslation(userTypeTag, userTypeText)
}

type (
	Repository interface {
		CreateTemplate(ctx context.Context, t DocumentTemplate) (DocumentTemplate, error)
		GetTemplate(ctx context.Context, id string) (DocumentTemplate, error)
		QueryTemplates(ctx context.Context, filter Filter) ([]DocumentTemplate, error)
		UpdateTemplate(ctx context.Context, t DocumentTemplate) (DocumentTemplate, error)
		DeleteTemplatesByID(ctx context.Context, ids []string) (int, error)

		CreateChecklist(ctx context.Context, c DocumentChecklist) (DocumentChecklist, error)
		GetChecklist(ctx context.Context, id string) (DocumentChecklist, error)
		QueryChecklists(ctx context.Context, filter Filter) ([]DocumentChecklist, error)
		UpdateChecklist(ctx context.Context, c DocumentChecklist) (DocumentChecklist, error)
		DeleteChecklistsByID(ctx context.Context, ids []string) (int, error)
	}

	Service interface {
		CreateTemplate(ctx context.Context, nt NewDocumentTemplate) (DocumentTemplate, error)
		GetTemplate(ctx context.Context, id string) (DocumentTemplate, error)
		QueryTemplates(ctx context.Context, filter Filter) ([]DocumentTemplate, error)
		UpdateTemplate(ctx context.Context, t DocumentTemplate, nt NewDocumentTemplate) (DocumentTemplate, error)
		DeleteTemplates(ctx context.Context, ids ...string) error

		CreateChecklist(ctx context.Context, nc NewDocumentChecklist) (DocumentChecklist, error)
		GetChecklist(ctx context.Context, id string) (DocumentChecklist, error)
		QueryChecklists(ctx context.Context, filter Filter) ([]DocumentChecklist, error)
		UpdateChecklist(ctx context.Context, c DocumentChecklist, nc NewDocumentChecklist) (DocumentChecklist, error)
		DeleteChecklists(ctx context.Context, ids ...string) error
	}

	service struct {
		repo   Repository
		logger core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, logger core.Logger) Service {
	return &service{repo: repo, logger: logger}
}

// Templates

func (svc *service) CreateTemplate(ctx context.Context, nt NewDocumentTemplate) (DocumentTemplate, error) {
	now := time.Now().UTC()
	t := DocumentTemplate{CreatedAt: now}
	applyTemplate(&t, nt, now)
	return svc.repo.CreateTemplate(ctx, t)
}

func (svc *service) GetTemplate(ctx context.Context, id string) (DocumentTemplate, error) {
	return svc.repo.GetTemplate(ctx, id)
}

func (svc *service) QueryTemplates(ctx context.Context, filter Filter) ([]DocumentTemplate, error) {
	filter.Clean()
	return svc.repo.QueryTemplates(ctx, filter)
}

func (svc *service) UpdateTemplate(ctx context.Context, t DocumentTemplate, nt NewDocumentTemplate) (DocumentTemplate, error) {
	applyTemplate(&t, nt, time.Now().UTC())
	return svc.repo.UpdateTemplate(ctx, t)
}

func (svc *service) DeleteTemplates(ctx context.Context, ids ...string) error {
	if _, err := svc.repo.DeleteTemplatesByID(ctx, ids); err != nil {
		return errors.Wrap(err, "deleting document templates")
	}
	return nil
}

func applyTemplate(t *DocumentTemplate, nt NewDocumentTemplate, now time.Time) {
	t.Title = nt.Title
	t.Description = nt.Description
	t.Category = nt.Category
	t.FileURL = nt.FileURL
	t.Countries = nonNil(nt.Countries)
	t.VisaTypes = nonNil(nt.VisaTypes)
	t.IsActive = nt.IsActive == nil || *nt.IsActive
	t.UpdatedAt = now
}

// Checklists

func (svc *service) CreateChecklist(ctx context.Context, nc NewDocumentChecklist) (DocumentChecklist, error) {
	now := time.Now().UTC()
	c := DocumentChecklist{CreatedAt: now}
	applyChecklist(&c, nc, now)
	return svc.repo.CreateChecklist(ctx, c)
}

func (svc *service) GetChecklist(ctx context.Context, id string) (DocumentChecklist, error) {
	return svc.repo.GetChecklist(ctx, id)
}

func (svc *service) QueryChecklists(ctx context.Context, filter Filter) ([]DocumentChecklist, error) {
	filter.Clean()
	return svc.repo.QueryChecklists(ctx, filter)
}

func (svc *service) UpdateChecklist(ctx context.Context, c DocumentChecklist, nc NewDocumentChecklist) (DocumentChecklist, error) {
	applyChecklist(&c, nc, time.Now().UTC())
	return svc.repo.UpdateChecklist(ctx, c)
}

func (svc *service) DeleteChecklists(ctx context.Context, ids ...string) error {
	if _, err := svc.repo.DeleteChecklistsByID(ctx, ids); err != nil {
		return errors.Wrap(err, "deleting document checklists")
	}
	return nil
}

func applyChecklist(c *DocumentChecklist, nc NewDocumentChecklist, now time.Time) {
	c.Title = nc.Title
	c.Country = nc.Country
	c.VisaType = nc.VisaType
	c.UserType = nc.UserType
	if c.UserType == "" {
		c.UserType = "any"
	}
	c.Items = nc.Items
	c.IsActive = nc.IsActive == nil || *nc.IsActive
	c.UpdatedAt = now
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
