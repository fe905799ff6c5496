package checklist_test

import (
	"context"
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darpanintel/darpan/core/checklist"
	logsvc "github.com/darpanintel/darpan/services/logger"
	inmemdb "github.com/darpanintel/darpan/storage/database/inmem"
)

func newService() checklist.Service {
	return checklist.NewService(inmemdb.NewChecklistRepository(inmemdb.Open()), logsvc.NewLogger("TEST", io.Discard))
}

func TestNewDocumentTemplate_Validate(t *testing.T) {
	tests := []struct {
		name    string
		data    checklist.NewDocumentTemplate
		wantErr bool
	}{
		{"valid", checklist.NewDocumentTemplate{Title: "Statement of Purpose", Category: " VISA "}, false},
		{"missing title", checklist.NewDocumentTemplate{Category: "visa"}, true},
		{"unknown category", checklist.NewDocumentTemplate{Title: "SOP", Category: "misc"}, true},
		{"bad url", checklist.NewDocumentTemplate{Title: "SOP", Category: "visa", FileURL: "not a url"}, true},
		{"blank country", checklist.NewDocumentTemplate{Title: "SOP", Category: "visa", Countries: []string{"Canada", "  "}}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.data.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewDocumentChecklist_Validate(t *testing.T) {
	valid := checklist.NewDocumentChecklist{
		Title: "Student visa (subclass 500)", Country: "Australia", VisaType: "500",
		Items: []checklist.Item{{Title: " Passport ", Required: true}},
	}
	require.NoError(t, valid.Validate())
	assert.Equal(t, "Passport", valid.Items[0].Title)

	noItems := valid
	noItems.Items = nil
	assert.Error(t, noItems.Validate())

	blankItem := valid
	blankItem.Items = []checklist.Item{{Title: ""}}
	assert.Error(t, blankItem.Validate())

	badUserType := valid
	badUserType.UserType = "tourist"
	assert.Error(t, badUserType.Validate())
}

func TestService_Templates(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	inactive := false
	for _, nt := range []checklist.NewDocumentTemplate{
		{Title: "Statement of Purpose", Category: "visa", Countries: []string{"Australia", "Canada"}},
		{Title: "Bank Letter", Category: "financial", Countries: []string{"Canada"}, VisaTypes: []string{"Study Permit"}},
		{Title: "Old Form", Category: "visa", IsActive: &inactive},
	} {
		require.NoError(t, nt.Validate())
		_, err := svc.CreateTemplate(ctx, nt)
		require.NoError(t, err)
	}

	active := true
	tests := []struct {
		name   string
		filter checklist.Filter
		want   []string
	}{
		{"all, by title", checklist.Filter{}, []string{"Bank Letter", "Old Form", "Statement of Purpose"}},
		{"active", checklist.Filter{IsActive: &active}, []string{"Bank Letter", "Statement of Purpose"}},
		{"country", checklist.Filter{Country: "canada"}, []string{"Bank Letter", "Statement of Purpose"}},
		{"category", checklist.Filter{Category: "Visa", IsActive: &active}, []string{"Statement of Purpose"}},
		{"visa type", checklist.Filter{VisaType: "study permit"}, []string{"Bank Letter"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			list, err := svc.QueryTemplates(ctx, tc.filter)
			require.NoError(t, err)
			got := make([]string, 0, len(list))
			for _, tpl := range list {
				got = append(got, tpl.Title)
			}
			assert.Equal(t, tc.want, got)
		})
	}

	list, err := svc.QueryTemplates(ctx, checklist.Filter{Category: "financial"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, []string{"Study Permit"}, list[0].VisaTypes)

	nt := checklist.NewDocumentTemplate{Title: "Bank Statement", Category: "financial"}
	require.NoError(t, nt.Validate())
	tpl, err := svc.UpdateTemplate(ctx, list[0], nt)
	require.NoError(t, err)
	assert.Equal(t, "Bank Statement", tpl.Title)
	assert.Equal(t, []string{}, tpl.Countries)

	require.NoError(t, svc.DeleteTemplates(ctx, tpl.ID))
	_, err = svc.GetTemplate(ctx, tpl.ID)
	assert.Equal(t, checklist.ErrTemplateNotFound, errors.Cause(err))
}

func TestService_Checklists(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	student := checklist.NewDocumentChecklist{
		Title: "Australia student visa", Country: "Australia", VisaType: "500", UserType: "student",
		Items: []checklist.Item{{Title: "COE", Required: true}, {Title: "GTE statement", Required: true}},
	}
	anyone := checklist.NewDocumentChecklist{
		Title: "Australia visitor visa", Country: "Australia", VisaType: "600",
		Items: []checklist.Item{{Title: "Passport", Required: true}},
	}
	for _, nc := range []checklist.NewDocumentChecklist{student, anyone} {
		require.NoError(t, nc.Validate())
		_, err := svc.CreateChecklist(ctx, nc)
		require.NoError(t, err)
	}

	list, err := svc.QueryChecklists(ctx, checklist.Filter{Country: "AUSTRALIA", UserType: "dependent"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Australia visitor visa", list[0].Title)
	assert.Equal(t, "any", list[0].UserType)

	list, err = svc.QueryChecklists(ctx, checklist.Filter{VisaType: "500"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Len(t, list[0].Items, 2)

	c, err := svc.GetChecklist(ctx, list[0].ID)
	require.NoError(t, err)
	inactive := false
	student.IsActive = &inactive
	c, err = svc.UpdateChecklist(ctx, c, student)
	require.NoError(t, err)
	assert.False(t, c.IsActive)

	active := true
	list, err = svc.QueryChecklists(ctx, checklist.Filter{IsActive: &active})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.DeleteChecklists(ctx, c.ID))
	_, err = svc.GetChecklist(ctx, c.ID)
	assert.Equal(t, checklist.ErrChecklistNotFound, errors.Cause(err))
}
