package scholarship_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darpanintel/darpan/core"
	"github.com/darpanintel/darpan/core/scholarship"
	logsvc "github.com/darpanintel/darpan/services/logger"
	inmemdb "github.com/darpanintel/darpan/storage/database/inmem"
)

func seededService(t *testing.T) scholarship.Service {
	t.Helper()
	svc := scholarship.NewService(inmemdb.NewScholarshipRepository(inmemdb.Open()), logsvc.NewLogger("TEST", io.Discard))
	inactive := false
	n, err := svc.Seed(context.Background(), []scholarship.NewScholarship{
		{
			Title: "Vice-Chancellor's International Scholarship", Provider: "University of Sydney",
			Country: "Australia", University: "University of Sydney",
			StudyLevels: []string{"Postgraduate"}, Amount: 10000, Currency: "aud",
		},
		{
			Title: "Destination Australia", Provider: "Australian Government", Country: "Australia",
			Fields: []string{"Engineering", "Nursing"}, Amount: 15000, Currency: "AUD",
		},
		{
			Title: "Expired Grant", Country: "Australia", Amount: 500, Currency: "AUD",
			Deadline: time.Now().AddDate(-1, 0, 0),
		},
		{
			Title: "Retired Award", Country: "Australia", Coverage: "Full tuition", IsActive: &inactive,
		},
		{
			Title: "Chevening", Provider: "UK Government", Country: "United Kingdom", Coverage: "Full tuition",
		},
	})
	require.NoError(t, err)
	require.Equal(t, 5, n)
	return svc
}

func TestService_Seed_Invalid(t *testing.T) {
	svc := scholarship.NewService(inmemdb.NewScholarshipRepository(inmemdb.Open()), logsvc.NewLogger("TEST", io.Discard))
	n, err := svc.Seed(context.Background(), []scholarship.NewScholarship{
		{Title: "Good", Country: "Canada"},
		{Title: "Bad level", Country: "Canada", StudyLevels: []string{"kindergarten"}},
	})
	assert.Equal(t, 0, n)
	var vErrs validator.ValidationErrors
	assert.True(t, errors.As(err, &vErrs))

	list, err := svc.Search(context.Background(), scholarship.SearchFilter{}, nil)
	require.NoError(t, err)
	assert.Empty(t, list, "nothing is saved when an entry is invalid")
}

func TestService_Search(t *testing.T) {
	ctx := context.Background()
	svc := seededService(t)

	tests := []struct {
		name     string
		filter   scholarship.SearchFilter
		ordering []core.DBOrdering
		want     []string
	}{
		{
			name:     "country, by amount",
			filter:   scholarship.SearchFilter{Country: "australia"},
			ordering: []core.DBOrdering{{Field: "amount"}},
			want:     []string{"Destination Australia", "Vice-Chancellor's International Scholarship", "Expired Grant", "Retired Award"},
		},
		{
			name:   "query matches provider",
			filter: scholarship.SearchFilter{Query: "government"},
			want:   []string{"Destination Australia", "Chevening"},
		},
		{
			name:   "study level",
			filter: scholarship.SearchFilter{StudyLevel: "POSTGRADUATE"},
			want:   []string{"Vice-Chancellor's International Scholarship"},
		},
		{
			name:   "deadline after keeps rolling entries",
			filter: scholarship.SearchFilter{Country: "Australia", DeadlineAfter: time.Now(), IsActive: boolPtr(true)},
			want:   []string{"Vice-Chancellor's International Scholarship", "Destination Australia"},
		},
		{
			name:     "limit",
			filter:   scholarship.SearchFilter{Limit: 2},
			ordering: []core.DBOrdering{{Field: "title", Ascending: true}},
			want:     []string{"Chevening", "Destination Australia"},
		},
		{
			name:     "unknown ordering is ignored",
			filter:   scholarship.SearchFilter{MinAmount: 12000},
			ordering: []core.DBOrdering{{Field: "password"}},
			want:     []string{"Destination Australia"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			list, err := svc.Search(ctx, tc.filter, tc.ordering)
			require.NoError(t, err)
			assert.Equal(t, tc.want, titles(list))
		})
	}
}

func TestService_MatchFor(t *testing.T) {
	ctx := context.Background()
	svc := seededService(t)

	tests := []struct {
		name  string
		query scholarship.Query
		want  []string
	}{
		{
			name:  "university specific first",
			query: scholarship.Query{University: "The University of Sydney", Country: "Australia", Level: "postgraduate"},
			want:  []string{"Vice-Chancellor's International Scholarship", "Destination Australia"},
		},
		{
			name:  "country only",
			query: scholarship.Query{Country: "Australia", Program: "Bachelor of Nursing"},
			want:  []string{"Destination Australia"},
		},
		{
			name:  "other country",
			query: scholarship.Query{Country: "United Kingdom"},
			want:  []string{"Chevening"},
		},
		{
			name:  "nothing relevant",
			query: scholarship.Query{Country: "Japan"},
			want:  []string{},
		},
		{
			name:  "empty query",
			query: scholarship.Query{},
			want:  []string{},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			list, err := svc.MatchFor(ctx, tc.query)
			require.NoError(t, err)
			assert.Equal(t, tc.want, titles(list))
		})
	}
}

func TestService_UpdateDelete(t *testing.T) {
	ctx := context.Background()
	svc := seededService(t)

	list, err := svc.Search(ctx, scholarship.SearchFilter{Query: "chevening"}, nil)
	require.NoError(t, err)
	require.Len(t, list, 1)

	ns := scholarship.NewScholarship{Title: "Chevening Scholarship", Country: "United Kingdom", Amount: 18000, Currency: "gbp"}
	require.NoError(t, ns.Validate())
	s, err := svc.Update(ctx, list[0], ns)
	require.NoError(t, err)
	assert.Equal(t, "GBP", s.Currency)
	assert.Equal(t, "GBP 18,000", s.Suggestion().Amount)
	assert.Equal(t, list[0].CreatedAt, s.CreatedAt)

	require.NoError(t, svc.Delete(ctx, s.ID))
	_, err = svc.GetByID(ctx, s.ID)
	assert.Equal(t, scholarship.ErrNotFound, errors.Cause(err))
}

func titles(list []scholarship.Scholarship) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		out = append(out, s.Title)
	}
	return out
}

func boolPtr(b bool) *bool { return &b }
