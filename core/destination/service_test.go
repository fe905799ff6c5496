package destination

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darpanintel/darpan/core"
	"github.com/darpanintel/darpan/core/scholarship"
	llmsvc "github.com/darpanintel/darpan/services/llm"
	logsvc "github.com/darpanintel/darpan/services/logger"
)

type researcherStub struct {
	mu  sync.Mutex
	got []scholarship.Query
}

func (r *researcherStub) Research(_ context.Context, q scholarship.Query) []scholarship.Suggestion {
	r.mu.Lock()
	r.got = append(r.got, q)
	r.mu.Unlock()
	return []scholarship.Suggestion{{Name: q.Country + " Excellence Award", Source: scholarship.SourceCatalog}}
}

var profile = Profile{
	AcademicLevel:      "undergraduate",
	GPA:                3.6,
	FieldOfStudy:       "Computer Science",
	Budget:             30000,
	BudgetCurrency:     "USD",
	PreferredCountries: []string{"Canada", "Germany"},
	EnglishTest:        "IELTS",
	EnglishScore:       7,
}

func TestService_Suggest(t *testing.T) {
	logger := logsvc.NewLogger("TEST", io.Discard)
	ctx := context.Background()

	t.Run("repaired answer", func(t *testing.T) {
		llm := llmsvc.NewStaticServiceMock(`{
			"suggestions": [
				{"country": "Germany", "matchScore": 140, "reasons": ["Low tuition"], "estimatedAnnualCost": "EUR 12,000",
				 "currency": "eur", "universities": ["TU Munich"], "visaDifficulty": "LOW"},
				{"country": "Canada", "matchScore": "78", "visaDifficulty": "impossible"},
				{"country": "", "matchScore": 99},
				{"country": "germany", "matchScore": 10},
				{"country": "Ireland", "matchScore": -20, "estimatedAnnualCost": -1}
			],
			"summary": "Germany and Canada fit your budget."
		}`, nil)
		res := &researcherStub{}
		got := NewService(llm, res, logger).Suggest(ctx, profile)

		require.Len(t, got.Suggestions, 3)
		assert.Equal(t, Suggestion{
			Country: "Germany", MatchScore: 100, Reasons: []string{"Low tuition"}, EstimatedAnnualCost: 12000,
			Currency: "EUR", Universities: []string{"TU Munich"}, VisaDifficulty: "low",
		}, got.Suggestions[0])

		canada := got.Suggestions[1]
		assert.Equal(t, "Canada", canada.Country)
		assert.Equal(t, 78, canada.MatchScore)
		assert.Equal(t, "medium", canada.VisaDifficulty)
		assert.Equal(t, "USD", canada.Currency)
		assert.NotEmpty(t, canada.Reasons)
		assert.NotEmpty(t, canada.Universities)

		assert.Equal(t, "Ireland", got.Suggestions[2].Country)
		assert.Equal(t, 0, got.Suggestions[2].MatchScore)
		assert.Zero(t, got.Suggestions[2].EstimatedAnnualCost)

		assert.Equal(t, "Germany and Canada fit your budget.", got.Summary)
		assert.Equal(t, defaultRecommendations, got.Recommendations)
		assert.Equal(t, defaultNextSteps, got.NextSteps)

		// research runs for the two best countries
		require.Len(t, res.got, 2)
		countries := []string{res.got[0].Country, res.got[1].Country}
		assert.ElementsMatch(t, []string{"Germany", "Canada"}, countries)
		assert.Equal(t, scholarship.LevelPostgraduate, res.got[0].Level)
		assert.Len(t, got.Scholarships, 2)

		reqs := llm.Requests()
		require.Len(t, reqs, 1)
		assert.Contains(t, reqs[0].User, "Computer Science")
	})

	failures := map[string]*llmsvc.ServiceMock{
		"api error":      llmsvc.NewStaticServiceMock("", errors.New("rate limited")),
		"no suggestions": llmsvc.NewStaticServiceMock(`{"summary": "hmm", "suggestions": []}`, nil),
		"disabled":       llmsvc.NewStaticServiceMock("", core.ErrLLMDisabled),
	}
	for name, llm := range failures {
		t.Run(name, func(t *testing.T) {
			got := NewService(llm, &researcherStub{}, logger).Suggest(ctx, profile)
			assert.True(t, strings.HasPrefix(got.Summary, "Analysis Error:"))
			require.Len(t, got.Suggestions, 2)
			assert.Equal(t, "Canada", got.Suggestions[0].Country)
			assert.Equal(t, 50, got.Suggestions[0].MatchScore)
			assert.NotEmpty(t, got.Recommendations)
			assert.NotEmpty(t, got.NextSteps)
			assert.Len(t, got.Scholarships, 2)
		})
	}

	t.Run("fallback without preferences", func(t *testing.T) {
		got := Fallback(nil, Profile{FieldOfStudy: "Law"})
		require.Len(t, got.Suggestions, len(fallbackCountries))
		for _, s := range got.Suggestions {
			assert.Contains(t, VisaDifficulties, s.VisaDifficulty)
			assert.NotEmpty(t, s.Universities)
		}
		assert.NotNil(t, got.Scholarships)
	})
}

func TestProfile_Validate(t *testing.T) {
	p := profile
	require.NoError(t, p.Validate())

	bad := Profile{AcademicLevel: "Wizard", GPA: -1, FieldOfStudy: " "}
	err := bad.Validate()
	require.Error(t, err)
}
