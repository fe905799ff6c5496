package offerletter

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darpanintel/darpan/core"
	"github.com/darpanintel/darpan/core/scholarship"
	llmsvc "github.com/darpanintel/darpan/services/llm"
	logsvc "github.com/darpanintel/darpan/services/logger"
)

const letter = "The University of Sydney\nLetter of Offer\n" +
	"We are pleased to offer you a place in the Master of Data Science.\n" +
	"Campus: Camperdown, Sydney, Australia\nTuition fee: AUD 48,000 per year."

var testLogger = logsvc.NewLogger("TEST", io.Discard)

type researcherStub struct {
	found []scholarship.Suggestion
	got   []scholarship.Query
}

func (r *researcherStub) Research(_ context.Context, q scholarship.Query) []scholarship.Suggestion {
	r.got = append(r.got, q)
	return r.found
}

// catalogStub only answers MatchFor.
type catalogStub struct {
	scholarship.Service
	matches []scholarship.Scholarship
}

func (c catalogStub) MatchFor(context.Context, scholarship.Query) ([]scholarship.Scholarship, error) {
	return c.matches, nil
}

func isResearch(req core.ChatRequest) bool {
	return strings.Contains(req.System, "scholarship research assistant")
}

func assertShape(t *testing.T, an Analysis) {
	t.Helper()
	assert.NotEmpty(t, an.Summary)
	assert.NotEmpty(t, an.PaymentSchedule)
	assert.NotEmpty(t, an.Conditions)
	assert.NotEmpty(t, an.ImportantDates)
	assert.NotEmpty(t, an.Strengths)
	assert.NotEmpty(t, an.Risks)
	assert.NotEmpty(t, an.Recommendations)
	assert.NotEmpty(t, an.NextSteps)
	assert.NotNil(t, an.Scholarships)
	assert.NotNil(t, an.FinancialBreakdown.OtherFees)
}

func TestAnalyzer_Analyze(t *testing.T) {
	researched := []scholarship.Suggestion{
		{Name: "Sydney Scholars Award", Amount: "AUD 6,000", Source: scholarship.SourceCatalog},
	}

	t.Run("complete answer", func(t *testing.T) {
		llm := llmsvc.NewStaticServiceMock(`{
			"universityInfo": {"name": "The University of Sydney", "program": "Master of Data Science", "level": "Postgraduate",
				"location": "Camperdown", "country": "Australia", "startDate": "2025-02-24", "duration": "2 years"},
			"summary": "Unconditional offer for the Master of Data Science.",
			"financialBreakdown": {"currency": "aud", "tuitionFee": "AUD 48,000", "deposit": 24000,
				"otherFees": [{"name": "Student services", "amount": 350}, {"amount": 10}]},
			"paymentSchedule": [{"description": "First semester", "amount": 24000, "dueDate": "2025-01-10"}],
			"conditions": ["Provide certified transcripts"],
			"importantDates": [{"event": "Acceptance deadline", "date": "2024-12-01"}],
			"scholarships": [{"name": "Vice-Chancellor's International Scholarship", "amount": "AUD 10,000"},
				{"name": "sydney scholars award"}],
			"strengths": ["Unconditional offer"],
			"risks": [{"description": "High living costs in Sydney. Budget carefully.", "severity": "HIGH"}],
			"recommendations": [{"title": "Apply for scholarships early"}],
			"nextSteps": ["Accept the offer"]
		}`, nil)
		res := &researcherStub{found: researched}
		an := NewAnalyzer(llm, res, 8000, testLogger).Analyze(context.Background(), letter)

		assertShape(t, an)
		require.Len(t, res.got, 1)
		assert.Equal(t, "University of Sydney", res.got[0].University)
		assert.Equal(t, "Master of Data Science", res.got[0].Program)
		assert.Equal(t, "Australia", res.got[0].Country)

		assert.Equal(t, "The University of Sydney", an.UniversityInfo.Name)
		assert.Equal(t, "postgraduate", an.UniversityInfo.Level)
		assert.Equal(t, "Unconditional offer for the Master of Data Science.", an.Summary)
		assert.Equal(t, "AUD", an.FinancialBreakdown.Currency)
		assert.Equal(t, 48000.0, an.FinancialBreakdown.TuitionFee)
		assert.Equal(t, []Fee{{Name: "Student services", Amount: 350}}, an.FinancialBreakdown.OtherFees)
		assert.Equal(t, 48350.0, an.FinancialBreakdown.TotalCost)
		assert.Equal(t, []Condition{{Description: "Provide certified transcripts", Type: "other"}}, an.Conditions)
		assert.Equal(t, []Risk{{Title: "High living costs in Sydney", Description: "High living costs in Sydney. Budget carefully.", Severity: "high"}}, an.Risks)
		assert.Equal(t, []string{"Apply for scholarships early"}, an.Recommendations)

		// researched entries come first; duplicates named in the letter are dropped
		require.Len(t, an.Scholarships, 2)
		assert.Equal(t, "Sydney Scholars Award", an.Scholarships[0].Name)
		assert.Equal(t, scholarship.SourceCatalog, an.Scholarships[0].Source)
		assert.Equal(t, scholarship.SourceDocument, an.Scholarships[1].Source)

		reqs := llm.Requests()
		require.Len(t, reqs, 1)
		assert.True(t, reqs[0].JSON)
		assert.Contains(t, reqs[0].User, "Sydney Scholars Award")
	})

	t.Run("missing arrays get defaults", func(t *testing.T) {
		llm := llmsvc.NewStaticServiceMock(`{"summary": "Short answer", "recommendations": [], "risks": null}`, nil)
		an := NewAnalyzer(llm, &researcherStub{}, 8000, testLogger).Analyze(context.Background(), letter)

		assertShape(t, an)
		assert.Equal(t, "Short answer", an.Summary)
		assert.Equal(t, defaultRecommendations, an.Recommendations)
		assert.Equal(t, defaultNextSteps, an.NextSteps)
		assert.Equal(t, defaultRisks, an.Risks)
		// hints fill what the model left out
		assert.Equal(t, "University of Sydney", an.UniversityInfo.Name)
		assert.Equal(t, "Master of Data Science", an.UniversityInfo.Program)
		assert.Empty(t, an.Scholarships)
	})

	failures := []struct {
		name string
		resp string
		err  error
	}{
		{name: "api error", err: errors.New("502 bad gateway")},
		{name: "malformed json", resp: `{"summary": "cut off`},
		{name: "not an object", resp: `["a", "b"]`},
		{name: "disabled", err: core.ErrLLMDisabled},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			llm := llmsvc.NewStaticServiceMock(tt.resp, tt.err)
			an := NewAnalyzer(llm, &researcherStub{found: researched}, 8000, testLogger).Analyze(context.Background(), letter)

			assertShape(t, an)
			assert.True(t, strings.HasPrefix(an.Summary, "Analysis Error:"), an.Summary)
			assert.Equal(t, "University of Sydney", an.UniversityInfo.Name)
			assert.Equal(t, researched, an.Scholarships)
		})
	}
}

func TestAnalyzer_TruncatesDocument(t *testing.T) {
	llm := llmsvc.NewStaticServiceMock(`{}`, nil)
	text := strings.Repeat("x", 8000) + "END-OF-LETTER"
	an := NewAnalyzer(llm, &researcherStub{}, 8000, testLogger).Analyze(context.Background(), text)
	assertShape(t, an)

	reqs := llm.Requests()
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].User, strings.Repeat("x", 8000))
	assert.NotContains(t, reqs[0].User, "END-OF-LETTER")
}

func TestAnalyzer_ResearchTimeout(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	llm := llmsvc.NewServiceMock(func(ctx context.Context, req core.ChatRequest) (string, error) {
		if isResearch(req) {
			<-block // never answers while the test runs, ignoring ctx
			return "", nil
		}
		return `{"summary": "ok"}`, nil
	})
	catalog := catalogStub{matches: []scholarship.Scholarship{{Title: "Local Award", Country: "Australia"}}}
	researcher := scholarship.NewResearcher(catalog, llm, 50*time.Millisecond, testLogger)
	an := NewAnalyzer(llm, researcher, 8000, testLogger)

	start := time.Now()
	found := an.ResearchScholarships(context.Background(), UniversityInfo{University: "University of Sydney", Country: "Australia"})
	assert.Less(t, int64(time.Since(start)), int64(2*time.Second))
	require.Len(t, found, 1)
	assert.Equal(t, "Local Award", found[0].Name)

	start = time.Now()
	result := an.Analyze(context.Background(), letter)
	assert.Less(t, int64(time.Since(start)), int64(2*time.Second))
	assert.Equal(t, "ok", result.Summary)
	assertShape(t, result)
}

func TestFallback(t *testing.T) {
	an := Fallback(nil, UniversityInfo{}, nil)
	assertShape(t, an)
	assert.True(t, strings.HasPrefix(an.Summary, "Analysis Error:"))
	assert.Empty(t, an.Scholarships)
}
