package scholarship

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darpanintel/darpan/core"
	llmsvc "github.com/darpanintel/darpan/services/llm"
	logsvc "github.com/darpanintel/darpan/services/logger"
)

var testLogger = logsvc.NewLogger("TEST", io.Discard)

type catalogStub struct {
	Service
	matches []Scholarship
	err     error
}

func (c catalogStub) MatchFor(context.Context, Query) ([]Scholarship, error) {
	return c.matches, c.err
}

func TestParseSuggestions(t *testing.T) {
	list, err := ParseSuggestions("```json\n" + `{"scholarships": [
		{"name": "Endeavour Leadership", "provider": "Australian Government", "amount": 15000, "link": "https://example.org"},
		{"provider": "nameless"},
		{"title": "Destination Australia", "deadline": "2025-03-31"}
	]}` + "\n```")
	require.NoError(t, err)
	assert.Equal(t, []Suggestion{
		{Name: "Endeavour Leadership", Provider: "Australian Government", Amount: "15000", URL: "https://example.org", Source: SourceResearch},
		{Name: "Destination Australia", Deadline: "2025-03-31", Source: SourceResearch},
	}, list)

	items := make([]string, 0, 12)
	for i := 0; i < 12; i++ {
		items = append(items, fmt.Sprintf(`{"name": "S%d"}`, i))
	}
	list, err = ParseSuggestions(`{"scholarships": [` + strings.Join(items, ",") + `]}`)
	require.NoError(t, err)
	assert.Len(t, list, maxResearched)

	list, err = ParseSuggestions(`{"scholarships": []}`)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = ParseSuggestions("I could not find any scholarships.")
	assert.Error(t, err)
}

func TestMerge(t *testing.T) {
	merged := Merge(
		[]Suggestion{{Name: "A", Source: SourceCatalog}, {Name: ""}},
		[]Suggestion{{Name: " a ", Source: SourceResearch}, {Name: "B", Source: SourceResearch}},
	)
	assert.Equal(t, []Suggestion{{Name: "A", Source: SourceCatalog}, {Name: "B", Source: SourceResearch}}, merged)
	assert.NotNil(t, Merge())
}

func TestResearcher_Research(t *testing.T) {
	catalog := catalogStub{matches: []Scholarship{{Title: "Local Award", Amount: 5000, Currency: "aud", Country: "Australia"}}}
	q := Query{University: "University of Sydney", Country: "Australia"}
	ctx := context.Background()

	t.Run("merged with catalog", func(t *testing.T) {
		llm := llmsvc.NewStaticServiceMock(`{"scholarships": [{"name": "Research Award"}, {"name": "local award"}]}`, nil)
		found := NewResearcher(catalog, llm, time.Second, testLogger).Research(ctx, q)
		require.Len(t, found, 2)
		assert.Equal(t, Suggestion{Name: "Local Award", Amount: "AUD 5,000", Source: SourceCatalog}, found[0])
		assert.Equal(t, "Research Award", found[1].Name)

		reqs := llm.Requests()
		require.Len(t, reqs, 1)
		assert.True(t, reqs[0].JSON)
		assert.Contains(t, reqs[0].System, "Do not fabricate")
		assert.Contains(t, reqs[0].User, "University of Sydney")
	})

	t.Run("model error", func(t *testing.T) {
		llm := llmsvc.NewStaticServiceMock("", errors.New("boom"))
		found := NewResearcher(catalog, llm, time.Second, testLogger).Research(ctx, q)
		require.Len(t, found, 1)
		assert.Equal(t, "Local Award", found[0].Name)
	})

	t.Run("catalog error", func(t *testing.T) {
		llm := llmsvc.NewStaticServiceMock(`{"scholarships": [{"name": "Research Award"}]}`, nil)
		found := NewResearcher(catalogStub{err: errors.New("db down")}, llm, time.Second, testLogger).Research(ctx, q)
		require.Len(t, found, 1)
		assert.Equal(t, "Research Award", found[0].Name)
	})

	t.Run("empty query", func(t *testing.T) {
		llm := llmsvc.NewStaticServiceMock(`{"scholarships": [{"name": "Research Award"}]}`, nil)
		found := NewResearcher(catalog, llm, time.Second, testLogger).Research(ctx, Query{})
		assert.NotNil(t, found)
		assert.Empty(t, found)
		assert.Empty(t, llm.Requests())
	})

	t.Run("upstream never answers", func(t *testing.T) {
		block := make(chan struct{})
		defer close(block)
		llm := llmsvc.NewServiceMock(func(context.Context, core.ChatRequest) (string, error) {
			<-block
			return `{"scholarships": [{"name": "Too Late"}]}`, nil
		})

		start := time.Now()
		found := NewResearcher(catalogStub{}, llm, 30*time.Millisecond, testLogger).Research(ctx, q)
		elapsed := time.Since(start)

		assert.NotNil(t, found)
		assert.Empty(t, found)
		assert.GreaterOrEqual(t, int64(elapsed), int64(30*time.Millisecond))
		assert.Less(t, int64(elapsed), int64(time.Second))
	})
}

func TestMatchScore(t *testing.T) {
	sydneyOnly := Scholarship{University: "University of Sydney", Country: "Australia"}
	national := Scholarship{Country: "Australia", StudyLevels: []string{LevelPostgraduate}, Fields: []string{"Data Science"}}

	assert.Zero(t, matchScore(sydneyOnly, Query{University: "Monash University", Country: "Australia"}))
	assert.Equal(t, 6, matchScore(sydneyOnly, Query{University: "The University of Sydney", Country: "Australia"}))

	assert.Zero(t, matchScore(national, Query{Country: "Canada"}))
	assert.Zero(t, matchScore(national, Query{Country: "Australia", Level: LevelUndergraduate}))
	assert.Equal(t, 2, matchScore(national, Query{Country: "australia"}))
	assert.Equal(t, 5, matchScore(national, Query{Country: "Australia", Level: LevelPostgraduate, Program: "Master of Data Science"}))
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "AUD 5,000", formatAmount(5000, "aud"))
	assert.Equal(t, "1,234,567.5", formatAmount(1234567.5, ""))
	assert.Equal(t, "USD 999", formatAmount(999, "USD"))
}
