package scholarship

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/darpanintel/darpan/core"
)

const researchSystemPrompt = `You are a scholarship research assistant for international students.
List real, currently offered scholarships that match the study plan you are given.
Only include scholarships you are confident exist. Do not fabricate names, amounts, deadlines or URLs;
leave a field empty when you do not know it. If you know of none, return an empty list.
Respond with a JSON object of the form:
{"scholarships": [{"name": "", "provider": "", "amount": "", "eligibility": "", "deadline": "", "url": ""}]}`

const maxResearched = 8

// Researcher finds scholarships for a study plan from the catalog and the language model.
type Researcher interface {
	Research(ctx context.Context, q Query) []Suggestion
}

type researcher struct {
	svc     Service
	llm     core.LLMService
	timeout time.Duration
	logger  core.Logger
}

var _ Researcher = (*researcher)(nil)

func NewResearcher(svc Service, llm core.LLMService, timeout time.Duration, logger core.Logger) Researcher {
	return &researcher{svc: svc, llm: llm, timeout: timeout, logger: logger}
}

// Research merges catalog matches with model research. It never fails:
// the model call is bounded by the research timeout and any error yields no researched entries.
func (r *researcher) Research(ctx context.Context, q Query) []Suggestion {
	if q.IsEmpty() {
		return []Suggestion{}
	}

	var catalog []Suggestion
	if matches, err := r.svc.MatchFor(ctx, q); err != nil {
		r.logger.Error("scholarship catalog lookup failed", err)
	} else {
		for _, s := range matches {
			catalog = append(catalog, s.Suggestion())
		}
	}
	return Merge(catalog, r.research(ctx, q))
}

type researchResult struct {
	list []Suggestion
	err  error
}

func (r *researcher) research(ctx context.Context, q Query) []Suggestion {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	// buffered: the call may finish after we stopped waiting
	done := make(chan researchResult, 1)
	go func() {
		resp, err := r.llm.Complete(ctx, core.ChatRequest{
			System: researchSystemPrompt,
			User:   researchPrompt(q),
			JSON:   true,
		})
		if err != nil {
			done <- researchResult{err: err}
			return
		}
		list, err := ParseSuggestions(resp)
		done <- researchResult{list: list, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			r.logger.Warn("scholarship research failed", errors.Wrap(res.err, "researching scholarships"))
			return []Suggestion{}
		}
		return res.list
	case <-ctx.Done():
		r.logger.Warn("scholarship research timed out", map[string]interface{}{"timeout": r.timeout.String()})
		return []Suggestion{}
	}
}

func researchPrompt(q Query) string {
	var b strings.Builder
	b.WriteString("Find scholarships for the following study plan.\n")
	if q.University != "" {
		fmt.Fprintf(&b, "University: %s\n", q.University)
	}
	if q.Program != "" {
		fmt.Fprintf(&b, "Program: %s\n", q.Program)
	}
	if q.Country != "" {
		fmt.Fprintf(&b, "Country: %s\n", q.Country)
	}
	if q.Level != "" {
		fmt.Fprintf(&b, "Study level: %s\n", q.Level)
	}
	return b.String()
}

// ParseSuggestions reads the research model answer. Entries without a name are dropped.
func ParseSuggestions(raw string) ([]Suggestion, error) {
	obj, err := core.ParseJSONObject(raw)
	if err != nil {
		return nil, errors.Wrap(err, "parsing research response")
	}
	items := core.AsMapSlice(core.Field(obj, "scholarships", "results", "data"))
	list := make([]Suggestion, 0, len(items))
	for _, item := range items {
		name := core.AsString(core.Field(item, "name", "title"), "")
		if name == "" {
			continue
		}
		list = append(list, Suggestion{
			Name:        name,
			Provider:    core.AsString(core.Field(item, "provider", "organization"), ""),
			Amount:      core.AsString(core.Field(item, "amount", "value"), ""),
			Eligibility: core.AsString(core.Field(item, "eligibility", "criteria"), ""),
			Deadline:    core.AsString(item["deadline"], ""),
			URL:         core.AsString(core.Field(item, "url", "link"), ""),
			Source:      SourceResearch,
		})
		if len(list) == maxResearched {
			break
		}
	}
	return list, nil
}

// Merge concatenates suggestion lists, dropping later entries whose name was already seen.
func Merge(lists ...[]Suggestion) []Suggestion {
	seen := make(map[string]bool)
	out := make([]Suggestion, 0)
	for _, list := range lists {
		for _, s := range list {
			key := strings.ToLower(strings.TrimSpace(s.Name))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, s)
		}
	}
	return out
}
