package scholarship

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/darpanintel/darpan/core"
)

var ErrNotFound = errors.New("scholarship not found")

const matchLimit = 5

type (
	Repository interface {
		CreateScholarship(ctx context.Context, s Scholarship) (Scholarship, error)
		// QueryScholarships applies AND operation on the non-zero SearchFilter fields.
		// SearchFilter.Query does a case-insensitive match on title, provider, description or university.
		// SearchFilter.DeadlineAfter keeps rolling (no deadline) scholarships.
		QueryScholarships(ctx context.Context, filter SearchFilter, ordering []core.DBOrdering) ([]Scholarship, error)
		GetScholarship(ctx context.Context, id string) (Scholarship, error)
		UpdateScholarship(ctx context.Context, s Scholarship) (Scholarship, error)
		DeleteScholarshipsByID(ctx context.Context, ids []string) (int, error)
	}

	Service interface {
		Create(ctx context.Context, ns NewScholarship) (Scholarship, error)
		Seed(ctx context.Context, list []NewScholarship) (int, error)
		Search(ctx context.Context, filter SearchFilter, ordering []core.DBOrdering) ([]Scholarship, error)
		GetByID(ctx context.Context, id string) (Scholarship, error)
		Update(ctx context.Context, s Scholarship, ns NewScholarship) (Scholarship, error)
		Delete(ctx context.Context, ids ...string) error
		// MatchFor returns active catalog entries relevant to a study plan, best matches first.
		MatchFor(ctx context.Context, q Query) ([]Scholarship, error)
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

func (svc *service) Create(ctx context.Context, ns NewScholarship) (Scholarship, error) {
	now := time.Now().UTC()
	s := Scholarship{CreatedAt: now}
	apply(&s, ns, now)
	return svc.repo.CreateScholarship(ctx, s)
}

// Seed validates and creates every entry, stopping at the first invalid one.
func (svc *service) Seed(ctx context.Context, list []NewScholarship) (int, error) {
	for i := range list {
		if err := list[i].Validate(); err != nil {
			return 0, errors.Wrapf(err, "scholarship #%d (%s)", i+1, list[i].Title)
		}
	}
	var n int
	for _, ns := range list {
		if _, err := svc.Create(ctx, ns); err != nil {
			return n, errors.Wrapf(err, "creating scholarship %q", ns.Title)
		}
		n++
	}
	return n, nil
}

func (svc *service) Search(ctx context.Context, filter SearchFilter, ordering []core.DBOrdering) ([]Scholarship, error) {
	filter.Clean()
	return svc.repo.QueryScholarships(ctx, filter, core.CleanOrderings(ordering, OrderingFields))
}

func (svc *service) GetByID(ctx context.Context, id string) (Scholarship, error) {
	return svc.repo.GetScholarship(ctx, id)
}

func (svc *service) Update(ctx context.Context, s Scholarship, ns NewScholarship) (Scholarship, error) {
	apply(&s, ns, time.Now().UTC())
	return svc.repo.UpdateScholarship(ctx, s)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	if _, err := svc.repo.DeleteScholarshipsByID(ctx, ids); err != nil {
		return errors.Wrap(err, "deleting scholarships")
	}
	return nil
}

func (svc *service) MatchFor(ctx context.Context, q Query) ([]Scholarship, error) {
	if q.IsEmpty() {
		return nil, nil
	}
	active := true
	filter := SearchFilter{IsActive: &active, DeadlineAfter: time.Now().UTC()}
	if q.University == "" {
		filter.Country = q.Country
	}
	candidates, err := svc.repo.QueryScholarships(ctx, filter, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying scholarships")
	}

	type scored struct {
		s     Scholarship
		score int
	}
	matches := make([]scored, 0, len(candidates))
	for _, s := range candidates {
		if score := matchScore(s, q); score > 0 {
			matches = append(matches, scored{s, score})
		}
	}
	// stable insertion sort keeps repository order among equal scores
	for i := 1; i < len(matches); i++ {
		for j := i; j > 0 && matches[j].score > matches[j-1].score; j-- {
			matches[j], matches[j-1] = matches[j-1], matches[j]
		}
	}
	if len(matches) > matchLimit {
		matches = matches[:matchLimit]
	}

	out := make([]Scholarship, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.s)
	}
	return out, nil
}

// matchScore ranks a catalog entry for a study plan; 0 means irrelevant.
// A university specific scholarship only matches its own university.
func matchScore(s Scholarship, q Query) int {
	var score int
	if s.University != "" {
		if q.University == "" || !containsFold(q.University, s.University) && !containsFold(s.University, q.University) {
			return 0
		}
		score += 4
	}
	if q.Country != "" && strings.EqualFold(s.Country, q.Country) {
		score += 2
	} else if s.University == "" {
		return 0
	}
	if q.Level != "" && len(s.StudyLevels) > 0 {
		var ok bool
		for _, lvl := range s.StudyLevels {
			if strings.EqualFold(lvl, q.Level) {
				ok = true
				break
			}
		}
		if !ok {
			return 0
		}
		score++
	}
	if q.Program != "" {
		for _, fld := range s.Fields {
			if containsFold(q.Program, fld) {
				score += 2
				break
			}
		}
	}
	return score
}

func containsFold(s, substr string) bool {
	return substr != "" && strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func apply(s *Scholarship, ns NewScholarship, now time.Time) {
	s.Title = ns.Title
	s.Provider = ns.Provider
	s.Description = ns.Description
	s.Country = ns.Country
	s.University = ns.University
	s.StudyLevels = ns.StudyLevels
	s.Fields = ns.Fields
	s.Amount = ns.Amount
	s.Currency = strings.ToUpper(ns.Currency)
	s.Coverage = ns.Coverage
	s.Eligibility = ns.Eligibility
	s.Deadline = ns.Deadline.UTC()
	s.URL = ns.URL
	s.IsActive = ns.IsActive == nil || *ns.IsActive
	s.UpdatedAt = now
}

func formatAmount(amount float64, currency string) string {
	n := strconv.FormatFloat(amount, 'f', -1, 64)
	// thousands separators on the integer part
	intPart, frac := n, ""
	if i := strings.IndexByte(n, '.'); i >= 0 {
		intPart, frac = n[:i], n[i:]
	}
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if currency == "" {
		return b.String() + frac
	}
	return fmt.Sprintf("%s %s%s", strings.ToUpper(currency), b.String(), frac)
}
