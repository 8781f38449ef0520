package catalog

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	StrategySimilarity = "similarity"
	StrategyCitation   = "citation"
	StrategyHybrid     = "hybrid"

	DefaultRecommendations = 5
	MaxRecommendations     = 20
)

var (
	Strategies         = []string{StrategySimilarity, StrategyCitation, StrategyHybrid}
	ErrUnknownStrategy = errors.New("unknown recommendation strategy")
)

type Recommendation struct {
	PaperID string  `json:"paper_id"`
	Title   string  `json:"title"`
	Score   float64 `json:"similarity_score"`
	Reason  string  `json:"reason"`
}

// Recommend sugere até limit papers relacionados a id. O score é a
// sobreposição (Jaccard) de keywords com o paper de origem.
func Recommend(ctx context.Context, repo Repository, id, strategy string, limit int) ([]Recommendation, error) {
	if limit < 1 || limit > MaxRecommendations {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidQuery, MaxRecommendations)
	}
	switch strategy {
	case StrategySimilarity, StrategyCitation, StrategyHybrid:
	default:
		return nil, fmt.Errorf("%w %q, available: %s", ErrUnknownStrategy, strategy, strings.Join(Strategies, ", "))
	}

	paper, err := repo.GetPaper(ctx, id)
	if err != nil {
		return nil, err
	}

	var recs []Recommendation
	if strategy != StrategyCitation {
		similar, err := bySharedKeywords(ctx, repo, paper, limit)
		if err != nil {
			return nil, err
		}
		recs = append(recs, similar...)
	}
	if strategy != StrategySimilarity {
		sameYear, err := bySameYear(ctx, repo, paper, limit)
		if err != nil {
			return nil, err
		}
		recs = append(recs, sameYear...)
	}
	return dedupe(recs, limit), nil
}

func bySharedKeywords(ctx context.Context, repo Repository, paper *Paper, limit int) ([]Recommendation, error) {
	kws := paper.Keywords
	if len(kws) == 0 {
		return nil, nil
	}
	if len(kws) > 2 {
		kws = kws[:2]
	}
	reason := "Similar keywords: " + strings.Join(kws, ", ")
	return related(ctx, repo, paper, SearchQuery{Keywords: kws, SortBy: SortCitations, Limit: limit + 1}, reason)
}

func bySameYear(ctx context.Context, repo Repository, paper *Paper, limit int) ([]Recommendation, error) {
	if paper.Year == 0 {
		return nil, nil
	}
	reason := fmt.Sprintf("Published in %d", paper.Year)
	return related(ctx, repo, paper, SearchQuery{YearFrom: paper.Year, YearTo: paper.Year, SortBy: SortCitations, Limit: limit + 1}, reason)
}

func related(ctx context.Context, repo Repository, paper *Paper, q SearchQuery, reason string) ([]Recommendation, error) {
	res, err := repo.SearchPapers(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("related papers: %w", err)
	}
	out := make([]Recommendation, 0, len(res.Papers))
	for _, p := range res.Papers {
		if p.ID == paper.ID {
			continue
		}
		out = append(out, Recommendation{
			PaperID: p.ID,
			Title:   p.Title,
			Score:   keywordOverlap(paper.Keywords, p.Keywords),
			Reason:  reason,
		})
	}
	return out, nil
}

func dedupe(recs []Recommendation, limit int) []Recommendation {
	seen := make(map[string]struct{}, len(recs))
	out := make([]Recommendation, 0, min(len(recs), limit))
	for _, r := range recs {
		if _, ok := seen[r.PaperID]; ok {
			continue
		}
		seen[r.PaperID] = struct{}{}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out
}

// keywordOverlap é |a∩b| / |a∪b| sem diferenciar maiúsculas, com 2 casas.
func keywordOverlap(a, b []string) float64 {
	set := make(map[string]bool, len(a))
	for _, k := range a {
		set[strings.ToLower(k)] = true
	}
	inter, union := 0, len(set)
	seen := make(map[string]bool, len(b))
	for _, k := range b {
		k = strings.ToLower(k)
		if seen[k] {
			continue
		}
		seen[k] = true
		if set[k] {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return math.Round(float64(inter)/float64(union)*100) / 100
}
