// Package catalog é a camada de persistência do gateway: papers, usuários e
// a biblioteca pessoal de cada usuário.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrPaperNotFound       = errors.New("paper not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrLibraryItemNotFound = errors.New("library item not found")
	ErrInvalidQuery        = errors.New("invalid search query")
)

const (
	SortRelevance = "relevance"
	SortCitations = "citations"
	SortDate      = "date"

	DefaultPageSize = 20
	MaxPageSize     = 100
)

type SearchQuery struct {
	Q          string
	Author     string
	YearFrom   int
	YearTo     int
	Keywords   []string
	OpenAccess *bool
	Page       int
	Limit      int
	SortBy     string
}

// Normalize aplica os defaults e valida paginação/ordenação.
func (q SearchQuery) Normalize() (SearchQuery, error) {
	q.Q = strings.TrimSpace(q.Q)
	q.Author = strings.TrimSpace(q.Author)
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Limit == 0 {
		q.Limit = DefaultPageSize
	}
	if q.SortBy == "" {
		q.SortBy = SortRelevance
	}

	if q.Page < 1 {
		return q, fmt.Errorf("%w: page must be >= 1", ErrInvalidQuery)
	}
	if q.Limit < 1 || q.Limit > MaxPageSize {
		return q, fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidQuery, MaxPageSize)
	}
	switch q.SortBy {
	case SortRelevance, SortCitations, SortDate:
	default:
		return q, fmt.Errorf("%w: sort_by must be relevance, citations or date", ErrInvalidQuery)
	}
	if q.YearFrom != 0 && q.YearTo != 0 && q.YearFrom > q.YearTo {
		return q, fmt.Errorf("%w: year_from is after year_to", ErrInvalidQuery)
	}

	kws := make([]string, 0, len(q.Keywords))
	for _, k := range q.Keywords {
		if k = strings.TrimSpace(k); k != "" {
			kws = append(kws, k)
		}
	}
	sort.Strings(kws)
	q.Keywords = kws
	return q, nil
}

type searchKey struct {
	Q          string   `json:"q"`
	Author     string   `json:"author,omitempty"`
	YearFrom   int      `json:"year_from,omitempty"`
	YearTo     int      `json:"year_to,omitempty"`
	Keywords   []string `json:"keywords,omitempty"`
	OpenAccess *bool    `json:"open_access,omitempty"`
	Page       int      `json:"page"`
	Limit      int      `json:"limit"`
	SortBy     string   `json:"sort_by"`
}

// CacheKey monta a chave de cache da busca a partir da query normalizada.
// Duas queries equivalentes (keywords em qualquer ordem) geram a mesma chave;
// o JSON garante que valores com ":" ou "," não colidam com outros filtros.
func (q SearchQuery) CacheKey() string {
	b, _ := json.Marshal(searchKey{
		Q:          q.Q,
		Author:     q.Author,
		YearFrom:   q.YearFrom,
		YearTo:     q.YearTo,
		Keywords:   q.Keywords,
		OpenAccess: q.OpenAccess,
		Page:       q.Page,
		Limit:      q.Limit,
		SortBy:     q.SortBy,
	})
	return "search:" + string(b)
}

type SearchResult struct {
	Papers []Paper
	Total  int64
}

type Counts struct {
	Papers       int64 `json:"papers"`
	Users        int64 `json:"users"`
	LibraryItems int64 `json:"library_items"`
}

type Repository interface {
	SearchPapers(ctx context.Context, q SearchQuery) (SearchResult, error)
	GetPaper(ctx context.Context, id string) (*Paper, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ListLibrary(ctx context.Context, userID uint) ([]LibraryItem, error)
	SaveToLibrary(ctx context.Context, userID uint, paperID string, tags []string, notes string) (*LibraryItem, error)
	RemoveFromLibrary(ctx context.Context, userID uint, paperID string) error
	Counts(ctx context.Context) (Counts, error)
	Ping(ctx context.Context) error
}
