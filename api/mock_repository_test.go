package api

import (
	"context"

	"github.com/stretchr/testify/mock"

	"paperly-gateway/catalog"
)

type mockRepository struct {
	mock.Mock
}

var _ catalog.Repository = &mockRepository{}

func (m *mockRepository) SearchPapers(ctx context.Context, q catalog.SearchQuery) (catalog.SearchResult, error) {
	args := m.Called(ctx, q)
	return args.Get(0).(catalog.SearchResult), args.Error(1)
}

func (m *mockRepository) GetPaper(ctx context.Context, id string) (*catalog.Paper, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*catalog.Paper)
	return p, args.Error(1)
}

func (m *mockRepository) GetUserByEmail(ctx context.Context, email string) (*catalog.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*catalog.User)
	return u, args.Error(1)
}

func (m *mockRepository) ListLibrary(ctx context.Context, userID uint) ([]catalog.LibraryItem, error) {
	args := m.Called(ctx, userID)
	items, _ := args.Get(0).([]catalog.LibraryItem)
	return items, args.Error(1)
}

func (m *mockRepository) SaveToLibrary(ctx context.Context, userID uint, paperID string, tags []string, notes string) (*catalog.LibraryItem, error) {
	args := m.Called(ctx, userID, paperID, tags, notes)
	item, _ := args.Get(0).(*catalog.LibraryItem)
	return item, args.Error(1)
}

func (m *mockRepository) RemoveFromLibrary(ctx context.Context, userID uint, paperID string) error {
	return m.Called(ctx, userID, paperID).Error(0)
}

func (m *mockRepository) Counts(ctx context.Context) (catalog.Counts, error) {
	args := m.Called(ctx)
	return args.Get(0).(catalog.Counts), args.Error(1)
}

func (m *mockRepository) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
