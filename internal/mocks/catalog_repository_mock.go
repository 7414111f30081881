package mocks

import (
	"context"
	"sync"

	"github.com/orientamada/orientamada/internal/domain"
	"github.com/orientamada/orientamada/internal/ports"
	"github.com/orientamada/orientamada/internal/repository"
)

// MockCatalogRepository is an in-memory ports.CatalogRepository for testing.
// SetID writes the generated id into a stored entity.
type MockCatalogRepository[T any] struct {
	mu     sync.Mutex
	nextID int64
	SetID  func(entity *T, id int64)

	Items map[int64]T

	// Mock behavior flags
	ListError   error
	GetError    error
	CreateError error
	UpdateError error
	DeleteError error

	// Call tracking
	ListCalls   int
	GetCalls    int
	CreateCalls int
	UpdateCalls int
	DeleteCalls int
}

// NewMockCatalogRepository creates a new mock catalog repository
func NewMockCatalogRepository[T any](setID func(entity *T, id int64)) *MockCatalogRepository[T] {
	return &MockCatalogRepository[T]{
		SetID: setID,
		Items: make(map[int64]T),
	}
}

// List ignores filters and returns items in insertion order / Ignore les filtres
func (m *MockCatalogRepository[T]) List(ctx context.Context, q domain.ListQuery) ([]T, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListCalls++
	if m.ListError != nil {
		return nil, 0, m.ListError
	}

	items := make([]T, 0, len(m.Items))
	for id := int64(1); id <= m.nextID; id++ {
		if item, ok := m.Items[id]; ok {
			items = append(items, item)
		}
	}
	return items, len(items), nil
}

func (m *MockCatalogRepository[T]) GetByID(ctx context.Context, id int64) (*T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetCalls++
	if m.GetError != nil {
		return nil, m.GetError
	}

	item, ok := m.Items[id]
	if !ok {
		return nil, repository.ErrNoRecord
	}
	return &item, nil
}

func (m *MockCatalogRepository[T]) Create(ctx context.Context, entity *T) (*T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls++
	if m.CreateError != nil {
		return nil, m.CreateError
	}

	m.nextID++
	item := *entity
	if m.SetID != nil {
		m.SetID(&item, m.nextID)
	}
	m.Items[m.nextID] = item
	return &item, nil
}

func (m *MockCatalogRepository[T]) Update(ctx context.Context, id int64, entity *T) (*T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls++
	if m.UpdateError != nil {
		return nil, m.UpdateError
	}

	if _, ok := m.Items[id]; !ok {
		return nil, repository.ErrNoRecord
	}
	item := *entity
	if m.SetID != nil {
		m.SetID(&item, id)
	}
	m.Items[id] = item
	return &item, nil
}

func (m *MockCatalogRepository[T]) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCalls++
	if m.DeleteError != nil {
		return m.DeleteError
	}

	if _, ok := m.Items[id]; !ok {
		return repository.ErrNoRecord
	}
	delete(m.Items, id)
	return nil
}

// Calls returns the list and get call counts / Retourne les compteurs d'appels de lecture
func (m *MockCatalogRepository[T]) Calls() (list, get int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ListCalls, m.GetCalls
}

var _ ports.CatalogRepository[domain.Region] = (*MockCatalogRepository[domain.Region])(nil)
