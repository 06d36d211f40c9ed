package testing

import (
	"context"
	"sync"

	"github.com/siteledger/capital/internal/modules/ledger"
)

// MockDataSource is an in-memory dataset source for service and handler tests
type MockDataSource struct {
	mu      sync.RWMutex
	dataset *ledger.Dataset
	diag    ledger.Diagnostics
	err     error
	calls   int
}

// NewMockDataSource creates a mock serving the given dataset
func NewMockDataSource(ds *ledger.Dataset) *MockDataSource {
	if ds == nil {
		ds = &ledger.Dataset{}
	}
	return &MockDataSource{dataset: ds}
}

// SetDataset replaces the dataset to return
func (m *MockDataSource) SetDataset(ds *ledger.Dataset) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dataset = ds
}

// SetDiagnostics sets the ingest diagnostics to return alongside the dataset
func (m *MockDataSource) SetDiagnostics(diag ledger.Diagnostics) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.diag = diag
}

// SetError sets the error to return
func (m *MockDataSource) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times LoadDataset was called
func (m *MockDataSource) Calls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

// LoadDataset returns the configured dataset or error
func (m *MockDataSource) LoadDataset(ctx context.Context) (*ledger.Dataset, ledger.Diagnostics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, ledger.Diagnostics{}, m.err
	}
	return m.dataset, m.diag, nil
}
