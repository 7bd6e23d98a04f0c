package pipeline

import (
	"context"

	"github.com/fyrsmithlabs/reposmith/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockRepositoryAccess is a mock implementation of RepositoryAccess
type MockRepositoryAccess struct {
	mock.Mock
}

func (m *MockRepositoryAccess) Clone(ctx context.Context, req CloneRequest) (CloneSet, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(CloneSet), args.Error(1)
}

func (m *MockRepositoryAccess) Cleanup(ctx context.Context, paths []string) error {
	args := m.Called(ctx, paths)
	return args.Error(0)
}

func (m *MockRepositoryAccess) Apply(ctx context.Context, req ApplyRequest) ([]domain.Improvement, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Improvement), args.Error(1)
}

// cleanupCalls returns the path lists handed to Cleanup, in call order.
func (m *MockRepositoryAccess) cleanupCalls() [][]string {
	var out [][]string
	for _, c := range m.Calls {
		if c.Method == "Cleanup" {
			out = append(out, c.Arguments.Get(1).([]string))
		}
	}
	return out
}

// MockSynthesizer is a mock implementation of KnowledgeSynthesizer
type MockSynthesizer struct {
	mock.Mock
}

func (m *MockSynthesizer) Synthesize(ctx context.Context, sourcePaths []string) (*domain.Knowledge, error) {
	args := m.Called(ctx, sourcePaths)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Knowledge), args.Error(1)
}

// MockGenerator is a mock implementation of ImprovementGenerator
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, req GenerateRequest) ([]domain.Improvement, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Improvement), args.Error(1)
}

// panickingGenerator panics on every call.
type panickingGenerator struct{}

func (panickingGenerator) Generate(context.Context, GenerateRequest) ([]domain.Improvement, error) {
	panic("generator exploded")
}
