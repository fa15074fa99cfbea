package stats

import "github.com/stretchr/testify/mock"

type MockStats struct {
	mock.Mock
}

func (m *MockStats) Incr(name string) {
	m.Called(name)
}

func (m *MockStats) RegisterMetric(name string) {
	m.Called(name)
}
