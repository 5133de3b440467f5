package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/omriShneor/room_booking_agent/internal/booking"
)

// MockExtractor is a mock implementation of agent.Extractor
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, request string) (*booking.Extraction, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Extraction), args.Error(1)
}

func (m *MockExtractor) IsConfigured() bool {
	args := m.Called()
	return args.Bool(0)
}

// MockOptionChooser is a mock implementation of the dropdown option oracle
type MockOptionChooser struct {
	mock.Mock
}

func (m *MockOptionChooser) ChooseOption(ctx context.Context, field, value string, options []string) (string, bool, error) {
	args := m.Called(ctx, field, value, options)
	return args.String(0), args.Bool(1), args.Error(2)
}
