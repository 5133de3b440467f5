package mocks

import (
	"context"

	"github.com/omriShneor/room_booking_agent/internal/notify"
	"github.com/stretchr/testify/mock"
)

// MockNotifier is a mock implementation of the notify.Notifier interface
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, report notify.Report, recipient string) error {
	args := m.Called(ctx, report, recipient)
	return args.Error(0)
}

func (m *MockNotifier) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockNotifier) IsConfigured() bool {
	args := m.Called()
	return args.Bool(0)
}
