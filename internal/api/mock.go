package api

import (
	"context"

	"github.com/nibblemarket/go-chatclient/internal/types"
	"github.com/stretchr/testify/mock"
)

type MockMarketClient struct {
	mock.Mock
}

func (m *MockMarketClient) CreateRoom(ctx context.Context, sellerId int) (types.Room, error) {
	args := m.Called(ctx, sellerId)
	return args.Get(0).(types.Room), args.Error(1)
}
func (m *MockMarketClient) ListRooms(ctx context.Context) ([]types.Room, error) {
	args := m.Called(ctx)
	return args.Get(0).([]types.Room), args.Error(1)
}
func (m *MockMarketClient) ListMessages(ctx context.Context, roomId int) ([]types.Message, error) {
	args := m.Called(ctx, roomId)
	return args.Get(0).([]types.Message), args.Error(1)
}
func (m *MockMarketClient) SendMessage(ctx context.Context, roomId int, content string) (types.Message, error) {
	args := m.Called(ctx, roomId, content)
	return args.Get(0).(types.Message), args.Error(1)
}
func (m *MockMarketClient) MarkRead(ctx context.Context, messageId int) error {
	args := m.Called(ctx, messageId)
	return args.Error(0)
}
func (m *MockMarketClient) Identity() (types.Identity, error) {
	args := m.Called()
	return args.Get(0).(types.Identity), args.Error(1)
}
func (m *MockMarketClient) HasToken() bool {
	args := m.Called()
	return args.Bool(0)
}
