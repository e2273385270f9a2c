package test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/kashguard/go-htss-wallet/internal/htss/protocol"
)

// MockEngine 模拟密码学引擎
type MockEngine struct {
	mock.Mock
}

var _ protocol.Engine = (*MockEngine)(nil)

func (m *MockEngine) KeygenRound1(ctx context.Context, req *protocol.Round1Request) (*protocol.Round1Output, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*protocol.Round1Output), args.Error(1)
}

func (m *MockEngine) KeygenRound2(ctx context.Context, req *protocol.Round2Request) (*protocol.Round2Output, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*protocol.Round2Output), args.Error(1)
}

func (m *MockEngine) KeygenFinalize(ctx context.Context, req *protocol.FinalizeRequest) (*protocol.FinalizeOutput, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*protocol.FinalizeOutput), args.Error(1)
}

func (m *MockEngine) GenerateNonce(ctx context.Context, req *protocol.NonceRequest) (*protocol.NonceOutput, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*protocol.NonceOutput), args.Error(1)
}

func (m *MockEngine) Sign(ctx context.Context, req *protocol.SignRequest) (*protocol.SignResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*protocol.SignResult), args.Error(1)
}

func (m *MockEngine) Combine(ctx context.Context, req *protocol.CombineRequest) (*protocol.CombineOutput, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*protocol.CombineOutput), args.Error(1)
}

func (m *MockEngine) Verify(ctx context.Context, req *protocol.VerifyRequest) (bool, error) {
	args := m.Called(ctx, req)
	return args.Bool(0), args.Error(1)
}

func (m *MockEngine) Reset(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
