package keygen_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kashguard/go-htss-wallet/internal/htss/keygen"
	"github.com/kashguard/go-htss-wallet/internal/htss/party"
	"github.com/kashguard/go-htss-wallet/internal/htss/protocol"
	"github.com/kashguard/go-htss-wallet/internal/htss/session"
	"github.com/kashguard/go-htss-wallet/internal/test"
)

const testPublicKey = "02a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6e7f8a9b0c1d2e3f4a5b6c7d8e9f0a1b2"

func matchRound1(index int) interface{} {
	return mock.MatchedBy(func(req *protocol.Round1Request) bool {
		return req.PartyIndex == index
	})
}

func matchRound2(index int) interface{} {
	return mock.MatchedBy(func(req *protocol.Round2Request) bool {
		return req.PartyIndex == index
	})
}

func matchFinalize(index int) interface{} {
	return mock.MatchedBy(func(req *protocol.FinalizeRequest) bool {
		return req.PartyIndex == index
	})
}

// expectHappyDKG 给全部参与方布置一次成功 DKG 的引擎行为
func expectHappyDKG(engine *test.MockEngine, parties []*party.Party) {
	engine.On("Reset", mock.Anything).Return(nil)
	for _, p := range parties {
		engine.On("KeygenRound1", mock.Anything, matchRound1(p.Index)).Return(&protocol.Round1Output{
			PartyIndex:   p.Index,
			Rank:         p.Rank,
			Hierarchical: true,
			Payload:      fmt.Sprintf("commitment-%d", p.Index),
		}, nil)
		engine.On("KeygenRound2", mock.Anything, matchRound2(p.Index)).Return(&protocol.Round2Output{
			PartyIndex: p.Index,
			Payload:    fmt.Sprintf("shares-%d", p.Index),
		}, nil)
		engine.On("KeygenFinalize", mock.Anything, matchFinalize(p.Index)).Return(&protocol.FinalizeOutput{
			PartyIndex: p.Index,
			PublicKey:  testPublicKey,
		}, nil)
	}
}

func TestRunDKGSuccess(t *testing.T) {
	ctx := context.Background()
	registry := test.DemoRegistry(t)
	engine := new(test.MockEngine)
	store := session.NewStore()

	expectHappyDKG(engine, registry.Parties())

	coordinator := keygen.NewCoordinator(engine, store)
	result, err := coordinator.RunDKG(ctx, registry, keygen.Policy{Threshold: 3, NumParties: 5})
	require.NoError(t, err)

	assert.Equal(t, testPublicKey, result.PublicKey)
	assert.Equal(t, session.PhaseFinalized, result.Epoch.Phase)
	assert.Len(t, result.Epoch.Round1, 5)
	assert.Len(t, result.Epoch.Round2, 5)

	// 纪元已安装，公钥可读
	pk, err := store.PublicKey()
	require.NoError(t, err)
	assert.Equal(t, testPublicKey, pk)

	engine.AssertNumberOfCalls(t, "KeygenRound1", 5)
	engine.AssertNumberOfCalls(t, "KeygenRound2", 5)
	engine.AssertNumberOfCalls(t, "KeygenFinalize", 5)

	// 审计轨迹逐阶段记录各方进展，供调用方展示
	require.NotEmpty(t, result.Log)
	assert.Equal(t, "=== ROUND 1: Generate Commitments ===", result.Log[0])
	assert.Contains(t, result.Log, "=== ROUND 2: Exchange Secret Shares ===")
	assert.Contains(t, result.Log, "=== FINALIZE: Compute Final Keys ===")
	assert.Contains(t, result.Log, "  CEO: commitments generated (rank 0)")
	assert.Contains(t, result.Log, "  Manager: secret shares computed")
	assert.Contains(t, result.Log, fmt.Sprintf("Public Key: %s", testPublicKey))
	assert.Equal(t, "DKG Complete!", result.Log[len(result.Log)-1])
}

// 屏障语义：每一方的第二轮输入必须是全体参与方第一轮输出的完整集合
func TestRunDKGRound2ReceivesAllCommitments(t *testing.T) {
	ctx := context.Background()
	registry := test.DemoRegistry(t)
	engine := new(test.MockEngine)
	store := session.NewStore()

	expectHappyDKG(engine, registry.Parties())

	coordinator := keygen.NewCoordinator(engine, store)
	_, err := coordinator.RunDKG(ctx, registry, keygen.Policy{Threshold: 3, NumParties: 5})
	require.NoError(t, err)

	for _, call := range engine.Calls {
		switch call.Method {
		case "KeygenRound2":
			req := call.Arguments.Get(1).(*protocol.Round2Request)
			assert.Len(t, req.Round1Data, 5)
		case "KeygenFinalize":
			req := call.Arguments.Get(1).(*protocol.FinalizeRequest)
			assert.Len(t, req.Round2Data, 5)
		}
	}
}

// 强制公钥分歧：必须报引擎协议错误，绝不能静默采纳其中一把
func TestRunDKGDivergentPublicKeys(t *testing.T) {
	ctx := context.Background()
	registry := test.DemoRegistry(t)
	engine := new(test.MockEngine)
	store := session.NewStore()

	engine.On("Reset", mock.Anything).Return(nil)
	for _, p := range registry.Parties() {
		engine.On("KeygenRound1", mock.Anything, matchRound1(p.Index)).Return(&protocol.Round1Output{
			PartyIndex: p.Index, Rank: p.Rank, Hierarchical: true, Payload: "c",
		}, nil)
		engine.On("KeygenRound2", mock.Anything, matchRound2(p.Index)).Return(&protocol.Round2Output{
			PartyIndex: p.Index, Payload: "s",
		}, nil)
		engine.On("KeygenFinalize", mock.Anything, matchFinalize(p.Index)).Return(&protocol.FinalizeOutput{
			PartyIndex: p.Index,
			PublicKey:  fmt.Sprintf("02deadbeef%02d", p.Index),
		}, nil)
	}

	coordinator := keygen.NewCoordinator(engine, store)
	_, err := coordinator.RunDKG(ctx, registry, keygen.Policy{Threshold: 3, NumParties: 5})
	require.Error(t, err)
	assert.True(t, protocol.IsProtocolError(err), "expected protocol error, got %v", err)

	// 半成品纪元不得安装
	assert.Nil(t, store.Current())
}

func TestRunDKGRoundFailureDiscardsEpoch(t *testing.T) {
	ctx := context.Background()
	registry := test.DemoRegistry(t)
	engine := new(test.MockEngine)
	store := session.NewStore()

	// 先装一个成功纪元，验证失败的重跑会清掉它
	expectHappyDKG(engine, registry.Parties())
	coordinator := keygen.NewCoordinator(engine, store)
	_, err := coordinator.RunDKG(ctx, registry, keygen.Policy{Threshold: 3, NumParties: 5})
	require.NoError(t, err)
	require.NotNil(t, store.Current())

	failing := new(test.MockEngine)
	failing.On("Reset", mock.Anything).Return(nil)
	for _, p := range registry.Parties() {
		failing.On("KeygenRound1", mock.Anything, matchRound1(p.Index)).Return(&protocol.Round1Output{
			PartyIndex: p.Index, Rank: p.Rank, Hierarchical: true, Payload: "c",
		}, nil)
		failing.On("KeygenRound2", mock.Anything, matchRound2(p.Index)).Return(nil,
			protocol.NewCommunicationError(p.ID, assert.AnError))
	}

	retry := keygen.NewCoordinator(failing, store)
	_, err = retry.RunDKG(ctx, registry, keygen.Policy{Threshold: 3, NumParties: 5})
	require.Error(t, err)
	assert.True(t, protocol.IsCommunicationError(err))

	// 清场语义：旧纪元在启动时已被丢弃，失败后不会留下可用密钥
	assert.Nil(t, store.Current())
	_, err = store.PublicKey()
	assert.ErrorIs(t, err, session.ErrNotFinalized)
}

func TestRunDKGWrongPartyIndex(t *testing.T) {
	ctx := context.Background()
	registry := test.DemoRegistry(t)
	engine := new(test.MockEngine)
	store := session.NewStore()

	engine.On("Reset", mock.Anything).Return(nil)
	for _, p := range registry.Parties() {
		// 引擎把谁的输出都说成 1 号
		engine.On("KeygenRound1", mock.Anything, matchRound1(p.Index)).Return(&protocol.Round1Output{
			PartyIndex: 1, Rank: p.Rank, Hierarchical: true, Payload: "c",
		}, nil)
	}

	coordinator := keygen.NewCoordinator(engine, store)
	_, err := coordinator.RunDKG(ctx, registry, keygen.Policy{Threshold: 3, NumParties: 5})
	require.Error(t, err)
	assert.True(t, protocol.IsProtocolError(err))
}

func TestPolicyValidate(t *testing.T) {
	tests := []struct {
		name   string
		policy keygen.Policy
		size   int
		ok     bool
	}{
		{"valid", keygen.Policy{Threshold: 3, NumParties: 5}, 5, true},
		{"threshold equals n", keygen.Policy{Threshold: 5, NumParties: 5}, 5, true},
		{"zero threshold", keygen.Policy{Threshold: 0, NumParties: 5}, 5, false},
		{"threshold above n", keygen.Policy{Threshold: 6, NumParties: 5}, 5, false},
		{"registry mismatch", keygen.Policy{Threshold: 3, NumParties: 5}, 4, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate(tt.size)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
