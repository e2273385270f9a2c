package signing_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kashguard/go-htss-wallet/internal/htss/protocol"
	"github.com/kashguard/go-htss-wallet/internal/htss/session"
	"github.com/kashguard/go-htss-wallet/internal/htss/signing"
	"github.com/kashguard/go-htss-wallet/internal/test"
)

const (
	testEpochKey  = "02a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6e7f8a9b0c1d2e3f4a5b6c7d8e9f0a1b2"
	testXOnlyKey  = "a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6e7f8a9b0c1d2e3f4a5b6c7d8e9f0a1b2"
	testSignature = "3f" + "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff00112233445566778899aabbccddee"
)

func finalizedStore() *session.Store {
	store := session.NewStore()
	store.Replace(&session.Epoch{
		Phase:      session.PhaseFinalized,
		Threshold:  3,
		NumParties: 5,
		PublicKey:  testEpochKey,
	})
	return store
}

func matchNonce(index int) interface{} {
	return mock.MatchedBy(func(req *protocol.NonceRequest) bool {
		return req.PartyIndex == index
	})
}

func matchSign(index int) interface{} {
	return mock.MatchedBy(func(req *protocol.SignRequest) bool {
		return req.PartyIndex == index
	})
}

func expectNonces(engine *test.MockEngine, indices ...int) {
	for _, idx := range indices {
		engine.On("GenerateNonce", mock.Anything, matchNonce(idx)).Return(&protocol.NonceOutput{
			PartyIndex: idx,
			Payload:    fmt.Sprintf("nonce-%d", idx),
		}, nil)
	}
}

func TestSignValidHierarchyReachesCombine(t *testing.T) {
	ctx := context.Background()
	registry := test.DemoRegistry(t)
	engine := new(test.MockEngine)
	store := finalizedStore()

	// ceo/cfo/coo: rank [0,1,1]，层级合法
	expectNonces(engine, 1, 2, 3)
	for _, idx := range []int{1, 2, 3} {
		engine.On("Sign", mock.Anything, matchSign(idx)).Return(&protocol.SignResult{
			Share: &protocol.SignatureShare{PartyIndex: idx, Payload: fmt.Sprintf("share-%d", idx)},
		}, nil)
	}
	engine.On("Combine", mock.Anything, mock.MatchedBy(func(req *protocol.CombineRequest) bool {
		return len(req.Shares) == 3 && req.PartyID == "ceo"
	})).Return(&protocol.CombineOutput{
		Signature: testSignature,
		PublicKey: testXOnlyKey,
	}, nil)

	coordinator := signing.NewCoordinator(engine, store, registry)
	result, err := coordinator.Sign(ctx, []string{"ceo", "cfo", "coo"}, []byte("Hello HTSS"))
	require.NoError(t, err)

	assert.Equal(t, signing.StatusCompleted, result.Status)
	assert.True(t, result.Report.Valid)
	assert.Equal(t, []int{0, 1, 1}, result.Ranks)
	assert.Equal(t, testSignature, result.Signature)
	// 两种公钥编码都要保留
	assert.Equal(t, testXOnlyKey, result.PublicKey)
	assert.Equal(t, testEpochKey, result.PublicKeyCompressed)
	assert.NotEmpty(t, result.Log)

	engine.AssertNumberOfCalls(t, "Combine", 1)
}

// rank [1,1,2]：报告判为非法，但 nonce 阶段照常执行，拒绝由引擎在签名
// 阶段报告，之后立即停发后续签名者的部分签名
func TestSignInvalidHierarchyRejected(t *testing.T) {
	ctx := context.Background()
	registry := test.DemoRegistry(t)
	engine := new(test.MockEngine)
	store := finalizedStore()

	// cfo/coo/director: rank [1,1,2]
	expectNonces(engine, 2, 3, 4)
	engine.On("Sign", mock.Anything, matchSign(2)).Return(&protocol.SignResult{
		Rejected: true,
		Reason:   "Invalid HTSS signer set",
	}, nil)

	coordinator := signing.NewCoordinator(engine, store, registry)
	result, err := coordinator.Sign(ctx, []string{"cfo", "coo", "director"}, []byte("Hello HTSS"))
	require.NoError(t, err, "hierarchical rejection is a normal outcome, not an error")

	assert.Equal(t, signing.StatusRejected, result.Status)
	assert.True(t, result.Rejected())
	assert.False(t, result.Report.Valid)
	assert.Equal(t, []int{1, 1, 2}, result.Ranks)

	// 哑签名：方案期望长度的全零字节串
	assert.Equal(t, strings.Repeat("00", 64), result.Signature)
	assert.Equal(t, strings.Repeat("00", 32), result.PublicKey)
	// 纪元公钥依然随结果返回
	assert.Equal(t, testEpochKey, result.PublicKeyCompressed)

	// nonce 阶段未被短路
	engine.AssertNumberOfCalls(t, "GenerateNonce", 3)
	// 第一个签名者被拒后立即停发
	engine.AssertNumberOfCalls(t, "Sign", 1)
	engine.AssertNotCalled(t, "Combine", mock.Anything, mock.Anything)
}

func TestSignConfigErrorsBeforeEngineCalls(t *testing.T) {
	ctx := context.Background()
	registry := test.DemoRegistry(t)
	engine := new(test.MockEngine)
	store := finalizedStore()
	coordinator := signing.NewCoordinator(engine, store, registry)

	t.Run("too few signers", func(t *testing.T) {
		_, err := coordinator.Sign(ctx, []string{"ceo", "cfo"}, []byte("msg"))
		assert.ErrorIs(t, err, signing.ErrSignerCount)
	})

	t.Run("too many signers", func(t *testing.T) {
		_, err := coordinator.Sign(ctx, []string{"ceo", "cfo", "coo", "director"}, []byte("msg"))
		assert.ErrorIs(t, err, signing.ErrSignerCount)
	})

	t.Run("duplicate signer", func(t *testing.T) {
		_, err := coordinator.Sign(ctx, []string{"ceo", "cfo", "cfo"}, []byte("msg"))
		assert.ErrorIs(t, err, signing.ErrDuplicateSigner)
	})

	t.Run("unregistered signer", func(t *testing.T) {
		_, err := coordinator.Sign(ctx, []string{"ceo", "cfo", "intern"}, []byte("msg"))
		assert.Error(t, err)
	})

	// 配置错误在任何引擎调用之前返回
	engine.AssertNotCalled(t, "GenerateNonce", mock.Anything, mock.Anything)
	engine.AssertNotCalled(t, "Sign", mock.Anything, mock.Anything)
}

func TestSignRequiresFinalizedEpoch(t *testing.T) {
	ctx := context.Background()
	registry := test.DemoRegistry(t)
	engine := new(test.MockEngine)

	t.Run("no epoch", func(t *testing.T) {
		coordinator := signing.NewCoordinator(engine, session.NewStore(), registry)
		_, err := coordinator.Sign(ctx, []string{"ceo", "cfo", "coo"}, []byte("msg"))
		assert.ErrorIs(t, err, signing.ErrDKGNotFinalized)
	})

	t.Run("epoch discarded by DKG rerun", func(t *testing.T) {
		store := finalizedStore()
		store.Discard()
		coordinator := signing.NewCoordinator(engine, store, registry)
		_, err := coordinator.Sign(ctx, []string{"ceo", "cfo", "coo"}, []byte("msg"))
		assert.ErrorIs(t, err, signing.ErrDKGNotFinalized)
	})
}

// 纪元被替换后，旧结果通过纪元计数识别为过期
func TestSignResultCarriesEpochCounter(t *testing.T) {
	ctx := context.Background()
	registry := test.DemoRegistry(t)
	engine := new(test.MockEngine)
	store := finalizedStore()

	expectNonces(engine, 1, 2, 3)
	for _, idx := range []int{1, 2, 3} {
		engine.On("Sign", mock.Anything, matchSign(idx)).Return(&protocol.SignResult{
			Share: &protocol.SignatureShare{PartyIndex: idx, Payload: "s"},
		}, nil)
	}
	engine.On("Combine", mock.Anything, mock.Anything).Return(&protocol.CombineOutput{
		Signature: testSignature,
		PublicKey: testXOnlyKey,
	}, nil)

	coordinator := signing.NewCoordinator(engine, store, registry)
	result, err := coordinator.Sign(ctx, []string{"ceo", "cfo", "coo"}, []byte("msg"))
	require.NoError(t, err)

	before := result.EpochCounter
	after := store.Replace(&session.Epoch{
		Phase: session.PhaseFinalized, Threshold: 3, NumParties: 5, PublicKey: "02ff",
	})
	assert.Less(t, before, after)
	assert.NotEqual(t, store.Current().PublicKey, result.PublicKeyCompressed)
}

func TestSignEngineFailureIsFatal(t *testing.T) {
	ctx := context.Background()
	registry := test.DemoRegistry(t)
	engine := new(test.MockEngine)
	store := finalizedStore()

	engine.On("GenerateNonce", mock.Anything, mock.Anything).Return(nil,
		protocol.NewCommunicationError("ceo", assert.AnError))

	coordinator := signing.NewCoordinator(engine, store, registry)
	result, err := coordinator.Sign(ctx, []string{"ceo", "cfo", "coo"}, []byte("msg"))
	require.Error(t, err)
	assert.True(t, protocol.IsCommunicationError(err))
	// 引擎故障与层级拒绝严格区分
	require.NotNil(t, result)
	assert.Equal(t, signing.StatusFailed, result.Status)
	assert.False(t, result.Rejected())
}

// 部分签名按注册表 Index 固定顺序发放
func TestSignIssuesSharesInFixedOrder(t *testing.T) {
	ctx := context.Background()
	registry := test.DemoRegistry(t)
	engine := new(test.MockEngine)
	store := finalizedStore()

	expectNonces(engine, 1, 2, 3)
	for _, idx := range []int{1, 2, 3} {
		engine.On("Sign", mock.Anything, matchSign(idx)).Return(&protocol.SignResult{
			Share: &protocol.SignatureShare{PartyIndex: idx, Payload: "s"},
		}, nil)
	}
	engine.On("Combine", mock.Anything, mock.Anything).Return(&protocol.CombineOutput{
		Signature: testSignature,
		PublicKey: testXOnlyKey,
	}, nil)

	coordinator := signing.NewCoordinator(engine, store, registry)
	// 乱序传入，发放顺序仍按 Index
	_, err := coordinator.Sign(ctx, []string{"coo", "ceo", "cfo"}, []byte("msg"))
	require.NoError(t, err)

	var signOrder []int
	for _, call := range engine.Calls {
		if call.Method == "Sign" {
			signOrder = append(signOrder, call.Arguments.Get(1).(*protocol.SignRequest).PartyIndex)
		}
	}
	assert.Equal(t, []int{1, 2, 3}, signOrder)
}
