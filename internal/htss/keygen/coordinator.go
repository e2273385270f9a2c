package keygen

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/kashguard/go-htss-wallet/internal/htss/party"
	"github.com/kashguard/go-htss-wallet/internal/htss/protocol"
	"github.com/kashguard/go-htss-wallet/internal/htss/session"
)

// Coordinator 驱动两轮 DKG + 最终化。
// 同一轮内各参与方的引擎调用相互独立，并发执行；轮与轮之间是完整屏障：
// 任何参与方的下一轮输入都是全体参与方上一轮输出的完整集合，所以必须
// 收齐后才能推进。
type Coordinator struct {
	engine protocol.Engine
	store  *session.Store

	// 同一时刻只允许一个 DKG 在跑，它独占并重置共享工作区
	mu sync.Mutex
}

// NewCoordinator 创建 DKG 协调器
func NewCoordinator(engine protocol.Engine, store *session.Store) *Coordinator {
	return &Coordinator{
		engine: engine,
		store:  store,
	}
}

// RunDKG 执行完整 DKG：round1（承诺）→ round2（份额）→ finalize（公钥）。
// 成功时把 Finalized 纪元原子安装进 Store；任何阶段失败都丢弃半成品，
// 旧纪元在启动时已被清场，不会有可用的残留密钥。
func (c *Coordinator) RunDKG(ctx context.Context, registry *party.Registry, policy Policy) (*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := policy.Validate(registry.Size()); err != nil {
		return nil, errors.Wrap(err, "invalid threshold policy")
	}

	parties := registry.Parties()

	log.Info().
		Int("threshold", policy.Threshold).
		Int("n_parties", policy.NumParties).
		Msg("RunDKG: starting DKG, discarding previous epoch")

	// 清场：旧纪元与全部参与方工作状态一并删除，不可逆
	c.store.Discard()
	if err := c.engine.Reset(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to reset engine working state")
	}

	epoch := &session.Epoch{
		Phase:      session.PhaseNotStarted,
		Threshold:  policy.Threshold,
		NumParties: policy.NumParties,
	}

	auditLog := []string{"=== ROUND 1: Generate Commitments ==="}

	// Round 1：各方独立生成承诺
	round1, err := c.runRound1(ctx, parties, policy)
	if err != nil {
		return nil, err
	}
	epoch.Round1 = round1
	epoch.Phase = session.PhaseRound1Complete
	for _, p := range parties {
		auditLog = append(auditLog, fmt.Sprintf("  %s: commitments generated (rank %d)", p.Name, p.Rank))
	}

	// Round 2：每一方都需要全体承诺来推导自己的份额
	auditLog = append(auditLog, "=== ROUND 2: Exchange Secret Shares ===")
	round2, err := c.runRound2(ctx, parties, round1)
	if err != nil {
		return nil, err
	}
	epoch.Round2 = round2
	epoch.Phase = session.PhaseRound2Complete
	for _, p := range parties {
		auditLog = append(auditLog, fmt.Sprintf("  %s: secret shares computed", p.Name))
	}

	// Finalize：各方独立推导出同一把公钥
	auditLog = append(auditLog, "=== FINALIZE: Compute Final Keys ===")
	publicKey, err := c.runFinalize(ctx, parties, round2)
	if err != nil {
		return nil, err
	}
	epoch.PublicKey = publicKey
	epoch.Phase = session.PhaseFinalized
	for _, p := range parties {
		auditLog = append(auditLog, fmt.Sprintf("  %s: finalized", p.Name))
	}
	auditLog = append(auditLog, "", fmt.Sprintf("Public Key: %s", publicKey), "DKG Complete!")

	counter := c.store.Replace(epoch)

	log.Info().
		Uint64("epoch", counter).
		Str("public_key", publicKey).
		Msg("RunDKG: DKG complete")

	return &Result{
		PublicKey: publicKey,
		Epoch:     epoch,
		Log:       auditLog,
	}, nil
}

func (c *Coordinator) runRound1(ctx context.Context, parties []*party.Party, policy Policy) ([]*protocol.Round1Output, error) {
	start := time.Now()
	outputs := make([]*protocol.Round1Output, len(parties))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range parties {
		g.Go(func() error {
			out, err := c.engine.KeygenRound1(gctx, &protocol.Round1Request{
				PartyID:      p.ID,
				PartyIndex:   p.Index,
				Rank:         p.Rank,
				Threshold:    policy.Threshold,
				NumParties:   policy.NumParties,
				Hierarchical: true,
			})
			if err != nil {
				return errors.Wrapf(err, "round 1 failed for party %s", p.ID)
			}
			if out.PartyIndex != p.Index {
				return protocol.NewProtocolError(fmt.Sprintf(
					"round 1 output for party %s reports index %d, expected %d", p.ID, out.PartyIndex, p.Index))
			}
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	c.store.ObserveRoundDuration("round1", time.Since(start))
	log.Info().
		Int("outputs", len(outputs)).
		Dur("duration", time.Since(start)).
		Msg("RunDKG: round 1 commitments collected")

	return outputs, nil
}

func (c *Coordinator) runRound2(ctx context.Context, parties []*party.Party, round1 []*protocol.Round1Output) ([]*protocol.Round2Output, error) {
	start := time.Now()
	outputs := make([]*protocol.Round2Output, len(parties))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range parties {
		g.Go(func() error {
			out, err := c.engine.KeygenRound2(gctx, &protocol.Round2Request{
				PartyID:    p.ID,
				PartyIndex: p.Index,
				Round1Data: round1,
			})
			if err != nil {
				return errors.Wrapf(err, "round 2 failed for party %s", p.ID)
			}
			if out.PartyIndex != p.Index {
				return protocol.NewProtocolError(fmt.Sprintf(
					"round 2 output for party %s reports index %d, expected %d", p.ID, out.PartyIndex, p.Index))
			}
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	c.store.ObserveRoundDuration("round2", time.Since(start))
	log.Info().
		Int("outputs", len(outputs)).
		Dur("duration", time.Since(start)).
		Msg("RunDKG: round 2 shares collected")

	return outputs, nil
}

// runFinalize 收集各方推导的公钥并交叉比对。
// 公钥分歧说明协议执行出错，必须显式上报，绝不能静默接受其中一把。
func (c *Coordinator) runFinalize(ctx context.Context, parties []*party.Party, round2 []*protocol.Round2Output) (string, error) {
	start := time.Now()
	outputs := make([]*protocol.FinalizeOutput, len(parties))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range parties {
		g.Go(func() error {
			out, err := c.engine.KeygenFinalize(gctx, &protocol.FinalizeRequest{
				PartyID:    p.ID,
				PartyIndex: p.Index,
				Round2Data: round2,
			})
			if err != nil {
				return errors.Wrapf(err, "finalize failed for party %s", p.ID)
			}
			if out.PublicKey == "" {
				return protocol.NewProtocolError(fmt.Sprintf(
					"party %s reported an empty public key after finalize", p.ID))
			}
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	publicKey := outputs[0].PublicKey
	for i, out := range outputs {
		if out.PublicKey != publicKey {
			return "", protocol.NewProtocolError(fmt.Sprintf(
				"divergent public keys after finalize: party %s reported %s, party %s reported %s",
				parties[0].ID, publicKey, parties[i].ID, out.PublicKey))
		}
	}

	c.store.ObserveRoundDuration("finalize", time.Since(start))
	log.Info().
		Str("public_key", publicKey).
		Dur("duration", time.Since(start)).
		Msg("RunDKG: finalize complete, all parties agree on the public key")

	return publicKey, nil
}
