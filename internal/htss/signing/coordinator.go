package signing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/kashguard/go-htss-wallet/internal/htss/hierarchy"
	"github.com/kashguard/go-htss-wallet/internal/htss/party"
	"github.com/kashguard/go-htss-wallet/internal/htss/protocol"
	"github.com/kashguard/go-htss-wallet/internal/htss/session"
)

// 拒绝场景下的哑签名/哑公钥：方案期望长度的全零字节串。
// 仅用于演示下游验证必然失败，绝不能被误当成真实密钥材料。
var (
	dummySignatureHex = strings.Repeat("00", 64)
	dummyPublicKeyHex = strings.Repeat("00", 32)
)

// Coordinator 驱动一次签名会话：nonce 生成 → 部分签名 → 合并。
// 层级校验报告在会话开始时生成，但不会短路 nonce 阶段——非法集合也会
// 走到签名阶段，由引擎在密码学层面检测并拒绝，贴合真实协议中拒绝只在
// 签名时可见的行为。
type Coordinator struct {
	engine   protocol.Engine
	store    *session.Store
	registry *party.Registry
}

// NewCoordinator 创建签名协调器
func NewCoordinator(engine protocol.Engine, store *session.Store, registry *party.Registry) *Coordinator {
	return &Coordinator{
		engine:   engine,
		store:    store,
		registry: registry,
	}
}

// resolveSigners 解析并校验签名者集合：必须恰好 threshold 个、互不重复、
// 全部在注册表内。违反属于配置错误，在任何引擎调用之前返回。
func (c *Coordinator) resolveSigners(signerIDs []string, threshold int) ([]*party.Party, error) {
	if len(signerIDs) != threshold {
		return nil, errors.Wrapf(ErrSignerCount, "need exactly %d signers, got %d", threshold, len(signerIDs))
	}

	seen := make(map[string]bool, len(signerIDs))
	signers := make([]*party.Party, 0, len(signerIDs))
	for _, id := range signerIDs {
		if seen[id] {
			return nil, errors.Wrapf(ErrDuplicateSigner, "id=%s", id)
		}
		seen[id] = true

		p, err := c.registry.Lookup(id)
		if err != nil {
			return nil, errors.Wrapf(err, "unknown signer %s", id)
		}
		signers = append(signers, p)
	}

	// 固定顺序（注册表 Index 序），保证部分签名阶段的发放顺序确定
	for i := 1; i < len(signers); i++ {
		for j := i; j > 0 && signers[j-1].Index > signers[j].Index; j-- {
			signers[j-1], signers[j] = signers[j], signers[j-1]
		}
	}

	return signers, nil
}

// Sign 执行一次签名会话。
// 前置条件：当前纪元已 Finalized，签名者恰好 threshold 个。
// 层级拒绝不是错误：返回 StatusRejected 的完整结果，error 为 nil。
func (c *Coordinator) Sign(ctx context.Context, signerIDs []string, message []byte) (*Result, error) {
	epoch := c.store.Current()
	if !epoch.Finalized() {
		return nil, ErrDKGNotFinalized
	}

	signers, err := c.resolveSigners(signerIDs, epoch.Threshold)
	if err != nil {
		return nil, err
	}

	sessionID := "sign-" + uuid.New().String()

	result := &Result{
		SessionID:           sessionID,
		Status:              StatusPending,
		Signers:             signers,
		Message:             message,
		PublicKeyCompressed: epoch.PublicKey,
		EpochCounter:        epoch.Counter,
	}

	// 层级校验只做一次，报告随会话不可变
	report := hierarchy.Validate(signers, epoch.Threshold)
	result.Report = report
	result.Ranks = report.Ranks

	names := make([]string, 0, len(signers))
	for _, p := range signers {
		names = append(names, p.Name)
	}
	result.appendLog("Signers: %v", names)
	result.appendLog("Ranks (sorted): %v", report.Ranks)
	if report.Valid {
		result.appendLog("HTSS Validation: VALID")
	} else {
		result.appendLog("HTSS Validation: INVALID - will fail at verification!")
	}
	for _, check := range report.Checks {
		if check.Pass {
			result.appendLog("  ✓ rank %d <= position %d", check.Rank, check.Position)
		} else {
			result.appendLog("  ✗ rank %d > position %d", check.Rank, check.Position)
		}
	}

	log.Info().
		Str("session_id", sessionID).
		Strs("signers", signerIDs).
		Ints("ranks", report.Ranks).
		Bool("hierarchy_valid", report.Valid).
		Msg("Sign: starting signing session")

	// nonce 阶段：对所有选中签名者执行，与校验结果无关
	result.Status = StatusSigning
	nonces, err := c.runNoncePhase(ctx, sessionID, signers, result)
	if err != nil {
		result.Status = StatusFailed
		return result, err
	}

	// 部分签名阶段：固定顺序逐个发放，引擎一旦报告层级拒绝立即停发
	shares, rejected, err := c.runSignPhase(ctx, sessionID, signers, message, nonces, result)
	if err != nil {
		result.Status = StatusFailed
		return result, err
	}
	if rejected {
		c.finishRejected(result)
		return result, nil
	}

	// 合并阶段：任选一个签名者的上下文执行一次
	combined, err := c.runCombinePhase(ctx, signers[0], shares, result)
	if err != nil {
		result.Status = StatusFailed
		return result, err
	}

	result.Status = StatusCompleted
	result.Signature = combined.Signature
	result.PublicKey = combined.PublicKey
	result.appendLog("Signature created successfully!")

	log.Info().
		Str("session_id", sessionID).
		Str("signature", shorten(combined.Signature)).
		Str("public_key", shorten(combined.PublicKey)).
		Msg("Sign: signing session completed")

	return result, nil
}

func (c *Coordinator) runNoncePhase(ctx context.Context, sessionID string, signers []*party.Party, result *Result) ([]*protocol.NonceOutput, error) {
	result.appendLog("=== Generating Nonces ===")
	start := time.Now()

	nonces := make([]*protocol.NonceOutput, len(signers))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range signers {
		g.Go(func() error {
			out, err := c.engine.GenerateNonce(gctx, &protocol.NonceRequest{
				PartyID:    p.ID,
				PartyIndex: p.Index,
				SessionID:  sessionID,
			})
			if err != nil {
				return errors.Wrapf(err, "nonce generation failed for party %s", p.ID)
			}
			nonces[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, p := range signers {
		result.appendLog("  %s: nonce generated", p.Name)
	}

	log.Debug().
		Str("session_id", sessionID).
		Int("nonces", len(nonces)).
		Dur("duration", time.Since(start)).
		Msg("Sign: nonce phase complete")

	return nonces, nil
}

// runSignPhase 逐个签名者发放部分签名。引擎报告层级拒绝时立即停止，
// 不再向后续签名者发放。返回 rejected=true 表示会话应转入 Rejected 终态。
func (c *Coordinator) runSignPhase(ctx context.Context, sessionID string, signers []*party.Party, message []byte, nonces []*protocol.NonceOutput, result *Result) ([]*protocol.SignatureShare, bool, error) {
	result.appendLog("=== Creating Signature Shares ===")

	shares := make([]*protocol.SignatureShare, 0, len(signers))
	for _, p := range signers {
		res, err := c.engine.Sign(ctx, &protocol.SignRequest{
			PartyID:    p.ID,
			PartyIndex: p.Index,
			SessionID:  sessionID,
			Message:    message,
			NonceData:  nonces,
		})
		if err != nil {
			return nil, false, errors.Wrapf(err, "signing failed for party %s", p.ID)
		}
		if res.Rejected {
			result.appendLog("  %s: HTSS validation failed!", p.Name)
			log.Warn().
				Str("session_id", sessionID).
				Str("party_id", p.ID).
				Str("reason", res.Reason).
				Msg("Sign: engine rejected the signer set, stopping share issuance")
			return nil, true, nil
		}
		if res.Share == nil {
			return nil, false, protocol.NewProtocolError(fmt.Sprintf(
				"party %s returned neither a share nor a rejection", p.ID))
		}
		shares = append(shares, res.Share)
		result.appendLog("  %s: signature share created", p.Name)
	}

	return shares, false, nil
}

// finishRejected 进入 Rejected 终态并装配哑签名，供下游验证演示
func (c *Coordinator) finishRejected(result *Result) {
	result.Status = StatusRejected
	result.Signature = dummySignatureHex
	result.PublicKey = dummyPublicKeyHex
	result.appendLog("=== HTSS REJECTED - Creating invalid signature for demo ===")
	result.appendLog("  Created dummy signature (will fail verification)")
	result.appendLog("Try verifying this signature - it will fail!")

	log.Info().
		Str("session_id", result.SessionID).
		Ints("ranks", result.Ranks).
		Msg("Sign: session rejected by hierarchy rule")
}

func (c *Coordinator) runCombinePhase(ctx context.Context, first *party.Party, shares []*protocol.SignatureShare, result *Result) (*protocol.CombineOutput, error) {
	result.appendLog("=== Combining Signature ===")

	out, err := c.engine.Combine(ctx, &protocol.CombineRequest{
		PartyID: first.ID,
		Shares:  shares,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to combine signature shares")
	}

	result.appendLog("  Final Signature: %s...", shorten(out.Signature))
	result.appendLog("  Public Key (x-only): %s...", shorten(out.PublicKey))
	return out, nil
}

func (r *Result) appendLog(format string, args ...interface{}) {
	r.Log = append(r.Log, fmt.Sprintf(format, args...))
}

func shorten(s string) string {
	if len(s) <= 32 {
		return s
	}
	return s[:32]
}
