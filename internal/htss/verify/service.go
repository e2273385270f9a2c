package verify

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/kashguard/go-htss-wallet/internal/htss/protocol"
)

// Service 验签服务。完全委托引擎的 verify 操作，本地不做任何密码学
// 运算。无状态、幂等：相同输入必然得到相同结论。
type Service struct {
	engine protocol.Engine
}

// NewService 创建验签服务
func NewService(engine protocol.Engine) *Service {
	return &Service{engine: engine}
}

// Result 验签结果
type Result struct {
	Valid      bool
	Signature  string
	PublicKey  string
	Message    string
	VerifiedAt string
}

// Verify 验证签名。签名与公钥必须是合法 hex，否则在调用引擎前拒绝。
func (s *Service) Verify(ctx context.Context, signature string, publicKey string, message []byte) (*Result, error) {
	if _, err := hex.DecodeString(signature); err != nil {
		return nil, errors.Wrap(err, "failed to decode signature hex")
	}
	if _, err := hex.DecodeString(publicKey); err != nil {
		return nil, errors.Wrap(err, "failed to decode public key hex")
	}

	valid, err := s.engine.Verify(ctx, &protocol.VerifyRequest{
		Signature: signature,
		PublicKey: publicKey,
		Message:   message,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to verify signature")
	}

	log.Debug().
		Bool("valid", valid).
		Int("signature_length", len(signature)/2).
		Int("public_key_length", len(publicKey)/2).
		Msg("Verify: engine verdict received")

	return &Result{
		Valid:      valid,
		Signature:  signature,
		PublicKey:  publicKey,
		Message:    string(message),
		VerifiedAt: time.Now().Format(time.RFC3339),
	}, nil
}
