package signing

import (
	"github.com/pkg/errors"

	"github.com/kashguard/go-htss-wallet/internal/htss/hierarchy"
	"github.com/kashguard/go-htss-wallet/internal/htss/party"
)

// Status 签名会话状态
type Status string

const (
	StatusPending   Status = "pending"
	StatusSigning   Status = "signing"
	StatusCompleted Status = "completed"
	// StatusRejected 层级校验失败的终态。这是正常的、预期内的非致命结果：
	// 会话仍然产出结构完整的（哑）签名供下游验证演示，而不是抛错。
	StatusRejected Status = "rejected"
	StatusFailed   Status = "failed"
)

// 配置类错误：在任何引擎调用之前拒绝请求，与层级拒绝严格区分
var (
	// ErrDKGNotFinalized 当前没有已完成的 DKG 纪元
	ErrDKGNotFinalized = errors.New("DKG has not been finalized")
	// ErrSignerCount 选中的签名者数量不等于阈值
	ErrSignerCount = errors.New("signer count does not match threshold")
	// ErrDuplicateSigner 签名者重复
	ErrDuplicateSigner = errors.New("duplicate signer")
)

// Result 签名会话结果。
// 无论成功、拒绝还是失败，都携带足够的结构化细节（rank、逐位置校验、
// 分阶段日志）来解释结果成因，不允许静默失败。
type Result struct {
	SessionID string
	Status    Status

	Signers []*party.Party
	Ranks   []int
	Report  *hierarchy.Report
	Message []byte

	// Signature 最终签名 hex。拒绝时为 64 字节全零哑签名，必然无法通过验证。
	Signature string
	// PublicKey 合并阶段产出的 x-only 公钥 hex；拒绝时为 32 字节全零。
	PublicKey string
	// PublicKeyCompressed 纪元的压缩格式公钥，两种编码都保留
	PublicKeyCompressed string

	// EpochCounter 产出本结果的纪元计数，用于识别陈旧结果
	EpochCounter uint64

	// Log 分阶段审计日志
	Log []string
}

// Rejected 会话是否终止于层级拒绝
func (r *Result) Rejected() bool {
	return r.Status == StatusRejected
}
