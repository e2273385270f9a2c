package session

import (
	"time"

	"github.com/kashguard/go-htss-wallet/internal/htss/protocol"
)

// Phase DKG 纪元阶段，只能严格前进，不会回退
type Phase int

const (
	PhaseNotStarted Phase = iota
	PhaseRound1Complete
	PhaseRound2Complete
	PhaseFinalized
)

func (p Phase) String() string {
	switch p {
	case PhaseRound1Complete:
		return "round1_complete"
	case PhaseRound2Complete:
		return "round2_complete"
	case PhaseFinalized:
		return "finalized"
	default:
		return "not_started"
	}
}

// Epoch 一个 DKG 纪元。
// 同一时刻最多存在一个已安装的纪元；新的 DKG 完整替换旧纪元。
// PublicKey 仅在 Phase == PhaseFinalized 时有定义。
type Epoch struct {
	Counter    uint64
	Phase      Phase
	Threshold  int
	NumParties int
	Round1     []*protocol.Round1Output
	Round2     []*protocol.Round2Output
	PublicKey  string // 压缩格式 hex，finalize 后所有参与方一致
	CreatedAt  time.Time
}

// Finalized 纪元是否已完成
func (e *Epoch) Finalized() bool {
	return e != nil && e.Phase == PhaseFinalized
}
