package keygen

import (
	"github.com/pkg/errors"

	"github.com/kashguard/go-htss-wallet/internal/htss/session"
)

// Policy 阈值策略。一个 DKG 纪元生命周期内固定，修改阈值必须执行新的 DKG。
type Policy struct {
	Threshold  int
	NumParties int
}

// Validate 校验 1 <= t <= n 且 n 与注册表规模一致
func (p Policy) Validate(registrySize int) error {
	if p.Threshold < 1 {
		return errors.Errorf("threshold must be at least 1, got %d", p.Threshold)
	}
	if p.Threshold > p.NumParties {
		return errors.Errorf("threshold %d exceeds party count %d", p.Threshold, p.NumParties)
	}
	if p.NumParties != registrySize {
		return errors.Errorf("policy party count %d does not match registry size %d", p.NumParties, registrySize)
	}
	return nil
}

// Result DKG 结果。Log 逐阶段记录各参与方的进展，供调用方展示审计轨迹。
type Result struct {
	PublicKey string
	Epoch     *session.Epoch
	Log       []string
}
