// Package hierarchy implements the rank-ordering access structure of the
// hierarchical threshold scheme.
//
// A signer subset of size t with ranks r_0 <= r_1 <= ... <= r_{t-1} (sorted
// ascending) is valid iff r_i <= i for every position i. The k-th slot can
// only be covered by a signer of rank at most k, so a quorum made entirely of
// low-authority parties is rejected even when the raw count threshold is met.
package hierarchy

import (
	"sort"

	"github.com/kashguard/go-htss-wallet/internal/htss/party"
)

// Check 单个位置的校验结果
type Check struct {
	Position int  `json:"pos"`
	Rank     int  `json:"rank"`
	Pass     bool `json:"pass"`
}

// Report 层级校验报告（不可变，附加在签名会话上用于审计）
type Report struct {
	Ranks  []int   `json:"ranks"`
	Checks []Check `json:"checks"`
	Valid  bool    `json:"valid"`
}

// Validate 校验签名者集合是否满足层级访问结构。
// 纯函数：只依赖入参的 rank 集合与阈值，不读写任何会话或纪元状态。
// 相同 rank 允许出现，完全按数值规则比较。
func Validate(signers []*party.Party, threshold int) *Report {
	ranks := make([]int, 0, len(signers))
	for _, p := range signers {
		ranks = append(ranks, p.Rank)
	}
	return ValidateRanks(ranks, threshold)
}

// ValidateRanks 对 rank 多重集直接校验
func ValidateRanks(ranks []int, threshold int) *Report {
	sorted := make([]int, len(ranks))
	copy(sorted, ranks)
	sort.Ints(sorted)

	report := &Report{
		Ranks:  sorted,
		Checks: make([]Check, 0, len(sorted)),
		Valid:  len(sorted) == threshold,
	}

	for i, r := range sorted {
		pass := r <= i
		report.Checks = append(report.Checks, Check{
			Position: i,
			Rank:     r,
			Pass:     pass,
		})
		if !pass {
			report.Valid = false
		}
	}

	return report
}
