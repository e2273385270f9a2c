package party

import (
	"sort"

	"github.com/pkg/errors"
)

// ErrPartyNotFound 参与方不存在
var ErrPartyNotFound = errors.New("party not found")

// Registry 参与方注册表（进程生命周期内静态，无任何修改操作）
type Registry struct {
	parties []*Party
	byID    map[string]*Party
}

// NewRegistry 创建参与方注册表
// 构建时校验：ID 和 Index 必须唯一，Index 必须为正数，Rank 不能为负数。
func NewRegistry(parties []*Party) (*Registry, error) {
	if len(parties) == 0 {
		return nil, errors.New("registry requires at least one party")
	}

	byID := make(map[string]*Party, len(parties))
	byIndex := make(map[int]*Party, len(parties))
	ordered := make([]*Party, 0, len(parties))

	for _, p := range parties {
		if p.ID == "" {
			return nil, errors.New("party id is empty")
		}
		if p.Index <= 0 {
			return nil, errors.Errorf("party %s: index must be positive, got %d", p.ID, p.Index)
		}
		if p.Rank < 0 {
			return nil, errors.Errorf("party %s: rank must be non-negative, got %d", p.ID, p.Rank)
		}
		if _, ok := byID[p.ID]; ok {
			return nil, errors.Errorf("duplicate party id: %s", p.ID)
		}
		if prev, ok := byIndex[p.Index]; ok {
			return nil, errors.Errorf("duplicate party index %d (%s, %s)", p.Index, prev.ID, p.ID)
		}

		cp := *p
		byID[cp.ID] = &cp
		byIndex[cp.Index] = &cp
		ordered = append(ordered, &cp)
	}

	// 按 Index 排序，保证所有协调器遍历顺序一致
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Index < ordered[j].Index
	})

	return &Registry{
		parties: ordered,
		byID:    byID,
	}, nil
}

// Parties 返回按 Index 排序的全部参与方
func (r *Registry) Parties() []*Party {
	out := make([]*Party, len(r.parties))
	copy(out, r.parties)
	return out
}

// Lookup 按 ID 查找参与方
func (r *Registry) Lookup(id string) (*Party, error) {
	p, ok := r.byID[id]
	if !ok {
		return nil, errors.Wrapf(ErrPartyNotFound, "id=%s", id)
	}
	return p, nil
}

// Size 参与方数量
func (r *Registry) Size() int {
	return len(r.parties)
}
