package test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kashguard/go-htss-wallet/internal/htss/party"
)

// DemoParties 演示配置：五方，rank 分布 [0,1,1,2,2]，阈值 3
func DemoParties() []*party.Party {
	return []*party.Party{
		{ID: "ceo", Index: 1, Rank: 0, Name: "CEO"},
		{ID: "cfo", Index: 2, Rank: 1, Name: "CFO"},
		{ID: "coo", Index: 3, Rank: 1, Name: "COO"},
		{ID: "director", Index: 4, Rank: 2, Name: "Director"},
		{ID: "manager", Index: 5, Rank: 2, Name: "Manager"},
	}
}

// DemoRegistry 构建演示注册表
func DemoRegistry(t *testing.T) *party.Registry {
	t.Helper()
	registry, err := party.NewRegistry(DemoParties())
	require.NoError(t, err)
	return registry
}
