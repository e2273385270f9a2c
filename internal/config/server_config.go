package config

import (
	"time"

	"github.com/kashguard/go-htss-wallet/internal/htss/party"
	"github.com/kashguard/go-htss-wallet/internal/util"
)

// EchoServer HTTP 服务配置
type EchoServer struct {
	ListenAddress                  string
	HideInternalServerErrorDetails bool
}

// PartyConfig 参与方配置项
type PartyConfig struct {
	ID    string `json:"id"`
	Index int    `json:"index"`
	Rank  int    `json:"rank"`
	Name  string `json:"name"`
}

// HTSS 协议配置
type HTSS struct {
	Threshold     int
	Parties       []PartyConfig
	EngineBinary  string
	EngineTimeout time.Duration
	WorkDir       string
}

// Server 服务配置
type Server struct {
	Echo EchoServer
	HTSS HTSS
}

// defaultParties 演示用参与方表：五方，rank 分布 [0,1,1,2,2]
func defaultParties() []PartyConfig {
	return []PartyConfig{
		{ID: "ceo", Index: 1, Rank: 0, Name: "CEO"},
		{ID: "cfo", Index: 2, Rank: 1, Name: "CFO"},
		{ID: "coo", Index: 3, Rank: 1, Name: "COO"},
		{ID: "director", Index: 4, Rank: 2, Name: "Director"},
		{ID: "manager", Index: 5, Rank: 2, Name: "Manager"},
	}
}

// DefaultServiceConfigFromEnv 从环境变量装配配置，未设置的项使用默认值
func DefaultServiceConfigFromEnv() Server {
	parties := defaultParties()
	util.GetEnvAsJSON("HTSS_PARTIES", &parties)

	return Server{
		Echo: EchoServer{
			ListenAddress:                  util.GetEnv("SERVER_ECHO_LISTEN_ADDRESS", ":8888"),
			HideInternalServerErrorDetails: util.GetEnvAsInt("SERVER_ECHO_HIDE_INTERNAL_SERVER_ERROR_DETAILS", 1) == 1,
		},
		HTSS: HTSS{
			Threshold:     util.GetEnvAsInt("HTSS_THRESHOLD", 3),
			Parties:       parties,
			EngineBinary:  util.GetEnv("HTSS_ENGINE_BINARY", "yushan"),
			EngineTimeout: util.GetEnvAsDuration("HTSS_ENGINE_TIMEOUT", 30*time.Second),
			WorkDir:       util.GetEnv("HTSS_WORK_DIR", "/tmp/htss_interactive"),
		},
	}
}

// BuildRegistry 由配置构建参与方注册表
func (h HTSS) BuildRegistry() (*party.Registry, error) {
	parties := make([]*party.Party, 0, len(h.Parties))
	for _, pc := range h.Parties {
		parties = append(parties, &party.Party{
			ID:    pc.ID,
			Index: pc.Index,
			Rank:  pc.Rank,
			Name:  pc.Name,
		})
	}
	return party.NewRegistry(parties)
}
