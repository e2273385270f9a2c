package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/kashguard/go-htss-wallet/internal/api/httperrors"
	"github.com/kashguard/go-htss-wallet/internal/config"
	"github.com/kashguard/go-htss-wallet/internal/htss/keygen"
	"github.com/kashguard/go-htss-wallet/internal/htss/party"
	"github.com/kashguard/go-htss-wallet/internal/htss/protocol"
	"github.com/kashguard/go-htss-wallet/internal/htss/session"
	"github.com/kashguard/go-htss-wallet/internal/htss/signing"
	"github.com/kashguard/go-htss-wallet/internal/htss/verify"
)

// Router 路由分组
type Router struct {
	Routes     []*echo.Route
	Root       *echo.Group
	Management *echo.Group
	APIHTSS    *echo.Group
}

// Server is a central struct keeping all the dependencies.
// Components are initialized bottom-up in NewServer: engine first, then the
// epoch store, then the coordinators that consume both.
type Server struct {
	Echo   *echo.Echo
	Router *Router

	Config config.Server

	// HTSS services
	Registry   *party.Registry
	Engine     protocol.Engine
	EpochStore *session.Store
	Keygen     *keygen.Coordinator
	Signing    *signing.Coordinator
	Verify     *verify.Service
}

// NewServer 装配全部依赖
func NewServer(cfg config.Server) (*Server, error) {
	registry, err := cfg.HTSS.BuildRegistry()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build party registry")
	}

	engine := protocol.NewExecEngine(cfg.HTSS.EngineBinary, cfg.HTSS.WorkDir, cfg.HTSS.EngineTimeout)
	store := session.NewStore()

	return &Server{
		Config:     cfg,
		Registry:   registry,
		Engine:     engine,
		EpochStore: store,
		Keygen:     keygen.NewCoordinator(engine, store),
		Signing:    signing.NewCoordinator(engine, store, registry),
		Verify:     verify.NewService(engine),
	}, nil
}

// Policy 当前配置对应的阈值策略
func (s *Server) Policy() keygen.Policy {
	return keygen.Policy{
		Threshold:  s.Config.HTSS.Threshold,
		NumParties: s.Registry.Size(),
	}
}

// Start 启动 HTTP 服务
func (s *Server) Start() error {
	if s.Echo == nil {
		return errors.New("server is not initialized, call router.Init first")
	}
	log.Info().Str("listen_address", s.Config.Echo.ListenAddress).Msg("Starting server")
	return s.Echo.Start(s.Config.Echo.ListenAddress)
}

// Shutdown 优雅停机
func (s *Server) Shutdown(ctx context.Context) error {
	log.Warn().Msg("Shutting down server")
	return s.Echo.Shutdown(ctx)
}

// HTTPErrorHandler 统一错误响应
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var httpErr *httperrors.HTTPError
	if errors.As(err, &httpErr) {
		if jsonErr := c.JSON(httpErr.Code, httpErr); jsonErr != nil {
			log.Error().Err(jsonErr).Msg("Failed to write error response")
		}
		return
	}

	var echoErr *echo.HTTPError
	if errors.As(err, &echoErr) {
		if jsonErr := c.JSON(echoErr.Code, httperrors.NewHTTPError(echoErr.Code, "generic", http.StatusText(echoErr.Code))); jsonErr != nil {
			log.Error().Err(jsonErr).Msg("Failed to write error response")
		}
		return
	}

	log.Error().Err(err).Msg("Unhandled error")
	if jsonErr := c.JSON(http.StatusInternalServerError, httperrors.NewHTTPError(http.StatusInternalServerError, "generic", "Internal Server Error")); jsonErr != nil {
		log.Error().Err(jsonErr).Msg("Failed to write error response")
	}
}
