package router

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/kashguard/go-htss-wallet/internal/api"
	"github.com/kashguard/go-htss-wallet/internal/api/handlers/htss"
)

// Init 初始化 echo 实例并挂载全部路由
func Init(s *api.Server) {
	s.Echo = echo.New()
	s.Echo.HideBanner = true
	s.Echo.HidePort = true
	s.Echo.HTTPErrorHandler = api.HTTPErrorHandler

	s.Echo.Use(middleware.Recover())
	s.Echo.Use(middleware.RequestID())
	s.Echo.Use(requestLogger())

	s.Router = &api.Router{
		Root:       s.Echo.Group(""),
		Management: s.Echo.Group("/-"),
		APIHTSS:    s.Echo.Group("/api"),
	}

	s.Router.Routes = []*echo.Route{
		htss.GetStatusRoute(s),
		htss.PostDKGRoute(s),
		htss.PostSignRoute(s),
		htss.PostVerifyRoute(s),
	}

	s.Router.Management.GET("/healthy", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})
	s.Router.Management.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// requestLogger 结构化访问日志
func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			log.Info().
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Int("status", c.Response().Status).
				Dur("duration", time.Since(start)).
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Msg("Request handled")

			return nil
		}
	}
}
