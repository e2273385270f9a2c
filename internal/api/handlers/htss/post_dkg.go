package htss

import (
	"net/http"

	"github.com/go-openapi/swag"
	"github.com/labstack/echo/v4"

	"github.com/kashguard/go-htss-wallet/internal/api"
	"github.com/kashguard/go-htss-wallet/internal/api/httperrors"
	"github.com/kashguard/go-htss-wallet/internal/types"
	"github.com/kashguard/go-htss-wallet/internal/util"
)

func PostDKGRoute(s *api.Server) *echo.Route {
	return s.Router.APIHTSS.POST("/dkg", postDKGHandler(s))
}

// postDKGHandler 触发一次完整 DKG。重复触发会整体替换旧纪元。
func postDKGHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		result, err := s.Keygen.RunDKG(ctx, s.Registry, s.Policy())
		if err != nil {
			log.Error().Err(err).Msg("Failed to run DKG")
			return httperrors.NewHTTPErrorWithDetail(http.StatusInternalServerError, types.PublicHTTPErrorTypeGeneric, "DKG failed", err.Error())
		}

		response := &types.PostDKGResponse{
			Success:   true,
			PublicKey: swag.String(result.PublicKey),
			Epoch:     result.Epoch.Counter,
			Logs:      result.Log,
		}

		return util.ValidateAndReturn(c, http.StatusOK, response)
	}
}
