package htss

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kashguard/go-htss-wallet/internal/api"
	"github.com/kashguard/go-htss-wallet/internal/types"
	"github.com/kashguard/go-htss-wallet/internal/util"
)

func GetStatusRoute(s *api.Server) *echo.Route {
	return s.Router.APIHTSS.GET("/status", getStatusHandler(s))
}

// getStatusHandler 查询 DKG 完成状态与当前公钥
func getStatusHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		epoch := s.EpochStore.Current()

		response := &types.GetStatusResponse{
			DKGDone:   epoch.Finalized(),
			Threshold: s.Config.HTSS.Threshold,
		}
		if epoch.Finalized() {
			response.PublicKey = epoch.PublicKey
			response.Epoch = epoch.Counter
		}

		for _, p := range s.Registry.Parties() {
			response.Parties = append(response.Parties, types.PartyInfo{
				ID:    p.ID,
				Index: p.Index,
				Rank:  p.Rank,
				Name:  p.Name,
			})
		}

		return util.ValidateAndReturn(c, http.StatusOK, response)
	}
}
