package htss

import (
	"net/http"

	"github.com/go-openapi/swag"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/kashguard/go-htss-wallet/internal/api"
	"github.com/kashguard/go-htss-wallet/internal/api/httperrors"
	"github.com/kashguard/go-htss-wallet/internal/htss/signing"
	"github.com/kashguard/go-htss-wallet/internal/types"
	"github.com/kashguard/go-htss-wallet/internal/util"
)

func PostSignRoute(s *api.Server) *echo.Route {
	return s.Router.APIHTSS.POST("/sign", postSignHandler(s))
}

// postSignHandler 发起签名会话。
// 层级拒绝返回 200 + htss_rejected（带哑签名），配置错误返回 4xx，
// 引擎故障返回 5xx。
func postSignHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		var body types.PostSignPayload
		if err := util.BindAndValidateBody(c, &body); err != nil {
			return err
		}
		if body.Message == nil {
			return httperrors.NewHTTPError(http.StatusBadRequest, types.PublicHTTPErrorTypeGeneric, "message is required")
		}
		if len(body.Signers) == 0 {
			return httperrors.NewHTTPError(http.StatusBadRequest, types.PublicHTTPErrorTypeGeneric, "signers is required")
		}

		result, err := s.Signing.Sign(ctx, body.Signers, []byte(*body.Message))
		if err != nil {
			switch {
			case errors.Is(err, signing.ErrDKGNotFinalized):
				return httperrors.NewHTTPError(http.StatusConflict, types.PublicHTTPErrorTypeGeneric, "Run DKG first")
			case errors.Is(err, signing.ErrSignerCount), errors.Is(err, signing.ErrDuplicateSigner):
				return httperrors.NewHTTPErrorWithDetail(http.StatusBadRequest, types.PublicHTTPErrorTypeGeneric, "Invalid signer set", err.Error())
			}
			log.Error().Err(err).Msg("Failed to sign")
			return httperrors.NewHTTPErrorWithDetail(http.StatusInternalServerError, types.PublicHTTPErrorTypeGeneric, "Failed to sign", err.Error())
		}

		signerNames := make([]string, 0, len(result.Signers))
		for _, p := range result.Signers {
			signerNames = append(signerNames, p.Name)
		}

		response := &types.PostSignResponse{
			Success:             true,
			Valid:               result.Status == signing.StatusCompleted,
			HTSSRejected:        result.Rejected(),
			SessionID:           swag.String(result.SessionID),
			Signers:             signerNames,
			Ranks:               result.Ranks,
			Checks:              result.Report.Checks,
			Message:             body.Message,
			Signature:           swag.String(result.Signature),
			PublicKey:           swag.String(result.PublicKey),
			PublicKeyCompressed: result.PublicKeyCompressed,
			Logs:                result.Log,
		}
		if result.Rejected() {
			response.Error = "HTSS validation failed - signature is invalid"
		}

		return util.ValidateAndReturn(c, http.StatusOK, response)
	}
}
