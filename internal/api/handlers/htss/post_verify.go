package htss

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kashguard/go-htss-wallet/internal/api"
	"github.com/kashguard/go-htss-wallet/internal/api/httperrors"
	"github.com/kashguard/go-htss-wallet/internal/htss/protocol"
	"github.com/kashguard/go-htss-wallet/internal/types"
	"github.com/kashguard/go-htss-wallet/internal/util"
)

func PostVerifyRoute(s *api.Server) *echo.Route {
	return s.Router.APIHTSS.POST("/verify", postVerifyHandler(s))
}

// postVerifyHandler 验证任意 (签名, 公钥, 消息) 三元组，无状态
func postVerifyHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		var body types.PostVerifyPayload
		if err := util.BindAndValidateBody(c, &body); err != nil {
			return err
		}
		if body.Signature == nil || body.PublicKey == nil || body.Message == nil {
			return httperrors.NewHTTPError(http.StatusBadRequest, types.PublicHTTPErrorTypeGeneric, "signature, public_key and message are required")
		}

		result, err := s.Verify.Verify(ctx, *body.Signature, *body.PublicKey, []byte(*body.Message))
		if err != nil {
			log.Error().Err(err).Msg("Failed to verify")
			// 引擎层失败是服务端问题；非法 hex 这类输入错误才归咎于调用方
			if protocol.IsCommunicationError(err) || protocol.IsProtocolError(err) {
				return httperrors.NewHTTPErrorWithDetail(http.StatusInternalServerError, types.PublicHTTPErrorTypeGeneric, "Failed to verify", err.Error())
			}
			return httperrors.NewHTTPErrorWithDetail(http.StatusBadRequest, types.PublicHTTPErrorTypeGeneric, "Invalid verify request", err.Error())
		}

		response := &types.PostVerifyResponse{
			Success:    true,
			Valid:      result.Valid,
			Signature:  body.Signature,
			PublicKey:  body.PublicKey,
			Message:    body.Message,
			VerifiedAt: result.VerifiedAt,
		}

		return util.ValidateAndReturn(c, http.StatusOK, response)
	}
}
