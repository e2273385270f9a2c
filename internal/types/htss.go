package types

import "github.com/kashguard/go-htss-wallet/internal/htss/hierarchy"

// PublicHTTPErrorTypeGeneric 通用错误类型标识
const PublicHTTPErrorTypeGeneric = "generic"

// PartyInfo 参与方信息（状态接口返回）
type PartyInfo struct {
	ID    string `json:"id"`
	Index int    `json:"index"`
	Rank  int    `json:"rank"`
	Name  string `json:"name"`
}

// GetStatusResponse DKG 状态查询响应
type GetStatusResponse struct {
	DKGDone   bool        `json:"dkg_done"`
	PublicKey string      `json:"public_key"`
	Epoch     uint64      `json:"epoch"`
	Parties   []PartyInfo `json:"parties"`
	Threshold int         `json:"threshold"`
}

// PostDKGResponse DKG 执行响应
type PostDKGResponse struct {
	Success   bool     `json:"success"`
	PublicKey *string  `json:"public_key"`
	Epoch     uint64   `json:"epoch"`
	Logs      []string `json:"logs,omitempty"`
}

// PostSignPayload 签名请求
type PostSignPayload struct {
	Signers []string `json:"signers"`
	Message *string  `json:"message"`
}

// PostSignResponse 签名响应。
// 两种公钥编码都返回：public_key 是合并阶段的 x-only 格式，
// public_key_compressed 是 DKG 纪元的压缩格式。
type PostSignResponse struct {
	Success             bool              `json:"success"`
	Valid               bool              `json:"valid"`
	HTSSRejected        bool              `json:"htss_rejected,omitempty"`
	SessionID           *string           `json:"session_id"`
	Signers             []string          `json:"signers"`
	Ranks               []int             `json:"ranks"`
	Checks              []hierarchy.Check `json:"checks"`
	Message             *string           `json:"message"`
	Signature           *string           `json:"signature"`
	PublicKey           *string           `json:"public_key"`
	PublicKeyCompressed string            `json:"public_key_compressed"`
	Error               string            `json:"error,omitempty"`
	Logs                []string          `json:"logs,omitempty"`
}

// PostVerifyPayload 验签请求
type PostVerifyPayload struct {
	Signature *string `json:"signature"`
	PublicKey *string `json:"public_key"`
	Message   *string `json:"message"`
}

// PostVerifyResponse 验签响应
type PostVerifyResponse struct {
	Success    bool    `json:"success"`
	Valid      bool    `json:"valid"`
	Signature  *string `json:"signature"`
	PublicKey  *string `json:"public_key"`
	Message    *string `json:"message"`
	VerifiedAt string  `json:"verified_at"`
}
