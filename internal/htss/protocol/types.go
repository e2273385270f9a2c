package protocol

// 引擎边界的类型化请求/响应。
// JSON 字段名与引擎 CLI 的输出保持一致（party_index, rank, hierarchical, payload）。
// 承诺、份额、nonce 的具体内容对协调器是不透明的，只按 Payload 原样转发。

// Round1Request 密钥生成第一轮请求（生成承诺）
type Round1Request struct {
	PartyID      string
	PartyIndex   int
	Rank         int
	Threshold    int
	NumParties   int
	Hierarchical bool
}

// Round1Output 第一轮输出：公开承诺，可广播
type Round1Output struct {
	PartyIndex   int    `json:"party_index"`
	Rank         int    `json:"rank"`
	Hierarchical bool   `json:"hierarchical"`
	Payload      string `json:"payload"`
	Type         string `json:"type,omitempty"`
}

// Round2Request 第二轮请求：需要全部参与方的第一轮输出
type Round2Request struct {
	PartyID    string
	PartyIndex int
	Round1Data []*Round1Output
}

// Round2Output 第二轮输出：秘密份额
type Round2Output struct {
	PartyIndex int    `json:"party_index"`
	Payload    string `json:"payload"`
	Type       string `json:"type,omitempty"`
}

// FinalizeRequest 最终化请求：需要全部参与方的第二轮输出
type FinalizeRequest struct {
	PartyID    string
	PartyIndex int
	Round2Data []*Round2Output
}

// FinalizeOutput 最终化输出：每个参与方独立推导出的公钥（压缩格式 hex）
type FinalizeOutput struct {
	PartyIndex int    `json:"party_index"`
	PublicKey  string `json:"public_key"`
}

// NonceRequest nonce 生成请求（SessionID 每次签名重新随机生成，防止 nonce 复用）
type NonceRequest struct {
	PartyID    string
	PartyIndex int
	SessionID  string
}

// NonceOutput nonce 输出
type NonceOutput struct {
	PartyIndex int    `json:"party_index"`
	Payload    string `json:"payload"`
	Type       string `json:"type,omitempty"`
}

// SignRequest 部分签名请求
type SignRequest struct {
	PartyID    string
	PartyIndex int
	SessionID  string
	Message    []byte
	NonceData  []*NonceOutput
}

// SignatureShare 部分签名
type SignatureShare struct {
	PartyIndex int    `json:"party_index"`
	Payload    string `json:"payload"`
	Type       string `json:"type,omitempty"`
}

// SignResult 部分签名结果。
// Rejected 是显式的层级校验失败标志：引擎在签名阶段检测到签名者集合
// 不满足层级访问结构时置位，此时 Share 为 nil。调用方绝不能通过扫描
// 文本输出来判断拒绝。
type SignResult struct {
	Share    *SignatureShare
	Rejected bool
	Reason   string
}

// CombineRequest 签名合并请求（任选一个签名者的上下文执行一次）
type CombineRequest struct {
	PartyID string
	Shares  []*SignatureShare
}

// CombineOutput 合并输出：最终签名（64 字节 hex）+ x-only 公钥（32 字节 hex）
type CombineOutput struct {
	Signature string
	PublicKey string
}

// VerifyRequest 验签请求
type VerifyRequest struct {
	Signature string
	PublicKey string
	Message   []byte
}
