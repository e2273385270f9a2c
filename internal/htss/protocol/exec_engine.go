package protocol

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// 引擎在签名阶段检测到非法签名者集合时输出的显式错误行。
// 只匹配完整的错误消息，不匹配正常输出中可能出现的相关词汇。
const rejectionMarker = "Invalid HTSS signer set"

// ExecEngine 基于外部 CLI 的引擎实现。
// 每个参与方拥有独立的工作目录（baseDir/<party-id>），密钥份额等
// 中间状态由 CLI 自行落在目录内。每次调用受 timeout 约束，超时视为
// 引擎通信失败。
type ExecEngine struct {
	binary  string
	baseDir string
	timeout time.Duration
}

var _ Engine = (*ExecEngine)(nil)

// NewExecEngine 创建 CLI 引擎适配器
func NewExecEngine(binary string, baseDir string, timeout time.Duration) *ExecEngine {
	return &ExecEngine{
		binary:  binary,
		baseDir: baseDir,
		timeout: timeout,
	}
}

// run 在参与方工作目录内执行一次引擎命令
func (e *ExecEngine) run(ctx context.Context, partyID string, args ...string) (string, error) {
	dir := filepath.Join(e.baseDir, partyID)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", NewCommunicationError(partyID, err)
	}

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, e.binary, args...)
	cmd.Dir = dir

	out, err := cmd.CombinedOutput()
	output := string(out)
	if err != nil {
		// 拒绝场景下 CLI 以非零码退出但输出仍然有效，由调用方判断
		if strings.Contains(output, rejectionMarker) {
			return output, nil
		}
		log.Error().
			Err(err).
			Str("party_id", partyID).
			Strs("args", args).
			Msg("Engine invocation failed")
		return output, NewCommunicationError(partyID, err)
	}

	return output, nil
}

// extractJSONLine 从引擎输出中提取包含 party_index 的 JSON 行并反序列化。
// 找不到或无法解析都按引擎格式错误（通信失败）处理。
func extractJSONLine(partyID string, output string, v interface{}) error {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !strings.Contains(line, `"party_index"`) {
			continue
		}
		if err := json.Unmarshal([]byte(line), v); err != nil {
			return &EngineError{
				Kind:     ErrKindCommunication,
				Message:  "engine returned malformed JSON",
				PartyID:  partyID,
				Original: err,
			}
		}
		return nil
	}
	return &EngineError{
		Kind:    ErrKindCommunication,
		Message: "engine output is missing the expected JSON payload",
		PartyID: partyID,
	}
}

// extractField 提取 "<label>: <value>" 形式的输出行
func extractField(output string, label string) string {
	for _, line := range strings.Split(output, "\n") {
		if rest, ok := strings.CutPrefix(strings.TrimSpace(line), label); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}

// marshalJoin 将一组轮次输出序列化为 CLI 的 --data 参数（JSON 行以空格连接）
func marshalJoin[T any](items []T) (string, error) {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		b, err := json.Marshal(item)
		if err != nil {
			return "", err
		}
		parts = append(parts, string(b))
	}
	return strings.Join(parts, " "), nil
}

// KeygenRound1 第一轮：生成承诺
func (e *ExecEngine) KeygenRound1(ctx context.Context, req *Round1Request) (*Round1Output, error) {
	args := []string{
		"keygen-round1",
		"--threshold", strconv.Itoa(req.Threshold),
		"--n-parties", strconv.Itoa(req.NumParties),
		"--my-index", strconv.Itoa(req.PartyIndex),
		"--rank", strconv.Itoa(req.Rank),
	}
	if req.Hierarchical {
		args = append(args, "--hierarchical")
	}

	output, err := e.run(ctx, req.PartyID, args...)
	if err != nil {
		return nil, err
	}

	var out Round1Output
	if err := extractJSONLine(req.PartyID, output, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// KeygenRound2 第二轮：基于全部承诺计算份额
func (e *ExecEngine) KeygenRound2(ctx context.Context, req *Round2Request) (*Round2Output, error) {
	data, err := marshalJoin(req.Round1Data)
	if err != nil {
		return nil, NewCommunicationError(req.PartyID, err)
	}

	output, err := e.run(ctx, req.PartyID, "keygen-round2", "--data", data)
	if err != nil {
		return nil, err
	}

	var out Round2Output
	if err := extractJSONLine(req.PartyID, output, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// KeygenFinalize 最终化：推导公钥
func (e *ExecEngine) KeygenFinalize(ctx context.Context, req *FinalizeRequest) (*FinalizeOutput, error) {
	data, err := marshalJoin(req.Round2Data)
	if err != nil {
		return nil, NewCommunicationError(req.PartyID, err)
	}

	output, err := e.run(ctx, req.PartyID, "keygen-finalize", "--data", data)
	if err != nil {
		return nil, err
	}

	publicKey := extractField(output, "Public Key:")
	if publicKey == "" {
		return nil, &EngineError{
			Kind:    ErrKindCommunication,
			Message: "engine finalize output is missing the public key",
			PartyID: req.PartyID,
		}
	}

	return &FinalizeOutput{
		PartyIndex: req.PartyIndex,
		PublicKey:  publicKey,
	}, nil
}

// GenerateNonce 生成签名 nonce
func (e *ExecEngine) GenerateNonce(ctx context.Context, req *NonceRequest) (*NonceOutput, error) {
	output, err := e.run(ctx, req.PartyID, "generate-nonce", "--session", req.SessionID)
	if err != nil {
		return nil, err
	}

	var out NonceOutput
	if err := extractJSONLine(req.PartyID, output, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Sign 生成部分签名
func (e *ExecEngine) Sign(ctx context.Context, req *SignRequest) (*SignResult, error) {
	data, err := marshalJoin(req.NonceData)
	if err != nil {
		return nil, NewCommunicationError(req.PartyID, err)
	}

	output, err := e.run(ctx, req.PartyID,
		"sign",
		"--session", req.SessionID,
		"--message", string(req.Message),
		"--data", data,
	)
	if err != nil {
		return nil, err
	}

	if strings.Contains(output, rejectionMarker) {
		return &SignResult{
			Rejected: true,
			Reason:   rejectionMarker,
		}, nil
	}

	var share SignatureShare
	if err := extractJSONLine(req.PartyID, output, &share); err != nil {
		return nil, err
	}
	return &SignResult{Share: &share}, nil
}

// Combine 合并部分签名
func (e *ExecEngine) Combine(ctx context.Context, req *CombineRequest) (*CombineOutput, error) {
	data, err := marshalJoin(req.Shares)
	if err != nil {
		return nil, NewCommunicationError(req.PartyID, err)
	}

	output, err := e.run(ctx, req.PartyID, "combine", "--data", data)
	if err != nil {
		return nil, err
	}

	signature := extractField(output, "Signature:")
	publicKey := extractField(output, "Public Key:")
	if signature == "" || publicKey == "" {
		return nil, &EngineError{
			Kind:    ErrKindCommunication,
			Message: "engine combine output is missing signature or public key",
			PartyID: req.PartyID,
		}
	}

	return &CombineOutput{
		Signature: signature,
		PublicKey: publicKey,
	}, nil
}

// Verify 验证签名
func (e *ExecEngine) Verify(ctx context.Context, req *VerifyRequest) (bool, error) {
	output, err := e.run(ctx, "verifier",
		"verify",
		"--signature", req.Signature,
		"--public-key", req.PublicKey,
		"--message", string(req.Message),
	)
	if err != nil {
		return false, err
	}

	// 判定只认显式结论：出现 INVALID 一律不通过
	valid := strings.Contains(output, "VALID") && !strings.Contains(output, "INVALID")
	return valid, nil
}

// Reset 删除全部参与方工作目录（不可逆）
func (e *ExecEngine) Reset(ctx context.Context) error {
	if err := os.RemoveAll(e.baseDir); err != nil {
		return NewCommunicationError("", err)
	}
	if err := os.MkdirAll(e.baseDir, 0o700); err != nil {
		return NewCommunicationError("", err)
	}
	return nil
}
