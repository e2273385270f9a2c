package protocol

import "context"

// Engine 密码学引擎接口。
// 所有椭圆曲线/有限域运算、承诺生成、份额构造与插值、nonce 与部分签名
// 计算、签名合并都在引擎内部完成，协调器只负责编排轮次和转发输出。
//
// 每个方法对应单个参与方的一次协议操作。引擎返回的错误统一为
// *EngineError；层级校验失败不是错误，而是 SignResult.Rejected。
type Engine interface {
	// KeygenRound1 第一轮：生成多项式承诺
	KeygenRound1(ctx context.Context, req *Round1Request) (*Round1Output, error)
	// KeygenRound2 第二轮：基于全部承诺计算秘密份额
	KeygenRound2(ctx context.Context, req *Round2Request) (*Round2Output, error)
	// KeygenFinalize 最终化：推导共享公钥
	KeygenFinalize(ctx context.Context, req *FinalizeRequest) (*FinalizeOutput, error)
	// GenerateNonce 为一次签名会话生成 nonce
	GenerateNonce(ctx context.Context, req *NonceRequest) (*NonceOutput, error)
	// Sign 生成部分签名；层级不合法时返回 Rejected 标志而非错误
	Sign(ctx context.Context, req *SignRequest) (*SignResult, error)
	// Combine 合并全部部分签名为最终签名
	Combine(ctx context.Context, req *CombineRequest) (*CombineOutput, error)
	// Verify 验证签名
	Verify(ctx context.Context, req *VerifyRequest) (bool, error)
	// Reset 清空全部参与方的工作状态（新 DKG 开始前的破坏性重置）
	Reset(ctx context.Context) error
}
