package party

// Party 参与方信息
// Rank 表示层级权限等级，0 为最高权限（如 CEO），数值越大权限越低。
// Index 是协议中使用的参与方编号（从 1 开始），在注册表内唯一。
// 注册表构建完成后不可变，协调器只引用、不复制或修改。
type Party struct {
	ID    string
	Index int
	Rank  int
	Name  string
}
