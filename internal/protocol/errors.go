package protocol

// 错误码
const (
	ErrCodeUnknown           = 1000
	ErrCodeInvalidMsg        = 1001 // 消息格式错误 / 缺少必填字段
	ErrCodeRateLimit         = 1002 // 速率限制
	ErrCodeUnknownEvent      = 1003 // 未知事件
	ErrCodeNotHost           = 3001 // 非主持人操作
	ErrCodeNoActiveQuestion  = 3002 // 当前没有题目
	ErrCodeServerMaintenance = 5003 // 服务器维护中
)

// ErrorMessages 错误码对应的消息
var ErrorMessages = map[int]string{
	ErrCodeUnknown:           "未知错误",
	ErrCodeInvalidMsg:        "无效的消息格式",
	ErrCodeRateLimit:         "请求过于频繁",
	ErrCodeUnknownEvent:      "未知的事件类型",
	ErrCodeNotHost:           "只有主持人可以出题",
	ErrCodeNoActiveQuestion:  "当前没有进行中的题目",
	ErrCodeServerMaintenance: "服务器维护中",
}
