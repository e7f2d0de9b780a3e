package types

// ErrorMessage 统一的错误响应信封
type ErrorMessage struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// SuccessMessage 无资源返回时的成功响应
type SuccessMessage struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
