package response

// 业务状态码
const (
	CodeSuccess = 0
	CodeError   = 1

	// 用户模块错误 100xx
	ErrUserExists      = 10001
	ErrUserNotFound    = 10002
	ErrAuthFailed      = 10003
	ErrTokenInvalid    = 10004
	ErrNoPermission    = 10005
	ErrSellerNotReady  = 10006

	// 工作流模块错误 200xx
	ErrWorkflowNotFound    = 20001
	ErrWorkflowUnavailable = 20002
	ErrInvalidTransition   = 20003
	ErrCategoryNotFound    = 20004
	ErrPlanNotFound        = 20005

	// 购物车模块错误 300xx
	ErrCartEmpty        = 30001
	ErrCartItemNotFound = 30002

	// 订单/结算模块错误 400xx
	ErrOrderNotFound       = 40001
	ErrAlreadyOwned        = 40002
	ErrCurrencyMismatch    = 40003
	ErrCheckoutInProgress  = 40004
	ErrSessionCreateFailed = 40005
	ErrOrderStatusFinal    = 40006
	ErrOrderStatusChange   = 40007

	// 系统错误 500xx
	ErrServerInternal  = 50001
	ErrInvalidParam    = 50002
	ErrTooManyRequests = 50003
)
