package handler

import (
	"errors"
	"net/http"
	"time"

	"flowmarket/internal/domain/user/service"
	"flowmarket/internal/pkg/middleware"
	"flowmarket/pkg/response"
	"flowmarket/pkg/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// UserHandler 用户处理器
type UserHandler struct {
	service service.UserService
}

// NewUserHandler 创建处理器
func NewUserHandler(service service.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// RegisterInput 注册输入
type RegisterInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Nickname string `json:"nickname"`
}

// LoginInput 登录输入
type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// OTPInput 验证码输入
type OTPInput struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code"`
}

// Register 处理注册请求
// @Summary 注册
// @Tags Auth
// @Accept json
// @Produce json
// @Param input body RegisterInput true "Register Info"
// @Success 200 {object} response.Response
// @Router /auth/register [post]
func (h *UserHandler) Register(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	user, err := h.service.Register(input.Email, input.Password, input.Nickname)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			response.Fail(c, response.ErrUserExists, err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}

	response.Success(c, user)
}

// Login 处理登录请求
// @Summary 登录
// @Tags Auth
// @Accept json
// @Produce json
// @Param input body LoginInput true "Login Info"
// @Success 200 {object} response.Response{data=string} "Token"
// @Router /auth/login [post]
func (h *UserHandler) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	token, err := h.service.Login(input.Email, input.Password)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, response.ErrAuthFailed, err.Error())
		return
	}

	response.Success(c, gin.H{"token": token})
}

// SendOTP 发送验证码
// @Summary 发送邮箱验证码
// @Tags Auth
// @Router /auth/otp [post]
func (h *UserHandler) SendOTP(c *gin.Context) {
	var input OTPInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	if err := h.service.SendOTP(input.Email); err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}
	response.Success(c, "Verification code sent")
}

// LoginWithOTP 验证码登录
// @Summary 验证码登录
// @Tags Auth
// @Router /auth/login/otp [post]
func (h *UserHandler) LoginWithOTP(c *gin.Context) {
	var input OTPInput
	if err := c.ShouldBindJSON(&input); err != nil || input.Code == "" {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "email and code are required")
		return
	}

	token, err := h.service.LoginWithOTP(input.Email, input.Code)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, response.ErrAuthFailed, err.Error())
		return
	}
	response.Success(c, gin.H{"token": token})
}

// Me 获取当前用户资料
// @Summary 当前用户
// @Tags User
// @Security BearerAuth
// @Router /users/me [get]
func (h *UserHandler) Me(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	user, err := h.service.GetUser(userID)
	if err != nil {
		response.Error(c, http.StatusNotFound, response.ErrUserNotFound, "User not found")
		return
	}
	response.Success(c, user)
}

// UpdateProfileInput 更新资料输入
type UpdateProfileInput struct {
	Nickname  string `json:"nickname"`
	AvatarURL string `json:"avatarUrl"`
}

// UpdateMe 更新当前用户资料
// @Summary 更新资料
// @Tags User
// @Security BearerAuth
// @Router /users/me [put]
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var input UpdateProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	user, err := h.service.UpdateProfile(middleware.UserIDFromContext(c), input.Nickname, input.AvatarURL)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}
	response.Success(c, user)
}

// BecomeSellerInput 升级卖家输入
type BecomeSellerInput struct {
	SellerName string `json:"sellerName" binding:"required"`
}

// BecomeSeller 升级为卖家
// @Summary 升级为卖家
// @Tags Seller
// @Security BearerAuth
// @Router /sellers/apply [post]
func (h *UserHandler) BecomeSeller(c *gin.Context) {
	var input BecomeSellerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	user, err := h.service.BecomeSeller(middleware.UserIDFromContext(c), input.SellerName)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}
	response.Success(c, user)
}

// PayoutAccountInput 收款账户输入
type PayoutAccountInput struct {
	AccountID string `json:"accountId" binding:"required"`
}

// SubmitPayoutAccount 提交收款账户
// @Summary 绑定收款账户
// @Tags Seller
// @Security BearerAuth
// @Router /sellers/payout-account [post]
func (h *UserHandler) SubmitPayoutAccount(c *gin.Context) {
	var input PayoutAccountInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	if err := h.service.SetPayoutAccount(middleware.UserIDFromContext(c), input.AccountID); err != nil {
		if errors.Is(err, service.ErrNotSeller) {
			response.Error(c, http.StatusForbidden, response.ErrNoPermission, err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}
	response.Success(c, "Payout account submitted")
}

// GetUsers 管理员获取用户列表
// @Summary 用户列表
// @Tags Admin
// @Security BearerAuth
// @Router /admin/users [get]
func (h *UserHandler) GetUsers(c *gin.Context) {
	var p utils.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	users, total, err := h.service.GetUsers(p.Page, p.Limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "Failed to fetch users")
		return
	}

	response.Success(c, utils.PageResult{List: users, Total: total, Page: p.Page, Limit: p.Limit})
}

// BanInput 封禁输入
type BanInput struct {
	Days int `json:"days"` // 0 表示永久
}

// BanUser 管理员封禁用户
// @Summary 封禁用户
// @Tags Admin
// @Security BearerAuth
// @Router /admin/users/{id}/ban [post]
func (h *UserHandler) BanUser(c *gin.Context) {
	var input BanInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	var until *time.Time
	if input.Days > 0 {
		t := time.Now().AddDate(0, 0, input.Days)
		until = &t
	}

	if err := h.service.BanUser(c.Param("id"), until); err != nil {
		h.writeUserError(c, err)
		return
	}
	response.Success(c, true)
}

// UnbanUser 管理员解封用户
// @Summary 解封用户
// @Tags Admin
// @Security BearerAuth
// @Router /admin/users/{id}/unban [post]
func (h *UserHandler) UnbanUser(c *gin.Context) {
	if err := h.service.UnbanUser(c.Param("id")); err != nil {
		h.writeUserError(c, err)
		return
	}
	response.Success(c, true)
}

// DeleteUser 管理员删除用户
// @Summary 删除用户
// @Tags Admin
// @Security BearerAuth
// @Router /admin/users/{id} [delete]
func (h *UserHandler) DeleteUser(c *gin.Context) {
	if err := h.service.DeleteUser(c.Param("id")); err != nil {
		h.writeUserError(c, err)
		return
	}
	response.Success(c, true)
}

func (h *UserHandler) writeUserError(c *gin.Context, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		response.Error(c, http.StatusNotFound, response.ErrUserNotFound, "User not found")
		return
	}
	response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
}
