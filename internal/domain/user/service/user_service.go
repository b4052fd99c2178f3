package service

import (
	"errors"
	"time"

	"flowmarket/internal/domain/user/model"
	"flowmarket/internal/domain/user/repository"
	"flowmarket/internal/pkg/mailer"
	"flowmarket/internal/pkg/otp"
	"flowmarket/pkg/utils"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountBanned      = errors.New("account is banned")
	ErrAccountDeleted     = errors.New("account has been deleted")
	ErrInvalidOTP         = errors.New("invalid verification code")
	ErrNotSeller          = errors.New("user is not a seller")
)

// UserService 用户服务接口
type UserService interface {
	Register(email, password, nickname string) (*model.User, error)
	Login(email, password string) (string, error)
	SendOTP(email string) error
	LoginWithOTP(email, code string) (string, error)
	GetUsers(page, limit int) ([]model.User, int64, error)
	GetUser(id string) (*model.User, error)
	UpdateProfile(id, nickname, avatarURL string) (*model.User, error)
	BecomeSeller(id, sellerName string) (*model.User, error)
	SetPayoutAccount(id, accountID string) error
	SetPayoutOnboarded(accountID string, onboarded bool) error
	ListEmails(role int) ([]string, error)
	BanUser(id string, until *time.Time) error
	UnbanUser(id string) error
	DeleteUser(id string) error
}

// userService 实现
type userService struct {
	repo   repository.UserRepository
	otp    otp.OTPService
	mailer mailer.Mailer
}

// NewUserService 创建用户服务
func NewUserService(repo repository.UserRepository, otp otp.OTPService, m mailer.Mailer) UserService {
	return &userService{repo: repo, otp: otp, mailer: m}
}

// Register 邮箱注册
func (s *userService) Register(email, password, nickname string) (*model.User, error) {
	if _, err := s.repo.GetByEmail(email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	if nickname == "" {
		nickname = "User_" + email[:min(4, len(email))]
	}

	user := &model.User{
		Email:        email,
		PasswordHash: string(hash),
		Nickname:     nickname,
		Role:         model.RoleUser,
		Status:       model.StatusNormal,
	}
	if err := s.repo.Create(user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login 邮箱密码登录
func (s *userService) Login(email, password string) (string, error) {
	user, err := s.repo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	return s.issueToken(user)
}

// SendOTP 发送登录验证码邮件
func (s *userService) SendOTP(email string) error {
	code, err := s.otp.Send(email)
	if err != nil {
		return err
	}
	if s.mailer != nil {
		return s.mailer.Send(email, "Your flowmarket verification code", mailer.BuildOTPBody(code))
	}
	return nil
}

// LoginWithOTP 验证码登录，不存在时自动注册
func (s *userService) LoginWithOTP(email, code string) (string, error) {
	if !s.otp.Verify(email, code) {
		return "", ErrInvalidOTP
	}

	user, err := s.repo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			user = &model.User{
				Email:    email,
				Nickname: "User_" + email[:min(4, len(email))],
				Role:     model.RoleUser,
				Status:   model.StatusNormal,
			}
			if err := s.repo.Create(user); err != nil {
				return "", err
			}
		} else {
			return "", err
		}
	}

	return s.issueToken(user)
}

// issueToken 检查账户状态并签发 JWT
func (s *userService) issueToken(user *model.User) (string, error) {
	if user.Status == model.StatusBanned {
		if user.BannedUntil != nil && time.Now().After(*user.BannedUntil) {
			user.Status = model.StatusNormal
			user.BannedUntil = nil
			s.repo.Update(user)
		} else {
			return "", ErrAccountBanned
		}
	}
	if user.Status == model.StatusDeleted {
		return "", ErrAccountDeleted
	}

	token, _, err := utils.GenerateToken(user.ID, user.Role)
	return token, err
}

// GetUsers 获取用户列表（分页）
func (s *userService) GetUsers(page, limit int) ([]model.User, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	offset := (page - 1) * limit
	return s.repo.GetList(offset, limit)
}

// GetUser 获取单个用户
func (s *userService) GetUser(id string) (*model.User, error) {
	return s.repo.GetByID(id)
}

// UpdateProfile 更新资料
func (s *userService) UpdateProfile(id, nickname, avatarURL string) (*model.User, error) {
	user, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if nickname != "" {
		user.Nickname = nickname
	}
	if avatarURL != "" {
		user.AvatarURL = avatarURL
	}

	if err := s.repo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

// BecomeSeller 升级为卖家，收款账户后续单独提交
func (s *userService) BecomeSeller(id, sellerName string) (*model.User, error) {
	user, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if user.Role == model.RoleUser {
		user.Role = model.RoleSeller
	}
	user.SellerName = sellerName

	if err := s.repo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

// SetPayoutAccount 绑定收款账户，开通状态等待回调/管理员确认
func (s *userService) SetPayoutAccount(id, accountID string) error {
	user, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if !user.IsSeller() {
		return ErrNotSeller
	}

	user.PayoutAccountID = accountID
	user.PayoutOnboarded = false
	return s.repo.Update(user)
}

// SetPayoutOnboarded 按收款账户 ID 更新开通状态 (account.updated 回调)
func (s *userService) SetPayoutOnboarded(accountID string, onboarded bool) error {
	user, err := s.repo.GetByPayoutAccount(accountID)
	if err != nil {
		return err
	}
	user.PayoutOnboarded = onboarded
	return s.repo.Update(user)
}

// ListEmails 广播用：列出用户邮箱
func (s *userService) ListEmails(role int) ([]string, error) {
	return s.repo.ListEmails(role)
}

// BanUser 封禁用户
func (s *userService) BanUser(id string, until *time.Time) error {
	user, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	user.Status = model.StatusBanned
	user.BannedUntil = until
	return s.repo.Update(user)
}

// UnbanUser 解封
func (s *userService) UnbanUser(id string) error {
	user, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	user.Status = model.StatusNormal
	user.BannedUntil = nil
	return s.repo.Update(user)
}

// DeleteUser 删除用户（软删除，标记为已注销）
func (s *userService) DeleteUser(id string) error {
	user, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}

	// 标记为已注销状态，而不是真正删除
	user.Status = model.StatusDeleted
	return s.repo.Update(user)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
