package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"flowmarket/internal/pkg/config"
	"flowmarket/pkg/logger"

	"github.com/redis/go-redis/v9"
)

type OTPService interface {
	Send(email string) (string, error)
	Verify(email, code string) bool
}

type otpService struct {
	rdb *redis.Client
}

func NewOTPService(rdb *redis.Client) OTPService {
	return &otpService{rdb: rdb}
}

// Send 生成验证码并存入 Redis，由上层决定通过邮件发出
// 5分钟有效，1分钟内不可重发
func (s *otpService) Send(email string) (string, error) {
	key := fmt.Sprintf("otp:%s", email)
	ttl, err := s.rdb.TTL(context.Background(), key).Result()
	if err == nil && ttl > 4*time.Minute {
		return "", fmt.Errorf("please wait before sending again")
	}

	code := config.GlobalConfig.App.TestOTPCode
	if code == "" {
		code = randomCode(6)
	}

	if err := s.rdb.Set(context.Background(), key, code, 5*time.Minute).Err(); err != nil {
		return "", err
	}

	if logger.Log != nil {
		logger.Log.Sugar().Infof("[OTP] code generated for %s", email)
	}

	return code, nil
}

// Verify 验证验证码，成功后立即删除，防止重放
func (s *otpService) Verify(email, code string) bool {
	key := fmt.Sprintf("otp:%s", email)
	val, err := s.rdb.Get(context.Background(), key).Result()
	if err != nil {
		return false
	}

	if val == code {
		s.rdb.Del(context.Background(), key)
		return true
	}
	return false
}

func randomCode(n int) string {
	digits := make([]byte, n)
	for i := range digits {
		v, _ := rand.Int(rand.Reader, big.NewInt(10))
		digits[i] = byte('0' + v.Int64())
	}
	return string(digits)
}
