package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/artify/artify_go_server/config"
	"github.com/artify/artify_go_server/internal/model"
	"github.com/artify/artify_go_server/internal/model/dto"
	"github.com/artify/artify_go_server/internal/pkg/email"
	"github.com/artify/artify_go_server/internal/pkg/jwt"
	"github.com/artify/artify_go_server/internal/repository"
)

var (
	ErrEmailExists        = errors.New("邮箱已被注册")
	ErrInvalidCredentials = errors.New("邮箱或密码错误")
	ErrInvalidResetToken  = errors.New("重置链接无效或已过期")
	ErrUserNotFound       = errors.New("用户不存在")
)

const resetTokenTTL = 30 * time.Minute

type AuthService struct {
	userRepo *repository.UserRepository
	subRepo  *repository.SubscriptionRepository
	mailer   *email.Service
	cfg      *config.Config
}

func NewAuthService(
	userRepo *repository.UserRepository,
	subRepo *repository.SubscriptionRepository,
	mailer *email.Service,
	cfg *config.Config,
) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		subRepo:  subRepo,
		mailer:   mailer,
		cfg:      cfg,
	}
}

// Register 用户注册
func (s *AuthService) Register(req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	emailAddr := strings.ToLower(strings.TrimSpace(req.Email))

	exists, err := s.userRepo.ExistsByEmail(emailAddr)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailExists
	}

	// 加密密码
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:        emailAddr,
		PasswordHash: string(hashedPassword),
		Name:         req.Name,
		Role:         model.RoleUser,
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	token, err := jwt.GenerateToken(user.ID, user.Role, s.cfg.JWT.Secret, s.cfg.JWT.ExpireHours)
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{
		Token: token,
		User:  s.buildUserInfo(user, nil),
	}, nil
}

// Login 用户登录
// 未知邮箱和密码错误返回同一个错误，避免账号枚举
func (s *AuthService) Login(req *dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := s.userRepo.GetByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := jwt.GenerateToken(user.ID, user.Role, s.cfg.JWT.Secret, s.cfg.JWT.ExpireHours)
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{
		Token: token,
		User:  s.buildUserInfo(user, s.activeSubscription(user.ID)),
	}, nil
}

// Me 当前用户信息（含订阅摘要）
func (s *AuthService) Me(userID int64) (*dto.UserInfo, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return s.buildUserInfo(user, s.activeSubscription(userID)), nil
}

// ForgotPassword 签发密码重置令牌并发送邮件
// 邮箱不存在时静默成功，避免账号枚举
func (s *AuthService) ForgotPassword(emailAddr string) error {
	user, err := s.userRepo.GetByEmail(strings.ToLower(strings.TrimSpace(emailAddr)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	token, err := generateRandomToken(32)
	if err != nil {
		return err
	}

	// 只存哈希，明文仅出现在邮件链接里
	tokenHash := hashResetToken(token)
	expiresAt := time.Now().Add(resetTokenTTL)
	if err := s.userRepo.SetResetToken(user.ID, tokenHash, expiresAt); err != nil {
		return err
	}

	resetLink := fmt.Sprintf("%s/resetpassword/%s", s.cfg.Server.PublicURL, token)
	if err := s.mailer.SendPasswordReset(user.Email, resetLink); err != nil {
		log.Printf("Failed to send reset email to user %d: %v", user.ID, err)
	}

	return nil
}

// ResetPassword 校验令牌并更新密码，令牌一次性有效
func (s *AuthService) ResetPassword(token, newPassword string) error {
	user, err := s.userRepo.GetByResetTokenHash(hashResetToken(token))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}

	if user.ResetTokenExpiresAt == nil || time.Now().After(*user.ResetTokenExpiresAt) {
		return ErrInvalidResetToken
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return s.userRepo.UpdatePassword(user.ID, string(hashedPassword))
}

// GetUserByID 根据 ID 获取用户
func (s *AuthService) GetUserByID(id int64) (*model.User, error) {
	return s.userRepo.GetByID(id)
}

func (s *AuthService) activeSubscription(userID int64) *model.Subscription {
	sub, err := s.subRepo.GetActiveByUserID(userID)
	if err != nil {
		return nil
	}
	return sub
}

func (s *AuthService) buildUserInfo(user *model.User, sub *model.Subscription) *dto.UserInfo {
	info := &dto.UserInfo{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	}

	if sub != nil {
		info.Subscription = &dto.SubscriptionInfo{
			Plan:            sub.Plan,
			ImagesLimit:     sub.ImagesLimit,
			ImagesGenerated: sub.ImagesGenerated,
			ImagesRemaining: sub.ImagesRemaining(),
			Active:          sub.Active,
			StartedAt:       sub.StartedAt.Format(time.RFC3339),
		}
	}

	return info
}

func generateRandomToken(length int) (string, error) {
	bytes := make([]byte, length/2)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
