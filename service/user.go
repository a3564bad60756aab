package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"envelope/logger"
	"envelope/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// MinPasswordLength 密码最小长度
const MinPasswordLength = 6

// UserService 用户账号、验证码与引导流程
type UserService struct {
	db     *gorm.DB
	mailer Mailer
	otpTTL time.Duration
	now    func() time.Time
}

// NewUserService 创建用户服务
func NewUserService(db *gorm.DB, mailer Mailer, otpTTL time.Duration) *UserService {
	if otpTTL <= 0 {
		otpTTL = 15 * time.Minute
	}
	return &UserService{
		db:     db,
		mailer: mailer,
		otpTTL: otpTTL,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ProfileUpdate 可修改的个人资料
type ProfileUpdate struct {
	Name  *string
	Email *string
}

// OnboardingInput 完成引导所需信息
type OnboardingInput struct {
	Name     string
	PlanName string
	Currency string
}

// Register 注册，邮箱不区分大小写
func (s *UserService) Register(ctx context.Context, email, password, name string) (*models.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	user := &models.User{
		Email:    email,
		Name:     strings.TrimSpace(name),
		Password: hash,
	}
	if err := db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return user, nil
}

// Authenticate 校验邮箱与密码
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).Take(&user).Error; err != nil {
		return nil, notFoundAs(err, ErrBadCredentials)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrBadCredentials
	}
	return &user, nil
}

// Profile 获取用户
func (s *UserService) Profile(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Take(&user, userID).Error; err != nil {
		return nil, notFoundAs(err, ErrUserNotFound)
	}
	return &user, nil
}

// UpdateProfile 修改姓名或邮箱
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, in ProfileUpdate) (*models.User, error) {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	updates := map[string]interface{}{}
	if in.Name != nil {
		updates["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		email, err := normalizeEmail(*in.Email)
		if err != nil {
			return nil, err
		}
		if email != user.Email {
			var count int64
			if err := db.Model(&models.User{}).Where("email = ? AND id <> ?", email, userID).Count(&count).Error; err != nil {
				return nil, err
			}
			if count > 0 {
				return nil, ErrEmailTaken
			}
			updates["email"] = email
		}
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := db.Model(user).Updates(updates).Error; err != nil {
		return nil, err
	}
	if err := db.First(user, user.ID).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword 校验原密码后修改
func (s *UserService) ChangePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)); err != nil {
		return ErrWrongPassword
	}
	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(user).Update("password", hash).Error
}

// RequestPasswordReset 生成并发送 6 位验证码，每个用户只保留最新一条
// 邮箱未注册时同样返回成功，不暴露账号是否存在
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	db := s.db.WithContext(ctx)
	var user models.User
	if err := db.Where("email = ?", email).Take(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.L().Info("密码重置请求的邮箱未注册", "email", email)
			return nil
		}
		return err
	}

	code, err := models.GenerateVerificationCode()
	if err != nil {
		return err
	}

	reset := &models.PasswordReset{
		UserID:    user.ID,
		Email:     email,
		Code:      code,
		ExpiresAt: s.now().Add(s.otpTTL),
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.PasswordReset{}).Error; err != nil {
			return err
		}
		return tx.Create(reset).Error
	})
	if err != nil {
		return err
	}

	if s.mailer == nil || !s.mailer.Enabled() {
		discardReset(db, reset)
		return &AppError{Kind: KindInternal, Message: "邮件服务未启用", Err: ErrEmailDisabled}
	}
	if err := s.mailer.SendPasswordResetCode(email, user.Name, code, int(s.otpTTL/time.Minute)); err != nil {
		discardReset(db, reset)
		return &AppError{Kind: KindInternal, Message: "发送验证码失败", Err: err}
	}
	return nil
}

// discardReset 撤回未送达的验证码，失败只记日志
func discardReset(db *gorm.DB, reset *models.PasswordReset) {
	if err := db.Delete(reset).Error; err != nil {
		logger.L().InternalError("清理验证码失败", err, "user_id", reset.UserID)
	}
}

// VerifyResetCode 仅校验验证码，不消耗
func (s *UserService) VerifyResetCode(ctx context.Context, email, code string) error {
	_, err := s.liveReset(s.db.WithContext(ctx), email, code)
	return err
}

// ResetPassword 使用验证码重置密码，成功后验证码失效
func (s *UserService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reset, err := s.liveReset(tx, email, code)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("id = ?", reset.UserID).Update("password", hash).Error; err != nil {
			return err
		}
		res := tx.Where("user_id = ?", reset.UserID).Delete(&models.PasswordReset{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidCode
		}
		return nil
	})
}

// CompleteOnboarding 设置姓名并标记完成引导；尚无计划时创建第一个计划
func (s *UserService) CompleteOnboarding(ctx context.Context, userID uint, in OnboardingInput) (*models.User, *models.Plan, error) {
	var (
		user models.User
		plan *models.Plan
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Take(&user, userID).Error; err != nil {
			return notFoundAs(err, ErrUserNotFound)
		}

		updates := map[string]interface{}{"has_completed_onboarding": true}
		if name := strings.TrimSpace(in.Name); name != "" {
			updates["name"] = name
		}
		if err := tx.Model(&user).Updates(updates).Error; err != nil {
			return err
		}

		var memberships int64
		if err := tx.Model(&models.PlanMember{}).Where("user_id = ?", userID).Count(&memberships).Error; err != nil {
			return err
		}
		if memberships == 0 {
			planName := strings.TrimSpace(in.PlanName)
			if planName == "" {
				planName = "我的预算"
			}
			var err error
			if plan, err = createPlan(tx, userID, planName, in.Currency); err != nil {
				return err
			}
		}
		return tx.First(&user, userID).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return &user, plan, nil
}

func (s *UserService) liveReset(db *gorm.DB, email, code string) (*models.PasswordReset, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	code = strings.TrimSpace(code)
	if email == "" || len(code) != 6 {
		return nil, ErrInvalidCode
	}
	var reset models.PasswordReset
	if err := db.Where("email = ? AND code = ? AND expires_at > ?", email, code, s.now()).
		Take(&reset).Error; err != nil {
		return nil, notFoundAs(err, ErrInvalidCode)
	}
	return &reset, nil
}

func hashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", invalidInput("密码长度不能少于 %d 位", MinPasswordLength)
	}
	if len(password) > 72 {
		return "", invalidInput("密码长度不能超过 72 位")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", &AppError{Kind: KindInternal, Message: "密码加密失败", Err: err}
	}
	return string(hash), nil
}
