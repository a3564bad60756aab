package service

import (
	"context"
	"net/mail"
	"net/url"
	"strconv"
	"strings"
	"time"

	"envelope/config"
	"envelope/logger"
	"envelope/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InvitationService 计划邀请
type InvitationService struct {
	db         *gorm.DB
	access     *AccessService
	mailer     Mailer
	notifier   Notifier
	baseURL    string
	ttl        time.Duration
	maxMembers int
	now        func() time.Time
}

// NewInvitationService 创建邀请服务
func NewInvitationService(db *gorm.DB, cfg *config.Config, mailer Mailer, notifier Notifier) *InvitationService {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &InvitationService{
		db:         db,
		access:     NewAccessService(db),
		mailer:     mailer,
		notifier:   notifier,
		baseURL:    strings.TrimRight(cfg.Server.BaseURL, "/"),
		ttl:        cfg.InvitationTTL(),
		maxMembers: cfg.Invitation.MaxMembers,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SendResult 发送邀请的结果
type SendResult struct {
	Invitation *models.Invitation `json:"invitation"`
	InviteURL  string             `json:"invite_url"`
	EmailSent  bool               `json:"email_sent"`
}

// InvitationPreview 接受前展示的邀请信息
type InvitationPreview struct {
	PlanID    uint      `json:"plan_id"`
	PlanName  string    `json:"plan_name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Send 由所有者发出邀请；同一邮箱在该计划下的旧邀请立即失效
func (s *InvitationService) Send(ctx context.Context, actorID, planID uint, email, role string) (*SendResult, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if role == "" {
		role = models.RoleViewer
	}
	if !models.IsValidRole(role) {
		return nil, invalidInput("无效的角色: %s", role)
	}
	if planID == 0 {
		return nil, invalidInput("plan_id 不能为空")
	}
	if _, err := s.access.Require(ctx, actorID, planID, CapManage); err != nil {
		return nil, err
	}

	token, err := models.GenerateToken()
	if err != nil {
		return nil, err
	}

	now := s.now()
	var (
		invitation *models.Invitation
		plan       models.Plan
		inviter    models.User
		superseded []models.Invitation
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Take(&plan, planID).Error; err != nil {
			return notFoundAs(err, ErrPlanNotFound)
		}
		if err := tx.Take(&inviter, actorID).Error; err != nil {
			return notFoundAs(err, ErrUserNotFound)
		}

		var existing int64
		if err := tx.Model(&models.PlanMember{}).
			Joins("JOIN users ON users.id = plan_members.user_id").
			Where("plan_members.plan_id = ? AND users.email = ?", planID, email).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadyMember
		}

		pending := tx.Model(&models.Invitation{}).
			Where("plan_id = ? AND email = ? AND accepted_at IS NULL AND expires_at > ?", planID, email, now)
		if err := pending.Session(&gorm.Session{}).Select("id", "expires_at").Find(&superseded).Error; err != nil {
			return err
		}
		if err := pending.Session(&gorm.Session{}).Update("expires_at", now).Error; err != nil {
			return err
		}

		invitation = &models.Invitation{
			PlanID:    planID,
			Email:     email,
			Role:      role,
			Token:     token,
			InvitedBy: actorID,
			ExpiresAt: now.Add(s.ttl),
		}
		return tx.Create(invitation).Error
	})
	if err != nil {
		return nil, err
	}

	result := &SendResult{Invitation: invitation, InviteURL: s.inviteURL(token)}
	if s.mailer != nil && s.mailer.Enabled() {
		inviterName := inviter.Name
		if inviterName == "" {
			inviterName = inviter.Email
		}
		if err := s.mailer.SendInvitationEmail(email, inviterName, plan.Name, role, result.InviteURL); err != nil {
			// 邮件未送达时撤回新邀请，并恢复被它顶替的旧邀请
			if rbErr := s.revert(ctx, invitation.ID, superseded); rbErr != nil {
				logger.L().InternalError("撤回邀请失败", rbErr, "invitation_id", invitation.ID)
			}
			return nil, &AppError{Kind: KindInternal, Message: "发送邀请邮件失败", Err: err}
		}
		result.EmailSent = true
	} else {
		logger.L().Warn("邮件服务未启用，邀请链接需手动发送", "plan_id", planID, "email", email)
	}

	publish(ctx, s.notifier, Event{
		Type:       EventInvitationSent,
		PlanID:     planID,
		ActorID:    actorID,
		ResourceID: invitation.ID,
		Payload:    map[string]string{"email": email, "role": role},
	})
	return result, nil
}

func (s *InvitationService) revert(ctx context.Context, invitationID uint, superseded []models.Invitation) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Invitation{}, invitationID).Error; err != nil {
			return err
		}
		for _, prev := range superseded {
			if err := tx.Model(&models.Invitation{}).Where("id = ?", prev.ID).
				Update("expires_at", prev.ExpiresAt).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Preview 根据令牌查看邀请
func (s *InvitationService) Preview(ctx context.Context, token string) (*InvitationPreview, error) {
	invitation, err := s.byToken(s.db.WithContext(ctx).Preload("Plan"), token)
	if err != nil {
		return nil, err
	}
	preview := &InvitationPreview{
		PlanID:    invitation.PlanID,
		Email:     invitation.Email,
		Role:      invitation.Role,
		Status:    invitation.Status(s.now()),
		ExpiresAt: invitation.ExpiresAt,
	}
	if invitation.Plan != nil {
		preview.PlanName = invitation.Plan.Name
	}
	return preview, nil
}

// Accept 接受邀请：校验状态、邮箱、成员身份与容量后，在一个事务内加入计划并标记已接受
func (s *InvitationService) Accept(ctx context.Context, userID uint, token string) (*models.PlanMember, error) {
	now := s.now()
	var member *models.PlanMember

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invitation, err := s.byToken(tx, token)
		if err != nil {
			return err
		}
		if !invitation.IsValid(now) {
			return ErrInvalidOrExpired
		}

		var user models.User
		if err := tx.Take(&user, userID).Error; err != nil {
			return notFoundAs(err, ErrUserNotFound)
		}
		if !strings.EqualFold(strings.TrimSpace(user.Email), invitation.Email) {
			return ErrEmailMismatch
		}

		var existing int64
		if err := tx.Model(&models.PlanMember{}).
			Where("plan_id = ? AND user_id = ?", invitation.PlanID, userID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadyMember
		}

		// 锁住计划行，使并发接受在成员计数上串行
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&models.Plan{}, invitation.PlanID).Error; err != nil {
			return notFoundAs(err, ErrPlanNotFound)
		}
		var count int64
		if err := tx.Model(&models.PlanMember{}).Where("plan_id = ?", invitation.PlanID).Count(&count).Error; err != nil {
			return err
		}
		if s.maxMembers > 0 && count >= int64(s.maxMembers) {
			return ErrPlanFull.WithDetails("成员上限为 " + strconv.Itoa(s.maxMembers))
		}

		// 条件更新保证令牌只能被使用一次
		res := tx.Model(&models.Invitation{}).
			Where("id = ? AND accepted_at IS NULL AND expires_at > ?", invitation.ID, now).
			Updates(map[string]interface{}{"accepted_at": now, "accepted_by": userID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidOrExpired
		}

		member = &models.PlanMember{
			PlanID:   invitation.PlanID,
			UserID:   userID,
			Role:     invitation.Role,
			JoinedAt: now,
		}
		return tx.Create(member).Error
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.notifier, Event{
		Type:       EventInvitationAccepted,
		PlanID:     member.PlanID,
		ActorID:    userID,
		ResourceID: member.ID,
	})
	return member, nil
}

// ListPending 计划下仍有效的邀请
func (s *InvitationService) ListPending(ctx context.Context, planID uint) ([]models.Invitation, error) {
	var list []models.Invitation
	err := s.db.WithContext(ctx).
		Where("plan_id = ? AND accepted_at IS NULL AND expires_at > ?", planID, s.now()).
		Order("created_at DESC, id DESC").
		Find(&list).Error
	return list, err
}

// Revoke 撤销邀请，令其立即过期
func (s *InvitationService) Revoke(ctx context.Context, planID, invitationID uint) error {
	db := s.db.WithContext(ctx)
	now := s.now()

	var invitation models.Invitation
	if err := db.Where("id = ? AND plan_id = ?", invitationID, planID).Take(&invitation).Error; err != nil {
		return notFoundAs(err, ErrNotFound)
	}
	res := db.Model(&models.Invitation{}).
		Where("id = ? AND accepted_at IS NULL AND expires_at > ?", invitationID, now).
		Update("expires_at", now)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInvalidOrExpired
	}
	return nil
}

// SweepExpired 删除过期超过 retain 且未被接受的邀请
func (s *InvitationService) SweepExpired(ctx context.Context, retain time.Duration) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("accepted_at IS NULL AND expires_at <= ?", s.now().Add(-retain)).
		Delete(&models.Invitation{})
	return res.RowsAffected, res.Error
}

func (s *InvitationService) byToken(db *gorm.DB, token string) (*models.Invitation, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidOrExpired
	}
	var invitation models.Invitation
	if err := db.Where("token = ?", token).Take(&invitation).Error; err != nil {
		return nil, notFoundAs(err, ErrInvalidOrExpired)
	}
	return &invitation, nil
}

func (s *InvitationService) inviteURL(token string) string {
	return s.baseURL + "/invitations/accept?token=" + url.QueryEscape(token)
}

// normalizeEmail 去空格并转小写
func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", invalidInput("邮箱不能为空")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", invalidInput("邮箱格式不正确")
	}
	return email, nil
}
