package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"envelope/models"

	"gorm.io/gorm"
)

// PlanService 预算计划与成员管理
type PlanService struct {
	db       *gorm.DB
	cache    *SummaryCache
	notifier Notifier
}

// NewPlanService 创建计划服务
func NewPlanService(db *gorm.DB, cache *SummaryCache, notifier Notifier) *PlanService {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &PlanService{db: db, cache: cache, notifier: notifier}
}

// PlanWithRole 用户视角下的计划
type PlanWithRole struct {
	models.Plan
	Role        string    `json:"role"`
	JoinedAt    time.Time `json:"joined_at"`
	MemberCount int64     `json:"member_count"`
}

// PlanUpdate 计划设置
type PlanUpdate struct {
	Name                 *string
	Currency             *string
	MessageRetentionDays *int
}

// Create 创建计划：创建者为所有者，分类结构从其最早加入的计划复制，没有则使用默认结构
func (s *PlanService) Create(ctx context.Context, userID uint, name, currency string) (*models.Plan, error) {
	var plan *models.Plan
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		plan, err = createPlan(tx, userID, name, currency)
		return err
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// List 用户加入的全部计划，按加入时间排序
func (s *PlanService) List(ctx context.Context, userID uint) ([]PlanWithRole, error) {
	db := s.db.WithContext(ctx)

	var members []models.PlanMember
	if err := db.Where("user_id = ?", userID).
		Preload("Plan").
		Order("joined_at ASC, id ASC").
		Find(&members).Error; err != nil {
		return nil, err
	}

	list := make([]PlanWithRole, 0, len(members))
	for _, m := range members {
		if m.Plan == nil {
			continue
		}
		var count int64
		if err := db.Model(&models.PlanMember{}).Where("plan_id = ?", m.PlanID).Count(&count).Error; err != nil {
			return nil, err
		}
		list = append(list, PlanWithRole{
			Plan:        *m.Plan,
			Role:        m.Role,
			JoinedAt:    m.JoinedAt,
			MemberCount: count,
		})
	}
	return list, nil
}

// Get 获取计划
func (s *PlanService) Get(ctx context.Context, planID uint) (*models.Plan, error) {
	var plan models.Plan
	if err := s.db.WithContext(ctx).Take(&plan, planID).Error; err != nil {
		return nil, notFoundAs(err, ErrPlanNotFound)
	}
	return &plan, nil
}

// UpdateSettings 修改名称、币种与消息保留天数
func (s *PlanService) UpdateSettings(ctx context.Context, planID uint, in PlanUpdate) (*models.Plan, error) {
	plan, err := s.Get(ctx, planID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, invalidInput("计划名称不能为空")
		}
		updates["name"] = name
	}
	if in.Currency != nil {
		currency, err := normalizeCurrency(*in.Currency)
		if err != nil {
			return nil, err
		}
		updates["currency"] = currency
	}
	if in.MessageRetentionDays != nil {
		days := *in.MessageRetentionDays
		if days < 1 || days > 365 {
			return nil, invalidInput("消息保留天数必须在 1 到 365 之间")
		}
		updates["message_retention_days"] = days
	}
	if len(updates) == 0 {
		return plan, nil
	}

	db := s.db.WithContext(ctx)
	if err := db.Model(plan).Updates(updates).Error; err != nil {
		return nil, err
	}
	if err := db.First(plan, plan.ID).Error; err != nil {
		return nil, err
	}
	return plan, nil
}

// Delete 删除计划及其全部数据；调用者必须至少还属于另一个计划，
// 且本计划的账户不能被其他计划的交易引用
func (s *PlanService) Delete(ctx context.Context, userID, planID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Take(&models.Plan{}, planID).Error; err != nil {
			return notFoundAs(err, ErrPlanNotFound)
		}

		var others int64
		if err := tx.Model(&models.PlanMember{}).
			Where("user_id = ? AND plan_id <> ?", userID, planID).
			Count(&others).Error; err != nil {
			return err
		}
		if others == 0 {
			return ErrLastPlan
		}

		if err := releaseSharedAccounts(tx, planID); err != nil {
			return err
		}

		// 子表先删，避免外键约束
		for _, model := range []interface{}{
			&models.Transaction{},
			&models.Budget{},
			&models.Goal{},
			&models.Note{},
			&models.Message{},
			&models.Invitation{},
			&models.Account{},
			&models.Category{},
			&models.CategoryGroup{},
			&models.PlanMember{},
		} {
			if err := tx.Where("plan_id = ?", planID).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Plan{}, planID).Error
	})
	if err != nil {
		return err
	}
	s.cache.InvalidateAll()
	return nil
}

// releaseSharedAccounts 处理跨计划共用的账户：
// 其他计划的交易仍引用本计划账户时拒绝删除；本计划交易动用的外部账户余额先冲回
func releaseSharedAccounts(tx *gorm.DB, planID uint) error {
	var accountIDs []uint
	if err := tx.Model(&models.Account{}).Where("plan_id = ?", planID).Pluck("id", &accountIDs).Error; err != nil {
		return err
	}
	own := make(map[uint]struct{}, len(accountIDs))
	for _, id := range accountIDs {
		own[id] = struct{}{}
	}

	if len(accountIDs) > 0 {
		var foreign int64
		if err := tx.Model(&models.Transaction{}).
			Where("plan_id <> ?", planID).
			Where("from_account_id IN ? OR to_account_id IN ?", accountIDs, accountIDs).
			Count(&foreign).Error; err != nil {
			return err
		}
		if foreign > 0 {
			return ErrPlanAccountsInUse.WithDetails(fmt.Sprintf("%d 笔交易引用了该计划的账户", foreign))
		}
	}

	var txns []models.Transaction
	if err := tx.Where("plan_id = ?", planID).Find(&txns).Error; err != nil {
		return err
	}
	for i := range txns {
		_, fromOwn := own[txns[i].FromAccountID]
		toOwn := true
		if txns[i].ToAccountID != nil {
			_, toOwn = own[*txns[i].ToAccountID]
		}
		if fromOwn && toOwn {
			continue
		}
		if err := applyPostings(tx, &txns[i], -1); err != nil {
			return err
		}
	}
	return nil
}

// ListMembers 计划成员，按加入时间排序
func (s *PlanService) ListMembers(ctx context.Context, planID uint) ([]models.PlanMember, error) {
	var members []models.PlanMember
	err := s.db.WithContext(ctx).
		Where("plan_id = ?", planID).
		Preload("User").
		Order("joined_at ASC, id ASC").
		Find(&members).Error
	return members, err
}

// RemoveMember 移除成员，不能移除自己，也不能移除最后一位所有者
func (s *PlanService) RemoveMember(ctx context.Context, actorID, planID, memberID uint) error {
	var member models.PlanMember
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND plan_id = ?", memberID, planID).Take(&member).Error; err != nil {
			return notFoundAs(err, ErrMemberNotFound)
		}
		if member.UserID == actorID {
			return ErrRemoveSelf
		}

		// 所有者计数与删除在同一条语句中完成
		res := tx.Exec(`DELETE FROM plan_members
			WHERE id = ? AND plan_id = ?
			AND (role <> ? OR (SELECT cnt FROM (SELECT COUNT(*) AS cnt FROM plan_members WHERE plan_id = ? AND role = ?) AS owners) > 1)`,
			memberID, planID, models.RoleOwner, planID, models.RoleOwner)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrLastOwner
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.cache.InvalidatePlan(planID)
	publish(ctx, s.notifier, Event{
		Type:       EventMemberRemoved,
		PlanID:     planID,
		ActorID:    actorID,
		ResourceID: member.UserID,
	})
	return nil
}

// UpdateMemberRole 修改成员角色，不能降级最后一位所有者
func (s *PlanService) UpdateMemberRole(ctx context.Context, planID, memberID uint, role string) (*models.PlanMember, error) {
	if !models.IsValidRole(role) {
		return nil, invalidInput("无效的角色: %s", role)
	}

	var member models.PlanMember
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND plan_id = ?", memberID, planID).Take(&member).Error; err != nil {
			return notFoundAs(err, ErrMemberNotFound)
		}
		if member.Role == role {
			return nil
		}

		res := tx.Exec(`UPDATE plan_members SET role = ?
			WHERE id = ? AND plan_id = ?
			AND (role <> ? OR (SELECT cnt FROM (SELECT COUNT(*) AS cnt FROM plan_members WHERE plan_id = ? AND role = ?) AS owners) > 1)`,
			role, memberID, planID, models.RoleOwner, planID, models.RoleOwner)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrLastOwner
		}
		return tx.Preload("User").First(&member, member.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// createPlan 在事务内创建计划、所有者成员并初始化分类结构
func createPlan(tx *gorm.DB, userID uint, name, currency string) (*models.Plan, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidInput("计划名称不能为空")
	}
	currency, err := normalizeCurrency(currency)
	if err != nil {
		return nil, err
	}

	home, err := homePlanID(tx, userID)
	if err != nil && KindOf(err) != KindInvalidState {
		return nil, err
	}

	plan := &models.Plan{
		Name:                 name,
		Currency:             currency,
		MessageRetentionDays: models.DefaultMessageRetentionDays,
	}
	if err := tx.Create(plan).Error; err != nil {
		return nil, err
	}
	if err := tx.Create(&models.PlanMember{
		PlanID:   plan.ID,
		UserID:   userID,
		Role:     models.RoleOwner,
		JoinedAt: time.Now().UTC(),
	}).Error; err != nil {
		return nil, err
	}

	if home != 0 {
		err = CopyStructure(tx, home, plan.ID)
	} else {
		err = SeedDefaultStructure(tx, plan.ID)
	}
	if err != nil {
		return nil, err
	}
	return plan, nil
}

func normalizeCurrency(currency string) (string, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return "CNY", nil
	}
	if len(currency) != 3 {
		return "", invalidInput("币种必须为 3 位代码: %s", currency)
	}
	for _, r := range currency {
		if r < 'A' || r > 'Z' {
			return "", invalidInput("币种必须为 3 位代码: %s", currency)
		}
	}
	return currency, nil
}
