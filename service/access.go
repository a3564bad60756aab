package service

import (
	"context"

	"envelope/models"

	"gorm.io/gorm"
)

// Capability 操作所需的权限等级
type Capability int

const (
	// CapRead 任意成员可读
	CapRead Capability = iota
	// CapWrite 编辑者及所有者可写预算数据
	CapWrite
	// CapManage 仅所有者可管理计划设置、成员与邀请
	CapManage
)

// AccessService 解析用户在计划中的角色
type AccessService struct {
	db *gorm.DB
}

// NewAccessService 创建权限服务
func NewAccessService(db *gorm.DB) *AccessService {
	return &AccessService{db: db}
}

// ResolveRole 返回用户在计划中的角色，不是成员时返回 ErrAccessDenied
func (s *AccessService) ResolveRole(ctx context.Context, userID, planID uint) (string, error) {
	return resolveRole(s.db.WithContext(ctx), userID, planID)
}

// Require 解析角色并校验权限
func (s *AccessService) Require(ctx context.Context, userID, planID uint, capability Capability) (string, error) {
	role, err := s.ResolveRole(ctx, userID, planID)
	if err != nil {
		return "", err
	}
	if err := Authorize(role, capability); err != nil {
		return role, err
	}
	return role, nil
}

// HomePlanID 用户最早加入的计划
func (s *AccessService) HomePlanID(ctx context.Context, userID uint) (uint, error) {
	return homePlanID(s.db.WithContext(ctx), userID)
}

// Authorize 校验角色是否具备权限，不会降级处理
func Authorize(role string, capability Capability) error {
	switch capability {
	case CapRead:
		if models.IsValidRole(role) {
			return nil
		}
	case CapWrite:
		if models.CanWrite(role) {
			return nil
		}
	case CapManage:
		if role == models.RoleOwner {
			return nil
		}
		return ErrOwnerRequired.WithRole(role)
	}
	return ErrForbidden.WithRole(role)
}

func resolveRole(db *gorm.DB, userID, planID uint) (string, error) {
	var member models.PlanMember
	err := db.Select("role").
		Where("user_id = ? AND plan_id = ?", userID, planID).
		Take(&member).Error
	if err != nil {
		return "", notFoundAs(err, ErrAccessDenied)
	}
	return member.Role, nil
}

func homePlanID(db *gorm.DB, userID uint) (uint, error) {
	var member models.PlanMember
	err := db.Select("plan_id").
		Where("user_id = ?", userID).
		Order("joined_at ASC, id ASC").
		Take(&member).Error
	if err != nil {
		return 0, notFoundAs(err, ErrNoPlan)
	}
	return member.PlanID, nil
}
