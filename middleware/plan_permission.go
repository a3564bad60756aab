package middleware

import (
	"strconv"
	"strings"

	"envelope/service"

	"github.com/gin-gonic/gin"
)

// PlanHeader 指定当前计划的请求头
const PlanHeader = "X-Plan-ID"

// PlanAccess 计划权限校验中间件，需在 JWTAuth 之后使用
// 计划来自 X-Plan-ID 请求头或 plan_id 查询参数，缺省为用户最早加入的计划
func PlanAccess(access *service.AccessService, capability service.Capability) gin.HandlerFunc {
	return planGate(access, capability, func(c *gin.Context) (uint, bool, error) {
		raw := strings.TrimSpace(c.GetHeader(PlanHeader))
		if raw == "" {
			raw = strings.TrimSpace(c.Query("plan_id"))
		}
		if raw == "" {
			return 0, false, nil
		}
		id, err := parseID(raw)
		return id, true, err
	})
}

// PlanParamAccess 从路径参数读取计划 ID，用于 /groups/:id
func PlanParamAccess(access *service.AccessService, param string, capability service.Capability) gin.HandlerFunc {
	return planGate(access, capability, func(c *gin.Context) (uint, bool, error) {
		id, err := parseID(c.Param(param))
		return id, true, err
	})
}

func planGate(access *service.AccessService, capability service.Capability, resolve func(*gin.Context) (uint, bool, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := GetCurrentUserID(c)
		if userID == 0 {
			AbortWithError(c, service.ErrUnauthorized)
			return
		}

		planID, explicit, err := resolve(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if !explicit {
			if planID, err = access.HomePlanID(c.Request.Context(), userID); err != nil {
				AbortWithError(c, err)
				return
			}
		}

		role, err := access.Require(c.Request.Context(), userID, planID, capability)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set("planID", planID)
		c.Set("planRole", role)
		c.Next()
	}
}

// GetCurrentPlanID 当前请求作用的计划 ID
func GetCurrentPlanID(c *gin.Context) uint {
	if v, ok := c.Get("planID"); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

// GetPlanRole 当前用户在计划中的角色
func GetPlanRole(c *gin.Context) string {
	return c.GetString("planRole")
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, service.ErrInvalidInput.WithDetails("无效的计划 ID: " + raw)
	}
	return uint(id), nil
}
