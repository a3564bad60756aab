package router

import (
	"time"

	"envelope/api"
	"envelope/config"
	_ "envelope/docs"
	"envelope/middleware"
	"envelope/service"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// Services 路由与定时任务共用的服务实例
type Services struct {
	Access      *service.AccessService
	Accounts    *service.AccountService
	Categories  *service.CategoryService
	Ledger      *service.LedgerService
	Plans       *service.PlanService
	Invitations *service.InvitationService
	Messages    *service.MessageService
	Notes       *service.NoteService
	Goals       *service.GoalService
	Users       *service.UserService
}

// NewServices 组装服务，汇总缓存与事件通知在各服务间共享
func NewServices(cfg *config.Config, db *gorm.DB, notifier service.Notifier) *Services {
	cache := service.NewSummaryCache(cfg.Cache.SummaryTTL)
	mailer := service.NewEmailService(&cfg.Email)
	return &Services{
		Access:      service.NewAccessService(db),
		Accounts:    service.NewAccountService(db, cache),
		Categories:  service.NewCategoryService(db, cache),
		Ledger:      service.NewLedgerService(db, cache, notifier),
		Plans:       service.NewPlanService(db, cache, notifier),
		Invitations: service.NewInvitationService(db, cfg, mailer, notifier),
		Messages:    service.NewMessageService(db, notifier),
		Notes:       service.NewNoteService(db),
		Goals:       service.NewGoalService(db),
		Users:       service.NewUserService(db, mailer, cfg.OTPTTL()),
	}
}

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, svc *Services) *gin.Engine {
	// 设置运行模式
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Swagger 文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	read := middleware.PlanAccess(svc.Access, service.CapRead)
	write := middleware.PlanAccess(svc.Access, service.CapWrite)
	planRead := middleware.PlanParamAccess(svc.Access, "id", service.CapRead)
	planManage := middleware.PlanParamAccess(svc.Access, "id", service.CapManage)

	v1 := r.Group("/api/v1")
	{
		// 认证相关路由（无需登录）
		authHandler := api.NewAuthHandler(cfg, svc.Users)
		limiter := middleware.LoginRateLimit(10, time.Minute)
		auth := v1.Group("/auth")
		{
			auth.POST("/register", limiter, authHandler.Register)
			auth.POST("/login", limiter, authHandler.Login)

			// 忘记密码
			auth.POST("/forgot-password", limiter, authHandler.ForgotPassword)
			auth.POST("/verify-otp", limiter, authHandler.VerifyOTP)
			auth.POST("/reset-password", limiter, authHandler.ResetPassword)
		}

		// 定时任务回调，使用固定令牌
		messageHandler := api.NewMessageHandler(svc.Messages)
		v1.POST("/messages/cleanup", middleware.StaticBearer(cfg.Cleanup.Token), messageHandler.Cleanup)

		// 需要登录的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth())
		{
			authorized.POST("/auth/logout", authHandler.Logout)
			authorized.POST("/auth/change-password", authHandler.ChangePassword)

			userHandler := api.NewUserHandler(svc.Users)
			authorized.GET("/user/profile", userHandler.GetProfile)
			authorized.PUT("/user/profile", userHandler.UpdateProfile)
			authorized.POST("/onboarding/complete", userHandler.CompleteOnboarding)

			// 账户
			accountHandler := api.NewAccountHandler(svc.Accounts)
			accounts := authorized.Group("/accounts")
			{
				accounts.GET("", read, accountHandler.List)
				accounts.POST("", write, accountHandler.Create)
				accounts.GET("/:id", read, accountHandler.Get)
				accounts.PUT("/:id", write, accountHandler.Update)
				accounts.DELETE("/:id", write, accountHandler.Delete)
			}

			// 预算
			budgetHandler := api.NewBudgetHandler(svc.Ledger, svc.Plans)
			budgets := authorized.Group("/budgets")
			{
				budgets.GET("", read, budgetHandler.Summary)
				budgets.POST("", budgetHandler.CreatePlan)
				budgets.PUT("/:categoryId", write, budgetHandler.UpdateBudget)
			}

			// 类别
			categoryHandler := api.NewCategoryHandler(svc.Categories)
			categories := authorized.Group("/categories")
			{
				categories.GET("", read, categoryHandler.Structure)
				categories.POST("", write, categoryHandler.CreateGroup)
				categories.POST("/move", write, categoryHandler.MoveCategory)
				categories.PUT("/:groupId", write, categoryHandler.UpdateGroup)
				categories.DELETE("/:groupId", write, categoryHandler.DeleteGroup)
				categories.POST("/:groupId/categories", write, categoryHandler.CreateCategory)
				categories.PUT("/:groupId/categories/:categoryId", write, categoryHandler.UpdateCategory)
				categories.DELETE("/:groupId/categories/:categoryId", write, categoryHandler.DeleteCategory)
			}

			// 交易
			transactionHandler := api.NewTransactionHandler(svc.Ledger)
			exportHandler := api.NewExportHandler(svc.Ledger, svc.Messages)
			transactions := authorized.Group("/transactions")
			{
				transactions.GET("", read, transactionHandler.List)
				transactions.POST("", write, transactionHandler.Create)
				transactions.GET("/export", read, exportHandler.ExportTransactions)
				transactions.GET("/:id", read, transactionHandler.Get)
				transactions.PATCH("/:id", write, transactionHandler.Update)
				transactions.DELETE("/:id", write, transactionHandler.Delete)
			}

			// 目标
			goalHandler := api.NewGoalHandler(svc.Goals)
			goals := authorized.Group("/goals")
			{
				goals.GET("", read, goalHandler.List)
				goals.POST("", write, goalHandler.Create)
				goals.GET("/:id", read, goalHandler.Get)
				goals.PUT("/:id", write, goalHandler.Update)
				goals.DELETE("/:id", write, goalHandler.Delete)
			}

			// 备注
			noteHandler := api.NewNoteHandler(svc.Notes)
			notes := authorized.Group("/notes")
			{
				notes.GET("", read, noteHandler.List)
				notes.POST("", write, noteHandler.Create)
				notes.GET("/:id", read, noteHandler.Get)
				notes.PUT("/:id", write, noteHandler.Update)
				notes.DELETE("/:id", write, noteHandler.Delete)
			}

			// 计划与成员
			planHandler := api.NewPlanHandler(svc.Plans, svc.Invitations)
			authorized.GET("/groups", planHandler.List)
			groups := authorized.Group("/groups/:id")
			{
				groups.GET("", planRead, planHandler.Get)
				groups.PATCH("", planManage, planHandler.Update)
				groups.DELETE("", planManage, planHandler.Delete)
				groups.GET("/members", planRead, planHandler.ListMembers)
				groups.PATCH("/members/:memberId", planManage, planHandler.UpdateMemberRole)
				groups.DELETE("/members/:memberId", planManage, planHandler.RemoveMember)
				groups.GET("/invitations", planManage, planHandler.ListInvitations)
				groups.DELETE("/invitations/:invitationId", planManage, planHandler.RevokeInvitation)
			}

			// 邀请，发送时由服务校验 plan_id 的所有者权限
			invitationHandler := api.NewInvitationHandler(svc.Invitations)
			invitations := authorized.Group("/invitations")
			{
				invitations.POST("/send", invitationHandler.Send)
				invitations.GET("/accept", invitationHandler.Preview)
				invitations.POST("/accept", invitationHandler.Accept)
			}

			// 消息
			messages := authorized.Group("/messages")
			{
				messages.GET("", read, messageHandler.List)
				messages.POST("", read, messageHandler.Create)
				messages.GET("/export", read, exportHandler.ExportMessages)
				messages.DELETE("/:id", read, messageHandler.Delete)
			}
		}
	}

	return r
}

// CORSMiddleware CORS 跨域中间件
// allowed_origins 为空或包含 * 时允许任意来源但不携带凭证
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case len(allowed) == 0 || allowed["*"]:
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		case allowed[origin]:
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Add("Vary", "Origin")
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Plan-ID, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
