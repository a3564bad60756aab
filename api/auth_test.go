package api

import (
	"testing"
	"time"

	"envelope/config"
	"envelope/middleware"
	"envelope/service"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAuthRouter(cfg *config.Config, users *service.UserService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewAuthHandler(cfg, users)
	router.POST("/register", h.Register)
	router.POST("/login", h.Login)
	router.POST("/forgot-password", h.ForgotPassword)
	router.POST("/reset-password", h.ResetPassword)
	router.POST("/change-password", setUserIDMiddleware(1), h.ChangePassword)
	return router
}

func TestAuthHandler_Register_EmailExists(t *testing.T) {
	db, mock, cleanup := setupMockDB(t)
	defer cleanup()

	cfg := testConfig()
	config.GlobalConfig = cfg
	defer func() { config.GlobalConfig = nil }()

	// 邮箱已存在
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `users`").
		WithArgs("taken@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(1))

	router := newAuthRouter(cfg, service.NewUserService(db, nil, cfg.OTPTTL()))
	w := doJSON(router, "POST", "/register", `{"email":"Taken@Example.com","password":"password123"}`)

	assert.Equal(t, 400, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, "该邮箱已被注册", resp["message"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthHandler_Register_InvalidBody(t *testing.T) {
	db, mock, cleanup := setupMockDB(t)
	defer cleanup()

	cfg := testConfig()
	router := newAuthRouter(cfg, service.NewUserService(db, nil, cfg.OTPTTL()))

	w := doJSON(router, "POST", "/register", `{"email":"not-an-email","password":"123"}`)
	assert.Equal(t, 400, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthHandler_Login(t *testing.T) {
	db, mock, cleanup := setupMockDB(t)
	defer cleanup()

	cfg := testConfig()
	config.GlobalConfig = cfg
	middleware.InitJWT(cfg)
	defer func() { config.GlobalConfig = nil }()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	mock.ExpectQuery("SELECT \\* FROM `users` WHERE email = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name", "password", "has_completed_onboarding", "created_at", "updated_at"}).
			AddRow(1, "test@example.com", "小明", string(hash), true, time.Now(), time.Now()))

	router := newAuthRouter(cfg, service.NewUserService(db, nil, cfg.OTPTTL()))
	w := doJSON(router, "POST", "/login", `{"email":" TEST@example.com ","password":"password123"}`)

	assert.Equal(t, 200, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, "登录成功", resp["message"])
	data := resp["data"].(map[string]interface{})
	token := data["token"].(string)
	claims, err := middleware.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(1), claims.UserID)
	assert.Equal(t, "test@example.com", claims.Email)

	var found bool
	for _, c := range w.Result().Cookies() {
		if c.Name == "session" {
			found = true
			assert.Equal(t, token, c.Value)
			assert.True(t, c.HttpOnly)
		}
	}
	assert.True(t, found)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthHandler_Login_UserNotFound(t *testing.T) {
	db, mock, cleanup := setupMockDB(t)
	defer cleanup()

	cfg := testConfig()
	middleware.InitJWT(cfg)

	mock.ExpectQuery("SELECT \\* FROM `users` WHERE email = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password"}))

	router := newAuthRouter(cfg, service.NewUserService(db, nil, cfg.OTPTTL()))
	w := doJSON(router, "POST", "/login", `{"email":"nobody@example.com","password":"password123"}`)

	assert.Equal(t, 401, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, "邮箱或密码错误", resp["message"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthHandler_Register_And_ChangePassword(t *testing.T) {
	db := setupSQLiteDB(t)
	cfg := testConfig()
	config.GlobalConfig = cfg
	middleware.InitJWT(cfg)
	defer func() { config.GlobalConfig = nil }()

	router := newAuthRouter(cfg, service.NewUserService(db, nil, cfg.OTPTTL()))

	w := doJSON(router, "POST", "/register", `{"email":"first@example.com","password":"password123","name":"小明"}`)
	require.Equal(t, 200, w.Code, w.Body.String())
	resp := decodeResponse(t, w)
	user := resp["data"].(map[string]interface{})["user_info"].(map[string]interface{})
	assert.Equal(t, "first@example.com", user["email"])
	assert.Equal(t, false, user["has_completed_onboarding"])
	assert.NotContains(t, w.Body.String(), "password\"")

	w = doJSON(router, "POST", "/change-password", `{"old_password":"wrong-password","new_password":"newpassword123"}`)
	assert.Equal(t, 400, w.Code)

	w = doJSON(router, "POST", "/change-password", `{"old_password":"password123","new_password":"newpassword123"}`)
	assert.Equal(t, 200, w.Code, w.Body.String())

	w = doJSON(router, "POST", "/login", `{"email":"first@example.com","password":"newpassword123"}`)
	assert.Equal(t, 200, w.Code)
}

func TestAuthHandler_ForgotPassword(t *testing.T) {
	db := setupSQLiteDB(t)
	cfg := testConfig()
	user := createTestUser(t, db, "password123")
	router := newAuthRouter(cfg, service.NewUserService(db, service.NewEmailService(&config.EmailConfig{}), cfg.OTPTTL()))

	// 未注册邮箱同样返回成功
	w := doJSON(router, "POST", "/forgot-password", `{"email":"ghost@example.com"}`)
	assert.Equal(t, 200, w.Code)

	// 邮件服务未启用
	w = doJSON(router, "POST", "/forgot-password", `{"email":"`+user.Email+`"}`)
	assert.Equal(t, 500, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, "邮件服务未启用", resp["message"])

	w = doJSON(router, "POST", "/reset-password", `{"email":"`+user.Email+`","code":"000000","new_password":"newpassword123"}`)
	assert.Equal(t, 400, w.Code)
}
