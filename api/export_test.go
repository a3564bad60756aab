package api

import (
	"bytes"
	"net/http/httptest"
	"testing"
	"time"

	"envelope/models"
	"envelope/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportHandler_ExportTransactions(t *testing.T) {
	db := setupSQLiteDB(t)
	owner := createTestUser(t, db, "password123")
	plan := createTestPlan(t, db, owner)

	account := &models.Account{PlanID: plan.ID, Name: "Checking", Type: models.AccountChecking, Balance: decimal.NewFromInt(500), IsOnBudget: true}
	require.NoError(t, db.Create(account).Error)

	ledger := service.NewLedgerService(db, nil, nil)
	_, err := ledger.PostTransaction(t.Context(), service.PostTransactionInput{
		PlanID:        plan.ID,
		UserID:        owner.ID,
		Date:          time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		Amount:        decimal.NewFromInt(-20),
		Payee:         "Bakery",
		FromAccountID: account.ID,
	})
	require.NoError(t, err)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(setPlanMiddleware(owner.ID, plan.ID, models.RoleViewer))
	h := NewExportHandler(ledger, service.NewMessageService(db, nil))
	router.GET("/transactions/export", h.ExportTransactions)
	router.GET("/messages/export", h.ExportMessages)

	req := httptest.NewRequest("GET", "/transactions/export?month=2025-03", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, 200, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 2)
	assert.Equal(t, "2025-03-14", rows[1][0])
	assert.Contains(t, rows[1], "Bakery")

	// 不支持的格式
	req = httptest.NewRequest("GET", "/messages/export?format=pdf", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, 400, w.Code)

	req = httptest.NewRequest("GET", "/transactions/export?month=bad", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, 400, w.Code)
}
