package testutil

import (
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/interfaces/http/dto"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMockDB(t *testing.T) {
	mockDB := NewMockDB(t)

	mockDB.Mock.ExpectQuery(`SELECT count\(\*\) FROM "orders"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	var count int64
	require.NoError(t, mockDB.DB.Table("orders").Count(&count).Error)
	assert.Equal(t, int64(3), count)
	mockDB.ExpectationsWereMet(t)
}

func TestNewTestUUID_Deterministic(t *testing.T) {
	assert.Equal(t, NewTestUUID("seed"), NewTestUUID("seed"))
	assert.NotEqual(t, NewTestUUID("seed"), NewTestUUID("other"))
	assert.NotEqual(t, TestOrganizationID(), TestUserID())
}

func TestWaitForCondition(t *testing.T) {
	start := time.Now()
	assert.True(t, WaitForCondition(func() bool { return time.Since(start) > 20*time.Millisecond }, time.Second, 5*time.Millisecond))
	assert.False(t, WaitForCondition(func() bool { return false }, 20*time.Millisecond, 5*time.Millisecond))
}

func TestAssertNever(t *testing.T) {
	AssertNever(t, func() bool { return false }, 20*time.Millisecond, 5*time.Millisecond)
}

func echoActorEngine() *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	api := r.Group("/api/v1", middleware.Actor(middleware.DefaultActorConfig()))
	api.GET("/whoami", func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)
		c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{
			"organization_id": actor.OrganizationID.String(),
			"automated":       actor.Automated,
		}))
	})
	api.POST("/fail", func(c *gin.Context) {
		c.JSON(http.StatusConflict, dto.NewErrorResponse("CONCURRENT_MODIFICATION", "stale"))
	})
	return r
}

func TestAPIClient_SendsActorHeaders(t *testing.T) {
	client := NewAPIClient(echoActorEngine())

	got := DecodeData[map[string]any](t, client.Do(t, http.MethodGet, "/api/v1/whoami", nil), http.StatusOK)
	assert.Equal(t, TestOrganizationID().String(), got["organization_id"])
	assert.Equal(t, false, got["automated"])

	got = DecodeData[map[string]any](t, client.AsPipeline().Do(t, http.MethodGet, "/api/v1/whoami", nil), http.StatusOK)
	assert.Equal(t, true, got["automated"])
}

func TestAssertErrorResponse(t *testing.T) {
	client := NewAPIClient(echoActorEngine())

	info := AssertErrorResponse(t, client.Do(t, http.MethodPost, "/api/v1/fail", map[string]string{"a": "b"}),
		http.StatusConflict, "CONCURRENT_MODIFICATION")
	assert.Equal(t, "stale", info.Message)
}
