package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/desa-connect/aspirasi-api/internal/models"
)

func performGuarded(claims *models.JWTClaims, roles ...models.UserRole) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/guarded",
		func(c *gin.Context) {
			if claims != nil {
				c.Set(ContextUserKey, claims)
			}
		},
		RequireRoles(roles...),
		func(c *gin.Context) {
			c.Status(http.StatusOK)
		},
	)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	r.ServeHTTP(w, req)
	return w
}

func TestRequireRolesAllowsListedRole(t *testing.T) {
	claims := &models.JWTClaims{UserID: "admin1", Role: models.RoleAdmin}
	w := performGuarded(claims, models.RoleAdmin)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRolesRejectsOtherRole(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u1", Role: models.RoleWarga}
	w := performGuarded(claims, models.RoleAdmin)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRolesRejectsMissingClaims(t *testing.T) {
	w := performGuarded(nil, models.RoleAdmin)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
