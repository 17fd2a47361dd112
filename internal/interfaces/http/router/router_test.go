package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	group := NewDomainGroup("test", "/test").
		GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	NewRouter(engine, WithAPIVersion("v2")).Register(group).Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/test/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/test/ping", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "test", group.Name())
}

func TestDomainGroup_Middleware(t *testing.T) {
	engine := gin.New()
	var seen []string
	group := NewDomainGroup("orders", "/orders").
		Use(func(c *gin.Context) {
			seen = append(seen, c.FullPath())
			c.Next()
		}).
		POST("/:number/confirmation", func(c *gin.Context) { c.Status(http.StatusAccepted) }).
		GET("/:number", func(c *gin.Context) { c.Status(http.StatusOK) })
	NewRouter(engine).Register(group).Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/orders/7/confirmation", nil))
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/orders/7", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, []string{"/api/v1/orders/:number/confirmation", "/api/v1/orders/:number"}, seen)
}
