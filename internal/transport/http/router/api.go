package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"lendtrack/internal/core/auth"
	"lendtrack/internal/transport/http/handler"
	mdw "lendtrack/internal/transport/http/middleware"
)

type Handlers struct {
	Operator *handler.OperatorHandler
	Person   *handler.PersonHandler
	Catalog  *handler.CatalogHandler
	Lending  *handler.LendingHandler
}

// NewAPIEngine assembles the middleware chain and mounts every route. The
// login and password-recovery endpoints are public, everything else sits
// behind the JWT middleware.
func NewAPIEngine(l *zap.Logger, jwter *auth.JWTer, frontendURL string, h Handlers) *gin.Engine {
	r := gin.New()

	corsCfg := cors.DefaultConfig()
	if frontendURL != "" {
		corsCfg.AllowOrigins = []string{frontendURL}
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	corsCfg.ExposeHeaders = append(corsCfg.ExposeHeaders, "Authorization")

	r.Use(
		mdw.RequestID(),
		cors.New(corsCfg),
		mdw.RateLimit(200, 400),
		mdw.ConcurrencyLimit(300),
		mdw.MaxBodyBytes(16<<20),
		mdw.Timeout(10*time.Second),
		ginzap.RecoveryWithZap(l, true),
		mdw.Metrics(),
		mdw.AccessLog(l),
	)

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public
	r.POST("/login", h.Operator.Login)
	r.POST("/recoverpassword", h.Operator.RecoverPassword)
	r.POST("/changepassword", h.Operator.ChangePassword)

	// Authenticated
	api := r.Group("", mdw.AuthJWT(jwter))

	api.GET("/home", h.Operator.Home)

	api.GET("/user", h.Operator.List)
	api.POST("/user", h.Operator.Create)
	api.PUT("/user", h.Operator.Update)

	api.GET("/person", h.Person.List)
	api.GET("/person/:id", h.Person.Get)
	api.POST("/person", h.Person.Create)
	api.PUT("/person", h.Person.Update)

	api.GET("/item", h.Catalog.ListItems)
	api.GET("/item/:id", h.Catalog.GetItem)
	api.POST("/item", h.Catalog.CreateItem)
	api.PUT("/item", h.Catalog.UpdateItem)

	api.GET("/itemPatrimony", h.Catalog.ListUnits)
	api.POST("/itemPatrimony", h.Catalog.CreateUnit)
	api.PUT("/itemPatrimony", h.Catalog.UpdateUnit)

	api.GET("/lending", h.Lending.List)
	api.GET("/lending/:id", h.Lending.Get)
	api.POST("/lending", h.Lending.Create)
	api.PUT("/lending", h.Lending.Swap)
	api.POST("/addItem", h.Lending.AddUnits)
	api.POST("/return", h.Lending.Return)

	return r
}
