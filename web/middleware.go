package web

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"motoroute/auth"
	dbt "motoroute/db/db"
)

const principalKey = "principal"

func CorsConfig() cors.Config {
	corsConf := cors.DefaultConfig()
	corsConf.AllowAllOrigins = true
	corsConf.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConf.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Requested-With"}
	corsConf.AllowCredentials = true
	corsConf.MaxAge = 1 * 3600 // 1 hours
	return corsConf
}

func limiterMiddleWare(limit int64) gin.HandlerFunc {
	rate := limiter.Rate{
		Period: 1 * time.Hour,
		Limit:  limit,
	}
	store := memory.NewStore()
	instance := limiter.New(store, rate)
	return mgin.NewMiddleware(instance)
}

// TripDataLoaderInjectionMiddleware gives every request its own batching trip loader.
func TripDataLoaderInjectionMiddleware(wrapper dbt.TripDBWrapper) gin.HandlerFunc {
	return func(c *gin.Context) {
		loader := dbt.NewTripDataLoader(wrapper)
		c.Request = c.Request.WithContext(dbt.WithTripDataLoader(c.Request.Context(), loader))
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	// browsers cannot set headers on websocket upgrades
	return c.Query("access_token")
}

// AuthMiddleware rejects requests without a valid session token.
func AuthMiddleware(a *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: auth.UserMessage(&auth.Error{Code: auth.CodeInvalidSession})})
			return
		}
		p, err := a.Authenticate(c.Request.Context(), token)
		if err != nil {
			writeError(c, "authenticate", err)
			c.Abort()
			return
		}
		c.Set(principalKey, p)
		c.Request = c.Request.WithContext(auth.WithPrincipal(c.Request.Context(), p))
		c.Next()
	}
}

func principalFrom(c *gin.Context) *auth.Principal {
	p, _ := auth.FromContext(c.Request.Context())
	return p
}

func setupMiddlewares(r *gin.Engine, cfg ServiceConfig) {
	r.Use(limiterMiddleWare(cfg.RateLimit))
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(cors.New(CorsConfig()))
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(secure.New(secure.Config{
		IsDevelopment:        cfg.IsDev,
		STSSeconds:           31536000, // 1 year
		STSIncludeSubdomains: true,
		FrameDeny:            true,
		ContentTypeNosniff:   true,
		BrowserXssFilter:     true,
		ReferrerPolicy:       "strict-origin-when-cross-origin",
	}))
}
