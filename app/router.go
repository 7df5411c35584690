package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"bitwise74/seed-swap/app/api"
	"bitwise74/seed-swap/app/root"
	"bitwise74/seed-swap/app/seed"
	"bitwise74/seed-swap/app/user"
	"bitwise74/seed-swap/app/web"
	"bitwise74/seed-swap/cloudflare"
	"bitwise74/seed-swap/internal"
	"bitwise74/seed-swap/internal/apperr"
	"bitwise74/seed-swap/pkg/middleware"

	cache "github.com/chenyahui/gin-cache"
	"github.com/chenyahui/gin-cache/persist"
	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Plain forms only carry a handful of short fields
const formBodyLimit = 64 << 10

// NewRouter builds the HTTP handler. Background work started here stops
// when ctx is done.
func NewRouter(ctx context.Context, d *internal.Deps) (*gin.Engine, error) {
	cfg := d.Config

	renderer, err := web.NewRenderer(d.Images)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates, %w", err)
	}

	store := persist.NewMemoryStore(time.Minute)

	router := gin.New()
	router.HTMLRender = renderer

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true
	router.MaxMultipartMemory = cfg.Upload.MaxSize

	reject := web.Reject(d)

	router.Use(
		gin.CustomRecovery(func(c *gin.Context, v any) {
			web.ErrorPage(c, d, http.StatusInternalServerError, fmt.Errorf("panic: %v", v))
		}),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == http.MethodHead
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString(middleware.RequestIDKey); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString(middleware.UserIDKey); v != "" {
					fields = append(fields, zap.String("userID", v))
				}

				return fields
			},
		}),
		middleware.SecurityHeaders(),
	)

	// Behind a TLS terminating proxy the app only sees plain HTTP
	if cfg.IsProduction() && !cfg.Host.SSL.Enabled {
		router.Use(middleware.HTTPSRedirect())
	}

	router.Use(middleware.NewSessionMiddleware(d.Sessions))

	if cfg.Storage.Type == "local" {
		router.Static(cfg.Storage.PublicPath, cfg.Storage.LocalDir)
	}

	router.NoRoute(func(c *gin.Context) {
		web.ErrorPage(c, d, http.StatusNotFound, apperr.NotFound("Page not found"))
	})

	var verifier middleware.TurnstileVerifier
	if cfg.Cloudflare.Turnstile.Enabled {
		verifier = cloudflare.NewTurnstile(cfg.Cloudflare.Turnstile.SecretToken)
	}
	turnstile := middleware.NewTurnstileMiddleware(verifier, reject)

	// Login and registration each get their own budget
	loginLimiter := newAuthLimiter(ctx, d, reject)
	registerLimiter := newAuthLimiter(ctx, d, reject)

	auth := middleware.RequireAuth()
	formLimit := middleware.BodySizeLimiter(formBodyLimit, reject)
	uploadLimit := middleware.BodySizeLimiter(cfg.Upload.MaxSize+1<<20, reject)

	// GET /				-> Landing page
	router.GET("/", func(c *gin.Context) { root.Home(c, d) })

	// GET /dashboard		-> Landing page of logged in users
	router.GET("/dashboard", auth, func(c *gin.Context) { root.Dashboard(c, d) })

	// GET|POST /register		-> Registration form and submit
	router.GET("/register", func(c *gin.Context) { user.RegisterForm(c, d) })
	router.POST("/register", registerLimiter.Middleware(), uploadLimit, turnstile, func(c *gin.Context) { user.UserRegister(c, d) })

	// GET|POST /login		-> Login form and submit
	router.GET("/login", func(c *gin.Context) { user.LoginForm(c, d) })
	router.POST("/login", loginLimiter.Middleware(), formLimit, turnstile, func(c *gin.Context) { user.UserLogin(c, d) })

	// GET /logout			-> Destroys the session
	router.GET("/logout", auth, func(c *gin.Context) { user.UserLogout(c, d) })

	// GET|POST /profile/edit	-> Own profile
	router.GET("/profile/edit", auth, func(c *gin.Context) { user.ProfileForm(c, d) })
	router.POST("/profile/edit", auth, uploadLimit, func(c *gin.Context) { user.ProfileUpdate(c, d) })

	s := router.Group("/seeds")
	{
		// GET /seeds/			-> All listings
		s.GET("/", func(c *gin.Context) { seed.SeedsAll(c, d) })

		// GET /seeds/search?q=		-> Listings matching q
		s.GET("/search", func(c *gin.Context) { seed.SeedsSearch(c, d) })

		// POST /seeds/contact		-> Mail links for the selected listings
		s.POST("/contact", formLimit, func(c *gin.Context) { seed.SeedsContact(c, d) })

		// GET|POST /seeds/new		-> Create a listing
		s.GET("/new", auth, func(c *gin.Context) { seed.NewForm(c, d) })
		s.POST("/new", auth, uploadLimit, func(c *gin.Context) { seed.SeedCreate(c, d) })

		// GET /seeds/mine		-> Own listings
		s.GET("/mine", auth, func(c *gin.Context) { seed.SeedsMine(c, d) })

		// GET|POST /seeds/edit/:id	-> Edit an own listing
		s.GET("/edit/:id", auth, func(c *gin.Context) { seed.EditForm(c, d) })
		s.POST("/edit/:id", auth, uploadLimit, func(c *gin.Context) { seed.SeedEdit(c, d) })

		// POST /seeds/delete/:id	-> Delete an own listing
		s.POST("/delete/:id", auth, formLimit, func(c *gin.Context) { seed.SeedDelete(c, d) })
	}

	m := router.Group("/api", cors.New(corsConfig(cfg.Host.CORS)))
	{
		// HEAD /api/heartbeat 		-> Used to check if the server is alive
		m.HEAD("/heartbeat", root.Heartbeat)
		m.GET("/heartbeat", root.Heartbeat)

		// GET /api/seeds		-> All listings as JSON
		m.GET("/seeds", cacheFor(store, 15), func(c *gin.Context) { api.SeedsFetch(c, d) })

		// GET /api/seeds/search?q=	-> Listings matching q as JSON
		m.GET("/seeds/search", cacheFor(store, 15), func(c *gin.Context) { api.SeedsSearch(c, d) })

		// GET /api/seeds/mine		-> Own listings as JSON, never cached
		m.GET("/seeds/mine", middleware.RequireAuthJSON(), func(c *gin.Context) { api.SeedsMine(c, d) })
	}

	return router, nil
}

func newAuthLimiter(ctx context.Context, d *internal.Deps, reject middleware.RejectFunc) *middleware.RateLimiter {
	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Limit:  d.Config.Security.AuthRateLimit,
		Window: d.Config.Security.AuthRateWindow,
		Reject: reject,
	})

	go rl.Cleanup(ctx.Done())
	return rl
}

// corsConfig opens the read only API to every origin unless host.cors
// lists some. Credentials stay off so the session backed /api/seeds/mine
// only answers same-origin callers.
func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "HEAD", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}

	if len(origins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}

	return c
}

func cacheFor(store persist.CacheStore, sec int) gin.HandlerFunc {
	return cache.CacheByRequestURI(store, time.Second*time.Duration(sec))
}
