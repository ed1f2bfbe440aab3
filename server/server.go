package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"estante/books"
	"estante/cache"
	"estante/common"
	"estante/engagement"
	"estante/identity"
	"estante/metrics"
	"estante/middleware"
	"estante/reviews"
	"estante/social"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	router  *gin.Engine
	limiter *middleware.RateLimiter
	cfg     common.Config
	log     logrus.FieldLogger
}

// New assembles every module onto one router. catalog is the upstream book
// catalog used to fill the book cache.
func New(db *gorm.DB, cfg common.Config, log logrus.FieldLogger, catalog books.Catalog) *Server {
	if cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	// ClientIP is the socket address; forwarded headers are client-controlled.
	if err := router.SetTrustedProxies(nil); err != nil {
		log.WithError(err).Warn("could not reset trusted proxies")
	}
	router.Use(
		middleware.RequestID(),
		middleware.Logger(log),
		metrics.Middleware(),
		cache.ETag(),
		middleware.Recovery(log),
	)

	limiter := middleware.NewRateLimiter(float64(cfg.AuthRateLimitRPS), cfg.AuthRateLimitBurst, log)
	authLimit := limiter.Handler()
	if cfg.AuthRateLimitRPS <= 0 {
		authLimit = func(c *gin.Context) { c.Next() }
	}

	identityModule := identity.NewIdentityModule(db, cfg, log)
	identityModule.RegisterRoutes(router, authLimit)

	booksModule := books.NewBooksModule(db, catalog, log)
	booksModule.RegisterRoutes(router)

	reviewsModule := reviews.NewReviewsModule(db, booksModule, log)
	reviewsModule.RegisterRoutes(router, identityModule.RequireAuth)

	engagementModule := engagement.NewEngagementModule(db, log)
	engagementModule.RegisterRoutes(router, identityModule.RequireAuth)

	socialModule := social.NewSocialModule(db, log)
	socialModule.RegisterRoutes(router, identityModule.RequireAuth)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	return &Server{
		router:  router,
		limiter: limiter,
		cfg:     cfg,
		log:     log,
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.limiter.StartCleanup(time.Minute, ctx.Done())

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("port", s.cfg.Port).Info("starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
