package web

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"motoroute/auth"
	dbt "motoroute/db/db"
	"motoroute/mq/mq"
	"motoroute/route"
	"motoroute/session"
	"motoroute/share"
	"motoroute/trip"
)

type ServiceConfig struct {
	IsDev          bool
	Port           string
	ShareBaseURL   string
	JWTSecret      string
	TokenTTL       time.Duration
	GoogleClientID string
	RateLimit      int64 // requests per hour per client
}

// Deps are the collaborators the server is built on; cmd wires them from config.
type Deps struct {
	Store  dbt.Store
	Queue  mq.TripEventQueue
	Router route.Router
	// Google overrides the verifier built from GoogleClientID.
	Google auth.FederatedVerifier
}

type Server struct {
	cfg      ServiceConfig
	store    dbt.Store
	queue    mq.TripEventQueue
	agg      *route.Aggregator
	trips    *trip.Manager
	shares   *share.Service
	auth     *auth.Service
	sessions *session.Registry
	upgrader websocket.Upgrader
	engine   *gin.Engine
}

func NewServer(cfg ServiceConfig, deps Deps) *Server {
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 1000
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 7 * 24 * time.Hour
	}

	var authOpts []auth.Option
	switch {
	case deps.Google != nil:
		authOpts = append(authOpts, auth.WithGoogleVerifier(deps.Google))
	case cfg.GoogleClientID != "":
		authOpts = append(authOpts, auth.WithGoogleVerifier(auth.NewGoogleVerifier(cfg.GoogleClientID)))
	}

	var tripOpts []trip.Option
	if deps.Queue != nil {
		tripOpts = append(tripOpts, trip.WithQueue(deps.Queue))
	}

	s := &Server{
		cfg:   cfg,
		store: deps.Store,
		queue: deps.Queue,
		agg:   route.NewAggregator(deps.Router),
		trips: trip.NewManager(deps.Store, tripOpts...),
		auth:  auth.NewService(deps.Store, cfg.JWTSecret, cfg.TokenTTL, authOpts...),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// allow all origins for WebSocket connections
				// should only in dev
				return cfg.IsDev
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	s.shares = share.NewService(deps.Store, s.trips, cfg.ShareBaseURL)
	s.sessions = session.NewRegistry(s.agg, s.trips)
	s.sessions.Attach(s.auth)
	s.engine = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	if !s.cfg.IsDev {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	setupMiddlewares(r, s.cfg)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.Use(TripDataLoaderInjectionMiddleware(s.store))
	requireAuth := AuthMiddleware(s.auth)

	authGroup := api.Group("/auth")
	authGroup.POST("/signup", s.signUp)
	authGroup.POST("/signin", s.signIn)
	authGroup.POST("/google", s.signInWithGoogle)
	authGroup.POST("/signout", requireAuth, s.signOut)
	authGroup.GET("/me", requireAuth, s.me)

	api.POST("/route", s.computeRoute)

	trips := api.Group("/trips", requireAuth)
	trips.GET("", s.listTrips)
	trips.POST("", s.createTrip)
	trips.GET("/:id", s.getTrip)
	trips.PUT("/:id", s.updateTrip)
	trips.DELETE("/:id", s.deleteTrip)
	trips.POST("/:id/share", s.enableSharing)
	trips.DELETE("/:id/share", s.disableSharing)

	shared := api.Group("/shared")
	shared.POST("/resolve", s.resolveShared)
	shared.GET("/:token", s.getShared)
	shared.GET("/:token/events", s.sharedEvents)
	shared.POST("/:token/copy", requireAuth, s.copyShared)

	editor := api.Group("/session", requireAuth)
	editor.GET("", s.editorState)
	editor.POST("/waypoints", s.addWaypoint)
	editor.DELETE("/waypoints/:waypointId", s.removeWaypoint)
	editor.DELETE("/waypoints", s.clearWaypoints)
	editor.PUT("/preferences", s.setPreferences)
	editor.POST("/new", s.newTrip)
	editor.POST("/save", s.saveTrip)
	editor.POST("/load/:id", s.loadTrip)
	editor.DELETE("/trips/:id", s.deleteSessionTrip)

	return r
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Listening on :%s", s.cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.sessions.CloseAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Println("Server exited")
	return nil
}
