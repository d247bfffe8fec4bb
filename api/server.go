package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"guideboard/guide"
	"guideboard/store"
	"guideboard/watcher"
)

// Version del server
const Version = "0.2.0"

// Server rappresenta il server API
type Server struct {
	router     *gin.Engine
	store      store.Store
	watcher    *watcher.DocumentWatcher
	hub        *Hub
	logger     *zap.Logger
	wsUpgrader websocket.Upgrader
	port       int
	maxUpload  int64
}

// ServerConfig configurazione del server
type ServerConfig struct {
	Port           int
	Store          store.Store
	Watcher        *watcher.DocumentWatcher // opzionale, solo con lo store su disco
	Logger         *zap.Logger
	EnableCORS     bool
	Debug          bool
	StaticDir      string // directory del client web, opzionale
	MaxUploadBytes int64
}

// NewServer crea un nuovo server API
func NewServer(config ServerConfig) *Server {
	// Imposta modalità Gin
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = 10 << 20
	}

	router := gin.New()
	router.Use(requestLogger(config.Logger), gin.Recovery())
	router.MaxMultipartMemory = config.MaxUploadBytes

	// CORS se abilitato
	if config.EnableCORS {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"*"},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
			AllowCredentials: false,
		}))
	}

	registerValidators(config.Logger)

	server := &Server{
		router:  router,
		store:   config.Store,
		watcher: config.Watcher,
		hub:     NewHub(config.Logger),
		logger:  config.Logger,
		wsUpgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // il client può essere servito da un'altra origine
			},
		},
		port:      config.Port,
		maxUpload: config.MaxUploadBytes,
	}

	server.setupRoutes(config.StaticDir)

	return server
}

// setupRoutes configura tutti gli endpoint
func (s *Server) setupRoutes(staticDir string) {
	api := s.router.Group("/api")
	{
		api.GET("/health", s.healthCheck)

		// Utenti e documenti
		api.GET("/users", s.listUsers)
		api.POST("/users", s.createUser)
		api.GET("/users/:username/data", s.getDocument)
		api.PUT("/users/:username/data", s.putDocument)

		// Immagini
		api.POST("/users/:username/images", s.uploadImage)

		// Backup
		api.GET("/users/:username/export", s.exportBundle)
		api.POST("/users/:username/import", s.mergeImport)
		api.POST("/import", s.newUserImport)
	}

	s.router.GET("/users/:username/images/:filename", s.serveImage)

	// WebSocket endpoint
	s.router.GET("/ws", s.handleWebSocket)

	// Client web statico
	if staticDir != "" {
		s.router.NoRoute(gin.WrapH(http.FileServer(http.Dir(staticDir))))
	}
}

// Handler espone il router (usato dai test e da chi monta il server altrove)
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub restituisce l'hub degli eventi live
func (s *Server) Hub() *Hub {
	return s.hub
}

// Run avvia il server e lo ferma quando il context viene cancellato
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watcher != nil {
		go s.forwardWatcherEvents()
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("🚀 Server avviato", zap.String("url", "http://localhost"+addr))
		s.logger.Info("📚 API disponibile", zap.String("url", "http://localhost"+addr+"/api"))
		s.logger.Info("🔌 WebSocket", zap.String("url", "ws://localhost"+addr+"/ws"))
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.hub.CloseAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("errore arresto server: %w", err)
	}
	s.logger.Info("🛑 Server fermato")
	return nil
}

// ============================================
// Middleware
// ============================================

// requestLogger registra ogni richiesta con zap
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Error("richiesta fallita", fields...)
			return
		}
		logger.Debug("richiesta", fields...)
	}
}

// registerValidators aggiunge la regola "username" ai binding di gin
func registerValidators(logger *zap.Logger) {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	err := v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return guide.ValidateUsername(fl.Field().String()) == nil
	})
	if err != nil {
		logger.Warn("impossibile registrare il validatore username", zap.Error(err))
	}
}

// ============================================
// Handlers
// ============================================

// healthCheck verifica lo stato del server
func (s *Server) healthCheck(c *gin.Context) {
	hostname, _ := os.Hostname()
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"version":  Version,
		"hostname": hostname,
		"clients":  s.hub.Count(),
	})
}

// fail traduce un errore nella risposta HTTP corrispondente
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrImageNotFound),
		errors.Is(err, store.ErrInvalidImage):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrUserExists),
		errors.Is(err, store.ErrUserRequired),
		errors.Is(err, guide.ErrMalformedBundle),
		errors.Is(err, guide.ErrInvalidDocument),
		errors.Is(err, guide.ErrInvalidUsername):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(status, gin.H{"error": "Errore interno del server"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
