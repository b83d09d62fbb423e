package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	authUsecase "sustainly-backend/internal/auth/usecase"
	historyCache "sustainly-backend/internal/history/cache"
	historyDomain "sustainly-backend/internal/history/domain"
	historyRepo "sustainly-backend/internal/history/repository"
	historyUsecasePkg "sustainly-backend/internal/history/usecase"
	productRepo "sustainly-backend/internal/product/repository"
	productScheduler "sustainly-backend/internal/product/scheduler"
	productUsecasePkg "sustainly-backend/internal/product/usecase"
	"sustainly-backend/pkg/ai"
	"sustainly-backend/pkg/chroma"
	"sustainly-backend/pkg/config"
	"sustainly-backend/pkg/logger"
	"sustainly-backend/pkg/metrics"
	"sustainly-backend/pkg/pagemeta"
	"sustainly-backend/pkg/sse"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	authUsecase    authUsecase.AuthUsecase
	productUsecase productUsecasePkg.ProductUsecase
	historyUsecase historyUsecasePkg.HistoryUsecase
	sseManager     *sse.Manager
	settings       *RuntimeSettings
	purgeScheduler *productScheduler.ScorePurgeScheduler
	metrics        *metrics.Metrics
	config         *config.Config
	log            *logger.Logger
}

// ssePublisher adapts the SSE manager to the history Publisher interface
type ssePublisher struct {
	manager *sse.Manager
}

func (p *ssePublisher) PublishSnapshot(userID string, items []historyDomain.HistoryItem) {
	p.manager.SendToUser(userID, "history_snapshot", items)
}

func (p *ssePublisher) PublishItem(userID string, index int, item historyDomain.HistoryItem) {
	p.manager.SendToUser(userID, "history_item", gin.H{"index": index, "item": item})
}

func NewHandler(
	authUc authUsecase.AuthUsecase,
	scoreRepository productRepo.ProductScoreRepository,
	historyRepository historyRepo.HistoryRepository,
	cache historyCache.Cache,
	sseManager *sse.Manager,
	m *metrics.Metrics,
	cfg *config.Config,
	log *logger.Logger,
) (*Handler, error) {
	// Runtime config for the settings API
	settings := NewRuntimeSettings(cfg.OllamaBaseURL, cfg.OllamaModel)

	analyzer, err := newAnalyzer(cfg, settings, log)
	if err != nil {
		return nil, err
	}
	log.Info("Product analyzer initialized", "analyzer", analyzer.Name())

	productUc := productUsecasePkg.NewProductUsecase(scoreRepository, analyzer, productUsecasePkg.Options{
		AllowedHosts: cfg.AllowedProductHosts,
		ScoreTTL:     cfg.ProductScoreTTL,
	}, m, log)

	// Chroma powers alternatives; without it products are shown alone
	var index productScheduler.DocumentRemover
	if cfg.ChromaAPIKey != "" {
		chromaClient, err := chroma.NewChromaClient(cfg, log)
		if err != nil {
			log.Warn("Failed to initialize Chroma client, alternatives disabled", "error", err)
		} else {
			productUc.SetSimilarityIndex(chromaClient)
			index = chromaClient
			log.Info("Chroma client initialized")
		}
	} else {
		log.Warn("CHROMA_API_KEY not set, alternatives disabled")
	}

	historyUc := historyUsecasePkg.NewHistoryUsecase(historyRepository, productUc, cache, historyUsecasePkg.Options{
		CacheTTL:    cfg.HistoryCacheTTL,
		FanoutLimit: cfg.HistoryFanoutLimit,
	}, m, log)
	historyUc.SetPublisher(&ssePublisher{manager: sseManager})
	productUc.SetHistoryRecorder(historyUc)

	return &Handler{
		authUsecase:    authUc,
		productUsecase: productUc,
		historyUsecase: historyUc,
		sseManager:     sseManager,
		settings:       settings,
		purgeScheduler: productScheduler.NewScorePurgeScheduler(scoreRepository, index, cfg.ProductScoreTTL, log),
		metrics:        m,
		config:         cfg,
		log:            log,
	}, nil
}

// newAnalyzer picks the scoring backend: the upstream score API, or page
// metadata plus an LLM.
func newAnalyzer(cfg *config.Config, settings *RuntimeSettings, log *logger.Logger) (productUsecasePkg.Analyzer, error) {
	if cfg.Analyzer == "upstream" {
		if cfg.ScoreAPIBaseURL == "" {
			return nil, errors.New("SCORE_API_BASE_URL is required for the upstream analyzer")
		}
		source := productRepo.NewScoreAPIRepository(cfg.ScoreAPIBaseURL, cfg.ScoreAPIKey, &http.Client{Timeout: 60 * time.Second})
		return productUsecasePkg.NewUpstreamAnalyzer(source), nil
	}

	scorer, err := ai.NewScorerService(ai.DynamicConfig{
		Provider:         ai.ProviderType(cfg.AIProvider),
		GeminiAPIKey:     cfg.GeminiApiKey,
		GetOllamaBaseURL: settings.GetOllamaBaseURL,
		GetOllamaModel:   settings.GetOllamaModel,
	})
	if err != nil {
		return nil, err
	}
	if fb, ok := scorer.(*ai.FallbackService); ok {
		fb.SetLogger(log)
	}
	log.Info("AI service initialized", "provider", cfg.AIProvider)
	return productUsecasePkg.NewAIAnalyzer(pagemeta.NewFetcher(cfg.PageFetchTimeout), scorer, log), nil
}

// Router builds the gin engine with middleware and routes.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(h.log))
	r.Use(cors.New(corsConfig(h.config.AllowedOrigins)))

	SetupRoutes(r, h)
	return r
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Content-Length", "Accept", "Authorization", "Cache-Control", "X-Requested-With", "x-api-key"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			c.AllowAllOrigins = true
			return c
		}
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}

// requestLogger logs one line per request
func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.Request.URL.Path == "/metrics" {
			return
		}
		log.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// Start serves HTTP on addr until ctx is cancelled, then shuts down
// gracefully.
func (h *Handler) Start(ctx context.Context, addr string) error {
	go h.sseManager.Run()
	h.purgeScheduler.Start()
	defer h.purgeScheduler.Stop()

	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		h.log.Info("Server starting", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		h.sseManager.Stop()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	h.log.Info("Shutting down server")
	// Close event streams first; they never finish on their own.
	h.sseManager.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
