// Package httpapi exposes a Book over HTTP (REST order entry plus a
// Prometheus scrape endpoint) and over WebSocket (a live trade/depth feed).
package httpapi

import (
	"sync/atomic"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kairos-exchange/orderbook/internal/book"
	"github.com/kairos-exchange/orderbook/internal/feed"
	"github.com/kairos-exchange/orderbook/internal/telemetry"
)

// Server binds a Book to gin routes, publishing every accepted order's
// resulting trades and the new full-depth snapshot to the feed Hub.
type Server struct {
	logger   *zap.Logger
	book     *book.Book
	hub      *feed.Hub
	metrics  *telemetry.Metrics
	registry *prometheus.Registry
	scale    book.TickScale
	router   *gin.Engine

	orderIdSeq atomic.Uint64
}

// nextOrderId hands out a server-assigned id for requests that omit one,
// starting above the uint32 range so it can't collide with ids a caller
// picked by hand for a small manual test.
func (s *Server) nextOrderId() uint64 {
	return uint64(1)<<32 + s.orderIdSeq.Add(1)
}

// New constructs a Server. registry is the Prometheus registry metrics was
// built against, so /metrics can scrape exactly those series.
func New(b *book.Book, hub *feed.Hub, metrics *telemetry.Metrics, registry *prometheus.Registry, scale book.TickScale, logger *zap.Logger) *Server {
	s := &Server{
		logger:   logger,
		book:     b,
		hub:      hub,
		metrics:  metrics,
		registry: registry,
		scale:    scale,
	}
	s.router = s.newRouter()
	return s
}

// Router returns the underlying gin engine, e.g. for httptest.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) newRouter() *gin.Engine {
	router := gin.New()
	router.Use(ginzap.Ginzap(s.logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(s.logger, true))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	router.POST("/orders", s.handlePlaceOrder)
	router.DELETE("/orders/:id", s.handleCancelOrder)
	router.PUT("/orders/:id", s.handleModifyOrder)
	router.GET("/book", s.handleGetBook)
	router.GET("/ws", s.handleWebSocket)

	return router
}
