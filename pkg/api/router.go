// Package api exposes ingestion and aggregation over HTTP.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/David-Botos/enrollment-ingress/pkg/model"
)

// Upload paths keyed by dataset
var uploadPaths = map[model.Dataset]string{
	model.DatasetStudentProfile: "/students-ecological-profile",
	model.DatasetEnrollment:     "/cleaned-data",
	model.DatasetCorrelation:    "/applicant-enrollee",
}

// RouterConfig holds the handlers and middleware settings for NewRouter
type RouterConfig struct {
	IngestHandler    *IngestHandler
	AggregateHandler *AggregateHandler

	Logger      *zap.Logger
	CORSOrigins []string

	// Metrics is optional. Gatherer enables /metrics.
	Metrics  *HTTPMetrics
	Gatherer prometheus.Gatherer
}

// NewRouter builds the gin engine with every API route mounted
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(cfg.Logger))
	r.Use(cfg.Metrics.Middleware())
	if len(cfg.CORSOrigins) > 0 {
		r.Use(CORS(cfg.CORSOrigins))
	}

	// Health
	r.GET("/healthcheck", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	if cfg.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")
	{
		// Uploads
		if cfg.IngestHandler != nil {
			for _, ds := range model.Datasets {
				api.POST(uploadPaths[ds], cfg.IngestHandler.Upload(ds))
				api.DELETE(uploadPaths[ds], cfg.IngestHandler.Clear(ds))
			}
		}

		// Aggregations
		if cfg.AggregateHandler != nil {
			cfg.AggregateHandler.Register(api)
		}
	}

	return r
}
