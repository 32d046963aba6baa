package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	attendance "axiapac.com/attendance/attendance/core"
	web "axiapac.com/attendance/web/common"
	"axiapac.com/attendance/web/middlewares"
	"github.com/gin-gonic/gin"
)

type Options struct {
	Service   *attendance.Service
	Events    attendance.EventStore
	Summaries attendance.SummaryReader
	// APISecret protects /api/attendance/v1. The group is not mounted when
	// it is empty.
	APISecret []byte
	// SlackSigningSecret enables POST /slack/events.
	SlackSigningSecret string
	Location           *time.Location
	AckTimeout         time.Duration
	Logger             *slog.Logger
}

// NewRouter mounts every route on a gin engine.
func NewRouter(opts Options) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	r := gin.Default()
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	if opts.SlackSigningSecret != "" {
		RegisterSlack(r, opts)
	}

	if len(opts.APISecret) > 0 {
		protected := r.Group("/api/attendance/v1")
		protected.Use(middlewares.Authentication(opts.APISecret))
		Register(protected, opts)
	}
	return r
}

type Endpoint struct {
	svc       *attendance.Service
	events    attendance.EventStore
	summaries attendance.SummaryReader
	log       *slog.Logger
}

func Register(r *gin.RouterGroup, opts Options) {
	endpoint := &Endpoint{
		svc:       opts.Service,
		events:    opts.Events,
		summaries: opts.Summaries,
		log:       opts.Logger,
	}
	r.POST("/events", endpoint.CreateEvent)
	r.GET("/events", endpoint.ListEvents)

	r.GET("/summaries/:date/:employee", endpoint.GetSummary)
	r.POST("/summaries/search", endpoint.SearchSummaries)
	r.POST("/summaries/recompute", endpoint.Recompute)

	r.POST("/imports", endpoint.ImportFiles)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, attendance.ErrMalformedTime):
		return http.StatusUnprocessableEntity
	case errors.Is(err, attendance.ErrUnknownKeyword):
		return http.StatusBadRequest
	case errors.Is(err, attendance.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (ep *Endpoint) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		ep.log.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, web.NewErrorResponse(err.Error()))
}
