// Package api serves the portal client state over a local HTTP API.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pevans/campus/app"
	"github.com/pevans/campus/decode"
	"github.com/pevans/campus/fetcher"
	"github.com/pevans/campus/logger"
	"github.com/pevans/campus/nav"
	"github.com/pevans/campus/newsfeed"
	"github.com/pevans/campus/paging"
	"github.com/pevans/campus/scraper"
	"go.uber.org/zap"
)

// ShutdownTimeout bounds graceful shutdown in Run.
const ShutdownTimeout = 5 * time.Second

// Server represents the HTTP API server.
type Server struct {
	app *app.App
	log *zap.Logger
}

// NewServer creates a new API server.
func NewServer(a *app.App, log *zap.Logger) *Server {
	return &Server{
		app: a,
		log: logger.OrNop(log).With(zap.String("component", "api")),
	}
}

// SetupRouter configures the Gin router with all API routes.
func (s *Server) SetupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	// Add CORS middleware
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	api := router.Group("/api/v1")
	api.GET("/features/:feature", s.HandleGetFeature)
	api.POST("/features/:feature/more", s.HandleLoadMore)
	api.POST("/features/:feature/all", s.HandleLoadAll)
	api.GET("/departments/:id", s.HandleGetDepartment)
	api.GET("/clubs/:id", s.HandleGetClub)
	api.GET("/buildings/:id", s.HandleGetBuilding)
	api.GET("/infos/:id", s.HandleGetInfo)
	api.GET("/notices", s.HandleNotices)
	api.GET("/calendar", s.HandleCalendar)
	api.GET("/news", s.HandleListNews)
	api.GET("/news/:id/article", s.HandleGetArticle)
	api.GET("/navigation", s.HandleGetNavigation)
	api.POST("/navigation/pop", s.HandlePopNavigation)
	api.POST("/version/sync", s.HandleSyncVersion)

	return router
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// requestLogger logs one line per request.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

// ArticleResponse represents the response for GET /api/v1/news/{id}/article.
type ArticleResponse struct {
	Summary    newsfeed.Summary     `json:"summary"`
	Components []newsfeed.Component `json:"components"`
}

// NavigationResponse represents the navigation stack, bottom first.
type NavigationResponse struct {
	Path   []nav.Entry `json:"path"`
	Popped *nav.Entry  `json:"popped,omitempty"`
}

// SyncVersionResponse represents the response for POST /api/v1/version/sync.
type SyncVersionResponse struct {
	Changed bool `json:"changed"`
}

// errorResponse creates a standardized error response.
func errorResponse(code, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

// handleError maps domain errors to HTTP responses.
func (s *Server) handleError(c *gin.Context, err error) {
	var fetchErr *fetcher.FetchError
	var decodeErr *decode.DecodeError

	switch {
	case errors.Is(err, app.ErrUnknownFeature), errors.Is(err, app.ErrUnknownArticle),
		errors.Is(err, app.ErrUnknownItem):
		c.JSON(http.StatusNotFound, errorResponse("not_found", err.Error()))
	case errors.As(err, &fetchErr) && fetchErr.StatusCode == http.StatusNotFound:
		c.JSON(http.StatusNotFound, errorResponse("not_found", err.Error()))
	case errors.As(err, &fetchErr), errors.As(err, &decodeErr),
		errors.Is(err, scraper.ErrDataDecoding), errors.Is(err, scraper.ErrNewsParsing):
		s.log.Warn("upstream failure", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(http.StatusBadGateway, errorResponse("upstream_error", err.Error()))
	default:
		s.log.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse("internal_error", "Failed to process request"))
	}
}

// HandleGetFeature handles GET /api/v1/features/{feature}. The search and
// tag query parameters update the list filter when present.
func (s *Server) HandleGetFeature(c *gin.Context) {
	list, err := s.app.List(c.Param("feature"))
	if err != nil {
		s.handleError(c, err)
		return
	}

	if search, ok := c.GetQuery("search"); ok {
		list.SetSearch(search)
	}

	if name, ok := c.GetQuery("tag"); ok {
		tag, found := findTag(list.Tags(), name)
		if name != "" && !found {
			// The tag may only appear once the whole list is loaded.
			if err := list.LoadAll(c.Request.Context()); err != nil {
				s.handleError(c, err)
				return
			}
			if tag, found = findTag(list.Tags(), name); !found {
				c.JSON(http.StatusBadRequest, errorResponse("validation_error", "Unknown tag: "+name))
				return
			}
		}
		if err := s.app.SelectTag(c.Request.Context(), list.Name(), tag); err != nil {
			s.handleError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, list.View())
}

// findTag looks up a tag by name; an empty name means no tag.
func findTag(tags []paging.Tag, name string) (*paging.Tag, bool) {
	if name == "" {
		return nil, true
	}
	for _, t := range tags {
		if t.Name == name {
			return &t, true
		}
	}
	return nil, false
}

// HandleLoadMore handles POST /api/v1/features/{feature}/more.
func (s *Server) HandleLoadMore(c *gin.Context) {
	list, err := s.app.List(c.Param("feature"))
	if err != nil {
		s.handleError(c, err)
		return
	}

	if err := list.LoadMore(c.Request.Context()); err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, list.View())
}

// HandleLoadAll handles POST /api/v1/features/{feature}/all.
func (s *Server) HandleLoadAll(c *gin.Context) {
	list, err := s.app.List(c.Param("feature"))
	if err != nil {
		s.handleError(c, err)
		return
	}

	if err := list.LoadAll(c.Request.Context()); err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, list.View())
}

// paramID parses the :id path parameter, answering 400 when it is not a
// positive integer.
func paramID(c *gin.Context, what string) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", "Invalid "+what+" ID"))
		return 0, false
	}
	return id, true
}

// HandleGetDepartment handles GET /api/v1/departments/{id}.
func (s *Server) HandleGetDepartment(c *gin.Context) {
	id, ok := paramID(c, "department")
	if !ok {
		return
	}

	dept, err := s.app.OpenDepartment(c.Request.Context(), id)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dept)
}

// HandleGetClub handles GET /api/v1/clubs/{id}.
func (s *Server) HandleGetClub(c *gin.Context) {
	id, ok := paramID(c, "club")
	if !ok {
		return
	}

	club, err := s.app.OpenClub(c.Request.Context(), id)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, club)
}

// HandleGetBuilding handles GET /api/v1/buildings/{id}.
func (s *Server) HandleGetBuilding(c *gin.Context) {
	id, ok := paramID(c, "building")
	if !ok {
		return
	}

	building, err := s.app.OpenBuilding(c.Request.Context(), id)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, building)
}

// HandleGetInfo handles GET /api/v1/infos/{id}.
func (s *Server) HandleGetInfo(c *gin.Context) {
	id, ok := paramID(c, "info")
	if !ok {
		return
	}

	info, err := s.app.OpenInfo(c.Request.Context(), id)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

// HandleNotices handles GET /api/v1/notices.
func (s *Server) HandleNotices(c *gin.Context) {
	notices, err := s.app.Notices(c.Request.Context())
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, notices)
}

// HandleCalendar handles GET /api/v1/calendar.
func (s *Server) HandleCalendar(c *gin.Context) {
	cal, err := s.app.Calendar(c.Request.Context())
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, cal)
}

// HandleListNews handles GET /api/v1/news. News is not paginated upstream,
// so the first request loads the whole listing.
func (s *Server) HandleListNews(c *gin.Context) {
	if s.app.News.State() != paging.StateExhausted {
		if err := s.app.News.LoadAll(c.Request.Context()); err != nil {
			s.handleError(c, err)
			return
		}
	}

	list, err := s.app.List(string(app.FeatureNews))
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, list.View())
}

// HandleGetArticle handles GET /api/v1/news/{id}/article.
func (s *Server) HandleGetArticle(c *gin.Context) {
	summary, components, err := s.app.OpenArticle(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, ArticleResponse{Summary: summary, Components: components})
}

// HandleGetNavigation handles GET /api/v1/navigation.
func (s *Server) HandleGetNavigation(c *gin.Context) {
	c.JSON(http.StatusOK, NavigationResponse{Path: s.app.Navigation().Entries()})
}

// HandlePopNavigation handles POST /api/v1/navigation/pop.
func (s *Server) HandlePopNavigation(c *gin.Context) {
	stack := s.app.Navigation()
	popped, ok := stack.Pop()
	if !ok {
		c.JSON(http.StatusNotFound, errorResponse("not_found", "Navigation stack is empty"))
		return
	}

	entry := nav.EntryOf(popped)
	c.JSON(http.StatusOK, NavigationResponse{Path: stack.Entries(), Popped: &entry})
}

// HandleSyncVersion handles POST /api/v1/version/sync.
func (s *Server) HandleSyncVersion(c *gin.Context) {
	changed, err := s.app.SyncVersion(c.Request.Context())
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, SyncVersionResponse{Changed: changed})
}
