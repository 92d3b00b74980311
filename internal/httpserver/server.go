package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tinytelemetry/chatlog/internal/duckdb"
	"github.com/tinytelemetry/chatlog/internal/logparse"
	"github.com/tinytelemetry/chatlog/internal/model"
)

// DefaultAddr is used when no listen address is configured.
const DefaultAddr = "127.0.0.1:3170"

const maxArchiveLimit = 5000

// EventSource lets stream clients follow poll events.
type EventSource interface {
	Subscribe() (<-chan model.PollEvent, func())
}

// Option configures optional collaborators.
type Option func(*Server)

// WithArchive enables the /api/archive routes.
func WithArchive(archive duckdb.ArchiveReader) Option {
	return func(s *Server) { s.archive = archive }
}

// WithEvents enables /api/stream.
func WithEvents(events EventSource) Option {
	return func(s *Server) { s.events = events }
}

// Server provides a read-only HTTP API over the live channel buffers.
type Server struct {
	addr      string
	reader    model.Reader
	archive   duckdb.ArchiveReader
	events    EventSource
	server    *http.Server
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// NewServer creates a new HTTP API server.
func NewServer(addr string, reader model.Reader, opts ...Option) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		addr:   addr,
		reader: reader,
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) routes(r *gin.Engine) {
	r.GET("/api/health", s.handleHealth)
	r.GET("/api/channels", s.handleChannels)
	r.GET("/api/channels/:name", s.handleChannel)
	r.GET("/api/rate", s.handleRate)
	r.GET("/api/colors", s.handleColors)
	r.GET("/api/archive", s.handleArchiveCounts)
	r.GET("/api/archive/:name", s.handleArchive)
	r.GET("/api/stream", s.handleStream)
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	s.routes(r)

	s.server = &http.Server{
		Handler:           r,
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.addr = listener.Addr().String()
	s.startTime = time.Now()

	go s.server.Serve(listener)
	return nil
}

// Addr returns the listen address. After Start it is the bound address.
func (s *Server) Addr() string {
	return s.addr
}

// Stop gracefully shuts down the HTTP server. Open streams end with it.
func (s *Server) Stop() error {
	s.cancel()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.server.Shutdown(ctx)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) handleHealth(c *gin.Context) {
	last := s.reader.LastPoll()
	status := "ok"
	switch {
	case last.FormatErr:
		status = "format_error"
	case last.Err != "":
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"uptime":    time.Since(s.startTime).String(),
		"last_poll": last,
		"entries":   s.reader.View(model.All, true).Total,
		"archive":   s.archive != nil,
	})
}

type channelSummary struct {
	Channel string `json:"channel"`
	Total   int    `json:"total"`
	Updated bool   `json:"updated"`
}

func (s *Server) handleChannels(c *gin.Context) {
	views := s.reader.Views(true)
	out := make([]channelSummary, 0, len(views))
	for _, v := range views {
		out = append(out, channelSummary{Channel: v.Channel.String(), Total: v.Total, Updated: v.Updated})
	}
	c.JSON(http.StatusOK, gin.H{"channels": out})
}

func (s *Server) handleChannel(c *gin.Context) {
	ch, err := model.ParseChannel(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	all, _ := strconv.ParseBool(c.DefaultQuery("all", "false"))

	v := s.reader.View(ch, !all)
	c.JSON(http.StatusOK, gin.H{
		"channel": ch.String(),
		"entries": v.Entries,
		"updated": v.Updated,
		"total":   v.Total,
	})
}

func (s *Server) handleRate(c *gin.Context) {
	c.JSON(http.StatusOK, s.reader.Rate())
}

func (s *Server) handleColors(c *gin.Context) {
	table := logparse.KnownColors()
	out := make([]gin.H, 0, len(table))
	for _, color := range logparse.SortedColors() {
		out = append(out, gin.H{"color": color, "channel": table[color].String()})
	}
	c.JSON(http.StatusOK, gin.H{"colors": out})
}

func (s *Server) handleArchiveCounts(c *gin.Context) {
	if s.archive == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "archive is disabled"})
		return
	}
	counts, err := s.archive.CountByChannel()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count archived entries"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"channels": counts})
}

func (s *Server) handleArchive(c *gin.Context) {
	if s.archive == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "archive is disabled"})
		return
	}
	ch, err := model.ParseChannel(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(model.DefaultViewLimit)))
	if err != nil || limit <= 0 || limit > maxArchiveLimit {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and " + strconv.Itoa(maxArchiveLimit)})
		return
	}

	pattern := c.Query("q")
	if pattern != "" {
		if _, err := regexp.Compile(pattern); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid q: " + err.Error()})
			return
		}
	}

	entries, err := s.archive.SearchEntries(duckdb.EntryFilter{Channel: ch, Pattern: pattern, Limit: limit})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read archive"})
		return
	}
	if entries == nil {
		entries = []duckdb.ArchivedEntry{}
	}
	c.JSON(http.StatusOK, gin.H{
		"channel": ch.String(),
		"entries": entries,
		"count":   len(entries),
	})
}
