// Package mockserver is a local development backend implementing the chat
// endpoints with scripted replies.
package mockserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/diogo/grantchat/internal/logging"
	"github.com/diogo/grantchat/internal/models"
)

const (
	// DefaultBasePath matches the path of the default API URL
	DefaultBasePath = "/api"

	// DefaultIdleTimeout is how long a session may stay unused
	DefaultIdleTimeout = 30 * time.Minute

	dateLayout = "2006-01-02T15:04:05"
)

type session struct {
	id           string
	userID       string
	exchanges    int
	lastActivity time.Time
}

type storedConversation struct {
	id       string
	date     time.Time
	messages []models.SavedMessage
}

// Server holds the in-memory sessions and saved conversations
type Server struct {
	mu            sync.Mutex
	sessions      map[string]*session
	conversations map[string][]*storedConversation

	basePath    string
	responder   Responder
	greeting    string
	idleTimeout time.Duration
	now         func() time.Time
}

// Option configures a Server
type Option func(*Server)

// WithBasePath mounts the endpoints under path ("" for the root)
func WithBasePath(path string) Option {
	return func(s *Server) {
		s.basePath = "/" + strings.Trim(path, "/")
		if s.basePath == "/" {
			s.basePath = ""
		}
	}
}

// WithResponder replaces the scripted replies
func WithResponder(r Responder) Option {
	return func(s *Server) {
		if r != nil {
			s.responder = r
		}
	}
}

// WithGreeting sets the start_session message
func WithGreeting(greeting string) Option {
	return func(s *Server) {
		s.greeting = greeting
	}
}

// WithIdleTimeout sets how long an unused session survives a Sweep
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.idleTimeout = d
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// New creates a Server
func New(opts ...Option) *Server {
	s := &Server{
		sessions:      make(map[string]*session),
		conversations: make(map[string][]*storedConversation),
		basePath:      DefaultBasePath,
		responder:     ScriptedResponder(DefaultScript()),
		greeting:      DefaultGreeting,
		idleTimeout:   DefaultIdleTimeout,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the gin engine serving the endpoints
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	// Enable CORS for browser clients during local development
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	api := router.Group(s.basePath)
	{
		api.POST("/start_session", s.startSession)
		api.POST("/chat", s.chat)
		api.DELETE("/end_session/:userId", s.endSession)
		api.GET("/conversations/:userId", s.listConversations)
		api.GET("/history/:userId/:conversationId", s.history)
		api.POST("/save_chat", s.saveChat)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "sessions": s.SessionCount()})
	})

	return router
}

// Run serves on addr until ctx is cancelled, sweeping idle sessions
// periodically.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.sweepLoop(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down: %w", err)
		}
		return nil
	}
}

func (s *Server) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				logging.Named("mockserver").WithField("removed", n).Info("swept idle sessions")
			}
		}
	}
}

// Sweep ends sessions idle for longer than the idle timeout and returns
// how many were removed.
func (s *Server) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.idleTimeout <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.idleTimeout)
	removed := 0
	for userID, sess := range s.sessions {
		if sess.lastActivity.Before(cutoff) {
			delete(s.sessions, userID)
			removed++
		}
	}
	return removed
}

// SessionCount reports the number of open sessions
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

type sessionRequest struct {
	UserID  string `json:"user_id" binding:"required"`
	Message string `json:"message"`
}

func (s *Server) startSession(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "user_id is required"})
		return
	}

	s.mu.Lock()
	sess, ok := s.sessions[req.UserID]
	if !ok {
		sess = &session{id: uuid.NewString(), userID: req.UserID}
		s.sessions[req.UserID] = sess
	}
	sess.lastActivity = s.now()
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"session_id": sess.id, "message": s.greeting})
}

func (s *Server) chat(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "user_id is required"})
		return
	}

	s.mu.Lock()
	sess, ok := s.sessions[req.UserID]
	if !ok {
		s.mu.Unlock()
		c.JSON(http.StatusNotFound, gin.H{"detail": "Session not found"})
		return
	}
	sess.exchanges++
	sess.lastActivity = s.now()
	exchange := sess.exchanges
	s.mu.Unlock()

	reply, ended := s.responder(req.UserID, req.Message, exchange)
	if ended {
		s.mu.Lock()
		delete(s.sessions, req.UserID)
		s.mu.Unlock()
	}

	c.JSON(http.StatusOK, gin.H{"message": reply, "session_ended": ended})
}

func (s *Server) endSession(c *gin.Context) {
	userID := c.Param("userId")

	s.mu.Lock()
	_, ok := s.sessions[userID]
	delete(s.sessions, userID)
	s.mu.Unlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Session not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Session ended successfully"})
}

func (s *Server) saveChat(c *gin.Context) {
	var req models.SaveChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body"})
		return
	}
	if len(req.Messages) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "messages are required"})
		return
	}

	userID := req.Messages[0].UserID
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "userId is required"})
		return
	}
	for _, m := range req.Messages {
		if m.UserID != userID {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "messages belong to different users"})
			return
		}
	}

	conv := &storedConversation{
		id:       uuid.NewString(),
		date:     s.now(),
		messages: append([]models.SavedMessage(nil), req.Messages...),
	}
	if t, err := time.Parse(time.RFC3339, req.Messages[0].Timestamp); err == nil {
		conv.date = t
	}

	s.mu.Lock()
	s.conversations[userID] = append(s.conversations[userID], conv)
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"message": "Chat saved", "conversationId": conv.id})
}

func (s *Server) listConversations(c *gin.Context) {
	userID := c.Param("userId")

	s.mu.Lock()
	convs := append([]*storedConversation(nil), s.conversations[userID]...)
	s.mu.Unlock()

	sort.SliceStable(convs, func(i, j int) bool {
		return convs[i].date.After(convs[j].date)
	})

	out := make([]gin.H, 0, len(convs))
	for _, conv := range convs {
		out = append(out, gin.H{
			"conversationId":    conv.id,
			"conversation_date": conv.date.UTC().Format(dateLayout),
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) history(c *gin.Context) {
	userID := c.Param("userId")
	convID := c.Param("conversationId")

	s.mu.Lock()
	var found *storedConversation
	for _, conv := range s.conversations[userID] {
		if conv.id == convID {
			found = conv
			break
		}
	}
	s.mu.Unlock()

	if found == nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Conversation not found"})
		return
	}

	out := make([]gin.H, 0, len(found.messages))
	for _, m := range found.messages {
		out = append(out, gin.H{"role": m.Role, "message_content": m.MessageContent})
	}
	c.JSON(http.StatusOK, out)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logging.Named("mockserver").WithFields(logging.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).Round(time.Millisecond),
		}).Info("request")
	}
}
