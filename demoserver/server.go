// ABOUTME: In-memory TeleMsg backend for offline demos and tests
// ABOUTME: Gin REST routes, JWT bearer auth and a WebSocket push hub
package demoserver

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/harperreed/telemsg/models"
)

// Options configures a demo server.
type Options struct {
	Secret   string
	TokenTTL time.Duration
	Logger   *log.Logger
	Now      func() time.Time
}

// Server holds all backend state in memory.
type Server struct {
	mu sync.Mutex

	secret []byte
	ttl    time.Duration
	logger *log.Logger
	now    func() time.Time

	accounts      map[string]*account
	order         []string
	rosters       map[string][]string
	messages      []storedMessage
	notifications map[string][]models.Notification
	roles         []models.Role
	rolePerms     map[string][]string
	departments   []models.Department
	approvals     []models.ApprovalRequest
	logs          []models.OperationLog
	files         map[string]storedFile
	revoked       map[string]bool
	nextID        int

	hub    *hub
	engine *gin.Engine
}

type claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// New builds a seeded demo server.
func New(opts Options) (*Server, error) {
	if opts.Secret == "" {
		opts.Secret = "telemsg-demo-secret"
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Server{
		secret:        []byte(opts.Secret),
		ttl:           opts.TokenTTL,
		logger:        opts.Logger,
		now:           opts.Now,
		accounts:      make(map[string]*account),
		rosters:       make(map[string][]string),
		notifications: make(map[string][]models.Notification),
		rolePerms:     make(map[string][]string),
		files:         make(map[string]storedFile),
		revoked:       make(map[string]bool),
		nextID:        100,
	}
	s.hub = newHub(s.logger, s.onPresence, s.onInboundFrame)
	if err := s.seed(); err != nil {
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	s.engine = gin.New()
	s.engine.Use(gin.Recovery())
	s.registerRoutes(s.engine)
	return s, nil
}

// Handler exposes the gin engine.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until the listener fails.
func (s *Server) Run(addr string) error {
	s.logger.Info("demo backend listening", "addr", addr)
	return s.engine.Run(addr)
}

// Push sends an event frame to every live connection of userID.
func (s *Server) Push(userID string, event any) {
	s.hub.push(userID, event)
}

// DropConnections closes all live sockets of userID to simulate a network drop.
func (s *Server) DropConnections(userID string) {
	s.hub.drop(userID)
}

// Online reports whether userID has a live socket.
func (s *Server) Online(userID string) bool {
	return s.hub.online(userID)
}

// IssueToken signs a bearer token for userID.
func (s *Server) IssueToken(userID string) (string, error) {
	now := s.now()
	c := claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        strconv.Itoa(s.allocID()),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return t.SignedString(s.secret)
}

func (s *Server) parseToken(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", err
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return "", fmt.Errorf("invalid token")
	}
	s.mu.Lock()
	revoked := s.revoked[token]
	_, exists := s.accounts[c.UserID]
	s.mu.Unlock()
	if revoked || !exists {
		return "", fmt.Errorf("token no longer valid")
	}
	return c.UserID, nil
}

func bearer(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

func (s *Server) authRequired(c *gin.Context) {
	token := bearer(c)
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return
	}
	userID, err := s.parseToken(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	c.Set("userID", userID)
	c.Set("token", token)
	c.Next()
}

func (s *Server) adminRequired(c *gin.Context) {
	s.mu.Lock()
	acct := s.accounts[c.GetString("userID")]
	admin := acct != nil && acct.user.IsAdmin
	s.mu.Unlock()
	if !admin {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "administrator access required"})
		return
	}
	c.Next()
}

// allocID must not be called with s.mu held by a caller that also expects newID.
func (s *Server) allocID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return s.nextID
}

// newID is used while s.mu is held or during seeding.
func (s *Server) newID() string {
	s.nextID++
	return strconv.Itoa(s.nextID)
}

// appendLog records an operation. Caller holds s.mu (or is seeding).
func (s *Server) appendLog(userID, action, details, ip string) {
	name := ""
	if a := s.accounts[userID]; a != nil {
		name = a.user.Name
	}
	s.logs = append(s.logs, models.OperationLog{
		ID:        s.newID(),
		UserID:    userID,
		UserName:  name,
		Action:    action,
		Details:   details,
		Timestamp: s.now().Format(time.RFC3339),
		IPAddress: ip,
	})
}
