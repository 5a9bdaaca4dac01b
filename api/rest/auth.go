package rest

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/survivalcamp/cache"
	"github.com/kasuganosora/survivalcamp/config"
	"github.com/kasuganosora/survivalcamp/game/player"
	mw "github.com/kasuganosora/survivalcamp/middleware"
	"github.com/kasuganosora/survivalcamp/model"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

// AuthHandler handles authentication REST endpoints.
type AuthHandler struct {
	players *player.Service
	cache   cache.Cache
	sec     config.SecurityConfig
	logger  *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(players *player.Service, c cache.Cache, sec config.SecurityConfig, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{players: players, cache: c, sec: sec, logger: logger}
}

type loginRequest struct {
	Username string `json:"username" binding:"required,min=2,max=32"`
	Password string `json:"password" binding:"required,min=4,max=64"`
}

// Login handles POST /api/auth/login.
// Auto-registers on first login if the username does not exist.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bind(c, &req) {
		return
	}
	ctx := c.Request.Context()

	p, err := h.players.GetByUsername(ctx, req.Username)
	if err != nil {
		respondError(c, err)
		return
	}
	created := false
	if p == nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
		if err != nil {
			respondError(c, err)
			return
		}
		p, err = h.players.Register(ctx, req.Username, string(hash))
		if err != nil {
			// Another request registered the same name first.
			if isUniqueViolation(err) {
				c.JSON(http.StatusConflict, gin.H{"error": "username already taken", "code": "conflict"})
				return
			}
			respondError(c, err)
			return
		}
		created = true
	} else {
		if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(req.Password)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials", "code": "unauthorized"})
			return
		}
		if p.Status == 0 {
			c.JSON(http.StatusForbidden, gin.H{"error": "player banned", "code": "forbidden"})
			return
		}
	}

	token, err := h.issue(ctx, p)
	if err != nil {
		respondError(c, err)
		return
	}
	h.players.TouchLogin(ctx, p.ID)

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"player_id":  p.ID,
		"registered": created,
		"player":     p,
	})
}

func (h *AuthHandler) issue(ctx context.Context, p *model.Player) (string, error) {
	token, err := mw.GenerateToken(p.ID, p.Username, h.sec.JWTSecret, h.sec.JWTTTLH)
	if err != nil {
		return "", err
	}
	cacheCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := h.cache.Set(cacheCtx, mw.SessionKey(token), strconv.FormatInt(p.ID, 10), h.sec.JWTTTLH); err != nil {
		return "", err
	}
	return token, nil
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	tokenStr := mw.BearerToken(c)
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.cache.Del(ctx, mw.SessionKey(tokenStr)); err != nil {
		h.logger.Warn("logout: session delete failed", zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Refresh handles POST /api/auth/refresh. The old session is revoked.
func (h *AuthHandler) Refresh(c *gin.Context) {
	p, err := h.players.Get(c.Request.Context(), mw.GetPlayerID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	_ = h.cache.Del(ctx, mw.SessionKey(mw.BearerToken(c)))
	cancel()

	token, err := h.issue(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// isUniqueViolation detects duplicate-key errors from common database drivers.
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") ||
		strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "already exists")
}
