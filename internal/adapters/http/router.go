package http

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/dkeye/pitchcall/internal/adapters/notify"
	"github.com/dkeye/pitchcall/internal/app/orch"
	"github.com/dkeye/pitchcall/internal/config"
	"github.com/dkeye/pitchcall/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const identityKey = "identity"

// CallController is the call lifecycle as the API sees it.
type CallController interface {
	Start(ctx context.Context, user domain.UserID) error
	End(ctx context.Context) error
	ToggleMute(ctx context.Context) (domain.MuteState, error)
	Abort()
	Status() domain.Status
}

func genClientToken() string {
	idStr := uuid.NewString()
	return idStr
}

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

type handlers struct {
	ctl     CallController
	hub     *notify.Hub
	limiter *StartLimiter
}

func SetupRouter(cfg *config.Config, ctl CallController, hub *notify.Hub) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true, SameSite: http.SameSiteLaxMode})
	r.Use(sessions.Sessions("PitchcallSessions", store))
	r.Use(ClientTokenMiddleware())

	h := &handlers{ctl: ctl, hub: hub, limiter: NewStartLimiter(cfg.StartLimit.Max, cfg.StartLimit.Window)}

	log.Info().Str("module", "adapters.http").Msg("router setup")

	api := r.Group("/api")
	api.POST("/session", h.signIn)
	api.DELETE("/session", h.signOut)

	api.GET("/call", h.status)
	api.POST("/call", h.start)
	api.POST("/call/end", h.end)
	api.POST("/call/mute", h.mute)
	api.DELETE("/call", h.abort)

	api.GET("/ws/events", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("sid", c.GetString("client_token")).Msg("ws events endpoint hit")
		h.hub.ServeWS(c.Writer, c.Request, c.GetString("client_token"), h.ctl.Status())
	})

	return r
}

func currentIdentity(c *gin.Context) domain.UserID {
	v, _ := sessions.Default(c).Get(identityKey).(string)
	return domain.UserID(v)
}

func (h *handlers) signIn(c *gin.Context) {
	var req struct {
		Identity string `json:"identity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identity"})
		return
	}
	uid, err := domain.NewUserID(req.Identity)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess := sessions.Default(c)
	sess.Set(identityKey, string(uid))
	if err := sess.Save(); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("session save")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"identity": uid})
}

// signOut is the sign-out signal: any running attempt is dropped.
func (h *handlers) signOut(c *gin.Context) {
	sess := sessions.Default(c)
	sess.Clear()
	if err := sess.Save(); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("session save")
	}
	h.ctl.Abort()
	c.JSON(http.StatusOK, h.ctl.Status())
}

func (h *handlers) status(c *gin.Context) {
	c.JSON(http.StatusOK, h.ctl.Status())
}

func (h *handlers) start(c *gin.Context) {
	uid := currentIdentity(c)
	if uid != "" {
		if ok, retryAfter := h.limiter.Allow(uid); !ok {
			secs := int(math.Ceil(retryAfter.Seconds()))
			c.Header("Retry-After", strconv.Itoa(secs))
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many call attempts", "retry_after": secs})
			return
		}
	}

	err := h.ctl.Start(c.Request.Context(), uid)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, h.ctl.Status())
	case errors.Is(err, domain.ErrIdentityMissing):
		c.JSON(http.StatusUnauthorized, gin.H{"error": domain.ErrorCodeIdentityMissing, "status": h.ctl.Status()})
	case errors.Is(err, domain.ErrCallInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "status": h.ctl.Status()})
	case errors.Is(err, orch.ErrClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": domain.CodeOf(err), "status": h.ctl.Status()})
	}
}

func (h *handlers) end(c *gin.Context) {
	if err := h.ctl.End(c.Request.Context()); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "status": h.ctl.Status()})
		return
	}
	c.JSON(http.StatusAccepted, h.ctl.Status())
}

func (h *handlers) mute(c *gin.Context) {
	st, err := h.ctl.ToggleMute(c.Request.Context())
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"mute": st})
	case errors.Is(err, domain.ErrNotConnected), errors.Is(err, domain.ErrTogglePending):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "mute": st})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": domain.CodeOf(err), "mute": st})
	}
}

func (h *handlers) abort(c *gin.Context) {
	h.ctl.Abort()
	c.JSON(http.StatusOK, h.ctl.Status())
}
