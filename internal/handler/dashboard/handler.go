// Package dashboard serves the client dashboard over HTTP: an HTML page for
// browsers and a JSON snapshot for scripts, both backed by the per-session
// controller.
package dashboard

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/client-dashboard/internal/dashboard"
	"github.com/jwalitptl/client-dashboard/internal/middleware"
	"github.com/jwalitptl/client-dashboard/internal/model"
	apperrors "github.com/jwalitptl/client-dashboard/pkg/errors"
	"github.com/jwalitptl/client-dashboard/pkg/httputil"
)

const (
	CookieName        = "dashboard_session"
	contextController = "dashboard_controller"
	pageTemplate      = "dashboard.html"
)

// Sessions hands out the controller bound to a session id.
type Sessions interface {
	Get(id string) (*dashboard.Controller, string, error)
}

type Config struct {
	// RenderWait bounds how long a request waits for in-flight fetches
	// before rendering whatever state is current.
	RenderWait   time.Duration
	CookieMaxAge time.Duration
	SecureCookie bool
}

type Handler struct {
	sessions Sessions
	cfg      Config
}

func NewHandler(sessions Sessions, cfg Config) *Handler {
	return &Handler{sessions: sessions, cfg: cfg}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.Use(h.Session())

	r.GET("/", h.Index)
	r.GET("/api/v1/dashboard", h.GetSnapshot)

	filters := r.Group("/filters")
	{
		filters.POST("/gender", h.SelectGender)
		filters.POST("/gender/all", h.SelectAllGenders)
		filters.POST("/age", h.SelectAgeBracket)
	}

	r.POST("/search", h.Search)
	r.POST("/view", h.SetViewMode)
	r.POST("/sidebar/toggle", h.ToggleSidebar)
	r.POST("/dropdown/toggle", h.ToggleDropdown)
	r.POST("/pointer", h.PointerDown)
}

// Session resolves the session cookie to a mounted controller, starting a
// new session when the cookie is missing or has expired.
func (h *Handler) Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := c.Cookie(CookieName)
		ctrl, sessionID, err := h.sessions.Get(id)
		if err != nil {
			httputil.RespondWithError(c, apperrors.NewInternal(err))
			c.Abort()
			return
		}
		// Re-issued on every request so the browser expiry follows the
		// server-side TTL, which each hit renews.
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(CookieName, sessionID, int(h.cfg.CookieMaxAge.Seconds()), "/", "", h.cfg.SecureCookie, true)
		c.Set(contextController, ctrl)
		c.Set(middleware.ContextSessionID, sessionID)
		c.Next()
	}
}

func (h *Handler) Index(c *gin.Context) {
	ctrl := controller(c)
	h.settle(c, ctrl)
	c.HTML(http.StatusOK, pageTemplate, ctrl.Snapshot())
}

func (h *Handler) GetSnapshot(c *gin.Context) {
	ctrl := controller(c)
	h.settle(c, ctrl)
	httputil.RespondWithSuccess(c, ctrl.Snapshot())
}

type genderForm struct {
	Gender string `form:"gender" json:"gender" binding:"required,max=64"`
}

func (h *Handler) SelectGender(c *gin.Context) {
	var f genderForm
	if !bind(c, &f) {
		return
	}
	ctrl := controller(c)
	ctrl.SelectGender(f.Gender)
	h.respond(c, ctrl)
}

func (h *Handler) SelectAllGenders(c *gin.Context) {
	ctrl := controller(c)
	ctrl.SelectAllGenders()
	h.respond(c, ctrl)
}

type ageForm struct {
	Min *int `form:"min" json:"min" binding:"required,min=0,max=150"`
	Max *int `form:"max" json:"max" binding:"required,min=0,max=150,gtefield=Min"`
}

func (h *Handler) SelectAgeBracket(c *gin.Context) {
	var f ageForm
	if !bind(c, &f) {
		return
	}
	ctrl := controller(c)
	ctrl.SelectAgeBracket(*f.Min, *f.Max)
	h.respond(c, ctrl)
}

type searchForm struct {
	Query string `form:"q" json:"q" binding:"max=100"`
}

func (h *Handler) Search(c *gin.Context) {
	var f searchForm
	if !bind(c, &f) {
		return
	}
	ctrl := controller(c)
	ctrl.SetSearch(f.Query)
	h.respond(c, ctrl)
}

type viewForm struct {
	Mode string `form:"mode" json:"mode" binding:"required,oneof=table cards"`
}

func (h *Handler) SetViewMode(c *gin.Context) {
	var f viewForm
	if !bind(c, &f) {
		return
	}
	mode, err := model.ParseViewMode(f.Mode)
	if err != nil {
		_ = c.Error(apperrors.NewBadRequest("invalid view mode", err))
		return
	}
	ctrl := controller(c)
	ctrl.SetViewMode(mode)
	h.respond(c, ctrl)
}

func (h *Handler) ToggleSidebar(c *gin.Context) {
	ctrl := controller(c)
	ctrl.ToggleSidebar()
	h.respond(c, ctrl)
}

func (h *Handler) ToggleDropdown(c *gin.Context) {
	ctrl := controller(c)
	ctrl.ToggleDropdown()
	h.respond(c, ctrl)
}

type pointerForm struct {
	Target string `form:"target" json:"target" binding:"required,oneof=sidebar menu-button dropdown main"`
}

func (h *Handler) PointerDown(c *gin.Context) {
	var f pointerForm
	if !bind(c, &f) {
		return
	}
	ctrl := controller(c)
	ctrl.PointerDown(dashboard.Target(f.Target))
	h.respond(c, ctrl)
}

// respond redirects browsers back to the page and answers JSON callers with
// the resulting snapshot.
func (h *Handler) respond(c *gin.Context, ctrl *dashboard.Controller) {
	if c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEJSON {
		h.settle(c, ctrl)
		httputil.RespondWithSuccess(c, ctrl.Snapshot())
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handler) settle(c *gin.Context, ctrl *dashboard.Controller) {
	if h.cfg.RenderWait <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.RenderWait)
	defer cancel()
	_ = ctrl.Settled(ctx)
}

// bind records binding failures on the context for the validation and
// error middleware to render.
func bind(c *gin.Context, obj interface{}) bool {
	err := c.ShouldBind(obj)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		_ = c.Error(err)
	} else {
		_ = c.Error(apperrors.NewBadRequest("malformed request", err))
	}
	return false
}

func controller(c *gin.Context) *dashboard.Controller {
	return c.MustGet(contextController).(*dashboard.Controller)
}
