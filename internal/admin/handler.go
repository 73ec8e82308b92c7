package admin

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	regentity "github.com/ovaphlow/pitchfork/service-waitlist-go/internal/registration/entity"
	statsentity "github.com/ovaphlow/pitchfork/service-waitlist-go/internal/stats/entity"
	"github.com/ovaphlow/pitchfork/service-waitlist-go/internal/web"
)

const DashboardPath = "/admin/dashboard"

const flashBadCredentials = "Invalid username or password"

// RegistrationLister supplies the dashboard's registration table.
type RegistrationLister interface {
	List(ctx context.Context) ([]regentity.Registration, error)
}

// StatsReader supplies the dashboard's counters.
type StatsReader interface {
	GetOrCreate(ctx context.Context) (*statsentity.Stats, error)
}

// Handler exposes the admin login, dashboard and logout pages.
type Handler struct {
	svc          *Service
	regs         RegistrationLister
	stats        StatsReader
	views        *web.Renderer
	logger       *zap.SugaredLogger
	cookieSecure bool
}

func NewHandler(svc *Service, regs RegistrationLister, stats StatsReader, views *web.Renderer, logger *zap.SugaredLogger, cookieSecure bool) *Handler {
	return &Handler{svc: svc, regs: regs, stats: stats, views: views, logger: logger, cookieSecure: cookieSecure}
}

type loginPage struct {
	Username string
	Flash    string
}

type dashboardPage struct {
	Username      string
	Registrations []regentity.Registration
	Stats         *statsentity.Stats
}

func (h *Handler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, web.PageLogin, loginPage{})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, http.StatusBadRequest, web.PageLogin, loginPage{Flash: flashBadCredentials})
		return
	}
	username := r.PostForm.Get("username")
	token, sess, err := h.svc.Login(r.Context(), username, r.PostForm.Get("password"))
	if err != nil {
		if errors.Is(err, ErrBadCredentials) {
			h.logger.Infow("admin login rejected", "remote", r.RemoteAddr)
			h.render(w, http.StatusOK, web.PageLogin, loginPage{Username: username, Flash: flashBadCredentials})
			return
		}
		h.logger.Errorw("admin login failed", "err", err)
		h.render(w, http.StatusInternalServerError, web.PageLogin, loginPage{Username: username, Flash: "Login is unavailable, please try again later."})
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	h.logger.Infow("admin logged in", "admin_id", sess.AdminID)
	http.Redirect(w, r, DashboardPath, http.StatusSeeOther)
}

// Dashboard must be mounted behind RequireAuthenticated.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFrom(r.Context())
	if !ok {
		http.Redirect(w, r, LoginPath, http.StatusSeeOther)
		return
	}
	regs, err := h.regs.List(r.Context())
	if err != nil {
		h.logger.Errorw("dashboard registrations", "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	st, err := h.stats.GetOrCreate(r.Context())
	if err != nil {
		h.logger.Errorw("dashboard stats", "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	h.render(w, http.StatusOK, web.PageDashboard, dashboardPage{Username: id.Username, Registrations: regs, Stats: st})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if err := h.svc.Logout(r.Context(), cookie.Value); err != nil {
			h.logger.Warnw("admin logout", "err", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, status int, page string, data any) {
	if err := h.views.Render(w, status, page, data); err != nil {
		h.logger.Errorw("render page", "page", page, "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
