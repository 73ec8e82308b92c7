package registration

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-waitlist-go/internal/stats"
	"github.com/ovaphlow/pitchfork/service-waitlist-go/internal/web"
)

const maxBodyBytes = 1 << 20

// User-facing messages. Internal error detail never goes into a response.
const (
	msgSuccess      = "Thank you for joining our waitlist!"
	msgMissingField = "Email and full name are required."
	msgInvalidEmail = "Please enter a valid email address."
	msgNameTooShort = "Please enter your full name."
	msgDuplicate    = "This email is already registered."
	msgBadPayload   = "Invalid request payload."
	msgInternal     = "An error occurred while processing your request."
)

// Handler serves the landing page and the signup API.
type Handler struct {
	svc     *Service
	stats   *stats.Service
	views   *web.Renderer
	metrics *Metrics
	logger  *zap.SugaredLogger
}

func NewHandler(svc *Service, statsSvc *stats.Service, views *web.Renderer, metrics *Metrics, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, stats: statsSvc, views: views, metrics: metrics, logger: logger}
}

// RegisterRequest is the JSON body of POST /api/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	FullName string `json:"fullName"`
}

// RegisterResponse is returned for every outcome of POST /api/register.
type RegisterResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Index renders the landing page and counts the view.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	if err := h.stats.IncrementPageViews(r.Context()); err != nil {
		h.logger.Errorw("page view not recorded", "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if err := h.views.Render(w, http.StatusOK, web.PageIndex, nil); err != nil {
		h.logger.Errorw("render landing page", "err", err)
	}
}

// Register handles a signup submission.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.logger.Debugw("invalid register payload", "err", err)
		h.metrics.observe(outcomeBadRequest)
		h.writeJSON(w, http.StatusBadRequest, RegisterResponse{Message: msgBadPayload})
		return
	}

	reg, err := h.svc.Submit(r.Context(), SubmitInput{
		Email:         req.Email,
		FullName:      req.FullName,
		ClientAddress: clientAddress(r),
		ClientAgent:   r.UserAgent(),
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingField):
			h.reject(w, outcomeValidation, msgMissingField)
		case errors.Is(err, ErrInvalidEmail):
			h.reject(w, outcomeValidation, msgInvalidEmail)
		case errors.Is(err, ErrNameTooShort):
			h.reject(w, outcomeValidation, msgNameTooShort)
		case errors.Is(err, ErrDuplicate):
			h.reject(w, outcomeDuplicate, msgDuplicate)
		default:
			h.logger.Errorw("registration failed",
				"err", err,
				"remote", r.RemoteAddr,
				"request_id", r.Header.Get("X-Request-ID"),
			)
			h.metrics.observe(outcomeError)
			h.writeJSON(w, http.StatusInternalServerError, RegisterResponse{Message: msgInternal})
		}
		return
	}

	h.logger.Infow("registration stored", "id", reg.ID)
	h.metrics.observe(outcomeSuccess)
	h.writeJSON(w, http.StatusOK, RegisterResponse{Success: true, Message: msgSuccess})
}

func (h *Handler) reject(w http.ResponseWriter, outcome, message string) {
	h.metrics.observe(outcome)
	h.writeJSON(w, http.StatusBadRequest, RegisterResponse{Message: message})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// clientAddress is the host part of the transport peer address, or the raw
// value when it carries no port.
func clientAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
