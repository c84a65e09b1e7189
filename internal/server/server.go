package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"tablica/internal/app"
	"tablica/internal/ratelimit"
	"tablica/internal/util"
	"tablica/pkg/domain"
)

const maxBodyBytes = 1 << 20

// Limiter admits or rejects one request for a key.
type Limiter interface {
	Allow(ctx context.Context, key string) (ratelimit.Decision, error)
}

// Config wires required dependencies for the HTTP server.
type Config struct {
	App            *app.App
	MessageLimiter Limiter
	ListingLimiter Limiter
	TrustedProxies *util.TrustedProxies
	CORSOrigins    []string
}

// Server exposes the marketplace HTTP API.
type Server struct {
	app            *app.App
	messageLimiter Limiter
	listingLimiter Limiter
	trustedProxies *util.TrustedProxies
	router         chi.Router
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("server: app is required")
	}
	s := &Server{
		app:            cfg.App,
		messageLimiter: cfg.MessageLimiter,
		listingLimiter: cfg.ListingLimiter,
		trustedProxies: cfg.TrustedProxies,
	}
	r := chi.NewRouter()
	r.Use(
		util.WithRequestID,
		util.WithRequestLog("tablica"),
		middleware.Recoverer,
		util.WithSecurityHeaders,
		util.WithCORS(cfg.CORSOrigins),
	)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) { notFound(w, "not found") })
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) { methodNotAllowed(w) })
	s.router = r
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router
	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/me", s.handleMe)

		r.Route("/listings", func(r chi.Router) {
			r.Get("/", s.handleListListings)
			r.With(s.rateLimited(s.listingLimiter, "listing")).Post("/", s.handleCreateListing)
			r.Get("/{id}", s.handleGetListing)
			r.Patch("/{id}", s.handleUpdateListing)
			r.Delete("/{id}", s.handleDeleteListing)
		})

		r.Post("/users", s.handleCreateUser)
		r.Route("/users/{userId}", func(r chi.Router) {
			r.Get("/", s.handleGetUser)
			r.Patch("/avatar", s.handleSetAvatar)
			r.Get("/listings", s.handleUserListings)
			r.Get("/conversations", s.handleUserConversations)
			r.Get("/favorites", s.handleUserFavorites)
			r.Post("/favorites/{listingId}", s.handleAddFavorite)
			r.Delete("/favorites/{listingId}", s.handleRemoveFavorite)
			r.Get("/favorites/{listingId}/check", s.handleCheckFavorite)
		})

		r.Post("/conversations", s.handleCreateConversation)
		r.Get("/conversations/{id}/messages", s.handleListMessages)
		r.Post("/conversations/{id}/read", s.handleMarkRead)

		r.With(s.rateLimited(s.messageLimiter, "message")).Post("/messages", s.handleSendMessage)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// rateLimited rejects requests over quota with 429. A nil limiter disables the check;
// limiter failures reject the request.
func (s *Server) rateLimited(limiter Limiter, scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := scope + ":" + util.ClientIP(r, s.trustedProxies)
			decision, err := limiter.Allow(r.Context(), key)
			if err != nil {
				util.LoggerFromContext(r.Context()).Warn("rate limiter unavailable", "scope", scope, "err", err)
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			if !decision.Allowed {
				retry := int((decision.RetryAfter + time.Second - 1) / time.Second)
				w.Header().Set("Retry-After", strconv.Itoa(max(retry, 1)))
				writeError(w, http.StatusTooManyRequests, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// listings

func (s *Server) handleListListings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	listings, err := s.app.ListListings(q.Get("search"), q.Get("category"))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listings)
}

func (s *Server) handleGetListing(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	listing, err := s.app.ViewListing(id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func (s *Server) handleCreateListing(w http.ResponseWriter, r *http.Request) {
	var req app.CreateListingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	listing, err := s.app.CreateListing(req)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, listing)
}

func (s *Server) handleUpdateListing(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req app.UpdateListingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	listing, err := s.app.UpdateListing(id, req)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func (s *Server) handleDeleteListing(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.app.DeleteListing(id); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Listing deleted successfully"})
}

// users

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.app.CurrentUser()
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "userId")
	if !ok {
		return
	}
	user, err := s.app.GetUser(id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req app.CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := s.app.CreateUser(req)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleSetAvatar(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "userId")
	if !ok {
		return
	}
	var req app.SetAvatarRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := s.app.SetAvatar(id, req)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleUserListings(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "userId")
	if !ok {
		return
	}
	listings, err := s.app.ListUserListings(id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listings)
}

func (s *Server) handleUserConversations(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "userId")
	if !ok {
		return
	}
	conversations, err := s.app.ListUserConversations(id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conversations)
}

// conversations

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req app.CreateConversationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	conversation, err := s.app.StartConversation(req)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, conversation)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	messages, err := s.app.ListMessages(id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req app.MarkReadRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.app.MarkRead(id, req); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req app.SendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	msg, err := s.app.SendMessage(req)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// favorites

func (s *Server) handleUserFavorites(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "userId")
	if !ok {
		return
	}
	favorites, err := s.app.ListFavorites(id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, favorites)
}

func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	userID, listingID, ok := favoriteIDs(w, r)
	if !ok {
		return
	}
	fav, err := s.app.AddFavorite(userID, listingID)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, fav)
}

func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	userID, listingID, ok := favoriteIDs(w, r)
	if !ok {
		return
	}
	if err := s.app.RemoveFavorite(userID, listingID); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Removed from favorites"})
}

func (s *Server) handleCheckFavorite(w http.ResponseWriter, r *http.Request) {
	userID, listingID, ok := favoriteIDs(w, r)
	if !ok {
		return
	}
	isFavorite, err := s.app.IsFavorite(userID, listingID)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"isFavorite": isFavorite})
}

func favoriteIDs(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	userID, ok := pathID(w, r, "userId")
	if !ok {
		return 0, 0, false
	}
	listingID, ok := pathID(w, r, "listingId")
	if !ok {
		return 0, 0, false
	}
	return userID, listingID, true
}

// helpers

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeValidation(w, &domain.ValidationError{Fields: []domain.FieldError{
			{Field: name, Message: fmt.Sprintf("must be a positive integer, got %q", raw)},
		}})
		return 0, false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		case errors.Is(err, io.EOF):
			writeError(w, http.StatusBadRequest, "request body is required")
		default:
			writeError(w, http.StatusBadRequest, "invalid json body")
		}
		return false
	}
	return true
}

func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		writeValidation(w, ve)
	case errors.Is(err, app.ErrListingNotFound):
		notFound(w, "listing not found")
	case errors.Is(err, app.ErrConversationNotFound):
		notFound(w, "conversation not found")
	case errors.Is(err, app.ErrUserNotFound):
		notFound(w, "user not found")
	case errors.Is(err, app.ErrFavoriteNotFound):
		notFound(w, "favorite not found")
	case errors.Is(err, domain.ErrNotFound):
		notFound(w, "not found")
	default:
		util.LoggerFromContext(r.Context()).Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func notFound(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusNotFound, msg)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error     string              `json:"error"`
	Code      string              `json:"code"`
	Fields    []domain.FieldError `json:"fields,omitempty"`
	RequestID string              `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{
		Error:     msg,
		Code:      errorCodeFor(status, msg),
		RequestID: strings.TrimSpace(w.Header().Get(util.RequestIDHeader)),
	})
}

func writeValidation(w http.ResponseWriter, ve *domain.ValidationError) {
	writeJSON(w, http.StatusBadRequest, errorResponse{
		Error:     "validation failed",
		Code:      "VALIDATION_FAILED",
		Fields:    ve.Fields,
		RequestID: strings.TrimSpace(w.Header().Get(util.RequestIDHeader)),
	})
}

func errorCodeFor(status int, msg string) string {
	switch strings.ToLower(strings.TrimSpace(msg)) {
	case "listing not found":
		return "LISTING_NOT_FOUND"
	case "conversation not found":
		return "CONVERSATION_NOT_FOUND"
	case "user not found":
		return "USER_NOT_FOUND"
	case "favorite not found":
		return "FAVORITE_NOT_FOUND"
	case "invalid json body", "request body is required":
		return "REQUEST_INVALID_BODY"
	case "request body too large":
		return "REQUEST_BODY_TOO_LARGE"
	case "too many requests":
		return "SYSTEM_RATE_LIMITED"
	case "method not allowed":
		return "SYSTEM_METHOD_NOT_ALLOWED"
	case "not found":
		return "SYSTEM_NOT_FOUND"
	}

	switch status {
	case http.StatusBadRequest:
		return "REQUEST_INVALID"
	case http.StatusNotFound:
		return "SYSTEM_NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "SYSTEM_METHOD_NOT_ALLOWED"
	case http.StatusTooManyRequests:
		return "SYSTEM_RATE_LIMITED"
	default:
		if status >= http.StatusInternalServerError {
			return "SYSTEM_INTERNAL_ERROR"
		}
		return "REQUEST_ERROR"
	}
}
