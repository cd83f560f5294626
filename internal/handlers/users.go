package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/habitloop/habit-api/internal/auth"
	"github.com/habitloop/habit-api/internal/database"
	"github.com/habitloop/habit-api/internal/models"
	"github.com/habitloop/habit-api/internal/validation"
)

// UserHandler handles registration and login.
type UserHandler struct {
	users  database.UserRepositoryInterface
	tokens *auth.TokenManager
	log    *zap.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(users database.UserRepositoryInterface, tokens *auth.TokenManager, log *zap.Logger) *UserHandler {
	return &UserHandler{users: users, tokens: tokens, log: log}
}

// RegisterRoutes registers user routes on the given router
func (h *UserHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/register/", h.Register).Methods("POST")
	r.HandleFunc("/login/", h.Login).Methods("POST")
}

// RegisterRequest represents a registration request. ChatID is the
// Telegram chat reminders for this user are delivered to.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	ChatID   int64  `json:"chat_id" validate:"required"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse carries a signed bearer token.
type TokenResponse struct {
	Token string `json:"token"`
}

// Register creates a user account and returns a token for it.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondDetail(w, http.StatusBadRequest, detailMalformedBody)
		return
	}

	if err := validation.Validate.Struct(&req); err != nil {
		respondValidationError(w, validation.FirstFieldError(err))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.log.Error("failed_to_hash_password", zap.Error(err))
		respondDetail(w, http.StatusInternalServerError, detailInternalError)
		return
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        req.Email,
		PasswordHash: string(hash),
		ChatID:       req.ChatID,
	}
	if err := h.users.Create(r.Context(), user); err != nil {
		h.log.Error("failed_to_create_user", zap.Error(err))
		respondDetail(w, http.StatusBadRequest, "A user with this email already exists.")
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.log.Error("failed_to_issue_token", zap.Error(err))
		respondDetail(w, http.StatusInternalServerError, detailInternalError)
		return
	}

	respondJSON(w, http.StatusCreated, TokenResponse{Token: token})
}

// Login verifies credentials and returns a fresh token.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondDetail(w, http.StatusBadRequest, detailMalformedBody)
		return
	}

	if err := validation.Validate.Struct(&req); err != nil {
		respondValidationError(w, validation.FirstFieldError(err))
		return
	}

	ctx := r.Context()
	user, err := h.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondDetail(w, http.StatusUnauthorized, "Invalid email or password.")
			return
		}
		h.log.Error("failed_to_load_user", zap.Error(err))
		respondDetail(w, http.StatusInternalServerError, detailInternalError)
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		respondDetail(w, http.StatusUnauthorized, "Invalid email or password.")
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.log.Error("failed_to_issue_token", zap.Error(err))
		respondDetail(w, http.StatusInternalServerError, detailInternalError)
		return
	}

	respondJSON(w, http.StatusOK, TokenResponse{Token: token})
}
