package user

import (
	"context"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"github.com/Gurjant002/api-g-books/internal/apperror"
	"github.com/Gurjant002/api-g-books/internal/auth"
	"github.com/Gurjant002/api-g-books/internal/handlers"
)

const (
	registerURL      = "/register"
	loginURL         = "/login"
	tokenValidateURL = "/tokenvalidate"
	usersURL         = "/users"
	userByIDURL      = "/users/:id"
)

type directory interface {
	Register(ctx context.Context, req RegisterRequest) (User, error)
	Insert(ctx context.Context, req DirectInsert) (User, error)
	Authenticate(ctx context.Context, identifier, password string) (auth.Token, error)
	Get(ctx context.Context, id int64) (User, error)
	List(ctx context.Context) ([]User, error)
}

type handler struct {
	service directory
	tokens  *auth.TokenManager
	mw      *auth.Middleware
}

func NewHandler(service *Service, tokens *auth.TokenManager, mw *auth.Middleware) handlers.Handler {
	return &handler{service: service, tokens: tokens, mw: mw}
}

func (h *handler) Register(router *httprouter.Router) {
	router.POST(registerURL, h.RegisterUser)
	router.POST(loginURL, h.LoginUser)
	router.POST(tokenValidateURL, h.ValidateToken)
	router.GET(usersURL, h.mw.Authenticated(h.ListUsers))
	router.GET(userByIDURL, h.mw.Authenticated(h.GetUser))
	router.POST(usersURL, h.mw.Superuser(h.InsertUser))
}

func (h *handler) RegisterUser(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req RegisterRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		handlers.WriteError(w, err)
		return
	}

	created, err := h.service.Register(r.Context(), req)
	if err != nil {
		handlers.WriteError(w, err)
		return
	}

	handlers.WriteJSON(w, http.StatusCreated, created.NonSensitive())
}

func (h *handler) LoginUser(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req LoginRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		handlers.WriteError(w, err)
		return
	}

	if req.Username == "" || req.Password == "" {
		handlers.WriteError(w, apperror.NewValidation("username and password are required"))
		return
	}

	token, err := h.service.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		handlers.WriteError(w, err)
		return
	}

	handlers.WriteJSON(w, http.StatusOK, token)
}

type tokenValidateRequest struct {
	Token string `json:"token"`
}

type tokenValidateResponse struct {
	Status string `json:"status"`
}

func (h *handler) ValidateToken(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req tokenValidateRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		handlers.WriteError(w, err)
		return
	}

	if _, err := h.tokens.Parse(req.Token); err != nil {
		handlers.WriteJSON(w, http.StatusOK, tokenValidateResponse{Status: "invalid"})
		return
	}
	handlers.WriteJSON(w, http.StatusOK, tokenValidateResponse{Status: "valid"})
}

func (h *handler) ListUsers(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	users, err := h.service.List(r.Context())
	if err != nil {
		handlers.WriteError(w, err)
		return
	}

	claims, _ := auth.ClaimsFromContext(r.Context())
	if claims.IsSuperuser {
		out := make([]SensitiveUser, 0, len(users))
		for _, u := range users {
			out = append(out, u.Sensitive())
		}
		handlers.WriteJSON(w, http.StatusOK, out)
		return
	}

	out := make([]NonSensitiveUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.NonSensitive())
	}
	handlers.WriteJSON(w, http.StatusOK, out)
}

func (h *handler) GetUser(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	id, err := strconv.ParseInt(params.ByName("id"), 10, 64)
	if err != nil {
		handlers.WriteError(w, apperror.NewValidation("user id must be an integer"))
		return
	}

	u, err := h.service.Get(r.Context(), id)
	if err != nil {
		handlers.WriteError(w, err)
		return
	}

	claims, _ := auth.ClaimsFromContext(r.Context())
	if claims.IsSuperuser || claims.UserID == u.ID {
		handlers.WriteJSON(w, http.StatusOK, u.Sensitive())
		return
	}
	handlers.WriteJSON(w, http.StatusOK, u.NonSensitive())
}

func (h *handler) InsertUser(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req DirectInsert
	if err := handlers.DecodeJSON(r, &req); err != nil {
		handlers.WriteError(w, err)
		return
	}

	created, err := h.service.Insert(r.Context(), req)
	if err != nil {
		handlers.WriteError(w, err)
		return
	}

	handlers.WriteJSON(w, http.StatusCreated, created.Sensitive())
}
