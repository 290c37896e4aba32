package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"

	"github.com/Makepad-fr/tada/internal/backend"
	"github.com/Makepad-fr/tada/internal/backend/sqlite"
	"github.com/Makepad-fr/tada/internal/model"
)

type Server struct {
	db     *sqlite.DB
	log    *log.Logger
	apiKey string
}

// New builds a server. An empty apiKey disables the X-Api-Key check.
func New(db *sqlite.DB, logger *log.Logger, apiKey string) *Server {
	return &Server{db: db, log: logger, apiKey: apiKey}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "OK")
	}).Methods("GET")

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.Use(s.requireAPIKey)
	v1.HandleFunc("/auth/signin", s.signIn).Methods("POST")
	v1.HandleFunc("/auth/signup", s.signUp).Methods("POST")

	authed := v1.NewRoute().Subrouter()
	authed.Use(s.requireSession)
	authed.HandleFunc("/auth/signout", s.signOut).Methods("POST")
	authed.HandleFunc("/auth/me", s.me).Methods("GET")
	authed.HandleFunc("/todos", s.listTodos).Methods("GET")
	authed.HandleFunc("/todos", s.addTodo).Methods("POST")
	authed.HandleFunc("/todos/{id}", s.setTodo).Methods("PUT")
	authed.HandleFunc("/todos/{id}", s.deleteTodo).Methods("DELETE")
	return r
}

type ctxKey int

const (
	userKey ctxKey = iota
	tokenKey
)

func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(APIKeyHeader)), []byte(s.apiKey)) != 1 {
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "invalid api key"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := bearerToken(r)
		u, err := s.db.UserByToken(r.Context(), tok)
		if err != nil {
			s.writeError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), userKey, u)
		ctx = context.WithValue(ctx, tokenKey, tok)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func currentUser(r *http.Request) backend.User {
	u, _ := r.Context().Value(userKey).(backend.User)
	return u
}

func (s *Server) signIn(w http.ResponseWriter, r *http.Request) {
	s.startSession(w, r, s.db.VerifyUser, http.StatusOK)
}

func (s *Server) signUp(w http.ResponseWriter, r *http.Request) {
	s.startSession(w, r, s.db.CreateUser, http.StatusCreated)
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request,
	authenticate func(context.Context, string, string) (backend.User, error), status int) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	u, err := authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}
	tok, err := s.db.IssueToken(r.Context(), u.UID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.log.Info("session started", "uid", u.UID)
	writeJSON(w, status, SessionResponse{Token: tok, User: u})
}

func (s *Server) signOut(w http.ResponseWriter, r *http.Request) {
	tok, _ := r.Context().Value(tokenKey).(string)
	if err := s.db.RevokeToken(r.Context(), tok); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentUser(r))
}

func (s *Server) listTodos(w http.ResponseWriter, r *http.Request) {
	items, err := s.db.QueryTodos(r.Context(), currentUser(r).UID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) addTodo(w http.ResponseWriter, r *http.Request) {
	var t model.Todo
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if t.UID != currentUser(r).UID {
		s.writeError(w, backend.ErrForbidden)
		return
	}
	id, err := s.db.AddTodo(r.Context(), t)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, AddResponse{ID: id})
}

func (s *Server) setTodo(w http.ResponseWriter, r *http.Request) {
	var t model.Todo
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	t.ID = mux.Vars(r)["id"]
	if err := s.db.SetTodo(r.Context(), currentUser(r).UID, t); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteTodo(w http.ResponseWriter, r *http.Request) {
	if err := s.db.DeleteTodo(r.Context(), currentUser(r).UID, mux.Vars(r)["id"]); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// StatusFor maps backend errors to HTTP statuses.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, backend.ErrInvalidCredentials), errors.Is(err, backend.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, backend.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, backend.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, backend.ErrUserExists):
		return http.StatusConflict
	case errors.Is(err, backend.ErrInvalidDocument):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "err", err)
		msg = "internal error"
	}
	writeJSON(w, status, ErrorResponse{Error: msg})
}
