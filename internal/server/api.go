// Package server exposes the document database over HTTP: email/password
// auth with bearer-token sessions and the todos collection.
package server

import (
	"github.com/Makepad-fr/tada/internal/backend"
)

// Wire types shared with the remote client.

const APIKeyHeader = "X-Api-Key"

type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SessionResponse struct {
	Token string       `json:"token"`
	User  backend.User `json:"user"`
}

type AddResponse struct {
	ID string `json:"id"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
