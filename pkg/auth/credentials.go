// Copyright PaperSynth Authors
// SPDX-License-Identifier: Apache-2.0

// Package auth keeps the two credentials of the system strictly apart:
//
//   - ServiceToken: the static shared secret the Transport Client sends to
//     the processing backend. Process-wide, configured at startup, cleared
//     when the backend rejects it.
//   - Sessions: per-user gateway login sessions, signed JWTs with a TTL.
//
// Neither may ever be substituted for the other.
package auth

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var (
	// ErrNoCredential is returned when the service secret has been cleared.
	ErrNoCredential = errors.New("service credential not set")
	// ErrBadLogin is returned for a wrong login passphrase.
	ErrBadLogin = errors.New("invalid login")
	// ErrInvalidSession is returned for expired or malformed session tokens.
	ErrInvalidSession = errors.New("invalid session token")
)

// ServiceToken holds the backend service secret with an explicit
// init/teardown lifecycle: set at startup, cleared on logout or when the
// backend answers 401. Accessors only; no ad hoc reads of global state.
type ServiceToken struct {
	mu    sync.RWMutex
	token string
}

// NewServiceToken creates the store with the configured secret.
func NewServiceToken(token string) *ServiceToken {
	return &ServiceToken{token: token}
}

// Credential returns the current secret, or ErrNoCredential if cleared.
func (s *ServiceToken) Credential() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", ErrNoCredential
	}
	return s.token, nil
}

// Clear drops the secret. Called when the backend rejects it.
func (s *ServiceToken) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
}

// Set installs a new secret.
func (s *ServiceToken) Set(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// Sessions issues and verifies the gateway's own login sessions.
type Sessions struct {
	secret   []byte
	password string
	ttl      time.Duration
}

// NewSessions creates a session manager. The signing secret is required.
func NewSessions(secret, password string, ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Sessions{secret: []byte(secret), password: password, ttl: ttl}
}

// Login checks the shared passphrase and issues a signed session token.
func (s *Sessions) Login(password string) (string, error) {
	if s.password == "" || password != s.password {
		return "", ErrBadLogin
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   "papersynth-ui",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Verify checks a session token's signature and expiry.
func (s *Sessions) Verify(tokenString string) error {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalidSession
			}
			return s.secret, nil
		})
	if err != nil || !token.Valid {
		return ErrInvalidSession
	}
	return nil
}
