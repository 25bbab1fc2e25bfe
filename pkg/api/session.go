package api

import "sync"

// Session holds the credential pair for one authenticated storefront
// session. It is the only mutable state shared across concurrent requests,
// and it is injected into the Client explicitly; nothing in this package
// reads ambient global storage.
//
// Created at login, mutated in place by a successful refresh, invalidated at
// logout. Both sides of that lifecycle live outside this package.
type Session struct {
	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

// NewSession creates a session from an existing credential pair.
func NewSession(accessToken, refreshToken string) *Session {
	return &Session{
		accessToken:  accessToken,
		refreshToken: refreshToken,
	}
}

// Tokens returns the current credential pair.
func (s *Session) Tokens() (accessToken, refreshToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken, s.refreshToken
}

// AccessToken returns the current access token.
func (s *Session) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken
}

// SetTokens replaces the credential pair after a successful refresh.
func (s *Session) SetTokens(accessToken, refreshToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = accessToken
	s.refreshToken = refreshToken
}
