package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"alumnihub.com/alumni-feed/models"
)

// Session is the signed-in user as described by the bearer token's claims.
// The token is verified by the backend, not here.
type Session struct {
	Token     string
	Author    models.Author
	ExpiresAt time.Time
}

type sessionClaims struct {
	jwt.RegisteredClaims
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

// ParseSession reads identity claims from a bearer token. The user id comes
// from the user_id claim, falling back to sub.
func ParseSession(token string) (Session, error) {
	claims := &sessionClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Session{}, fmt.Errorf("parse session token: %w", err)
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return Session{}, fmt.Errorf("parse session token: %w: missing user id", ErrUnauthenticated)
	}

	session := Session{
		Token: token,
		Author: models.Author{
			UserID:      userID,
			Username:    claims.Username,
			DisplayName: claims.DisplayName,
			AvatarURL:   claims.AvatarURL,
		},
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}

	return session, nil
}

// Expired reports whether the token's exp claim is at or before now. Tokens
// without exp never expire here.
func (s Session) Expired(now time.Time) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}

	return !now.Before(s.ExpiresAt)
}
