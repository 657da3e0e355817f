package jwttoken

import (
	"intake/internal/platform/middleware"
)

// JWTServiceAdapter bridges the token service to the middleware's validator
// interface without the middleware importing jwt internals.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*middleware.StaffClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &middleware.StaffClaims{
		Subject: claims.Subject,
		Role:    claims.Role,
	}, nil
}
