package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// UserRole is the dashboard role carried in access tokens.
type UserRole string

const (
	RoleAdmin          UserRole = "admin"
	RoleStationManager UserRole = "station_manager"
	RoleViewer         UserRole = "viewer"
)

// JWTClaims represents the JWT payload for dashboard access tokens.
type JWTClaims struct {
	UserID    string   `json:"user_id"`
	Role      UserRole `json:"role"`
	Email     string   `json:"email"`
	FullName  string   `json:"full_name"`
	StationID string   `json:"station_id,omitempty"`
	jwt.RegisteredClaims
}
