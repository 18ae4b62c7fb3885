package user

import "time"

// RegisterDTO is the request body for creating an account.
type RegisterDTO struct {
	Username string `json:"username" binding:"required,min=3,max=32"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name"`
}

// LoginDTO is the request body for logging in.
type LoginDTO struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// userResponse is the outbound representation of a user (no password hash).
type userResponse struct {
	ID            string     `json:"id"`
	Username      string     `json:"username"`
	Name          string     `json:"name"`
	LastLoginTime *time.Time `json:"last_login_time"`
	Created       time.Time  `json:"created"`
}

// loginResponse carries the signed token alongside the profile.
type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}
