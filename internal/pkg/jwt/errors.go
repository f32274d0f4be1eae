package jwt

import "errors"

var (
	ErrInvalidToken             = errors.New("invalid token")
	ErrManagerAccessRequired    = errors.New("manager access required")
	ErrOrganizationAccessDenied = errors.New("token does not grant access to this organization")
)
