package domain

import "errors"

var (
	ErrInvalidUser     = errors.New("user not in allow-list")
	ErrInvalidPassword = errors.New("wrong password")
	ErrNotFound        = errors.New("conversation not found")
	ErrForbidden       = errors.New("not the conversation owner")
	ErrEmptyMessage    = errors.New("empty message")
	ErrAdminChat       = errors.New("administrator cannot start chats")
)
