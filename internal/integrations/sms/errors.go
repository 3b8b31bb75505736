package sms

import "errors"

var (
	// ErrInternal is returned on client-side failures before the request is sent
	ErrInternal = errors.New("sms client: internal error")

	// ErrSendFailed is returned when the provider rejects or fails the message
	ErrSendFailed = errors.New("sms client: send failed")

	// ErrInvalidResponse is returned when the provider response cannot be parsed
	ErrInvalidResponse = errors.New("sms client: invalid response")
)
