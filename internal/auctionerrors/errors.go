package auctionerrors

import "errors"

// Repository-level errors
var (
	ErrAuctionNotFound = errors.New("auction not found")
	ErrItemNotFound    = errors.New("item not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrPersistence     = errors.New("persistence failure")
)

// business logic errors
var (
	ErrAuctionNotActive   = errors.New("auction not active")
	ErrInvalidBid         = errors.New("invalid bid")
	ErrBidTooLow          = errors.New("bid amount too low")
	ErrBelowOpeningPrice  = errors.New("bid below opening price")
	ErrInvalidInput       = errors.New("invalid input")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
