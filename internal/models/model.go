package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role identifies what a user is allowed to do.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleManager  Role = "manager"
)

// IsValid reports whether the role is one of the known values
func (r Role) IsValid() bool {
	return r == RoleCustomer || r == RoleManager
}

// AuctionStatus is the lifecycle state of an auction
type AuctionStatus string

const (
	StatusActive    AuctionStatus = "active"
	StatusEnded     AuctionStatus = "ended"
	StatusCancelled AuctionStatus = "cancelled"
)

// Terminal reports whether no further status transitions are allowed
func (s AuctionStatus) Terminal() bool {
	return s == StatusEnded || s == StatusCancelled
}

// User represents a participant in the auction house
type User struct {
	UserID       string `json:"user_id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"role"`
}

// Auction groups items for sale under one lifecycle
type Auction struct {
	AuctionID string        `json:"auction_id"`
	Name      string        `json:"name"`
	CreatedAt time.Time     `json:"created_at"`
	EndedAt   *time.Time    `json:"ended_at,omitempty"`
	Status    AuctionStatus `json:"status"`
	CreatedBy string        `json:"created_by"`
}

// Item represents a lot under auction. CurrentBid starts at OpeningPrice and
// only ever increases; ClosingPrice stays zero until the auction ends.
type Item struct {
	ItemID          string          `json:"item_id"`
	AuctionID       string          `json:"auction_id"`
	Name            string          `json:"name"`
	OpeningPrice    decimal.Decimal `json:"opening_price"`
	ClosingPrice    decimal.Decimal `json:"closing_price"`
	CurrentBid      decimal.Decimal `json:"current_bid"`
	CurrentBidderID *string         `json:"current_bidder_id,omitempty"`
}

// Bid represents a user's accepted bid on an item. Bids are append-only.
type Bid struct {
	BidID     string          `json:"bid_id"`
	ItemID    string          `json:"item_id"`
	BidderID  string          `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}
