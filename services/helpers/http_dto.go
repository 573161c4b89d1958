package helpers

import (
	"time"

	model "auction-house/internal/models"
)

// Request/Response DTOs. Money travels as decimal strings so amounts are
// never rounded through binary floats.

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        UserResponse `json:"user"`
}

type UserResponse struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

type CreateAuctionRequest struct {
	Name    string `json:"name" binding:"required"`
	EndedAt string `json:"ended_at"` // RFC 3339, optional
}

type UpdateAuctionRequest struct {
	Name    *string `json:"name"`
	EndedAt *string `json:"ended_at"` // RFC 3339
}

type AddItemRequest struct {
	Name         string `json:"name" binding:"required"`
	OpeningPrice string `json:"opening_price" binding:"required"`
}

type PlaceBidRequest struct {
	AuctionID string `json:"auction_id" binding:"required"`
	ItemID    string `json:"item_id" binding:"required"`
	Amount    string `json:"amount" binding:"required"`
}

type AuctionResponse struct {
	AuctionID string `json:"auction_id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	EndedAt   string `json:"ended_at,omitempty"`
	CreatedBy string `json:"created_by"`
}

type AuctionDetailResponse struct {
	AuctionResponse
	Items []ItemResponse `json:"items"`
}

type ItemResponse struct {
	ItemID          string `json:"item_id"`
	AuctionID       string `json:"auction_id"`
	Name            string `json:"name"`
	OpeningPrice    string `json:"opening_price"`
	ClosingPrice    string `json:"closing_price"`
	CurrentBid      string `json:"current_bid"`
	CurrentBidderID string `json:"current_bidder_id,omitempty"`
}

type BidResponse struct {
	BidID      string `json:"bid_id"`
	ItemID     string `json:"item_id"`
	BidderID   string `json:"bidder_id"`
	Amount     string `json:"amount"`
	CurrentBid string `json:"current_bid,omitempty"`
	CreatedAt  string `json:"created_at"`
}

type ImportResultResponse struct {
	Created int      `json:"created"`
	Errors  []string `json:"errors"`
}

// NewUserResponse maps a user to its response shape
func NewUserResponse(user model.User) UserResponse {
	return UserResponse{
		UserID: user.UserID,
		Name:   user.Name,
		Email:  user.Email,
		Role:   string(user.Role),
	}
}

// NewAuctionResponse maps an auction to its response shape
func NewAuctionResponse(auction model.Auction) AuctionResponse {
	resp := AuctionResponse{
		AuctionID: auction.AuctionID,
		Name:      auction.Name,
		Status:    string(auction.Status),
		CreatedAt: auction.CreatedAt.UTC().Format(time.RFC3339),
		CreatedBy: auction.CreatedBy,
	}
	if auction.EndedAt != nil {
		resp.EndedAt = auction.EndedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

// NewItemResponse maps an item to its response shape
func NewItemResponse(item model.Item) ItemResponse {
	resp := ItemResponse{
		ItemID:       item.ItemID,
		AuctionID:    item.AuctionID,
		Name:         item.Name,
		OpeningPrice: item.OpeningPrice.StringFixed(2),
		ClosingPrice: item.ClosingPrice.StringFixed(2),
		CurrentBid:   item.CurrentBid.StringFixed(2),
	}
	if item.CurrentBidderID != nil {
		resp.CurrentBidderID = *item.CurrentBidderID
	}
	return resp
}

// NewBidHistoryResponse maps a bid on its own, for bid history listings
func NewBidHistoryResponse(bid model.Bid) BidResponse {
	return BidResponse{
		BidID:     bid.BidID,
		ItemID:    bid.ItemID,
		BidderID:  bid.BidderID,
		Amount:    bid.Amount.StringFixed(2),
		CreatedAt: bid.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// NewBidResponse maps a bid plus the item it updated to its response shape
func NewBidResponse(bid model.Bid, item model.Item) BidResponse {
	return BidResponse{
		BidID:      bid.BidID,
		ItemID:     bid.ItemID,
		BidderID:   bid.BidderID,
		Amount:     bid.Amount.StringFixed(2),
		CurrentBid: item.CurrentBid.StringFixed(2),
		CreatedAt:  bid.CreatedAt.UTC().Format(time.RFC3339),
	}
}
