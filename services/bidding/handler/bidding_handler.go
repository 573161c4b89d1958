package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"auction-house/internal/auctionerrors"
	model "auction-house/internal/models"
	"auction-house/services/helpers"
	"auction-house/utils"
)

type BiddingServiceInterface interface {
	PlaceBid(auctionID, itemID, bidderID string, amount decimal.Decimal) (model.Bid, model.Item, error)
	ListBidsByUser(userID string) ([]model.Bid, error)
}

type BiddingHandler struct {
	service BiddingServiceInterface
}

func NewBiddingHandler(service BiddingServiceInterface) *BiddingHandler {
	return &BiddingHandler{service: service}
}

// PlaceBidHandler handles POST /customers/bids
func (h *BiddingHandler) PlaceBidHandler(c *gin.Context) {
	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "PlaceBidHandler", err)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		helpers.RespondError(c, "PlaceBidHandler",
			fmt.Errorf("%w - amount must be a decimal string", auctionerrors.ErrInvalidBid))
		return
	}

	bidderID := c.GetString(helpers.ContextUserIDKey)
	bid, item, err := h.service.PlaceBid(req.AuctionID, req.ItemID, bidderID, amount)
	if err != nil {
		helpers.RespondError(c, "PlaceBidHandler", err)
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.NewBidResponse(bid, item), "bid recorded successfully")
	helpers.LogSuccess("PlaceBidHandler", "bid recorded successfully", map[string]any{
		"bid_id":     bid.BidID,
		"auction_id": req.AuctionID,
		"item_id":    bid.ItemID,
		"bidder_id":  bidderID,
		"amount":     bid.Amount.String(),
	})
}

// MyBidsHandler handles GET /customers/bids
func (h *BiddingHandler) MyBidsHandler(c *gin.Context) {
	userID := c.GetString(helpers.ContextUserIDKey)
	bids, err := h.service.ListBidsByUser(userID)
	if err != nil {
		helpers.RespondError(c, "MyBidsHandler", err)
		return
	}

	resp := make([]helpers.BidResponse, 0, len(bids))
	for _, bid := range bids {
		resp = append(resp, helpers.NewBidHistoryResponse(bid))
	}
	utils.JSONResponse(c, http.StatusOK, resp, "bids retrieved successfully")
}
