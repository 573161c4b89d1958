package bidding

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"auction-house/internal/auctionerrors"
	"auction-house/internal/models"
	"auction-house/internal/repository"
	"auction-house/utils"
)

// AuctionCloser applies the lazy close check to an auction before a bid may
// be validated against it.
type AuctionCloser interface {
	EnsureClosed(auction models.Auction) (models.Auction, error)
}

// BiddingService validates and applies bids against items under
// auction-state constraints.
type BiddingService struct {
	repo   repository.LedgerStore
	closer AuctionCloser
	now    func() time.Time
}

// NewBiddingService creates a new BiddingService instance
func NewBiddingService(repo repository.LedgerStore, closer AuctionCloser) *BiddingService {
	return &BiddingService{
		repo:   repo,
		closer: closer,
		now:    time.Now,
	}
}

// PlaceBid validates a bid and applies it in a single transaction. On
// success exactly one bid row is created and the item's current bid and
// bidder are updated; on failure nothing changes. Checks run in a fixed
// order and the first failure wins.
func (s *BiddingService) PlaceBid(auctionID, itemID, bidderID string, amount decimal.Decimal) (models.Bid, models.Item, error) {
	if auctionID == "" || itemID == "" || bidderID == "" {
		return models.Bid{}, models.Item{}, fmt.Errorf("service: %w - missing auctionID, itemID or bidderID", auctionerrors.ErrInvalidBid)
	}
	if !amount.IsPositive() {
		return models.Bid{}, models.Item{}, fmt.Errorf("service: %w - non-positive bid amount", auctionerrors.ErrInvalidBid)
	}

	auction, _, err := s.repo.GetAuction(auctionID, false)
	if err != nil {
		return models.Bid{}, models.Item{}, fmt.Errorf("service: %w", err)
	}

	auction, err = s.closer.EnsureClosed(auction)
	if err != nil {
		return models.Bid{}, models.Item{}, err
	}
	if auction.Status != models.StatusActive {
		return models.Bid{}, models.Item{}, fmt.Errorf("service: cannot bid on auction %s: %w", auctionID, auctionerrors.ErrAuctionNotActive)
	}

	item, err := s.repo.GetItem(auctionID, itemID)
	if err != nil {
		return models.Bid{}, models.Item{}, fmt.Errorf("service: %w", err)
	}
	if !amount.GreaterThan(item.CurrentBid) {
		return models.Bid{}, models.Item{}, fmt.Errorf("service: %w - must exceed current bid (%s)",
			auctionerrors.ErrBidTooLow, item.CurrentBid.StringFixed(2))
	}
	// unreachable while current_bid >= opening_price holds; kept as an
	// invariant check
	if amount.LessThan(item.OpeningPrice) {
		return models.Bid{}, models.Item{}, fmt.Errorf("service: %w - opening price is %s",
			auctionerrors.ErrBelowOpeningPrice, item.OpeningPrice.StringFixed(2))
	}

	bid := models.Bid{
		BidID:     utils.GenerateID(),
		ItemID:    itemID,
		BidderID:  bidderID,
		Amount:    amount,
		CreatedAt: s.now().UTC(),
	}

	// the store re-checks the amount against the authoritative current bid
	// inside its critical section; a concurrent higher bid rejects this one
	updated, err := s.repo.ApplyBid(auctionID, bid)
	if err != nil {
		return models.Bid{}, models.Item{}, fmt.Errorf("service: failed to apply bid on item %s by user %s: %w", itemID, bidderID, err)
	}

	utils.Info("bid accepted", map[string]any{
		"bid_id":     bid.BidID,
		"auction_id": auctionID,
		"item_id":    itemID,
		"bidder_id":  bidderID,
		"amount":     amount.String(),
	})
	return bid, updated, nil
}

// ListBidsByUser returns the bidding history of a user, oldest first
func (s *BiddingService) ListBidsByUser(userID string) ([]models.Bid, error) {
	if userID == "" {
		return nil, fmt.Errorf("service: %w - empty user ID", auctionerrors.ErrInvalidBid)
	}

	bids, err := s.repo.ListBidsByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list bids for user %s: %w", userID, err)
	}
	return bids, nil
}
