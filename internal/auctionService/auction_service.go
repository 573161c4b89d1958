package auction

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"auction-house/internal/auctionerrors"
	"auction-house/internal/models"
	"auction-house/internal/repository"
	"auction-house/utils"
)

// AuctionService owns the auction lifecycle: creation, updates, manual ending
// and the lazy close check that runs before every externally visible read.
type AuctionService struct {
	repo repository.LedgerStore
	now  func() time.Time
}

// NewAuctionService creates a new AuctionService instance
func NewAuctionService(repo repository.LedgerStore) *AuctionService {
	return &AuctionService{
		repo: repo,
		now:  time.Now,
	}
}

// EnsureClosed transitions the auction to ended when its scheduled end has
// passed, freezing every item's closing price at its current bid. Idempotent:
// once the auction is terminal, repeated calls return immediately without
// re-deriving closing prices.
func (s *AuctionService) EnsureClosed(auction models.Auction) (models.Auction, error) {
	if auction.Status != models.StatusActive || auction.EndedAt == nil {
		return auction, nil
	}
	if s.now().UTC().Before(*auction.EndedAt) {
		return auction, nil
	}

	if err := s.repo.CloseAuction(auction.AuctionID, *auction.EndedAt); err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to close auction %s: %w", auction.AuctionID, err)
	}
	auction.Status = models.StatusEnded

	utils.Info("auction lazily closed", map[string]any{
		"auction_id": auction.AuctionID,
		"ended_at":   auction.EndedAt.Format(time.RFC3339),
	})
	return auction, nil
}

// CreateAuction creates a new active auction owned by the given manager
func (s *AuctionService) CreateAuction(name string, endedAt *time.Time, createdBy string) (models.Auction, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Auction{}, fmt.Errorf("service: %w - auction name is required", auctionerrors.ErrInvalidInput)
	}
	if createdBy == "" {
		return models.Auction{}, fmt.Errorf("service: %w - missing creator", auctionerrors.ErrInvalidInput)
	}

	auction := models.Auction{
		AuctionID: utils.GenerateID(),
		Name:      name,
		CreatedAt: s.now().UTC(),
		EndedAt:   endedAt,
		Status:    models.StatusActive,
		CreatedBy: createdBy,
	}
	if err := s.repo.CreateAuction(auction); err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to create auction: %w", err)
	}
	return auction, nil
}

// UpdateAuction changes the name and/or scheduled end of an active auction
func (s *AuctionService) UpdateAuction(auctionID string, name *string, endedAt *time.Time) (models.Auction, error) {
	auction, _, err := s.repo.GetAuction(auctionID, false)
	if err != nil {
		return models.Auction{}, fmt.Errorf("service: %w", err)
	}
	auction, err = s.EnsureClosed(auction)
	if err != nil {
		return models.Auction{}, err
	}
	if auction.Status != models.StatusActive {
		return models.Auction{}, fmt.Errorf("service: cannot update auction %s: %w", auctionID, auctionerrors.ErrAuctionNotActive)
	}

	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return models.Auction{}, fmt.Errorf("service: %w - auction name is required", auctionerrors.ErrInvalidInput)
		}
		auction.Name = trimmed
	}
	if endedAt != nil {
		auction.EndedAt = endedAt
	}

	if err := s.repo.UpdateAuction(auction); err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to update auction %s: %w", auctionID, err)
	}
	return auction, nil
}

// AddItem adds an item to an active auction. The item's current bid starts at
// its opening price.
func (s *AuctionService) AddItem(auctionID, name string, openingPrice decimal.Decimal) (models.Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Item{}, fmt.Errorf("service: %w - item name is required", auctionerrors.ErrInvalidInput)
	}
	if !openingPrice.IsPositive() {
		return models.Item{}, fmt.Errorf("service: %w - opening price must be positive", auctionerrors.ErrInvalidInput)
	}

	auction, _, err := s.repo.GetAuction(auctionID, false)
	if err != nil {
		return models.Item{}, fmt.Errorf("service: %w", err)
	}
	auction, err = s.EnsureClosed(auction)
	if err != nil {
		return models.Item{}, err
	}
	if auction.Status != models.StatusActive {
		return models.Item{}, fmt.Errorf("service: cannot add item to auction %s: %w", auctionID, auctionerrors.ErrAuctionNotActive)
	}

	item := models.Item{
		ItemID:       utils.GenerateID(),
		AuctionID:    auctionID,
		Name:         name,
		OpeningPrice: openingPrice,
		CurrentBid:   openingPrice,
	}
	if err := s.repo.CreateItem(item); err != nil {
		return models.Item{}, fmt.Errorf("service: failed to add item to auction %s: %w", auctionID, err)
	}
	return item, nil
}

// EndAuction manually transitions an active auction to ended, freezing
// closing prices the same way the lazy close does.
func (s *AuctionService) EndAuction(auctionID string) (models.Auction, error) {
	auction, _, err := s.repo.GetAuction(auctionID, false)
	if err != nil {
		return models.Auction{}, fmt.Errorf("service: %w", err)
	}
	auction, err = s.EnsureClosed(auction)
	if err != nil {
		return models.Auction{}, err
	}
	if auction.Status != models.StatusActive {
		return models.Auction{}, fmt.Errorf("service: cannot end auction %s: %w", auctionID, auctionerrors.ErrAuctionNotActive)
	}

	endedAt := s.now().UTC()
	if err := s.repo.CloseAuction(auctionID, endedAt); err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to end auction %s: %w", auctionID, err)
	}
	auction.Status = models.StatusEnded
	if auction.EndedAt == nil {
		auction.EndedAt = &endedAt
	}
	return auction, nil
}

// GetAuction returns an auction with its items, lazily closing it first
func (s *AuctionService) GetAuction(auctionID string) (models.Auction, []models.Item, error) {
	if auctionID == "" {
		return models.Auction{}, nil, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrInvalidInput)
	}

	auction, _, err := s.repo.GetAuction(auctionID, false)
	if err != nil {
		return models.Auction{}, nil, fmt.Errorf("service: %w", err)
	}
	auction, err = s.EnsureClosed(auction)
	if err != nil {
		return models.Auction{}, nil, err
	}

	// re-read items after the close check so closing prices are visible
	_, items, err := s.repo.GetAuction(auctionID, true)
	if err != nil {
		return models.Auction{}, nil, fmt.Errorf("service: %w", err)
	}
	return auction, items, nil
}

// ListAuctions returns all auctions, lazily closing each before it is returned
func (s *AuctionService) ListAuctions() ([]models.Auction, error) {
	auctions, err := s.repo.ListAuctions()
	if err != nil {
		return nil, fmt.Errorf("service: failed to list auctions: %w", err)
	}

	out := make([]models.Auction, 0, len(auctions))
	for _, auction := range auctions {
		closed, err := s.EnsureClosed(auction)
		if err != nil {
			return nil, err
		}
		out = append(out, closed)
	}
	return out, nil
}
