package repository

import (
	"fmt"
	"sync"
	"time"

	"auction-house/internal/auctionerrors"
	model "auction-house/internal/models"
)

// LedgerStore defines the durable record of users, auctions, items and bids.
// Every mutation is atomic: it either fully applies or leaves the ledger
// untouched.
type LedgerStore interface {
	CreateUser(user model.User) error
	GetUserByEmail(email string) (model.User, error)
	GetUserByID(userID string) (model.User, error)

	CreateAuction(auction model.Auction) error
	UpdateAuction(auction model.Auction) error
	GetAuction(auctionID string, withItems bool) (model.Auction, []model.Item, error)
	ListAuctions() ([]model.Auction, error)
	CloseAuction(auctionID string, endedAt time.Time) error
	ImportAuction(auction model.Auction, items []model.Item) error

	CreateItem(item model.Item) error
	GetItem(auctionID, itemID string) (model.Item, error)

	ApplyBid(auctionID string, bid model.Bid) (model.Item, error)
	CountBids(itemID string) (int, error)
	ListBidsByUser(userID string) ([]model.Bid, error)
}

// MemoryRepo is a concurrency-safe in-memory implementation of LedgerStore
type MemoryRepo struct {
	mu           sync.RWMutex
	users        map[string]model.User // key: userID -> value: user
	usersByEmail map[string]string     // key: email -> value: userID
	auctions     map[string]model.Auction
	auctionIDs   []string              // auction IDs in creation order
	items        map[string]model.Item // key: itemID -> value: item
	auctionItems map[string][]string   // key: auctionID -> value: itemIDs in creation order
	bids         map[string][]model.Bid
	bidsByUser   map[string][]model.Bid
}

// NewMemoryRepo creates a new in-memory ledger instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		users:        make(map[string]model.User),
		usersByEmail: make(map[string]string),
		auctions:     make(map[string]model.Auction),
		items:        make(map[string]model.Item),
		auctionItems: make(map[string][]string),
		bids:         make(map[string][]model.Bid),
		bidsByUser:   make(map[string][]model.Bid),
	}
}

// CreateUser stores a new user; emails are unique
func (r *MemoryRepo) CreateUser(user model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.usersByEmail[user.Email]; ok {
		return fmt.Errorf("create user %s: %w", user.Email, auctionerrors.ErrDuplicateEmail)
	}
	r.users[user.UserID] = user
	r.usersByEmail[user.Email] = user.UserID
	return nil
}

// GetUserByEmail returns the user registered under the given email
func (r *MemoryRepo) GetUserByEmail(email string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userID, ok := r.usersByEmail[email]
	if !ok {
		return model.User{}, fmt.Errorf("get user by email %s: %w", email, auctionerrors.ErrUserNotFound)
	}
	return r.users[userID], nil
}

// GetUserByID returns the user with the given ID
func (r *MemoryRepo) GetUserByID(userID string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[userID]
	if !ok {
		return model.User{}, fmt.Errorf("get user %s: %w", userID, auctionerrors.ErrUserNotFound)
	}
	return user, nil
}

// CreateAuction stores a new auction
func (r *MemoryRepo) CreateAuction(auction model.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.auctions[auction.AuctionID] = auction
	r.auctionIDs = append(r.auctionIDs, auction.AuctionID)
	return nil
}

// UpdateAuction replaces the stored auction record
func (r *MemoryRepo) UpdateAuction(auction model.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.auctions[auction.AuctionID]; !ok {
		return fmt.Errorf("update auction %s: %w", auction.AuctionID, auctionerrors.ErrAuctionNotFound)
	}
	r.auctions[auction.AuctionID] = auction
	return nil
}

// GetAuction returns an auction, optionally with its items loaded
func (r *MemoryRepo) GetAuction(auctionID string, withItems bool) (model.Auction, []model.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	auction, ok := r.auctions[auctionID]
	if !ok {
		return model.Auction{}, nil, fmt.Errorf("get auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	if !withItems {
		return auction, nil, nil
	}
	return auction, r.itemsLocked(auctionID), nil
}

// itemsLocked copies the items of an auction; callers must hold the lock.
func (r *MemoryRepo) itemsLocked(auctionID string) []model.Item {
	itemIDs := r.auctionItems[auctionID]
	items := make([]model.Item, 0, len(itemIDs))
	for _, id := range itemIDs {
		items = append(items, r.items[id])
	}
	return items
}

// ListAuctions returns all auctions in creation order
func (r *MemoryRepo) ListAuctions() ([]model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	auctions := make([]model.Auction, 0, len(r.auctionIDs))
	for _, id := range r.auctionIDs {
		auctions = append(auctions, r.auctions[id])
	}
	return auctions, nil
}

// CloseAuction transitions an active auction to ended and freezes each item's
// closing price at its current bid, all in one atomic unit. Calling it on an
// already ended or cancelled auction is a no-op.
func (r *MemoryRepo) CloseAuction(auctionID string, endedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	auction, ok := r.auctions[auctionID]
	if !ok {
		return fmt.Errorf("close auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	if auction.Status.Terminal() {
		return nil
	}

	auction.Status = model.StatusEnded
	if auction.EndedAt == nil {
		auction.EndedAt = &endedAt
	}
	r.auctions[auctionID] = auction

	for _, itemID := range r.auctionItems[auctionID] {
		item := r.items[itemID]
		item.ClosingPrice = item.CurrentBid
		r.items[itemID] = item
	}
	return nil
}

// ImportAuction stores an auction together with its items as one atomic unit
func (r *MemoryRepo) ImportAuction(auction model.Auction, items []model.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.auctions[auction.AuctionID]; ok {
		return fmt.Errorf("import auction %s: auction already exists", auction.AuctionID)
	}
	for _, item := range items {
		if item.AuctionID != auction.AuctionID {
			return fmt.Errorf("import auction %s: item %s belongs to another auction", auction.AuctionID, item.ItemID)
		}
	}

	r.auctions[auction.AuctionID] = auction
	r.auctionIDs = append(r.auctionIDs, auction.AuctionID)
	for _, item := range items {
		r.items[item.ItemID] = item
		r.auctionItems[auction.AuctionID] = append(r.auctionItems[auction.AuctionID], item.ItemID)
	}
	return nil
}

// CreateItem adds an item to an existing auction
func (r *MemoryRepo) CreateItem(item model.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.auctions[item.AuctionID]; !ok {
		return fmt.Errorf("create item for auction %s: %w", item.AuctionID, auctionerrors.ErrAuctionNotFound)
	}
	r.items[item.ItemID] = item
	r.auctionItems[item.AuctionID] = append(r.auctionItems[item.AuctionID], item.ItemID)
	return nil
}

// GetItem returns the item with the given ID under the given auction
func (r *MemoryRepo) GetItem(auctionID, itemID string) (model.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[itemID]
	if !ok || item.AuctionID != auctionID {
		return model.Item{}, fmt.Errorf("get item %s in auction %s: %w", itemID, auctionID, auctionerrors.ErrItemNotFound)
	}
	return item, nil
}

// ApplyBid atomically applies an accepted bid: the item's current bid and
// bidder are updated and the bid row is appended, or nothing changes. The
// amount is re-checked against the authoritative current bid inside the
// critical section so accepted amounts per item are strictly increasing even
// under concurrent attempts.
func (r *MemoryRepo) ApplyBid(auctionID string, bid model.Bid) (model.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	auction, ok := r.auctions[auctionID]
	if !ok {
		return model.Item{}, fmt.Errorf("apply bid on auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	if auction.Status != model.StatusActive {
		return model.Item{}, fmt.Errorf("apply bid on auction %s: %w", auctionID, auctionerrors.ErrAuctionNotActive)
	}

	item, ok := r.items[bid.ItemID]
	if !ok || item.AuctionID != auctionID {
		return model.Item{}, fmt.Errorf("apply bid on item %s: %w", bid.ItemID, auctionerrors.ErrItemNotFound)
	}
	if !bid.Amount.GreaterThan(item.CurrentBid) {
		return model.Item{}, fmt.Errorf("apply bid on item %s: %w - must exceed current bid (%s)",
			bid.ItemID, auctionerrors.ErrBidTooLow, item.CurrentBid.StringFixed(2))
	}

	bidderID := bid.BidderID
	item.CurrentBid = bid.Amount
	item.CurrentBidderID = &bidderID
	r.items[bid.ItemID] = item
	r.bids[bid.ItemID] = append(r.bids[bid.ItemID], bid)
	r.bidsByUser[bid.BidderID] = append(r.bidsByUser[bid.BidderID], bid)

	return item, nil
}

// CountBids returns the number of accepted bids for an item
func (r *MemoryRepo) CountBids(itemID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.bids[itemID]), nil
}

// ListBidsByUser returns all bids a user has placed, oldest first
func (r *MemoryRepo) ListBidsByUser(userID string) ([]model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]model.Bid(nil), r.bidsByUser[userID]...), nil
}

// ListBidsByItem returns all accepted bids for an item, oldest first
func (r *MemoryRepo) ListBidsByItem(itemID string) ([]model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]model.Bid(nil), r.bids[itemID]...), nil
}
