package repository

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"auction-house/internal/auctionerrors"
	model "auction-house/internal/models"
)

// SQLiteRepo persists the ledger in a SQLite database. It serializes writers
// through a single connection so the read-validate-write section of ApplyBid
// and CloseAuction runs without interleaving.
type SQLiteRepo struct {
	sqlDB *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
    user_id       TEXT PRIMARY KEY,
    name          TEXT NOT NULL,
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS auctions (
    auction_id TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    ended_at   INTEGER,
    status     TEXT NOT NULL,
    created_by TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS items (
    item_id           TEXT PRIMARY KEY,
    auction_id        TEXT NOT NULL REFERENCES auctions(auction_id),
    name              TEXT NOT NULL,
    opening_price     TEXT NOT NULL,
    closing_price     TEXT NOT NULL,
    current_bid       TEXT NOT NULL,
    current_bidder_id TEXT
);

CREATE TABLE IF NOT EXISTS bids (
    bid_id     TEXT PRIMARY KEY,
    item_id    TEXT NOT NULL REFERENCES items(item_id),
    bidder_id  TEXT NOT NULL REFERENCES users(user_id),
    amount     TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_items_auction ON items(auction_id);
CREATE INDEX IF NOT EXISTS idx_bids_item ON bids(item_id);
CREATE INDEX IF NOT EXISTS idx_bids_bidder ON bids(bidder_id);
`

// OpenSQLite opens a SQLite ledger store at the given path and ensures the
// schema exists.
func OpenSQLite(path string) (*SQLiteRepo, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("ledger path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite ledger: %w", err)
	}
	// single connection keeps every transaction a serialized critical section
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite ledger: %w", err)
	}
	if _, err := sqlDB.Exec(sqliteSchema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create ledger schema: %w", err)
	}
	return &SQLiteRepo{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle
func (r *SQLiteRepo) Close() error {
	if r == nil || r.sqlDB == nil {
		return nil
	}
	return r.sqlDB.Close()
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// CreateUser stores a new user; emails are unique
func (r *SQLiteRepo) CreateUser(user model.User) error {
	tx, err := r.sqlDB.Begin()
	if err != nil {
		return fmt.Errorf("create user: %w: %v", auctionerrors.ErrPersistence, err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM users WHERE email = ?`, user.Email).Scan(&exists); err != nil {
		return fmt.Errorf("create user: %w: %v", auctionerrors.ErrPersistence, err)
	}
	if exists > 0 {
		return fmt.Errorf("create user %s: %w", user.Email, auctionerrors.ErrDuplicateEmail)
	}
	_, err = tx.Exec(
		`INSERT INTO users (user_id, name, email, password_hash, role) VALUES (?, ?, ?, ?, ?)`,
		user.UserID, user.Name, user.Email, user.PasswordHash, string(user.Role),
	)
	if err != nil {
		return fmt.Errorf("create user: %w: %v", auctionerrors.ErrPersistence, err)
	}
	return tx.Commit()
}

func scanUser(row *sql.Row) (model.User, error) {
	var user model.User
	var role string
	if err := row.Scan(&user.UserID, &user.Name, &user.Email, &user.PasswordHash, &role); err != nil {
		return model.User{}, err
	}
	user.Role = model.Role(role)
	return user, nil
}

// GetUserByEmail returns the user registered under the given email
func (r *SQLiteRepo) GetUserByEmail(email string) (model.User, error) {
	row := r.sqlDB.QueryRow(`SELECT user_id, name, email, password_hash, role FROM users WHERE email = ?`, email)
	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return model.User{}, fmt.Errorf("get user by email %s: %w", email, auctionerrors.ErrUserNotFound)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("get user by email: %w: %v", auctionerrors.ErrPersistence, err)
	}
	return user, nil
}

// GetUserByID returns the user with the given ID
func (r *SQLiteRepo) GetUserByID(userID string) (model.User, error) {
	row := r.sqlDB.QueryRow(`SELECT user_id, name, email, password_hash, role FROM users WHERE user_id = ?`, userID)
	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return model.User{}, fmt.Errorf("get user %s: %w", userID, auctionerrors.ErrUserNotFound)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("get user: %w: %v", auctionerrors.ErrPersistence, err)
	}
	return user, nil
}

func insertAuction(tx *sql.Tx, auction model.Auction) error {
	var endedAt sql.NullInt64
	if auction.EndedAt != nil {
		endedAt = sql.NullInt64{Int64: toMillis(*auction.EndedAt), Valid: true}
	}
	_, err := tx.Exec(
		`INSERT INTO auctions (auction_id, name, created_at, ended_at, status, created_by) VALUES (?, ?, ?, ?, ?, ?)`,
		auction.AuctionID, auction.Name, toMillis(auction.CreatedAt), endedAt, string(auction.Status), auction.CreatedBy,
	)
	return err
}

// CreateAuction stores a new auction
func (r *SQLiteRepo) CreateAuction(auction model.Auction) error {
	tx, err := r.sqlDB.Begin()
	if err != nil {
		return fmt.Errorf("create auction: %w: %v", auctionerrors.ErrPersistence, err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertAuction(tx, auction); err != nil {
		return fmt.Errorf("create auction: %w: %v", auctionerrors.ErrPersistence, err)
	}
	return tx.Commit()
}

// UpdateAuction replaces the stored auction record
func (r *SQLiteRepo) UpdateAuction(auction model.Auction) error {
	var endedAt sql.NullInt64
	if auction.EndedAt != nil {
		endedAt = sql.NullInt64{Int64: toMillis(*auction.EndedAt), Valid: true}
	}
	res, err := r.sqlDB.Exec(
		`UPDATE auctions SET name = ?, ended_at = ?, status = ? WHERE auction_id = ?`,
		auction.Name, endedAt, string(auction.Status), auction.AuctionID,
	)
	if err != nil {
		return fmt.Errorf("update auction: %w: %v", auctionerrors.ErrPersistence, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update auction: %w: %v", auctionerrors.ErrPersistence, err)
	}
	if affected == 0 {
		return fmt.Errorf("update auction %s: %w", auction.AuctionID, auctionerrors.ErrAuctionNotFound)
	}
	return nil
}

func scanAuctionRow(scan func(dest ...any) error) (model.Auction, error) {
	var auction model.Auction
	var createdAt int64
	var endedAt sql.NullInt64
	var status string
	if err := scan(&auction.AuctionID, &auction.Name, &createdAt, &endedAt, &status, &auction.CreatedBy); err != nil {
		return model.Auction{}, err
	}
	auction.CreatedAt = fromMillis(createdAt)
	if endedAt.Valid {
		ended := fromMillis(endedAt.Int64)
		auction.EndedAt = &ended
	}
	auction.Status = model.AuctionStatus(status)
	return auction, nil
}

func scanItemRow(scan func(dest ...any) error) (model.Item, error) {
	var item model.Item
	var opening, closing, current string
	var bidder sql.NullString
	if err := scan(&item.ItemID, &item.AuctionID, &item.Name, &opening, &closing, &current, &bidder); err != nil {
		return model.Item{}, err
	}
	var err error
	if item.OpeningPrice, err = decimal.NewFromString(opening); err != nil {
		return model.Item{}, fmt.Errorf("parse opening price: %v", err)
	}
	if item.ClosingPrice, err = decimal.NewFromString(closing); err != nil {
		return model.Item{}, fmt.Errorf("parse closing price: %v", err)
	}
	if item.CurrentBid, err = decimal.NewFromString(current); err != nil {
		return model.Item{}, fmt.Errorf("parse current bid: %v", err)
	}
	if bidder.Valid {
		bidderID := bidder.String
		item.CurrentBidderID = &bidderID
	}
	return item, nil
}

const selectAuction = `SELECT auction_id, name, created_at, ended_at, status, created_by FROM auctions`
const selectItem = `SELECT item_id, auction_id, name, opening_price, closing_price, current_bid, current_bidder_id FROM items`

// GetAuction returns an auction, optionally with its items loaded
func (r *SQLiteRepo) GetAuction(auctionID string, withItems bool) (model.Auction, []model.Item, error) {
	row := r.sqlDB.QueryRow(selectAuction+` WHERE auction_id = ?`, auctionID)
	auction, err := scanAuctionRow(row.Scan)
	if err == sql.ErrNoRows {
		return model.Auction{}, nil, fmt.Errorf("get auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	if err != nil {
		return model.Auction{}, nil, fmt.Errorf("get auction: %w: %v", auctionerrors.ErrPersistence, err)
	}
	if !withItems {
		return auction, nil, nil
	}
	items, err := r.listItems(auctionID)
	if err != nil {
		return model.Auction{}, nil, err
	}
	return auction, items, nil
}

func (r *SQLiteRepo) listItems(auctionID string) ([]model.Item, error) {
	rows, err := r.sqlDB.Query(selectItem+` WHERE auction_id = ? ORDER BY rowid`, auctionID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w: %v", auctionerrors.ErrPersistence, err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItemRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("list items: %w: %v", auctionerrors.ErrPersistence, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list items: %w: %v", auctionerrors.ErrPersistence, err)
	}
	return items, nil
}

// ListAuctions returns all auctions in creation order
func (r *SQLiteRepo) ListAuctions() ([]model.Auction, error) {
	rows, err := r.sqlDB.Query(selectAuction + ` ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("list auctions: %w: %v", auctionerrors.ErrPersistence, err)
	}
	defer rows.Close()

	var auctions []model.Auction
	for rows.Next() {
		auction, err := scanAuctionRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("list auctions: %w: %v", auctionerrors.ErrPersistence, err)
		}
		auctions = append(auctions, auction)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list auctions: %w: %v", auctionerrors.ErrPersistence, err)
	}
	return auctions, nil
}

// CloseAuction transitions an active auction to ended and freezes closing
// prices in a single transaction. No-op when the auction is already terminal.
func (r *SQLiteRepo) CloseAuction(auctionID string, endedAt time.Time) error {
	tx, err := r.sqlDB.Begin()
	if err != nil {
		return fmt.Errorf("close auction: %w: %v", auctionerrors.ErrPersistence, err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRow(selectAuction+` WHERE auction_id = ?`, auctionID)
	auction, err := scanAuctionRow(row.Scan)
	if err == sql.ErrNoRows {
		return fmt.Errorf("close auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	if err != nil {
		return fmt.Errorf("close auction: %w: %v", auctionerrors.ErrPersistence, err)
	}
	if auction.Status.Terminal() {
		return nil
	}

	ended := sql.NullInt64{Int64: toMillis(endedAt), Valid: true}
	if auction.EndedAt != nil {
		ended.Int64 = toMillis(*auction.EndedAt)
	}
	if _, err := tx.Exec(
		`UPDATE auctions SET status = ?, ended_at = ? WHERE auction_id = ?`,
		string(model.StatusEnded), ended, auctionID,
	); err != nil {
		return fmt.Errorf("close auction: %w: %v", auctionerrors.ErrPersistence, err)
	}
	if _, err := tx.Exec(
		`UPDATE items SET closing_price = current_bid WHERE auction_id = ?`,
		auctionID,
	); err != nil {
		return fmt.Errorf("close auction: %w: %v", auctionerrors.ErrPersistence, err)
	}
	return tx.Commit()
}

func insertItem(tx *sql.Tx, item model.Item) error {
	var bidder sql.NullString
	if item.CurrentBidderID != nil {
		bidder = sql.NullString{String: *item.CurrentBidderID, Valid: true}
	}
	_, err := tx.Exec(
		`INSERT INTO items (item_id, auction_id, name, opening_price, closing_price, current_bid, current_bidder_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		item.ItemID, item.AuctionID, item.Name,
		item.OpeningPrice.String(), item.ClosingPrice.String(), item.CurrentBid.String(), bidder,
	)
	return err
}

// ImportAuction stores an auction together with its items as one transaction
func (r *SQLiteRepo) ImportAuction(auction model.Auction, items []model.Item) error {
	tx, err := r.sqlDB.Begin()
	if err != nil {
		return fmt.Errorf("import auction: %w: %v", auctionerrors.ErrPersistence, err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertAuction(tx, auction); err != nil {
		return fmt.Errorf("import auction: %w: %v", auctionerrors.ErrPersistence, err)
	}
	for _, item := range items {
		if err := insertItem(tx, item); err != nil {
			return fmt.Errorf("import auction: %w: %v", auctionerrors.ErrPersistence, err)
		}
	}
	return tx.Commit()
}

// CreateItem adds an item to an existing auction
func (r *SQLiteRepo) CreateItem(item model.Item) error {
	tx, err := r.sqlDB.Begin()
	if err != nil {
		return fmt.Errorf("create item: %w: %v", auctionerrors.ErrPersistence, err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM auctions WHERE auction_id = ?`, item.AuctionID).Scan(&exists); err != nil {
		return fmt.Errorf("create item: %w: %v", auctionerrors.ErrPersistence, err)
	}
	if exists == 0 {
		return fmt.Errorf("create item for auction %s: %w", item.AuctionID, auctionerrors.ErrAuctionNotFound)
	}
	if err := insertItem(tx, item); err != nil {
		return fmt.Errorf("create item: %w: %v", auctionerrors.ErrPersistence, err)
	}
	return tx.Commit()
}

// GetItem returns the item with the given ID under the given auction
func (r *SQLiteRepo) GetItem(auctionID, itemID string) (model.Item, error) {
	row := r.sqlDB.QueryRow(selectItem+` WHERE item_id = ? AND auction_id = ?`, itemID, auctionID)
	item, err := scanItemRow(row.Scan)
	if err == sql.ErrNoRows {
		return model.Item{}, fmt.Errorf("get item %s in auction %s: %w", itemID, auctionID, auctionerrors.ErrItemNotFound)
	}
	if err != nil {
		return model.Item{}, fmt.Errorf("get item: %w: %v", auctionerrors.ErrPersistence, err)
	}
	return item, nil
}

// ApplyBid applies an accepted bid in one transaction, re-checking the
// authoritative current bid inside the transaction so accepted amounts per
// item are strictly increasing.
func (r *SQLiteRepo) ApplyBid(auctionID string, bid model.Bid) (model.Item, error) {
	tx, err := r.sqlDB.Begin()
	if err != nil {
		return model.Item{}, fmt.Errorf("apply bid: %w: %v", auctionerrors.ErrPersistence, err)
	}
	defer func() { _ = tx.Rollback() }()

	var status string
	err = tx.QueryRow(`SELECT status FROM auctions WHERE auction_id = ?`, auctionID).Scan(&status)
	if err == sql.ErrNoRows {
		return model.Item{}, fmt.Errorf("apply bid on auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	if err != nil {
		return model.Item{}, fmt.Errorf("apply bid: %w: %v", auctionerrors.ErrPersistence, err)
	}
	if model.AuctionStatus(status) != model.StatusActive {
		return model.Item{}, fmt.Errorf("apply bid on auction %s: %w", auctionID, auctionerrors.ErrAuctionNotActive)
	}

	row := tx.QueryRow(selectItem+` WHERE item_id = ? AND auction_id = ?`, bid.ItemID, auctionID)
	item, err := scanItemRow(row.Scan)
	if err == sql.ErrNoRows {
		return model.Item{}, fmt.Errorf("apply bid on item %s: %w", bid.ItemID, auctionerrors.ErrItemNotFound)
	}
	if err != nil {
		return model.Item{}, fmt.Errorf("apply bid: %w: %v", auctionerrors.ErrPersistence, err)
	}
	if !bid.Amount.GreaterThan(item.CurrentBid) {
		return model.Item{}, fmt.Errorf("apply bid on item %s: %w - must exceed current bid (%s)",
			bid.ItemID, auctionerrors.ErrBidTooLow, item.CurrentBid.StringFixed(2))
	}

	if _, err := tx.Exec(
		`UPDATE items SET current_bid = ?, current_bidder_id = ? WHERE item_id = ?`,
		bid.Amount.String(), bid.BidderID, bid.ItemID,
	); err != nil {
		return model.Item{}, fmt.Errorf("apply bid: %w: %v", auctionerrors.ErrPersistence, err)
	}
	if _, err := tx.Exec(
		`INSERT INTO bids (bid_id, item_id, bidder_id, amount, created_at) VALUES (?, ?, ?, ?, ?)`,
		bid.BidID, bid.ItemID, bid.BidderID, bid.Amount.String(), toMillis(bid.CreatedAt),
	); err != nil {
		return model.Item{}, fmt.Errorf("apply bid: %w: %v", auctionerrors.ErrPersistence, err)
	}
	if err := tx.Commit(); err != nil {
		return model.Item{}, fmt.Errorf("apply bid: %w: %v", auctionerrors.ErrPersistence, err)
	}

	bidderID := bid.BidderID
	item.CurrentBid = bid.Amount
	item.CurrentBidderID = &bidderID
	return item, nil
}

// CountBids returns the number of accepted bids for an item
func (r *SQLiteRepo) CountBids(itemID string) (int, error) {
	var count int
	if err := r.sqlDB.QueryRow(`SELECT COUNT(*) FROM bids WHERE item_id = ?`, itemID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count bids: %w: %v", auctionerrors.ErrPersistence, err)
	}
	return count, nil
}

// ListBidsByUser returns all bids a user has placed, oldest first
func (r *SQLiteRepo) ListBidsByUser(userID string) ([]model.Bid, error) {
	rows, err := r.sqlDB.Query(
		`SELECT bid_id, item_id, bidder_id, amount, created_at FROM bids WHERE bidder_id = ? ORDER BY created_at, rowid`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list bids: %w: %v", auctionerrors.ErrPersistence, err)
	}
	defer rows.Close()

	var bids []model.Bid
	for rows.Next() {
		var bid model.Bid
		var amount string
		var createdAt int64
		if err := rows.Scan(&bid.BidID, &bid.ItemID, &bid.BidderID, &amount, &createdAt); err != nil {
			return nil, fmt.Errorf("list bids: %w: %v", auctionerrors.ErrPersistence, err)
		}
		if bid.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("list bids: parse amount: %v", err)
		}
		bid.CreatedAt = fromMillis(createdAt)
		bids = append(bids, bid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list bids: %w: %v", auctionerrors.ErrPersistence, err)
	}
	return bids, nil
}
