package repository

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"auction-house/internal/auctionerrors"
	model "auction-house/internal/models"
)

func openTestSQLite(t *testing.T) *SQLiteRepo {
	t.Helper()
	repo, err := OpenSQLite(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestSQLiteRepo_AuctionRoundTrip(t *testing.T) {
	repo := openTestSQLite(t)

	scheduled := time.Now().UTC().Add(time.Hour).Truncate(time.Millisecond)
	auction := newAuction("auction1", "Estate sale", &scheduled)
	require.NoError(t, repo.CreateAuction(auction))
	require.NoError(t, repo.CreateItem(newItem("item1", "auction1", "50")))

	got, items, err := repo.GetAuction("auction1", true)
	require.NoError(t, err)
	require.Equal(t, auction.AuctionID, got.AuctionID)
	require.Equal(t, auction.Name, got.Name)
	require.Equal(t, model.StatusActive, got.Status)
	require.NotNil(t, got.EndedAt)
	require.True(t, got.EndedAt.Equal(scheduled))
	require.Len(t, items, 1)
	require.True(t, items[0].OpeningPrice.Equal(decimal.RequireFromString("50")))
	require.True(t, items[0].CurrentBid.Equal(decimal.RequireFromString("50")))
	require.Nil(t, items[0].CurrentBidderID)

	auctions, err := repo.ListAuctions()
	require.NoError(t, err)
	require.Len(t, auctions, 1)

	_, _, err = repo.GetAuction("auctionX", false)
	require.True(t, errors.Is(err, auctionerrors.ErrAuctionNotFound))
}

func TestSQLiteRepo_ApplyBidAndClose(t *testing.T) {
	repo := openTestSQLite(t)

	user := model.User{UserID: "user1", Name: "Ada", Email: "ada@example.com", PasswordHash: "x", Role: model.RoleCustomer}
	require.NoError(t, repo.CreateUser(user))
	require.NoError(t, repo.CreateAuction(newAuction("auction1", "Estate sale", nil)))
	require.NoError(t, repo.CreateItem(newItem("item1", "auction1", "50")))

	_, err := repo.ApplyBid("auction1", newBid("bid1", "item1", "user1", "60", time.Now()))
	require.NoError(t, err)

	_, err = repo.ApplyBid("auction1", newBid("bid2", "item1", "user1", "60", time.Now()))
	require.True(t, errors.Is(err, auctionerrors.ErrBidTooLow))

	item, err := repo.GetItem("auction1", "item1")
	require.NoError(t, err)
	require.True(t, item.CurrentBid.Equal(decimal.RequireFromString("60")))
	require.NotNil(t, item.CurrentBidderID)
	require.Equal(t, "user1", *item.CurrentBidderID)

	count, err := repo.CountBids("item1")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	bids, err := repo.ListBidsByUser("user1")
	require.NoError(t, err)
	require.Len(t, bids, 1)
	require.True(t, bids[0].Amount.Equal(decimal.RequireFromString("60")))

	require.NoError(t, repo.CloseAuction("auction1", time.Now().UTC()))
	require.NoError(t, repo.CloseAuction("auction1", time.Now().UTC())) // idempotent

	auction, items, err := repo.GetAuction("auction1", true)
	require.NoError(t, err)
	require.Equal(t, model.StatusEnded, auction.Status)
	require.True(t, items[0].ClosingPrice.Equal(decimal.RequireFromString("60")))

	_, err = repo.ApplyBid("auction1", newBid("bid3", "item1", "user1", "70", time.Now()))
	require.True(t, errors.Is(err, auctionerrors.ErrAuctionNotActive))
}

func TestSQLiteRepo_ImportAndUsers(t *testing.T) {
	repo := openTestSQLite(t)

	auction := newAuction("auction1", "Imported", nil)
	items := []model.Item{newItem("item1", "auction1", "10"), newItem("item2", "auction1", "20")}
	require.NoError(t, repo.ImportAuction(auction, items))

	_, got, err := repo.GetAuction("auction1", true)
	require.NoError(t, err)
	require.Len(t, got, 2)

	user := model.User{UserID: "user1", Name: "Ada", Email: "ada@example.com", PasswordHash: "x", Role: model.RoleManager}
	require.NoError(t, repo.CreateUser(user))
	err = repo.CreateUser(model.User{UserID: "user2", Name: "B", Email: "ada@example.com", PasswordHash: "y", Role: model.RoleCustomer})
	require.True(t, errors.Is(err, auctionerrors.ErrDuplicateEmail))

	byEmail, err := repo.GetUserByEmail("ada@example.com")
	require.NoError(t, err)
	require.Equal(t, user, byEmail)
}
