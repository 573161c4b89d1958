package bidding

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"auction-house/internal/auctionerrors"
	auction "auction-house/internal/auctionService"
	"auction-house/internal/models"
	"auction-house/internal/repository"
)

func newTestService(t *testing.T) (*BiddingService, *auction.AuctionService, *repository.MemoryRepo) {
	t.Helper()
	repo := repository.NewMemoryRepo()
	auctionSvc := auction.NewAuctionService(repo)
	return NewBiddingService(repo, auctionSvc), auctionSvc, repo
}

func seedAuction(t *testing.T, auctionSvc *auction.AuctionService, endedAt *time.Time, openingPrice string) (models.Auction, models.Item) {
	t.Helper()
	a, err := auctionSvc.CreateAuction("Estate sale", endedAt, "manager1")
	require.NoError(t, err)
	item, err := auctionSvc.AddItem(a.AuctionID, "clock", decimal.RequireFromString(openingPrice))
	require.NoError(t, err)
	return a, item
}

// Tests PlaceBid validation order and boundary conditions
func TestBiddingService_PlaceBid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		openingPrice  string
		amount        string
		expectedError error
	}{
		{name: "exceeds_current_bid", openingPrice: "50", amount: "50.01", expectedError: nil},
		{name: "equal_to_current_bid_rejected", openingPrice: "50", amount: "50", expectedError: auctionerrors.ErrBidTooLow},
		{name: "below_current_bid_rejected", openingPrice: "50", amount: "49.99", expectedError: auctionerrors.ErrBidTooLow},
		{name: "zero_amount_rejected", openingPrice: "50", amount: "0", expectedError: auctionerrors.ErrInvalidBid},
		{name: "negative_amount_rejected", openingPrice: "50", amount: "-1", expectedError: auctionerrors.ErrInvalidBid},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc, auctionSvc, _ := newTestService(t)
			a, item := seedAuction(t, auctionSvc, nil, tc.openingPrice)

			bid, updated, err := svc.PlaceBid(a.AuctionID, item.ItemID, "bidder1", decimal.RequireFromString(tc.amount))

			if tc.expectedError != nil {
				require.Error(t, err)
				require.True(t, errors.Is(err, tc.expectedError))
				return
			}
			require.NoError(t, err)
			require.NotEmpty(t, bid.BidID)
			require.True(t, updated.CurrentBid.Equal(decimal.RequireFromString(tc.amount)))
			require.NotNil(t, updated.CurrentBidderID)
			require.Equal(t, "bidder1", *updated.CurrentBidderID)
		})
	}
}

func TestBiddingService_PlaceBid_UnknownTargets(t *testing.T) {
	t.Parallel()

	svc, auctionSvc, _ := newTestService(t)
	a, _ := seedAuction(t, auctionSvc, nil, "50")

	_, _, err := svc.PlaceBid("auctionX", "itemX", "bidder1", decimal.RequireFromString("60"))
	require.True(t, errors.Is(err, auctionerrors.ErrAuctionNotFound))

	_, _, err = svc.PlaceBid(a.AuctionID, "itemX", "bidder1", decimal.RequireFromString("60"))
	require.True(t, errors.Is(err, auctionerrors.ErrItemNotFound))

	_, _, err = svc.PlaceBid(a.AuctionID, "", "bidder1", decimal.RequireFromString("60"))
	require.True(t, errors.Is(err, auctionerrors.ErrInvalidBid))
}

// A bid against an auction whose scheduled end has passed triggers the lazy
// close and is rejected as not active.
func TestBiddingService_PlaceBid_LazyCloseRejects(t *testing.T) {
	t.Parallel()

	svc, auctionSvc, repo := newTestService(t)
	a, item := seedAuction(t, auctionSvc, nil, "50")

	past := time.Now().UTC().Add(-time.Minute)
	_, err := auctionSvc.UpdateAuction(a.AuctionID, nil, &past)
	require.NoError(t, err)

	_, _, err = svc.PlaceBid(a.AuctionID, item.ItemID, "bidder1", decimal.RequireFromString("60"))
	require.True(t, errors.Is(err, auctionerrors.ErrAuctionNotActive))

	stored, _, err := repo.GetAuction(a.AuctionID, false)
	require.NoError(t, err)
	require.Equal(t, models.StatusEnded, stored.Status)
}

// Concurrent increasing bids on one item: every accepted bid must exceed the
// bid it replaced, so the final current bid is the highest accepted amount.
func TestBiddingService_PlaceBid_ConcurrentIncreasing(t *testing.T) {
	t.Parallel()

	const bidders = 50

	svc, auctionSvc, repo := newTestService(t)
	a, item := seedAuction(t, auctionSvc, nil, "10")

	var wg sync.WaitGroup
	accepted := make(chan decimal.Decimal, bidders)
	for i := 0; i < bidders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			amount := decimal.NewFromInt(int64(11 + i))
			_, _, err := svc.PlaceBid(a.AuctionID, item.ItemID, fmt.Sprintf("bidder%d", i), amount)
			if err == nil {
				accepted <- amount
			}
		}(i)
	}
	wg.Wait()
	close(accepted)

	max := decimal.Zero
	count := 0
	for amount := range accepted {
		count++
		if amount.GreaterThan(max) {
			max = amount
		}
	}
	require.GreaterOrEqual(t, count, 1)

	stored, err := repo.GetItem(a.AuctionID, item.ItemID)
	require.NoError(t, err)
	require.True(t, stored.CurrentBid.Equal(max))

	bids, err := repo.ListBidsByItem(item.ItemID)
	require.NoError(t, err)
	require.Len(t, bids, count)
	for i := 1; i < len(bids); i++ {
		require.True(t, bids[i].Amount.GreaterThan(bids[i-1].Amount))
	}
}

// Tests ListBidsByUser
func TestBiddingService_ListBidsByUser(t *testing.T) {
	t.Parallel()

	svc, auctionSvc, _ := newTestService(t)
	a, item := seedAuction(t, auctionSvc, nil, "10")

	for _, amount := range []string{"11", "12", "13"} {
		_, _, err := svc.PlaceBid(a.AuctionID, item.ItemID, "bidder1", decimal.RequireFromString(amount))
		require.NoError(t, err)
	}

	bids, err := svc.ListBidsByUser("bidder1")
	require.NoError(t, err)
	require.Len(t, bids, 3)
	require.True(t, bids[0].Amount.Equal(decimal.RequireFromString("11")))
	require.True(t, bids[2].Amount.Equal(decimal.RequireFromString("13")))

	bids, err = svc.ListBidsByUser("stranger")
	require.NoError(t, err)
	require.Empty(t, bids)

	_, err = svc.ListBidsByUser("")
	require.True(t, errors.Is(err, auctionerrors.ErrInvalidBid))
}

// Store-level failures surface wrapped through the service
func TestBiddingService_PlaceBid_StoreFailure(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := repository.NewMockLedgerStore(ctrl)
	svc := NewBiddingService(mockRepo, noopCloser{})

	a := models.Auction{AuctionID: "auction1", Status: models.StatusActive}
	item := models.Item{ItemID: "item1", AuctionID: "auction1",
		OpeningPrice: decimal.RequireFromString("10"), CurrentBid: decimal.RequireFromString("10")}

	mockRepo.EXPECT().GetAuction("auction1", false).Return(a, nil, nil)
	mockRepo.EXPECT().GetItem("auction1", "item1").Return(item, nil)
	mockRepo.EXPECT().ApplyBid("auction1", gomock.Any()).
		Return(models.Item{}, fmt.Errorf("%w: disk full", auctionerrors.ErrPersistence))

	_, _, err := svc.PlaceBid("auction1", "item1", "bidder1", decimal.RequireFromString("20"))
	require.True(t, errors.Is(err, auctionerrors.ErrPersistence))
}

type noopCloser struct{}

func (noopCloser) EnsureClosed(a models.Auction) (models.Auction, error) { return a, nil }
