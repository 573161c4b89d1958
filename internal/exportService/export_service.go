package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"auction-house/internal/models"
	"auction-house/internal/repository"
)

// AuctionCloser applies the lazy close check before an auction is reported
type AuctionCloser interface {
	EnsureClosed(auction models.Auction) (models.Auction, error)
}

// Exporter computes per-auction summary statistics and streams them as CSV
type Exporter struct {
	repo   repository.LedgerStore
	closer AuctionCloser
}

// NewExporter creates a new Exporter instance
func NewExporter(repo repository.LedgerStore, closer AuctionCloser) *Exporter {
	return &Exporter{
		repo:   repo,
		closer: closer,
	}
}

// Export writes one summary row per auction to w: id, name, status, ended_at
// (or empty), item count, total bid count and revenue. Revenue sums closing
// prices for ended auctions, current bids otherwise. Rows are flushed one at
// a time so large result sets never materialize in memory.
func (e *Exporter) Export(w io.Writer) error {
	csvWriter := csv.NewWriter(w)
	header := []string{"id", "name", "status", "ended_at", "item_count", "bid_count", "revenue"}
	if err := csvWriter.Write(header); err != nil {
		return fmt.Errorf("service: failed to write export header: %w", err)
	}
	csvWriter.Flush()

	auctions, err := e.repo.ListAuctions()
	if err != nil {
		return fmt.Errorf("service: failed to list auctions for export: %w", err)
	}

	for _, auction := range auctions {
		auction, err := e.closer.EnsureClosed(auction)
		if err != nil {
			return err
		}

		_, items, err := e.repo.GetAuction(auction.AuctionID, true)
		if err != nil {
			return fmt.Errorf("service: failed to load items for export: %w", err)
		}

		bidCount := 0
		revenue := decimal.Zero
		for _, item := range items {
			count, err := e.repo.CountBids(item.ItemID)
			if err != nil {
				return fmt.Errorf("service: failed to count bids for export: %w", err)
			}
			bidCount += count
			if auction.Status == models.StatusEnded {
				revenue = revenue.Add(item.ClosingPrice)
			} else {
				revenue = revenue.Add(item.CurrentBid)
			}
		}

		endedAt := ""
		if auction.EndedAt != nil {
			endedAt = auction.EndedAt.UTC().Format(time.RFC3339)
		}

		record := []string{
			auction.AuctionID,
			auction.Name,
			string(auction.Status),
			endedAt,
			strconv.Itoa(len(items)),
			strconv.Itoa(bidCount),
			revenue.String(),
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("service: failed to write export row: %w", err)
		}
		csvWriter.Flush()
		if err := csvWriter.Error(); err != nil {
			return fmt.Errorf("service: failed to flush export row: %w", err)
		}
	}
	return nil
}
