package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"auction-house/internal/models"
	"auction-house/internal/repository"
	"auction-house/utils"
)

// maxItemSlots is the highest item_<k>_name/item_<k>_price pair scanned per row
const maxItemSlots = 100

// ParsedItem is one item candidate extracted from a CSV row
type ParsedItem struct {
	Name         string
	OpeningPrice decimal.Decimal
}

// ParsedRow is one auction candidate extracted from a CSV row. EndedAt is nil
// when the column was empty or unparseable; the importer rejects such rows.
type ParsedRow struct {
	Name    string
	EndedAt *time.Time
	Items   []ParsedItem
}

// Result summarizes a bulk import: how many auctions were created and one
// human-readable message per rejected row.
type Result struct {
	Created int      `json:"created"`
	Errors  []string `json:"errors"`
}

// parseEndedAt accepts ISO-8601 first, then "YYYY-MM-DD HH:MM:SS" and
// "YYYY-MM-DD". Unparseable or empty input yields nil.
func parseEndedAt(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		t = t.UTC()
		return &t
	}
	v := strings.ReplaceAll(value, "T", " ")
	if len(v) > 19 {
		v = v[:19]
	}
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// Parse turns a tabular auction description into structured rows. Columns:
// name, ended_at, then item_<k>_name/item_<k>_price pairs for k = 1..100.
// Malformed items degrade to omission; the parser never rejects a row by
// itself. Accept/reject decisions belong to the caller.
func Parse(content string) ([]ParsedRow, error) {
	reader := csv.NewReader(strings.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}

	field := func(record []string, name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	var rows []ParsedRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// a malformed record degrades to an empty row so the caller
			// still sees it and row numbering stays aligned
			rows = append(rows, ParsedRow{})
			continue
		}

		row := ParsedRow{
			Name:    field(record, "name"),
			EndedAt: parseEndedAt(field(record, "ended_at")),
		}
		for k := 1; k <= maxItemSlots; k++ {
			name := field(record, fmt.Sprintf("item_%d_name", k))
			priceStr := field(record, fmt.Sprintf("item_%d_price", k))
			if name == "" {
				// blank slot, or price without a name: skip silently
				continue
			}
			price, err := decimal.NewFromString(priceStr)
			if err != nil || price.IsNegative() {
				// unparseable or negative price drops this item only
				continue
			}
			row.Items = append(row.Items, ParsedItem{Name: name, OpeningPrice: price})
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Importer turns parsed CSV rows into persisted auctions, one transaction
// per row.
type Importer struct {
	repo repository.LedgerStore
	now  func() time.Time
}

// NewImporter creates a new Importer instance
func NewImporter(repo repository.LedgerStore) *Importer {
	return &Importer{
		repo: repo,
		now:  time.Now,
	}
}

// Import parses the CSV content and persists each valid row as one auction
// with its items. Each row commits in its own transaction: a rejected or
// failed row is recorded as an error and never aborts the batch. Row numbers
// in error messages are 1-indexed counting the header, so the first data row
// is "Row 2".
func (imp *Importer) Import(content, createdBy string) (Result, error) {
	rows, err := Parse(content)
	if err != nil {
		return Result{}, fmt.Errorf("service: failed to parse import: %w", err)
	}

	result := Result{Errors: []string{}}
	for i, row := range rows {
		rowNum := i + 2 // header is row 1

		if row.Name == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: auction name is required", rowNum))
			continue
		}
		if row.EndedAt == nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: invalid or missing ended_at", rowNum))
			continue
		}
		if len(row.Items) == 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: at least one item required", rowNum))
			continue
		}

		auction := models.Auction{
			AuctionID: utils.GenerateID(),
			Name:      row.Name,
			CreatedAt: imp.now().UTC(),
			EndedAt:   row.EndedAt,
			Status:    models.StatusActive,
			CreatedBy: createdBy,
		}
		items := make([]models.Item, 0, len(row.Items))
		for _, parsed := range row.Items {
			items = append(items, models.Item{
				ItemID:       utils.GenerateID(),
				AuctionID:    auction.AuctionID,
				Name:         parsed.Name,
				OpeningPrice: parsed.OpeningPrice,
				CurrentBid:   parsed.OpeningPrice,
			})
		}

		if err := imp.repo.ImportAuction(auction, items); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
			utils.Warn("import row failed", map[string]any{"row": rowNum, "error": err.Error()})
			continue
		}
		result.Created++
	}

	utils.Info("csv import finished", map[string]any{
		"created": result.Created,
		"errors":  len(result.Errors),
	})
	return result, nil
}
