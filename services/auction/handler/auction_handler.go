package handler

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"auction-house/internal/auctionerrors"
	importer "auction-house/internal/importService"
	model "auction-house/internal/models"
	"auction-house/services/helpers"
	"auction-house/utils"
)

type AuctionServiceInterface interface {
	CreateAuction(name string, endedAt *time.Time, createdBy string) (model.Auction, error)
	UpdateAuction(auctionID string, name *string, endedAt *time.Time) (model.Auction, error)
	AddItem(auctionID, name string, openingPrice decimal.Decimal) (model.Item, error)
	EndAuction(auctionID string) (model.Auction, error)
	GetAuction(auctionID string) (model.Auction, []model.Item, error)
	ListAuctions() ([]model.Auction, error)
}

type ImportServiceInterface interface {
	Import(content, createdBy string) (importer.Result, error)
}

type ExportServiceInterface interface {
	Export(w io.Writer) error
}

type AuctionHandler struct {
	service  AuctionServiceInterface
	importer ImportServiceInterface
	exporter ExportServiceInterface
}

func NewAuctionHandler(service AuctionServiceInterface, imp ImportServiceInterface, exp ExportServiceInterface) *AuctionHandler {
	return &AuctionHandler{service: service, importer: imp, exporter: exp}
}

// parseEndedAt parses an optional RFC 3339 scheduled end from a request
func parseEndedAt(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("%w - ended_at must be RFC 3339", auctionerrors.ErrInvalidInput)
	}
	t = t.UTC()
	return &t, nil
}

// ListAuctionsHandler handles GET /auctions
func (h *AuctionHandler) ListAuctionsHandler(c *gin.Context) {
	auctions, err := h.service.ListAuctions()
	if err != nil {
		helpers.RespondError(c, "ListAuctionsHandler", err)
		return
	}

	resp := make([]helpers.AuctionResponse, 0, len(auctions))
	for _, auction := range auctions {
		resp = append(resp, helpers.NewAuctionResponse(auction))
	}
	utils.JSONResponse(c, http.StatusOK, resp, "auctions retrieved successfully")
}

// GetAuctionHandler handles GET /auctions/:auction_id
func (h *AuctionHandler) GetAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	auction, items, err := h.service.GetAuction(auctionID)
	if err != nil {
		helpers.RespondError(c, "GetAuctionHandler", err)
		return
	}

	resp := helpers.AuctionDetailResponse{
		AuctionResponse: helpers.NewAuctionResponse(auction),
		Items:           make([]helpers.ItemResponse, 0, len(items)),
	}
	for _, item := range items {
		resp.Items = append(resp.Items, helpers.NewItemResponse(item))
	}
	utils.JSONResponse(c, http.StatusOK, resp, "auction retrieved successfully")
}

// CreateAuctionHandler handles POST /managers/auctions
func (h *AuctionHandler) CreateAuctionHandler(c *gin.Context) {
	var req helpers.CreateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CreateAuctionHandler", err)
		return
	}
	endedAt, err := parseEndedAt(req.EndedAt)
	if err != nil {
		helpers.RespondError(c, "CreateAuctionHandler", err)
		return
	}

	auction, err := h.service.CreateAuction(req.Name, endedAt, c.GetString(helpers.ContextUserIDKey))
	if err != nil {
		helpers.RespondError(c, "CreateAuctionHandler", err)
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.NewAuctionResponse(auction), "auction created successfully")
	helpers.LogSuccess("CreateAuctionHandler", "auction created successfully", map[string]any{
		"auction_id": auction.AuctionID,
		"created_by": auction.CreatedBy,
	})
}

// UpdateAuctionHandler handles PUT /managers/auctions/:auction_id
func (h *AuctionHandler) UpdateAuctionHandler(c *gin.Context) {
	var req helpers.UpdateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "UpdateAuctionHandler", err)
		return
	}

	var endedAt *time.Time
	if req.EndedAt != nil {
		parsed, err := parseEndedAt(*req.EndedAt)
		if err != nil {
			helpers.RespondError(c, "UpdateAuctionHandler", err)
			return
		}
		endedAt = parsed
	}

	auction, err := h.service.UpdateAuction(c.Param("auction_id"), req.Name, endedAt)
	if err != nil {
		helpers.RespondError(c, "UpdateAuctionHandler", err)
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewAuctionResponse(auction), "auction updated successfully")
}

// AddItemHandler handles POST /managers/auctions/:auction_id/items
func (h *AuctionHandler) AddItemHandler(c *gin.Context) {
	var req helpers.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "AddItemHandler", err)
		return
	}
	openingPrice, err := decimal.NewFromString(req.OpeningPrice)
	if err != nil {
		helpers.RespondError(c, "AddItemHandler",
			fmt.Errorf("%w - opening_price must be a decimal string", auctionerrors.ErrInvalidInput))
		return
	}

	item, err := h.service.AddItem(c.Param("auction_id"), req.Name, openingPrice)
	if err != nil {
		helpers.RespondError(c, "AddItemHandler", err)
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.NewItemResponse(item), "item added successfully")
	helpers.LogSuccess("AddItemHandler", "item added successfully", map[string]any{
		"item_id":    item.ItemID,
		"auction_id": item.AuctionID,
	})
}

// EndAuctionHandler handles POST /managers/auctions/:auction_id/end
func (h *AuctionHandler) EndAuctionHandler(c *gin.Context) {
	auction, err := h.service.EndAuction(c.Param("auction_id"))
	if err != nil {
		helpers.RespondError(c, "EndAuctionHandler", err)
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewAuctionResponse(auction), "auction ended successfully")
	helpers.LogSuccess("EndAuctionHandler", "auction ended successfully", map[string]any{
		"auction_id": auction.AuctionID,
	})
}

// ImportHandler handles POST /managers/auctions/import with a raw CSV body
func (h *AuctionHandler) ImportHandler(c *gin.Context) {
	content, err := c.GetRawData()
	if err != nil {
		helpers.HandleBindError(c, "ImportHandler", err)
		return
	}

	result, err := h.importer.Import(string(content), c.GetString(helpers.ContextUserIDKey))
	if err != nil {
		helpers.RespondError(c, "ImportHandler", err)
		return
	}

	resp := helpers.ImportResultResponse{Created: result.Created, Errors: result.Errors}
	utils.JSONResponse(c, http.StatusOK, resp, "import finished")
	helpers.LogSuccess("ImportHandler", "import finished", map[string]any{
		"created": result.Created,
		"errors":  len(result.Errors),
	})
}

// ExportHandler handles GET /managers/auctions/export, streaming CSV
func (h *AuctionHandler) ExportHandler(c *gin.Context) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="auctions.csv"`)
	c.Status(http.StatusOK)

	if err := h.exporter.Export(c.Writer); err != nil {
		// headers are already out; log and close the stream
		utils.Error("ExportHandler: export failed", map[string]any{"error": err.Error()})
		return
	}
	helpers.LogSuccess("ExportHandler", "export streamed successfully", nil)
}
