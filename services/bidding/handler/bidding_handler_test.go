package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"auction-house/internal/auctionerrors"
	model "auction-house/internal/models"
	"auction-house/services/helpers"
)

// withUser injects the identity the auth middleware would set
func withUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(helpers.ContextUserIDKey, userID)
		c.Set(helpers.ContextRoleKey, string(model.RoleCustomer))
		c.Next()
	}
}

// Test PlaceBidHandler
func TestPlaceBidHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := NewMockBiddingServiceInterface(ctrl)
	handler := NewBiddingHandler(mockService)

	// Initialize Gin in test mode
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/bids", withUser("user1"), handler.PlaceBidHandler)

	now := time.Now().UTC()
	bidderID := "user1"

	tests := []struct {
		name           string
		requestBody    any
		mockSetup      func()
		expectedStatus int
		expectedMsg    string
		validateData   func(t *testing.T, data map[string]any)
	}{
		{
			name: "success_valid_bid",
			requestBody: helpers.PlaceBidRequest{
				AuctionID: "auction1",
				ItemID:    "item1",
				Amount:    "100",
			},
			mockSetup: func() {
				mockService.EXPECT().
					PlaceBid("auction1", "item1", "user1", decimal.RequireFromString("100")).
					Return(model.Bid{
						BidID:     uuid.NewString(),
						ItemID:    "item1",
						BidderID:  "user1",
						Amount:    decimal.RequireFromString("100"),
						CreatedAt: now,
					}, model.Item{
						ItemID:          "item1",
						AuctionID:       "auction1",
						CurrentBid:      decimal.RequireFromString("100"),
						CurrentBidderID: &bidderID,
					}, nil)
			},
			expectedStatus: http.StatusCreated,
			expectedMsg:    "bid recorded successfully",
			validateData: func(t *testing.T, data map[string]any) {
				bidID := data["bid_id"].(string)
				require.NotEmpty(t, bidID)
				_, parseErr := uuid.Parse(bidID)
				require.NoError(t, parseErr, "BidID should be a valid UUID")
				require.Equal(t, "item1", data["item_id"])
				require.Equal(t, "user1", data["bidder_id"])
				require.Equal(t, "100.00", data["amount"])
				require.Equal(t, "100.00", data["current_bid"])
			},
		},
		{
			name:           "invalid_json",
			requestBody:    `{invalid json}`,
			mockSetup:      func() {},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request payload",
		},
		{
			name: "missing_item_id",
			requestBody: helpers.PlaceBidRequest{
				AuctionID: "auction1",
				ItemID:    "",
				Amount:    "50",
			},
			mockSetup:      func() {},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request payload",
		},
		{
			name: "non_decimal_amount",
			requestBody: helpers.PlaceBidRequest{
				AuctionID: "auction1",
				ItemID:    "item1",
				Amount:    "lots",
			},
			mockSetup:      func() {},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid bid details",
		},
		{
			name: "service_bid_too_low",
			requestBody: helpers.PlaceBidRequest{
				AuctionID: "auction1",
				ItemID:    "item1",
				Amount:    "50",
			},
			mockSetup: func() {
				mockService.EXPECT().
					PlaceBid("auction1", "item1", "user1", decimal.RequireFromString("50")).
					Return(model.Bid{}, model.Item{}, auctionerrors.ErrBidTooLow)
			},
			expectedStatus: http.StatusConflict,
			expectedMsg:    "bid amount too low",
		},
		{
			name: "service_auction_not_active",
			requestBody: helpers.PlaceBidRequest{
				AuctionID: "auction1",
				ItemID:    "item1",
				Amount:    "60",
			},
			mockSetup: func() {
				mockService.EXPECT().
					PlaceBid("auction1", "item1", "user1", decimal.RequireFromString("60")).
					Return(model.Bid{}, model.Item{}, auctionerrors.ErrAuctionNotActive)
			},
			expectedStatus: http.StatusConflict,
			expectedMsg:    "auction not active",
		},
		{
			name: "service_item_not_found",
			requestBody: helpers.PlaceBidRequest{
				AuctionID: "auction1",
				ItemID:    "itemX",
				Amount:    "60",
			},
			mockSetup: func() {
				mockService.EXPECT().
					PlaceBid("auction1", "itemX", "user1", decimal.RequireFromString("60")).
					Return(model.Bid{}, model.Item{}, auctionerrors.ErrItemNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedMsg:    "item not found",
		},
		{
			name: "service_generic_error",
			requestBody: helpers.PlaceBidRequest{
				AuctionID: "auction1",
				ItemID:    "item1",
				Amount:    "70",
			},
			mockSetup: func() {
				mockService.EXPECT().
					PlaceBid("auction1", "item1", "user1", decimal.RequireFromString("70")).
					Return(model.Bid{}, model.Item{}, errors.New("database failure"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedMsg:    "internal server error",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			var reqBody []byte
			var err error
			switch v := tc.requestBody.(type) {
			case string:
				reqBody = []byte(v)
			default:
				reqBody, err = json.Marshal(v)
				require.NoError(t, err)
			}

			tc.mockSetup()

			req := httptest.NewRequest(http.MethodPost, "/bids", bytes.NewReader(reqBody))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			require.Equal(t, tc.expectedStatus, w.Code)

			var resp map[string]any
			err = json.Unmarshal(w.Body.Bytes(), &resp)
			require.NoError(t, err)

			require.Contains(t, resp["message"], tc.expectedMsg)

			if tc.validateData != nil && w.Code == http.StatusCreated {
				data := resp["data"].(map[string]any)
				tc.validateData(t, data)
			}
		})
	}
}

// Test MyBidsHandler
func TestMyBidsHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := NewMockBiddingServiceInterface(ctrl)
	handler := NewBiddingHandler(mockService)

	// Initialize Gin in test mode
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/bids", withUser("user1"), handler.MyBidsHandler)

	now := time.Now().UTC()

	tests := []struct {
		name           string
		mockSetup      func()
		expectedStatus int
		expectedMsg    string
		validateData   func(t *testing.T, data []map[string]any)
	}{
		{
			name: "success_multiple_bids",
			mockSetup: func() {
				mockService.EXPECT().
					ListBidsByUser("user1").
					Return([]model.Bid{
						{BidID: uuid.NewString(), ItemID: "item1", BidderID: "user1", Amount: decimal.RequireFromString("100"), CreatedAt: now},
						{BidID: uuid.NewString(), ItemID: "item2", BidderID: "user1", Amount: decimal.RequireFromString("150"), CreatedAt: now},
					}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedMsg:    "bids retrieved successfully",
			validateData: func(t *testing.T, data []map[string]any) {
				require.Len(t, data, 2)
				require.Equal(t, "item1", data[0]["item_id"])
				require.Equal(t, "100.00", data[0]["amount"])
				require.Equal(t, "item2", data[1]["item_id"])
			},
		},
		{
			name: "success_no_bids",
			mockSetup: func() {
				mockService.EXPECT().
					ListBidsByUser("user1").
					Return([]model.Bid{}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedMsg:    "bids retrieved successfully",
			validateData: func(t *testing.T, data []map[string]any) {
				require.Len(t, data, 0)
			},
		},
		{
			name: "service_nil_slice",
			mockSetup: func() {
				mockService.EXPECT().
					ListBidsByUser("user1").
					Return(nil, nil)
			},
			expectedStatus: http.StatusOK,
			expectedMsg:    "bids retrieved successfully",
			validateData: func(t *testing.T, data []map[string]any) {
				require.Len(t, data, 0)
			},
		},
		{
			name: "service_generic_error",
			mockSetup: func() {
				mockService.EXPECT().
					ListBidsByUser("user1").
					Return(nil, errors.New("database failure"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedMsg:    "internal server error",
			validateData:   nil,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			tc.mockSetup()

			req := httptest.NewRequest(http.MethodGet, "/bids", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			require.Equal(t, tc.expectedStatus, w.Code)

			var resp map[string]any
			err := json.Unmarshal(w.Body.Bytes(), &resp)
			require.NoError(t, err)

			require.Contains(t, resp["message"], tc.expectedMsg)

			if tc.validateData != nil && w.Code == http.StatusOK {
				dataRaw := resp["data"].([]any)
				data := make([]map[string]any, len(dataRaw))
				for i, v := range dataRaw {
					data[i] = v.(map[string]any)
				}
				tc.validateData(t, data)
			}
		})
	}
}
