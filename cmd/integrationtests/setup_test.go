package integrationtests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	auction "auction-house/internal/auctionService"
	auth "auction-house/internal/authService"
	bidding "auction-house/internal/biddingService"
	exporter "auction-house/internal/exportService"
	importer "auction-house/internal/importService"
	"auction-house/internal/repository"
	"auction-house/internal/server"
	"auction-house/services/helpers"
)

const testJWTSecret = "integration-test-secret"

// SetupTestRouter initializes the router over an in-memory ledger with the
// full service stack for integration testing.
func SetupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	repo := repository.NewMemoryRepo()

	authService := auth.NewAuthService(repo, testJWTSecret)
	auctionService := auction.NewAuctionService(repo)
	biddingService := bidding.NewBiddingService(repo, auctionService)
	importService := importer.NewImporter(repo)
	exportService := exporter.NewExporter(repo, auctionService)

	return server.SetupRouter(authService, auctionService, biddingService, importService, exportService)
}

// ExecuteRequest executes an HTTP request and returns the response recorder.
// An empty token leaves the request unauthenticated.
func ExecuteRequest(t *testing.T, router *gin.Engine, method, url, token string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, url, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// ExecuteRequestAndParse executes an HTTP request on the given router and
// parses the JSON response envelope.
func ExecuteRequestAndParse(t *testing.T, router *gin.Engine, method, url, token string, body any) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()

	var reqBody []byte
	var err error
	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = v
	default:
		reqBody, err = json.Marshal(v)
		require.NoError(t, err)
	}

	w := ExecuteRequest(t, router, method, url, token, reqBody)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return resp, w
}

// RegisterAndLogin creates a user through the API and returns a bearer token
// plus the user's ID.
func RegisterAndLogin(t *testing.T, router *gin.Engine, name, email, role string) (string, string) {
	t.Helper()

	resp, w := ExecuteRequestAndParse(t, router, http.MethodPost, "/auth/register", "", helpers.RegisterRequest{
		Name:     name,
		Email:    email,
		Password: "secret",
		Role:     role,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	userID := resp["data"].(map[string]any)["user_id"].(string)

	resp, w = ExecuteRequestAndParse(t, router, http.MethodPost, "/auth/login", "", helpers.LoginRequest{
		Email:    email,
		Password: "secret",
	})
	require.Equal(t, http.StatusOK, w.Code)
	token := resp["data"].(map[string]any)["access_token"].(string)
	require.NotEmpty(t, token)

	return token, userID
}

// CreateAuctionWithItem drives the manager endpoints to seed one active
// auction with a single item, returning both IDs.
func CreateAuctionWithItem(t *testing.T, router *gin.Engine, managerToken, name, openingPrice string) (string, string) {
	t.Helper()

	resp, w := ExecuteRequestAndParse(t, router, http.MethodPost, "/managers/auctions", managerToken,
		helpers.CreateAuctionRequest{Name: name})
	require.Equal(t, http.StatusCreated, w.Code)
	auctionID := resp["data"].(map[string]any)["auction_id"].(string)

	resp, w = ExecuteRequestAndParse(t, router, http.MethodPost, "/managers/auctions/"+auctionID+"/items", managerToken,
		helpers.AddItemRequest{Name: "lot 1", OpeningPrice: openingPrice})
	require.Equal(t, http.StatusCreated, w.Code)
	itemID := resp["data"].(map[string]any)["item_id"].(string)

	return auctionID, itemID
}
