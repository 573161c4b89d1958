package main

import (
	"os"

	auction "auction-house/internal/auctionService"
	auth "auction-house/internal/authService"
	bidding "auction-house/internal/biddingService"
	"auction-house/internal/config"
	exporter "auction-house/internal/exportService"
	importer "auction-house/internal/importService"
	"auction-house/internal/repository"
	"auction-house/internal/server"
	"auction-house/utils"
)

func main() {
	cfg := config.Load()
	utils.SetLevel(cfg.LogLevel)

	repo, cleanup, err := openLedger(cfg)
	if err != nil {
		utils.Fatal("failed to open ledger store", map[string]any{"error": err.Error()})
	}
	defer cleanup()

	authSvc := auth.NewAuthService(repo, cfg.JWTSecret)
	auctionSvc := auction.NewAuctionService(repo)
	biddingSvc := bidding.NewBiddingService(repo, auctionSvc)
	importSvc := importer.NewImporter(repo)
	exportSvc := exporter.NewExporter(repo, auctionSvc)

	router := server.SetupRouter(authSvc, auctionSvc, biddingSvc, importSvc, exportSvc)

	utils.Info("starting auction house server", map[string]any{"addr": cfg.Addr()})
	if err := router.Run(cfg.Addr()); err != nil {
		utils.Error("server stopped", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}

// openLedger picks the ledger backend: SQLite when a path is configured,
// in-memory otherwise.
func openLedger(cfg config.Config) (repository.LedgerStore, func(), error) {
	if cfg.LedgerPath == "" {
		utils.Info("using in-memory ledger store", nil)
		return repository.NewMemoryRepo(), func() {}, nil
	}

	store, err := repository.OpenSQLite(cfg.LedgerPath)
	if err != nil {
		return nil, nil, err
	}
	utils.Info("using sqlite ledger store", map[string]any{"path": cfg.LedgerPath})
	return store, func() { _ = store.Close() }, nil
}
