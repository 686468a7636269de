package main

import (
	"time"

	"spinledger/config"
	"spinledger/ledger"
	"spinledger/models"
	"spinledger/routes"
	"spinledger/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(&models.SpinRecord{}, &models.RewardCode{}, &models.Prize{})

	broadcaster := ledger.NewBroadcaster(utils.GetRedis(), utils.Sugar)
	store := ledger.NewStore(db, broadcaster, utils.Sugar)
	prizes := ledger.NewPrizeSource(db, time.Duration(cfg.PrizeCacheTTLSec)*time.Second, utils.Sugar)
	if err := prizes.Seed(); err != nil {
		utils.Sugar.Fatalf("prize seeding failed: %v", err)
	}
	issuer := ledger.NewIssuer(store, prizes, time.Duration(cfg.CodeExpiryHours)*time.Hour, utils.Sugar)

	r := routes.SetupRouter(db, store, issuer, prizes, broadcaster)

	// Opportunistic retention sweep; never blocks a spin request.
	store.StartRetentionSweeper(time.Duration(cfg.RetentionDays)*24*time.Hour, time.Hour)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
