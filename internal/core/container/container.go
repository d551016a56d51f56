package container

import (
	"database/sql"

	auditLogRepo "github.com/synard1/ximopet-sub010/internal/auditlog"
	"github.com/synard1/ximopet-sub010/internal/commodities"
	"github.com/synard1/ximopet-sub010/internal/ledger"
	"github.com/synard1/ximopet-sub010/internal/mutations"
	"github.com/synard1/ximopet-sub010/internal/productionunits"
	"github.com/synard1/ximopet-sub010/internal/purchases"
	"github.com/synard1/ximopet-sub010/internal/repository"
	"github.com/synard1/ximopet-sub010/internal/stocklots"
	"github.com/synard1/ximopet-sub010/internal/usages"
	"github.com/synard1/ximopet-sub010/pkg/auditlog"
)

type Container struct {
	Repository       *repository.Repository
	AuditLog         *auditlog.Auditlog
	CommodityHandler *commodities.CommodityHandler
	UnitHandler      *productionunits.UnitHandler
	PurchaseHandler  *purchases.PurchaseHandler
	UsageHandler     *usages.UsageHandler
	MutationHandler  *mutations.MutationHandler
	LotHandler       *stocklots.LotHandler
	LedgerHandler    *ledger.LedgerHandler
}

func NewAppContainer(db *sql.DB) *Container {
	repo := repository.NewRepository(db)
	auditLogRepository := auditLogRepo.NewRepository(repo)
	auditLog := auditlog.NewAuditLog(auditLogRepository)

	commodityRepo := commodities.NewRepository(repo)
	unitRepo := productionunits.NewUnitRepository(repo)
	lotRepo := stocklots.NewRepository(repo)
	purchaseRepo := purchases.NewRepository(repo)
	usageRepo := usages.NewRepository(repo)
	mutationRepo := mutations.NewRepository(repo)
	ledgerRepo := ledger.NewRepository(repo)

	aggregator := purchases.NewAggregator()
	purchaseService := purchases.NewService(repo, purchaseRepo, lotRepo, commodityRepo, aggregator)
	usageService := usages.NewService(repo, usageRepo, lotRepo, purchaseRepo, aggregator)
	mutationService := mutations.NewService(repo, mutationRepo, lotRepo, commodityRepo, purchaseRepo, aggregator)
	ledgerService := ledger.NewService(ledgerRepo)

	commodityHandler := commodities.NewCommodityHandler(commodityRepo)
	unitHandler := productionunits.NewUnitHandler(unitRepo)
	purchaseHandler := purchases.NewHandler(purchaseService, auditLog)
	usageHandler := usages.NewHandler(usageService, auditLog)
	mutationHandler := mutations.NewHandler(mutationService, auditLog)
	lotHandler := stocklots.NewLotHandler(lotRepo)
	ledgerHandler := ledger.NewHandler(ledgerService)

	return &Container{
		Repository:       repo,
		AuditLog:         auditLog,
		CommodityHandler: commodityHandler,
		UnitHandler:      unitHandler,
		PurchaseHandler:  purchaseHandler,
		UsageHandler:     usageHandler,
		MutationHandler:  mutationHandler,
		LotHandler:       lotHandler,
		LedgerHandler:    ledgerHandler,
	}
}
