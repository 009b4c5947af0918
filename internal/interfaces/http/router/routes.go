package router

import (
	"github.com/eduard0708/exits-saas-lms-sub008/internal/infrastructure/auth"
	"github.com/eduard0708/exits-saas-lms-sub008/internal/interfaces/http/handler"
)

// MoneyLoanHandlers are the handlers mounted under /money-loan
type MoneyLoanHandlers struct {
	Cash   *handler.CashCustodyHandler
	Limits *handler.CollectorLimitsHandler
	Outbox *handler.OutboxHandler
}

// NewMoneyLoanGroup builds the money-loan route table. Collector routes act
// on the caller's own day; cashier and supervisor routes are admitted by
// their cash permissions.
func NewMoneyLoanGroup(h MoneyLoanHandlers) *DomainGroup {
	ml := NewDomainGroup("money-loan", "/money-loan")

	if h.Cash != nil {
		cash := ml.Group("cash", "/cash")
		cash.POST("/issue-float", h.Cash.IssueFloat, auth.PermCashIssue)
		cash.POST("/confirm-float", h.Cash.ConfirmFloat, auth.PermCollector)
		cash.POST("/record-collection", h.Cash.RecordCollection, auth.PermCollector)
		cash.POST("/record-disbursement", h.Cash.RecordDisbursement, auth.PermCollector)
		cash.POST("/initiate-handover", h.Cash.InitiateHandover, auth.PermCollector)
		cash.PUT("/confirm-handover", h.Cash.ConfirmHandover, auth.PermCashReceive)
		cash.POST("/confirm-handover/:id", h.Cash.DecideHandover, auth.PermCashReceive)

		cash.GET("/balance", h.Cash.GetBalance, auth.PermCollector, auth.PermCashRead)
		cash.GET("/collector/:id/balance", h.Cash.GetCollectorBalance, auth.PermCashRead)
		cash.GET("/history", h.Cash.GetHistory, auth.PermCollector, auth.PermCashRead)
		cash.GET("/collectors-status", h.Cash.GetCollectorsStatus, auth.PermCashRead)
		cash.GET("/pending-handovers", h.Cash.GetPendingHandovers, auth.PermCashRead)
		cash.GET("/pending-confirmations", h.Cash.GetPendingConfirmations, auth.PermCashRead)
		cash.GET("/pending-floats", h.Cash.GetPendingFloats, auth.PermCollector)
		cash.GET("/handover/:id", h.Cash.GetHandover, auth.PermCollector, auth.PermCashRead)
		cash.GET("/float-history", h.Cash.GetFloatHistory, auth.PermCashRead)
		cash.GET("/reports/daily", h.Cash.ExportDailyReport, auth.PermCashRead)
	}

	if h.Limits != nil {
		limits := ml.Group("collector-limits", "/collector-limits")
		limits.GET("/:collectorId", h.Limits.GetLimits, auth.PermCollectorRead)
		limits.PUT("/:collectorId", h.Limits.UpdateLimits, auth.PermCollectorUpdate)
		limits.GET("/:collectorId/usage", h.Limits.GetUsage, auth.PermCollectorRead)
		limits.POST("/:collectorId/check", h.Limits.Check, auth.PermCollectorRead)

		logs := ml.Group("collector-action-logs", "/collector-action-logs")
		logs.GET("", h.Limits.ListActionLogs, auth.PermCollectorRead)
		logs.POST("", h.Limits.LogAction, auth.PermCollector)
	}

	if h.Outbox != nil {
		outbox := ml.Group("outbox", "/system/outbox")
		outbox.GET("/dead", h.Outbox.GetDeadLetterEntries, auth.PermCashManage)
		outbox.POST("/dead/retry", h.Outbox.RetryAllDeadEntries, auth.PermCashManage)
		outbox.GET("/stats", h.Outbox.GetStats, auth.PermCashManage)
		outbox.GET("/:id", h.Outbox.GetEntry, auth.PermCashManage)
		outbox.POST("/:id/retry", h.Outbox.RetryDeadEntry, auth.PermCashManage)
	}

	return ml
}

// NewSystemGroup builds the unauthenticated system routes
func NewSystemGroup(h *handler.SystemHandler) *DomainGroup {
	sys := NewDomainGroup("system", "/system")
	sys.GET("/info", h.GetSystemInfo)
	sys.GET("/ping", h.Ping)
	return sys
}
