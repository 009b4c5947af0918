package auth

// Permissions granted by the identity service that guard money-loan routes
const (
	// PermCollector lets a field collector act on their own cash day
	PermCollector = "money-loan:collector"
	// PermCashIssue lets a cashier issue morning floats
	PermCashIssue = "money-loan:cash:issue"
	// PermCashReceive lets a cashier confirm or reject handovers
	PermCashReceive = "money-loan:cash:receive"
	// PermCashRead grants read access to every collector's cash day
	PermCashRead = "money-loan:cash:read"
	// PermCashManage lets a supervisor receive handovers issued by another cashier
	PermCashManage = "money-loan:cash:manage"

	PermCollectorRead   = "collector-management:read"
	PermCollectorUpdate = "collector-management:update"
)
