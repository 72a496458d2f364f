package repository

// Factory describes access to different domain repositories.
type Factory interface {
	Applications() ApplicationRepository
	Reviews() ReviewRepository
	Ledger() LedgerRepository
	Balances() BalanceRepository
	Withdrawals() WithdrawalRepository
}
