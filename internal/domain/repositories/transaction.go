package repositories

import "context"

// TxFn is a function that runs within a transaction
type TxFn func(ctx context.Context) error

// TransactionManager handles store transactions
type TransactionManager interface {
	// ExecTx executes a function within a transaction. Calls made with the
	// context passed to fn join the same transaction; a nested ExecTx reuses it.
	ExecTx(ctx context.Context, fn TxFn) error
}
