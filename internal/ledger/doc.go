// Package ledger is the system of record for account balances and
// transaction history.
//
// Balances are whole numbers of minor currency units (cents). Every backend
// serializes balance changes per account: AdjustBalance, PostTransaction and
// Transfer are atomic read-modify-write operations, so concurrent streams
// and mutations never lose updates. Transactions are kept in append order
// and a transaction's BalanceAfter is the account balance right after it
// was applied.
//
// Three backends are provided: an in-memory ledger for demos and tests,
// SQLite (pure Go driver) for a single-file store, and PostgreSQL using row
// locks.
package ledger
