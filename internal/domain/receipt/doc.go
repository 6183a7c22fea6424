// Package receipt contains the fee receipt bounded context.
// It defines the issued transaction record, the per-deployment branding
// profile, and the ports through which receipts are numbered, rendered,
// recorded in the ledger and persisted to storage.
package receipt
