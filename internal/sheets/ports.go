// Package sheets defines the port the export worker writes backup rows
// through.
package sheets

import (
	"context"

	"fatura/internal/core"
)

// Record is one ledger transaction flattened for a spreadsheet row.
type Record struct {
	Date        core.Date
	Kind        core.TransactionKind
	Description string
	Amount      core.Money
	Category    string
}

// RecordWriter appends a record to the backup sheet and returns a row
// reference for logging.
type RecordWriter interface {
	Append(ctx context.Context, r Record) (rowRef string, err error)
}
