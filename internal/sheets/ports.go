package sheets

import (
	"context"

	"scontrino/internal/core"
)

// Ports for the outbound receipt export.
type (
	ReceiptWriter interface {
		Append(ctx context.Context, r core.Receipt) (rowRef string, err error)
	}

	ReceiptRemover interface {
		Remove(ctx context.Context, id int64) error
	}
)
