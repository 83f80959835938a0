package worker

import (
	"context"
	"fmt"
	"log/slog"

	"scontrino/internal/amqp"
	"scontrino/internal/core"
	"scontrino/internal/sheets"
	"scontrino/internal/storage"
)

// SyncWorker drains the receipt export queue into the spreadsheet report.
type SyncWorker struct {
	storage   *storage.SQLiteRepository
	writer    sheets.ReceiptWriter
	remover   sheets.ReceiptRemover
	batchSize int
}

func NewSyncWorker(storage *storage.SQLiteRepository, writer sheets.ReceiptWriter, remover sheets.ReceiptRemover, batchSize int) *SyncWorker {
	return &SyncWorker{
		storage:   storage,
		writer:    writer,
		remover:   remover,
		batchSize: batchSize,
	}
}

// HandleSyncMessage exports one receipt. The message carries only the ID;
// the receipt itself is read fresh from the database.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.ReceiptSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message", "id", msg.ID, "version", msg.Version)

	receipt, err := w.storage.GetReceipt(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("get receipt from storage: %w", err)
	}

	return w.exportReceipt(ctx, msg.ID, receipt)
}

// HandleDeleteMessage removes a deleted receipt's row from the report.
func (w *SyncWorker) HandleDeleteMessage(ctx context.Context, msg *amqp.ReceiptDeleteMessage) error {
	slog.InfoContext(ctx, "Processing delete message", "id", msg.ID)

	if w.remover == nil {
		slog.WarnContext(ctx, "No report remover configured, skipping", "id", msg.ID)
		return nil
	}

	if err := w.remover.Remove(ctx, msg.ID); err != nil {
		return fmt.Errorf("remove receipt from report: %w", err)
	}
	slog.InfoContext(ctx, "Removed receipt from report", "id", msg.ID)
	return nil
}

// ProcessPending exports receipts still marked pending. This is the backup
// path for messages lost while the worker was down.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.storage.PendingSyncReceipts(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending receipts: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending receipts", "count", len(pending))

	for _, p := range pending {
		receipt, err := w.storage.GetReceipt(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get receipt", "id", p.ID, "error", err)
			if err := w.storage.MarkSyncError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "id", p.ID, "error", err)
			}
			continue
		}
		if err := w.exportReceipt(ctx, p.ID, receipt); err != nil {
			slog.ErrorContext(ctx, "Failed to export receipt", "id", p.ID, "error", err)
		}
	}
	return nil
}

// StartupSyncCheck drains a larger pending backlog once at worker startup.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.storage.PendingSyncReceipts(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending receipts for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending receipts found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending receipts on startup", "count", len(pending))

	synced, failed := 0, 0
	for _, p := range pending {
		receipt, err := w.storage.GetReceipt(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get receipt for startup sync", "id", p.ID, "error", err)
			if err := w.storage.MarkSyncError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "id", p.ID, "error", err)
			}
			failed++
			continue
		}
		if err := w.exportReceipt(ctx, p.ID, receipt); err != nil {
			slog.ErrorContext(ctx, "Failed to export receipt during startup", "id", p.ID, "error", err)
			failed++
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending), "synced", synced, "errors", failed)
	return nil
}

func (w *SyncWorker) exportReceipt(ctx context.Context, id int64, receipt core.Receipt) error {
	ref, err := w.writer.Append(ctx, receipt)
	if err != nil {
		if markErr := w.storage.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
		}
		return fmt.Errorf("append to report: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, id); err != nil {
		// the export itself worked, so don't fail the message
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", id, "error", err)
	}

	slog.InfoContext(ctx, "Exported receipt",
		"id", id,
		"report_ref", ref,
		"merchant", receipt.Merchant,
		"amount_cents", receipt.Amount.Cents)
	return nil
}
