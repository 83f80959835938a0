package services

import (
	"context"
	"fmt"
	"log/slog"

	"scontrino/internal/amqp"
	"scontrino/internal/core"
	"scontrino/internal/storage"
)

// ReceiptService orchestrates receipt writes across SQLite and AMQP.
type ReceiptService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
}

func NewReceiptService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *ReceiptService {
	return &ReceiptService{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

// CreateReceipt saves a receipt locally, then queues its export. The local
// write is authoritative; a failed publish never fails the request.
func (s *ReceiptService) CreateReceipt(ctx context.Context, r core.Receipt) (int64, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}

	id, err := s.storage.CreateReceipt(ctx, r)
	if err != nil {
		return 0, fmt.Errorf("save receipt: %w", err)
	}

	if err := s.publishSyncMessage(ctx, id, 1); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message", "id", id, "error", err)
	}

	return id, nil
}

// DeleteReceipt soft deletes a receipt locally and queues its removal from
// the export.
func (s *ReceiptService) DeleteReceipt(ctx context.Context, id int64) error {
	if err := s.storage.SoftDeleteReceipt(ctx, id); err != nil {
		return fmt.Errorf("soft delete receipt: %w", err)
	}

	if err := s.publishDeleteMessage(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete message", "id", id, "error", err)
	}

	return nil
}

func (s *ReceiptService) GetReceipt(ctx context.Context, id int64) (core.Receipt, error) {
	return s.storage.GetReceipt(ctx, id)
}

func (s *ReceiptService) ListReceipts(ctx context.Context, year, month int) ([]core.Receipt, error) {
	return s.storage.ListReceipts(ctx, year, month)
}

func (s *ReceiptService) publishSyncMessage(ctx context.Context, id, version int64) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message")
		return nil
	}
	return s.amqpClient.PublishReceiptSync(ctx, id, version)
}

func (s *ReceiptService) publishDeleteMessage(ctx context.Context, id int64) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping delete message")
		return nil
	}
	return s.amqpClient.PublishReceiptDelete(ctx, id)
}

// Close closes both storage and AMQP connections.
func (s *ReceiptService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close receipt service: %v", errs)
	}
	return nil
}
