package services

import (
	"context"
	"errors"
	"slices"

	"flowfunds/internal/amqp"
	"flowfunds/internal/backup"
	"flowfunds/internal/log"
)

// Export builds the export document of the current state.
func (t *Tracker) Export() backup.Payload {
	t.mu.RLock()
	defer t.mu.RUnlock()
	t.logger.Debug("Exporting state", log.FieldOperation, log.OpExport, log.FieldCount, len(t.transactions))
	return backup.NewPayload(slices.Clone(t.transactions), t.settings.Clone(), t.clock())
}

// Import validates data and, when every record is valid, replaces the
// collection. Settings in the file replace the current ones. It returns the
// number of imported transactions.
func (t *Tracker) Import(ctx context.Context, data []byte) (int, error) {
	res, err := backup.Parse(data, t.clock())
	if err != nil {
		var ie *backup.ImportError
		if errors.As(err, &ie) && ie.Records != nil {
			t.metrics.ImportRecords(0, len(ie.Records.Errors))
		}
		t.logger.WarnContext(ctx, "Import rejected", log.FieldOperation, log.OpImport, log.FieldError, err)
		return 0, err
	}

	if err := t.ReplaceAll(ctx, res.Transactions); err != nil {
		return 0, err
	}
	if res.Settings != nil {
		t.mu.Lock()
		t.settings = res.Settings.Clone()
		err := t.repo.SaveSettings(ctx, t.settings)
		t.mu.Unlock()
		if err != nil {
			return 0, err
		}
	}

	n := len(res.Transactions)
	t.metrics.ImportRecords(n, 0)
	t.logger.InfoContext(ctx, "Import completed", log.FieldOperation, log.OpImport, log.FieldCount, n)
	t.publish(ctx, amqp.NewBulkEvent(amqp.EventImported, n))
	return n, nil
}
