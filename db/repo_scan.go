package db

import (
	"context"
	"log"
	"time"

	"gso_supply_tracker/models"
	"gso_supply_tracker/qr"
)

// ScanResolution is what a scanned token points at, with enough context
// loaded for the counter UI to act on it directly.
type ScanResolution struct {
	Ref qr.Ref `json:"ref"`

	Supply   *models.Supply            `json:"supply,omitempty"`
	Instance *models.EquipmentInstance `json:"instance,omitempty"`
	Request  *models.SupplyRequest     `json:"request,omitempty"`
	Batch    []models.SupplyRequest    `json:"batch,omitempty"`

	// OpenBorrow is set for instance scans with an active loan, so a
	// return scan lands directly on the right borrow row.
	OpenBorrow *models.BorrowedItem `json:"openBorrow,omitempty"`
}

// ResolveScan decodes a token, loads what it refers to and logs the
// attempt. Bad tokens and missing entities are logged as failed scans and
// returned as errors.
func (r *Repo) ResolveScan(ctx context.Context, token, scanType string, scanner *models.User) (*ScanResolution, error) {
	ref, err := qr.Decode(token)
	if err != nil {
		r.logScan(ctx, token, scanType, scanner, nil, err)
		return nil, errf(KindValidation, "unrecognized code: %v", err)
	}

	res := &ScanResolution{Ref: ref}
	switch ref.Kind {
	case qr.KindSupply:
		res.Supply, err = r.FindSupplyByID(ctx, ref.ID)

	case qr.KindInstance:
		res.Instance, err = r.FindInstanceByID(ctx, ref.ID)
		if err == nil {
			res.Supply, err = r.FindSupplyByID(ctx, res.Instance.SupplyID)
		}
		if err == nil {
			// No open borrow is fine for non-return scans.
			if open, berr := r.FindOpenBorrowByInstance(ctx, res.Instance.ID); berr == nil {
				res.OpenBorrow = open
			} else if scanType == models.ScanReturn {
				err = berr
			}
		}

	case qr.KindRequest:
		res.Request, err = r.FindRequestByID(ctx, ref.ID)
		if err == nil {
			res.Supply, err = r.FindSupplyByID(ctx, res.Request.SupplyID)
		}

	case qr.KindBatch:
		res.Batch, err = r.ListBatchRequests(ctx, ref.BatchID)
	}

	r.logScan(ctx, token, scanType, scanner, res, err)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// logScan is fire-and-forget like notifications; a failed log write never
// fails the scan.
func (r *Repo) logScan(ctx context.Context, token, scanType string, scanner *models.User, res *ScanResolution, scanErr error) {
	if scanType == "" {
		scanType = models.ScanGeneral
	}
	entry := models.ScanLog{
		ScannedByID:   actorID(scanner),
		Token:         token,
		ScanType:      scanType,
		WasSuccessful: scanErr == nil,
		ScannedAt:     time.Now().UTC(),
	}
	if scanErr != nil {
		entry.ErrorMessage = scanErr.Error()
	}
	if res != nil {
		if res.Supply != nil {
			entry.SupplyID = &res.Supply.ID
		}
		if res.Instance != nil {
			entry.InstanceID = &res.Instance.ID
		}
		if res.Request != nil {
			entry.RequestID = &res.Request.ID
		}
	}
	if err := r.DB.WithContext(ctx).Create(&entry).Error; err != nil {
		log.Printf("scan log write failed: %v", err)
	}
}

func (r *Repo) ListScans(ctx context.Context, scanType string, failedOnly bool, page, size int) ([]models.ScanLog, int64, error) {
	page, size = clampPage(page, size)

	tx := r.DB.WithContext(ctx).Model(&models.ScanLog{})
	if scanType != "" {
		tx = tx.Where("scan_type = ?", scanType)
	}
	if failedOnly {
		tx = tx.Where("was_successful = ?", false)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.ScanLog
	err := tx.Order("scanned_at DESC").
		Offset((page - 1) * size).Limit(size).
		Find(&rows).Error
	return rows, total, err
}
