package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/farmasuite/pharma_backend/config"
	"bitbucket.org/farmasuite/pharma_backend/utils"
	"gorm.io/gorm"
)

// StockAlertRecord is the transactional outbox row for stock notifications.
// Workflows insert it inside the same transaction as the stock write;
// publishing to Pub/Sub happens after commit via the dispatcher.
type StockAlertRecord struct {
	ID         int            `gorm:"primary_key;index:idx_alert_dispatch,priority:3" json:"id"`
	PharmacyId string         `gorm:"size:36;not null;index" json:"pharmacy_id"`
	AlertType  StockAlertType `gorm:"type:enum('RUPTURA','ESTOQUE_BAIXO','EXPIRADO','VALIDADE');not null" json:"alert_type"`

	LotId       int    `gorm:"index;not null" json:"lot_id"`
	ProductName string `gorm:"size:255" json:"product_name"`
	LotCode     string `gorm:"size:50" json:"lot_code"`
	Title       string `gorm:"size:255" json:"title"`
	Message     string `gorm:"size:500" json:"message"`
	OccurredAt  time.Time `gorm:"index;not null" json:"occurred_at"`

	PublishStatus    string     `gorm:"size:20;index;not null;default:'PENDING';index:idx_alert_dispatch,priority:1" json:"publish_status"`
	PublishedAt      *time.Time `gorm:"index" json:"published_at"`
	PubSubMessageId  *string    `gorm:"size:255" json:"pubsub_message_id"`
	PublishAttempts  int        `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt    *time.Time `gorm:"index;index:idx_alert_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt         *time.Time `gorm:"index" json:"locked_at"`
	LockedBy         *string    `gorm:"size:100" json:"locked_by"`
	LastPublishError *string    `gorm:"type:text" json:"last_publish_error"`

	CorrelationId string    `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func ConvertToStockAlertMessage(record StockAlertRecord) config.StockAlertMessage {
	return config.StockAlertMessage{
		ID:            record.ID,
		PharmacyId:    record.PharmacyId,
		AlertType:     string(record.AlertType),
		LotId:         record.LotId,
		ProductName:   record.ProductName,
		LotCode:       record.LotCode,
		Title:         record.Title,
		Message:       record.Message,
		OccurredAt:    record.OccurredAt,
		CorrelationId: record.CorrelationId,
	}
}

// ClassifyLotAlerts inspects a lot after a stock write and returns the alert
// types it currently triggers. Rupture wins over low stock; the expiry
// alerts are independent of quantity.
func ClassifyLotAlerts(lot *StockLot, today time.Time) []StockAlertType {
	var alerts []StockAlertType
	if lot.Rupture() {
		alerts = append(alerts, StockAlertTypeRupture)
	} else if lot.LowStock() {
		alerts = append(alerts, StockAlertTypeLowStock)
	}
	switch lot.ExpiryStatusOn(today) {
	case ExpiryStatusExpired:
		alerts = append(alerts, StockAlertTypeExpired)
	case ExpiryStatusNearExpiry:
		alerts = append(alerts, StockAlertTypeNearExpiry)
	}
	return alerts
}

func alertTitle(alertType StockAlertType, productName string) string {
	switch alertType {
	case StockAlertTypeRupture:
		return "Ruptura de stock: " + productName
	case StockAlertTypeLowStock:
		return "Stock baixo: " + productName
	case StockAlertTypeExpired:
		return "Lote expirado: " + productName
	case StockAlertTypeNearExpiry:
		return "Validade proxima: " + productName
	}
	return productName
}

// EnqueueLotAlerts writes one outbox row per alert the lot triggers, inside
// the caller's transaction.
func EnqueueLotAlerts(tx *gorm.DB, ctx context.Context, lot *StockLot, now time.Time) error {
	productName := lot.LotCode
	if lot.Product != nil {
		productName = lot.Product.Name
	}
	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	for _, alertType := range ClassifyLotAlerts(lot, now) {
		record := StockAlertRecord{
			PharmacyId:    lot.PharmacyId,
			AlertType:     alertType,
			LotId:         lot.ID,
			ProductName:   productName,
			LotCode:       lot.LotCode,
			Title:         alertTitle(alertType, productName),
			Message:       fmt.Sprintf("%s (lote %s): quantidade %d", alertTitle(alertType, productName), lot.LotCode, lot.Quantity),
			OccurredAt:    now,
			PublishStatus: OutboxPublishStatusPending,
			CorrelationId: correlationId,
		}
		if err := tx.WithContext(ctx).Create(&record).Error; err != nil {
			return err
		}
	}
	return nil
}
