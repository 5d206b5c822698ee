package database

import (
	"fmt"
	"time"

	"warehouse-backend/internal/config"
	"warehouse-backend/internal/models"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is set by Init and shared by the stores, the user store and the audit sink.
var DB *gorm.DB

func Init(cfg *config.Config) error {
	db, err := Open(cfg)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

func Open(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
		Logger:         newLogger(),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Minute)

	if err := db.Use(otelgorm.NewPlugin()); err != nil {
		config.GetLogger().WithError(err).Warn("otelgorm plugin not installed")
	}
	return db, nil
}

// Models lists every table, in dependency order.
var Models = []any{
	&models.User{},
	&models.AuditLog{},
	&models.Sequence{},
	&models.InventoryItem{},
	&models.LocationStock{},
	&models.StockMovement{},
	&models.PurchaseOrder{},
	&models.PurchaseOrderItem{},
	&models.POStatusHistory{},
	&models.ReceivingReceipt{},
	&models.ReceiptLine{},
	&models.SaleOrder{},
	&models.SaleOrderItem{},
	&models.Shipment{},
	&models.ShipmentItem{},
	&models.TrackingEvent{},
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	config.GetLogger().Info("database migration finished")
	return nil
}

func newLogger() logger.Interface {
	return logger.New(config.GetLogger(), logger.Config{
		Colorful:                  false,
		LogLevel:                  logger.Warn,
		SlowThreshold:             time.Second,
		IgnoreRecordNotFoundError: true,
	})
}
