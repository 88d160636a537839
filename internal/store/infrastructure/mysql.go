package infrastructure

import (
	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"shopcore/internal/store/domain"
)

// OpenMySQL connects to the store database and migrates the order-engine
// tables.
func OpenMySQL(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open mysql")
	}
	if err := db.AutoMigrate(
		&domain.Customer{},
		&domain.Product{},
		&domain.Sku{},
		&domain.Cart{},
		&domain.CartLine{},
		&domain.Order{},
		&domain.OrderLine{},
	); err != nil {
		return nil, errors.Wrap(err, "migrate schema")
	}
	return db, nil
}
