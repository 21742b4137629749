package models

import (
	"bitbucket.org/farmasuite/pharma_backend/config"
)

func MigrateTable() {
	db := config.GetDB()
	logger := config.GetLogger()

	err := db.AutoMigrate(
		&Pharmacy{},
		&User{},
		&ProductCategory{},
		&Product{},
		&Supplier{},
		&CashRegister{},
		&StockLot{},
		&StockMovement{},
		&StockIntake{},
		&StockIntakeItem{},
		&Order{},
		&OrderItem{},
		&ExpenseCategory{},
		&Expense{},
		&CashSession{},
		&CashMovement{},
		&StockAlertRecord{},
	)
	if err != nil {
		config.LogError(logger, "migration.go", "MigrateTable", "AutoMigrate", nil, err)
	}
}
