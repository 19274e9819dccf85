package models

import (
	"log"

	"github.com/mmdatafocus/riskradar_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Order{}, &OrderLineItem{},
		&StoreSettings{},
		&Subscription{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
