package models

import "gorm.io/gorm"

// Account is a brokerage account that trades are booked against.
type Account struct {
	gorm.Model
	Name         string `json:"name" gorm:"uniqueIndex;not null"`
	Broker       string `json:"broker"`
	BaseCurrency string `json:"base_currency" gorm:"default:USD"`
}
