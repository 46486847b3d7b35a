package models

import "time"

// Client is a single call target.
type Client struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"not null"`
	Phone     string `gorm:"size:32;not null"`
	GroupID   *uint  `gorm:"index"`
	OwnerID   string `gorm:"size:64;index"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Group *ClientGroup `gorm:"foreignKey:GroupID"`
}

// ClientGroup organizes clients into a callable set.
type ClientGroup struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"not null"`
	OwnerID   string `gorm:"size:64;index"`
	CreatedAt time.Time

	Clients []Client `gorm:"foreignKey:GroupID"`
}
