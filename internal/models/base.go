package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// BaseModel contains common columns for all tables
type BaseModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate will set a UUID rather than numeric ID
func (base *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if base.ID == "" {
		base.ID = uuid.New().String()
	}
	return nil
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	DSN      string
	LogLevel gormlogger.LogLevel
}

// InitDB opens the MySQL connection. Schema changes are applied separately by Migrate.
func InitDB(config DatabaseConfig) (*gorm.DB, error) {
	level := config.LogLevel
	if level == 0 {
		level = gormlogger.Warn
	}
	return gorm.Open(mysql.Open(config.DSN), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(level),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
}

// Migrate auto-migrates every table the server owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&RefreshToken{},
		&Appointment{},
		&Report{},
		&Task{},
		&Message{},
	)
}
