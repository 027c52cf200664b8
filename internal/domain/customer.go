package domain

import (
	"time"

	"github.com/google/uuid"
)

type Customer struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string    `gorm:"size:140;uniqueIndex" json:"email"`
	Name      string    `gorm:"size:140" json:"name"`
	Phone     string    `gorm:"size:50" json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
