package domain

import (
	"strings"
	"time"
)

type Address struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	UserID    string    `gorm:"type:varchar(64);not null;index"`
	Name      string    `gorm:"size:100"`
	Line      string    `gorm:"type:text;not null"`
	Area      string    `gorm:"size:100"`
	City      string    `gorm:"size:100;not null"`
	State     string    `gorm:"size:100;not null"`
	Pincode   string    `gorm:"size:6;not null"`
	Country   string    `gorm:"size:100;default:'India'"`
	IsDefault bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// Format renders "line, area, city, state - pincode". An empty area is left out.
func (a Address) Format() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{a.Line, a.Area, a.City, a.State} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ") + " - " + strings.TrimSpace(a.Pincode)
}
