package model

import "time"

type User struct {
	BaseModel

	Username string `gorm:"type:varchar(50);uniqueIndex;not null" json:"username"`
	Email    string `gorm:"type:varchar(100);uniqueIndex" json:"email"`
	Password string `gorm:"type:varchar(255);not null" json:"-"`
	FullName string `gorm:"type:varchar(100)" json:"fullName"`

	Role UserRole `gorm:"type:varchar(20);default:user_cpns;not null" json:"role"`
	Tier Tier     `gorm:"type:varchar(20);default:free;not null" json:"tier"`

	IsActive bool       `gorm:"default:true;not null" json:"isActive"`
	LastSeen *time.Time `json:"lastSeen,omitempty"`
}
