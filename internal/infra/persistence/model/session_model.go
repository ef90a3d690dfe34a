package model

import "time"

// SessionModel mirrors the 'sessions' table used by the HTTP session manager.
type SessionModel struct {
	Token  string    `gorm:"type:text;primaryKey"`
	Data   []byte    `gorm:"type:bytea;not null"`
	Expiry time.Time `gorm:"type:timestamptz;not null;index:sessions_expiry_idx"`
}

// TableName explicitly sets the table name for GORM.
func (SessionModel) TableName() string {
	return "sessions"
}
