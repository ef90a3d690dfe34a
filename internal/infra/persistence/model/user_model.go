// Package model contains the GORM persistence models.
package model

import (
	"time"

	"github.com/google/uuid"
)

// UserModel mirrors the 'users' table. PostgreSQL generates UUIDs via gen_random_uuid().
// Nullable columns are pointers so that OAuth-only accounts store NULL, not an empty string.
type UserModel struct {
	ID                  uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Email               string     `gorm:"type:varchar(320);uniqueIndex:users_email_key;not null"`
	PasswordHash        *string    `gorm:"type:varchar(72)"`
	OAuthProvider       *string    `gorm:"column:oauth_provider;type:varchar(32)"`
	OAuthProviderUserID *string    `gorm:"column:oauth_provider_user_id;type:varchar(255)"`
	OAuthAccessToken    *string    `gorm:"column:oauth_access_token;type:text"`
	OAuthRefreshToken   *string    `gorm:"column:oauth_refresh_token;type:text"`
	OAuthTokenExpiry    *time.Time `gorm:"column:oauth_token_expiry"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// TableName explicitly sets the table name for GORM.
func (UserModel) TableName() string {
	return "users"
}

