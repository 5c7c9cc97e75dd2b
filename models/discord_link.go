package models

// DiscordLink is a local mirror of the profile service's Discord account links.
// Populated by the sync worker; used as the fallback handle source when the
// registration row has no discord_handle of its own.
type DiscordLink struct {
	ID            string `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	UserID        string `json:"user_id" gorm:"uniqueIndex;not null"` // profile service user id
	DiscordHandle string `json:"discord_handle" gorm:"index;not null"`
	DiscordUserID string `json:"discord_user_id,omitempty"` // numeric snowflake, when known

	Timestamps
}
