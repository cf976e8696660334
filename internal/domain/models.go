// Package domain defines the persistence models for profiles, likes, matches,
// conversations, messages and events. These types are mapped with GORM and
// form the core data layer of the matching backend.
package domain

import (
	"time"
)

// Profile is the user-facing identity. Its ID is shared with the Account that
// owns it and is treated as an opaque string everywhere.
//
// Fields:
//   - ID: opaque user id (varchar(64)), equal to the owning account id.
//   - DisplayName, Age, Gender, Bio: public profile data.
//   - PreferencesGender: genders the user wants to be shown (ordered).
//   - Interests / PhotoURLs: ordered lists stored as JSON text.
//   - Lat / Lng / Geohash: optional geolocation; Geohash is derived on write.
//   - LastActiveAt: used by discovery to hide dormant users.
type Profile struct {
	ID                string     `json:"id"                           gorm:"type:varchar(64);primaryKey"`
	DisplayName       string     `json:"display_name,omitempty"       gorm:"type:varchar(120);not null;default:''"`
	Age               int        `json:"age,omitempty"                gorm:"not null;default:0;index:idx_profiles_age"`
	Gender            string     `json:"gender,omitempty"             gorm:"type:varchar(32);index:idx_profiles_gender"`
	PreferencesGender []string   `json:"preferences_gender,omitempty" gorm:"column:preferences_gender;type:text;serializer:json"`
	Bio               string     `json:"bio,omitempty"                gorm:"type:text"`
	Interests         []string   `json:"interests,omitempty"          gorm:"type:text;serializer:json"`
	PhotoURLs         []string   `json:"photo_urls,omitempty"         gorm:"column:photo_urls;type:text;serializer:json"`
	Lat               *float64   `json:"lat,omitempty"`
	Lng               *float64   `json:"lng,omitempty"`
	Geohash           string     `json:"geohash,omitempty"            gorm:"type:varchar(12);index:idx_profiles_geohash"`
	LocationName      string     `json:"location_name,omitempty"      gorm:"type:varchar(255)"`
	LastActiveAt      *time.Time `json:"last_active_at,omitempty"     gorm:"index:idx_profiles_active"`
	CreatedAt         time.Time  `json:"created_at,omitzero"`
	UpdatedAt         time.Time  `json:"updated_at,omitzero"`
}

// TableName returns the database table name for Profile.
func (Profile) TableName() string { return "profiles" }

// ProfileSummary is the compact projection of a profile embedded in chat
// payloads (message senders, conversation participants).
type ProfileSummary struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"display_name"`
	PhotoURLs   []string `json:"photo_urls"`
}

// Summary projects p into a ProfileSummary.
func (p Profile) Summary() ProfileSummary {
	urls := p.PhotoURLs
	if urls == nil {
		urls = []string{}
	}
	return ProfileSummary{ID: p.ID, DisplayName: p.DisplayName, PhotoURLs: urls}
}

// Like is a directed "A likes B" edge. The (from_user_id, to_user_id) pair is
// unique; a second insert for the same pair fails with a duplicate-key error.
type Like struct {
	ID         string    `json:"id"           gorm:"type:char(36);primaryKey"`
	FromUserID string    `json:"from_user_id" gorm:"type:varchar(64);not null;uniqueIndex:ux_likes_pair,priority:1"`
	ToUserID   string    `json:"to_user_id"   gorm:"type:varchar(64);not null;uniqueIndex:ux_likes_pair,priority:2;index:idx_likes_to"`
	CreatedAt  time.Time `json:"created_at"`

	From Profile `json:"-" gorm:"foreignKey:FromUserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	To   Profile `json:"-" gorm:"foreignKey:ToUserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Like.
func (Like) TableName() string { return "likes" }

// Match is the undirected pairing of two users that liked each other. Rows
// are written in canonical order (UserAID < UserBID) and the pair is unique.
//
// UserA / UserB are only populated on read paths that resolve profiles.
type Match struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	UserAID   string    `json:"user_a_id"  gorm:"column:user_a_id;type:varchar(64);not null;uniqueIndex:ux_matches_pair,priority:1"`
	UserBID   string    `json:"user_b_id"  gorm:"column:user_b_id;type:varchar(64);not null;uniqueIndex:ux_matches_pair,priority:2;index:idx_matches_user_b"`
	CreatedAt time.Time `json:"created_at"`

	UserA *Profile `json:"user_a,omitempty" gorm:"foreignKey:UserAID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	UserB *Profile `json:"user_b,omitempty" gorm:"foreignKey:UserBID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Match.
func (Match) TableName() string { return "matches" }

// Involves reports whether userID is one side of the match.
func (m Match) Involves(userID string) bool {
	return userID != "" && (m.UserAID == userID || m.UserBID == userID)
}

// Other returns the counterpart of userID in the match.
func (m Match) Other(userID string) string {
	if m.UserAID == userID {
		return m.UserBID
	}
	return m.UserAID
}

// Conversation is the chat channel provisioned for a Match (one-to-one).
type Conversation struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	MatchID   string    `json:"match_id"   gorm:"type:char(36);not null;uniqueIndex:ux_conversations_match"`
	CreatedAt time.Time `json:"created_at"`

	Match *Match `json:"match,omitempty" gorm:"foreignKey:MatchID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Conversation.
func (Conversation) TableName() string { return "conversations" }

// Message is a single append-only chat line inside a Conversation.
//
// SenderID is intentionally not a foreign key: a message outlives its
// sender's profile and is then rendered with an "Unknown" sender summary.
type Message struct {
	ID             string    `json:"id"              gorm:"type:char(36);primaryKey"`
	ConversationID string    `json:"conversation_id" gorm:"type:char(36);not null;index:idx_conv_msgs,priority:1"`
	SenderID       string    `json:"sender_id"       gorm:"type:varchar(64);not null;index"`
	Text           string    `json:"text"            gorm:"type:text;not null"`
	CreatedAt      time.Time `json:"created_at"      gorm:"index:idx_conv_msgs,priority:2"`

	Sender *ProfileSummary `json:"sender,omitempty" gorm:"-"`

	Conversation Conversation `json:"-" gorm:"foreignKey:ConversationID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// Event is a curated in-person event (speed dating, mixers, classes).
type Event struct {
	ID              string    `json:"id"               gorm:"type:char(36);primaryKey"`
	Title           string    `json:"title"            gorm:"type:varchar(255);not null"`
	Category        string    `json:"category"         gorm:"type:varchar(64);index"`
	Description     string    `json:"description"      gorm:"type:text"`
	Lat             *float64  `json:"lat,omitempty"`
	Lng             *float64  `json:"lng,omitempty"`
	LocationName    string    `json:"location_name"    gorm:"type:varchar(255)"`
	StartsAt        time.Time `json:"starts_at"        gorm:"not null;index"`
	MaxParticipants int       `json:"max_participants" gorm:"not null;default:0"`
	ImageURL        string    `json:"image_url,omitempty" gorm:"column:image_url;type:varchar(512)"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName returns the database table name for Event.
func (Event) TableName() string { return "events" }

// Account holds login credentials. Its ID doubles as the profile id.
type Account struct {
	ID           string    `json:"id"         gorm:"type:varchar(64);primaryKey"`
	Email        string    `json:"email"      gorm:"type:varchar(320);not null;uniqueIndex:ux_accounts_email"`
	PasswordHash string    `json:"-"          gorm:"type:varchar(100);not null"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName returns the database table name for Account.
func (Account) TableName() string { return "accounts" }
