package models

import "time"

// User represents a registered account together with the hobby tags and
// uploaded files it owns. Children are owned one-directionally: they carry
// the UserID foreign key but never a back-reference.
type User struct {
	ID            string       `json:"id" gorm:"primaryKey;type:varchar(36)"`
	FirstName     string       `json:"first_name" gorm:"type:varchar(50);not null"`
	LastName      string       `json:"last_name" gorm:"type:varchar(50);not null"`
	Email         string       `json:"email" gorm:"uniqueIndex;type:varchar(255);not null"`
	ContactNumber string       `json:"contact_number" gorm:"type:varchar(20);not null"`
	Postcode      string       `json:"postcode" gorm:"type:varchar(10);not null"`
	PasswordHash  string       `json:"-" gorm:"type:varchar(255);not null"` // Never serialized for security
	Gender        string       `json:"gender" gorm:"type:varchar(20);not null"`
	Address       string       `json:"address" gorm:"type:varchar(255);not null"`
	City          string       `json:"city" gorm:"type:varchar(100);not null"`
	State         string       `json:"state" gorm:"type:varchar(100);not null"`
	Hobbies       []Hobby      `json:"hobbies" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Files         []FileUpload `json:"files" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// Hobby is a name tag scoped to one owning user. Hobbies are never edited
// individually; an update replaces the user's whole set.
type Hobby struct {
	ID     uint   `json:"id" gorm:"primaryKey"`
	Name   string `json:"name" gorm:"type:varchar(100);not null"`
	UserID string `json:"user_id" gorm:"type:varchar(36);index;not null"`
}

// FileUpload records the original name of an uploaded file and the path the
// file stash stored it under.
type FileUpload struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	FileName string `json:"file_name" gorm:"type:varchar(255);not null"`
	FilePath string `json:"-" gorm:"type:varchar(512);not null"` // Stored location, never exposed
	UserID   string `json:"user_id" gorm:"type:varchar(36);index;not null"`
}
