package models

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"

	"github.com/quantrack/quantrack/internal/assert"
)

// Account roles
const (
	RoleAdmin     = "admin"
	RoleVolunteer = "volunteer"
)

// Membership statuses
const (
	MembershipPending  = "pending"
	MembershipApproved = "approved"
	MembershipRejected = "rejected"
)

// Participation statuses
const (
	ParticipationRegistered = "registered"
	ParticipationCompleted  = "completed"
)

// BaseModel provides common fields and auto-generated ULID for all models
type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = ulid.Make().String()
	}
	return nil
}

// User is an account. Role decides which profile it owns.
type User struct {
	BaseModel
	Email            string    `json:"email" gorm:"unique;not null"`
	Username         string    `json:"username"`
	PasswordHash     string    `json:"-" gorm:"not null"`
	Role             string    `json:"role" gorm:"not null"`
	EmailVerified    bool      `json:"is_active" gorm:"not null;default:false"`
	VerificationCode string    `json:"-" gorm:"index"`
	UpdatedAt        time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Organization is a team that volunteers join with a join code
type Organization struct {
	ID                  uint      `gorm:"primaryKey"`
	CreatedAt           time.Time `gorm:"autoCreateTime"`
	Name                string    `gorm:"not null"`
	DateOfEstablishment string
	RegistrationNumber  string
	OrganizationType    string
	Website             string
	Description         string
	Address             string
	City                string
	Country             string
	JoinCode            string `gorm:"uniqueIndex;size:10;not null"`

	Admins []AdminProfile `gorm:"foreignKey:OrganizationID"`
}

// BeforeCreate assigns a join code when none was given
func (o *Organization) BeforeCreate(tx *gorm.DB) error {
	if o.JoinCode == "" {
		o.JoinCode = GenerateJoinCode()
	}
	return nil
}

// GenerateJoinCode returns a 10-character uppercase hex code
func GenerateJoinCode() string {
	b := make([]byte, 5)
	_, _ = rand.Read(b)
	code := strings.ToUpper(hex.EncodeToString(b))
	assert.Length(code, 10)
	return code
}

// AdminProfile belongs to an admin user and ties it to one organization
type AdminProfile struct {
	BaseModel
	UserID         string `gorm:"uniqueIndex;not null"`
	OrganizationID uint   `gorm:"index;not null"`
	JobTitle       string
	PhoneNumber    string

	User         User         `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Organization Organization `gorm:"foreignKey:OrganizationID;constraint:OnDelete:CASCADE"`
}

// VolunteerProfile belongs to a volunteer user
type VolunteerProfile struct {
	BaseModel
	UserID               string `gorm:"uniqueIndex;not null"`
	DateOfBirth          string
	SchoolOrOrganization string

	User        User         `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Memberships []Membership `gorm:"foreignKey:VolunteerID"`
}

// Membership links a volunteer to an organization. It starts pending and
// counts once an admin approves it.
type Membership struct {
	ID             uint      `gorm:"primaryKey"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	VolunteerID    string    `gorm:"uniqueIndex:idx_membership;not null"`
	OrganizationID uint      `gorm:"uniqueIndex:idx_membership;not null"`
	Status         string    `gorm:"not null;default:pending"`

	Volunteer    VolunteerProfile `gorm:"foreignKey:VolunteerID;constraint:OnDelete:CASCADE"`
	Organization Organization     `gorm:"foreignKey:OrganizationID;constraint:OnDelete:CASCADE"`
}

// Event is a volunteering event run by an organization
type Event struct {
	ID              uint      `gorm:"primaryKey"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	OrganizationID  uint      `gorm:"index;not null"`
	Name            string    `gorm:"not null"`
	Description     string
	Date            string `gorm:"not null"` // YYYY-MM-DD
	Time            string
	Location        string
	IsPublic        bool    `gorm:"not null"`
	ServiceHours    float64 `gorm:"not null"`
	MaxParticipants *int

	Organization Organization `gorm:"foreignKey:OrganizationID;constraint:OnDelete:CASCADE"`
}

// Participation is a volunteer's sign-up for an event
type Participation struct {
	ID               uint      `gorm:"primaryKey"`
	CreatedAt        time.Time `gorm:"autoCreateTime"`
	EventID          uint      `gorm:"uniqueIndex:idx_participation;not null"`
	VolunteerID      string    `gorm:"uniqueIndex:idx_participation;not null"`
	Status           string    `gorm:"not null;default:registered"`
	HoursCompleted   float64
	DateParticipated string
	CertificateCode  string

	Event     Event            `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE"`
	Volunteer VolunteerProfile `gorm:"foreignKey:VolunteerID;constraint:OnDelete:CASCADE"`
}

// Completed reports whether the participation earned its hours
func (p *Participation) Completed() bool {
	return p.Status == ParticipationCompleted
}

// PasswordReset is a single-use reset token
type PasswordReset struct {
	BaseModel
	UserID    string    `gorm:"index;not null"`
	Token     string    `gorm:"uniqueIndex;not null"`
	ExpiresAt time.Time `gorm:"not null"`
	UsedAt    *time.Time
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	models := []interface{}{
		&User{}, &Organization{}, &AdminProfile{}, &VolunteerProfile{},
		&Membership{}, &Event{}, &Participation{}, &PasswordReset{},
	}

	return db.AutoMigrate(models...)
}

// FindByID safely finds a record by ID
func FindByID[T any](db *gorm.DB, id any, model *T) error {
	return db.Where("id = ?", id).First(model).Error
}

// FindByIDWithPreload finds a record by ID with preloading
func FindByIDWithPreload[T any](db *gorm.DB, id any, model *T, preloads ...string) error {
	query := db
	for _, preload := range preloads {
		query = query.Preload(preload)
	}
	return query.Where("id = ?", id).First(model).Error
}
