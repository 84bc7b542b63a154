package models

import (
	"errors"
	"time"
)

// Role is the single role attached to a user account. The hierarchy is
// super_admin > franchise_admin > gym_manager; higher roles reach the routes
// of lower ones but resource scoping still applies.
type Role string

const (
	RoleSuperAdmin     Role = "super_admin"
	RoleFranchiseAdmin Role = "franchise_admin"
	RoleGymManager     Role = "gym_manager"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleFranchiseAdmin, RoleGymManager:
		return true
	}
	return false
}

func (r Role) level() int {
	switch r {
	case RoleSuperAdmin:
		return 3
	case RoleFranchiseAdmin:
		return 2
	case RoleGymManager:
		return 1
	}
	return 0
}

// AtLeast reports whether r sits at or above min in the role hierarchy.
func (r Role) AtLeast(min Role) bool {
	return r.level() >= min.level()
}

type User struct {
	ID           string      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email        string      `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string      `gorm:"not null" json:"-"`
	Role         Role        `gorm:"size:32;not null;default:gym_manager" json:"role"`
	Franchises   []Franchise `gorm:"many2many:user_franchises" json:"franchises,omitempty"`
	Gyms         []Gym       `gorm:"many2many:user_gyms" json:"gyms,omitempty"`
	IsActive     bool        `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

type Franchise struct {
	ID           string    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name         string    `gorm:"not null" json:"name"`
	ContactEmail string    `json:"contact_email"`
	ContactPhone string    `json:"contact_phone"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Gym struct {
	ID               string    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	FranchiseID      string    `gorm:"type:uuid;index;not null" json:"franchise_id"`
	Name             string    `gorm:"not null" json:"name"`
	Location         string    `json:"location"`
	KioskSlug        string    `gorm:"uniqueIndex;size:32" json:"kiosk_slug"`
	ProvisioningCode string    `gorm:"size:6" json:"provisioning_code"`
	Status           string    `gorm:"not null;default:active" json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationExpired  InvitationStatus = "expired"
)

var (
	ErrInvitationAccepted = errors.New("invitation already accepted")
	ErrInvitationExpired  = errors.New("invitation expired")
)

type Invitation struct {
	ID          string           `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email       string           `gorm:"not null;index" json:"email"`
	Role        Role             `gorm:"size:32;not null" json:"role"`
	FranchiseID *string          `gorm:"type:uuid" json:"franchise_id,omitempty"`
	GymID       *string          `gorm:"type:uuid" json:"gym_id,omitempty"`
	Token       string           `gorm:"uniqueIndex;size:64;not null" json:"-"`
	Status      InvitationStatus `gorm:"size:16;not null;default:pending" json:"status"`
	ExpiresAt   time.Time        `gorm:"not null" json:"expires_at"`
	AcceptedAt  *time.Time       `json:"accepted_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// Accept transitions pending -> accepted exactly once. A repeated accept and
// an accept past expiry both fail without mutating the invitation.
func (i *Invitation) Accept(now time.Time) error {
	switch {
	case i.Status == InvitationAccepted:
		return ErrInvitationAccepted
	case i.Status == InvitationExpired || now.After(i.ExpiresAt):
		return ErrInvitationExpired
	}
	i.Status = InvitationAccepted
	i.AcceptedAt = &now
	return nil
}

type VoiceSession struct {
	ID        string     `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	GymID     *string    `gorm:"type:uuid;index" json:"gym_id,omitempty"`
	MemberID  *string    `json:"member_id,omitempty"`
	ClientIP  string     `gorm:"size:64" json:"client_ip,omitempty"`
	Source    string     `gorm:"size:16;not null;default:kiosk" json:"source"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

type ConversationMessage struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID string    `gorm:"type:uuid;index;not null" json:"session_id"`
	Speaker   string    `gorm:"size:16;not null" json:"speaker"`
	Text      string    `gorm:"not null" json:"text"`
	Metadata  JSONB     `gorm:"type:jsonb;default:'{}'::jsonb" json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DemoLead is an email captured from the public voice demo.
type DemoLead struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Email     string    `gorm:"not null" json:"email"`
	ClientIP  string    `gorm:"size:64" json:"client_ip,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RateLimitRecord mirrors the limiter's Redis counters into a durable row so
// demo usage survives counter expiry and stays queryable by admins.
type RateLimitRecord struct {
	IP                string    `gorm:"primaryKey;size:64" json:"ip"`
	SessionCount      int64     `gorm:"not null;default:0" json:"session_count"`
	DailySessionCount int64     `gorm:"not null;default:0" json:"daily_session_count"`
	Blocked           bool      `gorm:"not null;default:false" json:"blocked"`
	FirstSessionAt    time.Time `json:"first_session_at"`
	LastSessionAt     time.Time `json:"last_session_at"`
}

type AuditLog struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    *string   `gorm:"type:uuid" json:"user_id,omitempty"`
	Action    string    `gorm:"not null" json:"action"`
	Metadata  JSONB     `gorm:"type:jsonb;default:'{}'::jsonb" json:"metadata"`
	CreatedAt time.Time `json:"created_at"`
}

type Session struct {
	JTI       string     `gorm:"primaryKey;size:64" json:"jti"`
	UserID    string     `gorm:"type:uuid;index;not null" json:"user_id"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
