package domain

import "time"

// Role codes shipped as static reference data.
const (
	RoleOwner  = "owner"
	RoleViewer = "viewer"
	RoleAdmin  = "admin"
)

// Role is immutable reference data describing what an account may do.
type Role struct {
	ID          int32
	Code        string
	DisplayName string
}

// User mirrors the persisted representation in the users table.
type User struct {
	ID                string
	Email             string
	PasswordHash      string
	RoleCode          *string
	IsActive          bool
	IsStaff           bool
	IsSuperuser       bool
	VerifiedEmail     bool
	VerifiedPhone     bool
	PasswordChangedAt *time.Time
	CreatedAt         time.Time
}

// RoleOrEmpty returns the assigned role code or "" when none is set.
func (u User) RoleOrEmpty() string {
	if u.RoleCode == nil {
		return ""
	}
	return *u.RoleCode
}

// Profile holds publisher-facing contact data, 1:1 with User.
type Profile struct {
	UserID      string
	DisplayName string
	Surname     string
	Phone       string
	AltPhone    string
	AvatarRef   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProfilePatch carries a partial profile update; nil fields are left untouched.
type ProfilePatch struct {
	DisplayName *string
	Surname     *string
	Phone       *string
	AltPhone    *string
}

// Apply copies the non-nil patch fields onto the profile.
func (p *Profile) Apply(patch ProfilePatch, at time.Time) {
	if patch.DisplayName != nil {
		p.DisplayName = *patch.DisplayName
	}
	if patch.Surname != nil {
		p.Surname = *patch.Surname
	}
	if patch.Phone != nil {
		p.Phone = *patch.Phone
	}
	if patch.AltPhone != nil {
		p.AltPhone = *patch.AltPhone
	}
	p.UpdatedAt = at
}
