package models

import (
	"time"

	"gorm.io/gorm"
)

// ============================================================
// Identity & Catalog Tables
// ============================================================

// User represents users table
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	MemberID  *uint          `gorm:"uniqueIndex" json:"member_id"`
	Username  string         `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email     string         `gorm:"uniqueIndex;size:100;not null" json:"email"`
	Password  string         `gorm:"size:255;not null" json:"-"`
	Role      string         `gorm:"size:20;default:'MEMBER'" json:"role"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Direct grants on top of the role catalog
	DirectPermissions []Permission `gorm:"many2many:user_permissions" json:"-"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) EntityID() uint {
	return u.ID
}

// UserResponse DTO
type UserResponse struct {
	ID        uint      `json:"id"`
	MemberID  *uint     `json:"member_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	FullName  string    `json:"full_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		MemberID:  u.MemberID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

// RefreshToken represents refresh_tokens table
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	TokenHash string     `gorm:"size:255;not null;index" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	RevokedAt *time.Time `gorm:"index" json:"revoked_at"`
	User      User       `gorm:"foreignKey:UserID" json:"-"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}

// Role represents the roles table (catalog, read-mostly)
type Role struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:20;uniqueIndex;not null" json:"name"`
	Description string    `gorm:"size:200" json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Permissions []Permission `gorm:"many2many:role_permissions" json:"permissions,omitempty"`
}

func (Role) TableName() string {
	return "roles"
}

// Permission represents the permissions table (catalog, read-mostly)
type Permission struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Slug        string    `gorm:"size:50;uniqueIndex;not null" json:"slug"`
	Module      string    `gorm:"size:30;not null;index" json:"module"`
	Description string    `gorm:"size:200" json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Permission) TableName() string {
	return "permissions"
}

// ============================================================
// Membership & Loan Tables
// ============================================================

// Member represents the members register
type Member struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	MemberNo   string         `gorm:"size:20;uniqueIndex;not null" json:"member_no"`
	FullName   string         `gorm:"size:100;not null" json:"full_name"`
	Department string         `gorm:"size:100" json:"department"`
	IsActive   bool           `gorm:"default:true" json:"is_active"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Member) TableName() string {
	return "members"
}

func (m *Member) EntityID() uint {
	return m.ID
}

// Loan represents the loans table. Status follows
// PENDING -> ACTIVE -> DEFAULTED | COMPLETED.
type Loan struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	MemberID     uint           `gorm:"not null;index" json:"member_id"`
	Amount       float64        `gorm:"type:decimal(15,2);not null" json:"amount"`
	InterestRate float64        `gorm:"type:decimal(5,2)" json:"interest_rate"`
	Purpose      string         `gorm:"type:text" json:"purpose"`
	Status       string         `gorm:"size:20;not null;default:'PENDING';index" json:"status"`
	CreatedBy    *uint          `json:"created_by"`
	ApprovedBy   *uint          `json:"approved_by"`
	ApprovedAt   *time.Time     `json:"approved_at"`
	CompletedAt  *time.Time     `json:"completed_at"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Member     *Member     `gorm:"foreignKey:MemberID" json:"member,omitempty"`
	Creator    *User       `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	Approver   *User       `gorm:"foreignKey:ApprovedBy" json:"approver,omitempty"`
	Guarantors []Guarantor `gorm:"foreignKey:LoanID" json:"guarantors,omitempty"`
}

func (Loan) TableName() string {
	return "loans"
}

func (l *Loan) EntityID() uint {
	return l.ID
}

// Guarantor links a member to a loan they guaranteed. Rows are never
// deleted; completion of the loan flips IsActive off and stamps the
// end date. Invariant: IsActive == true iff GuaranteeEndDate == nil.
type Guarantor struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	LoanID             uint       `gorm:"not null;index:idx_guarantors_loan_member" json:"loan_id"`
	MemberID           uint       `gorm:"not null;index:idx_guarantors_loan_member;index" json:"member_id"`
	GuaranteedAmount   float64    `gorm:"type:decimal(15,2);not null" json:"guaranteed_amount"`
	IsActive           bool       `gorm:"default:true;index" json:"is_active"`
	GuaranteeStartDate time.Time  `gorm:"not null" json:"guarantee_start_date"`
	GuaranteeEndDate   *time.Time `json:"guarantee_end_date"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"created_at"`

	// Relations
	Loan   *Loan   `gorm:"foreignKey:LoanID" json:"loan,omitempty"`
	Member *Member `gorm:"foreignKey:MemberID" json:"member,omitempty"`
}

func (Guarantor) TableName() string {
	return "guarantors"
}

func (g *Guarantor) EntityID() uint {
	return g.ID
}

// ============================================================
// Audit Trail
// ============================================================

// Audit statuses
const (
	AuditStatusSuccess = "SUCCESS"
	AuditStatusFailed  = "FAILED"
)

// AuditLog is one immutable record of an attempted state-changing
// operation. The application only ever inserts rows; retention is an
// external concern.
type AuditLog struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	RequestID   string    `gorm:"size:36;index" json:"request_id"`
	ActorUserID uint      `gorm:"not null;index" json:"actor_user_id"`
	Action      string    `gorm:"size:60;not null;index" json:"action"`
	EntityType  string    `gorm:"size:50;index:idx_audit_entity" json:"entity_type"`
	EntityID    uint      `gorm:"index:idx_audit_entity" json:"entity_id"`
	OldValues   *string   `gorm:"type:json" json:"old_values"`
	NewValues   *string   `gorm:"type:json" json:"new_values"`
	Status      string    `gorm:"size:10;not null;index" json:"status"`
	IPAddress   string    `gorm:"size:50" json:"ip_address"`
	UserAgent   string    `gorm:"size:255" json:"user_agent"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

// ============================================================
// Auto Migration
// ============================================================

// AutoMigrate runs auto migration for all tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// Identity & catalog
		&User{},
		&RefreshToken{},
		&Role{},
		&Permission{},
		// Membership & loans
		&Member{},
		&Loan{},
		&Guarantor{},
		// Audit trail
		&AuditLog{},
	)
}
