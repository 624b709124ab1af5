package user

import "distributor-portal/internal/domain"

// FormLogin represents login form data
type FormLogin struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// FormProfile updates the caller's own profile
type FormProfile struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=255"`
	Password    *string `json:"password" binding:"omitempty,min=8"`
	OldPassword string  `json:"old_password"`
}

// FormInvite invites a user into a distributor company
type FormInvite struct {
	Name      string `json:"name" binding:"required,max=255"`
	Email     string `json:"email" binding:"required,email"`
	Role      string `json:"role" binding:"omitempty,oneof=admin manager user"`
	Password  string `json:"password" binding:"omitempty,min=8"`
	SendEmail bool   `json:"send_email"`
}

// FormMember changes a member's role or status
type FormMember struct {
	Role   *string `json:"role" binding:"omitempty,oneof=admin manager user"`
	Status *string `json:"status" binding:"omitempty,oneof=active pending inactive"`
}

type InviteInput struct {
	DistributorID uint64
	Name          string
	Email         string
	Role          domain.UserRole
	Password      string
	SendEmail     bool
}

type MemberUpdate struct {
	Role   *domain.UserRole
	Status *domain.AccountStatus
}
