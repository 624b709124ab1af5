package user

import (
	"context"
	"distributor-portal/internal/domain"
	"distributor-portal/internal/errors"
	"distributor-portal/internal/logger"
	"distributor-portal/internal/mail"
	"distributor-portal/internal/utils"
	defError "errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Service defines the interface for user business logic
type Service interface {
	Login(ctx context.Context, email, password string) (*domain.User, error)
	GetUserByID(ctx context.Context, id uint64) (*domain.User, error)
	IncreaseTokenVersion(ctx context.Context, id uint64) error
	UpdateProfile(ctx context.Context, id uint64, form FormProfile) (*domain.User, error)
	Invite(ctx context.Context, actor domain.Principal, in InviteInput) (*InviteResult, error)
	ListCompanyUsers(ctx context.Context, actor domain.Principal, distributorID uint64, p utils.Pagination) (utils.Page[domain.SafeUser], error)
	UpdateMember(ctx context.Context, actor domain.Principal, userID uint64, upd MemberUpdate) (*domain.User, error)
	DeleteMember(ctx context.Context, actor domain.Principal, userID uint64) error
}

type InviteResult struct {
	User      domain.SafeUser `json:"user"`
	EmailSent bool            `json:"email_sent"`
}

// DefaultService implements Service
type DefaultService struct {
	repository UserRepository
	mailer     mail.Mailer
	portalURL  string
}

// NewService creates a new user service
func NewService(repository UserRepository, mailer mail.Mailer, portalURL string) Service {
	return &DefaultService{repository: repository, mailer: mailer, portalURL: portalURL}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HashPassword bcrypt-hashes a plain text password
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Login authenticates a user. A pending user becomes active on first login.
func (s *DefaultService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.repository.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Unauthorized("Invalid email or password", err)
		}
		return nil, errors.Internal(err)
	}

	if user.Status == domain.StatusInactive {
		return nil, errors.Unauthorized("User is not active", nil)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, errors.Unauthorized("Invalid email or password", err)
	}

	now := time.Now().UTC()
	fields := map[string]any{"last_login_at": now}
	if user.Status == domain.StatusPending {
		fields["status"] = domain.StatusActive
		user.Status = domain.StatusActive
	}
	if err := s.repository.Update(ctx, user.ID, fields); err != nil {
		return nil, errors.Internal(err)
	}
	user.LastLoginAt = &now

	return user, nil
}

// GetUserByID gets a user by ID
func (s *DefaultService) GetUserByID(ctx context.Context, id uint64) (*domain.User, error) {
	user, err := s.repository.FindByID(ctx, id)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("User not found", err)
		}
		return nil, errors.Internal(err)
	}
	return user, nil
}

func (s *DefaultService) IncreaseTokenVersion(ctx context.Context, id uint64) error {
	return s.repository.IncrementTokenVersion(ctx, id)
}

func (s *DefaultService) UpdateProfile(ctx context.Context, id uint64, form FormProfile) (*domain.User, error) {
	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if form.Name != nil {
		fields["name"] = strings.TrimSpace(*form.Name)
	}
	if form.Password != nil {
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(form.OldPassword)); err != nil {
			return nil, errors.UnprocessableEntity("Current password is incorrect", err)
		}
		hashed, err := HashPassword(*form.Password)
		if err != nil {
			return nil, errors.Internal(err)
		}
		fields["password_hash"] = hashed
		fields["token_version"] = gorm.Expr("token_version + 1")
	}
	if len(fields) == 0 {
		return user, nil
	}

	if err := s.repository.Update(ctx, id, fields); err != nil {
		return nil, errors.Internal(err)
	}
	return s.GetUserByID(ctx, id)
}

// Invite creates a pending user in the given company. When SendEmail is set
// an invitation mail is sent; a failed mail does not undo the invite.
func (s *DefaultService) Invite(ctx context.Context, actor domain.Principal, in InviteInput) (*InviteResult, error) {
	if !actor.CanManageCompany(in.DistributorID) {
		return nil, errors.Forbidden("You cannot manage users of this company", nil)
	}

	email := normalizeEmail(in.Email)
	if _, err := s.repository.FindByEmail(ctx, email); err == nil {
		return nil, errors.Conflict("A user with this email already exists", nil)
	} else if !defError.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Internal(err)
	}

	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}
	password := in.Password
	generated := password == ""
	if generated {
		password = strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	}
	hashed, err := HashPassword(password)
	if err != nil {
		return nil, errors.Internal(err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		DistributorID: in.DistributorID,
		Name:          strings.TrimSpace(in.Name),
		Email:         email,
		PasswordHash:  hashed,
		Role:          role,
		Status:        domain.StatusPending,
		InvitedAt:     &now,
	}
	if err := s.repository.Create(ctx, user); err != nil {
		switch {
		case defError.Is(err, gorm.ErrDuplicatedKey):
			return nil, errors.Conflict("A user with this email already exists", err)
		case defError.Is(err, gorm.ErrForeignKeyViolated):
			return nil, errors.NotFound("Distributor not found", err)
		}
		return nil, errors.Internal(err)
	}

	result := &InviteResult{User: user.ToSafeUser()}
	if !in.SendEmail {
		return result, nil
	}

	shown := ""
	if generated {
		shown = password
	}
	body, err := renderInvite(user.Name, shown, s.portalURL)
	if err == nil {
		err = s.mailer.Send(ctx, mail.Message{
			To:      user.Email,
			Subject: "You have been invited to the distributor portal",
			HTML:    body,
		})
	}
	if err != nil {
		logger.FromContext(ctx).Warn("invitation email failed",
			zap.Uint64("user_id", user.ID), zap.String("email", user.Email), zap.Error(err))
		return result, nil
	}
	result.EmailSent = true
	return result, nil
}

func (s *DefaultService) ListCompanyUsers(ctx context.Context, actor domain.Principal, distributorID uint64, p utils.Pagination) (utils.Page[domain.SafeUser], error) {
	if !actor.CanAccessTenant(distributorID) {
		return utils.Page[domain.SafeUser]{}, errors.Forbidden("You cannot view users of this company", nil)
	}

	users, total, err := s.repository.ListByDistributor(ctx, distributorID, p)
	if err != nil {
		return utils.Page[domain.SafeUser]{}, errors.Internal(err)
	}
	safe := make([]domain.SafeUser, len(users))
	for i := range users {
		safe[i] = users[i].ToSafeUser()
	}
	return utils.NewPage(safe, total, p), nil
}

// member loads a user the actor is allowed to administer. Admins cannot
// change or remove themselves.
func (s *DefaultService) member(ctx context.Context, actor domain.Principal, userID uint64) (*domain.User, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManageCompany(user.DistributorID) {
		return nil, errors.Forbidden("You cannot manage users of this company", nil)
	}
	if user.ID == actor.UserID {
		return nil, errors.Forbidden("You cannot change your own membership", nil)
	}
	return user, nil
}

func (s *DefaultService) UpdateMember(ctx context.Context, actor domain.Principal, userID uint64, upd MemberUpdate) (*domain.User, error) {
	if _, err := s.member(ctx, actor, userID); err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if upd.Role != nil {
		fields["role"] = *upd.Role
	}
	if upd.Status != nil {
		fields["status"] = *upd.Status
		if *upd.Status == domain.StatusInactive {
			fields["token_version"] = gorm.Expr("token_version + 1")
		}
	}
	if len(fields) > 0 {
		if err := s.repository.Update(ctx, userID, fields); err != nil {
			return nil, errors.Internal(err)
		}
	}
	return s.GetUserByID(ctx, userID)
}

func (s *DefaultService) DeleteMember(ctx context.Context, actor domain.Principal, userID uint64) error {
	if _, err := s.member(ctx, actor, userID); err != nil {
		return err
	}
	if err := s.repository.Delete(ctx, userID); err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return errors.NotFound("User not found", err)
		}
		return errors.Internal(err)
	}
	return nil
}
