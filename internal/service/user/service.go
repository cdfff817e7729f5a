package user

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"incident-workflow/internal/domain"
	"incident-workflow/internal/pkg/logger"
	"incident-workflow/internal/pkg/validation"
	"incident-workflow/internal/repository"
	"incident-workflow/internal/service/auth"
)

type Service interface {
	Create(ctx context.Context, actor string, input domain.CreateUserInput) (*domain.User, error)
	Update(ctx context.Context, actor string, id uuid.UUID, input domain.UpdateUserInput) (*domain.User, error)
	Deactivate(ctx context.Context, actor string, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	List(ctx context.Context, params domain.PaginationParams) (domain.PaginatedResponse[domain.User], error)
	// ListAssignable returns active users able to act as role, sorted by name.
	ListAssignable(ctx context.Context, role domain.UserRole) ([]domain.User, error)
}

type service struct {
	userRepo repository.UserRepository
	log      *logger.Logger
	now      func() time.Time
}

func NewService(userRepo repository.UserRepository, log *logger.Logger) Service {
	return &service{
		userRepo: userRepo,
		log:      log,
		now:      time.Now,
	}
}

func (s *service) Create(ctx context.Context, actor string, input domain.CreateUserInput) (*domain.User, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:           uuid.New(),
		Username:     strings.TrimSpace(input.Username),
		PasswordHash: hash,
		Name:         strings.TrimSpace(input.Name),
		Email:        strings.TrimSpace(input.Email),
		Roles:        dedupeRoles(input.Roles),
		Active:       true,
		CreatedAt:    domain.NewTimestamp(s.now()),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		s.log.Audit(actor, "create_user", user.Username, false, map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	s.log.Audit(actor, "create_user", user.Username, true, map[string]interface{}{"roles": user.Roles})
	return user, nil
}

func (s *service) Update(ctx context.Context, actor string, id uuid.UUID, input domain.UpdateUserInput) (*domain.User, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.NotFoundError("user %s not found", id)
	}

	if input.Name != nil {
		user.Name = strings.TrimSpace(*input.Name)
	}
	if input.Email != nil {
		user.Email = strings.TrimSpace(*input.Email)
	}
	if input.Roles != nil {
		user.Roles = dedupeRoles(*input.Roles)
	}
	if input.Active != nil {
		user.Active = *input.Active
	}
	if input.Password != nil {
		hash, err := auth.HashPassword(*input.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.log.Audit(actor, "update_user", user.Username, true, nil)
	return user, nil
}

func (s *service) Deactivate(ctx context.Context, actor string, id uuid.UUID) error {
	inactive := false
	_, err := s.Update(ctx, actor, id, domain.UpdateUserInput{Active: &inactive})
	return err
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.NotFoundError("user %s not found", id)
	}
	return user, nil
}

func (s *service) List(ctx context.Context, params domain.PaginationParams) (domain.PaginatedResponse[domain.User], error) {
	params.Validate()

	users, err := s.userRepo.List(ctx)
	if err != nil {
		return domain.PaginatedResponse[domain.User]{}, err
	}

	page := domain.Paginate(users, params)
	return domain.NewPaginatedResponse(page, params.Page, params.PerPage, int64(len(users))), nil
}

func (s *service) ListAssignable(ctx context.Context, role domain.UserRole) ([]domain.User, error) {
	if !role.IsValid() {
		return nil, domain.ValidationError("unknown role %q", role)
	}

	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.User, 0, len(users))
	for i := range users {
		if users[i].Active && users[i].HasRole(role) {
			out = append(out, users[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func dedupeRoles(roles []domain.UserRole) []domain.UserRole {
	seen := make(map[domain.UserRole]bool, len(roles))
	out := make([]domain.UserRole, 0, len(roles))
	for _, r := range roles {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}
