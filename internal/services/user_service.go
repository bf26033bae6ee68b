package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/reviewloop/review-service/internal/auth"
	"github.com/reviewloop/review-service/internal/events"
	"github.com/reviewloop/review-service/internal/models"
	"github.com/reviewloop/review-service/internal/repositories"
	"github.com/reviewloop/review-service/internal/validator"
)

// maxManagerChainDepth bounds the walk up the reporting tree during cycle
// checks. Real orgs are nowhere near this deep.
const maxManagerChainDepth = 100

type userService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewUserService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) UserService {
	return &userService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

// ===== CORE CRUD OPERATIONS =====

func (s *userService) Create(ctx context.Context, req *CreateUserRequest, creatorID string) (*UserResponse, error) {
	s.logger.Info("Creating user", "creator_id", creatorID, "email", req.Email)

	// Validate request
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	creatorRole, err := s.getUserRole(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	if creatorRole != models.RoleAdmin {
		return nil, NewPermissionError(creatorID, req.Email, "user", "create", "only admins can create users")
	}

	// Check email uniqueness
	exists, err := s.repo.User().ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email uniqueness: %w", err)
	}
	if exists {
		return nil, ErrEmailTaken
	}

	if req.ManagerID != nil {
		if err := s.validateManager(ctx, *req.ManagerID); err != nil {
			return nil, err
		}
	}
	if req.TeamID != nil {
		if err := s.validateTeam(ctx, *req.TeamID); err != nil {
			return nil, err
		}
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New().String(),
		FullName:     req.FullName,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
		ManagerID:    req.ManagerID,
		TeamID:       req.TeamID,
		Position:     req.Position,
		JiraUsername: req.JiraUsername,
		Active:       true,
	}

	if err := s.repo.User().Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.publishUserEvent(ctx, events.EventUserCreated, events.UserCreatedEvent{
		UserID:    user.ID,
		Email:     user.Email,
		FullName:  user.FullName,
		Role:      user.Role,
		CreatedBy: creatorID,
	})

	s.logger.Info("User created successfully", "user_id", user.ID)

	return s.buildUserResponse(ctx, user, creatorID), nil
}

func (s *userService) GetByID(ctx context.Context, id string, requesterID string) (*UserResponse, error) {
	user, err := s.repo.User().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return s.buildUserResponse(ctx, user, requesterID), nil
}

func (s *userService) Update(ctx context.Context, id string, req *UpdateUserRequest, requesterID string) (*UserResponse, error) {
	s.logger.Info("Updating user", "user_id", id, "requester_id", requesterID)

	// Validate request
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	// Check edit permission
	canEdit, err := s.CanEdit(ctx, id, requesterID)
	if err != nil {
		return nil, err
	}
	if !canEdit {
		return nil, NewPermissionError(requesterID, id, "user", "update", "not the user or an admin")
	}

	user, err := s.repo.User().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	// Check email uniqueness if email is being updated
	if req.Email != nil && *req.Email != user.Email {
		exists, err := s.repo.User().ExistsByEmail(ctx, *req.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to check email uniqueness: %w", err)
		}
		if exists {
			return nil, ErrEmailTaken
		}
	}

	// Team placement is an org concern, not a profile field.
	if req.TeamID != nil && (user.TeamID == nil || *req.TeamID != *user.TeamID) {
		requesterRole, err := s.getUserRole(ctx, requesterID)
		if err != nil {
			return nil, err
		}
		if requesterRole != models.RoleAdmin {
			return nil, NewPermissionError(requesterID, id, "user", "update", "only admins can move users between teams")
		}
		if err := s.validateTeam(ctx, *req.TeamID); err != nil {
			return nil, err
		}
	}

	s.applyUserUpdates(user, req)

	if err := s.repo.User().Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	s.logger.Info("User updated successfully", "user_id", id)

	return s.buildUserResponse(ctx, user, requesterID), nil
}

func (s *userService) Deactivate(ctx context.Context, id string, requesterID string) error {
	s.logger.Info("Deactivating user", "user_id", id, "requester_id", requesterID)

	requesterRole, err := s.getUserRole(ctx, requesterID)
	if err != nil {
		return err
	}
	if requesterRole != models.RoleAdmin {
		return NewPermissionError(requesterID, id, "user", "deactivate", "only admins can deactivate users")
	}
	if id == requesterID {
		return NewPermissionError(requesterID, id, "user", "deactivate", "cannot deactivate own account")
	}

	user, err := s.repo.User().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	if !user.Active {
		return nil
	}

	user.Active = false
	if err := s.repo.User().Update(ctx, user); err != nil {
		return fmt.Errorf("failed to deactivate user: %w", err)
	}

	// Kill live sessions so access ends now, not at the next expiry.
	deleted, err := s.repo.Session().DeleteByUser(ctx, id)
	if err != nil {
		s.logger.Error("Failed to delete sessions of deactivated user", "user_id", id, "error", err)
	} else if deleted > 0 {
		s.logger.Info("Deleted sessions of deactivated user", "user_id", id, "count", deleted)
	}

	s.publishUserEvent(ctx, events.EventUserDeactivated, events.UserDeactivatedEvent{
		UserID:        id,
		DeactivatedBy: requesterID,
	})

	s.logger.Info("User deactivated successfully", "user_id", id)
	return nil
}

// ===== LIST AND SEARCH OPERATIONS =====

func (s *userService) List(ctx context.Context, filters repositories.UserFilters, requesterID string) (*UserListResponse, error) {
	requesterRole, err := s.getUserRole(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	// Non-admins only see active accounts.
	if requesterRole != models.RoleAdmin {
		active := true
		filters.Active = &active
	}

	users, total, err := s.repo.User().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	// Build response
	response := &UserListResponse{
		Users: make([]*UserResponse, len(users)),
		Total: total,
		Page:  (filters.Offset / max(filters.Limit, 1)) + 1,
		Size:  filters.Limit,
	}

	for i, user := range users {
		response.Users[i] = s.buildUserResponse(ctx, user, requesterID)
	}

	return response, nil
}

func (s *userService) GetDirectReports(ctx context.Context, managerID string, requesterID string) ([]*UserResponse, error) {
	if requesterID != managerID {
		requesterRole, err := s.getUserRole(ctx, requesterID)
		if err != nil {
			return nil, err
		}
		if requesterRole != models.RoleAdmin {
			return nil, NewPermissionError(requesterID, managerID, "user", "list_reports", "not the manager or an admin")
		}
	}

	reports, err := s.repo.User().GetDirectReports(ctx, managerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get direct reports: %w", err)
	}

	responses := make([]*UserResponse, len(reports))
	for i, user := range reports {
		responses[i] = s.buildUserResponse(ctx, user, requesterID)
	}

	return responses, nil
}

// ===== ROLE AND REPORTING TREE MANAGEMENT =====

func (s *userService) ChangeRole(ctx context.Context, id string, req *ChangeRoleRequest, requesterID string) (*UserResponse, error) {
	s.logger.Info("Changing user role", "user_id", id, "new_role", req.Role, "requester_id", requesterID)

	// Validate request
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	requesterRole, err := s.getUserRole(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if requesterRole != models.RoleAdmin {
		return nil, NewPermissionError(requesterID, id, "user", "change_role", "only admins can change roles")
	}
	if id == requesterID {
		return nil, NewPermissionError(requesterID, id, "user", "change_role", "cannot change own role")
	}

	user, err := s.repo.User().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if user.Role == req.Role {
		return s.buildUserResponse(ctx, user, requesterID), nil
	}

	oldRole := user.Role
	user.Role = req.Role
	if err := s.repo.User().Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user role: %w", err)
	}

	s.publishUserEvent(ctx, events.EventUserRoleChanged, events.UserRoleChangedEvent{
		UserID:    id,
		OldRole:   oldRole,
		NewRole:   req.Role,
		ChangedBy: requesterID,
	})

	s.logger.Info("User role changed successfully", "user_id", id, "old_role", oldRole, "new_role", req.Role)

	return s.buildUserResponse(ctx, user, requesterID), nil
}

func (s *userService) AssignManager(ctx context.Context, id string, req *AssignManagerRequest, requesterID string) (*UserResponse, error) {
	s.logger.Info("Assigning manager", "user_id", id, "requester_id", requesterID)

	// Validate request
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	requesterRole, err := s.getUserRole(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if requesterRole != models.RoleAdmin {
		return nil, NewPermissionError(requesterID, id, "user", "assign_manager", "only admins can assign managers")
	}

	user, err := s.repo.User().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if req.ManagerID == nil {
		user.ManagerID = nil
	} else {
		managerID := *req.ManagerID
		if managerID == id {
			return nil, ErrManagerCycle
		}
		if err := s.validateManager(ctx, managerID); err != nil {
			return nil, err
		}

		cycle, err := s.wouldCreateCycle(ctx, id, managerID)
		if err != nil {
			return nil, err
		}
		if cycle {
			return nil, ErrManagerCycle
		}

		user.ManagerID = &managerID
	}

	// Drop the stale preload so the save and response reflect the new parent.
	user.Manager = nil

	if err := s.repo.User().Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user manager: %w", err)
	}

	s.logger.Info("Manager assigned successfully", "user_id", id)

	return s.buildUserResponse(ctx, user, requesterID), nil
}

// ===== PERMISSION CHECKS =====

func (s *userService) CanEdit(ctx context.Context, targetID, requesterID string) (bool, error) {
	if targetID == requesterID {
		return true, nil
	}

	role, err := s.getUserRole(ctx, requesterID)
	if err != nil {
		return false, err
	}

	return role == models.RoleAdmin, nil
}

// ===== HELPER METHODS =====

func (s *userService) getUserRole(ctx context.Context, userID string) (models.UserRole, error) {
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("failed to get user role: %w", err)
	}

	return user.Role, nil
}

func (s *userService) validateManager(ctx context.Context, managerID string) error {
	manager, err := s.repo.User().GetByID(ctx, managerID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return NewValidationError("manager_id", "manager not found", managerID)
		}
		return fmt.Errorf("failed to get manager: %w", err)
	}
	if !manager.Active {
		return NewValidationError("manager_id", "manager is deactivated", managerID)
	}

	return nil
}

func (s *userService) validateTeam(ctx context.Context, teamID uint) error {
	if _, err := s.repo.Team().GetByID(ctx, teamID); err != nil {
		if repositories.IsNotFoundError(err) {
			return NewValidationError("team_id", "team not found", teamID)
		}
		return fmt.Errorf("failed to get team: %w", err)
	}

	return nil
}

// wouldCreateCycle walks up from the proposed manager. Reaching the user
// being re-parented, or any already-seen node, means the assignment would
// close a loop in the reporting tree.
func (s *userService) wouldCreateCycle(ctx context.Context, userID, managerID string) (bool, error) {
	visited := map[string]bool{userID: true}
	current := managerID

	for depth := 0; depth < maxManagerChainDepth; depth++ {
		if visited[current] {
			return true, nil
		}
		visited[current] = true

		node, err := s.repo.User().GetByID(ctx, current)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				// Dangling manager reference; the chain ends here.
				return false, nil
			}
			return false, fmt.Errorf("failed to walk manager chain: %w", err)
		}
		if node.ManagerID == nil {
			return false, nil
		}
		current = *node.ManagerID
	}

	return true, nil
}

func (s *userService) applyUserUpdates(user *models.User, req *UpdateUserRequest) {
	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.TeamID != nil {
		user.TeamID = req.TeamID
		user.Team = nil
	}
	if req.Position != nil {
		user.Position = req.Position
	}
	if req.AvatarURL != nil {
		user.AvatarURL = req.AvatarURL
	}
	if req.JiraUsername != nil {
		user.JiraUsername = req.JiraUsername
	}
}

func (s *userService) buildUserResponse(ctx context.Context, user *models.User, requesterID string) *UserResponse {
	requesterRole, _ := s.getUserRole(ctx, requesterID)

	canEdit := user.ID == requesterID || requesterRole == models.RoleAdmin
	canManage := requesterRole == models.RoleAdmin ||
		(user.ManagerID != nil && *user.ManagerID == requesterID)

	return &UserResponse{
		User:      user,
		CanEdit:   canEdit,
		CanManage: canManage,
	}
}

func (s *userService) publishUserEvent(ctx context.Context, eventType string, data interface{}) {
	if err := s.publisher.Publish(ctx, eventType, data); err != nil {
		s.logger.Error("Failed to publish user event", "event_type", eventType, "error", err)
	}
}
