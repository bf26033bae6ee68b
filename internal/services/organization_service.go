package services

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/reviewloop/review-service/internal/models"
	"github.com/reviewloop/review-service/internal/repositories"
	"github.com/reviewloop/review-service/internal/validator"
)

// ===== TEAM SERVICE =====

type teamService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
}

func NewTeamService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator) TeamService {
	return &teamService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
	}
}

func (s *teamService) Create(ctx context.Context, req *CreateTeamRequest, creatorID string) (*TeamResponse, error) {
	s.logger.Info("Creating team", "creator_id", creatorID, "name", req.Name)

	// Validate request
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if err := s.requireAdmin(ctx, creatorID, req.Name, "create"); err != nil {
		return nil, err
	}

	// Business unit must exist
	if _, err := s.repo.BusinessUnit().GetByID(ctx, req.BusinessUnitID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, NewValidationError("business_unit_id", "business unit not found", req.BusinessUnitID)
		}
		return nil, fmt.Errorf("failed to get business unit: %w", err)
	}

	if req.LeadID != nil {
		if err := s.validateLead(ctx, *req.LeadID); err != nil {
			return nil, err
		}
	}

	// Check name uniqueness within the business unit
	exists, err := s.repo.Team().ExistsByName(ctx, req.BusinessUnitID, req.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to check team name uniqueness: %w", err)
	}
	if exists {
		return nil, ErrTeamNameTaken
	}

	team := &models.Team{
		Name:           req.Name,
		Description:    req.Description,
		BusinessUnitID: req.BusinessUnitID,
		LeadID:         req.LeadID,
	}

	if err := s.repo.Team().Create(ctx, team); err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}

	s.logger.Info("Team created successfully", "team_id", team.ID)

	return &TeamResponse{Team: team}, nil
}

func (s *teamService) GetByID(ctx context.Context, id uint, withMembers bool) (*TeamResponse, error) {
	if withMembers {
		team, members, err := s.repo.Team().GetByIDWithMembers(ctx, id)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, ErrTeamNotFound
			}
			return nil, fmt.Errorf("failed to get team with members: %w", err)
		}
		team.MemberCount = len(members)

		return &TeamResponse{Team: team, Members: members}, nil
	}

	team, err := s.repo.Team().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team: %w", err)
	}

	count, err := s.repo.Team().MemberCount(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to count team members: %w", err)
	}
	team.MemberCount = int(count)

	return &TeamResponse{Team: team}, nil
}

func (s *teamService) Update(ctx context.Context, id uint, req *UpdateTeamRequest, requesterID string) (*TeamResponse, error) {
	s.logger.Info("Updating team", "team_id", id, "requester_id", requesterID)

	// Validate request
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if err := s.requireAdmin(ctx, requesterID, id, "update"); err != nil {
		return nil, err
	}

	team, err := s.repo.Team().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team: %w", err)
	}

	// Moving business units revalidates the target
	targetUnitID := team.BusinessUnitID
	if req.BusinessUnitID != nil && *req.BusinessUnitID != team.BusinessUnitID {
		if _, err := s.repo.BusinessUnit().GetByID(ctx, *req.BusinessUnitID); err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, NewValidationError("business_unit_id", "business unit not found", *req.BusinessUnitID)
			}
			return nil, fmt.Errorf("failed to get business unit: %w", err)
		}
		targetUnitID = *req.BusinessUnitID
	}

	// Check name uniqueness if name or unit is changing
	if (req.Name != nil && *req.Name != team.Name) || targetUnitID != team.BusinessUnitID {
		name := team.Name
		if req.Name != nil {
			name = *req.Name
		}
		exists, err := s.repo.Team().ExistsByName(ctx, targetUnitID, name)
		if err != nil {
			return nil, fmt.Errorf("failed to check team name uniqueness: %w", err)
		}
		if exists {
			return nil, ErrTeamNameTaken
		}
	}

	if req.LeadID != nil {
		if err := s.validateLead(ctx, *req.LeadID); err != nil {
			return nil, err
		}
	}

	// Apply updates
	if req.Name != nil {
		team.Name = *req.Name
	}
	if req.Description != nil {
		team.Description = req.Description
	}
	if req.BusinessUnitID != nil {
		team.BusinessUnitID = *req.BusinessUnitID
		team.BusinessUnit = nil
	}
	if req.LeadID != nil {
		team.LeadID = req.LeadID
		team.Lead = nil
	}

	if err := s.repo.Team().Update(ctx, team); err != nil {
		return nil, fmt.Errorf("failed to update team: %w", err)
	}

	s.logger.Info("Team updated successfully", "team_id", id)

	return &TeamResponse{Team: team}, nil
}

func (s *teamService) Delete(ctx context.Context, id uint, requesterID string) error {
	s.logger.Info("Deleting team", "team_id", id, "requester_id", requesterID)

	if err := s.requireAdmin(ctx, requesterID, id, "delete"); err != nil {
		return err
	}

	count, err := s.repo.Team().MemberCount(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count team members: %w", err)
	}
	if count > 0 {
		return ErrTeamNotEmpty
	}

	if err := s.repo.Team().Delete(ctx, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrTeamNotFound
		}
		return fmt.Errorf("failed to delete team: %w", err)
	}

	s.logger.Info("Team deleted successfully", "team_id", id)
	return nil
}

func (s *teamService) List(ctx context.Context, filters repositories.TeamFilters) (*TeamListResponse, error) {
	teams, total, err := s.repo.Team().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}

	// Build response
	response := &TeamListResponse{
		Teams: make([]*TeamResponse, len(teams)),
		Total: total,
		Page:  (filters.Offset / max(filters.Limit, 1)) + 1,
		Size:  filters.Limit,
	}

	for i, team := range teams {
		response.Teams[i] = &TeamResponse{Team: team}
	}

	return response, nil
}

// ===== TEAM MEMBERSHIP =====

func (s *teamService) AssignMember(ctx context.Context, teamID uint, userID string, requesterID string) error {
	s.logger.Info("Assigning team member", "team_id", teamID, "user_id", userID, "requester_id", requesterID)

	if err := s.requireAdmin(ctx, requesterID, teamID, "assign_member"); err != nil {
		return err
	}

	if _, err := s.repo.Team().GetByID(ctx, teamID); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrTeamNotFound
		}
		return fmt.Errorf("failed to get team: %w", err)
	}

	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}
	if !user.Active {
		return NewValidationError("user_id", "user is deactivated", userID)
	}

	user.TeamID = &teamID
	user.Team = nil
	if err := s.repo.User().Update(ctx, user); err != nil {
		return fmt.Errorf("failed to assign team member: %w", err)
	}

	s.logger.Info("Team member assigned successfully", "team_id", teamID, "user_id", userID)
	return nil
}

func (s *teamService) RemoveMember(ctx context.Context, teamID uint, userID string, requesterID string) error {
	s.logger.Info("Removing team member", "team_id", teamID, "user_id", userID, "requester_id", requesterID)

	if err := s.requireAdmin(ctx, requesterID, teamID, "remove_member"); err != nil {
		return err
	}

	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user.TeamID == nil || *user.TeamID != teamID {
		return NewValidationError("user_id", "user is not a member of this team", userID)
	}

	user.TeamID = nil
	user.Team = nil
	if err := s.repo.User().Update(ctx, user); err != nil {
		return fmt.Errorf("failed to remove team member: %w", err)
	}

	s.logger.Info("Team member removed successfully", "team_id", teamID, "user_id", userID)
	return nil
}

// ===== TEAM HELPERS =====

func (s *teamService) requireAdmin(ctx context.Context, requesterID string, resourceID any, action string) error {
	role, err := resolveUserRole(ctx, s.repo, requesterID)
	if err != nil {
		return err
	}
	if role != models.RoleAdmin {
		return NewPermissionError(requesterID, resourceID, "team", action, "only admins can manage teams")
	}

	return nil
}

func (s *teamService) validateLead(ctx context.Context, leadID string) error {
	lead, err := s.repo.User().GetByID(ctx, leadID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return NewValidationError("lead_id", "lead user not found", leadID)
		}
		return fmt.Errorf("failed to get team lead: %w", err)
	}
	if !lead.Active {
		return NewValidationError("lead_id", "lead user is deactivated", leadID)
	}

	return nil
}

// ===== BUSINESS UNIT SERVICE =====

type businessUnitService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
}

func NewBusinessUnitService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator) BusinessUnitService {
	return &businessUnitService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
	}
}

func (s *businessUnitService) Create(ctx context.Context, req *CreateBusinessUnitRequest, creatorID string) (*BusinessUnitResponse, error) {
	s.logger.Info("Creating business unit", "creator_id", creatorID, "name", req.Name)

	// Validate request
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if err := s.requireAdmin(ctx, creatorID, req.Name, "create"); err != nil {
		return nil, err
	}

	// Check name uniqueness
	exists, err := s.repo.BusinessUnit().ExistsByName(ctx, req.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to check business unit name uniqueness: %w", err)
	}
	if exists {
		return nil, ErrBusinessUnitNameTaken
	}

	unit := &models.BusinessUnit{
		Name:        req.Name,
		Description: req.Description,
	}

	if err := s.repo.BusinessUnit().Create(ctx, unit); err != nil {
		return nil, fmt.Errorf("failed to create business unit: %w", err)
	}

	s.logger.Info("Business unit created successfully", "unit_id", unit.ID)

	return &BusinessUnitResponse{BusinessUnit: unit}, nil
}

func (s *businessUnitService) GetByID(ctx context.Context, id uint, withTeams bool) (*BusinessUnitResponse, error) {
	if withTeams {
		unit, err := s.repo.BusinessUnit().GetByIDWithTeams(ctx, id)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, ErrBusinessUnitNotFound
			}
			return nil, fmt.Errorf("failed to get business unit with teams: %w", err)
		}

		return &BusinessUnitResponse{BusinessUnit: unit, TeamCount: int64(len(unit.Teams))}, nil
	}

	unit, err := s.repo.BusinessUnit().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrBusinessUnitNotFound
		}
		return nil, fmt.Errorf("failed to get business unit: %w", err)
	}

	count, err := s.repo.BusinessUnit().TeamCount(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to count business unit teams: %w", err)
	}

	return &BusinessUnitResponse{BusinessUnit: unit, TeamCount: count}, nil
}

func (s *businessUnitService) Update(ctx context.Context, id uint, req *UpdateBusinessUnitRequest, requesterID string) (*BusinessUnitResponse, error) {
	s.logger.Info("Updating business unit", "unit_id", id, "requester_id", requesterID)

	// Validate request
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if err := s.requireAdmin(ctx, requesterID, id, "update"); err != nil {
		return nil, err
	}

	unit, err := s.repo.BusinessUnit().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrBusinessUnitNotFound
		}
		return nil, fmt.Errorf("failed to get business unit: %w", err)
	}

	// Check name uniqueness if name is being updated
	if req.Name != nil && *req.Name != unit.Name {
		exists, err := s.repo.BusinessUnit().ExistsByName(ctx, *req.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to check business unit name uniqueness: %w", err)
		}
		if exists {
			return nil, ErrBusinessUnitNameTaken
		}
	}

	// Apply updates
	if req.Name != nil {
		unit.Name = *req.Name
	}
	if req.Description != nil {
		unit.Description = req.Description
	}

	if err := s.repo.BusinessUnit().Update(ctx, unit); err != nil {
		return nil, fmt.Errorf("failed to update business unit: %w", err)
	}

	s.logger.Info("Business unit updated successfully", "unit_id", id)

	count, err := s.repo.BusinessUnit().TeamCount(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to count business unit teams: %w", err)
	}

	return &BusinessUnitResponse{BusinessUnit: unit, TeamCount: count}, nil
}

func (s *businessUnitService) Delete(ctx context.Context, id uint, requesterID string) error {
	s.logger.Info("Deleting business unit", "unit_id", id, "requester_id", requesterID)

	if err := s.requireAdmin(ctx, requesterID, id, "delete"); err != nil {
		return err
	}

	count, err := s.repo.BusinessUnit().TeamCount(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count business unit teams: %w", err)
	}
	if count > 0 {
		return ErrBusinessUnitNotEmpty
	}

	if err := s.repo.BusinessUnit().Delete(ctx, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrBusinessUnitNotFound
		}
		return fmt.Errorf("failed to delete business unit: %w", err)
	}

	s.logger.Info("Business unit deleted successfully", "unit_id", id)
	return nil
}

func (s *businessUnitService) List(ctx context.Context, limit, offset int) (*BusinessUnitListResponse, error) {
	units, total, err := s.repo.BusinessUnit().List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list business units: %w", err)
	}

	// Build response
	response := &BusinessUnitListResponse{
		Units: make([]*BusinessUnitResponse, len(units)),
		Total: total,
		Page:  (offset / max(limit, 1)) + 1,
		Size:  limit,
	}

	for i, unit := range units {
		count, err := s.repo.BusinessUnit().TeamCount(ctx, unit.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count business unit teams: %w", err)
		}
		response.Units[i] = &BusinessUnitResponse{BusinessUnit: unit, TeamCount: count}
	}

	return response, nil
}

// ===== BUSINESS UNIT HELPERS =====

func (s *businessUnitService) requireAdmin(ctx context.Context, requesterID string, resourceID any, action string) error {
	role, err := resolveUserRole(ctx, s.repo, requesterID)
	if err != nil {
		return err
	}
	if role != models.RoleAdmin {
		return NewPermissionError(requesterID, resourceID, "business_unit", action, "only admins can manage business units")
	}

	return nil
}
