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

type attendanceService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
}

func NewAttendanceService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator) AttendanceService {
	return &attendanceService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
	}
}

// ===== RECORD OPERATIONS =====

func (s *attendanceService) Upsert(ctx context.Context, req *UpsertAttendanceRequest, userID string) (*models.AttendanceRecord, error) {
	s.logger.Info("Upserting attendance record", "user_id", userID, "date", req.Date.Format("2006-01-02"), "status", req.Status)

	// Business validation
	if errors := s.validator.GetBusinessValidator().ValidateAttendanceUpsert(req); len(errors) > 0 {
		return nil, errors
	}

	record := &models.AttendanceRecord{
		UserID:   userID,
		Date:     req.Date,
		Status:   req.Status,
		CheckIn:  req.CheckIn,
		CheckOut: req.CheckOut,
		Note:     req.Note,
	}

	if err := s.repo.Attendance().Upsert(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to upsert attendance record: %w", err)
	}

	// Re-read so the caller gets the stored row, not the input
	stored, err := s.repo.Attendance().GetByUserAndDate(ctx, userID, req.Date)
	if err != nil {
		return nil, fmt.Errorf("failed to reload attendance record: %w", err)
	}

	return stored, nil
}

func (s *attendanceService) Delete(ctx context.Context, id uint, requesterID string) error {
	s.logger.Info("Deleting attendance record", "record_id", id, "requester_id", requesterID)

	record, err := s.repo.Attendance().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrAttendanceNotFound
		}
		return fmt.Errorf("failed to get attendance record: %w", err)
	}

	if record.UserID != requesterID {
		role, err := resolveUserRole(ctx, s.repo, requesterID)
		if err != nil {
			return err
		}
		if role != models.RoleAdmin {
			return NewPermissionError(requesterID, id, "attendance", "delete", "not the owner or an admin")
		}
	}

	if err := s.repo.Attendance().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete attendance record: %w", err)
	}

	s.logger.Info("Attendance record deleted", "record_id", id)

	return nil
}

// ===== QUERIES =====

func (s *attendanceService) List(ctx context.Context, filters repositories.AttendanceFilters, requesterID string) (*AttendanceListResponse, error) {
	requester, err := s.repo.User().GetByID(ctx, requesterID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get requester: %w", err)
	}

	if err := s.scopeFilters(ctx, &filters, requester); err != nil {
		return nil, err
	}

	records, total, err := s.repo.Attendance().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance records: %w", err)
	}

	return &AttendanceListResponse{
		Records: records,
		Total:   total,
		Page:    (filters.Offset / max(filters.Limit, 1)) + 1,
		Size:    filters.Limit,
	}, nil
}

func (s *attendanceService) GetSummary(ctx context.Context, userID, period, requesterID string) (*repositories.AttendanceSummary, error) {
	if userID != requesterID {
		role, err := resolveUserRole(ctx, s.repo, requesterID)
		if err != nil {
			return nil, err
		}
		if role != models.RoleAdmin {
			isMgr, err := s.isManagerOf(ctx, requesterID, userID)
			if err != nil {
				return nil, err
			}
			if !isMgr {
				return nil, NewPermissionError(requesterID, userID, "attendance", "summarize", "not the owner, their manager, or an admin")
			}
		}
	}

	from, to, err := periodWindow(period)
	if err != nil {
		return nil, err
	}

	summary, err := s.repo.Attendance().Summarize(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize attendance: %w", err)
	}

	return summary, nil
}

// ===== HELPER METHODS =====

// scopeFilters narrows the query to what the requester may see. Admins see
// everything, managers their own team and reports, everyone else only
// their own rows.
func (s *attendanceService) scopeFilters(ctx context.Context, filters *repositories.AttendanceFilters, requester *models.User) error {
	if requester.Role == models.RoleAdmin {
		return nil
	}

	if requester.Role == models.RoleManager {
		switch {
		case filters.UserID != nil && *filters.UserID == requester.ID:
			return nil
		case filters.UserID != nil:
			isMgr, err := s.isManagerOf(ctx, requester.ID, *filters.UserID)
			if err != nil {
				return err
			}
			if !isMgr {
				return NewPermissionError(requester.ID, *filters.UserID, "attendance", "list", "user is not a direct report")
			}
			return nil
		case filters.TeamID != nil:
			if requester.TeamID == nil || *requester.TeamID != *filters.TeamID {
				return NewPermissionError(requester.ID, *filters.TeamID, "attendance", "list", "not a member of this team")
			}
			return nil
		default:
			filters.UserID = &requester.ID
			return nil
		}
	}

	if filters.UserID != nil && *filters.UserID != requester.ID {
		return NewPermissionError(requester.ID, *filters.UserID, "attendance", "list", "cannot list other users' attendance")
	}
	if filters.TeamID != nil {
		return NewPermissionError(requester.ID, *filters.TeamID, "attendance", "list", "cannot list team attendance")
	}

	filters.UserID = &requester.ID
	return nil
}

func (s *attendanceService) isManagerOf(ctx context.Context, managerID, userID string) (bool, error) {
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get user: %w", err)
	}

	return user.ManagerID != nil && *user.ManagerID == managerID, nil
}
