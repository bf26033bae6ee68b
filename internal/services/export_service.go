package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/reviewloop/review-service/internal/models"
	"github.com/reviewloop/review-service/internal/repositories"
	"github.com/reviewloop/review-service/internal/validator"
)

const exportPageSize = 500

type exportService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewExportService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) ExportService {
	return &exportService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

// ===== ATTENDANCE EXPORT =====

func (s *exportService) ExportAttendanceMonth(ctx context.Context, period string, teamID *uint, requesterID string) (*excelize.File, string, error) {
	s.logger.Info("Exporting attendance", "period", period, "requester_id", requesterID)

	requester, err := s.repo.User().GetByID(ctx, requesterID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, "", ErrUserNotFound
		}
		return nil, "", fmt.Errorf("failed to get requester: %w", err)
	}

	switch requester.Role {
	case models.RoleAdmin:
		// Any team, or the whole company
	case models.RoleManager:
		// Managers export their own team only
		if requester.TeamID == nil {
			return nil, "", NewPermissionError(requesterID, period, "attendance", "export", "manager has no team")
		}
		if teamID != nil && *teamID != *requester.TeamID {
			return nil, "", NewPermissionError(requesterID, *teamID, "attendance", "export", "not a member of this team")
		}
		teamID = requester.TeamID
	default:
		return nil, "", NewPermissionError(requesterID, period, "attendance", "export", "only managers and admins can export")
	}

	from, to, err := periodWindow(period)
	if err != nil {
		return nil, "", err
	}

	records, err := s.collectAttendance(ctx, from, to, teamID)
	if err != nil {
		return nil, "", err
	}

	users, err := s.userIndex(ctx, records)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	sheetName := "Attendance"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headers := []string{"Employee", "Email", "Date", "Status", "Check In", "Check Out", "Note"}
	for i, h := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, h)
	}

	for idx, record := range records {
		row := idx + 2

		name, email := "", ""
		if user, ok := users[record.UserID]; ok {
			name, email = user.FullName, user.Email
		}

		checkIn, checkOut := "", ""
		if record.CheckIn != nil {
			checkIn = record.CheckIn.Format("15:04")
		}
		if record.CheckOut != nil {
			checkOut = record.CheckOut.Format("15:04")
		}

		note := ""
		if record.Note != nil {
			note = *record.Note
		}

		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), name)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), email)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), record.Date.Format("2006-01-02"))
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), string(record.Status))
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), checkIn)
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), checkOut)
		f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), note)
	}

	f.SetColWidth(sheetName, "A", "A", 24)
	f.SetColWidth(sheetName, "B", "B", 28)
	f.SetColWidth(sheetName, "C", "C", 12)
	f.SetColWidth(sheetName, "D", "D", 12)
	f.SetColWidth(sheetName, "E", "F", 10)
	f.SetColWidth(sheetName, "G", "G", 30)

	filename := fmt.Sprintf("attendance_%s.xlsx", period)

	s.logger.Info("Attendance export built", "period", period, "rows", len(records))

	return f, filename, nil
}

// ===== CYCLE EXPORT =====

func (s *exportService) ExportCycleSummary(ctx context.Context, cycleID uint, requesterID string) (*excelize.File, string, error) {
	s.logger.Info("Exporting cycle summary", "cycle_id", cycleID, "requester_id", requesterID)

	role, err := resolveUserRole(ctx, s.repo, requesterID)
	if err != nil {
		return nil, "", err
	}
	if role != models.RoleAdmin {
		return nil, "", NewPermissionError(requesterID, cycleID, "review_cycle", "export", "only admins can export cycle summaries")
	}

	cycle, err := s.repo.ReviewCycle().GetByID(ctx, cycleID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, "", ErrCycleNotFound
		}
		return nil, "", fmt.Errorf("failed to get review cycle: %w", err)
	}

	users, err := s.listActiveUsers(ctx)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	sheetName := "Cycle Summary"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headers := []string{"Employee", "Email", "Team", "Feedback Received", "Feedback Given", "Pending Requests", "Average Rating", "Self-Assessment"}
	for i, h := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, h)
	}

	for idx, user := range users {
		row := idx + 2

		summary, err := s.repo.Dashboard().GetUserCycleSummary(ctx, user.ID, cycle.ID)
		if err != nil {
			return nil, "", fmt.Errorf("failed to get cycle summary: %w", err)
		}

		teamName := ""
		if user.Team != nil {
			teamName = user.Team.Name
		}

		assessment := "not started"
		if summary.AssessmentStatus != nil {
			assessment = string(*summary.AssessmentStatus)
		}

		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), user.FullName)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), user.Email)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), teamName)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), summary.FeedbackReceived)
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), summary.FeedbackGiven)
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), summary.PendingRequests)
		if summary.AverageRating != nil {
			f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), *summary.AverageRating)
		}
		f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), assessment)
	}

	f.SetColWidth(sheetName, "A", "A", 24)
	f.SetColWidth(sheetName, "B", "B", 28)
	f.SetColWidth(sheetName, "C", "C", 20)
	f.SetColWidth(sheetName, "D", "F", 16)
	f.SetColWidth(sheetName, "G", "G", 14)
	f.SetColWidth(sheetName, "H", "H", 16)

	filename := fmt.Sprintf("cycle_%d_summary.xlsx", cycle.ID)

	s.logger.Info("Cycle export built", "cycle_id", cycle.ID, "rows", len(users))

	return f, filename, nil
}

// ===== HELPER METHODS =====

func (s *exportService) collectAttendance(ctx context.Context, from, to time.Time, teamID *uint) ([]*models.AttendanceRecord, error) {
	filters := repositories.AttendanceFilters{
		TeamID:   teamID,
		DateFrom: &from,
		DateTo:   &to,
		Limit:    exportPageSize,
	}

	var all []*models.AttendanceRecord
	for {
		records, _, err := s.repo.Attendance().List(ctx, filters)
		if err != nil {
			return nil, fmt.Errorf("failed to list attendance records: %w", err)
		}
		all = append(all, records...)
		if len(records) < filters.Limit {
			return all, nil
		}
		filters.Offset += filters.Limit
	}
}

func (s *exportService) listActiveUsers(ctx context.Context) ([]*models.User, error) {
	active := true
	filters := repositories.UserFilters{Active: &active, Limit: exportPageSize}

	var all []*models.User
	for {
		users, _, err := s.repo.User().List(ctx, filters)
		if err != nil {
			return nil, fmt.Errorf("failed to list users: %w", err)
		}
		all = append(all, users...)
		if len(users) < filters.Limit {
			return all, nil
		}
		filters.Offset += filters.Limit
	}
}

func (s *exportService) userIndex(ctx context.Context, records []*models.AttendanceRecord) (map[string]*models.User, error) {
	seen := make(map[string]bool)
	var ids []string
	for _, record := range records {
		if !seen[record.UserID] {
			seen[record.UserID] = true
			ids = append(ids, record.UserID)
		}
	}

	index := make(map[string]*models.User, len(ids))
	if len(ids) == 0 {
		return index, nil
	}

	users, err := s.repo.User().GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	for _, user := range users {
		index[user.ID] = user
	}

	return index, nil
}
