package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/reviewloop/review-service/internal/models"
	"github.com/reviewloop/review-service/internal/repositories"
)

const (
	activeUserWindowDays = 30
	recentActivityLimit  = 20
)

type dashboardService struct {
	repo   repositories.Repository
	db     *gorm.DB
	logger *slog.Logger
}

func NewDashboardService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger) DashboardService {
	return &dashboardService{
		repo:   repo,
		db:     db,
		logger: logger,
	}
}

// ===== PERSONAL DASHBOARD =====

func (s *dashboardService) GetSummary(ctx context.Context, userID string) (*DashboardSummaryResponse, error) {
	cycle, err := s.getOpenCycle(ctx)
	if err != nil {
		return nil, err
	}

	response := &DashboardSummaryResponse{OpenCycle: cycle}

	if cycle != nil {
		summary, err := s.repo.Dashboard().GetUserCycleSummary(ctx, userID, cycle.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get cycle summary: %w", err)
		}
		response.PendingRequests = summary.PendingRequests
		response.FeedbackGiven = summary.FeedbackGiven
		response.FeedbackReceived = summary.FeedbackReceived
		response.AverageRating = summary.AverageRating
		response.AssessmentStatus = summary.AssessmentStatus
	}

	// Attendance for the current month
	from, to, err := periodWindow(time.Now().UTC().Format("2006-01"))
	if err != nil {
		return nil, err
	}
	attendance, err := s.repo.Attendance().Summarize(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize attendance: %w", err)
	}
	response.Attendance = attendance

	// Latest synced Jira period, if any
	stats, err := s.repo.JiraStat().ListByUser(ctx, userID, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to get Jira stats: %w", err)
	}
	if len(stats) > 0 {
		response.JiraStats = stats[0]
	}

	return response, nil
}

// ===== TEAM DASHBOARD =====

func (s *dashboardService) GetTeamOverview(ctx context.Context, managerID string) (*TeamDashboardResponse, error) {
	reports, err := s.repo.User().GetDirectReports(ctx, managerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get direct reports: %w", err)
	}

	cycle, err := s.getOpenCycle(ctx)
	if err != nil {
		return nil, err
	}

	// Jira numbers for the current month, one query for the whole team.
	period := time.Now().UTC().Format("2006-01")
	stats, err := s.repo.JiraStat().ListByPeriod(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("failed to list Jira stats: %w", err)
	}
	statsByUser := make(map[string]*models.JiraUserStat, len(stats))
	for _, stat := range stats {
		statsByUser[stat.UserID] = stat
	}

	members := make([]*MemberProgress, len(reports))
	for i, report := range reports {
		member := &MemberProgress{User: report, JiraStats: statsByUser[report.ID]}

		if cycle != nil {
			summary, err := s.repo.Dashboard().GetUserCycleSummary(ctx, report.ID, cycle.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to get cycle summary: %w", err)
			}
			member.Summary = summary
		}

		members[i] = member
	}

	return &TeamDashboardResponse{
		OpenCycle: cycle,
		Members:   members,
	}, nil
}

// ===== ADMIN DASHBOARD =====

func (s *dashboardService) GetAdminOverview(ctx context.Context) (*AdminDashboardResponse, error) {
	totalUsers, err := s.repo.Dashboard().GetTotalUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get total users: %w", err)
	}

	totalTeams, err := s.repo.Dashboard().GetTotalTeams(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get total teams: %w", err)
	}

	activeUsers, err := s.repo.Dashboard().GetActiveUsers(ctx, activeUserWindowDays)
	if err != nil {
		return nil, fmt.Errorf("failed to get active users: %w", err)
	}

	response := &AdminDashboardResponse{
		TotalUsers:  totalUsers,
		TotalTeams:  totalTeams,
		ActiveUsers: activeUsers,
	}

	cycle, err := s.getOpenCycle(ctx)
	if err != nil {
		return nil, err
	}
	response.OpenCycle = cycle

	if cycle != nil {
		completionRate, err := s.repo.Dashboard().GetFeedbackCompletionRate(ctx, cycle.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get completion rate: %w", err)
		}
		response.CompletionRate = completionRate

		submissionRate, err := s.repo.Dashboard().GetAssessmentSubmissionRate(ctx, cycle.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get submission rate: %w", err)
		}
		response.SubmissionRate = submissionRate

		teamRatings, err := s.repo.Dashboard().GetAverageRatingByTeam(ctx, cycle.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get team ratings: %w", err)
		}
		response.TeamRatings = teamRatings
	}

	activities, err := s.repo.Dashboard().GetRecentActivities(ctx, recentActivityLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent activities: %w", err)
	}
	response.RecentActivities = activities

	return response, nil
}

// ===== HELPER METHODS =====

func (s *dashboardService) getOpenCycle(ctx context.Context) (*models.ReviewCycle, error) {
	cycle, err := s.repo.ReviewCycle().GetOpen(ctx)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get open cycle: %w", err)
	}
	return cycle, nil
}
