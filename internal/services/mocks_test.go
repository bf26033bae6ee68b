package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/reviewloop/review-service/internal/models"
	"github.com/reviewloop/review-service/internal/repositories"
)

// fakeRepository is an in-memory Repository for service tests. Collections
// are slices so iteration order is deterministic.
type fakeRepository struct {
	users       []*models.User
	sessions    []*models.Session
	teams       []*models.Team
	units       []*models.BusinessUnit
	cycles      []*models.ReviewCycle
	requests    []*models.FeedbackRequest
	feedbacks   []*models.Feedback
	assessments []*models.SelfAssessment
	attendance  []*models.AttendanceRecord
	jiraStats   []*models.JiraUserStat

	nextID uint
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{}
}

func (r *fakeRepository) newID() uint {
	r.nextID++
	return r.nextID
}

func (r *fakeRepository) User() repositories.UserRepository       { return &fakeUserRepo{r} }
func (r *fakeRepository) Session() repositories.SessionRepository { return &fakeSessionRepo{r} }
func (r *fakeRepository) Team() repositories.TeamRepository       { return &fakeTeamRepo{r} }

func (r *fakeRepository) BusinessUnit() repositories.BusinessUnitRepository {
	return &fakeBusinessUnitRepo{r}
}

func (r *fakeRepository) ReviewCycle() repositories.ReviewCycleRepository { return &fakeCycleRepo{r} }

func (r *fakeRepository) FeedbackRequest() repositories.FeedbackRequestRepository {
	return &fakeRequestRepo{r}
}

func (r *fakeRepository) Feedback() repositories.FeedbackRepository { return &fakeFeedbackRepo{r} }

func (r *fakeRepository) SelfAssessment() repositories.SelfAssessmentRepository {
	return &fakeAssessmentRepo{r}
}

func (r *fakeRepository) Attendance() repositories.AttendanceRepository {
	return &fakeAttendanceRepo{r}
}

func (r *fakeRepository) JiraStat() repositories.JiraStatRepository   { return &fakeJiraStatRepo{r} }
func (r *fakeRepository) Dashboard() repositories.DashboardRepository { return &fakeDashboardRepo{r} }

func (r *fakeRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(r)
}

func (r *fakeRepository) Ping(ctx context.Context) error { return nil }
func (r *fakeRepository) Close() error                   { return nil }

func paginate[T any](items []T, limit, offset int) []T {
	if offset > len(items) {
		offset = len(items)
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ===== USERS =====

type fakeUserRepo struct{ r *fakeRepository }

func (f *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	f.r.users = append(f.r.users, user)
	return nil
}

func (f *fakeUserRepo) Update(ctx context.Context, user *models.User) error {
	for i, u := range f.r.users {
		if u.ID == user.ID {
			f.r.users[i] = user
			return nil
		}
	}
	f.r.users = append(f.r.users, user)
	return nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, id string) error {
	for i, u := range f.r.users {
		if u.ID == id {
			f.r.users = append(f.r.users[:i], f.r.users[i+1:]...)
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	for _, u := range f.r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range f.r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeUserRepo) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	var out []*models.User
	for _, u := range f.r.users {
		for _, id := range ids {
			if u.ID == id {
				out = append(out, u)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeUserRepo) matches(u *models.User, filters repositories.UserFilters) bool {
	if filters.Role != nil && u.Role != *filters.Role {
		return false
	}
	if filters.TeamID != nil && (u.TeamID == nil || *u.TeamID != *filters.TeamID) {
		return false
	}
	if filters.ManagerID != nil && (u.ManagerID == nil || *u.ManagerID != *filters.ManagerID) {
		return false
	}
	if filters.Active != nil && u.Active != *filters.Active {
		return false
	}
	if filters.Query != "" {
		q := strings.ToLower(filters.Query)
		if !strings.Contains(strings.ToLower(u.FullName), q) && !strings.Contains(strings.ToLower(u.Email), q) {
			return false
		}
	}
	return true
}

func (f *fakeUserRepo) List(ctx context.Context, filters repositories.UserFilters) ([]*models.User, int64, error) {
	var out []*models.User
	for _, u := range f.r.users {
		if f.matches(u, filters) {
			out = append(out, u)
		}
	}
	return paginate(out, filters.Limit, filters.Offset), int64(len(out)), nil
}

func (f *fakeUserRepo) Search(ctx context.Context, query string, filters repositories.UserFilters) ([]*models.User, int64, error) {
	filters.Query = query
	return f.List(ctx, filters)
}

func (f *fakeUserRepo) GetDirectReports(ctx context.Context, managerID string) ([]*models.User, error) {
	var out []*models.User
	for _, u := range f.r.users {
		if u.ManagerID != nil && *u.ManagerID == managerID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) GetByTeam(ctx context.Context, teamID uint) ([]*models.User, error) {
	var out []*models.User
	for _, u := range f.r.users {
		if u.TeamID != nil && *u.TeamID == teamID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) ExistsByID(ctx context.Context, id string) (bool, error) {
	_, err := f.GetByID(ctx, id)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (f *fakeUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := f.GetByEmail(ctx, email)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (f *fakeUserRepo) HasRole(ctx context.Context, id string, role models.UserRole) (bool, error) {
	u, err := f.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return u.Role == role, nil
}

func (f *fakeUserRepo) CountByRole(ctx context.Context, role models.UserRole) (int64, error) {
	var n int64
	for _, u := range f.r.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

// ===== SESSIONS =====

type fakeSessionRepo struct{ r *fakeRepository }

func (f *fakeSessionRepo) Create(ctx context.Context, session *models.Session) error {
	f.r.sessions = append(f.r.sessions, session)
	return nil
}

func (f *fakeSessionRepo) GetByID(ctx context.Context, id string) (*models.Session, error) {
	for _, s := range f.r.sessions {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeSessionRepo) ListByUser(ctx context.Context, userID string) ([]*models.Session, error) {
	var out []*models.Session
	for _, s := range f.r.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSessionRepo) Touch(ctx context.Context, id string, at time.Time) error {
	for _, s := range f.r.sessions {
		if s.ID == id {
			s.LastActivityAt = at
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (f *fakeSessionRepo) Delete(ctx context.Context, id string) error {
	for i, s := range f.r.sessions {
		if s.ID == id {
			f.r.sessions = append(f.r.sessions[:i], f.r.sessions[i+1:]...)
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (f *fakeSessionRepo) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	var kept []*models.Session
	var removed int64
	for _, s := range f.r.sessions {
		if s.UserID == userID {
			removed++
			continue
		}
		kept = append(kept, s)
	}
	f.r.sessions = kept
	return removed, nil
}

func (f *fakeSessionRepo) DeleteExpired(ctx context.Context, now time.Time, idleTimeout time.Duration) (int64, error) {
	var kept []*models.Session
	var removed int64
	for _, s := range f.r.sessions {
		if s.Expired(now, idleTimeout) {
			removed++
			continue
		}
		kept = append(kept, s)
	}
	f.r.sessions = kept
	return removed, nil
}

func (f *fakeSessionRepo) CountActive(ctx context.Context, now time.Time, idleTimeout time.Duration) (int64, error) {
	var n int64
	for _, s := range f.r.sessions {
		if !s.Expired(now, idleTimeout) {
			n++
		}
	}
	return n, nil
}

// ===== TEAMS =====

type fakeTeamRepo struct{ r *fakeRepository }

func (f *fakeTeamRepo) Create(ctx context.Context, team *models.Team) error {
	if team.ID == 0 {
		team.ID = f.r.newID()
	}
	f.r.teams = append(f.r.teams, team)
	return nil
}

func (f *fakeTeamRepo) Update(ctx context.Context, team *models.Team) error {
	for i, t := range f.r.teams {
		if t.ID == team.ID {
			f.r.teams[i] = team
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (f *fakeTeamRepo) Delete(ctx context.Context, id uint) error {
	for i, t := range f.r.teams {
		if t.ID == id {
			f.r.teams = append(f.r.teams[:i], f.r.teams[i+1:]...)
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (f *fakeTeamRepo) GetByID(ctx context.Context, id uint) (*models.Team, error) {
	for _, t := range f.r.teams {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeTeamRepo) GetByIDWithMembers(ctx context.Context, id uint) (*models.Team, []*models.User, error) {
	team, err := f.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	members, _ := (&fakeUserRepo{f.r}).GetByTeam(ctx, id)
	return team, members, nil
}

func (f *fakeTeamRepo) List(ctx context.Context, filters repositories.TeamFilters) ([]*models.Team, int64, error) {
	var out []*models.Team
	for _, t := range f.r.teams {
		if filters.BusinessUnitID != nil && t.BusinessUnitID != *filters.BusinessUnitID {
			continue
		}
		if filters.Query != "" && !strings.Contains(strings.ToLower(t.Name), strings.ToLower(filters.Query)) {
			continue
		}
		out = append(out, t)
	}
	return paginate(out, filters.Limit, filters.Offset), int64(len(out)), nil
}

func (f *fakeTeamRepo) ExistsByName(ctx context.Context, businessUnitID uint, name string) (bool, error) {
	for _, t := range f.r.teams {
		if t.BusinessUnitID == businessUnitID && t.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeTeamRepo) MemberCount(ctx context.Context, id uint) (int64, error) {
	var n int64
	for _, u := range f.r.users {
		if u.TeamID != nil && *u.TeamID == id {
			n++
		}
	}
	return n, nil
}

// ===== BUSINESS UNITS =====

type fakeBusinessUnitRepo struct{ r *fakeRepository }

func (f *fakeBusinessUnitRepo) Create(ctx context.Context, unit *models.BusinessUnit) error {
	if unit.ID == 0 {
		unit.ID = f.r.newID()
	}
	f.r.units = append(f.r.units, unit)
	return nil
}

func (f *fakeBusinessUnitRepo) Update(ctx context.Context, unit *models.BusinessUnit) error {
	for i, u := range f.r.units {
		if u.ID == unit.ID {
			f.r.units[i] = unit
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (f *fakeBusinessUnitRepo) Delete(ctx context.Context, id uint) error {
	for i, u := range f.r.units {
		if u.ID == id {
			f.r.units = append(f.r.units[:i], f.r.units[i+1:]...)
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (f *fakeBusinessUnitRepo) GetByID(ctx context.Context, id uint) (*models.BusinessUnit, error) {
	for _, u := range f.r.units {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeBusinessUnitRepo) GetByIDWithTeams(ctx context.Context, id uint) (*models.BusinessUnit, error) {
	unit, err := f.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	clone := *unit
	clone.Teams = nil
	for _, t := range f.r.teams {
		if t.BusinessUnitID == id {
			clone.Teams = append(clone.Teams, *t)
		}
	}
	return &clone, nil
}

func (f *fakeBusinessUnitRepo) List(ctx context.Context, limit, offset int) ([]*models.BusinessUnit, int64, error) {
	return paginate(f.r.units, limit, offset), int64(len(f.r.units)), nil
}

func (f *fakeBusinessUnitRepo) ExistsByName(ctx context.Context, name string) (bool, error) {
	for _, u := range f.r.units {
		if u.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeBusinessUnitRepo) TeamCount(ctx context.Context, id uint) (int64, error) {
	var n int64
	for _, t := range f.r.teams {
		if t.BusinessUnitID == id {
			n++
		}
	}
	return n, nil
}

// ===== REVIEW CYCLES =====

type fakeCycleRepo struct{ r *fakeRepository }

func (f *fakeCycleRepo) Create(ctx context.Context, cycle *models.ReviewCycle) error {
	if cycle.ID == 0 {
		cycle.ID = f.r.newID()
	}
	f.r.cycles = append(f.r.cycles, cycle)
	return nil
}

func (f *fakeCycleRepo) Update(ctx context.Context, cycle *models.ReviewCycle) error {
	for i, c := range f.r.cycles {
		if c.ID == cycle.ID {
			f.r.cycles[i] = cycle
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (f *fakeCycleRepo) Delete(ctx context.Context, id uint) error {
	for i, c := range f.r.cycles {
		if c.ID == id {
			f.r.cycles = append(f.r.cycles[:i], f.r.cycles[i+1:]...)
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (f *fakeCycleRepo) GetByID(ctx context.Context, id uint) (*models.ReviewCycle, error) {
	for _, c := range f.r.cycles {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeCycleRepo) List(ctx context.Context, filters repositories.CycleFilters) ([]*models.ReviewCycle, int64, error) {
	var out []*models.ReviewCycle
	for _, c := range f.r.cycles {
		if filters.Status != nil && c.Status != *filters.Status {
			continue
		}
		out = append(out, c)
	}
	return paginate(out, filters.Limit, filters.Offset), int64(len(out)), nil
}

func (f *fakeCycleRepo) GetOpen(ctx context.Context) (*models.ReviewCycle, error) {
	for _, c := range f.r.cycles {
		if c.Status == models.CycleOpen {
			return c, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeCycleRepo) ExistsByName(ctx context.Context, name string) (bool, error) {
	for _, c := range f.r.cycles {
		if c.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// ===== FEEDBACK REQUESTS =====

type fakeRequestRepo struct{ r *fakeRepository }

func (f *fakeRequestRepo) Create(ctx context.Context, request *models.FeedbackRequest) error {
	if request.ID == 0 {
		request.ID = f.r.newID()
	}
	f.r.requests = append(f.r.requests, request)
	return nil
}

func (f *fakeRequestRepo) Update(ctx context.Context, request *models.FeedbackRequest) error {
	for i, req := range f.r.requests {
		if req.ID == request.ID {
			f.r.requests[i] = request
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (f *fakeRequestRepo) Delete(ctx context.Context, id uint) error {
	for i, req := range f.r.requests {
		if req.ID == id {
			f.r.requests = append(f.r.requests[:i], f.r.requests[i+1:]...)
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (f *fakeRequestRepo) GetByID(ctx context.Context, id uint) (*models.FeedbackRequest, error) {
	for _, req := range f.r.requests {
		if req.ID == id {
			return req, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeRequestRepo) List(ctx context.Context, filters repositories.FeedbackRequestFilters) ([]*models.FeedbackRequest, int64, error) {
	var out []*models.FeedbackRequest
	for _, req := range f.r.requests {
		if filters.CycleID != nil && req.CycleID != *filters.CycleID {
			continue
		}
		if filters.ReviewerID != nil && req.ReviewerID != *filters.ReviewerID {
			continue
		}
		if filters.RevieweeID != nil && req.RevieweeID != *filters.RevieweeID {
			continue
		}
		if filters.Kind != nil && req.Kind != *filters.Kind {
			continue
		}
		if filters.Status != nil && req.Status != *filters.Status {
			continue
		}
		out = append(out, req)
	}
	return paginate(out, filters.Limit, filters.Offset), int64(len(out)), nil
}

func (f *fakeRequestRepo) Exists(ctx context.Context, cycleID uint, reviewerID, revieweeID string, kind models.FeedbackKind) (bool, error) {
	for _, req := range f.r.requests {
		if req.CycleID == cycleID && req.ReviewerID == reviewerID && req.RevieweeID == revieweeID && req.Kind == kind {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRequestRepo) CountByStatus(ctx context.Context, cycleID uint, status models.FeedbackRequestStatus) (int64, error) {
	var n int64
	for _, req := range f.r.requests {
		if req.CycleID == cycleID && req.Status == status {
			n++
		}
	}
	return n, nil
}

// ===== FEEDBACK =====

type fakeFeedbackRepo struct{ r *fakeRepository }

func (f *fakeFeedbackRepo) Create(ctx context.Context, feedback *models.Feedback) error {
	if feedback.ID == 0 {
		feedback.ID = f.r.newID()
	}
	f.r.feedbacks = append(f.r.feedbacks, feedback)
	return nil
}

func (f *fakeFeedbackRepo) GetByID(ctx context.Context, id uint) (*models.Feedback, error) {
	for _, fb := range f.r.feedbacks {
		if fb.ID == id {
			return fb, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeFeedbackRepo) GetByRequestID(ctx context.Context, requestID uint) (*models.Feedback, error) {
	for _, fb := range f.r.feedbacks {
		if fb.RequestID == requestID {
			return fb, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeFeedbackRepo) List(ctx context.Context, filters repositories.FeedbackFilters) ([]*models.Feedback, int64, error) {
	var out []*models.Feedback
	for _, fb := range f.r.feedbacks {
		if filters.CycleID != nil && fb.CycleID != *filters.CycleID {
			continue
		}
		if filters.ReviewerID != nil && fb.ReviewerID != *filters.ReviewerID {
			continue
		}
		if filters.RevieweeID != nil && fb.RevieweeID != *filters.RevieweeID {
			continue
		}
		if filters.Kind != nil && fb.Kind != *filters.Kind {
			continue
		}
		out = append(out, fb)
	}
	return paginate(out, filters.Limit, filters.Offset), int64(len(out)), nil
}

func (f *fakeFeedbackRepo) ListForReviewee(ctx context.Context, revieweeID string, cycleID uint) ([]*models.Feedback, error) {
	var out []*models.Feedback
	for _, fb := range f.r.feedbacks {
		if fb.RevieweeID == revieweeID && fb.CycleID == cycleID {
			out = append(out, fb)
		}
	}
	return out, nil
}

func (f *fakeFeedbackRepo) AverageRating(ctx context.Context, revieweeID string, cycleID uint) (float64, bool, error) {
	var sum float64
	var n int
	for _, fb := range f.r.feedbacks {
		if fb.RevieweeID == revieweeID && fb.CycleID == cycleID {
			sum += float64(fb.Rating)
			n++
		}
	}
	if n == 0 {
		return 0, false, nil
	}
	return sum / float64(n), true, nil
}

// ===== SELF-ASSESSMENTS =====

type fakeAssessmentRepo struct{ r *fakeRepository }

func (f *fakeAssessmentRepo) Create(ctx context.Context, assessment *models.SelfAssessment) error {
	if assessment.ID == 0 {
		assessment.ID = f.r.newID()
	}
	f.r.assessments = append(f.r.assessments, assessment)
	return nil
}

func (f *fakeAssessmentRepo) Update(ctx context.Context, assessment *models.SelfAssessment) error {
	for i, a := range f.r.assessments {
		if a.ID == assessment.ID {
			f.r.assessments[i] = assessment
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (f *fakeAssessmentRepo) Delete(ctx context.Context, id uint) error {
	for i, a := range f.r.assessments {
		if a.ID == id {
			f.r.assessments = append(f.r.assessments[:i], f.r.assessments[i+1:]...)
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (f *fakeAssessmentRepo) GetByID(ctx context.Context, id uint) (*models.SelfAssessment, error) {
	for _, a := range f.r.assessments {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeAssessmentRepo) GetByUserAndCycle(ctx context.Context, userID string, cycleID uint) (*models.SelfAssessment, error) {
	for _, a := range f.r.assessments {
		if a.UserID == userID && a.CycleID == cycleID {
			return a, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeAssessmentRepo) ListByCycle(ctx context.Context, cycleID uint, limit, offset int) ([]*models.SelfAssessment, int64, error) {
	var out []*models.SelfAssessment
	for _, a := range f.r.assessments {
		if a.CycleID == cycleID {
			out = append(out, a)
		}
	}
	return paginate(out, limit, offset), int64(len(out)), nil
}

func (f *fakeAssessmentRepo) ListByUser(ctx context.Context, userID string) ([]*models.SelfAssessment, error) {
	var out []*models.SelfAssessment
	for _, a := range f.r.assessments {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAssessmentRepo) CountByStatus(ctx context.Context, cycleID uint, status models.SelfAssessmentStatus) (int64, error) {
	var n int64
	for _, a := range f.r.assessments {
		if a.CycleID == cycleID && a.Status == status {
			n++
		}
	}
	return n, nil
}

// ===== ATTENDANCE =====

type fakeAttendanceRepo struct{ r *fakeRepository }

func (f *fakeAttendanceRepo) Upsert(ctx context.Context, record *models.AttendanceRecord) error {
	record.Date = dateOnly(record.Date)
	for i, rec := range f.r.attendance {
		if rec.UserID == record.UserID && rec.Date.Equal(record.Date) {
			record.ID = rec.ID
			f.r.attendance[i] = record
			return nil
		}
	}
	record.ID = f.r.newID()
	f.r.attendance = append(f.r.attendance, record)
	return nil
}

func (f *fakeAttendanceRepo) Delete(ctx context.Context, id uint) error {
	for i, rec := range f.r.attendance {
		if rec.ID == id {
			f.r.attendance = append(f.r.attendance[:i], f.r.attendance[i+1:]...)
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (f *fakeAttendanceRepo) GetByID(ctx context.Context, id uint) (*models.AttendanceRecord, error) {
	for _, rec := range f.r.attendance {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeAttendanceRepo) GetByUserAndDate(ctx context.Context, userID string, date time.Time) (*models.AttendanceRecord, error) {
	day := dateOnly(date)
	for _, rec := range f.r.attendance {
		if rec.UserID == userID && rec.Date.Equal(day) {
			return rec, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeAttendanceRepo) List(ctx context.Context, filters repositories.AttendanceFilters) ([]*models.AttendanceRecord, int64, error) {
	var out []*models.AttendanceRecord
	for _, rec := range f.r.attendance {
		if filters.UserID != nil && rec.UserID != *filters.UserID {
			continue
		}
		if filters.TeamID != nil {
			user, err := (&fakeUserRepo{f.r}).GetByID(ctx, rec.UserID)
			if err != nil || user.TeamID == nil || *user.TeamID != *filters.TeamID {
				continue
			}
		}
		if filters.Status != nil && rec.Status != *filters.Status {
			continue
		}
		if filters.DateFrom != nil && rec.Date.Before(dateOnly(*filters.DateFrom)) {
			continue
		}
		if filters.DateTo != nil && rec.Date.After(dateOnly(*filters.DateTo)) {
			continue
		}
		out = append(out, rec)
	}
	return paginate(out, filters.Limit, filters.Offset), int64(len(out)), nil
}

func (f *fakeAttendanceRepo) Summarize(ctx context.Context, userID string, from, to time.Time) (*repositories.AttendanceSummary, error) {
	summary := &repositories.AttendanceSummary{
		UserID:   userID,
		Days:     make(map[models.AttendanceStatus]int),
		DateFrom: dateOnly(from),
		DateTo:   dateOnly(to),
	}
	for _, rec := range f.r.attendance {
		if rec.UserID != userID || rec.Date.Before(summary.DateFrom) || rec.Date.After(summary.DateTo) {
			continue
		}
		summary.Days[rec.Status]++
		summary.Total++
	}
	return summary, nil
}

// ===== JIRA STATS =====

type fakeJiraStatRepo struct{ r *fakeRepository }

func (f *fakeJiraStatRepo) Upsert(ctx context.Context, stat *models.JiraUserStat) error {
	for i, st := range f.r.jiraStats {
		if st.UserID == stat.UserID && st.Period == stat.Period {
			stat.ID = st.ID
			f.r.jiraStats[i] = stat
			return nil
		}
	}
	stat.ID = f.r.newID()
	f.r.jiraStats = append(f.r.jiraStats, stat)
	return nil
}

func (f *fakeJiraStatRepo) GetByUserAndPeriod(ctx context.Context, userID, period string) (*models.JiraUserStat, error) {
	for _, st := range f.r.jiraStats {
		if st.UserID == userID && st.Period == period {
			return st, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeJiraStatRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*models.JiraUserStat, error) {
	var out []*models.JiraUserStat
	for _, st := range f.r.jiraStats {
		if st.UserID == userID {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period > out[j].Period })
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeJiraStatRepo) ListByPeriod(ctx context.Context, period string) ([]*models.JiraUserStat, error) {
	var out []*models.JiraUserStat
	for _, st := range f.r.jiraStats {
		if st.Period == period {
			out = append(out, st)
		}
	}
	return out, nil
}

func (f *fakeJiraStatRepo) DeleteByUser(ctx context.Context, userID string) error {
	var kept []*models.JiraUserStat
	for _, st := range f.r.jiraStats {
		if st.UserID != userID {
			kept = append(kept, st)
		}
	}
	f.r.jiraStats = kept
	return nil
}

// ===== DASHBOARD =====

type fakeDashboardRepo struct{ r *fakeRepository }

func (f *fakeDashboardRepo) GetTotalUsers(ctx context.Context) (int64, error) {
	return int64(len(f.r.users)), nil
}

func (f *fakeDashboardRepo) GetTotalTeams(ctx context.Context) (int64, error) {
	return int64(len(f.r.teams)), nil
}

func (f *fakeDashboardRepo) GetActiveUsers(ctx context.Context, days int) (int64, error) {
	var n int64
	for _, u := range f.r.users {
		if u.Active {
			n++
		}
	}
	return n, nil
}

func (f *fakeDashboardRepo) GetFeedbackCompletionRate(ctx context.Context, cycleID uint) (float64, error) {
	var total, submitted int64
	for _, req := range f.r.requests {
		if req.CycleID != cycleID {
			continue
		}
		total++
		if req.Status == models.RequestSubmitted {
			submitted++
		}
	}
	if total == 0 {
		return 0, nil
	}
	return float64(submitted) / float64(total) * 100, nil
}

func (f *fakeDashboardRepo) GetAssessmentSubmissionRate(ctx context.Context, cycleID uint) (float64, error) {
	var users, submitted int64
	for _, u := range f.r.users {
		if u.Active {
			users++
		}
	}
	for _, a := range f.r.assessments {
		if a.CycleID == cycleID && a.Status == models.AssessmentSubmitted {
			submitted++
		}
	}
	if users == 0 {
		return 0, nil
	}
	return float64(submitted) / float64(users) * 100, nil
}

func (f *fakeDashboardRepo) GetAverageRatingByTeam(ctx context.Context, cycleID uint) ([]repositories.TeamRatingData, error) {
	return nil, nil
}

func (f *fakeDashboardRepo) GetRecentActivities(ctx context.Context, limit int) ([]repositories.RecentActivityData, error) {
	return nil, nil
}

func (f *fakeDashboardRepo) GetUserCycleSummary(ctx context.Context, userID string, cycleID uint) (*repositories.UserCycleSummary, error) {
	summary := &repositories.UserCycleSummary{UserID: userID, CycleID: cycleID}

	for _, req := range f.r.requests {
		if req.CycleID == cycleID && req.ReviewerID == userID && req.Status == models.RequestPending {
			summary.PendingRequests++
		}
	}

	var sum float64
	var rated int64
	for _, fb := range f.r.feedbacks {
		if fb.CycleID != cycleID {
			continue
		}
		if fb.ReviewerID == userID {
			summary.FeedbackGiven++
		}
		if fb.RevieweeID == userID {
			summary.FeedbackReceived++
			sum += float64(fb.Rating)
			rated++
		}
	}
	if rated > 0 {
		avg := sum / float64(rated)
		summary.AverageRating = &avg
	}

	for _, a := range f.r.assessments {
		if a.UserID == userID && a.CycleID == cycleID {
			status := a.Status
			summary.AssessmentStatus = &status
			summary.AssessmentSubmitted = a.SubmittedAt
		}
	}

	return summary, nil
}
