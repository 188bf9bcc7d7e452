package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"intake_bot/internal/entities"
	"intake_bot/internal/repository"
)

type formStats interface {
	Count(ctx context.Context) (int, error)
	CountSince(ctx context.Context, since time.Time) (int, error)
	CountsByStatus(ctx context.Context) (map[string]int, error)
	TopProjects(ctx context.Context, limit int) ([]repository.ProjectCount, error)
}

type messageStats interface {
	Count(ctx context.Context) (int, error)
	CountSince(ctx context.Context, since time.Time) (int, error)
}

type groupStats interface {
	CountActive(ctx context.Context) (int, error)
}

type activityStats interface {
	Daily(ctx context.Context, days int) ([]repository.DailyActivity, error)
}

type DashboardStats struct {
	TotalForms    int                        `json:"total_forms"`
	FormsToday    int                        `json:"forms_today"`
	FormsThisWeek int                        `json:"forms_this_week"`
	ByStatus      map[string]int             `json:"by_status"`
	TopProjects   []repository.ProjectCount  `json:"top_projects"`
	TotalMessages int                        `json:"total_messages"`
	MessagesToday int                        `json:"messages_today"`
	ActiveGroups  int                        `json:"active_groups"`
	DailyActivity []repository.DailyActivity `json:"daily_activity"`
	GeneratedAt   time.Time                  `json:"generated_at"`
}

type DashboardUsecase struct {
	forms    formStats
	messages messageStats
	groups   groupStats
	activity activityStats
	now      func() time.Time
}

func NewDashboardUsecase(forms formStats, messages messageStats, groups groupStats, activity activityStats) *DashboardUsecase {
	return &DashboardUsecase{
		forms:    forms,
		messages: messages,
		groups:   groups,
		activity: activity,
		now:      time.Now,
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Stats collects the numbers shown on the admin dashboard
func (u *DashboardUsecase) Stats(ctx context.Context) (*DashboardStats, error) {
	now := u.now()
	today := startOfDay(now)
	weekAgo := today.AddDate(0, 0, -7)

	s := &DashboardStats{GeneratedAt: now}
	var err error

	if s.TotalForms, err = u.forms.Count(ctx); err != nil {
		return nil, err
	}
	if s.FormsToday, err = u.forms.CountSince(ctx, today); err != nil {
		return nil, err
	}
	if s.FormsThisWeek, err = u.forms.CountSince(ctx, weekAgo); err != nil {
		return nil, err
	}
	if s.ByStatus, err = u.forms.CountsByStatus(ctx); err != nil {
		return nil, err
	}
	for _, status := range []string{entities.FormStatusNew, entities.FormStatusProcessing, entities.FormStatusCompleted, entities.FormStatusRejected} {
		if _, ok := s.ByStatus[status]; !ok {
			s.ByStatus[status] = 0
		}
	}
	if s.TopProjects, err = u.forms.TopProjects(ctx, 5); err != nil {
		return nil, err
	}
	if s.TotalMessages, err = u.messages.Count(ctx); err != nil {
		return nil, err
	}
	if s.MessagesToday, err = u.messages.CountSince(ctx, today); err != nil {
		return nil, err
	}
	if s.ActiveGroups, err = u.groups.CountActive(ctx); err != nil {
		return nil, err
	}
	if s.DailyActivity, err = u.activity.Daily(ctx, 7); err != nil {
		return nil, err
	}

	return s, nil
}

// StatusText is the short plain-text summary sent to Telegram admins
func (u *DashboardUsecase) StatusText(ctx context.Context) (string, error) {
	s, err := u.Stats(ctx)
	if err != nil {
		return "", fmt.Errorf("load dashboard stats: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Forms today: %d (week: %d, total: %d)\n", s.FormsToday, s.FormsThisWeek, s.TotalForms)
	fmt.Fprintf(&sb, "New: %d, processing: %d, completed: %d\n",
		s.ByStatus[entities.FormStatusNew], s.ByStatus[entities.FormStatusProcessing], s.ByStatus[entities.FormStatusCompleted])
	fmt.Fprintf(&sb, "Messages today: %d\n", s.MessagesToday)
	fmt.Fprintf(&sb, "Active groups: %d", s.ActiveGroups)
	if len(s.TopProjects) > 0 {
		fmt.Fprintf(&sb, "\nTop project: %s (%d)", s.TopProjects[0].Project, s.TopProjects[0].Count)
	}
	return sb.String(), nil
}
