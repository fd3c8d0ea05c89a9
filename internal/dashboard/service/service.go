package service

import (
	"context"

	"github.com/squadboard/backend/internal/common/logger"
	userdomain "github.com/squadboard/backend/internal/user/domain"
)

type Activity struct {
	Title string `json:"title"`
	Time  string `json:"time"`
	Type  string `json:"type"`
}

type Summary struct {
	RecentMatches  int        `json:"recentMatches"`
	TeamMembers    int        `json:"teamMembers"`
	UpcomingEvents int        `json:"upcomingEvents"`
	RecentActivity []Activity `json:"recentActivity"`
}

type Profile struct {
	Username string `json:"username"`
}

// DashboardService serves the signed-in landing page. Figures are placeholders
// until team data is stored.
type DashboardService struct {
	log *logger.Logger
}

func NewDashboardService(log *logger.Logger) *DashboardService {
	return &DashboardService{log: log}
}

func (s *DashboardService) Profile(ctx context.Context, identity userdomain.Identity) Profile {
	s.log.WithFields(ctx, logger.Fields{
		"user_id": string(identity.ID),
		"action":  "profile_view",
	}).Debug("profile requested")
	return Profile{Username: identity.Username}
}

func (s *DashboardService) Summary(ctx context.Context, identity userdomain.Identity) Summary {
	s.log.WithFields(ctx, logger.Fields{
		"user_id": string(identity.ID),
		"action":  "dashboard_view",
	}).Debug("dashboard requested")

	return Summary{
		RecentMatches:  24,
		TeamMembers:    16,
		UpcomingEvents: 3,
		RecentActivity: []Activity{
			{Title: "Team Practice", Time: "2 hours ago", Type: "practice"},
			{Title: "Match vs Eagles", Time: "Yesterday", Type: "match"},
			{Title: "Strategy Meeting", Time: "2 days ago", Type: "meeting"},
		},
	}
}
