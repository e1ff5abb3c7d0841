package loadtest

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/avalia/internal/domain/model"
	"github.com/okian/avalia/internal/domain/types"
	"github.com/okian/avalia/pkg/logger"
)

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient) error {
	logger.Get().Info(ctx, "checking service health")

	var health struct {
		Status string           `json:"status"`
		Sync   types.SyncStatus `json:"sync"`
	}
	if _, err := client.Do(ctx, http.MethodGet, "/healthz", nil, &health, http.StatusOK); err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}

	logger.Get().Info(ctx, "service is healthy",
		logger.String("status", health.Status),
		logger.String("sync", health.Sync.State),
		logger.String("backend", health.Sync.Backend))
	return nil
}

// login checks the admin password before any structure is created.
func login(ctx context.Context, client *HTTPClient) error {
	body := map[string]string{"password": client.password}
	if _, err := client.Do(ctx, http.MethodPost, "/admin/login", body, nil, http.StatusOK); err != nil {
		return fmt.Errorf("admin login failed: %w", err)
	}
	return nil
}

// createFixture creates an open event with groups and members. Criteria are
// the defaults the service attaches to every new event.
func createFixture(ctx context.Context, client *HTTPClient, config *Config, stats *Stats) (*Fixture, error) {
	now := time.Now()
	var fx Fixture

	event := map[string]string{
		"name":             "Load test " + now.Format("2006-01-02 15:04:05"),
		"date":             now.Format(time.DateOnly),
		"responseDeadline": now.AddDate(0, 0, DeadlineDays).Format(time.DateOnly),
		"description":      "Created by the load test tool",
	}
	if _, err := client.Do(ctx, http.MethodPost, "/admin/events", event, &fx.Event, http.StatusCreated); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	logger.Get().Info(ctx, "event created", logger.String("eventId", fx.Event.ID))

	for i := range config.Groups {
		var g model.Group
		body := map[string]string{"name": "Group " + strconv.Itoa(i+1)}
		if _, err := client.Do(ctx, http.MethodPost, "/admin/events/"+fx.Event.ID+"/groups", body, &g, http.StatusCreated); err != nil {
			return nil, fmt.Errorf("create group %d: %w", i+1, err)
		}
		stats.GroupsCreated++

		for j := range config.MembersPerGroup {
			var m model.Member
			body := map[string]string{"name": "Member " + strconv.Itoa(i+1) + "." + strconv.Itoa(j+1)}
			if _, err := client.Do(ctx, http.MethodPost, "/admin/groups/"+g.ID+"/members", body, &m, http.StatusCreated); err != nil {
				return nil, fmt.Errorf("add member to %s: %w", g.ID, err)
			}
			g.Members = append(g.Members, m)
			stats.MembersCreated++
		}
		fx.Groups = append(fx.Groups, g)
	}

	var detail types.EventDetail
	if _, err := client.Do(ctx, http.MethodGet, "/events/"+fx.Event.ID, nil, &detail, http.StatusOK); err != nil {
		return nil, fmt.Errorf("load event detail: %w", err)
	}
	if detail.Closed {
		return nil, fmt.Errorf("event %s is closed right after creation", fx.Event.ID)
	}
	fx.Criteria = detail.Criteria

	logger.Get().Info(ctx, "fixture created",
		logger.Int("groups", stats.GroupsCreated),
		logger.Int("members", stats.MembersCreated),
		logger.Int("criteria", len(fx.Criteria)))
	return &fx, nil
}
