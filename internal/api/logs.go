package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/framebridge/internal/api/models"
	"github.com/smazurov/framebridge/internal/logging"
)

func (s *Server) registerLogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-logs",
		Method:      http.MethodGet,
		Path:        "/api/logs",
		Summary:     "Recent logs",
		Description: "Most recent entries from the in-memory log buffer",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{401, 422},
	}, func(_ context.Context, input *models.LogsInput) (*models.LogsResponse, error) {
		var entries []logging.LogEntry
		if input.Module == "" {
			entries = logging.Buffer().Tail(input.Limit)
		} else {
			for _, e := range logging.Buffer().ReadAll() {
				if e.Module == input.Module {
					entries = append(entries, e)
				}
			}
			if len(entries) > input.Limit {
				entries = entries[len(entries)-input.Limit:]
			}
		}
		if entries == nil {
			entries = []logging.LogEntry{}
		}
		return &models.LogsResponse{
			Body: models.LogsData{Entries: entries, Count: len(entries)},
		}, nil
	})
}
