package sync

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"offsync/internal/app/server/api/http/middleware/tenant"
	"offsync/internal/domain/replica"
	engine "offsync/internal/domain/sync"
)

type Handler struct {
	service    replica.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service replica.Servicer, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log.With(slog.String("component", "sync_handler")),
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.pushOp(), h.push)
	huma.Register(api, h.pullOp(), h.pull)
	huma.Register(api, h.statusOp(), h.status)
}

func (h *Handler) push(ctx context.Context, input *pushInput) (*pushOutput, error) {
	err := h.service.Push(ctx, tenant.FromContext(ctx), engine.PushPayload{
		TableName: input.Body.TableName,
		RecordID:  input.Body.RecordID,
		Action:    engine.Action(input.Body.Action),
		Data:      input.Body.Data,
	})
	if err != nil {
		return nil, h.toHTTP(err)
	}

	return &pushOutput{Body: PushResponse{Status: "Ok"}}, nil
}

func (h *Handler) pull(ctx context.Context, input *pullInput) (*pullOutput, error) {
	changes, err := h.service.Pull(ctx, tenant.FromContext(ctx), engine.PullRequest{
		LastSyncAt: input.Body.LastSyncAt,
		Tables:     input.Body.Tables,
	})
	if err != nil {
		return nil, h.toHTTP(err)
	}

	return &pullOutput{
		ServerTime: changes.ServerTime.UTC().Format(time.RFC3339Nano),
		Body:       changes.Tables,
	}, nil
}

func (h *Handler) status(ctx context.Context, _ *statusInput) (*statusOutput, error) {
	st, err := h.service.Status(ctx, tenant.FromContext(ctx))
	if err != nil {
		return nil, h.toHTTP(err)
	}

	return &statusOutput{Body: StatusResponse{
		Tenant:     st.Tenant,
		ServerTime: st.ServerTime,
		Tables:     st.Tables,
	}}, nil
}

// toHTTP отказ в записи отдается клиенту как 422 с причиной, остальное как 500
func (h *Handler) toHTTP(err error) error {
	if replica.IsValidation(err) {
		return huma.Error422UnprocessableEntity(err.Error())
	}
	h.log.Error("sync request failed", slog.String("error", err.Error()))
	return huma.Error500InternalServerError(err.Error())
}
