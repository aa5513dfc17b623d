package sync

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) pushOp() huma.Operation {
	return huma.Operation{
		OperationID:   "sync-push",
		Method:        http.MethodPost,
		Path:          "/api/sync/push",
		Summary:       "Apply one queued client change",
		Description:   "Creates, updates or tombstones a record. Composite fields sent as JSON strings are stored as native JSON.",
		Tags:          []string{"sync"},
		Middlewares:   h.middleware,
		DefaultStatus: http.StatusOK,
		Errors:        []int{http.StatusUnprocessableEntity, http.StatusInternalServerError},
	}
}

func (h *Handler) pullOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-pull",
		Method:      http.MethodPost,
		Path:        "/api/sync/pull",
		Summary:     "Changes since the client cursor",
		Description: "Returns records per table changed after lastSyncAt. Tombstones are included only for incremental pulls.",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
		Errors:      []int{http.StatusInternalServerError},
	}
}

func (h *Handler) statusOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-status",
		Method:      http.MethodGet,
		Path:        "/api/sync/status",
		Summary:     "Server time and record counts for the tenant",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}
