package httptransport

import (
	"context"
	"net/http"

	"rosterd/internal/directory"
	"rosterd/pkg/platform/httputil"
)

// DirectoryService is the member directory consumed by the transport.
type DirectoryService interface {
	Members(ctx context.Context) ([]directory.Member, error)
}

// DataHandler serves the protected directory endpoint.
type DataHandler struct {
	directory DirectoryService
}

func NewDataHandler(dir DirectoryService) *DataHandler {
	return &DataHandler{directory: dir}
}

func (h *DataHandler) handleMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.directory.Members(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, members)
}
