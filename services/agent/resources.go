package agent

import (
	"context"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/ezenkico/deploy-commander/topology/models"
)

// Resource interactions
const agentResourcesPath = "/v1/resources"

func (a *AgentCommunication) CreateResource(
	ctx context.Context,
	resource models.CreateResource,
) (uuid.UUID, error) {
	var out struct {
		ID uuid.UUID `json:"id"`
	}
	if err := a.do(ctx, http.MethodPost, agentResourcesPath, resource, &out, http.StatusCreated); err != nil {
		return uuid.Nil, err
	}
	return out.ID, nil
}

// DeleteResourceByName removes a resource by name. Deleting one the agent
// does not know is not an error.
func (a *AgentCommunication) DeleteResourceByName(
	ctx context.Context,
	name string,
) error {
	return a.do(ctx, http.MethodDelete, agentResourcesPath+"/name/"+url.PathEscape(name), nil, nil,
		http.StatusNoContent, http.StatusNotFound)
}
