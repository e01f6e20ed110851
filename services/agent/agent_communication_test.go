package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezenkico/deploy-commander/topology/models"
)

func TestNewAgentCommunication(t *testing.T) {
	tests := []struct {
		endpoint string
		wantType string
		wantBase string
		wantErr  bool
	}{
		{endpoint: "unix:///var/run/agent.sock", wantType: "unix", wantBase: "http://agent"},
		{endpoint: "tcp://agent.local:8080", wantType: "tcp", wantBase: "http://agent.local:8080"},
		{endpoint: "tcp://", wantErr: true},
		{endpoint: "unix://", wantErr: true},
		{endpoint: "https://agent.local", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			ac, err := NewAgentCommunication(tt.endpoint)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, ac.Type)
			assert.Equal(t, tt.wantBase, ac.BaseURL)
		})
	}
}

func TestNewAgentCommunicationFromEnv(t *testing.T) {
	env := func(vars map[string]string) func(string) (string, bool) {
		return func(k string) (string, bool) {
			v, ok := vars[k]
			return v, ok
		}
	}

	_, err := NewAgentCommunicationFromEnv(env(nil))
	assert.True(t, errors.Is(err, ErrNotConfigured))

	_, err = NewAgentCommunicationFromEnv(env(map[string]string{EnvEndpoint: "tcp://agent:1"}))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotConfigured))

	ac, err := NewAgentCommunicationFromEnv(env(map[string]string{EnvEndpoint: " tcp://agent:1 ", EnvToken: "secret"}))
	require.NoError(t, err)
	assert.Equal(t, "secret", ac.Token)
	assert.Equal(t, "agent:1", ac.HostPort)
}

// agentServer is a fake agent that stores created resources by name.
type agentServer struct {
	created map[string]models.CreateResource
	deleted []string
	ids     map[string]uuid.UUID
}

func newAgentServer(t *testing.T) (*agentServer, *AgentCommunication) {
	t.Helper()
	a := &agentServer{created: map[string]models.CreateResource{}, ids: map[string]uuid.UUID{}}

	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if req.Header.Get("Authorization") != "Bearer secret" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, req)
		})
	})
	r.HandleFunc("/v1/resources", func(w http.ResponseWriter, req *http.Request) {
		var res models.CreateResource
		if err := json.NewDecoder(req.Body).Decode(&res); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if _, ok := a.created[res.Name]; ok {
			http.Error(w, "resource exists", http.StatusConflict)
			return
		}
		id := uuid.New()
		a.created[res.Name] = res
		a.ids[res.Name] = id
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]uuid.UUID{"id": id})
	}).Methods(http.MethodPost)
	r.HandleFunc("/v1/resources/name/{name}", func(w http.ResponseWriter, req *http.Request) {
		name := mux.Vars(req)["name"]
		if _, ok := a.created[name]; !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		delete(a.created, name)
		a.deleted = append(a.deleted, name)
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodDelete)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	ac, err := NewAgentCommunication("tcp://" + strings.TrimPrefix(srv.URL, "http://"))
	require.NoError(t, err)
	ac.Token = "secret"
	return a, ac
}

func shopTopology() *models.Topology {
	return &models.Topology{
		Stack:   "shop",
		Cluster: models.Cluster{Name: "shop-cluster"},
		Router: models.Router{
			Name:    "shop-router",
			Address: "shop-router-1.elb.amazonaws.com",
			Rules: []*models.RoutingRule{
				{Service: "users", PathPattern: "/api/users*", Priority: 10},
				{Service: "orders", PathPattern: "/api/orders*", Priority: 20},
			},
		},
	}
}

func TestRouterResource(t *testing.T) {
	res, err := RouterResource(shopTopology(), "aws")
	require.NoError(t, err)
	assert.Equal(t, ResourceTypeRouter, res.ResourceType)
	assert.Equal(t, "shop-router", res.Name)
	assert.Nil(t, res.PlatformConnection)
	assert.Equal(t, "shop-router-1.elb.amazonaws.com", *res.PublicConnection.Address)
	assert.Equal(t, uint16(443), *res.PublicConnection.Port)

	var meta models.RouterResourceMetadata
	require.NoError(t, json.Unmarshal(res.Metadata, &meta))
	assert.Equal(t, models.RouterResourceMetadata{
		Stack:    "shop",
		Platform: "aws",
		Routes:   map[string]string{"/api/users*": "users", "/api/orders*": "orders"},
	}, meta)

	res, err = RouterResource(shopTopology(), "docker")
	require.NoError(t, err)
	require.NotNil(t, res.PlatformConnection)
	assert.JSONEq(t, `{"network":"shop-cluster"}`, string(*res.PlatformConnection))
}

func TestReportRouterReplaces(t *testing.T) {
	server, ac := newAgentServer(t)
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	r := NewReporter(ac, logrus.NewEntry(log))
	ctx := context.Background()

	first, err := r.ReportRouter(ctx, shopTopology(), "aws")
	require.NoError(t, err)
	assert.Equal(t, server.ids["shop-router"], first)
	assert.Empty(t, server.deleted)

	second, err := r.ReportRouter(ctx, shopTopology(), "aws")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.Equal(t, []string{"shop-router"}, server.deleted)

	require.NoError(t, r.RemoveRouter(ctx, "shop-router"))
	assert.Empty(t, server.created)
	// already gone
	require.NoError(t, r.RemoveRouter(ctx, "shop-router"))
}

func TestStatusError(t *testing.T) {
	_, ac := newAgentServer(t)
	ac.Token = "wrong"

	_, err := ac.CreateResource(context.Background(), models.CreateResource{Name: "x"})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.Code)
	assert.Equal(t, "unauthorized", se.Body)
}
