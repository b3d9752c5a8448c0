// Package shardserver exposes a domain.ShardClient implementation as an
// HTTP API matching the wire protocol internal/shardclient speaks. A
// shardnode process wraps an accessmanager.MemoryShardClient (or any other
// domain.ShardClient) in a Server and serves it, the same relationship the
// teacher's cmd/node has to its shard.Shard storage.
package shardserver

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dreamware/applicationaccess-coordinator/internal/domain"
)

// Server adapts a domain.ShardClient to http.Handler.
type Server struct {
	backend domain.ShardClient
	log     zerolog.Logger
	mux     *http.ServeMux
}

// New returns a Server routing requests to backend.
func New(backend domain.ShardClient, log zerolog.Logger) *Server {
	s := &Server{backend: backend, log: log}
	s.mux = http.NewServeMux()
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func (s *Server) routes() {
	s.mux.HandleFunc("/users", s.users)
	s.mux.HandleFunc("/users/exists", s.containsUser)
	s.mux.HandleFunc("/groups", s.groups)
	s.mux.HandleFunc("/groups/exists", s.containsGroup)
	s.mux.HandleFunc("/userToGroupMappings", s.userToGroupMappings)
	s.mux.HandleFunc("/groupToGroupMappings", s.groupToGroupMappings)
	s.mux.HandleFunc("/userComponentAccess", s.userComponentAccess)
	s.mux.HandleFunc("/groupComponentAccess", s.groupComponentAccess)
	s.mux.HandleFunc("/componentAccess/exists", s.hasComponentAccess)
	s.mux.HandleFunc("/entityTypes", s.entityTypes)
	s.mux.HandleFunc("/entities", s.entities)
	s.mux.HandleFunc("/userEntityAccess", s.userEntityAccess)
	s.mux.HandleFunc("/groupEntityAccess", s.groupEntityAccess)
	s.mux.HandleFunc("/entityAccess/exists", s.hasEntityAccess)
	s.mux.HandleFunc("/health", s.health)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.log.Error().Err(err).Msg("shard operation failed")
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func decode(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

type existsResponse struct {
	Exists bool `json:"exists"`
}

type listResponse struct {
	Items []string `json:"items"`
}

type componentAccessResponse struct {
	Items []domain.ComponentAccess `json:"items"`
}

type entityAccessResponse struct {
	Items []domain.EntityAccess `json:"items"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, map[string]string{"status": "healthy"})
}

func (s *Server) users(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		users, err := s.backend.GetUsers(ctx)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, listResponse{Items: users})
	case http.MethodPost:
		var body struct {
			User string `json:"user"`
		}
		if err := decode(r, &body); err != nil {
			s.writeError(w, err)
			return
		}
		if err := s.backend.AddUser(ctx, body.User); err != nil {
			s.writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		var body struct {
			User string `json:"user"`
		}
		if err := decode(r, &body); err != nil {
			s.writeError(w, err)
			return
		}
		if err := s.backend.RemoveUser(ctx, body.User); err != nil {
			s.writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) containsUser(w http.ResponseWriter, r *http.Request) {
	ok, err := s.backend.ContainsUser(r.Context(), r.URL.Query().Get("user"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, existsResponse{Exists: ok})
}

func (s *Server) groups(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		groups, err := s.backend.GetGroups(ctx)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, listResponse{Items: groups})
	case http.MethodPost:
		var body struct {
			Group string `json:"group"`
		}
		if err := decode(r, &body); err != nil {
			s.writeError(w, err)
			return
		}
		if err := s.backend.AddGroup(ctx, body.Group); err != nil {
			s.writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		var body struct {
			Group string `json:"group"`
		}
		if err := decode(r, &body); err != nil {
			s.writeError(w, err)
			return
		}
		if err := s.backend.RemoveGroup(ctx, body.Group); err != nil {
			s.writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) containsGroup(w http.ResponseWriter, r *http.Request) {
	ok, err := s.backend.ContainsGroup(r.Context(), r.URL.Query().Get("group"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, existsResponse{Exists: ok})
}

func (s *Server) userToGroupMappings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		groups, err := s.backend.GetUserToGroupMappings(ctx, r.URL.Query().Get("user"))
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, listResponse{Items: groups})
	case http.MethodPost:
		var body struct{ User, Group string }
		if err := decode(r, &body); err != nil {
			s.writeError(w, err)
			return
		}
		if err := s.backend.AddUserToGroupMapping(ctx, body.User, body.Group); err != nil {
			s.writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		var body struct{ User, Group string }
		if err := decode(r, &body); err != nil {
			s.writeError(w, err)
			return
		}
		if err := s.backend.RemoveUserToGroupMapping(ctx, body.User, body.Group); err != nil {
			s.writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) groupToGroupMappings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		parents, err := s.backend.GetGroupToGroupMappings(ctx, r.URL.Query().Get("group"))
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, listResponse{Items: parents})
	case http.MethodPost:
		var body struct{ FromGroup, ToGroup string }
		if err := decode(r, &body); err != nil {
			s.writeError(w, err)
			return
		}
		if err := s.backend.AddGroupToGroupMapping(ctx, body.FromGroup, body.ToGroup); err != nil {
			s.writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		var body struct{ FromGroup, ToGroup string }
		if err := decode(r, &body); err != nil {
			s.writeError(w, err)
			return
		}
		if err := s.backend.RemoveGroupToGroupMapping(ctx, body.FromGroup, body.ToGroup); err != nil {
			s.writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) userComponentAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		items, err := s.backend.GetApplicationComponentsAccessibleByUser(ctx, r.URL.Query().Get("user"))
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, componentAccessResponse{Items: items})
	case http.MethodPost:
		var body struct{ User, Component, AccessLevel string }
		if err := decode(r, &body); err != nil {
			s.writeError(w, err)
			return
		}
		if err := s.backend.AddUserToApplicationComponentAndAccessLevelMapping(ctx, body.User, body.Component, body.AccessLevel); err != nil {
			s.writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		var body struct{ User, Component, AccessLevel string }
		if err := decode(r, &body); err != nil {
			s.writeError(w, err)
			return
		}
		if err := s.backend.RemoveUserToApplicationComponentAndAccessLevelMapping(ctx, body.User, body.Component, body.AccessLevel); err != nil {
			s.writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) groupComponentAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		items, err := s.backend.GetApplicationComponentsAccessibleByGroup(ctx, r.URL.Query().Get("group"))
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, componentAccessResponse{Items: items})
	case http.MethodPost:
		var body struct{ Group, Component, AccessLevel string }
		if err := decode(r, &body); err != nil {
			s.writeError(w, err)
			return
		}
		if err := s.backend.AddGroupToApplicationComponentAndAccessLevelMapping(ctx, body.Group, body.Component, body.AccessLevel); err != nil {
			s.writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		var body struct{ Group, Component, AccessLevel string }
		if err := decode(r, &body); err != nil {
			s.writeError(w, err)
			return
		}
		if err := s.backend.RemoveGroupToApplicationComponentAndAccessLevelMapping(ctx, body.Group, body.Component, body.AccessLevel); err != nil {
			s.writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) hasComponentAccess(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ok, err := s.backend.HasAccessToApplicationComponent(r.Context(), q.Get("principal"), q.Get("component"), q.Get("accessLevel"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, existsResponse{Exists: ok})
}

func (s *Server) entityTypes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		types, err := s.backend.GetEntityTypes(ctx)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, listResponse{Items: types})
	case http.MethodPost:
		var body struct{ EntityType string }
		if err := decode(r, &body); err != nil {
			s.writeError(w, err)
			return
		}
		if err := s.backend.AddEntityType(ctx, body.EntityType); err != nil {
			s.writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		var body struct{ EntityType string }
		if err := decode(r, &body); err != nil {
			s.writeError(w, err)
			return
		}
		if err := s.backend.RemoveEntityType(ctx, body.EntityType); err != nil {
			s.writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) entities(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodPost:
		var body struct{ EntityType, Entity string }
		if err := decode(r, &body); err != nil {
			s.writeError(w, err)
			return
		}
		if err := s.backend.AddEntity(ctx, body.EntityType, body.Entity); err != nil {
			s.writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		var body struct{ EntityType, Entity string }
		if err := decode(r, &body); err != nil {
			s.writeError(w, err)
			return
		}
		if err := s.backend.RemoveEntity(ctx, body.EntityType, body.Entity); err != nil {
			s.writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) userEntityAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		items, err := s.backend.GetEntitiesAccessibleByUser(ctx, r.URL.Query().Get("user"))
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, entityAccessResponse{Items: items})
	case http.MethodPost:
		var body struct{ User, EntityType, Entity string }
		if err := decode(r, &body); err != nil {
			s.writeError(w, err)
			return
		}
		if err := s.backend.AddUserToEntityMapping(ctx, body.User, body.EntityType, body.Entity); err != nil {
			s.writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		var body struct{ User, EntityType, Entity string }
		if err := decode(r, &body); err != nil {
			s.writeError(w, err)
			return
		}
		if err := s.backend.RemoveUserToEntityMapping(ctx, body.User, body.EntityType, body.Entity); err != nil {
			s.writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) groupEntityAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		items, err := s.backend.GetEntitiesAccessibleByGroup(ctx, r.URL.Query().Get("group"))
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, entityAccessResponse{Items: items})
	case http.MethodPost:
		var body struct{ Group, EntityType, Entity string }
		if err := decode(r, &body); err != nil {
			s.writeError(w, err)
			return
		}
		if err := s.backend.AddGroupToEntityMapping(ctx, body.Group, body.EntityType, body.Entity); err != nil {
			s.writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		var body struct{ Group, EntityType, Entity string }
		if err := decode(r, &body); err != nil {
			s.writeError(w, err)
			return
		}
		if err := s.backend.RemoveGroupToEntityMapping(ctx, body.Group, body.EntityType, body.Entity); err != nil {
			s.writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) hasEntityAccess(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ok, err := s.backend.HasAccessToEntity(r.Context(), q.Get("principal"), q.Get("entityType"), q.Get("entity"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, existsResponse{Exists: ok})
}
