package assistant

import (
	"sync"

	"github.com/google/uuid"

	"github.com/joelkehle/grant-agency/internal/workspace"
)

// session carries per-conversation state: the in-memory copy of the active
// profile, kept consistent with the store by applying merged (not raw
// extracted) values after each update.
type session struct {
	ConversationID string
	Profile        *workspace.Profile
	ProfileLoaded  bool
}

type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*session)}
}

// reset drops all sessions. Called when the active profile changes outside
// the chat loop, so stale per-conversation copies are not served.
func (s *sessionStore) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string]*session)
}

// get returns the session for the given conversation, creating one (and a
// fresh conversation id when none was supplied).
func (s *sessionStore) get(conversationID string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conversationID == "" {
		conversationID = uuid.NewString()
	}
	sess, ok := s.sessions[conversationID]
	if !ok {
		sess = &session{ConversationID: conversationID}
		s.sessions[conversationID] = sess
	}
	return sess
}
