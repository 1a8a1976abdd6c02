package app

import "sync"

// ScreenID identifies one state of the operator's navigation machine.
type ScreenID int

const (
	ScreenMain ScreenID = iota
	ScreenDeviceList
	ScreenDeviceDetail
	ScreenMessageList
	ScreenExportInProgress
	ScreenDeleted
)

// Session is the ephemeral navigation cursor for one operator. DeviceID is set
// only on device-scoped screens.
type Session struct {
	Current  ScreenID
	DeviceID string
}

// SessionStore owns the per-operator session map. There is a single fixed
// operator today, but sessions stay keyed by operator id so that does not leak
// into the handlers. Sessions are created on /start and never expire.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[int64]*Session)}
}

// Start creates (or resets) the session for an operator and places it on Main.
func (s *SessionStore) Start(operatorID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[operatorID] = &Session{Current: ScreenMain}
}

// Get returns a copy of the operator's session, if one exists.
func (s *SessionStore) Get(operatorID int64) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[operatorID]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// Set records a completed transition. It creates the session if the operator
// never issued /start, so a restart of the console does not strand the chat.
func (s *SessionStore) Set(operatorID int64, screen ScreenID, deviceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[operatorID]
	if !ok {
		sess = &Session{}
		s.sessions[operatorID] = sess
	}
	sess.Current = screen
	sess.DeviceID = deviceID
}
