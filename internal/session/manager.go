package session

// Manager exposes the service to callers that track sessions by ID only,
// such as the token layer. It carries no state beyond the service itself.
type Manager struct {
	svc *Service
}

func NewManager(svc *Service) *Manager {
	return &Manager{svc: svc}
}

func (m *Manager) Create(userID int64, ipAddress, userAgent string) (string, error) {
	s, err := m.svc.Create(userID, ipAddress, userAgent)
	if err != nil {
		return "", err
	}
	return s.ID, nil
}

func (m *Manager) Validate(sessionID string) error {
	_, err := m.svc.Validate(sessionID)
	return err
}

// Refresh extends the session and returns its current ID, which changes when
// rotation is enabled.
func (m *Manager) Refresh(sessionID, ipAddress string) (string, error) {
	s, err := m.svc.Refresh(sessionID, ipAddress)
	if err != nil {
		return "", err
	}
	return s.ID, nil
}

func (m *Manager) Invalidate(sessionID string) error {
	return m.svc.Invalidate(sessionID)
}

func (m *Manager) InvalidateAll(userID int64) error {
	return m.svc.InvalidateAll(userID)
}
