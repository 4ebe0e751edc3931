// Package presence reconciles client online/offline requests with the
// directory service and reports the outcome.
package presence

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/PratikDhanave/realtime-relay/internal/directory"
	"github.com/PratikDhanave/realtime-relay/internal/models"
	"github.com/PratikDhanave/realtime-relay/internal/realtime"
)

// DefaultTimeout bounds a single directory call.
const DefaultTimeout = 10 * time.Second

// timestampLayout is millisecond ISO-8601 in UTC.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// Directory updates presence in the system of record.
type Directory interface {
	SetPresence(ctx context.Context, userEmail, authToken string, state directory.State) (int, error)
}

// Bus delivers events to clients.
type Bus interface {
	PublishAll(e models.Event)
	PublishTo(c *realtime.Client, e models.Event)
}

// Request is one presence change attempt.
type Request struct {
	UserEmail string
	AuthToken string
	Target    directory.State
}

// Synchronizer handles presence requests. Concurrent requests for the same
// user are independent; the directory sees whichever call lands last.
type Synchronizer struct {
	dir     Directory
	bus     Bus
	timeout time.Duration
	now     func() time.Time
	logger  zerolog.Logger
}

// NewSynchronizer creates a synchronizer. A non-positive timeout selects
// DefaultTimeout.
func NewSynchronizer(dir Directory, bus Bus, timeout time.Duration, logger zerolog.Logger) *Synchronizer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Synchronizer{
		dir:     dir,
		bus:     bus,
		timeout: timeout,
		now:     time.Now,
		logger:  logger.With().Str("component", "presence").Logger(),
	}
}

// GoOnline marks the user online.
func (s *Synchronizer) GoOnline(ctx context.Context, requester *realtime.Client, userEmail, authToken string) {
	s.Sync(ctx, requester, Request{UserEmail: userEmail, AuthToken: authToken, Target: directory.Online})
}

// GoOffline marks the user offline.
func (s *Synchronizer) GoOffline(ctx context.Context, requester *realtime.Client, userEmail, authToken string) {
	s.Sync(ctx, requester, Request{UserEmail: userEmail, AuthToken: authToken, Target: directory.Offline})
}

// Sync runs one request: validate, call the directory once, then reply to
// the requester. On success every client is told to refresh conversations.
func (s *Synchronizer) Sync(ctx context.Context, requester *realtime.Client, req Request) {
	online := req.Target == directory.Online
	log := s.logger.With().Str("op", req.Target.String()).Str("user", req.UserEmail).Logger()

	if strings.TrimSpace(req.UserEmail) == "" || strings.TrimSpace(req.AuthToken) == "" {
		log.Warn().Msg("Rejected presence request without userEmail or authToken.")
		s.bus.PublishTo(requester, models.Error{
			Type:    "validation",
			Message: "userEmail and authToken are required",
		})
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	status, err := s.dir.SetPresence(callCtx, req.UserEmail, req.AuthToken, req.Target)
	if err != nil {
		class := directory.Classify(err)
		log.Error().Err(err).Str("type", class).Msg("Presence update failed.")
		s.bus.PublishTo(requester, models.PresenceError{
			Online:    online,
			UserEmail: req.UserEmail,
			Error:     err.Error(),
			Type:      class,
		})
		return
	}

	if status != http.StatusOK {
		log.Warn().Int("status", status).Msg("Presence update rejected by directory.")
		s.bus.PublishTo(requester, models.PresenceError{
			Online:    online,
			UserEmail: req.UserEmail,
			Error:     (&directory.StatusError{StatusCode: status}).Error(),
		})
		return
	}

	log.Info().Msg("Presence updated.")
	s.bus.PublishAll(models.RefreshConversations{})
	s.bus.PublishTo(requester, models.PresenceSuccess{
		Online:    online,
		UserEmail: req.UserEmail,
		Timestamp: s.now().UTC().Format(timestampLayout),
	})
}
