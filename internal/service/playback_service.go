package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tutorcast/api/internal/model"
	"github.com/tutorcast/api/internal/playback"
	"github.com/tutorcast/api/internal/session"
)

// TokenSigner issues and checks viewer tokens
type TokenSigner interface {
	Issue(sessionID, projectID, mode string) (string, time.Time, error)
	Verify(token string) (*session.Claims, error)
}

// SessionBroadcaster relays playback events to live subscribers
type SessionBroadcaster interface {
	BroadcastSession(sessionID, event string, state model.PlaybackState, data interface{})
}

// PlaybackService hosts playback engines. Engines are rebuilt from their
// stored snapshot on every request, so requests for one session are
// serialized and requests for different sessions run in parallel.
type PlaybackService struct {
	store    session.Store
	projects ProjectSource
	tokens   TokenSigner
	events   SessionBroadcaster
	log      logrus.FieldLogger
	now      func() time.Time
	locks    *keyedMutex
}

type PlaybackServiceConfig struct {
	Store    session.Store
	Projects ProjectSource
	Tokens   TokenSigner
	Events   SessionBroadcaster
	Logger   logrus.FieldLogger
	Clock    func() time.Time
}

func NewPlaybackService(cfg PlaybackServiceConfig) *PlaybackService {
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	return &PlaybackService{
		store:    cfg.Store,
		projects: cfg.Projects,
		tokens:   cfg.Tokens,
		events:   cfg.Events,
		log:      cfg.Logger,
		now:      now,
		locks:    newKeyedMutex(),
	}
}

// StartSession loads a project into a fresh engine and issues the viewer token
func (s *PlaybackService) StartSession(ctx context.Context, req *model.SessionStartRequest) (*model.SessionStartResponse, error) {
	p := req.Project
	if p == nil {
		var err error
		p, err = s.projects.GetProject(ctx, req.ProjectID)
		if err != nil {
			return nil, err
		}
	}

	id := uuid.New().String()
	var events []playback.Event
	cfg := playback.Config{
		SessionID: id,
		Clock:     s.now,
		Listener:  func(ev playback.Event) { events = append(events, ev) },
	}
	if req.Viewport != nil {
		cfg.Viewport = *req.Viewport
	}

	e := playback.New(cfg)
	if err := e.Load(p); err != nil {
		return nil, err
	}
	if err := e.SetMode(req.Mode); err != nil {
		return nil, err
	}

	rec := &session.Record{
		ID:        id,
		ProjectID: p.ID,
		Project:   e.Project(),
		Snapshot:  e.Snapshot(),
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	token, exp, err := s.tokens.Issue(id, p.ID, string(req.Mode))
	if err != nil {
		if derr := s.store.Delete(ctx, id); derr != nil {
			s.log.WithError(derr).WithField("sessionId", id).Warn("failed to remove session after token error")
		}
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"sessionId": id,
		"projectId": p.ID,
		"mode":      req.Mode,
	}).Info("playback session started")
	s.publish(id, events)

	return &model.SessionStartResponse{
		SessionResponse: view(e),
		Token:           token,
		ExpiresAt:       exp,
	}, nil
}

// GetSession returns the viewer-facing state of a session
func (s *PlaybackService) GetSession(ctx context.Context, id string) (*model.SessionResponse, error) {
	var out model.SessionResponse
	err := s.withEngine(ctx, id, false, func(e *playback.Engine) error {
		out = view(e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Pointer hit-tests a pointer event against the current step
func (s *PlaybackService) Pointer(ctx context.Context, id string, req *model.PointerRequest) (*model.Feedback, error) {
	var fb model.Feedback
	err := s.withEngine(ctx, id, true, func(e *playback.Engine) error {
		fb = e.OnPointerEvent(req.X, req.Y)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &fb, nil
}

// Tick advances the time-driven layers to the reported video time
func (s *PlaybackService) Tick(ctx context.Context, id string, req *model.TickRequest) (*model.TickResult, error) {
	var res model.TickResult
	err := s.withEngine(ctx, id, true, func(e *playback.Engine) error {
		res = e.OnTick(req.CurrentTimeMs)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Answer records an answer to a question
func (s *PlaybackService) Answer(ctx context.Context, id string, req *model.AnswerRequest) (*model.AnswerResult, error) {
	var res model.AnswerResult
	err := s.withEngine(ctx, id, true, func(e *playback.Engine) error {
		var err error
		res, err = e.SubmitAnswer(req.QuestionID, req.Option)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Advance moves past a solved step held for confirmation
func (s *PlaybackService) Advance(ctx context.Context, id string) (*model.Feedback, error) {
	var fb model.Feedback
	err := s.withEngine(ctx, id, true, func(e *playback.Engine) error {
		fb = e.Advance()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &fb, nil
}

// Resize updates the viewport used to convert pixel tolerances
func (s *PlaybackService) Resize(ctx context.Context, id string, req *model.ViewportRequest) (*model.SessionResponse, error) {
	var out model.SessionResponse
	err := s.withEngine(ctx, id, true, func(e *playback.Engine) error {
		if err := e.Resize(model.Viewport{Width: req.Width, Height: req.Height}); err != nil {
			return err
		}
		out = view(e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// EndSession discards a session. Nothing about it survives.
func (s *PlaybackService) EndSession(ctx context.Context, id string) (*model.SessionDeleteResponse, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	if err := s.store.Delete(ctx, id); err != nil {
		return nil, err
	}
	s.log.WithField("sessionId", id).Info("playback session discarded")
	if s.events != nil {
		s.events.BroadcastSession(id, "discarded", model.StateIdle, nil)
	}
	return &model.SessionDeleteResponse{Success: true, SessionID: id}, nil
}

// VerifyToken checks that a viewer token is bound to sessionID
func (s *PlaybackService) VerifyToken(token, sessionID string) error {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return err
	}
	if claims.SessionID != sessionID {
		return fmt.Errorf("%w: bound to another session", session.ErrInvalidToken)
	}
	return nil
}

// withEngine restores the session's engine, runs fn and persists the
// resulting snapshot when save is set. Events are published only after the
// snapshot is stored.
func (s *PlaybackService) withEngine(ctx context.Context, id string, save bool, fn func(e *playback.Engine) error) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}

	var events []playback.Event
	e, err := playback.Restore(rec.Project, rec.Snapshot, playback.Config{
		Clock:    s.now,
		Listener: func(ev playback.Event) { events = append(events, ev) },
	})
	if err != nil {
		// the stored project passed Load once; failing now means the record is corrupt
		if errors.Is(err, playback.ErrProjectMalformed) {
			s.log.WithError(err).WithField("sessionId", id).Error("stored session no longer loads")
		}
		return err
	}

	if err := fn(e); err != nil {
		return err
	}
	if !save {
		return nil
	}

	rec.Snapshot = e.Snapshot()
	if err := s.store.Save(ctx, rec); err != nil {
		return err
	}
	s.publish(id, events)
	return nil
}

func (s *PlaybackService) publish(id string, events []playback.Event) {
	for _, ev := range events {
		s.log.WithFields(logrus.Fields{
			"sessionId": id,
			"event":     ev.Type,
			"state":     ev.State,
		}).Debug("playback event")
		if s.events != nil {
			s.events.BroadcastSession(id, ev.Type, ev.State, ev)
		}
	}
}

func view(e *playback.Engine) model.SessionResponse {
	return model.SessionResponse{
		Session:  e.GetSession(),
		State:    e.State(),
		Prompt:   e.Prompt(),
		Viewport: e.Viewport(),
	}
}
