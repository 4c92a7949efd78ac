package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"matchgogo/backend/internal/cache"
	"matchgogo/backend/internal/geo"
	"matchgogo/backend/internal/models"
	"matchgogo/backend/internal/storage"

	"gorm.io/datatypes"
)

// Result is the outcome of one Advance call. User is set once the flow
// completes.
type Result struct {
	State State
	User  *models.User
}

type Service struct {
	store    storage.Storage
	cache    cache.Cache
	resolver *geo.Resolver
	log      *slog.Logger
	now      func() time.Time
}

func NewService(store storage.Storage, c cache.Cache, resolver *geo.Resolver, log *slog.Logger) *Service {
	return &Service{
		store:    store,
		cache:    c,
		resolver: resolver,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Get returns the profile of chatID through the cache.
func (s *Service) Get(ctx context.Context, chatID int64) (*models.User, error) {
	var cached models.User
	if ok, err := cache.GetJSON(ctx, s.cache, cache.UserKey(chatID), &cached); err == nil && ok {
		return &cached, nil
	}

	user, err := storage.RetryRead(func() (*models.User, error) {
		return s.store.GetUser(ctx, chatID)
	})
	if err != nil {
		return nil, err
	}
	if err := cache.SetJSON(ctx, s.cache, cache.UserKey(chatID), user); err != nil {
		s.log.Warn("cache profile", "chat_id", chatID, "err", err)
	}
	return user, nil
}

// Touch records activity. The cached profile is left alone; a stale
// last_active only shifts ranking recency within the TTL.
func (s *Service) Touch(ctx context.Context, chatID int64) error {
	return s.store.TouchLastActive(ctx, chatID, s.now())
}

// Invalidate drops every cached read derived from chatID's profile.
func (s *Service) Invalidate(ctx context.Context, chatID int64) {
	if err := s.cache.Delete(ctx, cache.UserKey(chatID)); err != nil {
		s.log.Warn("invalidate profile", "chat_id", chatID, "err", err)
	}
	if err := s.cache.DeletePrefix(ctx, cache.MatchesPrefix(chatID)); err != nil {
		s.log.Warn("invalidate matches", "chat_id", chatID, "err", err)
	}
}

// Session returns the pending setup or edit of chatID, or nil when there is none.
func (s *Service) Session(ctx context.Context, chatID int64) (*State, error) {
	row, err := storage.RetryRead(func() (*models.SessionState, error) {
		return s.store.GetSession(ctx, chatID)
	})
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	st := &State{Mode: Mode(row.Mode), Step: Step(row.Step)}
	if len(row.Data) > 0 {
		if err := json.Unmarshal(row.Data, &st.Draft); err != nil {
			return nil, fmt.Errorf("decode session %d: %w", chatID, err)
		}
	}
	if st.Mode != ModeEdit {
		st.Mode = ModeSetup
	}
	return st, nil
}

func (s *Service) save(ctx context.Context, chatID int64, st State) error {
	data, err := json.Marshal(st.Draft)
	if err != nil {
		return err
	}
	return s.store.SaveSession(ctx, &models.SessionState{
		ChatID: chatID,
		Mode:   string(st.Mode),
		Step:   string(st.Step),
		Data:   datatypes.JSON(data),
	})
}

// StartSetup begins (or restarts) the creation flow.
func (s *Service) StartSetup(ctx context.Context, chatID int64, handle, language string) (State, error) {
	st := State{
		Mode:  ModeSetup,
		Step:  StepName,
		Draft: Draft{Handle: handle, Language: language},
	}
	return st, s.save(ctx, chatID, st)
}

// StartEdit opens a single-field edit of an existing profile.
func (s *Service) StartEdit(ctx context.Context, chatID int64, field Step) (State, error) {
	if !field.Valid() || field == StepAgeManual {
		return State{}, fmt.Errorf("field %q is not editable", field)
	}
	if _, err := s.Get(ctx, chatID); err != nil {
		return State{}, err
	}
	st := State{Mode: ModeEdit, Step: field}
	return st, s.save(ctx, chatID, st)
}

// Cancel abandons the pending flow. It reports whether one existed.
func (s *Service) Cancel(ctx context.Context, chatID int64) (bool, error) {
	st, err := s.Session(ctx, chatID)
	if err != nil || st == nil {
		return false, err
	}
	return true, s.store.DeleteSession(ctx, chatID)
}

// Advance feeds one answer into the pending flow. Validation errors leave
// the session untouched and are returned with the unchanged state.
func (s *Service) Advance(ctx context.Context, chatID int64, in Input) (Result, error) {
	st, err := s.Session(ctx, chatID)
	if err != nil {
		return Result{}, err
	}
	if st == nil {
		return Result{}, ErrNoSession
	}

	if st.Step == StepLocation && in.Kind == InputLocation {
		if err := geo.ValidCoords(in.Lat, in.Lon); err != nil {
			return Result{State: *st}, ErrInvalidLocation
		}
		in.Text = s.resolver.Reverse(ctx, in.Lat, in.Lon)
	}

	next, err := Apply(*st, in)
	if err != nil {
		return Result{State: *st}, err
	}
	if !next.Done() {
		return Result{State: next}, s.save(ctx, chatID, next)
	}

	var user *models.User
	if next.Mode == ModeEdit {
		user, err = s.completeEdit(ctx, chatID, st.Step, next.Draft)
	} else {
		user, err = s.completeSetup(ctx, chatID, next.Draft)
	}
	if err != nil {
		return Result{State: *st}, err
	}
	return Result{State: next, User: user}, nil
}

func (s *Service) completeSetup(ctx context.Context, chatID int64, d Draft) (*models.User, error) {
	s.resolveLazily(ctx, &d)

	user := &models.User{
		ChatID:     chatID,
		Handle:     d.Handle,
		Name:       d.Name,
		Age:        d.Age,
		Gender:     d.Gender,
		Location:   d.Location,
		Lat:        d.Lat,
		Lon:        d.Lon,
		PhotoID:    d.PhotoID,
		Interests:  d.Interests,
		Intent:     d.Intent,
		Language:   d.Language,
		LastActive: s.now(),
	}
	if err := s.store.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	if err := s.store.DeleteSession(ctx, chatID); err != nil {
		s.log.Warn("delete finished session", "chat_id", chatID, "err", err)
	}
	s.Invalidate(ctx, chatID)
	s.log.Info("profile created", "chat_id", chatID)
	return user, nil
}

func (s *Service) completeEdit(ctx context.Context, chatID int64, field Step, d Draft) (*models.User, error) {
	user, err := s.store.GetUser(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if field == StepLocation {
		s.resolveLazily(ctx, &d)
	}
	ApplyField(user, field, d)
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	if err := s.store.DeleteSession(ctx, chatID); err != nil {
		s.log.Warn("delete finished session", "chat_id", chatID, "err", err)
	}
	s.Invalidate(ctx, chatID)
	s.log.Info("profile edited", "chat_id", chatID, "field", field)
	return user, nil
}

// resolveLazily geocodes free-text locations that were stored without
// coordinates during the flow.
func (s *Service) resolveLazily(ctx context.Context, d *Draft) {
	if d.Lat != nil && d.Lon != nil {
		return
	}
	if d.Location == "" || d.Location == LocationSkipped {
		return
	}
	p := s.resolver.ParseLocation(ctx, d.Location)
	d.Lat, d.Lon = p.Lat, p.Lon
	if p.HasCoords() {
		d.Location = p.Display
	}
}
