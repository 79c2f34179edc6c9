package spinwheel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// State is a step of the booth session
type State int

const (
	StateLanding State = iota
	StateForm
	StateSpin
	StateSuccess
	StateAlreadyPlayed
)

func (s State) String() string {
	switch s {
	case StateLanding:
		return "landing"
	case StateForm:
		return "form"
	case StateSpin:
		return "spin"
	case StateSuccess:
		return "success"
	case StateAlreadyPlayed:
		return "already_played"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// IsTerminal reports whether no further transition leaves s.
func (s State) IsTerminal() bool { return s == StateSuccess || s == StateAlreadyPlayed }

// SpinPlan is what the presentation layer needs to animate a spin. The reward
// is fixed before the rotation is computed and never changes afterwards.
type SpinPlan struct {
	Reward         Reward        `json:"reward"`
	Index          int           `json:"index"`
	ExtraTurns     int           `json:"extra_turns"`
	TargetRotation float64       `json:"target_rotation"`
	Duration       time.Duration `json:"duration"`
}

// SessionView is the output surface of a session
type SessionView struct {
	ID              string    `json:"id"`
	State           State     `json:"state"`
	ParticipantName string    `json:"participant_name,omitempty"`
	Plan            *SpinPlan `json:"plan,omitempty"`   // set once the spin has started
	Reward          *Reward   `json:"reward,omitempty"` // set on success
	AlreadyPlayed   bool      `json:"already_played"`
	PriorReward     string    `json:"prior_reward,omitempty"`
	Recorded        bool      `json:"recorded"`
	Warning         string    `json:"warning,omitempty"`
}

// sessionSettings is the booth configuration captured when a session is created.
type sessionSettings struct {
	selector      *RewardSelector
	turnsSource   RandomSource
	minTurns      int
	maxTurns      int
	spinDuration  time.Duration
	spinLockTTL   time.Duration
	commitTimeout time.Duration
	scheduler     Scheduler
	logger        Logger
}

// Session drives one visitor through landing, form, spin and success.
// All methods are safe for concurrent use.
type Session struct {
	id        string
	createdAt time.Time
	booth     *Booth
	settings  sessionSettings

	mu          sync.Mutex
	state       State
	participant *Participant
	prior       *SpinOutcome
	plan        *SpinPlan
	spinning    bool
	leaseToken  string
	reward      *Reward
	recorded    bool
	warning     string

	done         chan struct{}
	doneOnce     sync.Once
	completeOnce sync.Once
}

func newSession(id string, booth *Booth, settings sessionSettings) *Session {
	return &Session{
		id:        id,
		createdAt: time.Now(),
		booth:     booth,
		settings:  settings,
		state:     StateLanding,
		done:      make(chan struct{}),
	}
}

// ID returns the session ID
func (s *Session) ID() string { return s.id }

// CreatedAt returns when the session was created
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// State returns the current state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done is closed when the session reaches a terminal state.
func (s *Session) Done() <-chan struct{} { return s.done }

// Start moves the session from Landing to Form.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateLanding {
		return s.transitionError("start")
	}
	s.state = StateForm
	return nil
}

// Submit registers the lead and, unless the participant has already played,
// moves the session into Spin with its reward fixed. An already played
// participant moves to StateAlreadyPlayed instead and Submit returns nil.
// On any error the session stays in Form and Submit may be retried.
func (s *Session) Submit(ctx context.Context, lead *Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateForm {
		return s.transitionError("submit")
	}

	b := s.booth
	if err := ValidateLead(b.validator, lead); err != nil {
		return err
	}
	contactKey, err := NormalizeContactKey(lead.WorkEmail)
	if err != nil {
		return err
	}

	reg, err := b.ledger.RegisterOrResume(ctx, contactKey, lead.FullName, lead.ContactDetails())
	if err != nil {
		return err
	}
	s.participant = reg.Participant
	if reg.AlreadyPlayed() {
		s.enterAlreadyPlayed(reg.ExistingOutcome)
		return nil
	}

	token, ok, err := b.locker.TryAcquire(ctx, reg.ParticipantID(), s.settings.spinLockTTL)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSpinInProgress.WithDetails("another session is spinning for this participant")
	}

	// a session that held the lease before us may have committed in the meantime
	if !reg.IsNewParticipant {
		outcome, err := b.ledger.Outcome(ctx, reg.ParticipantID())
		if err != nil {
			s.releaseLease(reg.ParticipantID(), token)
			return err
		}
		if outcome != nil {
			s.releaseLease(reg.ParticipantID(), token)
			s.enterAlreadyPlayed(outcome)
			return nil
		}
	}

	plan, err := s.planSpin()
	if err != nil {
		s.releaseLease(reg.ParticipantID(), token)
		return err
	}
	s.leaseToken = token
	s.plan = plan
	s.state = StateSpin
	s.settings.logger.Debug("Session %s fixed reward %q for participant %s", s.id, plan.Reward.Name, reg.ParticipantID())
	return nil
}

// planSpin selects the reward, then computes the rotation that lands on it.
func (s *Session) planSpin() (*SpinPlan, error) {
	reward, index := s.settings.selector.Select()

	turns, err := ExtraTurns(s.settings.turnsSource, s.settings.minTurns, s.settings.maxTurns)
	if err != nil {
		return nil, err
	}
	rotation, err := s.booth.mapper.TargetRotation(index, turns)
	if err != nil {
		return nil, err
	}
	return &SpinPlan{
		Reward:         reward,
		Index:          index,
		ExtraTurns:     turns,
		TargetRotation: rotation,
		Duration:       s.settings.spinDuration,
	}, nil
}

// BeginSpin starts the animation for the reward fixed on entry into Spin and
// schedules completion after the spin duration. It is accepted once; later
// calls fail with ErrSpinInProgress.
//
// The spin lease taken by Submit may have expired while the visitor sat on
// the spin screen, so it is refreshed to cover the animation and the commit.
// If another session holds it, BeginSpin fails with ErrSpinInProgress and may
// be retried. If an outcome was recorded in the meantime, the session moves
// to StateAlreadyPlayed and BeginSpin fails with ErrAlreadyPlayed.
func (s *Session) BeginSpin(ctx context.Context) (*SpinPlan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.state == StateAlreadyPlayed:
		return nil, ErrAlreadyPlayed.WithDetails(s.prior.RewardName)
	case s.state != StateSpin:
		return nil, s.transitionError("spin")
	case s.spinning:
		return nil, ErrSpinInProgress
	}

	b := s.booth
	participantID := s.participant.ID
	ttl := s.settings.spinLockTTL
	if need := s.plan.Duration + s.settings.commitTimeout; need > ttl {
		ttl = need
	}

	ok, err := b.locker.Refresh(ctx, participantID, s.leaseToken, ttl)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSpinInProgress.WithDetails("another session is spinning for this participant")
	}

	outcome, err := b.ledger.Outcome(ctx, participantID)
	if err != nil {
		return nil, err
	}
	if outcome != nil {
		token := s.leaseToken
		s.leaseToken = ""
		s.releaseLease(participantID, token)
		s.enterAlreadyPlayed(outcome)
		return nil, ErrAlreadyPlayed.WithDetails(outcome.RewardName)
	}

	s.spinning = true
	s.settings.scheduler.AfterFunc(s.plan.Duration, func() { s.completeOnce.Do(s.complete) })

	plan := *s.plan
	return &plan, nil
}

const earlierSpinWarning = "an earlier spin was already recorded for this participant"

// complete runs when the animation has finished. The commit is a soft
// failure: the session reaches Success whatever the store says.
func (s *Session) complete() {
	b := s.booth
	s.mu.Lock()
	participantID := s.participant.ID
	planned := s.plan.Reward
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.settings.commitTimeout)
	defer cancel()

	reward := planned
	recorded := true
	warning := ""

	stored, err := b.ledger.CommitOutcome(ctx, participantID, planned)
	switch {
	case err == nil:
	case errors.Is(err, ErrAlreadyCommitted) && stored != nil:
		if stored.RewardName != planned.Name {
			reward = s.rewardOf(stored)
			warning = earlierSpinWarning
			s.settings.logger.Warn("Session %s: participant %s already has outcome %q, showing it instead of %q",
				s.id, participantID, stored.RewardName, planned.Name)
		}
	case errors.Is(err, ErrAlreadyCommitted):
		// recorded, but the stored reward could not be read back
		warning = earlierSpinWarning
		s.settings.logger.Warn("Session %s: participant %s already has an unreadable outcome, planned %q",
			s.id, participantID, planned.Name)
	default:
		recorded = false
		warning = "your reward could not be recorded, please show this screen at the booth"
		s.settings.logger.Warn("Session %s: failed to record outcome %q for participant %s: %v",
			s.id, planned.Name, participantID, err)
	}

	s.mu.Lock()
	s.reward = &reward
	s.recorded = recorded
	s.warning = warning
	s.state = StateSuccess
	token := s.leaseToken
	s.leaseToken = ""
	view := s.viewLocked()
	s.mu.Unlock()

	s.releaseLease(participantID, token)
	b.fireSuccess(view)
	s.finish()
}

// rewardOf resolves a stored outcome to the table's reward, keeping the
// recorded weight when the reward has since left the table.
func (s *Session) rewardOf(o *SpinOutcome) Reward {
	if r, _, err := s.booth.table.Lookup(o.RewardName); err == nil {
		return r
	}
	return Reward{Name: o.RewardName, Weight: o.RewardWeight}
}

func (s *Session) enterAlreadyPlayed(outcome *SpinOutcome) {
	s.prior = outcome
	s.state = StateAlreadyPlayed
	s.settings.logger.Info("Session %s: participant %s already played (%s)", s.id, outcome.ParticipantID, outcome.RewardName)
	s.finish()
}

func (s *Session) finish() { s.doneOnce.Do(func() { close(s.done) }) }

func (s *Session) releaseLease(participantID, token string) {
	if token == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.settings.commitTimeout)
	defer cancel()
	if err := s.booth.locker.Release(ctx, participantID, token); err != nil {
		// the lease expires on its own
		s.settings.logger.Warn("Session %s: failed to release spin lease: %v", s.id, err)
	}
}

func (s *Session) transitionError(action string) error {
	return ErrInvalidTransition.WithDetails(fmt.Sprintf("cannot %s in state %s", action, s.state))
}

// View returns a snapshot of the session for presentation
func (s *Session) View() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() SessionView {
	v := SessionView{
		ID:       s.id,
		State:    s.state,
		Recorded: s.recorded,
		Warning:  s.warning,
	}
	if s.participant != nil {
		v.ParticipantName = s.participant.DisplayName
	}
	if s.spinning {
		plan := *s.plan
		v.Plan = &plan
	}
	if s.reward != nil {
		r := *s.reward
		v.Reward = &r
	}
	if s.prior != nil {
		v.AlreadyPlayed = true
		v.PriorReward = s.prior.RewardName
	}
	return v
}
