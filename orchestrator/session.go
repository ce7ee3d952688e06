package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/interview-coach/audio"
	"github.com/maastricht-university/interview-coach/geometry"
	"github.com/maastricht-university/interview-coach/scoring"
)

var (
	ErrAlreadyStarted   = errors.New("session already started")
	ErrNotActive        = errors.New("session is not accepting answers")
	ErrAlreadySubmitted = errors.New("session already submitted")
	ErrNoQuestions      = errors.New("no questions configured")
)

// ContentJudge grades an answer's content on a 0-100 scale.
type ContentJudge interface {
	Evaluate(ctx context.Context, question, answer string, faceScore float64) (Verdict, error)
}

// JudgeFunc adapts a function to ContentJudge.
type JudgeFunc func(ctx context.Context, question, answer string, faceScore float64) (Verdict, error)

func (f JudgeFunc) Evaluate(ctx context.Context, question, answer string, faceScore float64) (Verdict, error) {
	return f(ctx, question, answer, faceScore)
}

// Defaults applied by NewSession to zero option values.
const (
	DefaultTimeLimit      = 60 * time.Second
	DefaultJudgeTimeout   = 15 * time.Second
	DefaultSpeakingCredit = 100 * time.Millisecond
)

type Options struct {
	CountdownSeconds int
	TimeLimit        time.Duration
	Questions        []string
	JudgeTimeout     time.Duration

	Audio          audio.Options
	History        int
	SpeakingCredit time.Duration

	Clock clock.Clock
	// Pick returns an index in [0,n); defaults to a uniform random pick.
	Pick    func(n int) int
	Log     logrus.FieldLogger
	OnEvent func(Event)
}

// Session is a single countdown -> question -> result run. It is safe for
// concurrent use; frames and audio may arrive from different goroutines.
type Session struct {
	id    string
	opts  Options
	judge ContentJudge
	clock clock.Clock
	log   logrus.FieldLogger

	mu sync.Mutex
	// emitMu is taken under mu when an event is stamped and released once
	// OnEvent returns.
	emitMu    sync.Mutex
	seq       uint64
	ctx       context.Context
	state     State
	remaining int
	question  string
	deadline  time.Time
	answer    string
	timers    []*clock.Timer

	prev   geometry.Frame
	scores geometry.Scores
	live   Live

	analyzer *audio.Analyzer
	tracking *audio.Tracking

	result *Result
	done   chan struct{}
}

// NewSession builds an idle session. judge may be nil, in which case every
// submission takes the fallback path.
func NewSession(opts Options, judge ContentJudge) *Session {
	opts = opts.withDefaults()
	id := uuid.NewString()
	log := opts.Log.WithField("session_id", id)
	return &Session{
		id:       id,
		opts:     opts,
		judge:    judge,
		clock:    opts.Clock,
		log:      log,
		state:    StateIdle,
		analyzer: audio.NewAnalyzer(opts.Audio, log),
		tracking: audio.NewTracking(opts.History),
		done:     make(chan struct{}),
	}
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = clock.New()
	}
	if o.Pick == nil {
		o.Pick = rand.Intn
	}
	if o.TimeLimit <= 0 {
		o.TimeLimit = DefaultTimeLimit
	}
	if o.JudgeTimeout <= 0 {
		o.JudgeTimeout = DefaultJudgeTimeout
	}
	if o.SpeakingCredit <= 0 {
		o.SpeakingCredit = DefaultSpeakingCredit
	}
	if o.Log == nil {
		o.Log = logrus.StandardLogger()
	}
	return o
}

func (s *Session) ID() string { return s.id }

// TimeLimit is the answer window after the countdown.
func (s *Session) TimeLimit() time.Duration { return s.opts.TimeLimit }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Countdown returns the seconds left before the question is shown.
func (s *Session) Countdown() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

func (s *Session) Question() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.question
}

// Done is closed once the session is concluded or cancelled.
func (s *Session) Done() <-chan struct{} { return s.done }

// Result returns the session result once concluded.
func (s *Session) Result() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return Result{}, false
	}
	return *s.result, true
}

// Start begins the countdown. ctx is used for timeout-driven submission.
func (s *Session) Start(ctx context.Context) error {
	if len(s.opts.Questions) == 0 {
		return ErrNoQuestions
	}

	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.ctx = ctx
	s.prev = nil
	s.analyzer.Reset()
	s.tracking.Reset(s.clock.Now())

	var ev Event
	if n := s.opts.CountdownSeconds; n > 0 {
		s.state = StateCountdown
		s.remaining = n
		for i := 1; i <= n; i++ {
			left := n - i
			s.timers = append(s.timers, s.clock.AfterFunc(time.Duration(i)*time.Second, func() {
				s.countdownTick(left)
			}))
		}
		ev = s.stateEventLocked()
	} else {
		ev = s.activateLocked()
	}
	ev = s.stampLocked(ev)
	s.mu.Unlock()

	s.log.WithField("countdown", s.opts.CountdownSeconds).Info("session started")
	s.emit(ev)
	return nil
}

func (s *Session) countdownTick(left int) {
	s.mu.Lock()
	if s.state != StateCountdown || left >= s.remaining {
		s.mu.Unlock()
		return
	}
	s.remaining = left
	var ev Event
	if left == 0 {
		ev = s.activateLocked()
	} else {
		ev = s.stateEventLocked()
	}
	ev = s.stampLocked(ev)
	s.mu.Unlock()
	s.emit(ev)
}

func (s *Session) activateLocked() Event {
	s.state = StateActive
	s.remaining = 0
	s.question = s.opts.Questions[s.opts.Pick(len(s.opts.Questions))]
	s.deadline = s.clock.Now().Add(s.opts.TimeLimit)
	s.timers = append(s.timers, s.clock.AfterFunc(s.opts.TimeLimit, func() {
		if _, err := s.submit(s.ctx, TriggerTimeout); err != nil && !errors.Is(err, ErrAlreadySubmitted) {
			s.log.WithError(err).Debug("deadline fired outside active state")
		}
	}))
	s.log.WithFields(logrus.Fields{"question": s.question, "deadline": s.deadline}).Info("question active")
	return s.stateEventLocked()
}

func (s *Session) stateEventLocked() Event {
	ev := Event{Type: EventState, State: s.state, Countdown: s.remaining, Question: s.question}
	if !s.deadline.IsZero() {
		d := s.deadline
		ev.Deadline = &d
	}
	return ev
}

func (s *Session) stopTimersLocked() {
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
}

// Cancel stops a session that has not been submitted. Pending countdown and
// deadline timers will not fire afterwards. It reports whether anything was
// stopped.
func (s *Session) Cancel() bool {
	s.mu.Lock()
	switch s.state {
	case StateIdle, StateCountdown, StateActive:
	default:
		s.mu.Unlock()
		return false
	}
	s.stopTimersLocked()
	s.state = StateCancelled
	s.prev = nil
	ev := s.stampLocked(s.stateEventLocked())
	close(s.done)
	s.mu.Unlock()

	s.log.Info("session cancelled")
	s.emit(ev)
	return true
}

// ObserveFrame scores one landmark frame against the previous one. Frames
// are only scored while the question is active; empty frames are skipped.
func (s *Session) ObserveFrame(in FrameInput) (Live, bool) {
	if len(in.Frame) == 0 {
		return Live{}, false
	}

	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		return Live{}, false
	}
	live := ScoreFrame(in.Frame, s.prev, in.Confidence)
	s.prev = in.Frame
	s.scores = live.Scores
	s.live = live
	ev := s.stampLocked(Event{Type: EventLive, State: StateActive, Live: &live})
	s.mu.Unlock()

	s.emit(ev)
	return live, true
}

// ObserveAudio feeds one spectrum buffer to the analyzer. Audio is accepted
// during the countdown too so calibration can finish before the question.
func (s *Session) ObserveAudio(buf []uint8) (audio.Tick, bool) {
	s.mu.Lock()
	if s.state != StateCountdown && s.state != StateActive {
		s.mu.Unlock()
		return audio.Tick{}, false
	}
	t := s.analyzer.Process(buf)
	if !t.Emit {
		s.mu.Unlock()
		return t, t.Valid
	}
	s.tracking.Observe(t.Sample, s.clock.Now(), s.opts.SpeakingCredit)
	sample := t.Sample
	ev := s.stampLocked(Event{Type: EventAudio, State: s.state, Audio: &sample})
	s.mu.Unlock()

	s.emit(ev)
	return t, t.Valid
}

// SetAnswer replaces the transcript collected so far.
func (s *Session) SetAnswer(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateCountdown && s.state != StateActive {
		return false
	}
	s.answer = text
	return true
}

// Submit ends the question. Only the first of an explicit submit and the
// deadline wins; later callers get ErrAlreadySubmitted.
func (s *Session) Submit(ctx context.Context) (Result, error) {
	return s.submit(ctx, TriggerSubmit)
}

func (s *Session) submit(ctx context.Context, trig Trigger) (Result, error) {
	s.mu.Lock()
	switch s.state {
	case StateActive:
	case StateSubmitting, StateConcluded:
		s.mu.Unlock()
		return Result{}, ErrAlreadySubmitted
	default:
		st := s.state
		s.mu.Unlock()
		return Result{}, fmt.Errorf("%w: %s", ErrNotActive, st)
	}
	s.state = StateSubmitting
	s.stopTimersLocked()

	question, answer := s.question, s.answer
	scores, live := s.scores, s.live
	if live.Feedback == "" {
		live.Feedback = scoring.Feedback(live.Details, 0)
	}
	tracking := s.tracking.Snapshot()
	ev := s.stampLocked(s.stateEventLocked())
	s.mu.Unlock()

	log := s.log.WithField("trigger", trig)
	log.Info("submitting answer")
	s.emit(ev)

	if ctx == nil {
		ctx = context.Background()
	}
	verdict := s.evaluate(ctx, log, question, answer, live.FaceScore)

	res := Result{
		SessionID:         s.id,
		TotalScore:        verdict.FinalScore,
		Grade:             scoring.Grade(float64(verdict.FinalScore)),
		FaceScore:         live.FaceScore,
		FaceScoreDetails:  live.Details,
		FaceSubScores:     scores,
		UsedFallback:      !verdict.Success,
		Feedback:          live.Feedback,
		Question:          question,
		Answer:            answer,
		AudioScoreDetails: scoring.AudioScore(tracking),
		AudioTracking:     tracking,
		Trigger:           trig,
		ConcludedAt:       s.clock.Now(),
	}
	if verdict.Success {
		score, fb := verdict.AIScore, verdict.AIFeedback
		res.AIScore = &score
		res.AIFeedback = &fb
	}

	out := res
	s.mu.Lock()
	s.result = &res
	s.state = StateConcluded
	s.prev = nil
	close(s.done)
	ev = s.stampLocked(Event{Type: EventResult, State: StateConcluded, Result: &out})
	s.mu.Unlock()

	log.WithFields(logrus.Fields{
		"total":    res.TotalScore,
		"face":     res.FaceScore,
		"fallback": res.UsedFallback,
	}).Info("session concluded")
	s.emit(ev)
	return res, nil
}

// evaluate calls the judge and never fails: any error becomes the fallback verdict.
func (s *Session) evaluate(ctx context.Context, log logrus.FieldLogger, question, answer string, face float64) Verdict {
	if s.judge == nil {
		log.Warn("no content judge configured, using default score")
		return fallbackVerdict(face, errors.New("judge not configured"))
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.JudgeTimeout)
	defer cancel()

	v, err := s.judge.Evaluate(ctx, question, answer, face)
	if err != nil {
		log.WithError(err).Warn("content judge failed, using default score")
		return fallbackVerdict(face, err)
	}
	v.Success = true
	v.FaceScore = face
	v.FinalScore = scoring.FinalScore(v.AIScore, face)
	return v
}

func fallbackVerdict(face float64, err error) Verdict {
	return Verdict{
		Success:    false,
		AIScore:    scoring.DefaultContentScore,
		AIFeedback: FallbackFeedback,
		FaceScore:  face,
		FinalScore: scoring.FallbackScore(face),
		Error:      err.Error(),
	}
}

// ScoreFrame scores one frame against prev without any session state.
func ScoreFrame(frame, prev geometry.Frame, confidence float64) Live {
	sc := geometry.Score(frame, prev, confidence)
	details := scoring.Weigh(sc)
	face := details.Total()
	return Live{
		FaceScore: face,
		LiveScore: scoring.LiveScore(face),
		Scores:    sc,
		Details:   details,
		Feedback:  scoring.Feedback(details, 0),
	}
}

// stampLocked numbers ev and holds emitMu until the matching emit, so
// OnEvent sees events in the order their state changes were made.
func (s *Session) stampLocked(ev Event) Event {
	s.seq++
	ev.Seq = s.seq
	s.emitMu.Lock()
	return ev
}

// emit must follow exactly one stampLocked.
func (s *Session) emit(ev Event) {
	defer s.emitMu.Unlock()
	if s.opts.OnEvent != nil {
		s.opts.OnEvent(ev)
	}
}
