package orchestrator

import (
	"context"
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/interview-coach/audio"
	"github.com/maastricht-university/interview-coach/clients"
	cfg "github.com/maastricht-university/interview-coach/config"
)

// Pipeline wires configuration, the judge client and logging into sessions.
type Pipeline struct {
	cfg  *cfg.Root
	http *clients.HTTP
	log  logrus.FieldLogger
}

func NewPipeline(c *cfg.Root, log logrus.FieldLogger) *Pipeline {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Pipeline{cfg: c, http: clients.NewHTTP(), log: log}
}

// WithHTTP swaps the outbound client, mainly for tests.
func (p *Pipeline) WithHTTP(h *clients.HTTP) *Pipeline {
	p.http = h
	return p
}

// Judge returns the configured content judge, or nil when no URL is set.
func (p *Pipeline) Judge() ContentJudge {
	if p.cfg.Judge.URL == "" {
		return nil
	}
	return &httpJudge{http: p.http, url: p.cfg.Judge.URL}
}

// JudgeAvailable checks that the configured judge answers.
func (p *Pipeline) JudgeAvailable(ctx context.Context) bool {
	return p.http.JudgeAvailable(ctx, p.cfg.Judge.URL)
}

// SessionOptions maps configuration onto session options.
func (p *Pipeline) SessionOptions(onEvent func(Event)) Options {
	a := p.cfg.Audio
	s := p.cfg.Session
	return Options{
		CountdownSeconds: s.CountdownSeconds,
		TimeLimit:        cfg.DurSeconds(s.TimeLimitSeconds),
		Questions:        s.Questions,
		JudgeTimeout:     p.cfg.Judge.Timeout,
		Audio: audio.Options{
			SampleRate:       a.SampleRate,
			Bins:             a.Bins,
			Sensitivity:      a.Sensitivity,
			CalibrationTicks: a.CalibrationTicks,
			EmitEvery:        a.EmitEvery,
		},
		History:        a.History,
		SpeakingCredit: a.SpeakingCredit,
		Log:            p.log,
		OnEvent:        onEvent,
	}
}

// NewSession builds a fresh session from configuration.
func (p *Pipeline) NewSession(onEvent func(Event)) *Session {
	return NewSession(p.SessionOptions(onEvent), p.Judge())
}

// Run replays a recorded session through a fresh state machine on a mock
// clock driven by the recording's timestamps. The countdown is skipped and
// events at or past the time limit end the question as a timeout.
func (p *Pipeline) Run(ctx context.Context, rec *Recording) (Result, error) {
	mock := clock.NewMock()
	opts := p.SessionOptions(nil)
	opts.CountdownSeconds = 0
	opts.Clock = mock
	if rec.Question != "" {
		opts.Questions = []string{rec.Question}
	}
	s := NewSession(opts, p.Judge())

	if err := s.Start(ctx); err != nil {
		return Result{}, err
	}

	start := mock.Now()
	trig := TriggerSubmit
	for _, ev := range rec.Events {
		if ev.At() >= s.TimeLimit() {
			trig = TriggerTimeout
			break
		}
		if at := start.Add(ev.At()); at.After(mock.Now()) {
			mock.Set(at)
		}
		switch ev.Type {
		case RecFrame:
			s.ObserveFrame(FrameInput{Frame: ev.Frame(), Confidence: ev.ConfidenceOr(p.cfg.Session.Confidence)})
		case RecAudio:
			s.ObserveAudio(ev.Bins())
		case RecTranscript:
			s.SetAnswer(ev.Text)
		}
	}
	if rec.Answer != "" {
		s.SetAnswer(rec.Answer)
	}

	res, err := s.submit(ctx, trig)
	if err != nil {
		return Result{}, err
	}

	p.log.WithFields(logrus.Fields{"total": res.TotalScore, "grade": res.Grade}).Info("replay finished")
	if p.cfg.Paths.Outputs != "" {
		dir, err := persist(p.cfg.Paths.Outputs, res)
		if err != nil {
			return res, fmt.Errorf("persist result: %w", err)
		}
		p.log.WithField("dir", dir).Info("result written")
	}
	return res, nil
}

type httpJudge struct {
	http *clients.HTTP
	url  string
}

func (j *httpJudge) Evaluate(ctx context.Context, question, answer string, faceScore float64) (Verdict, error) {
	resp, err := j.http.Judge(ctx, j.url, clients.JudgeReq{Question: question, Answer: answer, FaceScore: faceScore})
	if err != nil {
		return Verdict{}, err
	}
	return Verdict{
		Success:    resp.Success,
		AIScore:    *resp.AIScore,
		AIFeedback: resp.AIFeedback,
		FaceScore:  resp.FaceScore,
	}, nil
}
