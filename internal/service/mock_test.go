package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/benbjohnson/clock"

	"github.com/Prajwal-k-tech/Battle-CP/internal/model"
	"github.com/Prajwal-k-tech/Battle-CP/internal/protocol"
	"github.com/Prajwal-k-tech/Battle-CP/pkg/battle"
)

type sentMsg struct {
	MatchID string
	To      string // empty for a broadcast
	Msg     protocol.ServerMessage
}

type recordingBroadcaster struct {
	mu   sync.Mutex
	sent []sentMsg
}

func (b *recordingBroadcaster) Publish(matchID string, msg protocol.ServerMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, sentMsg{MatchID: matchID, Msg: msg})
}

func (b *recordingBroadcaster) PublishTo(matchID, playerID string, msg protocol.ServerMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, sentMsg{MatchID: matchID, To: playerID, Msg: msg})
}

func (b *recordingBroadcaster) ofType(typ string) []sentMsg {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []sentMsg
	for _, s := range b.sent {
		if s.Msg.Type == typ {
			out = append(out, s)
		}
	}
	return out
}

func (b *recordingBroadcaster) reset() {
	b.mu.Lock()
	b.sent = nil
	b.mu.Unlock()
}

type fakeVerifier struct {
	mu       sync.Mutex
	handles  map[string]bool
	accepted map[string]bool // handle + "/" + index
	err      error
	onVerify func()
	calls    int
}

func newFakeVerifier(handles ...string) *fakeVerifier {
	v := &fakeVerifier{handles: make(map[string]bool), accepted: make(map[string]bool)}
	for _, h := range handles {
		v.handles[strings.ToLower(h)] = true
	}
	return v
}

func (v *fakeVerifier) accept(handle, index string) {
	v.mu.Lock()
	v.accepted[strings.ToLower(handle)+"/"+index] = true
	v.mu.Unlock()
}

func (v *fakeVerifier) setErr(err error) {
	v.mu.Lock()
	v.err = err
	v.mu.Unlock()
}

func (v *fakeVerifier) HandleExists(_ context.Context, handle string) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	if v.err != nil {
		return false, v.err
	}
	return v.handles[strings.ToLower(handle)], nil
}

func (v *fakeVerifier) HasAcceptedSubmission(_ context.Context, handle string, _ int, index string, _ int) (bool, error) {
	v.mu.Lock()
	hook := v.onVerify
	v.calls++
	err := v.err
	ok := v.accepted[strings.ToLower(handle)+"/"+index]
	v.mu.Unlock()
	if hook != nil {
		hook()
	}
	return ok, err
}

func (v *fakeVerifier) FetchProblemsByContest(_ context.Context, contestID int) ([]model.Problem, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.err != nil {
		return nil, v.err
	}
	return []model.Problem{{ContestID: contestID, Index: "A", Name: "Watermelon"}}, nil
}

type recordingRecorder struct {
	mu      sync.Mutex
	results []*model.MatchResult
	err     error
}

func (r *recordingRecorder) Record(_ context.Context, res *model.MatchResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
	return r.err
}

func (r *recordingRecorder) all() []*model.MatchResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*model.MatchResult(nil), r.results...)
}

var errJudgeDown = errors.New("judge unreachable")

type harness struct {
	svc      *MatchService
	bc       *recordingBroadcaster
	verifier *fakeVerifier
	recorder *recordingRecorder
	clock    *clock.Mock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		bc:       &recordingBroadcaster{},
		verifier: newFakeVerifier("alice", "bob"),
		recorder: &recordingRecorder{},
		clock:    clock.NewMock(),
	}
	h.svc = NewMatchService(NewRegistry(4), h.bc, h.verifier, h.recorder, h.clock, DefaultSettings())
	return h
}

func ptr(v int) *int { return &v }

func standardFleet() []battle.Placement {
	return []battle.Placement{
		{X: 0, Y: 0, Size: 5},
		{X: 0, Y: 1, Size: 4},
		{X: 0, Y: 2, Size: 3},
		{X: 0, Y: 3, Size: 3},
		{X: 0, Y: 4, Size: 2},
	}
}
