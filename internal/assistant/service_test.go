package assistant

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "shopassist/internal/common/errors"
	"shopassist/internal/common/logger"
	"shopassist/internal/models"
	"shopassist/internal/workers/conversation/elicitation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Doubles
// ==========================

type fakeEliciter struct {
	turn     func(sess *models.Session, text string) (elicitation.Outcome, error)
	inflight int32
	overlap  int32
}

func (f *fakeEliciter) Initialize() models.Transcript {
	var t models.Transcript
	t = t.Append(models.RoleSystem, "system")
	t = t.Append(models.RoleAssistant, elicitation.Greeting)
	return t
}

func (f *fakeEliciter) Turn(ctx context.Context, sess *models.Session, text string) (elicitation.Outcome, error) {
	if atomic.AddInt32(&f.inflight, 1) > 1 {
		atomic.StoreInt32(&f.overlap, 1)
	}
	defer atomic.AddInt32(&f.inflight, -1)

	sess.Elicitation = sess.Elicitation.Append(models.RoleUser, text)
	if f.turn != nil {
		return f.turn(sess, text)
	}
	sess.Elicitation = sess.Elicitation.Append(models.RoleAssistant, "tell me more")
	return elicitation.Outcome{Reply: "tell me more", Result: elicitation.ResultIncomplete, Commit: true}, nil
}

type fakeResponder struct {
	err error
}

func (f *fakeResponder) Respond(ctx context.Context, sess *models.Session, text string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	sess.Recommendation = sess.Recommendation.Append(models.RoleUser, text)
	sess.Recommendation = sess.Recommendation.Append(models.RoleAssistant, "answer: "+text)
	return "answer: " + text, nil
}

func newTestService(t *testing.T, eliciter *fakeEliciter, responder *fakeResponder) *Service {
	return NewService(LoadConfig(), eliciter, responder, nil, logger.NewTestLogger(t))
}

func toRecommending(sess *models.Session, text string) (elicitation.Outcome, error) {
	sess.Elicitation = sess.Elicitation.Append(models.RoleAssistant, "{profile}")
	sess.Phase = models.PhaseRecommending
	sess.Recommendation = sess.Recommendation.Append(models.RoleAssistant, "here are your laptops")
	return elicitation.Outcome{Reply: "here are your laptops", Result: elicitation.ResultRecommending, Commit: true}, nil
}

// ==========================
// Session lifecycle
// ==========================

func TestNewSession(t *testing.T) {
	svc := newTestService(t, &fakeEliciter{}, &fakeResponder{})

	id, reply := svc.NewSession()
	require.NotEmpty(t, id)
	assert.Equal(t, Reply{AssistantText: elicitation.Greeting, Phase: models.PhaseEliciting}, reply)

	sess, err := svc.Session(id)
	require.NoError(t, err)
	assert.Equal(t, 2, sess.Elicitation.Len())
	assert.Equal(t, 1, svc.store.Len())
}

func TestSubmitMessage_Commits(t *testing.T) {
	svc := newTestService(t, &fakeEliciter{}, &fakeResponder{})
	id, _ := svc.NewSession()

	reply, err := svc.SubmitMessage(context.Background(), id, "I am a student")
	require.NoError(t, err)
	assert.Equal(t, Reply{AssistantText: "tell me more", Phase: models.PhaseEliciting}, reply)

	sess, _ := svc.Session(id)
	assert.Equal(t, 4, sess.Elicitation.Len())
}

func TestSubmitMessage_RollbackKeepsSession(t *testing.T) {
	eliciter := &fakeEliciter{turn: func(sess *models.Session, text string) (elicitation.Outcome, error) {
		sess.Phase = models.PhaseConfirmed
		return elicitation.Outcome{Reply: "could you restate that?", Result: elicitation.ResultMalformed}, nil
	}}
	svc := newTestService(t, eliciter, &fakeResponder{})
	id, _ := svc.NewSession()

	reply, err := svc.SubmitMessage(context.Background(), id, "done")
	require.NoError(t, err)
	assert.Equal(t, Reply{AssistantText: "could you restate that?", Phase: models.PhaseEliciting}, reply)

	sess, _ := svc.Session(id)
	assert.Equal(t, 2, sess.Elicitation.Len())
	assert.Equal(t, models.PhaseEliciting, sess.Phase)
}

func TestSubmitMessage_ServiceUnavailableLeavesStateUnchanged(t *testing.T) {
	eliciter := &fakeEliciter{turn: func(sess *models.Session, text string) (elicitation.Outcome, error) {
		return elicitation.Outcome{}, fmt.Errorf("%w: retries exhausted", apperrors.ErrServiceUnavailable)
	}}
	svc := newTestService(t, eliciter, &fakeResponder{})
	id, _ := svc.NewSession()

	_, err := svc.SubmitMessage(context.Background(), id, "hello")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrServiceUnavailable))

	sess, _ := svc.Session(id)
	assert.Equal(t, 2, sess.Elicitation.Len())
	assert.Equal(t, models.PhaseEliciting, sess.Phase)
}

func TestSubmitMessage_FlaggedTerminates(t *testing.T) {
	eliciter := &fakeEliciter{turn: func(sess *models.Session, text string) (elicitation.Outcome, error) {
		return elicitation.Outcome{}, fmt.Errorf("%w: user text", apperrors.ErrModerationFlagged)
	}}
	svc := newTestService(t, eliciter, &fakeResponder{})
	id, _ := svc.NewSession()

	reply, err := svc.SubmitMessage(context.Background(), id, "bad words")
	require.NoError(t, err)
	assert.Equal(t, Reply{AssistantText: TerminatedMessage, Phase: models.PhaseTerminated}, reply)

	sess, _ := svc.Session(id)
	assert.Equal(t, models.PhaseTerminated, sess.Phase)
	assert.Equal(t, 2, sess.Elicitation.Len())

	_, err = svc.SubmitMessage(context.Background(), id, "hello again")
	assert.True(t, errors.Is(err, apperrors.ErrSessionTerminated))

	reset, err := svc.ResetSession(id)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseEliciting, reset.Phase)
	assert.Equal(t, elicitation.Greeting, reset.AssistantText)
}

func TestSubmitMessage_FlaggedProfileDiscardsTurn(t *testing.T) {
	calls := 0
	eliciter := &fakeEliciter{}
	eliciter.turn = func(sess *models.Session, text string) (elicitation.Outcome, error) {
		calls++
		if calls == 1 {
			sess.Elicitation = sess.Elicitation.Append(models.RoleAssistant, "what is your budget?")
			return elicitation.Outcome{Reply: "what is your budget?", Result: elicitation.ResultIncomplete, Commit: true}, nil
		}
		sess.Elicitation = sess.Elicitation.Append(models.RoleAssistant, "{profile}")
		sess.Phase = models.PhaseConfirmed
		sess.Profile = &models.RequirementProfile{Budget: 150000}
		return elicitation.Outcome{}, fmt.Errorf("%w: profile text", apperrors.ErrModerationFlagged)
	}
	svc := newTestService(t, eliciter, &fakeResponder{})
	id, _ := svc.NewSession()

	_, err := svc.SubmitMessage(context.Background(), id, "I edit videos")
	require.NoError(t, err)
	before, err := svc.Session(id)
	require.NoError(t, err)

	reply, err := svc.SubmitMessage(context.Background(), id, "budget 150000")
	require.NoError(t, err)
	assert.Equal(t, Reply{AssistantText: TerminatedMessage, Phase: models.PhaseTerminated}, reply)

	after, err := svc.Session(id)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseTerminated, after.Phase)
	assert.Equal(t, before.Elicitation, after.Elicitation)
	assert.Nil(t, after.Profile)
	assert.Empty(t, after.Recommendation)
}

func TestSubmitMessage_RecommendingUsesResponder(t *testing.T) {
	svc := newTestService(t, &fakeEliciter{turn: toRecommending}, &fakeResponder{})
	id, _ := svc.NewSession()

	reply, err := svc.SubmitMessage(context.Background(), id, "budget 150000")
	require.NoError(t, err)
	assert.Equal(t, models.PhaseRecommending, reply.Phase)

	reply, err = svc.SubmitMessage(context.Background(), id, "which is lightest?")
	require.NoError(t, err)
	assert.Equal(t, Reply{AssistantText: "answer: which is lightest?", Phase: models.PhaseRecommending}, reply)

	sess, _ := svc.Session(id)
	assert.Equal(t, 3, sess.Recommendation.Len())
	assert.Equal(t, 4, sess.Elicitation.Len())
}

func TestSubmitMessage_FlaggedDuringRecommendation(t *testing.T) {
	responder := &fakeResponder{}
	svc := newTestService(t, &fakeEliciter{turn: toRecommending}, responder)
	id, _ := svc.NewSession()
	_, err := svc.SubmitMessage(context.Background(), id, "budget 150000")
	require.NoError(t, err)

	responder.err = fmt.Errorf("%w: recommendation text", apperrors.ErrModerationFlagged)
	reply, err := svc.SubmitMessage(context.Background(), id, "question")
	require.NoError(t, err)
	assert.Equal(t, models.PhaseTerminated, reply.Phase)

	sess, _ := svc.Session(id)
	assert.Equal(t, 1, sess.Recommendation.Len())
}

// ==========================
// Boundary errors
// ==========================

func TestSubmitMessage_UnknownSession(t *testing.T) {
	svc := newTestService(t, &fakeEliciter{}, &fakeResponder{})

	_, err := svc.SubmitMessage(context.Background(), "missing", "hello")
	assert.True(t, errors.Is(err, apperrors.ErrSessionNotFound))

	_, err = svc.ResetSession("missing")
	assert.True(t, errors.Is(err, apperrors.ErrSessionNotFound))
}

func TestSubmitMessage_EmptyText(t *testing.T) {
	svc := newTestService(t, &fakeEliciter{}, &fakeResponder{})
	id, _ := svc.NewSession()

	_, err := svc.SubmitMessage(context.Background(), id, "   ")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidRequest, apperrors.Normalize(err).Code)
}

func TestSubmitMessage_SerialisesTurnsPerSession(t *testing.T) {
	eliciter := &fakeEliciter{}
	eliciter.turn = func(sess *models.Session, text string) (elicitation.Outcome, error) {
		time.Sleep(2 * time.Millisecond)
		sess.Elicitation = sess.Elicitation.Append(models.RoleAssistant, "ok")
		return elicitation.Outcome{Reply: "ok", Result: elicitation.ResultIncomplete, Commit: true}, nil
	}
	svc := newTestService(t, eliciter, &fakeResponder{})
	id, _ := svc.NewSession()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.SubmitMessage(context.Background(), id, fmt.Sprintf("message %d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(0), atomic.LoadInt32(&eliciter.overlap))
	sess, _ := svc.Session(id)
	assert.Equal(t, 2+8*2, sess.Elicitation.Len())
}

func TestStore_Expires(t *testing.T) {
	store := NewStore(20*time.Millisecond, time.Millisecond)
	store.put(&models.Session{ID: "s-1"})

	_, ok := store.get("s-1")
	require.True(t, ok)

	time.Sleep(40 * time.Millisecond)
	_, ok = store.get("s-1")
	assert.False(t, ok)
}
