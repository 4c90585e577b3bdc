package gemini

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/taskforge/taskforge-api/internal/assistant"
	"github.com/taskforge/taskforge-api/internal/config"
	"github.com/taskforge/taskforge-api/internal/domain"
	"github.com/taskforge/taskforge-api/internal/service"
	"github.com/taskforge/taskforge-api/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scriptedCaller returns a fixed sequence of responses, recording the
// contents it was called with.
type scriptedCaller struct {
	responses []*genai.GenerateContentResponse
	errs      []error
	calls     int
	histories [][]*genai.Content
}

func (s *scriptedCaller) generate(_ context.Context, contents []*genai.Content) (*genai.GenerateContentResponse, error) {
	i := s.calls
	s.calls++
	s.histories = append(s.histories, contents)
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return nil, errors.New("scripted caller exhausted")
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Role:  genai.RoleModel,
				Parts: []*genai.Part{{Text: text}},
			},
		}},
	}
}

func callResponse(name string, args map[string]any) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Role: genai.RoleModel,
				Parts: []*genai.Part{{
					FunctionCall: &genai.FunctionCall{ID: "call-1", Name: name, Args: args},
				}},
			},
		}},
	}
}

// stubTaskService implements the subset of behavior the toolbox needs.
type stubTaskService struct {
	mu      sync.Mutex
	nextID  int64
	created []*domain.Task
}

func (s *stubTaskService) Create(_ context.Context, params service.CreateTaskParams) (*domain.Task, error) {
	task, err := domain.NewTask(params.Title, params.Description, params.Priority, params.DueDate)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	task.ID = s.nextID
	s.created = append(s.created, task)
	return task, nil
}

func (s *stubTaskService) Get(context.Context, int64) (*domain.Task, error) {
	return nil, store.ErrTaskNotFound
}

func (s *stubTaskService) GetByTitleMatch(context.Context, string) (*domain.Task, error) {
	return nil, store.ErrTaskNotFound
}

func (s *stubTaskService) List(context.Context, store.ListFilter) ([]*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*domain.Task(nil), s.created...), nil
}

func (s *stubTaskService) Update(context.Context, int64, service.UpdateTaskParams) (*domain.Task, error) {
	return nil, store.ErrTaskNotFound
}

func (s *stubTaskService) Delete(context.Context, int64) (*domain.Task, error) {
	return nil, store.ErrTaskNotFound
}

func newTestAssistant(caller modelCaller) (*Assistant, *stubTaskService) {
	svc := &stubTaskService{}
	return &Assistant{
		logger:  testLogger(),
		config:  config.LLMConfig{ModelName: "test-model", MaxRetries: 0, RetryDelaySeconds: 0},
		caller:  caller,
		toolbox: assistant.NewToolbox(svc, testLogger()),
	}, svc
}

func TestConversationSendTextReply(t *testing.T) {
	caller := &scriptedCaller{responses: []*genai.GenerateContentResponse{
		textResponse("You have no tasks today."),
	}}
	asst, _ := newTestAssistant(caller)

	conv := asst.NewConversation()
	reply, err := conv.Send(context.Background(), "what's on my plate?")

	require.NoError(t, err)
	assert.Equal(t, "You have no tasks today.", reply)
	assert.Equal(t, 1, caller.calls)
}

func TestConversationSendToolRound(t *testing.T) {
	caller := &scriptedCaller{responses: []*genai.GenerateContentResponse{
		callResponse("create_task", map[string]any{"title": "Buy milk"}),
		textResponse("Done, I've added 'Buy milk'."),
	}}
	asst, svc := newTestAssistant(caller)

	conv := asst.NewConversation()
	reply, err := conv.Send(context.Background(), "add buy milk to my list")

	require.NoError(t, err)
	assert.Equal(t, "Done, I've added 'Buy milk'.", reply)
	require.Len(t, svc.created, 1)
	assert.Equal(t, "Buy milk", svc.created[0].Title)

	// Second model call must see the function response appended to history.
	require.Equal(t, 2, caller.calls)
	second := caller.histories[1]
	last := second[len(second)-1]
	require.NotEmpty(t, last.Parts)
	require.NotNil(t, last.Parts[0].FunctionResponse)
	assert.Equal(t, "create_task", last.Parts[0].FunctionResponse.Name)
	assert.Equal(t, "success", last.Parts[0].FunctionResponse.Response["status"])
}

func TestConversationHistoryAccumulates(t *testing.T) {
	caller := &scriptedCaller{responses: []*genai.GenerateContentResponse{
		textResponse("Hello!"),
		textResponse("Still here."),
	}}
	asst, _ := newTestAssistant(caller)

	conv := asst.NewConversation()
	_, err := conv.Send(context.Background(), "hi")
	require.NoError(t, err)
	_, err = conv.Send(context.Background(), "are you there?")
	require.NoError(t, err)

	// user, model, user, model
	assert.Len(t, caller.histories[1], 3, "second call sees prior user and model turns")
}

func TestConversationSendSafetyBlocked(t *testing.T) {
	resp := textResponse("")
	resp.Candidates[0].FinishReason = genai.FinishReasonSafety
	caller := &scriptedCaller{responses: []*genai.GenerateContentResponse{resp}}
	asst, _ := newTestAssistant(caller)

	conv := asst.NewConversation()
	_, err := conv.Send(context.Background(), "something off limits")

	assert.ErrorIs(t, err, assistant.ErrContentBlocked)
}

func TestConversationSendNoCandidates(t *testing.T) {
	caller := &scriptedCaller{responses: []*genai.GenerateContentResponse{
		{Candidates: nil},
	}}
	asst, _ := newTestAssistant(caller)

	conv := asst.NewConversation()
	_, err := conv.Send(context.Background(), "hi")

	assert.ErrorIs(t, err, assistant.ErrInvalidResponse)
}

func TestConversationSendModelError(t *testing.T) {
	apiErr := errors.New("503 service unavailable")
	caller := &scriptedCaller{errs: []error{apiErr}}
	asst, _ := newTestAssistant(caller)

	conv := asst.NewConversation()
	_, err := conv.Send(context.Background(), "hi")

	require.Error(t, err)
	assert.ErrorIs(t, err, apiErr)
	assert.Equal(t, 1, caller.calls, "MaxRetries 0 means a single attempt")
}

func TestConversationSendToolLoopBounded(t *testing.T) {
	responses := make([]*genai.GenerateContentResponse, 0, maxToolRounds)
	for i := 0; i < maxToolRounds; i++ {
		responses = append(responses, callResponse("list_tasks", nil))
	}
	caller := &scriptedCaller{responses: responses}
	asst, _ := newTestAssistant(caller)

	conv := asst.NewConversation()
	_, err := conv.Send(context.Background(), "loop forever")

	require.ErrorIs(t, err, assistant.ErrInvalidResponse)
	assert.Equal(t, maxToolRounds, caller.calls)
}

func TestNewAssistantValidation(t *testing.T) {
	ctx := context.Background()
	toolbox := assistant.NewToolbox(&stubTaskService{}, testLogger())

	t.Run("nil toolbox", func(t *testing.T) {
		_, err := NewAssistant(ctx, testLogger(), config.LLMConfig{GeminiAPIKey: "key", ModelName: "m"}, nil)
		assert.ErrorIs(t, err, assistant.ErrInvalidConfig)
	})

	t.Run("missing API key", func(t *testing.T) {
		_, err := NewAssistant(ctx, testLogger(), config.LLMConfig{ModelName: "m"}, toolbox)
		assert.ErrorIs(t, err, assistant.ErrInvalidConfig)
	})

	t.Run("missing model name", func(t *testing.T) {
		_, err := NewAssistant(ctx, testLogger(), config.LLMConfig{GeminiAPIKey: "key"}, toolbox)
		assert.ErrorIs(t, err, assistant.ErrInvalidConfig)
	})
}
