package homework

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (r *recordingSender) Send(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, text)
	return r.err
}

func (r *recordingSender) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.sent...)
}

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Statuses(ctx context.Context, from int64) (*StatusResponse, error) {
	args := m.Called(ctx, from)
	resp, _ := args.Get(0).(*StatusResponse)
	return resp, args.Error(1)
}

type fetchFunc func(ctx context.Context, from int64) (*StatusResponse, error)

func (f fetchFunc) Statuses(ctx context.Context, from int64) (*StatusResponse, error) {
	return f(ctx, from)
}

func TestClient_Statuses(t *testing.T) {
	var gotAuth, gotFrom string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotFrom = r.URL.Query().Get("from_date")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"homeworks":    []map[string]string{{"homework_name": "hw1", "status": "approved"}},
			"current_date": 1700000100,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", time.Second)
	resp, err := c.Statuses(context.Background(), 1700000000)
	require.NoError(t, err)
	assert.Equal(t, "OAuth secret", gotAuth)
	assert.Equal(t, "1700000000", gotFrom)
	require.Len(t, resp.Homeworks, 1)
	assert.Equal(t, "hw1", resp.Homeworks[0].HomeworkName)
	assert.Equal(t, int64(1700000100), resp.CurrentDate)
}

func TestClient_StatusesNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "secret", time.Second).Statuses(context.Background(), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestTelegram_Send(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg := NewTelegram(srv.URL+"/", "T0KEN", "42", time.Second)
	require.NoError(t, tg.Send(context.Background(), "привет"))
	assert.Equal(t, "/botT0KEN/sendMessage", gotPath)
	assert.Equal(t, "42", gotBody["chat_id"])
	assert.Equal(t, "привет", gotBody["text"])
}

func TestTelegram_SendRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer srv.Close()

	err := NewTelegram(srv.URL, "T", "1", time.Second).Send(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestPoller_TickSendsStatusesAndAdvances(t *testing.T) {
	api := &mockFetcher{}
	api.On("Statuses", mock.Anything, int64(100)).Return(&StatusResponse{
		Homeworks:   []Homework{{HomeworkName: "a", Status: "reviewing"}, {HomeworkName: "b", Status: "rejected"}},
		CurrentDate: 500,
	}, nil).Once()
	api.On("Statuses", mock.Anything, int64(500)).Return(&StatusResponse{Homeworks: []Homework{}}, nil).Once()

	bot := &recordingSender{}
	p := NewPoller(api, bot, zap.NewNop(), time.Minute)
	p.SetFrom(100)

	require.NoError(t, p.Tick(context.Background()))
	assert.Equal(t, int64(500), p.From())
	assert.Equal(t, []string{
		`Изменился статус проверки работы "a". Работа взята на ревью.`,
		`Изменился статус проверки работы "b". Работа проверена: у ревьюера есть замечания.`,
	}, bot.messages())

	// No current_date keeps the previous timestamp.
	require.NoError(t, p.Tick(context.Background()))
	assert.Equal(t, int64(500), p.From())
	assert.Len(t, bot.messages(), 2)
	api.AssertExpectations(t)
}

func TestPoller_TickReportsFailures(t *testing.T) {
	tests := []struct {
		name string
		resp *StatusResponse
		err  error
		want string
	}{
		{"transport", nil, errors.New("connection refused"), "Сбой в работе программы: connection refused"},
		{"missing key", &StatusResponse{}, nil, "Сбой в работе программы: " + ErrMissingHomeworks.Error()},
		{"unknown status", &StatusResponse{Homeworks: []Homework{{HomeworkName: "x", Status: "weird"}}}, nil,
			`Сбой в работе программы: неизвестный статус работы: "weird"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := fetchFunc(func(context.Context, int64) (*StatusResponse, error) { return tt.resp, tt.err })
			bot := &recordingSender{}
			p := NewPoller(api, bot, zap.NewNop(), time.Minute)
			p.SetFrom(7)

			assert.Error(t, p.Tick(context.Background()))
			assert.Equal(t, []string{tt.want}, bot.messages())
			assert.Equal(t, int64(7), p.From())
		})
	}
}

func TestPoller_BadEntryDoesNotRepeatDelivered(t *testing.T) {
	var froms []int64
	api := fetchFunc(func(_ context.Context, from int64) (*StatusResponse, error) {
		froms = append(froms, from)
		if from == 1700000000 {
			return &StatusResponse{
				Homeworks: []Homework{
					{HomeworkName: "hw1", Status: "approved"},
					{HomeworkName: "hw2", Status: "weird"},
					{HomeworkName: "hw3", Status: "reviewing"},
				},
				CurrentDate: 1800000000,
			}, nil
		}
		return &StatusResponse{Homeworks: []Homework{}, CurrentDate: from}, nil
	})
	bot := &recordingSender{}
	p := NewPoller(api, bot, zap.NewNop(), time.Minute)
	p.SetFrom(1700000000)

	err := p.Tick(context.Background())
	assert.ErrorIs(t, err, ErrUnknownStatus)
	require.NoError(t, p.Tick(context.Background()))

	assert.Equal(t, []int64{1700000000, 1800000000}, froms)
	assert.Equal(t, []string{
		`Изменился статус проверки работы "hw1". Работа проверена, ревьюеру всё понравилось. Ура!`,
		`Изменился статус проверки работы "hw3". Работа взята на ревью.`,
		`Сбой в работе программы: неизвестный статус работы: "weird"`,
	}, bot.messages())
}

func TestPoller_RunStopsOnCancel(t *testing.T) {
	calls := make(chan struct{}, 10)
	api := fetchFunc(func(context.Context, int64) (*StatusResponse, error) {
		calls <- struct{}{}
		return &StatusResponse{Homeworks: []Homework{}}, nil
	})
	p := NewPoller(api, &recordingSender{}, zap.NewNop(), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	<-calls
	<-calls
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop after cancel")
	}
}

func TestNewLogger_WritesFile(t *testing.T) {
	file := t.TempDir() + "/bot.log"
	log := NewLogger("debug", file)
	log.Info("hello")
	_ = log.Sync()
	assert.FileExists(t, file)
}
