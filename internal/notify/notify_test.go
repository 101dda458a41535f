package notify

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

type mockBot struct {
	mock.Mock
}

func (m *mockBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return args.Get(0).(tgbotapi.Message), args.Error(1)
}

func (m *mockBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	args := m.Called(c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tgbotapi.APIResponse), args.Error(1)
}

type mockPlayer struct {
	mock.Mock
}

func (m *mockPlayer) Play(ctx context.Context, s Sound) error {
	return m.Called(ctx, s).Error(0)
}

type mockVibrator struct {
	mock.Mock
}

func (m *mockVibrator) Vibrate(ctx context.Context, pattern []time.Duration) error {
	return m.Called(ctx, pattern).Error(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, n Notification) error {
	return m.Called(ctx, n).Error(0)
}

func TestSoundResolver(t *testing.T) {
	dir := t.TempDir()
	bell := filepath.Join(dir, "bell.ogg")
	require.NoError(t, os.WriteFile(bell, []byte("ogg"), 0o600))
	r := NewSoundResolver(dir)

	s, err := r.Resolve("")
	require.NoError(t, err)
	assert.True(t, s.IsDefault())

	s, err = r.Resolve(DefaultSoundRef)
	require.NoError(t, err)
	assert.True(t, s.IsDefault())

	s, err = r.Resolve("bell.ogg")
	require.NoError(t, err)
	assert.Equal(t, bell, s.Path)

	s, err = r.Resolve("file://" + bell)
	require.NoError(t, err)
	assert.Equal(t, bell, s.Path)

	_, err = r.Resolve("missing.ogg")
	assert.ErrorIs(t, err, ErrInvalidSound)

	_, err = r.Resolve("content://media/internal/audio/12")
	assert.ErrorIs(t, err, ErrInvalidSound)

	_, err = NewSoundResolver("").Resolve("bell.ogg")
	assert.ErrorIs(t, err, ErrInvalidSound)
}

func TestPresenter_Present(t *testing.T) {
	ctx := context.Background()
	notifier := new(mockNotifier)
	player := new(mockPlayer)
	vibrator := new(mockVibrator)
	p := NewPresenter(notifier, player, vibrator, testLogger())

	pattern := []time.Duration{0, 500 * time.Millisecond}
	n := Notification{ID: 1, Title: "t", Sound: Sound{Ref: "bell.ogg", Path: "/x/bell.ogg"}, Vibration: pattern}

	vibrator.On("Vibrate", ctx, pattern).Return(errors.New("no motor")).Once()
	player.On("Play", ctx, n.Sound).Return(errors.New("corrupt")).Once()
	player.On("Play", ctx, Sound{}).Return(nil).Once()
	notifier.On("Notify", ctx, n).Return(nil).Once()

	require.NoError(t, p.Present(ctx, n))
	notifier.AssertExpectations(t)
	player.AssertExpectations(t)
	vibrator.AssertExpectations(t)
}

func TestPresenter_NoVibrationWhenPatternEmpty(t *testing.T) {
	ctx := context.Background()
	notifier := new(mockNotifier)
	player := new(mockPlayer)
	vibrator := new(mockVibrator)
	p := NewPresenter(notifier, player, vibrator, testLogger())

	n := Notification{ID: 1}
	player.On("Play", ctx, Sound{}).Return(nil).Once()
	notifier.On("Notify", ctx, n).Return(errors.New("surface down")).Once()

	err := p.Present(ctx, n)
	assert.Error(t, err)
	vibrator.AssertNotCalled(t, "Vibrate", mock.Anything, mock.Anything)
}

func TestTelegramNotifier_ReplacesPreviousMessage(t *testing.T) {
	ctx := context.Background()
	bot := new(mockBot)
	tn := NewTelegramNotifier(bot, 42, 1000, 10, testLogger())

	n := Notification{ID: 1001, Title: "¿Registraste tus gastos?", Body: "No olvides anotar lo que gastaste hoy", Priority: PriorityMax}

	bot.On("Send", mock.AnythingOfType("tgbotapi.MessageConfig")).Return(tgbotapi.Message{MessageID: 7}, nil).Once()
	require.NoError(t, tn.Notify(ctx, n))

	bot.On("Request", tgbotapi.NewDeleteMessage(42, 7)).Return(&tgbotapi.APIResponse{Ok: true}, nil).Once()
	bot.On("Send", mock.AnythingOfType("tgbotapi.MessageConfig")).Return(tgbotapi.Message{MessageID: 8}, nil).Once()
	require.NoError(t, tn.Notify(ctx, n))

	bot.AssertExpectations(t)

	sent := bot.Calls[0].Arguments.Get(0).(tgbotapi.MessageConfig)
	assert.Equal(t, int64(42), sent.ChatID)
	assert.Contains(t, sent.Text, "¿Registraste tus gastos?")
	assert.Contains(t, sent.Text, "No olvides anotar")
	assert.False(t, sent.DisableNotification)
}

func TestTelegramNotifier_SendError(t *testing.T) {
	bot := new(mockBot)
	tn := NewTelegramNotifier(bot, 42, 1000, 10, testLogger())

	bot.On("Send", mock.Anything).Return(tgbotapi.Message{}, errors.New("forbidden")).Once()
	err := tn.Notify(context.Background(), Notification{ID: 1})
	assert.Error(t, err)
}

func TestTelegramNotifier_RetriesRateLimit(t *testing.T) {
	bot := new(mockBot)
	tn := NewTelegramNotifier(bot, 42, 1000, 10, testLogger())
	tn.retryDelays = []time.Duration{time.Millisecond, time.Millisecond}

	limited := &tgbotapi.Error{Code: 429, Message: "Too Many Requests"}
	bot.On("Send", mock.Anything).Return(tgbotapi.Message{}, limited).Once()
	bot.On("Send", mock.Anything).Return(tgbotapi.Message{MessageID: 3}, nil).Once()

	require.NoError(t, tn.Notify(context.Background(), Notification{ID: 1}))
	bot.AssertNumberOfCalls(t, "Send", 2)
}

func TestTelegramNotifier_GivesUpAfterRetries(t *testing.T) {
	bot := new(mockBot)
	tn := NewTelegramNotifier(bot, 42, 1000, 10, testLogger())
	tn.retryDelays = []time.Duration{time.Millisecond}

	bot.On("Send", mock.Anything).Return(tgbotapi.Message{}, &tgbotapi.Error{Code: 502, Message: "Bad Gateway"})

	assert.Error(t, tn.Notify(context.Background(), Notification{ID: 1}))
	bot.AssertNumberOfCalls(t, "Send", 2)
}

func TestTelegramNotifier_NoRetryOnBadRequest(t *testing.T) {
	bot := new(mockBot)
	tn := NewTelegramNotifier(bot, 42, 1000, 10, testLogger())
	tn.retryDelays = []time.Duration{time.Millisecond}

	bot.On("Send", mock.Anything).Return(tgbotapi.Message{}, &tgbotapi.Error{Code: 400, Message: "chat not found"}).Once()

	assert.Error(t, tn.Notify(context.Background(), Notification{ID: 1}))
	bot.AssertNumberOfCalls(t, "Send", 1)
}
