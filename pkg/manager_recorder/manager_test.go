package manager_recorder

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	config := DefaultManagerConfig()
	config.Directory = t.TempDir()
	mgr, err := NewManager(config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close(context.Background()) })
	return mgr
}

func TestManagerStartStop(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	rec, err := mgr.StartRecording("call-1", "opus", "", "call1-audio")
	require.NoError(t, err)
	defer rec.Destroy()

	state, err := mgr.RecordingState("call-1")
	require.NoError(t, err)
	assert.Equal(t, StateActive, state)

	got, ok := mgr.GetRecording("call-1")
	require.True(t, ok)
	assert.Equal(t, "call1-audio.mjr", got.Filename())

	require.NoError(t, mgr.StopRecording(ctx, "call-1"))
	_, ok = mgr.GetRecording("call-1")
	assert.False(t, ok)

	// Вызывающий код удерживает собственную ссылку: рекордер закрыт,
	// но доступен для чтения статистики до Destroy
	assert.False(t, rec.Writable())
}

func TestManagerDuplicateID(t *testing.T) {
	mgr := newTestManager(t)

	rec, err := mgr.StartRecording("dup", "opus", "", "")
	require.NoError(t, err)
	defer rec.Destroy()

	_, err = mgr.StartRecording("dup", "vp8", "", "")
	assert.Error(t, err)
}

func TestManagerPauseResumeLifecycle(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	rec, err := mgr.StartRecording("call-2", "opus", "", "")
	require.NoError(t, err)
	defer rec.Destroy()

	// resume из active - недопустимый переход конечного автомата
	assert.Error(t, mgr.ResumeRecording(ctx, "call-2"))

	require.NoError(t, mgr.PauseRecording(ctx, "call-2"))
	state, _ := mgr.RecordingState("call-2")
	assert.Equal(t, StatePaused, state)
	assert.True(t, rec.Paused())

	// Повторная пауза отклоняется автоматом до обращения к рекордеру
	assert.Error(t, mgr.PauseRecording(ctx, "call-2"))

	require.NoError(t, mgr.ResumeRecording(ctx, "call-2"))
	state, _ = mgr.RecordingState("call-2")
	assert.Equal(t, StateActive, state)
	assert.False(t, rec.Paused())
}

func TestManagerUnknownID(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	assert.Error(t, mgr.PauseRecording(ctx, "нет"))
	assert.Error(t, mgr.ResumeRecording(ctx, "нет"))
	assert.Error(t, mgr.StopRecording(ctx, "нет"))
	_, err := mgr.RecordingState("нет")
	assert.Error(t, err)
}

func TestManagerMaxConcurrent(t *testing.T) {
	config := DefaultManagerConfig()
	config.Directory = t.TempDir()
	config.MaxConcurrentRecordings = 2
	mgr, err := NewManager(config)
	require.NoError(t, err)
	defer mgr.Close(context.Background())

	for i := 0; i < 2; i++ {
		rec, err := mgr.StartRecording(fmt.Sprintf("r%d", i), "opus", "", "")
		require.NoError(t, err)
		defer rec.Destroy()
	}

	_, err = mgr.StartRecording("r2", "opus", "", "")
	assert.Error(t, err)

	// Остановка освобождает слот
	require.NoError(t, mgr.StopRecording(context.Background(), "r0"))
	rec, err := mgr.StartRecording("r2", "opus", "", "")
	require.NoError(t, err)
	defer rec.Destroy()
}

func TestManagerStats(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	r1, err := mgr.StartRecording("a", "opus", "", "")
	require.NoError(t, err)
	defer r1.Destroy()
	r2, err := mgr.StartRecording("b", "vp8", "", "")
	require.NoError(t, err)
	defer r2.Destroy()

	stats := mgr.Stats()
	assert.Equal(t, 2, stats.ActiveRecordings)
	assert.Equal(t, 2, stats.TotalCreated)
	require.Contains(t, stats.Recordings, "a")
	require.Contains(t, stats.Recordings, "b")

	require.NoError(t, mgr.StopRecording(ctx, "a"))
	stats = mgr.Stats()
	assert.Equal(t, 1, stats.ActiveRecordings)
	// TotalCreated не уменьшается после остановки
	assert.Equal(t, 2, stats.TotalCreated)
}

func TestManagerClose(t *testing.T) {
	config := DefaultManagerConfig()
	config.Directory = t.TempDir()
	mgr, err := NewManager(config)
	require.NoError(t, err)

	rec, err := mgr.StartRecording("c", "opus", "", "")
	require.NoError(t, err)
	defer rec.Destroy()

	require.NoError(t, mgr.Close(context.Background()))
	assert.False(t, rec.Writable())

	// Повторное закрытие - no-op, новые записи отклоняются
	require.NoError(t, mgr.Close(context.Background()))
	_, err = mgr.StartRecording("d", "opus", "", "")
	assert.Error(t, err)
}
