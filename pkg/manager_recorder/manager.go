// Package manager_recorder управляет набором именованных рекордеров на
// стороне хост-системы.
//
// Каждой записи соответствует явный конечный автомат жизненного цикла
// (active -> paused -> active -> closed), что упрощает рассуждение о
// состоянии по сравнению с независимыми флагами и защищает от
// некорректных последовательностей команд на уровне API менеджера.
//
// Менеджер демонстрирует контракт разделяемого владения рекордером:
// удерживает собственную ссылку (Ref) и отпускает ее при остановке.
package manager_recorder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/looplab/fsm"

	"github.com/arzzra/media_recorder/pkg/recorder"
)

// Состояния жизненного цикла записи
const (
	StateActive = "active"
	StatePaused = "paused"
	StateClosed = "closed"
)

// События конечного автомата записи
const (
	eventPause  = "pause"
	eventResume = "resume"
	eventStop   = "stop"
)

// newRecordingFSM создает конечный автомат жизненного цикла записи.
// Запись создается сразу в состоянии active: рекордер принимает кадры с
// момента создания.
func newRecordingFSM() *fsm.FSM {
	return fsm.NewFSM(
		StateActive,
		fsm.Events{
			{Name: eventPause, Src: []string{StateActive}, Dst: StatePaused},
			{Name: eventResume, Src: []string{StatePaused}, Dst: StateActive},
			{Name: eventStop, Src: []string{StateActive, StatePaused}, Dst: StateClosed},
		}, nil,
	)
}

// recordingInfo содержит информацию об одной управляемой записи
type recordingInfo struct {
	rec       *recorder.Recorder
	fsm       *fsm.FSM
	createdAt time.Time
}

// ManagerConfig содержит конфигурацию менеджера записей
type ManagerConfig struct {
	// Directory - каталог для всех записей менеджера
	Directory string
	// MaxConcurrentRecordings - максимум одновременных записей (0 = без лимита)
	MaxConcurrentRecordings int
	// RecorderConfig - конфигурация подсистемы записи (временные имена и пр.)
	RecorderConfig *recorder.Config
}

// DefaultManagerConfig возвращает конфигурацию по умолчанию
func DefaultManagerConfig() *ManagerConfig {
	return &ManagerConfig{
		MaxConcurrentRecordings: 100,
		RecorderConfig:          recorder.DefaultConfig(),
	}
}

// Manager управляет набором именованных записей.
// Thread-safe: все операции могут вызываться из разных горутин.
type Manager struct {
	config     *ManagerConfig
	recordings map[string]*recordingInfo
	mutex      sync.RWMutex
	closed     bool
	logger     *slog.Logger

	totalCreated int
}

// NewManager создает менеджер записей
func NewManager(config *ManagerConfig) (*Manager, error) {
	if config == nil {
		config = DefaultManagerConfig()
	}
	if config.RecorderConfig == nil {
		config.RecorderConfig = recorder.DefaultConfig()
	}
	if err := config.RecorderConfig.Validate(); err != nil {
		return nil, fmt.Errorf("невалидная конфигурация рекордера: %w", err)
	}
	return &Manager{
		config:     config,
		recordings: make(map[string]*recordingInfo),
		logger:     slog.Default().With(slog.String("component", "recorder_manager")),
	}, nil
}

// StartRecording создает запись с заданным идентификатором.
// filename опционален: при пустом значении имя генерируется случайно.
func (m *Manager) StartRecording(id, codec, fmtp, filename string) (*recorder.Recorder, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.closed {
		return nil, fmt.Errorf("менеджер закрыт")
	}
	if _, exists := m.recordings[id]; exists {
		return nil, fmt.Errorf("запись с ID %s уже существует", id)
	}
	if m.config.MaxConcurrentRecordings > 0 && len(m.recordings) >= m.config.MaxConcurrentRecordings {
		return nil, fmt.Errorf("достигнут максимум одновременных записей (%d)", m.config.MaxConcurrentRecordings)
	}

	rec, err := recorder.NewWithConfig(m.config.RecorderConfig, m.config.Directory, codec, fmtp, filename)
	if err != nil {
		return nil, fmt.Errorf("не удалось создать рекордер: %w", err)
	}

	// Менеджер удерживает собственную ссылку; вызывающий код получает
	// рекордер без обязательств по освобождению до StopRecording
	m.recordings[id] = &recordingInfo{
		rec:       rec.Ref(),
		fsm:       newRecordingFSM(),
		createdAt: time.Now(),
	}
	m.totalCreated++
	m.logger.Info("запись создана",
		slog.String("id", id), slog.String("codec", codec), slog.String("file", rec.Filename()))
	return rec, nil
}

// PauseRecording приостанавливает запись
func (m *Manager) PauseRecording(ctx context.Context, id string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	info, exists := m.recordings[id]
	if !exists {
		return fmt.Errorf("запись %s не найдена", id)
	}
	if err := info.fsm.Event(ctx, eventPause); err != nil {
		return fmt.Errorf("недопустимый переход: %w", err)
	}
	if err := info.rec.Pause(); err != nil {
		return err
	}
	m.logger.Info("запись приостановлена", slog.String("id", id))
	return nil
}

// ResumeRecording возобновляет приостановленную запись
func (m *Manager) ResumeRecording(ctx context.Context, id string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	info, exists := m.recordings[id]
	if !exists {
		return fmt.Errorf("запись %s не найдена", id)
	}
	if err := info.fsm.Event(ctx, eventResume); err != nil {
		return fmt.Errorf("недопустимый переход: %w", err)
	}
	if err := info.rec.Resume(); err != nil {
		return err
	}
	m.logger.Info("запись возобновлена", slog.String("id", id))
	return nil
}

// StopRecording закрывает запись и отпускает ссылку менеджера.
// Рекордер освобождается, когда все остальные владельцы вызовут Unref.
func (m *Manager) StopRecording(ctx context.Context, id string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	info, exists := m.recordings[id]
	if !exists {
		return fmt.Errorf("запись %s не найдена", id)
	}
	if err := info.fsm.Event(ctx, eventStop); err != nil {
		return fmt.Errorf("недопустимый переход: %w", err)
	}
	if err := info.rec.Close(); err != nil && !recorder.HasErrorCode(err, recorder.ErrorCodeAlreadyClosed) {
		m.logger.Warn("ошибка закрытия записи", slog.String("id", id), slog.Any("error", err))
	}
	info.rec.Unref()
	delete(m.recordings, id)
	m.logger.Info("запись остановлена", slog.String("id", id))
	return nil
}

// RecordingState возвращает состояние жизненного цикла записи
func (m *Manager) RecordingState(id string) (string, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	info, exists := m.recordings[id]
	if !exists {
		return "", fmt.Errorf("запись %s не найдена", id)
	}
	return info.fsm.Current(), nil
}

// GetRecording возвращает рекордер по идентификатору
func (m *Manager) GetRecording(id string) (*recorder.Recorder, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	info, exists := m.recordings[id]
	if !exists {
		return nil, false
	}
	return info.rec, true
}

// ManagerStats агрегированная статистика менеджера
type ManagerStats struct {
	ActiveRecordings int
	TotalCreated     int
	Recordings       map[string]recorder.Stats
}

// Stats возвращает агрегированную статистику по всем записям
func (m *Manager) Stats() ManagerStats {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	stats := ManagerStats{
		ActiveRecordings: len(m.recordings),
		TotalCreated:     m.totalCreated,
		Recordings:       make(map[string]recorder.Stats, len(m.recordings)),
	}
	for id, info := range m.recordings {
		stats.Recordings[id] = info.rec.Stats()
	}
	return stats
}

// Close останавливает все записи и закрывает менеджер
func (m *Manager) Close(ctx context.Context) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	for id, info := range m.recordings {
		if info.fsm.Current() != StateClosed {
			_ = info.fsm.Event(ctx, eventStop)
		}
		if err := info.rec.Close(); err != nil && !recorder.HasErrorCode(err, recorder.ErrorCodeAlreadyClosed) {
			m.logger.Warn("ошибка закрытия записи", slog.String("id", id), slog.Any("error", err))
		}
		info.rec.Unref()
		delete(m.recordings, id)
	}
	m.logger.Info("менеджер записей закрыт")
	return nil
}
