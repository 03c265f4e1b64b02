// metrics.go - метрики подсистемы записи для production monitoring
//
// Prometheus метрики + атомарные счетчики для fast path. Сбор метрик
// опционален: пока коллектор не установлен, все хуки являются no-op и
// горячий путь записи не платит за мониторинг.
package recorder

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector собирает и экспортирует метрики рекордеров процесса
//
// Предоставляет:
//   - Prometheus метрики для внешнего мониторинга
//   - Разбивку кадров и байт по типу медиа
//   - Счетчики ошибок записи для алертинга
//
// Все операции thread-safe.
type MetricsCollector struct {
	recordersCreated *prometheus.CounterVec
	recordersActive  prometheus.Gauge
	recordersClosed  *prometheus.CounterVec
	framesWritten    *prometheus.CounterVec
	bytesWritten     *prometheus.CounterVec
	pausesTotal      prometheus.Counter
	writeErrors      prometheus.Counter
}

// NewMetricsCollector создает коллектор и регистрирует метрики в reg.
// Для реестра по умолчанию передайте prometheus.DefaultRegisterer.
func NewMetricsCollector(reg prometheus.Registerer) *MetricsCollector {
	factory := promauto.With(reg)
	return &MetricsCollector{
		recordersCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "media", Subsystem: "recorder",
			Name: "created_total", Help: "Количество созданных рекордеров",
		}, []string{"type"}),
		recordersActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "media", Subsystem: "recorder",
			Name: "active", Help: "Количество живых рекордеров",
		}),
		recordersClosed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "media", Subsystem: "recorder",
			Name: "closed_total", Help: "Количество закрытых записей",
		}, []string{"type"}),
		framesWritten: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "media", Subsystem: "recorder",
			Name: "frames_total", Help: "Количество записанных кадров",
		}, []string{"type"}),
		bytesWritten: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "media", Subsystem: "recorder",
			Name: "bytes_total", Help: "Объем записанной нагрузки в байтах",
		}, []string{"type"}),
		pausesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "media", Subsystem: "recorder",
			Name: "pauses_total", Help: "Количество пауз записи",
		}),
		writeErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "media", Subsystem: "recorder",
			Name: "write_errors_total", Help: "Количество ошибок записи кадров",
		}),
	}
}

var (
	metricsMu       sync.RWMutex
	globalCollector *MetricsCollector
)

// SetMetricsCollector устанавливает коллектор метрик для всех рекордеров
// процесса. nil отключает сбор.
func SetMetricsCollector(mc *MetricsCollector) {
	metricsMu.Lock()
	globalCollector = mc
	metricsMu.Unlock()
}

func collector() *MetricsCollector {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return globalCollector
}

func onRecorderCreated(t MediaType) {
	if mc := collector(); mc != nil {
		mc.recordersCreated.WithLabelValues(t.String()).Inc()
		mc.recordersActive.Inc()
	}
}

func onRecorderClosed(t MediaType) {
	if mc := collector(); mc != nil {
		mc.recordersClosed.WithLabelValues(t.String()).Inc()
	}
}

func onRecorderFreed() {
	if mc := collector(); mc != nil {
		mc.recordersActive.Dec()
	}
}

func onFrameSaved(t MediaType, bytes int) {
	if mc := collector(); mc != nil {
		mc.framesWritten.WithLabelValues(t.String()).Inc()
		mc.bytesWritten.WithLabelValues(t.String()).Add(float64(bytes))
	}
}

func onRecorderPaused() {
	if mc := collector(); mc != nil {
		mc.pausesTotal.Inc()
	}
}

func onWriteError() {
	if mc := collector(); mc != nil {
		mc.writeErrors.Inc()
	}
}
