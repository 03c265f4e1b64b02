// Package rtpswitch реализует контекст переключения RTP потока.
//
// Контекст отслеживает sequence number и timestamp входящего RTP потока и
// переписывает их так, чтобы итоговый поток оставался монотонно непрерывным
// при паузах записи и при рестартах источника (смена SSRC). Используется
// рекордером для нормализации заголовков аудио/видео пакетов перед записью
// на диск: без нормализации пауза записи оставляла бы в файле разрыв
// timestamp, равный длительности паузы.
//
// Основные операции:
//   - Reset - полный сброс контекста (новый поток)
//   - Resync - пометить baseline для пересинхронизации после паузы
//   - Update - нормализовать seq/timestamp/SSRC разобранного заголовка
//
// Контекст не является thread-safe: владелец (рекордер) сериализует доступ
// своим мьютексом.
package rtpswitch

import (
	"time"

	"github.com/pion/rtp"
)

// Частоты RTP clock, используемые для оценки смещения timestamp после паузы.
// Точная частота кодека неизвестна на этом уровне, поэтому берутся
// стандартные значения: 90кГц для видео и 48кГц для аудио.
const (
	audioClockRate = 48
	videoClockRate = 90
)

// Context хранит состояние нормализации одного RTP потока.
//
// base* поля фиксируют точку отсчёта текущего сегмента потока, prev* поля -
// значения предыдущего сегмента, last* - последние выданные значения.
// Выданный seq/timestamp вычисляется как смещение от base плюс накопленный
// prev, что и даёт непрерывность через границы сегментов.
type Context struct {
	lastSSRC    uint32
	firstSSRC   uint32
	baseTs      uint32
	baseTsPrev  uint32
	lastTs      uint32
	baseSeq     uint16
	baseSeqPrev uint16
	lastSeq     uint16

	tsReset  bool
	seqReset bool
	started  bool

	lastTime time.Time

	// clock подменяется в тестах; по умолчанию time.Now
	clock func() time.Time
}

// NewContext создает новый пустой контекст переключения.
func NewContext() *Context {
	return &Context{clock: time.Now}
}

// Reset полностью сбрасывает контекст. Следующий пакет будет считаться
// началом нового потока.
func (c *Context) Reset() {
	clock := c.clock
	*c = Context{clock: clock}
	if c.clock == nil {
		c.clock = time.Now
	}
}

// Resync помечает baseline timestamp и sequence number для
// пересинхронизации: следующий пакет восстановит непрерывность вместо
// разрыва, равного длительности паузы. Вызывается при возобновлении записи.
func (c *Context) Resync() {
	c.tsReset = true
	c.seqReset = true
	c.lastTime = c.clock()
}

// Update нормализует заголовок hdr: sequence number и timestamp
// переписываются в непрерывные значения, SSRC стабилизируется на первом
// наблюдавшемся значении. Заголовок является приватной копией вызывающего
// кода, буфер исходного пакета не затрагивается.
func (c *Context) Update(hdr *rtp.Header, video bool) {
	if hdr == nil {
		return
	}
	ssrc := hdr.SSRC
	timestamp := hdr.Timestamp
	seq := hdr.SequenceNumber

	if !c.started {
		c.firstSSRC = ssrc
		c.lastSSRC = ssrc
		c.baseTs = timestamp
		c.baseSeq = seq
		c.started = true
	}

	if ssrc != c.lastSSRC {
		// Рестарт потока: источник сменил SSRC, продолжаем нумерацию
		// от последних выданных значений
		c.baseTsPrev = c.lastTs
		c.baseTs = timestamp
		c.baseSeqPrev = c.lastSeq
		c.baseSeq = seq
		c.lastSSRC = ssrc
		c.tsReset = false
		c.seqReset = false
		c.baseTsPrev += c.elapsedTicks(video)
		c.baseSeqPrev++
	}

	if c.tsReset {
		// Timestamp был на паузе: смещаем baseline на оценку
		// прошедшего времени, чтобы скрыть паузу
		c.baseTsPrev = c.lastTs
		c.baseTs = timestamp
		c.tsReset = false
		c.baseTsPrev += c.elapsedTicks(video)
	}

	if c.seqReset {
		c.baseSeqPrev = c.lastSeq
		c.baseSeq = seq
		c.seqReset = false
	}

	c.lastTs = (timestamp - c.baseTs) + c.baseTsPrev
	c.lastSeq = (seq - c.baseSeq) + c.baseSeqPrev + 1
	c.lastTime = c.clock()

	hdr.Timestamp = c.lastTs
	hdr.SequenceNumber = c.lastSeq
	hdr.SSRC = c.firstSSRC
}

// elapsedTicks переводит время с последнего пакета в тики RTP clock.
// Возвращает минимум 1 тик, чтобы гарантировать строгий рост timestamp.
func (c *Context) elapsedTicks(video bool) uint32 {
	if c.lastTime.IsZero() {
		return 0
	}
	rate := int64(audioClockRate)
	if video {
		rate = videoClockRate
	}
	diff := c.clock().Sub(c.lastTime).Microseconds() * rate / 1000
	if diff <= 0 {
		diff = 1
	}
	return uint32(diff)
}
