package recorder

import (
	"encoding/binary"
	"encoding/json"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/pion/rtp"
)

// fileInfo описывает структуру info-блока файла записи. Порядок полей
// соответствует порядку записи, опциональные поля опускаются.
type fileInfo struct {
	Type        string            `json:"t"`            // a / v / d
	Codec       string            `json:"c"`            // имя кодека
	Fmtp        string            `json:"f,omitempty"`  // codec-specific параметры
	Description string            `json:"d,omitempty"`  // описание потока
	Extensions  map[string]string `json:"x,omitempty"`  // id -> имя RTP расширения
	Created     int64             `json:"s"`            // момент создания, мкс
	FirstFrame  int64             `json:"u"`            // момент первого кадра, мкс
	OpusRED     int               `json:"or,omitempty"` // RED payload type (аудио)
	Encrypted   bool              `json:"e,omitempty"`  // нагрузка зашифрована выше
}

// SaveFrame записывает один кадр в файл. Горячий путь рекордера.
//
// Предусловия проверяются по порядку: непустой буфер -> writable ->
// не paused; нарушение любого дает типизированную ошибку без ввода-вывода.
// Перед первым кадром лениво записывается info-блок, фиксирующий
// конфигурацию и точку отсчета времени.
//
// Для аудио/видео sequence number, timestamp и SSRC заголовка
// нормализуются через контекст переключения и записываются из приватной
// scratch-копии первых 12 байт: буфер вызывающего кода никогда не
// мутируется. Для data-кадров перед нагрузкой дополнительно пишется
// 8-байтовый wall-clock момент, так как в самих данных его нет.
//
// Ошибки ввода-вывода после предусловий прерывают только текущий кадр;
// рекордер остается открытым для последующих.
func (r *Recorder) SaveFrame(buffer []byte) error {
	if r == nil {
		return newError(ErrorCodeInvalidArgument, "", "рекордер отсутствует")
	}
	// Lock-free быстрые проверки до захвата мьютекса. Ошибки именуют
	// запись по неизменному finalName: текущее имя на диске защищено
	// мьютексом (Close переименовывает), трогать его здесь нельзя
	if !r.writable.Load() {
		return newError(ErrorCodeNotWritable, r.finalName, "запись закрыта")
	}
	if r.paused.Load() {
		return newError(ErrorCodePaused, r.finalName, "запись приостановлена")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(buffer) == 0 {
		return newError(ErrorCodeInvalidArgument, r.filename, "пустой буфер кадра")
	}
	if r.file == nil {
		return newError(ErrorCodeFileClosed, r.filename, "файл записи освобожден")
	}
	if !r.writable.Load() {
		return newError(ErrorCodeNotWritable, r.filename, "запись закрыта")
	}
	if r.paused.Load() {
		return newError(ErrorCodePaused, r.filename, "запись приостановлена")
	}

	isMedia := r.mediaType != MediaTypeData
	declaredLen := len(buffer)
	if !isMedia {
		declaredLen += 8
	}
	if declaredLen > math.MaxUint16 {
		return newError(ErrorCodeInvalidArgument, r.filename,
			"кадр превышает максимальную длину контейнера")
	}

	// Для аудио/видео заголовок разбирается до какого-либо ввода-вывода:
	// некорректный пакет отклоняется целиком, файл не затрагивается
	var hdr rtp.Header
	if isMedia {
		if len(buffer) < rtpFixedHeaderSize {
			return newError(ErrorCodeInvalidArgument, r.filename, "буфер короче RTP заголовка")
		}
		if _, err := hdr.Unmarshal(buffer); err != nil {
			return wrapError(ErrorCodeInvalidArgument, r.filename, "не удалось разобрать RTP заголовок", err)
		}
	}

	now := r.clock()
	if !r.headerDone.Load() {
		if err := r.writeInfoBlock(now); err != nil {
			return err
		}
	}

	// Заголовок кадра: маркер[4], относительный timestamp[4], длина[2]
	var head [10]byte
	copy(head[0:4], frameMarker)
	var elapsed uint32
	if now.After(r.started) {
		elapsed = uint32(now.Sub(r.started).Milliseconds())
	}
	binary.BigEndian.PutUint32(head[4:8], elapsed)
	binary.BigEndian.PutUint16(head[8:10], uint16(declaredLen))
	if err := r.writeAll(head[:]); err != nil {
		slog.Warn("recorder: couldn't write frame header, expect issues post-processing",
			slog.String("file", r.filename), slog.Any("error", err))
	}

	if !isMedia {
		// Data-кадры не несут собственного времени, добавляем wall-clock
		var wallClock [8]byte
		binary.BigEndian.PutUint64(wallClock[:], uint64(time.Now().UnixMicro()))
		if err := r.writeAll(wallClock[:]); err != nil {
			slog.Warn("recorder: couldn't write data timestamp, expect issues post-processing",
				slog.String("file", r.filename), slog.Any("error", err))
		}
		if err := r.writeAll(buffer); err != nil {
			onWriteError()
			return wrapError(ErrorCodeFrameWriteFailed, r.filename, "ошибка записи кадра", err)
		}
	} else {
		// Нормализованные поля пишутся из scratch-копии фиксированного
		// заголовка, буфер вызывающего кода не изменяется
		r.context.Update(&hdr, r.mediaType == MediaTypeVideo)
		var scratch [rtpFixedHeaderSize]byte
		copy(scratch[:], buffer[:rtpFixedHeaderSize])
		binary.BigEndian.PutUint16(scratch[2:4], hdr.SequenceNumber)
		binary.BigEndian.PutUint32(scratch[4:8], hdr.Timestamp)
		binary.BigEndian.PutUint32(scratch[8:12], hdr.SSRC)
		if err := r.writeAll(scratch[:]); err != nil {
			onWriteError()
			return wrapError(ErrorCodeFrameWriteFailed, r.filename, "ошибка записи заголовка кадра", err)
		}
		if err := r.writeAll(buffer[rtpFixedHeaderSize:]); err != nil {
			onWriteError()
			return wrapError(ErrorCodeFrameWriteFailed, r.filename, "ошибка записи кадра", err)
		}
	}

	r.framesSaved.Add(1)
	r.bytesSaved.Add(uint64(len(buffer)))
	onFrameSaved(r.mediaType, len(buffer))
	return nil
}

// writeInfoBlock записывает info-блок: 2-байтовый big-endian префикс длины
// и JSON с конфигурацией потока. Вызывается ровно один раз, под мьютексом,
// непосредственно перед первым кадром. Ошибка сериализации прерывает
// запись кадра до какого-либо ввода-вывода; ошибки записи самого блока
// логируются, но не фатальны.
func (r *Recorder) writeInfoBlock(now time.Time) error {
	info := fileInfo{
		Type:    r.mediaType.tag(),
		Codec:   r.codec,
		Fmtp:    r.fmtp,
		Created: r.created.UnixMicro(),
	}
	info.Description = r.description
	if len(r.extensions) > 0 {
		info.Extensions = make(map[string]string, len(r.extensions))
		for id, name := range r.extensions {
			if id >= minExtensionID && id <= maxExtensionID && name != "" {
				info.Extensions[strconv.Itoa(id)] = name
			}
		}
	}
	info.FirstFrame = now.UnixMicro()
	if r.mediaType == MediaTypeAudio && r.opusRED > 0 {
		info.OpusRED = r.opusRED
	}
	if r.encrypted {
		info.Encrypted = true
	}

	payload, err := json.Marshal(&info)
	if err != nil {
		return wrapError(ErrorCodeInfoEncodeFailed, r.filename, "не удалось сериализовать info-блок", err)
	}
	var sizePrefix [2]byte
	binary.BigEndian.PutUint16(sizePrefix[:], uint16(len(payload)))
	if err := r.writeAll(sizePrefix[:]); err != nil {
		slog.Warn("recorder: couldn't write size of info block, expect issues post-processing",
			slog.String("file", r.filename), slog.Any("error", err))
	}
	if err := r.writeAll(payload); err != nil {
		slog.Warn("recorder: couldn't write info block, expect issues post-processing",
			slog.String("file", r.filename), slog.Any("error", err))
	}

	r.started = now
	r.headerDone.Store(true)
	return nil
}

// writeAll пишет буфер целиком, продолжая с места частичной записи.
// Ошибкой считается только вызов записи без прогресса.
func (r *Recorder) writeAll(p []byte) error {
	for len(p) > 0 {
		n, err := r.file.Write(p)
		if n > 0 {
			p = p[n:]
			continue
		}
		if err != nil {
			return err
		}
		return newError(ErrorCodeFrameWriteFailed, r.filename, "запись без прогресса")
	}
	return nil
}
