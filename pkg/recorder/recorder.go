package recorder

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/arzzra/media_recorder/pkg/rtpswitch"
)

// Recorder - потокобезопасный append-only рекордер медиа кадров.
//
// Рекордер сохраняет поток кадров (аудио, видео или данные data channel) в
// структурированный бинарный контейнер, пригодный для офлайн
// постобработки. Доставкой кадров владеет вызывающая система; задача
// рекордера - сделать каждый принятый кадр долговечным, по порядку, с
// метаданными, достаточными для последующей интерпретации потока.
//
// Жизненный цикл:
//   - создание (New/NewFull/NewWithConfig) - файл открыт, записана сигнатура
//   - окно конфигурации (AddExtmap, SetDescription, SetOpusRED,
//     MarkEncrypted) - до первого кадра
//   - запись кадров (SaveFrame), пауза/возобновление (Pause/Resume)
//   - закрытие (Close) - идемпотентно, снимает временное расширение
//   - освобождение (Unref/Destroy) - ресурсы освобождаются когда счетчик
//     ссылок достигает нуля
//
// Четыре флага состояния читаются атомарно, что дает lock-free отклонение
// недопустимых вызовов без захвата мьютекса записи. Все мутации файла и
// конфигурации сериализованы одним мьютексом на рекордер.
type Recorder struct {
	mu sync.Mutex

	// Идентичность
	dir       string
	filename  string // текущее имя на диске (возможно с временным расширением)
	finalName string // имя после закрытия, вычисляется при создании
	file      *os.File
	mediaType MediaType

	// Конфигурация (изменяема только до записи info-блока)
	codec       string
	fmtp        string
	description string
	extensions  map[int]string
	opusRED     int
	encrypted   bool

	// Временные метки
	created time.Time // момент создания рекордера
	started time.Time // момент записи первого кадра, точка отсчета

	// Атомарные флаги состояния (lock-free fast-reject)
	writable   atomic.Bool
	headerDone atomic.Bool
	paused     atomic.Bool
	destroyed  atomic.Bool

	refs atomic.Int32

	// Счетчики для статистики (атомарные для fast path)
	framesSaved atomic.Uint64
	bytesSaved  atomic.Uint64

	config  *Config
	context *rtpswitch.Context

	// clock подменяется в тестах; по умолчанию time.Now
	clock func() time.Time
}

// New создает рекордер без codec-specific параметров.
// Аналог NewFull с пустым fmtp.
func New(dir, codec, filename string) (*Recorder, error) {
	return NewFull(dir, codec, "", filename)
}

// NewFull создает рекордер с конфигурацией по умолчанию (без временных
// имен). dir и filename опциональны: при пустом filename имя генерируется
// случайно, при пустом dir используется каталог из filename.
func NewFull(dir, codec, fmtp, filename string) (*Recorder, error) {
	return NewWithConfig(DefaultConfig(), dir, codec, fmtp, filename)
}

// NewWithConfig создает рекордер с явной конфигурацией подсистемы записи.
//
// Имя кодека обязательно и регистронезависимо сопоставляется с закрытыми
// наборами поддерживаемых кодеков; нераспознанный кодек - ошибка, объект
// не создается. При успехе файл уже существует на диске и содержит
// 8-байтовую сигнатуру контейнера. Любая ошибка по пути создания
// освобождает все частично выделенные ресурсы.
func NewWithConfig(config *Config, dir, codec, fmtp, filename string) (*Recorder, error) {
	if codec == "" {
		return nil, newError(ErrorCodeCodecMissing, "", "не указан кодек")
	}
	mediaType, ok := mediaTypeForCodec(codec)
	if !ok {
		return nil, newError(ErrorCodeCodecUnsupported, "", fmt.Sprintf("неподдерживаемый кодек %q", codec))
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, wrapError(ErrorCodeInvalidArgument, "", "некорректная конфигурация", err)
	}

	// Разрешение каталога и имени файла: заданный dir имеет приоритет,
	// иначе каталог берется из самого filename
	recDir := dir
	recFile := ""
	if filename != "" {
		parent := filepath.Dir(filename)
		base := filepath.Base(filename)
		if dir == "" {
			recDir = parent
			recFile = base
		} else {
			recFile = filename
			if parent != "." || base != filename {
				slog.Warn("recorder: unsupported combination of dir and filename",
					slog.String("dir", dir), slog.String("filename", filename))
			}
		}
	}

	if recDir != "" {
		fi, err := os.Stat(recDir)
		switch {
		case err != nil && os.IsNotExist(err):
			if err := os.MkdirAll(recDir, 0o755); err != nil {
				return nil, wrapError(ErrorCodeDirectoryFailed, recDir, "не удалось создать каталог", err)
			}
		case err != nil:
			return nil, wrapError(ErrorCodeDirectoryFailed, recDir, "ошибка stat каталога", err)
		case !fi.IsDir():
			return nil, newError(ErrorCodeDirectoryFailed, recDir, "путь существует, но не является каталогом")
		}
	}

	stem := recFile
	if stem == "" {
		stem = fmt.Sprintf("janus-recording-%d", uuid.New().ID())
	}
	finalName := stem + fileExtension
	diskName := finalName
	if config.TempNames {
		diskName = finalName + "." + config.TempExtension
	}
	path := diskName
	if recDir != "" {
		path = filepath.Join(recDir, diskName)
	}
	if config.isFolderProtected(path) {
		return nil, newError(ErrorCodePathProtected, path, "путь записи находится в защищенной папке")
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, wrapError(ErrorCodeFileCreateFailed, path, "не удалось создать файл записи", err)
	}
	if _, err := file.WriteString(fileMagic); err != nil {
		file.Close()
		os.Remove(path)
		return nil, wrapError(ErrorCodeMagicWriteFailed, path, "не удалось записать сигнатуру контейнера", err)
	}

	r := &Recorder{
		dir:       recDir,
		filename:  diskName,
		finalName: finalName,
		file:      file,
		mediaType: mediaType,
		codec:     codec,
		fmtp:      fmtp,
		created:   time.Now(),
		config:    config,
		context:   rtpswitch.NewContext(),
		clock:     time.Now,
	}
	r.refs.Store(1)
	r.writable.Store(true)
	onRecorderCreated(mediaType)
	slog.Debug("recorder: created", slog.String("file", r.filename), slog.String("codec", codec),
		slog.String("type", mediaType.String()))
	return r, nil
}

// AddExtmap добавляет или перезаписывает сопоставление идентификатора RTP
// расширения (1..15) его имени. Допустимо только до записи info-блока.
func (r *Recorder) AddExtmap(id int, extmap string) error {
	if r == nil {
		return newError(ErrorCodeInvalidArgument, "", "рекордер отсутствует")
	}
	if r.headerDone.Load() {
		return newError(ErrorCodeHeaderWritten, r.finalName, "info-блок уже записан")
	}
	if id < minExtensionID || id > maxExtensionID || extmap == "" {
		return newError(ErrorCodeInvalidArgument, r.finalName,
			fmt.Sprintf("некорректное расширение id=%d extmap=%q", id, extmap))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.extensions == nil {
		r.extensions = make(map[int]string)
	}
	r.extensions[id] = extmap
	return nil
}

// SetDescription задает человекочитаемое описание потока. Если info-блок
// уже записан, вызов молча игнорируется и сообщает об успехе: менять
// описание в файле уже поздно.
func (r *Recorder) SetDescription(description string) error {
	if r == nil {
		return newError(ErrorCodeInvalidArgument, "", "рекордер отсутствует")
	}
	if description == "" {
		return newError(ErrorCodeInvalidArgument, r.finalName, "пустое описание")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.headerDone.Load() {
		return nil
	}
	r.description = description
	return nil
}

// SetOpusRED запоминает payload type RED-кодирования для аудио. Значение
// попадает в info-блок, поэтому допустимо только до его записи.
func (r *Recorder) SetOpusRED(payloadType int) error {
	if r == nil {
		return newError(ErrorCodeInvalidArgument, "", "рекордер отсутствует")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.headerDone.Load() {
		return newError(ErrorCodeHeaderWritten, r.filename, "info-блок уже записан")
	}
	r.opusRED = payloadType
	return nil
}

// MarkEncrypted помечает, что полезная нагрузка зашифрована выше по
// потоку. Сам рекордер ничего не шифрует.
func (r *Recorder) MarkEncrypted() error {
	if r == nil {
		return newError(ErrorCodeInvalidArgument, "", "рекордер отсутствует")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.headerDone.Load() {
		return newError(ErrorCodeHeaderWritten, r.filename, "info-блок уже записан")
	}
	r.encrypted = true
	return nil
}

// Pause приостанавливает запись кадров без закрытия файла. Атомарный CAS
// исключает гонки между конкурентными pause/resume/write. Мьютекс не
// берется, поэтому запись именуется по неизменному finalName.
func (r *Recorder) Pause() error {
	if r == nil {
		return newError(ErrorCodeInvalidArgument, "", "рекордер отсутствует")
	}
	if r.paused.CompareAndSwap(false, true) {
		onRecorderPaused()
		slog.Debug("recorder: paused", slog.String("file", r.finalName))
		return nil
	}
	return newError(ErrorCodeAlreadyPaused, r.finalName, "запись уже приостановлена")
}

// Resume возобновляет запись. Для аудио/видео контекст переключения
// помечается для пересинхронизации, чтобы следующий кадр восстановил
// непрерывность timestamp вместо разрыва на длительность паузы. Для
// data-рекордеров пересинхронизация не нужна.
func (r *Recorder) Resume() error {
	if r == nil {
		return newError(ErrorCodeInvalidArgument, "", "рекордер отсутствует")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.paused.CompareAndSwap(true, false) {
		if r.mediaType == MediaTypeAudio || r.mediaType == MediaTypeVideo {
			r.context.Resync()
		}
		slog.Debug("recorder: resumed", slog.String("file", r.filename))
		return nil
	}
	return newError(ErrorCodeNotPaused, r.filename, "запись не была приостановлена")
}

// Close завершает запись. Логику закрытия выполняет первый вызов, успешно
// переключивший флаг writable; остальные получают AlreadyClosed и ничего
// не делают. Файл переименовывается, снимая временное расширение; ошибка
// переименования логируется, но не эскалируется. Close не освобождает
// файловый дескриптор - это делает Unref при достижении нуля ссылок.
func (r *Recorder) Close() error {
	if r == nil {
		return newError(ErrorCodeInvalidArgument, "", "рекордер отсутствует")
	}
	// CAS до мьютекса: проигравший не должен читать изменяемое имя на
	// диске, пока победитель его переименовывает
	if !r.writable.CompareAndSwap(true, false) {
		return newError(ErrorCodeAlreadyClosed, r.finalName, "запись уже закрыта")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file != nil {
		if err := r.flush(); err != nil {
			slog.Warn("recorder: flush failed", slog.String("file", r.filename), slog.Any("error", err))
		}
		if fi, err := r.file.Stat(); err == nil {
			slog.Info("recorder: recording closed",
				slog.String("file", r.filename), slog.Int64("size", fi.Size()))
		}
	}
	if r.config.TempNames && r.filename != r.finalName {
		oldPath := r.filename
		newPath := r.finalName
		if r.dir != "" {
			oldPath = filepath.Join(r.dir, r.filename)
			newPath = filepath.Join(r.dir, r.finalName)
		}
		if err := os.Rename(oldPath, newPath); err != nil {
			slog.Error("recorder: rename failed",
				slog.String("from", oldPath), slog.String("to", newPath), slog.Any("error", err))
		} else {
			slog.Info("recorder: recording renamed", slog.String("file", r.finalName))
			r.filename = r.finalName
		}
	}
	onRecorderClosed(r.mediaType)
	return nil
}

// Flush принудительно сбрасывает записанные кадры на носитель. Close
// выполняет сброс автоматически; явный вызов полезен хост-системе для
// долговечности посреди длинной записи.
func (r *Recorder) Flush() error {
	if r == nil {
		return newError(ErrorCodeInvalidArgument, "", "рекордер отсутствует")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return newError(ErrorCodeFileClosed, r.filename, "файл записи освобожден")
	}
	return r.flush()
}

// Ref добавляет владельца рекордера. Каждому Ref должен соответствовать
// Unref.
func (r *Recorder) Ref() *Recorder {
	r.refs.Add(1)
	return r
}

// Unref отпускает одну ссылку. Когда счетчик достигает нуля, рекордер
// защитно закрывается (no-op если Close уже отработал) и освобождает
// файловый дескриптор и таблицу расширений.
func (r *Recorder) Unref() {
	if r == nil {
		return
	}
	if r.refs.Add(-1) > 0 {
		return
	}
	_ = r.Close()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file != nil {
		if err := r.file.Close(); err != nil {
			slog.Warn("recorder: file close failed", slog.String("file", r.filename), slog.Any("error", err))
		}
		r.file = nil
	}
	r.extensions = nil
	onRecorderFreed()
}

// Destroy отпускает конструкторскую ссылку. Идемпотентен: только первый
// вызов, переключивший флаг destroyed, декрементирует счетчик ссылок.
func (r *Recorder) Destroy() {
	if r == nil || !r.destroyed.CompareAndSwap(false, true) {
		return
	}
	r.Unref()
}

// Type возвращает тип медиа рекордера.
func (r *Recorder) Type() MediaType { return r.mediaType }

// Codec возвращает имя кодека.
func (r *Recorder) Codec() string { return r.codec }

// Filename возвращает текущее имя файла записи (с временным расширением,
// пока запись не закрыта).
func (r *Recorder) Filename() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filename
}

// Path возвращает полный путь к файлу записи.
func (r *Recorder) Path() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dir == "" {
		return r.filename
	}
	return filepath.Join(r.dir, r.filename)
}

// Writable сообщает, принимает ли рекордер кадры (false после Close).
func (r *Recorder) Writable() bool { return r.writable.Load() }

// Paused сообщает, приостановлена ли запись.
func (r *Recorder) Paused() bool { return r.paused.Load() }

// Stats - снимок счетчиков и состояния рекордера.
type Stats struct {
	Filename    string
	Type        MediaType
	Codec       string
	Created     time.Time
	FramesSaved uint64
	BytesSaved  uint64
	Writable    bool
	Paused      bool
}

// Stats возвращает текущую статистику записи.
func (r *Recorder) Stats() Stats {
	return Stats{
		Filename:    r.Filename(),
		Type:        r.mediaType,
		Codec:       r.codec,
		Created:     r.created,
		FramesSaved: r.framesSaved.Load(),
		BytesSaved:  r.bytesSaved.Load(),
		Writable:    r.writable.Load(),
		Paused:      r.paused.Load(),
	}
}
