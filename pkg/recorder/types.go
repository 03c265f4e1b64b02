package recorder

import "strings"

// MediaType определяет тип записываемого медиа. Тип выводится из имени
// кодека при создании рекордера и неизменен в течение всей его жизни:
// от типа зависят детали формата кадра (см. SaveFrame).
type MediaType int

const (
	// MediaTypeAudio - аудио кадры (RTP пакеты)
	MediaTypeAudio MediaType = iota
	// MediaTypeVideo - видео кадры (RTP пакеты)
	MediaTypeVideo
	// MediaTypeData - произвольные данные data channel
	MediaTypeData
)

func (t MediaType) String() string {
	switch t {
	case MediaTypeAudio:
		return "audio"
	case MediaTypeVideo:
		return "video"
	case MediaTypeData:
		return "data"
	default:
		return "unknown"
	}
}

// tag возвращает односимвольный тег типа для info-блока файла.
func (t MediaType) tag() string {
	switch t {
	case MediaTypeAudio:
		return "a"
	case MediaTypeVideo:
		return "v"
	case MediaTypeData:
		return "d"
	default:
		return ""
	}
}

// Закрытые наборы поддерживаемых кодеков. Сопоставление
// регистронезависимое, неизвестный кодек - ошибка создания рекордера.
var (
	videoCodecs = []string{"vp8", "vp9", "h264", "av1", "h265"}
	audioCodecs = []string{"opus", "multiopus", "g711", "pcmu", "pcma", "g722", "l16-48", "l16"}
	dataCodecs  = []string{"text", "binary"}
)

// mediaTypeForCodec определяет тип медиа по имени кодека.
func mediaTypeForCodec(codec string) (MediaType, bool) {
	for _, c := range videoCodecs {
		if strings.EqualFold(codec, c) {
			return MediaTypeVideo, true
		}
	}
	for _, c := range audioCodecs {
		if strings.EqualFold(codec, c) {
			return MediaTypeAudio, true
		}
	}
	for _, c := range dataCodecs {
		if strings.EqualFold(codec, c) {
			return MediaTypeData, true
		}
	}
	return MediaTypeAudio, false
}

// Константы бинарного контейнера. Все многобайтовые целые в файле
// записываются в big-endian.
const (
	// fileMagic - фиксированная 8-байтовая сигнатура контейнера,
	// записывается сразу при создании файла
	fileMagic = "MJR00002"
	// frameMarker - 4-байтовый маркер начала каждого кадра
	frameMarker = "MEET"
	// fileExtension - расширение файлов записи
	fileExtension = ".mjr"

	// Диапазон допустимых идентификаторов RTP расширений в extmap
	minExtensionID = 1
	maxExtensionID = 15

	// Минимальный размер фиксированного RTP заголовка: в нем лежат
	// sequence number, timestamp и SSRC, которые переписывает нормализация
	rtpFixedHeaderSize = 12
)
