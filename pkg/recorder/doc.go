// Package recorder реализует потокобезопасную append-only запись медиа
// кадров в структурированный бинарный контейнер.
//
// Рекордер сохраняет RTP пакеты (аудио/видео) или произвольные сообщения
// data channel в файл .mjr, который офлайн постобработка превращает в
// воспроизводимый контейнер (например, .opus для Opus аудио или .webm для
// VP8 видео). Для записи аудио и видео одного звонка нужны два отдельных
// рекордера - мультиплексирование выполняется на этапе постобработки.
//
// # Основные возможности
//
//   - Ленивый info-блок: метаданные потока фиксируются перед первым кадром
//   - Пауза/возобновление без разрыва timestamp (нормализация через
//     контекст переключения RTP)
//   - Идемпотентные Close и Destroy, безопасные при конкурентных вызовах
//   - Разделяемое владение через счетчик ссылок (Ref/Unref)
//   - Временные имена файлов с переименованием при закрытии
//   - Lock-free отклонение недопустимых вызовов по атомарным флагам
//   - Типизированные ошибки с кодами (валидация/состояние/ввод-вывод)
//   - Опциональные Prometheus метрики
//
// # Формат контейнера
//
// Все многобайтовые целые big-endian:
//
//	[8]  сигнатура "MJR00002"
//	[2]  длина info-блока N (записывается лениво, один раз)
//	[N]  info-блок (JSON: t,c,f?,d?,x?,s,u,or?,e?)
//	повторяется:
//	 [4] маркер кадра "MEET"
//	 [4] мс с момента первого кадра
//	 [2] длина нагрузки (+8 для data-кадров)
//	 [8] wall-clock момент в мкс (только data-кадры)
//	 [·] нагрузка
//
// # Быстрый старт
//
//	rec, err := recorder.New("/tmp/recordings", "opus", "call-123-audio")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rec.Destroy()
//
//	// окно конфигурации - до первого кадра
//	rec.SetDescription("входящий звонок")
//	rec.AddExtmap(1, "urn:ietf:params:rtp-hdrext:ssrc-audio-level")
//
//	for pkt := range packets {
//	    rec.SaveFrame(pkt)
//	}
//	rec.Close()
//
// Рекордер является thread-safe: все операции могут вызываться из разных
// горутин над одним экземпляром.
package recorder
