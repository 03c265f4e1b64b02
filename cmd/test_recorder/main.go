package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/pion/rtp"

	"github.com/arzzra/media_recorder/pkg/recorder"
)

func main() {
	var (
		dir      = flag.String("dir", os.TempDir(), "Каталог для записи")
		codec    = flag.String("codec", "opus", "Имя кодека (opus, vp8, text, ...)")
		filename = flag.String("file", "test-recording", "Базовое имя файла")
		frames   = flag.Int("frames", 50, "Количество кадров")
		tempName = flag.Bool("tempname", false, "Использовать временное расширение")
	)
	flag.Parse()

	config := recorder.DefaultConfig()
	config.TempNames = *tempName

	rec, err := recorder.NewWithConfig(config, *dir, *codec, "", *filename)
	if err != nil {
		log.Fatalf("Ошибка создания рекордера: %v", err)
	}
	defer rec.Destroy()

	rec.SetDescription("тестовая запись test_recorder")

	switch rec.Type() {
	case recorder.MediaTypeData:
		writeDataFrames(rec, *frames)
	default:
		writeRTPFrames(rec, *frames)
	}

	// Пауза посередине, чтобы проверить пересинхронизацию timestamp
	if err := rec.Pause(); err != nil {
		log.Fatalf("Ошибка паузы: %v", err)
	}
	time.Sleep(200 * time.Millisecond)
	if err := rec.Resume(); err != nil {
		log.Fatalf("Ошибка возобновления: %v", err)
	}

	switch rec.Type() {
	case recorder.MediaTypeData:
		writeDataFrames(rec, *frames)
	default:
		writeRTPFrames(rec, *frames)
	}

	if err := rec.Close(); err != nil {
		log.Fatalf("Ошибка закрытия: %v", err)
	}

	stats := rec.Stats()
	fmt.Printf("Файл записи: %s\n", rec.Path())
	fmt.Printf("Кадров: %d, байт нагрузки: %d\n", stats.FramesSaved, stats.BytesSaved)
	if fi, err := os.Stat(rec.Path()); err == nil {
		fmt.Printf("Размер файла: %d байт\n", fi.Size())
	}
}

// writeRTPFrames пишет синтетические RTP пакеты с нарастающим seq/timestamp
func writeRTPFrames(rec *recorder.Recorder, count int) {
	for i := 0; i < count; i++ {
		pkt := &rtp.Packet{
			Header: rtp.Header{
				Version:        2,
				PayloadType:    111,
				SequenceNumber: uint16(1000 + i),
				Timestamp:      uint32(160000 + i*960),
				SSRC:           0x11223344,
			},
			Payload: make([]byte, 160),
		}
		buf, err := pkt.Marshal()
		if err != nil {
			log.Fatalf("Ошибка сериализации пакета: %v", err)
		}
		if err := rec.SaveFrame(buf); err != nil {
			log.Fatalf("Ошибка записи кадра: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

// writeDataFrames пишет синтетические сообщения data channel
func writeDataFrames(rec *recorder.Recorder, count int) {
	for i := 0; i < count; i++ {
		msg := make([]byte, 12)
		copy(msg, "data-")
		binary.BigEndian.PutUint32(msg[8:], uint32(i))
		if err := rec.SaveFrame(msg); err != nil {
			log.Fatalf("Ошибка записи кадра: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}
}
