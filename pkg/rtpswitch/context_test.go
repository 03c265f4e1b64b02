package rtpswitch

import (
	"testing"
	"time"

	"github.com/pion/rtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock управляемые часы для тестов
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestContext() (*Context, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	ctx := NewContext()
	ctx.clock = clock.Now
	return ctx, clock
}

func header(ssrc uint32, seq uint16, ts uint32) *rtp.Header {
	return &rtp.Header{
		Version:        2,
		SSRC:           ssrc,
		SequenceNumber: seq,
		Timestamp:      ts,
	}
}

func TestUpdateContinuousStream(t *testing.T) {
	ctx, clock := newTestContext()

	// Первый пакет задает точку отсчета: seq нормализуется к 1, ts к 0
	hdr := header(0xAABBCCDD, 1000, 160000)
	ctx.Update(hdr, false)
	assert.Equal(t, uint16(1), hdr.SequenceNumber)
	assert.Equal(t, uint32(0), hdr.Timestamp)
	assert.Equal(t, uint32(0xAABBCCDD), hdr.SSRC)

	// Последующие пакеты сохраняют свои относительные смещения
	clock.Advance(20 * time.Millisecond)
	hdr = header(0xAABBCCDD, 1001, 160960)
	ctx.Update(hdr, false)
	assert.Equal(t, uint16(2), hdr.SequenceNumber)
	assert.Equal(t, uint32(960), hdr.Timestamp)

	clock.Advance(20 * time.Millisecond)
	hdr = header(0xAABBCCDD, 1002, 161920)
	ctx.Update(hdr, false)
	assert.Equal(t, uint16(3), hdr.SequenceNumber)
	assert.Equal(t, uint32(1920), hdr.Timestamp)
}

func TestResyncHidesPause(t *testing.T) {
	ctx, clock := newTestContext()

	hdr := header(0x1, 100, 8000)
	ctx.Update(hdr, false)
	require.Equal(t, uint16(1), hdr.SequenceNumber)
	require.Equal(t, uint32(0), hdr.Timestamp)

	// Пауза на секунду: источник продолжал тикать, seq и ts уехали
	ctx.Resync()
	clock.Advance(time.Second)

	hdr = header(0x1, 150, 56000)
	ctx.Update(hdr, false)
	// Seq продолжается без разрыва в 50 пакетов
	assert.Equal(t, uint16(2), hdr.SequenceNumber)
	// Timestamp смещен на оценку паузы (1с * 48 тиков/мс = 48000),
	// а не на реальный разрыв источника в 48000+8000
	assert.Equal(t, uint32(48000), hdr.Timestamp)
}

func TestResyncVideoClockRate(t *testing.T) {
	ctx, clock := newTestContext()

	hdr := header(0x2, 10, 90000)
	ctx.Update(hdr, true)
	require.Equal(t, uint32(0), hdr.Timestamp)

	ctx.Resync()
	clock.Advance(time.Second)

	hdr = header(0x2, 40, 270000)
	ctx.Update(hdr, true)
	// Для видео используется clock 90кГц
	assert.Equal(t, uint32(90000), hdr.Timestamp)
	assert.Equal(t, uint16(2), hdr.SequenceNumber)
}

func TestUpdateSSRCRestart(t *testing.T) {
	ctx, clock := newTestContext()

	hdr := header(0xAAAA, 500, 16000)
	ctx.Update(hdr, false)
	require.Equal(t, uint16(1), hdr.SequenceNumber)

	clock.Advance(20 * time.Millisecond)
	hdr = header(0xAAAA, 501, 16960)
	ctx.Update(hdr, false)
	require.Equal(t, uint16(2), hdr.SequenceNumber)

	// Источник рестартовал с новым SSRC и произвольными seq/ts
	clock.Advance(20 * time.Millisecond)
	hdr = header(0xBBBB, 30000, 900000)
	ctx.Update(hdr, false)
	// SSRC стабилизирован на первом значении, seq продолжается
	assert.Equal(t, uint32(0xAAAA), hdr.SSRC)
	assert.Equal(t, uint16(4), hdr.SequenceNumber)

	clock.Advance(20 * time.Millisecond)
	hdr = header(0xBBBB, 30001, 900960)
	ctx.Update(hdr, false)
	assert.Equal(t, uint16(5), hdr.SequenceNumber)
}

func TestReset(t *testing.T) {
	ctx, _ := newTestContext()

	hdr := header(0x3, 700, 32000)
	ctx.Update(hdr, false)
	hdr = header(0x3, 701, 32960)
	ctx.Update(hdr, false)

	ctx.Reset()

	// После полного сброса поток считается новым
	hdr = header(0x4, 9000, 500000)
	ctx.Update(hdr, false)
	assert.Equal(t, uint16(1), hdr.SequenceNumber)
	assert.Equal(t, uint32(0), hdr.Timestamp)
	assert.Equal(t, uint32(0x4), hdr.SSRC)
}

func TestUpdateNilHeader(t *testing.T) {
	ctx, _ := newTestContext()
	// Не должно паниковать
	ctx.Update(nil, false)
}
