package recorder

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pion/sdp/v3"
)

// SDPOptions - параметры рекордера, извлеченные из согласованной SDP
// медиа-секции. Хост-система, ведущая переговоры SDP, получает отсюда
// кодек, fmtp и таблицу RTP расширений для конфигурации рекордера.
type SDPOptions struct {
	Codec   string         // имя кодека из rtpmap (в нижнем регистре)
	Fmtp    string         // codec-specific параметры из fmtp
	Extmaps map[int]string // id -> URI расширения из extmap
}

// OptionsFromMedia извлекает параметры записи для заданного payload type
// из медиа-секции SDP. Возвращает ошибку, если для payload type нет
// rtpmap: без имени кодека рекордер создать нельзя.
func OptionsFromMedia(md *sdp.MediaDescription, payloadType uint8) (*SDPOptions, error) {
	if md == nil {
		return nil, newError(ErrorCodeInvalidArgument, "", "отсутствует медиа-секция SDP")
	}
	pt := strconv.Itoa(int(payloadType))
	opts := &SDPOptions{}
	for _, attr := range md.Attributes {
		switch attr.Key {
		case "rtpmap":
			// rtpmap:<pt> <имя>/<clock>[/<каналы>]
			value, ok := strings.CutPrefix(attr.Value, pt+" ")
			if !ok {
				continue
			}
			name, _, _ := strings.Cut(value, "/")
			opts.Codec = strings.ToLower(strings.TrimSpace(name))
		case "fmtp":
			// fmtp:<pt> <параметры>
			if value, ok := strings.CutPrefix(attr.Value, pt+" "); ok {
				opts.Fmtp = strings.TrimSpace(value)
			}
		case "extmap":
			// extmap:<id>[/<направление>] <uri>
			idPart, uri, ok := strings.Cut(attr.Value, " ")
			if !ok {
				continue
			}
			idStr, _, _ := strings.Cut(idPart, "/")
			id, err := strconv.Atoi(idStr)
			if err != nil || id < minExtensionID || id > maxExtensionID {
				continue
			}
			if opts.Extmaps == nil {
				opts.Extmaps = make(map[int]string)
			}
			opts.Extmaps[id] = strings.TrimSpace(uri)
		}
	}
	if opts.Codec == "" {
		return nil, newError(ErrorCodeInvalidArgument, "",
			fmt.Sprintf("в SDP нет rtpmap для payload type %d", payloadType))
	}
	return opts, nil
}

// NewFromSDP создает рекордер по согласованной SDP медиа-секции: кодек и
// fmtp берутся из rtpmap/fmtp, расширения из extmap. Неподдерживаемый
// кодек отклоняется как обычно.
func NewFromSDP(config *Config, dir, filename string, md *sdp.MediaDescription, payloadType uint8) (*Recorder, error) {
	opts, err := OptionsFromMedia(md, payloadType)
	if err != nil {
		return nil, err
	}
	r, err := NewWithConfig(config, dir, opts.Codec, opts.Fmtp, filename)
	if err != nil {
		return nil, err
	}
	for id, uri := range opts.Extmaps {
		if err := r.AddExtmap(id, uri); err != nil {
			r.Destroy()
			return nil, err
		}
	}
	return r, nil
}
