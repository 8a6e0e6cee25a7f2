package piper

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Wyoming event types used by the synthesis exchange.
const (
	eventSynthesize = "synthesize"
	eventAudioStart = "audio-start"
	eventAudioChunk = "audio-chunk"
	eventAudioStop  = "audio-stop"
	eventError      = "error"
)

type wyomingEvent struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

// writeEvent frames one event as
//
//	<json_length> <payload_length>\n<json>\n<payload>
func writeEvent(w io.Writer, evt wyomingEvent, payload []byte) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshalling event: %w", err)
	}

	var frame bytes.Buffer
	fmt.Fprintf(&frame, "%d %d\n", len(body), len(payload))
	frame.Write(body)
	frame.WriteByte('\n')
	frame.Write(payload)

	_, err = w.Write(frame.Bytes())
	return err
}

// readEvent reads one framed event. Callers reading a stream of events must
// pass the same *bufio.Reader every time.
func readEvent(r io.Reader) (*wyomingEvent, []byte, error) {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}

	line, err := br.ReadString('\n')
	if err != nil {
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}
	jsonLen, payloadLen, err := parseHeader(line)
	if err != nil {
		return nil, nil, err
	}

	body := make([]byte, jsonLen+1)
	if _, err := io.ReadFull(br, body); err != nil {
		return nil, nil, fmt.Errorf("reading json: %w", err)
	}
	var evt wyomingEvent
	if err := json.Unmarshal(body[:jsonLen], &evt); err != nil {
		return nil, nil, fmt.Errorf("unmarshalling event: %w", err)
	}

	if payloadLen == 0 {
		return &evt, nil, nil
	}
	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(br, payload); err != nil {
		return nil, nil, fmt.Errorf("reading payload: %w", err)
	}
	return &evt, payload, nil
}

func parseHeader(line string) (jsonLen, payloadLen int, err error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("invalid wyoming header: %q", line)
	}
	if jsonLen, err = strconv.Atoi(fields[0]); err != nil {
		return 0, 0, fmt.Errorf("parsing json_length: %w", err)
	}
	if payloadLen, err = strconv.Atoi(fields[1]); err != nil {
		return 0, 0, fmt.Errorf("parsing payload_length: %w", err)
	}
	return jsonLen, payloadLen, nil
}

// audioFormat describes the PCM stream announced by audio-start.
type audioFormat struct {
	rate     int
	width    int // bytes per sample
	channels int
}

var defaultFormat = audioFormat{rate: 22050, width: 2, channels: 1}

// update reads rate, width and channels from an audio-start payload, keeping
// the current value for any field that is absent.
func (f *audioFormat) update(data map[string]any) {
	set := func(key string, dst *int) {
		if v, ok := data[key].(float64); ok && v > 0 {
			*dst = int(v)
		}
	}
	set("rate", &f.rate)
	set("width", &f.width)
	set("channels", &f.channels)
}

// wav wraps raw PCM in a 44-byte canonical WAV header.
func (f audioFormat) wav(pcm []byte) []byte {
	return pcmToWAV(pcm, f.rate, f.channels, f.width)
}

func pcmToWAV(pcm []byte, sampleRate, channels, bytesPerSample int) []byte {
	buf := &bytes.Buffer{}
	buf.Grow(44 + len(pcm))

	le := func(v any) { _ = binary.Write(buf, binary.LittleEndian, v) }

	buf.WriteString("RIFF")
	le(uint32(36 + len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	le(uint32(16))
	le(uint16(1)) // PCM
	le(uint16(channels))
	le(uint32(sampleRate))
	le(uint32(sampleRate * channels * bytesPerSample))
	le(uint16(channels * bytesPerSample))
	le(uint16(bytesPerSample * 8))

	buf.WriteString("data")
	le(uint32(len(pcm)))
	buf.Write(pcm)

	return buf.Bytes()
}
