package serialgen

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Block encodes samples as an IEEE 488.2 definite-length binary block of
// little-endian float32 values: #<digits><length><bytes>.
func Block(samples []float64) []byte {
	payload := make([]byte, 4*len(samples))
	for i, v := range samples {
		binary.LittleEndian.PutUint32(payload[4*i:], math.Float32bits(float32(v)))
	}

	length := strconv.Itoa(len(payload))
	out := make([]byte, 0, 2+len(length)+len(payload))
	out = append(out, '#', byte('0'+len(length)))
	out = append(out, length...)
	return append(out, payload...)
}

// TextBlock wraps s in a definite-length block.
func TextBlock(s string) []byte {
	length := strconv.Itoa(len(s))
	return []byte(fmt.Sprintf("#%d%s%s", len(length), length, s))
}

// ParseError parses a SYST:ERR? response such as `-222,"Data out of range"`.
// Code 0 means no error.
func ParseError(resp string) (int, string, error) {
	resp = strings.TrimSpace(resp)
	code, msg, ok := strings.Cut(resp, ",")
	if !ok {
		return 0, "", fmt.Errorf("malformed error response %q", resp)
	}
	n, err := strconv.Atoi(strings.TrimPrefix(code, "+"))
	if err != nil {
		return 0, "", fmt.Errorf("malformed error code %q", code)
	}
	return n, strings.Trim(msg, `"`), nil
}

// slope maps an edge to the SCPI trigger slope keyword.
func slope(rising bool) string {
	if rising {
		return "POS"
	}
	return "NEG"
}

// triggerSource maps a device trigger terminal to a SCPI trigger source.
// BUS and IMM pass through; any other terminal is the rear external input.
func triggerSource(terminal string) string {
	switch t := strings.ToUpper(strings.TrimSpace(terminal)); t {
	case "BUS", "IMM", "TIM":
		return t
	default:
		return "EXT"
	}
}
