package sqlite

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"strings"
)

// placeholders returns n comma-joined "?" placeholders.
func placeholders(n int) string {
	list := make([]string, n)
	for i := range list {
		list[i] = "?"
	}
	return strings.Join(list, ", ")
}

// marshalStringList renders a string list as the JSON text stored in list
// columns. nil marshals as the empty list so columns never hold SQL NULL.
func marshalStringList(list []string) string {
	if list == nil {
		list = []string{}
	}
	buf, err := json.Marshal(list)
	if err != nil {
		return "[]"
	}
	return string(buf)
}

func unmarshalStringList(value string) []string {
	if value == "" {
		return nil
	}
	var list []string
	if err := json.Unmarshal([]byte(value), &list); err != nil {
		return nil
	}
	if len(list) == 0 {
		return nil
	}
	return list
}

// encodeVector stores a float32 vector as a little-endian blob; sqlite has
// no vector type.
func encodeVector(vector []float32) []byte {
	buf := make([]byte, 4*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	if len(buf)%4 != 0 {
		return nil
	}
	vector := make([]float32, len(buf)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vector
}
