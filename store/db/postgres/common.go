package postgres

import (
	"encoding/json"
	"fmt"
	"strings"
)

// placeholder returns the nth positional placeholder, e.g. $3.
func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

// placeholders returns n comma-joined positional placeholders starting at $1.
func placeholders(n int) string {
	list := make([]string, n)
	for i := range list {
		list[i] = placeholder(i + 1)
	}
	return strings.Join(list, ", ")
}

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
