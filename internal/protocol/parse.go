package protocol

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/models"
	"github.com/google/uuid"
)

var (
	ErrEmpty             = errors.New("empty command")
	ErrUnknownCommand    = errors.New("unknown command")
	ErrUnterminatedGroup = errors.New("group command without closing ]")
	ErrMalformed         = errors.New("malformed command")
)

const escapedComma = "/,"

// Parse turns raw wire text into a command. Trailing whitespace is ignored.
// Every accepted command gets a fresh ID so it can be traced through the
// queue, the dispatcher and the history store.
func Parse(raw string) (models.Command, error) {
	s := strings.TrimRight(raw, " \t\r\n\x00")
	if s == "" {
		return models.Command{}, ErrEmpty
	}

	if s[0] == '[' {
		codes, params, err := MakeCmdLists(s)
		if err != nil {
			return models.Command{}, err
		}
		return models.Command{ID: uuid.NewString(), Codes: codes, Params: params, Group: true}, nil
	}

	if len(s) < 2 {
		return models.Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, s)
	}
	code, rest := s[:2], s[2:]
	if !IsValid(code) {
		return models.Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, code)
	}

	var param string
	if rest != "" {
		if rest[0] != ' ' {
			return models.Command{}, fmt.Errorf("%w: %q", ErrMalformed, s)
		}
		param = rest[1:]
	}

	return models.Command{ID: uuid.NewString(), Codes: []string{code}, Params: []string{param}}, nil
}

// MakeCmdLists splits a group command of the form "[c1,c2] [p1,p2]" or
// "[c1,c2] param" into positional code and parameter lists. Codes are
// trimmed and may be blank; parameters inside brackets keep their
// whitespace. The parameter list is padded with "" up to the number of codes.
func MakeCmdLists(s string) ([]string, []string, error) {
	head, tail, ok := strings.Cut(s, "]")
	if !ok {
		return nil, nil, ErrUnterminatedGroup
	}

	rawCodes := strings.Split(strings.TrimPrefix(head, "["), ",")
	codes := make([]string, 0, len(rawCodes))
	for _, c := range rawCodes {
		c = strings.TrimSpace(c)
		if c != "" && !IsValid(c) {
			return nil, nil, fmt.Errorf("%w: %q", ErrUnknownCommand, c)
		}
		codes = append(codes, c)
	}

	var params []string
	rawParams := strings.TrimSpace(tail)
	switch {
	case rawParams == "":
	case len(rawParams) >= 2 && rawParams[0] == '[' && rawParams[len(rawParams)-1] == ']':
		for _, p := range splitUnescaped(rawParams[1 : len(rawParams)-1]) {
			params = append(params, strings.ReplaceAll(p, escapedComma, ","))
		}
	default:
		for range codes {
			params = append(params, rawParams)
		}
	}

	for len(params) < len(codes) {
		params = append(params, "")
	}
	return codes, params, nil
}

// splitUnescaped splits on commas that are not preceded by '/'.
func splitUnescaped(s string) []string {
	var (
		parts []string
		start int
	)
	for i := 0; i < len(s); i++ {
		if s[i] == ',' && (i == 0 || s[i-1] != '/') {
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}
