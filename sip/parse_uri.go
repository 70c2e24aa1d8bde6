package sip

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidUri is returned by ParseURI for malformed input.
var ErrInvalidUri = errors.New("invalid SIP URI")

type uriFSM func(uri *Uri, s string) (uriFSM, string, error)

// ParseURI parses a sip: or sips: URI per RFC 3261 §19.1.1:
//
//	sip:user@host:port;uri-parameters
//
// tel:, wildcard ("*"), and URI headers (?x=y) are not supported — this core
// only ever routes to SIP endpoints.
func ParseURI(raw string, uri *Uri) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidUri)
	}

	state := uriStateScheme
	str := raw
	var err error
	for state != nil {
		state, str, err = state(uri, str)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidUri, err)
		}
	}
	return nil
}

func uriStateScheme(uri *Uri, s string) (uriFSM, string, error) {
	colon := strings.IndexByte(s, ':')
	if colon == -1 {
		return nil, "", errors.New("missing scheme")
	}

	scheme := strings.ToLower(s[:colon])
	switch scheme {
	case "sip":
		uri.Encrypted = false
	case "sips":
		uri.Encrypted = true
	default:
		return nil, "", fmt.Errorf("unsupported scheme %q", scheme)
	}
	return uriStateUser, s[colon+1:], nil
}

func uriStateUser(uri *Uri, s string) (uriFSM, string, error) {
	for i, c := range s {
		if c == '@' {
			uri.User = s[:i]
			return uriStateHost, s[i+1:], nil
		}
	}
	return uriStateHost, s, nil
}

func uriStateHost(uri *Uri, s string) (uriFSM, string, error) {
	for i, c := range s {
		switch c {
		case ':':
			uri.Host = s[:i]
			return uriStatePort, s[i+1:], nil
		case ';':
			uri.Host = s[:i]
			return uriStateParams, s[i+1:], nil
		}
	}
	uri.Host = s
	return nil, "", nil
}

func uriStatePort(uri *Uri, s string) (uriFSM, string, error) {
	var err error
	for i, c := range s {
		if c == ';' {
			uri.Port, err = strconv.Atoi(s[:i])
			return uriStateParams, s[i+1:], err
		}
	}
	uri.Port, err = strconv.Atoi(s)
	return nil, "", err
}

func uriStateParams(uri *Uri, s string) (uriFSM, string, error) {
	uri.Params = NewParams()
	if len(s) == 0 {
		return nil, "", nil
	}
	_, err := UnmarshalHeaderParams(s, ';', 0, uri.Params)
	return nil, "", err
}
