package sip

import (
	"errors"
	"strings"
)

// ParseAddressValue parses a name-addr or addr-spec — the shared grammar of
// From, To and Contact header bodies (RFC 3261 §20.10):
//
//	[ display-name ] "<" addr-spec ">" *( ";" generic-param )
//	addr-spec *( ";" generic-param )
//
// It does not accept a comma-separated list of addresses.
func ParseAddressValue(addressText string, uri *Uri, headerParams HeaderParams) (displayName string, err error) {
	var semicolon, equal, startQuote, endQuote int = -1, -1, -1, -1
	var name string
	var uriStart, uriEnd int = 0, -1
	var inBrackets, inQuotesParamValue bool
	for i, c := range addressText {
		if inQuotesParamValue {
			if c == '"' {
				inQuotesParamValue = false
			}
			continue
		}

		switch c {
		case '"':
			if equal > 0 {
				inQuotesParamValue = true
				continue
			}
			if startQuote < 0 {
				startQuote = i
			} else {
				endQuote = i
			}
		case '<':
			if uriStart > 0 {
				continue
			}
			if endQuote > 0 {
				displayName = addressText[startQuote+1 : endQuote]
				startQuote, endQuote = -1, -1
			} else {
				displayName = strings.TrimSpace(addressText[:i])
			}
			uriStart = i + 1
			inBrackets = true
		case '>':
			uriEnd = i
			equal = -1
			semicolon = -1
			inBrackets = false
		case ';':
			if inBrackets {
				semicolon = i
				continue
			}
			if uriEnd < 0 {
				uriEnd = i
				semicolon = i
				continue
			}
			if equal > 0 {
				val := addressText[equal+1 : i]
				headerParams.Add(name, val)
			} else if semicolon > 0 {
				name = addressText[semicolon+1 : i]
				headerParams.Add(name, "")
			}
			name = ""
			equal = 0
			semicolon = i
		case '=':
			name = addressText[semicolon+1 : i]
			equal = i
		}
	}

	if uriEnd < 0 {
		uriEnd = len(addressText)
	}

	if uriStart > uriEnd {
		return "", errors.New("malformed address: URI bounds invalid")
	}

	err = ParseURI(addressText[uriStart:uriEnd], uri)
	if err != nil {
		return
	}

	if equal > 0 {
		val := addressText[equal+1:]
		headerParams.Add(name, val)
	}

	return
}

// headerParserTo generates ToHeader.
func headerParserTo(headerName []byte, headerText string) (header Header, err error) {
	h := &ToHeader{}
	return h, parseToHeader(headerText, h)
}

func parseToHeader(headerText string, h *ToHeader) error {
	h.Params = NewParams()
	displayName, err := ParseAddressValue(headerText, &h.Address, h.Params)
	h.DisplayName = displayName
	return err
}

// headerParserFrom generates FromHeader.
func headerParserFrom(headerName []byte, headerText string) (header Header, err error) {
	h := &FromHeader{}
	return h, parseFromHeader(headerText, h)
}

func parseFromHeader(headerText string, h *FromHeader) error {
	h.Params = NewParams()
	displayName, err := ParseAddressValue(headerText, &h.Address, h.Params)
	h.DisplayName = displayName
	return err
}

// headerParserContact generates ContactHeader.
func headerParserContact(headerName []byte, headerText string) (header Header, err error) {
	h := ContactHeader{}
	return &h, parseContactHeader(headerText, &h)
}

func parseContactHeader(headerText string, h *ContactHeader) error {
	inBrackets := false
	inQuotes := false

	endInd := len(headerText)
	end := endInd - 1

	var err error
	for idx, char := range headerText {
		if char == '<' && !inQuotes {
			inBrackets = true
		} else if char == '>' && !inQuotes {
			inBrackets = false
		} else if char == '"' {
			inQuotes = !inQuotes
		} else if !inQuotes && !inBrackets {
			switch {
			case char == ',':
				err = errComaDetected(idx)
			case idx == end:
				endInd = idx + 1
			default:
				continue
			}
			break
		}
	}

	h.Params = NewParams()
	displayName, e := ParseAddressValue(headerText[:endInd], &h.Address, h.Params)
	if e != nil {
		return e
	}
	h.DisplayName = displayName
	return err
}
