package sip

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	// ErrMalformedStartLine is returned when the first line of a message is
	// neither a valid request-line nor a valid status-line (spec §4.1.1,
	// §7 MalformedStartLine).
	ErrMalformedStartLine = errors.New("malformed SIP start line")
	// ErrMalformedHeader is returned when a header line cannot be split on
	// its colon (spec §7 MalformedHeader).
	ErrMalformedHeader = errors.New("malformed SIP header")
	// ErrTruncatedBody is returned when the byte stream ends before
	// Content-Length bytes of body are available (spec §7 TruncatedBody).
	ErrTruncatedBody = errors.New("truncated SIP body")
	// ErrUnknownMethod is returned by strict callers that reject methods
	// outside the known enumeration (spec §7 UnknownMethod). The parser
	// itself accepts any token as a RequestMethod; this is exposed for
	// callers that want the stricter check.
	ErrUnknownMethod = errors.New("unknown SIP method")
)

var bufPool = sync.Pool{
	New: func() interface{} { return new(bytes.Buffer) },
}

// ParseMessage parses a complete SIP message using the package default
// parser configuration.
func ParseMessage(msgData []byte) (Message, error) {
	return NewParser().ParseSIP(msgData)
}

// Parser turns raw bytes into a Request or Response.
type Parser struct {
	log            zerolog.Logger
	headersParsers HeadersParser
}

// ParserOption configures a Parser returned by NewParser.
type ParserOption func(p *Parser)

// NewParser builds a Parser with the default header parser registry.
func NewParser(options ...ParserOption) *Parser {
	p := &Parser{
		log:            DefaultLogger(),
		headersParsers: headersParsers,
	}
	for _, o := range options {
		o(p)
	}
	return p
}

// WithParserLogger overrides the logger used for non-fatal parse warnings.
func WithParserLogger(logger zerolog.Logger) ParserOption {
	return func(p *Parser) { p.log = logger }
}

// WithHeadersParsers overrides the header parser registry.
func WithHeadersParsers(m HeadersParser) ParserOption {
	return func(p *Parser) { p.headersParsers = m }
}

// ParseSIP parses a complete SIP message: start line, headers (folding
// repeated generic header lines into one comma-joined entry, spec §4.1.1
// step 2) and body (sized by Content-Length, spec §4.1.1 step 5).
func (p *Parser) ParseSIP(data []byte) (Message, error) {
	reader := bufPool.Get().(*bytes.Buffer)
	defer bufPool.Put(reader)
	reader.Reset()
	reader.Write(data)

	startLine, err := nextLine(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedStartLine, err)
	}

	msg, err := ParseLine(startLine)
	if err != nil {
		return nil, err
	}

	for {
		line, err := nextLine(reader)
		if err != nil {
			if err == io.EOF {
				return nil, fmt.Errorf("%w: message has no end-of-headers blank line", ErrMalformedHeader)
			}
			return nil, err
		}
		if len(line) == 0 {
			break
		}
		if err := p.parseHeaderLine(msg, line); err != nil {
			p.log.Info().Err(err).Str("line", line).Msg("skip header due to error")
		}
	}

	// Content-Length is authoritative when present; without it, everything
	// after the blank line is the body.
	contentLength := getBodyLength(data)
	if hdr, ok := msg.ContentLength(); ok {
		contentLength = int(*hdr)
	}
	if contentLength <= 0 {
		return msg, nil
	}

	body := make([]byte, contentLength)
	total, _ := reader.Read(body)
	if total != contentLength {
		return nil, fmt.Errorf("%w: read %d of %d expected bytes", ErrTruncatedBody, total, contentLength)
	}
	msg.SetBody(body)
	return msg, nil
}

// parseHeaderLine dispatches a single header line: known headers go through
// their typed parser, everything else becomes (or extends) a GenericHeader.
// A repeated generic header name is folded into the existing entry with a
// comma separator rather than appended as a second header (spec §4.1.1).
func (p *Parser) parseHeaderLine(msg Message, line string) error {
	colon := strings.IndexByte(line, ':')
	if colon == -1 {
		return fmt.Errorf("%w: %q", ErrMalformedHeader, line)
	}
	name := strings.TrimSpace(line[:colon])
	lname := HeaderToLower(name)

	if _, known := p.headersParsers[lname]; !known {
		value := strings.TrimSpace(line[colon+1:])
		if existing := msg.GetHeader(name); existing != nil {
			if g, ok := existing.(*GenericHeader); ok {
				g.HeaderValue = g.HeaderValue + ", " + value
				return nil
			}
		}
		msg.AppendHeader(NewHeader(name, value))
		return nil
	}

	out, err := p.headersParsers.ParseHeader(nil, []byte(line))
	for _, h := range out {
		msg.AppendHeader(h)
	}
	return err
}

// ParseLine dispatches a start line to the request-line or status-line parser.
func ParseLine(startLine string) (Message, error) {
	if isRequest(startLine) {
		var recipient Uri
		method, sipVersion, err := ParseRequestLine(startLine, &recipient)
		if err != nil {
			return nil, err
		}
		m := NewRequest(method, recipient)
		m.SipVersion = sipVersion
		return m, nil
	}

	if isResponse(startLine) {
		sipVersion, statusCode, reason, err := ParseStatusLine(startLine)
		if err != nil {
			return nil, err
		}
		m := NewResponse(int(statusCode), reason)
		m.SipVersion = sipVersion
		return m, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrMalformedStartLine, startLine)
}

// nextLine reads one line terminated by CRLF or a bare LF, stripping the
// terminator. Bare-LF input is tolerated for robustness (spec §4.1.1,
// §6).
func nextLine(reader *bytes.Buffer) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil {
		return line, err
	}

	line = line[:len(line)-1]
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}

// getBodyLength returns the number of bytes following the first blank line
// in data, or -1 if no blank line is present. Both CRLFCRLF and the
// bare-LF LFLF variant are recognized.
func getBodyLength(data []byte) int {
	if idx := bytes.Index(data, []byte("\r\n\r\n")); idx != -1 {
		return len(data) - (idx + 4)
	}
	if idx := bytes.Index(data, []byte("\n\n")); idx != -1 {
		return len(data) - (idx + 2)
	}
	return -1
}

// isRequest is a cheap heuristic: a request line has exactly two spaces and
// its last token is a SIP version.
func isRequest(startLine string) bool {
	ind := strings.IndexRune(startLine, ' ')
	if ind <= 0 {
		return false
	}
	ind1 := strings.IndexRune(startLine[ind+1:], ' ')
	if ind1 <= 0 {
		return false
	}
	part2 := startLine[ind+1+ind1+1:]
	if strings.IndexRune(part2, ' ') >= 0 {
		return false
	}
	return len(part2) >= 3 && UriIsSIP(part2[:3])
}

// isResponse is a cheap heuristic: a status line starts with "SIP/".
func isResponse(startLine string) bool {
	ind := strings.IndexRune(startLine, ' ')
	if ind <= 0 {
		return false
	}
	ind1 := strings.IndexRune(startLine[ind+1:], ' ')
	if ind1 <= 0 {
		return false
	}
	return len(startLine) >= 3 && UriIsSIP(startLine[:3])
}

// ParseRequestLine parses "METHOD sip:uri SIP/2.0".
func ParseRequestLine(requestLine string, recipient *Uri) (method RequestMethod, sipVersion string, err error) {
	parts := strings.Split(requestLine, " ")
	if len(parts) != 3 {
		return "", "", fmt.Errorf("%w: request line needs exactly 2 spaces: %q", ErrMalformedStartLine, requestLine)
	}

	method = RequestMethod(strings.ToUpper(parts[0]))
	if err = ParseURI(parts[1], recipient); err != nil {
		return "", "", err
	}
	sipVersion = parts[2]
	return method, sipVersion, nil
}

// ParseStatusLine parses "SIP/2.0 200 OK".
func ParseStatusLine(statusLine string) (sipVersion string, statusCode StatusCode, reasonPhrase string, err error) {
	parts := strings.Split(statusLine, " ")
	if len(parts) < 3 {
		return "", 0, "", fmt.Errorf("%w: status line needs at least 2 spaces: %q", ErrMalformedStartLine, statusLine)
	}

	sipVersion = parts[0]
	code, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil {
		return "", 0, "", fmt.Errorf("%w: bad status code: %s", ErrMalformedStartLine, err)
	}
	statusCode = StatusCode(code)
	reasonPhrase = strings.Join(parts[2:], " ")
	return sipVersion, statusCode, reasonPhrase, nil
}
