package uas

import (
	"crypto/md5"
	"encoding/hex"
)

// Digest implements RFC 2617 HTTP/SIP Digest response computation. This is
// a helper only: spec §4.6 leaves it unenforced by default and names md5
// explicitly, which is why this uses the standard library rather than an
// ecosystem auth package (see DESIGN.md).
type Digest struct {
	Realm string
	Nonce string
}

func hexMD5(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HA1 computes md5(user:realm:pass).
func (d Digest) HA1(user, pass string) string {
	return hexMD5(user + ":" + d.Realm + ":" + pass)
}

// HA2 computes md5(method:uri).
func (d Digest) HA2(method, uri string) string {
	return hexMD5(method + ":" + uri)
}

// Response computes md5(HA1:nonce:HA2), the qop-less Digest response.
func (d Digest) Response(ha1, ha2 string) string {
	return hexMD5(ha1 + ":" + d.Nonce + ":" + ha2)
}

// ResponseWithQop computes md5(HA1:nonce:nc:cnonce:qop:HA2).
func (d Digest) ResponseWithQop(ha1, ha2, nc, cnonce, qop string) string {
	return hexMD5(ha1 + ":" + d.Nonce + ":" + nc + ":" + cnonce + ":" + qop + ":" + ha2)
}

// LookupFunc resolves a username to its plaintext password for Digest
// verification. Returning ok=false rejects the credential.
type LookupFunc func(username string) (password string, ok bool)
