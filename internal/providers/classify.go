package providers

import (
	"bytes"
	"encoding/base64"
	"strings"

	"github.com/systmms/authops/pkg/credential"
)

// derSequenceTag opens every DER-encoded PKCS#12 bundle.
const derSequenceTag = 0x30

// minCertificateSize is the smallest plausible PKCS#12 bundle. Anything
// shorter that happens to start with 0x30 is treated as a password.
const minCertificateSize = 256

// certContentTypes are backend content-type markers that authoritatively
// declare a binary certificate bundle.
var certContentTypes = []string{
	"application/x-pkcs12",
	"application/x-pkcs-12",
	"application/octet-stream",
	"application/pkix-cert",
}

// IsCertificateContentType reports whether a backend-declared content type
// marks a certificate bundle.
func IsCertificateContentType(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	for _, known := range certContentTypes {
		if ct == known {
			return true
		}
	}
	return strings.Contains(ct, "pkcs12") || strings.Contains(ct, "pkcs-12")
}

// Classify decides whether a raw credential blob is a certificate or a
// password. The same heuristic is applied by every backend that lacks
// authoritative metadata: after optional base64 decoding, bytes opening with
// the DER SEQUENCE tag and exceeding the minimum plausible bundle size are a
// certificate; everything else is a password trimmed of whitespace.
//
// A non-empty contentType short-circuits sniffing entirely.
func Classify(raw []byte, contentType string) credential.Result {
	if contentType != "" && IsCertificateContentType(contentType) {
		return credential.Result{
			Type:  credential.TypeCertificate,
			Value: decodeIfBase64(raw),
		}
	}

	if candidate := decodeIfBase64(raw); looksLikeCertificate(candidate) {
		return credential.Result{Type: credential.TypeCertificate, Value: candidate}
	}
	if looksLikeCertificate(raw) {
		return credential.Result{Type: credential.TypeCertificate, Value: raw}
	}

	return credential.Result{
		Type:  credential.TypePassword,
		Value: bytes.TrimSpace(raw),
	}
}

func looksLikeCertificate(data []byte) bool {
	return len(data) >= minCertificateSize && data[0] == derSequenceTag
}

// decodeIfBase64 returns the decoded bytes when the input is valid base64
// text, otherwise the input unchanged. Key Vault and CI stores commonly hand
// back PKCS#12 bundles base64-wrapped.
func decodeIfBase64(raw []byte) []byte {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return raw
	}
	decoded, err := base64.StdEncoding.DecodeString(trimmed)
	if err != nil {
		return raw
	}
	return decoded
}
