package service_test

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sanctumos/code-buddy/internal/service"
)

func sign256(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

var _ = Describe("SignatureVerifier", func() {
	const secret = "webhook-secret"

	var (
		verifier service.SignatureVerifier
		body     []byte
	)

	BeforeEach(func() {
		verifier = service.NewSignatureVerifier(secret, nil)
		body = []byte(`{"action":"opened"}`)
	})

	It("accepts a correct sha256 signature", func() {
		Expect(verifier.Verify(body, sign256(secret, body))).To(BeTrue())
	})

	It("rejects a signature computed with the wrong secret", func() {
		Expect(verifier.Verify(body, sign256("other-secret", body))).To(BeFalse())
	})

	It("rejects a signature over a different body", func() {
		signature := sign256(secret, body)
		Expect(verifier.Verify([]byte(`{"action":"closed"}`), signature)).To(BeFalse())
	})

	It("rejects a missing header", func() {
		Expect(verifier.Verify(body, "")).To(BeFalse())
	})

	It("rejects the sha1 scheme even with a valid digest", func() {
		mac := hmac.New(sha1.New, []byte(secret))
		mac.Write(body)
		header := "sha1=" + hex.EncodeToString(mac.Sum(nil))
		Expect(verifier.Verify(body, header)).To(BeFalse())
	})

	It("rejects a malformed digest", func() {
		Expect(verifier.Verify(body, "sha256=not-hex")).To(BeFalse())
		Expect(verifier.Verify(body, "sha256")).To(BeFalse())
	})
})
