package bankxatm_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arhyth/bankxatm"
)

var lowerHex64 = regexp.MustCompile(`^[0-9a-f]{64}$`)

func TestDigest(t *testing.T) {
	t.Run("is deterministic and case-sensitive", func(tt *testing.T) {
		as := assert.New(tt)
		as.Equal(bankxatm.Digest("secret"), bankxatm.Digest("secret"))
		as.NotEqual(bankxatm.Digest("secret"), bankxatm.Digest("Secret"))
	})

	t.Run("matches the known SHA-256 vector", func(tt *testing.T) {
		assert.Equal(tt,
			"2bb80d537b1da3e38bd30361aa855686bde0eacd7162fef6a25fe97bf527a25b",
			bankxatm.Digest("secret"))
	})

	t.Run("is lowercase hex of fixed length for any input", func(tt *testing.T) {
		as := assert.New(tt)
		for _, in := range []string{"", "a", "pässwörd", "密码", "\x00\xff"} {
			as.Regexp(lowerHex64, bankxatm.Digest(in), "input %q", in)
		}
	})
}
