package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerify(t *testing.T) {
	body := []byte(`{"meeting_id":"m-1"}`)
	sig := Sign("s3cret", body)

	assert.Len(t, sig, 64)
	assert.True(t, Verify("s3cret", body, sig))
	assert.True(t, Verify("s3cret", body, "sha256="+sig))
	assert.False(t, Verify("other", body, sig))
	assert.False(t, Verify("s3cret", []byte(`{}`), sig))
	assert.False(t, Verify("", body, sig))
	assert.False(t, Verify("s3cret", body, ""))
}
