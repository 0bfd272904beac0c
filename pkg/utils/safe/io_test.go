package safe_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/claimdesk/pkg/utils/safe"
)

func TestReadAll(t *testing.T) {
	t.Run("within limit", func(t *testing.T) {
		data, err := safe.ReadAll(strings.NewReader("abcd"), 4)
		gt.NoError(t, err).Required()
		gt.S(t, string(data)).Equal("abcd")
	})

	t.Run("over limit", func(t *testing.T) {
		_, err := safe.ReadAll(strings.NewReader("abcde"), 4)
		gt.Error(t, err).Is(safe.ErrTooLarge)
	})
}

func TestCopyAndClose(t *testing.T) {
	var buf bytes.Buffer
	safe.Copy(context.Background(), &buf, strings.NewReader("image"))
	gt.S(t, buf.String()).Equal("image")

	safe.Close(context.Background(), nil)
}
