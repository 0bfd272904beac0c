package safe

import (
	"context"
	"io"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/utils/logging"
)

// ErrTooLarge is returned by ReadAll when the reader yields more than the limit
var ErrTooLarge = goerr.New("payload exceeds size limit")

// Close closes closer and logs a failure. Nil closers are ignored.
func Close(ctx context.Context, closer io.Closer) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.From(ctx).Error("Failed to close", slog.Any("error", err))
	}
}

// Copy copies src to dst and logs a failure
func Copy(ctx context.Context, dst io.Writer, src io.Reader) {
	if _, err := io.Copy(dst, src); err != nil {
		logging.From(ctx).Error("Failed to copy", slog.Any("error", err))
	}
}

// ReadAll reads at most limit bytes from r. It fails with ErrTooLarge if r has more.
func ReadAll(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read payload")
	}
	if int64(len(data)) > limit {
		return nil, goerr.Wrap(ErrTooLarge, "payload too large", goerr.V("limit", limit))
	}
	return data, nil
}
