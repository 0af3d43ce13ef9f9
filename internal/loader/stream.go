package loader

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

const utf8BOM = "\ufeff"

// streamCSV reads CSV records and sends them to a channel, header included.
// Caller must consume the returned row channel. Errors are sent on the error channel.
// Both channels are closed when processing completes.
func streamCSV(ctx context.Context, r io.Reader) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 256)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader := csv.NewReader(r)
		reader.LazyQuotes = true
		reader.FieldsPerRecord = -1 // width is reconciled against the header later

		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "loader: context cancelled")
				return
			}

			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "loader: read row")
				return
			}

			select {
			case rowCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "loader: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

// normalizeHeader lowercases and trims column names and strips a UTF-8 BOM
// from the first one, so chunks exported by different tools compare equal.
func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		out[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return out
}

// fitWidth pads or truncates a record to n fields.
func fitWidth(record []string, n int) []string {
	if len(record) == n {
		return record
	}
	if len(record) > n {
		return record[:n]
	}
	out := make([]string, n)
	copy(out, record)
	return out
}
