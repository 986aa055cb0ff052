package catalog

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Options controls how a table file is read.
type Options struct {
	// Encoding is an HTML encoding label such as "euc-kr". Empty means UTF-8
	// with or without a byte-order mark.
	Encoding string `yaml:"encoding"`
	// Delimiter overrides delimiter sniffing.
	Delimiter string `yaml:"delimiter"`

	Logger *slog.Logger `yaml:"-"`
}

// Parse reads a header-driven delimited table. Malformed records are skipped
// and counted; an unusable header is an error.
func Parse(r io.Reader, opts Options) (*Catalog, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Transcode a declared legacy encoding; otherwise drop an optional BOM.
	var src io.Reader
	if enc := opts.Encoding; enc != "" && !isUTF8(enc) {
		e, err := htmlindex.Get(enc)
		if err != nil {
			return nil, fmt.Errorf("unsupported encoding %q: %w", enc, err)
		}
		src = transform.NewReader(r, e.NewDecoder())
	} else {
		src = transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	}

	br := bufio.NewReaderSize(src, 64*1024)
	head, _ := br.Peek(4096)
	if len(bytes.TrimSpace(head)) == 0 {
		return Empty(), nil
	}

	cr := csv.NewReader(br)
	cr.Comma = sniffDelimiter(head)
	if d := opts.Delimiter; d != "" {
		cr.Comma = []rune(d)[0]
	}
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := resolveColumns(header)
	if !cols.hasName() {
		return nil, fmt.Errorf("no name column in header %v", header)
	}

	var rows []Row
	var skipped int
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				logger.Debug("skipping malformed row", "line", pe.Line, "error", err)
				skipped++
				continue
			}
			return nil, fmt.Errorf("read row: %w", err)
		}
		row, ok := cols.row(rec)
		if !ok {
			skipped++
			continue
		}
		rows = append(rows, row)
	}

	c := New(rows)
	c.Stats.Skipped += skipped
	if c.Stats.Duplicates > 0 {
		logger.Debug("alias collisions after normalization", "duplicates", c.Stats.Duplicates)
	}
	return c, nil
}

// sniffDelimiter picks the most frequent of ',', ';' and tab on the header
// line, preferring ',' on ties.
func sniffDelimiter(head []byte) rune {
	line := head
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	best, bestN := ',', bytes.Count(line, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if n := bytes.Count(line, []byte{byte(d)}); n > bestN {
			best, bestN = d, n
		}
	}
	return best
}

// isUTF8 accepts the UTF-8 labels, including the BOM-marked "utf-8-sig".
func isUTF8(enc string) bool {
	e := strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(enc))
	return e == "" || e == "utf8" || e == "utf8sig"
}
