// Package output renders broker responses as human-readable text lines
// or as one JSON document per line.
package output

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/INLOpen/nexusctl/broker"
	"github.com/INLOpen/nexusctl/core"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat validates a format name from flags or configuration.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format: %s", s)
	}
}

// Writer emits one line per record in the configured format.
type Writer struct {
	w      io.Writer
	format Format
}

func NewWriter(w io.Writer, format Format) *Writer {
	return &Writer{w: w, format: format}
}

type contentsLine struct {
	Address string            `json:"address"`
	Source  map[string]string `json:"source"`
}

type simplePointLine struct {
	Address   string `json:"address"`
	Timestamp int64  `json:"timestamp"`
	Value     uint64 `json:"value"`
	Burst     uint64 `json:"burst"`
}

type extendedPointLine struct {
	Address   string `json:"address"`
	Timestamp int64  `json:"timestamp"`
	Payload   string `json:"payload"`
	Burst     uint64 `json:"burst"`
}

func (w *Writer) ContentsEntry(addr core.Address, source core.SourceDict) error {
	if w.format == FormatJSON {
		return w.writeJSON(contentsLine{Address: addr.String(), Source: source})
	}
	_, err := fmt.Fprintf(w.w, "%s %s\n", addr, source)
	return err
}

func (w *Writer) SimplePoint(burst uint64, p core.SimplePoint) error {
	if w.format == FormatJSON {
		return w.writeJSON(simplePointLine{
			Address:   p.Address.String(),
			Timestamp: p.Timestamp,
			Value:     p.Value,
			Burst:     burst,
		})
	}
	_, err := fmt.Fprintf(w.w, "%s %d %d\n", p.Address, p.Timestamp, p.Value)
	return err
}

func (w *Writer) ExtendedPoint(burst uint64, p core.ExtendedPoint) error {
	if w.format == FormatJSON {
		return w.writeJSON(extendedPointLine{
			Address:   p.Address.String(),
			Timestamp: p.Timestamp,
			Payload:   hex.EncodeToString(p.Payload),
			Burst:     burst,
		})
	}
	_, err := fmt.Fprintf(w.w, "%s %d %s\n", p.Address, p.Timestamp, hex.EncodeToString(p.Payload))
	return err
}

// Response renders one non-terminal broker response. End-of-stream and
// end-of-list markers produce no output.
func (w *Writer) Response(resp broker.Response) error {
	switch r := resp.(type) {
	case broker.ContentsEntry:
		return w.ContentsEntry(r.Address, r.Source)
	case broker.SimpleStreamEntry:
		return w.SimplePoint(r.Burst, r.Point)
	case broker.ExtendedStreamEntry:
		return w.ExtendedPoint(r.Burst, r.Point)
	case broker.EndOfContents, broker.EndOfStream:
		return nil
	case broker.Ack:
		_, err := fmt.Fprintf(w.w, "affected %d\n", r.Affected)
		return err
	default:
		return fmt.Errorf("no output rendering for response type %T", resp)
	}
}

func (w *Writer) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.w.Write(data)
	return err
}
