// Package fetch dumps point streams for a set of addresses to files, one
// JSON-lines file per address.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/INLOpen/nexusctl/broker"
	"github.com/INLOpen/nexusctl/compress"
	"github.com/INLOpen/nexusctl/core"
	"github.com/INLOpen/nexusctl/output"
)

// Options configures one fetch run.
type Options struct {
	Origin    string
	Addresses []core.Address
	Start     int64
	End       int64

	// Dir is the output directory; it is created if missing.
	Dir string

	// Codec compresses each file's contents. Nil means no compression.
	Codec compress.Codec

	// Workers bounds the number of addresses fetched concurrently.
	Workers int

	// Open produces a fresh broker connection for one address's stream.
	Open func(ctx context.Context, name string) (broker.Conn, error)

	Logger *slog.Logger
}

// Run fetches every address and writes one file per address under
// opts.Dir. The first failing address aborts the whole run.
func Run(ctx context.Context, opts Options) error {
	if len(opts.Addresses) == 0 {
		return fmt.Errorf("no addresses to fetch")
	}
	if opts.Open == nil {
		return fmt.Errorf("fetch requires an Open function")
	}
	if opts.Codec == nil {
		opts.Codec = compress.NoneCodec{}
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", opts.Dir, err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for _, addr := range opts.Addresses {
		addr := addr
		g.Go(func() error {
			return fetchOne(ctx, opts, addr)
		})
	}
	return g.Wait()
}

func fetchOne(ctx context.Context, opts Options, addr core.Address) error {
	conn, err := opts.Open(ctx, "fetch-"+addr.String())
	if err != nil {
		return fmt.Errorf("failed to open connection for %s: %w", addr, err)
	}
	defer conn.Close()

	req := broker.ExtendedReadRequest{
		Origin:  opts.Origin,
		Address: addr,
		Start:   opts.Start,
		End:     opts.End,
	}
	if err := conn.Send(ctx, req); err != nil {
		return fmt.Errorf("failed to send read request for %s: %w", addr, err)
	}

	var buf bytes.Buffer
	w := output.NewWriter(&buf, output.FormatJSON)
	points := 0
	for {
		resp, err := conn.Receive(ctx)
		if err != nil {
			return fmt.Errorf("failed while streaming %s: %w", addr, err)
		}
		switch r := resp.(type) {
		case broker.ExtendedStreamEntry:
			if err := w.ExtendedPoint(r.Burst, r.Point); err != nil {
				return err
			}
			points++
		case broker.EndOfStream:
			return writeDump(opts, addr, buf.Bytes(), points)
		default:
			return fmt.Errorf("unexpected response type %T while streaming %s", resp, addr)
		}
	}
}

func writeDump(opts Options, addr core.Address, data []byte, points int) error {
	compressed, err := opts.Codec.Compress(data)
	if err != nil {
		return fmt.Errorf("failed to compress dump for %s: %w", addr, err)
	}

	path := filepath.Join(opts.Dir, addr.String()+".jsonl"+opts.Codec.Ext())
	if err := os.WriteFile(path, compressed, 0644); err != nil {
		return fmt.Errorf("failed to write dump for %s: %w", addr, err)
	}

	opts.Logger.Info("wrote dump", "address", addr.String(), "points", points, "path", path)
	return nil
}
