// Package broker defines the client-side contract of the time-series
// broker session protocol and implements it over TCP.
package broker

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/INLOpen/nexusctl/protocol"
)

// Options holds configuration for Dial.
type Options struct {
	Address  string
	Username string
	Password string
	Logger   *slog.Logger

	// DialFunc overrides the transport dialer. Tests use it to connect
	// through an in-memory listener.
	DialFunc func(ctx context.Context, network, address string) (net.Conn, error)
}

// Client is a broker connection over the TCP wire protocol. It satisfies
// Conn; the session simulator in broker/sim satisfies the same contract
// without a transport.
type Client struct {
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer
	logger *slog.Logger
	mu     sync.Mutex // Protects writes to the connection
}

var _ Conn = (*Client)(nil)

// Dial establishes a connection to the broker and authenticates when
// credentials are provided.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	if opts.Address == "" {
		return nil, fmt.Errorf("broker address is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	dial := opts.DialFunc
	if dial == nil {
		d := net.Dialer{}
		dial = d.DialContext
	}

	conn, err := dial(ctx, "tcp", opts.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker at %s: %w", opts.Address, err)
	}

	c := &Client{
		conn:   conn,
		reader: bufio.NewReader(conn),
		writer: bufio.NewWriter(conn),
		logger: opts.Logger,
	}

	if opts.Username != "" {
		if err := c.authenticate(ctx, opts.Username, opts.Password); err != nil {
			c.Close()
			return nil, err
		}
		c.logger.Debug("broker authentication successful", "username", opts.Username)
	}

	return c, nil
}

// Close terminates the connection to the broker.
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) authenticate(ctx context.Context, username, password string) error {
	payload := new(bytes.Buffer)
	if err := protocol.EncodeAuthRequest(payload, protocol.AuthRequest{Username: username, Password: password}); err != nil {
		return fmt.Errorf("failed to encode auth request: %w", err)
	}
	if err := c.writeFrame(ctx, protocol.CommandAuth, payload.Bytes()); err != nil {
		return err
	}

	cmdType, respPayload, err := c.readFrame(ctx)
	if err != nil {
		return fmt.Errorf("failed to read auth response: %w", err)
	}
	switch cmdType {
	case protocol.CommandAck:
		return nil
	case protocol.CommandError:
		return fmt.Errorf("broker authentication failed: %w", protocol.DecodeErrorMessage(bytes.NewReader(respPayload)))
	default:
		return fmt.Errorf("unexpected response type for AUTH: %s", cmdType)
	}
}

// Send encodes the request into a single frame and writes it out. The
// broker treats a new request on a connection as replacing the previous
// one; the client does not queue.
func (c *Client) Send(ctx context.Context, req Request) error {
	var cmdType protocol.CommandType
	payload := new(bytes.Buffer)

	switch r := req.(type) {
	case ContentsListRequest:
		cmdType = protocol.CommandContentsList
		if err := protocol.EncodeContentsListRequest(payload, protocol.ContentsListRequest{Origin: r.Origin}); err != nil {
			return fmt.Errorf("failed to encode contents list request: %w", err)
		}
	case SimpleReadRequest:
		cmdType = protocol.CommandReadSimple
		if err := protocol.EncodeReadRequest(payload, protocol.ReadRequest{
			Origin: r.Origin, Address: r.Address, Start: r.Start, End: r.End,
		}); err != nil {
			return fmt.Errorf("failed to encode simple read request: %w", err)
		}
	case ExtendedReadRequest:
		cmdType = protocol.CommandReadExtended
		if err := protocol.EncodeReadRequest(payload, protocol.ReadRequest{
			Origin: r.Origin, Address: r.Address, Start: r.Start, End: r.End,
		}); err != nil {
			return fmt.Errorf("failed to encode extended read request: %w", err)
		}
	case UpdateTagsRequest:
		cmdType = protocol.CommandUpdateTags
		if err := protocol.EncodeUpdateTagsRequest(payload, protocol.UpdateTagsRequest{
			Origin: r.Origin, Address: r.Address, Tags: r.Tags,
		}); err != nil {
			return fmt.Errorf("failed to encode update tags request: %w", err)
		}
	case RemoveTagsRequest:
		cmdType = protocol.CommandRemoveTags
		if err := protocol.EncodeRemoveTagsRequest(payload, protocol.RemoveTagsRequest{
			Origin: r.Origin, Address: r.Address, Keys: r.Keys,
		}); err != nil {
			return fmt.Errorf("failed to encode remove tags request: %w", err)
		}
	default:
		return fmt.Errorf("unsupported request type %T", req)
	}

	c.logger.Debug("sending request", "command", cmdType.String())
	return c.writeFrame(ctx, cmdType, payload.Bytes())
}

// Receive reads the next response frame for the outstanding request.
func (c *Client) Receive(ctx context.Context) (Response, error) {
	cmdType, payload, err := c.readFrame(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read response frame: %w", err)
	}

	r := bytes.NewReader(payload)
	switch cmdType {
	case protocol.CommandContentsEntry:
		resp, err := protocol.DecodeContentsEntryResponse(r)
		if err != nil {
			return nil, fmt.Errorf("failed to decode contents entry: %w", err)
		}
		return ContentsEntry{Address: resp.Address, Source: resp.Source}, nil
	case protocol.CommandContentsEnd:
		return EndOfContents{}, nil
	case protocol.CommandStreamSimple:
		resp, err := protocol.DecodeStreamSimpleResponse(r)
		if err != nil {
			return nil, fmt.Errorf("failed to decode stream entry: %w", err)
		}
		return SimpleStreamEntry{Burst: resp.Burst, Point: resp.Point}, nil
	case protocol.CommandStreamExtended:
		resp, err := protocol.DecodeStreamExtendedResponse(r)
		if err != nil {
			return nil, fmt.Errorf("failed to decode extended stream entry: %w", err)
		}
		return ExtendedStreamEntry{Burst: resp.Burst, Point: resp.Point}, nil
	case protocol.CommandStreamEnd:
		return EndOfStream{}, nil
	case protocol.CommandAck:
		resp, err := protocol.DecodeAckResponse(r)
		if err != nil {
			return nil, fmt.Errorf("failed to decode ack: %w", err)
		}
		return Ack{Affected: resp.Affected}, nil
	case protocol.CommandError:
		brokerErr := protocol.DecodeErrorMessage(r)
		if msg, ok := strings.CutPrefix(brokerErr.Error(), protocol.TimeoutPrefix); ok {
			return nil, fmt.Errorf("%w: %s", ErrTimeout, msg)
		}
		return nil, fmt.Errorf("broker error: %w", brokerErr)
	default:
		return nil, fmt.Errorf("received unexpected command type from broker: %s", cmdType)
	}
}

func (c *Client) writeFrame(ctx context.Context, cmdType protocol.CommandType, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.applyDeadline(ctx); err != nil {
		return err
	}
	if err := protocol.WriteFrame(c.writer, cmdType, payload); err != nil {
		return fmt.Errorf("failed to write %s frame: %w", cmdType, err)
	}
	if err := c.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush %s frame: %w", cmdType, err)
	}
	return nil
}

func (c *Client) readFrame(ctx context.Context) (protocol.CommandType, []byte, error) {
	if err := c.applyDeadline(ctx); err != nil {
		return 0, nil, err
	}
	return protocol.ReadFrame(c.reader)
}

// applyDeadline propagates a context deadline onto the socket so blocked
// reads and writes unblock when the context expires.
func (c *Client) applyDeadline(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		return c.conn.SetDeadline(deadline)
	}
	return c.conn.SetDeadline(time.Time{})
}
