package broker

import "github.com/INLOpen/nexusctl/core"

// Request is the closed set of requests a connection accepts. Exactly one
// request is outstanding per connection; sending a new one replaces it.
type Request interface {
	isRequest()
}

// ContentsListRequest asks for the enumeration of every address in an
// origin together with its source dictionary.
type ContentsListRequest struct {
	Origin string
}

// SimpleReadRequest streams simple-format points for one address whose
// timestamps fall within [Start, End).
type SimpleReadRequest struct {
	Origin  string
	Address core.Address
	Start   int64
	End     int64
}

// ExtendedReadRequest streams extended-format points for one address
// whose timestamps fall within [Start, End).
type ExtendedReadRequest struct {
	Origin  string
	Address core.Address
	Start   int64
	End     int64
}

// UpdateTagsRequest merges Tags into an address's source dictionary.
type UpdateTagsRequest struct {
	Origin  string
	Address core.Address
	Tags    core.SourceDict
}

// RemoveTagsRequest removes the named keys from an address's source
// dictionary.
type RemoveTagsRequest struct {
	Origin  string
	Address core.Address
	Keys    []string
}

func (ContentsListRequest) isRequest() {}
func (SimpleReadRequest) isRequest()   {}
func (ExtendedReadRequest) isRequest() {}
func (UpdateTagsRequest) isRequest()   {}
func (RemoveTagsRequest) isRequest()   {}

// Response is the closed set of responses Receive can yield.
type Response interface {
	isResponse()
}

// ContentsEntry is one entry of an origin's address listing.
type ContentsEntry struct {
	Address core.Address
	Source  core.SourceDict
}

// EndOfContents terminates a contents enumeration. Further Receive calls
// on the same request keep returning it.
type EndOfContents struct{}

// SimpleStreamEntry is one simple-format point of a read stream together
// with the burst it was delivered in.
type SimpleStreamEntry struct {
	Burst uint64
	Point core.SimplePoint
}

// ExtendedStreamEntry is one extended-format point of a read stream.
type ExtendedStreamEntry struct {
	Burst uint64
	Point core.ExtendedPoint
}

// EndOfStream terminates a point stream. Further Receive calls on the
// same request keep returning it.
type EndOfStream struct{}

// Ack reports the number of entries affected by a tag manipulation.
type Ack struct {
	Affected uint64
}

func (ContentsEntry) isResponse()       {}
func (EndOfContents) isResponse()       {}
func (SimpleStreamEntry) isResponse()   {}
func (ExtendedStreamEntry) isResponse() {}
func (EndOfStream) isResponse()         {}
func (Ack) isResponse()                 {}
