package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/INLOpen/nexusctl/core"
)

func EncodeContentsListRequest(w io.Writer, req ContentsListRequest) error {
	return writeString(w, req.Origin)
}

func DecodeContentsListRequest(r io.Reader) (ContentsListRequest, error) {
	var req ContentsListRequest
	var err error
	req.Origin, err = readString(r)
	return req, err
}

func EncodeReadRequest(w io.Writer, req ReadRequest) error {
	if err := writeString(w, req.Origin); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint64(req.Address)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, req.Start); err != nil {
		return err
	}
	return binary.Write(w, binary.BigEndian, req.End)
}

func DecodeReadRequest(r io.Reader) (ReadRequest, error) {
	var req ReadRequest
	var err error
	if req.Origin, err = readString(r); err != nil {
		return req, err
	}
	var addr uint64
	if err := binary.Read(r, binary.BigEndian, &addr); err != nil {
		return req, err
	}
	req.Address = core.Address(addr)
	if err := binary.Read(r, binary.BigEndian, &req.Start); err != nil {
		return req, err
	}
	err = binary.Read(r, binary.BigEndian, &req.End)
	return req, err
}

func EncodeUpdateTagsRequest(w io.Writer, req UpdateTagsRequest) error {
	if err := writeString(w, req.Origin); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint64(req.Address)); err != nil {
		return err
	}
	return writeStringMap(w, req.Tags)
}

func DecodeUpdateTagsRequest(r io.Reader) (UpdateTagsRequest, error) {
	var req UpdateTagsRequest
	var err error
	if req.Origin, err = readString(r); err != nil {
		return req, err
	}
	var addr uint64
	if err := binary.Read(r, binary.BigEndian, &addr); err != nil {
		return req, err
	}
	req.Address = core.Address(addr)
	tags, err := readStringMap(r)
	req.Tags = core.SourceDict(tags)
	return req, err
}

func EncodeRemoveTagsRequest(w io.Writer, req RemoveTagsRequest) error {
	if err := writeString(w, req.Origin); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint64(req.Address)); err != nil {
		return err
	}
	return writeStringSlice(w, req.Keys)
}

func DecodeRemoveTagsRequest(r io.Reader) (RemoveTagsRequest, error) {
	var req RemoveTagsRequest
	var err error
	if req.Origin, err = readString(r); err != nil {
		return req, err
	}
	var addr uint64
	if err := binary.Read(r, binary.BigEndian, &addr); err != nil {
		return req, err
	}
	req.Address = core.Address(addr)
	req.Keys, err = readStringSlice(r)
	return req, err
}

func EncodeAuthRequest(w io.Writer, req AuthRequest) error {
	if err := writeString(w, req.Username); err != nil {
		return err
	}
	return writeString(w, req.Password)
}

func DecodeAuthRequest(r io.Reader) (AuthRequest, error) {
	var req AuthRequest
	var err error
	if req.Username, err = readString(r); err != nil {
		return req, err
	}
	req.Password, err = readString(r)
	return req, err
}

func EncodeContentsEntryResponse(w io.Writer, resp ContentsEntryResponse) error {
	if err := binary.Write(w, binary.BigEndian, uint64(resp.Address)); err != nil {
		return err
	}
	return writeStringMap(w, resp.Source)
}

func DecodeContentsEntryResponse(r io.Reader) (ContentsEntryResponse, error) {
	var resp ContentsEntryResponse
	var addr uint64
	if err := binary.Read(r, binary.BigEndian, &addr); err != nil {
		return resp, err
	}
	resp.Address = core.Address(addr)
	source, err := readStringMap(r)
	resp.Source = core.SourceDict(source)
	return resp, err
}

func EncodeStreamSimpleResponse(w io.Writer, resp StreamSimpleResponse) error {
	if err := binary.Write(w, binary.BigEndian, resp.Burst); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint64(resp.Point.Address)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, resp.Point.Timestamp); err != nil {
		return err
	}
	return binary.Write(w, binary.BigEndian, resp.Point.Value)
}

func DecodeStreamSimpleResponse(r io.Reader) (StreamSimpleResponse, error) {
	var resp StreamSimpleResponse
	if err := binary.Read(r, binary.BigEndian, &resp.Burst); err != nil {
		return resp, err
	}
	var addr uint64
	if err := binary.Read(r, binary.BigEndian, &addr); err != nil {
		return resp, err
	}
	resp.Point.Address = core.Address(addr)
	if err := binary.Read(r, binary.BigEndian, &resp.Point.Timestamp); err != nil {
		return resp, err
	}
	err := binary.Read(r, binary.BigEndian, &resp.Point.Value)
	return resp, err
}

func EncodeStreamExtendedResponse(w io.Writer, resp StreamExtendedResponse) error {
	if err := binary.Write(w, binary.BigEndian, resp.Burst); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint64(resp.Point.Address)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, resp.Point.Timestamp); err != nil {
		return err
	}
	return writeBytes(w, resp.Point.Payload)
}

func DecodeStreamExtendedResponse(r io.Reader) (StreamExtendedResponse, error) {
	var resp StreamExtendedResponse
	if err := binary.Read(r, binary.BigEndian, &resp.Burst); err != nil {
		return resp, err
	}
	var addr uint64
	if err := binary.Read(r, binary.BigEndian, &addr); err != nil {
		return resp, err
	}
	resp.Point.Address = core.Address(addr)
	if err := binary.Read(r, binary.BigEndian, &resp.Point.Timestamp); err != nil {
		return resp, err
	}
	var err error
	resp.Point.Payload, err = readBytes(r)
	return resp, err
}

func EncodeAckResponse(w io.Writer, resp AckResponse) error {
	return binary.Write(w, binary.BigEndian, resp.Affected)
}

func DecodeAckResponse(r io.Reader) (AckResponse, error) {
	var resp AckResponse
	err := binary.Read(r, binary.BigEndian, &resp.Affected)
	return resp, err
}

// TimeoutPrefix marks an error message as a broker-side timeout so the
// client can map it onto its timeout sentinel.
const TimeoutPrefix = "timeout: "

func EncodeErrorMessage(w io.Writer, msg string) error {
	return writeString(w, msg)
}

// DecodeErrorMessage decodes an error frame's payload into an error.
func DecodeErrorMessage(r io.Reader) error {
	msg, err := readString(r)
	if err != nil {
		return fmt.Errorf("failed to decode error message: %w", err)
	}
	return errors.New(msg)
}
