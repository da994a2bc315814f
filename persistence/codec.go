package persistence

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"cardvault/models"

	"github.com/klauspost/compress/zstd"
)

// FormatVersion is the snapshot layout written by this build
const FormatVersion = 1

// Header is the first line of a decompressed snapshot. It can be read without decoding the body.
type Header struct {
	Version  int       `json:"version"`
	SavedAt  time.Time `json:"saved_at"`
	Accounts int       `json:"accounts"`
	Auctions int       `json:"auctions"`
}

// Document is the persisted economy state
type Document struct {
	Version        int                        `json:"version"`
	SavedAt        time.Time                  `json:"saved_at"`
	Settings       models.Settings            `json:"settings"`
	Accounts       []*models.Account          `json:"accounts"`
	Auctions       map[string]*models.Auction `json:"auctions"`
	GamenightLinks []models.GamenightLink     `json:"gamenight_links"`
}

// Header returns the summary line for the document
func (d *Document) Header() Header {
	return Header{
		Version:  d.Version,
		SavedAt:  d.SavedAt,
		Accounts: len(d.Accounts),
		Auctions: len(d.Auctions),
	}
}

// Encode writes the header line and JSON body inside one zstd frame
func Encode(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}

	bw := bufio.NewWriterSize(enc, 64*1024)
	hb, err := json.Marshal(doc.Header())
	if err != nil {
		return nil, fmt.Errorf("encode header: %w", err)
	}
	if _, err := bw.Write(hb); err != nil {
		return nil, err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return nil, err
	}
	if err := json.NewEncoder(bw).Encode(doc); err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads a snapshot produced by Encode
func Decode(data []byte) (*Document, error) {
	dec, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	var header Header
	if err := json.Unmarshal(line, &header); err != nil {
		return nil, fmt.Errorf("decode header: %w", err)
	}
	if header.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", header.Version)
	}

	var doc Document
	if err := json.NewDecoder(br).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode body: %w", io.ErrUnexpectedEOF)
		}
		return nil, fmt.Errorf("decode body: %w", err)
	}
	if doc.Version != header.Version {
		return nil, fmt.Errorf("header version %d does not match body version %d", header.Version, doc.Version)
	}
	return &doc, nil
}

// DecodeHeader reads only the summary line
func DecodeHeader(data []byte) (*Header, error) {
	dec, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	var header Header
	if err := json.Unmarshal(line, &header); err != nil {
		return nil, fmt.Errorf("decode header: %w", err)
	}
	return &header, nil
}
