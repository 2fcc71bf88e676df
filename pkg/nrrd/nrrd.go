package nrrd

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	"slicerio/pkg/segerr"
	"slicerio/pkg/volume"
)

const magic = "NRRD0004"

// DefaultCompressionLevel is the gzip level used by DefaultWriteOptions.
const DefaultCompressionLevel = 9

// WriteOptions control how the payload is written.
type WriteOptions struct {
	// CompressionLevel is the gzip level, 0 (store) to 9 (best).
	// It is ignored for raw encoding.
	CompressionLevel int
}

// DefaultWriteOptions returns the options used when none are given.
func DefaultWriteOptions() WriteOptions {
	return WriteOptions{CompressionLevel: DefaultCompressionLevel}
}

// ReadHeader reads the header of an NRRD stream without its payload.
func ReadHeader(r io.Reader) (*Header, error) {
	return readHeader(bufio.NewReader(r))
}

// Read reads an NRRD stream with its attached payload.
func Read(r io.Reader) (*Header, *volume.Volume, error) {
	br := bufio.NewReader(r)
	h, err := readHeader(br)
	if err != nil {
		return nil, nil, err
	}
	vol, err := readPayload(br, h)
	if err != nil {
		return nil, nil, err
	}
	return h, vol, nil
}

// ReadHeaderFile reads the header of the NRRD file at path.
func ReadHeaderFile(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return ReadHeader(f)
}

// ReadFile reads the NRRD file at path.
func ReadFile(path string) (*Header, *volume.Volume, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

func readHeader(br *bufio.Reader) (*Header, error) {
	first, err := readLine(br)
	if err != nil {
		return nil, segerr.Formatf("", "missing NRRD magic: %v", err)
	}
	if !strings.HasPrefix(first, "NRRD000") {
		return nil, segerr.Formatf("", "not an NRRD file")
	}

	h := &Header{}
	lines := 1
	for {
		line, err := readLine(br)
		if errors.Is(err, io.EOF) && line == "" {
			break
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to read header: %w", err)
		}
		lines++
		if line == "" {
			break
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		// The earlier separator wins, so values may contain the other one.
		custom := strings.Index(line, ":=")
		standard := strings.Index(line, ": ")
		if custom >= 0 && (standard < 0 || custom < standard) {
			h.Set(line[:custom], line[custom+2:])
			continue
		}
		if standard < 0 {
			return nil, segerr.Formatf("", "malformed header line %d: %q", lines, line)
		}
		key, raw := line[:standard], line[standard+2:]
		value, perr := parseStandardValue(key, raw)
		if perr != nil {
			return nil, perr
		}
		h.Set(key, value)
		if errors.Is(err, io.EOF) {
			break
		}
	}
	return h, nil
}

func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	return strings.TrimRight(line, "\r\n"), err
}

func readPayload(br *bufio.Reader, h *Header) (*volume.Volume, error) {
	for _, key := range []string{"data file", "datafile"} {
		if _, ok := h.Get(key); ok {
			return nil, segerr.Formatf(key, "detached data files are not supported")
		}
	}

	typeName, ok := h.GetString("type")
	if !ok {
		return nil, segerr.Formatf("type", "missing")
	}
	t, err := volume.ParseType(typeName)
	if err != nil {
		return nil, err
	}
	rawSizes, _ := h.Get("sizes")
	sizes, ok := rawSizes.([]int)
	if !ok {
		return nil, segerr.Formatf("sizes", "missing")
	}
	vol, err := volume.New(t, sizes...)
	if err != nil {
		return nil, err
	}

	var order binary.ByteOrder = binary.LittleEndian
	if endian, _ := h.GetString("endian"); endian == "big" {
		order = binary.BigEndian
	}

	encoding, _ := h.GetString("encoding")
	var payload io.Reader = br
	switch encoding {
	case "raw":
	case "gzip", "gz":
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip payload: %w", err)
		}
		defer zr.Close()
		payload = zr
	default:
		return nil, segerr.Formatf("encoding", "unsupported encoding %q", encoding)
	}

	buf := make([]byte, len(vol.Data)*t.Size())
	if _, err := io.ReadFull(payload, buf); err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}
	decodeElements(vol, buf, order)
	return vol, nil
}

func decodeElements(vol *volume.Volume, buf []byte, order binary.ByteOrder) {
	switch vol.Type {
	case volume.Int8:
		for i := range vol.Data {
			vol.Data[i] = int32(int8(buf[i]))
		}
	case volume.Uint8:
		for i := range vol.Data {
			vol.Data[i] = int32(buf[i])
		}
	case volume.Int16:
		for i := range vol.Data {
			vol.Data[i] = int32(int16(order.Uint16(buf[2*i:])))
		}
	case volume.Uint16:
		for i := range vol.Data {
			vol.Data[i] = int32(order.Uint16(buf[2*i:]))
		}
	case volume.Int32:
		for i := range vol.Data {
			vol.Data[i] = int32(order.Uint32(buf[4*i:]))
		}
	}
}

func encodeElements(vol *volume.Volume) []byte {
	buf := make([]byte, len(vol.Data)*vol.Type.Size())
	order := binary.LittleEndian
	switch vol.Type {
	case volume.Int8, volume.Uint8:
		for i, v := range vol.Data {
			buf[i] = byte(v)
		}
	case volume.Int16, volume.Uint16:
		for i, v := range vol.Data {
			order.PutUint16(buf[2*i:], uint16(v))
		}
	case volume.Int32:
		for i, v := range vol.Data {
			order.PutUint32(buf[4*i:], uint32(v))
		}
	}
	return buf
}

var typeNames = map[volume.Type]string{
	volume.Int8:   "signed char",
	volume.Uint8:  "unsigned char",
	volume.Int16:  "short",
	volume.Uint16: "unsigned short",
	volume.Int32:  "int",
}

// derived fields are computed from the volume and never copied from the header.
var derived = map[string]bool{"type": true, "dimension": true, "sizes": true, "endian": true}

// Write writes h and vol as an NRRD stream. The encoding field of h selects
// raw or gzip payload encoding; gzip is used when it is absent.
func Write(w io.Writer, h *Header, vol *volume.Volume, opts WriteOptions) error {
	if vol == nil {
		return segerr.Valuef("no voxels to write")
	}
	if err := vol.Validate(); err != nil {
		return err
	}

	encoding, ok := h.GetString("encoding")
	if !ok {
		encoding = "gzip"
	}
	switch encoding {
	case "raw", "gzip", "gz":
	default:
		return segerr.Formatf("encoding", "unsupported encoding %q", encoding)
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, magic)
	fmt.Fprintln(bw, "# Complete NRRD file format specification at:")
	fmt.Fprintln(bw, "# http://teem.sourceforge.net/nrrd/format.html")
	fmt.Fprintf(bw, "type: %s\n", typeNames[vol.Type])
	fmt.Fprintf(bw, "dimension: %d\n", vol.Dims())
	sizes, _ := formatValue("sizes", vol.Sizes)
	fmt.Fprintf(bw, "sizes: %s\n", sizes)
	if vol.Type.Size() > 1 {
		fmt.Fprintln(bw, "endian: little")
	}
	if _, ok := h.Get("encoding"); !ok {
		fmt.Fprintf(bw, "encoding: %s\n", encoding)
	}

	for _, f := range h.fields {
		if derived[f.Key] {
			continue
		}
		value, err := formatValue(f.Key, f.Value)
		if err != nil {
			return err
		}
		if IsStandardField(f.Key) {
			fmt.Fprintf(bw, "%s: %s\n", f.Key, value)
		} else {
			fmt.Fprintf(bw, "%s:=%s\n", f.Key, value)
		}
	}
	fmt.Fprintln(bw)

	data := encodeElements(vol)
	switch encoding {
	case "raw":
		if _, err := bw.Write(data); err != nil {
			return fmt.Errorf("failed to write payload: %w", err)
		}
	case "gzip", "gz":
		zw, err := gzip.NewWriterLevel(bw, opts.CompressionLevel)
		if err != nil {
			return fmt.Errorf("invalid compression level %d: %w", opts.CompressionLevel, err)
		}
		if _, err := zw.Write(data); err != nil {
			return fmt.Errorf("failed to compress payload: %w", err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("failed to compress payload: %w", err)
		}
	}
	return bw.Flush()
}

// WriteFile writes h and vol to the file at path.
func WriteFile(path string, h *Header, vol *volume.Volume, opts WriteOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := Write(f, h, vol, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
