// Package volumeio loads scalar volumes from MetaImage files and from
// directories of slice images.
package volumeio

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zlib"

	"github.com/liangfu/volrender/internal/models"
)

// elementType describes one MetaImage ElementType
type elementType struct {
	size   int
	decode func(order binary.ByteOrder, b []byte) float64
}

var elementTypes = map[string]elementType{
	"MET_UCHAR": {1, func(_ binary.ByteOrder, b []byte) float64 { return float64(b[0]) }},
	"MET_CHAR":  {1, func(_ binary.ByteOrder, b []byte) float64 { return float64(int8(b[0])) }},
	"MET_USHORT": {2, func(o binary.ByteOrder, b []byte) float64 {
		return float64(o.Uint16(b))
	}},
	"MET_SHORT": {2, func(o binary.ByteOrder, b []byte) float64 {
		return float64(int16(o.Uint16(b)))
	}},
	"MET_UINT": {4, func(o binary.ByteOrder, b []byte) float64 {
		return float64(o.Uint32(b))
	}},
	"MET_INT": {4, func(o binary.ByteOrder, b []byte) float64 {
		return float64(int32(o.Uint32(b)))
	}},
	"MET_FLOAT": {4, func(o binary.ByteOrder, b []byte) float64 {
		return float64(math.Float32frombits(o.Uint32(b)))
	}},
	"MET_DOUBLE": {8, func(o binary.ByteOrder, b []byte) float64 {
		return math.Float64frombits(o.Uint64(b))
	}},
}

// metaHeader is the subset of MetaImage header fields used here
type metaHeader struct {
	dims        []int
	spacing     []float64
	origin      []float64
	elementType string
	channels    int
	msb         bool
	compressed  bool
	dataFile    string
}

// LoadMetaImage reads a .mha file with inline data or a .mhd header
// with a separate data file.
func LoadMetaImage(path string) (*models.ScalarVolume, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrLoad, err)
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	hdr, err := readMetaHeader(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", models.ErrLoad, path, err)
	}

	var raw []byte
	if strings.EqualFold(hdr.dataFile, "LOCAL") {
		raw, err = io.ReadAll(reader)
	} else {
		dataPath := hdr.dataFile
		if !filepath.IsAbs(dataPath) {
			dataPath = filepath.Join(filepath.Dir(path), dataPath)
		}
		raw, err = os.ReadFile(dataPath)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading element data: %v", models.ErrLoad, err)
	}

	vol, err := decodeMetaData(hdr, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", models.ErrLoad, path, err)
	}
	if err := vol.Validate(); err != nil {
		return nil, err
	}
	return vol, nil
}

func readMetaHeader(r *bufio.Reader) (*metaHeader, error) {
	hdr := &metaHeader{channels: 1}
	for {
		line, err := r.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return nil, fmt.Errorf("header ended before ElementDataFile")
		}
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)

		switch key {
		case "NDims":
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 || n > 3 {
				return nil, fmt.Errorf("unsupported NDims %q", value)
			}
		case "DimSize":
			if hdr.dims, err = parseInts(value); err != nil {
				return nil, fmt.Errorf("DimSize: %v", err)
			}
		case "ElementSpacing", "ElementSize":
			if hdr.spacing == nil || key == "ElementSpacing" {
				if hdr.spacing, err = parseFloats(value); err != nil {
					return nil, fmt.Errorf("%s: %v", key, err)
				}
			}
		case "Offset", "Origin", "Position":
			if hdr.origin, err = parseFloats(value); err != nil {
				return nil, fmt.Errorf("%s: %v", key, err)
			}
		case "ElementType":
			hdr.elementType = strings.ToUpper(value)
		case "ElementNumberOfChannels":
			if hdr.channels, err = strconv.Atoi(value); err != nil || hdr.channels < 1 {
				return nil, fmt.Errorf("invalid ElementNumberOfChannels %q", value)
			}
		case "BinaryDataByteOrderMSB", "ElementByteOrderMSB":
			hdr.msb = strings.EqualFold(value, "True")
		case "CompressedData":
			hdr.compressed = strings.EqualFold(value, "True")
		case "ElementDataFile":
			if strings.EqualFold(value, "LIST") || strings.Contains(value, "%") {
				return nil, fmt.Errorf("multi-file element data %q is not supported", value)
			}
			hdr.dataFile = value
			return hdr, nil
		}
	}
}

func decodeMetaData(hdr *metaHeader, raw []byte) (*models.ScalarVolume, error) {
	et, ok := elementTypes[hdr.elementType]
	if !ok {
		return nil, fmt.Errorf("unsupported ElementType %q", hdr.elementType)
	}

	vol := &models.ScalarVolume{
		Dims:       [3]int{1, 1, 1},
		Spacing:    [3]float64{1, 1, 1},
		Components: hdr.channels,
	}
	for i := 0; i < len(hdr.dims) && i < 3; i++ {
		vol.Dims[i] = hdr.dims[i]
	}
	for i := 0; i < len(hdr.spacing) && i < 3; i++ {
		vol.Spacing[i] = hdr.spacing[i]
	}
	for i := 0; i < len(hdr.origin) && i < 3; i++ {
		vol.Origin[i] = hdr.origin[i]
	}

	if hdr.compressed {
		zr, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("opening compressed data: %v", err)
		}
		defer zr.Close()
		if raw, err = io.ReadAll(zr); err != nil {
			return nil, fmt.Errorf("decompressing data: %v", err)
		}
	}

	n, err := elementCount(vol.Dims, vol.Components, et.size)
	if err != nil {
		return nil, err
	}
	if len(raw) < n*et.size {
		return nil, fmt.Errorf("expected %d bytes of element data, got %d", n*et.size, len(raw))
	}

	var order binary.ByteOrder = binary.LittleEndian
	if hdr.msb {
		order = binary.BigEndian
	}
	vol.Data = make([]float64, n)
	for i := range vol.Data {
		vol.Data[i] = et.decode(order, raw[i*et.size:(i+1)*et.size])
	}
	return vol, nil
}

// elementCount returns the number of samples described by dims and
// channels. The byte size n*size is guaranteed not to overflow.
func elementCount(dims [3]int, channels, size int) (int, error) {
	n := channels
	for axis, d := range dims {
		if d < 1 {
			return 0, fmt.Errorf("DimSize %d along axis %d must be positive", d, axis)
		}
		if n > math.MaxInt/size/d {
			return 0, fmt.Errorf("DimSize %v with %d channels is too large", dims, channels)
		}
		n *= d
	}
	return n, nil
}

// WriteMetaImage writes vol as MET_DOUBLE samples. A .mhd path gets a
// sibling data file; any other path holds the data inline.
func WriteMetaImage(path string, vol *models.ScalarVolume, compress bool) error {
	data := make([]byte, 8*len(vol.Data))
	for i, v := range vol.Data {
		binary.LittleEndian.PutUint64(data[i*8:], math.Float64bits(v))
	}
	if compress {
		var buf bytes.Buffer
		zw := zlib.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			zw.Close()
			return fmt.Errorf("compressing element data: %w", err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("compressing element data: %w", err)
		}
		data = buf.Bytes()
	}

	dataFile := "LOCAL"
	if strings.EqualFold(filepath.Ext(path), ".mhd") {
		ext := ".raw"
		if compress {
			ext = ".zraw"
		}
		dataFile = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ext
		if err := os.WriteFile(filepath.Join(filepath.Dir(path), dataFile), data, 0644); err != nil {
			return fmt.Errorf("writing element data: %w", err)
		}
	}

	var hdr strings.Builder
	fmt.Fprintf(&hdr, "ObjectType = Image\n")
	fmt.Fprintf(&hdr, "NDims = 3\n")
	fmt.Fprintf(&hdr, "BinaryData = True\n")
	fmt.Fprintf(&hdr, "BinaryDataByteOrderMSB = False\n")
	fmt.Fprintf(&hdr, "CompressedData = %s\n", metaBool(compress))
	if compress {
		fmt.Fprintf(&hdr, "CompressedDataSize = %d\n", len(data))
	}
	fmt.Fprintf(&hdr, "Offset = %s\n", joinFloats(vol.Origin[:]))
	fmt.Fprintf(&hdr, "ElementSpacing = %s\n", joinFloats(vol.Spacing[:]))
	fmt.Fprintf(&hdr, "DimSize = %d %d %d\n", vol.Dims[0], vol.Dims[1], vol.Dims[2])
	if vol.Components > 1 {
		fmt.Fprintf(&hdr, "ElementNumberOfChannels = %d\n", vol.Components)
	}
	fmt.Fprintf(&hdr, "ElementType = MET_DOUBLE\n")
	fmt.Fprintf(&hdr, "ElementDataFile = %s\n", dataFile)

	out := []byte(hdr.String())
	if dataFile == "LOCAL" {
		out = append(out, data...)
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return fmt.Errorf("writing MetaImage: %w", err)
	}
	return nil
}

func parseInts(s string) ([]int, error) {
	fields := strings.Fields(s)
	out := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func parseFloats(s string) ([]float64, error) {
	fields := strings.Fields(s)
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func joinFloats(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, " ")
}

func metaBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
