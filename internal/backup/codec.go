package backup

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	lzstring "github.com/daku10/go-lz-string"
	"github.com/klauspost/compress/zstd"
)

// ErrInvalidCode is returned (wrapped) for any input that does not decode to
// a recognised backup shape.
var ErrInvalidCode = errors.New("backup: invalid recovery code")

// maxDecodedSize bounds decompression so a hostile code cannot exhaust memory.
const maxDecodedSize = 64 << 20

// The encoder and decoder are safe for concurrent use and reused across calls.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		panic("backup: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDecodedSize))
	if err != nil {
		panic("backup: zstd decoder initialization failed: " + err.Error())
	}
}

// now is replaced in tests.
var now = time.Now

// Encode turns a backup into a URL-safe recovery code.
func Encode(d *Data) (string, error) {
	raw, err := d.JSON()
	if err != nil {
		return "", fmt.Errorf("encoding backup: %w", err)
	}
	compressed := zstdEncoder.EncodeAll(raw, nil)
	return base64.RawURLEncoding.EncodeToString(compressed), nil
}

// Decode accepts a recovery code or literal backup JSON. Input that trims to
// something starting with '{' or '[' is treated as JSON; anything else is
// treated as a compressed code. Codes written by earlier releases are
// LZ-String compressed and are accepted too. Every failure wraps
// ErrInvalidCode.
func Decode(input string) (*Data, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidCode)
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		return DecodeJSON([]byte(trimmed))
	}

	raw, err := decompressZstd(trimmed)
	if err == nil {
		return DecodeJSON(raw)
	}
	if legacy, ok := decompressLZString(trimmed); ok {
		return DecodeJSON(legacy)
	}
	return nil, fmt.Errorf("%w: %v", ErrInvalidCode, err)
}

func decompressZstd(code string) ([]byte, error) {
	compressed, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(code, "="))
	if err != nil {
		return nil, err
	}
	return zstdDecoder.DecodeAll(compressed, nil)
}

// decompressLZString tries the URI-safe alphabet the old app exported with,
// then the base64 alphabet its recovery tools used. It reports false unless
// the output looks like a JSON object.
func decompressLZString(code string) (out []byte, ok bool) {
	defer func() {
		if recover() != nil {
			out, ok = nil, false
		}
	}()

	for _, decompress := range []func(string) (string, error){
		lzstring.DecompressFromEncodedURIComponent,
		lzstring.DecompressFromBase64,
	} {
		text, err := decompress(code)
		if err != nil || len(text) > maxDecodedSize {
			continue
		}
		text = strings.TrimSpace(text)
		if strings.HasPrefix(text, "{") {
			return []byte(text), true
		}
	}
	return nil, false
}

// DecodeJSON classifies an already-decompressed JSON document. Canonical
// backups are returned as they are; legacy recovery contexts are converted.
func DecodeJSON(raw []byte) (*Data, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCode, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: not an object", ErrInvalidCode)
	}

	if truthy(fields["version"]) && isArray(fields["seasonPasses"]) {
		return decodeCanonical(raw)
	}

	if rd, ok := fields["recoveryData"]; ok && isObject(rd) {
		lc, err := ParseLegacy(rd)
		if err != nil {
			return nil, err
		}
		return lc.Convert(fields["version"], now())
	}

	return nil, fmt.Errorf("%w: unrecognised backup shape", ErrInvalidCode)
}

// canonical tolerates a numeric version, which some older builds wrote.
type canonical struct {
	Data
	Version json.RawMessage `json:"version"`
}

func decodeCanonical(raw []byte) (*Data, error) {
	var c canonical
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCode, err)
	}
	d := c.Data
	d.Version = textOf(c.Version)
	return &d, nil
}

// --------------------------------------------------------------------------
// Raw JSON helpers
// --------------------------------------------------------------------------

// truthy mirrors loose truthiness: null, false, 0 and "" are false.
func truthy(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	switch {
	case len(v) == 0, bytes.Equal(v, []byte("null")), bytes.Equal(v, []byte("false")), bytes.Equal(v, []byte(`""`)):
		return false
	case v[0] == '-' || (v[0] >= '0' && v[0] <= '9'):
		var f float64
		return json.Unmarshal(v, &f) == nil && f != 0
	}
	return true
}

func isArray(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	return len(v) > 0 && v[0] == '['
}

func isObject(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	return len(v) > 0 && v[0] == '{'
}

// textOf renders a JSON string or number as text; anything else is "".
func textOf(v json.RawMessage) string {
	v = bytes.TrimSpace(v)
	if len(v) == 0 {
		return ""
	}
	if v[0] == '"' {
		var s string
		if json.Unmarshal(v, &s) == nil {
			return s
		}
		return ""
	}
	var n json.Number
	if json.Unmarshal(v, &n) == nil {
		return n.String()
	}
	return ""
}
