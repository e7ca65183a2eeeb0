// Package torrentfile decodes .torrent metainfo just far enough to identify
// an upload: info-hash, display name, and total payload size.
package torrentfile

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	bencode "github.com/jackpal/bencode-go"
)

// ErrMalformed is returned when the payload is not a valid metainfo file.
var ErrMalformed = errors.New("malformed torrent file")

// Info summarises a decoded metainfo file. InfoHash is the lowercase hex
// SHA-1 of the bencoded info dictionary, the identity the tracker keys on.
type Info struct {
	InfoHash string
	Name     string
	Size     int64
}

// Parse decodes the metainfo read from r.
func Parse(r io.Reader) (Info, error) {
	decoded, err := bencode.Decode(r)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	root, ok := decoded.(map[string]interface{})
	if !ok {
		return Info{}, fmt.Errorf("%w: top-level value is not a dictionary", ErrMalformed)
	}
	infoValue, ok := root["info"]
	if !ok {
		return Info{}, fmt.Errorf("%w: missing info dictionary", ErrMalformed)
	}
	infoDict, ok := infoValue.(map[string]interface{})
	if !ok {
		return Info{}, fmt.Errorf("%w: info is not a dictionary", ErrMalformed)
	}

	var encoded bytes.Buffer
	if err := bencode.Marshal(&encoded, infoValue); err != nil {
		return Info{}, fmt.Errorf("%w: re-encode info dictionary: %v", ErrMalformed, err)
	}
	digest := sha1.Sum(encoded.Bytes())

	name, _ := infoDict["name"].(string)
	if name == "" {
		return Info{}, fmt.Errorf("%w: missing name", ErrMalformed)
	}

	size, err := payloadSize(infoDict)
	if err != nil {
		return Info{}, err
	}

	return Info{
		InfoHash: hex.EncodeToString(digest[:]),
		Name:     name,
		Size:     size,
	}, nil
}

// ParseBytes decodes metainfo held in memory.
func ParseBytes(data []byte) (Info, error) {
	return Parse(bytes.NewReader(data))
}

func payloadSize(info map[string]interface{}) (int64, error) {
	if length, ok := toInt64(info["length"]); ok {
		if length < 0 {
			return 0, fmt.Errorf("%w: negative length", ErrMalformed)
		}
		return length, nil
	}

	files, ok := info["files"].([]interface{})
	if !ok {
		return 0, fmt.Errorf("%w: missing length and files", ErrMalformed)
	}
	var total int64
	for _, entry := range files {
		file, ok := entry.(map[string]interface{})
		if !ok {
			return 0, fmt.Errorf("%w: file entry is not a dictionary", ErrMalformed)
		}
		length, ok := toInt64(file["length"])
		if !ok || length < 0 {
			return 0, fmt.Errorf("%w: file entry missing length", ErrMalformed)
		}
		total += length
	}
	return total, nil
}

func toInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	}
	return 0, false
}
