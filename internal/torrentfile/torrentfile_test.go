package torrentfile

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"testing"

	bencode "github.com/jackpal/bencode-go"
)

func encodeMetainfo(t *testing.T, root map[string]interface{}) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := bencode.Marshal(&buf, root); err != nil {
		t.Fatalf("marshal metainfo: %v", err)
	}
	return buf.Bytes()
}

func TestParseSingleFile(t *testing.T) {
	info := map[string]interface{}{
		"name":         "example.iso",
		"length":       int64(4096),
		"piece length": int64(16384),
		"pieces":       "aaaaaaaaaaaaaaaaaaaa",
	}
	payload := encodeMetainfo(t, map[string]interface{}{
		"announce": "https://tracker.example.com/announce",
		"info":     info,
	})

	parsed, err := ParseBytes(payload)
	if err != nil {
		t.Fatalf("ParseBytes returned error: %v", err)
	}
	if parsed.Name != "example.iso" {
		t.Fatalf("expected name example.iso, got %q", parsed.Name)
	}
	if parsed.Size != 4096 {
		t.Fatalf("expected size 4096, got %d", parsed.Size)
	}

	var infoBuf bytes.Buffer
	if err := bencode.Marshal(&infoBuf, info); err != nil {
		t.Fatalf("marshal info: %v", err)
	}
	digest := sha1.Sum(infoBuf.Bytes())
	if parsed.InfoHash != hex.EncodeToString(digest[:]) {
		t.Fatalf("info hash mismatch: got %s", parsed.InfoHash)
	}
	if len(parsed.InfoHash) != 40 {
		t.Fatalf("expected 40-character hex hash, got %q", parsed.InfoHash)
	}
}

func TestParseMultiFileSumsLengths(t *testing.T) {
	payload := encodeMetainfo(t, map[string]interface{}{
		"info": map[string]interface{}{
			"name":         "bundle",
			"piece length": int64(16384),
			"pieces":       "aaaaaaaaaaaaaaaaaaaa",
			"files": []interface{}{
				map[string]interface{}{"length": int64(100), "path": []interface{}{"a.bin"}},
				map[string]interface{}{"length": int64(250), "path": []interface{}{"b.bin"}},
			},
		},
	})

	parsed, err := ParseBytes(payload)
	if err != nil {
		t.Fatalf("ParseBytes returned error: %v", err)
	}
	if parsed.Size != 350 {
		t.Fatalf("expected size 350, got %d", parsed.Size)
	}
}

func TestParseRejectsMalformedPayloads(t *testing.T) {
	cases := map[string][]byte{
		"not bencode":  []byte("this is not a torrent"),
		"no info":      encodeMetainfo(t, map[string]interface{}{"announce": "x"}),
		"info no name": encodeMetainfo(t, map[string]interface{}{"info": map[string]interface{}{"length": int64(1)}}),
		"no length":    encodeMetainfo(t, map[string]interface{}{"info": map[string]interface{}{"name": "x"}}),
	}
	for label, payload := range cases {
		if _, err := ParseBytes(payload); !errors.Is(err, ErrMalformed) {
			t.Fatalf("%s: expected ErrMalformed, got %v", label, err)
		}
	}
}
