package storage

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

// executionNamespace scopes execution refs so equal blobs map to equal refs
// and nothing else collides with them.
var executionNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("tia:execution-data"))

// ExecutionRef derives the reference of a raw coverage blob from its content.
func ExecutionRef(blob []byte) string {
	return uuid.NewSHA1(executionNamespace, blob).String()
}

var (
	codecOnce sync.Once
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
)

// codec returns the shared zstd encoder and decoder. Both are safe for
// concurrent EncodeAll and DecodeAll calls.
func codec() (*zstd.Encoder, *zstd.Decoder) {
	codecOnce.Do(func() {
		var err error
		if encoder, err = zstd.NewWriter(nil); err != nil {
			panic(fmt.Sprintf("zstd encoder: %v", err))
		}
		if decoder, err = zstd.NewReader(nil); err != nil {
			panic(fmt.Sprintf("zstd decoder: %v", err))
		}
	})
	return encoder, decoder
}

func compress(data []byte) []byte {
	enc, _ := codec()
	return enc.EncodeAll(data, make([]byte, 0, len(data)/2))
}

func decompress(data []byte) ([]byte, error) {
	_, dec := codec()
	return dec.DecodeAll(data, nil)
}
