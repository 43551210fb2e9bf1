// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// maxInflatedSize bounds the decompressed size of one compressed value.
const maxInflatedSize = 64 << 20

func compress(data []byte) ([]byte, error) {
	var buffer bytes.Buffer
	writer := gzip.NewWriter(&buffer)
	if _, err := writer.Write(data); err != nil {
		return nil, fmt.Errorf("wire: compressing: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("wire: compressing: %w", err)
	}
	return buffer.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("wire: decompressing: %w", err)
	}
	defer reader.Close()
	inflated, err := io.ReadAll(io.LimitReader(reader, maxInflatedSize+1))
	if err != nil {
		return nil, fmt.Errorf("wire: decompressing: %w", err)
	}
	if len(inflated) > maxInflatedSize {
		return nil, fmt.Errorf("wire: compressed value inflates past %d bytes", maxInflatedSize)
	}
	return inflated, nil
}
