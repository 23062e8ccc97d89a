// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/pierrec/lz4/v4"
	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/jules/lib/codec"
)

// Snapshot file layout:
//
//	magic "JSNP"        4 bytes
//	format version      1 byte
//	compression tag     1 byte (0 = none, 1 = lz4 block)
//	uncompressed size   4 bytes, little-endian
//	payload             deterministic CBOR, possibly lz4-compressed
//	checksum            32 bytes, BLAKE3 of the stored payload
//
// The checksum covers the payload exactly as stored, so verification
// happens before any decompression or decoding touches the bytes.

const (
	snapshotVersion = 1

	snapshotCompressionNone = 0
	snapshotCompressionLZ4  = 1

	snapshotHeaderSize   = 10
	snapshotChecksumSize = 32

	// maxSnapshotPayload bounds the decoded payload so a corrupt
	// size field cannot trigger an enormous allocation.
	maxSnapshotPayload = 64 << 20
)

var snapshotMagic = []byte("JSNP")

// snapshotPayload is the CBOR document inside a snapshot file. Listed
// carries the set of IDs the remote has reported, so the local-only
// distinction survives a restart.
type snapshotPayload struct {
	Sessions []Session `json:"sessions"`
	Listed   []string  `json:"listed"`
}

// Save writes the cache contents to path atomically (temp file in the
// same directory, then rename). The parent directory is created if
// missing. Two saves of the same cache state produce identical bytes.
func (c *Cache) Save(path string) error {
	c.mu.Lock()
	payload := snapshotPayload{
		Sessions: make([]Session, 0, len(c.sessions)),
		Listed:   make([]string, 0, len(c.listed)),
	}
	for _, s := range c.sessions {
		payload.Sessions = append(payload.Sessions, s)
	}
	for id := range c.listed {
		payload.Listed = append(payload.Listed, id)
	}
	c.mu.Unlock()

	SortNewestFirst(payload.Sessions)
	slices.Sort(payload.Listed)

	raw, err := codec.Marshal(payload)
	if err != nil {
		return fmt.Errorf("snapshot: encoding payload: %w", err)
	}
	if len(raw) > maxSnapshotPayload {
		return fmt.Errorf("snapshot: payload is %d bytes, limit %d", len(raw), maxSnapshotPayload)
	}

	stored, tag := compressPayload(raw)

	file := make([]byte, 0, snapshotHeaderSize+len(stored)+snapshotChecksumSize)
	file = append(file, snapshotMagic...)
	file = append(file, snapshotVersion, tag)
	file = binary.LittleEndian.AppendUint32(file, uint32(len(raw)))
	file = append(file, stored...)
	sum := blake3.Sum256(stored)
	file = append(file, sum[:]...)

	return writeFileAtomic(path, file)
}

// Load replaces the cache contents from a snapshot file. Any
// corruption (bad magic, unknown version, checksum mismatch, size
// mismatch, undecodable payload) returns an error and leaves the
// cache untouched, so a damaged snapshot never poisons state: the
// caller logs the error and starts empty. A missing file reports
// fs.ErrNotExist through the error chain.
func (c *Cache) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}

	if len(data) < snapshotHeaderSize+snapshotChecksumSize {
		return fmt.Errorf("snapshot: file is %d bytes, below minimum %d", len(data), snapshotHeaderSize+snapshotChecksumSize)
	}
	if !bytes.Equal(data[:4], snapshotMagic) {
		return fmt.Errorf("snapshot: bad magic %q", data[:4])
	}
	if data[4] != snapshotVersion {
		return fmt.Errorf("snapshot: unsupported version %d", data[4])
	}
	tag := data[5]
	size := binary.LittleEndian.Uint32(data[6:10])
	if size > maxSnapshotPayload {
		return fmt.Errorf("snapshot: payload size %d exceeds limit %d", size, maxSnapshotPayload)
	}

	stored := data[snapshotHeaderSize : len(data)-snapshotChecksumSize]
	sum := blake3.Sum256(stored)
	if !bytes.Equal(sum[:], data[len(data)-snapshotChecksumSize:]) {
		return fmt.Errorf("snapshot: checksum mismatch")
	}

	raw, err := decompressPayload(stored, tag, int(size))
	if err != nil {
		return err
	}

	var payload snapshotPayload
	if err := codec.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("snapshot: decoding payload: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions = make(map[string]Session, len(payload.Sessions))
	for _, s := range payload.Sessions {
		c.sessions[s.ID] = s
	}
	c.listed = make(map[string]struct{}, len(payload.Listed))
	for _, id := range payload.Listed {
		c.listed[id] = struct{}{}
	}
	c.seq++
	return nil
}

// compressPayload lz4-compresses raw when that makes it smaller,
// falling back to storing it verbatim. Small snapshots rarely
// compress; large ones (long prompts, many sessions) do.
func compressPayload(raw []byte) ([]byte, byte) {
	bound := lz4.CompressBlockBound(len(raw))
	destination := make([]byte, bound)
	written, err := lz4.CompressBlock(raw, destination, nil)
	if err != nil || written == 0 || written >= len(raw) {
		return raw, snapshotCompressionNone
	}
	return destination[:written], snapshotCompressionLZ4
}

func decompressPayload(stored []byte, tag byte, size int) ([]byte, error) {
	switch tag {
	case snapshotCompressionNone:
		if len(stored) != size {
			return nil, fmt.Errorf("snapshot: stored payload is %d bytes, header says %d", len(stored), size)
		}
		return stored, nil
	case snapshotCompressionLZ4:
		destination := make([]byte, size)
		read, err := lz4.UncompressBlock(stored, destination)
		if err != nil {
			return nil, fmt.Errorf("snapshot: lz4 decompress: %w", err)
		}
		if read != size {
			return nil, fmt.Errorf("snapshot: lz4 decompress: got %d bytes, expected %d", read, size)
		}
		return destination, nil
	default:
		return nil, fmt.Errorf("snapshot: unknown compression tag %d", tag)
	}
}

// writeFileAtomic writes data via a temp file and rename so readers
// never observe a partial snapshot.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("snapshot: creating directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("snapshot: creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("snapshot: writing temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("snapshot: closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("snapshot: renaming into place: %w", err)
	}

	success = true
	return nil
}
