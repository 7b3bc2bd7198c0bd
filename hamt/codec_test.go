package hamt

import (
	"bytes"
	"testing"

	"github.com/trunklab/trunk/common"
	"github.com/trunklab/trunk/tree"
)

func TestCodec_EncodingIsDeterministic(t *testing.T) {
	n := &node{}
	n.slots[3] = tree.LeafHandle(Entry{Key: "some key", Value: 12})
	n.slots[9] = tree.PersistedHandle[Entry](common.Hash{1, 2, 3})

	first, err := codec{}.EncodeNode(n)
	if err != nil {
		t.Fatalf("failed to encode node: %v", err)
	}
	second, err := codec{}.EncodeNode(n)
	if err != nil {
		t.Fatalf("failed to encode node again: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("repeated encoding produced different bytes")
	}
}

func TestCodec_RoundTripPreservesEncoding(t *testing.T) {
	n := &node{}
	n.slots[0] = tree.LeafHandle(Entry{Key: "", Value: 0})
	n.slots[7] = tree.LeafHandle(Entry{Key: "another key", Value: 1 << 60})
	n.slots[15] = tree.PersistedHandle[Entry](common.Hash{0xff})

	data, err := codec{}.EncodeNode(n)
	if err != nil {
		t.Fatalf("failed to encode node: %v", err)
	}
	decoded, err := codec{}.DecodeNode(data)
	if err != nil {
		t.Fatalf("failed to decode node: %v", err)
	}
	restored, err := codec{}.EncodeNode(decoded)
	if err != nil {
		t.Fatalf("failed to re-encode node: %v", err)
	}
	if !bytes.Equal(data, restored) {
		t.Errorf("decoded node re-encodes differently")
	}
}

func TestCodec_RejectsCorruptedEncodings(t *testing.T) {
	c := codec{}
	n := &node{}
	n.slots[2] = tree.LeafHandle(Entry{Key: "key", Value: 7})
	data, err := c.EncodeNode(n)
	if err != nil {
		t.Fatalf("failed to encode node: %v", err)
	}

	tests := map[string][]byte{
		"empty":       {},
		"truncated":   data[:len(data)-4],
		"unknown tag": {42},
		"trailing":    append(append([]byte{}, data...), 0),
	}
	for name, corrupted := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := c.DecodeNode(corrupted); err == nil {
				t.Errorf("corrupted encoding was accepted")
			}
		})
	}
}

func TestCodec_RejectsNodeWithStaleChildDigest(t *testing.T) {
	c := codec{}
	inner := &node{}
	n := &node{}
	n.slots[0].SetNode(inner)

	if _, err := c.EncodeNode(n); err == nil {
		t.Errorf("node with an unhashed child was encoded")
	}
}
