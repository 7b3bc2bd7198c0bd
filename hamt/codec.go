package hamt

import (
	"encoding/binary"
	"fmt"

	"github.com/trunklab/trunk/common"
	"github.com/trunklab/trunk/tree"
)

// codec is the canonical byte form of a trie node: one tag byte per slot,
// leaves as length-prefixed key plus big-endian value, child nodes by their
// digest. The encoding is positional and free of any order-dependent state,
// keeping node digests a pure function of map content.
type codec struct{}

const (
	tagEmpty byte = iota
	tagLeaf
	tagNode
)

// maxKeyLen bounds the keys this codec can represent; the length prefix is
// a 16 bit field.
const maxKeyLen = 1<<16 - 1

func (codec) EncodeNode(n tree.Content[Entry]) ([]byte, error) {
	children := n.Children()
	if len(children) != width {
		return nil, fmt.Errorf("node carries %d slots, want %d", len(children), width)
	}
	data := make([]byte, 0, width)
	for i := range children {
		h := &children[i]
		switch {
		case h.IsEmpty():
			data = append(data, tagEmpty)
		case h.IsLeaf():
			leaf, _ := h.Leaf()
			if len(leaf.Key) > maxKeyLen {
				return nil, fmt.Errorf("key of %d bytes exceeds the encodable maximum %d", len(leaf.Key), maxKeyLen)
			}
			data = append(data, tagLeaf)
			data = binary.BigEndian.AppendUint16(data, uint16(len(leaf.Key)))
			data = append(data, leaf.Key...)
			data = binary.BigEndian.AppendUint64(data, leaf.Value)
		default:
			hash, ok := h.Digest()
			if !ok {
				return nil, fmt.Errorf("child %d has no current digest", i)
			}
			data = append(data, tagNode)
			data = append(data, hash[:]...)
		}
	}
	return data, nil
}

func (codec) DecodeNode(data []byte) (tree.Content[Entry], error) {
	n := &node{}
	pos := 0
	for i := 0; i < width; i++ {
		if pos >= len(data) {
			return nil, fmt.Errorf("node encoding truncated at slot %d", i)
		}
		tag := data[pos]
		pos++
		switch tag {
		case tagEmpty:
		case tagLeaf:
			if pos+2 > len(data) {
				return nil, fmt.Errorf("node encoding truncated at slot %d", i)
			}
			keyLen := int(binary.BigEndian.Uint16(data[pos:]))
			pos += 2
			if pos+keyLen+8 > len(data) {
				return nil, fmt.Errorf("node encoding truncated at slot %d", i)
			}
			key := string(data[pos : pos+keyLen])
			pos += keyLen
			value := binary.BigEndian.Uint64(data[pos:])
			pos += 8
			n.slots[i] = tree.LeafHandle(Entry{Key: key, Value: value})
		case tagNode:
			if pos+common.HashSize > len(data) {
				return nil, fmt.Errorf("node encoding truncated at slot %d", i)
			}
			n.slots[i] = tree.PersistedHandle[Entry](common.HashFromBytes(data[pos : pos+common.HashSize]))
			pos += common.HashSize
		default:
			return nil, fmt.Errorf("unknown slot tag %d at slot %d", tag, i)
		}
	}
	if pos != len(data) {
		return nil, fmt.Errorf("node encoding carries %d trailing bytes", len(data)-pos)
	}
	return n, nil
}
