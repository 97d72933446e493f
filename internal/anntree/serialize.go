package anntree

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/xDarkicex/hammervdb/internal/filter"
	"github.com/xDarkicex/hammervdb/internal/quant"
	"github.com/xDarkicex/hammervdb/internal/util"
)

// nodeMagic tags the start of every serialized node record, matching the
// length-prefixed binary.Write/Read idiom used for the block format.
const nodeMagic = uint32(0x414e5452) // "ANTR"

// Serialize encodes a node into a self-describing byte stream: kind,
// is_root, parent id, self-offset, then length-prefixed arrays of
// vectors, ids/children, KV-lists, and the node metadata summary.
func Serialize(n *Node) ([]byte, error) {
	var buf bytes.Buffer

	if err := binary.Write(&buf, binary.LittleEndian, nodeMagic); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint8(n.Kind)); err != nil {
		return nil, err
	}
	if err := writeBool(&buf, n.IsRoot); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, n.ParentID); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, n.SelfID); err != nil {
		return nil, err
	}

	if err := writeVectors(&buf, n.Vectors); err != nil {
		return nil, err
	}

	switch n.Kind {
	case KindLeaf:
		if err := writeIDs(&buf, n.IDs); err != nil {
			return nil, err
		}
		if err := writeMetadata(&buf, n.Metadata); err != nil {
			return nil, err
		}
	case KindInternal:
		if err := writeChildren(&buf, n.Children); err != nil {
			return nil, err
		}
	}

	if err := writeSummary(&buf, n.Summary); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Deserialize decodes a node from Serialize's format. The returned node's
// SelfID is whatever was stored at serialization time; callers must
// override it with the actual block id.
func Deserialize(data []byte) (*Node, error) {
	r := bytes.NewReader(data)

	var magic uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, fmt.Errorf("anntree: reading magic: %w", err)
	}
	if magic != nodeMagic {
		return nil, fmt.Errorf("anntree: bad node magic %x", magic)
	}

	var kindByte uint8
	if err := binary.Read(r, binary.LittleEndian, &kindByte); err != nil {
		return nil, err
	}
	n := &Node{Kind: Kind(kindByte)}

	isRoot, err := readBool(r)
	if err != nil {
		return nil, err
	}
	n.IsRoot = isRoot

	if err := binary.Read(r, binary.LittleEndian, &n.ParentID); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &n.SelfID); err != nil {
		return nil, err
	}

	vectors, err := readVectors(r)
	if err != nil {
		return nil, err
	}
	n.Vectors = vectors

	switch n.Kind {
	case KindLeaf:
		ids, err := readIDs(r)
		if err != nil {
			return nil, err
		}
		n.IDs = ids
		metadata, err := readMetadata(r)
		if err != nil {
			return nil, err
		}
		n.Metadata = metadata
	case KindInternal:
		children, err := readChildren(r)
		if err != nil {
			return nil, err
		}
		n.Children = children
	}

	summary, err := readSummary(r)
	if err != nil {
		return nil, err
	}
	n.Summary = summary

	return n, nil
}

func writeBool(w io.Writer, b bool) error {
	var v uint8
	if b {
		v = 1
	}
	return binary.Write(w, binary.LittleEndian, v)
}

func readBool(r io.Reader) (bool, error) {
	var v uint8
	if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
		return false, err
	}
	return v != 0, nil
}

func writeBytes(w io.Writer, b []byte) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readBytes(r io.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func writeVectors(w io.Writer, vectors []quant.QV) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(vectors))); err != nil {
		return err
	}
	for _, v := range vectors {
		if err := writeBytes(w, v); err != nil {
			return err
		}
	}
	return nil
}

func readVectors(r io.Reader) ([]quant.QV, error) {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, err
	}
	out := make([]quant.QV, count)
	for i := range out {
		b, err := readBytes(r)
		if err != nil {
			return nil, err
		}
		out[i] = quant.QV(b)
	}
	return out, nil
}

func writeIDs(w io.Writer, ids []util.RecordID) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(ids))); err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := w.Write(id[:]); err != nil {
			return err
		}
	}
	return nil
}

func readIDs(r io.Reader) ([]util.RecordID, error) {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, err
	}
	out := make([]util.RecordID, count)
	for i := range out {
		if _, err := io.ReadFull(r, out[i][:]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func writeChildren(w io.Writer, children []uint64) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(children))); err != nil {
		return err
	}
	for _, c := range children {
		if err := binary.Write(w, binary.LittleEndian, c); err != nil {
			return err
		}
	}
	return nil
}

func readChildren(r io.Reader) ([]uint64, error) {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, err
	}
	out := make([]uint64, count)
	for i := range out {
		if err := binary.Read(r, binary.LittleEndian, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func writeMetadata(w io.Writer, metadata [][]filter.KV) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(metadata))); err != nil {
		return err
	}
	for _, kvs := range metadata {
		if err := binary.Write(w, binary.LittleEndian, uint32(len(kvs))); err != nil {
			return err
		}
		for _, kv := range kvs {
			if err := writeKV(w, kv); err != nil {
				return err
			}
		}
	}
	return nil
}

func readMetadata(r io.Reader) ([][]filter.KV, error) {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, err
	}
	out := make([][]filter.KV, count)
	for i := range out {
		var kvCount uint32
		if err := binary.Read(r, binary.LittleEndian, &kvCount); err != nil {
			return nil, err
		}
		kvs := make([]filter.KV, kvCount)
		for j := range kvs {
			kv, err := readKV(r)
			if err != nil {
				return nil, err
			}
			kvs[j] = kv
		}
		out[i] = kvs
	}
	return out, nil
}

func writeKV(w io.Writer, kv filter.KV) error {
	if err := writeBytes(w, []byte(kv.Key)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint8(kv.Value.Kind)); err != nil {
		return err
	}
	switch kv.Value.Kind {
	case filter.KindString:
		return writeBytes(w, []byte(kv.Value.String))
	case filter.KindInteger:
		return binary.Write(w, binary.LittleEndian, kv.Value.Integer)
	case filter.KindFloat:
		return binary.Write(w, binary.LittleEndian, kv.Value.Float)
	default:
		return fmt.Errorf("anntree: unknown value kind %d", kv.Value.Kind)
	}
}

func readKV(r io.Reader) (filter.KV, error) {
	keyBytes, err := readBytes(r)
	if err != nil {
		return filter.KV{}, err
	}
	var kindByte uint8
	if err := binary.Read(r, binary.LittleEndian, &kindByte); err != nil {
		return filter.KV{}, err
	}
	kind := filter.ValueKind(kindByte)
	var value filter.Value
	switch kind {
	case filter.KindString:
		s, err := readBytes(r)
		if err != nil {
			return filter.KV{}, err
		}
		value = filter.StringValue(string(s))
	case filter.KindInteger:
		var i int64
		if err := binary.Read(r, binary.LittleEndian, &i); err != nil {
			return filter.KV{}, err
		}
		value = filter.IntValue(i)
	case filter.KindFloat:
		var f float32
		if err := binary.Read(r, binary.LittleEndian, &f); err != nil {
			return filter.KV{}, err
		}
		value, err = filter.FloatValue(f)
		if err != nil {
			return filter.KV{}, err
		}
	default:
		return filter.KV{}, fmt.Errorf("anntree: unknown value kind %d", kindByte)
	}
	return filter.KV{Key: string(keyBytes), Value: value}, nil
}

func writeSummary(w io.Writer, s filter.Summary) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	for key, ks := range s {
		if err := writeBytes(w, []byte(key)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(len(ks.Strings))); err != nil {
			return err
		}
		for v := range ks.Strings {
			if err := writeBytes(w, []byte(v)); err != nil {
				return err
			}
		}
		if err := writeBool(w, ks.HasInt); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, ks.IntMin); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, ks.IntMax); err != nil {
			return err
		}
		if err := writeBool(w, ks.HasFloat); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, ks.FloatMin); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, ks.FloatMax); err != nil {
			return err
		}
	}
	return nil
}

func readSummary(r io.Reader) (filter.Summary, error) {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, err
	}
	s := filter.NewSummary()
	for i := uint32(0); i < count; i++ {
		keyBytes, err := readBytes(r)
		if err != nil {
			return nil, err
		}
		var strCount uint32
		if err := binary.Read(r, binary.LittleEndian, &strCount); err != nil {
			return nil, err
		}
		ks := &filter.KeySummary{}
		if strCount > 0 {
			ks.Strings = make(map[string]struct{}, strCount)
			for j := uint32(0); j < strCount; j++ {
				v, err := readBytes(r)
				if err != nil {
					return nil, err
				}
				ks.Strings[string(v)] = struct{}{}
			}
		}
		hasInt, err := readBool(r)
		if err != nil {
			return nil, err
		}
		ks.HasInt = hasInt
		if err := binary.Read(r, binary.LittleEndian, &ks.IntMin); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &ks.IntMax); err != nil {
			return nil, err
		}
		hasFloat, err := readBool(r)
		if err != nil {
			return nil, err
		}
		ks.HasFloat = hasFloat
		if err := binary.Read(r, binary.LittleEndian, &ks.FloatMin); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &ks.FloatMax); err != nil {
			return nil, err
		}
		s[string(keyBytes)] = ks
	}
	return s, nil
}
