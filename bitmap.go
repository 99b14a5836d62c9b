package rowbinary

import (
	"fmt"
	"github.com/RoaringBitmap/roaring"
	"github.com/RoaringBitmap/roaring/roaring64"
)

const bitmapSmallSetLimit = 32

// Bitmap is the state of a groupBitmap aggregate function. Elements are kept as unsigned bit patterns
// of the element type width, so negative values of signed element types are stored as their two's
// complement.
type Bitmap struct {
	elemType DataType
	bm32     *roaring.Bitmap
	bm64     *roaring64.Bitmap
}

// NewBitmap creates a bitmap for an integer element type.
func NewBitmap(elemType DataType, values ...uint64) (*Bitmap, error) {
	ret := &Bitmap{elemType: elemType}
	switch elemType {
	case Int8Type, UInt8Type, Int16Type, UInt16Type, Int32Type, UInt32Type:
		ret.bm32 = roaring.New()
	case Int64Type, UInt64Type:
		ret.bm64 = roaring64.New()
	default:
		return nil, fmt.Errorf("bitmap element type must be an integer up to 64 bits, got %s", elemType)
	}
	for _, v := range values {
		if err := ret.Add(v); err != nil {
			return nil, err
		}
	}
	return ret, nil
}

func (b *Bitmap) ElementType() DataType {
	return b.elemType
}

// Add inserts v, failing if it does not fit into the element width.
func (b *Bitmap) Add(v uint64) error {
	if b.bm64 != nil {
		b.bm64.Add(v)
		return nil
	}
	if width := b.elemType.valueSize() * 8; v>>width != 0 {
		return fmt.Errorf("value %d does not fit into %s", v, b.elemType)
	}
	b.bm32.Add(uint32(v))
	return nil
}

func (b *Bitmap) Contains(v uint64) bool {
	if b.bm64 != nil {
		return b.bm64.Contains(v)
	}
	return v <= 0xFFFFFFFF && b.bm32.Contains(uint32(v))
}

func (b *Bitmap) Cardinality() uint64 {
	if b.bm64 != nil {
		return b.bm64.GetCardinality()
	}
	return b.bm32.GetCardinality()
}

// Values returns the elements in ascending order.
func (b *Bitmap) Values() []uint64 {
	if b.bm64 != nil {
		return b.bm64.ToArray()
	}
	values := b.bm32.ToArray()
	ret := make([]uint64, len(values))
	for i, v := range values {
		ret[i] = uint64(v)
	}
	return ret
}

// Bytes returns the serialized aggregate state.
func (b *Bitmap) Bytes() ([]byte, error) {
	out := NewBinaryOutputStream(0)
	if err := b.write(out); err != nil {
		return nil, err
	}
	return out.Data(), nil
}

// write serializes small sets as 0x00, cardinality and raw elements, and larger sets as 0x01,
// VarInt length and the portable roaring encoding.
func (b *Bitmap) write(out BinaryOutputStream) error {
	card := b.Cardinality()
	if card <= bitmapSmallSetLimit {
		out.WriteUInt8(0)
		out.WriteUInt8(uint8(card))
		size := b.elemType.valueSize()
		for _, v := range b.Values() {
			switch size {
			case byteBytes:
				out.WriteUInt8(uint8(v))
			case shortBytes:
				out.WriteUInt16(uint16(v))
			case intBytes:
				out.WriteUInt32(uint32(v))
			default:
				out.WriteUInt64(v)
			}
		}
		return nil
	}
	var data []byte
	var err error
	if b.bm64 != nil {
		data, err = b.bm64.ToBytes()
	} else {
		data, err = b.bm32.ToBytes()
	}
	if err != nil {
		return fmt.Errorf("failed to serialize bitmap: %w", err)
	}
	out.WriteUInt8(1)
	out.WriteVarInt(uint64(len(data)))
	out.WriteBytes(data)
	return nil
}

// ReadBitmap reads a groupBitmap state with the given element type.
func ReadBitmap(in BinaryInputStream, elemType DataType) (*Bitmap, error) {
	ret, err := NewBitmap(elemType)
	if err != nil {
		return nil, err
	}
	flag, err := in.ReadUInt8()
	if err != nil {
		return nil, err
	}
	switch flag {
	case 0:
		card, err := in.ReadUInt8()
		if err != nil {
			return nil, err
		}
		for i := 0; i < int(card); i++ {
			v, err := readBitmapElement(in, elemType.valueSize())
			if err != nil {
				return nil, err
			}
			if err = ret.Add(v); err != nil {
				return nil, err
			}
		}
	case 1:
		length, err := readLength(in, "read bitmap")
		if err != nil {
			return nil, err
		}
		data, err := in.ReadBytes(length)
		if err != nil {
			return nil, err
		}
		if ret.bm64 != nil {
			err = ret.bm64.UnmarshalBinary(data)
		} else {
			err = ret.bm32.UnmarshalBinary(data)
		}
		if err != nil {
			return nil, &StreamError{Op: "read bitmap", err: err}
		}
	default:
		return nil, &StreamError{Op: "read bitmap", err: fmt.Errorf("invalid bitmap flag %d", flag)}
	}
	return ret, nil
}

func readBitmapElement(in BinaryInputStream, size int) (uint64, error) {
	switch size {
	case byteBytes:
		v, err := in.ReadUInt8()
		return uint64(v), err
	case shortBytes:
		v, err := in.ReadUInt16()
		return uint64(v), err
	case intBytes:
		v, err := in.ReadUInt32()
		return uint64(v), err
	default:
		return in.ReadUInt64()
	}
}
