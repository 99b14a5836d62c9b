package rowbinary

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"unsafe"
)

const (
	boolBytes   = 1
	byteBytes   = 1
	shortBytes  = 2
	intBytes    = 4
	longBytes   = 8
	int128Bytes = 16
	int256Bytes = 32

	// MaxVarIntBytes is the longest VarInt encoding.
	MaxVarIntBytes = 9
	// MaxVarInt is the largest value a VarInt of MaxVarIntBytes can carry.
	MaxVarInt = 1<<(7*MaxVarIntBytes) - 1

	defaultReaderBufferSize = 64 * 1024
	maxLengthPrefix         = math.MaxInt32
	// readChunkSize bounds what is allocated ahead of the bytes that actually arrive.
	readChunkSize = 64 * 1024
)

// BinaryOutputStream is a growable little-endian byte buffer used to assemble rows before they are
// handed to the transport.
type BinaryOutputStream interface {
	Data() []byte
	Position() int
	Available() int
	SetPosition(pos int)
	Reset()
	WriteBool(v bool)
	WriteUInt8(v uint8)
	WriteInt8(v int8)
	WriteUInt16(v uint16)
	WriteInt16(v int16)
	WriteUInt32(v uint32)
	WriteInt32(v int32)
	WriteUInt64(v uint64)
	WriteInt64(v int64)
	WriteFloat32(v float32)
	WriteFloat64(v float64)
	WriteBytes(v []byte)
	WriteVarInt(v uint64)
	WriteString(v string)
	WriteBigInteger(v *big.Int, size int)
	WriteInt8Slice(v []int8)
	WriteUInt16Slice(v []uint16)
	WriteInt16Slice(v []int16)
	WriteUInt32Slice(v []uint32)
	WriteInt32Slice(v []int32)
	WriteUInt64Slice(v []uint64)
	WriteInt64Slice(v []int64)
	WriteFloat32Slice(v []float32)
	WriteFloat64Slice(v []float64)
}

// BinaryInputStream reads little-endian values from an underlying reader. Every read either consumes
// exactly the requested bytes or returns a *StreamError that wraps io.EOF (nothing was read) or
// io.ErrUnexpectedEOF (the value was cut short).
type BinaryInputStream interface {
	// Position returns the number of bytes consumed so far.
	Position() int
	ReadBool() (bool, error)
	ReadUInt8() (uint8, error)
	ReadInt8() (int8, error)
	ReadUInt16() (uint16, error)
	ReadInt16() (int16, error)
	ReadUInt32() (uint32, error)
	ReadInt32() (int32, error)
	ReadUInt64() (uint64, error)
	ReadInt64() (int64, error)
	ReadFloat32() (float32, error)
	ReadFloat64() (float64, error)
	ReadBytes(size int) ([]byte, error)
	ReadVarInt() (uint64, error)
	ReadString() (string, error)
	ReadBigInteger(size int, signed bool) (*big.Int, error)
	ReadInt8Slice(size int) ([]int8, error)
	ReadUInt16Slice(size int) ([]uint16, error)
	ReadInt16Slice(size int) ([]int16, error)
	ReadUInt32Slice(size int) ([]uint32, error)
	ReadInt32Slice(size int) ([]int32, error)
	ReadUInt64Slice(size int) ([]uint64, error)
	ReadInt64Slice(size int) ([]int64, error)
	ReadFloat32Slice(size int) ([]float32, error)
	ReadFloat64Slice(size int) ([]float64, error)
	// ReadValue decodes one value of the column type into its canonical Go representation.
	ReadValue(col *ColumnType) (interface{}, error)
}

type binaryOutputStreamImpl struct {
	buffer   []byte
	position int
}

type binaryInputStreamImpl struct {
	reader   *bufio.Reader
	position int
	scratch  [int256Bytes]byte
}

var isLittleEndian = getNativeEndian()

// returns true if little, false if big
func getNativeEndian() bool {
	return binary.LittleEndian.Uint16([]byte{0x12, 0x34}) == uint16(0x3412)
}

func NewBinaryOutputStream(length int) BinaryOutputStream {
	return &binaryOutputStreamImpl{
		buffer: make([]byte, length),
	}
}

// NewBinaryInputStream wraps reader into a buffered input stream. A non-positive bufSize selects the default.
func NewBinaryInputStream(reader io.Reader, bufSize int) BinaryInputStream {
	if bufSize <= 0 {
		bufSize = defaultReaderBufferSize
	}
	return &binaryInputStreamImpl{
		reader: bufio.NewReaderSize(reader, bufSize),
	}
}

// NewBinaryInputStreamFromBytes creates an input stream over an in-memory buffer.
func NewBinaryInputStreamFromBytes(data []byte) BinaryInputStream {
	return NewBinaryInputStream(bytes.NewReader(data), len(data)+1)
}

func (bw *binaryOutputStreamImpl) Data() []byte {
	return bw.buffer[:bw.position]
}

func (bw *binaryOutputStreamImpl) Available() int {
	return len(bw.buffer) - bw.position
}

func (bw *binaryOutputStreamImpl) Position() int {
	return bw.position
}

func (bw *binaryOutputStreamImpl) SetPosition(pos int) {
	if pos < 0 || pos > len(bw.buffer) {
		panic(fmt.Sprintf("position %d is out of range, buffer length: %d", pos, len(bw.buffer)))
	}
	bw.position = pos
}

func (bw *binaryOutputStreamImpl) Reset() {
	bw.position = 0
}

func (bw *binaryOutputStreamImpl) ensureAvailable(size int) {
	if math.MaxInt32-bw.position < size {
		panic(fmt.Sprintf("Buffer length overflow: position=%d, required size=%d", bw.position, size))
	}
	if bw.Available() < size {
		newLen := len(bw.buffer) * 2
		if newLen < bw.position+size {
			newLen = bw.position + size
		}
		temp := make([]byte, newLen)
		copy(temp, bw.buffer[:bw.position])
		bw.buffer = temp
	}
}

func (bw *binaryOutputStreamImpl) WriteBool(v bool) {
	bw.ensureAvailable(boolBytes)
	if v {
		bw.buffer[bw.position] = 1
	} else {
		bw.buffer[bw.position] = 0
	}
	bw.position += boolBytes
}

func (bw *binaryOutputStreamImpl) WriteUInt8(v uint8) {
	bw.ensureAvailable(byteBytes)
	bw.writeByte(v)
}

func (bw *binaryOutputStreamImpl) WriteInt8(v int8) {
	bw.ensureAvailable(byteBytes)
	bw.writeByte(uint8(v))
}

func (bw *binaryOutputStreamImpl) writeByte(v byte) {
	bw.buffer[bw.position] = v
	bw.position += byteBytes
}

func (bw *binaryOutputStreamImpl) WriteInt16(v int16) {
	bw.WriteUInt16(uint16(v))
}

func (bw *binaryOutputStreamImpl) WriteUInt16(v uint16) {
	bw.ensureAvailable(shortBytes)
	binary.LittleEndian.PutUint16(bw.buffer[bw.position:], v)
	bw.position += shortBytes
}

func (bw *binaryOutputStreamImpl) WriteInt32(v int32) {
	bw.WriteUInt32(uint32(v))
}

func (bw *binaryOutputStreamImpl) WriteUInt32(v uint32) {
	bw.ensureAvailable(intBytes)
	binary.LittleEndian.PutUint32(bw.buffer[bw.position:], v)
	bw.position += intBytes
}

func (bw *binaryOutputStreamImpl) WriteInt64(v int64) {
	bw.WriteUInt64(uint64(v))
}

func (bw *binaryOutputStreamImpl) WriteUInt64(v uint64) {
	bw.ensureAvailable(longBytes)
	binary.LittleEndian.PutUint64(bw.buffer[bw.position:], v)
	bw.position += longBytes
}

func (bw *binaryOutputStreamImpl) WriteFloat32(v float32) {
	bw.WriteUInt32(math.Float32bits(v))
}

func (bw *binaryOutputStreamImpl) WriteFloat64(v float64) {
	bw.WriteUInt64(math.Float64bits(v))
}

func (bw *binaryOutputStreamImpl) WriteBytes(v []byte) {
	length := len(v)
	bw.ensureAvailable(length)
	copy(bw.buffer[bw.position:], v)
	bw.position += length
}

// WriteVarInt writes v using 7 payload bits per byte, low groups first, with bit 7 set on every byte
// except the last. Values above MaxVarInt do not fit into MaxVarIntBytes and cause a panic.
func (bw *binaryOutputStreamImpl) WriteVarInt(v uint64) {
	if v > MaxVarInt {
		panic(fmt.Sprintf("varint overflow: %d", v))
	}
	bw.ensureAvailable(MaxVarIntBytes)
	for i := 0; i < MaxVarIntBytes; i++ {
		b := byte(v & 0x7F)
		if v > 0x7F {
			b |= 0x80
		}
		bw.writeByte(b)
		v >>= 7
		if v == 0 {
			return
		}
	}
}

func (bw *binaryOutputStreamImpl) WriteString(v string) {
	bw.WriteVarInt(uint64(len(v)))
	bw.ensureAvailable(len(v))
	bw.position += copy(bw.buffer[bw.position:], v)
}

// WriteBigInteger writes v as a size-byte little-endian two's complement integer. The caller must
// check that v fits.
func (bw *binaryOutputStreamImpl) WriteBigInteger(v *big.Int, size int) {
	bw.ensureAvailable(size)
	dst := bw.buffer[bw.position : bw.position+size]
	if v.Sign() < 0 {
		tmp := new(big.Int).Lsh(big.NewInt(1), uint(size*8))
		tmp.Add(tmp, v)
		tmp.FillBytes(dst)
	} else {
		v.FillBytes(dst)
	}
	reverseBytes(dst)
	bw.position += size
}

func (bw *binaryOutputStreamImpl) WriteInt8Slice(val []int8) {
	writePrimitiveSliceFast(bw, val, byteBytes)
}

func (bw *binaryOutputStreamImpl) WriteUInt16Slice(val []uint16) {
	if isLittleEndian {
		writePrimitiveSliceFast(bw, val, shortBytes)
	} else {
		for _, v := range val {
			bw.WriteUInt16(v)
		}
	}
}

func (bw *binaryOutputStreamImpl) WriteInt16Slice(val []int16) {
	if isLittleEndian {
		writePrimitiveSliceFast(bw, val, shortBytes)
	} else {
		for _, v := range val {
			bw.WriteInt16(v)
		}
	}
}

func (bw *binaryOutputStreamImpl) WriteUInt32Slice(val []uint32) {
	if isLittleEndian {
		writePrimitiveSliceFast(bw, val, intBytes)
	} else {
		for _, v := range val {
			bw.WriteUInt32(v)
		}
	}
}

func (bw *binaryOutputStreamImpl) WriteInt32Slice(val []int32) {
	if isLittleEndian {
		writePrimitiveSliceFast(bw, val, intBytes)
	} else {
		for _, v := range val {
			bw.WriteInt32(v)
		}
	}
}

func (bw *binaryOutputStreamImpl) WriteUInt64Slice(val []uint64) {
	if isLittleEndian {
		writePrimitiveSliceFast(bw, val, longBytes)
	} else {
		for _, v := range val {
			bw.WriteUInt64(v)
		}
	}
}

func (bw *binaryOutputStreamImpl) WriteInt64Slice(val []int64) {
	if isLittleEndian {
		writePrimitiveSliceFast(bw, val, longBytes)
	} else {
		for _, v := range val {
			bw.WriteInt64(v)
		}
	}
}

func (bw *binaryOutputStreamImpl) WriteFloat32Slice(val []float32) {
	if isLittleEndian {
		writePrimitiveSliceFast(bw, val, intBytes)
	} else {
		for _, v := range val {
			bw.WriteFloat32(v)
		}
	}
}

func (bw *binaryOutputStreamImpl) WriteFloat64Slice(val []float64) {
	if isLittleEndian {
		writePrimitiveSliceFast(bw, val, longBytes)
	} else {
		for _, v := range val {
			bw.WriteFloat64(v)
		}
	}
}

func (br *binaryInputStreamImpl) Position() int {
	return br.position
}

func (br *binaryInputStreamImpl) readFull(op string, dst []byte) error {
	n, err := io.ReadFull(br.reader, dst)
	br.position += n
	if err != nil {
		return &StreamError{Op: op, err: err}
	}
	return nil
}

func (br *binaryInputStreamImpl) readFixed(op string, size int) ([]byte, error) {
	buf := br.scratch[:size]
	if err := br.readFull(op, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (br *binaryInputStreamImpl) ReadBool() (bool, error) {
	b, err := br.ReadUInt8()
	return b != 0, err
}

func (br *binaryInputStreamImpl) ReadUInt8() (uint8, error) {
	b, err := br.reader.ReadByte()
	if err != nil {
		return 0, &StreamError{Op: "read byte", err: err}
	}
	br.position += byteBytes
	return b, nil
}

func (br *binaryInputStreamImpl) ReadInt8() (int8, error) {
	b, err := br.ReadUInt8()
	return int8(b), err
}

func (br *binaryInputStreamImpl) ReadUInt16() (uint16, error) {
	buf, err := br.readFixed("read uint16", shortBytes)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf), nil
}

func (br *binaryInputStreamImpl) ReadInt16() (int16, error) {
	v, err := br.ReadUInt16()
	return int16(v), err
}

func (br *binaryInputStreamImpl) ReadUInt32() (uint32, error) {
	buf, err := br.readFixed("read uint32", intBytes)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf), nil
}

func (br *binaryInputStreamImpl) ReadInt32() (int32, error) {
	v, err := br.ReadUInt32()
	return int32(v), err
}

func (br *binaryInputStreamImpl) ReadUInt64() (uint64, error) {
	buf, err := br.readFixed("read uint64", longBytes)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf), nil
}

func (br *binaryInputStreamImpl) ReadInt64() (int64, error) {
	v, err := br.ReadUInt64()
	return int64(v), err
}

func (br *binaryInputStreamImpl) ReadFloat32() (float32, error) {
	v, err := br.ReadUInt32()
	return math.Float32frombits(v), err
}

func (br *binaryInputStreamImpl) ReadFloat64() (float64, error) {
	v, err := br.ReadUInt64()
	return math.Float64frombits(v), err
}

func (br *binaryInputStreamImpl) ReadBytes(size int) ([]byte, error) {
	if size <= readChunkSize {
		ret := make([]byte, size)
		if size == 0 {
			return ret, nil
		}
		if err := br.readFull("read bytes", ret); err != nil {
			return nil, err
		}
		return ret, nil
	}
	var buf bytes.Buffer
	buf.Grow(readChunkSize)
	n, err := io.CopyN(&buf, br.reader, int64(size))
	br.position += int(n)
	if err != nil {
		if n > 0 && err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, &StreamError{Op: "read bytes", err: err}
	}
	return buf.Bytes(), nil
}

func (br *binaryInputStreamImpl) ReadVarInt() (uint64, error) {
	var ret uint64
	for i := 0; i < MaxVarIntBytes; i++ {
		b, err := br.reader.ReadByte()
		if err != nil {
			if i > 0 && err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return 0, &StreamError{Op: "read varint", err: err}
		}
		br.position += byteBytes
		ret |= uint64(b&0x7F) << (7 * i)
		if b&0x80 == 0 {
			return ret, nil
		}
	}
	return 0, &StreamError{Op: "read varint", err: fmt.Errorf("varint longer than %d bytes", MaxVarIntBytes)}
}

// readLength reads a VarInt length prefix.
func readLength(in BinaryInputStream, op string) (int, error) {
	length, err := in.ReadVarInt()
	if err != nil {
		return 0, err
	}
	if length > maxLengthPrefix {
		return 0, &StreamError{Op: op, err: fmt.Errorf("length prefix %d is too large", length)}
	}
	return int(length), nil
}

func (br *binaryInputStreamImpl) ReadString() (string, error) {
	length, err := readLength(br, "read string")
	if err != nil {
		return "", err
	}
	buf, err := br.ReadBytes(length)
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = &StreamError{Op: "read string", err: io.ErrUnexpectedEOF}
		}
		return "", err
	}
	return bytesToString(buf), nil
}

// ReadBigInteger reads a size-byte little-endian integer, interpreting it as two's complement when signed.
func (br *binaryInputStreamImpl) ReadBigInteger(size int, signed bool) (*big.Int, error) {
	buf, err := br.readFixed("read big integer", size)
	if err != nil {
		return nil, err
	}
	be := make([]byte, size)
	copy(be, buf)
	reverseBytes(be)
	ret := new(big.Int).SetBytes(be)
	if signed && be[0]&0x80 != 0 {
		ret.Sub(ret, new(big.Int).Lsh(big.NewInt(1), uint(size*8)))
	}
	return ret, nil
}

func (br *binaryInputStreamImpl) ReadInt8Slice(size int) ([]int8, error) {
	return readPrimitiveSliceFast[int8](br, byteBytes, size)
}

func (br *binaryInputStreamImpl) ReadUInt16Slice(size int) ([]uint16, error) {
	if isLittleEndian {
		return readPrimitiveSliceFast[uint16](br, shortBytes, size)
	}
	return readPrimitiveSliceSlow(size, br.ReadUInt16)
}

func (br *binaryInputStreamImpl) ReadInt16Slice(size int) ([]int16, error) {
	if isLittleEndian {
		return readPrimitiveSliceFast[int16](br, shortBytes, size)
	}
	return readPrimitiveSliceSlow(size, br.ReadInt16)
}

func (br *binaryInputStreamImpl) ReadUInt32Slice(size int) ([]uint32, error) {
	if isLittleEndian {
		return readPrimitiveSliceFast[uint32](br, intBytes, size)
	}
	return readPrimitiveSliceSlow(size, br.ReadUInt32)
}

func (br *binaryInputStreamImpl) ReadInt32Slice(size int) ([]int32, error) {
	if isLittleEndian {
		return readPrimitiveSliceFast[int32](br, intBytes, size)
	}
	return readPrimitiveSliceSlow(size, br.ReadInt32)
}

func (br *binaryInputStreamImpl) ReadUInt64Slice(size int) ([]uint64, error) {
	if isLittleEndian {
		return readPrimitiveSliceFast[uint64](br, longBytes, size)
	}
	return readPrimitiveSliceSlow(size, br.ReadUInt64)
}

func (br *binaryInputStreamImpl) ReadInt64Slice(size int) ([]int64, error) {
	if isLittleEndian {
		return readPrimitiveSliceFast[int64](br, longBytes, size)
	}
	return readPrimitiveSliceSlow(size, br.ReadInt64)
}

func (br *binaryInputStreamImpl) ReadFloat32Slice(size int) ([]float32, error) {
	if isLittleEndian {
		return readPrimitiveSliceFast[float32](br, intBytes, size)
	}
	return readPrimitiveSliceSlow(size, br.ReadFloat32)
}

func (br *binaryInputStreamImpl) ReadFloat64Slice(size int) ([]float64, error) {
	if isLittleEndian {
		return readPrimitiveSliceFast[float64](br, longBytes, size)
	}
	return readPrimitiveSliceSlow(size, br.ReadFloat64)
}

func (br *binaryInputStreamImpl) ReadValue(col *ColumnType) (interface{}, error) {
	return col.decoder()(br)
}

type primitives interface {
	~int8 | ~uint8 | ~uint16 | ~int16 | ~uint32 | ~int32 | ~uint64 | ~int64 | ~float32 | ~float64
}

func writePrimitiveSliceFast[T primitives](bw *binaryOutputStreamImpl, val []T, elemSz int) {
	if len(val) == 0 {
		return
	}
	length := len(val) * elemSz
	bw.ensureAvailable(length)
	raw := unsafe.Slice((*byte)(unsafe.Pointer(&val[0])), length)
	copy(bw.buffer[bw.position:bw.position+length], raw)
	bw.position += length
}

func readPrimitiveSliceFast[T primitives](br *binaryInputStreamImpl, elemSz int, size int) ([]T, error) {
	chunk := readChunkSize / elemSz
	ret := make([]T, 0, min(size, chunk))
	for len(ret) < size {
		start := len(ret)
		ret = append(ret, make([]T, min(size-start, chunk))...)
		raw := unsafe.Slice((*byte)(unsafe.Pointer(&ret[start])), (len(ret)-start)*elemSz)
		if err := br.readFull("read slice", raw); err != nil {
			if start > 0 && errors.Is(err, io.EOF) {
				err = &StreamError{Op: "read slice", err: io.ErrUnexpectedEOF}
			}
			return nil, err
		}
	}
	return ret, nil
}

func readPrimitiveSliceSlow[T primitives](size int, elemReader func() (T, error)) ([]T, error) {
	ret := make([]T, 0, min(size, readChunkSize))
	for i := 0; i < size; i++ {
		v, err := elemReader()
		if err != nil {
			return nil, err
		}
		ret = append(ret, v)
	}
	return ret, nil
}

func reverseBytes(buf []byte) {
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
}

func bytesToString(buf []byte) string {
	return *(*string)(unsafe.Pointer(&buf))
}
