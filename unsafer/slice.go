package unsafer

import (
	"reflect"
	"unsafe"
)

// SliceToBytes interprets an arbitrary input slice as a byte slice.
//
// Note that the returned slice points to the same underlying data in memory. It
// does not make a copy.
func SliceToBytes[T any](input []T) []byte {
	header := *(*reflect.SliceHeader)(unsafe.Pointer(&input))
	header.Len = int(unsafe.Sizeof(input[0])) * len(input)
	header.Cap = header.Len
	bytesSlice := *(*[]byte)(unsafe.Pointer(&header))
	return bytesSlice
}

// StructToBytes interprets a struct pointer as a byte slice covering the
// struct's memory. The same aliasing caveat as SliceToBytes applies.
func StructToBytes[T any](input *T) []byte {
	size := int(unsafe.Sizeof(*input))
	header := reflect.SliceHeader{
		Data: uintptr(unsafe.Pointer(input)),
		Len:  size,
		Cap:  size,
	}
	return *(*[]byte)(unsafe.Pointer(&header))
}

// SliceBytesToUint32 reinterprets a byte slice as a slice of uint32 words.
// Vulkan wants SPIR-V bytecode in this form.
func SliceBytesToUint32(data []byte) []uint32 {
	header := *(*reflect.SliceHeader)(unsafe.Pointer(&data))
	header.Len = len(data) / 4
	header.Cap = header.Len
	return *(*[]uint32)(unsafe.Pointer(&header))
}
