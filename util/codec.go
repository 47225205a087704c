package util

import (
	"github.com/student/petro/storage/disk"
	"github.com/vmihailenco/msgpack"
)

// ToByteSlice encodes obj and pads the result to a full page. Pages are
// always exactly disk.PAGE_SIZE bytes on disk and in buffer frames, so
// every encoded page, however small, occupies one full slot.
func ToByteSlice[T any](obj T) ([]byte, error) {
	res := make([]byte, disk.PAGE_SIZE)

	data, err := msgpack.Marshal(obj)
	if err != nil {
		return nil, err
	}
	if len(data) > disk.PAGE_SIZE {
		return nil, &PetroError{Message: "encoded page exceeds page size", Kind: ErrKindInvalidArgument}
	}
	copy(res, data)

	return res, nil
}

// ToStruct decodes data, a page-sized byte slice, into T.
func ToStruct[T any](data []byte) (T, error) {
	var res T

	if err := msgpack.Unmarshal(data, &res); err != nil {
		return res, &PetroError{Message: "failed to decode page", Err: err, Kind: ErrKindIOFailure}
	}

	return res, nil
}
