package brc

import (
	"bytes"
	"strconv"

	"github.com/dolthub/swiss"
)

// Reference folds every record of the file, one at a time, into a single
// general purpose map. It is slow and only serves as a correctness oracle.
func Reference(fileReader FileReader) (*Result, error) {
	stations := swiss.NewMap[string, *Stat](1024)
	data := fileReader.Bytes()
	offset := 0
	for offset < len(data) {
		line, _, _ := bytes.Cut(data[offset:], []byte{'\n'})
		name, temp, ok := bytes.Cut(line, []byte{';'})
		if !ok || len(name) == 0 {
			return nil, &RecordError{Offset: int64(offset), Err: malformed("no station name")}
		}
		if len(name) > MAX_KEY_SIZE {
			return nil, &RecordError{Offset: int64(offset), Err: ErrKeyTooLong}
		}
		value, err := strconv.ParseFloat(string(temp), 64)
		if err != nil {
			return nil, &RecordError{Offset: int64(offset), Err: malformed("%v", err)}
		}
		if stat, ok := stations.Get(string(name)); ok {
			stat.add(value)
		} else {
			stations.Put(string(name), &Stat{Min: value, Max: value, Sum: value, Count: 1})
		}
		offset += len(line) + 1
	}
	entries := make([]*Entry, 0, stations.Count())
	stations.Iter(func(name string, stat *Stat) bool {
		entries = append(entries, &Entry{
			Key:  newKey([]byte(name)),
			Hash: hashKey([]byte(name)),
			Stat: *stat,
		})
		return false
	})
	return newResult(entries), nil
}
