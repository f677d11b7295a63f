package brc

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

var chunkReadByteSize int = os.Getpagesize() * 64

// FileReader exposes a whole input file as one read-only byte slice.
type FileReader interface {
	Open(filename string) error
	Close() error
	IsOpen() bool
	GetFilename() string
	GetSize() int64
	Bytes() []byte
}

// NewFileReader returns the reader for a reader type.
func NewFileReader(readerType BrcReaderType) (FileReader, error) {
	switch readerType {
	case BrcReaderMmap:
		return NewFileMmapReader(), nil
	case BrcReaderDisk:
		return NewFileDiskReader(), nil
	}
	return nil, fmt.Errorf("%w: unknown reader type %q", ErrInvalidOptions, readerType)
}

type _FileCommonReader struct {
	filename string
	size     int64
	data     []byte
	open     bool
}

func (fileReader *_FileCommonReader) IsOpen() bool {
	return fileReader.open
}

func (fileReader *_FileCommonReader) GetSize() int64 {
	return fileReader.size
}

func (fileReader *_FileCommonReader) GetFilename() string {
	return fileReader.filename
}

func (fileReader *_FileCommonReader) Bytes() []byte {
	return fileReader.data
}

// openFile opens filename and returns its size, the reader state is left
// untouched until the caller commits it.
func (fileReader *_FileCommonReader) openFile(filename string) (*os.File, int64, error) {
	if len(filename) == 0 {
		return nil, 0, fmt.Errorf("empty filename")
	}
	if fileReader.open {
		return nil, 0, fmt.Errorf("file %s already open", fileReader.filename)
	}
	file, err := os.Open(filename)
	if err != nil {
		return nil, 0, fmt.Errorf("can't open file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, 0, fmt.Errorf("can't stat file: %w", err)
	}
	return file, info.Size(), nil
}

func (fileReader *_FileCommonReader) commit(filename string, size int64, data []byte) {
	fileReader.filename = filename
	fileReader.size = size
	fileReader.data = data
	fileReader.open = true
}

// FileDiskReader loads the whole file in memory with pread.
type FileDiskReader struct {
	_FileCommonReader
}

func NewFileDiskReader() FileReader {
	return &FileDiskReader{}
}

func (fileReader *FileDiskReader) Open(filename string) error {
	file, size, err := fileReader.openFile(filename)
	if err != nil {
		return err
	}
	defer file.Close()
	fd := int(file.Fd())
	_ = unix.Fadvise(fd, 0, 0, unix.FADV_SEQUENTIAL)
	data := make([]byte, size)
	total := int64(0)
	for total < size {
		n, err := unix.Pread(fd, data[total:min(total+int64(chunkReadByteSize), size)], total)
		if err != nil {
			return fmt.Errorf("can't read %s at %d: %w", filename, total, err)
		}
		if n == 0 {
			return fmt.Errorf("can't read %s at %d: %w", filename, total, io.ErrUnexpectedEOF)
		}
		total += int64(n)
	}
	fileReader.commit(filename, size, data)
	return nil
}

func (fileReader *FileDiskReader) Close() error {
	if !fileReader.open {
		return fmt.Errorf("file already closed")
	}
	fileReader.data = nil
	fileReader.size = 0
	fileReader.open = false
	return nil
}

// FileMmapReader maps the file read-only, workers share the mapping without copies.
type FileMmapReader struct {
	_FileCommonReader
}

func NewFileMmapReader() FileReader {
	return &FileMmapReader{}
}

func (fileReader *FileMmapReader) Open(filename string) error {
	file, size, err := fileReader.openFile(filename)
	if err != nil {
		return err
	}
	defer file.Close()
	var data []byte
	if size > 0 { // mmap rejects empty mappings
		data, err = unix.Mmap(int(file.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_PRIVATE)
		if err != nil {
			return fmt.Errorf("cannot mmap file: %w", err)
		}
		_ = unix.Madvise(data, unix.MADV_SEQUENTIAL)
	}
	fileReader.commit(filename, size, data)
	return nil
}

func (fileReader *FileMmapReader) Close() error {
	if !fileReader.open {
		return fmt.Errorf("file already closed")
	}
	var err error
	if fileReader.data != nil {
		err = unix.Munmap(fileReader.data)
	}
	fileReader.data = nil
	fileReader.size = 0
	fileReader.open = false
	if err != nil {
		return fmt.Errorf("cannot munmap %s: %w", fileReader.filename, err)
	}
	return nil
}
