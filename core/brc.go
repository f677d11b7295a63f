package brc

import (
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"time"
)

type BrcStrategyType string

const (
	BrcStrategyStatic  BrcStrategyType = "static"  // one equal byte range per thread
	BrcStrategyDynamic BrcStrategyType = "dynamic" // threads claim chunks from a shared cursor
)

var BrcStrategyList = []BrcStrategyType{BrcStrategyStatic, BrcStrategyDynamic}

type BrcReaderType string

const (
	BrcReaderDisk BrcReaderType = "disk"
	BrcReaderMmap BrcReaderType = "mmap"
)

var BrcReaderList = []BrcReaderType{BrcReaderDisk, BrcReaderMmap}

const (
	DefaultChunkSize = 4 << 20
	DefaultSlots     = 1 << 17 // ~10k stations, keeps chains near 1
)

type BrcOptions struct {
	NThreads   int             // number of workers
	ChunkSize  int             // bytes claimed at a time by the dynamic strategy
	Slots      int             // table slot count, power of two
	Strategy   BrcStrategyType // static or dynamic partition
	ReaderType BrcReaderType   // mmap the file or load it in memory
	Logger     *slog.Logger    // nil discards
}

func DefaultOptions() BrcOptions {
	return BrcOptions{
		NThreads:   runtime.NumCPU(),
		ChunkSize:  DefaultChunkSize,
		Slots:      DefaultSlots,
		Strategy:   BrcStrategyDynamic,
		ReaderType: BrcReaderMmap,
	}
}

func (opts BrcOptions) validate() error {
	if opts.NThreads < 1 {
		return fmt.Errorf("%w: n_threads must be at least 1, got %d", ErrInvalidOptions, opts.NThreads)
	}
	if opts.ChunkSize < 1 {
		return fmt.Errorf("%w: chunk_size must be at least 1, got %d", ErrInvalidOptions, opts.ChunkSize)
	}
	if _, err := NewTable(opts.Slots); err != nil {
		return err
	}
	switch opts.Strategy {
	case BrcStrategyStatic, BrcStrategyDynamic:
	default:
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalidOptions, opts.Strategy)
	}
	return nil
}

func (opts BrcOptions) logger() *slog.Logger {
	if opts.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return opts.Logger
}

// Run aggregates the records of an open file.
func Run(fileReader FileReader, opts BrcOptions) (*Result, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if !fileReader.IsOpen() {
		return nil, fmt.Errorf("file is not open")
	}
	logger := opts.logger()
	timeBefore := time.Now()
	tables, err := parseData(fileReader.Bytes(), opts)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", fileReader.GetFilename(), err)
	}
	logger.Debug("parse done", "threads", len(tables), "strategy", opts.Strategy, since(timeBefore))
	timeBefore = time.Now()
	result, err := mergeTables(tables, opts.Slots)
	if err != nil {
		return nil, err
	}
	logger.Debug("merge done", "stations", result.Len(), since(timeBefore))
	return result, nil
}

// Solve aggregates the file at path and writes the rendered result to w.
func Solve(filename string, w io.Writer, opts BrcOptions) error {
	result, err := SolveFile(filename, opts)
	if err != nil {
		return err
	}
	return WriteResult(w, result)
}

// SolveFile opens filename with the configured reader and aggregates it.
func SolveFile(filename string, opts BrcOptions) (*Result, error) {
	fileReader, err := NewFileReader(opts.ReaderType)
	if err != nil {
		return nil, err
	}
	timeBefore := time.Now()
	if err := fileReader.Open(filename); err != nil {
		return nil, err
	}
	defer fileReader.Close()
	opts.logger().Debug("file open", "file", filename, "size", fileReader.GetSize(), "reader", opts.ReaderType, since(timeBefore))
	return Run(fileReader, opts)
}
