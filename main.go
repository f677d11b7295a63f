// Computes min/max/mean per station of a "<station>;<temperature>" file.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/andreyvit/diff"
	"github.com/pkg/profile"

	brc "brc/brcscan/core"
)

type config struct {
	input   string
	output  string
	check   bool
	profile string
	verbose bool
	opts    brc.BrcOptions
}

func parseFlags(args []string) (config, error) {
	cfg := config{opts: brc.DefaultOptions()}
	fs := flag.NewFlagSet("brcscan", flag.ContinueOnError)
	fs.IntVar(&cfg.opts.NThreads, "threads", cfg.opts.NThreads, "number of workers")
	fs.IntVar(&cfg.opts.ChunkSize, "chunk", cfg.opts.ChunkSize, "bytes claimed at a time by the dynamic strategy")
	fs.IntVar(&cfg.opts.Slots, "slots", cfg.opts.Slots, "hash table slots per worker, power of two")
	strategy := fs.String("strategy", string(cfg.opts.Strategy), "static or dynamic")
	reader := fs.String("reader", string(cfg.opts.ReaderType), "mmap or disk")
	fs.StringVar(&cfg.output, "o", "", "output file, stdout if empty")
	fs.BoolVar(&cfg.check, "check", false, "compare with the single threaded reference")
	fs.StringVar(&cfg.profile, "profile", "", "cpu, mem or trace")
	fs.BoolVar(&cfg.verbose, "v", false, "debug logs")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	cfg.opts.Strategy = brc.BrcStrategyType(*strategy)
	cfg.opts.ReaderType = brc.BrcReaderType(*reader)
	cfg.input = "measurements.txt"
	if fs.NArg() > 0 {
		cfg.input = fs.Arg(0)
	}
	return cfg, nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func profileMode(name string) (func(*profile.Profile), error) {
	switch name {
	case "cpu":
		return profile.CPUProfile, nil
	case "mem":
		return profile.MemProfile, nil
	case "trace":
		return profile.TraceProfile, nil
	}
	return nil, fmt.Errorf("unknown profile %q", name)
}

func run(cfg config, stdout io.Writer, logger *slog.Logger) error {
	if cfg.profile != "" {
		mode, err := profileMode(cfg.profile)
		if err != nil {
			return err
		}
		defer profile.Start(mode, profile.ProfilePath("."), profile.Quiet).Stop()
	}
	cfg.opts.Logger = logger
	result, err := brc.SolveFile(cfg.input, cfg.opts)
	if err != nil {
		return err
	}
	if cfg.check {
		if err := check(cfg.input, result, logger); err != nil {
			return err
		}
	}
	out := stdout
	if cfg.output != "" {
		outFs, err := os.OpenFile(cfg.output, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o764)
		if err != nil {
			return err
		}
		defer outFs.Close()
		out = outFs
	}
	return brc.WriteResult(out, result)
}

var errMismatch = errors.New("result differs from reference")

// sumTolerance bounds the relative drift of sums added in another order.
const sumTolerance = 1e-9

func check(filename string, result *brc.Result, logger *slog.Logger) error {
	fileReader := brc.NewFileDiskReader()
	if err := fileReader.Open(filename); err != nil {
		return err
	}
	defer fileReader.Close()
	expected, err := brc.Reference(fileReader)
	if err != nil {
		return fmt.Errorf("reference: %w", err)
	}
	if err := brc.Equivalent(expected, result, sumTolerance); err != nil {
		logger.Error("check failed", "err", err, "diff", diff.LineDiff(expected.Lines(), result.Lines()))
		return fmt.Errorf("%w: %w", errMismatch, err)
	}
	logger.Info("check passed", "stations", result.Len(), "records", result.Records())
	return nil
}

// flagExitCode is 0 for -h, flag has already printed usage either way.
func flagExitCode(err error) int {
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	return 2
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(flagExitCode(err))
	}
	logger := newLogger(os.Stderr, cfg.verbose)
	if err := run(cfg, os.Stdout, logger); err != nil {
		logger.Error("run failed", "err", err)
		os.Exit(1)
	}
}
