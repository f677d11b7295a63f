package main

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	brc "brc/brcscan/core"
)

const sample = "Hamburg;12.0\nBulawayo;8.9\nPalembang;38.8\nHamburg;34.2\nSt. John's;15.2\nCracow;12.6\nBulawayo;-8.9\n"

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "measurements.txt")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))
	return path
}

func TestParseFlags(t *testing.T) {
	cfg, err := parseFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, "measurements.txt", cfg.input)
	assert.Equal(t, runtime.NumCPU(), cfg.opts.NThreads)
	assert.Equal(t, brc.BrcStrategyDynamic, cfg.opts.Strategy)
	assert.Equal(t, brc.BrcReaderMmap, cfg.opts.ReaderType)

	cfg, err = parseFlags([]string{"-threads", "3", "-chunk", "1024", "-slots", "256", "-strategy", "static", "-reader", "disk", "-check", "-o", "out.txt", "data.txt"})
	require.NoError(t, err)
	assert.Equal(t, "data.txt", cfg.input)
	assert.Equal(t, "out.txt", cfg.output)
	assert.True(t, cfg.check)
	assert.Equal(t, brc.BrcOptions{
		NThreads:   3,
		ChunkSize:  1024,
		Slots:      256,
		Strategy:   brc.BrcStrategyStatic,
		ReaderType: brc.BrcReaderDisk,
	}, cfg.opts)

	_, err = parseFlags([]string{"-threads", "many"})
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	expected := "{Bulawayo:-8.9/8.9/0.0,Cracow:12.6/12.6/12.6,Hamburg:12.0/34.2/23.1,Palembang:38.8/38.8/38.8,St. John's:15.2/15.2/15.2}\n"
	cfg, err := parseFlags([]string{"-threads", "2", "-chunk", "16", "-check", writeSample(t)})
	require.NoError(t, err)
	var stdout, logs bytes.Buffer
	require.NoError(t, run(cfg, &stdout, newLogger(&logs, true)))
	assert.Equal(t, expected, stdout.String())
	assert.Contains(t, logs.String(), "check passed")

	cfg.output = filepath.Join(t.TempDir(), "out.txt")
	stdout.Reset()
	require.NoError(t, run(cfg, &stdout, newLogger(&logs, false)))
	assert.Empty(t, stdout.String())
	written, err := os.ReadFile(cfg.output)
	require.NoError(t, err)
	assert.Equal(t, expected, string(written))
}

func TestRunErrors(t *testing.T) {
	var stdout, logs bytes.Buffer
	cfg, err := parseFlags([]string{filepath.Join(t.TempDir(), "missing.txt")})
	require.NoError(t, err)
	assert.Error(t, run(cfg, &stdout, newLogger(&logs, false)))

	cfg, err = parseFlags([]string{"-profile", "gpu", writeSample(t)})
	require.NoError(t, err)
	assert.Error(t, run(cfg, &stdout, newLogger(&logs, false)))
}

func TestFlagExitCode(t *testing.T) {
	_, err := parseFlags([]string{"-h"})
	require.ErrorIs(t, err, flag.ErrHelp)
	assert.Equal(t, 0, flagExitCode(err))

	_, err = parseFlags([]string{"-threads", "many"})
	require.Error(t, err)
	assert.Equal(t, 2, flagExitCode(err))
}
