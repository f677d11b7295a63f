package brc

import "context"

const MAX_KEY_SIZE = 100 // station name in bytes
const MAX_VALUE_SIZE = 5 // -99.9

const cancelCheckRecords = 4096

type parsePhase uint8

const (
	phaseName parsePhase = iota
	phaseInt
	phaseFrac
)

// Cursor holds the state of the record being parsed. Nothing in it allocates.
type Cursor struct {
	hash       uint64
	name       [MAX_KEY_SIZE]byte
	nameLen    int
	phase      parsePhase
	multiplier float64
	intPart    int
	intDigits  int
	fracPart   int
	fracDigits int
}

func newCursor() Cursor {
	var c Cursor
	c.reset()
	return c
}

func (c *Cursor) reset() {
	c.hash = hashSeed
	c.nameLen = 0
	c.phase = phaseName
	c.multiplier = 1
	c.intPart, c.intDigits = 0, 0
	c.fracPart, c.fracDigits = 0, 0
}

func (c *Cursor) absorbKey(b []byte) {
	copy(c.name[c.nameLen:], b)
	for _, ch := range b {
		c.hash = c.hash*33 + uint64(ch)
	}
	c.nameLen += len(b)
}

func (c *Cursor) closeKey(n int) (int, error) {
	if n == 0 {
		return 0, malformed("empty station name")
	}
	c.phase = phaseInt
	return n, nil
}

func (c *Cursor) Name() []byte {
	return c.name[:c.nameLen]
}

// updateTemperature consumes one byte of the reading.
func (c *Cursor) updateTemperature(b byte) error {
	switch {
	case b >= '0' && b <= '9':
		digit := int(b - '0')
		if c.phase == phaseInt {
			if c.intDigits == 2 {
				return malformed("more than two integer digits")
			}
			c.intPart = c.intPart*10 + digit
			c.intDigits++
			return nil
		}
		if c.fracDigits == 1 {
			return malformed("more than one fractional digit")
		}
		c.fracPart = c.fracPart*10 + digit
		c.fracDigits++
		return nil
	case b == '-' && c.phase == phaseInt && c.intDigits == 0 && c.multiplier > 0:
		c.multiplier = -1
		return nil
	case b == '.' && c.phase == phaseInt && c.intDigits > 0:
		c.phase = phaseFrac
		return nil
	}
	return malformed("unexpected byte %q in temperature", b)
}

// temperature is multiplier * (intPart + fracPart/10), computed on the integer
// number of tenths so it matches strconv.ParseFloat bit for bit.
func (c *Cursor) temperature() (float64, error) {
	if c.phase != phaseFrac || c.fracDigits != 1 {
		return 0, malformed("temperature is not of the form -?d{1,2}.d")
	}
	return c.multiplier * (float64(c.intPart*10+c.fracPart) / 10), nil
}

// parseRecord parses the record at the start of record into the table and
// returns the number of bytes consumed, trailing newline included.
// A final record without newline is closed at the end of the slice.
func parseRecord(record []byte, table *Table, c *Cursor) (int, error) {
	c.reset()
	semi, err := scanKey(record, c)
	if err != nil {
		return 0, err
	}
	i := semi + 1
	limit := min(len(record), i+MAX_VALUE_SIZE+1)
	for ; i < limit; i++ {
		b := record[i]
		if b == '\n' {
			break
		}
		if err := c.updateTemperature(b); err != nil {
			return 0, err
		}
	}
	if i == limit && limit < len(record) {
		return 0, malformed("temperature longer than %d bytes", MAX_VALUE_SIZE)
	}
	temp, err := c.temperature()
	if err != nil {
		return 0, err
	}
	table.InsertOrUpdate(c.Name(), c.hash, temp)
	if i < len(record) {
		i++
	}
	return i, nil
}

// parseRange parses every record owned by the byte range [start, end) of data:
// those whose first byte p satisfies start < p <= end, or 0 <= p <= end when start is 0.
// The record straddling end is parsed to completion, the one straddling start is
// left to the previous range. It returns the number of records parsed.
// ctx is polled every cancelCheckRecords records.
func parseRange(ctx context.Context, data []byte, start, end int, table *Table, c *Cursor) (int, error) {
	pos := start
	if start != 0 {
		nl := findIndexOf(data[start:], patternNl)
		if nl < 0 {
			return 0, nil
		}
		pos = start + nl + 1
	}
	records := 0
	for pos <= end && pos < len(data) {
		if records%cancelCheckRecords == 0 && ctx.Err() != nil {
			return records, ctx.Err()
		}
		n, err := parseRecord(data[pos:], table, c)
		if err != nil {
			return records, &RecordError{Offset: int64(pos), Err: err}
		}
		pos += n
		records++
	}
	return records, nil
}
