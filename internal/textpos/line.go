// Package textpos models the coordinate-annotated text dumps produced by
// the upstream PDF extraction step.
//
// Every content line in a dump has the form "[block:line:x,y] text" and
// pages are delimited by "# === PAGE n === [size: WxH]" markers. The x
// coordinate increases rightward: smaller x marks outer/primary columns
// (section and program headers), larger x marks indented content
// (descriptions, fund rows). Lines that match neither form are discarded.
package textpos

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
)

// Line is one positional line of a document, in original document order.
type Line struct {
	Seq    int // index into Document.Lines
	Page   int
	Block  int
	LineNo int
	X      int
	Y      int
	Text   string
}

// Document holds the ordered positional lines of one source file.
type Document struct {
	Lines []Line
}

var (
	pageMarkerRE = regexp.MustCompile(`^#\s*===\s*PAGE\s+(\d+)\s*===\s*\[size:\s*\d+x\d+\]`)
	posLineRE    = regexp.MustCompile(`^\[(\d+):(\d+):(-?\d+),(-?\d+)\]\s?(.*)$`)
)

// ParseDocument reads a coordinate-annotated dump and returns its
// positional lines. Page markers advance the running page counter and are
// consumed; unrecognized lines are dropped.
func ParseDocument(r io.Reader) (*Document, error) {
	doc := &Document{}
	page := 0

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		raw := scanner.Text()

		if m := pageMarkerRE.FindStringSubmatch(raw); m != nil {
			n, err := strconv.Atoi(m[1])
			if err == nil {
				page = n
			}
			continue
		}

		m := posLineRE.FindStringSubmatch(raw)
		if m == nil {
			continue
		}

		block, _ := strconv.Atoi(m[1])
		lineNo, _ := strconv.Atoi(m[2])
		x, _ := strconv.Atoi(m[3])
		y, _ := strconv.Atoi(m[4])

		doc.Lines = append(doc.Lines, Line{
			Seq:    len(doc.Lines),
			Page:   page,
			Block:  block,
			LineNo: lineNo,
			X:      x,
			Y:      y,
			Text:   m[5],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}

	return doc, nil
}
