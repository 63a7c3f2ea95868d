package bvh

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"gonum.org/v1/gonum/spatial/r3"

	"mocap/internal/fileutil"
	"mocap/internal/mocaperr"
	"mocap/internal/motion"
	"mocap/internal/skeleton"
)

// ExactPrecision writes every value with the fewest digits that parse back
// to the identical float64.
const ExactPrecision = -1

// WriteOption customises Write.
type WriteOption func(*writeOptions)

type writeOptions struct {
	precision int
	indent    string
}

// WithPrecision sets the number of decimal places written for offsets and
// channel values. ExactPrecision (the default) round-trips bit for bit.
func WithPrecision(digits int) WriteOption {
	return func(o *writeOptions) {
		if digits < 0 {
			digits = ExactPrecision
		}
		o.precision = digits
	}
}

// WithIndent sets the string written once per nesting level. The default is
// a tab.
func WithIndent(indent string) WriteOption {
	return func(o *writeOptions) {
		o.indent = indent
	}
}

type writer struct {
	w    *bufio.Writer
	skel *skeleton.Skeleton
	opts writeOptions
	buf  []byte
}

// Write serializes skel and m. The skeleton must be initialized, its joints
// must be in depth-first order and m must have one column per channel.
func Write(w io.Writer, skel *skeleton.Skeleton, m *motion.Matrix, opts ...WriteOption) error {
	if skel == nil || m == nil {
		return fmt.Errorf("bvh write: skeleton and matrix are required")
	}
	if !skel.Initialized() {
		return mocaperr.ErrNotInitialized
	}
	if err := skel.CheckColumns(m.Cols()); err != nil {
		return err
	}
	if !skel.IsDepthFirst() {
		return mocaperr.Topology(-1, "", "joint order is not a depth-first traversal and cannot be expressed as BVH")
	}
	for i := range skel.Len() {
		if err := checkName(skel.Name(i)); err != nil {
			return mocaperr.Topology(i, skel.Name(i), "name cannot be written as BVH: %v", err)
		}
	}

	o := writeOptions{precision: ExactPrecision, indent: "\t"}
	for _, opt := range opts {
		opt(&o)
	}
	wr := &writer{w: bufio.NewWriter(w), skel: skel, opts: o}
	if err := wr.hierarchy(); err != nil {
		return err
	}
	wr.motion(m)
	return wr.w.Flush()
}

// WriteFile writes the document to path atomically.
func WriteFile(path string, skel *skeleton.Skeleton, m *motion.Matrix, opts ...WriteOption) error {
	return fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		return Write(w, skel, m, opts...)
	})
}

// checkName reports whether name survives being written on a ROOT or JOINT
// line and read back: single spaces between words, no braces and no control
// characters.
func checkName(name string) error {
	if strings.ContainsFunc(name, unicode.IsControl) {
		return fmt.Errorf("contains a control character")
	}
	if strings.ContainsAny(name, "{}") {
		return fmt.Errorf("contains a brace")
	}
	if strings.Join(strings.Fields(name), " ") != name {
		return fmt.Errorf("contains repeated or non-space whitespace")
	}
	return nil
}

func (wr *writer) line(depth int, parts ...string) {
	wr.w.WriteString(strings.Repeat(wr.opts.indent, depth))
	wr.w.WriteString(strings.Join(parts, " "))
	wr.w.WriteByte('\n')
}

func (wr *writer) hierarchy() error {
	wr.line(0, "HIERARCHY")
	return wr.joint(0, 0)
}

func (wr *writer) joint(i, depth int) error {
	keyword := "JOINT"
	if wr.skel.Parent(i) == skeleton.Root {
		keyword = "ROOT"
	}
	wr.line(depth, keyword, wr.skel.Name(i))
	wr.line(depth, "{")
	wr.line(depth+1, "OFFSET", wr.vec(wr.skel.Offset(i)))

	channels := wr.skel.Channels(i)
	parts := append([]string{"CHANNELS", strconv.Itoa(len(channels))}, skeleton.ChannelNames(channels)...)
	wr.line(depth+1, parts...)

	children, err := wr.skel.Children(i)
	if err != nil {
		return err
	}
	for _, c := range children {
		if err := wr.joint(c, depth+1); err != nil {
			return err
		}
	}
	if site, ok := wr.skel.EndSite(i); ok {
		wr.line(depth+1, "End Site")
		wr.line(depth+1, "{")
		wr.line(depth+2, "OFFSET", wr.vec(site))
		wr.line(depth+1, "}")
	}
	wr.line(depth, "}")
	return nil
}

func (wr *writer) vec(v r3.Vec) string {
	return wr.format(v.X) + " " + wr.format(v.Y) + " " + wr.format(v.Z)
}

func (wr *writer) format(v float64) string {
	return strconv.FormatFloat(v, 'f', wr.opts.precision, 64)
}

func (wr *writer) motion(m *motion.Matrix) {
	wr.line(0, "MOTION")
	wr.line(0, "Frames:", strconv.Itoa(m.Rows()))
	wr.line(0, "Frame Time:", strconv.FormatFloat(m.FrameTime(), 'f', -1, 64))

	var row []float64
	for r := range m.Rows() {
		row = m.AppendRow(row[:0], r)
		wr.buf = wr.buf[:0]
		for c, v := range row {
			if c > 0 {
				wr.buf = append(wr.buf, ' ')
			}
			wr.buf = strconv.AppendFloat(wr.buf, v, 'f', wr.opts.precision, 64)
		}
		wr.buf = append(wr.buf, '\n')
		wr.w.Write(wr.buf)
	}
}

// Marshal returns the document as bytes.
func Marshal(skel *skeleton.Skeleton, m *motion.Matrix, opts ...WriteOption) ([]byte, error) {
	var b bytes.Buffer
	if err := Write(&b, skel, m, opts...); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}
