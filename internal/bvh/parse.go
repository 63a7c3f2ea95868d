package bvh

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"mocap/internal/mocaperr"
	"mocap/internal/motion"
	"mocap/internal/skeleton"
)

// maxPrealloc caps how many values are preallocated from the declared frame
// count so a bogus header cannot force a huge allocation.
const maxPrealloc = 1 << 20

type parser struct {
	lx     *lexer
	joints []skeleton.Joint
	lines  []int
}

// Parse reads a complete BVH document. Nothing is returned unless the whole
// document is valid.
func Parse(r io.Reader) (*skeleton.Skeleton, *motion.Matrix, error) {
	p := &parser{lx: newLexer(r)}
	skel, err := p.hierarchy()
	if err != nil {
		return nil, nil, err
	}
	m, err := p.motion(skel.ChannelCount())
	if err != nil {
		return nil, nil, err
	}
	return skel, m, nil
}

// ParseFile parses the BVH file at path. Parse errors carry the path.
func ParseFile(path string) (*skeleton.Skeleton, *motion.Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open bvh %q: %w", path, err)
	}
	defer f.Close()

	skel, m, err := Parse(f)
	if err != nil {
		var perr *mocaperr.ParseError
		if errors.As(err, &perr) {
			perr.Path = path
			return nil, nil, perr
		}
		return nil, nil, fmt.Errorf("read bvh %q: %w", path, err)
	}
	return skel, m, nil
}

func (p *parser) fail(line int, format string, args ...any) error {
	return &mocaperr.ParseError{Line: line, Msg: fmt.Sprintf(format, args...)}
}

// eof converts a missing token into either the scanner's read error or a
// truncation error.
func (p *parser) eof(want string) error {
	if err := p.lx.err(); err != nil {
		return &mocaperr.ParseError{Msg: "read failed", Err: err}
	}
	return p.fail(0, "unexpected end of input, expected %s", want)
}

func (p *parser) expect(keyword string) (int, error) {
	tok, line, ok := p.lx.next()
	if !ok {
		return 0, p.eof(keyword)
	}
	if !strings.EqualFold(tok, keyword) {
		return line, p.fail(line, "expected %s, found %q", keyword, tok)
	}
	return line, nil
}

func (p *parser) hierarchy() (*skeleton.Skeleton, error) {
	if _, err := p.expect("HIERARCHY"); err != nil {
		return nil, err
	}
	tok, line, ok := p.lx.next()
	if !ok {
		return nil, p.eof("ROOT")
	}
	if !strings.EqualFold(tok, "ROOT") {
		return nil, p.fail(line, "expected ROOT, found %q", tok)
	}
	if err := p.joint(skeleton.Root, line); err != nil {
		return nil, err
	}

	tok, line, ok = p.lx.next()
	if !ok {
		return nil, p.eof("MOTION")
	}
	switch {
	case strings.EqualFold(tok, "ROOT"):
		return nil, p.fail(line, "second ROOT declared; a hierarchy has exactly one root")
	case !strings.EqualFold(tok, "MOTION"):
		return nil, p.fail(line, "expected MOTION, found %q", tok)
	}
	if extra := p.lx.rest(); len(extra) > 0 {
		return nil, p.fail(line, "unexpected %q after MOTION", strings.Join(extra, " "))
	}

	skel, err := skeleton.New(p.joints)
	if err != nil {
		errLine := 0
		var topo *mocaperr.InvalidTopologyError
		if errors.As(err, &topo) && topo.Joint >= 0 && topo.Joint < len(p.lines) {
			errLine = p.lines[topo.Joint]
		}
		return nil, &mocaperr.ParseError{Line: errLine, Msg: "invalid hierarchy", Err: err}
	}
	skel.Init()
	return skel, nil
}

// joint parses the name and block of a ROOT or JOINT whose keyword was
// declared on line.
func (p *parser) joint(parent, line int) error {
	name, err := p.name(line)
	if err != nil {
		return err
	}
	if _, err := p.expect("{"); err != nil {
		return err
	}

	idx := len(p.joints)
	p.joints = append(p.joints, skeleton.Joint{Name: name, Parent: parent})
	p.lines = append(p.lines, line)

	var haveOffset, haveChannels, haveChildren bool
	for {
		tok, tokLine, ok := p.lx.next()
		if !ok {
			return p.eof("} closing joint " + name)
		}
		switch {
		case tok == "}":
			if !haveOffset {
				return p.fail(tokLine, "joint %q has no OFFSET", name)
			}
			return nil
		case strings.EqualFold(tok, "OFFSET"):
			if haveOffset {
				return p.fail(tokLine, "joint %q declares OFFSET twice", name)
			}
			if haveChildren {
				return p.fail(tokLine, "OFFSET of joint %q must precede its children", name)
			}
			off, err := p.offset(tokLine)
			if err != nil {
				return err
			}
			p.joints[idx].Offset = off
			haveOffset = true
		case strings.EqualFold(tok, "CHANNELS"):
			if haveChannels {
				return p.fail(tokLine, "joint %q declares CHANNELS twice", name)
			}
			if haveChildren {
				return p.fail(tokLine, "CHANNELS of joint %q must precede its children", name)
			}
			channels, err := p.channels(tokLine)
			if err != nil {
				return err
			}
			p.joints[idx].Channels = channels
			haveChannels = true
		case strings.EqualFold(tok, "JOINT"):
			haveChildren = true
			if err := p.joint(idx, tokLine); err != nil {
				return err
			}
		case strings.EqualFold(tok, "End"):
			haveChildren = true
			if p.joints[idx].EndSite != nil {
				return p.fail(tokLine, "joint %q declares more than one End Site", name)
			}
			site, err := p.endSite(tokLine)
			if err != nil {
				return err
			}
			p.joints[idx].EndSite = &site
		case strings.EqualFold(tok, "ROOT"):
			return p.fail(tokLine, "ROOT nested inside joint %q", name)
		default:
			return p.fail(tokLine, "unexpected %q in joint %q", tok, name)
		}
	}
}

// name takes the remainder of the keyword line as the joint name. A trailing
// "{" on the same line is left for the caller.
func (p *parser) name(line int) (string, error) {
	parts := p.lx.rest()
	if n := len(parts); n > 0 {
		last := parts[n-1]
		switch {
		case last == "{":
			parts = parts[:n-1]
			p.lx.unread("{")
		case strings.HasSuffix(last, "{"):
			parts[n-1] = strings.TrimSuffix(last, "{")
			p.lx.unread("{")
		}
	}
	name := strings.Join(parts, " ")
	if name == "" {
		return "", p.fail(line, "joint name missing")
	}
	return name, nil
}

func (p *parser) offset(line int) (r3.Vec, error) {
	fields := p.lx.rest()
	if len(fields) != 3 {
		return r3.Vec{}, p.fail(line, "OFFSET needs 3 values, found %d", len(fields))
	}
	var v [3]float64
	for i, f := range fields {
		val, err := parseFinite(f)
		if err != nil {
			return r3.Vec{}, p.fail(line, "OFFSET value %q: %v", f, err)
		}
		v[i] = val
	}
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}, nil
}

func (p *parser) channels(line int) ([]skeleton.Channel, error) {
	fields := p.lx.rest()
	if len(fields) == 0 {
		return nil, p.fail(line, "CHANNELS count missing")
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n < 0 {
		return nil, p.fail(line, "invalid CHANNELS count %q", fields[0])
	}
	names := fields[1:]
	if len(names) != n {
		return nil, p.fail(line, "CHANNELS declares %d channels but lists %d", n, len(names))
	}
	channels, err := skeleton.ParseChannels(names)
	if err != nil {
		return nil, p.fail(line, "%v", err)
	}
	return channels, nil
}

// endSite parses "End Site { OFFSET x y z }" after the End token.
func (p *parser) endSite(line int) (r3.Vec, error) {
	tok, tokLine, ok := p.lx.next()
	if !ok {
		return r3.Vec{}, p.eof("Site")
	}
	if !strings.EqualFold(tok, "Site") {
		return r3.Vec{}, p.fail(tokLine, "expected Site after End, found %q", tok)
	}
	if _, err := p.expect("{"); err != nil {
		return r3.Vec{}, err
	}
	offLine, err := p.expect("OFFSET")
	if err != nil {
		return r3.Vec{}, err
	}
	site, err := p.offset(offLine)
	if err != nil {
		return r3.Vec{}, err
	}
	if _, err := p.expect("}"); err != nil {
		return r3.Vec{}, err
	}
	return site, nil
}

func (p *parser) motion(cols int) (*motion.Matrix, error) {
	frames, err := header(p, "Frames", func(s string) (int, error) {
		n, err := strconv.Atoi(s)
		if err == nil && n < 0 {
			err = fmt.Errorf("negative frame count")
		}
		return n, err
	})
	if err != nil {
		return nil, err
	}
	frameTime, err := header(p, "Frame Time", func(s string) (float64, error) {
		v, err := parseFinite(s)
		if err == nil && v < 0 {
			err = fmt.Errorf("negative frame time")
		}
		return v, err
	})
	if err != nil {
		return nil, err
	}

	b := motion.NewBuilder(cols, rowHint(cols, frames))
	if cols == 0 {
		// Rows of a channel-less skeleton are blank lines; each one present
		// counts as a frame.
		for b.Rows() < frames {
			text, ok := p.lx.rawLine()
			if !ok {
				if err := p.lx.err(); err != nil {
					return nil, &mocaperr.ParseError{Msg: "read failed", Err: err}
				}
				return nil, p.fail(0, "Frames declares %d rows but only %d present", frames, b.Rows())
			}
			if text != "" {
				return nil, p.fail(p.lx.line, "frame %d has values but the skeleton has no channels", b.Rows())
			}
			if err := b.Append(nil); err != nil {
				return nil, p.fail(p.lx.line, "%v", err)
			}
		}
	}
	row := make([]float64, cols)
	for b.Rows() < frames {
		text, ok := p.lx.nextLine()
		if !ok {
			if err := p.lx.err(); err != nil {
				return nil, &mocaperr.ParseError{Msg: "read failed", Err: err}
			}
			return nil, p.fail(0, "Frames declares %d rows but only %d present", frames, b.Rows())
		}
		fields := strings.Fields(text)
		if len(fields) != cols {
			return nil, p.fail(p.lx.line, "frame %d has %d values, want %d", b.Rows(), len(fields), cols)
		}
		for i, f := range fields {
			v, err := parseFinite(f)
			if err != nil {
				return nil, p.fail(p.lx.line, "frame %d channel %d: %v", b.Rows(), i, err)
			}
			row[i] = v
		}
		if err := b.Append(row); err != nil {
			return nil, p.fail(p.lx.line, "%v", err)
		}
	}
	if _, ok := p.lx.nextLine(); ok {
		return nil, p.fail(p.lx.line, "more rows than the %d declared by Frames", frames)
	}
	if err := p.lx.err(); err != nil {
		return nil, &mocaperr.ParseError{Msg: "read failed", Err: err}
	}

	m, err := b.Build(frameTime)
	if err != nil {
		return nil, p.fail(0, "%v", err)
	}
	return m, nil
}

func rowHint(cols, frames int) int {
	if cols == 0 {
		return 0
	}
	return min(frames, maxPrealloc/cols)
}

// header reads a "Key: value" line of the motion section. Key comparison is
// case-insensitive and tolerant of repeated inner whitespace.
func header[T any](p *parser, key string, parse func(string) (T, error)) (T, error) {
	var zero T
	text, ok := p.lx.nextLine()
	if !ok {
		return zero, p.eof(key + ":")
	}
	k, v, found := strings.Cut(text, ":")
	if !found || !strings.EqualFold(strings.Join(strings.Fields(k), " "), key) {
		return zero, p.fail(p.lx.line, "expected %q, found %q", key+":", text)
	}
	val, err := parse(strings.TrimSpace(v))
	if err != nil {
		return zero, p.fail(p.lx.line, "%s: %v", key, err)
	}
	return val, nil
}

func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not finite: %q", s)
	}
	return v, nil
}
