package skeleton

import (
	"fmt"
	"strings"
)

// Channel is one animated degree of freedom of a joint.
type Channel uint8

const (
	Xposition Channel = iota + 1
	Yposition
	Zposition
	Xrotation
	Yrotation
	Zrotation
)

var channelNames = map[Channel]string{
	Xposition: "Xposition",
	Yposition: "Yposition",
	Zposition: "Zposition",
	Xrotation: "Xrotation",
	Yrotation: "Yrotation",
	Zrotation: "Zrotation",
}

func (c Channel) String() string {
	if name, ok := channelNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Channel(%d)", uint8(c))
}

// Valid reports whether c is one of the six known channels.
func (c Channel) Valid() bool {
	_, ok := channelNames[c]
	return ok
}

// IsRotation reports whether c is a rotation channel.
func (c Channel) IsRotation() bool {
	return c == Xrotation || c == Yrotation || c == Zrotation
}

// ParseChannel accepts a channel name case-insensitively.
func ParseChannel(name string) (Channel, error) {
	trimmed := strings.TrimSpace(name)
	for c, n := range channelNames {
		if strings.EqualFold(n, trimmed) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown channel %q", name)
}

// ParseChannels parses a list of channel names.
func ParseChannels(names []string) ([]Channel, error) {
	out := make([]Channel, 0, len(names))
	for _, name := range names {
		c, err := ParseChannel(name)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// ChannelNames formats channels with their canonical names.
func ChannelNames(channels []Channel) []string {
	out := make([]string, len(channels))
	for i, c := range channels {
		out[i] = c.String()
	}
	return out
}

// DefaultRootChannels returns the channel layout most capture exports use for
// the root joint: translation followed by ZYX rotation.
func DefaultRootChannels() []Channel {
	return []Channel{Xposition, Yposition, Zposition, Zrotation, Yrotation, Xrotation}
}

// DefaultJointChannels returns the ZYX rotation layout used for non-root joints.
func DefaultJointChannels() []Channel {
	return []Channel{Zrotation, Yrotation, Xrotation}
}
