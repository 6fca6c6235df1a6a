// Package message defines the immutable outbound message value and its
// construction paths: embeds, file attachments, an existing Discord
// message, or the Builder.
package message

import (
	"errors"
	"fmt"
	"sort"

	"github.com/bwmarrin/discordgo"
)

// ErrInvalidArgument reports malformed construction input. All
// validation is synchronous; nothing is deferred to encode or send time.
var ErrInvalidArgument = errors.New("invalid argument")

// Message is one outbound webhook message. Username and AvatarURL
// override the endpoint's default sender identity. A message carries
// either textual content/embeds or attachments, never both; the
// constructors enforce this. Once built, a message is immutable.
type Message struct {
	Username    string
	AvatarURL   string
	Content     string
	Embeds      []*discordgo.MessageEmbed
	TTS         bool
	Attachments []*Attachment
}

// FromEmbeds builds a message carrying only the given embeds.
func FromEmbeds(embeds ...*discordgo.MessageEmbed) (*Message, error) {
	if len(embeds) == 0 {
		return nil, fmt.Errorf("%w: embeds must not be empty", ErrInvalidArgument)
	}
	for i, e := range embeds {
		if e == nil {
			return nil, fmt.Errorf("%w: embed %d is nil", ErrInvalidArgument, i)
		}
	}
	out := make([]*discordgo.MessageEmbed, len(embeds))
	copy(out, embeds)
	return &Message{Embeds: out}, nil
}

// Files builds an attachment-only message from name to data source
// pairs. Names are ordered lexicographically so the resulting part
// order is deterministic. At most MaxFiles attachments are allowed.
func Files(attachments map[string]DataSource) (*Message, error) {
	if len(attachments) == 0 {
		return nil, fmt.Errorf("%w: attachments must not be empty", ErrInvalidArgument)
	}
	if len(attachments) > MaxFiles {
		return nil, fmt.Errorf("%w: cannot add more than %d files to a message", ErrInvalidArgument, MaxFiles)
	}
	names := make([]string, 0, len(attachments))
	for name := range attachments {
		names = append(names, name)
	}
	sort.Strings(names)

	files := make([]*Attachment, 0, len(names))
	for _, name := range names {
		att, err := newAttachment(name, attachments[name])
		if err != nil {
			return nil, err
		}
		files = append(files, att)
	}
	return &Message{Attachments: files}, nil
}

// FilePairs builds an attachment-only message from a flat argument list
// of (name, source) pairs, keeping input order. The first pair is
// explicit so at least one attachment is always supplied; rest must hold
// an even number of alternating string names and DataSource values.
func FilePairs(name1 string, data1 DataSource, rest ...any) (*Message, error) {
	if len(rest)%2 != 0 {
		return nil, fmt.Errorf("%w: attachments must be supplied as (name, data) pairs", ErrInvalidArgument)
	}
	count := 1 + len(rest)/2
	if count > MaxFiles {
		return nil, fmt.Errorf("%w: cannot add more than %d files to a message", ErrInvalidArgument, MaxFiles)
	}

	files := make([]*Attachment, 0, count)
	first, err := newAttachment(name1, data1)
	if err != nil {
		return nil, err
	}
	files = append(files, first)

	for i := 0; i < len(rest); i += 2 {
		name, ok := rest[i].(string)
		if !ok {
			return nil, fmt.Errorf("%w: attachment name at position %d must be a string", ErrInvalidArgument, i)
		}
		src, ok := rest[i+1].(DataSource)
		if !ok {
			return nil, fmt.Errorf("%w: attachment data for %q must be a DataSource", ErrInvalidArgument, name)
		}
		att, err := newAttachment(name, src)
		if err != nil {
			return nil, err
		}
		files = append(files, att)
	}

	if err := checkUniqueNames(files); err != nil {
		return nil, err
	}
	return &Message{Attachments: files}, nil
}

// FromMessage copies content, embeds, and the TTS flag from an existing
// Discord message. Attachments of the source message are intentionally
// not copied.
func FromMessage(m *discordgo.Message) (*Message, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: message is nil", ErrInvalidArgument)
	}
	embeds := make([]*discordgo.MessageEmbed, len(m.Embeds))
	copy(embeds, m.Embeds)
	return &Message{
		Content: m.Content,
		Embeds:  embeds,
		TTS:     m.TTS,
	}, nil
}

// HasAttachments reports whether this message carries files and will
// therefore encode to a multipart body.
func (m *Message) HasAttachments() bool {
	return len(m.Attachments) > 0
}

// WithDefaults returns a copy with the sender overrides filled in where
// the message itself does not set them. The receiver is not modified.
func (m *Message) WithDefaults(username, avatarURL string) *Message {
	if (username == "" || m.Username != "") && (avatarURL == "" || m.AvatarURL != "") {
		return m
	}
	out := *m
	if out.Username == "" {
		out.Username = username
	}
	if out.AvatarURL == "" {
		out.AvatarURL = avatarURL
	}
	return &out
}

func checkUniqueNames(files []*Attachment) error {
	seen := make(map[string]struct{}, len(files))
	for _, f := range files {
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("%w: duplicate attachment name %q", ErrInvalidArgument, f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}
