package message

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Builder assembles a text or embed message with optional sender
// overrides. Attachment messages are built through Files or FilePairs
// instead; the two kinds cannot be combined.
type Builder struct {
	username  string
	avatarURL string
	content   string
	embeds    []*discordgo.MessageEmbed
	tts       bool
}

func NewBuilder() *Builder {
	return &Builder{}
}

// SetUsername overrides the endpoint's default sender name.
func (b *Builder) SetUsername(username string) *Builder {
	b.username = username
	return b
}

// SetAvatarURL overrides the endpoint's default sender avatar.
func (b *Builder) SetAvatarURL(avatarURL string) *Builder {
	b.avatarURL = avatarURL
	return b
}

func (b *Builder) SetContent(content string) *Builder {
	b.content = content
	return b
}

func (b *Builder) SetTTS(tts bool) *Builder {
	b.tts = tts
	return b
}

func (b *Builder) AddEmbeds(embeds ...*discordgo.MessageEmbed) *Builder {
	b.embeds = append(b.embeds, embeds...)
	return b
}

// IsEmpty reports whether the builder holds nothing to send.
func (b *Builder) IsEmpty() bool {
	return b.content == "" && len(b.embeds) == 0
}

// Reset clears the builder for reuse.
func (b *Builder) Reset() *Builder {
	*b = Builder{}
	return b
}

// Build validates the accumulated fields and produces an immutable
// message.
func (b *Builder) Build() (*Message, error) {
	if b.IsEmpty() {
		return nil, fmt.Errorf("%w: message has no content and no embeds", ErrInvalidArgument)
	}
	if len(b.content) > MaxContentLength {
		return nil, fmt.Errorf("%w: content length %d exceeds the %d character limit", ErrInvalidArgument, len(b.content), MaxContentLength)
	}
	for i, e := range b.embeds {
		if e == nil {
			return nil, fmt.Errorf("%w: embed %d is nil", ErrInvalidArgument, i)
		}
	}
	embeds := make([]*discordgo.MessageEmbed, len(b.embeds))
	copy(embeds, b.embeds)
	return &Message{
		Username:  b.username,
		AvatarURL: b.avatarURL,
		Content:   b.content,
		Embeds:    embeds,
		TTS:       b.tts,
	}, nil
}
