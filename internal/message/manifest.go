package message

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bwmarrin/discordgo"
	"gopkg.in/yaml.v3"
)

// Manifest is a YAML description of one message, used by the CLI.
// A manifest carries either content/embeds or files, mirroring the
// construction API.
type Manifest struct {
	Content   string          `yaml:"content"`
	Username  string          `yaml:"username"`
	AvatarURL string          `yaml:"avatar_url"`
	TTS       bool            `yaml:"tts"`
	Embeds    []EmbedManifest `yaml:"embeds"`
	Files     []FileManifest  `yaml:"files"`
}

// EmbedManifest is the subset of embed fields expressible in a manifest.
type EmbedManifest struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	URL         string `yaml:"url"`
	Color       int    `yaml:"color"`
}

// FileManifest names one attachment. Name defaults to the file's base name.
type FileManifest struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// LoadManifest reads a YAML manifest and builds the message it describes.
func LoadManifest(path string) (*Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	var mf Manifest
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return mf.Build()
}

// Build converts the manifest into a message.
func (mf *Manifest) Build() (*Message, error) {
	if len(mf.Files) > 0 {
		if mf.Content != "" || len(mf.Embeds) > 0 {
			return nil, fmt.Errorf("%w: a manifest cannot combine files with content or embeds", ErrInvalidArgument)
		}
		return mf.buildFiles()
	}

	b := NewBuilder().
		SetUsername(mf.Username).
		SetAvatarURL(mf.AvatarURL).
		SetContent(mf.Content).
		SetTTS(mf.TTS)
	for _, em := range mf.Embeds {
		b.AddEmbeds(&discordgo.MessageEmbed{
			Title:       em.Title,
			Description: em.Description,
			URL:         em.URL,
			Color:       em.Color,
		})
	}
	return b.Build()
}

func (mf *Manifest) buildFiles() (*Message, error) {
	sources := make(map[string]DataSource, len(mf.Files))
	for _, fm := range mf.Files {
		name := fm.Name
		if name == "" {
			name = filepath.Base(fm.Path)
		}
		if _, dup := sources[name]; dup {
			return nil, fmt.Errorf("%w: duplicate attachment name %q", ErrInvalidArgument, name)
		}
		src, err := FileSource(fm.Path)
		if err != nil {
			return nil, err
		}
		sources[name] = src
	}
	msg, err := Files(sources)
	if err != nil {
		return nil, err
	}
	out := *msg
	out.Username = mf.Username
	out.AvatarURL = mf.AvatarURL
	return &out, nil
}
