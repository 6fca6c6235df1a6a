// Package payload turns a message value into the exact wire body the
// endpoint expects: a JSON document, or multipart/form-data when the
// message carries file attachments.
package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/bwmarrin/discordgo"

	"hookcast/internal/message"
)

// Body is the encoded wire body for one outbound request.
type Body struct {
	ContentType string
	Data        []byte
}

// wirePayload is the JSON object sent either as the whole body or as the
// payload_json multipart field. tts is always emitted; everything else
// only when set.
type wirePayload struct {
	Content   string                    `json:"content,omitempty"`
	Embeds    []*discordgo.MessageEmbed `json:"embeds,omitempty"`
	AvatarURL string                    `json:"avatar_url,omitempty"`
	Username  string                    `json:"username,omitempty"`
	TTS       bool                      `json:"tts"`
}

// Encode builds the wire body for msg. Every attachment source is read
// to completion exactly once and closed, including when encoding fails
// partway through.
func Encode(msg *message.Message) (*Body, error) {
	if msg == nil {
		return nil, fmt.Errorf("%w: message is nil", message.ErrInvalidArgument)
	}

	payloadJSON, err := json.Marshal(wirePayload{
		Content:   msg.Content,
		Embeds:    msg.Embeds,
		AvatarURL: msg.AvatarURL,
		Username:  msg.Username,
		TTS:       msg.TTS,
	})
	if err != nil {
		closeSources(msg.Attachments, 0)
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	if !msg.HasAttachments() {
		return &Body{ContentType: "application/json", Data: payloadJSON}, nil
	}
	return encodeMultipart(msg.Attachments, payloadJSON)
}

func encodeMultipart(attachments []*message.Attachment, payloadJSON []byte) (*Body, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for i, att := range attachments {
		// A nil slot ends the file parts; the backing slice may be
		// pre-sized and only partially filled.
		if att == nil {
			break
		}
		part, err := mw.CreatePart(filePartHeader(i, att.Name))
		if err != nil {
			closeSources(attachments, i)
			return nil, fmt.Errorf("create part file%d: %w", i, err)
		}
		rc := att.Source.Open()
		_, copyErr := io.Copy(part, rc)
		rc.Close()
		if copyErr != nil {
			closeSources(attachments, i+1)
			return nil, fmt.Errorf("read attachment %q: %w", att.Name, copyErr)
		}
	}

	if err := mw.WriteField("payload_json", string(payloadJSON)); err != nil {
		return nil, fmt.Errorf("write payload_json: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("finish multipart body: %w", err)
	}
	return &Body{ContentType: mw.FormDataContentType(), Data: buf.Bytes()}, nil
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func filePartHeader(index int, filename string) textproto.MIMEHeader {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file%d"; filename="%s"`, index, quoteEscaper.Replace(filename)))
	h.Set("Content-Type", "application/octet-stream")
	return h
}

// closeSources releases the sources from index from onward after an
// encoding failure. The source at the failure point is already closed.
func closeSources(attachments []*message.Attachment, from int) {
	for _, att := range attachments[from:] {
		if att == nil {
			continue
		}
		att.Source.Open().Close()
	}
}
